// Command coalesce clusters near-duplicate records from candidate pairs.
package main

import "github.com/papapumpkin/coalesce/cmd"

func main() {
	cmd.Execute()
}
