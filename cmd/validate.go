package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/coalesce/internal/cluster"
	"github.com/papapumpkin/coalesce/internal/pairs"
	"github.com/papapumpkin/coalesce/internal/ui"
)

var validateCmd = &cobra.Command{
	Use:   "validate [pairs-file]",
	Short: "Check a pairs file without clustering it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		printer := ui.New(cfg.Verbose)

		path := inputPath(cfg, args)
		if path == "" {
			return errNoInput
		}
		in, err := pairs.Detect(path).Load(context.Background())
		if err != nil {
			printer.Error(err.Error())
			return fmt.Errorf("%s is not valid", path)
		}
		size, err := resolveSize(cfg, in)
		if err != nil {
			printer.Error(err.Error())
			return fmt.Errorf("%s is not valid", path)
		}

		bad := outOfRange(size, in.Pairs)
		for _, pos := range bad {
			p := in.Pairs[pos]
			printer.Warn(fmt.Sprintf("pair %d (%d, %d) is outside [0, %d)", pos, p.A, p.B, size))
		}
		if len(bad) > 0 {
			return fmt.Errorf("%s: %d of %d pairs out of range", path, len(bad), len(in.Pairs))
		}

		printer.Success(fmt.Sprintf("%s: %d pairs over %d elements, no errors", path, len(in.Pairs), size))
		return nil
	},
}

func init() {
	validateCmd.Flags().Int("size", 0, "element count (default: declared by input or inferred)")
	rootCmd.AddCommand(validateCmd)
}

// outOfRange returns the positions of pairs with an index outside
// [0, size).
func outOfRange(size int, ps []cluster.Pair) []int {
	var bad []int
	for i, p := range ps {
		if p.A < 0 || p.A >= size || p.B < 0 || p.B >= size {
			bad = append(bad, i)
		}
	}
	return bad
}
