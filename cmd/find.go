package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/coalesce/internal/cluster"
	"github.com/papapumpkin/coalesce/internal/pairs"
	"github.com/papapumpkin/coalesce/internal/unionfind"
)

var findCmd = &cobra.Command{
	Use:   "find <index>...",
	Short: "Print the representative of each index",
	Long: `Unions every pair from the input and prints, for each index given, the
smallest element of its component.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFind,
}

func init() {
	findCmd.Flags().StringP("input", "i", "", "pairs file (default from config)")
	findCmd.Flags().Int("size", 0, "element count (default: declared by input or inferred)")
	findCmd.Flags().Bool("from-store", false, "read pairs from the SQL store")
	addStoreFlags(findCmd)

	rootCmd.AddCommand(findCmd)
}

func runFind(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("input") {
		cfg.Input, _ = cmd.Flags().GetString("input")
	}

	indices := make([]int, len(args))
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return fmt.Errorf("invalid index %q", a)
		}
		indices[i] = n
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var src pairs.Source
	if fromStore, _ := cmd.Flags().GetBool("from-store"); fromStore {
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		src = st
	} else {
		if cfg.Input == "" {
			return errNoInput
		}
		src = pairs.Detect(cfg.Input)
	}

	in, err := src.Load(ctx)
	if err != nil {
		return err
	}
	size, err := resolveSize(cfg, in)
	if err != nil {
		return err
	}
	return findRoots(cmd.OutOrStdout(), size, in.Pairs, indices)
}

// findRoots unions pairs into a set of size elements and prints the root of
// each index. It stops at the first out-of-range pair or index.
func findRoots(w io.Writer, size int, ps []cluster.Pair, indices []int) error {
	ds := unionfind.New(size)
	for i, p := range ps {
		if err := ds.Union(p.A, p.B); err != nil {
			return fmt.Errorf("pair %d (%d, %d): %w", i, p.A, p.B, err)
		}
	}
	for _, x := range indices {
		root, err := ds.FindRoot(x)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d\t%d\n", x, root)
	}
	return nil
}
