package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/coalesce/internal/cluster"
	"github.com/papapumpkin/coalesce/internal/pairs"
	"github.com/papapumpkin/coalesce/internal/ui"
)

var importCmd = &cobra.Command{
	Use:   "import <pairs-file>",
	Short: "Append pairs from a file to the SQL store",
	Long: `Reads a text or TOML pairs file and appends its pairs to the configured
store. A size declared by the file (or given with --size) replaces the
store's size.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().Int("size", 0, "element count to record (default: declared by the file)")
	addStoreFlags(importCmd)

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	printer := ui.New(cfg.Verbose)

	ctx, cancel := setupSignalContext(printer)
	defer cancel()

	in, err := pairs.Detect(args[0]).Load(ctx)
	if err != nil {
		return err
	}

	size := in.Size
	if cfg.Size > 0 {
		size = cfg.Size
	}
	if err := cluster.CheckSize(size); err != nil {
		return err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.AddPairs(ctx, in.Pairs); err != nil {
		return err
	}
	if size > 0 {
		if err := st.SetSize(ctx, size); err != nil {
			return err
		}
		printer.Debug("store size set to %d", size)
	}

	printer.Success(fmt.Sprintf("imported %d pairs from %s", len(in.Pairs), args[0]))
	return nil
}
