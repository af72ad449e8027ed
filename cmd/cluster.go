package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/coalesce/internal/cluster"
	"github.com/papapumpkin/coalesce/internal/config"
	"github.com/papapumpkin/coalesce/internal/pairs"
	"github.com/papapumpkin/coalesce/internal/report"
	"github.com/papapumpkin/coalesce/internal/store"
	"github.com/papapumpkin/coalesce/internal/telemetry"
	"github.com/papapumpkin/coalesce/internal/ui"
	"github.com/papapumpkin/coalesce/internal/watch"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster [pairs-file]",
	Short: "Cluster candidate duplicate pairs into components",
	Long: `Loads candidate pairs from a text or TOML file (or the SQL store with
--from-store), unions them, and prints every component.

Text files hold one "a b" pair per line, with an optional "size N" line.
TOML files hold "size = N" and [[pair]] tables with keys a and b.

With --watch, the file is clustered again every time it changes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCluster,
}

func init() {
	clusterCmd.Flags().Int("size", 0, "element count (default: declared by input or inferred)")
	clusterCmd.Flags().Int("min-group-size", 1, "omit components smaller than this")
	clusterCmd.Flags().Bool("skip-invalid", false, "skip out-of-range pairs instead of failing")
	clusterCmd.Flags().StringP("format", "o", "text", "output format: text, json, or toml")
	clusterCmd.Flags().Bool("parents", false, "include the parent mapping in json/toml output")
	clusterCmd.Flags().String("telemetry", "", "append JSONL run events to this file")
	clusterCmd.Flags().Bool("from-store", false, "read pairs from the SQL store")
	clusterCmd.Flags().Bool("save", false, "save the labels to the SQL store")
	clusterCmd.Flags().BoolP("watch", "w", false, "recluster whenever the pairs file changes")
	addStoreFlags(clusterCmd)

	rootCmd.AddCommand(clusterCmd)
}

// clusterRun holds everything one clustering pass needs.
type clusterRun struct {
	cfg         config.Config
	source      pairs.Source
	label       string
	store       *store.Store // nil unless --save or --from-store
	save        bool
	withParents bool
	emitter     *telemetry.Emitter
	printer     *ui.Printer
	out         io.Writer
}

func runCluster(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	printer := ui.New(cfg.Verbose)

	ctx, cancel := setupSignalContext(printer)
	defer cancel()

	fromStore, _ := cmd.Flags().GetBool("from-store")
	save, _ := cmd.Flags().GetBool("save")
	follow, _ := cmd.Flags().GetBool("watch")
	withParents, _ := cmd.Flags().GetBool("parents")

	run := &clusterRun{
		cfg:         cfg,
		save:        save,
		withParents: withParents,
		printer:     printer,
		out:         cmd.OutOrStdout(),
	}

	if fromStore || save {
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		run.store = st
	}

	path := inputPath(cfg, args)
	switch {
	case fromStore:
		if follow {
			return fmt.Errorf("--watch needs a pairs file, not --from-store")
		}
		run.source = run.store
		run.label = cfg.Store.Driver + " store"
	case path != "":
		run.source = pairs.Detect(path)
		run.label = path
	default:
		return errNoInput
	}

	if cfg.TelemetryPath != "" {
		em, err := telemetry.NewEmitter(cfg.TelemetryPath)
		if err != nil {
			return err
		}
		defer em.Close()
		run.emitter = em
	}

	if !follow {
		_, err := run.once(ctx)
		return err
	}
	return run.watch(ctx, path)
}

// once loads the input, clusters it, and writes the report.
func (r *clusterRun) once(ctx context.Context) (*cluster.Result, error) {
	runID := telemetry.NewRunID()
	r.printer.Heading("clustering " + r.label)
	r.record(telemetry.KindRunStart, runID, map[string]any{"input": r.label})

	res, err := r.build(ctx, runID)
	if err != nil {
		r.record(telemetry.KindRunFailed, runID, map[string]any{"error": err.Error()})
		return nil, err
	}

	if err := report.Write(r.out, r.cfg.Format, res, report.Options{RunID: runID, WithParents: r.withParents}); err != nil {
		return nil, err
	}
	r.record(telemetry.KindRunDone, runID, map[string]any{
		"size":       res.Size,
		"components": res.Components,
		"duplicates": res.Duplicates(),
		"skipped":    res.Skipped,
	})

	if r.save {
		if err := r.store.SaveLabels(ctx, runID, res.Parents); err != nil {
			return nil, err
		}
		r.record(telemetry.KindLabelsSaved, runID, map[string]any{"elements": len(res.Parents)})
		r.printer.Success(fmt.Sprintf("labels saved as run %s", runID))
	}
	return res, nil
}

func (r *clusterRun) build(ctx context.Context, runID string) (*cluster.Result, error) {
	in, err := r.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	size, err := resolveSize(r.cfg, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.label, err)
	}
	r.printer.Debug("loaded %d pairs over %d elements", len(in.Pairs), size)
	r.record(telemetry.KindPairsLoaded, runID, map[string]any{"pairs": len(in.Pairs), "size": size})

	opts := cluster.Options{
		MinGroupSize: r.cfg.MinGroupSize,
		SkipInvalid:  r.cfg.SkipInvalid,
		OnSkip: func(pos int, p cluster.Pair, err error) {
			r.printer.Warn(fmt.Sprintf("skipping pair %d (%d, %d): %v", pos, p.A, p.B, err))
			r.record(telemetry.KindPairSkipped, runID, map[string]any{"pos": pos, "a": p.A, "b": p.B})
		},
	}
	return cluster.Build(size, in.Pairs, opts)
}

// watch reruns once after every debounced change to path until ctx ends.
// Failed runs are reported and the watch continues.
func (r *clusterRun) watch(ctx context.Context, path string) error {
	w, err := watch.New(path)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	if _, err := r.once(ctx); err != nil {
		r.printer.Error(err.Error())
	}
	r.printer.Info("watching " + w.File + " (ctrl-c to stop)")

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-w.Changes:
			if !ok {
				return nil
			}
			if c.Removed {
				r.printer.Warn(c.File + " was removed; waiting for it to return")
				continue
			}
			if _, err := r.once(ctx); err != nil {
				r.printer.Error(err.Error())
			}
		}
	}
}

func (r *clusterRun) record(kind, runID string, data any) {
	if err := r.emitter.Record(kind, runID, data); err != nil {
		r.printer.Warn(err.Error())
	}
}
