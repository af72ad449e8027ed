package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/coalesce/internal/telemetry"
)

var telemetryCmd = &cobra.Command{
	Use:   "telemetry [file]",
	Short: "View JSONL telemetry events from clustering runs",
	Long: `Reads and formats a JSONL telemetry file written by "coalesce cluster
--telemetry". Without an argument, the configured telemetry_path is used.
With --follow (-f), watches the file for new events (like tail -f).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTelemetry,
}

func init() {
	telemetryCmd.Flags().String("run", "", "only show events for this run ID")
	telemetryCmd.Flags().BoolP("follow", "f", false, "follow the file for new events")
	rootCmd.AddCommand(telemetryCmd)
}

func runTelemetry(cmd *cobra.Command, args []string) error {
	runID, _ := cmd.Flags().GetString("run")
	follow, _ := cmd.Flags().GetBool("follow")

	path := ""
	if len(args) > 0 {
		path = args[0]
	} else {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path = cfg.TelemetryPath
	}
	if path == "" {
		return fmt.Errorf("telemetry: no file given and telemetry_path is not set")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	defer f.Close()

	// Print all existing events.
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		printEvent(cmd.OutOrStdout(), scanner.Text(), runID)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("telemetry: read %s: %w", path, err)
	}

	if !follow {
		return nil
	}
	return tailFollow(cmd.OutOrStdout(), f, path, runID)
}

// tailFollow watches the file for new data using fsnotify and prints new events.
func tailFollow(w io.Writer, f *os.File, path, runID string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("telemetry: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("telemetry: watch %s: %w", path, err)
	}

	t := &tail{r: bufio.NewReader(f), w: w, runID: runID}
	for event := range watcher.Events {
		if event.Has(fsnotify.Write) {
			t.drain()
		}
	}
	return nil
}

// tail prints complete lines from a growing file. A line without its
// trailing newline is held until a later write completes it.
type tail struct {
	r       *bufio.Reader
	w       io.Writer
	runID   string
	partial strings.Builder
}

func (t *tail) drain() {
	for {
		line, err := t.r.ReadString('\n')
		t.partial.WriteString(line)
		if err != nil {
			return
		}
		printEvent(t.w, t.partial.String(), t.runID)
		t.partial.Reset()
	}
}

// printEvent decodes a JSONL line and prints a human-readable
// representation. Events from runs other than runID are dropped when runID
// is set.
func printEvent(w io.Writer, line, runID string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	var evt telemetry.Event
	if err := json.Unmarshal([]byte(line), &evt); err != nil {
		fmt.Fprintf(w, "??? %s\n", line)
		return
	}
	if runID != "" && evt.RunID != runID {
		return
	}

	parts := []string{fmt.Sprintf("[%s]", evt.Timestamp.Format(time.TimeOnly)), evt.Kind}
	if evt.RunID != "" {
		parts = append(parts, "run="+evt.RunID)
	}
	if evt.Data != nil {
		if m, ok := evt.Data.(map[string]any); ok {
			parts = append(parts, formatDataMap(m))
		} else {
			data, _ := json.Marshal(evt.Data)
			parts = append(parts, string(data))
		}
	}

	fmt.Fprintln(w, strings.Join(parts, " "))
}

// formatDataMap formats a data map as key=value pairs sorted by key.
func formatDataMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, m[k])
	}
	return b.String()
}
