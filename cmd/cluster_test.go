package cmd

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/coalesce/internal/cluster"
	"github.com/papapumpkin/coalesce/internal/config"
	"github.com/papapumpkin/coalesce/internal/pairs"
	"github.com/papapumpkin/coalesce/internal/store"
	"github.com/papapumpkin/coalesce/internal/telemetry"
	"github.com/papapumpkin/coalesce/internal/ui"
	"github.com/papapumpkin/coalesce/internal/unionfind"
)

func testConfig() config.Config {
	return config.Config{
		MinGroupSize: 1,
		Format:       "text",
		Store:        config.StoreConfig{Driver: store.DriverSQLite},
	}
}

func writePairs(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestLoadConfig_FlagOverridesInvalidSetting(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("format", "xml")

	cmd := &cobra.Command{Use: "cluster"}
	cmd.Flags().StringP("format", "o", "", "")
	if err := cmd.Flags().Set("format", "json"); err != nil {
		t.Fatalf("setting flag: %v", err)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want %q", cfg.Format, "json")
	}

	if _, err := loadConfig(&cobra.Command{Use: "cluster"}); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("without the flag: err = %v, want ErrInvalid", err)
	}
}

func TestFindRoots(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ps := []cluster.Pair{{A: 2, B: 8}, {A: 4, B: 2}, {A: 1, B: 2}}
	if err := findRoots(&buf, 10, ps, []int{4, 8, 3}); err != nil {
		t.Fatalf("findRoots: %v", err)
	}
	want := "4\t1\n8\t1\n3\t3\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestFindRoots_OutOfRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pairs   []cluster.Pair
		indices []int
	}{
		{"bad index", nil, []int{6}},
		{"bad pair", []cluster.Pair{{A: 0, B: 6}}, []int{0}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := findRoots(&bytes.Buffer{}, 6, tt.pairs, tt.indices)
			if !errors.Is(err, unionfind.ErrIndexOutOfRange) {
				t.Errorf("err = %v, want ErrIndexOutOfRange", err)
			}
		})
	}
}

func TestOutOfRange(t *testing.T) {
	t.Parallel()

	got := outOfRange(4, []cluster.Pair{
		{A: 0, B: 1}, {A: 4, B: 0}, {A: 2, B: 3}, {A: -1, B: 2}, {A: 1, B: math.MaxInt},
	})
	if diff := cmp.Diff([]int{1, 3, 4}, got); diff != "" {
		t.Errorf("outOfRange mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveSize(t *testing.T) {
	t.Parallel()

	in := pairs.Input{Size: 6, Pairs: []cluster.Pair{{A: 1, B: 2}}}

	cfg := testConfig()
	if got, _ := resolveSize(cfg, in); got != 6 {
		t.Errorf("declared size: got %d, want 6", got)
	}
	cfg.Size = 20
	if got, _ := resolveSize(cfg, in); got != 20 {
		t.Errorf("configured size: got %d, want 20", got)
	}
	if _, err := resolveSize(testConfig(), pairs.Input{}); !errors.Is(err, pairs.ErrEmptyInput) {
		t.Errorf("empty input: err = %v, want ErrEmptyInput", err)
	}
	cfg.Size = cluster.MaxSize + 1
	if _, err := resolveSize(cfg, in); !errors.Is(err, cluster.ErrTooLarge) {
		t.Errorf("configured size over limit: err = %v, want ErrTooLarge", err)
	}
}

func TestClusterRun_HugeIndexRejected(t *testing.T) {
	t.Parallel()

	run := &clusterRun{
		cfg:     testConfig(),
		source:  pairs.Detect(writePairs(t, "pairs.txt", "0 9223372036854775806\n")),
		label:   "pairs.txt",
		printer: &ui.Printer{Out: &bytes.Buffer{}},
		out:     &bytes.Buffer{},
	}
	if _, err := run.once(context.Background()); !errors.Is(err, cluster.ErrTooLarge) {
		t.Errorf("err = %v, want cluster.ErrTooLarge", err)
	}
}

func TestClusterRun_Once(t *testing.T) {
	t.Parallel()

	path := writePairs(t, "pairs.txt", "size 6\n3 2\n4 2\n")
	telemetryPath := filepath.Join(t.TempDir(), "events.jsonl")
	em, err := telemetry.NewEmitter(telemetryPath)
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}
	defer em.Close()

	var out, logs bytes.Buffer
	run := &clusterRun{
		cfg:     testConfig(),
		source:  pairs.Detect(path),
		label:   path,
		emitter: em,
		printer: &ui.Printer{Out: &logs},
		out:     &out,
	}

	res, err := run.once(context.Background())
	if err != nil {
		t.Fatalf("once: %v", err)
	}
	if diff := cmp.Diff([]int{0, 1, 2, 2, 2, 5}, res.Parents); diff != "" {
		t.Errorf("Parents mismatch (-want +got):\n%s", diff)
	}
	for _, want := range []string{"[2]", "2 3 4"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("report missing %q:\n%s", want, out.String())
		}
	}
	if !strings.Contains(logs.String(), "clustering "+path) {
		t.Errorf("printer output missing heading:\n%s", logs.String())
	}

	data, err := os.ReadFile(telemetryPath)
	if err != nil {
		t.Fatalf("reading telemetry: %v", err)
	}
	for _, kind := range []string{telemetry.KindRunStart, telemetry.KindPairsLoaded, telemetry.KindRunDone} {
		if !strings.Contains(string(data), `"kind":"`+kind+`"`) {
			t.Errorf("telemetry missing %s event:\n%s", kind, data)
		}
	}
}

func TestClusterRun_SkipInvalidWarns(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.SkipInvalid = true
	cfg.Size = 3

	var out, logs bytes.Buffer
	run := &clusterRun{
		cfg:     cfg,
		source:  pairs.Detect(writePairs(t, "pairs.txt", "0 1\n1 9\n")),
		label:   "pairs.txt",
		printer: &ui.Printer{Out: &logs},
		out:     &out,
	}

	res, err := run.once(context.Background())
	if err != nil {
		t.Fatalf("once: %v", err)
	}
	if res.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", res.Skipped)
	}
	if !strings.Contains(logs.String(), "skipping pair 1 (1, 9)") {
		t.Errorf("expected skip warning, got:\n%s", logs.String())
	}
}

func TestClusterRun_FailsOnInvalidPair(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Size = 3
	run := &clusterRun{
		cfg:     cfg,
		source:  pairs.Detect(writePairs(t, "pairs.txt", "0 1\n1 9\n")),
		label:   "pairs.txt",
		printer: &ui.Printer{Out: &bytes.Buffer{}},
		out:     &bytes.Buffer{},
	}

	if _, err := run.once(context.Background()); !errors.Is(err, unionfind.ErrIndexOutOfRange) {
		t.Errorf("err = %v, want ErrIndexOutOfRange", err)
	}
}

func TestClusterRun_StoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st, err := store.Open(ctx, store.DriverSQLite, filepath.Join(t.TempDir(), "coalesce.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()
	if err := st.AddPairs(ctx, []cluster.Pair{{A: 2, B: 8}, {A: 4, B: 2}, {A: 1, B: 2}}); err != nil {
		t.Fatalf("AddPairs: %v", err)
	}
	if err := st.SetSize(ctx, 10); err != nil {
		t.Fatalf("SetSize: %v", err)
	}

	cfg := testConfig()
	cfg.Format = "json"
	run := &clusterRun{
		cfg:     cfg,
		source:  st,
		label:   "sqlite store",
		store:   st,
		save:    true,
		printer: &ui.Printer{Out: &bytes.Buffer{}},
		out:     &bytes.Buffer{},
	}
	res, err := run.once(ctx)
	if err != nil {
		t.Fatalf("once: %v", err)
	}
	if res.Components != 7 {
		t.Errorf("Components = %d, want 7", res.Components)
	}
}

func TestPrintEvent(t *testing.T) {
	t.Parallel()

	line := `{"ts":"2025-01-01T10:00:00Z","kind":"run_done","run":"r1","data":{"size":6,"components":4}}`

	var buf bytes.Buffer
	printEvent(&buf, line, "")
	want := "[10:00:00] run_done run=r1 components=4 size=6\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("printEvent mismatch (-want +got):\n%s", diff)
	}

	buf.Reset()
	printEvent(&buf, line, "other-run")
	if buf.Len() != 0 {
		t.Errorf("event from another run was printed: %q", buf.String())
	}

	buf.Reset()
	printEvent(&buf, "not json", "")
	if buf.String() != "??? not json\n" {
		t.Errorf("malformed line printed as %q", buf.String())
	}
}

func TestTail_JoinsSplitLine(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "events.jsonl")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer f.Close()

	appendText := func(s string) {
		t.Helper()
		af, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
		if err != nil {
			t.Fatalf("opening for append: %v", err)
		}
		defer af.Close()
		if _, err := af.WriteString(s); err != nil {
			t.Fatalf("appending: %v", err)
		}
	}

	var buf bytes.Buffer
	tl := &tail{r: bufio.NewReader(f), w: &buf}

	appendText(`{"ts":"2025-01-01T10:00:00Z","kind":"run_`)
	tl.drain()
	if buf.Len() != 0 {
		t.Fatalf("partial line was printed: %q", buf.String())
	}

	appendText(`start","run":"r1"}` + "\n")
	tl.drain()
	want := "[10:00:00] run_start run=r1\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}
