// Package report renders clustering results as styled text, JSON, or TOML.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/papapumpkin/coalesce/internal/cluster"
)

// Output formats accepted by Write.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatTOML = "toml"
)

// ErrUnknownFormat is returned by Write for an unsupported format.
var ErrUnknownFormat = errors.New("report: unknown format")

var (
	styleTitle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00BFFF")).Bold(true)
	styleRoot  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))
	styleDim   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
)

// document is the machine-readable shape shared by JSON and TOML output.
type document struct {
	RunID      string          `json:"run_id,omitempty" toml:"run_id,omitempty"`
	Size       int             `json:"size" toml:"size"`
	Components int             `json:"components" toml:"components"`
	Duplicates int             `json:"duplicates" toml:"duplicates"`
	Unions     int             `json:"unions" toml:"unions"`
	Skipped    int             `json:"skipped" toml:"skipped"`
	Parents    []int           `json:"parents,omitempty" toml:"parents,omitempty"`
	Groups     []cluster.Group `json:"groups" toml:"groups"`
}

// Options tunes Write.
type Options struct {
	// RunID is included in the output when set.
	RunID string

	// WithParents adds the full parent mapping to JSON and TOML output.
	WithParents bool
}

// Write renders res to w in the given format.
func Write(w io.Writer, format string, res *cluster.Result, opts Options) error {
	switch format {
	case FormatText:
		return writeText(w, res, opts)
	case FormatJSON, FormatTOML:
		doc := document{
			RunID:      opts.RunID,
			Size:       res.Size,
			Components: res.Components,
			Duplicates: res.Duplicates(),
			Unions:     res.Unions,
			Skipped:    res.Skipped,
			Groups:     res.Groups,
		}
		if opts.WithParents {
			doc.Parents = res.Parents
		}
		if format == FormatJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(doc); err != nil {
				return fmt.Errorf("report: encode json: %w", err)
			}
			return nil
		}
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("report: encode toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func writeText(w io.Writer, res *cluster.Result, opts Options) error {
	var b strings.Builder

	title := fmt.Sprintf("%s elements · %s components · %s duplicates",
		humanize.Comma(int64(res.Size)),
		humanize.Comma(int64(res.Components)),
		humanize.Comma(int64(res.Duplicates())))
	b.WriteString(styleTitle.Render(title))
	b.WriteByte('\n')

	meta := fmt.Sprintf("%s pairs applied", humanize.Comma(int64(res.Unions)))
	if res.Skipped > 0 {
		meta += fmt.Sprintf(", %s skipped", humanize.Comma(int64(res.Skipped)))
	}
	if opts.RunID != "" {
		meta += " · run " + opts.RunID
	}
	b.WriteString(styleDim.Render(meta))
	b.WriteByte('\n')

	for _, g := range res.Groups {
		members := make([]string, len(g.Members))
		for i, m := range g.Members {
			members[i] = strconv.Itoa(m)
		}
		fmt.Fprintf(&b, "  %s %s\n", styleRoot.Render(fmt.Sprintf("[%d]", g.Root)), strings.Join(members, " "))
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("report: write text: %w", err)
	}
	return nil
}
