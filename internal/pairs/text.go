package pairs

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/papapumpkin/coalesce/internal/cluster"
)

// TextSource reads pairs from a line-oriented file. Each line holds two
// whitespace-separated indices. Blank lines and lines starting with # are
// ignored, and a "size N" line declares the element count.
type TextSource struct {
	Path string
}

// Load reads and parses the file at s.Path.
func (s TextSource) Load(ctx context.Context) (Input, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return Input{}, fmt.Errorf("pairs: open %s: %w", s.Path, err)
	}
	defer f.Close()

	in, err := ParseText(ctx, f)
	if err != nil {
		return Input{}, fmt.Errorf("%s: %w", s.Path, err)
	}
	return in, nil
}

// ParseText parses the text pair format from r.
func ParseText(ctx context.Context, r io.Reader) (Input, error) {
	var in Input
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return Input{}, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return Input{}, fmt.Errorf("pairs: line %d: want 2 fields, got %d", lineNo, len(fields))
		}

		if fields[0] == "size" {
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 0 {
				return Input{}, fmt.Errorf("pairs: line %d: invalid size %q", lineNo, fields[1])
			}
			if err := cluster.CheckSize(n); err != nil {
				return Input{}, fmt.Errorf("pairs: line %d: %w", lineNo, err)
			}
			in.Size = n
			continue
		}

		a, err := strconv.Atoi(fields[0])
		if err != nil {
			return Input{}, fmt.Errorf("pairs: line %d: invalid index %q", lineNo, fields[0])
		}
		b, err := strconv.Atoi(fields[1])
		if err != nil {
			return Input{}, fmt.Errorf("pairs: line %d: invalid index %q", lineNo, fields[1])
		}
		in.Pairs = append(in.Pairs, cluster.Pair{A: a, B: b})
	}
	if err := scanner.Err(); err != nil {
		return Input{}, fmt.Errorf("pairs: read: %w", err)
	}
	return in, nil
}
