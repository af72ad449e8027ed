// Package pairs loads candidate duplicate pairs from files.
package pairs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/papapumpkin/coalesce/internal/cluster"
)

// ErrEmptyInput is returned when an input declares no size and holds no
// pairs, so there is nothing to infer a size from.
var ErrEmptyInput = errors.New("pairs: input has no pairs and no size")

// Input is a loaded set of candidate pairs. A zero Size means the input did
// not declare one.
type Input struct {
	Size  int            `toml:"size"`
	Pairs []cluster.Pair `toml:"pair"`
}

// ResolvedSize returns the declared size, or the size inferred from the
// pairs when none was declared. Sizes above cluster.MaxSize are rejected
// with cluster.ErrTooLarge.
func (in Input) ResolvedSize() (int, error) {
	n := in.Size
	if n == 0 {
		if len(in.Pairs) == 0 {
			return 0, ErrEmptyInput
		}
		n = cluster.InferSize(in.Pairs)
	}
	if err := cluster.CheckSize(n); err != nil {
		return 0, fmt.Errorf("pairs: %w", err)
	}
	return n, nil
}

// Source produces an Input.
type Source interface {
	Load(ctx context.Context) (Input, error)
}

// Detect returns the file source matching path's extension: .toml files
// are read as TOML, everything else as whitespace-separated text.
func Detect(path string) Source {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return TOMLSource{Path: path}
	}
	return TextSource{Path: path}
}
