package pairs

import (
	"context"
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/papapumpkin/coalesce/internal/cluster"
)

// TOMLSource reads pairs from a TOML document:
//
//	size = 6
//
//	[[pair]]
//	a = 3
//	b = 2
type TOMLSource struct {
	Path string
}

// Load reads and decodes the file at s.Path. Unknown keys are rejected.
func (s TOMLSource) Load(_ context.Context) (Input, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return Input{}, fmt.Errorf("pairs: open %s: %w", s.Path, err)
	}
	defer f.Close()

	var in Input
	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return Input{}, fmt.Errorf("pairs: parsing %s: %w", s.Path, err)
	}
	if in.Size < 0 {
		return Input{}, fmt.Errorf("pairs: %s: invalid size %d", s.Path, in.Size)
	}
	if err := cluster.CheckSize(in.Size); err != nil {
		return Input{}, fmt.Errorf("pairs: %s: %w", s.Path, err)
	}
	return in, nil
}
