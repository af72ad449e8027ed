// Package cluster turns candidate duplicate pairs into connected components.
//
// It is the consumer of unionfind: pairs are unioned in input order, then
// every element is resolved with FindRoot and grouped by its representative.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/papapumpkin/coalesce/internal/unionfind"
)

// ErrIndexOutOfRange is returned when a pair references an element outside
// [0, size). It wraps unionfind.ErrIndexOutOfRange.
var ErrIndexOutOfRange = unionfind.ErrIndexOutOfRange

// MaxSize is the largest element count Build accepts. The parent array for
// MaxSize elements takes 1 GiB on 64-bit platforms.
const MaxSize = 1 << 27

// ErrTooLarge is returned when an element count exceeds MaxSize.
var ErrTooLarge = errors.New("cluster: size exceeds limit")

// CheckSize reports whether n is a usable element count.
func CheckSize(n int) error {
	switch {
	case n < 0:
		return fmt.Errorf("cluster: negative size %d", n)
	case n > MaxSize:
		return fmt.Errorf("%w: %d > %d", ErrTooLarge, n, MaxSize)
	}
	return nil
}

// Pair is a candidate duplicate: two element indices an upstream detector
// flagged as similar.
type Pair struct {
	A int `json:"a" toml:"a"`
	B int `json:"b" toml:"b"`
}

// Options controls how Build applies pairs and which groups it reports.
type Options struct {
	// MinGroupSize drops groups with fewer members from Result.Groups.
	// Values below 1 are treated as 1.
	MinGroupSize int

	// SkipInvalid counts out-of-range pairs in Result.Skipped instead of
	// failing the run.
	SkipInvalid bool

	// OnSkip, if set, is called for each skipped pair with its position in
	// the input and the error that caused the skip.
	OnSkip func(pos int, p Pair, err error)
}

// Group is one component. Root is its smallest member and equals
// Members[0]; Members is sorted ascending.
type Group struct {
	Root    int   `json:"root" toml:"root"`
	Members []int `json:"members" toml:"members"`
}

// Result is the outcome of a clustering run.
type Result struct {
	// Size is the number of elements clustered.
	Size int `json:"size" toml:"size"`

	// Parents is the union-find parent mapping after every element was
	// resolved, so each entry is its element's representative.
	Parents []int `json:"parents" toml:"parents"`

	// Groups lists components sorted by Root, filtered by MinGroupSize.
	Groups []Group `json:"groups" toml:"groups"`

	// Components counts every component, including filtered ones.
	Components int `json:"components" toml:"components"`

	// Unions is the number of pairs applied.
	Unions int `json:"unions" toml:"unions"`

	// Skipped is the number of invalid pairs ignored under SkipInvalid.
	Skipped int `json:"skipped" toml:"skipped"`
}

// Duplicates returns how many elements are not the representative of
// their component: the number of records a dedup pass would drop.
func (r *Result) Duplicates() int {
	return r.Size - r.Components
}

// Build clusters n elements using pairs.
func Build(n int, pairs []Pair, opts Options) (*Result, error) {
	if err := CheckSize(n); err != nil {
		return nil, err
	}
	ds := unionfind.New(n)
	res := &Result{Size: n}

	for i, p := range pairs {
		if err := ds.Union(p.A, p.B); err != nil {
			if !opts.SkipInvalid || !errors.Is(err, unionfind.ErrIndexOutOfRange) {
				return nil, fmt.Errorf("cluster: pair %d (%d, %d): %w", i, p.A, p.B, err)
			}
			res.Skipped++
			if opts.OnSkip != nil {
				opts.OnSkip(i, p, err)
			}
			continue
		}
		res.Unions++
	}

	members := make(map[int][]int)
	for x := 0; x < n; x++ {
		root, err := ds.FindRoot(x)
		if err != nil {
			return nil, fmt.Errorf("cluster: resolve %d: %w", x, err)
		}
		members[root] = append(members[root], x)
	}
	res.Parents = ds.Parents()
	res.Components = len(members)
	res.Groups = groupsOf(members, opts.MinGroupSize)
	return res, nil
}

// groupsOf orders components by representative. Members are already
// ascending because elements were visited in index order.
func groupsOf(members map[int][]int, minSize int) []Group {
	if minSize < 1 {
		minSize = 1
	}
	roots := make([]int, 0, len(members))
	for root, m := range members {
		if len(m) >= minSize {
			roots = append(roots, root)
		}
	}
	sort.Ints(roots)

	groups := make([]Group, 0, len(roots))
	for _, root := range roots {
		groups = append(groups, Group{Root: root, Members: members[root]})
	}
	return groups
}

// InferSize returns one more than the largest index in pairs, or 0 when
// pairs is empty. Negative indices are ignored. The result saturates at
// math.MaxInt rather than overflowing, so callers should pass it to
// CheckSize.
func InferSize(pairs []Pair) int {
	n := 0
	for _, p := range pairs {
		for _, x := range [2]int{p.A, p.B} {
			if x >= n {
				n = min(x, math.MaxInt-1) + 1
			}
		}
	}
	return n
}
