// Package unionfind implements a fixed-size disjoint-set (union-find) over
// element indices 0..n-1.
//
// Representatives are always the smallest index in their component, so the
// outcome of a sequence of unions is deterministic. Lookups compress only
// the queried element's parent pointer; intermediate nodes on the path are
// left alone.
//
// A DisjointSet is not safe for concurrent use. FindRoot rewrites parent
// pointers, so even lookups must be serialized by the caller.
package unionfind

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfRange is returned when an index is not in [0, Len()).
var ErrIndexOutOfRange = errors.New("unionfind: index out of range")

// DisjointSet partitions the indices [0, size) into components. Each
// component is a tree in parent; a root is its own parent.
type DisjointSet struct {
	parent []int
	size   int
}

// New creates a DisjointSet of n singleton components. New panics if n is
// negative.
func New(n int) *DisjointSet {
	ds := &DisjointSet{
		parent: make([]int, n),
		size:   n,
	}
	for i := range ds.parent {
		ds.parent[i] = i
	}
	return ds
}

// Len returns the number of elements. It never changes.
func (ds *DisjointSet) Len() int {
	return ds.size
}

// Parents returns a copy of the current parent mapping.
func (ds *DisjointSet) Parents() []int {
	out := make([]int, len(ds.parent))
	copy(out, ds.parent)
	return out
}

// FindRoot returns the representative of x's component and points x
// directly at it.
func (ds *DisjointSet) FindRoot(x int) (int, error) {
	if err := ds.check(x); err != nil {
		return 0, err
	}
	return ds.find(x), nil
}

// Union merges the components of x and y. The root with the smaller index
// becomes the parent of the other. Union(x, x) is a no-op. If either index
// is out of range nothing is modified.
func (ds *DisjointSet) Union(x, y int) error {
	if err := ds.check(x); err != nil {
		return err
	}
	if err := ds.check(y); err != nil {
		return err
	}
	if x == y {
		return nil
	}

	rx := ds.find(x)
	ry := ds.find(y)
	switch {
	case rx < ry:
		ds.parent[ry] = rx
	case rx > ry:
		ds.parent[rx] = ry
	}
	return nil
}

// Connected reports whether x and y are in the same component. Like
// FindRoot, it compresses both endpoints.
func (ds *DisjointSet) Connected(x, y int) (bool, error) {
	rx, err := ds.FindRoot(x)
	if err != nil {
		return false, err
	}
	ry, err := ds.FindRoot(y)
	if err != nil {
		return false, err
	}
	return rx == ry, nil
}

func (ds *DisjointSet) find(x int) int {
	root := x
	for ds.parent[root] != root {
		root = ds.parent[root]
	}
	ds.parent[x] = root
	return root
}

func (ds *DisjointSet) check(x int) error {
	if x < 0 || x >= ds.size {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, x, ds.size)
	}
	return nil
}
