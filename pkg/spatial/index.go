// Package spatial provides broad-phase lookup of items by bounding box.
//
// Two backends share one contract: a uniform hash grid and an R-tree. For any
// box B and margin M, Query(B, M) returns every item whose bounds overlap B
// grown by M on each side (touching counts), exactly once, ordered by the id
// Insert assigned. Both backends return identical results for identical input.
package spatial

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"
)

// Index is a mutable set of bounded items
type Index[T any] interface {
	// Insert adds an item and returns its synthetic id.
	Insert(item T, bounds geom.Bounds) int
	// Remove deletes the item with the given id.
	Remove(id int) bool
	// Query returns the items overlapping bounds expanded by margin.
	Query(bounds geom.Bounds, margin float64) []T
	Len() int
}

// Backend selects an index implementation
type Backend string

const (
	BackendHash  Backend = "hash"
	BackendRTree Backend = "rtree"
)

// New returns an empty index of the given backend. cellSize only applies to
// the hash backend; non-positive values select DefaultCellSize.
func New[T any](backend Backend, cellSize float64) (Index[T], error) {
	switch backend {
	case BackendHash, "":
		return NewHashIndex[T](cellSize), nil
	case BackendRTree:
		return NewRTreeIndex[T](), nil
	}
	return nil, fmt.Errorf("spatial: unknown index backend %q", backend)
}

type entry[T any] struct {
	id     int
	item   T
	bounds geom.Bounds
}
