package spatial

import (
	"errors"
	"math"
	"slices"

	"github.com/dhconnelly/rtreego"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"
)

// minExtent pads degenerate boxes since rtreego rejects zero lengths
const minExtent = 1e-8

var errNonFinite = errors.New("spatial: non-finite bounds")

func toRect(b geom.Bounds) (rtreego.Rect, error) {
	if !geom.Pt(b.MinX, b.MinY).IsFinite() || !geom.Pt(b.MaxX, b.MaxY).IsFinite() {
		return rtreego.Rect{}, errNonFinite
	}
	dx := math.Max(minExtent, b.Width())
	dy := math.Max(minExtent, b.Height())
	return rtreego.NewRect(rtreego.Point{b.MinX, b.MinY}, []float64{dx, dy})
}

type rtreeEntry[T any] struct {
	*entry[T]
	rect rtreego.Rect
}

func (e *rtreeEntry[T]) Bounds() rtreego.Rect {
	return e.rect
}

// RTreeIndex stores items in an R-tree. Queries are refined against the exact
// item bounds, so results match HashIndex.
type RTreeIndex[T any] struct {
	tree    *rtreego.Rtree
	entries map[int]*rtreeEntry[T]
	invalid map[int]*rtreeEntry[T]
	nextID  int
}

// NewRTreeIndex returns an empty two-dimensional R-tree
func NewRTreeIndex[T any]() *RTreeIndex[T] {
	return &RTreeIndex[T]{
		tree:    rtreego.NewTree(2, 25, 50),
		entries: make(map[int]*rtreeEntry[T]),
		invalid: make(map[int]*rtreeEntry[T]),
	}
}

// Insert adds item with its bounds and returns the assigned id
func (r *RTreeIndex[T]) Insert(item T, bounds geom.Bounds) int {
	id := r.nextID
	r.nextID++

	e := &rtreeEntry[T]{entry: &entry[T]{id: id, item: item, bounds: bounds}}
	rect, err := toRect(bounds)
	if err != nil {
		// non-finite bounds can never overlap a query
		r.invalid[id] = e
		return id
	}
	e.rect = rect
	r.entries[id] = e
	r.tree.Insert(e)
	return id
}

// Remove deletes the item with the given id
func (r *RTreeIndex[T]) Remove(id int) bool {
	if _, ok := r.invalid[id]; ok {
		delete(r.invalid, id)
		return true
	}
	e, ok := r.entries[id]
	if !ok {
		return false
	}
	delete(r.entries, id)
	return r.tree.Delete(e)
}

// Query returns the items whose bounds overlap bounds expanded by margin
func (r *RTreeIndex[T]) Query(bounds geom.Bounds, margin float64) []T {
	q := bounds.Expand(margin)

	// rtreego treats touching boxes as disjoint; widen the search and let the
	// exact overlap test below decide.
	rect, err := toRect(q.Expand(minExtent))
	if err != nil {
		return nil
	}

	var hits []*rtreeEntry[T]
	for _, s := range r.tree.SearchIntersect(rect) {
		e := s.(*rtreeEntry[T])
		if e.bounds.Overlaps(q) {
			hits = append(hits, e)
		}
	}

	slices.SortFunc(hits, func(a, b *rtreeEntry[T]) int { return a.id - b.id })
	out := make([]T, len(hits))
	for i, e := range hits {
		out[i] = e.item
	}
	return out
}

// Len returns the number of items
func (r *RTreeIndex[T]) Len() int {
	return len(r.entries) + len(r.invalid)
}
