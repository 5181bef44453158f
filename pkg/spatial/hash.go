package spatial

import (
	"math"
	"slices"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"
)

// DefaultCellSize is the grid pitch in millimeters
const DefaultCellSize = 0.4

// maxCellsPerItem caps the number of buckets one item or query may span.
// Larger boxes are handled by a linear pass instead.
const maxCellsPerItem = 1 << 16

type cellKey struct {
	x, y int
}

// HashIndex is a uniform grid. Each item is stored in every cell its bounds
// touch, so long segments appear in every cell along their length.
type HashIndex[T any] struct {
	cellSize float64
	cells    map[cellKey][]int
	entries  map[int]*entry[T]
	oversize []int
	nextID   int
}

// NewHashIndex returns an empty grid with the given cell size
func NewHashIndex[T any](cellSize float64) *HashIndex[T] {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		cellSize = DefaultCellSize
	}
	return &HashIndex[T]{
		cellSize: cellSize,
		cells:    make(map[cellKey][]int),
		entries:  make(map[int]*entry[T]),
	}
}

// CellSize returns the grid pitch
func (h *HashIndex[T]) CellSize() float64 {
	return h.cellSize
}

// cellRange returns the inclusive range of cells covered by b. ok is false
// for non-finite or oversized boxes, which never go into buckets.
func (h *HashIndex[T]) cellRange(b geom.Bounds) (lo, hi cellKey, ok bool) {
	for _, v := range [...]float64{b.MinX, b.MinY, b.MaxX, b.MaxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v/h.cellSize) > 1<<40 {
			return lo, hi, false
		}
	}

	lo = cellKey{int(math.Floor(b.MinX / h.cellSize)), int(math.Floor(b.MinY / h.cellSize))}
	hi = cellKey{int(math.Floor(b.MaxX / h.cellSize)), int(math.Floor(b.MaxY / h.cellSize))}
	spanX := float64(hi.x-lo.x) + 1
	spanY := float64(hi.y-lo.y) + 1
	return lo, hi, spanX*spanY <= maxCellsPerItem
}

// Insert adds item with its bounds and returns the assigned id
func (h *HashIndex[T]) Insert(item T, bounds geom.Bounds) int {
	id := h.nextID
	h.nextID++
	h.entries[id] = &entry[T]{id: id, item: item, bounds: bounds}

	lo, hi, ok := h.cellRange(bounds)
	if !ok {
		h.oversize = append(h.oversize, id)
		return id
	}
	for x := lo.x; x <= hi.x; x++ {
		for y := lo.y; y <= hi.y; y++ {
			k := cellKey{x, y}
			h.cells[k] = append(h.cells[k], id)
		}
	}
	return id
}

// Remove deletes the item with the given id from every bucket
func (h *HashIndex[T]) Remove(id int) bool {
	e, ok := h.entries[id]
	if !ok {
		return false
	}
	delete(h.entries, id)

	lo, hi, inCells := h.cellRange(e.bounds)
	if !inCells {
		h.oversize = slices.DeleteFunc(h.oversize, func(v int) bool { return v == id })
		return true
	}
	for x := lo.x; x <= hi.x; x++ {
		for y := lo.y; y <= hi.y; y++ {
			k := cellKey{x, y}
			bucket := slices.DeleteFunc(h.cells[k], func(v int) bool { return v == id })
			if len(bucket) == 0 {
				delete(h.cells, k)
			} else {
				h.cells[k] = bucket
			}
		}
	}
	return true
}

// Query returns the items whose bounds overlap bounds expanded by margin
func (h *HashIndex[T]) Query(bounds geom.Bounds, margin float64) []T {
	q := bounds.Expand(margin)

	seen := make(map[int]struct{})
	var ids []int
	add := func(id int) {
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		if h.entries[id].bounds.Overlaps(q) {
			ids = append(ids, id)
		}
	}

	lo, hi, ok := h.cellRange(q)
	if ok {
		for x := lo.x; x <= hi.x; x++ {
			for y := lo.y; y <= hi.y; y++ {
				for _, id := range h.cells[cellKey{x, y}] {
					add(id)
				}
			}
		}
	} else {
		for id := range h.entries {
			add(id)
		}
	}
	for _, id := range h.oversize {
		add(id)
	}

	slices.Sort(ids)
	out := make([]T, len(ids))
	for i, id := range ids {
		out[i] = h.entries[id].item
	}
	return out
}

// Len returns the number of items
func (h *HashIndex[T]) Len() int {
	return len(h.entries)
}
