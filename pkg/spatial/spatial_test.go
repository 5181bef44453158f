package spatial

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"
)

type item struct {
	name   string
	bounds geom.Bounds
}

func backends(t *testing.T) map[string]func() Index[item] {
	t.Helper()
	return map[string]func() Index[item]{
		"hash":  func() Index[item] { return NewHashIndex[item](DefaultCellSize) },
		"rtree": func() Index[item] { return NewRTreeIndex[item]() },
	}
}

func names(items []item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.name
	}
	return out
}

func TestQuery(t *testing.T) {
	fixtures := []item{
		{"long", geom.Bounds{MinX: 0, MinY: 0, MaxX: 10, MaxY: 0.1}},
		{"near", geom.Bounds{MinX: 5, MinY: 0.5, MaxX: 5.2, MaxY: 0.7}},
		{"far", geom.Bounds{MinX: 50, MinY: 50, MaxX: 51, MaxY: 51}},
		{"point", geom.Bounds{MinX: 2, MinY: 2, MaxX: 2, MaxY: 2}},
	}

	tests := []struct {
		name   string
		bounds geom.Bounds
		margin float64
		want   []string
	}{
		{"spans many cells once", geom.Bounds{MinX: 1, MinY: -1, MaxX: 9, MaxY: 0.05}, 0, []string{"long"}},
		{"margin reaches neighbour", geom.Bounds{MinX: 5, MinY: 0.1, MaxX: 5.1, MaxY: 0.2}, 0.3, []string{"long", "near"}},
		{"touching counts", geom.Bounds{MinX: 5.2, MinY: 0.7, MaxX: 6, MaxY: 1}, 0, []string{"near"}},
		{"degenerate item", geom.Bounds{MinX: 1.9, MinY: 1.9, MaxX: 2.1, MaxY: 2.1}, 0, []string{"point"}},
		{"empty area", geom.Bounds{MinX: 20, MinY: 20, MaxX: 21, MaxY: 21}, 1, nil},
		{"huge query", geom.Bounds{MinX: -1e6, MinY: -1e6, MaxX: 1e6, MaxY: 1e6}, 0, []string{"long", "near", "far", "point"}},
	}

	for backend, mk := range backends(t) {
		idx := mk()
		for _, f := range fixtures {
			idx.Insert(f, f.bounds)
		}
		for _, tt := range tests {
			t.Run(backend+"/"+tt.name, func(t *testing.T) {
				got := names(idx.Query(tt.bounds, tt.margin))
				if !slices.Equal(got, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
			})
		}
	}
}

func TestRemove(t *testing.T) {
	for backend, mk := range backends(t) {
		t.Run(backend, func(t *testing.T) {
			idx := mk()
			a := idx.Insert(item{name: "a"}, geom.Bounds{MaxX: 1, MaxY: 1})
			idx.Insert(item{name: "b"}, geom.Bounds{MaxX: 1, MaxY: 1})

			if !idx.Remove(a) {
				t.Fatal("expected Remove to succeed")
			}
			if idx.Remove(a) {
				t.Error("second Remove of the same id should fail")
			}
			if idx.Len() != 1 {
				t.Errorf("expected 1 item, got %d", idx.Len())
			}
			got := names(idx.Query(geom.Bounds{MaxX: 1, MaxY: 1}, 0))
			if !slices.Equal(got, []string{"b"}) {
				t.Errorf("expected [b], got %v", got)
			}
		})
	}
}

// Every item within margin of the query box must be returned, and both
// backends must agree.
func TestSoundnessAndEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	randBounds := func() geom.Bounds {
		x, y := rng.Float64()*20, rng.Float64()*20
		w, h := rng.Float64()*3, rng.Float64()*0.5
		if rng.Intn(2) == 0 {
			w, h = h, w
		}
		return geom.Bounds{MinX: x, MinY: y, MaxX: x + w, MaxY: y + h}
	}

	hash := NewHashIndex[item](0.4)
	tree := NewRTreeIndex[item]()
	var all []item
	for i := 0; i < 300; i++ {
		it := item{name: string(rune('A'+i%26)) + string(rune('0'+i/26)), bounds: randBounds()}
		all = append(all, it)
		hash.Insert(it, it.bounds)
		tree.Insert(it, it.bounds)
	}

	for i := 0; i < 100; i++ {
		q := randBounds()
		margin := rng.Float64()

		fromHash := names(hash.Query(q, margin))
		fromTree := names(tree.Query(q, margin))
		if !slices.Equal(fromHash, fromTree) {
			t.Fatalf("query %d: backends disagree\nhash:  %v\nrtree: %v", i, fromHash, fromTree)
		}

		expanded := q.Expand(margin)
		for _, it := range all {
			if it.bounds.Overlaps(expanded) && !slices.Contains(fromHash, it.name) {
				t.Errorf("query %d: missing %s", i, it.name)
			}
		}
	}
}

func TestNew(t *testing.T) {
	if _, err := New[int](BackendHash, 0); err != nil {
		t.Errorf("hash backend: %v", err)
	}
	if _, err := New[int](BackendRTree, 0); err != nil {
		t.Errorf("rtree backend: %v", err)
	}
	if _, err := New[int]("quadtree", 0); err == nil {
		t.Error("expected error for unknown backend")
	}
	if NewHashIndex[int](-1).CellSize() != DefaultCellSize {
		t.Error("non-positive cell size should select the default")
	}
}
