package drc

import (
	"bytes"
	"context"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/collide"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/layout"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/netmap"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/spatial"
)

func wire(x, y float64) layout.RoutePoint {
	return layout.RoutePoint{RouteType: layout.RouteWire, X: x, Y: y, Layer: "top"}
}

func wireW(x, y, width float64) layout.RoutePoint {
	rp := wire(x, y)
	rp.Width = width
	return rp
}

func trace(id string, route ...layout.RoutePoint) *layout.PcbTrace {
	return &layout.PcbTrace{PcbTraceID: id, Route: route}
}

func newChecker(t *testing.T, l *layout.Layout, opts ...Option) *Checker {
	t.Helper()
	c, err := New(l, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func violationIDs(vs []Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.ID
	}
	return out
}

func TestTraceOverlapMarginBoundary(t *testing.T) {
	tests := []struct {
		name    string
		spacing float64
		want    int
	}{
		{"gap equals margin", 0.3, 0},
		{"gap below margin", 0.29, 1},
		{"well clear", 1.0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := layout.New(
				trace("t1", wireW(0, 0, 0.1), wireW(10, 0, 0.1)),
				trace("t2", wireW(0, tt.spacing, 0.1), wireW(10, tt.spacing, 0.1)),
			)
			cfg := DefaultConfig()
			cfg.TraceMargin = 0.2
			c := newChecker(t, l, WithConfig(cfg))

			vs, err := c.CheckTraceOverlap(context.Background())
			if err != nil {
				t.Fatalf("CheckTraceOverlap failed: %v", err)
			}
			if len(vs) != tt.want {
				t.Fatalf("expected %d violations, got %d: %v", tt.want, len(vs), violationIDs(vs))
			}
			if tt.want == 1 {
				v := vs[0]
				if v.ID != "overlap_t1_t2" {
					t.Errorf("expected id overlap_t1_t2, got %s", v.ID)
				}
				if math.Abs(v.ActualClearance-0.19) > 1e-9 {
					t.Errorf("expected clearance 0.19, got %v", v.ActualClearance)
				}
				if !strings.Contains(v.Message, "(gap: 0.190mm)") {
					t.Errorf("unexpected message %q", v.Message)
				}
			}
		})
	}
}

func TestViaScenarios(t *testing.T) {
	vias := func(shared bool) *layout.Layout {
		v1 := &layout.PcbVia{PcbViaID: "v1", X: 0, Y: 0, OuterDiameter: 0.6}
		v2 := &layout.PcbVia{PcbViaID: "v2", X: 0.7, Y: 0, OuterDiameter: 0.6}
		if !shared {
			return layout.New(v1, v2)
		}
		v1.PcbTraceID, v2.PcbTraceID = "t1", "t1"
		return layout.New(trace("t1", wire(0, 0), wire(0.7, 0)), v1, v2)
	}

	t.Run("different nets", func(t *testing.T) {
		c := newChecker(t, vias(false))
		vs, err := c.CheckDifferentNetViaSpacing(context.Background())
		if err != nil {
			t.Fatalf("check failed: %v", err)
		}
		if len(vs) != 1 {
			t.Fatalf("expected 1 violation, got %d", len(vs))
		}
		if vs[0].ID != "pcb_error_via_clearance_different_net_v1_v2" {
			t.Errorf("unexpected id %s", vs[0].ID)
		}
		if math.Abs(vs[0].ActualClearance-0.1) > 1e-9 {
			t.Errorf("expected clearance 0.1, got %v", vs[0].ActualClearance)
		}
		if vs[0].RequiredClearance != 0.3 {
			t.Errorf("expected required 0.3, got %v", vs[0].RequiredClearance)
		}
		want := "Different-net vias pcb_via[#v1] and pcb_via[#v2] must have at least 0.300mm clearance but currently have 0.100mm clearance."
		if vs[0].Message != want {
			t.Errorf("expected %q, got %q", want, vs[0].Message)
		}
	})

	t.Run("same net", func(t *testing.T) {
		c := newChecker(t, vias(true))
		vs, err := c.CheckDifferentNetViaSpacing(context.Background())
		if err != nil {
			t.Fatalf("check failed: %v", err)
		}
		if len(vs) != 0 {
			t.Errorf("expected no different-net violations, got %v", violationIDs(vs))
		}

		vs, err = c.CheckSameNetViaSpacing(context.Background())
		if err != nil {
			t.Fatalf("check failed: %v", err)
		}
		if len(vs) != 1 || vs[0].ID != "pcb_error_via_clearance_same_net_v1_v2" {
			t.Errorf("expected one same-net violation, got %v", violationIDs(vs))
		}
	})
}

func TestTraceThroughPad(t *testing.T) {
	l := layout.New(
		trace("t1", wire(0, 0), wire(1, 1)),
		&layout.PcbSMTPad{PcbSMTPadID: "pad1", Shape: "rect", X: 0.5, Y: 0.5, Width: 0.2, Height: 0.2, Layer: "top"},
	)
	cfg := DefaultConfig()
	cfg.TraceMargin = 0
	c := newChecker(t, l, WithConfig(cfg))

	vs, err := c.CheckTraceOverlap(context.Background())
	if err != nil {
		t.Fatalf("CheckTraceOverlap failed: %v", err)
	}
	if len(vs) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(vs))
	}
	if vs[0].ID != "overlap_pad1_t1" {
		t.Errorf("unexpected id %s", vs[0].ID)
	}
	if !strings.HasSuffix(vs[0].Message, "(accidental contact)") {
		t.Errorf("expected contact wording, got %q", vs[0].Message)
	}
	if vs[0].ActualClearance >= 0 {
		t.Errorf("expected negative clearance, got %v", vs[0].ActualClearance)
	}
}

func TestTraceFarFromEverything(t *testing.T) {
	l := layout.New(
		trace("t1", wire(100, 100), wire(101, 100)),
		trace("t2", wire(0, 0), wire(1, 0)),
		&layout.PcbVia{PcbViaID: "v1", X: 5, Y: 5, OuterDiameter: 0.6},
	)
	c := newChecker(t, l)
	vs, err := c.CheckTraceOverlap(context.Background())
	if err != nil {
		t.Fatalf("CheckTraceOverlap failed: %v", err)
	}
	if len(vs) != 0 {
		t.Errorf("expected no violations, got %v", violationIDs(vs))
	}
}

func TestTraceOverlapSymmetry(t *testing.T) {
	t1 := trace("t1", wire(0, 0), wire(2, 0))
	t2 := trace("t2", wire(1, -1), wire(1, 1))

	for _, order := range [][]layout.Element{{t1, t2}, {t2, t1}} {
		c := newChecker(t, layout.New(order...))
		vs, err := c.CheckTraceOverlap(context.Background())
		if err != nil {
			t.Fatalf("CheckTraceOverlap failed: %v", err)
		}
		if len(vs) != 1 || vs[0].ID != "overlap_t1_t2" {
			t.Errorf("expected exactly overlap_t1_t2, got %v", violationIDs(vs))
		}
	}
}

func TestTraceOverlapMultiSegmentReportedOnce(t *testing.T) {
	l := layout.New(
		trace("t1", wire(0, 0), wire(1, 0), wire(2, 0), wire(3, 0)),
		trace("t2", wire(0, 0.1), wire(1, 0.1), wire(2, 0.1), wire(3, 0.1)),
	)
	c := newChecker(t, l)
	vs, err := c.CheckTraceOverlap(context.Background())
	if err != nil {
		t.Fatalf("CheckTraceOverlap failed: %v", err)
	}
	if len(vs) != 1 {
		t.Errorf("expected one violation for the pair, got %v", violationIDs(vs))
	}
}

func TestConnectivitySuppression(t *testing.T) {
	crossing := func() []layout.Element {
		t1 := trace("t1", wire(0, 0), wire(2, 0))
		t2 := trace("t2", wire(1, -1), wire(1, 1))
		t1.SourceTraceID, t2.SourceTraceID = "st1", "st1"
		return []layout.Element{
			&layout.SourceTrace{SourceTraceID: "st1"},
			t1, t2,
			&layout.PcbVia{PcbViaID: "v1", PcbTraceID: "t1", X: 0.5, Y: 0, OuterDiameter: 0.6},
		}
	}

	t.Run("derived", func(t *testing.T) {
		c := newChecker(t, layout.New(crossing()...))
		vs, err := c.CheckTraceOverlap(context.Background())
		if err != nil {
			t.Fatalf("CheckTraceOverlap failed: %v", err)
		}
		if len(vs) != 0 {
			t.Errorf("expected connected copper to be exempt, got %v", violationIDs(vs))
		}
	})

	t.Run("injected", func(t *testing.T) {
		nl := netmap.NewNetlist()
		nl.Connect("t1", "t2")
		l := layout.New(
			trace("t1", wire(0, 0), wire(2, 0)),
			trace("t2", wire(1, -1), wire(1, 1)),
		)
		c := newChecker(t, l, WithConnectivity(nl))
		vs, err := c.CheckTraceOverlap(context.Background())
		if err != nil {
			t.Fatalf("CheckTraceOverlap failed: %v", err)
		}
		if len(vs) != 0 {
			t.Errorf("expected injected connectivity to be honoured, got %v", violationIDs(vs))
		}
	})
}

func TestTraceEndingOnForeignVia(t *testing.T) {
	tests := []struct {
		name  string
		owner string
		want  int
	}{
		{"via of another net", "tB", 1},
		{"via of the same trace", "tA", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tA := trace("tA", wire(-2, 0), wire(0, 0))
			tB := trace("tB", wire(5, 5), wire(7, 5))
			tA.SourceTraceID, tB.SourceTraceID = "sA", "sB"
			l := layout.New(
				&layout.SourceTrace{SourceTraceID: "sA"},
				&layout.SourceTrace{SourceTraceID: "sB"},
				tA, tB,
				&layout.PcbVia{PcbViaID: "vB", PcbTraceID: tt.owner, X: 0, Y: 0, OuterDiameter: 0.6},
			)
			c := newChecker(t, l)
			vs, err := c.CheckTraceOverlap(context.Background())
			if err != nil {
				t.Fatalf("CheckTraceOverlap failed: %v", err)
			}
			if len(vs) != tt.want {
				t.Fatalf("expected %d violations, got %v", tt.want, violationIDs(vs))
			}
			if tt.want == 1 && !strings.Contains(vs[0].Message, "(accidental contact)") {
				t.Errorf("expected accidental contact, got %q", vs[0].Message)
			}
		})
	}
}

func TestPadExemptions(t *testing.T) {
	pad := &layout.PcbSMTPad{PcbSMTPadID: "pad1", PcbPortID: "pp1", Shape: "rect", X: 1, Y: 0.1, Width: 0.1, Height: 0.1, Layer: "top"}
	empty := WithConnectivity(netmap.NewNetlist())

	tests := []struct {
		name  string
		route []layout.RoutePoint
		want  int
	}{
		{"unrelated", []layout.RoutePoint{wire(0, 0), wire(2, 0)}, 1},
		{"explicit port id", func() []layout.RoutePoint {
			r := []layout.RoutePoint{wire(0, 0), wire(2, 0)}
			r[0].StartPcbPortID = "pp1"
			return r
		}(), 0},
		{"ends inside pad", []layout.RoutePoint{wire(0, 0.1), wire(1, 0.1)}, 0},
		{"other layer", []layout.RoutePoint{
			{RouteType: layout.RouteWire, X: 0, Y: 0, Layer: "bottom"},
			{RouteType: layout.RouteWire, X: 2, Y: 0, Layer: "bottom"},
		}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newChecker(t, layout.New(trace("t1", tt.route...), pad), empty)
			vs, err := c.CheckTraceOverlap(context.Background())
			if err != nil {
				t.Fatalf("CheckTraceOverlap failed: %v", err)
			}
			if len(vs) != tt.want {
				t.Errorf("expected %d violations, got %v", tt.want, violationIDs(vs))
			}
		})
	}
}

func TestTraceOverlapObstacleMessage(t *testing.T) {
	l := layout.New(
		trace("t1", wire(0, 0), wire(2, 0)),
		&layout.PcbVia{PcbViaID: "v1", X: 1, Y: 0.45, OuterDiameter: 0.6},
	)
	c := newChecker(t, l)
	vs, err := c.CheckTraceOverlap(context.Background())
	if err != nil {
		t.Fatalf("CheckTraceOverlap failed: %v", err)
	}
	if len(vs) != 1 {
		t.Fatalf("expected 1 violation, got %v", violationIDs(vs))
	}
	want := `PCB trace trace[#t1] overlaps with pcb_via "pcb_via[#v1]" (gap: 0.075mm)`
	if vs[0].Message != want {
		t.Errorf("expected %q, got %q", want, vs[0].Message)
	}
}

func TestShapeError(t *testing.T) {
	l := layout.New(
		trace("t1", wire(0, 0), wire(1, 0)),
		&layout.PcbSMTPad{PcbSMTPadID: "pad1", Shape: "hexagon"},
	)
	c := newChecker(t, l)
	_, err := c.CheckTraceOverlap(context.Background())
	var shapeErr *collide.ShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected ShapeError, got %v", err)
	}
	if shapeErr.ID != "pad1" {
		t.Errorf("expected pad1, got %s", shapeErr.ID)
	}
}

// randomLayout builds a dense board with many near misses
func randomLayout(seed int64) *layout.Layout {
	rng := rand.New(rand.NewSource(seed))
	layers := []string{"top", "bottom"}
	var elems []layout.Element

	for i := range 60 {
		layer := layers[rng.Intn(2)]
		var route []layout.RoutePoint
		for range 2 + rng.Intn(3) {
			route = append(route, layout.RoutePoint{
				RouteType: layout.RouteWire,
				X:         rng.Float64() * 10,
				Y:         rng.Float64() * 10,
				Width:     0.1 + rng.Float64()*0.2,
				Layer:     layer,
			})
		}
		tr := trace("t"+string(rune('a'+i/26))+string(rune('a'+i%26)), route...)
		if i%7 == 0 {
			tr.SourceTraceID = "st1"
		}
		elems = append(elems, tr)
	}
	elems = append(elems, &layout.SourceTrace{SourceTraceID: "st1"})

	for i := range 20 {
		elems = append(elems, &layout.PcbVia{
			PcbViaID:      "v" + string(rune('a'+i)),
			X:             rng.Float64() * 10,
			Y:             rng.Float64() * 10,
			OuterDiameter: 0.6,
		})
		elems = append(elems, &layout.PcbSMTPad{
			PcbSMTPadID: "p" + string(rune('a'+i)),
			Shape:       "rect",
			X:           rng.Float64() * 10,
			Y:           rng.Float64() * 10,
			Width:       0.5,
			Height:      0.3,
			Layer:       layers[i%2],
		})
	}
	return layout.New(elems...)
}

func TestMarginMonotonicity(t *testing.T) {
	l := randomLayout(1)
	var previous []string

	for _, margin := range []float64{0, 0.05, 0.1, 0.2, 0.5} {
		cfg := DefaultConfig()
		cfg.TraceMargin = margin
		c := newChecker(t, l, WithConfig(cfg))
		vs, err := c.CheckTraceOverlap(context.Background())
		if err != nil {
			t.Fatalf("CheckTraceOverlap failed: %v", err)
		}
		ids := violationIDs(vs)
		for _, id := range previous {
			if !slices.Contains(ids, id) {
				t.Errorf("margin %v dropped violation %s", margin, id)
			}
		}
		previous = ids
	}
	if len(previous) == 0 {
		t.Error("expected the random board to produce violations")
	}
}

func TestIdempotent(t *testing.T) {
	c := newChecker(t, randomLayout(2))
	first, err := c.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	second, err := c.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("expected identical results on repeated runs")
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	l := randomLayout(3)

	run := func(workers int, backend spatial.Backend) []Violation {
		cfg := DefaultConfig()
		cfg.Workers = workers
		cfg.Index = backend
		c := newChecker(t, l, WithConfig(cfg))
		vs, err := c.RunAll(context.Background())
		if err != nil {
			t.Fatalf("RunAll failed: %v", err)
		}
		return vs
	}

	serial := run(1, spatial.BackendHash)
	if len(serial) == 0 {
		t.Fatal("expected violations on the random board")
	}

	tests := []struct {
		name    string
		workers int
		backend spatial.Backend
	}{
		{"parallel hash", 4, spatial.BackendHash},
		{"serial rtree", 1, spatial.BackendRTree},
		{"parallel rtree", 8, spatial.BackendRTree},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(tt.workers, tt.backend); !reflect.DeepEqual(serial, got) {
				t.Errorf("expected %v, got %v", violationIDs(serial), violationIDs(got))
			}
		})
	}
}

func TestInputNotMutated(t *testing.T) {
	l := randomLayout(4)
	extra := []layout.Element{
		&layout.PcbPort{PcbPortID: "pp1", X: 20, Y: 20},
		trace("tz", wire(20, 20), wire(21, 20)),
	}
	l = layout.New(append(l.Elements, extra...)...)

	var before, after bytes.Buffer
	if err := layout.Encode(&before, l); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	c := newChecker(t, l)
	if _, err := c.RunAll(context.Background()); err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	AugmentTraces(l, c.PortIDs())

	if err := layout.Encode(&after, l); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(before.Bytes(), after.Bytes()) {
		t.Error("layout changed while checking")
	}
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		cfg := DefaultConfig()
		cfg.Workers = workers
		c := newChecker(t, randomLayout(5), WithConfig(cfg))
		if _, err := c.CheckTraceOverlap(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: expected context.Canceled, got %v", workers, err)
		}
		if _, err := c.RunAll(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: expected RunAll to stop, got %v", workers, err)
		}
	}
}

func TestEmptyLayout(t *testing.T) {
	c := newChecker(t, nil)
	vs, err := c.RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	if vs == nil || len(vs) != 0 {
		t.Errorf("expected an empty, non-nil result, got %v", vs)
	}
}
