package pcb

import (
	"context"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/drc"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/layout"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/names"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/netmap"
)

const testBoard = `(kicad_pcb (version 20221018) (generator pcbnew)
  (layers (0 "F.Cu" signal) (31 "B.Cu" signal) (44 "Edge.Cuts" user))
  (net 0 "")
  (net 1 "GND")
  (net 2 "VCC")
  (footprint "Resistor_SMD:R_0603" (layer "F.Cu") (at 10 10 90)
    (property "Reference" "R1")
    (property "Value" "10k")
    (pad "1" smd roundrect (at -0.8 0 90) (size 0.8 0.9) (layers "F.Cu" "F.Paste" "F.Mask") (net 1 "GND"))
    (pad "2" smd roundrect (at 0.8 0 90) (size 0.8 0.9) (layers "F.Cu" "F.Paste" "F.Mask") (net 2 "VCC")))
  (footprint "Connector:Pins" (layer "F.Cu") (at 20 10)
    (property "Reference" "J1")
    (fp_line (start -1 -1.5) (end 3.5 -1.5) (layer "F.CrtYd"))
    (fp_line (start -1 7) (end 3.5 7) (layer "F.CrtYd"))
    (pad "1" thru_hole circle (at 0 0) (size 1.7 1.7) (drill 1) (layers "*.Cu" "*.Mask") (net 1 "GND"))
    (pad "2" thru_hole oval (at 2.54 0) (size 1.7 2) (drill oval 0.8 1.2) (layers "*.Cu" "*.Mask") (net 2 "VCC"))
    (pad "" np_thru_hole circle (at 0 5) (size 3 3) (drill 3) (layers "*.Cu" "*.Mask")))
  (gr_line (start 0 0) (end 30 0) (layer "Edge.Cuts") (width 0.1))
  (gr_line (start 30 0) (end 30 20) (layer "Edge.Cuts") (width 0.1))
  (gr_line (start 0 20) (end 30 20) (layer "Edge.Cuts") (width 0.1))
  (gr_line (start 0 20) (end 0 0) (layer "Edge.Cuts") (width 0.1))
  (gr_line (start 5 5) (end 6 6) (layer "F.SilkS") (width 0.1))
  (segment (start 10 10.8) (end 20 10) (width 0.25) (layer "F.Cu") (net 1))
  (arc (start 10 9.2) (mid 16 8) (end 22.54 10) (width 0.25) (layer "F.Cu") (net 2))
  (via (at 25 5) (size 0.6) (drill 0.3) (layers "F.Cu" "B.Cu") (net 1))
  (zone (net 0) (net_name "") (layers "F.Cu" "B.Cu")
    (keepout (tracks not_allowed) (vias not_allowed) (copperpour allowed))
    (polygon (pts (xy 1 1) (xy 3 1) (xy 3 2) (xy 1 2))))
)`

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestParseBoard(t *testing.T) {
	b, err := Parse(strings.NewReader(testBoard))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if b.Version != 20221018 || b.Generator != "pcbnew" {
		t.Errorf("unexpected header %d %q", b.Version, b.Generator)
	}
	if !slices.Equal(b.CopperLayers, []string{"F.Cu", "B.Cu"}) {
		t.Errorf("unexpected copper layers %v", b.CopperLayers)
	}
	if len(b.Nets) != 3 || b.NetName(2) != "VCC" {
		t.Errorf("unexpected nets %v", b.Nets)
	}
	if len(b.Tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(b.Tracks))
	}
	if b.Tracks[0].Mid != nil || b.Tracks[1].Mid == nil {
		t.Error("only the arc should carry a midpoint")
	}
	if b.Tracks[0].Width != 0.25 || b.Tracks[0].Layer != "F.Cu" || b.Tracks[0].Net != 1 {
		t.Errorf("unexpected track %+v", b.Tracks[0])
	}
	if len(b.Vias) != 1 || b.Vias[0].Size != 0.6 || b.Vias[0].Drill != 0.3 {
		t.Errorf("unexpected vias %+v", b.Vias)
	}
	if len(b.Edges) != 4 {
		t.Errorf("expected 4 board edges, got %d", len(b.Edges))
	}
	if len(b.Keepouts) != 1 || len(b.Keepouts[0].Outline) != 4 {
		t.Errorf("unexpected keepouts %+v", b.Keepouts)
	}

	if len(b.Footprints) != 2 {
		t.Fatalf("expected 2 footprints, got %d", len(b.Footprints))
	}
	r1 := b.Footprints[0]
	if r1.Reference != "R1" || r1.Value != "10k" || r1.Angle != 90 || r1.Library != "Resistor_SMD:R_0603" {
		t.Errorf("unexpected footprint %+v", r1)
	}
	j1 := b.Footprints[1]
	if len(j1.Pads) != 3 || len(j1.Courtyard) != 2 {
		t.Fatalf("expected 3 pads and 2 courtyard lines, got %d and %d", len(j1.Pads), len(j1.Courtyard))
	}
	oval := j1.Pads[1]
	if !oval.DrillOval || oval.DrillWidth != 0.8 || oval.DrillHeight != 1.2 {
		t.Errorf("unexpected drill %+v", oval)
	}
	if j1.Pads[2].Type != PadNPThru || j1.Pads[2].Number != "" {
		t.Errorf("unexpected mounting hole %+v", j1.Pads[2])
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty file", "", "one top-level expression"},
		{"not a kicad_pcb file", "(kicad_sch (version 20211014))", "not a KiCad PCB file"},
		{"missing version", "(kicad_pcb (generator pcbnew))", "missing required 'version'"},
		{"old version", "(kicad_pcb (version 20171130))", "unsupported KiCad version"},
		{"invalid s-expression", "(kicad_pcb (version", "unclosed list"},
		{"segment without layer", "(kicad_pcb (version 20221018) (segment (start 0 0) (end 1 0)))", "missing required 'layer'"},
		{"bad coordinate", "(kicad_pcb (version 20221018) (via (at x 0)))", "failed to parse vias"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want error containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestCopperLayer(t *testing.T) {
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"F.Cu", "top", true},
		{"B.Cu", "bottom", true},
		{"In1.Cu", "inner1", true},
		{"In6.Cu", "inner6", true},
		{"In7.Cu", "", false},
		{"F.SilkS", "", false},
		{"Inx.Cu", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CopperLayer(tt.name)
			if got != tt.want || ok != tt.ok {
				t.Errorf("expected %q %v, got %q %v", tt.want, tt.ok, got, ok)
			}
		})
	}

	b := &Board{CopperLayers: []string{"F.Cu", "In1.Cu", "In2.Cu", "B.Cu"}}
	if got := b.copperLayers([]string{"*.Cu", "*.Mask"}); !slices.Equal(got, []string{"top", "inner1", "inner2", "bottom"}) {
		t.Errorf("unexpected wildcard expansion %v", got)
	}
	if got := b.viaLayers([]string{"F.Cu", "In1.Cu"}); !slices.Equal(got, []string{"top", "inner1"}) {
		t.Errorf("unexpected blind via span %v", got)
	}
	if got := b.viaLayers([]string{"F.Cu", "B.Cu"}); len(got) != 4 {
		t.Errorf("expected through via on 4 layers, got %v", got)
	}
}

func TestOutline(t *testing.T) {
	b := &Board{Edges: []Edge{
		{geom.Pt(0, 0), geom.Pt(10, 0)},
		{geom.Pt(10, 5), geom.Pt(10, 0)},
		{geom.Pt(10, 5), geom.Pt(0, 5)},
		{geom.Pt(0, 5), geom.Pt(0, 0)},
		// a small cutout
		{geom.Pt(2, 2), geom.Pt(3, 2)},
		{geom.Pt(3, 2), geom.Pt(2, 3)},
		{geom.Pt(2, 3), geom.Pt(2, 2)},
	}}

	outline, ok := b.Outline()
	if !ok {
		t.Fatal("expected a closed outline")
	}
	if len(outline) != 4 {
		t.Fatalf("expected the 4 corner outer loop, got %v", outline)
	}
	bb := geom.BoundsOfPoints(outline...)
	if bb.Width() != 10 || bb.Height() != 5 {
		t.Errorf("unexpected outline bounds %+v", bb)
	}

	open := &Board{Edges: []Edge{{geom.Pt(0, 0), geom.Pt(1, 0)}, {geom.Pt(1, 0), geom.Pt(1, 1)}}}
	if _, ok := open.Outline(); ok {
		t.Error("open edges must not form an outline")
	}
}

func TestOrientedSize(t *testing.T) {
	tests := []struct {
		angle float64
		w, h  float64
	}{
		{0, 2, 1},
		{90, 1, 2},
		{-90, 1, 2},
		{180, 2, 1},
		{270, 1, 2},
		{45, 3 / math.Sqrt2, 3 / math.Sqrt2},
	}

	for _, tt := range tests {
		w, h := orientedSize(2, 1, tt.angle)
		if !approx(w, tt.w) || !approx(h, tt.h) {
			t.Errorf("angle %v: expected %vx%v, got %vx%v", tt.angle, tt.w, tt.h, w, h)
		}
	}
	if !rightAngle(-270) || rightAngle(30) {
		t.Error("unexpected right angle classification")
	}
}

func TestLayout(t *testing.T) {
	l, err := Import(strings.NewReader(testBoard))
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}

	board, ok := l.Board()
	if !ok {
		t.Fatal("expected a board")
	}
	if board.Width != 30 || board.Height != 20 || board.Center != geom.Pt(15, 10) || len(board.Outline) != 4 {
		t.Errorf("unexpected board %+v", board)
	}

	e, ok := l.Lookup("pcb_smtpad_0_0")
	if !ok {
		t.Fatal("pad pcb_smtpad_0_0 missing")
	}
	pad := e.(*layout.PcbSMTPad)
	if !approx(pad.X, 10) || !approx(pad.Y, 10.8) {
		t.Errorf("expected pad at (10, 10.8), got (%v, %v)", pad.X, pad.Y)
	}
	if pad.Shape != "rect" || !approx(pad.Width, 0.9) || !approx(pad.Height, 0.8) || pad.Layer != "top" {
		t.Errorf("unexpected pad %+v", pad)
	}

	e, _ = l.Lookup("pcb_plated_hole_1_1")
	ph := e.(*layout.PcbPlatedHole)
	if ph.Shape != "pill" || ph.OuterWidth != 1.7 || ph.OuterHeight != 2 || ph.HoleHeight != 1.2 {
		t.Errorf("unexpected plated hole %+v", ph)
	}
	if !slices.Equal(ph.Layers, []string{"top", "bottom"}) {
		t.Errorf("unexpected plated hole layers %v", ph.Layers)
	}
	if _, ok := l.Lookup("pcb_hole_1_2"); !ok {
		t.Error("mounting hole missing")
	}
	if _, ok := l.Lookup("pcb_port_1_2"); ok {
		t.Error("mounting hole must not get a port")
	}

	comp, _ := l.Component("pcb_component_0")
	if !approx(comp.Width, 2.4) || !approx(comp.Height, 0.9) || comp.Rotation != -90 {
		t.Errorf("unexpected component %+v", comp)
	}
	j1, _ := l.Component("pcb_component_1")
	if j1.Width != 4.5 || j1.Height != 8.5 || !approx(j1.Center.Y, 12.75) {
		t.Errorf("expected courtyard sized component, got %+v", j1)
	}

	st, ok := l.SourceTrace("source_trace_1")
	if !ok {
		t.Fatal("source trace for GND missing")
	}
	if st.DisplayName != "GND" || !slices.Equal(st.ConnectedSourcePortIDs, []string{"source_port_0_0", "source_port_1_0"}) {
		t.Errorf("unexpected source trace %+v", st)
	}

	e, _ = l.Lookup("pcb_trace_1")
	if arc := e.(*layout.PcbTrace); len(arc.Route) != 3 || arc.SourceTraceID != "source_trace_2" {
		t.Errorf("unexpected arc trace %+v", arc)
	}
	e, _ = l.Lookup("pcb_via_0")
	if v := e.(*layout.PcbVia); v.PcbTraceID != "pcb_trace_0" || !slices.Equal(v.Layers, []string{"top", "bottom"}) {
		t.Errorf("unexpected via %+v", v)
	}
	e, _ = l.Lookup("pcb_keepout_0")
	if k := e.(*layout.PcbKeepout); k.Center != geom.Pt(2, 1.5) || k.Width != 2 || k.Height != 1 {
		t.Errorf("unexpected keepout %+v", k)
	}

	nl := netmap.FromLayout(l)
	if !nl.AreIDsConnected("pcb_trace_0", "pcb_smtpad_0_0") || !nl.AreIDsConnected("pcb_via_0", "pcb_plated_hole_1_0") {
		t.Error("GND elements should share a net")
	}
	if nl.AreIDsConnected("pcb_trace_0", "pcb_trace_1") {
		t.Error("GND and VCC must stay apart")
	}

	if got := names.FromLayout(l).ReadableName("pcb_smtpad_0_0"); got != "pcb_smtpad[.R1 > .pin1]" {
		t.Errorf("expected pcb_smtpad[.R1 > .pin1], got %q", got)
	}
}

func TestImportedLayoutChecks(t *testing.T) {
	l, err := Import(strings.NewReader(testBoard))
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	c, err := drc.New(l)
	if err != nil {
		t.Fatalf("drc.New() failed: %v", err)
	}
	if _, err := c.RunAll(context.Background()); err != nil {
		t.Fatalf("RunAll() failed: %v", err)
	}
}
