package layout

import (
	"bytes"
	"strings"
	"testing"
)

const sampleLayout = `[
  {"type": "source_trace", "source_trace_id": "source_trace_0", "connected_source_port_ids": ["source_port_0", "source_port_1"]},
  {"type": "pcb_board", "pcb_board_id": "pcb_board_0", "center": {"x": 0, "y": 0}, "width": 20, "height": 10},
  {"type": "pcb_trace", "pcb_trace_id": "pcb_trace_0", "source_trace_id": "source_trace_0", "route": [
    {"route_type": "wire", "x": 0, "y": 0, "width": 0.2, "layer": "top", "start_pcb_port_id": "pcb_port_0"},
    {"route_type": "via", "x": 1, "y": 0, "from_layer": "top", "to_layer": "bottom"},
    {"route_type": "wire", "x": 1, "y": 0, "width": 0.2, "layer": "bottom"}
  ]},
  {"type": "pcb_via", "pcb_via_id": "pcb_via_0", "x": 1, "y": 0, "outer_diameter": 0.6, "hole_diameter": 0.3, "layers": ["top", "bottom"]},
  {"type": "pcb_smtpad", "pcb_smtpad_id": "pcb_smtpad_0", "shape": "rect", "x": 3, "y": 0, "width": 1, "height": 0.5, "layer": "top"},
  {"type": "schematic_box", "schematic_box_id": "ignored"},
  {"type": "pcb_port", "pcb_port_id": "pcb_port_0", "source_port_id": "source_port_0", "x": 0, "y": 0}
]`

func TestDecode(t *testing.T) {
	l, err := Decode(strings.NewReader(sampleLayout))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if l.Len() != 6 {
		t.Errorf("expected 6 records (unknown type skipped), got %d", l.Len())
	}

	traces := l.Traces()
	if len(traces) != 1 {
		t.Fatalf("expected 1 trace, got %d", len(traces))
	}
	route := traces[0].Route
	if len(route) != 3 {
		t.Fatalf("expected 3 route points, got %d", len(route))
	}
	if route[0].StartPcbPortID != "pcb_port_0" {
		t.Errorf("expected start port pcb_port_0, got %q", route[0].StartPcbPortID)
	}
	if route[1].RouteType != RouteVia || route[1].ToLayer != "bottom" {
		t.Errorf("unexpected via point %+v", route[1])
	}

	if vias := l.Vias(); len(vias) != 1 || vias[0].OuterDiameter != 0.6 {
		t.Errorf("unexpected vias %+v", vias)
	}

	board, ok := l.Board()
	if !ok || board.Width != 20 {
		t.Errorf("expected board of width 20, got %+v", board)
	}

	if p, ok := l.Port("pcb_port_0"); !ok || p.SourcePortID != "source_port_0" {
		t.Errorf("port lookup failed: %+v", p)
	}
	if _, ok := l.Port("pcb_smtpad_0"); ok {
		t.Error("lookup of a pad id should not yield a port")
	}
}

func TestDecodeInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "not json"},
		{"object instead of array", `{"type": "pcb_via"}`},
		{"bad field type", `[{"type": "pcb_via", "x": "one"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	l, err := Decode(strings.NewReader(sampleLayout))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, l); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"type": "pcb_smtpad"`) {
		t.Errorf("encoded output lacks type discriminant:\n%s", buf.String())
	}

	again, err := Decode(&buf)
	if err != nil {
		t.Fatalf("re-decode failed: %v", err)
	}
	if again.Len() != l.Len() {
		t.Errorf("expected %d records after round trip, got %d", l.Len(), again.Len())
	}
}

func TestAllLayers(t *testing.T) {
	layers := AllLayers()
	if len(layers) != 8 || layers[0] != "top" || layers[7] != "bottom" {
		t.Errorf("unexpected layers %v", layers)
	}
	layers[0] = "changed"
	if Layers[0] != "top" {
		t.Error("AllLayers must return a copy")
	}
}
