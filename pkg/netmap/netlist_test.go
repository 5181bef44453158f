package netmap

import (
	"slices"
	"testing"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/layout"
)

var _ Map = (*Netlist)(nil)

func TestConnect(t *testing.T) {
	nl := NewNetlist()
	nl.Add("a", "b", "c", "d")

	nl.Connect("a", "b")
	if !nl.AreIDsConnected("a", "b") {
		t.Error("a and b should be connected after Connect")
	}
	if nl.AreIDsConnected("a", "c") {
		t.Error("c should still be separate")
	}

	// Transitive: a-b-c
	nl.Connect("b", "c")
	if !nl.AreAllIDsConnected("a", "b", "c") {
		t.Error("all of a, b and c should be connected")
	}
	if nl.AreAllIDsConnected("a", "b", "d") {
		t.Error("d is isolated")
	}

	if got := nl.NetCount(); got != 2 {
		t.Errorf("expected 2 nets, got %d", got)
	}
}

func TestAreIDsConnectedEdgeCases(t *testing.T) {
	nl := NewNetlist()
	nl.Connect("a", "b")

	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"same id", "x", "x", true},
		{"unknown ids", "x", "y", false},
		{"one unknown", "a", "y", false},
		{"empty id", "", "a", false},
		{"known pair", "b", "a", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nl.AreIDsConnected(tt.a, tt.b); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	if !nl.AreAllIDsConnected() || !nl.AreAllIDsConnected("a") {
		t.Error("fewer than two ids are trivially connected")
	}
}

func TestNetForID(t *testing.T) {
	nl := NewNetlist()
	nl.AddNet("net_gnd")
	nl.Connect("pad_2", "pad_1", "net_gnd")
	nl.Connect("pad_9", "pad_8")
	nl.Finalize()

	if net, ok := nl.NetForID("pad_1"); !ok || net != "net_gnd" {
		t.Errorf("expected net_gnd, got %q (%v)", net, ok)
	}
	if net, ok := nl.NetForID("pad_9"); !ok || net != "pad_8" {
		t.Errorf("expected unnamed net to use smallest member pad_8, got %q", net)
	}
	if _, ok := nl.NetForID("missing"); ok {
		t.Error("unknown id should have no net")
	}

	ids := nl.IDsOnNet("net_gnd")
	if !slices.Equal(ids, []string{"net_gnd", "pad_1", "pad_2"}) {
		t.Errorf("unexpected members %v", ids)
	}
	ids[0] = "mutated"
	if nl.IDsOnNet("net_gnd")[0] != "net_gnd" {
		t.Error("IDsOnNet must return a copy")
	}
}

func TestFromLayout(t *testing.T) {
	l := layout.New(
		&layout.SourceNet{SourceNetID: "net_vcc"},
		&layout.SourcePort{SourcePortID: "sp1"},
		&layout.SourcePort{SourcePortID: "sp2"},
		&layout.SourceTrace{SourceTraceID: "st1", ConnectedSourcePortIDs: []string{"sp1", "sp2"}, ConnectedSourceNetIDs: []string{"net_vcc"}},
		&layout.PcbPort{PcbPortID: "pp1", SourcePortID: "sp1"},
		&layout.PcbPort{PcbPortID: "pp2", SourcePortID: "sp2"},
		&layout.PcbSMTPad{PcbSMTPadID: "pad1", PcbPortID: "pp1", Shape: "rect"},
		&layout.PcbSMTPad{PcbSMTPadID: "pad3", Shape: "rect"},
		&layout.PcbTrace{PcbTraceID: "t1", SourceTraceID: "st1", Route: []layout.RoutePoint{
			{RouteType: "wire", X: 0, Y: 0, Layer: "top"},
			{RouteType: "wire", X: 1, Y: 0, Layer: "top"},
		}},
		&layout.PcbTrace{PcbTraceID: "t2", Route: []layout.RoutePoint{
			{RouteType: "wire", X: 1, Y: 0, Layer: "top"},
			{RouteType: "via", X: 2, Y: 0, FromLayer: "top", ToLayer: "bottom"},
		}},
		&layout.PcbTrace{PcbTraceID: "t3", Route: []layout.RoutePoint{
			{RouteType: "wire", X: 1, Y: 0, Layer: "bottom"},
			{RouteType: "wire", X: 1, Y: 5, Layer: "bottom"},
		}},
		&layout.PcbVia{PcbViaID: "v1", X: 2, Y: 0, OuterDiameter: 0.6},
		&layout.PcbVia{PcbViaID: "v2", X: 9, Y: 9, OuterDiameter: 0.6},
	)

	nl := FromLayout(l)

	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"pad through port to source trace", "pad1", "st1", true},
		{"pad to other port", "pad1", "pp2", true},
		{"trace to net", "t1", "net_vcc", true},
		{"touching endpoints on same layer", "t1", "t2", true},
		{"via routed through", "t2", "v1", true},
		{"touching endpoint on other layer", "t1", "t3", false},
		{"unrelated pad", "pad3", "t1", false},
		{"unrelated via", "v2", "t1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nl.AreIDsConnected(tt.a, tt.b); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	if net, _ := nl.NetForID("pad1"); net != "net_vcc" {
		t.Errorf("expected pad1 on net_vcc, got %q", net)
	}
}
