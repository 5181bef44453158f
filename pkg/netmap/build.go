package netmap

import (
	"fmt"
	"math"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/layout"
)

// endpointTolerance is the distance under which two route points coincide
const endpointTolerance = 0.001

// viaTolerance is the distance under which a via route point lands on a via
const viaTolerance = 0.01

// FromLayout derives the nets of a layout from its logical and physical
// records:
//   - source traces join their source ports and source nets
//   - pcb ports join their source port, pads join their pcb port
//   - pcb traces join their source trace and the ports named on their route
//   - vias join their owning trace and any trace routed through them
//   - traces whose end points coincide on a shared layer are joined
func FromLayout(l *layout.Layout) *Netlist {
	nl := NewNetlist()

	for _, n := range l.SourceNets() {
		nl.AddNet(n.SourceNetID)
	}
	for _, p := range l.SourcePorts() {
		nl.Add(p.SourcePortID)
	}
	for _, st := range l.SourceTraces() {
		nl.Add(st.SourceTraceID)
		nl.Connect(append([]string{st.SourceTraceID}, st.ConnectedSourcePortIDs...)...)
		nl.Connect(append([]string{st.SourceTraceID}, st.ConnectedSourceNetIDs...)...)
	}

	for _, p := range l.Ports() {
		nl.Add(p.PcbPortID)
		nl.Connect(p.PcbPortID, p.SourcePortID)
	}
	for _, pad := range l.SMTPads() {
		nl.Add(pad.PcbSMTPadID)
		nl.Connect(pad.PcbSMTPadID, pad.PcbPortID)
	}
	for _, ph := range l.PlatedHoles() {
		nl.Add(ph.PcbPlatedHoleID)
		nl.Connect(ph.PcbPlatedHoleID, ph.PcbPortID)
	}

	traces := l.Traces()
	for _, tr := range traces {
		nl.Add(tr.PcbTraceID)
		nl.Connect(tr.PcbTraceID, tr.SourceTraceID)
		for _, rp := range tr.Route {
			nl.Connect(tr.PcbTraceID, rp.StartPcbPortID, rp.EndPcbPortID)
		}
	}

	vias := l.Vias()
	for _, v := range vias {
		nl.Add(v.PcbViaID)
		nl.Connect(v.PcbViaID, v.PcbTraceID)
	}
	for _, tr := range traces {
		for _, rp := range tr.Route {
			if rp.RouteType != layout.RouteVia {
				continue
			}
			for _, v := range vias {
				if geom.PointsEqual(rp.Point(), geom.Pt(v.X, v.Y), viaTolerance) {
					nl.Connect(tr.PcbTraceID, v.PcbViaID)
				}
			}
		}
	}

	connectTouchingTraces(nl, traces)

	nl.Finalize()
	return nl
}

type endpoint struct {
	traceID string
	at      geom.Point
	layers  []string
}

func routeEndpoints(tr *layout.PcbTrace) []endpoint {
	if len(tr.Route) == 0 {
		return nil
	}
	ends := []layout.RoutePoint{tr.Route[0]}
	if len(tr.Route) > 1 {
		ends = append(ends, tr.Route[len(tr.Route)-1])
	}

	out := make([]endpoint, 0, len(ends))
	for _, rp := range ends {
		e := endpoint{traceID: tr.PcbTraceID, at: rp.Point()}
		if rp.RouteType == layout.RouteVia {
			e.layers = []string{rp.FromLayer, rp.ToLayer}
		} else {
			e.layers = []string{rp.Layer}
		}
		out = append(out, e)
	}
	return out
}

// connectTouchingTraces joins traces with coincident end points. End points
// are bucketed on a grid of endpointTolerance so only neighbours are compared.
func connectTouchingTraces(nl *Netlist, traces []*layout.PcbTrace) {
	type cell struct{ x, y int64 }
	key := func(p geom.Point) cell {
		return cell{int64(math.Floor(p.X / endpointTolerance)), int64(math.Floor(p.Y / endpointTolerance))}
	}

	buckets := make(map[cell][]endpoint)
	for _, tr := range traces {
		for _, e := range routeEndpoints(tr) {
			if !e.at.IsFinite() {
				continue
			}
			k := key(e.at)
			for dx := int64(-1); dx <= 1; dx++ {
				for dy := int64(-1); dy <= 1; dy++ {
					for _, other := range buckets[cell{k.x + dx, k.y + dy}] {
						if other.traceID == e.traceID {
							continue
						}
						if geom.PointsEqual(e.at, other.at, endpointTolerance) && shareLayer(e.layers, other.layers) {
							nl.Connect(e.traceID, other.traceID)
						}
					}
				}
			}
			buckets[k] = append(buckets[k], e)
		}
	}
}

func shareLayer(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x != "" && x == y {
				return true
			}
		}
	}
	return false
}

// String summarizes the netlist for debug output
func (nl *Netlist) String() string {
	return fmt.Sprintf("netlist{%d ids, %d nets}", len(nl.parent), nl.NetCount())
}
