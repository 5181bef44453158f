package drc

import (
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/collide"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/layout"
)

// portSnapDistance is how close a route end must be to a port to adopt it
const portSnapDistance = 0.01

// RouteEnd selects the first or last point of a route
type RouteEnd int

const (
	RouteStart RouteEnd = iota
	RouteFinish
)

func (e RouteEnd) String() string {
	if e == RouteStart {
		return "start"
	}
	return "end"
}

// PortKey identifies one end of one trace route
type PortKey struct {
	TraceID string
	Index   int
	End     RouteEnd
}

// PortIDTable maps route ends that carry no port id to the port they land on
type PortIDTable map[PortKey]string

// InferPortIDs finds the port under the first and last wire point of every
// route that does not name one. A port within 0.01mm wins; otherwise the
// port of an SMT pad covering the point (rectangular pads grown by half the
// trace width) is used. The layout is not modified.
func InferPortIDs(l *layout.Layout, defaultThickness float64) PortIDTable {
	table := make(PortIDTable)
	ports := l.Ports()

	var pads []*collide.Pad
	for _, rec := range l.SMTPads() {
		if rec.PcbPortID == "" {
			continue
		}
		pad, err := collide.NewPad(rec)
		if err != nil {
			continue
		}
		pads = append(pads, pad)
	}

	for _, tr := range l.Traces() {
		n := len(tr.Route)
		if n == 0 {
			continue
		}
		ends := []struct {
			index int
			end   RouteEnd
			id    string
		}{
			{0, RouteStart, tr.Route[0].StartPcbPortID},
			{n - 1, RouteFinish, tr.Route[n-1].EndPcbPortID},
		}

		for _, e := range ends {
			rp := tr.Route[e.index]
			if rp.RouteType != layout.RouteWire || e.id != "" {
				continue
			}
			width := rp.Width
			if width <= 0 {
				width = defaultThickness
			}
			if id := findPort(rp.Point(), width, ports, pads); id != "" {
				table[PortKey{TraceID: tr.PcbTraceID, Index: e.index, End: e.end}] = id
			}
		}
	}
	return table
}

func findPort(p geom.Point, width float64, ports []*layout.PcbPort, pads []*collide.Pad) string {
	for _, port := range ports {
		if p.Distance(geom.Pt(port.X, port.Y)) < portSnapDistance {
			return port.PcbPortID
		}
	}
	for _, pad := range pads {
		margin := width / 2
		if pad.Shape == collide.PadCircle {
			margin = 0
		}
		if pad.ContainsWithMargin(p, margin) {
			return pad.PortID
		}
	}
	return ""
}

// Lookup returns the inferred port of one end of a trace
func (t PortIDTable) Lookup(tr *layout.PcbTrace, end RouteEnd) (string, bool) {
	if len(tr.Route) == 0 {
		return "", false
	}
	index := 0
	if end == RouteFinish {
		index = len(tr.Route) - 1
	}
	id, ok := t[PortKey{TraceID: tr.PcbTraceID, Index: index, End: end}]
	return id, ok
}

// PortIDs returns every port a route names explicitly, followed by the
// ports inferred for its ends
func (t PortIDTable) PortIDs(tr *layout.PcbTrace) []string {
	var ids []string
	for _, rp := range tr.Route {
		if rp.StartPcbPortID != "" {
			ids = append(ids, rp.StartPcbPortID)
		}
		if rp.EndPcbPortID != "" {
			ids = append(ids, rp.EndPcbPortID)
		}
	}
	for _, end := range []RouteEnd{RouteStart, RouteFinish} {
		if id, ok := t.Lookup(tr, end); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// EndPortID returns the explicit or inferred port at one end of a route
func (t PortIDTable) EndPortID(tr *layout.PcbTrace, end RouteEnd) string {
	if len(tr.Route) == 0 {
		return ""
	}
	if end == RouteStart && tr.Route[0].StartPcbPortID != "" {
		return tr.Route[0].StartPcbPortID
	}
	if end == RouteFinish && tr.Route[len(tr.Route)-1].EndPcbPortID != "" {
		return tr.Route[len(tr.Route)-1].EndPcbPortID
	}
	id, _ := t.Lookup(tr, end)
	return id
}

// AugmentTraces returns copies of the layout's traces with inferred port ids
// filled in. The originals are left untouched.
func AugmentTraces(l *layout.Layout, t PortIDTable) []*layout.PcbTrace {
	traces := l.Traces()
	out := make([]*layout.PcbTrace, len(traces))
	for i, tr := range traces {
		cp := *tr
		cp.Route = make([]layout.RoutePoint, len(tr.Route))
		copy(cp.Route, tr.Route)

		if id, ok := t.Lookup(tr, RouteStart); ok {
			cp.Route[0].StartPcbPortID = id
		}
		if id, ok := t.Lookup(tr, RouteFinish); ok {
			cp.Route[len(cp.Route)-1].EndPcbPortID = id
		}
		out[i] = &cp
	}
	return out
}
