package drc

import (
	"context"
	"fmt"
	"slices"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/collide"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/layout"
)

// viaAlignTolerance is how far a via may sit from the wire points around it
const viaAlignTolerance = 0.001

// CheckTracesContiguous reports routes that do not form a continuous path
// between the pads of their source trace: vias that do not sit on their
// neighbouring wire points, expected pads neither end reaches, and for
// traces without expected pads, ends that reach no pad at all.
func (c *Checker) CheckTracesContiguous(ctx context.Context) ([]Violation, error) {
	set, err := c.extract(c.cfg.DefaultTraceThickness)
	if err != nil {
		return nil, fmt.Errorf("traces contiguous: %w", err)
	}

	padsByPort := make(map[string][]collide.Collidable)
	var allPads []collide.Collidable
	for _, p := range set.Pads {
		allPads = append(allPads, p)
		if p.PortID != "" {
			padsByPort[p.PortID] = append(padsByPort[p.PortID], p)
		}
	}
	for _, p := range set.Plated {
		allPads = append(allPads, p)
		if p.PortID != "" {
			padsByPort[p.PortID] = append(padsByPort[p.PortID], p)
		}
	}

	traces := c.layout.Traces()
	results, err := c.scan(ctx, len(traces), func(i int) []Violation {
		tr := traces[i]
		out := c.misalignedVias(tr)
		return append(out, c.missingConnections(tr, padsByPort, allPads)...)
	})
	if err != nil {
		return nil, err
	}
	return merge(results), nil
}

func (c *Checker) misalignedVias(tr *layout.PcbTrace) []Violation {
	var out []Violation
	for i, rp := range tr.Route {
		if rp.RouteType != layout.RouteVia {
			continue
		}
		misaligned := false
		for _, j := range []int{i - 1, i + 1} {
			if j < 0 || j >= len(tr.Route) || tr.Route[j].RouteType != layout.RouteWire {
				continue
			}
			if rp.Point().Distance(tr.Route[j].Point()) > viaAlignTolerance {
				misaligned = true
			}
		}
		if !misaligned {
			continue
		}
		out = append(out, Violation{
			Kind:           KindTrace,
			ID:             fmt.Sprintf("trace_via_misaligned_%s_%d", tr.PcbTraceID, i),
			Message:        fmt.Sprintf("Via in trace [%s] is misaligned at position {x: %g, y: %g}.", c.traceName(tr), rp.X, rp.Y),
			ParticipantIDs: []string{tr.PcbTraceID},
			Center:         rp.Point(),
		})
	}
	return out
}

// wireEnds returns the first and last wire points of a route
func wireEnds(tr *layout.PcbTrace) (first, last layout.RoutePoint, ok bool) {
	i := slices.IndexFunc(tr.Route, func(rp layout.RoutePoint) bool { return rp.RouteType == layout.RouteWire })
	if i < 0 {
		return first, last, false
	}
	j := len(tr.Route) - 1
	for tr.Route[j].RouteType != layout.RouteWire {
		j--
	}
	return tr.Route[i], tr.Route[j], true
}

// expectedPorts returns the pcb ports of the source ports a trace connects
func (c *Checker) expectedPorts(tr *layout.PcbTrace) []*layout.PcbPort {
	st, ok := c.layout.SourceTrace(tr.SourceTraceID)
	if !ok {
		return nil
	}
	var out []*layout.PcbPort
	for _, port := range c.layout.Ports() {
		if slices.Contains(st.ConnectedSourcePortIDs, port.SourcePortID) {
			out = append(out, port)
		}
	}
	return out
}

func (c *Checker) missingConnections(tr *layout.PcbTrace, padsByPort map[string][]collide.Collidable, allPads []collide.Collidable) []Violation {
	first, last, ok := wireEnds(tr)
	if !ok {
		return nil
	}
	ends := []geom.Point{first.Point(), last.Point()}
	inAny := func(p geom.Point, pads []collide.Collidable) bool {
		return slices.ContainsFunc(pads, func(pad collide.Collidable) bool { return collide.IsPointInPad(p, pad) })
	}

	var out []Violation
	expected := c.expectedPorts(tr)
	named := c.ports.PortIDs(tr)

	for _, port := range expected {
		pads := padsByPort[port.PcbPortID]
		if len(pads) == 0 || slices.Contains(named, port.PcbPortID) {
			continue
		}
		if inAny(ends[0], pads) || inAny(ends[1], pads) {
			continue
		}
		out = append(out, Violation{
			Kind: KindTrace,
			ID:   fmt.Sprintf("trace_missing_connection_%s_%s", tr.PcbTraceID, port.PcbPortID),
			Message: fmt.Sprintf("Trace [%s] is missing a connection to %s",
				c.traceName(tr), c.names.ReadableName(pads[0].ID())),
			ParticipantIDs: []string{tr.PcbTraceID, pads[0].ID()},
			Center:         collide.Position(pads[0]),
		})
	}
	if len(expected) > 0 {
		return out
	}

	for i, p := range ends {
		if inAny(p, allPads) {
			continue
		}
		end := RouteStart
		if i == 1 {
			end = RouteFinish
		}
		out = append(out, Violation{
			Kind:           KindTrace,
			ID:             fmt.Sprintf("trace_disconnected_%s_%s", tr.PcbTraceID, end),
			Message:        fmt.Sprintf("Trace [%s] has disconnected endpoint at (%g, %g)", c.traceName(tr), p.X, p.Y),
			ParticipantIDs: []string{tr.PcbTraceID},
			Center:         p,
		})
	}
	return out
}
