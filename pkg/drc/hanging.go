package drc

import (
	"context"
	"fmt"
	"slices"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/collide"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/layout"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/spatial"
)

// CheckHangingTraces reports route ends that reach no port, no pad with a
// port, no via and no end of another trace
func (c *Checker) CheckHangingTraces(ctx context.Context) ([]Violation, error) {
	set, err := c.extract(c.cfg.DefaultTraceThickness)
	if err != nil {
		return nil, fmt.Errorf("hanging traces: %w", err)
	}
	idx, err := c.buildIndex(set.All())
	if err != nil {
		return nil, fmt.Errorf("hanging traces: %w", err)
	}

	traces := c.layout.Traces()
	anchors, err := c.buildAnchors(traces)
	if err != nil {
		return nil, fmt.Errorf("hanging traces: %w", err)
	}
	results, err := c.scan(ctx, len(traces), func(i int) []Violation {
		return c.hangingEnds(traces[i], anchors, idx)
	})
	if err != nil {
		return nil, err
	}
	return merge(results), nil
}

// anchor is a pcb port or a route end another route end may land on
type anchor struct {
	port    bool
	traceID string
	at      geom.Point
	layers  []string
}

// buildAnchors indexes every pcb port and every route end by position. A
// port without layers matches any layer.
func (c *Checker) buildAnchors(traces []*layout.PcbTrace) (spatial.Index[anchor], error) {
	idx, err := spatial.New[anchor](c.cfg.Index, c.cfg.CellSize)
	if err != nil {
		return nil, err
	}
	for _, port := range c.layout.Ports() {
		a := anchor{port: true, at: geom.Pt(port.X, port.Y), layers: port.Layers}
		if a.at.IsFinite() {
			idx.Insert(a, geom.BoundsAround(a.at, 0, 0))
		}
	}
	for _, tr := range traces {
		if len(tr.Route) == 0 {
			continue
		}
		for _, end := range []RouteEnd{RouteStart, RouteFinish} {
			rp := endPoint(tr, end)
			a := anchor{traceID: tr.PcbTraceID, at: rp.Point(), layers: pointLayers(rp)}
			if a.at.IsFinite() {
				idx.Insert(a, geom.BoundsAround(a.at, 0, 0))
			}
		}
	}
	return idx, nil
}

func (c *Checker) hangingEnds(tr *layout.PcbTrace, anchors spatial.Index[anchor], idx spatial.Index[collide.Collidable]) []Violation {
	if len(tr.Route) < 2 {
		return nil
	}

	var out []Violation
	for _, end := range []RouteEnd{RouteStart, RouteFinish} {
		rp := endPoint(tr, end)
		if c.endConnected(tr, end, rp, anchors, idx) {
			continue
		}

		at := rp.Point()
		v := Violation{
			Kind:           KindTrace,
			ID:             fmt.Sprintf("hanging_%s_%s", tr.PcbTraceID, end),
			ParticipantIDs: []string{tr.PcbTraceID},
			Center:         at,
			Message:        fmt.Sprintf("Trace [%s] has a hanging endpoint at (%g, %g).", c.traceName(tr), at.X, at.Y),
		}
		if other := alongTrace(tr, rp, idx); other != "" {
			v.ParticipantIDs = append(v.ParticipantIDs, other)
			v.Message = fmt.Sprintf("Trace [%s] ends along trace %s at (%g, %g) without connecting to a pcb port.",
				c.traceName(tr), c.names.ReadableName(other), at.X, at.Y)
		}
		out = append(out, v)
	}
	return out
}

func endPoint(tr *layout.PcbTrace, end RouteEnd) layout.RoutePoint {
	if end == RouteStart {
		return tr.Route[0]
	}
	return tr.Route[len(tr.Route)-1]
}

// pointLayers returns the layers a route point sits on
func pointLayers(rp layout.RoutePoint) []string {
	if rp.RouteType == layout.RouteVia {
		return []string{rp.FromLayer, rp.ToLayer}
	}
	return []string{rp.Layer}
}

func layersOverlap(a, b []string) bool {
	for _, l := range a {
		if l != "" && slices.Contains(b, l) {
			return true
		}
	}
	return false
}

func (c *Checker) endConnected(tr *layout.PcbTrace, end RouteEnd, rp layout.RoutePoint, anchors spatial.Index[anchor], idx spatial.Index[collide.Collidable]) bool {
	if id := c.ports.EndPortID(tr, end); id != "" {
		if _, ok := c.layout.Port(id); ok {
			return true
		}
	}

	at := rp.Point()
	layers := pointLayers(rp)

	for _, a := range anchors.Query(geom.BoundsAround(at, 0, 0), geom.Epsilon) {
		if (!a.port && a.traceID == tr.PcbTraceID) || !geom.PointsEqual(at, a.at, geom.Epsilon) {
			continue
		}
		if a.port && len(a.layers) == 0 {
			return true
		}
		if layersOverlap(layers, a.layers) {
			return true
		}
	}

	for _, cand := range idx.Query(geom.BoundsAround(at, 0, 0), 0) {
		switch ob := cand.(type) {
		case *collide.Pad, *collide.PlatedHole:
			if collide.PortID(ob) != "" && layersAllow(ob, layers) && collide.IsPointInPad(at, ob) {
				return true
			}
		case *collide.Via:
			if at.Distance(ob.Center) <= ob.OuterDiameter/2 {
				return true
			}
		}
	}
	return false
}

func layersAllow(c collide.Collidable, layers []string) bool {
	for _, l := range layers {
		if l != "" && c.OnLayer(l) {
			return true
		}
	}
	return false
}

// alongTrace returns the trace whose segment interior the point lies on
func alongTrace(tr *layout.PcbTrace, rp layout.RoutePoint, idx spatial.Index[collide.Collidable]) string {
	at := rp.Point()
	layers := pointLayers(rp)
	for _, cand := range idx.Query(geom.BoundsAround(at, 0, 0), geom.Epsilon) {
		seg, ok := cand.(*collide.TraceSegment)
		if !ok || seg.TraceID == tr.PcbTraceID || !slices.Contains(layers, seg.Layer) {
			continue
		}
		if geom.PointsEqual(at, seg.P1, geom.Epsilon) || geom.PointsEqual(at, seg.P2, geom.Epsilon) {
			continue
		}
		if geom.PointSegmentDistance(at, seg.P1, seg.P2) < geom.Epsilon {
			return seg.TraceID
		}
	}
	return ""
}

// traceName is the display name of a trace's source trace, or an id
func (c *Checker) traceName(tr *layout.PcbTrace) string {
	if st, ok := c.layout.SourceTrace(tr.SourceTraceID); ok {
		if st.DisplayName != "" {
			return st.DisplayName
		}
		return st.SourceTraceID
	}
	return tr.PcbTraceID
}
