package drc

import (
	"context"
	"fmt"
	"slices"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/collide"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/spatial"
)

// CheckTraceOverlap reports trace segments closer than the trace margin to
// another trace, a pad, a hole, a via or a keepout. Objects on the same net,
// pads a segment ends inside of and pads whose port the trace names are not
// conflicts.
func (c *Checker) CheckTraceOverlap(ctx context.Context) ([]Violation, error) {
	return c.checkTraceOverlap(ctx, c.cfg.TraceMargin)
}

func (c *Checker) checkTraceOverlap(ctx context.Context, margin float64) ([]Violation, error) {
	set, err := c.extract(c.cfg.DefaultTraceThickness)
	if err != nil {
		return nil, fmt.Errorf("trace overlap: %w", err)
	}
	if len(set.Segments) == 0 {
		return []Violation{}, nil
	}

	idx, err := c.buildIndex(set.All())
	if err != nil {
		return nil, fmt.Errorf("trace overlap: %w", err)
	}
	c.log.Debug("trace overlap index built",
		"segments", len(set.Segments),
		"obstacles", set.Len()-len(set.Segments),
		"margin", margin)

	results, err := c.scan(ctx, len(set.Segments), func(i int) []Violation {
		return c.segmentConflicts(set.Segments[i], idx, margin)
	})
	if err != nil {
		return nil, err
	}

	out := merge(results)
	c.log.Debug("trace overlap done", "violations", len(out))
	return out, nil
}

// segmentConflicts returns the conflicts of one segment in candidate order
func (c *Checker) segmentConflicts(seg *collide.TraceSegment, idx spatial.Index[collide.Collidable], margin float64) []Violation {
	var out []Violation
	seen := make(map[string]struct{})

	for _, cand := range idx.Query(seg.Bounds(), margin+seg.Thickness/2) {
		if !collide.SharesLayer(cand, seg.Layer) {
			continue
		}

		var v Violation
		var ok bool
		switch other := cand.(type) {
		case *collide.TraceSegment:
			v, ok = c.segmentPair(seg, other, margin, seen)
		default:
			v, ok = c.segmentObstacle(seg, cand, margin, seen)
		}
		if ok {
			out = append(out, v)
		}
	}
	return out
}

func (c *Checker) segmentPair(a, b *collide.TraceSegment, margin float64, seen map[string]struct{}) (Violation, bool) {
	if a.TraceID == b.TraceID {
		return Violation{}, false
	}
	id := violationID("overlap", a.TraceID, b.TraceID)
	if _, dup := seen[id]; dup {
		return Violation{}, false
	}
	if c.conn.AreIDsConnected(a.TraceID, b.TraceID) {
		return Violation{}, false
	}

	gap := geom.SegmentSegmentMinDistance(a.P1, a.P2, b.P1, b.P2) - a.Thickness/2 - b.Thickness/2
	if gap+geom.Epsilon >= margin {
		return Violation{}, false
	}
	seen[id] = struct{}{}

	return Violation{
		Kind: KindTrace,
		ID:   id,
		Message: fmt.Sprintf("PCB trace %s overlaps with %s %s",
			c.names.ReadableName(a.TraceID), c.names.ReadableName(b.TraceID), gapText(gap)),
		ParticipantIDs:    []string{a.TraceID, b.TraceID},
		Center:            geom.ClosestPointBetweenSegments(a.P1, a.P2, b.P1, b.P2),
		RequiredClearance: margin,
		ActualClearance:   gap,
	}, true
}

func (c *Checker) segmentObstacle(seg *collide.TraceSegment, ob collide.Collidable, margin float64, seen map[string]struct{}) (Violation, bool) {
	id := violationID("overlap", seg.TraceID, ob.ID())
	if _, dup := seen[id]; dup {
		return Violation{}, false
	}
	if c.joined(seg, ob) {
		return Violation{}, false
	}

	var gap float64
	var center geom.Point
	if pos, r, ok := collide.Circle(ob); ok {
		gap = geom.SegmentCircleMinDistance(seg.P1, seg.P2, pos, r) - seg.Thickness/2
		center = geom.ClosestPointBetweenSegmentAndCircle(seg.P1, seg.P2, pos, r)
	} else {
		b := ob.Bounds()
		gap = geom.SegmentBoundsMinDistance(seg.P1, seg.P2, b) - seg.Thickness/2
		center = geom.ClosestPointBetweenSegmentAndBounds(seg.P1, seg.P2, b)
	}
	if gap+geom.Epsilon >= margin {
		return Violation{}, false
	}
	seen[id] = struct{}{}

	return Violation{
		Kind: KindTrace,
		ID:   id,
		Message: fmt.Sprintf("PCB trace %s overlaps with %s %q %s",
			c.names.ReadableName(seg.TraceID), ob.Kind(), c.names.ReadableName(ob.ID()), gapText(gap)),
		ParticipantIDs:    []string{seg.TraceID, ob.ID()},
		Center:            center,
		RequiredClearance: margin,
		ActualClearance:   gap,
	}, true
}

// joined reports whether a segment is meant to touch an obstacle: they share
// a net, the trace names the obstacle's port, the route starts or ends on a
// pad that has a port, or the segment ends inside pad copper. A foreign via
// is never exempt by position.
func (c *Checker) joined(seg *collide.TraceSegment, ob collide.Collidable) bool {
	if c.conn.AreIDsConnected(seg.TraceID, ob.ID()) {
		return true
	}
	if via, ok := ob.(*collide.Via); ok && via.TraceID != "" {
		if via.TraceID == seg.TraceID || c.conn.AreIDsConnected(seg.TraceID, via.TraceID) {
			return true
		}
	}

	if port := collide.PortID(ob); port != "" && slices.Contains(c.ports.PortIDs(seg.Trace), port) {
		return true
	}

	switch ob.(type) {
	case *collide.Pad, *collide.PlatedHole:
		route := seg.Trace.Route
		pos := collide.Position(ob)
		if collide.PortID(ob) != "" && len(route) > 0 &&
			(route[0].Point().Distance(pos) < portSnapDistance ||
				route[len(route)-1].Point().Distance(pos) < portSnapDistance) {
			return true
		}
	}

	return collide.IsPointInPad(seg.P1, ob) || collide.IsPointInPad(seg.P2, ob)
}

func gapText(gap float64) string {
	if gap < 0 {
		return "(accidental contact)"
	}
	return fmt.Sprintf("(gap: %.3fmm)", gap)
}
