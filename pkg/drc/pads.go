package drc

import (
	"context"
	"fmt"
	"math"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/collide"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"
)

// CheckPadOverlap reports pads, plated holes and holes of different
// footprints whose boxes overlap. Touching counts as overlap. SMT pads on
// one net may touch.
func (c *Checker) CheckPadOverlap(ctx context.Context) ([]Violation, error) {
	set, err := c.extract(c.cfg.DefaultTraceThickness)
	if err != nil {
		return nil, fmt.Errorf("pad overlap: %w", err)
	}

	var items []collide.Collidable
	for _, p := range set.Pads {
		items = append(items, p)
	}
	for _, p := range set.Plated {
		items = append(items, p)
	}
	for _, h := range set.Holes {
		items = append(items, h)
	}

	return c.scanPairs(ctx, items, 0, "pcb_footprint_overlap", func(a, b collide.Collidable) (Violation, bool) {
		if comp := collide.ComponentID(a); comp != "" && comp == collide.ComponentID(b) {
			return Violation{}, false
		}
		_, padA := a.(*collide.Pad)
		_, padB := b.(*collide.Pad)
		if padA && padB && c.conn.AreIDsConnected(a.ID(), b.ID()) {
			return Violation{}, false
		}
		if !layersMeet(a, b) {
			return Violation{}, false
		}

		ba, bb := a.Bounds(), b.Bounds()
		if !ba.Overlaps(bb) {
			return Violation{}, false
		}
		inter := geom.Bounds{
			MinX: math.Max(ba.MinX, bb.MinX),
			MinY: math.Max(ba.MinY, bb.MinY),
			MaxX: math.Min(ba.MaxX, bb.MaxX),
			MaxY: math.Min(ba.MaxY, bb.MaxY),
		}

		return Violation{
			Kind: KindFootprintOverlap,
			Message: fmt.Sprintf("%s %s overlaps with %s %s",
				a.Kind(), c.names.ReadableName(a.ID()), b.Kind(), c.names.ReadableName(b.ID())),
			ParticipantIDs:  []string{a.ID(), b.ID()},
			Center:          inter.Center(),
			ActualClearance: -math.Min(inter.Width(), inter.Height()),
		}, true
	})
}

// layersMeet reports whether two pad-like collidables share copper layers
func layersMeet(a, b collide.Collidable) bool {
	if pad, ok := a.(*collide.Pad); ok {
		return collide.SharesLayer(b, pad.Layer)
	}
	if pad, ok := b.(*collide.Pad); ok {
		return collide.SharesLayer(a, pad.Layer)
	}
	return true
}
