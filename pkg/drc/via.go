package drc

import (
	"context"
	"fmt"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/collide"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"
)

// CheckDifferentNetViaSpacing reports vias on different nets closer than
// the different-net via margin
func (c *Checker) CheckDifferentNetViaSpacing(ctx context.Context) ([]Violation, error) {
	return c.checkViaSpacing(ctx, false, c.cfg.DifferentNetViaMargin)
}

// CheckSameNetViaSpacing reports vias on one net closer than the same-net
// via margin
func (c *Checker) CheckSameNetViaSpacing(ctx context.Context) ([]Violation, error) {
	return c.checkViaSpacing(ctx, true, c.cfg.SameNetViaMargin)
}

func (c *Checker) checkViaSpacing(ctx context.Context, sameNet bool, margin float64) ([]Violation, error) {
	set, err := c.extract(c.cfg.DefaultTraceThickness)
	if err != nil {
		return nil, fmt.Errorf("via spacing: %w", err)
	}

	items := make([]collide.Collidable, len(set.Vias))
	for i, v := range set.Vias {
		items[i] = v
	}

	label, prefix := "Different-net", "pcb_error_via_clearance_different_net"
	if sameNet {
		label, prefix = "Same-net", "pcb_error_via_clearance_same_net"
	}

	return c.scanPairs(ctx, items, margin, prefix, func(a, b collide.Collidable) (Violation, bool) {
		va, vb := a.(*collide.Via), b.(*collide.Via)
		if c.viasConnected(va, vb) != sameNet {
			return Violation{}, false
		}

		gap := va.Center.Distance(vb.Center) - va.OuterDiameter/2 - vb.OuterDiameter/2
		if gap+geom.Epsilon >= margin {
			return Violation{}, false
		}

		return Violation{
			Kind: KindViaClearance,
			Message: fmt.Sprintf("%s vias %s and %s must have at least %.3fmm clearance but currently have %.3fmm clearance.",
				label, c.names.ReadableName(va.ViaID), c.names.ReadableName(vb.ViaID), margin, gap),
			ParticipantIDs:    []string{va.ViaID, vb.ViaID},
			Center:            va.Center.Midpoint(vb.Center),
			RequiredClearance: margin,
			ActualClearance:   gap,
		}, true
	})
}

func (c *Checker) viasConnected(a, b *collide.Via) bool {
	if c.conn.AreIDsConnected(a.ViaID, b.ViaID) {
		return true
	}
	return a.TraceID != "" && b.TraceID != "" && c.conn.AreIDsConnected(a.TraceID, b.TraceID)
}
