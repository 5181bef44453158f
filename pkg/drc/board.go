package drc

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/collide"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/layout"
)

// fallbackOverhang is reported when a component is outside the board but no
// corner or center measures a positive distance
const fallbackOverhang = 0.1

// boardOutline returns the outline of the first board. Boards without an
// outline use their width and height. A layout without a usable board
// yields nil.
func (c *Checker) boardOutline() (*layout.PcbBoard, *geom.Outline) {
	board, ok := c.layout.Board()
	if !ok {
		return nil, nil
	}

	var outline *geom.Outline
	var err error
	switch {
	case len(board.Outline) >= 3:
		outline, err = geom.NewOutline(board.Outline)
	case board.Width > 0 && board.Height > 0:
		outline, err = geom.RectOutline(board.Center, board.Width, board.Height)
	default:
		err = geom.ErrDegenerateOutline
	}
	if err != nil {
		if !errors.Is(err, geom.ErrDegenerateOutline) {
			c.log.Debug("board outline rejected", "board", board.PcbBoardID, "err", err)
		}
		return board, nil
	}
	return board, outline
}

// signedDistance is positive inside the outline and negative outside
func signedDistance(o *geom.Outline, p geom.Point) float64 {
	d := o.Distance(p)
	if !o.Contains(p) {
		return -d
	}
	return d
}

// CheckViasOffBoard reports vias that are not inside the board by at least
// the via board margin
func (c *Checker) CheckViasOffBoard(ctx context.Context) ([]Violation, error) {
	board, outline := c.boardOutline()
	if outline == nil {
		return []Violation{}, nil
	}

	d := newDedup()
	for _, rec := range c.layout.Vias() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		via := collide.NewVia(rec)
		r := via.OuterDiameter / 2
		clearance := signedDistance(outline, via.Center) - r
		if clearance+geom.Epsilon >= c.cfg.ViaBoardMargin {
			continue
		}
		d.add(Violation{
			Kind:              KindPlacement,
			ID:                "out_of_board_" + via.ViaID,
			Message:           fmt.Sprintf("Via %s is outside or crossing the board boundary", c.names.ReadableName(via.ViaID)),
			ParticipantIDs:    []string{via.ViaID, board.PcbBoardID},
			Center:            via.Center,
			RequiredClearance: c.cfg.ViaBoardMargin,
			ActualClearance:   clearance,
		})
	}
	return d.violations(), nil
}

// CheckComponentsOutOfBoard reports components whose rotated footprint is
// not fully inside the board. The message carries how far the component
// sticks out, rounded to 0.01mm.
func (c *Checker) CheckComponentsOutOfBoard(ctx context.Context) ([]Violation, error) {
	board, outline := c.boardOutline()
	if outline == nil {
		return []Violation{}, nil
	}

	d := newDedup()
	for _, pc := range c.layout.Components() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if pc.Width <= 0 || pc.Height <= 0 {
			continue
		}

		corners := componentCorners(pc)
		if componentInside(outline, corners) {
			continue
		}
		overhang := math.Round(componentOverhang(outline, pc.Center, corners)*100) / 100

		d.add(Violation{
			Kind: KindComponentOutside,
			ID:   "pcb_component_outside_board_" + pc.PcbComponentID,
			Message: fmt.Sprintf("Component %s (%s) extends outside board boundaries by %.2fmm",
				c.componentName(pc), pc.PcbComponentID, overhang),
			ParticipantIDs:  []string{pc.PcbComponentID, board.PcbBoardID},
			Center:          pc.Center,
			ActualClearance: -overhang,
		})
	}
	return d.violations(), nil
}

func (c *Checker) componentName(pc *layout.PcbComponent) string {
	if sc, ok := c.layout.SourceComponent(pc.SourceComponentID); ok && sc.Name != "" {
		return sc.Name
	}
	if name := c.names.ReadableName(pc.PcbComponentID); name != "" {
		return name
	}
	return "Unknown"
}

func componentCorners(pc *layout.PcbComponent) [4]geom.Point {
	hw, hh := pc.Width/2, pc.Height/2
	local := [4]geom.Point{
		geom.Pt(-hw, -hh), geom.Pt(hw, -hh), geom.Pt(hw, hh), geom.Pt(-hw, hh),
	}
	var out [4]geom.Point
	for i, p := range local {
		r := p.Rotate(pc.Rotation)
		out[i] = geom.Pt(pc.Center.X+r.X, pc.Center.Y+r.Y)
	}
	return out
}

func componentInside(o *geom.Outline, corners [4]geom.Point) bool {
	for _, p := range corners {
		if !o.Contains(p) {
			return false
		}
	}
	for i := range corners {
		if o.CrossedBy(corners[i], corners[(i+1)%4]) {
			return false
		}
	}
	return true
}

// componentOverhang measures how far a component reaches past the edge
func componentOverhang(o *geom.Outline, center geom.Point, corners [4]geom.Point) float64 {
	if !o.Contains(center) {
		return o.Distance(center)
	}

	probes := corners[:]
	for i := range corners {
		probes = append(probes, corners[i].Midpoint(corners[(i+1)%4]))
	}
	overhang := 0.0
	for _, p := range probes {
		if !o.Contains(p) {
			overhang = math.Max(overhang, o.Distance(p))
		}
	}
	if overhang <= 0 {
		return fallbackOverhang
	}
	return overhang
}

// CheckTracesOutOfBoard reports trace segments that leave the board, cross
// its edge or come closer to it than half their width plus the board margin
func (c *Checker) CheckTracesOutOfBoard(ctx context.Context) ([]Violation, error) {
	board, outline := c.boardOutline()
	if outline == nil {
		return []Violation{}, nil
	}

	margin := c.cfg.BoardMargin
	opts := collide.Options{DefaultThickness: c.cfg.BoardTraceWidth}

	d := newDedup()
	for _, tr := range c.layout.Traces() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, seg := range collide.Segments(tr, opts) {
			suffix := fmt.Sprintf("%s_segment_%d", seg.TraceID, seg.Index)
			v := Violation{
				Kind:           KindTrace,
				ParticipantIDs: []string{seg.TraceID, board.PcbBoardID},
				Center:         seg.P1.Midpoint(seg.P2),
			}

			switch {
			case !outline.Contains(seg.P1) || !outline.Contains(seg.P2):
				v.ID = "trace_outside_board_" + suffix
				v.Message = "Trace extends outside board boundaries"
			case outline.CrossedBy(seg.P1, seg.P2):
				v.ID = "trace_crosses_board_" + suffix
				v.Message = "Trace crosses board boundaries"
			default:
				dist := outline.SegmentDistance(seg.P1, seg.P2)
				required := seg.Thickness/2 + margin
				if dist+geom.Epsilon >= required {
					continue
				}
				v.ID = "trace_too_close_to_board_" + suffix
				v.Message = fmt.Sprintf("Trace too close to board edge (%.3fmm < %.3fmm required, margin: %vmm)",
					dist, required, margin)
				v.RequiredClearance = margin
				v.ActualClearance = dist - seg.Thickness/2
			}
			d.add(v)
		}
	}
	return d.violations(), nil
}
