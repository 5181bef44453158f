// Package collide reduces layout records to collidable shapes.
//
// Every shape resolves its defaults (layers, thickness, radius) when it is
// built, so the checks never deal with optional geometry.
package collide

import (
	"fmt"
	"math"
	"slices"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/layout"
)

// Collidable is any shape that can take part in a clearance check.
// The set of implementations is closed: *TraceSegment, *Pad, *PlatedHole,
// *Hole, *Via and *Keepout.
type Collidable interface {
	// ID is the element id used for connectivity and violation ids.
	// Segments report the id of their owning trace.
	ID() string
	Kind() string
	Bounds() geom.Bounds
	OnLayer(layer string) bool
	collidable()
}

// TraceSegment is one straight piece of a trace route
type TraceSegment struct {
	TraceID   string
	Index     int // index of P1 in the route
	Layer     string
	Thickness float64
	P1, P2    geom.Point

	Trace *layout.PcbTrace
}

// PadShape enumerates surface mount pad outlines
type PadShape int

const (
	PadCircle PadShape = iota
	PadRect
	PadRotatedRect
	PadPill
)

// Pad is a surface mount pad on a single layer
type Pad struct {
	PadID       string
	ComponentID string
	PortID      string
	Shape       PadShape
	Center      geom.Point
	Width       float64
	Height      float64
	Radius      float64
	Rotation    float64 // degrees, counter-clockwise
	Layer       string
}

// PlatedHoleShape enumerates through-hole pad outlines
type PlatedHoleShape int

const (
	PlatedCircle PlatedHoleShape = iota
	PlatedOval
	PlatedPill
	PlatedCircleHoleRectPad
	PlatedPillHoleRectPad
)

// PlatedHole is a through-hole pad
type PlatedHole struct {
	HoleID      string
	ComponentID string
	PortID      string
	Shape       PlatedHoleShape
	Center      geom.Point
	Width       float64 // outer copper extent
	Height      float64
	Layers      []string
}

// Hole is an unplated drill. Circular holes have Width == Height.
type Hole struct {
	HoleID   string
	Circular bool
	Center   geom.Point
	Width    float64
	Height   float64
}

// Via is a plated layer transition
type Via struct {
	ViaID         string
	TraceID       string
	Center        geom.Point
	OuterDiameter float64
	Layers        []string
}

// Keepout is a copper-free region. Circular keepouts use Radius.
type Keepout struct {
	KeepoutID string
	Circular  bool
	Center    geom.Point
	Width     float64
	Height    float64
	Radius    float64
	Layers    []string
}

// ShapeError reports a record whose shape cannot be turned into a collidable
type ShapeError struct {
	Type  string
	ID    string
	Shape string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("collide: unsupported shape %q on %s %q", e.Shape, e.Type, e.ID)
}

func (s *TraceSegment) ID() string { return s.TraceID }
func (p *Pad) ID() string          { return p.PadID }
func (h *PlatedHole) ID() string   { return h.HoleID }
func (h *Hole) ID() string         { return h.HoleID }
func (v *Via) ID() string          { return v.ViaID }
func (k *Keepout) ID() string      { return k.KeepoutID }

func (*TraceSegment) Kind() string { return "pcb_trace_segment" }
func (*Pad) Kind() string          { return layout.TypePcbSMTPad }
func (*PlatedHole) Kind() string   { return layout.TypePcbPlatedHole }
func (*Hole) Kind() string         { return layout.TypePcbHole }
func (*Via) Kind() string          { return layout.TypePcbVia }
func (*Keepout) Kind() string      { return layout.TypePcbKeepout }

func (*TraceSegment) collidable() {}
func (*Pad) collidable()          {}
func (*PlatedHole) collidable()   {}
func (*Hole) collidable()         {}
func (*Via) collidable()          {}
func (*Keepout) collidable()      {}

func (s *TraceSegment) Bounds() geom.Bounds {
	return geom.BoundsOfPoints(s.P1, s.P2)
}

func (p *Pad) Bounds() geom.Bounds {
	switch p.Shape {
	case PadCircle:
		return geom.BoundsAround(p.Center, p.Radius, p.Radius)
	case PadRotatedRect:
		hw, hh := p.Width/2, p.Height/2
		corners := [4]geom.Point{
			geom.Pt(-hw, -hh), geom.Pt(hw, -hh), geom.Pt(hw, hh), geom.Pt(-hw, hh),
		}
		pts := make([]geom.Point, len(corners))
		for i, c := range corners {
			r := c.Rotate(p.Rotation)
			pts[i] = geom.Pt(p.Center.X+r.X, p.Center.Y+r.Y)
		}
		return geom.BoundsOfPoints(pts...)
	default:
		return geom.BoundsAround(p.Center, p.Width/2, p.Height/2)
	}
}

func (h *PlatedHole) Bounds() geom.Bounds {
	return geom.BoundsAround(h.Center, h.Width/2, h.Height/2)
}

func (h *Hole) Bounds() geom.Bounds {
	return geom.BoundsAround(h.Center, h.Width/2, h.Height/2)
}

func (v *Via) Bounds() geom.Bounds {
	r := v.OuterDiameter / 2
	return geom.BoundsAround(v.Center, r, r)
}

func (k *Keepout) Bounds() geom.Bounds {
	if k.Circular {
		return geom.BoundsAround(k.Center, k.Radius, k.Radius)
	}
	return geom.BoundsAround(k.Center, k.Width/2, k.Height/2)
}

func (s *TraceSegment) OnLayer(layer string) bool { return s.Layer == layer }
func (p *Pad) OnLayer(layer string) bool          { return p.Layer == layer }
func (h *PlatedHole) OnLayer(layer string) bool   { return slices.Contains(h.Layers, layer) }
func (v *Via) OnLayer(layer string) bool          { return slices.Contains(v.Layers, layer) }
func (k *Keepout) OnLayer(layer string) bool      { return slices.Contains(k.Layers, layer) }

// Holes are drilled through every layer
func (*Hole) OnLayer(string) bool { return true }

// Length returns the length of the segment
func (s *TraceSegment) Length() float64 {
	return s.P1.Distance(s.P2)
}

// SharesLayer reports whether c takes part in checks on layer. Vias and holes
// go through the whole board and always do.
func SharesLayer(c Collidable, layer string) bool {
	switch c.(type) {
	case *Via, *Hole:
		return true
	}
	return c.OnLayer(layer)
}

// Circle returns the center and radius of circular collidables
func Circle(c Collidable) (geom.Point, float64, bool) {
	switch v := c.(type) {
	case *Via:
		return v.Center, v.OuterDiameter / 2, true
	case *Pad:
		if v.Shape == PadCircle {
			return v.Center, v.Radius, true
		}
	case *PlatedHole:
		if v.Shape == PlatedCircle {
			return v.Center, v.Width / 2, true
		}
	case *Hole:
		if v.Circular {
			return v.Center, v.Width / 2, true
		}
	}
	return geom.Point{}, 0, false
}

// PortID returns the pcb port a pad or plated hole belongs to
func PortID(c Collidable) string {
	switch v := c.(type) {
	case *Pad:
		return v.PortID
	case *PlatedHole:
		return v.PortID
	}
	return ""
}

// ComponentID returns the pcb component owning a pad or plated hole
func ComponentID(c Collidable) string {
	switch v := c.(type) {
	case *Pad:
		return v.ComponentID
	case *PlatedHole:
		return v.ComponentID
	}
	return ""
}

// Position returns the nominal location of an obstacle
func Position(c Collidable) geom.Point {
	switch v := c.(type) {
	case *Pad:
		return v.Center
	case *PlatedHole:
		return v.Center
	case *Hole:
		return v.Center
	case *Via:
		return v.Center
	case *Keepout:
		return v.Center
	case *TraceSegment:
		return v.P1.Midpoint(v.P2)
	}
	return geom.Point{}
}

// IsPointInPad reports whether p lies inside the copper of a pad or plated
// hole. Other collidables never contain a pad connection.
func IsPointInPad(p geom.Point, c Collidable) bool {
	switch v := c.(type) {
	case *Pad:
		return v.containsPoint(p, 0)
	case *PlatedHole:
		return v.containsPoint(p)
	}
	return false
}

// containsPoint tests p against the pad grown by margin on every side
func (pad *Pad) containsPoint(p geom.Point, margin float64) bool {
	dx := p.X - pad.Center.X
	dy := p.Y - pad.Center.Y
	hw := pad.Width/2 + margin
	hh := pad.Height/2 + margin

	switch pad.Shape {
	case PadCircle:
		return math.Hypot(dx, dy) <= pad.Radius+margin
	case PadRect:
		return math.Abs(dx) <= hw && math.Abs(dy) <= hh
	case PadRotatedRect:
		local := geom.Pt(dx, dy).Rotate(-pad.Rotation)
		return math.Abs(local.X) <= hw && math.Abs(local.Y) <= hh
	case PadPill:
		r := pad.Radius + margin
		if math.Abs(dx) <= hw-r && math.Abs(dy) <= hh {
			return true
		}
		cx := math.Max(math.Abs(dx)-(hw-r), 0)
		cy := math.Max(math.Abs(dy)-(hh-r), 0)
		return cx*cx+cy*cy <= r*r
	}
	return false
}

// ContainsWithMargin reports whether p is inside the pad grown by margin
func (pad *Pad) ContainsWithMargin(p geom.Point, margin float64) bool {
	return pad.containsPoint(p, margin)
}

func (h *PlatedHole) containsPoint(p geom.Point) bool {
	if h.Shape == PlatedCircle {
		return p.Distance(h.Center) <= h.Width/2
	}
	return math.Abs(p.X-h.Center.X) <= h.Width/2 && math.Abs(p.Y-h.Center.Y) <= h.Height/2
}
