package collide

import (
	"math"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/layout"
)

// DefaultTraceThickness is used for route points that carry no width
const DefaultTraceThickness = 0.15

// Options controls extraction
type Options struct {
	// DefaultThickness replaces DefaultTraceThickness when positive.
	DefaultThickness float64
}

func (o Options) thickness() float64 {
	if o.DefaultThickness > 0 {
		return o.DefaultThickness
	}
	return DefaultTraceThickness
}

// Set holds the collidables extracted from one layout
type Set struct {
	Segments []*TraceSegment
	Pads     []*Pad
	Plated   []*PlatedHole
	Holes    []*Hole
	Vias     []*Via
	Keepouts []*Keepout
}

// All returns every collidable: segments, pads, plated holes, holes, vias
// and keepouts, each group in input order.
func (s *Set) All() []Collidable {
	out := make([]Collidable, 0, s.Len())
	for _, c := range s.Segments {
		out = append(out, c)
	}
	out = append(out, s.Obstacles()...)
	return out
}

// Obstacles returns every collidable that is not a trace segment
func (s *Set) Obstacles() []Collidable {
	out := make([]Collidable, 0, s.Len()-len(s.Segments))
	for _, c := range s.Pads {
		out = append(out, c)
	}
	for _, c := range s.Plated {
		out = append(out, c)
	}
	for _, c := range s.Holes {
		out = append(out, c)
	}
	for _, c := range s.Vias {
		out = append(out, c)
	}
	for _, c := range s.Keepouts {
		out = append(out, c)
	}
	return out
}

// Len returns the number of collidables in the set
func (s *Set) Len() int {
	return len(s.Segments) + len(s.Pads) + len(s.Plated) + len(s.Holes) + len(s.Vias) + len(s.Keepouts)
}

// Extract builds the collidables of a layout. A record whose shape is not
// supported fails the whole extraction with a *ShapeError.
func Extract(l *layout.Layout, opts Options) (*Set, error) {
	set := &Set{}

	for _, tr := range l.Traces() {
		set.Segments = append(set.Segments, Segments(tr, opts)...)
	}

	for _, rec := range l.SMTPads() {
		pad, err := NewPad(rec)
		if err != nil {
			return nil, err
		}
		set.Pads = append(set.Pads, pad)
	}

	for _, rec := range l.PlatedHoles() {
		ph, err := NewPlatedHole(rec)
		if err != nil {
			return nil, err
		}
		set.Plated = append(set.Plated, ph)
	}

	for _, rec := range l.Holes() {
		h, err := NewHole(rec)
		if err != nil {
			return nil, err
		}
		set.Holes = append(set.Holes, h)
	}

	for _, rec := range l.Vias() {
		set.Vias = append(set.Vias, NewVia(rec))
	}

	for _, rec := range l.Keepouts() {
		k, err := NewKeepout(rec)
		if err != nil {
			return nil, err
		}
		set.Keepouts = append(set.Keepouts, k)
	}

	return set, nil
}

// Segments splits a trace route into straight pieces. Only consecutive wire
// points on the same layer form a segment; coincident points are dropped.
func Segments(tr *layout.PcbTrace, opts Options) []*TraceSegment {
	var out []*TraceSegment
	for i := 0; i+1 < len(tr.Route); i++ {
		p1, p2 := tr.Route[i], tr.Route[i+1]
		if p1.RouteType != layout.RouteWire || p2.RouteType != layout.RouteWire {
			continue
		}
		if p1.Layer != p2.Layer {
			continue
		}
		if p1.X == p2.X && p1.Y == p2.Y {
			continue
		}

		thickness := opts.thickness()
		if p1.Width > 0 {
			thickness = p1.Width
		} else if p2.Width > 0 {
			thickness = p2.Width
		}

		out = append(out, &TraceSegment{
			TraceID:   tr.PcbTraceID,
			Index:     i,
			Layer:     p1.Layer,
			Thickness: thickness,
			P1:        p1.Point(),
			P2:        p2.Point(),
			Trace:     tr,
		})
	}
	return out
}

// NewPad converts an SMT pad record
func NewPad(rec *layout.PcbSMTPad) (*Pad, error) {
	pad := &Pad{
		PadID:       rec.PcbSMTPadID,
		ComponentID: rec.PcbComponentID,
		PortID:      rec.PcbPortID,
		Center:      geom.Pt(rec.X, rec.Y),
		Width:       rec.Width,
		Height:      rec.Height,
		Radius:      rec.Radius,
		Rotation:    rec.CCWRotation,
		Layer:       rec.Layer,
	}
	if pad.Layer == "" {
		pad.Layer = "top"
	}

	switch rec.Shape {
	case "circle":
		pad.Shape = PadCircle
		pad.Width, pad.Height = 2*rec.Radius, 2*rec.Radius
	case "rect":
		pad.Shape = PadRect
	case "rotated_rect":
		pad.Shape = PadRotatedRect
	case "pill":
		pad.Shape = PadPill
		if pad.Radius <= 0 {
			pad.Radius = math.Min(rec.Width, rec.Height) / 2
		}
	default:
		return nil, &ShapeError{Type: layout.TypePcbSMTPad, ID: rec.PcbSMTPadID, Shape: rec.Shape}
	}
	return pad, nil
}

// NewPlatedHole converts a plated hole record. Without a layer list the hole
// is on every layer.
func NewPlatedHole(rec *layout.PcbPlatedHole) (*PlatedHole, error) {
	ph := &PlatedHole{
		HoleID:      rec.PcbPlatedHoleID,
		ComponentID: rec.PcbComponentID,
		PortID:      rec.PcbPortID,
		Center:      geom.Pt(rec.X, rec.Y),
		Layers:      copyLayers(rec.Layers, layout.AllLayers()),
	}

	switch rec.Shape {
	case "circle":
		ph.Shape = PlatedCircle
		ph.Width, ph.Height = rec.OuterDiameter, rec.OuterDiameter
	case "oval":
		ph.Shape = PlatedOval
		ph.Width, ph.Height = rec.OuterWidth, rec.OuterHeight
	case "pill":
		ph.Shape = PlatedPill
		ph.Width, ph.Height = rec.OuterWidth, rec.OuterHeight
	case "circular_hole_with_rect_pad":
		ph.Shape = PlatedCircleHoleRectPad
		ph.Width, ph.Height = rec.RectPadWidth, rec.RectPadHeight
	case "pill_hole_with_rect_pad":
		ph.Shape = PlatedPillHoleRectPad
		ph.Width, ph.Height = rec.RectPadWidth, rec.RectPadHeight
	default:
		return nil, &ShapeError{Type: layout.TypePcbPlatedHole, ID: rec.PcbPlatedHoleID, Shape: rec.Shape}
	}
	return ph, nil
}

// NewHole converts an unplated hole record
func NewHole(rec *layout.PcbHole) (*Hole, error) {
	h := &Hole{HoleID: rec.PcbHoleID, Center: geom.Pt(rec.X, rec.Y)}

	switch rec.HoleShape {
	case "circle", "":
		h.Circular = true
		h.Width, h.Height = rec.HoleDiameter, rec.HoleDiameter
	case "oval", "pill", "rect":
		h.Width, h.Height = rec.HoleWidth, rec.HoleHeight
	default:
		return nil, &ShapeError{Type: layout.TypePcbHole, ID: rec.PcbHoleID, Shape: rec.HoleShape}
	}
	return h, nil
}

// NewVia converts a via record. Without a layer list the via joins top and
// bottom.
func NewVia(rec *layout.PcbVia) *Via {
	return &Via{
		ViaID:         rec.PcbViaID,
		TraceID:       rec.PcbTraceID,
		Center:        geom.Pt(rec.X, rec.Y),
		OuterDiameter: rec.OuterDiameter,
		Layers:        copyLayers(rec.Layers, layout.AllLayers()),
	}
}

// NewKeepout converts a keepout record. A keepout without layers applies to
// no layer.
func NewKeepout(rec *layout.PcbKeepout) (*Keepout, error) {
	k := &Keepout{
		KeepoutID: rec.PcbKeepoutID,
		Center:    rec.Center,
		Width:     rec.Width,
		Height:    rec.Height,
		Radius:    rec.Radius,
		Layers:    copyLayers(rec.Layers, nil),
	}

	switch rec.Shape {
	case "rect":
	case "circle":
		k.Circular = true
	default:
		return nil, &ShapeError{Type: layout.TypePcbKeepout, ID: rec.PcbKeepoutID, Shape: rec.Shape}
	}
	return k, nil
}

func copyLayers(layers, fallback []string) []string {
	if len(layers) == 0 {
		return fallback
	}
	out := make([]string, len(layers))
	copy(out, layers)
	return out
}
