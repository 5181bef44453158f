package geom

import (
	"errors"
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// ErrDegenerateOutline is returned for outlines with fewer than three vertices
var ErrDegenerateOutline = errors.New("geom: outline needs at least 3 vertices")

// Outline is a closed board polygon. Containment uses ray casting; distance to
// the edge is evaluated on an sdfx signed-distance polygon.
type Outline struct {
	vertices []Point
	bounds   Bounds
	field    sdf.SDF2
}

// NewOutline builds an outline from its vertices. The slice is copied.
func NewOutline(vertices []Point) (*Outline, error) {
	if len(vertices) < 3 {
		return nil, ErrDegenerateOutline
	}

	vs := make([]Point, len(vertices))
	copy(vs, vertices)

	sv := make([]v2.Vec, len(vs))
	for i, p := range vs {
		sv[i] = v2.Vec{X: p.X, Y: p.Y}
	}
	field, err := sdf.Polygon2D(sv)
	if err != nil {
		return nil, fmt.Errorf("failed to build outline: %w", err)
	}

	return &Outline{
		vertices: vs,
		bounds:   BoundsOfPoints(vs...),
		field:    field,
	}, nil
}

// RectOutline returns the outline of a width × height board centered on c
func RectOutline(c Point, width, height float64) (*Outline, error) {
	b := BoundsAround(c, width/2, height/2)
	corners := b.Corners()
	return NewOutline(corners[:])
}

// Vertices returns a copy of the polygon vertices
func (o *Outline) Vertices() []Point {
	vs := make([]Point, len(o.vertices))
	copy(vs, o.vertices)
	return vs
}

// Bounds returns the bounding box of the outline
func (o *Outline) Bounds() Bounds {
	return o.bounds
}

// Contains reports whether p lies inside the outline
func (o *Outline) Contains(p Point) bool {
	if !o.bounds.Contains(p) {
		return false
	}
	return PointInPolygon(p, o.vertices)
}

// Distance returns the unsigned distance from p to the outline edge
func (o *Outline) Distance(p Point) float64 {
	return math.Abs(o.field.Evaluate(v2.Vec{X: p.X, Y: p.Y}))
}

// CrossedBy reports whether segment p1p2 intersects the outline edge
func (o *Outline) CrossedBy(p1, p2 Point) bool {
	return SegmentCrossesPolygon(p1, p2, o.vertices)
}

// SegmentDistance returns the smallest distance between segment p1p2 and
// the outline edge. It is zero when the segment touches or crosses the edge.
func (o *Outline) SegmentDistance(p1, p2 Point) float64 {
	d := math.Inf(1)
	n := len(o.vertices)
	for i := range n {
		d = math.Min(d, SegmentSegmentMinDistance(p1, p2, o.vertices[i], o.vertices[(i+1)%n]))
	}
	return d
}
