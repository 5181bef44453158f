// Package geom provides the planar geometry used by the design rule checks.
// All coordinates are in millimeters.
package geom

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r2"
)

// Epsilon is the tolerance added to the passing side of every clearance test
// so that geometry sitting exactly on a legal boundary is never reported.
const Epsilon = 1e-6

// Point represents a 2D coordinate in millimeters
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (p Point) vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

func fromVec(v r2.Vec) Point {
	return Point{X: v.X, Y: v.Y}
}

// Distance returns the Euclidean distance to another point
func (p Point) Distance(other Point) float64 {
	return r2.Norm(r2.Sub(p.vec(), other.vec()))
}

// Midpoint returns the point halfway between p and other
func (p Point) Midpoint(other Point) Point {
	return fromVec(r2.Scale(0.5, r2.Add(p.vec(), other.vec())))
}

// Rotate rotates p about the origin by the given angle in degrees (counter-clockwise)
func (p Point) Rotate(degrees float64) Point {
	rad := degrees * math.Pi / 180.0
	cos, sin := math.Cos(rad), math.Sin(rad)
	return Point{
		X: p.X*cos - p.Y*sin,
		Y: p.X*sin + p.Y*cos,
	}
}

// IsFinite reports whether both coordinates are finite numbers
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// PointsEqual reports whether a and b lie within tol of each other on both axes.
func PointsEqual(a, b Point, tol float64) bool {
	return scalar.EqualWithinAbs(a.X, b.X, tol) && scalar.EqualWithinAbs(a.Y, b.Y, tol)
}

// Bounds is an axis-aligned box. MinX <= MaxX and MinY <= MaxY always hold
// for bounds produced by this package.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// BoundsOfPoints returns the smallest box containing every point.
// An empty slice yields the zero box.
func BoundsOfPoints(points ...Point) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	b := Bounds{MinX: points[0].X, MinY: points[0].Y, MaxX: points[0].X, MaxY: points[0].Y}
	for _, p := range points[1:] {
		b.MinX = math.Min(b.MinX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}
	return b
}

// BoundsAround returns a box centered on c with the given half extents
func BoundsAround(c Point, halfWidth, halfHeight float64) Bounds {
	halfWidth, halfHeight = math.Abs(halfWidth), math.Abs(halfHeight)
	return Bounds{
		MinX: c.X - halfWidth,
		MinY: c.Y - halfHeight,
		MaxX: c.X + halfWidth,
		MaxY: c.Y + halfHeight,
	}
}

// Expand grows the box by margin on every side
func (b Bounds) Expand(margin float64) Bounds {
	return Bounds{
		MinX: b.MinX - margin,
		MinY: b.MinY - margin,
		MaxX: b.MaxX + margin,
		MaxY: b.MaxY + margin,
	}
}

// Union returns the smallest box containing both boxes
func (b Bounds) Union(other Bounds) Bounds {
	return Bounds{
		MinX: math.Min(b.MinX, other.MinX),
		MinY: math.Min(b.MinY, other.MinY),
		MaxX: math.Max(b.MaxX, other.MaxX),
		MaxY: math.Max(b.MaxY, other.MaxY),
	}
}

// Overlaps reports whether the boxes share any point (touching counts)
func (b Bounds) Overlaps(other Bounds) bool {
	return b.MinX <= other.MaxX && b.MaxX >= other.MinX &&
		b.MinY <= other.MaxY && b.MaxY >= other.MinY
}

// Contains reports whether p is inside or on the box
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// Center returns the center of the box
func (b Bounds) Center() Point {
	return Point{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// Width returns the horizontal extent
func (b Bounds) Width() float64 {
	return b.MaxX - b.MinX
}

// Height returns the vertical extent
func (b Bounds) Height() float64 {
	return b.MaxY - b.MinY
}

// Corners returns the four corners in counter-clockwise order starting at (MinX, MinY)
func (b Bounds) Corners() [4]Point {
	return [4]Point{
		{X: b.MinX, Y: b.MinY},
		{X: b.MaxX, Y: b.MinY},
		{X: b.MaxX, Y: b.MaxY},
		{X: b.MinX, Y: b.MaxY},
	}
}
