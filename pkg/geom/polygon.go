package geom

import "math"

// orientation returns >0 when c is left of ab, <0 when right, 0 when collinear
func orientation(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// onSegment reports whether collinear point p lies within the box of ab
func onSegment(a, b, p Point) bool {
	return p.X >= math.Min(a.X, b.X) && p.X <= math.Max(a.X, b.X) &&
		p.Y >= math.Min(a.Y, b.Y) && p.Y <= math.Max(a.Y, b.Y)
}

// SegmentsIntersect reports whether segments a1a2 and b1b2 share a point.
// Touching endpoints and collinear overlap both count.
func SegmentsIntersect(a1, a2, b1, b2 Point) bool {
	d1 := orientation(b1, b2, a1)
	d2 := orientation(b1, b2, a2)
	d3 := orientation(a1, a2, b1)
	d4 := orientation(a1, a2, b2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	switch {
	case d1 == 0 && onSegment(b1, b2, a1):
		return true
	case d2 == 0 && onSegment(b1, b2, a2):
		return true
	case d3 == 0 && onSegment(a1, a2, b1):
		return true
	case d4 == 0 && onSegment(a1, a2, b2):
		return true
	}
	return false
}

// PointInPolygon reports whether p lies inside the closed polygon using ray
// casting. The polygon is implicitly closed; orientation does not matter.
func PointInPolygon(p Point, polygon []Point) bool {
	inside := false
	n := len(polygon)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := polygon[i], polygon[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) &&
			p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
	}
	return inside
}

// PointPolygonDistance returns the distance from p to the nearest polygon edge
func PointPolygonDistance(p Point, polygon []Point) float64 {
	best := math.Inf(1)
	n := len(polygon)
	for i := 0; i < n; i++ {
		d := PointSegmentDistance(p, polygon[i], polygon[(i+1)%n])
		best = math.Min(best, d)
	}
	return best
}

// SegmentCrossesPolygon reports whether segment p1p2 intersects any edge
func SegmentCrossesPolygon(p1, p2 Point, polygon []Point) bool {
	n := len(polygon)
	for i := 0; i < n; i++ {
		if SegmentsIntersect(p1, p2, polygon[i], polygon[(i+1)%n]) {
			return true
		}
	}
	return false
}
