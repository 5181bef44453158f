package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// parallelTolerance bounds sin²(angle) below which two segments are treated
// as parallel and the closed-form solution is not used.
const parallelTolerance = 1e-12

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// ClosestPointOnSegment returns the point of segment ab nearest to p
func ClosestPointOnSegment(p, a, b Point) Point {
	ab := r2.Sub(b.vec(), a.vec())
	lenSq := r2.Norm2(ab)
	if lenSq == 0 {
		return a
	}
	t := clamp01(r2.Dot(r2.Sub(p.vec(), a.vec()), ab) / lenSq)
	return fromVec(r2.Add(a.vec(), r2.Scale(t, ab)))
}

// PointSegmentDistance returns the distance from p to segment ab
func PointSegmentDistance(p, a, b Point) float64 {
	return p.Distance(ClosestPointOnSegment(p, a, b))
}

// closestPoints returns the nearest pair of points on segments a1a2 and b1b2.
// Zero-length and parallel inputs take their own branches so the closed-form
// solution never divides by a vanishing denominator.
func closestPoints(a1, a2, b1, b2 Point) (Point, Point) {
	va := r2.Sub(a2.vec(), a1.vec())
	vb := r2.Sub(b2.vec(), b1.vec())
	lenA := r2.Norm2(va)
	lenB := r2.Norm2(vb)

	switch {
	case lenA == 0 && lenB == 0:
		return a1, b1
	case lenA == 0:
		return a1, ClosestPointOnSegment(a1, b1, b2)
	case lenB == 0:
		return ClosestPointOnSegment(b1, a1, a2), b1
	}

	w := r2.Sub(a1.vec(), b1.vec())
	dotAB := r2.Dot(va, vb)
	dotAW := r2.Dot(va, w)
	dotBW := r2.Dot(vb, w)

	denom := lenA*lenB - dotAB*dotAB
	if denom <= parallelTolerance*lenA*lenB {
		return closestPointsParallel(a1, a2, b1, b2)
	}

	s := clamp01((dotAB*dotBW - lenB*dotAW) / denom)
	t := (dotAB*s + dotBW) / lenB
	if t < 0 {
		t = 0
		s = clamp01(-dotAW / lenA)
	} else if t > 1 {
		t = 1
		s = clamp01((dotAB - dotAW) / lenA)
	}

	onA := fromVec(r2.Add(a1.vec(), r2.Scale(s, va)))
	onB := fromVec(r2.Add(b1.vec(), r2.Scale(t, vb)))
	return onA, onB
}

// closestPointsParallel projects every endpoint onto the opposite segment
// and keeps the nearest pair.
func closestPointsParallel(a1, a2, b1, b2 Point) (Point, Point) {
	candidates := [4][2]Point{
		{ClosestPointOnSegment(b1, a1, a2), b1},
		{ClosestPointOnSegment(b2, a1, a2), b2},
		{a1, ClosestPointOnSegment(a1, b1, b2)},
		{a2, ClosestPointOnSegment(a2, b1, b2)},
	}

	best := candidates[0]
	bestDist := best[0].Distance(best[1])
	for _, c := range candidates[1:] {
		if d := c[0].Distance(c[1]); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best[0], best[1]
}

// SegmentSegmentMinDistance returns the minimum distance between segments
// a1a2 and b1b2. Crossing or touching segments are at distance 0.
func SegmentSegmentMinDistance(a1, a2, b1, b2 Point) float64 {
	if SegmentsIntersect(a1, a2, b1, b2) {
		return 0
	}
	pa, pb := closestPoints(a1, a2, b1, b2)
	return pa.Distance(pb)
}

// ClosestPointBetweenSegments returns the midpoint of the nearest pair of
// points on the two segments. It is used as the visual center of a conflict.
func ClosestPointBetweenSegments(a1, a2, b1, b2 Point) Point {
	pa, pb := closestPoints(a1, a2, b1, b2)
	return pa.Midpoint(pb)
}

// SegmentCircleMinDistance returns the distance between segment p1p2 and the
// edge of a circle. The result is negative when the segment enters the circle.
func SegmentCircleMinDistance(p1, p2, center Point, radius float64) float64 {
	return PointSegmentDistance(center, p1, p2) - radius
}

// ClosestPointBetweenSegmentAndCircle returns the midpoint between the point of
// the segment nearest the circle and the matching point on the circle edge.
func ClosestPointBetweenSegmentAndCircle(p1, p2, center Point, radius float64) Point {
	onSeg := ClosestPointOnSegment(center, p1, p2)
	d := onSeg.Distance(center)
	if d == 0 {
		return onSeg
	}
	dir := r2.Scale(radius/d, r2.Sub(onSeg.vec(), center.vec()))
	onCircle := fromVec(r2.Add(center.vec(), dir))
	return onSeg.Midpoint(onCircle)
}

// SegmentBoundsMinDistance returns the distance from segment p1p2 to an
// axis-aligned box. A segment touching or entering the box is at distance 0.
// Against a non-rectangular shape this is conservative: the box is never
// smaller than the shape it stands in for.
func SegmentBoundsMinDistance(p1, p2 Point, b Bounds) float64 {
	if b.Contains(p1) || b.Contains(p2) {
		return 0
	}

	corners := b.Corners()
	best := math.Inf(1)
	for i := range corners {
		e1, e2 := corners[i], corners[(i+1)%len(corners)]
		d := SegmentSegmentMinDistance(p1, p2, e1, e2)
		if d == 0 {
			return 0
		}
		best = math.Min(best, d)
	}
	return best
}

// ClosestPointBetweenSegmentAndBounds returns a reporting center for a
// segment/box conflict: the entry point when the segment crosses the box,
// otherwise the midpoint of the nearest pair between segment and box edges.
func ClosestPointBetweenSegmentAndBounds(p1, p2 Point, b Bounds) Point {
	if p1 == p2 {
		return Point{
			X: math.Max(b.MinX, math.Min(b.MaxX, p1.X)),
			Y: math.Max(b.MinY, math.Min(b.MaxY, p1.Y)),
		}
	}

	if t, ok := slabEntry(p1, p2, b); ok {
		return Point{X: p1.X + t*(p2.X-p1.X), Y: p1.Y + t*(p2.Y-p1.Y)}
	}

	corners := b.Corners()
	var best Point
	bestDist := math.Inf(1)
	for i := range corners {
		onSeg, onEdge := closestPoints(p1, p2, corners[i], corners[(i+1)%len(corners)])
		if d := onSeg.Distance(onEdge); d < bestDist {
			bestDist = d
			best = onSeg.Midpoint(onEdge)
		}
	}
	return best
}

// slabEntry clips the segment against the box and returns the parameter at
// which it enters, clamped to [0, 1].
func slabEntry(p1, p2 Point, b Bounds) (float64, bool) {
	dx := p2.X - p1.X
	dy := p2.Y - p1.Y

	tEnter, tExit := math.Inf(-1), math.Inf(1)
	axes := [2]struct{ origin, delta, lo, hi float64 }{
		{p1.X, dx, b.MinX, b.MaxX},
		{p1.Y, dy, b.MinY, b.MaxY},
	}
	for _, ax := range axes {
		if ax.delta == 0 {
			if ax.origin < ax.lo || ax.origin > ax.hi {
				return 0, false
			}
			continue
		}
		t1 := (ax.lo - ax.origin) / ax.delta
		t2 := (ax.hi - ax.origin) / ax.delta
		tEnter = math.Max(tEnter, math.Min(t1, t2))
		tExit = math.Min(tExit, math.Max(t1, t2))
	}

	if tEnter > tExit || tExit < 0 || tEnter > 1 {
		return 0, false
	}
	return clamp01(tEnter), true
}
