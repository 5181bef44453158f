package pcb

import (
	"math"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/geom"
)

// edgeTolerance is how far apart two edge end points may be and still join
const edgeTolerance = 0.01

// Outline chains the board edges into closed loops and returns the one
// enclosing the largest area. ok is false when no closed loop exists.
func (b *Board) Outline() ([]geom.Point, bool) {
	var best []geom.Point
	bestArea := 0.0
	for _, loop := range chainLoops(b.Edges) {
		if a := math.Abs(shoelace(loop)); a > bestArea {
			best, bestArea = loop, a
		}
	}
	return best, best != nil
}

// chainLoops walks unused edges end to end until each walk returns to its
// start. Walks that never close are discarded.
func chainLoops(edges []Edge) [][]geom.Point {
	used := make([]bool, len(edges))
	var loops [][]geom.Point

	for i := range edges {
		if used[i] || edges[i].Start.Distance(edges[i].End) < edgeTolerance {
			used[i] = true
			continue
		}
		used[i] = true
		start := edges[i].Start
		loop := []geom.Point{start}
		cur := edges[i].End

		for !near(cur, start) {
			loop = append(loop, cur)
			next := -1
			for j := range edges {
				if used[j] {
					continue
				}
				if near(edges[j].Start, cur) {
					next, cur = j, edges[j].End
					break
				}
				if near(edges[j].End, cur) {
					next, cur = j, edges[j].Start
					break
				}
			}
			if next < 0 {
				loop = nil
				break
			}
			used[next] = true
		}

		if len(loop) >= 3 {
			loops = append(loops, loop)
		}
	}
	return loops
}

func near(a, b geom.Point) bool {
	return a.Distance(b) < edgeTolerance
}

func shoelace(pts []geom.Point) float64 {
	sum := 0.0
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return sum / 2
}
