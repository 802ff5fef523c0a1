package bim

import (
	"math"
	"sort"
)

// geomEpsilon is the tolerance for collinearity and intersection tests in
// plan coordinates.
const geomEpsilon = 1e-6

func hypot2(dx, dy float64) float64 {
	return math.Sqrt(dx*dx + dy*dy)
}

// dist2 returns the Euclidean distance between two plan points.
func dist2(a, b Point2) float64 {
	return hypot2(b.X-a.X, b.Y-a.Y)
}

// round3 rounds to 3 decimals, the precision the pipeline works at.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// convexHull computes the 2-D convex hull of the given points using
// Andrew's monotone chain. The result is in counter-clockwise order and
// does not repeat the first vertex. Fewer than 3 distinct points yield
// the distinct points themselves.
func convexHull(points []Point2) []Point2 {
	if len(points) == 0 {
		return nil
	}

	pts := make([]Point2, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	// Deduplicate after sorting.
	uniq := pts[:1]
	for _, p := range pts[1:] {
		last := uniq[len(uniq)-1]
		if p.X != last.X || p.Y != last.Y {
			uniq = append(uniq, p)
		}
	}
	pts = uniq
	if len(pts) < 3 {
		return pts
	}

	cross := func(o, a, b Point2) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	var lower, upper []Point2
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	return hull
}

// polygonArea returns the absolute shoelace area of a ring. The ring may
// be open (first != last) or closed.
func polygonArea(ring []Point2) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return math.Abs(sum) / 2
}

// polygonSignedArea returns the signed shoelace area: positive for
// counter-clockwise rings.
func polygonSignedArea(ring []Point2) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return sum / 2
}

// pointInPolygon tests ring containment with the even-odd ray casting
// rule. Points exactly on the boundary may land either side; callers
// needing boundary inclusion should test distance to the ring first.
func pointInPolygon(p Point2, ring []Point2) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := ring[i], ring[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) {
			xCross := (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y) + pi.X
			if p.X < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

// distanceToSegment returns the distance from p to the segment [a,b].
func distanceToSegment(p, a, b Point2) float64 {
	abx, aby := b.X-a.X, b.Y-a.Y
	l2 := abx*abx + aby*aby
	if l2 == 0 {
		return dist2(p, a)
	}
	t := ((p.X-a.X)*abx + (p.Y-a.Y)*aby) / l2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	proj := Point2{a.X + t*abx, a.Y + t*aby}
	return dist2(p, proj)
}

// distanceToRing returns the minimum distance from p to any edge of the
// ring (treated as closed).
func distanceToRing(p Point2, ring []Point2) float64 {
	n := len(ring)
	if n == 0 {
		return math.Inf(1)
	}
	if n == 1 {
		return dist2(p, ring[0])
	}
	min := math.Inf(1)
	for i := 0; i < n; i++ {
		d := distanceToSegment(p, ring[i], ring[(i+1)%n])
		if d < min {
			min = d
		}
	}
	return min
}

// segmentIntersection returns the intersection point of segments [p1,p2]
// and [q1,q2], or false when the segments are parallel or do not meet
// within both segment bounds.
func segmentIntersection(p1, p2, q1, q2 Point2) (Point2, bool) {
	denom := (p1.X-p2.X)*(q1.Y-q2.Y) - (p1.Y-p2.Y)*(q1.X-q2.X)
	if math.Abs(denom) < geomEpsilon {
		return Point2{}, false
	}
	t := ((p1.X-q1.X)*(q1.Y-q2.Y) - (p1.Y-q1.Y)*(q1.X-q2.X)) / denom
	u := -((p1.X-p2.X)*(p1.Y-q1.Y) - (p1.Y-p2.Y)*(p1.X-q1.X)) / denom
	if t < -geomEpsilon || t > 1+geomEpsilon || u < -geomEpsilon || u > 1+geomEpsilon {
		return Point2{}, false
	}
	return Point2{p1.X + t*(p2.X-p1.X), p1.Y + t*(p2.Y-p1.Y)}, true
}

// pointOnSegment reports whether p lies on the segment [a,b] within the
// given tolerance, excluding the endpoints themselves.
func pointOnSegment(p, a, b Point2, tol float64) bool {
	if dist2(p, a) <= tol || dist2(p, b) <= tol {
		return false
	}
	return distanceToSegment(p, a, b) <= tol
}
