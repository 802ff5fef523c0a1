package bim

import (
	"math"
	"sort"
)

// zoneQuantum is the grid the planar graph's node coordinates are
// quantized to, so endpoints that meet within float noise share a node.
const zoneQuantum = 1e-4

// DetectZones traces enclosed room polygons from one storey's wall
// centerlines. Endpoints left hanging by the wall detector are snapped
// onto nearby centerlines within the snapping distance, every
// centerline is split where another touches or crosses it, and the
// resulting planar graph is polygonized into bounded faces. Faces are
// named "A", "B", ... in deterministic order.
//
// A storey whose walls do not close any loop yields zero zones; the
// caller logs and continues.
func DetectZones(walls []Wall, snapDistance, height float64, storey int) []Zone {
	if len(walls) < 3 {
		return nil
	}

	segs := make([][2]Point2, 0, len(walls))
	for _, w := range walls {
		if w.Length() < geomEpsilon {
			continue
		}
		segs = append(segs, [2]Point2{w.Start, w.End})
	}

	segs = snapLooseEnds(segs, snapDistance)
	edges, nodes := nodeArrangement(segs)
	faces := polygonize(edges, nodes)

	// Deterministic naming order: by centroid, west to east then south
	// to north.
	sort.Slice(faces, func(i, j int) bool {
		ci, cj := ringCentroid(faces[i]), ringCentroid(faces[j])
		if ci.X != cj.X {
			return ci.X < cj.X
		}
		return ci.Y < cj.Y
	})

	zones := make([]Zone, 0, len(faces))
	for i, ring := range faces {
		for j := range ring {
			ring[j].X = round3(ring[j].X)
			ring[j].Y = round3(ring[j].Y)
		}
		zones = append(zones, Zone{
			Name:    zoneName(i),
			Storey:  storey,
			Polygon: ring,
			Height:  height,
			Area:    round3(polygonArea(ring)),
		})
	}
	return zones
}

// zoneName yields A..Z, then AA, AB, ...
func zoneName(i int) string {
	name := ""
	for {
		name = string(rune('A'+i%26)) + name
		i = i/26 - 1
		if i < 0 {
			return name
		}
	}
}

// snapLooseEnds moves each hanging segment endpoint onto the nearest
// point of another segment, when one lies within the snapping distance.
// This closes the small gaps detection leaves at wall junctions.
func snapLooseEnds(segs [][2]Point2, snapDistance float64) [][2]Point2 {
	out := make([][2]Point2, len(segs))
	copy(out, segs)
	for i := range out {
		for e := 0; e < 2; e++ {
			pt := out[i][e]
			if !looseEnd(out, i, pt) {
				continue
			}
			best := math.Inf(1)
			var target Point2
			for j := range out {
				if j == i {
					continue
				}
				cand := closestOnSegment(pt, out[j][0], out[j][1])
				if d := dist2(pt, cand); d < best {
					best = d
					target = cand
				}
			}
			if best <= snapDistance {
				out[i][e] = target
			}
		}
	}
	return out
}

// looseEnd reports whether endpoint pt of segment i touches no other
// segment.
func looseEnd(segs [][2]Point2, i int, pt Point2) bool {
	for j := range segs {
		if j == i {
			continue
		}
		if distanceToSegment(pt, segs[j][0], segs[j][1]) <= zoneQuantum*10 {
			return false
		}
	}
	return true
}

// closestOnSegment returns the point of segment ab nearest to p.
func closestOnSegment(p, a, b Point2) Point2 {
	abx, aby := b.X-a.X, b.Y-a.Y
	l2 := abx*abx + aby*aby
	if l2 == 0 {
		return a
	}
	t := ((p.X-a.X)*abx + (p.Y-a.Y)*aby) / l2
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return Point2{X: a.X + t*abx, Y: a.Y + t*aby}
}

type zoneNode struct{ x, y int64 }

func quantize(p Point2) zoneNode {
	return zoneNode{
		x: int64(math.Round(p.X / zoneQuantum)),
		y: int64(math.Round(p.Y / zoneQuantum)),
	}
}

func (n zoneNode) point() Point2 {
	return Point2{X: float64(n.x) * zoneQuantum, Y: float64(n.y) * zoneQuantum}
}

type zoneEdge struct{ a, b zoneNode }

// nodeArrangement splits every segment at its intersections with the
// others and at interior points other endpoints land on, then returns
// the unique undirected edges of the resulting planar graph.
func nodeArrangement(segs [][2]Point2) ([]zoneEdge, map[zoneNode][]zoneNode) {
	cuts := make([][]Point2, len(segs))
	for i := range segs {
		cuts[i] = []Point2{segs[i][0], segs[i][1]}
	}
	for i := 0; i < len(segs); i++ {
		for j := i + 1; j < len(segs); j++ {
			if p, ok := segmentIntersection(segs[i][0], segs[i][1], segs[j][0], segs[j][1]); ok {
				cuts[i] = append(cuts[i], p)
				cuts[j] = append(cuts[j], p)
			}
			// Endpoints resting on the other segment's interior also
			// split it (T junctions).
			for e := 0; e < 2; e++ {
				if pointOnSegment(segs[j][e], segs[i][0], segs[i][1], zoneQuantum*10) {
					cuts[i] = append(cuts[i], segs[j][e])
				}
				if pointOnSegment(segs[i][e], segs[j][0], segs[j][1], zoneQuantum*10) {
					cuts[j] = append(cuts[j], segs[i][e])
				}
			}
		}
	}

	edgeSet := make(map[zoneEdge]bool)
	adjacency := make(map[zoneNode][]zoneNode)
	for i := range segs {
		a, b := segs[i][0], segs[i][1]
		pts := cuts[i]
		// Order the cut points along the segment.
		dx, dy := b.X-a.X, b.Y-a.Y
		sort.Slice(pts, func(p, q int) bool {
			return (pts[p].X-a.X)*dx+(pts[p].Y-a.Y)*dy < (pts[q].X-a.X)*dx+(pts[q].Y-a.Y)*dy
		})
		prev := quantize(pts[0])
		for _, pt := range pts[1:] {
			cur := quantize(pt)
			if cur == prev {
				continue
			}
			e := zoneEdge{a: prev, b: cur}
			if prev.x > cur.x || (prev.x == cur.x && prev.y > cur.y) {
				e = zoneEdge{a: cur, b: prev}
			}
			if !edgeSet[e] {
				edgeSet[e] = true
				adjacency[e.a] = append(adjacency[e.a], e.b)
				adjacency[e.b] = append(adjacency[e.b], e.a)
			}
			prev = cur
		}
	}

	edges := make([]zoneEdge, 0, len(edgeSet))
	for e := range edgeSet {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].a != edges[j].a {
			if edges[i].a.x != edges[j].a.x {
				return edges[i].a.x < edges[j].a.x
			}
			return edges[i].a.y < edges[j].a.y
		}
		if edges[i].b.x != edges[j].b.x {
			return edges[i].b.x < edges[j].b.x
		}
		return edges[i].b.y < edges[j].b.y
	})
	return edges, adjacency
}

// polygonize walks every directed edge once, turning as sharply left as
// possible at each node. Counter-clockwise faces are the bounded rooms;
// the single clockwise face is the unbounded outside and is dropped.
func polygonize(edges []zoneEdge, adjacency map[zoneNode][]zoneNode) [][]Point2 {
	type directed struct{ from, to zoneNode }
	used := make(map[directed]bool, len(edges)*2)

	var faces [][]Point2
	for _, e := range edges {
		for _, d := range [2]directed{{e.a, e.b}, {e.b, e.a}} {
			if used[d] {
				continue
			}
			var ringNodes []zoneNode
			cur := d
			ok := true
			for {
				used[cur] = true
				ringNodes = append(ringNodes, cur.from)
				next, found := nextLeftTurn(adjacency, cur.from, cur.to)
				if !found {
					ok = false
					break
				}
				cur = directed{from: cur.to, to: next}
				if cur == d {
					break
				}
				if used[cur] {
					ok = false
					break
				}
				if len(ringNodes) > len(edges)*2 {
					ok = false
					break
				}
			}
			if !ok || len(ringNodes) < 3 {
				continue
			}
			ring := make([]Point2, len(ringNodes))
			for i, n := range ringNodes {
				ring[i] = n.point()
			}
			if polygonSignedArea(ring) > geomEpsilon {
				faces = append(faces, ring)
			}
		}
	}
	return faces
}

// nextLeftTurn picks, among to's neighbors, the edge making the sharpest
// left turn relative to arriving along from→to. Walking with this rule
// traces each bounded face counter-clockwise.
func nextLeftTurn(adjacency map[zoneNode][]zoneNode, from, to zoneNode) (zoneNode, bool) {
	inAngle := math.Atan2(float64(from.y-to.y), float64(from.x-to.x))
	best := math.Inf(1)
	var pick zoneNode
	found := false
	for _, n := range adjacency[to] {
		if n == from && len(adjacency[to]) > 1 {
			continue
		}
		outAngle := math.Atan2(float64(n.y-to.y), float64(n.x-to.x))
		// Clockwise angle from the reversed incoming edge to the
		// candidate, in (0, 2π].
		delta := inAngle - outAngle
		for delta <= 0 {
			delta += 2 * math.Pi
		}
		for delta > 2*math.Pi {
			delta -= 2 * math.Pi
		}
		if delta < best {
			best = delta
			pick = n
			found = true
		}
	}
	return pick, found
}

// ringCentroid is the vertex average, good enough for ordering faces.
func ringCentroid(ring []Point2) Point2 {
	var c Point2
	for _, p := range ring {
		c.X += p.X
		c.Y += p.Y
	}
	n := float64(len(ring))
	return Point2{X: c.X / n, Y: c.Y / n}
}
