package bim

import (
	"math"
	"testing"
)

func TestConvexHull_Rectangle(t *testing.T) {
	// A dense grid should hull down to the four corners.
	var pts []Point2
	for x := 0.0; x <= 4.0; x += 0.5 {
		for y := 0.0; y <= 6.0; y += 0.5 {
			pts = append(pts, Point2{X: x, Y: y})
		}
	}
	hull := convexHull(pts)
	if len(hull) != 4 {
		t.Fatalf("expected 4 hull vertices, got %d: %v", len(hull), hull)
	}
	if area := polygonArea(hull); math.Abs(area-24.0) > 1e-9 {
		t.Errorf("expected hull area 24, got %f", area)
	}
}

func TestConvexHull_Degenerate(t *testing.T) {
	hull := convexHull([]Point2{{1, 1}, {1, 1}, {2, 2}})
	if len(hull) != 2 {
		t.Errorf("expected 2 distinct points, got %d", len(hull))
	}
	if convexHull(nil) != nil {
		t.Error("expected nil hull for no points")
	}
}

func TestPolygonArea_OpenAndClosedRing(t *testing.T) {
	open := []Point2{{0, 0}, {4, 0}, {4, 6}, {0, 6}}
	closed := append(append([]Point2{}, open...), Point2{0, 0})
	if a := polygonArea(open); math.Abs(a-24) > 1e-9 {
		t.Errorf("open ring area: expected 24, got %f", a)
	}
	if a := polygonArea(closed); math.Abs(a-24) > 1e-9 {
		t.Errorf("closed ring area: expected 24, got %f", a)
	}
}

func TestPolygonSignedArea_Orientation(t *testing.T) {
	ccw := []Point2{{0, 0}, {2, 0}, {2, 2}, {0, 2}}
	cw := []Point2{{0, 0}, {0, 2}, {2, 2}, {2, 0}}
	if a := polygonSignedArea(ccw); a <= 0 {
		t.Errorf("expected positive area for CCW ring, got %f", a)
	}
	if a := polygonSignedArea(cw); a >= 0 {
		t.Errorf("expected negative area for CW ring, got %f", a)
	}
}

func TestPointInPolygon(t *testing.T) {
	ring := []Point2{{0, 0}, {4, 0}, {4, 6}, {0, 6}}
	if !pointInPolygon(Point2{2, 3}, ring) {
		t.Error("expected interior point inside")
	}
	if pointInPolygon(Point2{5, 3}, ring) {
		t.Error("expected exterior point outside")
	}
}

func TestDistanceToSegment(t *testing.T) {
	a, b := Point2{0, 0}, Point2{4, 0}
	if d := distanceToSegment(Point2{2, 3}, a, b); math.Abs(d-3) > 1e-9 {
		t.Errorf("perpendicular distance: expected 3, got %f", d)
	}
	// Beyond the segment end the distance is to the endpoint.
	if d := distanceToSegment(Point2{7, 0}, a, b); math.Abs(d-3) > 1e-9 {
		t.Errorf("endpoint distance: expected 3, got %f", d)
	}
	if d := distanceToSegment(Point2{1, 1}, a, a); math.Abs(d-math.Sqrt2) > 1e-9 {
		t.Errorf("degenerate segment: expected sqrt(2), got %f", d)
	}
}

func TestSegmentIntersection(t *testing.T) {
	p, ok := segmentIntersection(Point2{0, 0}, Point2{4, 4}, Point2{0, 4}, Point2{4, 0})
	if !ok {
		t.Fatal("expected crossing segments to intersect")
	}
	if math.Abs(p.X-2) > 1e-9 || math.Abs(p.Y-2) > 1e-9 {
		t.Errorf("expected intersection at (2,2), got (%f,%f)", p.X, p.Y)
	}

	if _, ok := segmentIntersection(Point2{0, 0}, Point2{4, 0}, Point2{0, 1}, Point2{4, 1}); ok {
		t.Error("parallel segments must not intersect")
	}
	if _, ok := segmentIntersection(Point2{0, 0}, Point2{1, 0}, Point2{2, -1}, Point2{2, 1}); ok {
		t.Error("intersection outside segment bounds must be rejected")
	}
}

func TestPointOnSegment_ExcludesEndpoints(t *testing.T) {
	a, b := Point2{0, 0}, Point2{4, 0}
	if !pointOnSegment(Point2{2, 0}, a, b, 1e-3) {
		t.Error("expected interior point on segment")
	}
	if pointOnSegment(a, a, b, 1e-3) {
		t.Error("endpoint must not count as on-segment")
	}
	if pointOnSegment(Point2{2, 0.5}, a, b, 1e-3) {
		t.Error("point off the segment must be rejected")
	}
}

func TestRound3(t *testing.T) {
	if v := round3(1.23456); v != 1.235 {
		t.Errorf("expected 1.235, got %v", v)
	}
	if v := round3(-0.0004); v != -0.0 {
		t.Errorf("expected 0, got %v", v)
	}
}
