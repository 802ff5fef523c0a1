package bim

import (
	"math"
	"testing"
)

func rectWalls(x0, y0, x1, y1 float64) []Wall {
	return []Wall{
		{ID: 1, Storey: 1, Start: Point2{x0, y0}, End: Point2{x1, y0}, Thickness: 0.2},
		{ID: 2, Storey: 1, Start: Point2{x1, y0}, End: Point2{x1, y1}, Thickness: 0.2},
		{ID: 3, Storey: 1, Start: Point2{x0, y1}, End: Point2{x1, y1}, Thickness: 0.2},
		{ID: 4, Storey: 1, Start: Point2{x0, y0}, End: Point2{x0, y1}, Thickness: 0.2},
	}
}

func TestDetectZones_ClosedRectangle(t *testing.T) {
	zones := DetectZones(rectWalls(0, 0, 4, 6), DefaultZoneSnappingDistance, 3.0, 1)
	if len(zones) != 1 {
		t.Fatalf("expected 1 zone, got %d", len(zones))
	}
	z := zones[0]
	if z.Name != "A" {
		t.Errorf("expected zone name A, got %q", z.Name)
	}
	if z.Storey != 1 {
		t.Errorf("expected storey 1, got %d", z.Storey)
	}
	if math.Abs(z.Area-24.0) > 0.01 {
		t.Errorf("expected area 24, got %f", z.Area)
	}
	if z.Height != 3.0 {
		t.Errorf("expected height 3.0, got %f", z.Height)
	}
	if len(z.Polygon) < 4 {
		t.Errorf("expected at least 4 ring vertices, got %d", len(z.Polygon))
	}
}

func TestDetectZones_SnapsCornerGaps(t *testing.T) {
	// Detection trims wall ends at junctions; endpoints within the
	// snapping distance must still close the loop.
	walls := []Wall{
		{ID: 1, Start: Point2{0.3, 0}, End: Point2{3.7, 0}},
		{ID: 2, Start: Point2{4, 0.3}, End: Point2{4, 5.7}},
		{ID: 3, Start: Point2{0.3, 6}, End: Point2{3.7, 6}},
		{ID: 4, Start: Point2{0, 0.3}, End: Point2{0, 5.7}},
	}
	zones := DetectZones(walls, DefaultZoneSnappingDistance, 3.0, 1)
	if len(zones) != 1 {
		t.Fatalf("expected 1 zone after snapping, got %d", len(zones))
	}
	if zones[0].Area < 20 || zones[0].Area > 24 {
		t.Errorf("expected area close to 24, got %f", zones[0].Area)
	}
}

func TestDetectZones_TwoRooms(t *testing.T) {
	// A rectangle with a partition down the middle yields two zones,
	// named west to east.
	walls := append(rectWalls(0, 0, 4, 6),
		Wall{ID: 5, Storey: 1, Start: Point2{2, 0}, End: Point2{2, 6}, Thickness: 0.1})
	zones := DetectZones(walls, DefaultZoneSnappingDistance, 3.0, 1)
	if len(zones) != 2 {
		t.Fatalf("expected 2 zones, got %d", len(zones))
	}
	if zones[0].Name != "A" || zones[1].Name != "B" {
		t.Errorf("expected names A,B got %q,%q", zones[0].Name, zones[1].Name)
	}
	for i, z := range zones {
		if math.Abs(z.Area-12.0) > 0.01 {
			t.Errorf("zone %d: expected area 12, got %f", i, z.Area)
		}
	}
	if ringCentroid(zones[0].Polygon).X >= ringCentroid(zones[1].Polygon).X {
		t.Error("expected zones ordered west to east")
	}
}

func TestDetectZones_OpenGraph(t *testing.T) {
	walls := rectWalls(0, 0, 4, 6)[:3]
	if zones := DetectZones(walls, DefaultZoneSnappingDistance, 3.0, 1); len(zones) != 0 {
		t.Errorf("expected no zones for an open graph, got %d", len(zones))
	}
}

func TestDetectZones_TooFewWalls(t *testing.T) {
	walls := rectWalls(0, 0, 4, 6)[:2]
	if zones := DetectZones(walls, DefaultZoneSnappingDistance, 3.0, 1); zones != nil {
		t.Errorf("expected nil for fewer than 3 walls, got %v", zones)
	}
}

func TestZoneName(t *testing.T) {
	cases := map[int]string{0: "A", 1: "B", 25: "Z", 26: "AA", 27: "AB", 52: "BA"}
	for i, want := range cases {
		if got := zoneName(i); got != want {
			t.Errorf("zoneName(%d): expected %q, got %q", i, want, got)
		}
	}
}
