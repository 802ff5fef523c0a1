package bim

import (
	"errors"
	"math"
	"testing"
)

// horizontalPlane fills a rectangular grid of points at elevation z.
func horizontalPlane(pts []Point3, z, step float64) []Point3 {
	for x := 0.0; x <= 4.0+1e-9; x += step {
		for y := 0.0; y <= 6.0+1e-9; y += step {
			pts = append(pts, Point3{X: x, Y: y, Z: z})
		}
	}
	return pts
}

func preparedFromPoints(t *testing.T, pts []Point3) *PreparedCloud {
	t.Helper()
	prepared, err := PreparePointCloud(&PointCloud{Points: pts}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return prepared
}

func TestDetectSlabs_TwoPlanes(t *testing.T) {
	var pts []Point3
	pts = horizontalPlane(pts, 0.0, 0.2)
	pts = horizontalPlane(pts, 3.0, 0.2)
	cloud := preparedFromPoints(t, pts)

	slabs, err := DetectSlabs(cloud, SlabParamsFromConfig(DefaultConfig()))
	if err != nil {
		t.Fatal(err)
	}
	if len(slabs) != 2 {
		t.Fatalf("expected 2 slabs, got %d", len(slabs))
	}

	if slabs[0].Storey != 1 || slabs[1].Storey != 2 {
		t.Errorf("expected storeys 1,2, got %d,%d", slabs[0].Storey, slabs[1].Storey)
	}
	if math.Abs(slabs[0].BottomZ-0.0) > 1e-9 {
		t.Errorf("floor slab bottom: expected 0, got %f", slabs[0].BottomZ)
	}
	if math.Abs(slabs[1].BottomZ-3.0) > 1e-9 {
		t.Errorf("ceiling slab bottom: expected 3, got %f", slabs[1].BottomZ)
	}
	if slabs[0].Thickness != DefaultSlabThickness {
		t.Errorf("expected configured thickness, got %f", slabs[0].Thickness)
	}

	for i, s := range slabs {
		if len(s.Footprint) < 3 {
			t.Fatalf("slab %d: degenerate footprint %v", i, s.Footprint)
		}
		if area := polygonArea(s.Footprint); math.Abs(area-24.0) > 1.0 {
			t.Errorf("slab %d: footprint area %f, expected about 24", i, area)
		}
		if len(s.PointIndices) == 0 {
			t.Errorf("slab %d: no point indices", i)
		}
	}
}

func TestDetectSlabs_SortedByElevation(t *testing.T) {
	// Feed the upper plane first; the result still comes back bottom-up.
	var pts []Point3
	pts = horizontalPlane(pts, 3.0, 0.2)
	pts = horizontalPlane(pts, 0.0, 0.2)
	cloud := preparedFromPoints(t, pts)

	slabs, err := DetectSlabs(cloud, SlabParamsFromConfig(DefaultConfig()))
	if err != nil {
		t.Fatal(err)
	}
	if len(slabs) != 2 || slabs[0].BottomZ >= slabs[1].BottomZ {
		t.Fatalf("expected ascending slabs, got %+v", slabs)
	}
}

func TestDetectSlabs_SinglePlane(t *testing.T) {
	cloud := preparedFromPoints(t, horizontalPlane(nil, 0.0, 0.2))
	if _, err := DetectSlabs(cloud, SlabParamsFromConfig(DefaultConfig())); !errors.Is(err, ErrNoSlabs) {
		t.Errorf("expected ErrNoSlabs for one plane, got %v", err)
	}
}

func TestDetectSlabs_EmptyCloud(t *testing.T) {
	if _, err := DetectSlabs(nil, SlabParamsFromConfig(DefaultConfig())); !errors.Is(err, ErrEmptyPointCloud) {
		t.Errorf("expected ErrEmptyPointCloud, got %v", err)
	}
}

func TestDetectSlabs_NearbyLevelsCollapse(t *testing.T) {
	// Two dense levels 0.1 m apart are one slab surface, not two.
	var pts []Point3
	pts = horizontalPlane(pts, 0.0, 0.2)
	pts = horizontalPlane(pts, 0.16, 0.2)
	pts = horizontalPlane(pts, 3.0, 0.2)
	cloud := preparedFromPoints(t, pts)

	slabs, err := DetectSlabs(cloud, SlabParamsFromConfig(DefaultConfig()))
	if err != nil {
		t.Fatal(err)
	}
	if len(slabs) != 2 {
		t.Fatalf("expected peak merge to leave 2 slabs, got %d", len(slabs))
	}
}
