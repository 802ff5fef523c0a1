package bim

import (
	"errors"
	"testing"
)

func TestPreparePointCloud_Empty(t *testing.T) {
	if _, err := PreparePointCloud(&PointCloud{}, DefaultConfig()); !errors.Is(err, ErrEmptyPointCloud) {
		t.Errorf("expected ErrEmptyPointCloud, got %v", err)
	}
	if _, err := PreparePointCloud(nil, DefaultConfig()); !errors.Is(err, ErrEmptyPointCloud) {
		t.Errorf("expected ErrEmptyPointCloud for nil cloud, got %v", err)
	}
}

func TestPreparePointCloud_ColourLengthMismatch(t *testing.T) {
	cloud := &PointCloud{
		Points: []Point3{{0, 0, 0}, {1, 1, 1}},
		Colors: []RGB{{1, 0, 0}},
	}
	if _, err := PreparePointCloud(cloud, DefaultConfig()); err == nil {
		t.Error("expected error for colour length mismatch")
	}
}

func TestPreparePointCloud_Dilution(t *testing.T) {
	cloud := &PointCloud{}
	for i := 0; i < 10; i++ {
		cloud.Points = append(cloud.Points, Point3{X: float64(i)})
	}
	cfg := DefaultConfig()
	cfg.DilutePointCloud = true
	cfg.DilutionFactor = 3

	prepared, err := PreparePointCloud(cloud, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if prepared.Len() != 4 {
		t.Fatalf("expected 4 points after dilution by 3, got %d", prepared.Len())
	}
	want := []int{0, 3, 6, 9}
	for i, idx := range prepared.SourceIndex {
		if idx != want[i] {
			t.Errorf("source index %d: expected %d, got %d", i, want[i], idx)
		}
	}
}

func TestPreparePointCloud_RoundsCoordinates(t *testing.T) {
	cloud := &PointCloud{Points: []Point3{{X: 1.23456, Y: -0.00049, Z: 2.0005}}}
	prepared, err := PreparePointCloud(cloud, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	p := prepared.Points[0]
	if p.X != 1.235 {
		t.Errorf("expected X rounded to 1.235, got %v", p.X)
	}
	if p.Z != 2.001 && p.Z != 2.0 {
		t.Errorf("expected Z rounded to 3 decimals, got %v", p.Z)
	}
}

func TestVoxelDownsample_OnePointPerVoxel(t *testing.T) {
	cloud := &PointCloud{Points: []Point3{
		{0.01, 0.01, 0.01},
		{0.02, 0.02, 0.02},
		{0.04, 0.04, 0.04},
		{1.01, 1.01, 1.01},
	}}
	prepared, err := PreparePointCloud(cloud, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	down := VoxelDownsample(prepared, 0.1)
	if down.Len() != 2 {
		t.Fatalf("expected 2 voxel representatives, got %d", down.Len())
	}
	// The representative is a real input point, nearest the centroid.
	if down.Points[0] != prepared.Points[1] {
		t.Errorf("expected the middle point as representative, got %v", down.Points[0])
	}
	if down.SourceIndex[1] != 3 {
		t.Errorf("expected source index 3 for second voxel, got %d", down.SourceIndex[1])
	}
}

func TestVoxelDownsample_NoopOnZeroLeaf(t *testing.T) {
	prepared, err := PreparePointCloud(&PointCloud{Points: []Point3{{1, 2, 3}}}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if got := VoxelDownsample(prepared, 0); got != prepared {
		t.Error("expected the same cloud back for leaf size 0")
	}
}
