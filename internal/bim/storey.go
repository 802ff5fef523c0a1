package bim

import "fmt"

// StoreyCloud is the subset of a prepared cloud falling strictly between
// two consecutive slabs, indexed back into the prepared cloud.
type StoreyCloud struct {
	Storey  int
	Indices []int
}

// SplitStoreys slices the cloud into per-storey bands. Storey n holds the
// points strictly above slab n's top surface and strictly below slab
// n+1's bottom surface, so slab inliers never leak into wall detection.
// N slabs yield N-1 storeys.
func SplitStoreys(cloud *PreparedCloud, slabs []Slab) ([]StoreyCloud, error) {
	if len(slabs) < 2 {
		return nil, fmt.Errorf("split storeys: need at least two slabs, have %d", len(slabs))
	}
	storeys := make([]StoreyCloud, 0, len(slabs)-1)
	for i := 0; i < len(slabs)-1; i++ {
		low := slabs[i].TopZ()
		high := slabs[i+1].BottomZ
		sc := StoreyCloud{Storey: i + 1}
		for idx, pt := range cloud.Points {
			if pt.Z > low && pt.Z < high {
				sc.Indices = append(sc.Indices, idx)
			}
		}
		storeys = append(storeys, sc)
	}
	return storeys, nil
}

// StoreyBand is the vertical extent assigned to walls of one storey.
// FloorZ is the walkable surface (top of the floor slab); wall-local
// point heights are measured from it.
type StoreyBand struct {
	BaseZ  float64
	Height float64
	FloorZ float64
}

// TopZ returns the band's upper elevation.
func (b StoreyBand) TopZ() float64 { return b.BaseZ + b.Height }

// BandForStorey computes the wall base elevation and height for storey i
// (0-based) given the full slab stack. Interior walls of the ground
// storey start at the bottom of the lowest slab so the model has no gap
// below them; upper storeys start at the top of their floor slab. The
// topmost storey's walls extend through the thickness of the roof slab;
// the ground storey of a multi-storey stack stops at the next slab's
// bottom. Exterior walls always run slab top to next slab bottom. The
// configured top-storey height only applies when the slab stack is
// degenerate and yields a non-positive band.
func BandForStorey(slabs []Slab, i int, exterior bool, topStoreyHeight float64) StoreyBand {
	floor := slabs[i].TopZ()
	if exterior {
		return StoreyBand{
			BaseZ:  round3(floor),
			Height: round3(slabs[i+1].BottomZ - floor),
			FloorZ: round3(floor),
		}
	}
	last := i == len(slabs)-2
	var base, height float64
	if i == 0 {
		base = slabs[0].BottomZ
		if last {
			height = slabs[1].BottomZ - base + slabs[1].Thickness
		} else {
			height = slabs[1].BottomZ - base
		}
	} else {
		base = floor
		height = slabs[i+1].BottomZ - base + slabs[i+1].Thickness
	}
	if height <= 0 {
		height = topStoreyHeight + slabs[i+1].Thickness
	}
	return StoreyBand{BaseZ: round3(base), Height: round3(height), FloorZ: round3(floor)}
}
