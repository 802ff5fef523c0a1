package bim

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DefaultSlabPeakFraction is the minimum height of a vertical-density
// local maximum relative to the tallest bin for it to count as a
// floor/ceiling candidate. Bins below this are clutter (furniture tops,
// window sills) rather than structural plates.
const DefaultSlabPeakFraction = 0.25

// SlabParams are the inputs to DetectSlabs.
type SlabParams struct {
	// Thickness of the slabs to extract. Inliers are taken within
	// ±Thickness/2 of each density peak.
	Thickness float64
	// ZStep is the bin size of the vertical density histogram.
	ZStep float64
	// Resolution is the planar grid pitch the footprint is snapped to.
	Resolution float64
	// PeakFraction gates local maxima relative to the tallest bin.
	// Zero selects DefaultSlabPeakFraction.
	PeakFraction float64
}

// SlabParamsFromConfig derives the slab detector inputs from a job config.
func SlabParamsFromConfig(cfg Config) SlabParams {
	return SlabParams{
		Thickness:  cfg.SlabThickness,
		ZStep:      cfg.SlabZStep,
		Resolution: cfg.VoxelSize,
	}
}

// DetectSlabs finds horizontal floor/ceiling plates from the vertical
// point-density histogram of the cloud. Local density maxima are
// candidate surfaces; for each surviving maximum the inlier band is
// extracted, the plane elevation refined to the inlier mean, and the 2-D
// footprint computed as the convex hull of the inliers snapped to the
// planar resolution grid. Maxima closer than the slab thickness merge
// into the denser one.
//
// Fewer than two maxima means no storey structure exists and the job
// cannot continue: ErrNoSlabs is returned.
func DetectSlabs(cloud *PreparedCloud, p SlabParams) ([]Slab, error) {
	if cloud == nil || len(cloud.Points) == 0 {
		return nil, fmt.Errorf("detect slabs: %w", ErrEmptyPointCloud)
	}

	zMin, zMax := cloud.Points[0].Z, cloud.Points[0].Z
	for _, pt := range cloud.Points {
		if pt.Z < zMin {
			zMin = pt.Z
		}
		if pt.Z > zMax {
			zMax = pt.Z
		}
	}

	nBins := int(math.Floor((zMax-zMin)/p.ZStep)) + 1
	counts := make([]int, nBins)
	for _, pt := range cloud.Points {
		bin := int(math.Floor((pt.Z - zMin) / p.ZStep))
		if bin >= nBins {
			bin = nBins - 1
		}
		counts[bin]++
	}

	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	frac := p.PeakFraction
	if frac == 0 {
		frac = DefaultSlabPeakFraction
	}
	threshold := int(math.Ceil(frac * float64(maxCount)))
	if threshold < 1 {
		threshold = 1
	}

	// Local maxima of the histogram above the clutter threshold.
	type peak struct {
		bin   int
		count int
	}
	var peaks []peak
	for i, c := range counts {
		if c < threshold {
			continue
		}
		if i > 0 && counts[i-1] > c {
			continue
		}
		if i < nBins-1 && counts[i+1] > c {
			continue
		}
		// A flat-topped plateau yields one peak at its first bin.
		if i > 0 && counts[i-1] == c {
			continue
		}
		peaks = append(peaks, peak{bin: i, count: c})
	}

	// Merge peaks closer than the slab thickness; the denser one wins.
	minGapBins := int(math.Ceil(p.Thickness / p.ZStep))
	merged := peaks[:0]
	for _, pk := range peaks {
		if len(merged) > 0 && pk.bin-merged[len(merged)-1].bin < minGapBins {
			if pk.count > merged[len(merged)-1].count {
				merged[len(merged)-1] = pk
			}
			continue
		}
		merged = append(merged, pk)
	}

	if len(merged) < 2 {
		return nil, fmt.Errorf("detect slabs: found %d density maxima: %w", len(merged), ErrNoSlabs)
	}

	slabs := make([]Slab, 0, len(merged))
	for _, pk := range merged {
		binLow := zMin + float64(pk.bin)*p.ZStep
		binHigh := binLow + p.ZStep

		// Refine the plane elevation to the mean z of the peak bin, then
		// take the inlier band around the refined plane.
		var binZ []float64
		for _, pt := range cloud.Points {
			if pt.Z >= binLow && pt.Z < binHigh {
				binZ = append(binZ, pt.Z)
			}
		}
		if len(binZ) == 0 {
			continue
		}
		planeZ := stat.Mean(binZ, nil)

		half := p.Thickness / 2
		var inliers []int
		bottom := math.Inf(1)
		for i, pt := range cloud.Points {
			if math.Abs(pt.Z-planeZ) <= half {
				inliers = append(inliers, i)
				if pt.Z < bottom {
					bottom = pt.Z
				}
			}
		}
		if len(inliers) == 0 {
			continue
		}

		slabs = append(slabs, Slab{
			BottomZ:      round3(bottom),
			Thickness:    p.Thickness,
			Footprint:    slabFootprint(cloud, inliers, p.Resolution),
			PointIndices: sourceIndices(cloud, inliers),
		})
	}

	if len(slabs) < 2 {
		return nil, fmt.Errorf("detect slabs: %d usable surfaces: %w", len(slabs), ErrNoSlabs)
	}

	sort.Slice(slabs, func(i, j int) bool { return slabs[i].BottomZ < slabs[j].BottomZ })
	for i := range slabs {
		slabs[i].Storey = i + 1
	}
	return slabs, nil
}

// slabFootprint computes the convex-hull boundary of the inliers snapped
// to the planar resolution grid. Convexity is an accepted simplification:
// floor plates of the target building stock are convex at the tolerance
// the downstream IFC consumers care about.
func slabFootprint(cloud *PreparedCloud, inliers []int, resolution float64) []Point2 {
	if resolution <= 0 {
		resolution = DefaultVoxelSize
	}
	snapped := make([]Point2, 0, len(inliers))
	for _, idx := range inliers {
		pt := cloud.Points[idx]
		snapped = append(snapped, Point2{
			X: math.Round(pt.X/resolution) * resolution,
			Y: math.Round(pt.Y/resolution) * resolution,
		})
	}
	hull := convexHull(snapped)
	for i := range hull {
		hull[i].X = round3(hull[i].X)
		hull[i].Y = round3(hull[i].Y)
	}
	return hull
}

// sourceIndices maps prepared-cloud indices back to the caller's cloud.
func sourceIndices(cloud *PreparedCloud, prepared []int) []int {
	out := make([]int, len(prepared))
	for i, idx := range prepared {
		out[i] = cloud.SourceIndex[idx]
	}
	return out
}
