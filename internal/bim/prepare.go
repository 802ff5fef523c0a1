package bim

import (
	"fmt"
	"math"
)

// PreparedCloud is the working cloud after dilution and downsampling.
// SourceIndex maps each prepared point back to its index in the original
// cloud so that element point mappings always reference the input the
// caller supplied.
type PreparedCloud struct {
	PointCloud
	SourceIndex []int
}

// PreparePointCloud validates the raw cloud and applies the configured
// dilution. Coordinates are rounded to 3 decimals for precision
// consistency across detectors. An empty result is an input error.
func PreparePointCloud(cloud *PointCloud, cfg Config) (*PreparedCloud, error) {
	if cloud == nil || len(cloud.Points) == 0 {
		return nil, fmt.Errorf("prepare point cloud: %w", ErrEmptyPointCloud)
	}
	if len(cloud.Colors) != 0 && len(cloud.Colors) != len(cloud.Points) {
		return nil, fmt.Errorf("prepare point cloud: colour array length %d does not match %d points",
			len(cloud.Colors), len(cloud.Points))
	}

	step := 1
	if cfg.DilutePointCloud && cfg.DilutionFactor > 1 {
		step = cfg.DilutionFactor
	}

	n := (len(cloud.Points) + step - 1) / step
	out := &PreparedCloud{
		PointCloud:  PointCloud{Points: make([]Point3, 0, n)},
		SourceIndex: make([]int, 0, n),
	}
	hasColors := cloud.HasColors()
	if hasColors {
		out.Colors = make([]RGB, 0, n)
	}

	for i := 0; i < len(cloud.Points); i += step {
		p := cloud.Points[i]
		out.Points = append(out.Points, Point3{round3(p.X), round3(p.Y), round3(p.Z)})
		out.SourceIndex = append(out.SourceIndex, i)
		if hasColors {
			out.Colors = append(out.Colors, cloud.Colors[i])
		}
	}

	if len(out.Points) == 0 {
		return nil, fmt.Errorf("prepare point cloud: %w", ErrEmptyPointCloud)
	}
	return out, nil
}

// VoxelDownsample reduces the prepared cloud to one representative point
// per cubic voxel of the given leaf size: the point nearest the voxel
// centroid is kept, so every output point is a real scan sample. A leaf
// size <= 0 returns the cloud unchanged.
func VoxelDownsample(cloud *PreparedCloud, leafSize float64) *PreparedCloud {
	if cloud == nil || leafSize <= 0 || len(cloud.Points) == 0 {
		return cloud
	}

	type voxelAccum struct {
		sumX, sumY, sumZ float64
		count            int
		members          []int // indices into cloud.Points
	}

	voxels := make(map[[3]int64]*voxelAccum)
	order := make([][3]int64, 0)

	key := func(p Point3) [3]int64 {
		return [3]int64{
			int64(math.Floor(p.X / leafSize)),
			int64(math.Floor(p.Y / leafSize)),
			int64(math.Floor(p.Z / leafSize)),
		}
	}

	for i, p := range cloud.Points {
		k := key(p)
		v, ok := voxels[k]
		if !ok {
			v = &voxelAccum{}
			voxels[k] = v
			order = append(order, k)
		}
		v.sumX += p.X
		v.sumY += p.Y
		v.sumZ += p.Z
		v.count++
		v.members = append(v.members, i)
	}

	out := &PreparedCloud{
		PointCloud:  PointCloud{Points: make([]Point3, 0, len(order))},
		SourceIndex: make([]int, 0, len(order)),
	}
	hasColors := cloud.HasColors()
	if hasColors {
		out.Colors = make([]RGB, 0, len(order))
	}

	// Iterate in first-seen order so the output is deterministic.
	for _, k := range order {
		v := voxels[k]
		cx := v.sumX / float64(v.count)
		cy := v.sumY / float64(v.count)
		cz := v.sumZ / float64(v.count)

		best := v.members[0]
		bestD := math.Inf(1)
		for _, idx := range v.members {
			p := cloud.Points[idx]
			dx, dy, dz := p.X-cx, p.Y-cy, p.Z-cz
			d := dx*dx + dy*dy + dz*dz
			if d < bestD {
				bestD = d
				best = idx
			}
		}

		out.Points = append(out.Points, cloud.Points[best])
		out.SourceIndex = append(out.SourceIndex, cloud.SourceIndex[best])
		if hasColors {
			out.Colors = append(out.Colors, cloud.Colors[best])
		}
	}

	return out
}
