package bim

import (
	"math"
	"sort"
)

// defaultWallCellMinPoints is the occupancy threshold for a grid cell to
// count as wall material. At the default voxel and grid sizes a real
// wall projects tens of points per cell; stray returns project one or
// two.
const defaultWallCellMinPoints = 3

// WallParams are the inputs to DetectWalls for one storey.
type WallParams struct {
	// Resolution is the planar point resolution (voxel size).
	Resolution float64
	// GridCoefficient scales Resolution into the occupancy cell size.
	GridCoefficient float64
	// MinLength rejects candidate rectangles shorter than this.
	MinLength float64
	// MinThickness and MaxThickness bound accepted wall thickness.
	MinThickness float64
	MaxThickness float64
	// ExteriorThickness, when positive, overrides the fitted thickness
	// of walls classified exterior.
	ExteriorThickness float64
	// ExteriorScan marks every wall exterior (outdoor survey).
	ExteriorScan bool
	// Material name stamped on every detected wall.
	Material string
	// CellMinPoints is the per-cell occupancy threshold. Zero selects
	// defaultWallCellMinPoints.
	CellMinPoints int
}

// WallParamsFromConfig derives the wall detector inputs from a job config.
func WallParamsFromConfig(cfg Config) WallParams {
	return WallParams{
		Resolution:        cfg.VoxelSize,
		GridCoefficient:   cfg.GridCoefficient,
		MinLength:         cfg.MinWallLength,
		MinThickness:      cfg.MinWallThickness,
		MaxThickness:      cfg.MaxWallThickness,
		ExteriorThickness: cfg.ExteriorWallThickness,
		ExteriorScan:      cfg.ExteriorScan,
		Material:          cfg.IFC.MaterialForWalls,
	}
}

// DetectedWall couples a wall with the local-frame view of its points.
// Local x runs along the wall axis from the start endpoint, local z is
// height above the storey floor surface. The opening detector consumes
// this frame.
type DetectedWall struct {
	Wall
	// FloorZ is the storey floor surface the local z is measured from.
	FloorZ      float64
	LocalPoints []WallLocalPoint
}

type wallCell struct{ ix, iy int }

// DetectWalls fits wall rectangles to one storey's points. The storey is
// projected onto the horizontal plane and rasterized into an occupancy
// grid; connected runs of occupied cells are clustered, each cluster's
// principal direction is found by 2-D PCA, and a centerline-plus-
// thickness rectangle is fit in that frame. Candidates shorter than the
// minimum length or with thickness outside the configured bounds are
// dropped. A wall whose midpoint lies near the bounding footprint ring
// is labelled exterior.
//
// An empty storey yields an empty result; the caller decides whether
// that is fatal for the whole job.
func DetectWalls(cloud *PreparedCloud, storey StoreyCloud, band StoreyBand, footprint []Point2, p WallParams) []DetectedWall {
	if len(storey.Indices) == 0 {
		return nil
	}
	cellSize := p.Resolution * p.GridCoefficient
	if cellSize <= 0 {
		cellSize = DefaultVoxelSize * DefaultGridCoefficient
	}
	minPts := p.CellMinPoints
	if minPts <= 0 {
		minPts = defaultWallCellMinPoints
	}

	xMin, yMin := math.Inf(1), math.Inf(1)
	for _, idx := range storey.Indices {
		pt := cloud.Points[idx]
		if pt.X < xMin {
			xMin = pt.X
		}
		if pt.Y < yMin {
			yMin = pt.Y
		}
	}

	grid := make(map[wallCell][]int)
	for _, idx := range storey.Indices {
		pt := cloud.Points[idx]
		c := wallCell{
			ix: int(math.Floor((pt.X - xMin) / cellSize)),
			iy: int(math.Floor((pt.Y - yMin) / cellSize)),
		}
		grid[c] = append(grid[c], idx)
	}

	occupied := make([]wallCell, 0, len(grid))
	for c, members := range grid {
		if len(members) >= minPts {
			occupied = append(occupied, c)
		}
	}
	// Map iteration order is random; sort for a deterministic flood fill.
	sort.Slice(occupied, func(i, j int) bool {
		if occupied[i].ix != occupied[j].ix {
			return occupied[i].ix < occupied[j].ix
		}
		return occupied[i].iy < occupied[j].iy
	})
	occSet := make(map[wallCell]bool, len(occupied))
	for _, c := range occupied {
		occSet[c] = true
	}
	info := cellOrientations(occupied, occSet)

	// Two perpendicular walls meet in a single connected blob of cells, so
	// a plain flood fill cannot separate them. Instead, grow straight runs:
	// seed at the cell whose neighbourhood is most line-like and admit
	// neighbours that share the seed's orientation and stay within a
	// wall-thickness band around the seed line. Junction cells have no
	// clear orientation and end up in short leftover clusters that the
	// minimum-length filter drops.
	seeds := make([]wallCell, len(occupied))
	copy(seeds, occupied)
	sort.Slice(seeds, func(i, j int) bool {
		a, b := info[seeds[i]], info[seeds[j]]
		if a.anisotropy != b.anisotropy {
			return a.anisotropy > b.anisotropy
		}
		if seeds[i].ix != seeds[j].ix {
			return seeds[i].ix < seeds[j].ix
		}
		return seeds[i].iy < seeds[j].iy
	})

	const orientTol = 0.9 // cos 25 degrees, orientations are mod 180
	halfBand := p.MaxThickness/2 + cellSize

	visited := make(map[wallCell]bool, len(occupied))
	var walls []DetectedWall
	for _, seed := range seeds {
		if visited[seed] {
			continue
		}
		sd := info[seed]
		cluster := []wallCell{seed}
		visited[seed] = true
		for head := 0; head < len(cluster); head++ {
			c := cluster[head]
			for dx := -2; dx <= 2; dx++ {
				for dy := -2; dy <= 2; dy++ {
					if dx == 0 && dy == 0 {
						continue
					}
					n := wallCell{ix: c.ix + dx, iy: c.iy + dy}
					if !occSet[n] || visited[n] {
						continue
					}
					ni := info[n]
					if math.Abs(sd.dirX*ni.dirX+sd.dirY*ni.dirY) < orientTol {
						continue
					}
					rx := float64(n.ix-seed.ix) * cellSize
					ry := float64(n.iy-seed.iy) * cellSize
					if math.Abs(sd.dirX*ry-sd.dirY*rx) > halfBand {
						continue
					}
					visited[n] = true
					cluster = append(cluster, n)
				}
			}
		}

		var members []int
		for _, c := range cluster {
			members = append(members, grid[c]...)
		}
		if w, ok := fitWall(cloud, members, band, footprint, cellSize, p); ok {
			walls = append(walls, w)
		}
	}

	sort.Slice(walls, func(i, j int) bool {
		a, b := walls[i].Start, walls[j].Start
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return walls[i].End.X < walls[j].End.X
	})
	return walls
}

type cellOrient struct {
	dirX, dirY float64
	anisotropy float64
}

// cellOrientations estimates, per occupied cell, the direction of the
// wall run passing through it from the spread of occupied neighbours
// within two cells. Anisotropy is the eigenvalue contrast of that
// spread: near 1 on a straight run, near 0 at a junction.
func cellOrientations(occupied []wallCell, occSet map[wallCell]bool) map[wallCell]cellOrient {
	info := make(map[wallCell]cellOrient, len(occupied))
	for _, c := range occupied {
		var sx, sy, sxx, syy, sxy float64
		n := 0.0
		for dx := -2; dx <= 2; dx++ {
			for dy := -2; dy <= 2; dy++ {
				if !occSet[wallCell{ix: c.ix + dx, iy: c.iy + dy}] {
					continue
				}
				fx, fy := float64(dx), float64(dy)
				sx += fx
				sy += fy
				sxx += fx * fx
				syy += fy * fy
				sxy += fx * fy
				n++
			}
		}
		o := cellOrient{dirX: 1}
		if n > 1 {
			cxx := sxx/n - (sx/n)*(sx/n)
			cyy := syy/n - (sy/n)*(sy/n)
			cxy := sxy/n - (sx/n)*(sy/n)
			theta := 0.5 * math.Atan2(2*cxy, cxx-cyy)
			o.dirX = math.Cos(theta)
			o.dirY = math.Sin(theta)
			tr := cxx + cyy
			if tr > 0 {
				det := math.Sqrt((cxx-cyy)*(cxx-cyy)/4 + cxy*cxy)
				o.anisotropy = 2 * det / tr
			}
		}
		info[c] = o
	}
	return info
}

// fitWall fits a centerline rectangle to one cluster via principal
// component analysis of the planar coordinates.
func fitWall(cloud *PreparedCloud, members []int, band StoreyBand, footprint []Point2, cellSize float64, p WallParams) (DetectedWall, bool) {
	if len(members) < 2 {
		return DetectedWall{}, false
	}

	var meanX, meanY float64
	for _, idx := range members {
		meanX += cloud.Points[idx].X
		meanY += cloud.Points[idx].Y
	}
	n := float64(len(members))
	meanX /= n
	meanY /= n

	var cxx, cyy, cxy float64
	for _, idx := range members {
		dx := cloud.Points[idx].X - meanX
		dy := cloud.Points[idx].Y - meanY
		cxx += dx * dx
		cyy += dy * dy
		cxy += dx * dy
	}
	cxx /= n
	cyy /= n
	cxy /= n

	// Principal direction of a 2x2 covariance in closed form.
	theta := 0.5 * math.Atan2(2*cxy, cxx-cyy)
	dirX, dirY := math.Cos(theta), math.Sin(theta)
	nrmX, nrmY := -dirY, dirX

	uMin, uMax := math.Inf(1), math.Inf(-1)
	vMin, vMax := math.Inf(1), math.Inf(-1)
	for _, idx := range members {
		dx := cloud.Points[idx].X - meanX
		dy := cloud.Points[idx].Y - meanY
		u := dx*dirX + dy*dirY
		v := dx*nrmX + dy*nrmY
		if u < uMin {
			uMin = u
		}
		if u > uMax {
			uMax = u
		}
		if v < vMin {
			vMin = v
		}
		if v > vMax {
			vMax = v
		}
	}

	length := uMax - uMin
	thickness := vMax - vMin
	if length < thickness {
		// PCA picked the minor axis on a near-square cluster.
		length, thickness = thickness, length
		uMin, uMax, vMin, vMax = vMin, vMax, uMin, uMax
		dirX, dirY, nrmX, nrmY = nrmX, nrmY, dirX, dirY
	}
	if length < p.MinLength {
		return DetectedWall{}, false
	}
	if thickness < p.MinThickness || thickness > p.MaxThickness {
		return DetectedWall{}, false
	}

	vMid := (vMin + vMax) / 2
	start := Point2{X: meanX + dirX*uMin + nrmX*vMid, Y: meanY + dirY*uMin + nrmY*vMid}
	end := Point2{X: meanX + dirX*uMax + nrmX*vMid, Y: meanY + dirY*uMax + nrmY*vMid}

	// Canonical direction keeps repeated runs identical.
	flipped := end.X < start.X || (end.X == start.X && end.Y < start.Y)
	if flipped {
		start, end = end, start
	}

	label := WallInterior
	if p.ExteriorScan {
		label = WallExterior
	} else if len(footprint) >= 3 {
		mid := Point2{X: (start.X + end.X) / 2, Y: (start.Y + end.Y) / 2}
		if distanceToRing(mid, footprint) <= thickness/2+cellSize {
			label = WallExterior
		}
	}
	if label == WallExterior && p.ExteriorThickness > 0 {
		thickness = p.ExteriorThickness
	}

	locals := make([]WallLocalPoint, 0, len(members))
	sources := make([]int, 0, len(members))
	for _, idx := range members {
		dx := cloud.Points[idx].X - meanX
		dy := cloud.Points[idx].Y - meanY
		u := dx*dirX + dy*dirY
		x := u - uMin
		if flipped {
			x = uMax - u
		}
		locals = append(locals, WallLocalPoint{
			X:     x,
			Z:     cloud.Points[idx].Z - band.FloorZ,
			Index: cloud.SourceIndex[idx],
		})
		sources = append(sources, cloud.SourceIndex[idx])
	}
	sort.Slice(locals, func(i, j int) bool { return locals[i].Index < locals[j].Index })
	sort.Ints(sources)

	w := DetectedWall{
		FloorZ: band.FloorZ,
		Wall: Wall{
			Start:        Point2{X: round3(start.X), Y: round3(start.Y)},
			End:          Point2{X: round3(end.X), Y: round3(end.Y)},
			Thickness:    round3(thickness),
			Material:     p.Material,
			Label:        label,
			BaseZ:        band.BaseZ,
			Height:       band.Height,
			PointIndices: sources,
		},
		LocalPoints: locals,
	}
	return w, true
}
