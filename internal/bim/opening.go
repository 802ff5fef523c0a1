package bim

import (
	"math"
	"sort"
)

// defaultOpeningFillRatio is the minimum share of a void's bounding
// rectangle its empty cells must cover. Ragged low-density patches fail
// this and are not treated as openings.
const defaultOpeningFillRatio = 0.7

// OpeningParams are the inputs to DetectOpenings for one wall.
type OpeningParams struct {
	// Resolution and GridCoefficient size the occupancy cells, as in
	// wall detection.
	Resolution      float64
	GridCoefficient float64
	// MinWidth and MinHeight reject small voids.
	MinWidth  float64
	MinHeight float64
	// MaxAspectRatio rejects slit-like voids.
	MaxAspectRatio float64
	// DoorZMax is the highest sill elevation still counted as a door.
	DoorZMax float64
	// DoorMinHeight is the minimum height of a door void.
	DoorMinHeight float64
	// MinZTop is the minimum top elevation for a window void.
	MinZTop float64
}

// OpeningParamsFromConfig derives the opening detector inputs from a job
// config.
func OpeningParamsFromConfig(cfg Config) OpeningParams {
	return OpeningParams{
		Resolution:      cfg.VoxelSize,
		GridCoefficient: cfg.GridCoefficient,
		MinWidth:        cfg.MinOpeningWidth,
		MinHeight:       cfg.MinOpeningHeight,
		MaxAspectRatio:  cfg.MaxOpeningAspectRatio,
		DoorZMax:        cfg.DoorZMax,
		DoorMinHeight:   cfg.DoorMinHeight,
		MinZTop:         cfg.OpeningMinZTop,
	}
}

type openingCell struct{ ix, iz int }

// DetectOpenings finds door and window voids in one wall. The wall's
// local-frame points are rasterized into a length-by-height occupancy
// histogram; connected regions of empty cells that do not reach the
// wall's vertical edges or its top are candidate voids (reaching the
// floor is allowed, that is what doors do). A candidate must be wide and
// tall enough, not too slender, and rectangular enough to be a real
// opening. A void sitting on the floor with door height is a door; a
// void whose top clears the window line is a window; anything ambiguous
// is discarded.
//
// A solid wall legitimately yields an empty result.
func DetectOpenings(wall DetectedWall, p OpeningParams) []Opening {
	if len(wall.LocalPoints) == 0 {
		return nil
	}
	length := wall.Length()
	// The grid covers the extent the points actually reach; padding it
	// to the nominal wall height would surround the point band with
	// phantom empty rows.
	var zTop float64
	for _, lp := range wall.LocalPoints {
		if lp.Z > zTop {
			zTop = lp.Z
		}
	}
	cellSize := p.Resolution * p.GridCoefficient
	if cellSize <= 0 {
		cellSize = DefaultVoxelSize * DefaultGridCoefficient
	}
	nx := int(math.Ceil(length / cellSize))
	nz := int(math.Ceil(zTop / cellSize))
	if nx < 3 || nz < 2 {
		return nil
	}

	counts := make([]int, nx*nz)
	for _, lp := range wall.LocalPoints {
		ix := int(math.Floor(lp.X / cellSize))
		iz := int(math.Floor(lp.Z / cellSize))
		if ix < 0 || ix >= nx || iz < 0 || iz >= nz {
			continue
		}
		counts[iz*nx+ix]++
	}

	visited := make([]bool, nx*nz)
	var openings []Opening
	for start := 0; start < nx*nz; start++ {
		if visited[start] || counts[start] > 0 {
			continue
		}
		// 4-connected flood fill over empty cells.
		component := []openingCell{{ix: start % nx, iz: start / nx}}
		visited[start] = true
		touchesEdge := false
		for head := 0; head < len(component); head++ {
			c := component[head]
			if c.ix == 0 || c.ix == nx-1 || c.iz == nz-1 {
				touchesEdge = true
			}
			for _, d := range [4]openingCell{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
				n := openingCell{ix: c.ix + d.ix, iz: c.iz + d.iz}
				if n.ix < 0 || n.ix >= nx || n.iz < 0 || n.iz >= nz {
					continue
				}
				i := n.iz*nx + n.ix
				if !visited[i] && counts[i] == 0 {
					visited[i] = true
					component = append(component, n)
				}
			}
		}
		if touchesEdge {
			continue
		}

		if o, ok := classifyVoid(component, wall, cellSize, zTop, p); ok {
			openings = append(openings, o)
		}
	}

	sort.Slice(openings, func(i, j int) bool { return openings[i].XStart < openings[j].XStart })
	return openings
}

// classifyVoid turns one empty-cell component into a door or window, or
// rejects it.
func classifyVoid(component []openingCell, wall DetectedWall, cellSize, zTop float64, p OpeningParams) (Opening, bool) {
	ix0, ix1 := component[0].ix, component[0].ix
	iz0, iz1 := component[0].iz, component[0].iz
	for _, c := range component {
		if c.ix < ix0 {
			ix0 = c.ix
		}
		if c.ix > ix1 {
			ix1 = c.ix
		}
		if c.iz < iz0 {
			iz0 = c.iz
		}
		if c.iz > iz1 {
			iz1 = c.iz
		}
	}
	rectCells := (ix1 - ix0 + 1) * (iz1 - iz0 + 1)
	if float64(len(component)) < defaultOpeningFillRatio*float64(rectCells) {
		return Opening{}, false
	}

	xStart := float64(ix0) * cellSize
	xEnd := float64(ix1+1) * cellSize
	zMin := float64(iz0) * cellSize
	zMax := float64(iz1+1) * cellSize
	if xEnd > wall.Length() {
		xEnd = wall.Length()
	}
	if zMax > zTop {
		zMax = zTop
	}
	width := xEnd - xStart
	height := zMax - zMin
	if width < p.MinWidth || height < p.MinHeight {
		return Opening{}, false
	}
	aspect := width / height
	if aspect < 1 {
		aspect = 1 / aspect
	}
	if aspect > p.MaxAspectRatio {
		return Opening{}, false
	}

	var typ OpeningType
	switch {
	case zMin <= p.DoorZMax && height >= p.DoorMinHeight:
		typ = OpeningDoor
	case zMax >= p.MinZTop:
		typ = OpeningWindow
	default:
		return Opening{}, false
	}

	var indices []int
	for _, lp := range wall.LocalPoints {
		if lp.X >= xStart && lp.X <= xEnd && lp.Z >= zMin && lp.Z <= zMax {
			indices = append(indices, lp.Index)
		}
	}
	sort.Ints(indices)

	return Opening{
		Type:         typ,
		XStart:       round3(xStart),
		XEnd:         round3(xEnd),
		ZMin:         round3(zMin),
		ZMax:         round3(zMax),
		PointIndices: indices,
	}, true
}
