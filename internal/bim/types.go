// Package bim implements the geometric element-detection pipeline that
// reconstructs a structured building model from an unstructured indoor
// point cloud: slab detection from vertical density, per-storey wall
// detection from planar occupancy, opening detection from local density
// histograms and zone tracing from the wall graph. The pipeline package
// entry point is Processor, which sequences the stages and hands the
// detected elements to internal/ifc for serialization.
package bim

// Point2 is a point in the horizontal (plan) plane, metres.
type Point2 struct {
	X, Y float64
}

// Point3 is a point in world coordinates, metres, Z up.
type Point3 struct {
	X, Y, Z float64
}

// RGB is a normalised colour sample in [0,1] per channel.
type RGB struct {
	R, G, B float64
}

// PointCloud is an ordered set of scan points with optional per-point
// colour. Colors is either empty or the same length as Points. A cloud is
// immutable for the lifetime of a job; detectors index into it and report
// source indices back out, they never reorder or mutate it.
type PointCloud struct {
	Points []Point3
	Colors []RGB
}

// Len returns the number of points in the cloud.
func (pc *PointCloud) Len() int { return len(pc.Points) }

// HasColors reports whether per-point colour data is present.
func (pc *PointCloud) HasColors() bool { return len(pc.Colors) == len(pc.Points) && len(pc.Colors) > 0 }

// Slab is a horizontal floor or ceiling plate detected from a peak in the
// vertical point-density histogram.
type Slab struct {
	// Storey is the 1-based ordinal of the slab, counted bottom-up.
	Storey int
	// BottomZ is the elevation of the underside of the slab.
	BottomZ float64
	// Thickness of the plate. Always > 0.
	Thickness float64
	// Footprint is the closed 2-D boundary ring of the slab's horizontal
	// extent. First and last vertex are distinct; consumers close the ring.
	Footprint []Point2
	// PointIndices are indices into the source cloud of the inlier points.
	PointIndices []int
}

// TopZ returns the elevation of the top surface of the slab.
func (s *Slab) TopZ() float64 { return s.BottomZ + s.Thickness }

// WallLabel classifies a wall as part of the building envelope or an
// internal partition.
type WallLabel string

const (
	WallExterior WallLabel = "exterior"
	WallInterior WallLabel = "interior"
)

// Wall is a vertical planar element detected from an elongated dense
// region of a storey's planar occupancy grid.
type Wall struct {
	// ID is unique across the whole job, assigned in detection order.
	ID int
	// Storey is the 1-based storey the wall belongs to.
	Storey int
	// Start and End are the endpoints of the wall centerline in plan.
	Start, End Point2
	// Thickness of the wall, within the configured bounds.
	Thickness float64
	// Material label assigned from configuration.
	Material string
	// Label marks the wall exterior or interior.
	Label WallLabel
	// BaseZ is the elevation of the wall base (storey placement).
	BaseZ float64
	// Height of the wall. Always > 0.
	Height float64
	// PointIndices are indices into the source cloud.
	PointIndices []int
}

// Length returns the centerline length of the wall in plan.
func (w *Wall) Length() float64 {
	dx := w.End.X - w.Start.X
	dy := w.End.Y - w.Start.Y
	return hypot2(dx, dy)
}

// WallLocalPoint is a storey point expressed in a wall's local frame:
// X runs along the wall axis starting at 0 at the wall start, Z is the
// height above the wall base. Index is the point's index in the source
// cloud so openings can be mapped back to scan points.
type WallLocalPoint struct {
	X, Z  float64
	Index int
}

// OpeningType distinguishes the two kinds of wall voids the detector
// emits.
type OpeningType string

const (
	OpeningDoor   OpeningType = "door"
	OpeningWindow OpeningType = "window"
)

// Opening is a rectangular void in a wall, located in the wall's local
// frame. The horizontal range [XStart,XEnd] and vertical range [ZMin,ZMax]
// are non-degenerate and contained within the owning wall's extent.
type Opening struct {
	// WallID is the ID of the owning Wall.
	WallID int
	Type   OpeningType
	// XStart/XEnd bound the void along the wall axis, from the wall start.
	XStart, XEnd float64
	// ZMin/ZMax bound the void vertically, from the wall base.
	ZMin, ZMax float64
	// PointIndices are source-cloud indices of points on the void's frame.
	PointIndices []int
}

// Width returns the horizontal extent of the opening.
func (o *Opening) Width() float64 { return o.XEnd - o.XStart }

// Height returns the vertical extent of the opening.
func (o *Opening) Height() float64 { return o.ZMax - o.ZMin }

// Zone is an enclosed room polygon traced from a storey's wall graph.
type Zone struct {
	// Name is the per-storey zone label ("A", "B", ...) in detection order.
	Name string
	// Storey is the 1-based storey the zone belongs to.
	Storey int
	// Polygon is the room boundary ring in plan coordinates.
	Polygon []Point2
	// Height is the clear height of the zone, taken from the storey walls.
	Height float64
	// Area is the polygon area in square metres.
	Area float64
}
