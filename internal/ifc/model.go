package ifc

import (
	"fmt"
	"io"
	"math"
)

// ProjectInfo carries the metadata written into the project roots and
// the file header.
type ProjectInfo struct {
	Name         string
	LongName     string
	Description  string
	Phase        string
	Version      string
	Organization string
	AuthorGiven  string
	AuthorFamily string

	SiteLatitude  float64
	SiteLongitude float64
	SiteElevation float64

	WindowColour [3]float64
	DoorColour   [3]float64

	FileName string
}

// Element is a created product instance and its GlobalId.
type Element struct {
	Ref      Ref
	GlobalID string
}

// Storey is a created IfcBuildingStorey.
type Storey struct {
	Element
	placement Ref
	elevation float64
}

// WallElement is a created IfcWall together with the context the
// opening builder needs: the wall placement and its plan geometry.
type WallElement struct {
	Element
	storey    Storey
	placement Ref
	start     [2]float64
	end       [2]float64
	thickness float64
}

// OpeningKind selects the fill built into a wall opening.
type OpeningKind int

const (
	KindWindow OpeningKind = iota
	KindDoor
)

// OpeningSpec describes one void and its fill in wall-local terms:
// Offset along the axis from the wall start, Sill above the wall base.
type OpeningSpec struct {
	Kind   OpeningKind
	ID     string
	Width  float64
	Height float64
	Sill   float64
	Offset float64
}

// OpeningResult reports the created void and fill.
type OpeningResult struct {
	Opening Element
	Fill    Element
}

// Model assembles an IFC4 building model entity by entity. Create one
// with NewModel, add storeys and elements, then Write the STEP file.
// The zero value is not usable.
type Model struct {
	file *File

	ownerHistory Ref
	project      Ref
	site         Ref
	building     Ref

	bodyCtx Ref
	bodySub Ref
	axisSub Ref

	windowMaterial Ref
	doorMaterial   Ref
	info           ProjectInfo
}

// NewModel creates the file header, unit assignment, representation
// contexts and the Project/Site/Building spatial roots.
func NewModel(info ProjectInfo) *Model {
	f := NewFile(info.FileName)
	f.Header.Author = info.AuthorGiven + " " + info.AuthorFamily
	f.Header.Organization = info.Organization
	f.Header.OriginatingSystem = "Cloud2BIM - " + info.Version

	m := &Model{file: f, info: info}

	units := m.unitAssignment()
	worldPlacement := m.axis2Placement3D(
		m.point3(0, 0, 0),
		m.direction(0, 0, 1),
		m.direction(1, 0, 0),
	)
	m.bodyCtx = f.Add("IfcGeometricRepresentationContext",
		"Body", "Model", 3, 0.0001, worldPlacement, nil)
	m.bodySub = f.Add("IfcGeometricRepresentationSubContext",
		"Body", "Model", Star, Star, Star, Star, m.bodyCtx, nil, Enum("MODEL_VIEW"), nil)
	m.axisSub = f.Add("IfcGeometricRepresentationSubContext",
		"Axis", "Model", Star, Star, Star, Star, m.bodyCtx, nil, Enum("MODEL_VIEW"), nil)

	m.project = f.Add("IfcProject",
		NewGlobalID(), nil, info.Name, info.Description, nil,
		info.LongName, info.Phase, []Ref{m.bodyCtx}, units)

	org := f.Add("IfcOrganization", nil, info.Organization, nil, nil, nil)
	app := f.Add("IfcApplication", org, info.Version, info.Name, "Cloud2BIM")
	person := f.Add("IfcPerson",
		nil, info.AuthorFamily, info.AuthorGiven, nil, nil, nil, nil, nil)
	personOrg := f.Add("IfcPersonAndOrganization", person, org, nil)
	m.ownerHistory = f.Add("IfcOwnerHistory",
		personOrg, app, nil, Enum("NOTDEFINED"), nil, nil, nil,
		int(f.Header.Timestamp.Unix()))

	m.site = f.Add("IfcSite",
		NewGlobalID(), m.ownerHistory, "Site", nil, nil, nil, nil, nil,
		Enum("ELEMENT"),
		degreesToCompound(info.SiteLatitude),
		degreesToCompound(info.SiteLongitude),
		info.SiteElevation, nil, nil)
	f.Add("IfcRelAggregates",
		NewGlobalID(), m.ownerHistory, nil, nil, m.project, []Ref{m.site})

	buildingPlacement := f.Add("IfcLocalPlacement", nil, m.axis2Placement3D(
		m.point3(0, 0, 0),
		m.direction(0, 0, 1),
		m.direction(1, 0, 0),
	))
	m.building = f.Add("IfcBuilding",
		NewGlobalID(), m.ownerHistory, "Building", nil, "IfcBuilding",
		buildingPlacement, nil, nil, Enum("ELEMENT"),
		info.SiteElevation, nil, nil)
	f.Add("IfcRelAggregates",
		NewGlobalID(), m.ownerHistory, nil, nil, m.site, []Ref{m.building})

	return m
}

// File exposes the underlying entity arena, mainly for inspection.
func (m *Model) File() *File { return m.file }

// Write serializes the model.
func (m *Model) Write(w io.Writer) error { return m.file.Write(w) }

// AddStorey creates an IfcBuildingStorey at the given elevation and
// aggregates it under the building.
func (m *Model) AddStorey(name string, elevation float64) Storey {
	placement := m.localPlacementZ(elevation, 0)
	gid := NewGlobalID()
	storey := m.file.Add("IfcBuildingStorey",
		gid, m.ownerHistory, name, nil, nil, placement, nil, nil,
		Enum("ELEMENT"), elevation)
	m.file.Add("IfcRelAggregates",
		NewGlobalID(), m.ownerHistory, nil, nil, m.building, []Ref{storey})
	return Storey{
		Element:   Element{Ref: storey, GlobalID: gid},
		placement: placement,
		elevation: elevation,
	}
}

// AddSlab creates an extruded slab from a plan ring at the given bottom
// elevation and contains it in the storey.
func (m *Model) AddSlab(st Storey, name string, ring [][2]float64, z, thickness float64, material string) Element {
	profile := m.closedProfile("Slab perimeter", ring)
	placement := m.localPlacementZ(z, 0)
	extrusion := m.file.Add("IfcExtrudedAreaSolid",
		profile,
		m.axis2Placement3D(m.point3(0, 0, 0), m.direction(0, 0, 1), m.direction(1, 0, 0)),
		m.direction(0, 0, 1),
		thickness)
	shape := m.file.Add("IfcShapeRepresentation",
		m.bodySub, "Body", "SweptSolid", []Ref{extrusion})

	gid := NewGlobalID()
	slab := m.file.Add("IfcSlab",
		gid, m.ownerHistory, name, nil, "base", placement,
		m.file.Add("IfcProductDefinitionShape", nil, nil, []Ref{shape}),
		nil, nil)
	mat := m.file.Add("IfcMaterial", material, nil, nil)
	m.file.Add("IfcRelAssociatesMaterial",
		NewGlobalID(), m.ownerHistory, nil, nil, []Ref{slab}, mat)
	m.containInStorey(slab, st, name)
	return Element{Ref: slab, GlobalID: gid}
}

// AddSpace creates an IfcSpace named "storey.zone" from the zone ring,
// extruded to the zone height, contained in the storey.
func (m *Model) AddSpace(st Storey, storeyNo, zoneNo int, ring [][2]float64, z, height float64) Element {
	profile := m.closedProfile("", ring)
	placement := m.localPlacementZ(z, 0)
	solid := m.file.Add("IfcExtrudedAreaSolid",
		profile,
		m.axis2Placement3D(m.point3(0, 0, 0), 0, 0),
		m.direction(0, 0, 1),
		height)
	shape := m.file.Add("IfcShapeRepresentation",
		m.bodySub, "Body", "SweptSolid", []Ref{solid})

	name := fmt.Sprintf("%d.%d", storeyNo, zoneNo)
	gid := NewGlobalID()
	space := m.file.Add("IfcSpace",
		gid, m.ownerHistory, name, nil, nil, placement,
		m.file.Add("IfcProductDefinitionShape", nil, nil, []Ref{shape}),
		fmt.Sprintf("Room No. %s", name),
		Enum("ELEMENT"), Enum("INTERNAL"), nil)
	m.file.Add("IfcRelContainedInSpatialStructure",
		NewGlobalID(), m.ownerHistory, nil, nil, []Ref{space}, st.Ref)
	return Element{Ref: space, GlobalID: gid}
}

// AddWall creates a wall running start→end at the given base elevation:
// axis polyline, swept rectangle solid, material layer set and usage,
// wall type with declaration, IsExternal property set and storey
// containment.
func (m *Model) AddWall(st Storey, name string, start, end [2]float64, baseZ, height, thickness float64, material string, external bool) WallElement {
	f := m.file

	layer := f.Add("IfcMaterialLayer",
		f.Add("IfcMaterial", material, nil, nil),
		thickness, false, "Core", nil, "LoadBearing", 99)
	layerSet := f.Add("IfcMaterialLayerSet",
		[]Ref{layer},
		fmt.Sprintf("Concrete load-bearing wall - %d mm", int(thickness*1000)), nil)
	layerSetUsage := f.Add("IfcMaterialLayerSetUsage",
		layerSet, Enum("AXIS2"), Enum("POSITIVE"), -thickness/2, nil)

	// Wall placements nest under the storey; the local z is the offset
	// from the storey elevation.
	placement := f.Add("IfcLocalPlacement", st.placement,
		m.axis2Placement3D(m.point3(0, 0, baseZ-st.elevation), 0, 0))

	axisLine := f.Add("IfcPolyline", []Ref{m.point2(start[0], start[1]), m.point2(end[0], end[1])})
	axisRep := f.Add("IfcShapeRepresentation",
		m.axisSub, "Axis", "Curve2D", []Ref{axisLine})

	dx, dy := end[0]-start[0], end[1]-start[1]
	length := math.Hypot(dx, dy)
	profile := f.Add("IfcRectangleProfileDef",
		Enum("AREA"), "Wall Perimeter",
		f.Add("IfcAxis2Placement2D",
			m.point2((start[0]+end[0])/2, (start[1]+end[1])/2),
			m.direction(dx/length, dy/length)),
		length, thickness)
	solid := f.Add("IfcExtrudedAreaSolid",
		profile, nil, m.direction(0, 0, 1), height)
	bodyRep := f.Add("IfcShapeRepresentation",
		m.axisSub, "Body", "SweptSolid", []Ref{solid})

	gid := NewGlobalID()
	wall := f.Add("IfcWall",
		gid, m.ownerHistory, name, nil, "Wall", placement,
		f.Add("IfcProductDefinitionShape", nil, nil, []Ref{axisRep, bodyRep}),
		nil, nil)
	f.Add("IfcRelAssociatesMaterial",
		NewGlobalID(), m.ownerHistory, nil, nil, []Ref{wall}, layerSetUsage)

	wallType := f.Add("IfcWallType",
		NewGlobalID(), m.ownerHistory,
		fmt.Sprintf("Concrete %d", int(thickness*1000)),
		fmt.Sprintf("Wall Load-bearing Concrete - thickness %d mm", int(thickness*1000)),
		nil, nil, nil, nil, "Wall Type", Enum("SOLIDWALL"))
	f.Add("IfcRelDefinesByType",
		NewGlobalID(), m.ownerHistory, nil, nil, []Ref{wall}, wallType)
	f.Add("IfcRelDeclares",
		NewGlobalID(), m.ownerHistory, nil, nil, m.project, []Ref{wallType})
	f.Add("IfcRelAssociatesMaterial",
		NewGlobalID(), m.ownerHistory, nil, nil, []Ref{wallType}, layerSet)

	isExternal := f.Add("IfcPropertySingleValue",
		"IsExternal", nil, Typed{Type: "IfcBoolean", Value: external}, nil)
	pset := f.Add("IfcPropertySet",
		NewGlobalID(), m.ownerHistory, "wall properties", nil, []Ref{isExternal})
	f.Add("IfcRelDefinesByProperties",
		NewGlobalID(), m.ownerHistory, "Cloud2BIM p_set", nil, []Ref{wall}, pset)

	m.containInStorey(wall, st, name)

	return WallElement{
		Element:   Element{Ref: wall, GlobalID: gid},
		storey:    st,
		placement: placement,
		start:     start,
		end:       end,
		thickness: thickness,
	}
}

// AddOpening voids the wall with an opening element and fills it with a
// window or door solid. The void spans the wall thickness; the fill is
// a thin pane at the same spot.
func (m *Model) AddOpening(w WallElement, spec OpeningSpec) OpeningResult {
	f := m.file

	openingPlacement := f.Add("IfcLocalPlacement", w.placement,
		m.axis2Placement3D(
			m.point3(w.start[0], w.start[1], 0),
			m.direction(0, 0, 1),
			m.direction(1, 0, 0)))

	openingGid := NewGlobalID()
	opening := f.Add("IfcOpeningElement",
		openingGid, m.ownerHistory, spec.ID, "Wall opening", nil,
		openingPlacement,
		m.openingShape(w, spec, w.thickness),
		nil, Enum("OPENING"))
	f.Add("IfcRelVoidsElement",
		NewGlobalID(), m.ownerHistory, nil, nil, w.Ref, opening)

	fillGid := NewGlobalID()
	var fill Ref
	switch spec.Kind {
	case KindWindow:
		fill = f.Add("IfcWindow",
			fillGid, m.ownerHistory, "Window", spec.ID, "Window",
			openingPlacement, m.openingShape(w, spec, 0.01), nil,
			spec.Height, spec.Width, Enum("NOTDEFINED"), Enum("NOTDEFINED"), nil)
		windowType := f.Add("IfcWindowType",
			NewGlobalID(), m.ownerHistory, "Window (simple)", nil,
			nil, nil, nil, nil, nil, Enum("NOTDEFINED"), Enum("NOTDEFINED"), nil, nil)
		f.Add("IfcRelDefinesByType",
			NewGlobalID(), m.ownerHistory, nil, nil, []Ref{fill}, windowType)
		m.assignMaterial(fill, m.fillMaterial(KindWindow))
	case KindDoor:
		fill = f.Add("IfcDoor",
			fillGid, m.ownerHistory, "Door", spec.ID, "Door",
			openingPlacement, m.openingShape(w, spec, 0.01), nil,
			spec.Height, spec.Width, Enum("NOTDEFINED"), Enum("NOTDEFINED"), nil)
		m.assignMaterial(fill, m.fillMaterial(KindDoor))
	}
	f.Add("IfcRelFillsElement",
		NewGlobalID(), m.ownerHistory, nil, nil, opening, fill)
	m.containInStorey(fill, w.storey, spec.ID)

	return OpeningResult{
		Opening: Element{Ref: opening, GlobalID: openingGid},
		Fill:    Element{Ref: fill, GlobalID: fillGid},
	}
}

// openingShape builds the swept solid for a void or fill of the given
// depth across the wall, positioned along the wall axis at the opening's
// offset and sill.
func (m *Model) openingShape(w WallElement, spec OpeningSpec, depth float64) Ref {
	f := m.file

	ring := [][2]float64{
		{0, -depth / 2},
		{0, depth / 2},
		{spec.Width, depth / 2},
		{spec.Width, -depth / 2},
	}
	profile := m.closedProfile("Opening perimeter", ring)

	dx, dy := w.end[0]-w.start[0], w.end[1]-w.start[1]
	length := math.Hypot(dx, dy)
	ux, uy := dx/length, dy/length
	solid := f.Add("IfcExtrudedAreaSolid",
		profile,
		m.axis2Placement3D(
			m.point3(ux*spec.Offset, uy*spec.Offset, spec.Sill),
			m.direction(0, 0, 1),
			m.direction(ux, uy, 0)),
		m.direction(0, 0, 1),
		spec.Height)
	shape := f.Add("IfcShapeRepresentation",
		m.bodyCtx, "Body", "SweptSolid", []Ref{solid})
	return f.Add("IfcProductDefinitionShape", nil, nil, []Ref{shape})
}

// fillMaterial lazily creates the shared coloured window or door
// material with its styled representation.
func (m *Model) fillMaterial(kind OpeningKind) Ref {
	switch kind {
	case KindWindow:
		if m.windowMaterial == 0 {
			m.windowMaterial = m.colouredMaterial("Window material", m.info.WindowColour, 0.7)
		}
		return m.windowMaterial
	default:
		if m.doorMaterial == 0 {
			m.doorMaterial = m.colouredMaterial("Door material", m.info.DoorColour, 0)
		}
		return m.doorMaterial
	}
}

func (m *Model) colouredMaterial(name string, rgb [3]float64, transparency float64) Ref {
	f := m.file
	colour := f.Add("IfcColourRgb", nil, rgb[0], rgb[1], rgb[2])
	rendering := f.Add("IfcSurfaceStyleRendering",
		colour, transparency,
		Typed{Type: "IfcNormalisedRatioMeasure", Value: 0.4},
		nil, nil, nil, nil, nil, Enum("NOTDEFINED"))
	style := f.Add("IfcSurfaceStyle", name, Enum("BOTH"), []Ref{rendering})
	assignment := f.Add("IfcPresentationStyleAssignment", []Ref{style})
	styledItem := f.Add("IfcStyledItem", nil, []Ref{assignment}, nil)
	styledRep := f.Add("IfcStyledRepresentation",
		m.bodySub, "Style", "Material", []Ref{styledItem})
	material := f.Add("IfcMaterial", name, nil, nil)
	f.Add("IfcMaterialDefinitionRepresentation",
		"Representation", "Material Definition Representation",
		[]Ref{styledRep}, material)
	return material
}

func (m *Model) assignMaterial(product, material Ref) {
	m.file.Add("IfcRelAssociatesMaterial",
		NewGlobalID(), m.ownerHistory, nil, nil, []Ref{product}, material)
}

func (m *Model) containInStorey(product Ref, st Storey, name string) {
	m.file.Add("IfcRelContainedInSpatialStructure",
		NewGlobalID(), m.ownerHistory, name, "Storey container for elements",
		[]Ref{product}, st.Ref)
}

func (m *Model) unitAssignment() Ref {
	f := m.file
	units := []Ref{
		f.Add("IfcSIUnit", Star, Enum("LENGTHUNIT"), nil, Enum("METRE")),
		f.Add("IfcSIUnit", Star, Enum("AREAUNIT"), nil, Enum("SQUARE_METRE")),
		f.Add("IfcSIUnit", Star, Enum("VOLUMEUNIT"), nil, Enum("CUBIC_METRE")),
		f.Add("IfcSIUnit", Star, Enum("PLANEANGLEUNIT"), nil, Enum("RADIAN")),
		f.Add("IfcSIUnit", Star, Enum("SOLIDANGLEUNIT"), nil, Enum("STERADIAN")),
	}
	return f.Add("IfcUnitAssignment", units)
}

func (m *Model) point2(x, y float64) Ref {
	return m.file.Add("IfcCartesianPoint", []float64{x, y})
}

func (m *Model) point3(x, y, z float64) Ref {
	return m.file.Add("IfcCartesianPoint", []float64{x, y, z})
}

func (m *Model) direction(ratios ...float64) Ref {
	return m.file.Add("IfcDirection", []float64(ratios))
}

// axis2Placement3D accepts zero Refs for unset axis or ref direction.
func (m *Model) axis2Placement3D(location, axis, refDirection Ref) Ref {
	var a, r any
	if axis != 0 {
		a = axis
	}
	if refDirection != 0 {
		r = refDirection
	}
	return m.file.Add("IfcAxis2Placement3D", location, a, r)
}

// localPlacementZ places at (0,0,z), optionally relative to a parent.
func (m *Model) localPlacementZ(z float64, relativeTo Ref) Ref {
	var rel any
	if relativeTo != 0 {
		rel = relativeTo
	}
	return m.file.Add("IfcLocalPlacement", rel,
		m.axis2Placement3D(
			m.point3(0, 0, z),
			m.direction(0, 0, 1),
			m.direction(1, 0, 0)))
}

// closedProfile builds an IfcArbitraryClosedProfileDef from a plan
// ring, closing it when the last vertex differs from the first.
func (m *Model) closedProfile(name string, ring [][2]float64) Ref {
	pts := make([]Ref, 0, len(ring)+1)
	for _, v := range ring {
		pts = append(pts, m.point2(v[0], v[1]))
	}
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		pts = append(pts, pts[0])
	}
	curve := m.file.Add("IfcPolyline", pts)
	var profileName any
	if name != "" {
		profileName = name
	}
	return m.file.Add("IfcArbitraryClosedProfileDef", Enum("AREA"), profileName, curve)
}

// degreesToCompound converts decimal degrees into the IFC compound
// plane angle (degrees, minutes, seconds, millionths of a second).
func degreesToCompound(deg float64) []any {
	sign := 1.0
	if deg < 0 {
		sign = -1.0
		deg = -deg
	}
	d := math.Floor(deg)
	minF := (deg - d) * 60
	mn := math.Floor(minF)
	secF := (minF - mn) * 60
	sec := math.Floor(secF)
	millionth := math.Round((secF - sec) * 1e6)
	return []any{
		int(sign * d), int(sign * mn), int(sign * sec), int(sign * millionth),
	}
}
