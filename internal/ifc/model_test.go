package ifc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProjectInfo() ProjectInfo {
	return ProjectInfo{
		Name:          "Test Project",
		LongName:      "A test project",
		Phase:         "Construction",
		Version:       "1.0",
		Organization:  "Acme",
		AuthorGiven:   "Jane",
		AuthorFamily:  "Doe",
		SiteLatitude:  50.1,
		SiteLongitude: 14.4,
		WindowColour:  [3]float64{0, 0, 1},
		DoorColour:    [3]float64{1, 0, 0},
		FileName:      "test_model.ifc",
	}
}

func squareRing(side float64) [][2]float64 {
	return [][2]float64{{0, 0}, {side, 0}, {side, side}, {0, side}}
}

func TestNewModel_SpatialRoots(t *testing.T) {
	m := NewModel(testProjectInfo())
	f := m.File()

	require.Equal(t, 1, f.Count("IfcProject"))
	require.Equal(t, 1, f.Count("IfcSite"))
	require.Equal(t, 1, f.Count("IfcBuilding"))
	assert.Equal(t, 5, f.Count("IfcSIUnit"))
	assert.Equal(t, 1, f.Count("IfcUnitAssignment"))
	assert.Equal(t, 1, f.Count("IfcGeometricRepresentationContext"))
	assert.Equal(t, 2, f.Count("IfcGeometricRepresentationSubContext"))
	// Project->Site and Site->Building.
	assert.Equal(t, 2, f.Count("IfcRelAggregates"))
	assert.Equal(t, 1, f.Count("IfcOwnerHistory"))
}

func TestModel_AddStorey(t *testing.T) {
	m := NewModel(testProjectInfo())
	st := m.AddStorey("Floor 0.20m", 0.2)

	require.NotZero(t, st.Ref)
	require.Len(t, st.GlobalID, 22)
	assert.Equal(t, 1, m.File().Count("IfcBuildingStorey"))
	// Storey aggregation joins the two root aggregates.
	assert.Equal(t, 3, m.File().Count("IfcRelAggregates"))
}

func TestModel_AddSlab(t *testing.T) {
	m := NewModel(testProjectInfo())
	st := m.AddStorey("Floor 0.20m", 0.2)
	el := m.AddSlab(st, "Slab 1", squareRing(4), 0, 0.2, "Concrete")

	require.Len(t, el.GlobalID, 22)
	f := m.File()
	assert.Equal(t, 1, f.Count("IfcSlab"))
	assert.Equal(t, 1, f.Count("IfcExtrudedAreaSolid"))
	assert.Equal(t, 1, f.Count("IfcArbitraryClosedProfileDef"))
	assert.Equal(t, 1, f.Count("IfcRelAssociatesMaterial"))
	assert.Equal(t, 1, f.Count("IfcRelContainedInSpatialStructure"))
}

func TestModel_AddWall(t *testing.T) {
	m := NewModel(testProjectInfo())
	st := m.AddStorey("Floor 0.20m", 0.2)
	w := m.AddWall(st, "Wall 1", [2]float64{0, 0}, [2]float64{4, 0}, 0, 3.2, 0.3, "Concrete", true)

	require.Len(t, w.GlobalID, 22)
	f := m.File()
	assert.Equal(t, 1, f.Count("IfcWall"))
	assert.Equal(t, 1, f.Count("IfcWallType"))
	assert.Equal(t, 1, f.Count("IfcMaterialLayer"))
	assert.Equal(t, 1, f.Count("IfcMaterialLayerSet"))
	assert.Equal(t, 1, f.Count("IfcMaterialLayerSetUsage"))
	assert.Equal(t, 1, f.Count("IfcRelDefinesByType"))
	assert.Equal(t, 1, f.Count("IfcRelDeclares"))
	// Wall usage and wall type each get a material association.
	assert.Equal(t, 2, f.Count("IfcRelAssociatesMaterial"))
	assert.Equal(t, 1, f.Count("IfcPropertySet"))
	assert.Equal(t, 1, f.Count("IfcRelDefinesByProperties"))
	// Axis polyline plus body solid.
	assert.Equal(t, 2, f.Count("IfcShapeRepresentation"))

	var buf bytes.Buffer
	require.NoError(t, m.Write(&buf))
	out := buf.String()
	assert.Contains(t, out, "'Concrete load-bearing wall - 300 mm'")
	assert.Contains(t, out, "'IsExternal',$,IFCBOOLEAN(.T.)")
	assert.Contains(t, out, "'wall properties'")
	assert.Contains(t, out, "'Cloud2BIM p_set'")
	assert.Contains(t, out, ".SOLIDWALL.")
}

func TestModel_AddOpening_Window(t *testing.T) {
	m := NewModel(testProjectInfo())
	st := m.AddStorey("Floor 0.20m", 0.2)
	w := m.AddWall(st, "Wall 1", [2]float64{0, 0}, [2]float64{4, 0}, 0, 3.2, 0.3, "Concrete", true)

	res := m.AddOpening(w, OpeningSpec{
		Kind: KindWindow, ID: "W01", Width: 1.2, Height: 1.4, Sill: 0.9, Offset: 1.0,
	})
	require.Len(t, res.Opening.GlobalID, 22)
	require.Len(t, res.Fill.GlobalID, 22)
	require.NotEqual(t, res.Opening.GlobalID, res.Fill.GlobalID)

	f := m.File()
	assert.Equal(t, 1, f.Count("IfcOpeningElement"))
	assert.Equal(t, 1, f.Count("IfcWindow"))
	assert.Equal(t, 1, f.Count("IfcWindowType"))
	assert.Equal(t, 0, f.Count("IfcDoor"))
	assert.Equal(t, 1, f.Count("IfcRelVoidsElement"))
	assert.Equal(t, 1, f.Count("IfcRelFillsElement"))
	// Window material styling.
	assert.Equal(t, 1, f.Count("IfcColourRgb"))
	assert.Equal(t, 1, f.Count("IfcSurfaceStyleRendering"))

	// A second window reuses the cached material.
	m.AddOpening(w, OpeningSpec{
		Kind: KindWindow, ID: "W02", Width: 1.2, Height: 1.4, Sill: 0.9, Offset: 2.6,
	})
	assert.Equal(t, 1, f.Count("IfcColourRgb"))
	assert.Equal(t, 2, f.Count("IfcWindow"))
}

func TestModel_AddOpening_Door(t *testing.T) {
	m := NewModel(testProjectInfo())
	st := m.AddStorey("Floor 0.20m", 0.2)
	w := m.AddWall(st, "Wall 1", [2]float64{0, 0}, [2]float64{4, 0}, 0, 3.2, 0.3, "Concrete", false)

	res := m.AddOpening(w, OpeningSpec{
		Kind: KindDoor, ID: "D01", Width: 0.9, Height: 2.1, Sill: 0.2, Offset: 1.5,
	})
	require.Len(t, res.Fill.GlobalID, 22)

	f := m.File()
	assert.Equal(t, 1, f.Count("IfcDoor"))
	assert.Equal(t, 0, f.Count("IfcWindow"))
	assert.Equal(t, 0, f.Count("IfcWindowType"))
	assert.Equal(t, 1, f.Count("IfcRelVoidsElement"))
	assert.Equal(t, 1, f.Count("IfcRelFillsElement"))
}

func TestModel_AddSpace(t *testing.T) {
	m := NewModel(testProjectInfo())
	st := m.AddStorey("Floor 0.20m", 0.2)
	el := m.AddSpace(st, 1, 1, squareRing(4), 0.2, 3.0)

	require.Len(t, el.GlobalID, 22)
	var buf bytes.Buffer
	require.NoError(t, m.Write(&buf))
	out := buf.String()
	assert.Contains(t, out, "'1.1'")
	assert.Contains(t, out, "'Room No. 1.1'")
	assert.Contains(t, out, ".INTERNAL.")
}

func TestModel_WriteParsesAsSTEP(t *testing.T) {
	m := NewModel(testProjectInfo())
	st := m.AddStorey("Floor 0.20m", 0.2)
	m.AddSlab(st, "Slab 1", squareRing(4), 0, 0.2, "Concrete")

	var buf bytes.Buffer
	require.NoError(t, m.Write(&buf))

	lines := strings.Split(buf.String(), "\n")
	inData := false
	for _, line := range lines {
		if line == "DATA;" {
			inData = true
			continue
		}
		if line == "ENDSEC;" {
			inData = false
			continue
		}
		if !inData || line == "" {
			continue
		}
		if !strings.HasPrefix(line, "#") || !strings.HasSuffix(line, ";") {
			t.Fatalf("malformed entity line %q", line)
		}
	}
}

func TestDegreesToCompound(t *testing.T) {
	got := degreesToCompound(50.5)
	require.Len(t, got, 4)
	assert.Equal(t, 50, got[0])
	assert.Equal(t, 30, got[1])
	assert.Equal(t, 0, got[2])

	neg := degreesToCompound(-50.5)
	assert.Equal(t, -50, neg[0])
	assert.Equal(t, -30, neg[1])
}
