package bim

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// MaxMappedPoints caps the source-index list stored per element in the
// point mapping file.
const MaxMappedPoints = 300

// PointMapping correlates generated IFC elements with the source cloud
// points they were detected from. Elements are keyed by the GlobalId of
// the emitted IFC entity; key order is insertion order, which external
// tooling relies on.
type PointMapping struct {
	slabs    []mappingElement
	walls    []mappingElement
	openings []mappingElement
}

type mappingElement struct {
	id     string
	points []int
	fields []mappingField
}

type mappingField struct {
	key   string
	value any
}

// NewPointMapping returns an empty mapping.
func NewPointMapping() *PointMapping { return &PointMapping{} }

// AddSlab records a slab element.
func (pm *PointMapping) AddSlab(id string, points []int, height, thickness float64) {
	pm.slabs = append(pm.slabs, mappingElement{
		id:     id,
		points: capPoints(points),
		fields: []mappingField{
			{"height", height},
			{"thickness", thickness},
			{"ifc_type", "IfcSlab"},
		},
	})
}

// AddWall records a wall element.
func (pm *PointMapping) AddWall(id string, points []int, storey int, thickness float64, label WallLabel) {
	pm.walls = append(pm.walls, mappingElement{
		id:     id,
		points: capPoints(points),
		fields: []mappingField{
			{"storey", storey},
			{"thickness", thickness},
			{"label", string(label)},
			{"ifc_type", "IfcWall"},
		},
	})
}

// AddOpening records an opening element. wallID is the mapping id of
// the owning wall.
func (pm *PointMapping) AddOpening(id string, points []int, wallID string, typ OpeningType) {
	pm.openings = append(pm.openings, mappingElement{
		id:     id,
		points: capPoints(points),
		fields: []mappingField{
			{"wall_id", wallID},
			{"type", string(typ)},
			{"ifc_type", "IfcOpeningElement"},
		},
	})
}

func capPoints(points []int) []int {
	if len(points) > MaxMappedPoints {
		points = points[:MaxMappedPoints]
	}
	out := make([]int, len(points))
	copy(out, points)
	return out
}

// Encode renders the mapping as 2-space-indented JSON in which every
// "points" array stays on a single line. The points arrays marshal as
// placeholder strings first, the tree is indented, and the placeholders
// are substituted with the compact arrays afterwards; this keeps the
// rest of the layout identical to a plain indented marshal.
func (pm *PointMapping) Encode() ([]byte, error) {
	var pointsArrays [][]int

	section := func(elems []mappingElement) orderedJSON {
		out := make(orderedJSON, 0, len(elems))
		for _, e := range elems {
			placeholder := fmt.Sprintf("__POINTS_%d__", len(pointsArrays))
			pointsArrays = append(pointsArrays, e.points)
			entry := orderedJSON{{"points", placeholder}}
			for _, f := range e.fields {
				entry = append(entry, orderedPair{f.key, f.value})
			}
			out = append(out, orderedPair{e.id, entry})
		}
		return out
	}

	root := orderedJSON{
		{"slabs", section(pm.slabs)},
		{"walls", section(pm.walls)},
		{"openings", section(pm.openings)},
	}

	raw, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("marshal point mapping: %w", err)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("indent point mapping: %w", err)
	}

	out := pretty.Bytes()
	for i, pts := range pointsArrays {
		placeholder := []byte(fmt.Sprintf("%q", fmt.Sprintf("__POINTS_%d__", i)))
		out = bytes.Replace(out, placeholder, compactIntArray(pts), 1)
	}
	return out, nil
}

// WriteFile encodes the mapping and writes it to path.
func (pm *PointMapping) WriteFile(path string) error {
	data, err := pm.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write point mapping: %w", err)
	}
	return nil
}

// compactIntArray renders [1, 2, 3] the way json.dumps does: comma and
// space separated, on one line.
func compactIntArray(v []int) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, n := range v {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(strconv.Itoa(n))
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

// orderedJSON is a JSON object that marshals its keys in slice order,
// unlike a Go map.
type orderedJSON []orderedPair

type orderedPair struct {
	key   string
	value any
}

func (o orderedJSON) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(p.value)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
