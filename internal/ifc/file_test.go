package ifc

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, f *File) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.String()
}

func TestFile_WriteHeader(t *testing.T) {
	f := NewFile("model.ifc")
	f.Header.Timestamp = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	f.Header.Author = "Jane Doe"
	f.Header.Organization = "Acme"

	out := writeFile(t, f)
	assert.True(t, strings.HasPrefix(out, "ISO-10303-21;\nHEADER;\n"))
	assert.Contains(t, out, "FILE_DESCRIPTION(('ViewDefinition [DesignTransferView_V1.0]'),'2;1');")
	assert.Contains(t, out, "'model.ifc','2025-03-14T09:30:00',('Jane Doe'),('Acme')")
	assert.Contains(t, out, "FILE_SCHEMA(('IFC4'));")
	assert.True(t, strings.HasSuffix(out, "ENDSEC;\nEND-ISO-10303-21;\n"))
}

func TestFile_EntityNumbering(t *testing.T) {
	f := NewFile("t.ifc")
	a := f.Add("IfcCartesianPoint", []float64{0, 0, 0})
	b := f.Add("IfcDirection", []float64{0, 0, 1})
	require.Equal(t, Ref(1), a)
	require.Equal(t, Ref(2), b)

	out := writeFile(t, f)
	assert.Contains(t, out, "#1=IFCCARTESIANPOINT((0.,0.,0.));")
	assert.Contains(t, out, "#2=IFCDIRECTION((0.,0.,1.));")
}

func TestFile_ArgumentRendering(t *testing.T) {
	f := NewFile("t.ifc")
	ref := f.Add("IfcCartesianPoint", []float64{1.5, 2})
	f.Add("IfcTest",
		nil,               // $
		Star,              // *
		ref,               // #1
		Ref(0),            // unset ref -> $
		"O'Brien",         // quote doubling
		Enum("ELEMENT"),   // .ELEMENT.
		true,              // .T.
		false,             // .F.
		42,                // integer
		3.0,               // real gets a decimal point
		Typed{Type: "IfcBoolean", Value: true},
		[]any{1, "x"},
		[]Ref{ref, ref},
	)

	out := writeFile(t, f)
	assert.Contains(t, out, "#1=IFCCARTESIANPOINT((1.5,2.));")
	assert.Contains(t, out,
		"#2=IFCTEST($,*,#1,$,'O''Brien',.ELEMENT.,.T.,.F.,42,3.,IFCBOOLEAN(.T.),(1,'x'),(#1,#1));")
}

func TestFile_ByTypeAndCount(t *testing.T) {
	f := NewFile("t.ifc")
	f.Add("IfcWall", "a")
	f.Add("IfcSlab", "b")
	f.Add("IfcWall", "c")

	require.Equal(t, 2, f.Count("IfcWall"))
	require.Equal(t, 1, f.Count("ifcslab")) // case-insensitive
	refs := f.ByType("IFCWALL")
	require.Equal(t, []Ref{1, 3}, refs)
	assert.Equal(t, "IfcWall", f.Type(refs[0]))
	assert.Equal(t, "", f.Type(Ref(99)))
}

func TestFile_DeterministicOutput(t *testing.T) {
	build := func() string {
		f := NewFile("t.ifc")
		f.Header.Timestamp = time.Unix(0, 0).UTC()
		f.Add("IfcCartesianPoint", []float64{0.1, 0.2, 0.3})
		f.Add("IfcDirection", []float64{1, 0, 0})
		return writeFile(t, f)
	}
	assert.Equal(t, build(), build())
}

func TestFormatReal(t *testing.T) {
	cases := map[float64]string{
		0:      "0.",
		3:      "3.",
		-2.5:   "-2.5",
		0.0001: "0.0001",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatReal(in))
	}
}
