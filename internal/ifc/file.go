// Package ifc builds IFC4 entity graphs and serializes them as STEP
// physical files (ISO 10303-21). The File type is a flat arena of typed
// entity instances; Model layers the building-element semantics on top.
package ifc

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// Ref is the instance id of one entity inside a File. The zero Ref is
// "unset" and serializes as $.
type Ref int

// Enum is an IFC enumeration literal, serialized as .VALUE. .
type Enum string

// Typed wraps a select value whose type must appear inline, e.g.
// IFCBOOLEAN(.T.) inside a property.
type Typed struct {
	Type  string
	Value any
}

type starToken struct{}

// Star is the STEP token for attributes derived in subtypes.
var Star starToken

type entity struct {
	typ  string
	args []any
}

// FileHeader carries the STEP header fields.
type FileHeader struct {
	Description       string
	Name              string
	Timestamp         time.Time
	Author            string
	Organization      string
	Preprocessor      string
	OriginatingSystem string
	Authorization     string
}

// File is an in-memory STEP file: an append-only arena of entity
// instances with 1-based ids.
type File struct {
	Header   FileHeader
	entities []entity
}

// NewFile returns an empty IFC4 file with the standard header defaults.
func NewFile(name string) *File {
	return &File{
		Header: FileHeader{
			Description:       "ViewDefinition [DesignTransferView_V1.0]",
			Name:              name,
			Timestamp:         time.Now(),
			OriginatingSystem: "Cloud2BIM",
			Authorization:     "None",
		},
	}
}

// Add appends one entity instance and returns its reference.
func (f *File) Add(typ string, args ...any) Ref {
	f.entities = append(f.entities, entity{typ: typ, args: args})
	return Ref(len(f.entities))
}

// Type returns the entity type name of r.
func (f *File) Type(r Ref) string {
	if r < 1 || int(r) > len(f.entities) {
		return ""
	}
	return f.entities[r-1].typ
}

// ByType returns the references of all instances of the given type, in
// creation order.
func (f *File) ByType(typ string) []Ref {
	var refs []Ref
	for i, e := range f.entities {
		if strings.EqualFold(e.typ, typ) {
			refs = append(refs, Ref(i+1))
		}
	}
	return refs
}

// Count returns the number of instances of the given type.
func (f *File) Count(typ string) int {
	n := 0
	for _, e := range f.entities {
		if strings.EqualFold(e.typ, typ) {
			n++
		}
	}
	return n
}

// Write serializes the file as a STEP physical file. Entities appear in
// creation order, so identical graphs produce identical output.
func (f *File) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	h := f.Header

	fmt.Fprintf(bw, "ISO-10303-21;\nHEADER;\n")
	fmt.Fprintf(bw, "FILE_DESCRIPTION((%s),'2;1');\n", quoteStep(h.Description))
	fmt.Fprintf(bw, "FILE_NAME(%s,%s,(%s),(%s),%s,%s,%s);\n",
		quoteStep(h.Name),
		quoteStep(h.Timestamp.Format("2006-01-02T15:04:05")),
		quoteStep(h.Author),
		quoteStep(h.Organization),
		quoteStep(h.Preprocessor),
		quoteStep(h.OriginatingSystem),
		quoteStep(h.Authorization))
	fmt.Fprintf(bw, "FILE_SCHEMA(('IFC4'));\nENDSEC;\nDATA;\n")

	var sb strings.Builder
	for i, e := range f.entities {
		sb.Reset()
		fmt.Fprintf(&sb, "#%d=%s(", i+1, strings.ToUpper(e.typ))
		for j, a := range e.args {
			if j > 0 {
				sb.WriteByte(',')
			}
			writeArg(&sb, a)
		}
		sb.WriteString(");\n")
		if _, err := bw.WriteString(sb.String()); err != nil {
			return fmt.Errorf("write entity #%d: %w", i+1, err)
		}
	}

	fmt.Fprintf(bw, "ENDSEC;\nEND-ISO-10303-21;\n")
	return bw.Flush()
}

func writeArg(sb *strings.Builder, a any) {
	switch v := a.(type) {
	case nil:
		sb.WriteByte('$')
	case starToken:
		sb.WriteByte('*')
	case Ref:
		if v == 0 {
			sb.WriteByte('$')
			return
		}
		fmt.Fprintf(sb, "#%d", int(v))
	case string:
		sb.WriteString(quoteStep(v))
	case Enum:
		sb.WriteByte('.')
		sb.WriteString(string(v))
		sb.WriteByte('.')
	case bool:
		if v {
			sb.WriteString(".T.")
		} else {
			sb.WriteString(".F.")
		}
	case int:
		sb.WriteString(strconv.Itoa(v))
	case float64:
		sb.WriteString(formatReal(v))
	case Typed:
		sb.WriteString(strings.ToUpper(v.Type))
		sb.WriteByte('(')
		writeArg(sb, v.Value)
		sb.WriteByte(')')
	case []any:
		sb.WriteByte('(')
		for i, item := range v {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeArg(sb, item)
		}
		sb.WriteByte(')')
	case []Ref:
		sb.WriteByte('(')
		for i, r := range v {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeArg(sb, r)
		}
		sb.WriteByte(')')
	case []float64:
		sb.WriteByte('(')
		for i, x := range v {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(formatReal(x))
		}
		sb.WriteByte(')')
	default:
		fmt.Fprintf(sb, "%v", v)
	}
}

// formatReal renders a STEP real, which must carry a decimal point or
// exponent even when integral.
func formatReal(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "0."
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += "."
	}
	return s
}

// quoteStep renders a STEP string literal, doubling embedded quotes.
func quoteStep(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
