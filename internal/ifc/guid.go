package ifc

import "github.com/google/uuid"

// guidChars is the 64-character alphabet of the IFC compressed GUID
// encoding (ISO 10303 base64 variant).
const guidChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz_$"

// NewGlobalID returns a fresh 22-character IFC GlobalId.
func NewGlobalID() string {
	return CompressGUID(uuid.New())
}

// CompressGUID encodes a 128-bit UUID into the 22-character IFC form:
// the first byte in two characters, then five groups of three bytes in
// four characters each.
func CompressGUID(u uuid.UUID) string {
	out := make([]byte, 0, 22)

	encode := func(v uint32, n int) {
		chunk := make([]byte, n)
		for i := n - 1; i >= 0; i-- {
			chunk[i] = guidChars[v%64]
			v /= 64
		}
		out = append(out, chunk...)
	}

	encode(uint32(u[0]), 2)
	for i := 1; i < 16; i += 3 {
		encode(uint32(u[i])<<16|uint32(u[i+1])<<8|uint32(u[i+2]), 4)
	}
	return string(out)
}
