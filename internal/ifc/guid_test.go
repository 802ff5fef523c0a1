package ifc

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewGlobalID_Shape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewGlobalID()
		if len(id) != 22 {
			t.Fatalf("expected 22 characters, got %d in %q", len(id), id)
		}
		for _, c := range id {
			if !strings.ContainsRune(guidChars, c) {
				t.Fatalf("character %q outside the IFC alphabet in %q", c, id)
			}
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestCompressGUID_Zero(t *testing.T) {
	if got := CompressGUID(uuid.UUID{}); got != "0000000000000000000000" {
		t.Errorf("expected all-zero encoding, got %q", got)
	}
}

func TestCompressGUID_FirstByte(t *testing.T) {
	// 0xFF = 3*64 + 63, so the leading byte encodes as "3$".
	u := uuid.UUID{0xFF}
	got := CompressGUID(u)
	if len(got) != 22 {
		t.Fatalf("expected 22 characters, got %d", len(got))
	}
	if got[:2] != "3$" {
		t.Errorf("expected prefix 3$, got %q", got[:2])
	}
	if got[2:] != "00000000000000000000" {
		t.Errorf("expected zero tail, got %q", got[2:])
	}
}

func TestCompressGUID_GroupEncoding(t *testing.T) {
	// Bytes 1..3 form the first 4-character group: 0x000001 -> "0001".
	u := uuid.UUID{0, 0, 0, 1}
	got := CompressGUID(u)
	if got[2:6] != "0001" {
		t.Errorf("expected group 0001, got %q", got[2:6])
	}
	// 65536 = 16*64^2, and index 16 in the alphabet is G.
	u = uuid.UUID{0, 1, 0, 0}
	got = CompressGUID(u)
	if got[2:6] != "0G00" {
		t.Errorf("expected group 0G00, got %q", got[2:6])
	}
}
