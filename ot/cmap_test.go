package ot

import "testing"

func TestCmapFormat0Lookup(t *testing.T) {
	b := make(binarySegm, 6+256)
	b[6+65] = 10 // 'A' -> glyph 10
	m, err := parseCmapFormat0(b)
	if err != nil {
		t.Fatalf("parseCmapFormat0: %v", err)
	}
	if got := m.Lookup('A'); got != 10 {
		t.Errorf("Lookup('A') = %d, want 10", got)
	}
	if got := m.Lookup(300); got != 0 {
		t.Errorf("Lookup(300) out of range = %d, want 0", got)
	}
	if got := m.ReverseLookup(10); got != 'A' {
		t.Errorf("ReverseLookup(10) = %q, want 'A'", got)
	}
}

func TestCmapFormat0TooShort(t *testing.T) {
	if _, err := parseCmapFormat0(binarySegm{0, 0, 0}); err == nil {
		t.Error("expected error for undersized format 0 table, got nil")
	}
}

func TestCmapFormat6Lookup(t *testing.T) {
	// firstCode=65 ('A'), 3 glyphs: A->10, B->11, C->12.
	b := binarySegm{
		0, 6, 0, 0, 0, 0, // format, length, language (unchecked by parser)
		0, 65, // firstCode
		0, 3, // entryCount
		0, 10, 0, 11, 0, 12,
	}
	m, err := parseCmapFormat6(b)
	if err != nil {
		t.Fatalf("parseCmapFormat6: %v", err)
	}
	if got := m.Lookup('B'); got != 11 {
		t.Errorf("Lookup('B') = %d, want 11", got)
	}
	if got := m.Lookup('Z'); got != 0 {
		t.Errorf("Lookup('Z') out of range = %d, want 0", got)
	}
	if got := m.ReverseLookup(12); got != 'C' {
		t.Errorf("ReverseLookup(12) = %q, want 'C'", got)
	}
}

func TestCmapFormat12Lookup(t *testing.T) {
	b := binarySegm{
		0, 12, 0, 0, 0, 0, 0, 0, // format, reserved, length
		0, 0, 0, 0, // language
		0, 0, 0, 1, // nGroups = 1
		0, 0, 0, 0x41, // startCharCode = 'A'
		0, 0, 0, 0x5A, // endCharCode = 'Z'
		0, 0, 0, 100, // startGlyphID = 100
	}
	m, err := parseCmapFormat12(b)
	if err != nil {
		t.Fatalf("parseCmapFormat12: %v", err)
	}
	if got := m.Lookup('A'); got != 100 {
		t.Errorf("Lookup('A') = %d, want 100", got)
	}
	if got := m.Lookup('C'); got != 102 {
		t.Errorf("Lookup('C') = %d, want 102", got)
	}
	if got := m.Lookup('a'); got != 0 {
		t.Errorf("Lookup('a') outside group = %d, want 0", got)
	}
	if got := m.ReverseLookup(102); got != 'C' {
		t.Errorf("ReverseLookup(102) = %q, want 'C'", got)
	}
}

func TestCmapFormat13Lookup(t *testing.T) {
	// Format 13 maps an entire range to one constant glyph ID (used for
	// e.g. a block of unassigned-but-rendered-identically codepoints).
	b := binarySegm{
		0, 13, 0, 0, 0, 0, 0, 0, // format, reserved, length
		0, 0, 0, 0, // language
		0, 0, 0, 1, // nGroups = 1
		0, 0, 0x1F, 0x00, // startCharCode
		0, 0, 0x1F, 0x0F, // endCharCode
		0, 0, 0, 7, // glyphID (constant across the whole range)
	}
	m, err := parseCmapFormat13(b)
	if err != nil {
		t.Fatalf("parseCmapFormat13: %v", err)
	}
	if got := m.Lookup(rune(0x1F00)); got != 7 {
		t.Errorf("Lookup(0x1F00) = %d, want 7", got)
	}
	if got := m.Lookup(rune(0x1F0F)); got != 7 {
		t.Errorf("Lookup(0x1F0F) = %d, want 7 (constant over range)", got)
	}
	if got := m.Lookup(rune(0x1F10)); got != 0 {
		t.Errorf("Lookup(0x1F10) outside range = %d, want 0", got)
	}
}

// TestCmapLookupNeverPanics exercises §8's "cmap -> advance lookup never
// throws" invariant: any rune, valid or not, against any format must return
// a zero GlyphIndex rather than panicking.
func TestCmapLookupNeverPanics(t *testing.T) {
	maps := []GlyphIndexMap{
		format0GlyphIndex{},
		format6GlyphIndex{firstCode: 10, glyphIdArray: nil},
		format12GlyphIndex{groups: nil},
		format13GlyphIndex{groups: nil},
	}
	runes := []rune{-1, 0, 'A', 0x10FFFF, -0x10FFFF}
	for _, m := range maps {
		for _, r := range runes {
			func() {
				defer func() {
					if rec := recover(); rec != nil {
						t.Errorf("%T.Lookup(%d) panicked: %v", m, r, rec)
					}
				}()
				if got := m.Lookup(r); got != 0 {
					t.Errorf("%T.Lookup(%d) on empty map = %d, want 0", m, r, got)
				}
			}()
		}
	}
}
