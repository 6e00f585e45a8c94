package ot

import "testing"

func newTestHMtxTable(t *testing.T, data binarySegm, numGlyphs, numberOfHMetrics int) *HMtxTable {
	t.Helper()
	tbl := newHMtxTable(T("hmtx"), data, 0, uint32(len(data)))
	if err := tbl.parseAll(numGlyphs, numberOfHMetrics); err != nil {
		t.Fatalf("parseAll: %v", err)
	}
	return tbl
}

func TestHMtxTableLongMetricsOnly(t *testing.T) {
	// 3 glyphs, all carrying their own long metric: (aw, lsb) pairs.
	data := binarySegm{
		0x00, 0x64, 0x00, 0x01, // glyph 0: aw=100, lsb=1
		0x00, 0xC8, 0xFF, 0xFF, // glyph 1: aw=200, lsb=-1
		0x01, 0x2C, 0x00, 0x00, // glyph 2: aw=300, lsb=0
	}
	tbl := newTestHMtxTable(t, data, 3, 3)
	if tbl.GlyphCount() != 3 {
		t.Errorf("GlyphCount() = %d, want 3", tbl.GlyphCount())
	}
	aw, lsb, ok := tbl.HMetrics(1)
	if !ok {
		t.Fatal("HMetrics(1) not ok")
	}
	if aw != 200 || lsb != -1 {
		t.Errorf("HMetrics(1) = (%d, %d), want (200, -1)", aw, lsb)
	}
}

func TestHMtxTableTrailingGlyphsReuseLastAdvance(t *testing.T) {
	// 2 long metrics, then 2 glyphs that only carry a trailing LSB and
	// reuse the last long metric's advance width.
	data := binarySegm{
		0x00, 0x0A, 0x00, 0x00, // glyph 0: aw=10, lsb=0
		0x00, 0x14, 0x00, 0x02, // glyph 1: aw=20, lsb=2
		0x00, 0x05, // glyph 2: lsb=5 (tail)
		0x00, 0x07, // glyph 3: lsb=7 (tail)
	}
	tbl := newTestHMtxTable(t, data, 4, 2)

	aw2, lsb2, ok := tbl.HMetrics(2)
	if !ok {
		t.Fatal("HMetrics(2) not ok")
	}
	if aw2 != 20 || lsb2 != 5 {
		t.Errorf("HMetrics(2) = (%d, %d), want (20, 5) — tail glyphs reuse last long advance", aw2, lsb2)
	}

	aw3, lsb3, ok := tbl.HMetrics(3)
	if !ok {
		t.Fatal("HMetrics(3) not ok")
	}
	if aw3 != 20 || lsb3 != 7 {
		t.Errorf("HMetrics(3) = (%d, %d), want (20, 7)", aw3, lsb3)
	}
}

func TestHMtxTableAdvanceWidthNonNegative(t *testing.T) {
	data := binarySegm{
		0x00, 0x0A, 0x00, 0x00,
		0xFF, 0xFF, 0x00, 0x00, // aw=65535, stored unsigned so never negative
	}
	tbl := newTestHMtxTable(t, data, 2, 2)
	for g := GlyphIndex(0); g < 2; g++ {
		aw, _, ok := tbl.HMetrics(g)
		if !ok {
			t.Fatalf("HMetrics(%d) not ok", g)
		}
		if aw > 0xFFFF {
			t.Errorf("advance width must fit in uint16, got %d", aw)
		}
	}
}

func TestHMtxTableOutOfRangeGlyph(t *testing.T) {
	data := binarySegm{0x00, 0x0A, 0x00, 0x00}
	tbl := newTestHMtxTable(t, data, 1, 1)
	if _, _, ok := tbl.HMetrics(5); ok {
		t.Error("HMetrics for out-of-range glyph should report not-ok")
	}
}

func TestHMtxParseAllRejectsUndersizedBuffer(t *testing.T) {
	tbl := newHMtxTable(T("hmtx"), binarySegm{0x00, 0x0A}, 0, 2)
	if err := tbl.parseAll(2, 2); err == nil {
		t.Error("expected error for undersized hmtx buffer, got nil")
	}
}
