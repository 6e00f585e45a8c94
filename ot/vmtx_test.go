package ot

import "testing"

func newTestVMtxTable(t *testing.T, data binarySegm, numGlyphs, numberOfVMetrics int) *VMtxTable {
	t.Helper()
	tbl := newVMtxTable(T("vmtx"), data, 0, uint32(len(data)))
	if err := tbl.parseAll(numGlyphs, numberOfVMetrics); err != nil {
		t.Fatalf("parseAll: %v", err)
	}
	return tbl
}

func TestVMtxTableLongMetricsOnly(t *testing.T) {
	data := binarySegm{
		0x00, 0x64, 0x00, 0x01, // glyph 0: ah=100, tsb=1
		0x00, 0xC8, 0xFF, 0xFF, // glyph 1: ah=200, tsb=-1
	}
	tbl := newTestVMtxTable(t, data, 2, 2)
	ah, tsb, ok := tbl.VMetrics(1)
	if !ok || ah != 200 || tsb != -1 {
		t.Errorf("VMetrics(1) = (%d, %d, %v), want (200, -1, true)", ah, tsb, ok)
	}
}

func TestVMtxTableTrailingGlyphsReuseLastAdvance(t *testing.T) {
	data := binarySegm{
		0x00, 0x0A, 0x00, 0x00, // glyph 0
		0x00, 0x14, 0x00, 0x02, // glyph 1
		0x00, 0x05, // glyph 2: tail tsb=5
	}
	tbl := newTestVMtxTable(t, data, 3, 2)
	ah, tsb, ok := tbl.VMetrics(2)
	if !ok || ah != 20 || tsb != 5 {
		t.Errorf("VMetrics(2) = (%d, %d, %v), want (20, 5, true) — tail glyphs reuse last long advance", ah, tsb, ok)
	}
}

func TestVMtxTableOutOfRangeGlyph(t *testing.T) {
	data := binarySegm{0x00, 0x0A, 0x00, 0x00}
	tbl := newTestVMtxTable(t, data, 1, 1)
	if _, _, ok := tbl.VMetrics(5); ok {
		t.Error("VMetrics for out-of-range glyph should report not-ok")
	}
}

func TestVMtxParseAllRejectsUndersizedBuffer(t *testing.T) {
	tbl := newVMtxTable(T("vmtx"), binarySegm{0x00, 0x0A}, 0, 2)
	if err := tbl.parseAll(2, 2); err == nil {
		t.Error("expected error for undersized vmtx buffer, got nil")
	}
}
