package ot

import "testing"

func TestParseKerxFormat0Pairs(t *testing.T) {
	b := binarySegm{
		0x00, 0x00, 0x00, 0x01, // nPairs = 1
		0x00, 0x00, 0x00, 0x00, // searchRange
		0x00, 0x00, 0x00, 0x00, // entrySelector
		0x00, 0x00, 0x00, 0x00, // rangeShift
		0x00, 0x05, 0x00, 0x07, 0x00, 0x64, // left=5, right=7, value=100
	}
	pairs, err := parseKerxFormat0(b, 0)
	if err != nil {
		t.Fatalf("parseKerxFormat0: %v", err)
	}
	if len(pairs) != 1 || pairs[0].left != 5 || pairs[0].right != 7 || pairs[0].value != 100 {
		t.Errorf("pairs = %+v, want [{5 7 100}]", pairs)
	}
}

func buildKerxFormat2Table() binarySegm {
	b := binarySegm{
		0x00, 0x00, 0x00, 0x04, // rowWidth = 4
		0x00, 0x00, 0x00, 0x10, // leftClassesOffset = 16
		0x00, 0x00, 0x00, 0x18, // rightClassesOffset = 24
		0x00, 0x00, 0x00, 0x20, // arrayOffset = 32
		0x00, 0x00, // leftClasses: format 0
		0x00, 0x00, // left glyph 0 -> class 0
		0x00, 0x01, // left glyph 1 -> class 1
		0x00, 0x00, // padding (harmless extra format-0 entry)
		0x00, 0x00, // rightClasses: format 0
		0x00, 0x00, // right glyph 0 -> class 0
		0x00, 0x01, // right glyph 1 -> class 1
		0x00, 0x00, // padding
		0x00, 0x0A, // array[0][0] = 10
		0x00, 0x14, // array[0][1] = 20
		0x00, 0x1E, // array[1][0] = 30
		0x00, 0x28, // array[1][1] = 40
	}
	return b
}

func TestParseKerxFormat2ClassMatrix(t *testing.T) {
	cd, err := parseKerxFormat2(buildKerxFormat2Table(), 0)
	if err != nil {
		t.Fatalf("parseKerxFormat2: %v", err)
	}
	lc, lok := cd.leftClasses.lookup(1)
	rc, rok := cd.rightClasses.lookup(0)
	if !lok || !rok || lc != 1 || rc != 0 {
		t.Fatalf("class lookups = (%d,%v) (%d,%v), want (1,true) (0,true)", lc, lok, rc, rok)
	}
	idx := int(lc)*cd.rowWidth + int(rc)*2
	v, _ := cd.array.u16(idx)
	if v != 30 {
		t.Errorf("array[1][0] = %d, want 30", v)
	}
}

func TestParseKerxFormat6Compact(t *testing.T) {
	b := binarySegm{
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // flags/rowCount/columnCount, unused
		0x00, 0x08, // format 8
		0x00, 0x03, // firstGlyph = 3
		0x00, 0x02, // count = 2
		0x00, 0x32, // value for glyph 3 = 50
		0xFF, 0xEC, // value for glyph 4 = -20
	}
	cd, err := parseKerxFormat6(b, 0)
	if err != nil {
		t.Fatalf("parseKerxFormat6: %v", err)
	}
	if cd.firstGlyph != 3 || len(cd.values) != 2 || cd.values[0] != 50 || cd.values[1] != -20 {
		t.Errorf("compact data = %+v, want firstGlyph=3 values=[50 -20]", cd)
	}
}

func TestKerxTableFormat0Kerning(t *testing.T) {
	b := binarySegm{
		0, 0, 0, 0, 0, 0, 0, 1, // version, nTables=1
		0x00, 0x00, 0x00, 0x22, // subtable length = 34 (12 header + 22 body)
		0x00, 0x00, 0x00, 0x00, // coverage: format 0
		0x00, 0x00, 0x00, 0x00, // tupleCount
		0x00, 0x00, 0x00, 0x01, // nPairs = 1
		0x00, 0x00, 0x00, 0x00, // searchRange
		0x00, 0x00, 0x00, 0x00, // entrySelector
		0x00, 0x00, 0x00, 0x00, // rangeShift
		0x00, 0x05, 0x00, 0x07, 0x00, 0x0A, // left=5, right=7, value=10
	}
	tbl, err := parseKerx(T("kerx"), b, 0, uint32(len(b)), &errorCollector{})
	if err != nil {
		t.Fatalf("parseKerx: %v", err)
	}
	kx := tbl.(*KerxTable)
	if got := kx.Kerning(5, 7); got != 10 {
		t.Errorf("Kerning(5,7) = %d, want 10", got)
	}
	if got := kx.Kerning(5, 8); got != 0 {
		t.Errorf("Kerning(5,8) = %d, want 0", got)
	}
}

func TestKerxTableNilReceiverIsZero(t *testing.T) {
	var kx *KerxTable
	if got := kx.Kerning(1, 2); got != 0 {
		t.Errorf("nil KerxTable Kerning = %d, want 0", got)
	}
}

// buildKerxFormat1Table assembles a full 'kerx' table with a single format-1
// (state machine) subtable: glyph 10 is class 4 ("X"); the state machine
// emits a kerning value of 15 whenever an X glyph is immediately followed
// by any other (out-of-bounds-class) glyph.
func buildKerxFormat1Table() binarySegm {
	header := binarySegm{
		0, 0, 0, 0, 0, 0, 0, 1, // version, nTables=1
		0x00, 0x00, 0x00, 0x52, // subtable length = 82 (12 header + 70 body)
		0x00, 0x01, 0x00, 0x00, // coverage: format 1 in bits 16-23
		0x00, 0x00, 0x00, 0x00, // tupleCount
	}
	body := binarySegm{
		// state table header (relative to body start)
		0x00, 0x00, 0x00, 0x05, // nClasses = 5
		0x00, 0x00, 0x00, 0x14, // classTableOffset = 20
		0x00, 0x00, 0x00, 0x1C, // stateArrayOffset = 28
		0x00, 0x00, 0x00, 0x30, // entryTableOffset = 48
		0x00, 0x00, 0x00, 0x42, // valueOffset = 66
		// classTable (format 8, at offset 20)
		0x00, 0x08, // format 8
		0x00, 0x0A, // firstGlyph = 10
		0x00, 0x01, // count = 1
		0x00, 0x04, // glyph 10 -> class 4
		// stateArray (at offset 28): 2 states x 5 classes
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, // state0: class4 -> entry1
		0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // state1: class1 -> entry2
		// entryTable (at offset 48): 3 entries, 6 bytes each
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // entry0: state0, no value
		0x00, 0x01, 0x00, 0x00, 0x00, 0x00, // entry1: -> state1, no value
		0x00, 0x00, 0x00, 0x00, 0x00, 0x02, // entry2: -> state0, valueOffset=2
		// values (at offset 66): index 0 reserved, index 2 = 15
		0x00, 0x00, 0x00, 0x0F,
	}
	return append(header, body...)
}

func TestKerxTableFormat1RunKerning(t *testing.T) {
	b := buildKerxFormat1Table()
	tbl, err := parseKerx(T("kerx"), b, 0, uint32(len(b)), &errorCollector{})
	if err != nil {
		t.Fatalf("parseKerx: %v", err)
	}
	kx := tbl.(*KerxTable)
	out := kx.RunKerning([]GlyphIndex{10, 20})
	if len(out) != 2 || out[0] != 15 || out[1] != 0 {
		t.Errorf("RunKerning([10,20]) = %v, want [15 0]", out)
	}
}
