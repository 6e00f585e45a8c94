package ot

import "testing"

func TestParseCFFIndexTwoEntries(t *testing.T) {
	b := binarySegm{
		0x00, 0x02, // count = 2
		0x01,             // offSize = 1
		0x01, 0x03, 0x05, // offsets (1-based)
		0xAA, 0xBB, 0xCC, 0xDD,
	}
	idx, pos, err := parseCFFIndex(b, 0)
	if err != nil {
		t.Fatalf("parseCFFIndex: %v", err)
	}
	if idx.len() != 2 {
		t.Fatalf("len = %d, want 2", idx.len())
	}
	if got := idx.get(0); string(got) != "\xAA\xBB" {
		t.Errorf("entry 0 = %x, want AABB", got)
	}
	if got := idx.get(1); string(got) != "\xCC\xDD" {
		t.Errorf("entry 1 = %x, want CCDD", got)
	}
	if pos != len(b) {
		t.Errorf("pos = %d, want %d", pos, len(b))
	}
}

func TestParseCFFIndexEmpty(t *testing.T) {
	b := binarySegm{0x00, 0x00}
	idx, pos, err := parseCFFIndex(b, 0)
	if err != nil {
		t.Fatalf("parseCFFIndex: %v", err)
	}
	if idx.len() != 0 {
		t.Errorf("len = %d, want 0", idx.len())
	}
	if pos != 2 {
		t.Errorf("pos = %d, want 2", pos)
	}
}

func TestParseCFFIndexOutOfRangeGet(t *testing.T) {
	idx := cffIndex{}
	if idx.get(0) != nil {
		t.Error("get on empty index should return nil")
	}
}

func TestParseCFFDictSmallIntOperand(t *testing.T) {
	b := []byte{239, 17} // 100 CharStrings
	dict, err := parseCFFDict(b)
	if err != nil {
		t.Fatalf("parseCFFDict: %v", err)
	}
	v, ok := dictInt(dict, dictOpCharstrings)
	if !ok || v != 100 {
		t.Errorf("dictInt(CharStrings) = (%d, %v), want (100, true)", v, ok)
	}
}

func TestParseCFFDictEscapedOperator(t *testing.T) {
	b := []byte{139, 139, 139, 12, 30} // three operands, then escaped ROS operator
	dict, err := parseCFFDict(b)
	if err != nil {
		t.Fatalf("parseCFFDict: %v", err)
	}
	if _, ok := dict[dictOpROS]; !ok {
		t.Error("expected ROS (escaped 12 30) operator in dict")
	}
}

func TestParseCFFDictRealNumber(t *testing.T) {
	b := []byte{30, 0xE2, 0xA5, 0xFF, 17} // -2.5 CharStrings
	dict, err := parseCFFDict(b)
	if err != nil {
		t.Fatalf("parseCFFDict: %v", err)
	}
	vals := dict[dictOpCharstrings]
	if len(vals) != 1 || !closeEnough(vals[0], -2.5, 0.0001) {
		t.Errorf("real operand = %v, want [-2.5]", vals)
	}
}

func TestParseFDSelectFormat0(t *testing.T) {
	b := binarySegm{0x00, 0x00, 0x01, 0x01} // format 0, fd[0]=0, fd[1]=1, fd[2]=1
	sel := parseFDSelect(b, 0, 3)
	want := []byte{0, 1, 1}
	for i := range want {
		if sel[i] != want[i] {
			t.Errorf("sel[%d] = %d, want %d", i, sel[i], want[i])
		}
	}
}

func TestParseFDSelectFormat3(t *testing.T) {
	b := binarySegm{
		0x03,       // format 3
		0x00, 0x02, // nRanges = 2
		0x00, 0x00, 0x00, // range0: first=0, fd=0
		0x00, 0x02, 0x01, // range1: first=2, fd=1
		0x00, 0x03, // sentinel = numGlyphs
	}
	sel := parseFDSelect(b, 0, 3)
	want := []byte{0, 0, 1}
	for i := range want {
		if sel[i] != want[i] {
			t.Errorf("sel[%d] = %d, want %d", i, sel[i], want[i])
		}
	}
}

// buildMinimalCFF assembles a synthetic, non-CID CFF table with a single
// Top DICT pointing at a one-entry CharStrings INDEX that draws a triangle.
func buildMinimalCFF() binarySegm {
	return binarySegm{
		0x01, 0x00, 0x04, 0x04, // header: major,minor,hdrSize=4,offSize=4
		0x00, 0x00, // Name INDEX: count=0
		// Top DICT INDEX: count=1, offSize=1, offsets=[1,5], data={28,0,19,17}
		0x00, 0x01, 0x01, 0x01, 0x05,
		0x1C, 0x00, 0x13, 0x11,
		0x00, 0x00, // String INDEX: count=0
		0x00, 0x00, // Global Subr INDEX: count=0
		// CharStrings INDEX (starts at offset 19): count=1, offSize=1, offsets=[1,10]
		0x00, 0x01, 0x01, 0x01, 0x0A,
		139, 139, 21, 149, 139, 134, 149, 5, 14, // 0 0 rmoveto 10 0 -5 10 rlineto endchar
	}
}

func TestParseCFFTriangleOutline(t *testing.T) {
	b := buildMinimalCFF()
	tbl, err := parseCFF(T("CFF "), b, 0, uint32(len(b)), &errorCollector{})
	if err != nil {
		t.Fatalf("parseCFF: %v", err)
	}
	cff := tbl.(*CFFTable)
	if cff.NumGlyphs() != 1 {
		t.Fatalf("NumGlyphs() = %d, want 1", cff.NumGlyphs())
	}
	outline, err := cff.Outline(0)
	if err != nil {
		t.Fatalf("Outline: %v", err)
	}
	if len(outline.Contours) != 1 || len(outline.Contours[0]) != 3 {
		t.Fatalf("expected 1 contour with 3 points, got %+v", outline.Contours)
	}
	if outline.XMax != 10 || outline.YMax != 10 {
		t.Errorf("bounds XMax/YMax = %d/%d, want 10/10", outline.XMax, outline.YMax)
	}
}

func TestParseCFFOutlineOutOfRangeGlyph(t *testing.T) {
	b := buildMinimalCFF()
	tbl, err := parseCFF(T("CFF "), b, 0, uint32(len(b)), &errorCollector{})
	if err != nil {
		t.Fatalf("parseCFF: %v", err)
	}
	cff := tbl.(*CFFTable)
	if _, err := cff.Outline(5); err == nil {
		t.Error("expected error for out-of-range glyph index")
	}
}

func TestParseCFFRejectsUndersizedTable(t *testing.T) {
	b := binarySegm{0x01, 0x00}
	if _, err := parseCFF(T("CFF "), b, 0, uint32(len(b)), &errorCollector{}); err == nil {
		t.Error("expected error for undersized CFF table")
	}
}
