package ot

import "testing"

func putU16(b []byte, pos int, v uint16) {
	b[pos] = byte(v >> 8)
	b[pos+1] = byte(v)
}

func TestParseOS2Version0(t *testing.T) {
	b := make([]byte, 78)
	putU16(b, 0, 0) // version 0
	putU16(b, 4, 400)
	putU16(b, 6, 5)
	putU16(b, 74, 2000)
	putU16(b, 76, 500)
	tbl, err := parseOS2(T("OS/2"), binarySegm(b), 0, uint32(len(b)), &errorCollector{})
	if err != nil {
		t.Fatalf("parseOS2: %v", err)
	}
	os2 := tbl.(*OS2Table)
	if os2.WeightClass != 400 {
		t.Errorf("WeightClass = %d, want 400", os2.WeightClass)
	}
	if os2.WidthClass != 5 {
		t.Errorf("WidthClass = %d, want 5", os2.WidthClass)
	}
	if os2.WinAscent != 2000 || os2.WinDescent != 500 {
		t.Errorf("WinAscent/WinDescent = %d/%d, want 2000/500", os2.WinAscent, os2.WinDescent)
	}
	if os2.CodePageRange[0] != 0 {
		t.Errorf("version 0 table should leave CodePageRange at zero value, got %d", os2.CodePageRange[0])
	}
}

func TestParseOS2Version2ReadsExtendedFields(t *testing.T) {
	b := make([]byte, 96)
	putU16(b, 0, 2) // version 2
	putU16(b, 86, 500)  // XHeight
	putU16(b, 88, 700)  // CapHeight
	tbl, err := parseOS2(T("OS/2"), binarySegm(b), 0, uint32(len(b)), &errorCollector{})
	if err != nil {
		t.Fatalf("parseOS2: %v", err)
	}
	os2 := tbl.(*OS2Table)
	if os2.XHeight != 500 {
		t.Errorf("XHeight = %d, want 500", os2.XHeight)
	}
	if os2.CapHeight != 700 {
		t.Errorf("CapHeight = %d, want 700", os2.CapHeight)
	}
}

func TestParseOS2RejectsUndersizedTable(t *testing.T) {
	b := make([]byte, 10)
	if _, err := parseOS2(T("OS/2"), binarySegm(b), 0, uint32(len(b)), &errorCollector{}); err == nil {
		t.Error("expected error for undersized OS/2 table, got nil")
	}
}
