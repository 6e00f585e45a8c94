package ot

import "testing"

func TestDecodeCharstringNumberSmallInt(t *testing.T) {
	v, n, err := decodeCharstringNumber([]byte{139})
	if err != nil || v != 0 || n != 1 {
		t.Errorf("decode(139) = (%v, %d, %v), want (0, 1, nil)", v, n, err)
	}
	v, n, err = decodeCharstringNumber([]byte{149})
	if err != nil || v != 10 || n != 1 {
		t.Errorf("decode(149) = (%v, %d, %v), want (10, 1, nil)", v, n, err)
	}
	v, n, err = decodeCharstringNumber([]byte{32})
	if err != nil || v != -107 || n != 1 {
		t.Errorf("decode(32) = (%v, %d, %v), want (-107, 1, nil)", v, n, err)
	}
}

func TestDecodeCharstringNumberShortInt(t *testing.T) {
	v, n, err := decodeCharstringNumber([]byte{28, 0x01, 0x00})
	if err != nil || v != 256 || n != 3 {
		t.Errorf("decode(28,1,0) = (%v, %d, %v), want (256, 3, nil)", v, n, err)
	}
	v, n, err = decodeCharstringNumber([]byte{28, 0xFF, 0xFF})
	if err != nil || v != -1 || n != 3 {
		t.Errorf("decode(28,0xFF,0xFF) = (%v, %d, %v), want (-1, 3, nil)", v, n, err)
	}
}

func TestDecodeCharstringNumberMediumPositive(t *testing.T) {
	v, n, err := decodeCharstringNumber([]byte{247, 0})
	if err != nil || v != 108 || n != 2 {
		t.Errorf("decode(247,0) = (%v, %d, %v), want (108, 2, nil)", v, n, err)
	}
}

func TestDecodeCharstringNumberMediumNegative(t *testing.T) {
	v, n, err := decodeCharstringNumber([]byte{251, 0})
	if err != nil || v != -108 || n != 2 {
		t.Errorf("decode(251,0) = (%v, %d, %v), want (-108, 2, nil)", v, n, err)
	}
}

func TestDecodeCharstringNumberFixed(t *testing.T) {
	v, n, err := decodeCharstringNumber([]byte{255, 0x00, 0x02, 0x80, 0x00})
	if err != nil || n != 5 {
		t.Fatalf("decode fixed: err=%v n=%d", err, n)
	}
	if !closeEnough(v, 2.5, 0.0001) {
		t.Errorf("decode(255,...) = %v, want 2.5", v)
	}
}

func TestDecodeCharstringNumberTruncated(t *testing.T) {
	cases := [][]byte{{}, {28}, {28, 0}, {247}, {251}, {255, 0, 0, 0}}
	for _, c := range cases {
		if _, _, err := decodeCharstringNumber(c); err == nil {
			t.Errorf("decode(%v) should have failed on truncated input", c)
		}
	}
}

func TestSubrBias(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{0, 107}, {1239, 107}, {1240, 1131}, {33899, 1131}, {33900, 32768},
	}
	for _, c := range cases {
		if got := subrBias(c.n); got != c.want {
			t.Errorf("subrBias(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestRunCharstringTriangleOutline(t *testing.T) {
	code := []byte{
		139, 139, 21, // 0 0 rmoveto
		149, 139, 134, 149, 5, // 10 0 -5 10 rlineto
		14, // endchar
	}
	outline, err := runCharstring(code, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("runCharstring: %v", err)
	}
	if len(outline.Contours) != 1 {
		t.Fatalf("expected 1 contour, got %d", len(outline.Contours))
	}
	want := []GlyphPoint{{X: 0, Y: 0, OnCurve: true}, {X: 10, Y: 0, OnCurve: true}, {X: 5, Y: 10, OnCurve: true}}
	got := outline.Contours[0]
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if outline.XMin != 0 || outline.YMin != 0 || outline.XMax != 10 || outline.YMax != 10 {
		t.Errorf("bounds = (%d,%d,%d,%d), want (0,0,10,10)", outline.XMin, outline.YMin, outline.XMax, outline.YMax)
	}
}

func TestRunCharstringCallsubr(t *testing.T) {
	// local subr 0 (operand -bias before bias correction) draws a single
	// rmoveto; the top-level charstring just invokes it via callsubr.
	lsubrs := [][]byte{{139, 139, 21, 11}} // 0 0 rmoveto; return
	// callsubr operand is (subrIndex - bias); for 1 local subr bias=107 and
	// subrIndex=0, so operand=-107, encoded via the 28-prefixed shortint form.
	lo := byte(-107 & 0xFF)
	hi := byte((-107 >> 8) & 0xFF)
	code := []byte{28, hi, lo, 10, 14} // (-107) callsubr; endchar
	outline, err := runCharstring(code, nil, lsubrs, nil, nil)
	if err != nil {
		t.Fatalf("runCharstring: %v", err)
	}
	if len(outline.Contours) != 1 || len(outline.Contours[0]) != 1 {
		t.Fatalf("expected 1 contour with 1 point from subroutine, got %+v", outline.Contours)
	}
}

func TestRunCharstringRmovetoStackUnderflow(t *testing.T) {
	code := []byte{139, 21} // single operand, rmoveto needs two
	if _, err := runCharstring(code, nil, nil, nil, nil); err == nil {
		t.Error("expected stack-underflow error for rmoveto with one operand")
	}
}

func TestRunCharstringCallsubrOutOfRange(t *testing.T) {
	code := []byte{139, 10} // callsubr with no subrs defined
	if _, err := runCharstring(code, nil, nil, nil, nil); err == nil {
		t.Error("expected out-of-range error for callsubr with an empty subr index")
	}
}

func TestRunCharstringEmptyIsEmptyOutline(t *testing.T) {
	outline, err := runCharstring([]byte{14}, nil, nil, nil, nil) // just endchar
	if err != nil {
		t.Fatalf("runCharstring: %v", err)
	}
	if len(outline.Contours) != 0 {
		t.Errorf("expected no contours, got %d", len(outline.Contours))
	}
}
