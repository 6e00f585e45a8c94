package ot

// Numeric helpers for OpenType's fixed-point encodings. These show up
// throughout the variable-font tables (fvar, avar, gvar, HVAR/VVAR/MVAR)
// and in a few classic tables (post, OS/2).

// Fixed is a 16.16 fixed-point number, as used for table version fields
// and a handful of metrics.
type Fixed int32

// Float64 converts a 16.16 fixed-point value to float64.
func (f Fixed) Float64() float64 {
	return float64(f) / 65536.0
}

// F2Dot14 is a 2.14 fixed-point number, the encoding used for variation
// axis coordinates and tuple peak/start/end values.
type F2Dot14 int16

// Float64 converts a 2.14 fixed-point value to float64.
func (f F2Dot14) Float64() float64 {
	return float64(f) / 16384.0
}

// f2dot14FromFloat converts a float64 in [-2, 2) to F2Dot14, clamping
// values that fall outside of the representable range.
func f2dot14FromFloat(v float64) F2Dot14 {
	if v > 32767.0/16384.0 {
		v = 32767.0 / 16384.0
	}
	if v < -2.0 {
		v = -2.0
	}
	return F2Dot14(v * 16384.0)
}

// F2Dot14FromFloat converts a float64 in [-2, 2) to F2Dot14, clamping
// values that fall outside of the representable range. Exported for
// callers outside this package building normalized-coordinate vectors.
func F2Dot14FromFloat(v float64) F2Dot14 {
	return f2dot14FromFloat(v)
}

func parseFixed(b binarySegm, pos int) (Fixed, error) {
	v, err := b.u32(pos)
	if err != nil {
		return 0, err
	}
	return Fixed(int32(v)), nil
}

func parseF2Dot14(b binarySegm, pos int) (F2Dot14, error) {
	v, err := b.u16(pos)
	if err != nil {
		return 0, err
	}
	return F2Dot14(int16(v)), nil
}

// offset16 and offset32 are thin aliases to document intent at call
// sites; OpenType tables are full of sub-table offsets of both widths.
type offset16 = uint16
type offset32 = uint32

func parseOffset16(b binarySegm, pos int) (offset16, error) {
	return b.u16(pos)
}

func parseOffset32(b binarySegm, pos int) (offset32, error) {
	return b.u32(pos)
}

// longDateTime reads an 8-byte Macintosh long date/time field (seconds
// since 1904-01-01) as used in the head table.
func longDateTime(b binarySegm, pos int) (int64, error) {
	if pos+8 > len(b) {
		return 0, errFontFormat("longDateTime out of bounds")
	}
	hi, err := b.u32(pos)
	if err != nil {
		return 0, err
	}
	lo, err := b.u32(pos + 4)
	if err != nil {
		return 0, err
	}
	return int64(hi)<<32 | int64(lo), nil
}
