package ot

// parseOS2 decodes the OS/2 and Windows metrics table. The table has grown
// several times since TrueType 1.0; we decode as much as the declared
// version and available size allow, leaving later fields at their zero
// value rather than failing the whole font.
func parseOS2(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size < 78 {
		ec.addError(tag, "Size", "OS/2 table too small for version 0", SeverityCritical, offset)
		return nil, errFontFormat("OS/2 table too small")
	}
	t := newOS2Table(tag, b, offset, size)
	t.Version, _ = b.u16(0)
	w, _ := b.u16(2)
	t.XAvgCharWidth = int16(w)
	t.WeightClass, _ = b.u16(4)
	t.WidthClass, _ = b.u16(6)
	t.FsType, _ = b.u16(8)
	readI16 := func(pos int) int16 { v, _ := b.u16(pos); return int16(v) }
	t.SubscriptXSize = readI16(10)
	t.SubscriptYSize = readI16(12)
	t.SubscriptXOffset = readI16(14)
	t.SubscriptYOffset = readI16(16)
	t.SuperscriptXSize = readI16(18)
	t.SuperscriptYSize = readI16(20)
	t.SuperscriptXOffset = readI16(22)
	t.SuperscriptYOffset = readI16(24)
	t.StrikeoutSize = readI16(26)
	t.StrikeoutPosition = readI16(28)
	t.FamilyClass = readI16(30)
	copy(t.Panose[:], b[32:42])
	for i := 0; i < 4; i++ {
		t.UnicodeRange[i], _ = b.u32(42 + i*4)
	}
	vendID, _ := b.u32(58)
	t.VendID = Tag(vendID)
	t.FsSelection, _ = b.u16(62)
	t.FirstCharIndex, _ = b.u16(64)
	t.LastCharIndex, _ = b.u16(66)
	t.TypoAscender = readI16(68)
	t.TypoDescender = readI16(70)
	t.TypoLineGap = readI16(72)
	t.WinAscent, _ = b.u16(74)
	t.WinDescent, _ = b.u16(76)

	if t.Version >= 1 && size >= 86 {
		t.CodePageRange[0], _ = b.u32(78)
		t.CodePageRange[1], _ = b.u32(82)
	}
	if t.Version >= 2 && size >= 96 {
		t.XHeight = readI16(86)
		t.CapHeight = readI16(88)
		t.DefaultChar, _ = b.u16(90)
		t.BreakChar, _ = b.u16(92)
		t.MaxContext, _ = b.u16(94)
	}
	if t.Version >= 5 && size >= 100 {
		t.LowerOpticalSize, _ = b.u16(96)
		t.UpperOpticalSize, _ = b.u16(98)
	}
	return t, nil
}
