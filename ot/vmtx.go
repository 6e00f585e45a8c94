package ot

import "fmt"

// This file implements 'vhea'/'vmtx', the vertical counterparts of
// 'hhea'/'hmtx': an advance-height header plus a long-metrics array
// (advance height, top side bearing) followed by a trailing array of
// top side bearings for the remaining glyphs, mirroring the horizontal
// layout exactly.

// VHeaTable contains information for vertical layout.
type VHeaTable struct {
	tableBase
	Ascender           int16
	Descender          int16
	LineGap            int16
	AdvanceHeightMax   int16
	MinTopSideBearing  int16
	MinBottomSideBearing int16
	YMaxExtent         int16
	CaretSlopeRise     int16
	CaretSlopeRun      int16
	CaretOffset        int16
	NumberOfVMetrics   int
}

func newVHeaTable(tag Tag, b binarySegm, offset, size uint32) *VHeaTable {
	t := &VHeaTable{}
	t.tableBase = tableBase{data: b, name: tag, offset: offset, length: size}
	t.self = t
	return t
}

func parseVHea(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size == 0 {
		return nil, nil
	}
	if size < 36 {
		ec.addError(tag, "Size", fmt.Sprintf("vhea table too small: %d bytes (need 36)", size), SeverityCritical, offset)
		return nil, errFontFormat("vhea table incomplete")
	}
	t := newVHeaTable(tag, b, offset, size)
	n, _ := b.u16(34)
	t.NumberOfVMetrics = int(n)
	return t, nil
}

// VMetricRecord is one long vertical metric record from table vmtx.
type VMetricRecord struct {
	AdvanceHeight  uint16
	TopSideBearing int16
}

// VMtxTable contains vertical metric information for every glyph in the
// font, mirroring HMtxTable's layout and lookup semantics for the
// vertical axis.
type VMtxTable struct {
	tableBase
	NumberOfVMetrics  int
	numGlyphs         int
	longMetrics       []VMetricRecord
	topSideBearings   []int16
}

func newVMtxTable(tag Tag, b binarySegm, offset, size uint32) *VMtxTable {
	t := &VMtxTable{}
	t.tableBase = tableBase{data: b, name: tag, offset: offset, length: size}
	t.self = t
	return t
}

func parseVMtx(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size == 0 {
		return nil, nil
	}
	t := newVMtxTable(tag, b, offset, size)
	return t, nil
}

func (t *VMtxTable) parseAll(numGlyphs, numberOfVMetrics int) error {
	if t == nil {
		return nil
	}
	if numGlyphs < 0 {
		return fmt.Errorf("invalid glyph count %d", numGlyphs)
	}
	if numberOfVMetrics < 0 || numberOfVMetrics > numGlyphs {
		return fmt.Errorf("invalid numberOfVMetrics %d (numGlyphs=%d)", numberOfVMetrics, numGlyphs)
	}
	required := numberOfVMetrics*4 + (numGlyphs-numberOfVMetrics)*2
	if required > len(t.data) {
		return fmt.Errorf("vmtx table too small: need %d bytes, have %d", required, len(t.data))
	}
	longMetrics := make([]VMetricRecord, numberOfVMetrics)
	for i := 0; i < numberOfVMetrics; i++ {
		ah, err := t.data.u16(i * 4)
		if err != nil {
			return fmt.Errorf("cannot parse vmtx long metric %d: %w", i, err)
		}
		tsb, err := t.data.u16(i*4 + 2)
		if err != nil {
			return fmt.Errorf("cannot parse vmtx long metric tsb %d: %w", i, err)
		}
		longMetrics[i] = VMetricRecord{AdvanceHeight: ah, TopSideBearing: int16(tsb)}
	}
	tsbCount := numGlyphs - numberOfVMetrics
	topSideBearings := make([]int16, tsbCount)
	base := numberOfVMetrics * 4
	for i := 0; i < tsbCount; i++ {
		tsb, err := t.data.u16(base + i*2)
		if err != nil {
			return fmt.Errorf("cannot parse vmtx tsb %d: %w", i, err)
		}
		topSideBearings[i] = int16(tsb)
	}
	t.NumberOfVMetrics = numberOfVMetrics
	t.numGlyphs = numGlyphs
	t.longMetrics = longMetrics
	t.topSideBearings = topSideBearings
	return nil
}

// VMetrics returns the advance height and top side bearing for a glyph.
func (t *VMtxTable) VMetrics(g GlyphIndex) (uint16, int16, bool) {
	if t == nil || t.numGlyphs == 0 || int(g) < 0 || int(g) >= t.numGlyphs {
		return 0, 0, false
	}
	if int(g) < len(t.longMetrics) {
		m := t.longMetrics[int(g)]
		return m.AdvanceHeight, m.TopSideBearing, true
	}
	if len(t.longMetrics) == 0 {
		return 0, 0, false
	}
	i := int(g) - len(t.longMetrics)
	if i < 0 || i >= len(t.topSideBearings) {
		return 0, 0, false
	}
	return t.longMetrics[len(t.longMetrics)-1].AdvanceHeight, t.topSideBearings[i], true
}

// GlyphCount returns the glyph count used when decoding this vmtx table.
func (t *VMtxTable) GlyphCount() int {
	if t == nil {
		return 0
	}
	return t.numGlyphs
}
