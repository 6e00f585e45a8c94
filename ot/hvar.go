package ot

import "fmt"

// itemVariationStore is the shared delta-set storage format used by HVAR,
// VVAR, MVAR (and CFF2's blend operator): a list of variation regions plus
// one or more delta-set sub-tables indexed through it.
type itemVariationStore struct {
	regions    []variationRegion
	dataSets   []itemVariationData
	axisCount  int
}

type variationRegion struct {
	axes []regionAxisCoords // one entry per axis in fvar order
}

type regionAxisCoords struct {
	start, peak, end F2Dot14
}

type itemVariationData struct {
	regionIndexes []uint16 // indexes into itemVariationStore.regions
	deltaSets     [][]int32
}

func parseItemVariationStore(b binarySegm, base int) (*itemVariationStore, error) {
	if base+8 > len(b) {
		return nil, errFontFormat("ItemVariationStore header truncated")
	}
	format, _ := b.u16(base)
	if format != 1 {
		return nil, errFontFormat(fmt.Sprintf("ItemVariationStore format %d not supported", format))
	}
	regionListOffset, _ := b.u32(base + 2)
	itemVarDataCount, _ := b.u16(base + 6)

	rlPos := base + int(regionListOffset)
	if rlPos+4 > len(b) {
		return nil, errFontFormat("VariationRegionList header truncated")
	}
	axisCount, _ := b.u16(rlPos)
	regionCount, _ := b.u16(rlPos + 2)
	store := &itemVariationStore{axisCount: int(axisCount)}
	pos := rlPos + 4
	for r := 0; r < int(regionCount); r++ {
		var region variationRegion
		for a := 0; a < int(axisCount); a++ {
			if pos+6 > len(b) {
				return nil, errFontFormat("VariationRegion truncated")
			}
			start, _ := parseF2Dot14(b, pos)
			peak, _ := parseF2Dot14(b, pos+2)
			end, _ := parseF2Dot14(b, pos+4)
			region.axes = append(region.axes, regionAxisCoords{start: start, peak: peak, end: end})
			pos += 6
		}
		store.regions = append(store.regions, region)
	}

	dataOffsetsPos := base + 8
	for i := 0; i < int(itemVarDataCount); i++ {
		if dataOffsetsPos+4 > len(b) {
			break
		}
		off, _ := b.u32(dataOffsetsPos)
		dataOffsetsPos += 4
		dPos := base + int(off)
		ivd, err := parseItemVariationData(b, dPos)
		if err != nil {
			return nil, err
		}
		store.dataSets = append(store.dataSets, ivd)
	}
	return store, nil
}

func parseItemVariationData(b binarySegm, pos int) (itemVariationData, error) {
	if pos+6 > len(b) {
		return itemVariationData{}, errFontFormat("ItemVariationData header truncated")
	}
	itemCount, _ := b.u16(pos)
	shortDeltaCount, _ := b.u16(pos + 2)
	regionIndexCount, _ := b.u16(pos + 4)
	pos += 6
	indexes := make([]uint16, regionIndexCount)
	for i := 0; i < int(regionIndexCount); i++ {
		if pos+2 > len(b) {
			return itemVariationData{}, errFontFormat("region index array truncated")
		}
		indexes[i], _ = b.u16(pos)
		pos += 2
	}
	rowLen := int(shortDeltaCount)*2 + (int(regionIndexCount)-int(shortDeltaCount))*1
	if int(shortDeltaCount) > int(regionIndexCount) {
		rowLen = int(regionIndexCount) * 2 // malformed table; fall back conservatively
	}
	deltaSets := make([][]int32, itemCount)
	for item := 0; item < int(itemCount); item++ {
		row := make([]int32, regionIndexCount)
		p := pos + item*rowLen
		for r := 0; r < int(regionIndexCount); r++ {
			if r < int(shortDeltaCount) {
				if p+2 > len(b) {
					return itemVariationData{}, errFontFormat("delta set row truncated")
				}
				row[r] = int32(int16(u16(b[p:])))
				p += 2
			} else {
				if p >= len(b) {
					return itemVariationData{}, errFontFormat("delta set row truncated")
				}
				row[r] = int32(int8(b[p]))
				p++
			}
		}
		deltaSets[item] = row
	}
	return itemVariationData{regionIndexes: indexes, deltaSets: deltaSets}, nil
}

// regionScalars returns the support scalar of every region in the store at
// a given normalized instance location.
func (s *itemVariationStore) regionScalars(coords []F2Dot14) []float64 {
	if s == nil {
		return nil
	}
	scalars := make([]float64, len(s.regions))
	for i, region := range s.regions {
		peak := make([]F2Dot14, len(region.axes))
		start := make([]F2Dot14, len(region.axes))
		end := make([]F2Dot14, len(region.axes))
		for a, ax := range region.axes {
			peak[a], start[a], end[a] = ax.peak, ax.start, ax.end
		}
		scalars[i] = tupleScalar(coords, peak, start, end)
	}
	return scalars
}

// deltaFor evaluates one (dataSetIndex, innerIndex) item of an
// ItemVariationData sub-table at the given instance coordinates.
func (s *itemVariationStore) deltaFor(dataSet, inner int, coords []F2Dot14) float64 {
	if s == nil || dataSet < 0 || dataSet >= len(s.dataSets) {
		return 0
	}
	ivd := s.dataSets[dataSet]
	if inner < 0 || inner >= len(ivd.deltaSets) {
		return 0
	}
	row := ivd.deltaSets[inner]
	scalars := s.regionScalars(coords)
	var total float64
	for i, regionIdx := range ivd.regionIndexes {
		if int(regionIdx) >= len(scalars) || i >= len(row) {
			continue
		}
		total += float64(row[i]) * scalars[regionIdx]
	}
	return total
}

// --- HVAR / VVAR: per-glyph metrics variation -------------------------------

// DeltaSetIndexMap maps a glyph index to an (outer,inner) item-variation
// index pair, per the HVAR/VVAR AdvanceWidthMapping / DeltaSetIndexMap
// sub-table.
type DeltaSetIndexMap struct {
	entryFormat uint16
	mapCount    uint16
	data        binarySegm
}

func parseDeltaSetIndexMap(b binarySegm, pos int) (*DeltaSetIndexMap, error) {
	if pos+4 > len(b) {
		return nil, errFontFormat("DeltaSetIndexMap header truncated")
	}
	format, _ := b.u16(pos)
	count, _ := b.u16(pos + 2)
	entrySize := int(((format>>4)&3)+1)
	need := 4 + entrySize*int(count)
	if pos+need > len(b) {
		return nil, errFontFormat("DeltaSetIndexMap data truncated")
	}
	return &DeltaSetIndexMap{entryFormat: format, mapCount: count, data: b[pos+4 : pos+need]}, nil
}

// Lookup resolves a glyph index to an (outer, inner) item-variation
// address. Glyph indexes past the map's range clamp to the last entry, per
// spec.
func (m *DeltaSetIndexMap) Lookup(gid GlyphIndex) (outer, inner int) {
	if m == nil || m.mapCount == 0 {
		return 0, int(gid)
	}
	idx := int(gid)
	if idx >= int(m.mapCount) {
		idx = int(m.mapCount) - 1
	}
	entrySize := int(((m.entryFormat>>4)&3) + 1)
	bitCount := int(m.entryFormat&0xf) + 1
	pos := idx * entrySize
	if pos+entrySize > len(m.data) {
		return 0, 0
	}
	var raw uint32
	for i := 0; i < entrySize; i++ {
		raw = raw<<8 | uint32(m.data[pos+i])
	}
	innerMask := uint32(1)<<uint(bitCount) - 1
	return int(raw >> uint(bitCount)), int(raw & innerMask)
}

// HVarTable provides per-glyph horizontal-metric variation (advance width,
// and optionally LSB/RSB) for variable fonts.
type HVarTable struct {
	tableBase
	store      *itemVariationStore
	advanceMap *DeltaSetIndexMap
	lsbMap     *DeltaSetIndexMap
	rsbMap     *DeltaSetIndexMap
}

func newHVarTable(tag Tag, b binarySegm, offset, size uint32) *HVarTable {
	t := &HVarTable{}
	t.tableBase = tableBase{data: b, name: tag, offset: offset, length: size}
	t.self = t
	return t
}

func parseHVARVVARCommon(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (*itemVariationStore, *DeltaSetIndexMap, *DeltaSetIndexMap, *DeltaSetIndexMap, error) {
	if size < 20 {
		ec.addError(tag, "Size", "variation table too small", SeverityCritical, offset)
		return nil, nil, nil, nil, errFontFormat("variation table too small")
	}
	ivsOffset, _ := b.u32(4)
	advMapOffset, _ := b.u32(8)
	lsbMapOffset, _ := b.u32(12)
	rsbMapOffset, _ := b.u32(16)

	store, err := parseItemVariationStore(b, int(ivsOffset))
	if err != nil {
		ec.addError(tag, "ItemVariationStore", err.Error(), SeverityCritical, offset)
		return nil, nil, nil, nil, err
	}
	var advMap, lsbMap, rsbMap *DeltaSetIndexMap
	if advMapOffset != 0 {
		advMap, _ = parseDeltaSetIndexMap(b, int(advMapOffset))
	}
	if lsbMapOffset != 0 {
		lsbMap, _ = parseDeltaSetIndexMap(b, int(lsbMapOffset))
	}
	if rsbMapOffset != 0 {
		rsbMap, _ = parseDeltaSetIndexMap(b, int(rsbMapOffset))
	}
	return store, advMap, lsbMap, rsbMap, nil
}

func parseHVAR(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	store, advMap, lsbMap, rsbMap, err := parseHVARVVARCommon(tag, b, offset, size, ec)
	if err != nil {
		return nil, err
	}
	t := newHVarTable(tag, b, offset, size)
	t.store, t.advanceMap, t.lsbMap, t.rsbMap = store, advMap, lsbMap, rsbMap
	return t, nil
}

// AdvanceWidthDelta returns the variation delta to add to a glyph's default
// advance width at the given normalized coordinates.
func (t *HVarTable) AdvanceWidthDelta(gid GlyphIndex, coords []F2Dot14) float64 {
	if t == nil {
		return 0
	}
	outer, inner := t.advanceMap.Lookup(gid)
	return t.store.deltaFor(outer, inner, coords)
}

// VVarTable provides per-glyph vertical-metric variation (advance height,
// TSB/BSB) for variable fonts. Structurally identical to HVAR.
type VVarTable struct {
	tableBase
	store       *itemVariationStore
	advanceMap  *DeltaSetIndexMap
	tsbMap      *DeltaSetIndexMap
	bsbMap      *DeltaSetIndexMap
}

func newVVarTable(tag Tag, b binarySegm, offset, size uint32) *VVarTable {
	t := &VVarTable{}
	t.tableBase = tableBase{data: b, name: tag, offset: offset, length: size}
	t.self = t
	return t
}

func parseVVAR(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	store, advMap, tsbMap, bsbMap, err := parseHVARVVARCommon(tag, b, offset, size, ec)
	if err != nil {
		return nil, err
	}
	t := newVVarTable(tag, b, offset, size)
	t.store, t.advanceMap, t.tsbMap, t.bsbMap = store, advMap, tsbMap, bsbMap
	return t, nil
}

// AdvanceHeightDelta returns the variation delta to add to a glyph's
// default advance height at the given normalized coordinates.
func (t *VVarTable) AdvanceHeightDelta(gid GlyphIndex, coords []F2Dot14) float64 {
	if t == nil {
		return 0
	}
	outer, inner := t.advanceMap.Lookup(gid)
	return t.store.deltaFor(outer, inner, coords)
}

// --- MVAR: font-wide metric variation ---------------------------------------

type mvarValueRecord struct {
	valueTag       Tag
	outer, inner   uint16
}

// MVarTable provides variation deltas for font-wide metrics named by tag
// (e.g. "hasc" horizontal ascender, "undo" underline offset) that would
// otherwise be fixed values in hhea/OS2/post.
type MVarTable struct {
	tableBase
	store   *itemVariationStore
	records []mvarValueRecord
}

func newMVarTable(tag Tag, b binarySegm, offset, size uint32) *MVarTable {
	t := &MVarTable{}
	t.tableBase = tableBase{data: b, name: tag, offset: offset, length: size}
	t.self = t
	return t
}

func parseMVAR(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size < 12 {
		ec.addError(tag, "Size", "MVAR table too small", SeverityCritical, offset)
		return nil, errFontFormat("MVAR table too small")
	}
	valueRecordSize, _ := b.u16(6)
	valueRecordCount, _ := b.u16(8)
	ivsOffset, _ := b.u16(10)
	t := newMVarTable(tag, b, offset, size)
	if ivsOffset != 0 {
		store, err := parseItemVariationStore(b, int(ivsOffset))
		if err != nil {
			ec.addWarning(tag, err.Error(), offset)
		} else {
			t.store = store
		}
	}
	pos := 12
	for i := 0; i < int(valueRecordCount); i++ {
		if pos+8 > len(b) {
			ec.addWarning(tag, "value record truncated", offset+uint32(pos))
			break
		}
		tagv, _ := b.u32(pos)
		outer, _ := b.u16(pos + 4)
		inner, _ := b.u16(pos + 6)
		t.records = append(t.records, mvarValueRecord{valueTag: Tag(tagv), outer: outer, inner: inner})
		pos += int(valueRecordSize)
	}
	return t, nil
}

// MetricDelta returns the variation delta for a named font-wide metric
// (identified by its 4-byte tag, e.g. T("hasc")) at the given normalized
// coordinates. Returns 0 if the font does not vary that metric.
func (t *MVarTable) MetricDelta(valueTag Tag, coords []F2Dot14) float64 {
	if t == nil || t.store == nil {
		return 0
	}
	for _, r := range t.records {
		if r.valueTag == valueTag {
			return t.store.deltaFor(int(r.outer), int(r.inner), coords)
		}
	}
	return 0
}
