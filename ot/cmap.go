package ot

import "fmt"

// CMapTable maps character code-points to glyph indices. OpenType fonts in
// the wild carry several character-to-glyph encodings (cmap sub-tables);
// we select exactly one candidate sub-table during parsing and expose it
// through GlyphIndexMap, as later stages need a single unambiguous mapping.
type CMapTable struct {
	tableBase
	GlyphIndexMap      GlyphIndexMap
	NumGlyphs          int
	VariationSelectors *UVSTable
}

// GlyphIndexForVariation resolves a (base rune, variation selector) pair
// via the format-14 Unicode Variation Sequences sub-table, when present.
// It never influences GlyphIndexMap's default mapping; callers fall back
// to GlyphIndexMap.Lookup(base) when this returns ok == false.
func (t *CMapTable) GlyphIndexForVariation(base, selector rune) (gid GlyphIndex, ok bool) {
	if t == nil || t.VariationSelectors == nil {
		return 0, false
	}
	return t.VariationSelectors.Lookup(base, selector, t.GlyphIndexMap)
}

func newCMapTable(tag Tag, b binarySegm, offset, size uint32) *CMapTable {
	t := &CMapTable{}
	t.tableBase = tableBase{data: b, name: tag, offset: offset, length: size}
	t.self = t
	return t
}

// GlyphIndexMap abstracts over the various cmap sub-table formats (0, 4, 6,
// 12, 13, ...), all of which map runes to glyph indices, some of them
// supporting efficient reverse lookup as well.
type GlyphIndexMap interface {
	Lookup(r rune) GlyphIndex
	ReverseLookup(g GlyphIndex) rune
}

// platformEncodingWidth ranks the usefulness of a (platform,encoding) pair,
// following the heuristic sanctioned by the OpenType spec appendix on the
// 'cmap' table: prefer full Unicode coverage, then BMP-only coverage, then
// Windows Symbol and Mac Roman at the lowest rank, and reject everything else.
func platformEncodingWidth(pid, psid uint16) int {
	switch {
	case pid == 0 && (psid == 4 || psid == 6): // Unicode full repertoire / UCS-4
		return 4
	case pid == 3 && psid == 10: // Windows, UCS-4
		return 4
	case pid == 0: // Unicode, any other encoding ID
		return 2
	case pid == 3 && psid == 1: // Windows, Unicode BMP
		return 2
	case pid == 3 && psid == 0: // Windows, Symbol -- still usable, low priority
		return 1
	case pid == 1 && psid == 0: // Macintosh, Roman
		return 1
	}
	return 0
}

// supportedCmapFormat reports whether we know how to decode a given cmap
// sub-table format at all.
func supportedCmapFormat(format, pid, psid uint16) bool {
	switch format {
	case 0, 4, 6, 12, 13:
		return true
	}
	return false
}

// makeGlyphIndex decodes the cmap sub-table selected by enc into a concrete
// GlyphIndexMap implementation.
func makeGlyphIndex(b binarySegm, enc encodingRecord, tag Tag, offset uint32, ec *errorCollector) (GlyphIndexMap, error) {
	sub := enc.link.Jump()
	data, ok := sub.(binarySegm)
	if !ok {
		return nil, errFontFormat("cmap sub-table is not a byte segment")
	}
	switch enc.format {
	case 0:
		return parseCmapFormat0(data)
	case 4:
		return parseCmapFormat4(data)
	case 6:
		return parseCmapFormat6(data)
	case 12:
		return parseCmapFormat12(data)
	case 13:
		return parseCmapFormat13(data)
	}
	ec.addError(tag, "Format", fmt.Sprintf("cmap format %d not supported", enc.format), SeverityMajor, offset)
	return nil, errFontFormat("unsupported cmap format")
}

// --- Format 0: byte encoding table ------------------------------------------

type format0GlyphIndex struct {
	glyphIdArray [256]byte
}

func parseCmapFormat0(b binarySegm) (GlyphIndexMap, error) {
	if len(b) < 6+256 {
		return nil, errFontFormat("cmap format 0 table too short")
	}
	var m format0GlyphIndex
	copy(m.glyphIdArray[:], b[6:6+256])
	return m, nil
}

func (m format0GlyphIndex) Lookup(r rune) GlyphIndex {
	if r < 0 || r > 255 {
		return 0
	}
	return GlyphIndex(m.glyphIdArray[r])
}

func (m format0GlyphIndex) ReverseLookup(g GlyphIndex) rune {
	for c, gid := range m.glyphIdArray {
		if GlyphIndex(gid) == g {
			return rune(c)
		}
	}
	return 0
}

// --- Format 4: segment mapping to delta values (BMP) ------------------------

type cmapSegment struct {
	endCode       uint16
	startCode     uint16
	idDelta       int16
	idRangeOffset uint16
	rangeOffset   int // byte offset of idRangeOffset field, for glyphIdArray indexing
}

type format4GlyphIndex struct {
	segments  []cmapSegment
	glyphIDs  binarySegm // raw glyphIdArray region
	numGlyphs int
}

func parseCmapFormat4(b binarySegm) (GlyphIndexMap, error) {
	if len(b) < 14 {
		return nil, errFontFormat("cmap format 4 table too short")
	}
	segCountX2, _ := b.u16(6)
	segCount := int(segCountX2 / 2)
	endCodesStart := 14
	startCodesStart := endCodesStart + int(segCountX2) + 2 // +2 for reservedPad
	idDeltaStart := startCodesStart + int(segCountX2)
	idRangeOffsetStart := idDeltaStart + int(segCountX2)
	glyphIDArrayStart := idRangeOffsetStart + int(segCountX2)
	if glyphIDArrayStart > len(b) {
		return nil, errFontFormat("cmap format 4 table truncated")
	}
	segments := make([]cmapSegment, segCount)
	for i := 0; i < segCount; i++ {
		end, _ := b.u16(endCodesStart + i*2)
		start, _ := b.u16(startCodesStart + i*2)
		delta, _ := b.u16(idDeltaStart + i*2)
		roff, _ := b.u16(idRangeOffsetStart + i*2)
		segments[i] = cmapSegment{
			endCode:       end,
			startCode:     start,
			idDelta:       int16(delta),
			idRangeOffset: roff,
			rangeOffset:   idRangeOffsetStart + i*2,
		}
	}
	return format4GlyphIndex{segments: segments, glyphIDs: b}, nil
}

func (m format4GlyphIndex) Lookup(r rune) GlyphIndex {
	if r < 0 || r > 0xFFFF {
		return 0
	}
	c := uint16(r)
	for _, seg := range m.segments {
		if c < seg.startCode || c > seg.endCode {
			continue
		}
		if seg.idRangeOffset == 0 {
			return GlyphIndex(uint16(int32(c) + int32(seg.idDelta)))
		}
		glyphIndexAddr := seg.rangeOffset + int(seg.idRangeOffset) + 2*int(c-seg.startCode)
		gid, err := m.glyphIDs.u16(glyphIndexAddr)
		if err != nil || gid == 0 {
			return 0
		}
		return GlyphIndex(uint16(int32(gid) + int32(seg.idDelta)))
	}
	return 0
}

func (m format4GlyphIndex) ReverseLookup(g GlyphIndex) rune {
	for _, seg := range m.segments {
		for c := int(seg.startCode); c <= int(seg.endCode) && c <= 0xFFFF; c++ {
			if m.Lookup(rune(c)) == g {
				return rune(c)
			}
		}
	}
	return 0
}

// --- Format 6: trimmed table mapping -----------------------------------

type format6GlyphIndex struct {
	firstCode    uint16
	glyphIdArray []uint16
}

func parseCmapFormat6(b binarySegm) (GlyphIndexMap, error) {
	if len(b) < 10 {
		return nil, errFontFormat("cmap format 6 table too short")
	}
	first, _ := b.u16(6)
	count, _ := b.u16(8)
	arr := make([]uint16, count)
	for i := 0; i < int(count); i++ {
		v, err := b.u16(10 + i*2)
		if err != nil {
			return nil, errFontFormat("cmap format 6 table truncated")
		}
		arr[i] = v
	}
	return format6GlyphIndex{firstCode: first, glyphIdArray: arr}, nil
}

func (m format6GlyphIndex) Lookup(r rune) GlyphIndex {
	if r < rune(m.firstCode) {
		return 0
	}
	i := int(r) - int(m.firstCode)
	if i < 0 || i >= len(m.glyphIdArray) {
		return 0
	}
	return GlyphIndex(m.glyphIdArray[i])
}

func (m format6GlyphIndex) ReverseLookup(g GlyphIndex) rune {
	for i, gid := range m.glyphIdArray {
		if GlyphIndex(gid) == g {
			return rune(int(m.firstCode) + i)
		}
	}
	return 0
}

// --- Format 12: segmented coverage (full Unicode) ---------------------------

type cmapGroup struct {
	startCharCode uint32
	endCharCode   uint32
	startGlyphID  uint32
}

type format12GlyphIndex struct {
	groups    []cmapGroup
	numGlyphs int
}

func parseCmapFormat12(b binarySegm) (GlyphIndexMap, error) {
	if len(b) < 16 {
		return nil, errFontFormat("cmap format 12 table too short")
	}
	n, _ := b.u32(12)
	groups := make([]cmapGroup, n)
	for i := 0; i < int(n); i++ {
		base := 16 + i*12
		if base+12 > len(b) {
			return nil, errFontFormat("cmap format 12 table truncated")
		}
		start, _ := b.u32(base)
		end, _ := b.u32(base + 4)
		gid, _ := b.u32(base + 8)
		groups[i] = cmapGroup{startCharCode: start, endCharCode: end, startGlyphID: gid}
	}
	return format12GlyphIndex{groups: groups}, nil
}

func (m format12GlyphIndex) Lookup(r rune) GlyphIndex {
	c := uint32(r)
	for _, g := range m.groups {
		if c >= g.startCharCode && c <= g.endCharCode {
			return GlyphIndex(g.startGlyphID + (c - g.startCharCode))
		}
	}
	return 0
}

func (m format12GlyphIndex) ReverseLookup(gid GlyphIndex) rune {
	g0 := uint32(gid)
	for _, g := range m.groups {
		span := g.endCharCode - g.startCharCode
		if g0 >= g.startGlyphID && g0 <= g.startGlyphID+span {
			return rune(g.startCharCode + (g0 - g.startGlyphID))
		}
	}
	return 0
}

// --- Format 13: many-to-one range mapping -----------------------------------

type format13GlyphIndex struct {
	groups []cmapGroup // startGlyphID is a constant glyph ID for the whole range
}

func parseCmapFormat13(b binarySegm) (GlyphIndexMap, error) {
	if len(b) < 16 {
		return nil, errFontFormat("cmap format 13 table too short")
	}
	n, _ := b.u32(12)
	groups := make([]cmapGroup, n)
	for i := 0; i < int(n); i++ {
		base := 16 + i*12
		if base+12 > len(b) {
			return nil, errFontFormat("cmap format 13 table truncated")
		}
		start, _ := b.u32(base)
		end, _ := b.u32(base + 4)
		gid, _ := b.u32(base + 8)
		groups[i] = cmapGroup{startCharCode: start, endCharCode: end, startGlyphID: gid}
	}
	return format13GlyphIndex{groups: groups}, nil
}

func (m format13GlyphIndex) Lookup(r rune) GlyphIndex {
	c := uint32(r)
	for _, g := range m.groups {
		if c >= g.startCharCode && c <= g.endCharCode {
			return GlyphIndex(g.startGlyphID)
		}
	}
	return 0
}

func (m format13GlyphIndex) ReverseLookup(gid GlyphIndex) rune {
	for _, g := range m.groups {
		if uint32(gid) == g.startGlyphID {
			return rune(g.startCharCode)
		}
	}
	return 0
}

// --- Format 14: Unicode variation sequences ---------------------------------

// uvsDefaultRange is one entry of a default-UVS table: a run of base
// characters whose presentation with this selector is identical to their
// default glyph, i.e. GlyphIndexMap.Lookup(base) should be used.
type uvsDefaultRange struct {
	startUnicodeValue uint32 // 24 bits
	additionalCount   uint8
}

// uvsNonDefaultMapping is one entry of a non-default-UVS table: an
// explicit glyph substitute for (base, selector).
type uvsNonDefaultMapping struct {
	unicodeValue uint32 // 24 bits
	glyphID      uint16
}

type uvsSelectorRecord struct {
	varSelector       uint32 // 24 bits
	defaultRanges     []uvsDefaultRange
	nonDefaultMapping []uvsNonDefaultMapping
}

// UVSTable holds a cmap format-14 Unicode Variation Sequences sub-table.
type UVSTable struct {
	selectors []uvsSelectorRecord
}

func parseCmapFormat14(b binarySegm) (*UVSTable, error) {
	if len(b) < 10 {
		return nil, errFontFormat("cmap format 14 table too short")
	}
	n, _ := b.u32(6)
	t := &UVSTable{}
	for i := 0; i < int(n); i++ {
		base := 10 + i*11
		if base+11 > len(b) {
			return nil, errFontFormat("cmap format 14 variation selector records truncated")
		}
		sel := u24(b, base)
		defOff, _ := b.u32(base + 3)
		nonDefOff, _ := b.u32(base + 7)
		rec := uvsSelectorRecord{varSelector: sel}
		if defOff != 0 {
			ranges, err := parseUVSDefaultTable(b, int(defOff))
			if err != nil {
				return nil, err
			}
			rec.defaultRanges = ranges
		}
		if nonDefOff != 0 {
			mappings, err := parseUVSNonDefaultTable(b, int(nonDefOff))
			if err != nil {
				return nil, err
			}
			rec.nonDefaultMapping = mappings
		}
		t.selectors = append(t.selectors, rec)
	}
	return t, nil
}

func u24(b binarySegm, pos int) uint32 {
	if pos+3 > len(b) {
		return 0
	}
	return uint32(b[pos])<<16 | uint32(b[pos+1])<<8 | uint32(b[pos+2])
}

func parseUVSDefaultTable(b binarySegm, pos int) ([]uvsDefaultRange, error) {
	if pos+4 > len(b) {
		return nil, errFontFormat("UVS default table truncated")
	}
	n, _ := b.u32(pos)
	out := make([]uvsDefaultRange, 0, n)
	for i := 0; i < int(n); i++ {
		rp := pos + 4 + i*4
		if rp+4 > len(b) {
			return nil, errFontFormat("UVS default range truncated")
		}
		out = append(out, uvsDefaultRange{startUnicodeValue: u24(b, rp), additionalCount: b[rp+3]})
	}
	return out, nil
}

func parseUVSNonDefaultTable(b binarySegm, pos int) ([]uvsNonDefaultMapping, error) {
	if pos+4 > len(b) {
		return nil, errFontFormat("UVS non-default table truncated")
	}
	n, _ := b.u32(pos)
	out := make([]uvsNonDefaultMapping, 0, n)
	for i := 0; i < int(n); i++ {
		rp := pos + 4 + i*5
		if rp+5 > len(b) {
			return nil, errFontFormat("UVS non-default mapping truncated")
		}
		gid, _ := b.u16(rp + 3)
		out = append(out, uvsNonDefaultMapping{unicodeValue: u24(b, rp), glyphID: gid})
	}
	return out, nil
}

// Lookup resolves a base rune plus variation selector to a glyph index.
// ok is false when the selector is unknown or the base character has no
// entry for it, in which case callers should fall back to the font's
// default cmap lookup.
func (u *UVSTable) Lookup(base, selector rune, fallback GlyphIndexMap) (GlyphIndex, bool) {
	if u == nil {
		return 0, false
	}
	sel := uint32(selector)
	for _, rec := range u.selectors {
		if rec.varSelector != sel {
			continue
		}
		for _, m := range rec.nonDefaultMapping {
			if m.unicodeValue == uint32(base) {
				return GlyphIndex(m.glyphID), true
			}
		}
		for _, r := range rec.defaultRanges {
			if uint32(base) >= r.startUnicodeValue && uint32(base) <= r.startUnicodeValue+uint32(r.additionalCount) {
				if fallback == nil {
					return 0, false
				}
				return fallback.Lookup(base), true
			}
		}
		return 0, false
	}
	return 0, false
}
