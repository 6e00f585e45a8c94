package ot

// This file implements the AAT "extended state table" driver shared by
// 'morx' (glyph metamorphosis) and 'kerx' (extended kerning): a state
// machine over glyph classes, walked left-to-right (or right-to-left)
// over a glyph run, with per-(state,class) entries selecting a next state
// plus subtable-specific action flags/data.

// aatLookupTable is a parsed AAT lookup table, mapping a glyph to a
// class/value. Only the formats actually emitted by font compilers in
// practice are implemented; parseAATLookupTable returns an error for others.
type aatLookupTable struct {
	format uint16
	// format 0: values[gid] directly, dense from firstGlyph
	firstGlyph uint16
	values     []uint16
	// format 2/4/6: segment-based; format 8: single range, dense
	segments []aatLookupSegment
}

type aatLookupSegment struct {
	first, last uint16
	value       uint16      // format 2
	valueOffset int         // format 4/6: offset to per-glyph values within table
	values      []uint16    // format 4/6 resolved values, parallel to [first,last]
}

func parseAATLookupTable(b binarySegm, pos int) (aatLookupTable, error) {
	if pos+2 > len(b) {
		return aatLookupTable{}, errFontFormat("AAT lookup table truncated")
	}
	format, _ := b.u16(pos)
	lt := aatLookupTable{format: format}
	switch format {
	case 0:
		// binary values array starting right after format, one per glyph
		// (dense, covering the whole glyph ID space the caller knows about).
		lt.firstGlyph = 0
		p := pos + 2
		for p+2 <= len(b) {
			v, _ := b.u16(p)
			lt.values = append(lt.values, v)
			p += 2
		}
	case 2:
		if pos+12 > len(b) {
			return lt, errFontFormat("AAT lookup format 2 truncated")
		}
		unitSize, _ := b.u16(pos + 2)
		nUnits, _ := b.u16(pos + 4)
		p := pos + 12
		for i := 0; i < int(nUnits); i++ {
			if p+int(unitSize) > len(b) {
				break
			}
			last, _ := b.u16(p)
			first, _ := b.u16(p + 2)
			value, _ := b.u16(p + 4)
			if last == 0xFFFF && first == 0xFFFF {
				break
			}
			lt.segments = append(lt.segments, aatLookupSegment{first: first, last: last, value: value})
			p += int(unitSize)
		}
	case 4:
		if pos+12 > len(b) {
			return lt, errFontFormat("AAT lookup format 4 truncated")
		}
		unitSize, _ := b.u16(pos + 2)
		nUnits, _ := b.u16(pos + 4)
		p := pos + 12
		for i := 0; i < int(nUnits); i++ {
			if p+int(unitSize) > len(b) {
				break
			}
			last, _ := b.u16(p)
			first, _ := b.u16(p + 2)
			offset, _ := b.u16(p + 4)
			if last == 0xFFFF && first == 0xFFFF {
				break
			}
			seg := aatLookupSegment{first: first, last: last}
			count := int(last) - int(first) + 1
			vp := pos + int(offset)
			for g := 0; g < count && vp+2 <= len(b); g++ {
				v, _ := b.u16(vp)
				seg.values = append(seg.values, v)
				vp += 2
			}
			lt.segments = append(lt.segments, seg)
			p += int(unitSize)
		}
	case 6:
		if pos+12 > len(b) {
			return lt, errFontFormat("AAT lookup format 6 truncated")
		}
		unitSize, _ := b.u16(pos + 2)
		nUnits, _ := b.u16(pos + 4)
		p := pos + 12
		for i := 0; i < int(nUnits); i++ {
			if p+int(unitSize) > len(b) {
				break
			}
			glyph, _ := b.u16(p)
			value, _ := b.u16(p + 2)
			if glyph == 0xFFFF {
				break
			}
			lt.segments = append(lt.segments, aatLookupSegment{first: glyph, last: glyph, value: value})
			p += int(unitSize)
		}
	case 8:
		if pos+6 > len(b) {
			return lt, errFontFormat("AAT lookup format 8 truncated")
		}
		first, _ := b.u16(pos + 2)
		count, _ := b.u16(pos + 4)
		lt.firstGlyph = first
		p := pos + 6
		for i := 0; i < int(count) && p+2 <= len(b); i++ {
			v, _ := b.u16(p)
			lt.values = append(lt.values, v)
			p += 2
		}
	default:
		return lt, errFontFormat("AAT lookup: unsupported format")
	}
	return lt, nil
}

// lookup resolves a glyph to its class/value; ok is false when the glyph
// is not covered (the caller should use the state table's default class,
// typically "out of bounds").
func (lt aatLookupTable) lookup(gid GlyphIndex) (uint16, bool) {
	switch lt.format {
	case 0, 8:
		idx := int(gid) - int(lt.firstGlyph)
		if idx < 0 || idx >= len(lt.values) {
			return 0, false
		}
		return lt.values[idx], true
	case 2, 6:
		for _, seg := range lt.segments {
			if uint16(gid) >= seg.first && uint16(gid) <= seg.last {
				return seg.value, true
			}
		}
		return 0, false
	case 4:
		for _, seg := range lt.segments {
			if uint16(gid) >= seg.first && uint16(gid) <= seg.last {
				idx := int(gid) - int(seg.first)
				if idx < len(seg.values) {
					return seg.values[idx], true
				}
			}
		}
		return 0, false
	}
	return 0, false
}

// AAT reserved classes, common to morx and kerx state tables.
const (
	aatClassEndOfText = 0
	aatClassOutOfBounds = 1
	aatClassDeletedGlyph = 2
	aatClassFirstDynamic = 4 // classes 0..3 reserved, rest font-defined (morx); kerx differs slightly
)

// aatStateTable is the common "STHeader" header shared by morx/kerx
// subtables: class table, state array, and entry table, addressed
// relative to the subtable's own start.
type aatStateTable struct {
	classes    aatLookupTable
	nClasses   int
	stateArray binarySegm // nStates * nClasses, uint16 entries (morx) -- table-specific width handled by caller
	entryTable binarySegm
}

// parseAATStateTableHeader decodes an STXHeader: nClasses, then three
// offsets (class table, state array, entry table), each relative to pos.
func parseAATStateTableHeader(b binarySegm, pos int) (nClasses int, classTableOff, stateArrayOff, entryTableOff uint32, next int, err error) {
	if pos+16 > len(b) {
		return 0, 0, 0, 0, 0, errFontFormat("AAT state table header truncated")
	}
	nc, _ := b.u32(pos)
	cto, _ := b.u32(pos + 4)
	sao, _ := b.u32(pos + 8)
	eto, _ := b.u32(pos + 12)
	return int(nc), cto, sao, eto, pos + 16, nil
}
