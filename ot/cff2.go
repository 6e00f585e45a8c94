package ot

// This file implements CFF2, the variable-font-capable successor to CFF
// used by 'CFF2' tables: a leaner header (no Name/String INDEX, a bare Top
// DICT instead of a Top DICT INDEX), a 32-bit-count INDEX variant, and an
// optional Item Variation Store feeding the charstring interpreter's
// 'blend' operator.

// parseCFF2Index decodes CFF2's INDEX variant: same layout as the classic cffIndex
// but with a 4-byte item count instead of 2.
func parseCFF2Index(b binarySegm, pos int) (cffIndex, int, error) {
	if pos+4 > len(b) {
		return cffIndex{}, 0, errFontFormat("CFF2 INDEX: truncated count")
	}
	count, _ := b.u32(pos)
	pos += 4
	if count == 0 {
		return cffIndex{}, pos, nil
	}
	if pos >= len(b) {
		return cffIndex{}, 0, errFontFormat("CFF2 INDEX: truncated offSize")
	}
	offSize := int(b[pos])
	pos++
	if offSize < 1 || offSize > 4 {
		return cffIndex{}, 0, errFontFormat("CFF2 INDEX: invalid offSize")
	}
	offsets := make([]uint32, int(count)+1)
	for i := range offsets {
		if pos+offSize > len(b) {
			return cffIndex{}, 0, errFontFormat("CFF2 INDEX: truncated offset array")
		}
		var v uint32
		for k := 0; k < offSize; k++ {
			v = v<<8 | uint32(b[pos+k])
		}
		offsets[i] = v
		pos += offSize
	}
	dataStart := pos - 1
	idx := cffIndex{data: make([][]byte, count)}
	for i := 0; i < int(count); i++ {
		s, e := dataStart+int(offsets[i]), dataStart+int(offsets[i+1])
		if s < 0 || e > len(b) || s > e {
			return cffIndex{}, 0, errFontFormat("CFF2 INDEX: invalid data range")
		}
		idx.data[i] = b[s:e]
	}
	return idx, dataStart + int(offsets[count]), nil
}

// CFF2Table exposes glyph outlines decoded from CFF2 charstrings, with
// support for variable-font delta blending via an Item Variation Store.
type CFF2Table struct {
	tableBase
	charStrings  cffIndex
	globalSubrs  cffIndex
	localSubrs   cffIndex
	fdLocalSubrs []cffIndex
	fdSelect     []byte
	isCID        bool
	varStore     *itemVariationStore
}

func newCFF2Table(tag Tag, b binarySegm, offset, size uint32) *CFF2Table {
	t := &CFF2Table{}
	t.tableBase = tableBase{data: b, name: tag, offset: offset, length: size}
	t.self = t
	return t
}

func parseCFF2(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size < 5 {
		ec.addError(tag, "Header", "CFF2 table too small", SeverityCritical, offset)
		return nil, errFontFormat("CFF2 table too small")
	}
	headerSize := int(b[2])
	topDictLength, _ := b.u16(3)
	if headerSize+int(topDictLength) > len(b) {
		ec.addError(tag, "Header", "Top DICT extends past table", SeverityCritical, offset)
		return nil, errFontFormat("CFF2: Top DICT out of bounds")
	}
	topDict, err := parseCFFDict(b[headerSize : headerSize+int(topDictLength)])
	if err != nil {
		ec.addError(tag, "TopDict", err.Error(), SeverityCritical, offset)
		return nil, err
	}
	pos := headerSize + int(topDictLength)
	globalSubrs, _, err := parseCFF2Index(b, pos)
	if err != nil {
		ec.addError(tag, "GlobalSubrIndex", err.Error(), SeverityCritical, offset)
		return nil, err
	}

	t := newCFF2Table(tag, b, offset, size)
	t.globalSubrs = globalSubrs

	csOff, ok := dictInt(topDict, dictOpCharstrings)
	if !ok {
		ec.addError(tag, "TopDict", "missing CharStrings offset", SeverityCritical, offset)
		return nil, errFontFormat("CFF2: missing CharStrings")
	}
	charStrings, _, err := parseCFF2Index(b, csOff)
	if err != nil {
		ec.addError(tag, "CharStringsIndex", err.Error(), SeverityCritical, offset)
		return nil, err
	}
	t.charStrings = charStrings

	if vsOff, ok := dictInt(topDict, dictOpVarStore); ok {
		if store, err := parseItemVariationStore(b, vsOff); err == nil {
			t.varStore = store
		} else {
			ec.addWarning(tag, err.Error(), offset)
		}
	}

	if fdaOff, ok := dictInt(topDict, dictOpFDArray); ok {
		t.isCID = true
		fdArray, _, err := parseCFF2Index(b, fdaOff)
		if err == nil {
			for i := 0; i < fdArray.len(); i++ {
				fd, err := parseCFFDict(fdArray.get(i))
				if err != nil {
					continue
				}
				t.fdLocalSubrs = append(t.fdLocalSubrs, loadPrivateLocalSubrs(b, fd))
			}
		}
		if fdsOff, ok := dictInt(topDict, dictOpFDSelect); ok {
			t.fdSelect = parseFDSelect(b, fdsOff, charStrings.len())
		}
	} else {
		t.localSubrs = loadPrivateLocalSubrs(b, topDict)
	}
	return t, nil
}

// Outline decodes the outline of a single glyph at the given normalized
// variation-space coordinates (nil or empty for the default instance).
func (t *CFF2Table) Outline(gid GlyphIndex, normCoords []F2Dot14) (*GlyphOutline, error) {
	cs := t.charStrings.get(int(gid))
	if cs == nil {
		return nil, errFontFormat("CFF2: glyph index out of range")
	}
	local := t.localSubrs
	if t.isCID && int(gid) < len(t.fdSelect) {
		fd := int(t.fdSelect[gid])
		if fd < len(t.fdLocalSubrs) {
			local = t.fdLocalSubrs[fd]
		}
	}
	return runCharstring(cs, t.globalSubrs.data, local.data, t.varStore, normCoords)
}

// NumGlyphs returns the number of glyphs covered by this CFF2 table's
// CharStrings INDEX.
func (t *CFF2Table) NumGlyphs() int {
	return t.charStrings.len()
}
