package ot

// This file implements enough of the CFF (Compact Font Format) table to
// decode Type 2 charstring outlines: INDEX structures, Top/Private DICTs,
// global/local subroutines, and (for CID-keyed fonts) FDArray/FDSelect.
// Hinting data (Private DICT's hint-related keys) is parsed only insofar
// as it must be skipped to reach the keys we need.

// cffIndex is the classic (pre-CFF2) INDEX structure: a count-prefixed
// array of variable-length byte strings.
type cffIndex struct {
	data [][]byte
}

func (idx cffIndex) len() int { return len(idx.data) }

func (idx cffIndex) get(i int) []byte {
	if i < 0 || i >= len(idx.data) {
		return nil
	}
	return idx.data[i]
}

// parseCFFIndex decodes a CFF (version-1) INDEX starting at pos. Returns
// the index and the position just past it.
func parseCFFIndex(b binarySegm, pos int) (cffIndex, int, error) {
	if pos+2 > len(b) {
		return cffIndex{}, 0, errFontFormat("CFF INDEX: truncated count")
	}
	count, _ := b.u16(pos)
	pos += 2
	if count == 0 {
		return cffIndex{}, pos, nil
	}
	if pos >= len(b) {
		return cffIndex{}, 0, errFontFormat("CFF INDEX: truncated offSize")
	}
	offSize := int(b[pos])
	pos++
	if offSize < 1 || offSize > 4 {
		return cffIndex{}, 0, errFontFormat("CFF INDEX: invalid offSize")
	}
	offsets := make([]uint32, int(count)+1)
	for i := range offsets {
		if pos+offSize > len(b) {
			return cffIndex{}, 0, errFontFormat("CFF INDEX: truncated offset array")
		}
		var v uint32
		for k := 0; k < offSize; k++ {
			v = v<<8 | uint32(b[pos+k])
		}
		offsets[i] = v
		pos += offSize
	}
	dataStart := pos - 1 // offsets are 1-based from byte preceding the data
	idx := cffIndex{data: make([][]byte, count)}
	for i := 0; i < int(count); i++ {
		s, e := dataStart+int(offsets[i]), dataStart+int(offsets[i+1])
		if s < 0 || e > len(b) || s > e {
			return cffIndex{}, 0, errFontFormat("CFF INDEX: invalid data range")
		}
		idx.data[i] = b[s:e]
	}
	return idx, dataStart + int(offsets[count]), nil
}

// cffDict is a decoded Top/Private DICT: operator -> operand list.
type cffDict map[int][]float64

// dictEscapedBase packs an escaped (12-prefixed) operator as 1200+op so it
// doesn't collide with single-byte operators.
const dictEscapedBase = 1200

func parseCFFDict(b []byte) (cffDict, error) {
	dict := cffDict{}
	var operands []float64
	i := 0
	for i < len(b) {
		b0 := b[i]
		switch {
		case b0 <= 21:
			op := int(b0)
			i++
			if b0 == 12 {
				if i >= len(b) {
					return nil, errFontFormat("CFF DICT: truncated escape operator")
				}
				op = dictEscapedBase + int(b[i])
				i++
			}
			dict[op] = operands
			operands = nil
		case b0 == 28:
			if i+3 > len(b) {
				return nil, errFontFormat("CFF DICT: truncated shortint")
			}
			v := int16(uint16(b[i+1])<<8 | uint16(b[i+2]))
			operands = append(operands, float64(v))
			i += 3
		case b0 == 29:
			if i+5 > len(b) {
				return nil, errFontFormat("CFF DICT: truncated longint")
			}
			v := int32(uint32(b[i+1])<<24 | uint32(b[i+2])<<16 | uint32(b[i+3])<<8 | uint32(b[i+4]))
			operands = append(operands, float64(v))
			i += 5
		case b0 == 30: // real number, packed BCD nibbles
			i++
			s := ""
			done := false
			for i < len(b) && !done {
				byt := b[i]
				i++
				for _, nibble := range []byte{byt >> 4, byt & 0xf} {
					switch nibble {
					case 0xa:
						s += "."
					case 0xb:
						s += "E"
					case 0xc:
						s += "E-"
					case 0xe:
						s += "-"
					case 0xf:
						done = true
					default:
						if nibble <= 9 {
							s += string('0' + nibble)
						}
					}
					if done {
						break
					}
				}
			}
			operands = append(operands, parseCFFReal(s))
		case b0 >= 32 && b0 <= 246:
			operands = append(operands, float64(int(b0)-139))
			i++
		case b0 >= 247 && b0 <= 250:
			if i+2 > len(b) {
				return nil, errFontFormat("CFF DICT: truncated operand")
			}
			operands = append(operands, float64((int(b0)-247)*256+int(b[i+1])+108))
			i += 2
		case b0 >= 251 && b0 <= 254:
			if i+2 > len(b) {
				return nil, errFontFormat("CFF DICT: truncated operand")
			}
			operands = append(operands, float64(-(int(b0)-251)*256-int(b[i+1])-108))
			i += 2
		default:
			i++ // reserved (255 in DICT context is not used by Type2 DICTs)
		}
	}
	return dict, nil
}

func parseCFFReal(s string) float64 {
	var v float64
	var sign float64 = 1
	var frac float64
	var fracDiv float64 = 1
	inFrac := false
	expSign := 1.0
	var exp float64
	inExp := false
	expNeg := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '-' && i == 0:
			sign = -1
		case c == '-':
			expNeg = true
		case c == '.':
			inFrac = true
		case c == 'E':
			inExp = true
		case c >= '0' && c <= '9':
			d := float64(c - '0')
			switch {
			case inExp:
				exp = exp*10 + d
			case inFrac:
				frac = frac*10 + d
				fracDiv *= 10
			default:
				v = v*10 + d
			}
		}
	}
	if expNeg {
		expSign = -1
	}
	result := sign * (v + frac/fracDiv)
	if inExp {
		result *= pow10(expSign * exp)
	}
	return result
}

func pow10(e float64) float64 {
	r := 1.0
	n := int(e)
	neg := n < 0
	if neg {
		n = -n
	}
	for i := 0; i < n; i++ {
		r *= 10
	}
	if neg {
		return 1 / r
	}
	return r
}

// Top DICT operator keys we act on.
const (
	dictOpCharstrings = 17
	dictOpPrivate     = 18
	dictOpCharset     = 15
	dictOpROS         = dictEscapedBase + 30
	dictOpFDArray     = dictEscapedBase + 36
	dictOpFDSelect    = dictEscapedBase + 37
	dictOpSubrs       = 19 // within Private DICT
	dictOpVarStore    = dictEscapedBase + 24 // CFF2 only
)

// CFFTable exposes glyph outlines decoded from Type 2 charstrings.
type CFFTable struct {
	tableBase
	charStrings cffIndex
	globalSubrs cffIndex
	isCID       bool
	// non-CID fonts: single local-subr set
	localSubrs cffIndex
	// CID-keyed fonts: per-FD local-subr sets plus a glyph->FD mapping
	fdLocalSubrs []cffIndex
	fdSelect     []byte // gid -> FD index, length == number of glyphs
}

func newCFFTable(tag Tag, b binarySegm, offset, size uint32) *CFFTable {
	t := &CFFTable{}
	t.tableBase = tableBase{data: b, name: tag, offset: offset, length: size}
	t.self = t
	return t
}

func parseCFF(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size < 4 {
		ec.addError(tag, "Header", "CFF table too small", SeverityCritical, offset)
		return nil, errFontFormat("CFF table too small")
	}
	hdrSize := int(b[2])
	pos := hdrSize
	_, pos, err := parseCFFIndex(b, pos) // Name INDEX, unused
	if err != nil {
		ec.addError(tag, "NameIndex", err.Error(), SeverityCritical, offset)
		return nil, err
	}
	topDicts, pos, err := parseCFFIndex(b, pos)
	if err != nil {
		ec.addError(tag, "TopDictIndex", err.Error(), SeverityCritical, offset)
		return nil, err
	}
	_, pos, err = parseCFFIndex(b, pos) // String INDEX, unused (no glyph naming here)
	if err != nil {
		ec.addError(tag, "StringIndex", err.Error(), SeverityCritical, offset)
		return nil, err
	}
	globalSubrs, _, err := parseCFFIndex(b, pos)
	if err != nil {
		ec.addError(tag, "GlobalSubrIndex", err.Error(), SeverityCritical, offset)
		return nil, err
	}
	if topDicts.len() == 0 {
		ec.addError(tag, "TopDictIndex", "no Top DICT present", SeverityCritical, offset)
		return nil, errFontFormat("CFF: missing Top DICT")
	}
	topDict, err := parseCFFDict(topDicts.get(0))
	if err != nil {
		ec.addError(tag, "TopDict", err.Error(), SeverityCritical, offset)
		return nil, err
	}

	t := newCFFTable(tag, b, offset, size)
	t.globalSubrs = globalSubrs

	csOff, ok := dictInt(topDict, dictOpCharstrings)
	if !ok {
		ec.addError(tag, "TopDict", "missing CharStrings offset", SeverityCritical, offset)
		return nil, errFontFormat("CFF: missing CharStrings")
	}
	charStrings, _, err := parseCFFIndex(b, csOff)
	if err != nil {
		ec.addError(tag, "CharStringsIndex", err.Error(), SeverityCritical, offset)
		return nil, err
	}
	t.charStrings = charStrings

	if _, isCID := topDict[dictOpROS]; isCID {
		t.isCID = true
		if fdaOff, ok := dictInt(topDict, dictOpFDArray); ok {
			fdArray, _, err := parseCFFIndex(b, fdaOff)
			if err == nil {
				for i := 0; i < fdArray.len(); i++ {
					fd, err := parseCFFDict(fdArray.get(i))
					if err != nil {
						continue
					}
					t.fdLocalSubrs = append(t.fdLocalSubrs, loadPrivateLocalSubrs(b, fd))
				}
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

func dictInt(d cffDict, op int) (int, bool) {
	vals, ok := d[op]
	if !ok || len(vals) == 0 {
		return 0, false
	}
	return int(vals[len(vals)-1]), true
}

// loadPrivateLocalSubrs resolves the Private DICT (size, offset pair) and,
// within it, the local Subrs INDEX, for a Top DICT or Font DICT.
func loadPrivateLocalSubrs(b binarySegm, dict cffDict) cffIndex {
	priv, ok := dict[dictOpPrivate]
	if !ok || len(priv) < 2 {
		return cffIndex{}
	}
	privSize, privOffset := int(priv[0]), int(priv[1])
	if privOffset < 0 || privOffset+privSize > len(b) {
		return cffIndex{}
	}
	privDict, err := parseCFFDict(b[privOffset : privOffset+privSize])
	if err != nil {
		return cffIndex{}
	}
	subrsOff, ok := dictInt(privDict, dictOpSubrs)
	if !ok {
		return cffIndex{}
	}
	idx, _, err := parseCFFIndex(b, privOffset+subrsOff)
	if err != nil {
		return cffIndex{}
	}
	return idx
}

// parseFDSelect decodes the FDSelect table (formats 0 and 3) mapping each
// glyph to a Font DICT index, for CID-keyed CFF fonts.
func parseFDSelect(b binarySegm, pos int, numGlyphs int) []byte {
	if pos >= len(b) {
		return nil
	}
	format := b[pos]
	sel := make([]byte, numGlyphs)
	switch format {
	case 0:
		if pos+1+numGlyphs > len(b) {
			return nil
		}
		copy(sel, b[pos+1:pos+1+numGlyphs])
	case 3:
		if pos+3 > len(b) {
			return nil
		}
		nRanges, _ := b.u16(pos + 1)
		p := pos + 3
		var first uint16
		for r := 0; r < int(nRanges); r++ {
			if p+3 > len(b) {
				return sel
			}
			first, _ = b.u16(p)
			fd := b[p+2]
			var next uint16
			if p+5 <= len(b) {
				next, _ = b.u16(p + 3)
			}
			for g := int(first); g < int(next) && g < numGlyphs; g++ {
				sel[g] = fd
			}
			p += 3
		}
	}
	return sel
}

// Outline decodes the outline of a single glyph via the Type 2 charstring
// interpreter.
func (t *CFFTable) Outline(gid GlyphIndex) (*GlyphOutline, error) {
	cs := t.charStrings.get(int(gid))
	if cs == nil {
		return nil, errFontFormat("CFF: glyph index out of range")
	}
	local := t.localSubrs
	if t.isCID && int(gid) < len(t.fdSelect) {
		fd := int(t.fdSelect[gid])
		if fd < len(t.fdLocalSubrs) {
			local = t.fdLocalSubrs[fd]
		}
	}
	return runCharstring(cs, t.globalSubrs.data, local.data, nil, nil)
}

// NumGlyphs returns the number of glyphs covered by this CFF table's
// CharStrings INDEX.
func (t *CFFTable) NumGlyphs() int {
	return t.charStrings.len()
}
