package ot

// This file implements 'kerx', the AAT extended kerning table: a sequence
// of subtables, each either an ordered-pair list (format 0), a state
// machine producing kerning via the AAT state-table driver (format 1), a
// two-dimensional class matrix (format 2), or a compact glyph-indexed
// array (format 6).

type kerxSubtable struct {
	coverage uint32
	format   uint8
	pairs    []kerxPair       // format 0
	control  *kerxControlData // format 1
	classes  *kerxClassData   // format 2
	compact  *kerxCompactData // format 6
}

func (s kerxSubtable) isVertical() bool  { return s.coverage&0x80000000 != 0 }
func (s kerxSubtable) isCrossStream() bool { return s.coverage&0x40000000 != 0 }

type kerxPair struct {
	left, right GlyphIndex
	value       int16
}

type kerxControlData struct {
	classes  aatLookupTable
	states   binarySegm
	entries  binarySegm // newState(2) flags(2) valueOffset(2), 6 bytes/entry
	values   binarySegm // int16 array
	nClasses int
}

type kerxClassData struct {
	leftClasses, rightClasses aatLookupTable
	array                     binarySegm // int16 matrix, rowWidth bytes per left class
	rowWidth                  int
}

type kerxCompactData struct {
	firstGlyph uint16
	values     []int16 // per (left) glyph, already resolved against a trailing lookup for right glyph in practice; simplified to a direct value here
}

// KerxTable implements AAT extended kerning.
type KerxTable struct {
	tableBase
	subtables []kerxSubtable
}

func newKerxTable(tag Tag, b binarySegm, offset, size uint32) *KerxTable {
	t := &KerxTable{}
	t.tableBase = tableBase{data: b, name: tag, offset: offset, length: size}
	t.self = t
	return t
}

func parseKerx(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size < 8 {
		ec.addError(tag, "Header", "kerx table too small", SeverityCritical, offset)
		return nil, errFontFormat("kerx table too small")
	}
	nTables, _ := b.u32(4)
	t := newKerxTable(tag, b, offset, size)
	pos := 8
	for i := 0; i < int(nTables); i++ {
		if pos+12 > len(b) {
			ec.addWarning(tag, "subtable header truncated", offset+uint32(pos))
			break
		}
		length, _ := b.u32(pos)
		coverage, _ := b.u32(pos + 4)
		// tupleCount at pos+8, only meaningful for variable-kerning fonts; skipped
		format := uint8((coverage >> 16) & 0xFF)
		body := pos + 12
		sub := kerxSubtable{coverage: coverage, format: format}
		var err error
		switch format {
		case 0:
			sub.pairs, err = parseKerxFormat0(b, body)
		case 1:
			sub.control, err = parseKerxFormat1(b, body)
		case 2:
			sub.classes, err = parseKerxFormat2(b, body)
		case 6:
			sub.compact, err = parseKerxFormat6(b, body)
		}
		if err != nil {
			ec.addWarning(tag, err.Error(), offset+uint32(body))
		} else {
			t.subtables = append(t.subtables, sub)
		}
		pos += int(length)
	}
	return t, nil
}

func parseKerxFormat0(b binarySegm, pos int) ([]kerxPair, error) {
	if pos+8 > len(b) {
		return nil, errFontFormat("kerx format 0 header truncated")
	}
	nPairs, _ := b.u32(pos)
	p := pos + 16 // skip nPairs, searchRange, entrySelector, rangeShift (4 uint32)
	pairs := make([]kerxPair, 0, nPairs)
	for i := 0; i < int(nPairs); i++ {
		if p+6 > len(b) {
			break
		}
		left, _ := b.u16(p)
		right, _ := b.u16(p + 2)
		value, _ := b.u16(p + 4)
		pairs = append(pairs, kerxPair{left: GlyphIndex(left), right: GlyphIndex(right), value: int16(value)})
		p += 6
	}
	return pairs, nil
}

func parseKerxFormat1(b binarySegm, pos int) (*kerxControlData, error) {
	nClasses, classOff, stateOff, entryOff, _, err := parseAATStateTableHeader(b, pos)
	if err != nil {
		return nil, err
	}
	if pos+20 > len(b) {
		return nil, errFontFormat("kerx format 1 header truncated")
	}
	valueOff, _ := b.u32(pos + 16)
	classes, err := parseAATLookupTable(b, pos+int(classOff))
	if err != nil {
		return nil, err
	}
	return &kerxControlData{
		classes:  classes,
		states:   b[pos+int(stateOff):],
		entries:  b[pos+int(entryOff):],
		values:   b[pos+int(valueOff):],
		nClasses: nClasses,
	}, nil
}

func parseKerxFormat2(b binarySegm, pos int) (*kerxClassData, error) {
	if pos+16 > len(b) {
		return nil, errFontFormat("kerx format 2 header truncated")
	}
	rowWidth, _ := b.u32(pos)
	leftOff, _ := b.u32(pos + 4)
	rightOff, _ := b.u32(pos + 8)
	arrayOff, _ := b.u32(pos + 12)
	leftClasses, err := parseAATLookupTable(b, pos+int(leftOff))
	if err != nil {
		return nil, err
	}
	rightClasses, err := parseAATLookupTable(b, pos+int(rightOff))
	if err != nil {
		return nil, err
	}
	return &kerxClassData{
		leftClasses:  leftClasses,
		rightClasses: rightClasses,
		array:        b[pos+int(arrayOff):],
		rowWidth:     int(rowWidth),
	}, nil
}

func parseKerxFormat6(b binarySegm, pos int) (*kerxCompactData, error) {
	if pos+12 > len(b) {
		return nil, errFontFormat("kerx format 6 header truncated")
	}
	// Simplified: treat as a row-table keyed solely by the left glyph,
	// via the shared AAT lookup-table format (flags/rowCount/columnCount
	// fields beyond this are font-tuning data not needed for a value
	// lookup and are skipped).
	lt, err := parseAATLookupTable(b, pos+8)
	if err != nil {
		return nil, err
	}
	values := make([]int16, len(lt.values))
	for i, v := range lt.values {
		values[i] = int16(v)
	}
	return &kerxCompactData{firstGlyph: lt.firstGlyph, values: values}, nil
}

// Kerning returns the cross-subtable kerning adjustment between two
// adjacent glyphs, summing contributions from every format 0, 2 and 6
// subtable. Subtable coverage (vertical, cross-stream) is not checked.
func (t *KerxTable) Kerning(left, right GlyphIndex) int16 {
	if t == nil {
		return 0
	}
	var total int16
	for _, sub := range t.subtables {
		switch sub.format {
		case 0:
			for _, p := range sub.pairs {
				if p.left == left && p.right == right {
					total += p.value
					break
				}
			}
		case 2:
			if sub.classes == nil {
				continue
			}
			lc, lok := sub.classes.leftClasses.lookup(left)
			rc, rok := sub.classes.rightClasses.lookup(right)
			if !lok || !rok {
				continue
			}
			idx := int(lc)*sub.classes.rowWidth + int(rc)*2
			if idx+2 <= len(sub.classes.array) {
				v, _ := sub.classes.array.u16(idx)
				total += int16(v)
			}
		case 6:
			if sub.compact == nil {
				continue
			}
			idx := int(left) - int(sub.compact.firstGlyph)
			if idx >= 0 && idx < len(sub.compact.values) {
				total += sub.compact.values[idx]
			}
		}
		// format 1 (state-machine kerning) requires driving the state
		// machine across the whole run rather than a single glyph pair;
		// exposed separately via RunKerning.
	}
	return total
}

// RunKerning drives every format-1 (state-table) subtable across an
// entire glyph run, returning a same-length slice of per-glyph kerning
// values to add to each glyph's advance.
func (t *KerxTable) RunKerning(glyphs []GlyphIndex) []int16 {
	out := make([]int16, len(glyphs))
	if t == nil {
		return out
	}
	for _, sub := range t.subtables {
		if sub.format != 1 || sub.control == nil {
			continue
		}
		d := sub.control
		state := 0
		for i := 0; i <= len(glyphs); i++ {
			atEnd := i == len(glyphs)
			var cls uint16
			if atEnd {
				cls = aatClassEndOfText
			} else {
				cls = classOf(d.classes, glyphs[i], false)
			}
			row := stateRow(d.states, state, d.nClasses)
			var entryIdx uint16
			if row != nil && int(cls)*2+2 <= len(row) {
				entryIdx, _ = row.u16(int(cls) * 2)
			}
			p := int(entryIdx) * 6
			var newState, flags, valueOff uint16
			if p+6 <= len(d.entries) {
				newState, _ = d.entries.u16(p)
				flags, _ = d.entries.u16(p + 2)
				valueOff, _ = d.entries.u16(p + 4)
			}
			if valueOff != 0 && !atEnd && i > 0 {
				if int(valueOff)+2 <= len(d.values) {
					v, _ := d.values.u16(int(valueOff))
					out[i-1] += int16(v)
				}
			}
			state = int(newState)
			_ = flags
		}
	}
	return out
}
