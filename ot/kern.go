package ot

// KernTable holds the classic (non-OpenType) kern table. Two sub-table
// formats are in circulation: format 0 (ordered list of glyph pairs) and
// format 2 (two-dimensional class matrix). Apple's kerx table supersedes
// both, but 'kern' remains common in TrueType fonts.
type KernTable struct {
	tableBase
	headers      []kernSubTableHeader
	pairTables   map[int]kernPairTable   // sub-table index -> decoded pairs
	classTables  map[int]kernClassTable  // sub-table index -> decoded class matrix
}

func newKernTable(tag Tag, b binarySegm, offset, size uint32) *KernTable {
	t := &KernTable{
		pairTables:  make(map[int]kernPairTable),
		classTables: make(map[int]kernClassTable),
	}
	t.tableBase = tableBase{data: b, name: tag, offset: offset, length: size}
	t.self = t
	return t
}

// Kerning returns the kerning adjustment (in font design units) for an
// ordered glyph pair, summed over every sub-table that defines a value for
// the pair. parseKern keeps format 0 and format 2 sub-tables; their coverage
// bits (vertical kerning, cross-stream values) are not checked.
func (t *KernTable) Kerning(left, right GlyphIndex) int16 {
	if t == nil {
		return 0
	}
	var total int16
	for i := range t.headers {
		if pt, ok := t.pairTables[i]; ok {
			total += pt.lookup(left, right)
			continue
		}
		if ct, ok := t.classTables[i]; ok {
			total += ct.lookup(left, right)
		}
	}
	return total
}

// --- Format 0: ordered list of kerning pairs --------------------------------

type kernPair struct {
	left, right GlyphIndex
	value       int16
}

type kernPairTable struct {
	pairs []kernPair
}

func parseKernPairTable(b binarySegm, suboffset, subheaderlen int, n int) kernPairTable {
	pt := kernPairTable{pairs: make([]kernPair, 0, n)}
	base := suboffset + subheaderlen
	for i := 0; i < n; i++ {
		pos := base + i*6
		if pos+6 > len(b) {
			break
		}
		l, _ := b.u16(pos)
		r, _ := b.u16(pos + 2)
		v, _ := b.u16(pos + 4)
		pt.pairs = append(pt.pairs, kernPair{left: GlyphIndex(l), right: GlyphIndex(r), value: int16(v)})
	}
	return pt
}

func (pt kernPairTable) lookup(left, right GlyphIndex) int16 {
	// pairs are sorted ascending by (left,right) per spec; linear scan is
	// adequate since kern tables are small relative to glyf/GSUB.
	for _, p := range pt.pairs {
		if p.left == left && p.right == right {
			return p.value
		}
	}
	return 0
}

// --- Format 2: two-dimensional class kerning matrix -------------------------

// kernClassTable implements the kern format 2 class-kerning scheme: each
// glyph is mapped to a left-class and a right-class via a class table, and
// the kerning value is read out of a rowWidth-stride matrix indexed by
// (leftClass, rightClass).
type kernClassTable struct {
	rowWidth        uint16
	leftClassTable  kernClassMap
	rightClassTable kernClassMap
	array           binarySegm // the class-kerning matrix, relative to sub-table start
}

type kernClassMap struct {
	firstGlyph uint16
	classes    []uint16
}

func (m kernClassMap) classOf(g GlyphIndex) (uint16, bool) {
	i := int(g) - int(m.firstGlyph)
	if i < 0 || i >= len(m.classes) {
		return 0, false
	}
	return m.classes[i], true
}

func (ct kernClassTable) lookup(left, right GlyphIndex) int16 {
	lc, ok := ct.leftClassTable.classOf(left)
	if !ok {
		return 0
	}
	rc, ok := ct.rightClassTable.classOf(right)
	if !ok {
		return 0
	}
	idx := int(lc)*int(ct.rowWidth)/2 + int(rc)
	byteOffset := idx * 2
	if byteOffset+2 > len(ct.array) {
		return 0
	}
	v, err := ct.array.u16(byteOffset)
	if err != nil {
		return 0
	}
	return int16(v)
}

// parseKernClassTable decodes a format-2 kern sub-table. b is the whole
// 'kern' table, subStart the byte offset (within b) of this sub-table's
// format-specific data (right after the common sub-table header).
func parseKernClassTable(b binarySegm, subStart, subLen int) (kernClassTable, error) {
	if subStart+8 > len(b) {
		return kernClassTable{}, errFontFormat("kern format 2 sub-table too short")
	}
	rowWidth, _ := b.u16(subStart)
	leftOff, _ := b.u16(subStart + 2)
	rightOff, _ := b.u16(subStart + 4)
	arrayOff, _ := b.u16(subStart + 6)
	leftTable, err := parseKernClassMap(b, subStart+int(leftOff))
	if err != nil {
		return kernClassTable{}, err
	}
	rightTable, err := parseKernClassMap(b, subStart+int(rightOff))
	if err != nil {
		return kernClassTable{}, err
	}
	arrayStart := subStart + int(arrayOff)
	end := subStart + subLen
	if arrayStart > len(b) || end > len(b) || arrayStart > end {
		return kernClassTable{}, errFontFormat("kern format 2 array out of bounds")
	}
	return kernClassTable{
		rowWidth:        rowWidth,
		leftClassTable:  leftTable,
		rightClassTable: rightTable,
		array:           b[arrayStart:end],
	}, nil
}

func parseKernClassMap(b binarySegm, pos int) (kernClassMap, error) {
	if pos+4 > len(b) {
		return kernClassMap{}, errFontFormat("kern class sub-header out of bounds")
	}
	first, _ := b.u16(pos)
	n, _ := b.u16(pos + 2)
	classes := make([]uint16, n)
	for i := 0; i < int(n); i++ {
		v, err := b.u16(pos + 4 + i*2)
		if err != nil {
			return kernClassMap{}, errFontFormat("kern class array truncated")
		}
		classes[i] = v
	}
	return kernClassMap{firstGlyph: first, classes: classes}, nil
}
