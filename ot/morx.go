package ot

// This file implements 'morx', the AAT (Apple Advanced Typography) glyph
// metamorphosis table: chains of subtables (rearrangement, contextual,
// ligature, noncontextual substitution, insertion) that rewrite a glyph
// run. Feature selection and cursor/state-machine driving follow the same
// shape for every subtable type; only the per-entry action differs.

const (
	morxSubtableRearrangement = 0
	morxSubtableContextual    = 1
	morxSubtableLigature      = 2
	morxSubtableNoncontextual = 4
	morxSubtableInsertion     = 5
)

// MorxFeatureEntry enables or disables a named AAT feature/setting for the
// subtables that follow it in a chain.
type MorxFeatureEntry struct {
	FeatureType, FeatureSetting uint16
	EnableFlags, DisableFlags   uint32
}

// morxSubtable is one decoded subtable within a chain; one of the typed
// fields below is populated, selected by kind (none for an unknown kind).
type morxSubtable struct {
	coverage        uint32
	subFeatureFlags uint32
	kind            int

	rearrangement *morxRearrangementData
	contextual    *morxContextualData
	ligature      *morxLigatureData
	noncontextual aatLookupTable
	insertion     *morxInsertionData
}

func (s morxSubtable) isVertical() bool   { return s.coverage&0x80000000 != 0 }
func (s morxSubtable) isDescending() bool { return s.coverage&0x40000000 != 0 }

// MorxChain is one chain of subtables sharing a default-feature-flags mask.
type MorxChain struct {
	defaultFlags uint32
	features     []MorxFeatureEntry
	subtables    []morxSubtable
}

// MorxTable implements glyph metamorphosis (AAT 'morx').
type MorxTable struct {
	tableBase
	chains []MorxChain
}

func newMorxTable(tag Tag, b binarySegm, offset, size uint32) *MorxTable {
	t := &MorxTable{}
	t.tableBase = tableBase{data: b, name: tag, offset: offset, length: size}
	t.self = t
	return t
}

func parseMorx(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size < 8 {
		ec.addError(tag, "Header", "morx table too small", SeverityCritical, offset)
		return nil, errFontFormat("morx table too small")
	}
	nChains, _ := b.u32(4)
	t := newMorxTable(tag, b, offset, size)
	pos := 8
	for c := 0; c < int(nChains); c++ {
		if pos+16 > len(b) {
			ec.addWarning(tag, "chain header truncated", offset+uint32(pos))
			break
		}
		defaultFlags, _ := b.u32(pos)
		chainLength, _ := b.u32(pos + 4)
		nFeatureEntries, _ := b.u32(pos + 8)
		nSubtables, _ := b.u32(pos + 12)
		chainStart := pos
		p := pos + 16

		chain := MorxChain{defaultFlags: defaultFlags}
		for f := 0; f < int(nFeatureEntries); f++ {
			if p+12 > len(b) {
				break
			}
			ft, _ := b.u16(p)
			fs, _ := b.u16(p + 2)
			enable, _ := b.u32(p + 4)
			disable, _ := b.u32(p + 8)
			chain.features = append(chain.features, MorxFeatureEntry{ft, fs, enable, disable})
			p += 12
		}

		for s := 0; s < int(nSubtables); s++ {
			sub, next, err := parseMorxSubtable(b, p)
			if err != nil {
				ec.addWarning(tag, err.Error(), offset+uint32(p))
				break
			}
			chain.subtables = append(chain.subtables, sub)
			p = next
		}
		t.chains = append(t.chains, chain)
		pos = chainStart + int(chainLength)
	}
	return t, nil
}

func parseMorxSubtable(b binarySegm, pos int) (morxSubtable, int, error) {
	if pos+12 > len(b) {
		return morxSubtable{}, 0, errFontFormat("morx subtable header truncated")
	}
	length, _ := b.u32(pos)
	coverage, _ := b.u32(pos + 4)
	subFeatureFlags, _ := b.u32(pos + 8)
	kind := int(coverage & 0xFF)
	body := pos + 12
	sub := morxSubtable{coverage: coverage, subFeatureFlags: subFeatureFlags, kind: kind}

	var err error
	switch kind {
	case morxSubtableRearrangement:
		sub.rearrangement, err = parseMorxRearrangement(b, body)
	case morxSubtableContextual:
		sub.contextual, err = parseMorxContextual(b, body)
	case morxSubtableLigature:
		sub.ligature, err = parseMorxLigature(b, body)
	case morxSubtableNoncontextual:
		sub.noncontextual, err = parseAATLookupTable(b, body)
	case morxSubtableInsertion:
		sub.insertion, err = parseMorxInsertion(b, body)
	default:
		// unknown subtable kind: skip, length already known
	}
	if err != nil {
		return morxSubtable{}, 0, err
	}
	return sub, pos + int(length), nil
}

// --- Rearrangement (type 0) --------------------------------------------

const (
	rearrMarkFirst   = 0x8000
	rearrDontAdvance = 0x4000
	rearrMarkLast    = 0x2000
	rearrVerbMask    = 0x000F
)

type morxRearrangementData struct {
	classes     aatLookupTable
	states      binarySegm // nStates rows * nClasses uint16 entries -> entry index
	entries     binarySegm // entry array: newState(2) flags(2), 4 bytes/entry
	nClasses    int
}

func parseMorxRearrangement(b binarySegm, pos int) (*morxRearrangementData, error) {
	nClasses, classOff, stateOff, entryOff, _, err := parseAATStateTableHeader(b, pos)
	if err != nil {
		return nil, err
	}
	classes, err := parseAATLookupTable(b, pos+int(classOff))
	if err != nil {
		return nil, err
	}
	return &morxRearrangementData{
		classes:  classes,
		states:   b[pos+int(stateOff):],
		entries:  b[pos+int(entryOff):],
		nClasses: nClasses,
	}, nil
}

// --- Contextual (type 1) -------------------------------------------------

type morxContextualData struct {
	classes           aatLookupTable
	states            binarySegm
	entries           binarySegm // newState(2) flags(2) markIndex(2) currentIndex(2), 8 bytes/entry
	substitutionTable binarySegm // array of offsets to per-class substitution lookup tables
	nClasses          int
	base              int // subtable-relative base for substitution offsets
}

func parseMorxContextual(b binarySegm, pos int) (*morxContextualData, error) {
	if pos+20 > len(b) {
		return nil, errFontFormat("morx contextual header truncated")
	}
	nClasses, classOff, stateOff, entryOff, next, err := parseAATStateTableHeader(b, pos)
	if err != nil {
		return nil, err
	}
	substOff, _ := b.u32(next)
	classes, err := parseAATLookupTable(b, pos+int(classOff))
	if err != nil {
		return nil, err
	}
	return &morxContextualData{
		classes:           classes,
		states:            b[pos+int(stateOff):],
		entries:           b[pos+int(entryOff):],
		substitutionTable: b[pos+int(substOff):],
		nClasses:          nClasses,
		base:              pos,
	}, nil
}

// --- Ligature (type 2) ---------------------------------------------------

const (
	ligSetComponent   = 0x8000
	ligDontAdvance    = 0x4000
	ligPerformAction  = 0x2000
	ligActionLast     = 0x80000000
	ligActionStore    = 0x40000000
	ligActionOffsetMask = 0x3FFFFFFF
	ligActionOffsetSignBit = 0x20000000
)

type morxLigatureData struct {
	classes     aatLookupTable
	states      binarySegm
	entries     binarySegm // newState(2) flags(2) ligActionIndex(2), 6 bytes/entry
	ligActions  binarySegm // uint32 array
	components  binarySegm // uint16 array
	ligatures   binarySegm // uint16 array (glyph ids)
	nClasses    int
}

func parseMorxLigature(b binarySegm, pos int) (*morxLigatureData, error) {
	nClasses, classOff, stateOff, entryOff, next, err := parseAATStateTableHeader(b, pos)
	if err != nil {
		return nil, err
	}
	if next+12 > len(b) {
		return nil, errFontFormat("morx ligature header truncated")
	}
	ligActionOff, _ := b.u32(next)
	componentOff, _ := b.u32(next + 4)
	ligatureOff, _ := b.u32(next + 8)
	classes, err := parseAATLookupTable(b, pos+int(classOff))
	if err != nil {
		return nil, err
	}
	return &morxLigatureData{
		classes:    classes,
		states:     b[pos+int(stateOff):],
		entries:    b[pos+int(entryOff):],
		ligActions: b[pos+int(ligActionOff):],
		components: b[pos+int(componentOff):],
		ligatures:  b[pos+int(ligatureOff):],
		nClasses:   nClasses,
	}, nil
}

// --- Insertion (type 5) ---------------------------------------------------

const (
	insSetMark            = 0x8000
	insDontAdvance        = 0x4000
	insCurrentIsKashida   = 0x2000
	insMarkedIsKashida    = 0x1000
	insCurrentInsertBefore = 0x0800
	insMarkedInsertBefore = 0x0400
	insCurrentCountMask   = 0x03E0
	insMarkedCountMask    = 0x001F
)

type morxInsertionData struct {
	classes       aatLookupTable
	states        binarySegm
	entries       binarySegm // newState(2) flags(2) currentInsertIndex(2) markedInsertIndex(2), 8 bytes/entry
	insertionList binarySegm // uint16 glyph ids
	nClasses      int
}

func parseMorxInsertion(b binarySegm, pos int) (*morxInsertionData, error) {
	nClasses, classOff, stateOff, entryOff, next, err := parseAATStateTableHeader(b, pos)
	if err != nil {
		return nil, err
	}
	if next+4 > len(b) {
		return nil, errFontFormat("morx insertion header truncated")
	}
	insertionOff, _ := b.u32(next)
	classes, err := parseAATLookupTable(b, pos+int(classOff))
	if err != nil {
		return nil, err
	}
	return &morxInsertionData{
		classes:       classes,
		states:        b[pos+int(stateOff):],
		entries:       b[pos+int(entryOff):],
		insertionList: b[pos+int(insertionOff):],
		nClasses:      nClasses,
	}, nil
}

// --- Applying a chain to a glyph run -------------------------------------

// classOf resolves a glyph's state-table class, defaulting to
// "out of bounds" for glyphs the class table doesn't cover and
// "end of text" at the run's boundary.
func classOf(lt aatLookupTable, gid GlyphIndex, atEnd bool) uint16 {
	if atEnd {
		return aatClassEndOfText
	}
	if v, ok := lt.lookup(gid); ok {
		return v
	}
	return aatClassOutOfBounds
}

// ApplyMorxChain runs every chain's subtables (whose feature requirements
// are satisfied by enabledFeatures) over a glyph run, returning the
// transformed run. enabledFeatures maps (featureType,featureSetting) pairs
// the caller wants active; absent entries use each chain's default flags.
func ApplyMorxChain(t *MorxTable, glyphs []GlyphIndex, enabledFeatures map[[2]uint16]bool) []GlyphIndex {
	if t == nil {
		return glyphs
	}
	run := append([]GlyphIndex(nil), glyphs...)
	for _, chain := range t.chains {
		flags := chain.defaultFlags
		for _, fe := range chain.features {
			key := [2]uint16{fe.FeatureType, fe.FeatureSetting}
			if on, specified := enabledFeatures[key]; specified && on {
				flags = (flags & fe.DisableFlags) | fe.EnableFlags
			}
		}
		for _, sub := range chain.subtables {
			if sub.subFeatureFlags&flags == 0 {
				continue
			}
			run = applyMorxSubtable(sub, run)
		}
	}
	return run
}

func applyMorxSubtable(sub morxSubtable, glyphs []GlyphIndex) []GlyphIndex {
	switch sub.kind {
	case morxSubtableNoncontextual:
		out := make([]GlyphIndex, len(glyphs))
		for i, g := range glyphs {
			if v, ok := sub.noncontextual.lookup(g); ok && v != 0 {
				out[i] = GlyphIndex(v)
			} else {
				out[i] = g
			}
		}
		return out
	case morxSubtableRearrangement:
		return applyMorxRearrangement(sub.rearrangement, glyphs)
	case morxSubtableLigature:
		return applyMorxLigature(sub.ligature, glyphs)
	case morxSubtableInsertion:
		return applyMorxInsertion(sub.insertion, glyphs)
	case morxSubtableContextual:
		return applyMorxContextual(sub.contextual, glyphs)
	}
	return glyphs
}

func stateEntry2(entries binarySegm, idx int) (newState, flags uint16) {
	p := idx * 4
	if p+4 > len(entries) {
		return 0, 0
	}
	newState, _ = entries.u16(p)
	flags, _ = entries.u16(p + 2)
	return
}

func stateRow(states binarySegm, state, nClasses int) binarySegm {
	start := state * nClasses * 2
	end := start + nClasses*2
	if start < 0 || end > len(states) {
		return nil
	}
	return states[start:end]
}

func applyMorxRearrangement(d *morxRearrangementData, glyphs []GlyphIndex) []GlyphIndex {
	if d == nil {
		return glyphs
	}
	out := append([]GlyphIndex(nil), glyphs...)
	state := 0
	markPos := -1
	i := 0
	for i <= len(out) {
		atEnd := i == len(out)
		var cls uint16
		if atEnd {
			cls = aatClassEndOfText
		} else {
			cls = classOf(d.classes, out[i], false)
		}
		row := stateRow(d.states, state, d.nClasses)
		var entryIdx uint16
		if row != nil && int(cls)*2+2 <= len(row) {
			entryIdx, _ = row.u16(int(cls) * 2)
		}
		newState, flags := stateEntry2(d.entries, int(entryIdx))
		verb := flags & rearrVerbMask
		if flags&rearrMarkFirst != 0 {
			markPos = i
		}
		if verb != 0 && markPos >= 0 && !atEnd && markPos <= i && i < len(out) {
			rearrangeRange(out, markPos, i, int(verb))
		}
		state = int(newState)
		if flags&rearrDontAdvance == 0 {
			i++
		}
		if atEnd {
			break
		}
	}
	return out
}

// rearrangeVerb describes one of the 15 AAT rearrangement verbs: up to two
// glyphs at the front of the marked range (A, and B when frontCount is 2)
// and up to two at the back (D, and C when backCount is 2) are permuted
// around an untouched middle span ("x"); frontSwap/backSwap select BA/DC
// ordering over AB/CD. See the AAT 'mort'/'morx' rearrangement subtable spec.
type rearrangeVerb struct {
	frontCount int
	backCount  int
	frontSwap  bool
	backSwap   bool
}

var rearrangeVerbs = [16]rearrangeVerb{
	1:  {frontCount: 1, backCount: 0}, // Ax -> xA
	2:  {frontCount: 0, backCount: 1}, // xD -> Dx
	3:  {frontCount: 1, backCount: 1}, // AxD -> DxA
	4:  {frontCount: 2, backCount: 0}, // ABx -> xAB
	5:  {frontCount: 2, backCount: 0, frontSwap: true}, // ABx -> xBA
	6:  {frontCount: 0, backCount: 2}, // xCD -> CDx
	7:  {frontCount: 0, backCount: 2, backSwap: true}, // xCD -> DCx
	8:  {frontCount: 1, backCount: 2}, // AxCD -> CDxA
	9:  {frontCount: 1, backCount: 2, backSwap: true}, // AxCD -> DCxA
	10: {frontCount: 2, backCount: 1}, // ABxD -> DxAB
	11: {frontCount: 2, backCount: 1, frontSwap: true}, // ABxD -> DxBA
	12: {frontCount: 2, backCount: 2}, // ABxCD -> CDxAB
	13: {frontCount: 2, backCount: 2, frontSwap: true}, // ABxCD -> CDxBA
	14: {frontCount: 2, backCount: 2, backSwap: true}, // ABxCD -> DCxAB
	15: {frontCount: 2, backCount: 2, frontSwap: true, backSwap: true}, // ABxCD -> DCxBA
}

// rearrangeRange permutes out[mark:cur+1] per one of the 15 AAT
// rearrangement verbs. The front group (A, B) and back group (C, D) move
// around the untouched middle span; the middle keeps its internal order.
func rearrangeRange(out []GlyphIndex, mark, cur, verb int) {
	if mark > cur || cur >= len(out) || verb <= 0 || verb >= len(rearrangeVerbs) {
		return
	}
	seg := append([]GlyphIndex(nil), out[mark:cur+1]...)
	if len(seg) < 2 {
		return
	}
	rv := rearrangeVerbs[verb]
	if rv.frontCount+rv.backCount == 0 || rv.frontCount+rv.backCount > len(seg) {
		return
	}
	front := seg[:rv.frontCount]
	mid := seg[rv.frontCount : len(seg)-rv.backCount]
	back := seg[len(seg)-rv.backCount:]

	result := make([]GlyphIndex, 0, len(seg))
	switch rv.backCount {
	case 1:
		result = append(result, back[0])
	case 2:
		if rv.backSwap { // DC
			result = append(result, back[1], back[0])
		} else { // CD
			result = append(result, back[0], back[1])
		}
	}
	result = append(result, mid...)
	switch rv.frontCount {
	case 1:
		result = append(result, front[0])
	case 2:
		if rv.frontSwap { // BA
			result = append(result, front[1], front[0])
		} else { // AB
			result = append(result, front[0], front[1])
		}
	}
	copy(out[mark:], result)
}

func applyMorxLigature(d *morxLigatureData, glyphs []GlyphIndex) []GlyphIndex {
	if d == nil {
		return glyphs
	}
	var out []GlyphIndex
	var componentStack []int // indexes into 'out' collected via SetComponent
	state := 0
	i := 0
	for i <= len(glyphs) {
		atEnd := i == len(glyphs)
		var cls uint16
		var g GlyphIndex
		if atEnd {
			cls = aatClassEndOfText
		} else {
			g = glyphs[i]
			cls = classOf(d.classes, g, false)
		}
		row := stateRow(d.states, state, d.nClasses)
		var entryIdx uint16
		if row != nil && int(cls)*2+2 <= len(row) {
			entryIdx, _ = row.u16(int(cls) * 2)
		}
		p := int(entryIdx) * 6
		var newState, flags, ligActionIdx uint16
		if p+6 <= len(d.entries) {
			newState, _ = d.entries.u16(p)
			flags, _ = d.entries.u16(p + 2)
			ligActionIdx, _ = d.entries.u16(p + 4)
		}
		if !atEnd {
			out = append(out, g)
			if flags&ligSetComponent != 0 {
				componentStack = append(componentStack, len(out)-1)
			}
			if flags&ligPerformAction != 0 && len(componentStack) > 0 {
				out = performLigatureAction(d, out, componentStack, int(ligActionIdx))
				componentStack = nil
			}
		}
		state = int(newState)
		if flags&ligDontAdvance == 0 {
			i++
		}
		if atEnd {
			break
		}
	}
	return out
}

func performLigatureAction(d *morxLigatureData, out []GlyphIndex, stack []int, actionIdx int) []GlyphIndex {
	var componentSum int
	action := actionIdx
	positions := append([]int(nil), stack...)
	for _, pos := range positions {
		if pos >= len(out) {
			continue
		}
		p := action * 4
		if p+4 > len(d.ligActions) {
			break
		}
		raw, _ := d.ligActions.u32(p)
		offset := int32(raw & ligActionOffsetMask)
		if raw&ligActionOffsetSignBit != 0 {
			offset -= 1 << 30
		}
		compIdx := int(out[pos]) + int(offset)
		if compIdx < 0 || compIdx*2+2 > len(d.components) {
			action++
			continue
		}
		ligIdx, _ := d.components.u16(compIdx * 2)
		componentSum += int(ligIdx)
		if raw&ligActionStore != 0 || raw&ligActionLast != 0 {
			if componentSum*2+2 <= len(d.ligatures) {
				ligGid, _ := d.ligatures.u16(componentSum * 2)
				out[positions[0]] = GlyphIndex(ligGid)
				// remove the remaining components that were folded into the ligature
				removeFrom := positions[0] + 1
				removeTo := pos + 1
				if removeFrom < removeTo && removeTo <= len(out) {
					out = append(out[:removeFrom], out[removeTo:]...)
				}
			}
			componentSum = 0
		}
		if raw&ligActionLast != 0 {
			break
		}
		action++
	}
	return out
}

func applyMorxInsertion(d *morxInsertionData, glyphs []GlyphIndex) []GlyphIndex {
	if d == nil {
		return glyphs
	}
	var out []GlyphIndex
	state := 0
	i := 0
	for i <= len(glyphs) {
		atEnd := i == len(glyphs)
		var cls uint16
		var g GlyphIndex
		if atEnd {
			cls = aatClassEndOfText
		} else {
			g = glyphs[i]
			cls = classOf(d.classes, g, false)
		}
		row := stateRow(d.states, state, d.nClasses)
		var entryIdx uint16
		if row != nil && int(cls)*2+2 <= len(row) {
			entryIdx, _ = row.u16(int(cls) * 2)
		}
		p := int(entryIdx) * 8
		var newState, flags, curIdx, markIdx uint16
		if p+8 <= len(d.entries) {
			newState, _ = d.entries.u16(p)
			flags, _ = d.entries.u16(p + 2)
			curIdx, _ = d.entries.u16(p + 4)
			markIdx, _ = d.entries.u16(p + 6)
		}
		if markIdx != 0xFFFF {
			out = insertGlyphs(out, d.insertionList, int(markIdx), int((flags&insMarkedCountMask)>>0), flags&insMarkedInsertBefore != 0)
		}
		if !atEnd {
			out = append(out, g)
		}
		if curIdx != 0xFFFF {
			out = insertGlyphs(out, d.insertionList, int(curIdx), int((flags&insCurrentCountMask)>>5), flags&insCurrentInsertBefore != 0)
		}
		state = int(newState)
		if flags&insDontAdvance == 0 {
			i++
		}
		if atEnd {
			break
		}
	}
	return out
}

func insertGlyphs(out []GlyphIndex, list binarySegm, listIdx, count int, before bool) []GlyphIndex {
	if count <= 0 || listIdx*2+count*2 > len(list) {
		return out
	}
	ins := make([]GlyphIndex, count)
	for i := 0; i < count; i++ {
		v, _ := list.u16((listIdx + i) * 2)
		ins[i] = GlyphIndex(v)
	}
	if before && len(out) > 0 {
		head := out[:len(out)-1]
		tail := out[len(out)-1:]
		return append(append(append([]GlyphIndex{}, head...), ins...), tail...)
	}
	return append(out, ins...)
}

// applyMorxContextual resolves, per marked/current glyph, a replacement
// from the per-class substitution lookup tables and rewrites the run in
// place; the state machine here only selects which substitution applies.
func applyMorxContextual(d *morxContextualData, glyphs []GlyphIndex) []GlyphIndex {
	if d == nil {
		return glyphs
	}
	out := append([]GlyphIndex(nil), glyphs...)
	state := 0
	markPos := -1
	i := 0
	for i <= len(out) {
		atEnd := i == len(out)
		var cls uint16
		if atEnd {
			cls = aatClassEndOfText
		} else {
			cls = classOf(d.classes, out[i], false)
		}
		row := stateRow(d.states, state, d.nClasses)
		var entryIdx uint16
		if row != nil && int(cls)*2+2 <= len(row) {
			entryIdx, _ = row.u16(int(cls) * 2)
		}
		p := int(entryIdx) * 8
		var newState, flags, markIdx, curIdx uint16
		if p+8 <= len(d.entries) {
			newState, _ = d.entries.u16(p)
			flags, _ = d.entries.u16(p + 2)
			markIdx, _ = d.entries.u16(p + 4)
			curIdx, _ = d.entries.u16(p + 6)
		}
		if !atEnd && curIdx != 0xFFFF {
			out[i] = substituteContextual(d, curIdx, out[i])
		}
		if markPos >= 0 && markIdx != 0xFFFF && markPos < len(out) {
			out[markPos] = substituteContextual(d, markIdx, out[markPos])
		}
		if flags&0x8000 != 0 { // SetMark, shares bit with other families
			markPos = i
		}
		state = int(newState)
		if flags&0x4000 == 0 {
			i++
		}
		if atEnd {
			break
		}
	}
	return out
}

func substituteContextual(d *morxContextualData, tableIndex uint16, g GlyphIndex) GlyphIndex {
	off := int(tableIndex) * 4
	if off+4 > len(d.substitutionTable) {
		return g
	}
	lookupOff, _ := d.substitutionTable.u32(off)
	lt, err := parseAATLookupTable(d.substitutionTable, int(lookupOff))
	if err != nil {
		return g
	}
	if v, ok := lt.lookup(g); ok {
		return GlyphIndex(v)
	}
	return g
}
