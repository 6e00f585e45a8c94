package ot

// PostTable carries PostScript-related glyph information: italic angle,
// underline metrics, whether the font is fixed-pitch, and (for versions
// 1.0/2.0) a mapping from glyph index to PostScript glyph name.
type PostTable struct {
	tableBase
	Version            Fixed
	ItalicAngle        Fixed
	UnderlinePosition  int16
	UnderlineThickness int16
	IsFixedPitch       uint32
	glyphNameIndex     []uint16 // version 2.0 only
	names              []string // version 2.0 pascal-string pool, in storage order
}

func newPostTable(tag Tag, b binarySegm, offset, size uint32) *PostTable {
	t := &PostTable{}
	t.tableBase = tableBase{data: b, name: tag, offset: offset, length: size}
	t.self = t
	return t
}

// macGlyphNames holds the first 36 names (indices 0-35, ".notdef" through
// "at") of the 258-entry standard Macintosh glyph order, used by 'post'
// version 1.0 and by version 2.0 whenever a glyph's name index falls below
// 258. GlyphName reports no name for a standard index past index 35.
var macGlyphNames = []string{
	".notdef", ".null", "nonmarkingreturn", "space", "exclam", "quotedbl",
	"numbersign", "dollar", "percent", "ampersand", "quotesingle", "parenleft",
	"parenright", "asterisk", "plus", "comma", "hyphen", "period", "slash",
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight",
	"nine", "colon", "semicolon", "less", "equal", "greater", "question", "at",
}

// GlyphName returns the PostScript name for a glyph, when the table
// carries version 1.0 or 2.0 name data.
func (t *PostTable) GlyphName(gid GlyphIndex) (string, bool) {
	if t == nil {
		return "", false
	}
	if t.Version == 0x00010000 { // version 1.0: standard Macintosh order
		if int(gid) < len(macGlyphNames) {
			return macGlyphNames[gid], true
		}
		return "", false
	}
	if int(gid) < 0 || int(gid) >= len(t.glyphNameIndex) {
		return "", false
	}
	idx := t.glyphNameIndex[gid]
	if int(idx) < 258 {
		if int(idx) < len(macGlyphNames) {
			return macGlyphNames[idx], true
		}
		return "", false
	}
	i := int(idx) - 258
	if i < 0 || i >= len(t.names) {
		return "", false
	}
	return t.names[i], true
}

func parsePost(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size < 32 {
		ec.addError(tag, "Size", "post table too small", SeverityCritical, offset)
		return nil, errFontFormat("post table too small")
	}
	t := newPostTable(tag, b, offset, size)
	version, err := parseFixed(b, 0)
	if err != nil {
		return nil, err
	}
	t.Version = version
	italic, _ := parseFixed(b, 4)
	t.ItalicAngle = italic
	ul, _ := b.u16(8)
	t.UnderlinePosition = int16(ul)
	ult, _ := b.u16(10)
	t.UnderlineThickness = int16(ult)
	fp, _ := b.u32(12)
	t.IsFixedPitch = fp

	if version != 0x00020000 {
		return t, nil // version 1.0 (Mac order) or 3.0 (no names): nothing more to decode
	}
	if len(b) < 34 {
		ec.addWarning(tag, "version 2.0 table truncated before glyph count", offset)
		return t, nil
	}
	numGlyphs, _ := b.u16(32)
	idxStart := 34
	idxEnd := idxStart + int(numGlyphs)*2
	if idxEnd > len(b) {
		ec.addWarning(tag, "version 2.0 glyphNameIndex truncated", offset)
		return t, nil
	}
	t.glyphNameIndex = make([]uint16, numGlyphs)
	for i := 0; i < int(numGlyphs); i++ {
		v, _ := b.u16(idxStart + i*2)
		t.glyphNameIndex[i] = v
	}
	pos := idxEnd
	for pos < len(b) {
		n := int(b[pos])
		pos++
		if pos+n > len(b) {
			break
		}
		t.names = append(t.names, string(b[pos:pos+n]))
		pos += n
	}
	return t, nil
}
