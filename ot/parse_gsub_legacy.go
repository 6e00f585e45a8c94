package ot

// parseGSubLookupSubtable parses a segment of binary data from a font file
// and interprets it as a GSUB lookup subtable.
func parseGSubLookupSubtable(b binarySegm, lookupType LayoutTableLookupType) LookupSubtable {
	return parseGSubLookupSubtableWithDepth(b, lookupType, 0)
}

func parseGSubLookupSubtableWithDepth(b binarySegm, lookupType LayoutTableLookupType, depth int) LookupSubtable {
	if len(b) < 4 {
		tracer().Errorf("GSUB lookup subtable buffer too small: %d bytes", len(b))
		return LookupSubtable{}
	}

	format := b.U16(0)
	tracer().Debugf("parsing GSUB sub-table type %s, format %d at depth %d", lookupType.GSubString(), format, depth)
	sub := LookupSubtable{LookupType: lookupType, Format: format}
	if lookupType != GSubLookupTypeExtensionSubs { // Extension has no coverage table
		covlink, err := parseLink16(b, 2, b, "Coverage")
		if err == nil {
			sub.Coverage = parseCoverage(covlink.Jump().Bytes())
		}
	}
	switch lookupType {
	case GSubLookupTypeSingle:
		return parseGSubLookupSubtableType1(b, sub)
	case GSubLookupTypeMultiple, GSubLookupTypeAlternate, GSubLookupTypeLigature:
		return parseGSubLookupSubtableType2or3or4(b, sub)
	case GSubLookupTypeContext:
		return parseGSubLookupSubtableType5(b, sub)
	case GSubLookupTypeChainingContext:
		return parseGSubLookupSubtableType6(b, sub)
	case GSubLookupTypeExtensionSubs:
		return parseGSubLookupSubtableType7WithDepth(b, sub, depth)
	case GSubLookupTypeReverseChaining:
		return parseGSubLookupSubtableType8(b, sub)
	}
	tracer().Errorf("unknown GSUB lookup type: %d", lookupType)
	return LookupSubtable{}
}

// LookupType 1: Single Substitution Subtable
// https://docs.microsoft.com/en-us/typography/opentype/spec/gsub#lookuptype-1-single-substitution-subtable
func parseGSubLookupSubtableType1(b binarySegm, sub LookupSubtable) LookupSubtable {
	if len(b) < 6 {
		tracer().Errorf("GSUB type 1 buffer too small: %d bytes", len(b))
		return LookupSubtable{}
	}
	if sub.Format == 1 {
		sub.Support = int16(b.U16(4))
	} else {
		sub.Index = parseVarArray16(b, 4, 2, 1, "LookupSubtableGSub1")
	}
	return sub
}

// LookupType 2/3/4: Multiple, Alternate and Ligature Substitution Subtables.
// All three share the same outer array-of-sets shape; the element shape
// differs and is resolved lazily by callers via sub.Index.
func parseGSubLookupSubtableType2or3or4(b binarySegm, sub LookupSubtable) LookupSubtable {
	sub.Index = parseVarArray16(b, 4, 2, 2, "LookupSubtableGSub2/3/4")
	return sub
}

// LookupType 5: Contextual Substitution Subtable
// https://docs.microsoft.com/en-us/typography/opentype/spec/gsub#lookuptype-5-contextual-substitution-subtable
func parseGSubLookupSubtableType5(b binarySegm, sub LookupSubtable) LookupSubtable {
	switch sub.Format {
	case 1:
		sub.Index = parseVarArray16(b, 4, 2, 2, "LookupSubtableGSub5-1")
	case 2:
		sub.Index = parseVarArray16(b, 6, 2, 2, "LookupSubtableGSub5-2")
	case 3:
		sub.Index = parseVarArray16(b, 4, 4, 2, "LookupSubtableGSub5-3")
	}
	var err error
	sub, err = parseSequenceContext(b, sub)
	if err != nil {
		tracer().Errorf(err.Error())
	}
	return sub
}

// LookupType 6: Chained Contexts Substitution Subtable
// https://docs.microsoft.com/en-us/typography/opentype/spec/chapter2#chained-sequence-context-format-1-simple-glyph-contexts
func parseGSubLookupSubtableType6(b binarySegm, sub LookupSubtable) LookupSubtable {
	if len(b) < 6 {
		tracer().Errorf("GSUB type 6 buffer too small: %d bytes", len(b))
		return LookupSubtable{}
	}
	var err error
	sub, err = parseChainedSequenceContext(b, sub)
	if err != nil {
		tracer().Errorf("GSUB type 6 chained context error: %v", err)
		return LookupSubtable{}
	}
	switch sub.Format {
	case 1:
		sub.Index = parseVarArray16(b, 4, 2, 2, "LookupSubtableGSub6-1")
	case 2:
		if len(b) < 12 {
			tracer().Errorf("GSUB type 6 format 2 buffer too small: %d bytes", len(b))
			return LookupSubtable{}
		}
		sub.Index = parseVarArray16(b, 10, 2, 2, "LookupSubtableGSub6-2")
	case 3:
		seqctx, ok := sub.Support.(*SequenceContext)
		if !ok {
			tracer().Errorf("GSUB type 6 format 3: Support is not *SequenceContext")
			return LookupSubtable{}
		}
		offset := 2
		offset += 2 + len(seqctx.BacktrackCoverage)*2
		offset += 2 + len(seqctx.InputCoverage)*2
		offset += 2 + len(seqctx.LookaheadCoverage)*2
		if offset >= len(b) {
			tracer().Errorf("GSUB type 6 format 3: offset %d exceeds buffer size %d", offset, len(b))
			return LookupSubtable{}
		}
		sub.Index = parseVarArray16(b, offset, 2, 2, "LookupSubtableGSub6-3")
	}
	return sub
}

// LookupType 7: Extension Substitution
// https://docs.microsoft.com/en-us/typography/opentype/spec/gsub#lookuptype-7-extension-substitution
func parseGSubLookupSubtableType7(b binarySegm, sub LookupSubtable) LookupSubtable {
	return parseGSubLookupSubtableType7WithDepth(b, sub, 0)
}

func parseGSubLookupSubtableType7WithDepth(b binarySegm, sub LookupSubtable, depth int) LookupSubtable {
	if b.Size() < 8 {
		tracer().Errorf("OpenType GSUB lookup subtable type %d corrupt", sub.LookupType)
		return LookupSubtable{}
	}
	if depth > MaxExtensionDepth {
		tracer().Errorf("OpenType GSUB extension subtable nesting exceeds maximum depth %d", MaxExtensionDepth)
		return LookupSubtable{}
	}
	actualType := LayoutTableLookupType(b.U16(2))
	if actualType == GSubLookupTypeExtensionSubs {
		tracer().Errorf("OpenType GSUB extension subtable cannot recursively reference extension type")
		return LookupSubtable{}
	}
	tracer().Debugf("OpenType GSUB extension subtable is of type %s at depth %d", actualType.GSubString(), depth)
	link, _ := parseLink32(b, 4, b, "ext.LookupSubtable")
	loc := link.Jump()
	return parseGSubLookupSubtableWithDepth(loc.Bytes(), actualType, depth+1)
}

// LookupType 8: Reverse Chaining Contextual Single Substitution Subtable
// https://docs.microsoft.com/en-us/typography/opentype/spec/gsub#lookuptype-8-reverse-chaining-contextual-single-substitution-subtable
func parseGSubLookupSubtableType8(b binarySegm, sub LookupSubtable) LookupSubtable {
	if len(b) < 10 {
		tracer().Errorf("GSUB type 8 buffer too small: %d bytes", len(b))
		return LookupSubtable{}
	}
	backtrack, next, err := parseCoverageList(b, 4, "GSUB8.Backtrack")
	if err != nil {
		tracer().Errorf("GSUB type 8 backtrack coverage: %v", err)
		return LookupSubtable{}
	}
	lookahead, next, err := parseCoverageList(b, next, "GSUB8.Lookahead")
	if err != nil {
		tracer().Errorf("GSUB type 8 lookahead coverage: %v", err)
		return LookupSubtable{}
	}
	subst, _, err := parseGlyphList(b, next)
	if err != nil {
		tracer().Errorf("GSUB type 8 substitute glyphs: %v", err)
		return LookupSubtable{}
	}
	sub.Support = ReverseChainingSubst{
		BacktrackCoverage:  backtrack,
		LookaheadCoverage:  lookahead,
		SubstituteGlyphIDs: subst,
	}
	return sub
}
