package ot

// parseGPosLookupSubtable parses a segment of binary data from a font file
// and interprets it as a GPOS lookup subtable.
func parseGPosLookupSubtable(b binarySegm, lookupType LayoutTableLookupType) LookupSubtable {
	return parseGPosLookupSubtableWithDepth(b, lookupType, 0)
}

// parseGPosLookupSubtableWithDepth parses a GPOS lookup subtable, given an
// unmasked GPOS lookup type (1-9). GPOS subtable layouts are intricate enough
// (value records, anchor tables, mark arrays) that this legacy entry point
// is built on top of the concrete lookup-node parser rather than re-deriving
// byte offsets a second time: it parses one concrete LookupNode and projects
// it onto the legacy LookupSubtable shape via the same bridge the transitional
// lookup graph already uses.
func parseGPosLookupSubtableWithDepth(b binarySegm, lookupType LayoutTableLookupType, depth int) LookupSubtable {
	if len(b) < 4 {
		tracer().Errorf("GPOS lookup subtable buffer too small: %d bytes", len(b))
		return LookupSubtable{}
	}
	tracer().Debugf("parsing GPOS sub-table type %s, format %d at depth %d",
		lookupType.GPosString(), b.U16(0), depth)
	node := parseConcreteLookupNodeWithDepth(b, MaskGPosLookupType(lookupType), depth)
	if node.err != nil {
		tracer().Errorf("GPOS lookup subtable: %v", node.err)
	}
	return legacyLookupSubtableFromConcrete(node)
}
