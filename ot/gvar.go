package ot

// This file implements 'gvar', the TrueType outline variation table: for
// each glyph, one or more tuple variations that perturb the default
// (x, y) outline points (plus the four phantom points) as a function of
// the variation-space instance coordinates.

// glyphVariationData holds the decoded tuple variations for a single
// glyph; GvarTable.glyphs holds one per glyph, indexed by glyph index (the
// order gvar's offset array uses).
type glyphVariationData struct {
	sharedPointNumbers []uint16 // nil if not shared / not present
	tuples             []glyphTuple
}

type glyphTuple struct {
	header tupleVariationHeader
	points []uint16 // nil means "all points" (glyph's own + 4 phantom)
	deltaX []int16
	deltaY []int16
}

// GvarTable implements outline-point delta interpolation for variable
// TrueType fonts.
type GvarTable struct {
	tableBase
	axisCount       int
	sharedTuples    [][]F2Dot14 // one coordinate set per shared tuple, axisCount wide
	glyphs          []glyphVariationData
}

func newGvarTable(tag Tag, b binarySegm, offset, size uint32) *GvarTable {
	t := &GvarTable{}
	t.tableBase = tableBase{data: b, name: tag, offset: offset, length: size}
	t.self = t
	return t
}

const (
	tupleIndexEmbeddedPeak    = 0x8000
	tupleIndexIntermediate    = 0x4000
	tupleIndexPrivatePoints   = 0x2000
	tupleIndexMask            = 0x0fff
)

func parseGvar(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size < 20 {
		ec.addError(tag, "Size", "gvar table too small", SeverityCritical, offset)
		return nil, errFontFormat("gvar table too small")
	}
	axisCount, _ := b.u16(4)
	sharedTupleCount, _ := b.u16(6)
	sharedTuplesOffset, _ := b.u32(8)
	glyphCount, _ := b.u16(12)
	flags, _ := b.u16(14)
	glyphVarDataArrayOffset, _ := b.u32(16)

	t := newGvarTable(tag, b, offset, size)
	t.axisCount = int(axisCount)

	// shared tuples: sharedTupleCount axisCount-wide F2Dot14 arrays of peaks.
	pos := int(sharedTuplesOffset)
	for i := 0; i < int(sharedTupleCount); i++ {
		coords := make([]F2Dot14, axisCount)
		for a := 0; a < int(axisCount); a++ {
			if pos+2 > len(b) {
				ec.addWarning(tag, "shared tuples truncated", offset+uint32(pos))
				break
			}
			coords[a], _ = parseF2Dot14(b, pos)
			pos += 2
		}
		t.sharedTuples = append(t.sharedTuples, coords)
	}

	longOffsets := flags&0x1 != 0
	offsets := make([]uint32, int(glyphCount)+1)
	offPos := 20
	for i := range offsets {
		if longOffsets {
			if offPos+4 > len(b) {
				ec.addError(tag, "GlyphVariationDataOffsets", "offset array truncated", SeverityCritical, offset)
				return nil, errFontFormat("gvar offset array truncated")
			}
			offsets[i], _ = b.u32(offPos)
			offPos += 4
		} else {
			if offPos+2 > len(b) {
				ec.addError(tag, "GlyphVariationDataOffsets", "offset array truncated", SeverityCritical, offset)
				return nil, errFontFormat("gvar offset array truncated")
			}
			v, _ := b.u16(offPos)
			offsets[i] = uint32(v) * 2
			offPos += 2
		}
	}

	t.glyphs = make([]glyphVariationData, glyphCount)
	for g := 0; g < int(glyphCount); g++ {
		start, end := offsets[g], offsets[g+1]
		if start == end {
			continue // no variation data for this glyph
		}
		dataPos := int(glyphVarDataArrayOffset) + int(start)
		dataLen := int(end - start)
		gv, err := parseGlyphVariationData(b, dataPos, dataLen, int(axisCount), t.sharedTuples)
		if err != nil {
			ec.addWarning(tag, err.Error(), offset+uint32(dataPos))
			continue
		}
		t.glyphs[g] = gv
	}
	return t, nil
}

func parseGlyphVariationData(b binarySegm, pos, length, axisCount int, sharedTuples [][]F2Dot14) (glyphVariationData, error) {
	if pos+4 > len(b) {
		return glyphVariationData{}, errFontFormat("GlyphVariationData header truncated")
	}
	tupleCount, _ := b.u16(pos)
	dataOffset, _ := b.u16(pos + 2)
	sharedPointsPresent := tupleCount&tupleIndexPrivatePoints != 0
	count := int(tupleCount & tupleIndexMask)

	headerPos := pos + 4
	serializedPos := pos + int(dataOffset)

	var gv glyphVariationData
	if sharedPointsPresent {
		pts, n, err := parsePackedPointNumbers(b, serializedPos)
		if err != nil {
			return glyphVariationData{}, err
		}
		gv.sharedPointNumbers = pts
		serializedPos += n
	}

	for i := 0; i < count; i++ {
		if headerPos+4 > len(b) {
			return gv, errFontFormat("tuple variation header truncated")
		}
		dataSize, _ := b.u16(headerPos)
		tupleIndex, _ := b.u16(headerPos + 2)
		headerPos += 4

		var hdr tupleVariationHeader
		hdr.dataSize = int(dataSize)
		if tupleIndex&tupleIndexEmbeddedPeak != 0 {
			hdr.peak = make([]F2Dot14, axisCount)
			for a := 0; a < axisCount; a++ {
				hdr.peak[a], _ = parseF2Dot14(b, headerPos)
				headerPos += 2
			}
		} else {
			idx := int(tupleIndex & tupleIndexMask)
			if idx < len(sharedTuples) {
				hdr.peak = sharedTuples[idx]
			}
		}
		if tupleIndex&tupleIndexIntermediate != 0 {
			hdr.start = make([]F2Dot14, axisCount)
			hdr.end = make([]F2Dot14, axisCount)
			for a := 0; a < axisCount; a++ {
				hdr.start[a], _ = parseF2Dot14(b, headerPos)
				headerPos += 2
			}
			for a := 0; a < axisCount; a++ {
				hdr.end[a], _ = parseF2Dot14(b, headerPos)
				headerPos += 2
			}
		}
		hdr.privatePointNumbers = tupleIndex&tupleIndexPrivatePoints != 0

		tuple := glyphTuple{header: hdr}
		dataEnd := serializedPos + hdr.dataSize
		if hdr.privatePointNumbers {
			pts, n, err := parsePackedPointNumbers(b, serializedPos)
			if err != nil {
				return gv, err
			}
			tuple.points = pts
			serializedPos += n
		} else {
			tuple.points = gv.sharedPointNumbers
		}
		numPoints := len(tuple.points) // 0 means "all points"
		// Without a resolved point count ("all points" case) we decode
		// deltas against the serialized data length instead: X deltas,
		// then Y deltas, filling the declared dataSize exactly.
		remaining := dataEnd - serializedPos
		if remaining < 0 {
			remaining = 0
		}
		n := numPoints
		if n == 0 {
			n = remaining / 2 // heuristic fallback when point count is implicit
		}
		dx, nx, err := parsePackedDeltas(b, serializedPos, n)
		if err != nil {
			return gv, err
		}
		serializedPos += nx
		dy, ny, err := parsePackedDeltas(b, serializedPos, n)
		if err != nil {
			return gv, err
		}
		serializedPos += ny
		tuple.deltaX, tuple.deltaY = dx, dy
		serializedPos = dataEnd
		gv.tuples = append(gv.tuples, tuple)
	}
	return gv, nil
}

// ApplyDeltas computes the per-point (dx, dy) outline offsets for a glyph
// at the given normalized instance coordinates. points gives the glyph's
// default outline point count (not counting phantom points); the
// returned slices are that length.
func (t *GvarTable) ApplyDeltas(gid GlyphIndex, instCoords []F2Dot14, numPoints int) (dx, dy []float64) {
	dx = make([]float64, numPoints)
	dy = make([]float64, numPoints)
	if t == nil || int(gid) >= len(t.glyphs) {
		return dx, dy
	}
	gv := t.glyphs[gid]
	for _, tuple := range gv.tuples {
		peak := tuple.header.peak
		if peak == nil {
			continue
		}
		scalar := tupleScalar(instCoords, peak, tuple.header.start, tuple.header.end)
		if scalar == 0 {
			continue
		}
		if tuple.points == nil {
			// applies to all points, in order
			for i := 0; i < numPoints && i < len(tuple.deltaX); i++ {
				dx[i] += float64(tuple.deltaX[i]) * scalar
				dy[i] += float64(tuple.deltaY[i]) * scalar
			}
			continue
		}
		for i, p := range tuple.points {
			if int(p) >= numPoints || i >= len(tuple.deltaX) {
				continue
			}
			dx[p] += float64(tuple.deltaX[i]) * scalar
			dy[p] += float64(tuple.deltaY[i]) * scalar
		}
	}
	return dx, dy
}
