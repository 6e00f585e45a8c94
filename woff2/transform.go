package woff2

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// reconstructGlyfLoca reverses the WOFF2 transformed-glyf encoding (§5.1),
// rebuilding both the `glyf` and `loca` tables from the packed contour,
// point, flag, glyph-coordinate, composite, bbox, and instruction streams.
func reconstructGlyfLoca(b []byte, origLocaLength uint32) (glyfOut, locaOut []byte, err error) {
	r := newCursor(b)
	_ = r.readUint16() // reserved
	optionFlags := r.readUint16()
	numGlyphs := r.readUint16()
	indexFormat := r.readUint16()
	nContourStreamSize := r.readUint32()
	nPointsStreamSize := r.readUint32()
	flagStreamSize := r.readUint32()
	glyphStreamSize := r.readUint32()
	compositeStreamSize := r.readUint32()
	bboxStreamSize := r.readUint32()
	instructionStreamSize := r.readUint32()
	if r.err != nil || nContourStreamSize != 2*uint32(numGlyphs) {
		return nil, nil, fmt.Errorf("woff2: glyf: %w", ErrInvalidData)
	}

	bitmapSize := ((uint32(numGlyphs) + 31) >> 5) << 2
	nContourStream := newCursor(r.readBytes(nContourStreamSize))
	nPointsStream := newCursor(r.readBytes(nPointsStreamSize))
	flagStream := newCursor(r.readBytes(flagStreamSize))
	glyphStream := newCursor(r.readBytes(glyphStreamSize))
	compositeStream := newCursor(r.readBytes(compositeStreamSize))
	bboxBitmap := newBitReader(r.readBytes(bitmapSize))
	bboxStream := newCursor(r.readBytes(bboxStreamSize - bitmapSize))
	instructionStream := newCursor(r.readBytes(instructionStreamSize))
	var overlapSimpleBitmap *bitReader
	if optionFlags&0x0001 != 0 {
		overlapSimpleBitmap = newBitReader(r.readBytes(bitmapSize))
	}
	if r.err != nil {
		return nil, nil, fmt.Errorf("woff2: glyf: %w", ErrInvalidData)
	}

	locaLength := (uint32(numGlyphs) + 1) * 2
	if indexFormat != 0 {
		locaLength *= 2
	}
	if locaLength != origLocaLength {
		return nil, nil, fmt.Errorf("woff2: loca: origLength must match numGlyphs+1 entries")
	}

	var glyf bytes.Buffer
	loca := make([]byte, 0, locaLength)
	writeLocaEntry := func(glyfLen uint32) {
		if indexFormat == 0 {
			var b2 [2]byte
			binary.BigEndian.PutUint16(b2[:], uint16(glyfLen>>1))
			loca = append(loca, b2[:]...)
		} else {
			var b4 [4]byte
			binary.BigEndian.PutUint32(b4[:], glyfLen)
			loca = append(loca, b4[:]...)
		}
	}

	for g := uint16(0); g < numGlyphs; g++ {
		writeLocaEntry(uint32(glyf.Len()))

		explicitBbox := bboxBitmap.read()
		nContours := nContourStream.readInt16()
		switch {
		case nContours == 0:
			if explicitBbox {
				return nil, nil, fmt.Errorf("woff2: glyf: empty glyph cannot carry a bbox")
			}
			continue
		case nContours > 0:
			if err := reconstructSimpleGlyph(&glyf, nContours, explicitBbox, bboxStream, nPointsStream,
				flagStream, glyphStream, instructionStream, overlapSimpleBitmap); err != nil {
				return nil, nil, err
			}
		default:
			if !explicitBbox {
				return nil, nil, fmt.Errorf("woff2: glyf: composite glyph must carry a bbox")
			}
			if err := reconstructCompositeGlyph(&glyf, nContours, bboxStream, compositeStream, glyphStream, instructionStream); err != nil {
				return nil, nil, err
			}
		}
		for glyf.Len()%4 != 0 {
			glyf.WriteByte(0)
		}
	}
	writeLocaEntry(uint32(glyf.Len()))
	return glyf.Bytes(), loca, nil
}

func reconstructSimpleGlyph(glyf *bytes.Buffer, nContours int16, explicitBbox bool,
	bboxStream, nPointsStream, flagStream, glyphStream, instructionStream *cursor,
	overlapSimpleBitmap *bitReader) error {

	var xMin, yMin, xMax, yMax int16
	if explicitBbox {
		xMin, yMin, xMax, yMax = bboxStream.readInt16(), bboxStream.readInt16(), bboxStream.readInt16(), bboxStream.readInt16()
		if bboxStream.err != nil {
			return fmt.Errorf("woff2: glyf: %w", ErrInvalidData)
		}
	}

	var nPoints uint16
	endPts := make([]uint16, nContours)
	for i := int16(0); i < nContours; i++ {
		n := nPointsStream.read255UShort()
		if math.MaxUint16-nPoints < n {
			return fmt.Errorf("woff2: glyf: %w", ErrInvalidData)
		}
		nPoints += n
		endPts[i] = nPoints - 1
	}
	if nPointsStream.err != nil {
		return fmt.Errorf("woff2: glyf: %w", ErrInvalidData)
	}

	var x, y int16
	flags := make([]byte, 0, nPoints)
	xs := make([]int16, 0, nPoints)
	ys := make([]int16, 0, nPoints)
	for i := uint16(0); i < nPoints; i++ {
		flag := flagStream.readByte()
		onCurve := flag&0x80 == 0
		flag &= 0x7F

		var dx, dy int16
		switch {
		case flag < 10:
			c0 := int16(glyphStream.readByte())
			dy = signOf(flag, 0) * (int16(flag&0x0E)<<7 + c0)
		case flag < 20:
			c0 := int16(glyphStream.readByte())
			dx = signOf(flag, 0) * (int16((flag-10)&0x0E)<<7 + c0)
		case flag < 84:
			c0 := int16(glyphStream.readByte())
			dx = signOf(flag, 0) * (1 + int16((flag-20)&0x30) + c0>>4)
			dy = signOf(flag, 1) * (1 + int16((flag-20)&0x0C)<<2 + (c0 & 0x0F))
		case flag < 120:
			c0 := int16(glyphStream.readByte())
			c1 := int16(glyphStream.readByte())
			dx = signOf(flag, 0) * (1 + int16((flag-84)/12)<<8 + c0)
			dy = signOf(flag, 1) * (1 + (int16((flag-84)%12)>>2)<<8 + c1)
		case flag < 124:
			c0 := int16(glyphStream.readByte())
			c1 := int16(glyphStream.readByte())
			c2 := int16(glyphStream.readByte())
			dx = signOf(flag, 0) * (c0<<4 + c1>>4)
			dy = signOf(flag, 1) * ((c1&0x0F)<<8 + c2)
		default:
			c0 := int16(glyphStream.readByte())
			c1 := int16(glyphStream.readByte())
			c2 := int16(glyphStream.readByte())
			c3 := int16(glyphStream.readByte())
			dx = signOf(flag, 0) * (c0<<8 + c1)
			dy = signOf(flag, 1) * (c2<<8 + c3)
		}
		xs = append(xs, dx)
		ys = append(ys, dy)

		var of byte
		if onCurve {
			of |= 0x01
		}
		if overlapSimpleBitmap != nil && overlapSimpleBitmap.read() {
			of |= 0x40
		}
		flags = append(flags, of)

		if !explicitBbox {
			x += dx
			y += dy
			if i == 0 {
				xMin, xMax, yMin, yMax = x, x, y, y
			} else {
				if x < xMin {
					xMin = x
				} else if x > xMax {
					xMax = x
				}
				if y < yMin {
					yMin = y
				} else if y > yMax {
					yMax = y
				}
			}
		}
	}
	if flagStream.err != nil || glyphStream.err != nil {
		return fmt.Errorf("woff2: glyf: %w", ErrInvalidData)
	}

	instrLen := glyphStream.read255UShort()
	instructions := instructionStream.readBytes(uint32(instrLen))
	if instructionStream.err != nil {
		return fmt.Errorf("woff2: glyf: %w", ErrInvalidData)
	}

	writeInt16(glyf, nContours)
	writeInt16(glyf, xMin)
	writeInt16(glyf, yMin)
	writeInt16(glyf, xMax)
	writeInt16(glyf, yMax)
	for _, e := range endPts {
		writeUint16Buf(glyf, e)
	}
	writeUint16Buf(glyf, instrLen)
	glyf.Write(instructions)
	glyf.Write(flags)
	for _, v := range xs {
		writeInt16(glyf, v)
	}
	for _, v := range ys {
		writeInt16(glyf, v)
	}
	return nil
}

func reconstructCompositeGlyph(glyf *bytes.Buffer, nContours int16, bboxStream, compositeStream, glyphStream, instructionStream *cursor) error {
	xMin, yMin, xMax, yMax := bboxStream.readInt16(), bboxStream.readInt16(), bboxStream.readInt16(), bboxStream.readInt16()
	if bboxStream.err != nil {
		return fmt.Errorf("woff2: glyf: %w", ErrInvalidData)
	}
	writeInt16(glyf, nContours)
	writeInt16(glyf, xMin)
	writeInt16(glyf, yMin)
	writeInt16(glyf, xMax)
	writeInt16(glyf, yMax)

	hasInstructions := false
	for {
		flags := compositeStream.readUint16()
		n := compositeComponentSize(flags)
		if flags&0x0100 != 0 {
			hasInstructions = true
		}
		writeUint16Buf(glyf, flags)
		glyf.Write(compositeStream.readBytes(n - 2))
		if compositeStream.err != nil {
			return fmt.Errorf("woff2: glyf: %w", ErrInvalidData)
		}
		if flags&0x0020 == 0 { // no MORE_COMPONENTS
			break
		}
	}
	if hasInstructions {
		instrLen := glyphStream.read255UShort()
		instructions := instructionStream.readBytes(uint32(instrLen))
		if instructionStream.err != nil {
			return fmt.Errorf("woff2: glyf: %w", ErrInvalidData)
		}
		writeUint16Buf(glyf, instrLen)
		glyf.Write(instructions)
	}
	return nil
}

func compositeComponentSize(flags uint16) uint32 {
	n := uint32(4) // glyphIndex (2) + args (2, unless ARG_1_AND_2_ARE_WORDS)
	if flags&0x0001 != 0 {
		n += 2
	}
	switch {
	case flags&0x0008 != 0: // WE_HAVE_A_SCALE
		n += 2
	case flags&0x0040 != 0: // WE_HAVE_AN_X_AND_Y_SCALE
		n += 4
	case flags&0x0080 != 0: // WE_HAVE_A_TWO_BY_TWO
		n += 8
	}
	return n
}

func signOf(flag byte, bit uint) int16 {
	if flag&(1<<bit) != 0 {
		return 1
	}
	return -1
}

func writeInt16(w *bytes.Buffer, v int16) { writeUint16Buf(w, uint16(v)) }

func writeUint16Buf(w *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.Write(b[:])
}

// reconstructHmtx reverses the WOFF2 transformed-hmtx encoding (§5.2),
// which omits left-side-bearing arrays that are redundant with glyf's xMin.
func reconstructHmtx(b, head, glyf, loca, maxp, hhea []byte) ([]byte, error) {
	if len(head) < 52 {
		return nil, ErrInvalidData
	}
	indexFormat := int16(binary.BigEndian.Uint16(head[50:]))

	if len(maxp) < 6 {
		return nil, ErrInvalidData
	}
	numGlyphs := binary.BigEndian.Uint16(maxp[4:])

	if len(hhea) < 36 {
		return nil, ErrInvalidData
	}
	numHMetrics := binary.BigEndian.Uint16(hhea[34:])
	if numHMetrics < 1 {
		return nil, fmt.Errorf("woff2: hmtx: must have at least one long metric")
	}
	if numGlyphs < numHMetrics {
		return nil, fmt.Errorf("woff2: hmtx: more long metrics than glyphs")
	}

	locaLength := (uint32(numGlyphs) + 1) * 2
	if indexFormat != 0 {
		locaLength *= 2
	}
	if locaLength != uint32(len(loca)) {
		return nil, ErrInvalidData
	}

	r := newCursor(b)
	flags := r.readByte()
	reconstructProportional := flags&0x01 != 0
	reconstructMonospaced := flags&0x02 != 0
	if flags&0xFC != 0 {
		return nil, fmt.Errorf("woff2: hmtx: reserved flag bits must be zero")
	}
	if !reconstructProportional && !reconstructMonospaced {
		return nil, fmt.Errorf("woff2: hmtx: must reconstruct at least one side-bearing array")
	}

	advanceWidths := make([]uint16, numHMetrics)
	lsbs := make([]int16, numGlyphs)
	for i := uint16(0); i < numHMetrics; i++ {
		advanceWidths[i] = r.readUint16()
	}
	if !reconstructProportional {
		for i := uint16(0); i < numHMetrics; i++ {
			lsbs[i] = r.readInt16()
		}
	}
	if !reconstructMonospaced {
		for i := numHMetrics; i < numGlyphs; i++ {
			lsbs[i] = r.readInt16()
		}
	}
	if r.err != nil {
		return nil, ErrInvalidData
	}

	locaOffset := func(i uint16) uint32 {
		if indexFormat != 0 {
			return binary.BigEndian.Uint32(loca[4*i:])
		}
		return uint32(binary.BigEndian.Uint16(loca[2*i:])) << 1
	}

	iMin, iMax := uint16(0), numGlyphs
	if !reconstructProportional {
		iMin = numHMetrics
	} else if !reconstructMonospaced {
		iMax = numHMetrics
	}
	offset := locaOffset(iMin)
	for i := iMin; i < iMax; i++ {
		offsetNext := locaOffset(i + 1)
		if offsetNext == offset {
			lsbs[i] = 0
		} else {
			if int(offset)+4 > len(glyf) {
				return nil, ErrInvalidData
			}
			lsbs[i] = int16(binary.BigEndian.Uint16(glyf[offset+2:]))
		}
		offset = offsetNext
	}

	var out bytes.Buffer
	for i := uint16(0); i < numHMetrics; i++ {
		writeUint16Buf(&out, advanceWidths[i])
		writeInt16(&out, lsbs[i])
	}
	for i := numHMetrics; i < numGlyphs; i++ {
		writeInt16(&out, lsbs[i])
	}
	return out.Bytes(), nil
}
