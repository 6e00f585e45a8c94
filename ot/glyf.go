package ot

import "fmt"

// Glyph outline flags, simple glyph description (per the TrueType spec).
const (
	glyfOnCurvePoint      = 0x01
	glyfXShortVector      = 0x02
	glyfYShortVector      = 0x04
	glyfRepeatFlag        = 0x08
	glyfXIsSameOrPositive = 0x10
	glyfYIsSameOrPositive = 0x20
	glyfOverlapSimple     = 0x40
)

// Composite glyph component flags.
const (
	compArgsAreWords    = 0x0001
	compArgsAreXYValues = 0x0002
	compRoundXYToGrid   = 0x0004
	compWeHaveScale     = 0x0008
	compMoreComponents  = 0x0020
	compWeHaveXYScale   = 0x0040
	compWeHave2x2       = 0x0080
	compWeHaveInstr     = 0x0100
	compUseMyMetrics    = 0x0200
	compOverlapCompound = 0x0400
)

// maxCompositeDepth bounds recursive composite-glyph resolution to guard
// against cyclic component references in malformed fonts.
const maxCompositeDepth = 8

// GlyfTable stores the raw simple/composite glyph outline data; 'loca'
// provides the per-glyph offsets into it.
type GlyfTable struct {
	tableBase
}

func newGlyfTable(tag Tag, b binarySegm, offset, size uint32) *GlyfTable {
	t := &GlyfTable{}
	t.tableBase = tableBase{data: b, name: tag, offset: offset, length: size}
	t.self = t
	return t
}

func parseGlyf(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	return newGlyfTable(tag, b, offset, size), nil
}

// GlyphPoint is one on- or off-curve point of a decoded glyph outline, in
// font design units.
type GlyphPoint struct {
	X, Y    int16
	OnCurve bool
}

// GlyphOutline is a decoded glyph: a sequence of contours (each a closed
// loop of points) plus the glyph's bounding box, as stored in 'glyf'.
type GlyphOutline struct {
	Contours           [][]GlyphPoint
	XMin, YMin         int16
	XMax, YMax         int16
	InstructionLength  uint16
}

// AsLoca/AsGlyf accessors are provided via TableSelf; see ot.go.

// Outline decodes the outline for glyph gid, resolving composite glyphs
// (including their component transforms) up to maxCompositeDepth levels.
// A glyph with zero contours (e.g. U+0020 SPACE) decodes to an empty,
// non-nil GlyphOutline.
func (t *GlyfTable) Outline(loca *LocaTable, gid GlyphIndex) (*GlyphOutline, error) {
	return t.outline(loca, gid, 0)
}

func (t *GlyfTable) outline(loca *LocaTable, gid GlyphIndex, depth int) (*GlyphOutline, error) {
	if depth > maxCompositeDepth {
		return nil, errFontFormat("composite glyph nesting too deep")
	}
	start := loca.IndexToLocation(gid)
	end := loca.IndexToLocation(gid + 1)
	if end <= start {
		return &GlyphOutline{}, nil // empty glyph, e.g. space
	}
	if int(end) > len(t.data) {
		return nil, errFontFormat("glyf entry out of bounds")
	}
	g := t.data[start:end]
	if len(g) < 10 {
		return nil, errFontFormat("glyf entry too short")
	}
	numContours := int16(u16(g[0:2]))
	xmin, _ := g.u16(2)
	ymin, _ := g.u16(4)
	xmax, _ := g.u16(6)
	ymax, _ := g.u16(8)
	out := &GlyphOutline{
		XMin: int16(xmin), YMin: int16(ymin),
		XMax: int16(xmax), YMax: int16(ymax),
	}
	if numContours >= 0 {
		if err := parseSimpleGlyph(g, int(numContours), out); err != nil {
			return nil, err
		}
		return out, nil
	}
	return t.parseCompositeGlyph(loca, g, out, depth)
}

func parseSimpleGlyph(g binarySegm, numContours int, out *GlyphOutline) error {
	pos := 10
	endPtsOfContours := make([]uint16, numContours)
	for i := 0; i < numContours; i++ {
		v, err := g.u16(pos)
		if err != nil {
			return errFontFormat("glyf endPtsOfContours truncated")
		}
		endPtsOfContours[i] = v
		pos += 2
	}
	numPoints := 0
	if numContours > 0 {
		numPoints = int(endPtsOfContours[numContours-1]) + 1
	}
	insLen, err := g.u16(pos)
	if err != nil {
		return errFontFormat("glyf instructionLength truncated")
	}
	out.InstructionLength = insLen
	pos += 2 + int(insLen)

	flags := make([]byte, 0, numPoints)
	for len(flags) < numPoints {
		if pos >= len(g) {
			return errFontFormat("glyf flags truncated")
		}
		f := g[pos]
		pos++
		flags = append(flags, f)
		if f&glyfRepeatFlag != 0 {
			if pos >= len(g) {
				return errFontFormat("glyf flags truncated")
			}
			repeat := int(g[pos])
			pos++
			for i := 0; i < repeat && len(flags) < numPoints; i++ {
				flags = append(flags, f)
			}
		}
	}

	xs := make([]int16, numPoints)
	var x int16
	for i := 0; i < numPoints; i++ {
		f := flags[i]
		switch {
		case f&glyfXShortVector != 0:
			if pos >= len(g) {
				return errFontFormat("glyf x-coords truncated")
			}
			d := int16(g[pos])
			pos++
			if f&glyfXIsSameOrPositive == 0 {
				d = -d
			}
			x += d
		case f&glyfXIsSameOrPositive != 0:
			// same as previous x, no delta stored
		default:
			v, err := g.u16(pos)
			if err != nil {
				return errFontFormat("glyf x-coords truncated")
			}
			pos += 2
			x += int16(v)
		}
		xs[i] = x
	}

	ys := make([]int16, numPoints)
	var y int16
	for i := 0; i < numPoints; i++ {
		f := flags[i]
		switch {
		case f&glyfYShortVector != 0:
			if pos >= len(g) {
				return errFontFormat("glyf y-coords truncated")
			}
			d := int16(g[pos])
			pos++
			if f&glyfYIsSameOrPositive == 0 {
				d = -d
			}
			y += d
		case f&glyfYIsSameOrPositive != 0:
			// same as previous y
		default:
			v, err := g.u16(pos)
			if err != nil {
				return errFontFormat("glyf y-coords truncated")
			}
			pos += 2
			y += int16(v)
		}
		ys[i] = y
	}

	contourStart := 0
	for _, endPt := range endPtsOfContours {
		var contour []GlyphPoint
		for i := contourStart; i <= int(endPt) && i < numPoints; i++ {
			contour = append(contour, GlyphPoint{
				X:       xs[i],
				Y:       ys[i],
				OnCurve: flags[i]&glyfOnCurvePoint != 0,
			})
		}
		out.Contours = append(out.Contours, contour)
		contourStart = int(endPt) + 1
	}
	return nil
}

// componentTransform is the 2x2 linear transform (plus translation)
// applied to a composite glyph's component.
type componentTransform struct {
	dx, dy         float64
	a, b, c, d     float64
}

func identityTransform() componentTransform {
	return componentTransform{a: 1, d: 1}
}

func (t componentTransform) apply(p GlyphPoint) GlyphPoint {
	x := float64(p.X)*t.a + float64(p.Y)*t.c + t.dx
	y := float64(p.X)*t.b + float64(p.Y)*t.d + t.dy
	return GlyphPoint{X: int16(x), Y: int16(y), OnCurve: p.OnCurve}
}

func (t *GlyfTable) parseCompositeGlyph(loca *LocaTable, g binarySegm, out *GlyphOutline, depth int) (*GlyphOutline, error) {
	pos := 10
	for {
		if pos+4 > len(g) {
			return nil, errFontFormat("composite glyph component header truncated")
		}
		flags, _ := g.u16(pos)
		glyphIndex, _ := g.u16(pos + 2)
		pos += 4
		tr := identityTransform()
		if flags&compArgsAreWords != 0 {
			if pos+4 > len(g) {
				return nil, errFontFormat("composite glyph args truncated")
			}
			a1 := int16(u16(g[pos:]))
			a2 := int16(u16(g[pos+2:]))
			pos += 4
			if flags&compArgsAreXYValues != 0 {
				tr.dx, tr.dy = float64(a1), float64(a2)
			}
		} else {
			if pos+2 > len(g) {
				return nil, errFontFormat("composite glyph args truncated")
			}
			a1 := int8(g[pos])
			a2 := int8(g[pos+1])
			pos += 2
			if flags&compArgsAreXYValues != 0 {
				tr.dx, tr.dy = float64(a1), float64(a2)
			}
		}
		switch {
		case flags&compWeHave2x2 != 0:
			if pos+8 > len(g) {
				return nil, errFontFormat("composite glyph 2x2 truncated")
			}
			tr.a = F2Dot14(int16(u16(g[pos:]))).Float64()
			tr.b = F2Dot14(int16(u16(g[pos+2:]))).Float64()
			tr.c = F2Dot14(int16(u16(g[pos+4:]))).Float64()
			tr.d = F2Dot14(int16(u16(g[pos+6:]))).Float64()
			pos += 8
		case flags&compWeHaveXYScale != 0:
			if pos+4 > len(g) {
				return nil, errFontFormat("composite glyph xy-scale truncated")
			}
			tr.a = F2Dot14(int16(u16(g[pos:]))).Float64()
			tr.d = F2Dot14(int16(u16(g[pos+2:]))).Float64()
			pos += 4
		case flags&compWeHaveScale != 0 && flags&compWeHave2x2 == 0 && flags&compWeHaveXYScale == 0:
			if pos+2 > len(g) {
				return nil, errFontFormat("composite glyph scale truncated")
			}
			s := F2Dot14(int16(u16(g[pos:]))).Float64()
			tr.a, tr.d = s, s
			pos += 2
		}
		if glyphIndex == uint16(0) {
			// glyph 0 is resolved like any other component; reference
			// cycles are stopped by the depth limit in outline
		}
		comp, err := t.outline(loca, GlyphIndex(glyphIndex), depth+1)
		if err != nil {
			return nil, fmt.Errorf("composite component %d: %w", glyphIndex, err)
		}
		for _, contour := range comp.Contours {
			transformed := make([]GlyphPoint, len(contour))
			for i, p := range contour {
				transformed[i] = tr.apply(p)
			}
			out.Contours = append(out.Contours, transformed)
		}
		if flags&compMoreComponents == 0 {
			break
		}
	}
	return out, nil
}
