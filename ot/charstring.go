package ot

// charstringInterpreter executes a CFF/CFF2 Type 2 charstring, producing
// glyph outline contours. Hint operators (hstem/vstem/hintmask/cntrmask)
// are consumed for their stack-clearing side effect only; hinting itself
// is not evaluated, per the rasterization/hinting non-goal.
type charstringInterpreter struct {
	stack      []float64
	x, y       float64
	nStems     int
	widthDone  bool
	contours   [][]GlyphPoint
	cur        []GlyphPoint
	gsubrs     [][]byte
	lsubrs     [][]byte
	gBias      int
	lBias      int
	depth      int
	ivs        *itemVariationStore
	normCoords []F2Dot14
}

// charstringOpLimit and charstringMaxDepth bound total operator-execution
// count and subroutine
// recursion, guarding against malicious or corrupt charstrings that would
// otherwise loop indefinitely.
const (
	charstringOpLimit   = 50000
	charstringMaxDepth  = 10
)

func subrBias(n int) int {
	switch {
	case n < 1240:
		return 107
	case n < 33900:
		return 1131
	default:
		return 32768
	}
}

func newCharstringInterpreter(gsubrs, lsubrs [][]byte) *charstringInterpreter {
	return &charstringInterpreter{
		gsubrs: gsubrs,
		lsubrs: lsubrs,
		gBias:  subrBias(len(gsubrs)),
		lBias:  subrBias(len(lsubrs)),
	}
}

// runCharstring executes a Type 2 charstring to completion and returns the
// decoded outline. ivs and normCoords, if set, let a CFF2 blend operator
// resolve its per-region deltas.
func runCharstring(code []byte, gsubrs, lsubrs [][]byte, ivs *itemVariationStore, normCoords []F2Dot14) (*GlyphOutline, error) {
	ip := newCharstringInterpreter(gsubrs, lsubrs)
	ip.ivs = ivs
	ip.normCoords = normCoords
	if err := ip.run(code); err != nil {
		return nil, err
	}
	if len(ip.cur) > 0 {
		ip.contours = append(ip.contours, ip.cur)
	}
	out := &GlyphOutline{Contours: ip.contours}
	first := true
	for _, c := range out.Contours {
		for _, p := range c {
			if first {
				out.XMin, out.XMax = p.X, p.X
				out.YMin, out.YMax = p.Y, p.Y
				first = false
				continue
			}
			if p.X < out.XMin {
				out.XMin = p.X
			}
			if p.X > out.XMax {
				out.XMax = p.X
			}
			if p.Y < out.YMin {
				out.YMin = p.Y
			}
			if p.Y > out.YMax {
				out.YMax = p.Y
			}
		}
	}
	return out, nil
}

func (ip *charstringInterpreter) moveTo(dx, dy float64) {
	if len(ip.cur) > 0 {
		ip.contours = append(ip.contours, ip.cur)
	}
	ip.x += dx
	ip.y += dy
	ip.cur = []GlyphPoint{{X: int16(ip.x), Y: int16(ip.y), OnCurve: true}}
}

func (ip *charstringInterpreter) lineTo(dx, dy float64) {
	ip.x += dx
	ip.y += dy
	ip.cur = append(ip.cur, GlyphPoint{X: int16(ip.x), Y: int16(ip.y), OnCurve: true})
}

func (ip *charstringInterpreter) curveTo(dx1, dy1, dx2, dy2, dx3, dy3 float64) {
	c1x, c1y := ip.x+dx1, ip.y+dy1
	c2x, c2y := c1x+dx2, c1y+dy2
	ip.x, ip.y = c2x+dx3, c2y+dy3
	ip.cur = append(ip.cur,
		GlyphPoint{X: int16(c1x), Y: int16(c1y), OnCurve: false},
		GlyphPoint{X: int16(c2x), Y: int16(c2y), OnCurve: false},
		GlyphPoint{X: int16(ip.x), Y: int16(ip.y), OnCurve: true},
	)
}

func (ip *charstringInterpreter) clearStack() {
	ip.stack = ip.stack[:0]
}

func (ip *charstringInterpreter) takeWidth(nargsExpectedParity int) {
	// If the argument count has unexpected parity, the first value is a
	// glyph-width delta (Type 2 convention); consume and discard it.
	if !ip.widthDone {
		if (len(ip.stack) % 2) != (nargsExpectedParity % 2) {
			ip.stack = ip.stack[1:]
		}
		ip.widthDone = true
	}
}

// run interprets charstring code. It returns the finished contour list.
func (ip *charstringInterpreter) run(code []byte) error {
	ip.depth++
	defer func() { ip.depth-- }()
	if ip.depth > charstringMaxDepth {
		return errFontFormat("charstring subroutine nesting too deep")
	}
	ops := 0
	i := 0
	for i < len(code) {
		ops++
		if ops > charstringOpLimit {
			return errFontFormat("charstring operator limit exceeded")
		}
		b0 := code[i]
		i++
		switch {
		case b0 >= 32 || b0 == 28:
			v, n, err := decodeCharstringNumber(code[i-1:])
			if err != nil {
				return err
			}
			ip.stack = append(ip.stack, v)
			i += n - 1
			continue
		}
		switch b0 {
		case 1, 3, 18, 23: // hstem, vstem, hstemhm, vstemhm
			ip.takeWidth(0)
			ip.nStems += len(ip.stack) / 2
			ip.clearStack()
		case 19, 20: // hintmask, cntrmask
			ip.takeWidth(0)
			ip.nStems += len(ip.stack) / 2
			ip.clearStack()
			i += (ip.nStems + 7) / 8
		case 21: // rmoveto
			ip.takeWidth(0)
			if len(ip.stack) < 2 {
				return errFontFormat("rmoveto: stack underflow")
			}
			ip.moveTo(ip.stack[0], ip.stack[1])
			ip.clearStack()
		case 22: // hmoveto
			ip.takeWidth(1)
			if len(ip.stack) < 1 {
				return errFontFormat("hmoveto: stack underflow")
			}
			ip.moveTo(ip.stack[0], 0)
			ip.clearStack()
		case 4: // vmoveto
			ip.takeWidth(1)
			if len(ip.stack) < 1 {
				return errFontFormat("vmoveto: stack underflow")
			}
			ip.moveTo(0, ip.stack[0])
			ip.clearStack()
		case 5: // rlineto
			for j := 0; j+1 < len(ip.stack); j += 2 {
				ip.lineTo(ip.stack[j], ip.stack[j+1])
			}
			ip.clearStack()
		case 6: // hlineto
			horiz := true
			for _, d := range ip.stack {
				if horiz {
					ip.lineTo(d, 0)
				} else {
					ip.lineTo(0, d)
				}
				horiz = !horiz
			}
			ip.clearStack()
		case 7: // vlineto
			horiz := false
			for _, d := range ip.stack {
				if horiz {
					ip.lineTo(d, 0)
				} else {
					ip.lineTo(0, d)
				}
				horiz = !horiz
			}
			ip.clearStack()
		case 8: // rrcurveto
			for j := 0; j+5 < len(ip.stack); j += 6 {
				a := ip.stack[j:]
				ip.curveTo(a[0], a[1], a[2], a[3], a[4], a[5])
			}
			ip.clearStack()
		case 24: // rcurveline
			j := 0
			for ; j+5 < len(ip.stack)-2; j += 6 {
				a := ip.stack[j:]
				ip.curveTo(a[0], a[1], a[2], a[3], a[4], a[5])
			}
			if j+1 < len(ip.stack) {
				ip.lineTo(ip.stack[j], ip.stack[j+1])
			}
			ip.clearStack()
		case 25: // rlinecurve
			j := 0
			for ; j+1 < len(ip.stack)-6; j += 2 {
				ip.lineTo(ip.stack[j], ip.stack[j+1])
			}
			if j+5 < len(ip.stack) {
				a := ip.stack[j:]
				ip.curveTo(a[0], a[1], a[2], a[3], a[4], a[5])
			}
			ip.clearStack()
		case 26: // vvcurveto
			j := 0
			dx1 := 0.0
			if len(ip.stack)%4 == 1 {
				dx1 = ip.stack[0]
				j = 1
			}
			for ; j+3 < len(ip.stack); j += 4 {
				a := ip.stack[j:]
				ip.curveTo(dx1, a[0], a[1], a[2], 0, a[3])
				dx1 = 0
			}
			ip.clearStack()
		case 27: // hhcurveto
			j := 0
			dy1 := 0.0
			if len(ip.stack)%4 == 1 {
				dy1 = ip.stack[0]
				j = 1
			}
			for ; j+3 < len(ip.stack); j += 4 {
				a := ip.stack[j:]
				ip.curveTo(a[0], dy1, a[1], a[2], a[3], 0)
				dy1 = 0
			}
			ip.clearStack()
		case 30, 31: // vhcurveto, hvcurveto
			horiz := b0 == 31
			j := 0
			for j+3 < len(ip.stack) {
				last := j+4 >= len(ip.stack)-1
				a := ip.stack[j:]
				var extra float64
				if last && j+4 < len(ip.stack) {
					extra = ip.stack[j+4]
				}
				if horiz {
					ip.curveTo(a[0], 0, a[1], a[2], extra, a[3])
				} else {
					ip.curveTo(0, a[0], a[1], a[2], a[3], extra)
				}
				horiz = !horiz
				j += 4
			}
			ip.clearStack()
		case 10: // callsubr
			if len(ip.stack) == 0 {
				return errFontFormat("callsubr: stack underflow")
			}
			idx := int(ip.stack[len(ip.stack)-1]) + ip.lBias
			ip.stack = ip.stack[:len(ip.stack)-1]
			if idx < 0 || idx >= len(ip.lsubrs) {
				return errFontFormat("callsubr: index out of range")
			}
			if err := ip.run(ip.lsubrs[idx]); err != nil {
				return err
			}
		case 29: // callgsubr
			if len(ip.stack) == 0 {
				return errFontFormat("callgsubr: stack underflow")
			}
			idx := int(ip.stack[len(ip.stack)-1]) + ip.gBias
			ip.stack = ip.stack[:len(ip.stack)-1]
			if idx < 0 || idx >= len(ip.gsubrs) {
				return errFontFormat("callgsubr: index out of range")
			}
			if err := ip.run(ip.gsubrs[idx]); err != nil {
				return err
			}
		case 11: // return
			return nil
		case 14: // endchar
			ip.takeWidth(0)
			if len(ip.cur) > 0 {
				ip.contours = append(ip.contours, ip.cur)
				ip.cur = nil
			}
			return nil
		case 12: // escape: two-byte operators (flex family, arithmetic, blend)
			if i >= len(code) {
				return errFontFormat("escape operator truncated")
			}
			b1 := code[i]
			i++
			if err := ip.runEscape(b1); err != nil {
				return err
			}
		default:
			// unsupported/unknown operator: clear and continue defensively
			ip.clearStack()
		}
	}
	return nil
}

// runEscape handles the 12-prefixed two-byte operator space. We implement
// the flex family (needed for realistic outlines) and treat arithmetic-only
// operators (CFF2 blend aside) as stack-clearing no-ops, since they only
// affect hinting-adjacent bookkeeping that is out of scope here.
func (ip *charstringInterpreter) runEscape(op byte) error {
	switch op {
	case 35: // flex
		if len(ip.stack) >= 13 {
			a := ip.stack
			ip.curveTo(a[0], a[1], a[2], a[3], a[4], a[5])
			ip.curveTo(a[6], a[7], a[8], a[9], a[10], a[11])
		}
		ip.clearStack()
	case 34: // hflex
		if len(ip.stack) >= 7 {
			a := ip.stack
			ip.curveTo(a[0], 0, a[1], a[2], a[3], 0)
			ip.curveTo(a[4], 0, a[5], -a[2], a[6], 0)
		}
		ip.clearStack()
	case 36: // hflex1
		if len(ip.stack) >= 9 {
			a := ip.stack
			ip.curveTo(a[0], a[1], a[2], a[3], a[4], 0)
			ip.curveTo(a[5], 0, a[6], a[7], a[8], -(a[1] + a[3] + a[7]))
		}
		ip.clearStack()
	case 37: // flex1
		if len(ip.stack) >= 11 {
			a := ip.stack
			dx := a[0] + a[2] + a[4] + a[6] + a[8]
			dy := a[1] + a[3] + a[5] + a[7] + a[9]
			ip.curveTo(a[0], a[1], a[2], a[3], a[4], a[5])
			if abs(dx) > abs(dy) {
				ip.curveTo(a[6], a[7], a[8], a[9], a[10], -dy)
			} else {
				ip.curveTo(a[6], a[7], a[8], a[9], -dx, a[10])
			}
		}
		ip.clearStack()
	case 23: // blend (CFF2): fold per-region deltas into their base values
		if ip.ivs == nil || len(ip.stack) < 1 {
			ip.clearStack()
			break
		}
		numRegions := len(ip.ivs.regionScalars(ip.normCoords))
		n := int(ip.stack[len(ip.stack)-1]) // number of blended base values
		ip.stack = ip.stack[:len(ip.stack)-1]
		need := n * (numRegions + 1)
		if n <= 0 || numRegions == 0 || len(ip.stack) < need {
			ip.clearStack()
			break
		}
		scalars := ip.ivs.regionScalars(ip.normCoords)
		base := ip.stack[len(ip.stack)-need : len(ip.stack)-need+n]
		deltas := ip.stack[len(ip.stack)-need+n:]
		result := make([]float64, n)
		for k := 0; k < n; k++ {
			v := base[k]
			for r := 0; r < numRegions; r++ {
				v += deltas[k*numRegions+r] * scalars[r]
			}
			result[k] = v
		}
		ip.stack = append(ip.stack[:len(ip.stack)-need], result...)
	default:
		ip.clearStack()
	}
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// decodeCharstringNumber decodes one Type 2 numeric operand starting at
// b[0], returning its value and the number of bytes consumed.
func decodeCharstringNumber(b []byte) (float64, int, error) {
	if len(b) == 0 {
		return 0, 0, errFontFormat("charstring number truncated")
	}
	b0 := b[0]
	switch {
	case b0 == 28:
		if len(b) < 3 {
			return 0, 0, errFontFormat("charstring shortint truncated")
		}
		v := int16(uint16(b[1])<<8 | uint16(b[2]))
		return float64(v), 3, nil
	case b0 >= 32 && b0 <= 246:
		return float64(int(b0) - 139), 1, nil
	case b0 >= 247 && b0 <= 250:
		if len(b) < 2 {
			return 0, 0, errFontFormat("charstring number truncated")
		}
		return float64((int(b0)-247)*256 + int(b[1]) + 108), 2, nil
	case b0 >= 251 && b0 <= 254:
		if len(b) < 2 {
			return 0, 0, errFontFormat("charstring number truncated")
		}
		return float64(-(int(b0)-251)*256 - int(b[1]) - 108), 2, nil
	case b0 == 255:
		if len(b) < 5 {
			return 0, 0, errFontFormat("charstring fixed truncated")
		}
		v := int32(uint32(b[1])<<24 | uint32(b[2])<<16 | uint32(b[3])<<8 | uint32(b[4]))
		return float64(v) / 65536.0, 5, nil
	}
	return 0, 0, errFontFormat("invalid charstring number prefix")
}
