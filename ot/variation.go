package ot

// This file implements the shared machinery behind variable fonts: axis
// normalization (fvar/avar), the tuple-scalar formula used by gvar and the
// Item Variation Store, and the packed-point/packed-delta encodings gvar
// relies on.

// VariationAxis describes one axis of variation, as found in 'fvar'.
type VariationAxis struct {
	Tag          Tag
	MinValue     Fixed
	DefaultValue Fixed
	MaxValue     Fixed
	Flags        uint16
	AxisNameID   uint16
}

// NamedInstance is a predefined point in variation space, as found in
// 'fvar'.
type NamedInstance struct {
	SubfamilyNameID uint16
	Flags           uint16
	Coordinates     []Fixed
	PostScriptNameID uint16 // 0xFFFF if absent
}

// FvarTable exposes the variation axes and named instances of a variable
// font.
type FvarTable struct {
	tableBase
	Axes      []VariationAxis
	Instances []NamedInstance
}

func newFvarTable(tag Tag, b binarySegm, offset, size uint32) *FvarTable {
	t := &FvarTable{}
	t.tableBase = tableBase{data: b, name: tag, offset: offset, length: size}
	t.self = t
	return t
}

func parseFvar(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size < 16 {
		ec.addError(tag, "Size", "fvar table too small", SeverityCritical, offset)
		return nil, errFontFormat("fvar table too small")
	}
	axesArrayOffset, _ := b.u16(4)
	axisCount, _ := b.u16(6)
	axisSize, _ := b.u16(8)
	instanceCount, _ := b.u16(10)
	instanceSize, _ := b.u16(12)

	t := newFvarTable(tag, b, offset, size)
	pos := int(axesArrayOffset)
	for i := 0; i < int(axisCount); i++ {
		if pos+20 > len(b) {
			ec.addWarning(tag, "axis record truncated", offset+uint32(pos))
			break
		}
		tagv, _ := b.u32(pos)
		minV, _ := parseFixed(b, pos+4)
		defV, _ := parseFixed(b, pos+8)
		maxV, _ := parseFixed(b, pos+12)
		flags, _ := b.u16(pos + 16)
		nameID, _ := b.u16(pos + 18)
		t.Axes = append(t.Axes, VariationAxis{
			Tag: Tag(tagv), MinValue: minV, DefaultValue: defV, MaxValue: maxV,
			Flags: flags, AxisNameID: nameID,
		})
		pos += int(axisSize)
	}

	instStart := int(axesArrayOffset) + int(axisCount)*int(axisSize)
	pos = instStart
	for i := 0; i < int(instanceCount); i++ {
		if pos+4 > len(b) {
			break
		}
		subfamilyNameID, _ := b.u16(pos)
		flags, _ := b.u16(pos + 2)
		coords := make([]Fixed, axisCount)
		ok := true
		for a := 0; a < int(axisCount); a++ {
			v, err := parseFixed(b, pos+4+a*4)
			if err != nil {
				ok = false
				break
			}
			coords[a] = v
		}
		if !ok {
			ec.addWarning(tag, "instance record truncated", offset+uint32(pos))
			break
		}
		inst := NamedInstance{SubfamilyNameID: subfamilyNameID, Flags: flags, Coordinates: coords, PostScriptNameID: 0xFFFF}
		coordsEnd := pos + 4 + int(axisCount)*4
		if int(instanceSize) == int(axisCount)*4+6 && coordsEnd+2 <= len(b) {
			psNameID, _ := b.u16(coordsEnd)
			inst.PostScriptNameID = psNameID
		}
		t.Instances = append(t.Instances, inst)
		pos += int(instanceSize)
	}
	return t, nil
}

// AvarSegmentMap is the piecewise-linear axis-value remap for one axis, as
// found in 'avar'.
type AvarSegmentMap struct {
	Pairs [][2]F2Dot14 // (fromCoord, toCoord), sorted ascending by fromCoord
}

// Apply remaps a normalized axis coordinate through the piecewise-linear
// function described by m. Coordinates between map points are linearly
// interpolated; coordinates outside the mapped range pass through
// unmodified (the map is expected to always bracket -1/0/1).
func (m AvarSegmentMap) Apply(v F2Dot14) F2Dot14 {
	if len(m.Pairs) == 0 {
		return v
	}
	fv := v.Float64()
	if fv <= m.Pairs[0][0].Float64() {
		return f2dot14FromFloat(m.Pairs[0][1].Float64())
	}
	last := m.Pairs[len(m.Pairs)-1]
	if fv >= last[0].Float64() {
		return f2dot14FromFloat(last[1].Float64())
	}
	for i := 1; i < len(m.Pairs); i++ {
		prev, cur := m.Pairs[i-1], m.Pairs[i]
		if fv <= cur[0].Float64() {
			pf, cf := prev[0].Float64(), cur[0].Float64()
			pt, ct := prev[1].Float64(), cur[1].Float64()
			if cf == pf {
				return f2dot14FromFloat(pt)
			}
			frac := (fv - pf) / (cf - pf)
			return f2dot14FromFloat(pt + frac*(ct-pt))
		}
	}
	return v
}

// AvarTable holds the axis-variation remaps applied after raw user
// coordinates are normalized to [-1,1] and before they are used to
// evaluate tuple variation stores (gvar/HVAR/VVAR/MVAR).
type AvarTable struct {
	tableBase
	SegmentMaps []AvarSegmentMap
}

func newAvarTable(tag Tag, b binarySegm, offset, size uint32) *AvarTable {
	t := &AvarTable{}
	t.tableBase = tableBase{data: b, name: tag, offset: offset, length: size}
	t.self = t
	return t
}

func parseAvar(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size < 8 {
		ec.addError(tag, "Size", "avar table too small", SeverityCritical, offset)
		return nil, errFontFormat("avar table too small")
	}
	axisCount, _ := b.u16(6)
	t := newAvarTable(tag, b, offset, size)
	pos := 8
	for a := 0; a < int(axisCount); a++ {
		if pos+2 > len(b) {
			ec.addWarning(tag, "segment map count truncated", offset+uint32(pos))
			break
		}
		n, _ := b.u16(pos)
		pos += 2
		m := AvarSegmentMap{}
		for i := 0; i < int(n); i++ {
			if pos+4 > len(b) {
				ec.addWarning(tag, "segment map pair truncated", offset+uint32(pos))
				break
			}
			from, _ := parseF2Dot14(b, pos)
			to, _ := parseF2Dot14(b, pos+2)
			m.Pairs = append(m.Pairs, [2]F2Dot14{from, to})
			pos += 4
		}
		t.SegmentMaps = append(t.SegmentMaps, m)
	}
	return t, nil
}

// NormalizeCoordinates converts user-space axis coordinates into
// normalized [-1,1] design-space coordinates, applying fvar's
// min/default/max piecewise scaling and then avar's per-axis remap when
// present.
func NormalizeCoordinates(fvar *FvarTable, avar *AvarTable, userCoords map[Tag]float64) []F2Dot14 {
	norm := make([]F2Dot14, len(fvar.Axes))
	for i, axis := range fvar.Axes {
		v, ok := userCoords[axis.Tag]
		if !ok {
			v = axis.DefaultValue.Float64()
		}
		var n float64
		def, min, max := axis.DefaultValue.Float64(), axis.MinValue.Float64(), axis.MaxValue.Float64()
		switch {
		case v < def:
			if min == def {
				n = 0
			} else {
				n = -(def - v) / (def - min)
			}
		case v > def:
			if max == def {
				n = 0
			} else {
				n = (v - def) / (max - def)
			}
		}
		norm[i] = f2dot14FromFloat(n)
		if avar != nil && i < len(avar.SegmentMaps) {
			norm[i] = avar.SegmentMaps[i].Apply(norm[i])
		}
	}
	return norm
}

// --- Tuple variation store machinery (shared by gvar and friends) ----------

// tupleVariationHeader describes one set of deltas plus the region of
// variation space (peak, optionally start/end) where it applies.
type tupleVariationHeader struct {
	peak       []F2Dot14
	start, end []F2Dot14 // intermediate region bounds; nil if not present
	privatePointNumbers bool
	dataSize   int
}

// tupleScalar computes the scalar support factor for a tuple region at a
// given normalized instance location, per the OpenType variation-model
// algorithm: the product, over each axis, of a per-axis linear falloff
// between 0 at the region boundary and 1 at the peak.
func tupleScalar(instCoords, peak, start, end []F2Dot14) float64 {
	scalar := 1.0
	for i, p := range peak {
		pv := p.Float64()
		if pv == 0 {
			continue
		}
		var v float64
		if i < len(instCoords) {
			v = instCoords[i].Float64()
		}
		var lo, hi float64
		if start != nil && end != nil && i < len(start) && i < len(end) {
			lo, hi = start[i].Float64(), end[i].Float64()
		} else if pv > 0 {
			lo, hi = 0, pv
		} else {
			lo, hi = pv, 0
		}
		switch {
		case v == pv:
			continue
		case v <= lo || v >= hi:
			return 0
		case v < pv:
			if lo == pv {
				return 0
			}
			scalar *= (v - lo) / (pv - lo)
		default:
			if hi == pv {
				return 0
			}
			scalar *= (hi - v) / (hi - pv)
		}
	}
	return scalar
}

// --- Packed point numbers and packed deltas (gvar encoding) -----------------

// parsePackedPointNumbers decodes a gvar/cvar "packed point number" list.
// A zero count means "all points". Returns the points and bytes consumed.
func parsePackedPointNumbers(b binarySegm, pos int) ([]uint16, int, error) {
	if pos >= len(b) {
		return nil, 0, errFontFormat("packed point numbers: out of bounds")
	}
	start := pos
	count := int(b[pos])
	pos++
	if count == 0 {
		return nil, pos - start, nil // "all points"
	}
	if count&0x80 != 0 {
		if pos >= len(b) {
			return nil, 0, errFontFormat("packed point numbers: truncated count")
		}
		count = (count&0x7f)<<8 | int(b[pos])
		pos++
	}
	points := make([]uint16, 0, count)
	var last uint16
	for len(points) < count {
		if pos >= len(b) {
			return nil, 0, errFontFormat("packed point numbers: truncated run")
		}
		control := b[pos]
		pos++
		runCount := int(control&0x7f) + 1
		isWords := control&0x80 != 0
		for j := 0; j < runCount && len(points) < count; j++ {
			var delta uint16
			if isWords {
				if pos+2 > len(b) {
					return nil, 0, errFontFormat("packed point numbers: truncated word")
				}
				delta = u16(b[pos:])
				pos += 2
			} else {
				if pos >= len(b) {
					return nil, 0, errFontFormat("packed point numbers: truncated byte")
				}
				delta = uint16(b[pos])
				pos++
			}
			last += delta
			points = append(points, last)
		}
	}
	return points, pos - start, nil
}

// parsePackedDeltas decodes n packed deltas (gvar/cvar encoding: run-length
// plus zero/byte/word value runs).
func parsePackedDeltas(b binarySegm, pos int, n int) ([]int16, int, error) {
	start := pos
	deltas := make([]int16, 0, n)
	for len(deltas) < n {
		if pos >= len(b) {
			return nil, 0, errFontFormat("packed deltas: truncated control byte")
		}
		control := b[pos]
		pos++
		runCount := int(control&0x3f) + 1
		switch {
		case control&0x80 != 0: // DELTAS_ARE_ZERO
			for j := 0; j < runCount && len(deltas) < n; j++ {
				deltas = append(deltas, 0)
			}
		case control&0x40 != 0: // DELTAS_ARE_WORDS
			for j := 0; j < runCount && len(deltas) < n; j++ {
				if pos+2 > len(b) {
					return nil, 0, errFontFormat("packed deltas: truncated word")
				}
				deltas = append(deltas, int16(u16(b[pos:])))
				pos += 2
			}
		default: // bytes
			for j := 0; j < runCount && len(deltas) < n; j++ {
				if pos >= len(b) {
					return nil, 0, errFontFormat("packed deltas: truncated byte")
				}
				deltas = append(deltas, int16(int8(b[pos])))
				pos++
			}
		}
	}
	return deltas, pos - start, nil
}
