package ot

// This file implements 'trak', the AAT tracking table: per-size,
// per-name-id tables of (track value, per-size-value) pairs used to
// adjust inter-glyph tracking as a function of point size.

type trakSizeEntry struct {
	sizes  []Fixed // point sizes, ascending
	tracks []trakTrackEntry
}

type trakTrackEntry struct {
	track  Fixed   // track value, e.g. -1.0 (tight) .. 1.0 (loose)
	nameID uint16
	perSize []int16 // one entry per size in the sibling size table
}

// TrakTable exposes horizontal and vertical tracking data.
type TrakTable struct {
	tableBase
	Horizontal *trakSizeEntry
	Vertical   *trakSizeEntry
}

func newTrakTable(tag Tag, b binarySegm, offset, size uint32) *TrakTable {
	t := &TrakTable{}
	t.tableBase = tableBase{data: b, name: tag, offset: offset, length: size}
	t.self = t
	return t
}

func parseTrak(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size < 12 {
		ec.addError(tag, "Header", "trak table too small", SeverityCritical, offset)
		return nil, errFontFormat("trak table too small")
	}
	horizOff, _ := b.u16(8)
	vertOff, _ := b.u16(10)
	t := newTrakTable(tag, b, offset, size)
	if horizOff != 0 {
		if te, err := parseTrakData(b, int(horizOff)); err == nil {
			t.Horizontal = te
		} else {
			ec.addWarning(tag, err.Error(), offset+uint32(horizOff))
		}
	}
	if vertOff != 0 {
		if te, err := parseTrakData(b, int(vertOff)); err == nil {
			t.Vertical = te
		} else {
			ec.addWarning(tag, err.Error(), offset+uint32(vertOff))
		}
	}
	return t, nil
}

// parseTrakData decodes a trackData table. sizeTableOffset and each
// trackTableEntry's perSizeValuesOffset are relative to the start of the
// 'trak' table itself, not to this trackData header, per spec.
func parseTrakData(b binarySegm, pos int) (*trakSizeEntry, error) {
	if pos+8 > len(b) {
		return nil, errFontFormat("trackData header truncated")
	}
	nTracks, _ := b.u16(pos)
	nSizes, _ := b.u16(pos + 2)
	sizeTableOff, _ := b.u32(pos + 4)

	te := &trakSizeEntry{}
	sp := int(sizeTableOff) // relative to start of 'trak' table (base of b)
	for i := 0; i < int(nSizes); i++ {
		if sp+4 > len(b) {
			break
		}
		fx, _ := parseFixed(b, sp)
		te.sizes = append(te.sizes, fx)
		sp += 4
	}

	tp := pos + 8
	for i := 0; i < int(nTracks); i++ {
		if tp+8 > len(b) {
			break
		}
		track, _ := parseFixed(b, tp)
		nameID, _ := b.u16(tp + 4)
		perSizeOff, _ := b.u16(tp + 6)
		entry := trakTrackEntry{track: track, nameID: nameID}
		vp := int(perSizeOff) // also relative to start of 'trak' table
		for s := 0; s < int(nSizes); s++ {
			if vp+2 > len(b) {
				break
			}
			v, _ := b.u16(vp)
			entry.perSize = append(entry.perSize, int16(v))
			vp += 2
		}
		te.tracks = append(te.tracks, entry)
		tp += 8
	}
	return te, nil
}

// Track interpolates the tracking value (in 1000ths of an em) for a given
// track amount and point size, linearly interpolating between the two
// nearest defined sizes.
func (te *trakSizeEntry) Track(trackValue Fixed, ptSize Fixed) int16 {
	if te == nil || len(te.tracks) == 0 || len(te.sizes) == 0 {
		return 0
	}
	var best *trakTrackEntry
	for i := range te.tracks {
		if best == nil || abs(te.tracks[i].track.Float64()-trackValue.Float64()) < abs(best.track.Float64()-trackValue.Float64()) {
			best = &te.tracks[i]
		}
	}
	if best == nil || len(best.perSize) == 0 {
		return 0
	}
	sz := ptSize.Float64()
	if sz <= te.sizes[0].Float64() {
		return best.perSize[0]
	}
	last := len(te.sizes) - 1
	if sz >= te.sizes[last].Float64() {
		return best.perSize[last]
	}
	for i := 0; i < last; i++ {
		s0, s1 := te.sizes[i].Float64(), te.sizes[i+1].Float64()
		if sz >= s0 && sz <= s1 && s1 != s0 {
			t := (sz - s0) / (s1 - s0)
			v0, v1 := float64(best.perSize[i]), float64(best.perSize[i+1])
			return int16(v0 + t*(v1-v0))
		}
	}
	return best.perSize[0]
}
