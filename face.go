package opentype

import (
	"fmt"
	"math"
	"strings"

	"github.com/wiedymi/text-shaper-sub005/ot"
	"github.com/wiedymi/text-shaper-sub005/segment"
	"github.com/wiedymi/text-shaper-sub005/woff2"
)

// ErrorKind classifies a Face-level failure. Face operations surface a
// single tagged variant rather than ad-hoc error strings, so callers can
// switch on Kind instead of matching messages.
type ErrorKind int

const (
	ErrUnsupportedContainer ErrorKind = iota
	ErrMalformedDirectory
	ErrMissingRequiredTable
	ErrMalformedTable
	ErrOutOfBounds
	ErrCycleDetected
	ErrCharstringLimit
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnsupportedContainer:
		return "UnsupportedContainer"
	case ErrMalformedDirectory:
		return "MalformedDirectory"
	case ErrMissingRequiredTable:
		return "MissingRequiredTable"
	case ErrMalformedTable:
		return "MalformedTable"
	case ErrOutOfBounds:
		return "OutOfBounds"
	case ErrCycleDetected:
		return "CycleDetected"
	case ErrCharstringLimit:
		return "CharstringLimit"
	}
	return "Unknown"
}

// FaceError is the error type returned by Face-level operations.
type FaceError struct {
	Kind   ErrorKind
	Table  string // OpenType table tag involved, if any
	Reason string
}

func (e *FaceError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s(%s): %s", e.Kind, e.Table, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Face is the read-only, high-level view over a parsed font: table
// access, capability predicates, and the glyph/metrics/segmentation
// operations clients actually need, layered over the lower-level ot.Font.
//
// A Face is safe for single-mutator use (one goroutine at a time); its
// tables are parsed eagerly at Load time, so there is no lazy-cache slot
// requiring further synchronization for concurrent readers.
type Face struct {
	otf       *ot.Font
	numGlyphs int
}

// GlyphInfo pairs a glyph with the source-character cluster it belongs
// to, the unit AAT metamorphosis and OpenType shaping operate over.
type GlyphInfo struct {
	Glyph   ot.GlyphIndex
	Cluster int
}

// GlyphBounds is a glyph's bounding box in font design units.
type GlyphBounds struct {
	XMin, YMin, XMax, YMax int16
}

// Load parses an SFNT byte buffer (TrueType, CFF/OTTO, or legacy "true")
// into a Face. WOFF2 input is rejected with ErrUnsupportedContainer; use
// LoadAsync for that.
func Load(data []byte) (*Face, error) {
	if woff2.IsWOFF2(data) {
		return nil, &FaceError{Kind: ErrUnsupportedContainer, Reason: "WOFF2 input requires LoadAsync"}
	}
	return loadSFNT(data)
}

// LoadAsync parses any supported container, transparently decompressing
// WOFF2 first. The name mirrors the design-level "any supported
// container" load operation; decompression is CPU-bound and runs
// synchronously like every other operation in this package, so the name
// is a label, not a concurrency guarantee. Callers wanting true asynchrony
// should dispatch this call onto their own goroutine.
func LoadAsync(data []byte) (*Face, error) {
	if woff2.IsWOFF2(data) {
		sfnt, err := woff2.Decode(data)
		if err != nil {
			return nil, &FaceError{Kind: ErrMalformedDirectory, Table: "WOFF2", Reason: err.Error()}
		}
		return loadSFNT(sfnt)
	}
	return loadSFNT(data)
}

func loadSFNT(data []byte) (*Face, error) {
	otf, err := ot.Parse(data)
	if err != nil {
		return nil, classifyParseError(err)
	}
	f := &Face{otf: otf}
	if maxp := otf.Table(ot.T("maxp")); maxp != nil {
		f.numGlyphs = maxp.Self().AsMaxP().NumGlyphs
	}
	return f, nil
}

// classifyParseError maps ot.Parse's error messages onto the Face error
// taxonomy. The parser does not yet carry typed errors internally, so
// this is a best-effort classification of its message text.
func classifyParseError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "font type not supported"):
		return &FaceError{Kind: ErrUnsupportedContainer, Reason: msg}
	case strings.Contains(msg, "missing required") || strings.Contains(msg, "missing advanced layout"):
		return &FaceError{Kind: ErrMissingRequiredTable, Reason: msg}
	case strings.Contains(msg, "table order") || strings.Contains(msg, "table record") ||
		strings.Contains(msg, "bounds") || strings.Contains(msg, "table count too large"):
		return &FaceError{Kind: ErrMalformedDirectory, Reason: msg}
	default:
		return &FaceError{Kind: ErrMalformedTable, Reason: msg}
	}
}

// HasTable reports whether the face's underlying font carries a table
// with the given tag (e.g. "GSUB", "vmtx", "CFF2").
func (f *Face) HasTable(tag string) bool {
	return f.otf.Table(ot.T(tag)) != nil
}

// NumGlyphs returns the font's glyph count, from 'maxp'.
func (f *Face) NumGlyphs() int {
	return f.numGlyphs
}

// UnitsPerEm returns the font's design-unit scale, from 'head'.
func (f *Face) UnitsPerEm() uint16 {
	if head := f.otf.Table(ot.T("head")); head != nil {
		return head.Self().AsHead().UnitsPerEm
	}
	return 0
}

// GlyphIdFor maps a Unicode codepoint to a glyph ID via the font's
// default cmap subtable. Returns 0 (".notdef") if unmapped.
func (f *Face) GlyphIdFor(codepoint rune) ot.GlyphIndex {
	if codepoint < 0 || codepoint > 0x10FFFF {
		return 0
	}
	if f.otf.CMap == nil || f.otf.CMap.GlyphIndexMap == nil {
		return 0
	}
	return f.otf.CMap.GlyphIndexMap.Lookup(codepoint)
}

// GlyphIdForVariation resolves a (base, variation-selector) pair via the
// cmap format-14 Unicode Variation Sequences subtable, falling back to
// the default mapping when no variation sequence matches.
func (f *Face) GlyphIdForVariation(codepoint, selector rune) ot.GlyphIndex {
	if f.otf.CMap != nil {
		if gid, ok := f.otf.CMap.GlyphIndexForVariation(codepoint, selector); ok {
			return gid
		}
	}
	return f.GlyphIdFor(codepoint)
}

func toF2Dot14(coords []float64) []ot.F2Dot14 {
	if len(coords) == 0 {
		return nil
	}
	out := make([]ot.F2Dot14, len(coords))
	for i, c := range coords {
		out[i] = ot.F2Dot14FromFloat(c)
	}
	return out
}

// AdvanceWidth returns gid's horizontal advance in design units, applying
// the font's HVAR delta for coords when present. coords is a normalized
// coordinate vector (each axis in [-1, 1]); nil or empty means the font's
// default instance.
func (f *Face) AdvanceWidth(gid ot.GlyphIndex, coords []float64) (int, error) {
	if int(gid) >= f.numGlyphs {
		return 0, &FaceError{Kind: ErrOutOfBounds, Reason: fmt.Sprintf("glyph %d >= numGlyphs %d", gid, f.numGlyphs)}
	}
	hmtx := f.otf.HorizontalMetrics()
	if hmtx == nil {
		return 0, &FaceError{Kind: ErrMissingRequiredTable, Table: "hmtx", Reason: "no horizontal metrics"}
	}
	aw, _, _ := hmtx.HMetrics(gid)
	advance := float64(aw)
	if hvarTable := f.otf.Table(ot.T("HVAR")); hvarTable != nil && len(coords) > 0 {
		hvar := hvarTable.Self().AsHVar()
		advance += hvar.AdvanceWidthDelta(gid, toF2Dot14(coords))
	}
	if advance < 0 {
		advance = 0
	}
	return int(math.Round(advance)), nil
}

// AdvanceHeight returns gid's vertical advance in design units from
// 'vmtx', applying the font's VVAR delta for coords when present. A font
// without 'vmtx' yields an ErrMissingRequiredTable error; no advance is
// derived from other tables such as 'OS/2'.
func (f *Face) AdvanceHeight(gid ot.GlyphIndex, coords []float64) (int, error) {
	if int(gid) >= f.numGlyphs {
		return 0, &FaceError{Kind: ErrOutOfBounds, Reason: fmt.Sprintf("glyph %d >= numGlyphs %d", gid, f.numGlyphs)}
	}
	vmtxTable := f.otf.Table(ot.T("vmtx"))
	if vmtxTable == nil {
		return 0, &FaceError{Kind: ErrMissingRequiredTable, Table: "vmtx", Reason: "no vertical metrics"}
	}
	vmtx := vmtxTable.Self().AsVMtx()
	ah, _, _ := vmtx.VMetrics(gid)
	advance := float64(ah)
	if vvarTable := f.otf.Table(ot.T("VVAR")); vvarTable != nil && len(coords) > 0 {
		vvar := vvarTable.Self().AsVVar()
		advance += vvar.AdvanceHeightDelta(gid, toF2Dot14(coords))
	}
	if advance < 0 {
		advance = 0
	}
	return int(math.Round(advance)), nil
}

// GetGlyphContours decodes gid's outline (TrueType 'glyf' composite
// resolution, or CFF/CFF2 charstring interpretation, whichever the font
// carries), applying 'gvar' deltas for coords on TrueType outlines. A
// glyph with no outline (e.g. space) or one that fails to decode yields
// an empty, non-nil outline rather than failing the whole face.
func (f *Face) GetGlyphContours(gid ot.GlyphIndex, coords []float64) (*ot.GlyphOutline, error) {
	if int(gid) >= f.numGlyphs {
		return nil, &FaceError{Kind: ErrOutOfBounds, Reason: fmt.Sprintf("glyph %d >= numGlyphs %d", gid, f.numGlyphs)}
	}
	normCoords := toF2Dot14(coords)
	if cff2Table := f.otf.Table(ot.T("CFF2")); cff2Table != nil {
		outline, err := cff2Table.Self().AsCFF2().Outline(gid, normCoords)
		if err != nil {
			return &ot.GlyphOutline{}, nil
		}
		return outline, nil
	}
	if cffTable := f.otf.Table(ot.T("CFF")); cffTable != nil {
		outline, err := cffTable.Self().AsCFF().Outline(gid)
		if err != nil {
			return &ot.GlyphOutline{}, nil
		}
		return outline, nil
	}
	glyfTable := f.otf.Table(ot.T("glyf"))
	locaTable := f.otf.Table(ot.T("loca"))
	if glyfTable == nil || locaTable == nil {
		return &ot.GlyphOutline{}, nil
	}
	outline, err := glyfTable.Self().AsGlyf().Outline(locaTable.Self().AsLoca(), gid)
	if err != nil {
		return &ot.GlyphOutline{}, nil
	}
	if gvarTable := f.otf.Table(ot.T("gvar")); gvarTable != nil && len(coords) > 0 {
		applyGvarDeltas(outline, gvarTable.Self().AsGvar(), gid, normCoords)
	}
	return outline, nil
}

func applyGvarDeltas(outline *ot.GlyphOutline, gvar *ot.GvarTable, gid ot.GlyphIndex, coords []ot.F2Dot14) {
	numPoints := 0
	for _, c := range outline.Contours {
		numPoints += len(c)
	}
	if numPoints == 0 {
		return
	}
	dx, dy := gvar.ApplyDeltas(gid, coords, numPoints)
	i := 0
	for ci := range outline.Contours {
		for pi := range outline.Contours[ci] {
			if i < len(dx) {
				outline.Contours[ci][pi].X += int16(math.Round(dx[i]))
				outline.Contours[ci][pi].Y += int16(math.Round(dy[i]))
			}
			i++
		}
	}
}

// GetGlyphBounds returns gid's bounding rectangle, recomputed by scanning
// its (possibly gvar-adjusted) contours rather than trusting a cached
// 'glyf' header box, so it stays consistent under variation. Returns nil
// for a glyph with no contours (e.g. space).
func (f *Face) GetGlyphBounds(gid ot.GlyphIndex, coords []float64) (*GlyphBounds, error) {
	outline, err := f.GetGlyphContours(gid, coords)
	if err != nil {
		return nil, err
	}
	if outline == nil || len(outline.Contours) == 0 {
		return nil, nil
	}
	b := &GlyphBounds{XMin: math.MaxInt16, YMin: math.MaxInt16, XMax: math.MinInt16, YMax: math.MinInt16}
	empty := true
	for _, contour := range outline.Contours {
		for _, p := range contour {
			empty = false
			if p.X < b.XMin {
				b.XMin = p.X
			}
			if p.X > b.XMax {
				b.XMax = p.X
			}
			if p.Y < b.YMin {
				b.YMin = p.Y
			}
			if p.Y > b.YMax {
				b.YMax = p.Y
			}
		}
	}
	if empty {
		return nil, nil
	}
	return b, nil
}

// ApplyMorxChain runs the font's 'morx' chains over infos, returning the
// resulting glyph-info sequence. When the glyph count is unchanged,
// clusters map through positionally. When the chain changes the count,
// clusters are assigned proportionally: if the output is shorter, output
// glyph i takes the minimum cluster of the input window
// [i*ratio, (i+1)*ratio) with ratio = len(infos)/len(out); if it is longer,
// output glyph i takes the cluster of input glyph int(i*ratio). Which input
// glyphs a ligature consumed or where an insertion happened is not tracked.
func (f *Face) ApplyMorxChain(infos []GlyphInfo, enabledFeatures map[[2]uint16]bool) []GlyphInfo {
	morxTable := f.otf.Table(ot.T("morx"))
	if morxTable == nil || len(infos) == 0 {
		return infos
	}
	morx := morxTable.Self().AsMorx()
	glyphs := make([]ot.GlyphIndex, len(infos))
	for i, gi := range infos {
		glyphs[i] = gi.Glyph
	}
	out := ot.ApplyMorxChain(morx, glyphs, enabledFeatures)
	result := make([]GlyphInfo, len(out))
	switch {
	case len(out) == len(infos):
		for i, g := range out {
			result[i] = GlyphInfo{Glyph: g, Cluster: infos[i].Cluster}
		}
	case len(out) < len(infos):
		ratio := float64(len(infos)) / float64(len(out))
		for i, g := range out {
			lo := int(float64(i) * ratio)
			hi := int(float64(i+1) * ratio)
			if hi > len(infos) {
				hi = len(infos)
			}
			if hi <= lo {
				hi = lo + 1
			}
			cluster := infos[lo].Cluster
			for j := lo; j < hi && j < len(infos); j++ {
				if infos[j].Cluster < cluster {
					cluster = infos[j].Cluster
				}
			}
			result[i] = GlyphInfo{Glyph: g, Cluster: cluster}
		}
	default:
		ratio := float64(len(infos)) / float64(len(out))
		for i, g := range out {
			src := int(float64(i) * ratio)
			if src >= len(infos) {
				src = len(infos) - 1
			}
			result[i] = GlyphInfo{Glyph: g, Cluster: infos[src].Cluster}
		}
	}
	return result
}

// SegmentGraphemes splits codepoints into extended grapheme clusters per
// UAX #29 and returns the rune-index boundary at which each cluster
// starts (boundaries[0] is 0 for non-empty input; empty input yields nil).
func (f *Face) SegmentGraphemes(codepoints []rune) []int {
	return segmentGraphemeBoundaries(codepoints)
}

func segmentGraphemeBoundaries(codepoints []rune) []int {
	if len(codepoints) == 0 {
		return nil
	}
	clusters := segment.SplitGraphemes(string(codepoints))
	boundaries := make([]int, 0, len(clusters))
	pos := 0
	for _, c := range clusters {
		boundaries = append(boundaries, pos)
		pos += len([]rune(c))
	}
	return boundaries
}
