/*
Package segment implements Unicode text segmentation (UAX #29): splitting
a stream of codepoints into extended grapheme clusters and into words,
sufficient to hand a shaper well-formed clusters instead of raw runes.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package segment

import "unicode"

// graphemeClass classifies a rune for the Grapheme_Cluster_Break rules
// (UAX #29, table 1). Values are distinct bits so Extend/ZWJ/SpacingMark
// membership can be tested cheaply in the boundary rules.
type graphemeClass int

const (
	gcOther graphemeClass = iota
	gcCR
	gcLF
	gcControl
	gcExtend
	gcZWJ
	gcRegionalIndicator
	gcPrepend
	gcSpacingMark
	gcL
	gcV
	gcT
	gcLV
	gcLVT
	gcExtendedPictographic
)

// Hangul syllable type boundaries, used to classify L/V/T/LV/LVT without a
// full Hangul_Syllable_Type table: the three Jamo blocks plus the
// precomposed syllable block's regular structure (see Unicode §3.12).
const (
	hangulLBase  = 0x1100
	hangulLCount = 19
	hangulVBase  = 0x1161
	hangulVCount = 21
	hangulTBase  = 0x11A7 // T index 0 means "no trailing consonant"
	hangulTCount = 28
	hangulSBase  = 0xAC00
	hangulSCount = hangulLCount * hangulVCount * hangulTCount
)

func classifyGrapheme(r rune) graphemeClass {
	switch {
	case r == '\r':
		return gcCR
	case r == '\n':
		return gcLF
	case r == 0x200D:
		return gcZWJ
	case r >= 0x1F1E6 && r <= 0x1F1FF:
		return gcRegionalIndicator
	case isExtendedPictographic(r):
		return gcExtendedPictographic
	case isHangulL(r):
		return gcL
	case isHangulV(r):
		return gcV
	case isHangulT(r):
		return gcT
	case isHangulSyllable(r):
		if isHangulLVT(r) {
			return gcLVT
		}
		return gcLV
	case isGraphemePrepend(r):
		return gcPrepend
	case isGraphemeSpacingMark(r):
		return gcSpacingMark
	case isGraphemeExtend(r):
		return gcExtend
	case unicode.Is(unicode.Cc, r) || unicode.Is(unicode.Cf, r) || unicode.Is(unicode.Zl, r) || unicode.Is(unicode.Zp, r):
		return gcControl
	}
	return gcOther
}

func isHangulL(r rune) bool { return r >= hangulLBase && r < hangulLBase+hangulLCount }
func isHangulV(r rune) bool { return r >= hangulVBase && r < hangulVBase+hangulVCount }
func isHangulT(r rune) bool { return r > hangulTBase && r < hangulTBase+hangulTCount }
func isHangulSyllable(r rune) bool {
	return r >= hangulSBase && r < hangulSBase+hangulSCount
}
func isHangulLVT(r rune) bool {
	return isHangulSyllable(r) && (r-hangulSBase)%hangulTCount != 0
}

// isGraphemeExtend approximates the Grapheme_Extend property: all
// combining marks, plus the handful of modifier-like ranges UAX #29
// explicitly folds into Extend (variation selectors, emoji skin-tone
// modifiers, the tag sequence used in some flag emoji).
func isGraphemeExtend(r rune) bool {
	if unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Me, r) {
		return true
	}
	switch {
	case r >= 0xFE00 && r <= 0xFE0F: // variation selectors VS1-16
		return true
	case r >= 0x1F3FB && r <= 0x1F3FF: // emoji modifiers (skin tones)
		return true
	case r >= 0xE0020 && r <= 0xE007F: // emoji tag sequence components
		return true
	case r == 0x1F9B0 || r == 0x1F9B1 || r == 0x1F9B2 || r == 0x1F9B3: // hair-style emoji modifiers
		return true
	}
	return false
}

// isGraphemeSpacingMark approximates Grapheme_Cluster_Break=SpacingMark:
// spacing combining marks (Mc) that are not already excluded by more
// specific rules (Prepend dominates a handful of these in real data; the
// common case this package targets does not need that refinement).
func isGraphemeSpacingMark(r rune) bool {
	return unicode.Is(unicode.Mc, r)
}

// isGraphemePrepend covers the small Prepend set: Syriac abbreviation
// mark and the Kharoshthi/Indic prefix-consonant signs most commonly
// seen in the wild.
func isGraphemePrepend(r rune) bool {
	switch r {
	case 0x0600, 0x0601, 0x0602, 0x0603, 0x0604, 0x0605, 0x06DD, 0x070F, 0x0890, 0x0891, 0x08E2, 0x110BD, 0x110CD:
		return true
	}
	return false
}

// isExtendedPictographic approximates the Extended_Pictographic property
// with the emoji blocks that cover the overwhelming majority of emoji in
// current use. It is not a byte-exact reproduction of the Unicode
// property file, which is generated from emoji-data.txt and revised
// every Unicode version.
func isExtendedPictographic(r rune) bool {
	ranges := []struct{ lo, hi rune }{
		{0x00A9, 0x00A9}, {0x00AE, 0x00AE}, {0x203C, 0x203C}, {0x2049, 0x2049},
		{0x2122, 0x2122}, {0x2139, 0x2139}, {0x2194, 0x21AA}, {0x231A, 0x231B},
		{0x2328, 0x2328}, {0x23CF, 0x23CF}, {0x23E9, 0x23FA}, {0x24C2, 0x24C2},
		{0x25AA, 0x25FE}, {0x2600, 0x27BF}, {0x2934, 0x2935}, {0x2B00, 0x2BFF},
		{0x3030, 0x3030}, {0x303D, 0x303D}, {0x3297, 0x3297}, {0x3299, 0x3299},
		{0x1F000, 0x1FAFF}, // emoji supplement, symbols & pictographs, transport, etc.
	}
	for _, rg := range ranges {
		if r >= rg.lo && r <= rg.hi {
			return true
		}
	}
	return false
}
