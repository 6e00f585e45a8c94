package segment

// GraphemeIterator walks a string's extended grapheme clusters per UAX #29
// rules GB1-GB999. Beyond the previous character's class, the rules need
// exactly two pieces of running state: a regional-indicator parity counter
// (GB12/GB13, keeping flag emoji paired) and a flag marking "we are inside
// an Extended_Pictographic Extend* sequence" (GB11, keeping emoji-ZWJ
// sequences joined).
type GraphemeIterator struct {
	text []rune
	pos  int

	riCount       int  // consecutive Regional_Indicator run length ending just before pos
	inPictogSeq   bool // true while scanning ExtPict Extend* awaiting a joining ZWJ
	sawPictogBase bool // the run starting at the last ExtPict actually began with one (vs. just Extend carrying the flag forward)
}

// NewGraphemeIterator returns an iterator over text's extended grapheme clusters.
func NewGraphemeIterator(text string) *GraphemeIterator {
	return &GraphemeIterator{text: []rune(text)}
}

// Next returns the next grapheme cluster and true, or ("", false) once the
// input is exhausted.
func (g *GraphemeIterator) Next() (string, bool) {
	if g.pos >= len(g.text) {
		return "", false
	}
	start := g.pos
	prev := g.text[g.pos]
	prevClass := classifyGrapheme(prev)
	g.advanceState(prevClass)
	g.pos++

	for g.pos < len(g.text) {
		cur := g.text[g.pos]
		curClass := classifyGrapheme(cur)
		if g.breakBefore(prevClass, curClass) {
			break
		}
		g.advanceState(curClass)
		prevClass = curClass
		g.pos++
	}
	return string(g.text[start:g.pos]), true
}

// advanceState updates the regional-indicator and pictographic-sequence
// state machines for a class that has just been consumed into the current
// cluster (i.e. no break was found before it).
func (g *GraphemeIterator) advanceState(c graphemeClass) {
	if c == gcRegionalIndicator {
		g.riCount++
	} else {
		g.riCount = 0
	}

	switch c {
	case gcExtendedPictographic:
		g.inPictogSeq = true
		g.sawPictogBase = true
	case gcExtend:
		// Extend does not break the pending ExtPict Extend* run.
	case gcZWJ:
		// ZWJ itself does not clear the flag; GB11 consumes it then checks
		// whether the *next* class is ExtPict via breakBefore.
	default:
		g.inPictogSeq = false
		g.sawPictogBase = false
	}
}

// breakBefore reports whether UAX #29's grapheme-cluster rules place a
// boundary between prev and cur, given the running RI/pictographic state.
func (g *GraphemeIterator) breakBefore(prev, cur graphemeClass) bool {
	switch {
	case prev == gcCR && cur == gcLF: // GB3
		return false
	case prev == gcControl || prev == gcCR || prev == gcLF: // GB4
		return true
	case cur == gcControl || cur == gcCR || cur == gcLF: // GB5
		return true
	case prev == gcL && (cur == gcL || cur == gcV || cur == gcLV || cur == gcLVT): // GB6
		return false
	case (prev == gcLV || prev == gcV) && (cur == gcV || cur == gcT): // GB7
		return false
	case (prev == gcLVT || prev == gcT) && cur == gcT: // GB8
		return false
	case cur == gcExtend || cur == gcZWJ: // GB9
		return false
	case cur == gcSpacingMark: // GB9a
		return false
	case prev == gcPrepend: // GB9b
		return false
	case prev == gcZWJ && cur == gcExtendedPictographic && g.inPictogSeq && g.sawPictogBase: // GB11
		return false
	case prev == gcRegionalIndicator && cur == gcRegionalIndicator && g.riCount%2 == 1: // GB12/GB13
		return false
	default: // GB999
		return true
	}
}

// SplitGraphemes splits text into its extended grapheme clusters, in order.
func SplitGraphemes(text string) []string {
	it := NewGraphemeIterator(text)
	var out []string
	for {
		cluster, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, cluster)
	}
	return out
}

// CountGraphemes returns the number of extended grapheme clusters in text,
// without allocating the intermediate slice SplitGraphemes would.
func CountGraphemes(text string) int {
	it := NewGraphemeIterator(text)
	n := 0
	for {
		if _, ok := it.Next(); !ok {
			break
		}
		n++
	}
	return n
}
