package ot

// parseConcreteFeatureList builds a semantic FeatureList graph from the raw
// FeatureList table (the bytes starting at the FeatureList offset within
// GSUB/GPOS).
func parseConcreteFeatureList(b binarySegm) *FeatureList {
	fl := &FeatureList{raw: b}
	m := parseTagRecordMap16(b, 0, b, "FeatureList", "Feature")
	if m.Len() == 0 && len(b) < 2 {
		fl.err = errBufferBounds
		return fl
	}
	n := m.Len()
	fl.featureOrder = make([]Tag, 0, n)
	fl.featuresByIndex = make([]*Feature, 0, n)
	fl.indicesByTag = make(map[Tag][]int)
	for i := 0; i < n; i++ {
		tag, link := m.Get(i)
		var feature *Feature
		if link.IsNull() {
			feature = &Feature{err: errFontFormat("null feature link")}
		} else {
			feature = parseConcreteFeature(link.Jump().Bytes())
		}
		fl.featureOrder = append(fl.featureOrder, tag)
		fl.featuresByIndex = append(fl.featuresByIndex, feature)
		fl.indicesByTag[tag] = append(fl.indicesByTag[tag], i)
	}
	return fl
}

// parseConcreteFeature builds a semantic Feature view from a single Feature
// table's bytes.
func parseConcreteFeature(b binarySegm) *Feature {
	f := &Feature{raw: b}
	if len(b) < 4 {
		f.err = errBufferBounds
		return f
	}
	f.featureParamsOffset = b.U16(0)
	arr, err := parseArray16(b, 2, "Feature", "LookupListIndex")
	if err != nil {
		f.err = err
		return f
	}
	f.lookupListIndices = make([]uint16, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		f.lookupListIndices[i] = arr.Get(i).U16(0)
	}
	return f
}

// parseConcreteScriptList builds a semantic ScriptList graph from the raw
// ScriptList table, resolving LangSys feature links against fl.
func parseConcreteScriptList(b binarySegm, fl *FeatureList) *ScriptList {
	sl := &ScriptList{raw: b}
	m := parseTagRecordMap16(b, 0, b, "ScriptList", "Script")
	n := m.Len()
	if n == 0 && len(b) < 2 {
		sl.err = errBufferBounds
		return sl
	}
	sl.scriptOrder = make([]Tag, 0, n)
	sl.offsetByTag = make(map[Tag]uint16, n)
	sl.scriptByTag = make(map[Tag]*Script, n)
	for i := 0; i < n; i++ {
		tag, link := m.Get(i)
		sl.scriptOrder = append(sl.scriptOrder, tag)
		if link.IsNull() {
			sl.scriptByTag[tag] = &Script{err: errFontFormat("null script link")}
			continue
		}
		sl.scriptByTag[tag] = parseConcreteScript(link.Jump().Bytes(), fl)
	}
	return sl
}

// parseConcreteScript builds a semantic Script view, including its
// default and tagged LangSys entries, resolving feature links against fl.
func parseConcreteScript(b binarySegm, fl *FeatureList) *Script {
	s := &Script{raw: b}
	if len(b) < 4 {
		s.err = errBufferBounds
		return s
	}
	s.defaultLangSysOffset = b.U16(0)
	if s.defaultLangSysOffset != 0 && int(s.defaultLangSysOffset) < len(b) {
		s.defaultLangSys = parseConcreteLangSys(b[s.defaultLangSysOffset:], fl)
	}
	m := parseTagRecordMap16(b, 2, b, "Script", "LangSys")
	n := m.Len()
	s.langOrder = make([]Tag, 0, n)
	s.langOffsetsByTag = make(map[Tag]uint16, n)
	s.langByTag = make(map[Tag]*LangSys, n)
	for i := 0; i < n; i++ {
		tag, link := m.Get(i)
		s.langOrder = append(s.langOrder, tag)
		if link.IsNull() {
			s.langByTag[tag] = &LangSys{err: errFontFormat("null langsys link")}
			continue
		}
		s.langByTag[tag] = parseConcreteLangSys(link.Jump().Bytes(), fl)
	}
	return s
}

// parseConcreteLangSys builds a semantic LangSys view, eagerly resolving its
// feature-index links against fl so that Features()/FeatureAt() need no
// further lookups.
func parseConcreteLangSys(b binarySegm, fl *FeatureList) *LangSys {
	ls := &LangSys{}
	if len(b) < 6 {
		ls.err = errBufferBounds
		return ls
	}
	ls.lookupOrderOffset = b.U16(0)
	ls.requiredFeatureIndex = b.U16(2)
	arr, err := parseArray16(b, 4, "LangSys", "FeatureIndex")
	if err != nil {
		ls.err = err
		return ls
	}
	ls.featureIndices = make([]uint16, arr.Len())
	ls.features = make([]*Feature, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		idx := arr.Get(i).U16(0)
		ls.featureIndices[i] = idx
		if fl != nil && int(idx) < len(fl.featuresByIndex) {
			ls.features[i] = fl.featuresByIndex[idx]
		}
	}
	return ls
}
