package ot

// This file implements 'feat', the AAT feature-name table: a directory of
// feature types, each with a list of mutually exclusive (or independent)
// settings, used by AAT-aware shapers to present/validate feature
// selections passed to 'morx'/'kerx'.

type FeatSetting struct {
	Setting uint16
	NameID  uint16
}

type FeatEntry struct {
	Feature   uint16
	Exclusive bool
	Default   uint16
	Settings  []FeatSetting
}

// FeatTable exposes the AAT feature/setting directory.
type FeatTable struct {
	tableBase
	Features []FeatEntry
}

func newFeatTable(tag Tag, b binarySegm, offset, size uint32) *FeatTable {
	t := &FeatTable{}
	t.tableBase = tableBase{data: b, name: tag, offset: offset, length: size}
	t.self = t
	return t
}

func parseFeat(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	if size < 12 {
		ec.addError(tag, "Header", "feat table too small", SeverityCritical, offset)
		return nil, errFontFormat("feat table too small")
	}
	featureNameCount, _ := b.u16(4)
	t := newFeatTable(tag, b, offset, size)
	pos := 12
	for i := 0; i < int(featureNameCount); i++ {
		if pos+12 > len(b) {
			ec.addWarning(tag, "feature name entry truncated", offset+uint32(pos))
			break
		}
		feature, _ := b.u16(pos)
		nSettings, _ := b.u16(pos + 2)
		settingTableOff, _ := b.u32(pos + 4)
		flags, _ := b.u16(pos + 8)
		defaultSetting, _ := b.u16(pos + 10)
		entry := FeatEntry{Feature: feature, Exclusive: flags&0x8000 != 0, Default: defaultSetting}
		sp := int(settingTableOff)
		for s := 0; s < int(nSettings); s++ {
			if sp+4 > len(b) {
				break
			}
			setting, _ := b.u16(sp)
			nameID, _ := b.u16(sp + 2)
			entry.Settings = append(entry.Settings, FeatSetting{Setting: setting, NameID: nameID})
			sp += 4
		}
		t.Features = append(t.Features, entry)
		pos += 12
	}
	return t, nil
}

// Feature looks up a feature-type entry by its numeric type.
func (t *FeatTable) Feature(featureType uint16) (FeatEntry, bool) {
	if t == nil {
		return FeatEntry{}, false
	}
	for _, f := range t.Features {
		if f.Feature == featureType {
			return f, true
		}
	}
	return FeatEntry{}, false
}
