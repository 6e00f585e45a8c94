package ot

import "golang.org/x/text/encoding/unicode"

// NameTable gives access to the localized strings stored in the 'name'
// table: family/subfamily names, copyright notices, version strings, etc.
type NameTable struct {
	tableBase
	names nameNames
}

// nameNames is the decoded, but not yet string-extracted, representation
// of a 'name' table: a view onto the string storage region plus an array
// of fixed-size name records pointing into it.
type nameNames struct {
	strbuf   binarySegm
	nameRecs array
}

// NameRecord identifies and locates one entry of table 'name'.
type NameRecord struct {
	PlatformID     uint16
	EncodingID     uint16
	LanguageID     uint16
	NameID         uint16
	offset, length uint16
}

func newNameTable(tag Tag, b binarySegm, offset, size uint32) *NameTable {
	t := &NameTable{}
	t.tableBase = tableBase{data: b, name: tag, offset: offset, length: size}
	t.self = t
	return t
}

// Records returns all name records found in the table, without decoding
// their string values.
func (t *NameTable) Records() []NameRecord {
	if t == nil {
		return nil
	}
	n := t.names.nameRecs.Len()
	recs := make([]NameRecord, 0, n)
	for i := 0; i < n; i++ {
		loc := t.names.nameRecs.Get(i)
		b, ok := loc.(binarySegm)
		if !ok || len(b) < 12 {
			continue
		}
		recs = append(recs, NameRecord{
			PlatformID: u16(b[0:2]),
			EncodingID: u16(b[2:4]),
			LanguageID: u16(b[4:6]),
			NameID:     u16(b[6:8]),
			length:     u16(b[8:10]),
			offset:     u16(b[10:12]),
		})
	}
	return recs
}

// String decodes the string value for a name record, recognizing the
// Unicode and Windows-Unicode (UTF-16BE) platform encodings. Macintosh
// platform records (Mac Roman and friends) are not decoded.
func (t *NameTable) String(rec NameRecord) (string, bool) {
	if t == nil {
		return "", false
	}
	if !(rec.PlatformID == 0 || (rec.PlatformID == 3 && rec.EncodingID == 1) || (rec.PlatformID == 3 && rec.EncodingID == 10)) {
		return "", false
	}
	start := int(rec.offset)
	end := start + int(rec.length)
	if start < 0 || end > len(t.names.strbuf) || start > end {
		return "", false
	}
	raw := t.names.strbuf[start:end]
	dec := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	s, err := dec.Bytes(raw)
	if err != nil {
		return "", false
	}
	return string(s), true
}

// Lookup returns the decoded string for a given nameID, preferring Windows
// Unicode BMP records, falling back to the first decodable record found.
func (t *NameTable) Lookup(nameID uint16) (string, bool) {
	if t == nil {
		return "", false
	}
	var fallback string
	var hasFallback bool
	for _, rec := range t.Records() {
		if rec.NameID != nameID {
			continue
		}
		s, ok := t.String(rec)
		if !ok {
			continue
		}
		if rec.PlatformID == 3 && rec.EncodingID == 1 {
			return s, true
		}
		if !hasFallback {
			fallback, hasFallback = s, true
		}
	}
	return fallback, hasFallback
}

func parseNameTable(tag Tag, b binarySegm, offset, size uint32, ec *errorCollector) (Table, error) {
	names, err := parseNames(b)
	if err != nil {
		ec.addError(tag, "Header", err.Error(), SeverityCritical, offset)
		return nil, err
	}
	t := newNameTable(tag, b, offset, size)
	t.names = names
	return t, nil
}
