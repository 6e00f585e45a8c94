/*
Package woff2 decodes the WOFF2 compressed font container, reconstructing
the SFNT byte stream so it can be handed to ot.Parse.

See https://www.w3.org/TR/WOFF2/ for the format this package implements.
Encoding (SFNT -> WOFF2) is out of scope: this package only ever needs to
turn a font file a client already has into bytes our sfnt parser understands.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package woff2

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/andybalholm/brotli"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("woff2")
}

// Signature is the 4-byte magic every WOFF2 stream starts with.
const Signature = "wOF2"

// knownTableTags is the fixed 63-entry dictionary used by the 1-byte table
// tag encoding in the table directory (§5 of the spec); index 63 signals
// an explicit 4-byte tag follows.
var knownTableTags = []string{
	"cmap", "head", "hhea", "hmtx",
	"maxp", "name", "OS/2", "post",
	"cvt ", "fpgm", "glyf", "loca",
	"prep", "CFF ", "VORG", "EBDT",
	"EBLC", "gasp", "hdmx", "kern",
	"LTSH", "PCLT", "VDMX", "vhea",
	"vmtx", "BASE", "GDEF", "GPOS",
	"GSUB", "EBSC", "JSTF", "MATH",
	"CBDT", "CBLC", "COLR", "CPAL",
	"SVG ", "sbix", "acnt", "avar",
	"bdat", "bloc", "bsln", "cvar",
	"fdsc", "feat", "fmtx", "fvar",
	"gvar", "hsty", "just", "lcar",
	"mort", "morx", "opbd", "prop",
	"trak", "Zapf", "Silf", "Glat",
	"Gloc", "Feat", "Sill",
}

// MaxMemory caps the uncompressed size we are willing to allocate while
// reconstructing a font, guarding against a compressed bomb.
const MaxMemory = 1 << 30 // 1 GiB

// ErrInvalidData is returned for structurally malformed WOFF2 input.
var ErrInvalidData = fmt.Errorf("invalid WOFF2 data")

// ErrExceedsMemory is returned when a font's declared sizes exceed MaxMemory.
var ErrExceedsMemory = fmt.Errorf("WOFF2 font exceeds memory limit")

// IsWOFF2 reports whether b starts with the WOFF2 magic signature.
func IsWOFF2(b []byte) bool {
	return len(b) >= 4 && string(b[:4]) == Signature
}

type tableEntry struct {
	tag              string
	origLength       uint32
	transformVersion int
	transformLength  uint32
	data             []byte
}

// Decode transforms a WOFF2 byte stream into an uncompressed SFNT byte
// stream, reversing the glyf/loca and hmtx transforms where present. Font
// collections (flavor "ttcf") are not supported.
func Decode(b []byte) ([]byte, error) {
	if len(b) < 48 {
		return nil, ErrInvalidData
	}
	r := newCursor(b)
	sig := r.readString(4)
	if sig != Signature {
		return nil, fmt.Errorf("woff2: bad signature %q", sig)
	}
	flavor := r.readUint32()
	if tagString(flavor) == "ttcf" {
		return nil, fmt.Errorf("woff2: font collections are unsupported")
	}
	length := r.readUint32()
	numTables := r.readUint16()
	reserved := r.readUint16()
	totalSfntSize := r.readUint32()
	totalCompressedSize := r.readUint32()
	_ = r.readUint16() // majorVersion
	_ = r.readUint16() // minorVersion
	_ = r.readUint32() // metaOffset
	_ = r.readUint32() // metaLength
	_ = r.readUint32() // metaOrigLength
	_ = r.readUint32() // privOffset
	_ = r.readUint32() // privLength
	if r.err != nil {
		return nil, ErrInvalidData
	}
	if length != uint32(len(b)) {
		return nil, fmt.Errorf("woff2: header length %d does not match file size %d", length, len(b))
	}
	if numTables == 0 {
		return nil, fmt.Errorf("woff2: numTables must not be zero")
	}
	if reserved != 0 {
		return nil, fmt.Errorf("woff2: reserved header field must be zero")
	}

	tags := make([]string, 0, numTables)
	tagIndex := map[string]int{}
	tables := make([]tableEntry, 0, numTables)
	var uncompressedSize uint32
	for i := 0; i < int(numTables); i++ {
		flags := r.readByte()
		tagSlot := int(flags & 0x3F)
		transformVersion := int((flags & 0xC0) >> 6)

		var tag string
		if tagSlot == 63 {
			tag = tagString(r.readUint32())
		} else if tagSlot < len(knownTableTags) {
			tag = knownTableTags[tagSlot]
		} else {
			return nil, fmt.Errorf("woff2: invalid table tag index %d", tagSlot)
		}

		origLength, err := r.readUintBase128()
		if err != nil {
			return nil, err
		}

		var transformLength uint32
		switch {
		case (tag == "glyf" || tag == "loca") && transformVersion == 0:
			transformLength, err = r.readUintBase128()
			if err != nil {
				return nil, err
			}
			if tag != "loca" && transformLength == 0 {
				return nil, fmt.Errorf("woff2: %s: transformLength must be set", tag)
			}
			if math.MaxUint32-uncompressedSize < transformLength {
				return nil, ErrInvalidData
			}
			uncompressedSize += transformLength
		case tag == "hmtx" && transformVersion == 1:
			transformLength, err = r.readUintBase128()
			if err != nil || transformLength == 0 {
				return nil, fmt.Errorf("woff2: hmtx: transformLength must be set")
			}
			if math.MaxUint32-uncompressedSize < transformLength {
				return nil, ErrInvalidData
			}
			uncompressedSize += transformLength
		case transformVersion == 0, transformVersion == 3 && (tag == "glyf" || tag == "loca"):
			if math.MaxUint32-uncompressedSize < origLength {
				return nil, ErrInvalidData
			}
			uncompressedSize += origLength
		default:
			return nil, fmt.Errorf("woff2: %s: unsupported transform version %d", tag, transformVersion)
		}

		if tag == "loca" {
			iGlyf, hasGlyf := tagIndex["glyf"]
			if !hasGlyf || i-1 != iGlyf {
				return nil, fmt.Errorf("woff2: loca must come directly after glyf")
			}
		}
		if _, dup := tagIndex[tag]; dup {
			return nil, fmt.Errorf("woff2: table %s defined more than once", tag)
		}
		tags = append(tags, tag)
		tagIndex[tag] = len(tables)
		tables = append(tables, tableEntry{
			tag:              tag,
			origLength:       origLength,
			transformVersion: transformVersion,
			transformLength:  transformLength,
		})
	}

	iGlyf, hasGlyf := tagIndex["glyf"]
	iLoca, hasLoca := tagIndex["loca"]
	if hasGlyf != hasLoca {
		return nil, fmt.Errorf("woff2: glyf and loca must both be present or both absent")
	}
	if hasGlyf && tables[iGlyf].transformVersion != tables[iLoca].transformVersion {
		return nil, fmt.Errorf("woff2: glyf/loca transform versions must match")
	}
	if hasLoca && tables[iLoca].transformLength != 0 {
		return nil, fmt.Errorf("woff2: loca transformLength must be zero")
	}

	compData := r.readBytes(totalCompressedSize)
	if r.err != nil {
		return nil, ErrInvalidData
	}
	if uncompressedSize > MaxMemory {
		return nil, ErrExceedsMemory
	}
	br := brotli.NewReader(bytes.NewReader(compData))
	var buf bytes.Buffer
	buf.Grow(int(uncompressedSize))
	if _, err := io.Copy(&buf, br); err != nil {
		return nil, fmt.Errorf("woff2: brotli decompression failed: %w", err)
	}
	data := buf.Bytes()
	if uint32(len(data)) != uncompressedSize {
		return nil, fmt.Errorf("woff2: decompressed size %d does not match declared %d", len(data), uncompressedSize)
	}

	var offset uint32
	for i := range tables {
		if tables[i].tag == "loca" && tables[i].transformVersion == 0 {
			continue // reconstructed from glyf below
		}
		n := tables[i].origLength
		if tables[i].transformLength != 0 {
			n = tables[i].transformLength
		}
		if uint32(len(data))-offset < n {
			return nil, ErrInvalidData
		}
		tables[i].data = data[offset : offset+n : offset+n]
		offset += n
	}

	if hasGlyf && tables[iGlyf].transformVersion == 0 {
		glyfData, locaData, err := reconstructGlyfLoca(tables[iGlyf].data, tables[iLoca].origLength)
		if err != nil {
			return nil, err
		}
		if uint32(len(locaData)) != tables[iLoca].origLength {
			return nil, fmt.Errorf("woff2: loca: reconstructed length mismatch")
		}
		tables[iGlyf].data = glyfData
		tables[iLoca].data = locaData
	}

	if iHmtx, hasHmtx := tagIndex["hmtx"]; hasHmtx && tables[iHmtx].transformVersion == 1 {
		iHead, ok := tagIndex["head"]
		if !ok {
			return nil, fmt.Errorf("woff2: hmtx reconstruction requires head table")
		}
		if !hasGlyf || !hasLoca {
			return nil, fmt.Errorf("woff2: hmtx reconstruction requires glyf and loca")
		}
		iMaxp, ok := tagIndex["maxp"]
		if !ok {
			return nil, fmt.Errorf("woff2: hmtx reconstruction requires maxp table")
		}
		iHhea, ok := tagIndex["hhea"]
		if !ok {
			return nil, fmt.Errorf("woff2: hmtx reconstruction requires hhea table")
		}
		var err error
		tables[iHmtx].data, err = reconstructHmtx(tables[iHmtx].data, tables[iHead].data,
			tables[iGlyf].data, tables[iLoca].data, tables[iMaxp].data, tables[iHhea].data)
		if err != nil {
			return nil, err
		}
	}

	iHead, hasHead := tagIndex["head"]
	if !hasHead || len(tables[iHead].data) < 18 {
		return nil, fmt.Errorf("woff2: head table must be present")
	}
	headCopy := append([]byte(nil), tables[iHead].data...)
	binary.BigEndian.PutUint32(headCopy[8:], 0) // clear checkSumAdjustment, recomputed below
	tables[iHead].data = headCopy

	return assembleSFNT(flavor, tags, tagIndex, tables, totalSfntSize)
}

// assembleSFNT writes a valid SFNT byte stream from the decoded/reconstructed
// tables, sorted alphabetically by tag as the directory requires, and fixes
// up head.checkSumAdjustment to make the whole file self-consistent.
func assembleSFNT(flavor uint32, tags []string, tagIndex map[string]int, tables []tableEntry, hintSize uint32) ([]byte, error) {
	numTables := uint16(len(tags))
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)

	var searchRange uint16 = 1
	var entrySelector uint16
	for searchRange*2 <= numTables {
		searchRange *= 2
		entrySelector++
	}
	searchRange *= 16
	rangeShift := numTables*16 - searchRange

	var out bytes.Buffer
	out.Grow(int(hintSize))
	writeUint32(&out, flavor)
	writeUint16(&out, numTables)
	writeUint16(&out, searchRange)
	writeUint16(&out, entrySelector)
	writeUint16(&out, rangeShift)

	sfntOffset := uint32(12) + uint32(numTables)*16
	paddedData := make(map[string][]byte, len(sorted))
	for _, tag := range sorted {
		data := tables[tagIndex[tag]].data
		padding := (4 - len(data)&3) & 3
		if padding > 0 {
			padded := make([]byte, len(data)+padding)
			copy(padded, data)
			data = padded
		}
		paddedData[tag] = data

		var tagBytes [4]byte
		copy(tagBytes[:], tag)
		out.Write(tagBytes[:])
		writeUint32(&out, checksum(data))
		writeUint32(&out, sfntOffset)
		writeUint32(&out, uint32(len(tables[tagIndex[tag]].data)))
		sfntOffset += uint32(len(data))
	}

	var checksumAdjustmentAt int
	for _, tag := range sorted {
		if tag == "head" {
			checksumAdjustmentAt = out.Len() + 8
		}
		out.Write(paddedData[tag])
	}

	buf := out.Bytes()
	if checksumAdjustmentAt+4 > len(buf) {
		return nil, fmt.Errorf("woff2: head table position computation failed")
	}
	adjustment := uint32(0xB1B0AFBA) - checksum(buf)
	binary.BigEndian.PutUint32(buf[checksumAdjustmentAt:], adjustment)
	return buf, nil
}

func checksum(b []byte) uint32 {
	var sum uint32
	n := len(b) / 4 * 4
	for i := 0; i < n; i += 4 {
		sum += binary.BigEndian.Uint32(b[i:])
	}
	if rem := len(b) - n; rem > 0 {
		var tail [4]byte
		copy(tail[:], b[n:])
		sum += binary.BigEndian.Uint32(tail[:])
	}
	return sum
}

func tagString(v uint32) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return string(b[:])
}

func writeUint16(w *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.Write(b[:])
}

func writeUint32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.Write(b[:])
}
