package otquery

import (
	"github.com/wiedymi/text-shaper-sub005/ot"
)

// HeadTableInfo is a typed query view over OpenType table 'head'.
// Values are decoded directly from the raw table bytes.
type HeadTableInfo struct {
	MajorVersion       uint16
	MinorVersion       uint16
	FontRevision       uint32
	CheckSumAdjustment uint32
	MagicNumber        uint32
	Flags              uint16
	UnitsPerEm         uint16
	Created            int64
	Modified           int64
	XMin               int16
	YMin               int16
	XMax               int16
	YMax               int16
	MacStyle           uint16
	LowestRecPPEM      uint16
	FontDirectionHint  int16
	IndexToLocFormat   int16
	GlyphDataFormat    int16
}

// HeadInfo returns a query view over table 'head'.
// Returns (info, true) on success, or (zero, false) if the table is missing.
func HeadInfo(otf *ot.Font) (HeadTableInfo, bool) {
	var info HeadTableInfo
	if otf == nil {
		return info, false
	}
	table := otf.Table(ot.T("head"))
	if table == nil {
		return info, false
	}
	head := table.Self().AsHead()
	if head == nil {
		return info, false
	}
	info.MajorVersion = head.MajorVersion
	info.MinorVersion = head.MinorVersion
	info.FontRevision = uint32(head.FontRevision)
	info.CheckSumAdjustment = head.CheckSumAdjustment
	info.MagicNumber = head.MagicNumber
	info.Flags = head.Flags
	info.UnitsPerEm = head.UnitsPerEm
	info.Created = head.Created
	info.Modified = head.Modified
	info.XMin = head.XMin
	info.YMin = head.YMin
	info.XMax = head.XMax
	info.YMax = head.YMax
	info.MacStyle = head.MacStyle
	info.LowestRecPPEM = head.LowestRecPPEM
	info.FontDirectionHint = head.FontDirectionHint
	info.IndexToLocFormat = int16(head.IndexToLocFormat)
	info.GlyphDataFormat = head.GlyphDataFormat
	return info, true
}
