// Package barcode decodes scanned product codes into their fixed-width fields.
//
// A product code such as "17832500300110126122316563" is laid out as:
//
//	[0:6)   PSU code      "178325"
//	[6:11)  weight        "00300"
//	[11:15) branch code   "1100"
//	[15:)   unique id     "126122316563"
package barcode

import "strings"

const (
	psuEnd    = 6
	weightEnd = 11
	branchEnd = 15

	// MinLength is the shortest code that fills every fixed field.
	MinLength = branchEnd
)

// Code is a parsed product code.
type Code struct {
	Raw        string
	PSUCode    string
	Weight     string
	BranchCode string
	UniqueID   string
}

// Parse splits raw into its positional fields. It never fails: codes shorter
// than MinLength yield truncated or empty fields.
func Parse(raw string) Code {
	return Code{
		Raw:        raw,
		PSUCode:    substring(raw, 0, psuEnd),
		Weight:     substring(raw, psuEnd, weightEnd),
		BranchCode: substring(raw, weightEnd, branchEnd),
		UniqueID:   substring(raw, branchEnd, len(raw)),
	}
}

// Complete reports whether every fixed field was present in the raw code.
func (c Code) Complete() bool {
	return len(c.Raw) >= MinLength
}

// Normalize trims the whitespace decoders tend to leave around a code.
func Normalize(decoded string) string {
	return strings.TrimSpace(decoded)
}

// substring clamps start and end to s, by byte offset.
func substring(s string, start, end int) string {
	if start > len(s) {
		start = len(s)
	}
	if end > len(s) {
		end = len(s)
	}
	if start >= end {
		return ""
	}
	return s[start:end]
}
