package model

import (
	"slices"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/execdef/internal/ir"
)

// Strings are compared in NFC, the form the canonical encoding writes, so
// that Equal and Fingerprint agree on composed and decomposed spellings.

func nfc(s string) string {
	return norm.NFC.String(s)
}

func textEqual(a, b string) bool {
	return a == b || nfc(a) == nfc(b)
}

func compareText(a, b string) int {
	return ir.CompareUTF16(nfc(a), nfc(b))
}

func sortedAttributes(in []Attribute) []Attribute {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b Attribute) int { return compareText(a.LocalID, b.LocalID) })
	return out
}

func sortedMeasures(in []Measure) []Measure {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b Measure) int { return compareText(a.LocalID, b.LocalID) })
	return out
}

// normalizeElements returns an element set in NFC, sorted and de-duplicated.
func normalizeElements(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = nfc(s)
	}
	slices.SortFunc(out, ir.CompareUTF16)
	return slices.Compact(out)
}

// normalizeRefSet sorts and de-duplicates a set of refs.
func normalizeRefSet(refs []Ref) []Ref {
	out := slices.Clone(refs)
	slices.SortStableFunc(out, func(a, b Ref) int { return ir.CompareUTF16(refSortKey(a), refSortKey(b)) })
	return slices.CompactFunc(out, refEqual)
}
