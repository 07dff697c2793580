package ir

import (
	"slices"
	"unicode/utf16"
)

// IRValue is a sealed interface representing constrained value types.
// Only IRString, IRInt, IRArray and IRObject implement it.
// There is no IRFloat: floats break determinism of the canonical form.
type IRValue interface {
	irValue()
}

// IRString represents a string value.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integer value. Always int64.
type IRInt int64

func (IRInt) irValue() {}

// IRArray represents an ordered list of values.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject represents a map of string keys to values.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// SetString sets key to s unless s is empty. Optional string fields use this
// so that "" and absent produce the same canonical bytes.
func (obj IRObject) SetString(key, s string) {
	if s != "" {
		obj[key] = IRString(s)
	}
}

// SetArray sets key to arr unless it is empty.
func (obj IRObject) SetArray(key string, arr IRArray) {
	if len(arr) > 0 {
		obj[key] = arr
	}
}

// Strings converts a string slice into an IRArray, preserving order.
func Strings(ss []string) IRArray {
	arr := make(IRArray, len(ss))
	for i, s := range ss {
		arr[i] = IRString(s)
	}
	return arr
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's string comparison uses UTF-8 bytes, which orders supplementary
// characters differently.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, CompareUTF16)
	return keys
}

// CompareUTF16 compares two strings by UTF-16 code units.
// Also used by model to sort identifier sets the same way keys are sorted.
func CompareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
