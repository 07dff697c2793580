package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for derived keys.
// Version suffix enables future algorithm migration.
const (
	DomainExecution = "execdef/execution/v1"
	DomainWindow    = "execdef/window/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ExecutionKey derives a fixed-size cache key for an execution of the
// definition with the given fingerprint in the given workspace.
//
// The fingerprint remains the identity; this key exists for caches and
// stores that want bounded key sizes.
func ExecutionKey(workspace, fingerprint string) string {
	// Both parts are canonical strings; the array form keeps the boundary
	// between workspace and fingerprint unambiguous.
	data, _ := MarshalCanonical(IRArray{IRString(workspace), IRString(fingerprint)})
	return hashWithDomain(DomainExecution, data)
}

// WindowKey derives a key for one window of one execution result.
func WindowKey(resultKey string, offset, limit []int) string {
	arr := IRArray{IRString(resultKey), ints(offset), ints(limit)}
	data, _ := MarshalCanonical(arr)
	return hashWithDomain(DomainWindow, data)
}

func ints(xs []int) IRArray {
	arr := make(IRArray, len(xs))
	for i, x := range xs {
		arr[i] = IRInt(x)
	}
	return arr
}
