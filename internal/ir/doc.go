// Package ir provides the canonical value tree used to derive content identity.
//
// Every identity in execdef (definition fingerprints, execution cache keys)
// is computed by first lowering a value into this tree and then serializing
// it with MarshalCanonical. Nothing else may be used to produce identity
// bytes: encoding/json output depends on map iteration, HTML escaping and
// float formatting, none of which are stable enough for equality.
//
// Key constraints:
//   - NO float types anywhere; exact decimals travel as their normalized string
//   - NO null; absent optional values are omitted, never encoded
//   - Object keys are ordered by UTF-16 code units (RFC 8785)
//   - Strings are NFC normalized at the serialization boundary
//
// ir imports nothing internal.
package ir
