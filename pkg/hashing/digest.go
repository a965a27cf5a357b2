// Package hashing provides the canonical digest used to fingerprint
// operation payloads. Content hashes arrive from callers and are treated as
// opaque; this digest is only for payloads the service itself stamps.
package hashing

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// PayloadDigest returns the hex-encoded SHA3-256 digest of the payload.
func PayloadDigest(payload []byte) string {
	sum := sha3.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
