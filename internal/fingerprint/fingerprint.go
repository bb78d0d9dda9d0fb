// Package fingerprint provides deterministic content fingerprints for stored documents.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

const prefix = "sha256:"

// Content returns a stable fingerprint of text. Same text always yields the
// same fingerprint; any byte change yields a different one.
func Content(text string) string {
	hash := sha256.Sum256([]byte(text))
	return prefix + hex.EncodeToString(hash[:])
}
