package content

import (
	"crypto/sha256"
	"encoding/hex"
)

// fingerprintBytes is the number of SHA-256 bytes kept in a fingerprint.
const fingerprintBytes = 16

// Fingerprint returns a deterministic identifier for data. Equal inputs
// always produce equal fingerprints; the empty input has a valid fingerprint
// of its own.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:fingerprintBytes])
}
