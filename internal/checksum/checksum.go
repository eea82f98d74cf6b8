// Package checksum computes the content digests used as story ETags.
package checksum

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Matches reports whether tag names the digest of data. Tag may be an
// HTTP entity tag: surrounding quotes and a weak "W/" prefix are ignored.
func Matches(tag string, data []byte) bool {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "W/")
	tag = strings.Trim(tag, `"`)
	return subtle.ConstantTimeCompare([]byte(tag), []byte(Sum(data))) == 1
}
