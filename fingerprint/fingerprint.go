// Package fingerprint computes the content address used throughout the
// catalog: the lowercase hex MD5 of an image's bytes.
package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
)

// Length is the fixed length of a fingerprint string.
const Length = 32

var hexRe = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Sum returns the 32-character lowercase hex MD5 of b.
func Sum(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// Valid reports whether s is a syntactically valid fingerprint: exactly 32
// lowercase hex characters. It does not check whether a record exists.
func Valid(s string) bool {
	return hexRe.MatchString(s)
}

// ETag computes the response ETag for body: MD5(body), same primitive as
// the content fingerprint but over response bytes rather than upload bytes.
func ETag(body []byte) string {
	return Sum(body)
}

