// Package sniff derives the declared image type from an uploaded filename
// and computes the deterministic three-level shard path used by the
// filesystem backend, both grounded on the original zimg implementation's
// zutil.c (get_type / is_img / str_hash).
package sniff

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// allowed is the extension set a declared filename must fall in, per
// spec.md §4.2.
var allowed = []string{"jpg", "jpeg", "png", "gif"}

var lower = cases.Lower(language.Und)

// Extension returns the substring of filename after the last '.', lowercased.
// Returns "" if filename has no '.'.
func Extension(filename string) string {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 || i == len(filename)-1 {
		return ""
	}
	return lower.String(filename[i+1:])
}

// IsImage reports whether filename names an allowed image type. Only the
// lowercased extension (the text after the final '.') is examined: the
// filename is accepted if that extension begins with one of the allowed
// tokens, so "a.JPG" and "a.jpgx" are accepted and "a.bmp" is not.
func IsImage(filename string) bool {
	ext := Extension(filename)
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if strings.HasPrefix(ext, a) {
			return true
		}
	}
	return false
}

// Format canonicalizes a recognized extension to the catalog's format tag:
// "jpg", "jpeg", "png", or "gif". Returns "" if filename isn't an allowed
// image.
func Format(filename string) string {
	ext := Extension(filename)
	for _, a := range allowed {
		if strings.HasPrefix(ext, a) {
			return a
		}
	}
	return ""
}

// Shard computes the three-level sharded directory path for a 32-hex
// fingerprint, resolving spec.md §9's Open Question against zutil.c's
// str_hash: the first three hex characters are parsed as a hexadecimal
// integer and divided by 4 to choose the first-level directory; the next
// two hex-character pairs form the second and third levels directly.
//
// Shard is deterministic and collision-free with respect to the
// fingerprint: the three levels concatenated with the fingerprint itself
// (used as the leaf directory/file name) always identify a unique path,
// the fingerprint's uniqueness is inherited from MD5, not from the shard
// function — the shard only needs to keep directory fan-out bounded, which
// dividing by 4 does at the cost of some large buckets near the low end of
// the hex range.
func Shard(fp string) (l1, l2, l3 string) {
	n, _ := strconv.ParseInt(fp[0:3], 16, 64)
	l1 = strconv.FormatInt(n/4, 10)
	l2 = fp[3:5]
	l3 = fp[5:7]
	return l1, l2, l3
}
