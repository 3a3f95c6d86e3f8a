// Package kmp implements Knuth-Morris-Pratt substring search over byte
// buffers. It exists so the multipart extractor never falls back to
// quadratic scanning on adversarial binary payloads.
//
// Unlike the original zimg implementation (zutil.c), whose failure table
// was a single file-scope array reused across every call, the failure
// table here is always built fresh per Matcher — the parser runs
// concurrently on many workers, and a shared mutable table would race.
package kmp

// Matcher holds the failure function for one pattern and can search it
// against any number of byte slices.
type Matcher struct {
	pattern []byte
	fail    []int
}

// New builds a Matcher for pattern. The failure table is computed once,
// local to this Matcher, and is safe to reuse against multiple haystacks
// but never shared across goroutines concurrently mutating it — Matcher
// itself performs no mutation after construction, so concurrent Index
// calls on the same Matcher are safe.
func New(pattern []byte) *Matcher {
	m := &Matcher{pattern: pattern, fail: make([]int, len(pattern))}
	for i := 1; i < len(pattern); i++ {
		j := m.fail[i-1]
		for j > 0 && pattern[i] != pattern[j] {
			j = m.fail[j-1]
		}
		if pattern[i] == pattern[j] {
			j++
		}
		m.fail[i] = j
	}
	return m
}

// Index returns the offset of the first occurrence of the pattern in s at
// or after from, or -1 if not found.
func (m *Matcher) Index(s []byte, from int) int {
	if len(m.pattern) == 0 {
		return from
	}
	j := 0
	for i := from; i < len(s); i++ {
		for j > 0 && s[i] != m.pattern[j] {
			j = m.fail[j-1]
		}
		if s[i] == m.pattern[j] {
			j++
		}
		if j == len(m.pattern) {
			return i - j + 1
		}
	}
	return -1
}

// Find is a one-shot convenience wrapper: build a Matcher for pattern and
// search s starting at from.
func Find(s, pattern []byte, from int) int {
	return New(pattern).Index(s, from)
}
