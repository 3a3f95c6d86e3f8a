// Package variant defines the transform-parameter tuple, its
// canonicalization, and the deterministic variant-key derivation described
// in spec.md §3.
package variant

import (
	"fmt"
	"net/url"
	"strconv"
)

// Params is the transform-parameter tuple (w, h, p, g, x, y, q) from
// spec.md §3. x and y are accepted and canonicalized but never applied by
// the transform engine — reserved, per spec.md §9's resolved Open
// Question.
type Params struct {
	W, H int // target width/height; 0 = unconstrained
	P    int // proportional flag, 0 or 1
	G    int // grayscale flag, 0 or 1
	X, Y int // crop origin; reserved
	Q    int // JPEG quality override; 0 = use default
}

// ParseQuery parses the w/h/p/g/x/y/q query parameters the way the
// original zimg fetch handler did: atoi, with defaults w=h=x=y=q=0, g=0,
// p=1 when the parameter is absent or unparsable.
func ParseQuery(q url.Values) Params {
	return Params{
		W: atoiDefault(q.Get("w"), 0),
		H: atoiDefault(q.Get("h"), 0),
		P: atoiDefault(q.Get("p"), 1),
		G: atoiDefault(q.Get("g"), 0),
		X: atoiDefault(q.Get("x"), 0),
		Y: atoiDefault(q.Get("y"), 0),
		Q: atoiDefault(q.Get("q"), 0),
	}
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Canonical is the identity function over an already-defaulted Params: the
// canonical form (spec.md §3) is exactly "every field present, 0 where
// absent, p=1 when absent", which ParseQuery already produces. Canonical
// exists as an explicit step so callers that build Params programmatically,
// rather than from a query string, still go through the same
// normalization named by the cache-key invariant.
func Canonical(p Params) Params {
	return p
}

// IsIdentity reports whether p is the identity transform: every field at
// its zero/default value, i.e. the canonical params that make the variant
// key equal to the fingerprint itself (spec.md §4.7 step 1).
func (p Params) IsIdentity() bool {
	return p.W == 0 && p.H == 0 && p.G == 0 && p.X == 0 && p.Y == 0 && p.Q == 0
}

// Key derives the deterministic variant key for (fingerprint, canonical
// params). Identity params map the key to the fingerprint itself so the
// original and its identity "variant" are the same storage object
// (spec.md §4.7 step 1).
func Key(fingerprint string, p Params) string {
	if p.IsIdentity() {
		return fingerprint
	}
	return fingerprint + ":" + Tag(p)
}

// Tag is the param-derived filename/key suffix used by both backends: the
// filesystem backend suffixes the shard leaf with it, the KV backend joins
// it to the fingerprint with ':' (spec.md §4.5a, §4.5b).
func Tag(p Params) string {
	return fmt.Sprintf("w%d_h%d_p%d_g%d_x%d_y%d_q%d", p.W, p.H, p.P, p.G, p.X, p.Y, p.Q)
}
