package fingerprint

import "testing"

func TestSumIsDeterministic(t *testing.T) {
	a := Sum([]byte("hello world"))
	b := Sum([]byte("hello world"))
	if a != b {
		t.Fatalf("Sum not deterministic: %q != %q", a, b)
	}
	if len(a) != Length {
		t.Fatalf("Sum length = %d, want %d", len(a), Length)
	}
}

func TestSumDiffersOnDifferentInput(t *testing.T) {
	if Sum([]byte("a")) == Sum([]byte("b")) {
		t.Fatal("distinct inputs produced the same fingerprint")
	}
}

func TestValid(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want bool
	}{
		{"valid", Sum([]byte("zimg")), true},
		{"too short", "abc123", false},
		{"uppercase", "ABCDEF0123456789ABCDEF0123456789", false},
		{"non-hex", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz", false},
		{"empty", "", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Valid(c.in); got != c.want {
				t.Errorf("Valid(%q) = %v, want %v", c.in, got, c.want)
			}
		})
	}
}

func TestETagMatchesSum(t *testing.T) {
	body := []byte("response body bytes")
	if ETag(body) != Sum(body) {
		t.Fatal("ETag should be MD5 of the body, same primitive as Sum")
	}
}
