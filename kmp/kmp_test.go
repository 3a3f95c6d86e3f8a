package kmp

import "testing"

func TestIndexFindsMatch(t *testing.T) {
	s := []byte("abxabcabcaby")
	idx := New([]byte("abcaby")).Index(s, 0)
	if idx != 6 {
		t.Fatalf("Index = %d, want 6", idx)
	}
}

func TestIndexNoMatch(t *testing.T) {
	if idx := New([]byte("notpresent")).Index([]byte("abcdef"), 0); idx != -1 {
		t.Fatalf("Index = %d, want -1", idx)
	}
}

func TestIndexRespectsFrom(t *testing.T) {
	s := []byte("aaaaa")
	m := New([]byte("aa"))
	if idx := m.Index(s, 0); idx != 0 {
		t.Fatalf("Index(from=0) = %d, want 0", idx)
	}
	if idx := m.Index(s, 1); idx != 1 {
		t.Fatalf("Index(from=1) = %d, want 1", idx)
	}
	if idx := m.Index(s, 4); idx != -1 {
		t.Fatalf("Index(from=4) = %d, want -1", idx)
	}
}

func TestFindOverlappingPattern(t *testing.T) {
	// Classic KMP stress case: overlapping prefix/suffix structure.
	s := []byte("aaaaaaaaab")
	idx := Find(s, []byte("aaab"), 0)
	if idx != 6 {
		t.Fatalf("Find = %d, want 6", idx)
	}
}

func TestEmptyPattern(t *testing.T) {
	if idx := New(nil).Index([]byte("anything"), 3); idx != 3 {
		t.Fatalf("Index with empty pattern = %d, want 3 (from)", idx)
	}
}

func TestCRLFBoundaryPattern(t *testing.T) {
	body := []byte("payload bytes\r\n--boundary123\r\nmore")
	idx := Find(body, []byte("\r\n--boundary123"), 0)
	if idx != len("payload bytes") {
		t.Fatalf("Find = %d, want %d", idx, len("payload bytes"))
	}
}
