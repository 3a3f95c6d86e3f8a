package sniff

import "testing"

func TestExtension(t *testing.T) {
	cases := map[string]string{
		"photo.JPG":   "jpg",
		"photo.jpeg":  "jpeg",
		"archive.tar.gz": "gz",
		"noext":       "",
		"trailing.":   "",
	}
	for in, want := range cases {
		if got := Extension(in); got != want {
			t.Errorf("Extension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsImage(t *testing.T) {
	cases := map[string]bool{
		"a.jpg":  true,
		"a.jpeg": true,
		"a.png":  true,
		"a.gif":  true,
		"a.JPG":  true,
		"a.bmp":  false,
		"a.txt":  false,
		"noext":  false,
	}
	for in, want := range cases {
		if got := IsImage(in); got != want {
			t.Errorf("IsImage(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFormat(t *testing.T) {
	if got := Format("photo.PNG"); got != "png" {
		t.Errorf("Format = %q, want png", got)
	}
	if got := Format("photo.bmp"); got != "" {
		t.Errorf("Format = %q, want empty", got)
	}
}

func TestShardDeterministic(t *testing.T) {
	fp := "0123456789abcdef0123456789abcdef"
	l1a, l2a, l3a := Shard(fp)
	l1b, l2b, l3b := Shard(fp)
	if l1a != l1b || l2a != l2b || l3a != l3b {
		t.Fatal("Shard is not deterministic")
	}
	// first 3 hex chars "012" = 18 decimal, /4 = 4
	if l1a != "4" {
		t.Errorf("l1 = %q, want 4", l1a)
	}
	if l2a != "34" {
		t.Errorf("l2 = %q, want 34", l2a)
	}
	if l3a != "56" {
		t.Errorf("l3 = %q, want 56", l3a)
	}
}
