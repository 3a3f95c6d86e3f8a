package multipart

import (
	"bytes"
	"testing"
)

const boundary = "----ZimgBoundary7MA4YWxkTrZu0gW"

func buildBody(filename string, payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("--" + boundary + "\r\n")
	buf.WriteString(`Content-Disposition: form-data; name="file"; filename="` + filename + `"` + "\r\n")
	buf.WriteString("Content-Type: application/octet-stream\r\n")
	buf.WriteString("\r\n")
	buf.Write(payload)
	buf.WriteString("\r\n--" + boundary + "--\r\n")
	return buf.Bytes()
}

func contentType() string {
	return `multipart/form-data; boundary=` + boundary
}

func TestBoundaryUnquoted(t *testing.T) {
	b, err := Boundary(contentType())
	if err != nil {
		t.Fatal(err)
	}
	if b != boundary {
		t.Fatalf("Boundary = %q, want %q", b, boundary)
	}
}

func TestBoundaryQuoted(t *testing.T) {
	b, err := Boundary(`multipart/form-data; boundary="` + boundary + `"`)
	if err != nil {
		t.Fatal(err)
	}
	if b != boundary {
		t.Fatalf("Boundary = %q, want %q", b, boundary)
	}
}

func TestBoundaryNotMultipart(t *testing.T) {
	if _, err := Boundary("text/plain"); err == nil {
		t.Fatal("expected error for non-multipart content type")
	}
}

func TestBoundaryMissing(t *testing.T) {
	if _, err := Boundary("multipart/form-data"); err == nil {
		t.Fatal("expected error for missing boundary")
	}
}

func TestExtractRoundTrip(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	body := buildBody("photo.jpg", payload)

	f, err := Extract(body, contentType())
	if err != nil {
		t.Fatal(err)
	}
	if f.Filename != "photo.jpg" {
		t.Fatalf("Filename = %q, want photo.jpg", f.Filename)
	}
	if !bytes.Equal(f.Data, payload) {
		t.Fatalf("Data = %x, want %x", f.Data, payload)
	}
}

func TestExtractEmptyBody(t *testing.T) {
	if _, err := Extract(nil, contentType()); err == nil {
		t.Fatal("expected error for empty body")
	}
}

func TestExtractMissingFilename(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("--" + boundary + "\r\n")
	buf.WriteString(`Content-Disposition: form-data; name="file"` + "\r\n")
	buf.WriteString("Content-Type: application/octet-stream\r\n\r\n")
	buf.WriteString("data")
	buf.WriteString("\r\n--" + boundary + "--\r\n")

	if _, err := Extract(buf.Bytes(), contentType()); err == nil {
		t.Fatal("expected error for missing filename")
	}
}

func TestExtractZeroLengthPayload(t *testing.T) {
	body := buildBody("empty.png", nil)
	if _, err := Extract(body, contentType()); err == nil {
		t.Fatal("expected error for zero-length payload")
	}
}

func TestExtractPayloadEndsAtBoundaryNotFile(t *testing.T) {
	// Ensure the payload doesn't swallow trailing boundary bytes when the
	// image data itself happens to contain boundary-like substrings.
	payload := []byte("--fake-boundary-inside-data--")
	body := buildBody("tricky.gif", payload)

	f, err := Extract(body, contentType())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(f.Data, payload) {
		t.Fatalf("Data = %q, want %q", f.Data, payload)
	}
}
