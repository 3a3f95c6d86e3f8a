package httpd

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Skryldev/image-processor/accessgate"
	"github.com/Skryldev/image-processor/config"
	"github.com/Skryldev/image-processor/fingerprint"
	"github.com/Skryldev/image-processor/resolver"
	"github.com/Skryldev/image-processor/storage"
	"github.com/Skryldev/image-processor/storage/fsbackend"
	"github.com/Skryldev/image-processor/transform"
	"github.com/Skryldev/image-processor/workerpool"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	cfg := config.Default()
	cfg.ImgPath = t.TempDir()
	cfg.Port = 4869

	reg := transform.NewDefaultRegistry(transform.DefaultQuality)
	res := resolver.New(transform.New(reg))
	pool := workerpool.New(2, func() (storage.Backend, error) {
		return fsbackend.New(cfg.ImgPath)
	})
	pool.Start()
	t.Cleanup(pool.Stop)

	return New(cfg, nil, nil, pool, res, nil)
}

func makeJPEGBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, payload []byte, filename string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestTraversalGuardRejectsDotDot(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/../etc/passwd", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestDownloadUnknownFingerprintNotFound(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/"+"0123456789abcdef0123456789abcdef", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDownloadNonFingerprintPathNotFound(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/not-a-fingerprint", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestUploadThenDownloadRoundTrip(t *testing.T) {
	h := newTestHandler(t)
	payload := makeJPEGBytes(t, 40, 40)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, payload, "photo.jpg"))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}

	fp := fingerprint.Sum(payload)
	if !bytes.Contains(rec.Body.Bytes(), []byte(fp)) {
		t.Fatalf("upload response should contain the fingerprint %q", fp)
	}

	getRec := httptest.NewRecorder()
	h.ServeHTTP(getRec, httptest.NewRequest(http.MethodGet, "/"+fp, nil))
	if getRec.Code != http.StatusOK {
		t.Fatalf("download status = %d, want 200", getRec.Code)
	}
	if !bytes.Equal(getRec.Body.Bytes(), payload) {
		t.Fatal("identity download should return the exact uploaded bytes")
	}
	if getRec.Header().Get("ETag") == "" {
		t.Fatal("download response should carry an ETag")
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, []byte("not an image"), "notes.txt"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 for a non-image upload", rec.Code)
	}
}

func TestConditionalGetReturnsNotModified(t *testing.T) {
	h := newTestHandler(t)
	payload := makeJPEGBytes(t, 20, 20)
	h.ServeHTTP(httptest.NewRecorder(), uploadRequest(t, payload, "a.jpg"))
	fp := fingerprint.Sum(payload)

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/"+fp, nil))
	etag := first.Header().Get("ETag")

	req := httptest.NewRequest(http.MethodGet, "/"+fp, nil)
	req.Header.Set("If-None-Match", etag)
	second := httptest.NewRecorder()
	h.ServeHTTP(second, req)
	if second.Code != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", second.Code)
	}
}

func TestConditionalGetCarriesConfiguredHeaders(t *testing.T) {
	h := newTestHandler(t)
	h.Config.Headers = []config.Header{{Key: "X-Custom", Value: "yes"}}
	payload := makeJPEGBytes(t, 20, 20)
	h.ServeHTTP(httptest.NewRecorder(), uploadRequest(t, payload, "a.jpg"))
	fp := fingerprint.Sum(payload)

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/"+fp, nil))
	etag := first.Header().Get("ETag")

	req := httptest.NewRequest(http.MethodGet, "/"+fp, nil)
	req.Header.Set("If-None-Match", etag)
	second := httptest.NewRecorder()
	h.ServeHTTP(second, req)
	if second.Code != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", second.Code)
	}
	if second.Header().Get("X-Custom") != "yes" {
		t.Fatal("304 response should still carry configured extra headers")
	}
}

func TestFaviconReturnsOK(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRootServesWelcomePage(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "text/html" {
		t.Fatalf("Content-Type = %q, want text/html", rec.Header().Get("Content-Type"))
	}
}

func TestDownloadForbiddenWhenGateDenies(t *testing.T) {
	h := newTestHandler(t)
	gate, err := accessgate.New([]string{"deny 0.0.0.0/0"})
	if err != nil {
		t.Fatal(err)
	}
	h.Download = gate

	req := httptest.NewRequest(http.MethodGet, "/0123456789abcdef0123456789abcdef", nil)
	req.RemoteAddr = "203.0.113.5:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestAdminDeleteRemovesFingerprint(t *testing.T) {
	h := newTestHandler(t)
	payload := makeJPEGBytes(t, 15, 15)
	h.ServeHTTP(httptest.NewRecorder(), uploadRequest(t, payload, "a.jpg"))
	fp := fingerprint.Sum(payload)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin?md5="+fp+"&t=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("admin delete status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}

	getRec := httptest.NewRecorder()
	h.ServeHTTP(getRec, httptest.NewRequest(http.MethodGet, "/"+fp, nil))
	if getRec.Code != http.StatusNotFound {
		t.Fatalf("status after admin delete = %d, want 404", getRec.Code)
	}
}
