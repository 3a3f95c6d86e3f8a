package fsbackend

import (
	"context"
	"errors"
	"testing"

	"github.com/Skryldev/image-processor/storage"
)

const fp = "0123456789abcdef0123456789abcdef"

func newBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestPutGetRoundTrip(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	data := []byte("original bytes")

	if err := b.Put(ctx, fp, data); err != nil {
		t.Fatal(err)
	}
	got, err := b.Get(ctx, fp)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(data) {
		t.Fatalf("Get = %q, want %q", got, data)
	}
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	b := newBackend(t)
	_, err := b.Get(context.Background(), fp)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want storage.ErrNotFound", err)
	}
}

func TestPutIsIdempotent(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	if err := b.Put(ctx, fp, []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if err := b.Put(ctx, fp, []byte("v2")); err != nil {
		t.Fatal(err)
	}
	got, err := b.Get(ctx, fp)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v2" {
		t.Fatalf("Get after second Put = %q, want v2 (last write wins)", got)
	}
}

func TestOriginalAndVariantShareShardDirectory(t *testing.T) {
	b := newBackend(t)
	variantKey := fp + ":w100_h0_p1_g0_x0_y0_q0"
	if dirOf(b.path(fp)) != dirOf(b.path(variantKey)) {
		t.Fatalf("original path %q and variant path %q are not in the same directory",
			b.path(fp), b.path(variantKey))
	}
}

func dirOf(p string) string {
	i := len(p) - 1
	for i >= 0 && p[i] != '/' {
		i--
	}
	return p[:i]
}

func TestExists(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	ok, err := b.Exists(ctx, fp)
	if err != nil || ok {
		t.Fatalf("Exists before Put = %v, %v; want false, nil", ok, err)
	}
	if err := b.Put(ctx, fp, []byte("x")); err != nil {
		t.Fatal(err)
	}
	ok, err = b.Exists(ctx, fp)
	if err != nil || !ok {
		t.Fatalf("Exists after Put = %v, %v; want true, nil", ok, err)
	}
}

func TestDelete(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	if err := b.Put(ctx, fp, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := b.Delete(ctx, fp); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Get(ctx, fp); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteFingerprintRemovesVariants(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	if err := b.Put(ctx, fp, []byte("original")); err != nil {
		t.Fatal(err)
	}
	variantKey := fp + ":w100_h0_p1_g0_x0_y0_q0"
	if err := b.Put(ctx, variantKey, []byte("variant")); err != nil {
		t.Fatal(err)
	}

	if err := b.DeleteFingerprint(ctx, fp); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Get(ctx, fp); !errors.Is(err, storage.ErrNotFound) {
		t.Fatal("original should be gone after DeleteFingerprint")
	}
	if _, err := b.Get(ctx, variantKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatal("variant should be gone after DeleteFingerprint")
	}
}

func TestDeleteFingerprintMissingReturnsNotFound(t *testing.T) {
	b := newBackend(t)
	err := b.DeleteFingerprint(context.Background(), fp)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want storage.ErrNotFound", err)
	}
}
