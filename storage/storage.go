// Package storage defines the two-backend abstraction of spec.md §4.5:
// put/get/exists/delete of opaque byte blobs over a flat, case-sensitive,
// ASCII key space. The filesystem and external-KV implementations live in
// the fsbackend and kvbackend subpackages.
package storage

import "context"

// Backend is satisfied by both the sharded filesystem tree and the
// external KV store. Put is idempotent: putting the same key twice leaves
// the final value equal to the last write (spec.md §4.5, single-writer
// assumption documented in §5).
type Backend interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// ErrNotFound is returned by Get when key has no value. Backends must
// return exactly this sentinel (wrapped in an apperrors CategoryStorage
// error) rather than an ad-hoc "missing" convention, so the resolver can
// use errors.Is uniformly across both backend implementations.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "storage: key not found" }
