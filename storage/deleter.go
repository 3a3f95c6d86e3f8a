package storage

import "context"

// FingerprintDeleter is implemented by both concrete backends. It deletes
// an original and, transitively, every variant derived from it — the
// admin t=1 operation (spec.md §4.8). It is a separate interface from
// Backend because "delete everything under a fingerprint" needs backend-
// specific knowledge (a directory glob on the filesystem side, a catalog
// key on the KV side) that a flat put/get/exists/delete contract cannot
// express generically.
type FingerprintDeleter interface {
	DeleteFingerprint(ctx context.Context, fp string) error
}
