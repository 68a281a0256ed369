package blobstore

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// CachingStore wraps a remote Store with a read-through cache backed by
// a second Store (typically a LocalStore on fast disk).
//
// Manifest metadata objects are immutable once written, so a cached copy
// never goes stale. Put writes through to the cache; Delete and RemoveAll
// drop cached copies.
type CachingStore struct {
	remote Store
	cache  Store
}

// NewCachingStore creates a read-through cache over remote.
func NewCachingStore(remote, cache Store) *CachingStore {
	return &CachingStore{remote: remote, cache: cache}
}

// Open serves the object from cache, filling it from remote on a miss.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.cache.Open(ctx, name)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err := s.fill(ctx, name); err != nil {
		return nil, err
	}
	return s.cache.Open(ctx, name)
}

// fill copies one object from remote into the cache.
//
// Two goroutines filling the same name race harmlessly: both write the
// same immutable bytes.
func (s *CachingStore) fill(ctx context.Context, name string) error {
	data, err := ReadAll(ctx, s.remote, name)
	if err != nil {
		return err
	}
	return s.cache.Put(ctx, name, data)
}

// Prefetch warms the cache with the named objects, fetching misses from
// remote with bounded parallelism.
func (s *CachingStore) Prefetch(ctx context.Context, names []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(16)

	for _, name := range names {
		g.Go(func() error {
			ok, err := Exists(ctx, s.cache, name)
			if err != nil || ok {
				return err
			}
			return s.fill(ctx, name)
		})
	}
	return g.Wait()
}

// Create streams to remote; writes are not cached until read back.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	return s.remote.Create(ctx, name)
}

// Put writes to remote and then through to the cache.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	if err := s.remote.Put(ctx, name, data); err != nil {
		return err
	}
	// Cache errors are not fatal; the cache refills on the next read.
	_ = s.cache.Put(ctx, name, data)
	return nil
}

// Stat answers from cache when possible.
func (s *CachingStore) Stat(ctx context.Context, name string) (ObjectInfo, error) {
	info, err := s.cache.Stat(ctx, name)
	if err == nil {
		return info, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return ObjectInfo{}, err
	}
	return s.remote.Stat(ctx, name)
}

// Delete removes the object from remote and drops any cached copy.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	if err := s.remote.Delete(ctx, name); err != nil {
		return err
	}
	// Cache cleanup is best effort.
	_ = s.cache.Delete(ctx, name)
	return nil
}

// List consults remote; the cache holds a subset of it.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.remote.List(ctx, prefix)
}

// RemoveAll removes the prefix from remote and from the cache.
func (s *CachingStore) RemoveAll(ctx context.Context, prefix string) error {
	if err := s.remote.RemoveAll(ctx, prefix); err != nil {
		return err
	}
	// Cache cleanup is best effort.
	_ = s.cache.RemoveAll(ctx, prefix)
	return nil
}
