package blobstore

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// ThrottledStore is a Store decorator that caps aggregate payload
// throughput (bytes per second) across all readers and writers.
//
// Metadata maintenance shares object-store bandwidth with query traffic;
// throttling keeps a large rewrite from saturating the link. Metadata-only
// operations (Stat, Delete, List, RemoveAll) are not throttled.
type ThrottledStore struct {
	inner   Store
	limiter *rate.Limiter
}

// NewThrottledStore wraps inner with a token bucket of bytesPerSecond,
// allowing bursts up to one second of budget.
func NewThrottledStore(inner Store, bytesPerSecond int) *ThrottledStore {
	return &ThrottledStore{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), bytesPerSecond),
	}
}

// wait blocks until n bytes of budget are available, in burst-sized steps.
func (t *ThrottledStore) wait(ctx context.Context, n int) error {
	burst := t.limiter.Burst()
	for n > 0 {
		chunk := n
		if chunk > burst {
			chunk = burst
		}
		if err := t.limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// Open opens an object for reading.
func (t *ThrottledStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := t.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &throttledBlob{Blob: b, store: t}, nil
}

// Create opens an object for streaming writing.
func (t *ThrottledStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	w, err := t.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &throttledWritableBlob{WritableBlob: w, store: t, ctx: ctx}, nil
}

// Put writes a whole object, charging its full size against the budget.
func (t *ThrottledStore) Put(ctx context.Context, name string, data []byte) error {
	if err := t.wait(ctx, len(data)); err != nil {
		return err
	}
	return t.inner.Put(ctx, name, data)
}

// Stat reports size and existence.
func (t *ThrottledStore) Stat(ctx context.Context, name string) (ObjectInfo, error) {
	return t.inner.Stat(ctx, name)
}

// Delete removes an object.
func (t *ThrottledStore) Delete(ctx context.Context, name string) error {
	return t.inner.Delete(ctx, name)
}

// List returns the names of all objects with the given prefix.
func (t *ThrottledStore) List(ctx context.Context, prefix string) ([]string, error) {
	return t.inner.List(ctx, prefix)
}

// RemoveAll removes every object with the given prefix.
func (t *ThrottledStore) RemoveAll(ctx context.Context, prefix string) error {
	return t.inner.RemoveAll(ctx, prefix)
}

type throttledBlob struct {
	Blob
	store *ThrottledStore
}

func (b *throttledBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := b.store.wait(ctx, len(p)); err != nil {
		return 0, err
	}
	return b.Blob.ReadAt(ctx, p, off)
}

func (b *throttledBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	r, err := b.Blob.ReadRange(ctx, off, length)
	if err != nil {
		return nil, err
	}
	return &throttledReader{r: r, store: b.store, ctx: ctx}, nil
}

type throttledReader struct {
	r     io.ReadCloser
	store *ThrottledStore
	ctx   context.Context
}

func (r *throttledReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		if werr := r.store.wait(r.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}

func (r *throttledReader) Close() error {
	return r.r.Close()
}

type throttledWritableBlob struct {
	WritableBlob
	store *ThrottledStore
	ctx   context.Context
}

func (w *throttledWritableBlob) Write(p []byte) (int, error) {
	if err := w.store.wait(w.ctx, len(p)); err != nil {
		return 0, err
	}
	return w.WritableBlob.Write(p)
}

// Abort forwards to the wrapped blob so Discard reaches the backend.
func (w *throttledWritableBlob) Abort() error {
	Discard(w.WritableBlob)
	return nil
}
