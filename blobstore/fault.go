package blobstore

import (
	"context"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Fault describes injected behavior for matching operations.
type Fault struct {
	// MinLatency and MaxLatency bound a uniformly drawn delay added
	// before the operation runs. Zero values add no delay.
	MinLatency time.Duration
	MaxLatency time.Duration

	// Err is returned instead of running the operation, with
	// probability ErrProbability (0 disables, 1 always fails).
	Err            error
	ErrProbability float64
}

// FaultyStore is a Store decorator that injects latency and errors.
//
// It exists to exercise failure paths: a rewrite pass aborted by a
// storage error must leave the committed manifest list untouched, and
// tests prove that by making specific writes fail. The zero-value Fault
// makes the decorator transparent.
type FaultyStore struct {
	inner Store

	mu    sync.Mutex
	rng   *rand.Rand
	fault Fault
	rules map[string]Fault
}

// NewFaultyStore wraps inner with the given default fault behavior.
func NewFaultyStore(inner Store, fault Fault) *FaultyStore {
	return &FaultyStore{
		inner: inner,
		rng:   rand.New(rand.NewSource(1)),
		fault: fault,
		rules: make(map[string]Fault),
	}
}

// Seed reseeds the probability draw for deterministic tests.
func (f *FaultyStore) Seed(seed int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rng = rand.New(rand.NewSource(seed))
}

// AddRule overrides the fault behavior for objects whose name contains
// pattern. The last matching rule added wins.
func (f *FaultyStore) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[pattern] = fault
}

// perform injects the configured latency and error before an operation
// against the named object runs.
func (f *FaultyStore) perform(ctx context.Context, name string) error {
	f.mu.Lock()
	fault := f.fault
	for pattern, rule := range f.rules {
		if strings.Contains(name, pattern) {
			fault = rule
		}
	}
	var delay time.Duration
	if fault.MaxLatency > fault.MinLatency {
		delay = fault.MinLatency + time.Duration(f.rng.Int63n(int64(fault.MaxLatency-fault.MinLatency)))
	} else {
		delay = fault.MinLatency
	}
	fail := fault.Err != nil && fault.ErrProbability > 0 && f.rng.Float64() < fault.ErrProbability
	f.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	if fail {
		return fault.Err
	}
	return ctx.Err()
}

// Open opens an object for reading.
func (f *FaultyStore) Open(ctx context.Context, name string) (Blob, error) {
	if err := f.perform(ctx, name); err != nil {
		return nil, err
	}
	b, err := f.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &faultyBlob{Blob: b, store: f, name: name}, nil
}

// Create opens an object for streaming writing.
func (f *FaultyStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	if err := f.perform(ctx, name); err != nil {
		return nil, err
	}
	w, err := f.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &faultyWritableBlob{WritableBlob: w, store: f, name: name, ctx: ctx}, nil
}

// Put writes a whole object.
func (f *FaultyStore) Put(ctx context.Context, name string, data []byte) error {
	if err := f.perform(ctx, name); err != nil {
		return err
	}
	return f.inner.Put(ctx, name, data)
}

// Stat reports size and existence.
func (f *FaultyStore) Stat(ctx context.Context, name string) (ObjectInfo, error) {
	if err := f.perform(ctx, name); err != nil {
		return ObjectInfo{}, err
	}
	return f.inner.Stat(ctx, name)
}

// Delete removes an object.
func (f *FaultyStore) Delete(ctx context.Context, name string) error {
	if err := f.perform(ctx, name); err != nil {
		return err
	}
	return f.inner.Delete(ctx, name)
}

// List returns the names of all objects with the given prefix.
func (f *FaultyStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := f.perform(ctx, prefix); err != nil {
		return nil, err
	}
	return f.inner.List(ctx, prefix)
}

// RemoveAll removes every object with the given prefix.
func (f *FaultyStore) RemoveAll(ctx context.Context, prefix string) error {
	if err := f.perform(ctx, prefix); err != nil {
		return err
	}
	return f.inner.RemoveAll(ctx, prefix)
}

type faultyBlob struct {
	Blob
	store *FaultyStore
	name  string
}

func (b *faultyBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := b.store.perform(ctx, b.name); err != nil {
		return 0, err
	}
	return b.Blob.ReadAt(ctx, p, off)
}

func (b *faultyBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if err := b.store.perform(ctx, b.name); err != nil {
		return nil, err
	}
	return b.Blob.ReadRange(ctx, off, length)
}

type faultyWritableBlob struct {
	WritableBlob
	store *FaultyStore
	name  string
	ctx   context.Context
}

func (w *faultyWritableBlob) Write(p []byte) (int, error) {
	if err := w.store.perform(w.ctx, w.name); err != nil {
		return 0, err
	}
	return w.WritableBlob.Write(p)
}

// Abort forwards to the wrapped blob so Discard reaches the backend.
func (w *faultyWritableBlob) Abort() error {
	Discard(w.WritableBlob)
	return nil
}
