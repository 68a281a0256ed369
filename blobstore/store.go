package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNotFound is returned when an object does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`, so local filesystem errors pass
// through untranslated.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction for accessing immutable metadata objects
// (manifests, manifest lists, blob archives, table metadata).
//
// Objects are named by slash-separated keys relative to the store root.
// All operations are cancellable via ctx. Implementations must be safe
// for concurrent use.
type Store interface {
	// Open opens an object for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Create opens an object for streaming, unbuffered writing.
	// The object becomes visible on Close; a failed write may leave
	// a partial object behind (callers treat unreferenced objects
	// as orphans).
	Create(ctx context.Context, name string) (WritableBlob, error)

	// Put writes a whole object at once. Implementations make this as
	// atomic as the backend allows (temp file + rename, single PUT).
	Put(ctx context.Context, name string, data []byte) error

	// Stat reports whether an object exists and how large it is.
	// Returns ErrNotFound if it does not exist.
	Stat(ctx context.Context, name string) (ObjectInfo, error)

	// Delete removes an object. Removing a missing object is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all objects with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// RemoveAll removes every object with the given prefix.
	RemoveAll(ctx context.Context, prefix string) error
}

// Blob is a read-only handle to an object.
type Blob interface {
	// ReadAt reads len(p) bytes starting at offset off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)

	// ReadRange returns a reader over [off, off+length). A range that
	// extends past the end of the object is truncated, not an error.
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)

	// Size returns the size of the object in bytes.
	Size() int64

	Close() error
}

// WritableBlob is a streaming write handle to an object.
type WritableBlob interface {
	io.Writer

	// Sync flushes buffered data to durable storage where the backend
	// supports it; a no-op otherwise.
	Sync() error

	// Close finalizes the object. The object is not guaranteed to be
	// visible before Close returns.
	Close() error
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Name string
	Size int64
}

// Discard abandons a partially written object. Backends that can abort
// an in-progress upload discard it; otherwise the blob is closed and the
// partial object is left as an orphan.
func Discard(w WritableBlob) {
	if ab, ok := w.(interface{ Abort() error }); ok {
		_ = ab.Abort()
		return
	}
	_ = w.Close()
}

// Exists reports whether the named object exists.
func Exists(ctx context.Context, s Store, name string) (bool, error) {
	_, err := s.Stat(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ReadAll reads a whole object into memory.
func ReadAll(ctx context.Context, s Store, name string) ([]byte, error) {
	b, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.Close() }()

	data := make([]byte, b.Size())
	if len(data) == 0 {
		return data, nil
	}

	n, err := b.ReadAt(ctx, data, 0)
	if err != nil && !(errors.Is(err, io.EOF) && n == len(data)) {
		return nil, err
	}
	if n != len(data) {
		return nil, fmt.Errorf("read %s: short read %d of %d bytes", name, n, len(data))
	}
	return data, nil
}

// CopyFromLocal uploads a local file into the store under name.
func CopyFromLocal(ctx context.Context, s Store, localPath, name string) (int64, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	w, err := s.Create(ctx, name)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(w, f)
	if err != nil {
		Discard(w)
		return n, err
	}
	return n, w.Close()
}

// CopyToLocal downloads an object into a local file.
func CopyToLocal(ctx context.Context, s Store, name, localPath string) (int64, error) {
	b, err := s.Open(ctx, name)
	if err != nil {
		return 0, err
	}
	defer func() { _ = b.Close() }()

	r, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		return 0, err
	}
	defer func() { _ = r.Close() }()

	f, err := os.Create(localPath)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		return n, err
	}
	return n, f.Close()
}
