// Package blobstore provides storage abstraction for immutable table
// metadata objects (manifests, manifest lists, blob archives, data files).
//
// Store is the interface for reading and writing objects. Implementations
// must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem with atomic whole-object writes
//   - MemoryStore: in-memory store for tests and ephemeral tables
//   - s3.Store: Amazon S3 with range reads and parallel multipart uploads
//   - minio.Store: MinIO and other S3-compatible object stores
//
// # Decorators
//
//   - CachingStore: read-through cache for immutable objects
//   - ThrottledStore: byte-rate limiting across readers and writers
//   - FaultyStore: latency/error injection for failure-path tests
//
// # Custom Implementations
//
// Implement the Store interface to support custom storage backends:
//
//	type Store interface {
//	    Open(ctx, name) (Blob, error)            // Streaming read
//	    Create(ctx, name) (WritableBlob, error)  // Streaming write
//	    Put(ctx, name, data) error               // Atomic whole-object write
//	    Stat(ctx, name) (ObjectInfo, error)      // Existence + size
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	    RemoveAll(ctx, prefix) error
//	}
//
// For cloud backends, implement ReadRange for efficient partial reads:
//
//	type Blob interface {
//	    ReadAt(ctx, p, off) (int, error)
//	    ReadRange(ctx, off, len) (io.ReadCloser, error)
//	    Size() int64
//	    Close() error
//	}
//
// Backend selection is configurable via Config (YAML), including cache and
// throttle decoration.
package blobstore
