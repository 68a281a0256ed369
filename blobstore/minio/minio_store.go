package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/icemeta/blobstore"
)

// Store implements blobstore.Store on MinIO and other S3-compatible
// object stores reachable through the MinIO client.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPrefix prepends a root prefix to every key, isolating a table from
// other objects in the bucket.
func WithPrefix(prefix string) StoreOption {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a MinIO store on the given bucket.
func New(client *minio.Client, bucket string, optFns ...StoreOption) *Store {
	s := &Store{
		client: client,
		bucket: bucket,
	}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

// FromConfig builds a MinIO store from a blobstore.Config and applies the
// configured decorators.
func FromConfig(_ context.Context, cfg blobstore.Config) (blobstore.Store, error) {
	if cfg.Backend != blobstore.BackendMinIO {
		return nil, fmt.Errorf("minio: config backend is %q", cfg.Backend)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: create client: %w", err)
	}

	return blobstore.Decorate(New(client, cfg.Bucket, WithPrefix(cfg.Prefix)), cfg)
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Open opens an object for reading.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)

	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("minio: open %s: %w", name, blobstore.ErrNotFound)
		}
		return nil, fmt.Errorf("minio: open %s: %w", name, err)
	}

	return &minioBlob{
		client: s.client,
		bucket: s.bucket,
		key:    key,
		size:   info.Size,
	}, nil
}

// Put writes a whole object in one request.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("minio: put %s: %w", name, err)
	}
	return nil
}

// Create opens an object for streaming writes. Bytes stream to the server
// as they are written; the object becomes visible on Close.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	pr, pw := io.Pipe()

	blob := &minioWritableBlob{
		pw:   pw,
		done: make(chan error, 1),
	}

	go func() {
		// Size -1 streams with multipart uploads of unknown length.
		_, err := s.client.PutObject(ctx, s.bucket, s.key(name), pr, -1, minio.PutObjectOptions{})
		_ = pr.CloseWithError(err)
		blob.done <- err
	}()

	return blob, nil
}

// Stat reports an object's existence and size.
func (s *Store) Stat(ctx context.Context, name string) (blobstore.ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, s.key(name), minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return blobstore.ObjectInfo{}, fmt.Errorf("minio: stat %s: %w", name, blobstore.ErrNotFound)
		}
		return blobstore.ObjectInfo{}, fmt.Errorf("minio: stat %s: %w", name, err)
	}
	return blobstore.ObjectInfo{Name: name, Size: info.Size}, nil
}

// Delete removes an object. Removing a missing object succeeds.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("minio: delete %s: %w", name, err)
	}
	return nil
}

// List returns the names of all objects under prefix, relative to the
// store root, sorted ascending.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string

	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.key(prefix),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("minio: list %s: %w", prefix, obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, s.prefix)
		name = strings.TrimPrefix(name, "/")
		if name != "" {
			names = append(names, name)
		}
	}

	sort.Strings(names)
	return names, nil
}

// RemoveAll deletes every object under prefix through the bulk removal
// API.
func (s *Store) RemoveAll(ctx context.Context, prefix string) error {
	names, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}

	objects := make(chan minio.ObjectInfo, len(names))
	for _, name := range names {
		objects <- minio.ObjectInfo{Key: s.key(name)}
	}
	close(objects)

	for rerr := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil {
			return fmt.Errorf("minio: remove %s: %w", rerr.ObjectName, rerr.Err)
		}
	}
	return nil
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

// minioBlob reads object ranges with per-request range options.
type minioBlob struct {
	client *minio.Client
	bucket string
	key    string
	size   int64
}

func (b *minioBlob) Size() int64 {
	return b.size
}

func (b *minioBlob) Close() error {
	return nil
}

// ReadAt reads len(p) bytes starting at offset off.
func (b *minioBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off >= b.size {
		return 0, io.EOF
	}

	end := off + int64(len(p)) - 1
	if end >= b.size {
		end = b.size - 1
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return 0, err
	}

	obj, err := b.client.GetObject(ctx, b.bucket, b.key, opts)
	if err != nil {
		return 0, err
	}
	defer func() { _ = obj.Close() }()

	n, err := io.ReadFull(obj, p[:end-off+1])
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return n, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// ReadRange returns a reader over [off, off+length), truncated at the end
// of the object.
func (b *minioBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if off >= b.size {
		return nil, io.EOF
	}

	end := off + length - 1
	if end >= b.size {
		end = b.size - 1
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return nil, err
	}

	obj, err := b.client.GetObject(ctx, b.bucket, b.key, opts)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// errUploadAborted marks a pipe closed by Abort rather than a write
// failure.
var errUploadAborted = errors.New("minio: upload aborted")

// minioWritableBlob pipes writes into a background streaming upload.
type minioWritableBlob struct {
	pw       *io.PipeWriter
	done     chan error
	finished atomic.Bool
}

func (b *minioWritableBlob) Write(p []byte) (int, error) {
	if b.finished.Load() {
		return 0, io.ErrClosedPipe
	}
	return b.pw.Write(p)
}

// Close signals EOF to the upload and waits for it to commit.
func (b *minioWritableBlob) Close() error {
	if !b.finished.CompareAndSwap(false, true) {
		return nil
	}
	if err := b.pw.Close(); err != nil {
		return err
	}
	return <-b.done
}

// Abort discards an in-progress upload.
func (b *minioWritableBlob) Abort() error {
	if !b.finished.CompareAndSwap(false, true) {
		return nil
	}
	_ = b.pw.CloseWithError(errUploadAborted)
	<-b.done
	return nil
}

// Sync is a no-op; uploads commit on Close.
func (b *minioWritableBlob) Sync() error {
	return nil
}
