package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/icemeta/blobstore"
)

// Client is the S3 API surface the store depends on. *s3.Client satisfies
// it; tests substitute a mock.
type Client interface {
	manager.UploadAPIClient

	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

const (
	// deleteBatchSize is the DeleteObjects request limit.
	deleteBatchSize = 1000

	// removeAllConcurrency bounds parallel delete batches.
	removeAllConcurrency = 4
)

// Store implements blobstore.Store on S3.
type Store struct {
	client Client
	bucket string
	prefix string
	upload UploadConfig
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

// WithUploadConfig overrides the default upload settings.
func WithUploadConfig(cfg UploadConfig) StoreOption {
	return func(s *Store) {
		s.upload = cfg
	}
}

// New creates an S3 store on the given bucket.
func New(client Client, bucket string, optFns ...StoreOption) *Store {
	s := &Store{
		client: client,
		bucket: bucket,
		upload: DefaultUploadConfig(),
	}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

// FromConfig builds an S3 store from a blobstore.Config and applies the
// configured decorators. AWS credentials resolve through the default
// chain unless the config carries static keys.
func FromConfig(ctx context.Context, cfg blobstore.Config) (blobstore.Store, error) {
	if cfg.Backend != blobstore.BackendS3 {
		return nil, fmt.Errorf("s3: config backend is %q", cfg.Backend)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return blobstore.Decorate(New(client, cfg.Bucket, WithPrefix(cfg.Prefix)), cfg)
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Open opens an object for reading.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3: open %s: %w", name, blobstore.ErrNotFound)
		}
		return nil, fmt.Errorf("s3: open %s: %w", name, err)
	}

	return &s3Blob{
		client: s.client,
		bucket: s.bucket,
		key:    key,
		size:   aws.ToInt64(head.ContentLength),
	}, nil
}

// Create opens an object for streaming writes. Bytes stream to S3 through
// a multipart upload as they are written; the object becomes visible on
// Close.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	uploader := newUploader(s.client, s.upload)
	return newStreamingWritableBlob(ctx, s.client, uploader, s.bucket, s.key(name), s.upload.EnableChecksum), nil
}

// Put writes a whole object in one request, with CRC32C validation when
// checksums are enabled.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	key := s.key(name)

	if s.upload.EnableChecksum {
		return putWithChecksum(ctx, s.client, s.bucket, key, data)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("s3: put %s: %w", name, err)
	}
	return nil
}

// Stat reports an object's existence and size.
func (s *Store) Stat(ctx context.Context, name string) (blobstore.ObjectInfo, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return blobstore.ObjectInfo{}, fmt.Errorf("s3: stat %s: %w", name, blobstore.ErrNotFound)
		}
		return blobstore.ObjectInfo{}, fmt.Errorf("s3: stat %s: %w", name, err)
	}
	return blobstore.ObjectInfo{Name: name, Size: aws.ToInt64(head.ContentLength)}, nil
}

// Delete removes an object. S3 deletes are idempotent, so removing a
// missing object succeeds.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return fmt.Errorf("s3: delete %s: %w", name, err)
	}
	return nil
}

// List returns the names of all objects under prefix, relative to the
// store root, sorted ascending.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.key(prefix)),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3: list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			names = append(names, s.trimPrefix(aws.ToString(obj.Key)))
		}
	}
	sort.Strings(names)
	return names, nil
}

// RemoveAll deletes every object under prefix, batching deletions and
// running batches concurrently.
func (s *Store) RemoveAll(ctx context.Context, prefix string) error {
	names, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(removeAllConcurrency)

	for start := 0; start < len(names); start += deleteBatchSize {
		batch := names[start:min(start+deleteBatchSize, len(names))]
		g.Go(func() error {
			objects := make([]types.ObjectIdentifier, len(batch))
			for i, name := range batch {
				objects[i] = types.ObjectIdentifier{Key: aws.String(s.key(name))}
			}
			out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(s.bucket),
				Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
			})
			if err != nil {
				return fmt.Errorf("s3: remove %s: %w", prefix, err)
			}
			for _, derr := range out.Errors {
				return fmt.Errorf("s3: remove %s: %s", aws.ToString(derr.Key), aws.ToString(derr.Message))
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Store) trimPrefix(key string) string {
	if s.prefix == "" {
		return key
	}
	rel := key
	if len(rel) > len(s.prefix) && rel[:len(s.prefix)] == s.prefix {
		rel = rel[len(s.prefix):]
		if len(rel) > 0 && rel[0] == '/' {
			rel = rel[1:]
		}
	}
	return rel
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}

// s3Blob reads object ranges with per-request Range headers.
type s3Blob struct {
	client Client
	bucket string
	key    string
	size   int64
}

func (b *s3Blob) Close() error {
	return nil
}

func (b *s3Blob) Size() int64 {
	return b.size
}

// ReadAt reads len(p) bytes starting at offset off.
func (b *s3Blob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off >= b.size {
		return 0, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	end := off + int64(len(p)) - 1
	if end >= b.size {
		end = b.size - 1
	}

	resp, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
	})
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	n, err := io.ReadFull(resp.Body, p)
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
func (b *s3Blob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if off >= b.size {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	end := off + length - 1
	if end >= b.size {
		end = b.size - 1
	}

	resp, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
