package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/icemeta/blobstore"
)

// DDBClient is the DynamoDB API surface the commit store depends on.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// ErrConcurrentModification is returned when another publisher committed
// the same version first.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// defaultHintName matches the version-hint object of the table layout.
const defaultHintName = "metadata/version-hint.text"

// CommitStore wraps a store and keeps the table's version hint in
// DynamoDB, whose conditional writes give the hint swap the
// compare-and-swap semantics plain object stores lack. Every other
// object passes through to the wrapped store unchanged.
//
// Table schema: partition key base_uri (S), sort key version (N).
// Create it with:
//
//	aws dynamodb create-table \
//	  --table-name icemeta-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type CommitStore struct {
	inner     blobstore.Store
	ddb       DDBClient
	tableName string
	baseURI   string
	hintPath  string
}

// CommitStoreOption configures a CommitStore.
type CommitStoreOption func(*CommitStore)

// WithHintPath overrides the object name treated as the version hint.
func WithHintPath(path string) CommitStoreOption {
	return func(s *CommitStore) {
		s.hintPath = path
	}
}

// NewCommitStore wraps inner with a DynamoDB-backed version hint. baseURI
// namespaces the table's versions within the DynamoDB table, e.g.
// "s3://bucket/warehouse/events".
func NewCommitStore(inner blobstore.Store, ddb DDBClient, tableName, baseURI string, optFns ...CommitStoreOption) *CommitStore {
	s := &CommitStore{
		inner:     inner,
		ddb:       ddb,
		tableName: tableName,
		baseURI:   baseURI,
		hintPath:  defaultHintName,
	}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

// Open opens an object. Opening the version hint reads the latest
// committed version from DynamoDB.
func (s *CommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if name == s.hintPath {
		version, err := s.latestVersion(ctx)
		if err != nil {
			return nil, err
		}
		if version == 0 {
			return nil, fmt.Errorf("s3: open %s: %w", name, blobstore.ErrNotFound)
		}
		return &hintBlob{content: []byte(strconv.Itoa(version))}, nil
	}
	return s.inner.Open(ctx, name)
}

// Put writes an object. Writing the version hint commits the version
// through a DynamoDB conditional write; a lost race returns
// ErrConcurrentModification.
func (s *CommitStore) Put(ctx context.Context, name string, data []byte) error {
	if name == s.hintPath {
		version, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			return fmt.Errorf("s3: version hint must be a decimal version, got %q", string(data))
		}
		return s.commitVersion(ctx, version)
	}
	return s.inner.Put(ctx, name, data)
}

// Create opens an object for streaming writes. The version hint cannot
// be streamed; commit it with Put.
func (s *CommitStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	if name == s.hintPath {
		return nil, fmt.Errorf("s3: version hint %s only commits through Put", name)
	}
	return s.inner.Create(ctx, name)
}

// Stat reports an object's existence and size.
func (s *CommitStore) Stat(ctx context.Context, name string) (blobstore.ObjectInfo, error) {
	if name == s.hintPath {
		version, err := s.latestVersion(ctx)
		if err != nil {
			return blobstore.ObjectInfo{}, err
		}
		if version == 0 {
			return blobstore.ObjectInfo{}, fmt.Errorf("s3: stat %s: %w", name, blobstore.ErrNotFound)
		}
		return blobstore.ObjectInfo{Name: name, Size: int64(len(strconv.Itoa(version)))}, nil
	}
	return s.inner.Stat(ctx, name)
}

// Delete removes an object. Deleting the version hint clears the commit
// history for this table's base URI.
func (s *CommitStore) Delete(ctx context.Context, name string) error {
	if name == s.hintPath {
		return s.clearVersions(ctx)
	}
	return s.inner.Delete(ctx, name)
}

// List returns the wrapped store's objects. The version hint lives in
// DynamoDB and is not listed.
func (s *CommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// RemoveAll removes every object under prefix; a prefix covering the
// version hint also clears the commit history.
func (s *CommitStore) RemoveAll(ctx context.Context, prefix string) error {
	if strings.HasPrefix(s.hintPath, prefix) {
		if err := s.clearVersions(ctx); err != nil {
			return err
		}
	}
	return s.inner.RemoveAll(ctx, prefix)
}

// latestVersion returns the highest committed version, or 0 when none
// has been committed.
func (s *CommitStore) latestVersion(ctx context.Context) (int, error) {
	resp, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, fmt.Errorf("s3: query commit table: %w", err)
	}
	if len(resp.Items) == 0 {
		return 0, nil
	}

	attr, ok := resp.Items[0]["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, errors.New("s3: commit item has no numeric version")
	}
	version, err := strconv.Atoi(attr.Value)
	if err != nil {
		return 0, fmt.Errorf("s3: parse committed version: %w", err)
	}
	return version, nil
}

// commitVersion records a version with a conditional write, so exactly
// one of two racing publishers wins.
func (s *CommitStore) commitVersion(ctx context.Context, version int) error {
	_, err := s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri":        &types.AttributeValueMemberS{Value: s.baseURI},
			"version":         &types.AttributeValueMemberN{Value: strconv.Itoa(version)},
			"committed_at_ms": &types.AttributeValueMemberN{Value: strconv.FormatInt(time.Now().UnixMilli(), 10)},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("s3: commit version %d: %w", version, ErrConcurrentModification)
		}
		return fmt.Errorf("s3: commit version %d: %w", version, err)
	}
	return nil
}

func (s *CommitStore) clearVersions(ctx context.Context) error {
	resp, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.baseURI},
		},
	})
	if err != nil {
		return fmt.Errorf("s3: query commit table: %w", err)
	}

	for _, item := range resp.Items {
		_, err := s.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.tableName),
			Key: map[string]types.AttributeValue{
				"base_uri": item["base_uri"],
				"version":  item["version"],
			},
		})
		if err != nil {
			return fmt.Errorf("s3: clear commit history: %w", err)
		}
	}
	return nil
}

// hintBlob serves the version hint content resolved from DynamoDB.
type hintBlob struct {
	content []byte
}

func (b *hintBlob) Close() error {
	return nil
}

func (b *hintBlob) Size() int64 {
	return int64(len(b.content))
}

func (b *hintBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off >= int64(len(b.content)) {
		return 0, io.EOF
	}
	n := copy(p, b.content[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *hintBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if off >= int64(len(b.content)) {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	end := off + length
	if end > int64(len(b.content)) {
		end = int64(len(b.content))
	}
	return io.NopCloser(bytes.NewReader(b.content[off:end])), nil
}
