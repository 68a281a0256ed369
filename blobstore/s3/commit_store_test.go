package s3

import (
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/icemeta/blobstore"
	"github.com/hupe1980/icemeta/table"
)

// mockDDBClient implements DDBClient in memory with the conditional-write
// semantics the commit store relies on.
type mockDDBClient struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(item map[string]types.AttributeValue) string {
	uri := item["base_uri"].(*types.AttributeValueMemberS).Value
	version := item["version"].(*types.AttributeValueMemberN).Value
	return uri + ":" + version
}

func (m *mockDDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := itemKey(params.Item)
	if params.ConditionExpression != nil && strings.Contains(*params.ConditionExpression, "attribute_not_exists") {
		if _, exists := m.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}
		}
	}
	m.items[key] = params.Item

	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	uri := params.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value

	var matched []map[string]types.AttributeValue
	for _, item := range m.items {
		if item["base_uri"].(*types.AttributeValueMemberS).Value == uri {
			matched = append(matched, item)
		}
	}

	descending := params.ScanIndexForward != nil && !*params.ScanIndexForward
	sort.Slice(matched, func(i, j int) bool {
		vi, _ := strconv.Atoi(matched[i]["version"].(*types.AttributeValueMemberN).Value)
		vj, _ := strconv.Atoi(matched[j]["version"].(*types.AttributeValueMemberN).Value)
		if descending {
			return vi > vj
		}
		return vi < vj
	})

	if params.Limit != nil && len(matched) > int(*params.Limit) {
		matched = matched[:*params.Limit]
	}

	return &dynamodb.QueryOutput{Items: matched}, nil
}

func (m *mockDDBClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, itemKey(params.Key))

	return &dynamodb.DeleteItemOutput{}, nil
}

func newTestCommitStore(t *testing.T) (*CommitStore, *mockDDBClient) {
	t.Helper()

	ddb := newMockDDBClient()
	inner := blobstore.NewMemoryStore()

	return NewCommitStore(inner, ddb, "icemeta-commits", "s3://bucket/warehouse/events"), ddb
}

func TestCommitStoreHint(t *testing.T) {
	ctx := context.Background()
	hint := table.VersionHintPath()

	t.Run("NotFoundBeforeFirstCommit", func(t *testing.T) {
		store, _ := newTestCommitStore(t)

		_, err := store.Open(ctx, hint)
		require.ErrorIs(t, err, blobstore.ErrNotFound)

		_, err = store.Stat(ctx, hint)
		require.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("FirstCommit", func(t *testing.T) {
		store, _ := newTestCommitStore(t)

		require.NoError(t, store.Put(ctx, hint, []byte("1")))

		data, err := blobstore.ReadAll(ctx, store, hint)
		require.NoError(t, err)
		assert.Equal(t, "1", string(data))

		info, err := store.Stat(ctx, hint)
		require.NoError(t, err)
		assert.Equal(t, hint, info.Name)
		assert.Equal(t, int64(1), info.Size)
	})

	t.Run("ReadsLatestOfManyCommits", func(t *testing.T) {
		store, _ := newTestCommitStore(t)

		for v := 1; v <= 12; v++ {
			require.NoError(t, store.Put(ctx, hint, []byte(strconv.Itoa(v))))
		}

		data, err := blobstore.ReadAll(ctx, store, hint)
		require.NoError(t, err)
		assert.Equal(t, "12", string(data))
	})

	t.Run("RejectsDuplicateVersion", func(t *testing.T) {
		store, _ := newTestCommitStore(t)

		require.NoError(t, store.Put(ctx, hint, []byte("1")))
		err := store.Put(ctx, hint, []byte("1"))
		require.ErrorIs(t, err, ErrConcurrentModification)
	})

	t.Run("RejectsMalformedHint", func(t *testing.T) {
		store, _ := newTestCommitStore(t)

		err := store.Put(ctx, hint, []byte("not-a-version"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decimal version")
	})

	t.Run("CreateRefusesHint", func(t *testing.T) {
		store, _ := newTestCommitStore(t)

		_, err := store.Create(ctx, hint)
		require.Error(t, err)
	})

	t.Run("DeleteClearsHistory", func(t *testing.T) {
		store, _ := newTestCommitStore(t)

		require.NoError(t, store.Put(ctx, hint, []byte("1")))
		require.NoError(t, store.Put(ctx, hint, []byte("2")))
		require.NoError(t, store.Delete(ctx, hint))

		_, err := store.Open(ctx, hint)
		require.ErrorIs(t, err, blobstore.ErrNotFound)

		// History is gone, so version 1 can be committed again.
		require.NoError(t, store.Put(ctx, hint, []byte("1")))
	})

	t.Run("RemoveAllCoveringHintClearsHistory", func(t *testing.T) {
		store, _ := newTestCommitStore(t)

		require.NoError(t, store.Put(ctx, hint, []byte("1")))
		require.NoError(t, store.Put(ctx, "metadata/v1.metadata.json", []byte("{}")))
		require.NoError(t, store.RemoveAll(ctx, "metadata/"))

		_, err := store.Open(ctx, hint)
		require.ErrorIs(t, err, blobstore.ErrNotFound)

		names, err := store.List(ctx, "metadata/")
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}

func TestCommitStoreConcurrentCommits(t *testing.T) {
	ctx := context.Background()
	hint := table.VersionHintPath()
	store, _ := newTestCommitStore(t)

	const publishers = 5

	var wg sync.WaitGroup
	errs := make([]error, publishers)

	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Put(ctx, hint, []byte("1"))
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrConcurrentModification):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, publishers-1, conflicts)
}

func TestCommitStoreIsolatedNamespaces(t *testing.T) {
	ctx := context.Background()
	hint := table.VersionHintPath()

	ddb := newMockDDBClient()
	events := NewCommitStore(blobstore.NewMemoryStore(), ddb, "icemeta-commits", "s3://bucket/warehouse/events")
	orders := NewCommitStore(blobstore.NewMemoryStore(), ddb, "icemeta-commits", "s3://bucket/warehouse/orders")

	require.NoError(t, events.Put(ctx, hint, []byte("3")))
	require.NoError(t, orders.Put(ctx, hint, []byte("1")))

	data, err := blobstore.ReadAll(ctx, events, hint)
	require.NoError(t, err)
	assert.Equal(t, "3", string(data))

	data, err = blobstore.ReadAll(ctx, orders, hint)
	require.NoError(t, err)
	assert.Equal(t, "1", string(data))
}

func TestCommitStorePassthrough(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestCommitStore(t)

	require.NoError(t, store.Put(ctx, "metadata/v1.metadata.json", []byte("{}")))

	data, err := blobstore.ReadAll(ctx, store, "metadata/v1.metadata.json")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	w, err := store.Create(ctx, "data/part-0.parquet")
	require.NoError(t, err)
	_, err = w.Write([]byte("rows"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	info, err := store.Stat(ctx, "data/part-0.parquet")
	require.NoError(t, err)
	assert.Equal(t, int64(4), info.Size)

	names, err := store.List(ctx, "metadata/")
	require.NoError(t, err)
	assert.Equal(t, []string{"metadata/v1.metadata.json"}, names)

	require.NoError(t, store.Delete(ctx, "data/part-0.parquet"))
	_, err = store.Open(ctx, "data/part-0.parquet")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestCommitStorePublish(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestCommitStore(t)

	meta := table.New("s3://bucket/warehouse/events")
	require.NoError(t, table.Publish(ctx, store, meta, 1))

	loaded, version, err := table.LoadCurrent(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.Equal(t, meta.TableUUID, loaded.TableUUID)

	// Racing publishers of the same version: the loser must not move the
	// hint or clobber the winner's metadata pointer.
	require.NoError(t, table.Publish(ctx, store, meta, 2))
	err = table.Publish(ctx, store, meta, 2)
	require.ErrorIs(t, err, ErrConcurrentModification)

	_, version, err = table.LoadCurrent(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestCommitStoreHintPathOption(t *testing.T) {
	ctx := context.Background()

	ddb := newMockDDBClient()
	store := NewCommitStore(blobstore.NewMemoryStore(), ddb, "icemeta-commits", "s3://bucket/t",
		WithHintPath("custom/HEAD"))

	require.NoError(t, store.Put(ctx, "metadata/version-hint.text", []byte("ignored")))
	require.NoError(t, store.Put(ctx, "custom/HEAD", []byte("7")))

	data, err := blobstore.ReadAll(ctx, store, "custom/HEAD")
	require.NoError(t, err)
	assert.Equal(t, "7", string(data))

	// The default hint name passed through to the wrapped store untouched.
	data, err = blobstore.ReadAll(ctx, store, "metadata/version-hint.text")
	require.NoError(t, err)
	assert.Equal(t, "ignored", string(data))
}

func TestHintBlobReads(t *testing.T) {
	ctx := context.Background()
	blob := &hintBlob{content: []byte("1234")}

	t.Run("Size", func(t *testing.T) {
		assert.Equal(t, int64(4), blob.Size())
	})

	t.Run("ReadAt", func(t *testing.T) {
		p := make([]byte, 2)
		n, err := blob.ReadAt(ctx, p, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, "23", string(p))

		n, err = blob.ReadAt(ctx, p, 3)
		require.ErrorIs(t, err, io.EOF)
		assert.Equal(t, 1, n)

		_, err = blob.ReadAt(ctx, p, 9)
		require.ErrorIs(t, err, io.EOF)
	})

	t.Run("ReadRange", func(t *testing.T) {
		r, err := blob.ReadRange(ctx, 1, 2)
		require.NoError(t, err)
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		assert.Equal(t, "23", string(data))

		r, err = blob.ReadRange(ctx, 2, 100)
		require.NoError(t, err)
		data, err = io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "34", string(data))
	})
}
