package minio

import (
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/icemeta/blobstore"
)

func TestFromConfigRejectsOtherBackends(t *testing.T) {
	_, err := FromConfig(context.Background(), blobstore.Config{
		Backend: blobstore.BackendS3,
		Bucket:  "b",
	})
	require.Error(t, err)
}

// TestIntegrationMinioStore requires a running MinIO instance on
// localhost:9000 with the default credentials. Skips otherwise.
func TestIntegrationMinioStore(t *testing.T) {
	endpoint := "localhost:9000"
	bucket := "test-icemeta"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := New(client, bucket, WithPrefix("test-prefix"))

	t.Cleanup(func() {
		_ = store.RemoveAll(ctx, "")
	})

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "metadata/test.txt", data))

	t.Run("OpenAndReadAt", func(t *testing.T) {
		blob, err := store.Open(ctx, "metadata/test.txt")
		require.NoError(t, err)
		require.Equal(t, int64(len(data)), blob.Size())

		buf := make([]byte, len(data))
		n, err := blob.ReadAt(ctx, buf, 0)
		require.NoError(t, err)
		require.Equal(t, len(data), n)
		require.Equal(t, data, buf)
		require.NoError(t, blob.Close())
	})

	t.Run("ReadRange", func(t *testing.T) {
		blob, err := store.Open(ctx, "metadata/test.txt")
		require.NoError(t, err)

		rc, err := blob.ReadRange(ctx, 6, 5)
		require.NoError(t, err)
		buf := make([]byte, 5)
		_, err = rc.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, "minio", string(buf))
		require.NoError(t, rc.Close())
		require.NoError(t, blob.Close())
	})

	t.Run("Stat", func(t *testing.T) {
		info, err := store.Stat(ctx, "metadata/test.txt")
		require.NoError(t, err)
		assert.Equal(t, "metadata/test.txt", info.Name)
		assert.Equal(t, int64(len(data)), info.Size)

		_, err = store.Stat(ctx, "metadata/missing.txt")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("List", func(t *testing.T) {
		names, err := store.List(ctx, "metadata")
		require.NoError(t, err)
		assert.Contains(t, names, "metadata/test.txt")
	})

	t.Run("CreateStreaming", func(t *testing.T) {
		wb, err := store.Create(ctx, "metadata/stream.txt")
		require.NoError(t, err)
		_, err = wb.Write([]byte("streamed data"))
		require.NoError(t, err)
		require.NoError(t, wb.Close())

		blob, err := store.Open(ctx, "metadata/stream.txt")
		require.NoError(t, err)
		assert.Equal(t, int64(13), blob.Size())
		require.NoError(t, blob.Close())
	})

	t.Run("DeleteAndNotFound", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "metadata/stream.txt"))
		_, err := store.Open(ctx, "metadata/stream.txt")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)

		// Deletes are idempotent.
		require.NoError(t, store.Delete(ctx, "metadata/stream.txt"))
	})

	t.Run("RemoveAll", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "tmp/a", []byte("a")))
		require.NoError(t, store.Put(ctx, "tmp/b", []byte("b")))
		require.NoError(t, store.RemoveAll(ctx, "tmp/"))

		names, err := store.List(ctx, "tmp/")
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}
