package puffin

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/icemeta/blobstore"
)

func writeArchive(t *testing.T, store blobstore.Store, name string, blobs ...Blob) []BlobMetadata {
	t.Helper()
	ctx := context.Background()

	w, err := store.Create(ctx, name)
	require.NoError(t, err)

	pw := NewWriter(w, WithFileProperties(map[string]string{"created-by": "icemeta-test"}))
	metas := make([]BlobMetadata, 0, len(blobs))
	for _, blob := range blobs {
		meta, err := pw.Add(blob)
		require.NoError(t, err)
		metas = append(metas, meta)
	}
	require.NoError(t, pw.Close())
	require.NoError(t, w.Close())
	return metas
}

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	payloads := [][]byte{
		[]byte("first blob payload"),
		bytes.Repeat([]byte("abcd1234"), 512),
		{},
	}

	written := writeArchive(t, store, "metadata/archive.puffin",
		Blob{
			Type:           "hash-index-v1",
			Fields:         []int32{1, 2},
			SnapshotID:     7,
			SequenceNumber: 3,
			Properties:     map[string]string{"cardinality": "100"},
			Data:           payloads[0],
		},
		Blob{
			Type:           "deletion-vector-v1",
			SnapshotID:     7,
			SequenceNumber: 3,
			Compression:    CompressionZstd,
			Properties: map[string]string{
				"referenced-data-file": "data/b.parquet",
				"cardinality":          "10",
			},
			Data: payloads[1],
		},
		Blob{
			Type: "empty-v1",
			Data: payloads[2],
		},
	)

	r, err := Open(ctx, store, "metadata/archive.puffin")
	require.NoError(t, err)
	defer func() { require.NoError(t, r.Close()) }()

	parsed := r.Blobs()
	require.Len(t, parsed, 3)

	// The footer must carry exactly what Add returned.
	assert.Equal(t, written, parsed)
	assert.Equal(t, map[string]string{"created-by": "icemeta-test"}, r.Properties())

	for i, meta := range parsed {
		data, err := r.ReadBlob(ctx, meta)
		require.NoError(t, err)
		assert.Equal(t, payloads[i], data, "blob %d", i)
	}

	// Blobs are laid out back to back after the header.
	assert.Equal(t, int64(4), parsed[0].Offset)
	assert.Equal(t, parsed[0].Offset+parsed[0].Length, parsed[1].Offset)
}

func TestCompressionCodecs(t *testing.T) {
	ctx := context.Background()
	payload := bytes.Repeat([]byte("compressible content "), 1024)

	for _, comp := range []CompressionCodec{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(string(comp)+"_codec", func(t *testing.T) {
			store := blobstore.NewMemoryStore()
			metas := writeArchive(t, store, "a.puffin", Blob{
				Type:        "hash-index-v1",
				Compression: comp,
				Data:        payload,
			})

			if comp != CompressionNone {
				assert.Less(t, metas[0].Length, int64(len(payload)))
			}

			r, err := Open(ctx, store, "a.puffin")
			require.NoError(t, err)
			defer func() { require.NoError(t, r.Close()) }()

			data, err := r.ReadBlob(ctx, r.Blobs()[0])
			require.NoError(t, err)
			assert.Equal(t, payload, data)
		})
	}
}

func TestUnsupportedCodec(t *testing.T) {
	pw := NewWriter(&bytes.Buffer{})
	_, err := pw.Add(Blob{Type: "x", Compression: "snappy", Data: []byte("y")})
	require.ErrorIs(t, err, ErrUnsupportedCodec)
}

func TestEmptyArchive(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	writeArchive(t, store, "empty.puffin")

	r, err := Open(ctx, store, "empty.puffin")
	require.NoError(t, err)
	defer func() { require.NoError(t, r.Close()) }()

	assert.Empty(t, r.Blobs())
}

func TestAddAfterClose(t *testing.T) {
	pw := NewWriter(&bytes.Buffer{})
	require.NoError(t, pw.Close())

	_, err := pw.Add(Blob{Type: "x", Data: []byte("y")})
	require.ErrorIs(t, err, ErrWriterClosed)
}

func TestOpenRejectsCorruptArchives(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	t.Run("too short", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "short.bin", []byte("PFA1")))
		_, err := Open(ctx, store, "short.bin")
		require.ErrorIs(t, err, ErrInvalidArchive)
	})

	t.Run("bad header magic", func(t *testing.T) {
		writeArchive(t, store, "ok.puffin")
		data, err := blobstore.ReadAll(ctx, store, "ok.puffin")
		require.NoError(t, err)

		data[0] = 'X'
		require.NoError(t, store.Put(ctx, "bad-header.puffin", data))
		_, err = Open(ctx, store, "bad-header.puffin")
		require.ErrorIs(t, err, ErrInvalidArchive)
	})

	t.Run("bad footer magic", func(t *testing.T) {
		writeArchive(t, store, "ok2.puffin")
		data, err := blobstore.ReadAll(ctx, store, "ok2.puffin")
		require.NoError(t, err)

		data[len(data)-1] = 'X'
		require.NoError(t, store.Put(ctx, "bad-footer.puffin", data))
		_, err = Open(ctx, store, "bad-footer.puffin")
		require.ErrorIs(t, err, ErrInvalidArchive)
	})

	t.Run("oversized payload length", func(t *testing.T) {
		writeArchive(t, store, "ok3.puffin")
		data, err := blobstore.ReadAll(ctx, store, "ok3.puffin")
		require.NoError(t, err)

		// Footer tail starts 12 bytes from the end; corrupt the payload size.
		data[len(data)-12] = 0xFF
		data[len(data)-11] = 0xFF
		require.NoError(t, store.Put(ctx, "bad-size.puffin", data))
		_, err = Open(ctx, store, "bad-size.puffin")
		require.ErrorIs(t, err, ErrInvalidArchive)
	})
}

func TestReadBlobOutOfBounds(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	writeArchive(t, store, "a.puffin", Blob{Type: "x", Data: []byte("payload")})

	r, err := Open(ctx, store, "a.puffin")
	require.NoError(t, err)
	defer func() { require.NoError(t, r.Close()) }()

	_, err = r.ReadBlob(ctx, BlobMetadata{Offset: 4, Length: 1 << 20})
	require.ErrorIs(t, err, ErrInvalidArchive)
}
