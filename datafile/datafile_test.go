package datafile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/icemeta/blobstore"
	"github.com/hupe1980/icemeta/manifest"
)

type event struct {
	ID      int64   `parquet:"id"`
	Payload string  `parquet:"payload"`
	Score   float64 `parquet:"score"`
}

func TestWrite(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	rows := make([]event, 100)
	for i := range rows {
		rows[i] = event{ID: int64(i), Payload: "payload", Score: float64(i) / 2}
	}

	df, err := Write(ctx, store, "data/events-0.parquet", rows)
	require.NoError(t, err)

	assert.Equal(t, manifest.ContentTypeData, df.Content)
	assert.Equal(t, "data/events-0.parquet", df.FilePath)
	assert.Equal(t, manifest.FormatParquet, df.FileFormat)
	assert.Equal(t, int64(100), df.RecordCount)

	info, err := store.Stat(ctx, "data/events-0.parquet")
	require.NoError(t, err)
	assert.Equal(t, info.Size, df.FileSizeInBytes)

	// One stats entry per leaf column, keyed 1-based in column order.
	require.Len(t, df.ValueCounts, 3)
	assert.Equal(t, int64(100), df.ValueCounts[1])
	assert.Equal(t, int64(100), df.ValueCounts[2])
	assert.Positive(t, df.ColumnSizes[1])
	assert.Zero(t, df.NullValueCounts[1])

	require.NotEmpty(t, df.SplitOffsets)
	assert.Positive(t, df.SplitOffsets[0])
}

func TestWriteEmpty(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	df, err := Write(ctx, store, "data/empty.parquet", []event(nil))
	require.NoError(t, err)
	assert.Equal(t, int64(0), df.RecordCount)
	assert.Positive(t, df.FileSizeInBytes)
}

func TestWriteRecordFeedsManifest(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	df, err := Write(ctx, store, "data/events-1.parquet", []event{{ID: 1}})
	require.NoError(t, err)

	w, err := manifest.NewWriter(ctx, store, "metadata/m0.avro", manifest.ContentData, 5)
	require.NoError(t, err)
	require.NoError(t, w.Append(df, 1))
	row, err := w.Close()
	require.NoError(t, err)

	entries, err := manifest.ReadFile(ctx, store, row)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, df, entries[0].DataFile)
}
