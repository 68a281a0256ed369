package icemeta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/icemeta/manifest"
)

func dvEntry(archive, referenced string, seq int64) manifest.Entry {
	return manifest.Entry{
		Status:         manifest.StatusAdded,
		SnapshotID:     1,
		SequenceNumber: seq,
		DataFile: manifest.DataFile{
			Content:            manifest.ContentTypePositionDeletes,
			FilePath:           archive,
			FileFormat:         manifest.FormatPuffin,
			ReferencedDataFile: referenced,
		},
	}
}

func TestReconcilerObserveExisting(t *testing.T) {
	t.Run("Keeps", func(t *testing.T) {
		r := newDVReconciler(nil)

		kept, err := r.observeExisting(dvEntry("metadata/dv1.puffin", "data/a.parquet", 3))
		require.NoError(t, err)
		assert.True(t, kept)

		records := r.drain()
		require.Len(t, records, 1)
		assert.Equal(t, "metadata/dv1.puffin", records[0].file.FilePath)
		assert.Equal(t, int64(3), records[0].seq)
	})

	t.Run("DropsRemoved", func(t *testing.T) {
		r := newDVReconciler(map[string]struct{}{"data/a.parquet": {}})

		kept, err := r.observeExisting(dvEntry("metadata/dv1.puffin", "data/a.parquet", 3))
		require.NoError(t, err)
		assert.False(t, kept)
		assert.Empty(t, r.drain())
	})

	t.Run("RejectsDuplicate", func(t *testing.T) {
		r := newDVReconciler(nil)

		_, err := r.observeExisting(dvEntry("metadata/dv1.puffin", "data/a.parquet", 3))
		require.NoError(t, err)

		_, err = r.observeExisting(dvEntry("metadata/dv2.puffin", "data/a.parquet", 4))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDuplicateDeletionVector)

		var dup *DuplicateDeletionVectorError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "data/a.parquet", dup.ReferencedDataFile)
		assert.Equal(t, "metadata/dv1.puffin", dup.FirstEntry)
		assert.Equal(t, "metadata/dv2.puffin", dup.SecondEntry)
	})
}

func TestReconcilerApplyAddition(t *testing.T) {
	t.Run("SupersedesExisting", func(t *testing.T) {
		r := newDVReconciler(nil)

		_, err := r.observeExisting(dvEntry("metadata/old.puffin", "data/a.parquet", 3))
		require.NoError(t, err)

		df := manifest.DataFile{
			Content:            manifest.ContentTypePositionDeletes,
			FilePath:           "metadata/new.puffin",
			FileFormat:         manifest.FormatPuffin,
			ReferencedDataFile: "data/a.parquet",
		}
		assert.True(t, r.applyAddition("data/a.parquet", df, 9))

		records := r.drain()
		require.Len(t, records, 1)
		assert.Equal(t, "metadata/new.puffin", records[0].file.FilePath)
		assert.Equal(t, int64(9), records[0].seq)
	})

	t.Run("DropsRemoved", func(t *testing.T) {
		r := newDVReconciler(map[string]struct{}{"data/a.parquet": {}})

		df := manifest.DataFile{ReferencedDataFile: "data/a.parquet"}
		assert.False(t, r.applyAddition("data/a.parquet", df, 9))
		assert.Empty(t, r.drain())
	})

	t.Run("AdditionThenSupersede", func(t *testing.T) {
		r := newDVReconciler(nil)

		first := manifest.DataFile{FilePath: "metadata/dv1.puffin", ReferencedDataFile: "data/a.parquet"}
		second := manifest.DataFile{FilePath: "metadata/dv2.puffin", ReferencedDataFile: "data/a.parquet"}
		assert.True(t, r.applyAddition("data/a.parquet", first, 8))
		assert.True(t, r.applyAddition("data/a.parquet", second, 9))

		records := r.drain()
		require.Len(t, records, 1)
		assert.Equal(t, "metadata/dv2.puffin", records[0].file.FilePath)
	})
}

func TestReconcilerDrainOrder(t *testing.T) {
	r := newDVReconciler(nil)

	_, err := r.observeExisting(dvEntry("metadata/dv-c.puffin", "data/c.parquet", 1))
	require.NoError(t, err)
	_, err = r.observeExisting(dvEntry("metadata/dv-a.puffin", "data/a.parquet", 1))
	require.NoError(t, err)
	_, err = r.observeExisting(dvEntry("metadata/dv-b.puffin", "data/b.parquet", 1))
	require.NoError(t, err)

	records := r.drain()
	require.Len(t, records, 3)
	assert.Equal(t, "data/a.parquet", records[0].file.ReferencedDataFile)
	assert.Equal(t, "data/b.parquet", records[1].file.ReferencedDataFile)
	assert.Equal(t, "data/c.parquet", records[2].file.ReferencedDataFile)
}
