package icemeta

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/icemeta/dv"
	"github.com/hupe1980/icemeta/manifest"
	"github.com/hupe1980/icemeta/puffin"
)

func TestIndexFileRecord(t *testing.T) {
	blob := puffin.BlobMetadata{
		Type:           BlobTypeHashIndexV1,
		SnapshotID:     7,
		SequenceNumber: 3,
		Offset:         4,
		Length:         256,
		Properties:     map[string]string{PropertyCardinality: "1500"},
	}

	df, err := IndexFileRecord("metadata/index.puffin", blob)
	require.NoError(t, err)

	assert.Equal(t, manifest.ContentTypeData, df.Content)
	assert.Equal(t, "metadata/index.puffin", df.FilePath)
	assert.Equal(t, manifest.FormatPuffin, df.FileFormat)
	assert.Equal(t, int64(1500), df.RecordCount)
	assert.Zero(t, df.FileSizeInBytes)
	assert.Empty(t, df.ReferencedDataFile)
	assert.Nil(t, df.ContentOffset)
	assert.Nil(t, df.ContentSizeInBytes)
}

func TestIndexFileRecordMalformed(t *testing.T) {
	t.Run("WrongType", func(t *testing.T) {
		blob := puffin.BlobMetadata{Type: "apache-datasketches-theta-v1"}

		_, err := IndexFileRecord("metadata/index.puffin", blob)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedBlob)
	})

	t.Run("MissingCardinality", func(t *testing.T) {
		blob := puffin.BlobMetadata{Type: BlobTypeHashIndexV1}

		_, err := IndexFileRecord("metadata/index.puffin", blob)
		require.Error(t, err)

		var mbe *MalformedBlobError
		require.True(t, errors.As(err, &mbe))
		assert.Equal(t, PropertyCardinality, mbe.Property)
	})

	t.Run("NonNumericCardinality", func(t *testing.T) {
		blob := puffin.BlobMetadata{
			Type:       BlobTypeHashIndexV1,
			Properties: map[string]string{PropertyCardinality: "many"},
		}

		_, err := IndexFileRecord("metadata/index.puffin", blob)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedBlob)
		assert.Contains(t, err.Error(), "many")
	})
}

func TestDeletionVectorFileRecord(t *testing.T) {
	blob := puffin.BlobMetadata{
		Type:           dv.BlobType,
		SnapshotID:     7,
		SequenceNumber: 3,
		Offset:         128,
		Length:         64,
		Properties: map[string]string{
			dv.PropertyReferencedDataFile: "data/a.parquet",
			dv.PropertyCardinality:        "10",
		},
	}

	ref, df, err := DeletionVectorFileRecord("metadata/dv.puffin", blob)
	require.NoError(t, err)

	assert.Equal(t, "data/a.parquet", ref)
	assert.Equal(t, manifest.ContentTypePositionDeletes, df.Content)
	assert.Equal(t, "metadata/dv.puffin", df.FilePath)
	assert.Equal(t, manifest.FormatPuffin, df.FileFormat)
	assert.Equal(t, int64(10), df.RecordCount)
	assert.Zero(t, df.FileSizeInBytes)
	assert.Equal(t, "data/a.parquet", df.ReferencedDataFile)

	require.NotNil(t, df.ContentOffset)
	require.NotNil(t, df.ContentSizeInBytes)
	assert.Equal(t, blob.Offset, *df.ContentOffset)
	assert.Equal(t, blob.Length, *df.ContentSizeInBytes)
}

func TestDeletionVectorFileRecordMalformed(t *testing.T) {
	t.Run("WrongType", func(t *testing.T) {
		blob := puffin.BlobMetadata{Type: BlobTypeHashIndexV1}

		_, _, err := DeletionVectorFileRecord("metadata/dv.puffin", blob)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedBlob)
	})

	t.Run("MissingReferencedDataFile", func(t *testing.T) {
		blob := puffin.BlobMetadata{
			Type:       dv.BlobType,
			Properties: map[string]string{dv.PropertyCardinality: "10"},
		}

		_, _, err := DeletionVectorFileRecord("metadata/dv.puffin", blob)
		require.Error(t, err)

		var mbe *MalformedBlobError
		require.True(t, errors.As(err, &mbe))
		assert.Equal(t, dv.PropertyReferencedDataFile, mbe.Property)
		assert.Equal(t, "metadata/dv.puffin", mbe.Archive)
	})

	t.Run("MissingCardinality", func(t *testing.T) {
		blob := puffin.BlobMetadata{
			Type:       dv.BlobType,
			Properties: map[string]string{dv.PropertyReferencedDataFile: "data/a.parquet"},
		}

		_, _, err := DeletionVectorFileRecord("metadata/dv.puffin", blob)
		require.Error(t, err)

		var mbe *MalformedBlobError
		require.True(t, errors.As(err, &mbe))
		assert.Equal(t, dv.PropertyCardinality, mbe.Property)
	})
}
