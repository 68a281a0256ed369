package icemeta

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/icemeta/manifest"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		content manifest.Content
		format  manifest.FileFormat
		kind    EntryKind
	}{
		{"DataParquet", manifest.ContentData, manifest.FormatParquet, KindPrimaryData},
		{"DataOrc", manifest.ContentData, manifest.FormatOrc, KindPrimaryData},
		{"DataPuffin", manifest.ContentData, manifest.FormatPuffin, KindSecondaryIndex},
		{"DeletesPuffin", manifest.ContentDeletes, manifest.FormatPuffin, KindDeletionVector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := Classify(tt.content, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestClassifyInconsistent(t *testing.T) {
	tests := []struct {
		name    string
		content manifest.Content
		format  manifest.FileFormat
	}{
		{"DataAvro", manifest.ContentData, manifest.FormatAvro},
		{"DeletesParquet", manifest.ContentDeletes, manifest.FormatParquet},
		{"DeletesOrc", manifest.ContentDeletes, manifest.FormatOrc},
		{"DeletesAvro", manifest.ContentDeletes, manifest.FormatAvro},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(tt.content, tt.format)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInconsistentManifest)

			var ime *InconsistentManifestError
			require.True(t, errors.As(err, &ime))
			assert.Equal(t, tt.content, ime.Content)
			assert.Equal(t, tt.format, ime.Format)
		})
	}
}

func TestEntryKindString(t *testing.T) {
	assert.Equal(t, "primary-data", KindPrimaryData.String())
	assert.Equal(t, "secondary-index", KindSecondaryIndex.String())
	assert.Equal(t, "deletion-vector", KindDeletionVector.String())
}
