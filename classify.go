package icemeta

import (
	"github.com/hupe1980/icemeta/manifest"
)

// EntryKind is what a manifest entry tracks, decided solely by the pair
// (manifest content kind, entry file format).
type EntryKind uint8

const (
	// KindPrimaryData is a columnar data file in a data manifest.
	KindPrimaryData EntryKind = iota
	// KindSecondaryIndex is an index archive in a data manifest.
	KindSecondaryIndex
	// KindDeletionVector is a deletion-vector archive entry in a
	// deletes manifest.
	KindDeletionVector
)

func (k EntryKind) String() string {
	switch k {
	case KindPrimaryData:
		return "primary-data"
	case KindSecondaryIndex:
		return "secondary-index"
	case KindDeletionVector:
		return "deletion-vector"
	default:
		return "unknown"
	}
}

// Classify maps a manifest's content kind and an entry's file format to
// the kind of file the entry tracks:
//
//	data    × parquet/orc → primary data
//	data    × puffin      → secondary index
//	deletes × puffin      → deletion vector
//
// Any other pair is an inconsistent manifest; the classifier never
// guesses.
func Classify(content manifest.Content, format manifest.FileFormat) (EntryKind, error) {
	switch content {
	case manifest.ContentData:
		switch format {
		case manifest.FormatParquet, manifest.FormatOrc:
			return KindPrimaryData, nil
		case manifest.FormatPuffin:
			return KindSecondaryIndex, nil
		}
	case manifest.ContentDeletes:
		if format == manifest.FormatPuffin {
			return KindDeletionVector, nil
		}
	}
	return 0, &InconsistentManifestError{Content: content, Format: format}
}
