package icemeta

import (
	"strconv"

	"github.com/hupe1980/icemeta/dv"
	"github.com/hupe1980/icemeta/manifest"
	"github.com/hupe1980/icemeta/puffin"
)

// BlobTypeHashIndexV1 tags secondary-index blobs in archive footers.
const BlobTypeHashIndexV1 = "hash-index-v1"

// PropertyCardinality is the blob property carrying an index blob's
// entry count as a decimal string.
const PropertyCardinality = "cardinality"

// IndexFileRecord builds the manifest record registering one index blob.
// The record tracks the archive under the data content kind with the
// blob's cardinality as its record count.
//
// Blob-backed records report a zero file size; the archive footer is
// authoritative for blob sizes.
func IndexFileRecord(archivePath string, blob puffin.BlobMetadata) (manifest.DataFile, error) {
	if blob.Type != BlobTypeHashIndexV1 {
		return manifest.DataFile{}, &MalformedBlobError{
			Archive:  archivePath,
			BlobType: blob.Type,
			Reason:   "expected blob type " + strconv.Quote(BlobTypeHashIndexV1),
		}
	}

	cardinality, err := blobCardinality(archivePath, blob, PropertyCardinality)
	if err != nil {
		return manifest.DataFile{}, err
	}

	return manifest.DataFile{
		Content:     manifest.ContentTypeData,
		FilePath:    archivePath,
		FileFormat:  manifest.FormatPuffin,
		RecordCount: cardinality,
	}, nil
}

// DeletionVectorFileRecord builds the manifest record registering one
// deletion-vector blob and returns the data file path it references.
// ContentOffset and ContentSizeInBytes copy the blob's archive offset and
// length bit for bit, so readers can range-read the vector without
// touching the footer.
func DeletionVectorFileRecord(archivePath string, blob puffin.BlobMetadata) (string, manifest.DataFile, error) {
	if blob.Type != dv.BlobType {
		return "", manifest.DataFile{}, &MalformedBlobError{
			Archive:  archivePath,
			BlobType: blob.Type,
			Reason:   "expected blob type " + strconv.Quote(dv.BlobType),
		}
	}

	referenced := blob.Properties[dv.PropertyReferencedDataFile]
	if referenced == "" {
		return "", manifest.DataFile{}, &MalformedBlobError{
			Archive:  archivePath,
			BlobType: blob.Type,
			Property: dv.PropertyReferencedDataFile,
			Reason:   "missing",
		}
	}

	cardinality, err := blobCardinality(archivePath, blob, dv.PropertyCardinality)
	if err != nil {
		return "", manifest.DataFile{}, err
	}

	offset := blob.Offset
	length := blob.Length

	return referenced, manifest.DataFile{
		Content:            manifest.ContentTypePositionDeletes,
		FilePath:           archivePath,
		FileFormat:         manifest.FormatPuffin,
		RecordCount:        cardinality,
		ReferencedDataFile: referenced,
		ContentOffset:      &offset,
		ContentSizeInBytes: &length,
	}, nil
}

// blobCardinality parses a blob's required cardinality property.
func blobCardinality(archivePath string, blob puffin.BlobMetadata, property string) (int64, error) {
	raw, ok := blob.Properties[property]
	if !ok {
		return 0, &MalformedBlobError{
			Archive:  archivePath,
			BlobType: blob.Type,
			Property: property,
			Reason:   "missing",
		}
	}
	cardinality, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &MalformedBlobError{
			Archive:  archivePath,
			BlobType: blob.Type,
			Property: property,
			Reason:   "not a decimal count: " + strconv.Quote(raw),
		}
	}
	return cardinality, nil
}
