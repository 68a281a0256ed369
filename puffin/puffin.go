package puffin

import (
	"errors"
)

// Magic identifies an archive file. It appears once at offset 0 and twice
// in the footer.
var Magic = [4]byte{0x50, 0x46, 0x41, 0x31} // "PFA1"

// footerTailLen is the fixed-size tail of the footer:
// payload size (4) + flags (4) + magic (4).
const footerTailLen = 12

// CompressionCodec names the compression applied to one blob's bytes.
// The footer records it per blob; the empty codec stores bytes verbatim.
type CompressionCodec string

// Supported codecs.
const (
	CompressionNone CompressionCodec = ""
	CompressionLZ4  CompressionCodec = "lz4"
	CompressionZstd CompressionCodec = "zstd"
)

// Sentinel errors.
var (
	// ErrInvalidArchive is returned when magic bytes or footer framing
	// do not match the archive format.
	ErrInvalidArchive = errors.New("invalid archive")

	// ErrUnsupportedCodec is returned for compression codecs this
	// implementation does not know.
	ErrUnsupportedCodec = errors.New("unsupported compression codec")

	// ErrWriterClosed is returned when appending to a finalized writer.
	ErrWriterClosed = errors.New("writer already closed")
)

// BlobMetadata is one footer record describing a stored blob.
//
// Offset and Length locate the blob's (possibly compressed) bytes inside
// the archive; consumers that reference a blob from external metadata must
// copy these two values bit-exactly.
type BlobMetadata struct {
	Type             string            `json:"type"`
	Fields           []int32           `json:"fields"`
	SnapshotID       int64             `json:"snapshot-id"`
	SequenceNumber   int64             `json:"sequence-number"`
	Offset           int64             `json:"offset"`
	Length           int64             `json:"length"`
	CompressionCodec CompressionCodec  `json:"compression-codec,omitempty"`
	Properties       map[string]string `json:"properties,omitempty"`
}

// Blob is the input to Writer.Add: payload bytes plus the metadata that
// ends up in the footer. Offset and Length are assigned by the writer.
type Blob struct {
	Type           string
	Fields         []int32
	SnapshotID     int64
	SequenceNumber int64
	Compression    CompressionCodec
	Properties     map[string]string
	Data           []byte
}

// fileMetadata is the JSON footer payload.
type fileMetadata struct {
	Blobs      []BlobMetadata    `json:"blobs"`
	Properties map[string]string `json:"properties,omitempty"`
}
