package puffin

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hupe1980/icemeta/codec"
)

// Writer writes an archive file: magic, concatenated blob bytes, JSON
// footer. Blobs are written in Add order and the footer lists them in
// that order.
//
// Writer is not safe for concurrent use; archives are built by a single
// producer and finalized once.
type Writer struct {
	w           io.Writer
	codec       codec.Codec
	offset      int64
	blobs       []BlobMetadata
	properties  map[string]string
	wroteHeader bool
	closed      bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithFileProperties sets file-level footer properties.
func WithFileProperties(props map[string]string) WriterOption {
	return func(w *Writer) {
		w.properties = props
	}
}

// WithFooterCodec overrides the JSON codec used for the footer payload.
func WithFooterCodec(c codec.Codec) WriterOption {
	return func(w *Writer) {
		w.codec = c
	}
}

// NewWriter creates a Writer over w, typically a blobstore.WritableBlob.
func NewWriter(w io.Writer, opts ...WriterOption) *Writer {
	pw := &Writer{
		w:     w,
		codec: codec.Default,
	}
	for _, opt := range opts {
		opt(pw)
	}
	return pw
}

func (w *Writer) ensureHeader() error {
	if w.wroteHeader {
		return nil
	}
	if _, err := w.w.Write(Magic[:]); err != nil {
		return fmt.Errorf("puffin: write header: %w", err)
	}
	w.offset = int64(len(Magic))
	w.wroteHeader = true
	return nil
}

// Add compresses and appends one blob, returning the footer record that
// will describe it. The returned Offset/Length are final: they locate the
// stored bytes and never change when the archive is finalized.
func (w *Writer) Add(blob Blob) (BlobMetadata, error) {
	if w.closed {
		return BlobMetadata{}, fmt.Errorf("puffin: add blob: %w", ErrWriterClosed)
	}
	if err := w.ensureHeader(); err != nil {
		return BlobMetadata{}, err
	}

	stored, err := compress(blob.Compression, blob.Data)
	if err != nil {
		return BlobMetadata{}, err
	}

	meta := BlobMetadata{
		Type:             blob.Type,
		Fields:           blob.Fields,
		SnapshotID:       blob.SnapshotID,
		SequenceNumber:   blob.SequenceNumber,
		Offset:           w.offset,
		Length:           int64(len(stored)),
		CompressionCodec: blob.Compression,
		Properties:       blob.Properties,
	}

	if _, err := w.w.Write(stored); err != nil {
		return BlobMetadata{}, fmt.Errorf("puffin: write blob: %w", err)
	}
	w.offset += int64(len(stored))
	w.blobs = append(w.blobs, meta)
	return meta, nil
}

// Close writes the footer and finalizes the archive. It does not close
// the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	if err := w.ensureHeader(); err != nil {
		return err
	}
	w.closed = true

	payload, err := w.codec.Marshal(fileMetadata{
		Blobs:      w.blobs,
		Properties: w.properties,
	})
	if err != nil {
		return fmt.Errorf("puffin: encode footer: %w", err)
	}

	if _, err := w.w.Write(Magic[:]); err != nil {
		return fmt.Errorf("puffin: write footer: %w", err)
	}
	if _, err := w.w.Write(payload); err != nil {
		return fmt.Errorf("puffin: write footer: %w", err)
	}

	var tail [footerTailLen]byte
	binary.LittleEndian.PutUint32(tail[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(tail[4:8], 0) // flags
	copy(tail[8:12], Magic[:])
	if _, err := w.w.Write(tail[:]); err != nil {
		return fmt.Errorf("puffin: write footer: %w", err)
	}
	return nil
}
