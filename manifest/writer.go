package manifest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/hamba/avro/v2/ocf"

	"github.com/hupe1980/icemeta/blobstore"
)

// ErrWriterClosed is returned when appending to a closed writer.
var ErrWriterClosed = errors.New("manifest: writer closed")

// Writer streams manifest entries into an Avro container file.
//
// Every appended entry is written with status added and the writer's
// snapshot ID; sequence numbers are supplied per entry and never
// invented. Close finalizes the object and returns the manifest-list row
// describing it.
type Writer struct {
	store blobstore.Store
	path  string

	content    Content
	snapshotID int64
	specID     int32

	blob blobstore.WritableBlob
	cw   *countingWriter
	enc  *ocf.Encoder

	count   int
	rows    int64
	minSeq  int64
	maxSeq  int64
	closed  bool
	hasSeqs bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithSpecID sets the partition spec ID recorded in the manifest-list row.
func WithSpecID(id int32) WriterOption {
	return func(w *Writer) { w.specID = id }
}

// NewWriter creates the manifest object at path and returns a writer for
// it. A writer that fails before Close may leave a partial object behind;
// unreferenced objects are treated as orphans.
func NewWriter(ctx context.Context, store blobstore.Store, path string, content Content, snapshotID int64, opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		store:      store,
		path:       path,
		content:    content,
		snapshotID: snapshotID,
	}
	for _, opt := range opts {
		opt(w)
	}

	blob, err := store.Create(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("manifest: create %s: %w", path, err)
	}

	w.blob = blob
	w.cw = &countingWriter{w: blob}

	enc, err := ocf.NewEncoderWithSchema(entrySchema, w.cw,
		ocf.WithCodec(ocf.Deflate),
		ocf.WithMetadata(map[string][]byte{
			metaFormatVersion: []byte(formatVersion),
			metaContent:       []byte(content.String()),
		}),
	)
	if err != nil {
		blobstore.Discard(blob)
		return nil, fmt.Errorf("manifest: open encoder for %s: %w", path, err)
	}
	w.enc = enc
	return w, nil
}

// Path returns the object name the writer writes to.
func (w *Writer) Path() string {
	return w.path
}

// Count returns the number of entries appended so far.
func (w *Writer) Count() int {
	return w.count
}

// Append writes one entry with status added, the writer's snapshot ID and
// the given sequence number.
func (w *Writer) Append(df DataFile, sequenceNumber int64) error {
	if w.closed {
		return ErrWriterClosed
	}

	entry := Entry{
		Status:             StatusAdded,
		SnapshotID:         w.snapshotID,
		SequenceNumber:     sequenceNumber,
		FileSequenceNumber: sequenceNumber,
		DataFile:           df,
	}
	if err := w.enc.Encode(entryToRecord(entry)); err != nil {
		return fmt.Errorf("manifest: encode entry for %s: %w", df.FilePath, err)
	}

	w.count++
	w.rows += df.RecordCount
	if !w.hasSeqs || sequenceNumber < w.minSeq {
		w.minSeq = sequenceNumber
	}
	if !w.hasSeqs || sequenceNumber > w.maxSeq {
		w.maxSeq = sequenceNumber
	}
	w.hasSeqs = true
	return nil
}

// Abort abandons the manifest without finalizing it. The partial object
// is discarded where the backend supports it and left as an orphan
// otherwise. Abort after Close or a second Abort is a no-op.
func (w *Writer) Abort() {
	if w.closed {
		return
	}
	w.closed = true
	blobstore.Discard(w.blob)
}

// Close flushes and finalizes the manifest object and returns the
// manifest-list row describing it.
func (w *Writer) Close() (File, error) {
	if w.closed {
		return File{}, ErrWriterClosed
	}
	w.closed = true

	if err := w.enc.Close(); err != nil {
		blobstore.Discard(w.blob)
		return File{}, fmt.Errorf("manifest: close encoder for %s: %w", w.path, err)
	}
	if err := w.blob.Close(); err != nil {
		return File{}, fmt.Errorf("manifest: close %s: %w", w.path, err)
	}

	return File{
		Path:              w.path,
		Length:            w.cw.n,
		SpecID:            w.specID,
		Content:           w.content,
		SequenceNumber:    w.maxSeq,
		MinSequenceNumber: w.minSeq,
		AddedSnapshotID:   w.snapshotID,
		AddedFilesCount:   int32(w.count),
		AddedRowsCount:    w.rows,
	}, nil
}

// ListWriter streams manifest-list rows into an Avro container file.
type ListWriter struct {
	store blobstore.Store
	path  string

	blob   blobstore.WritableBlob
	enc    *ocf.Encoder
	count  int
	closed bool
}

// NewListWriter creates the manifest-list object at path and returns a
// writer for it.
func NewListWriter(ctx context.Context, store blobstore.Store, path string, snapshotID int64) (*ListWriter, error) {
	blob, err := store.Create(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("manifest: create list %s: %w", path, err)
	}

	enc, err := ocf.NewEncoderWithSchema(listSchema, blob,
		ocf.WithCodec(ocf.Deflate),
		ocf.WithMetadata(map[string][]byte{
			metaFormatVersion: []byte(formatVersion),
			"snapshot-id":     []byte(strconv.FormatInt(snapshotID, 10)),
		}),
	)
	if err != nil {
		blobstore.Discard(blob)
		return nil, fmt.Errorf("manifest: open list encoder for %s: %w", path, err)
	}

	return &ListWriter{
		store: store,
		path:  path,
		blob:  blob,
		enc:   enc,
	}, nil
}

// Path returns the object name the list is written to.
func (w *ListWriter) Path() string {
	return w.path
}

// Count returns the number of manifests added so far.
func (w *ListWriter) Count() int {
	return w.count
}

// Add appends one manifest-file row.
func (w *ListWriter) Add(f File) error {
	if w.closed {
		return ErrWriterClosed
	}
	if err := w.enc.Encode(fileToRecord(f)); err != nil {
		return fmt.Errorf("manifest: encode list row for %s: %w", f.Path, err)
	}
	w.count++
	return nil
}

// Abort abandons the manifest list without finalizing it.
func (w *ListWriter) Abort() {
	if w.closed {
		return
	}
	w.closed = true
	blobstore.Discard(w.blob)
}

// Close flushes and finalizes the manifest-list object.
func (w *ListWriter) Close() error {
	if w.closed {
		return ErrWriterClosed
	}
	w.closed = true

	if err := w.enc.Close(); err != nil {
		blobstore.Discard(w.blob)
		return fmt.Errorf("manifest: close list encoder for %s: %w", w.path, err)
	}
	if err := w.blob.Close(); err != nil {
		return fmt.Errorf("manifest: close list %s: %w", w.path, err)
	}
	return nil
}

// countingWriter tracks how many bytes reached the underlying writer so
// the manifest-list row can record the final object length.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
