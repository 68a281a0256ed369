package puffin

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/icemeta/blobstore"
	"github.com/hupe1980/icemeta/codec"
)

// Reader parses an archive's footer and serves individual blobs via
// ranged reads, so opening an archive never downloads its payload.
type Reader struct {
	blob  blobstore.Blob
	blobs []BlobMetadata
	props map[string]string
}

// Open opens the named archive from the store.
func Open(ctx context.Context, store blobstore.Store, name string) (*Reader, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(ctx, b)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	return r, nil
}

// NewReader parses the footer of an already opened archive blob. The
// Reader takes ownership of blob and closes it on Close.
func NewReader(ctx context.Context, blob blobstore.Blob) (*Reader, error) {
	size := blob.Size()
	minSize := int64(len(Magic))*2 + footerTailLen
	if size < minSize {
		return nil, fmt.Errorf("puffin: %w: %d bytes is below minimum %d", ErrInvalidArchive, size, minSize)
	}

	var head [4]byte
	if _, err := blob.ReadAt(ctx, head[:], 0); err != nil {
		return nil, fmt.Errorf("puffin: read header: %w", err)
	}
	if !bytes.Equal(head[:], Magic[:]) {
		return nil, fmt.Errorf("puffin: %w: bad header magic", ErrInvalidArchive)
	}

	var tail [footerTailLen]byte
	if _, err := blob.ReadAt(ctx, tail[:], size-footerTailLen); err != nil {
		return nil, fmt.Errorf("puffin: read footer: %w", err)
	}
	if !bytes.Equal(tail[8:12], Magic[:]) {
		return nil, fmt.Errorf("puffin: %w: bad footer magic", ErrInvalidArchive)
	}
	payloadLen := int64(binary.LittleEndian.Uint32(tail[0:4]))
	flags := binary.LittleEndian.Uint32(tail[4:8])
	if flags != 0 {
		return nil, fmt.Errorf("puffin: %w: unsupported footer flags %#x", ErrInvalidArchive, flags)
	}

	// Footer layout: magic, payload, tail.
	footerStart := size - footerTailLen - payloadLen - int64(len(Magic))
	if footerStart < int64(len(Magic)) {
		return nil, fmt.Errorf("puffin: %w: footer payload size %d exceeds file", ErrInvalidArchive, payloadLen)
	}

	buf := make([]byte, int64(len(Magic))+payloadLen)
	if _, err := blob.ReadAt(ctx, buf, footerStart); err != nil {
		return nil, fmt.Errorf("puffin: read footer: %w", err)
	}
	if !bytes.Equal(buf[:len(Magic)], Magic[:]) {
		return nil, fmt.Errorf("puffin: %w: bad footer magic", ErrInvalidArchive)
	}

	var meta fileMetadata
	if err := codec.Default.Unmarshal(buf[len(Magic):], &meta); err != nil {
		return nil, fmt.Errorf("puffin: %w: decode footer: %v", ErrInvalidArchive, err)
	}

	return &Reader{
		blob:  blob,
		blobs: meta.Blobs,
		props: meta.Properties,
	}, nil
}

// Blobs returns the footer records in write order.
func (r *Reader) Blobs() []BlobMetadata {
	return r.blobs
}

// Properties returns the file-level footer properties.
func (r *Reader) Properties() map[string]string {
	return r.props
}

// ReadBlob reads and decompresses one blob's payload.
func (r *Reader) ReadBlob(ctx context.Context, meta BlobMetadata) ([]byte, error) {
	if meta.Offset < int64(len(Magic)) || meta.Offset+meta.Length > r.blob.Size() {
		return nil, fmt.Errorf("puffin: %w: blob range [%d, %d) out of bounds", ErrInvalidArchive, meta.Offset, meta.Offset+meta.Length)
	}
	stored := make([]byte, meta.Length)
	if meta.Length > 0 {
		if _, err := r.blob.ReadAt(ctx, stored, meta.Offset); err != nil {
			return nil, fmt.Errorf("puffin: read blob: %w", err)
		}
	}
	return decompress(meta.CompressionCodec, stored)
}

// Close releases the underlying blob handle.
func (r *Reader) Close() error {
	return r.blob.Close()
}
