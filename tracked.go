package icemeta

import (
	"github.com/hupe1980/icemeta/puffin"
)

// BlobTracker wraps an archive writer and records the footer metadata of
// every blob added through it.
//
// Registering archive blobs in manifests needs each blob's offset and
// length exactly as the footer will state them. Reading the archive back
// for its own footer costs a round trip per archive; the tracker captures
// the metadata at write time instead, byte-identical to what the footer
// serializes.
type BlobTracker struct {
	w     *puffin.Writer
	metas []puffin.BlobMetadata
}

// NewBlobTracker wraps an archive writer. Blobs must be added through
// the tracker for their metadata to be recorded.
func NewBlobTracker(w *puffin.Writer) *BlobTracker {
	return &BlobTracker{w: w}
}

// Add appends a blob to the archive and records its metadata.
func (t *BlobTracker) Add(blob puffin.Blob) (puffin.BlobMetadata, error) {
	meta, err := t.w.Add(blob)
	if err != nil {
		return puffin.BlobMetadata{}, err
	}
	t.metas = append(t.metas, meta)
	return meta, nil
}

// Metadata returns the recorded blob metadata in add order. The slice is
// a copy; mutating it does not affect the tracker.
func (t *BlobTracker) Metadata() []puffin.BlobMetadata {
	out := make([]puffin.BlobMetadata, len(t.metas))
	copy(out, t.metas)
	return out
}

// Close finalizes the archive through the wrapped writer.
func (t *BlobTracker) Close() error {
	return t.w.Close()
}
