package manifest

import (
	"bytes"
	"context"
	"fmt"

	"github.com/hamba/avro/v2/ocf"

	"github.com/hupe1980/icemeta/blobstore"
)

// ReadList reads a manifest list and returns its rows in file order.
func ReadList(ctx context.Context, store blobstore.Store, path string) ([]File, error) {
	data, err := blobstore.ReadAll(ctx, store, path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read list %s: %w", path, err)
	}

	dec, err := ocf.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("manifest: decode list %s: %w", path, err)
	}

	var files []File
	for dec.HasNext() {
		var rec fileRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("manifest: decode list row %d of %s: %w", len(files), path, err)
		}
		files = append(files, fileFromRecord(rec))
	}
	return files, nil
}

// ReadFile reads the manifest referenced by a manifest-list row and
// returns its entries in file order. Null snapshot and sequence fields
// are resolved against the list row.
func ReadFile(ctx context.Context, store blobstore.Store, f File) ([]Entry, error) {
	data, err := blobstore.ReadAll(ctx, store, f.Path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", f.Path, err)
	}

	dec, err := ocf.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("manifest: decode %s: %w", f.Path, err)
	}

	var entries []Entry
	for dec.HasNext() {
		var rec entryRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("manifest: decode entry %d of %s: %w", len(entries), f.Path, err)
		}
		entries = append(entries, entryFromRecord(rec, f))
	}
	return entries, nil
}
