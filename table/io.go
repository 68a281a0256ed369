package table

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/icemeta/blobstore"
	"github.com/hupe1980/icemeta/codec"
)

// Object-key conventions. Stores are rooted at the table location, so
// every key is relative to it.
const (
	// MetadataDir holds metadata files, manifests and archive blobs.
	MetadataDir = "metadata"

	// versionHintName is the mutable pointer naming the current
	// metadata version. Everything else under MetadataDir is immutable.
	versionHintName = "version-hint.text"
)

// MetadataPath returns the object key of one metadata version.
func MetadataPath(version int) string {
	return fmt.Sprintf("%s/v%d.metadata.json", MetadataDir, version)
}

// VersionHintPath returns the object key of the version hint.
func VersionHintPath() string {
	return MetadataDir + "/" + versionHintName
}

// Load reads and decodes one metadata file.
func Load(ctx context.Context, store blobstore.Store, path string) (*Metadata, error) {
	data, err := blobstore.ReadAll(ctx, store, path)
	if err != nil {
		return nil, fmt.Errorf("table: read metadata %s: %w", path, err)
	}
	var m Metadata
	if err := codec.Default.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("table: decode metadata %s: %w", path, err)
	}
	return &m, nil
}

// Save encodes and writes one metadata file.
func Save(ctx context.Context, store blobstore.Store, path string, m *Metadata) error {
	data, err := codec.Default.Marshal(m)
	if err != nil {
		return fmt.Errorf("table: encode metadata: %w", err)
	}
	if err := store.Put(ctx, path, data); err != nil {
		return fmt.Errorf("table: write metadata %s: %w", path, err)
	}
	return nil
}

// ReadVersionHint returns the metadata version the hint points at.
// Returns blobstore.ErrNotFound when the table has never been published.
func ReadVersionHint(ctx context.Context, store blobstore.Store) (int, error) {
	data, err := blobstore.ReadAll(ctx, store, VersionHintPath())
	if err != nil {
		return 0, err
	}
	version, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("table: malformed version hint %q: %w", string(data), err)
	}
	return version, nil
}

// WriteVersionHint points the hint at a metadata version. This is the
// only mutable object; the swap is atomic where the backend allows it.
func WriteVersionHint(ctx context.Context, store blobstore.Store, version int) error {
	data := []byte(strconv.Itoa(version))
	if err := store.Put(ctx, VersionHintPath(), data); err != nil {
		return fmt.Errorf("table: write version hint: %w", err)
	}
	return nil
}

// LoadCurrent reads the version hint and loads the metadata it points at.
func LoadCurrent(ctx context.Context, store blobstore.Store) (*Metadata, int, error) {
	version, err := ReadVersionHint(ctx, store)
	if err != nil {
		return nil, 0, err
	}
	m, err := Load(ctx, store, MetadataPath(version))
	if err != nil {
		return nil, 0, err
	}
	return m, version, nil
}

// Publish writes metadata as the given version and swaps the hint to it.
// Concurrent publishers need a store with compare-and-swap semantics for
// the hint object; plain object stores can lose one of two racing swaps.
func Publish(ctx context.Context, store blobstore.Store, m *Metadata, version int) error {
	if err := Save(ctx, store, MetadataPath(version), m); err != nil {
		return err
	}
	return WriteVersionHint(ctx, store, version)
}
