package icemeta

import (
	"context"
	"fmt"

	"github.com/hupe1980/icemeta/blobstore"
	"github.com/hupe1980/icemeta/table"
)

// Table binds table metadata to the store holding its manifests and blob
// archives. All rewrite passes run through a Table; it carries the ambient
// logger, metrics collector and partition spec id so individual calls stay
// small.
//
// A Table is not safe for concurrent rewrites against the same snapshot.
// Serializing commit attempts is the catalog layer's job, not ours.
type Table struct {
	store   blobstore.Store
	meta    *table.Metadata
	version int
	metrics MetricsCollector
	logger  *Logger
	specID  int32
}

// New wraps already-loaded table metadata. Use Open to load the current
// version from a store instead.
func New(store blobstore.Store, meta *table.Metadata, optFns ...Option) *Table {
	opts := applyOptions(optFns)

	return &Table{
		store:   store,
		meta:    meta,
		version: 0,
		metrics: opts.metricsCollector,
		logger:  opts.logger.WithLocation(meta.Location),
		specID:  opts.specID,
	}
}

// Open loads the table version the version hint points at. A store without
// a version hint has never been published; the wrapped error matches
// blobstore.ErrNotFound.
func Open(ctx context.Context, store blobstore.Store, optFns ...Option) (*Table, error) {
	meta, version, err := table.LoadCurrent(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("icemeta: open table: %w", err)
	}

	opts := applyOptions(optFns)

	return &Table{
		store:   store,
		meta:    meta,
		version: version,
		metrics: opts.metricsCollector,
		logger:  opts.logger.WithLocation(meta.Location),
		specID:  opts.specID,
	}, nil
}

// Metadata returns the table metadata this Table operates on.
func (t *Table) Metadata() *table.Metadata {
	return t.meta
}

// Version returns the metadata version Open loaded, or 0 for a Table
// constructed with New.
func (t *Table) Version() int {
	return t.version
}

// Store returns the backing blob store.
func (t *Table) Store() blobstore.Store {
	return t.store
}
