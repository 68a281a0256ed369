// Package datafile writes columnar data files and derives the manifest
// records that track them.
package datafile

import (
	"bytes"
	"context"
	"fmt"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"

	"github.com/hupe1980/icemeta/blobstore"
	"github.com/hupe1980/icemeta/manifest"
)

// Write encodes rows as one parquet object under name and returns the
// manifest record describing it, with per-column sizes, value counts and
// null counts read back from the file footer.
//
// Stats are keyed by field ID, assigned 1-based in leaf column order.
// Bounds are left empty; they need type-aware truncation the manifest
// layer does not model.
func Write[T any](ctx context.Context, store blobstore.Store, name string, rows []T, opts ...parquet.WriterOption) (manifest.DataFile, error) {
	var buf bytes.Buffer

	w := parquet.NewGenericWriter[T](&buf, opts...)
	if len(rows) > 0 {
		if _, err := w.Write(rows); err != nil {
			return manifest.DataFile{}, fmt.Errorf("datafile: write rows: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return manifest.DataFile{}, fmt.Errorf("datafile: close writer: %w", err)
	}

	if err := store.Put(ctx, name, buf.Bytes()); err != nil {
		return manifest.DataFile{}, fmt.Errorf("datafile: put %s: %w", name, err)
	}

	df, err := describe(name, buf.Bytes())
	if err != nil {
		return manifest.DataFile{}, fmt.Errorf("datafile: describe %s: %w", name, err)
	}
	return df, nil
}

// describe parses a written parquet object and builds its manifest record.
func describe(name string, data []byte) (manifest.DataFile, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return manifest.DataFile{}, err
	}

	md := f.Metadata()
	df := manifest.DataFile{
		Content:         manifest.ContentTypeData,
		FilePath:        name,
		FileFormat:      manifest.FormatParquet,
		RecordCount:     md.NumRows,
		FileSizeInBytes: int64(len(data)),
		ColumnSizes:     make(map[int32]int64),
		ValueCounts:     make(map[int32]int64),
		NullValueCounts: make(map[int32]int64),
	}

	for _, rg := range md.RowGroups {
		df.SplitOffsets = append(df.SplitOffsets, rowGroupOffset(rg))
		for i, col := range rg.Columns {
			fieldID := int32(i) + 1
			cm := col.MetaData
			df.ColumnSizes[fieldID] += cm.TotalCompressedSize
			df.ValueCounts[fieldID] += cm.NumValues
			df.NullValueCounts[fieldID] += cm.Statistics.NullCount
		}
	}
	return df, nil
}

// rowGroupOffset returns where a row group starts, falling back to its
// first column's pages when the footer omits the file offset.
func rowGroupOffset(rg format.RowGroup) int64 {
	if rg.FileOffset > 0 {
		return rg.FileOffset
	}
	if len(rg.Columns) == 0 {
		return 0
	}
	cm := rg.Columns[0].MetaData
	if cm.DictionaryPageOffset > 0 {
		return cm.DictionaryPageOffset
	}
	return cm.DataPageOffset
}
