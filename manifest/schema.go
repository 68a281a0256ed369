package manifest

import (
	"sort"

	"github.com/hamba/avro/v2"
)

// Avro schemas for manifest lists and manifest files. Field IDs follow the
// table-format convention so files stay readable by other engines. Maps
// keyed by field ID are encoded as sorted key/value arrays because Avro
// maps only support string keys.
const (
	listSchemaJSON = `{
  "type": "record",
  "name": "manifest_file",
  "fields": [
    { "name": "manifest_path", "type": "string", "field-id": 500 },
    { "name": "manifest_length", "type": "long", "field-id": 501 },
    { "name": "partition_spec_id", "type": "int", "field-id": 502 },
    { "name": "content", "type": "int", "default": 0, "field-id": 517 },
    { "name": "sequence_number", "type": "long", "field-id": 515 },
    { "name": "min_sequence_number", "type": "long", "field-id": 516 },
    { "name": "added_snapshot_id", "type": "long", "field-id": 503 },
    { "name": "added_files_count", "type": "int", "field-id": 504 },
    { "name": "existing_files_count", "type": "int", "field-id": 505 },
    { "name": "deleted_files_count", "type": "int", "field-id": 506 },
    { "name": "added_rows_count", "type": "long", "field-id": 512 },
    { "name": "existing_rows_count", "type": "long", "field-id": 513 },
    { "name": "deleted_rows_count", "type": "long", "field-id": 514 }
  ]
}`

	entrySchemaJSON = `{
  "type": "record",
  "name": "manifest_entry",
  "fields": [
    { "name": "status", "type": "int", "field-id": 0 },
    { "name": "snapshot_id", "type": ["null", "long"], "default": null, "field-id": 1 },
    { "name": "sequence_number", "type": ["null", "long"], "default": null, "field-id": 3 },
    { "name": "file_sequence_number", "type": ["null", "long"], "default": null, "field-id": 4 },
    {
      "name": "data_file",
      "field-id": 2,
      "type": {
        "type": "record",
        "name": "r2",
        "fields": [
          { "name": "content", "type": "int", "default": 0, "field-id": 134 },
          { "name": "file_path", "type": "string", "field-id": 100 },
          { "name": "file_format", "type": "string", "field-id": 101 },
          { "name": "partition", "field-id": 102, "type": { "type": "record", "name": "r102", "fields": [] } },
          { "name": "record_count", "type": "long", "field-id": 103 },
          { "name": "file_size_in_bytes", "type": "long", "field-id": 104 },
          { "name": "column_sizes", "type": ["null", { "type": "array", "items": {
              "type": "record", "name": "k117_v118", "fields": [
                { "name": "key", "type": "int", "field-id": 117 },
                { "name": "value", "type": "long", "field-id": 118 }
              ] } }], "default": null, "field-id": 108 },
          { "name": "value_counts", "type": ["null", { "type": "array", "items": {
              "type": "record", "name": "k119_v120", "fields": [
                { "name": "key", "type": "int", "field-id": 119 },
                { "name": "value", "type": "long", "field-id": 120 }
              ] } }], "default": null, "field-id": 109 },
          { "name": "null_value_counts", "type": ["null", { "type": "array", "items": {
              "type": "record", "name": "k121_v122", "fields": [
                { "name": "key", "type": "int", "field-id": 121 },
                { "name": "value", "type": "long", "field-id": 122 }
              ] } }], "default": null, "field-id": 110 },
          { "name": "nan_value_counts", "type": ["null", { "type": "array", "items": {
              "type": "record", "name": "k138_v139", "fields": [
                { "name": "key", "type": "int", "field-id": 138 },
                { "name": "value", "type": "long", "field-id": 139 }
              ] } }], "default": null, "field-id": 137 },
          { "name": "lower_bounds", "type": ["null", { "type": "array", "items": {
              "type": "record", "name": "k126_v127", "fields": [
                { "name": "key", "type": "int", "field-id": 126 },
                { "name": "value", "type": "bytes", "field-id": 127 }
              ] } }], "default": null, "field-id": 125 },
          { "name": "upper_bounds", "type": ["null", { "type": "array", "items": {
              "type": "record", "name": "k129_v130", "fields": [
                { "name": "key", "type": "int", "field-id": 129 },
                { "name": "value", "type": "bytes", "field-id": 130 }
              ] } }], "default": null, "field-id": 128 },
          { "name": "key_metadata", "type": ["null", "bytes"], "default": null, "field-id": 131 },
          { "name": "split_offsets", "type": ["null", { "type": "array", "items": "long", "element-id": 133 }], "default": null, "field-id": 132 },
          { "name": "equality_ids", "type": ["null", { "type": "array", "items": "int", "element-id": 136 }], "default": null, "field-id": 135 },
          { "name": "sort_order_id", "type": ["null", "int"], "default": null, "field-id": 140 },
          { "name": "first_row_id", "type": ["null", "long"], "default": null, "field-id": 142 },
          { "name": "referenced_data_file", "type": ["null", "string"], "default": null, "field-id": 143 },
          { "name": "content_offset", "type": ["null", "long"], "default": null, "field-id": 144 },
          { "name": "content_size_in_bytes", "type": ["null", "long"], "default": null, "field-id": 145 }
        ]
      }
    }
  ]
}`
)

var (
	listSchema  = avro.MustParse(listSchemaJSON)
	entrySchema = avro.MustParse(entrySchemaJSON)
)

// Container-file metadata keys.
const (
	metaFormatVersion = "format-version"
	metaContent       = "content"
	formatVersion     = "2"
)

type fileRecord struct {
	ManifestPath       string `avro:"manifest_path"`
	ManifestLength     int64  `avro:"manifest_length"`
	PartitionSpecID    int32  `avro:"partition_spec_id"`
	Content            int32  `avro:"content"`
	SequenceNumber     int64  `avro:"sequence_number"`
	MinSequenceNumber  int64  `avro:"min_sequence_number"`
	AddedSnapshotID    int64  `avro:"added_snapshot_id"`
	AddedFilesCount    int32  `avro:"added_files_count"`
	ExistingFilesCount int32  `avro:"existing_files_count"`
	DeletedFilesCount  int32  `avro:"deleted_files_count"`
	AddedRowsCount     int64  `avro:"added_rows_count"`
	ExistingRowsCount  int64  `avro:"existing_rows_count"`
	DeletedRowsCount   int64  `avro:"deleted_rows_count"`
}

type entryRecord struct {
	Status             int32          `avro:"status"`
	SnapshotID         *int64         `avro:"snapshot_id"`
	SequenceNumber     *int64         `avro:"sequence_number"`
	FileSequenceNumber *int64         `avro:"file_sequence_number"`
	DataFile           dataFileRecord `avro:"data_file"`
}

type dataFileRecord struct {
	Content            int32            `avro:"content"`
	FilePath           string           `avro:"file_path"`
	FileFormat         string           `avro:"file_format"`
	Partition          partitionRecord  `avro:"partition"`
	RecordCount        int64            `avro:"record_count"`
	FileSizeInBytes    int64            `avro:"file_size_in_bytes"`
	ColumnSizes        *[]longPair      `avro:"column_sizes"`
	ValueCounts        *[]longPair      `avro:"value_counts"`
	NullValueCounts    *[]longPair      `avro:"null_value_counts"`
	NaNValueCounts     *[]longPair      `avro:"nan_value_counts"`
	LowerBounds        *[]bytesPair     `avro:"lower_bounds"`
	UpperBounds        *[]bytesPair     `avro:"upper_bounds"`
	KeyMetadata        *[]byte          `avro:"key_metadata"`
	SplitOffsets       *[]int64         `avro:"split_offsets"`
	EqualityIDs        *[]int32         `avro:"equality_ids"`
	SortOrderID        *int32           `avro:"sort_order_id"`
	FirstRowID         *int64           `avro:"first_row_id"`
	ReferencedDataFile *string          `avro:"referenced_data_file"`
	ContentOffset      *int64           `avro:"content_offset"`
	ContentSizeInBytes *int64           `avro:"content_size_in_bytes"`
}

// partitionRecord is the empty unpartitioned struct.
type partitionRecord struct{}

type longPair struct {
	Key   int32 `avro:"key"`
	Value int64 `avro:"value"`
}

type bytesPair struct {
	Key   int32  `avro:"key"`
	Value []byte `avro:"value"`
}

func fileToRecord(f File) fileRecord {
	return fileRecord{
		ManifestPath:       f.Path,
		ManifestLength:     f.Length,
		PartitionSpecID:    f.SpecID,
		Content:            int32(f.Content),
		SequenceNumber:     f.SequenceNumber,
		MinSequenceNumber:  f.MinSequenceNumber,
		AddedSnapshotID:    f.AddedSnapshotID,
		AddedFilesCount:    f.AddedFilesCount,
		ExistingFilesCount: f.ExistingFilesCount,
		DeletedFilesCount:  f.DeletedFilesCount,
		AddedRowsCount:     f.AddedRowsCount,
		ExistingRowsCount:  f.ExistingRowsCount,
		DeletedRowsCount:   f.DeletedRowsCount,
	}
}

func fileFromRecord(rec fileRecord) File {
	return File{
		Path:               rec.ManifestPath,
		Length:             rec.ManifestLength,
		SpecID:             rec.PartitionSpecID,
		Content:            Content(rec.Content),
		SequenceNumber:     rec.SequenceNumber,
		MinSequenceNumber:  rec.MinSequenceNumber,
		AddedSnapshotID:    rec.AddedSnapshotID,
		AddedFilesCount:    rec.AddedFilesCount,
		ExistingFilesCount: rec.ExistingFilesCount,
		DeletedFilesCount:  rec.DeletedFilesCount,
		AddedRowsCount:     rec.AddedRowsCount,
		ExistingRowsCount:  rec.ExistingRowsCount,
		DeletedRowsCount:   rec.DeletedRowsCount,
	}
}

func entryToRecord(e Entry) entryRecord {
	snapshotID := e.SnapshotID
	seq := e.SequenceNumber
	fileSeq := e.FileSequenceNumber
	return entryRecord{
		Status:             int32(e.Status),
		SnapshotID:         &snapshotID,
		SequenceNumber:     &seq,
		FileSequenceNumber: &fileSeq,
		DataFile:           dataFileToRecord(e.DataFile),
	}
}

// entryFromRecord resolves the null snapshot and sequence fields that
// other writers leave for readers to inherit from the manifest-list row.
func entryFromRecord(rec entryRecord, f File) Entry {
	e := Entry{
		Status:             Status(rec.Status),
		SnapshotID:         f.AddedSnapshotID,
		SequenceNumber:     f.SequenceNumber,
		FileSequenceNumber: f.SequenceNumber,
		DataFile:           dataFileFromRecord(rec.DataFile),
	}
	if rec.SnapshotID != nil {
		e.SnapshotID = *rec.SnapshotID
	}
	if rec.SequenceNumber != nil {
		e.SequenceNumber = *rec.SequenceNumber
	}
	if rec.FileSequenceNumber != nil {
		e.FileSequenceNumber = *rec.FileSequenceNumber
	}
	return e
}

func dataFileToRecord(df DataFile) dataFileRecord {
	rec := dataFileRecord{
		Content:            int32(df.Content),
		FilePath:           df.FilePath,
		FileFormat:         string(df.FileFormat),
		RecordCount:        df.RecordCount,
		FileSizeInBytes:    df.FileSizeInBytes,
		ColumnSizes:        longPairs(df.ColumnSizes),
		ValueCounts:        longPairs(df.ValueCounts),
		NullValueCounts:    longPairs(df.NullValueCounts),
		NaNValueCounts:     longPairs(df.NaNValueCounts),
		LowerBounds:        bytesPairs(df.LowerBounds),
		UpperBounds:        bytesPairs(df.UpperBounds),
		SortOrderID:        copyPtr(df.SortOrderID),
		FirstRowID:         copyPtr(df.FirstRowID),
		ContentOffset:      copyPtr(df.ContentOffset),
		ContentSizeInBytes: copyPtr(df.ContentSizeInBytes),
	}
	if len(df.KeyMetadata) > 0 {
		km := df.KeyMetadata
		rec.KeyMetadata = &km
	}
	if len(df.SplitOffsets) > 0 {
		so := df.SplitOffsets
		rec.SplitOffsets = &so
	}
	if len(df.EqualityFieldIDs) > 0 {
		eq := df.EqualityFieldIDs
		rec.EqualityIDs = &eq
	}
	if df.ReferencedDataFile != "" {
		ref := df.ReferencedDataFile
		rec.ReferencedDataFile = &ref
	}
	return rec
}

func dataFileFromRecord(rec dataFileRecord) DataFile {
	df := DataFile{
		Content:            ContentType(rec.Content),
		FilePath:           rec.FilePath,
		FileFormat:         ParseFileFormat(rec.FileFormat),
		RecordCount:        rec.RecordCount,
		FileSizeInBytes:    rec.FileSizeInBytes,
		ColumnSizes:        longMap(rec.ColumnSizes),
		ValueCounts:        longMap(rec.ValueCounts),
		NullValueCounts:    longMap(rec.NullValueCounts),
		NaNValueCounts:     longMap(rec.NaNValueCounts),
		LowerBounds:        bytesMap(rec.LowerBounds),
		UpperBounds:        bytesMap(rec.UpperBounds),
		SortOrderID:        copyPtr(rec.SortOrderID),
		FirstRowID:         copyPtr(rec.FirstRowID),
		ContentOffset:      copyPtr(rec.ContentOffset),
		ContentSizeInBytes: copyPtr(rec.ContentSizeInBytes),
	}
	if rec.KeyMetadata != nil {
		df.KeyMetadata = *rec.KeyMetadata
	}
	if rec.SplitOffsets != nil {
		df.SplitOffsets = *rec.SplitOffsets
	}
	if rec.EqualityIDs != nil {
		df.EqualityFieldIDs = *rec.EqualityIDs
	}
	if rec.ReferencedDataFile != nil {
		df.ReferencedDataFile = *rec.ReferencedDataFile
	}
	return df
}

func longPairs(m map[int32]int64) *[]longPair {
	if len(m) == 0 {
		return nil
	}
	pairs := make([]longPair, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, longPair{Key: k, Value: v})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return &pairs
}

func longMap(p *[]longPair) map[int32]int64 {
	if p == nil || len(*p) == 0 {
		return nil
	}
	m := make(map[int32]int64, len(*p))
	for _, pair := range *p {
		m[pair.Key] = pair.Value
	}
	return m
}

func bytesPairs(m map[int32][]byte) *[]bytesPair {
	if len(m) == 0 {
		return nil
	}
	pairs := make([]bytesPair, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, bytesPair{Key: k, Value: v})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return &pairs
}

func bytesMap(p *[]bytesPair) map[int32][]byte {
	if p == nil || len(*p) == 0 {
		return nil
	}
	m := make(map[int32][]byte, len(*p))
	for _, pair := range *p {
		m[pair.Key] = pair.Value
	}
	return m
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
