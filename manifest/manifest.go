package manifest

import (
	"fmt"
	"strings"
)

// Content distinguishes the two kinds of manifest a snapshot may list.
type Content int32

const (
	// ContentData marks manifests listing data and index files.
	ContentData Content = 0
	// ContentDeletes marks manifests listing delete files.
	ContentDeletes Content = 1
)

func (c Content) String() string {
	switch c {
	case ContentData:
		return "data"
	case ContentDeletes:
		return "deletes"
	default:
		return fmt.Sprintf("content(%d)", int32(c))
	}
}

// ContentType describes what a single tracked file contains.
type ContentType int32

const (
	ContentTypeData            ContentType = 0
	ContentTypePositionDeletes ContentType = 1
	ContentTypeEqualityDeletes ContentType = 2
)

func (c ContentType) String() string {
	switch c {
	case ContentTypeData:
		return "data"
	case ContentTypePositionDeletes:
		return "position-deletes"
	case ContentTypeEqualityDeletes:
		return "equality-deletes"
	default:
		return fmt.Sprintf("content-type(%d)", int32(c))
	}
}

// FileFormat is the on-disk format of a tracked file. Formats are stored
// uppercase; ParseFileFormat accepts any casing.
type FileFormat string

const (
	FormatParquet FileFormat = "PARQUET"
	FormatOrc     FileFormat = "ORC"
	FormatAvro    FileFormat = "AVRO"
	FormatPuffin  FileFormat = "PUFFIN"
)

// ParseFileFormat normalizes a format string read from a manifest.
func ParseFileFormat(s string) FileFormat {
	return FileFormat(strings.ToUpper(s))
}

// Status is the lifecycle state of a manifest entry.
type Status int32

const (
	StatusExisting Status = 0
	StatusAdded    Status = 1
	StatusDeleted  Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusExisting:
		return "existing"
	case StatusAdded:
		return "added"
	case StatusDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// DataFile describes one tracked file: a columnar data file, an index
// archive, or a deletion-vector archive entry.
//
// For blob-backed entries (index archives and deletion vectors) the
// FilePath names the archive, FileSizeInBytes is zero, and for deletion
// vectors ReferencedDataFile, ContentOffset and ContentSizeInBytes locate
// the blob the entry stands for. Offset and size must match the archive
// footer bit for bit.
type DataFile struct {
	Content         ContentType
	FilePath        string
	FileFormat      FileFormat
	RecordCount     int64
	FileSizeInBytes int64

	// Per-column statistics, keyed by field ID. Nil maps are omitted.
	ColumnSizes     map[int32]int64
	ValueCounts     map[int32]int64
	NullValueCounts map[int32]int64
	NaNValueCounts  map[int32]int64
	LowerBounds     map[int32][]byte
	UpperBounds     map[int32][]byte

	KeyMetadata      []byte
	SplitOffsets     []int64
	EqualityFieldIDs []int32
	SortOrderID      *int32

	FirstRowID         *int64
	ReferencedDataFile string
	ContentOffset      *int64
	ContentSizeInBytes *int64
}

// Entry is one row of a manifest file: a status plus the described file
// and the snapshot and sequence numbers it belongs to.
type Entry struct {
	Status             Status
	SnapshotID         int64
	SequenceNumber     int64
	FileSequenceNumber int64
	DataFile           DataFile
}

// File is one row of a manifest list: a reference to a manifest file plus
// the summary a planner needs to decide whether to read it.
type File struct {
	Path              string
	Length            int64
	SpecID            int32
	Content           Content
	SequenceNumber    int64
	MinSequenceNumber int64
	AddedSnapshotID   int64

	AddedFilesCount    int32
	ExistingFilesCount int32
	DeletedFilesCount  int32
	AddedRowsCount     int64
	ExistingRowsCount  int64
	DeletedRowsCount   int64
}
