package dv

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/icemeta/internal/hash"
	"github.com/hupe1980/icemeta/puffin"
)

// Blob conventions for deletion vectors stored in archive files.
const (
	// BlobType tags deletion-vector blobs in archive footers.
	BlobType = "deletion-vector-v1"

	// PropertyReferencedDataFile carries the path of the data file the
	// vector applies to.
	PropertyReferencedDataFile = "referenced-data-file"

	// PropertyCardinality carries the number of deleted positions as a
	// decimal string.
	PropertyCardinality = "cardinality"
)

// magic prefixes every serialized deletion-vector payload.
var magic = [4]byte{0xD1, 0xD3, 0x39, 0x64}

// ErrCorruptPayload is returned when a serialized deletion vector fails
// its framing or checksum validation.
var ErrCorruptPayload = errors.New("corrupt deletion vector payload")

// DeletionVector records the deleted row positions of one data file.
// It is not safe for concurrent mutation.
type DeletionVector struct {
	bitmap *roaring64.Bitmap
}

// New returns an empty deletion vector.
func New() *DeletionVector {
	return &DeletionVector{bitmap: roaring64.New()}
}

// FromPositions returns a deletion vector containing the given positions.
func FromPositions(positions ...uint64) *DeletionVector {
	v := New()
	for _, pos := range positions {
		v.bitmap.Add(pos)
	}
	return v
}

// Add marks a row position as deleted.
func (v *DeletionVector) Add(pos uint64) {
	v.bitmap.Add(pos)
}

// Contains reports whether a row position is deleted.
func (v *DeletionVector) Contains(pos uint64) bool {
	return v.bitmap.Contains(pos)
}

// Cardinality returns the number of deleted positions.
func (v *DeletionVector) Cardinality() uint64 {
	return v.bitmap.GetCardinality()
}

// IsEmpty reports whether no positions are deleted.
func (v *DeletionVector) IsEmpty() bool {
	return v.bitmap.IsEmpty()
}

// Union merges another vector's positions into this one.
func (v *DeletionVector) Union(other *DeletionVector) {
	v.bitmap.Or(other.bitmap)
}

// Positions returns the deleted positions in ascending order.
func (v *DeletionVector) Positions() []uint64 {
	return v.bitmap.ToArray()
}

// Serialize encodes the vector:
//
//	length (4, BE) = len(magic) + len(bitmap)
//	magic  (4)
//	bitmap (portable 64-bit roaring)
//	crc32c (4, BE) over magic + bitmap
func (v *DeletionVector) Serialize() ([]byte, error) {
	var bm bytes.Buffer
	if _, err := v.bitmap.WriteTo(&bm); err != nil {
		return nil, fmt.Errorf("dv: serialize bitmap: %w", err)
	}

	body := bm.Len() + len(magic)
	out := make([]byte, 0, 4+body+4)
	out = binary.BigEndian.AppendUint32(out, uint32(body))
	out = append(out, magic[:]...)
	out = append(out, bm.Bytes()...)
	out = binary.BigEndian.AppendUint32(out, hash.CRC32C(out[4:]))
	return out, nil
}

// Deserialize decodes a payload produced by Serialize, validating framing
// and checksum.
func Deserialize(data []byte) (*DeletionVector, error) {
	if len(data) < 4+len(magic)+4 {
		return nil, fmt.Errorf("dv: %w: %d bytes is too short", ErrCorruptPayload, len(data))
	}

	body := int(binary.BigEndian.Uint32(data[0:4]))
	if 4+body+4 != len(data) {
		return nil, fmt.Errorf("dv: %w: length %d does not match payload size %d", ErrCorruptPayload, body, len(data))
	}
	if !bytes.Equal(data[4:4+len(magic)], magic[:]) {
		return nil, fmt.Errorf("dv: %w: bad magic", ErrCorruptPayload)
	}

	sum := binary.BigEndian.Uint32(data[4+body:])
	if got := hash.CRC32C(data[4 : 4+body]); got != sum {
		return nil, fmt.Errorf("dv: %w: checksum mismatch", ErrCorruptPayload)
	}

	bitmap := roaring64.New()
	if _, err := bitmap.ReadFrom(bytes.NewReader(data[4+len(magic) : 4+body])); err != nil {
		return nil, fmt.Errorf("dv: %w: decode bitmap: %v", ErrCorruptPayload, err)
	}
	return &DeletionVector{bitmap: bitmap}, nil
}

// Blob packages the vector as an archive blob for the data file at
// referencedDataFile. Bitmaps are already compressed, so the blob is
// stored verbatim.
func (v *DeletionVector) Blob(referencedDataFile string, snapshotID, sequenceNumber int64) (puffin.Blob, error) {
	if referencedDataFile == "" {
		return puffin.Blob{}, fmt.Errorf("dv: referenced data file is required")
	}
	payload, err := v.Serialize()
	if err != nil {
		return puffin.Blob{}, err
	}
	return puffin.Blob{
		Type:           BlobType,
		SnapshotID:     snapshotID,
		SequenceNumber: sequenceNumber,
		Properties: map[string]string{
			PropertyReferencedDataFile: referencedDataFile,
			PropertyCardinality:        strconv.FormatUint(v.Cardinality(), 10),
		},
		Data: payload,
	}, nil
}

// ReadBlob reads one deletion-vector blob from an archive reader and
// decodes its payload.
func ReadBlob(ctx context.Context, r *puffin.Reader, meta puffin.BlobMetadata) (*DeletionVector, error) {
	if meta.Type != BlobType {
		return nil, fmt.Errorf("dv: blob type %q is not a deletion vector", meta.Type)
	}
	payload, err := r.ReadBlob(ctx, meta)
	if err != nil {
		return nil, err
	}
	return Deserialize(payload)
}
