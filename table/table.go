// Package table models table metadata: the snapshot log, the current
// snapshot pointer, and the versioned metadata files that carry both.
package table

import (
	"time"

	"github.com/google/uuid"
)

// Metadata is the root metadata document of one table. It is stored as
// JSON in versioned, immutable metadata files; a version hint object
// points at the current one.
type Metadata struct {
	FormatVersion      int               `json:"format-version"`
	TableUUID          string            `json:"table-uuid"`
	Location           string            `json:"location"`
	LastSequenceNumber int64             `json:"last-sequence-number"`
	LastUpdatedMS      int64             `json:"last-updated-ms"`
	Properties         map[string]string `json:"properties,omitempty"`
	CurrentSnapshotID  int64             `json:"current-snapshot-id"`
	Snapshots          []*Snapshot       `json:"snapshots"`
}

// Snapshot is one committed table state: a pointer to the manifest list
// enumerating every manifest of that state.
type Snapshot struct {
	SnapshotID       int64             `json:"snapshot-id"`
	ParentSnapshotID *int64            `json:"parent-snapshot-id,omitempty"`
	SequenceNumber   int64             `json:"sequence-number"`
	TimestampMS      int64             `json:"timestamp-ms"`
	ManifestList     string            `json:"manifest-list"`
	Summary          map[string]string `json:"summary,omitempty"`
}

// New returns fresh metadata for an empty table at location. The table
// has no snapshots; CurrentSnapshotID of -1 means none.
func New(location string) *Metadata {
	return &Metadata{
		FormatVersion:     2,
		TableUUID:         uuid.NewString(),
		Location:          location,
		LastUpdatedMS:     time.Now().UnixMilli(),
		CurrentSnapshotID: -1,
	}
}

// CurrentSnapshot returns the snapshot CurrentSnapshotID points at, or
// false when the table has none.
func (m *Metadata) CurrentSnapshot() (*Snapshot, bool) {
	if m.CurrentSnapshotID < 0 {
		return nil, false
	}
	return m.Snapshot(m.CurrentSnapshotID)
}

// Snapshot returns the snapshot with the given ID.
func (m *Metadata) Snapshot(id int64) (*Snapshot, bool) {
	for _, s := range m.Snapshots {
		if s.SnapshotID == id {
			return s, true
		}
	}
	return nil, false
}

// AddSnapshot appends a snapshot, makes it current, and advances the
// sequence and update clocks. The snapshot's parent is set to the
// previous current snapshot when unset.
func (m *Metadata) AddSnapshot(s *Snapshot) {
	if s.ParentSnapshotID == nil && m.CurrentSnapshotID >= 0 {
		parent := m.CurrentSnapshotID
		s.ParentSnapshotID = &parent
	}
	if s.TimestampMS == 0 {
		s.TimestampMS = time.Now().UnixMilli()
	}
	m.Snapshots = append(m.Snapshots, s)
	m.CurrentSnapshotID = s.SnapshotID
	if s.SequenceNumber > m.LastSequenceNumber {
		m.LastSequenceNumber = s.SequenceNumber
	}
	m.LastUpdatedMS = s.TimestampMS
}

// NextSequenceNumber returns the sequence number the next commit will use.
func (m *Metadata) NextSequenceNumber() int64 {
	return m.LastSequenceNumber + 1
}
