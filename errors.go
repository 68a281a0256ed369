package icemeta

import (
	"errors"
	"fmt"

	"github.com/hupe1980/icemeta/manifest"
)

var (
	// ErrNoCurrentSnapshot is returned when a rewrite is requested on a
	// table that has never committed a snapshot.
	ErrNoCurrentSnapshot = errors.New("table has no current snapshot")

	// ErrInconsistentManifest is the category sentinel for manifests
	// that violate the tracked-file taxonomy. Match with errors.Is.
	ErrInconsistentManifest = errors.New("inconsistent manifest")

	// ErrDuplicateDeletionVector is the category sentinel for two
	// existing deletion vectors referencing the same data file.
	ErrDuplicateDeletionVector = errors.New("duplicate deletion vector")

	// ErrMalformedBlob is the category sentinel for archive blobs whose
	// footer metadata cannot be turned into a manifest record.
	ErrMalformedBlob = errors.New("malformed blob")
)

// InconsistentManifestError reports a manifest whose content kind, entry
// formats, or entry fields fit no known tracked-file kind.
//
// errors.Is(err, ErrInconsistentManifest) matches it.
type InconsistentManifestError struct {
	Manifest string
	Content  manifest.Content
	Format   manifest.FileFormat
	Reason   string
}

func (e *InconsistentManifestError) Error() string {
	msg := "inconsistent manifest"
	if e.Manifest != "" {
		msg += " " + e.Manifest
	}
	if e.Format != "" {
		msg += fmt.Sprintf(": (%s, %s) entry fits no tracked-file kind", e.Content, e.Format)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InconsistentManifestError) Unwrap() error { return ErrInconsistentManifest }

// DuplicateDeletionVectorError reports two existing deletion-vector
// entries claiming the same referenced data file.
//
// errors.Is(err, ErrDuplicateDeletionVector) matches it.
type DuplicateDeletionVectorError struct {
	ReferencedDataFile string
	FirstEntry         string
	SecondEntry        string
}

func (e *DuplicateDeletionVectorError) Error() string {
	return fmt.Sprintf("duplicate deletion vector for %s: %s and %s",
		e.ReferencedDataFile, e.FirstEntry, e.SecondEntry)
}

func (e *DuplicateDeletionVectorError) Unwrap() error { return ErrDuplicateDeletionVector }

// MalformedBlobError reports an archive blob that cannot be registered:
// wrong type tag, or a missing or unparseable required property.
//
// errors.Is(err, ErrMalformedBlob) matches it.
type MalformedBlobError struct {
	Archive  string
	BlobType string
	Property string
	Reason   string
}

func (e *MalformedBlobError) Error() string {
	msg := "malformed blob"
	if e.Archive != "" {
		msg += " in " + e.Archive
	}
	if e.BlobType != "" {
		msg += fmt.Sprintf(" (type %s)", e.BlobType)
	}
	if e.Property != "" {
		msg += fmt.Sprintf(": property %s", e.Property)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *MalformedBlobError) Unwrap() error { return ErrMalformedBlob }
