package icemeta

import (
	"sort"

	"github.com/hupe1980/icemeta/manifest"
)

// dvRecord is one surviving deletion-vector entry awaiting its manifest.
type dvRecord struct {
	file manifest.DataFile
	seq  int64
}

// dvReconciler folds existing deletion-vector entries and newly written
// blobs into one entry per referenced data file.
//
// Ordering is what makes it safe: every existing entry is observed before
// any addition is applied. Two existing entries for the same data file
// mean corrupt metadata; an addition for an already-vectored data file
// supersedes the existing entry, because rewritten vectors carry the
// union of prior deletes.
type dvReconciler struct {
	removed map[string]struct{}
	entries map[string]dvRecord
}

func newDVReconciler(removed map[string]struct{}) *dvReconciler {
	return &dvReconciler{
		removed: removed,
		entries: make(map[string]dvRecord),
	}
}

// observeExisting records one deletion-vector entry found in a snapshot
// manifest. Entries referencing a removed data file are dropped; kept
// reports whether the entry survives.
func (r *dvReconciler) observeExisting(e manifest.Entry) (kept bool, err error) {
	ref := e.DataFile.ReferencedDataFile
	if _, gone := r.removed[ref]; gone {
		return false, nil
	}
	if prior, ok := r.entries[ref]; ok {
		return false, &DuplicateDeletionVectorError{
			ReferencedDataFile: ref,
			FirstEntry:         prior.file.FilePath,
			SecondEntry:        e.DataFile.FilePath,
		}
	}
	r.entries[ref] = dvRecord{file: e.DataFile, seq: e.SequenceNumber}
	return true, nil
}

// applyAddition records a newly written deletion-vector blob, replacing
// any existing entry for the same data file. Additions referencing a
// removed data file are dropped like existing entries; kept reports
// whether the addition survives.
func (r *dvReconciler) applyAddition(referenced string, df manifest.DataFile, seq int64) (kept bool) {
	if _, gone := r.removed[referenced]; gone {
		return false
	}
	r.entries[referenced] = dvRecord{file: df, seq: seq}
	return true
}

// drain returns the surviving entries ordered by referenced data file,
// so rewritten deletes manifests are deterministic.
func (r *dvReconciler) drain() []dvRecord {
	refs := make([]string, 0, len(r.entries))
	for ref := range r.entries {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	out := make([]dvRecord, 0, len(refs))
	for _, ref := range refs {
		out = append(out, r.entries[ref])
	}
	return out
}
