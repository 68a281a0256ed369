package icemeta

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/icemeta/dv"
	"github.com/hupe1980/icemeta/manifest"
	"github.com/hupe1980/icemeta/puffin"
	"github.com/hupe1980/icemeta/table"
)

// RewriteRequest describes one rewrite pass: data files and index
// archives to drop, and freshly written archive blobs to register.
type RewriteRequest struct {
	// RemoveDataFiles lists data file paths whose entries must not
	// survive the rewrite. Deletion vectors referencing a removed data
	// file are dropped with it.
	RemoveDataFiles []string

	// AddBlobs maps archive path to the blob metadata recorded while
	// the archive was written, typically BlobTracker.Metadata().
	// Offsets and lengths are registered exactly as recorded.
	AddBlobs map[string][]puffin.BlobMetadata

	// RemoveBlobs lists index archive paths whose entries must not
	// survive the rewrite.
	RemoveBlobs []string
}

// Empty reports whether the request changes nothing.
func (r RewriteRequest) Empty() bool {
	return len(r.RemoveDataFiles) == 0 && len(r.AddBlobs) == 0 && len(r.RemoveBlobs) == 0
}

// RewriteResult reports what one rewrite pass produced.
type RewriteResult struct {
	// ManifestListPath names the new manifest list, or the current one
	// when the request was empty.
	ManifestListPath string

	// Manifests are the manifest files the new list references, carried
	// and rewritten alike, in list order.
	Manifests []manifest.File

	// Entry counts per tracked-file kind written into new manifests.
	DataFiles       int
	Indexes         int
	DeletionVectors int

	// CarriedManifests counts manifests re-added without rewriting.
	CarriedManifests int

	// RemovedEntries counts existing entries dropped by the removal
	// sets.
	RemovedEntries int
}

// RewriteManifests rewrites the current snapshot's manifests: entries for
// removed data files and index archives are dropped, deletion vectors are
// reconciled so each data file keeps at most one, and new archive blobs
// are registered from their recorded footer metadata. It writes new
// manifest files and a new manifest list, and returns their paths.
//
// The pass never mutates the snapshot; pointing the table at the new
// manifest list is the caller's commit step. On failure, already written
// manifests remain as unreferenced objects.
func (t *Table) RewriteManifests(ctx context.Context, req RewriteRequest) (res *RewriteResult, err error) {
	start := time.Now()
	defer func() {
		t.metrics.RecordRewrite(time.Since(start), err)
		t.logger.LogRewrite(ctx, res, err)
	}()

	snap, ok := t.meta.CurrentSnapshot()

	if req.Empty() {
		res = &RewriteResult{}
		if ok {
			res.ManifestListPath = snap.ManifestList
		}
		return res, nil
	}
	if !ok {
		return nil, ErrNoCurrentSnapshot
	}

	listed, err := manifest.ReadList(ctx, t.store, snap.ManifestList)
	if err != nil {
		return nil, fmt.Errorf("icemeta: load manifest list: %w", err)
	}

	pass, err := newRewritePass(ctx, t, snap)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			pass.discard()
		}
	}()

	removedData := stringSet(req.RemoveDataFiles)
	removedBlobs := stringSet(req.RemoveBlobs)
	recon := newDVReconciler(removedData)

	for _, mf := range listed {
		if err := pass.rewriteManifest(ctx, mf, removedData, removedBlobs, recon); err != nil {
			return nil, err
		}
	}

	if err := pass.mergeAdditions(ctx, req.AddBlobs, recon); err != nil {
		return nil, err
	}

	if err := pass.flushDeletionVectors(ctx, recon); err != nil {
		return nil, err
	}

	res, err = pass.close(ctx)
	if err != nil {
		return nil, err
	}

	t.metrics.RecordManifestsWritten(len(res.Manifests) - res.CarriedManifests)
	t.metrics.RecordEntries(res.DataFiles+res.Indexes+res.DeletionVectors, res.RemovedEntries)

	return res, nil
}

// manifestSlot lazily opens one output manifest writer. A slot that never
// receives an entry never creates an object.
type manifestSlot struct {
	pass    *rewritePass
	content manifest.Content
	w       *manifest.Writer
}

func (s *manifestSlot) append(ctx context.Context, df manifest.DataFile, seq int64) error {
	if s.w == nil {
		w, err := manifest.NewWriter(ctx, s.pass.table.store, s.pass.nextManifestPath(),
			s.content, s.pass.snapshot.SnapshotID, manifest.WithSpecID(s.pass.table.specID))
		if err != nil {
			return err
		}
		s.w = w
	}
	return s.w.Append(df, seq)
}

// rewritePass is the state of one RewriteManifests invocation. All three
// output writers share the pass id; the ordinal disambiguates them.
type rewritePass struct {
	table    *Table
	snapshot *table.Snapshot
	id       string
	ordinal  int

	list    *manifest.ListWriter
	data    manifestSlot
	index   manifestSlot
	deletes manifestSlot

	result RewriteResult
}

func newRewritePass(ctx context.Context, t *Table, snap *table.Snapshot) (*rewritePass, error) {
	p := &rewritePass{
		table:    t,
		snapshot: snap,
		id:       uuid.Must(uuid.NewV7()).String(),
	}
	p.data = manifestSlot{pass: p, content: manifest.ContentData}
	p.index = manifestSlot{pass: p, content: manifest.ContentData}
	p.deletes = manifestSlot{pass: p, content: manifest.ContentDeletes}

	listPath := fmt.Sprintf("%s/snap-%d-%s.avro", table.MetadataDir, snap.SnapshotID, p.id)
	list, err := manifest.NewListWriter(ctx, t.store, listPath, snap.SnapshotID)
	if err != nil {
		return nil, err
	}
	p.list = list

	return p, nil
}

func (p *rewritePass) nextManifestPath() string {
	path := fmt.Sprintf("%s/%s-m%d.avro", table.MetadataDir, p.id, p.ordinal)
	p.ordinal++
	return path
}

// discard aborts every writer the pass still holds open. Objects that
// were already finalized stay behind as orphans.
func (p *rewritePass) discard() {
	for _, slot := range []*manifestSlot{&p.data, &p.index, &p.deletes} {
		if slot.w != nil {
			slot.w.Abort()
		}
	}
	p.list.Abort()
}

// rewriteManifest folds one listed manifest into the pass. Data manifests
// whose entries are all columnar are carried over unchanged when no data
// file is being removed; everything else is rewritten entry by entry.
func (p *rewritePass) rewriteManifest(ctx context.Context, mf manifest.File, removedData, removedBlobs map[string]struct{}, recon *dvReconciler) error {
	entries, err := manifest.ReadFile(ctx, p.table.store, mf)
	if err != nil {
		return fmt.Errorf("icemeta: load manifest %s: %w", mf.Path, err)
	}
	if len(entries) == 0 {
		return &InconsistentManifestError{Manifest: mf.Path, Reason: "listed manifest has no entries"}
	}

	if mf.Content == manifest.ContentData && len(removedData) == 0 && allColumnar(entries) {
		if err := p.list.Add(mf); err != nil {
			return err
		}
		p.result.Manifests = append(p.result.Manifests, mf)
		p.result.CarriedManifests++
		p.table.logger.LogManifestCarried(ctx, mf.Path)
		return nil
	}

	kept, dropped := 0, 0
	for _, e := range entries {
		kind, err := Classify(mf.Content, e.DataFile.FileFormat)
		if err != nil {
			var ime *InconsistentManifestError
			if errors.As(err, &ime) {
				ime.Manifest = mf.Path
			}
			return err
		}

		switch kind {
		case KindPrimaryData:
			if _, gone := removedData[e.DataFile.FilePath]; gone {
				dropped++
				continue
			}
			if err := p.data.append(ctx, e.DataFile, e.SequenceNumber); err != nil {
				return err
			}
			p.result.DataFiles++
			kept++

		case KindSecondaryIndex:
			if _, gone := removedBlobs[e.DataFile.FilePath]; gone {
				dropped++
				continue
			}
			if err := p.index.append(ctx, e.DataFile, e.SequenceNumber); err != nil {
				return err
			}
			p.result.Indexes++
			kept++

		case KindDeletionVector:
			if e.DataFile.ReferencedDataFile == "" {
				return &InconsistentManifestError{
					Manifest: mf.Path,
					Reason:   "deletion-vector entry " + e.DataFile.FilePath + " has no referenced data file",
				}
			}
			ok, err := recon.observeExisting(e)
			if err != nil {
				return fmt.Errorf("manifest %s: %w", mf.Path, err)
			}
			if ok {
				kept++
			} else {
				dropped++
			}
		}
	}

	p.result.RemovedEntries += dropped
	p.table.logger.LogManifestRewritten(ctx, mf.Path, kept, dropped)
	return nil
}

// mergeAdditions registers freshly written archive blobs, iterating
// archives in path order so output manifests are deterministic.
func (p *rewritePass) mergeAdditions(ctx context.Context, additions map[string][]puffin.BlobMetadata, recon *dvReconciler) error {
	paths := make([]string, 0, len(additions))
	for path := range additions {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		for _, blob := range additions[path] {
			switch blob.Type {
			case BlobTypeHashIndexV1:
				df, err := IndexFileRecord(path, blob)
				if err != nil {
					return err
				}
				if err := p.index.append(ctx, df, blob.SequenceNumber); err != nil {
					return err
				}
				p.result.Indexes++

			case dv.BlobType:
				ref, df, err := DeletionVectorFileRecord(path, blob)
				if err != nil {
					return err
				}
				recon.applyAddition(ref, df, blob.SequenceNumber)

			default:
				return &MalformedBlobError{
					Archive:  path,
					BlobType: blob.Type,
					Reason:   "unknown blob type",
				}
			}
		}
	}
	return nil
}

// flushDeletionVectors writes the reconciler's surviving entries into the
// deletes manifest.
func (p *rewritePass) flushDeletionVectors(ctx context.Context, recon *dvReconciler) error {
	for _, rec := range recon.drain() {
		if err := p.deletes.append(ctx, rec.file, rec.seq); err != nil {
			return err
		}
		p.result.DeletionVectors++
	}
	return nil
}

// close finalizes the populated output manifests, registers them with the
// new manifest list, and finalizes the list.
func (p *rewritePass) close(ctx context.Context) (*RewriteResult, error) {
	for _, slot := range []*manifestSlot{&p.data, &p.index, &p.deletes} {
		if slot.w == nil {
			continue
		}
		f, err := slot.w.Close()
		if err != nil {
			return nil, err
		}
		if err := p.list.Add(f); err != nil {
			return nil, err
		}
		p.result.Manifests = append(p.result.Manifests, f)
	}

	if err := p.list.Close(); err != nil {
		return nil, err
	}
	p.result.ManifestListPath = p.list.Path()

	return &p.result, nil
}

func allColumnar(entries []manifest.Entry) bool {
	for _, e := range entries {
		switch e.DataFile.FileFormat {
		case manifest.FormatParquet, manifest.FormatOrc:
		default:
			return false
		}
	}
	return true
}

func stringSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}
