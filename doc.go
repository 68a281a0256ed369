// Package icemeta rewrites Iceberg-style table metadata: manifests,
// manifest lists, and the Puffin archives backing secondary indexes and
// deletion vectors.
//
// The engine tracks three kinds of files. Columnar data files (Parquet or
// ORC) hold rows. Index archives hold hash-index blobs over those rows.
// Deletion-vector archives hold one roaring bitmap per data file, marking
// deleted row positions. A rewrite pass drops entries for removed files,
// reconciles deletion vectors so each data file keeps at most one, and
// registers freshly written archive blobs, producing a new manifest list
// without touching the committed snapshot.
//
// # Quick Start
//
// Open a published table and rewrite its manifests:
//
//	ctx := context.Background()
//	store, _ := blobstore.NewLocalStore("/warehouse/events")
//
//	tbl, _ := icemeta.Open(ctx, store)
//	result, _ := tbl.RewriteManifests(ctx, icemeta.RewriteRequest{
//	    RemoveDataFiles: []string{"data/stale.parquet"},
//	    AddBlobs:        map[string][]puffin.BlobMetadata{"metadata/dv.puffin": blobs},
//	})
//	fmt.Println(result.ManifestListPath)
//
// Record blob metadata while writing an archive, instead of re-reading
// the footer afterwards:
//
//	w, _ := store.Create(ctx, "metadata/dv.puffin")
//	tracker := icemeta.NewBlobTracker(puffin.NewWriter(w))
//	blob, _ := vector.Blob("data/a.parquet", snapshotID, seq)
//	tracker.Add(blob)
//	tracker.Close()
//	blobs := tracker.Metadata()
//
// # Commit Model
//
// RewriteManifests writes immutable objects and returns the new manifest
// list path; it never moves the table's snapshot pointer. Committing is
// the caller's step: add a snapshot referencing the new list and publish
// a new metadata version. Failed passes leave at most unreferenced
// objects behind.
//
// # Key Properties
//
//   - One deletion vector per data file, newest wins
//   - Sequence numbers carried from their source, never invented
//   - Blob offsets registered exactly as the archive footer records them
//   - Untouched data manifests carried over without rewriting
//   - Duplicate or inconsistent metadata fails the pass, never guessed at
package icemeta
