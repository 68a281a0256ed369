// Package manifest reads and writes snapshot metadata files: manifest
// lists, which name the manifests of one snapshot, and manifest files,
// which list the data, index and delete files those manifests track.
//
// Both layers are Avro object container files with deflate-compressed
// blocks. Schemas carry the table-format field IDs, so files written here
// stay readable by other engines; per-column statistics maps are encoded
// as sorted key/value arrays because Avro maps require string keys.
//
// # Layout
//
//	manifest list  →  []File   (one row per manifest)
//	manifest file  →  []Entry  (one row per tracked file)
//
// A File row summarizes its manifest: content kind, sequence-number
// range, added snapshot, and entry/row counts. An Entry carries a status,
// snapshot ID, sequence numbers, and the DataFile record describing the
// tracked file itself.
//
// # Usage
//
// Writing a manifest and its list row:
//
//	w, _ := manifest.NewWriter(ctx, store, "metadata/a-m0.avro", manifest.ContentData, snapshotID)
//	_ = w.Append(df, sequenceNumber)
//	row, _ := w.Close()
//
//	lw, _ := manifest.NewListWriter(ctx, store, "metadata/snap-1.avro", snapshotID)
//	_ = lw.Add(row)
//	_ = lw.Close()
//
// Reading them back:
//
//	rows, _ := manifest.ReadList(ctx, store, "metadata/snap-1.avro")
//	entries, _ := manifest.ReadFile(ctx, store, rows[0])
//
// Writers emit every entry with status added and explicit snapshot and
// sequence numbers. Readers resolve the null (inherited) fields other
// writers may leave against the manifest-list row.
package manifest
