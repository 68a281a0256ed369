// Package puffin reads and writes archive-blob files: containers that
// pack named, offset-addressed binary blobs (secondary indexes, deletion
// vectors) with a self-describing footer.
//
// # Format
//
//	┌──────────────────────────────┐
//	│ Magic "PFA1" (4 bytes)       │
//	├──────────────────────────────┤
//	│ Blob 1 bytes                 │  optionally lz4/zstd framed
//	│ Blob 2 bytes                 │
//	│ ...                          │
//	├──────────────────────────────┤
//	│ Magic "PFA1" (4 bytes)       │
//	│ Footer payload (JSON)        │  blob list + file properties
//	│ Payload size (4, LE)         │
//	│ Flags (4, LE)                │
//	│ Magic "PFA1" (4 bytes)       │
//	└──────────────────────────────┘
//
// The footer payload lists every blob with its type tag, referenced field
// ids, snapshot id, sequence number, byte offset, byte length, compression
// codec, and a free-form property map. Offsets address the stored
// (compressed) bytes, so readers serve single blobs with ranged reads.
//
// # Usage
//
// Writing:
//
//	w, _ := store.Create(ctx, "metadata/dv1.puffin")
//	pw := puffin.NewWriter(w)
//	meta, _ := pw.Add(puffin.Blob{Type: "deletion-vector-v1", Data: payload})
//	_ = pw.Close()
//	_ = w.Close()
//
// Reading:
//
//	r, _ := puffin.Open(ctx, store, "metadata/dv1.puffin")
//	for _, meta := range r.Blobs() {
//	    data, _ := r.ReadBlob(ctx, meta)
//	    _ = data
//	}
//	_ = r.Close()
//
// Blob type tags and property conventions belong to blob producers (see
// the dv package for deletion vectors); this package treats payloads as
// opaque bytes.
package puffin
