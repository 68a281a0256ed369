// Package minio implements blobstore.Store using the MinIO client.
//
// MinIO is a high-performance, S3-compatible object storage system. This
// package uses the official MinIO Go client for compatibility with MinIO
// and other S3-compatible systems like Ceph, SeaweedFS, and Garage.
//
// # Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.New(client, "my-bucket", minioblob.WithPrefix("warehouse/events"))
//	tbl, err := icemeta.Open(ctx, store)
//
// Or from declarative configuration:
//
//	store, err := minioblob.FromConfig(ctx, blobstore.Config{
//	    Backend:   blobstore.BackendMinIO,
//	    Endpoint:  "localhost:9000",
//	    Bucket:    "my-bucket",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	})
//
// # Features
//
//   - Range reads for manifest and archive footers without full fetches
//   - Streaming uploads, committed only on Close
//   - Bulk removal through the multi-object delete API
//   - Air-gap friendly, no AWS account required
package minio
