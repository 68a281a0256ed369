// Package s3 implements blobstore.Store on Amazon S3 and compatible
// object stores.
//
// # Usage
//
//	client := s3.NewFromConfig(awsCfg)
//	store := s3store.New(client, "my-bucket", s3store.WithPrefix("warehouse/events"))
//
//	tbl, err := icemeta.Open(ctx, store)
//
// Or from declarative configuration:
//
//	store, err := s3store.FromConfig(ctx, blobstore.Config{
//	    Backend: blobstore.BackendS3,
//	    Bucket:  "my-bucket",
//	    Prefix:  "warehouse/events",
//	    Region:  "us-east-1",
//	})
//
// # Features
//
//   - Range reads for manifest and archive footers without full fetches
//   - Streaming multipart uploads, committed only on Close
//   - CRC32C integrity checksums on every write
//   - Batched, concurrent bulk deletes
//   - Configurable prefix for multi-table buckets
//
// # Publishing concurrently
//
// S3 cannot compare-and-swap the version hint, so two racing publishers
// can silently lose one commit. Wrap the store in a CommitStore backed
// by DynamoDB to serialize hint swaps:
//
//	store := s3store.NewCommitStore(inner, ddbClient, "icemeta-commits", "s3://my-bucket/warehouse/events")
package s3
