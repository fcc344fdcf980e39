// Package storage wraps the MinIO client used to archive run summaries and
// daily reports to S3-compatible object storage.
//
// The Client interface is narrowed to the calls the archive makes, so tests
// can use the testify mock in core/storage/mocks.
//
//	client, err := storage.NewClient(cfg.Storage)
//	err = storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region)
package storage
