package storage

import "time"

// Config holds configuration for the report archive object store.
type Config struct {
	// Enabled turns archiving of run summaries and daily reports on.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Endpoint is the S3/MinIO host, with or without scheme.
	Endpoint string `mapstructure:"endpoint" default:"localhost:9000"`
	// AccessKey is the access key ID.
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	// SecretKey is the secret access key.
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	// UseSSL forces TLS even when Endpoint has no https:// scheme.
	UseSSL bool `mapstructure:"use_ssl" default:"false"`
	// Bucket receives the archived JSON documents.
	Bucket string `mapstructure:"bucket" default:"inventory-reports"`
	// Region is the bucket location (e.g., us-east-1).
	Region string `mapstructure:"region" default:""`
	// Timeout bounds connection setup and the wait for the first response byte.
	Timeout time.Duration `mapstructure:"timeout" default:"30s"`
	// Retention is how long archived documents are kept. Zero keeps them forever.
	Retention time.Duration `mapstructure:"retention" default:"2160h"`
}
