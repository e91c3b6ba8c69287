// Package storage holds published artifacts in object storage with
// pluggable backends.
//
// # Backends
//
//   - storage/local: a directory on the local filesystem
//   - storage/s3: Amazon S3 and S3-compatible services (MinIO)
//
// Backends register a factory in init; import the ones you need:
//
//	import _ "github.com/kbukum/speakerbind/storage/local"
//
//	store, err := storage.New(cfg, logger.Get("storage"))
//
// # Configuration
//
//	storage:
//	  provider: "s3"
//	  bucket: "speakerbind-artifacts"
//	  region: "us-east-1"
//	  prefix: "clips"
package storage
