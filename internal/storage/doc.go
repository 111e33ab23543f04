// Package storage holds the object-store contract for document bytes and
// archived results.
//
// The production implementation speaks the S3 API and accepts a base endpoint
// override so MinIO-style deployments work unchanged. An in-memory
// implementation backs tests and keeps the rest of the system honest about
// depending only on the ObjectStore interface.
package storage
