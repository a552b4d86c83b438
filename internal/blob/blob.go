// Package blob provides whole-object transfer between durable blob storage
// and the local filesystem. It defines the Store interface (port) and an
// S3-backed implementation.
package blob

import (
	"context"
	"fmt"
)

// Store defines the interface for durable blob transfer.
// Both operations are whole-object and non-resumable; a failure leaves no
// partial state the caller may interpret as success.
type Store interface {
	// Fetch downloads the object at bucket/key to localPath,
	// overwriting localPath if it exists.
	Fetch(ctx context.Context, bucket, key, localPath string) error

	// Put uploads the file at localPath to bucket/key, replacing any
	// existing remote object.
	Put(ctx context.Context, localPath, bucket, key string) error
}

// TransferError represents a failed blob transfer.
type TransferError struct {
	Op     string // "fetch" or "put"
	Bucket string
	Key    string
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s s3://%s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
