package storage

import (
	"context"
	"io"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader abstracts the object store holding competition imagery.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	// GetPublicURL returns the public address for a stored key, or "" when
	// no public base is configured.
	GetPublicURL(key string) string
}
