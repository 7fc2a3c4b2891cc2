// Package storage publishes BOM artifacts to object storage and fetches remote
// spreadsheets. Google Cloud Storage and S3-compatible stores are supported.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrInvalidURI is returned for object URIs that are not gs://bucket/key or s3://bucket/key.
var ErrInvalidURI = errors.New("invalid object URI")

// Store provides an interface for object storage operations.
// This interface enables mocking and testing of storage functionality.
type Store interface {
	// Upload writes r to key in the store's bucket.
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error

	// Download returns the bytes stored under key.
	Download(ctx context.Context, key string) ([]byte, error)

	// Close releases the client.
	Close() error
}

// Scheme identifies an object store backend.
type Scheme string

const (
	SchemeGCS Scheme = "gs"
	SchemeS3  Scheme = "s3"
)

// Location is a parsed object URI.
type Location struct {
	Scheme Scheme
	Bucket string
	Key    string
}

// String renders the location back as a URI.
func (l Location) String() string {
	return fmt.Sprintf("%s://%s/%s", l.Scheme, l.Bucket, l.Key)
}

// Filename is the last path element of the key.
func (l Location) Filename() string {
	return path.Base(l.Key)
}

// IsRemote reports whether s looks like an object URI rather than a local path.
func IsRemote(s string) bool {
	return strings.HasPrefix(s, "gs://") || strings.HasPrefix(s, "s3://")
}

// ParseURI splits gs://bucket/path/to/object or s3://bucket/path/to/object.
func ParseURI(uri string) (Location, error) {
	var scheme Scheme
	switch {
	case strings.HasPrefix(uri, "gs://"):
		scheme = SchemeGCS
	case strings.HasPrefix(uri, "s3://"):
		scheme = SchemeS3
	default:
		return Location{}, fmt.Errorf("%w: %s", ErrInvalidURI, uri)
	}

	trimmed := strings.TrimPrefix(uri, string(scheme)+"://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || strings.Trim(parts[1], "/") == "" {
		return Location{}, fmt.Errorf("%w (no object path): %s", ErrInvalidURI, uri)
	}

	return Location{Scheme: scheme, Bucket: parts[0], Key: parts[1]}, nil
}

// ObjectKey joins a prefix and a name into an object key without a leading slash.
func ObjectKey(prefix, name string) string {
	return strings.TrimPrefix(path.Join(prefix, name), "/")
}
