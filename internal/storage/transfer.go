package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lightsheet-rebuild/bomtool/internal/logger"
)

// Opener creates a Store for a bucket on the given backend.
type Opener func(ctx context.Context, scheme Scheme, bucket string) (Store, error)

// NewOpener returns an Opener that builds GCS stores with ambient credentials and
// S3 stores from s3 (its Bucket is replaced per call).
func NewOpener(s3 S3Options) Opener {
	return func(ctx context.Context, scheme Scheme, bucket string) (Store, error) {
		switch scheme {
		case SchemeGCS:
			return NewGCSStore(ctx, bucket)
		case SchemeS3:
			opts := s3
			opts.Bucket = bucket
			return NewS3Store(ctx, opts)
		default:
			return nil, fmt.Errorf("%w: unknown scheme %q", ErrInvalidURI, scheme)
		}
	}
}

// FetchToDir downloads the object at uri into dir, keeping its file name so the
// spreadsheet format can still be detected from the extension. It returns the local path.
func FetchToDir(ctx context.Context, open Opener, uri, dir string) (string, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return "", fmt.Errorf("FetchToDir: %w", err)
	}

	store, err := open(ctx, loc.Scheme, loc.Bucket)
	if err != nil {
		return "", fmt.Errorf("FetchToDir: open store: %w", err)
	}
	defer store.Close()

	data, err := store.Download(ctx, loc.Key)
	if err != nil {
		return "", fmt.Errorf("FetchToDir: %w", err)
	}

	local := filepath.Join(dir, loc.Filename())
	if err := os.WriteFile(local, data, 0o644); err != nil {
		return "", fmt.Errorf("FetchToDir: write %s: %w", local, err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("uri", loc.String()).
		Str("path", local).
		Int("bytes", len(data)).
		Msg("Fetched remote spreadsheet")

	return local, nil
}

// ResolveInput returns input unchanged when it is a local path, otherwise fetches the
// object into dir and returns the local copy's path.
func ResolveInput(ctx context.Context, open Opener, input, dir string) (string, error) {
	if !IsRemote(input) {
		return input, nil
	}
	return FetchToDir(ctx, open, input, dir)
}

// PublishFile uploads the local file at path to uri and returns the canonical URI.
func PublishFile(ctx context.Context, open Opener, path, uri, contentType string) (string, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return "", fmt.Errorf("PublishFile: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("PublishFile: open %s: %w", path, err)
	}
	defer f.Close()

	store, err := open(ctx, loc.Scheme, loc.Bucket)
	if err != nil {
		return "", fmt.Errorf("PublishFile: open store: %w", err)
	}
	defer store.Close()

	if err := store.Upload(ctx, loc.Key, f, contentType); err != nil {
		return "", fmt.Errorf("PublishFile: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("path", path).
		Str("uri", loc.String()).
		Msg("Published file")

	return loc.String(), nil
}
