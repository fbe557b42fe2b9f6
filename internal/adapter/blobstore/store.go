package blobstore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"

	"github.com/cwygoda/get/internal/domain"
)

// Store implements domain.Destination on a gocloud bucket. dir is the root
// directory when the bucket is backed by the local filesystem.
type Store struct {
	bucket *blob.Bucket
	dir    string
}

// New wraps an open bucket.
func New(bucket *blob.Bucket) *Store {
	return &Store{bucket: bucket}
}

// Open opens a destination from a URL. Plain paths and file:// URLs map to a
// directory; anything else is passed to blob.OpenBucket (mem://, s3://, ...).
func Open(ctx context.Context, rawURL string) (*Store, error) {
	dir, isDir := localDir(rawURL)
	if !isDir {
		b, err := blob.OpenBucket(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("open destination %q: %w", rawURL, err)
		}
		return New(b), nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create destination dir: %v", domain.ErrLocalResource, err)
	}
	b, err := fileblob.OpenBucket(dir, &fileblob.Options{
		CreateDir: true,
		NoTempDir: true,
		Metadata:  fileblob.MetadataDontWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("open destination %q: %w", dir, err)
	}
	return &Store{bucket: b, dir: dir}, nil
}

func localDir(rawURL string) (string, bool) {
	if !strings.Contains(rawURL, "://") {
		abs, err := filepath.Abs(rawURL)
		if err != nil {
			return rawURL, true
		}
		return abs, true
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "file" {
		return "", false
	}
	return filepath.FromSlash(u.Path), true
}

// Dir returns the local root directory, or "" for remote buckets.
func (s *Store) Dir() string {
	return s.dir
}

// Exists reports whether key holds a complete payload. Writes are atomic, so
// any object found is a complete one, empty payloads included.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.bucket.Attributes(ctx, key)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: stat %s: %v", domain.ErrLocalResource, key, err)
	}
	return true, nil
}

// EnsureContainer creates the directory for prefix. Buckets without
// directories need nothing.
func (s *Store) EnsureContainer(ctx context.Context, prefix string) error {
	if s.dir == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Join(s.dir, filepath.FromSlash(prefix)), 0755); err != nil {
		return fmt.Errorf("%w: create %s: %v", domain.ErrLocalResource, prefix, err)
	}
	return nil
}

// Write stores data under key in one piece.
func (s *Store) Write(ctx context.Context, key string, data []byte) error {
	opts := &blob.WriterOptions{ContentType: http.DetectContentType(data)}
	if err := s.bucket.WriteAll(ctx, key, data, opts); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: write %s: %v", domain.ErrLocalResource, key, err)
	}
	return nil
}

// Close closes the bucket.
func (s *Store) Close() error {
	return s.bucket.Close()
}
