// Package gcs stores and fetches receipt images in Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

const uploadTimeout = 2 * time.Minute

// ImageStore wraps a GCS client for receipt image round-trips.
// It assumes Application Default Credentials are configured.
type ImageStore struct {
	client *storage.Client
	bucket string
}

// NewImageStore creates an image store bound to one bucket.
func NewImageStore(ctx context.Context, bucket string) (*ImageStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs: bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs: create storage client: %w", err)
	}
	return &ImageStore{client: client, bucket: bucket}, nil
}

// Close releases the underlying client.
func (s *ImageStore) Close() error {
	return s.client.Close()
}

// UploadImage streams one receipt image into the bucket and returns its
// gs:// URI. Objects are grouped by user and upload date.
func (s *ImageStore) UploadImage(ctx context.Context, userID, filename, contentType string, r io.Reader) (string, error) {
	objectName := fmt.Sprintf("receipts/%s/%s/%s-%s",
		userID, time.Now().UTC().Format("2006/01/02"), uuid.NewString(), path.Base(filename))

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs: write image %q: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs: finalize image %q: %w", objectName, err)
	}

	return fmt.Sprintf("gs://%s/%s", s.bucket, objectName), nil
}

// FetchImage downloads the bytes behind a gs:// URI along with a MIME type
// guessed from the object extension. Satisfies gemini.ImageFetcher.
func (s *ImageStore) FetchImage(ctx context.Context, uri string) ([]byte, string, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, "", err
	}

	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("gcs: open %q: %w", uri, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("gcs: read %q: %w", uri, err)
	}

	return data, imageMIMEType(object), nil
}

// ParseURI splits a gs://bucket/object URI.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("gcs: invalid URI %q", uri)
	}
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("gcs: invalid URI %q (no object path)", uri)
	}
	return parts[0], parts[1], nil
}

func imageMIMEType(object string) string {
	if t := mime.TypeByExtension(path.Ext(object)); strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/jpeg"
}
