//go:build gcp

package source

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"

	"github.com/Skryldev/gltf-importer/core"
	apperrors "github.com/Skryldev/gltf-importer/errors"
	"github.com/Skryldev/gltf-importer/utils"
)

// GCS reads an asset from a Google Cloud Storage bucket. External URIs
// resolve to object names relative to the root object.
type GCS struct {
	client   *storage.Client
	bucket   string
	object   string
	maxBytes int64
}

// OpenGCS creates a client from Application Default Credentials and returns
// a source for bucket/object.
func OpenGCS(ctx context.Context, bucket, object string, maxBytes int64) (core.Source, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs source: create client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, object: object, maxBytes: maxBytes}, nil
}

func (s *GCS) FetchRoot(ctx context.Context) ([]byte, error) {
	return s.get(ctx, s.object)
}

func (s *GCS) FetchExternal(ctx context.Context, uri string) ([]byte, error) {
	if IsDataURI(uri) {
		data, _, err := DecodeDataURI(uri)
		return data, err
	}
	name, err := objectKey(s.object, uri)
	if err != nil {
		return nil, fmt.Errorf("gcs source: %w", err)
	}
	return s.get(ctx, name)
}

func (s *GCS) get(ctx context.Context, name string) ([]byte, error) {
	reader, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("gs://%s/%s: %w", s.bucket, name, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("gs://%s/%s: %w", s.bucket, name, err)
	}
	defer func() { _ = reader.Close() }()

	return utils.ReadAll(ctx, reader, s.maxBytes)
}

// Close closes the GCS client.
func (s *GCS) Close() error {
	return s.client.Close()
}
