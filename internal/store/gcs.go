package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCSKV stores each logical key as one JSON object in a GCS bucket, under an
// optional prefix. Object generations serve as revisions, so conditional
// writes give the same compare-and-swap semantics as MemoryKV.
// It assumes Application Default Credentials are configured
// (gcloud auth application-default login).
type GCSKV struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSKV creates a GCS-backed key-value store. endpoint is optional and
// exists for local emulators (e.g. fake-gcs-server); leave it empty in
// production.
func NewGCSKV(ctx context.Context, bucket, prefix, endpoint string) (*GCSKV, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs store: bucket is required")
	}

	var opts []option.ClientOption
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs store: create storage client: %w", err)
	}

	return &GCSKV{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Close releases the underlying storage client.
func (s *GCSKV) Close() error {
	return s.client.Close()
}

func (s *GCSKV) objectName(key string) string {
	return path.Join(s.prefix, key+".json")
}

// Get implements the KV interface.
func (s *GCSKV) Get(ctx context.Context, key string) ([]byte, int64, error) {
	obj := s.client.Bucket(s.bucket).Object(s.objectName(key))

	rc, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, 0, ErrKeyNotFound
		}
		return nil, 0, fmt.Errorf("gcs store: reading object %q: %w", s.objectName(key), err)
	}
	defer rc.Close()

	generation := rc.Attrs.Generation

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, 0, fmt.Errorf("gcs store: reading bytes for %q: %w", key, err)
	}

	return data, generation, nil
}

// Put implements the KV interface. expectedRev 0 requires the object to not
// exist; any other value must match the current object generation.
func (s *GCSKV) Put(ctx context.Context, key string, data []byte, expectedRev int64) (int64, error) {
	obj := s.client.Bucket(s.bucket).Object(s.objectName(key))

	if expectedRev == 0 {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	} else {
		obj = obj.If(storage.Conditions{GenerationMatch: expectedRev})
	}

	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return 0, fmt.Errorf("gcs store: writing %q: %w", key, err)
	}

	// The precondition is checked when the write is finalized.
	if err := w.Close(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 412 {
			return 0, ErrRevisionMismatch
		}
		return 0, fmt.Errorf("gcs store: finalizing %q: %w", key, err)
	}

	return w.Attrs().Generation, nil
}

// Delete implements the KV interface.
func (s *GCSKV) Delete(ctx context.Context, key string) error {
	obj := s.client.Bucket(s.bucket).Object(s.objectName(key))

	if err := obj.Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs store: deleting %q: %w", key, err)
	}
	return nil
}
