package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kurin/blazer/b2"
)

// ObjectStorage is the media-upload collaborator: assembled answer media is
// handed over here and this core keeps only the returned URL.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, r io.Reader) (string, error)
}

type B2Storage struct {
	client *b2.Client
	bucket *b2.Bucket
}

func NewB2Storage(ctx context.Context, accountID, appKey, bucketName string) (*B2Storage, error) {
	client, err := b2.NewClient(ctx, accountID, appKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create b2 client: %w", err)
	}

	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &B2Storage{client: client, bucket: bucket}, nil
}

func (s *B2Storage) Upload(ctx context.Context, key string, r io.Reader) (string, error) {
	obj := s.bucket.Object(key)
	w := obj.NewWriter(ctx)

	if _, err := io.Copy(w, r); err != nil {
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}

	return fmt.Sprintf("%s/file/%s/%s", s.bucket.BaseURL(), s.bucket.Name(), key), nil
}

// LocalStorage writes objects under a directory; used in development and tests.
type LocalStorage struct {
	root string
}

func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

func (s *LocalStorage) Upload(_ context.Context, key string, r io.Reader) (string, error) {
	key = strings.ReplaceAll(key, "..", "")
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create object dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create object file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	return path, nil
}
