package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrUnsupportedType is returned for uploads that are not images we serve.
var ErrUnsupportedType = errors.New("unsupported file type")

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// FileStore persists uploaded files and returns a public URL for each.
type FileStore interface {
	Store(ctx context.Context, data []byte) (string, error)
}

// LocalFileStore writes files under a directory served at baseURL.
type LocalFileStore struct {
	dir     string
	baseURL string
}

// NewLocalFileStore creates the upload directory if needed.
func NewLocalFileStore(dir, baseURL string) (*LocalFileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalFileStore{dir: dir, baseURL: baseURL}, nil
}

// Dir returns the directory files are written to.
func (s *LocalFileStore) Dir() string {
	return s.dir
}

// Store saves data under a random name and returns its URL.
func (s *LocalFileStore) Store(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext, ok := extensions[http.DetectContentType(data)]
	if !ok {
		return "", ErrUnsupportedType
	}

	name := uuid.New().String() + ext
	tmp := filepath.Join(s.dir, "."+name+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return s.baseURL + "/" + name, nil
}
