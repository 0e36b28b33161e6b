// Package blob stores uploaded images (auction banners, team icons,
// player photos) and serves them back by URL path.
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Uploader stores an image and returns a URL path it can be fetched from.
type Uploader interface {
	Upload(ctx context.Context, name string, contentType string, body io.Reader) (string, error)
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// DiskStore is an Uploader backed by a local directory, served under
// urlPrefix by the API server.
type DiskStore struct {
	dir       string
	urlPrefix string
}

func NewDiskStore(dir, urlPrefix string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &DiskStore{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

// Upload writes the image under a fresh random name. The caller-provided
// name only contributes a readable prefix, never a path.
func (s *DiskStore) Upload(_ context.Context, name, contentType string, body io.Reader) (string, error) {
	ext, ok := extensions[contentType]
	if !ok {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}

	base := sanitize(name)
	filename := fmt.Sprintf("%s-%s%s", base, uuid.New().String(), ext)

	f, err := os.Create(filepath.Join(s.dir, filename))
	if err != nil {
		return "", fmt.Errorf("failed to create blob file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	return s.urlPrefix + "/" + filename, nil
}

// Dir returns the backing directory, for wiring a static file handler.
func (s *DiskStore) Dir() string {
	return s.dir
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "upload"
	}
	return b.String()
}
