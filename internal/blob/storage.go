// Package blob persists rendered reports and partner packets to blob storage:
// the local filesystem, S3, or Google Cloud Storage.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when a blob does not exist. Every backend wraps it,
// so callers test with errors.Is.
var ErrNotFound = errors.New("blob not found")

// Client abstracts blob storage for report documents.
type Client interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// ReportKey is the blob key for a rendered report.
func ReportKey(canonicalName, reportID, ext string) string {
	return path.Join("reports", safeSegment(canonicalName), reportID+"."+ext)
}

// PacketKey is the blob key for a batch partner packet.
func PacketKey(batchID string) string {
	return path.Join("packets", batchID+".json")
}

// objectKey places key under a bucket prefix.
func objectKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

// contentTypeFor falls back to the document extension when no content type
// is given.
func contentTypeFor(key, contentType string) string {
	if contentType != "" {
		return contentType
	}
	switch path.Ext(key) {
	case ".json":
		return "application/json"
	case ".html":
		return "text/html; charset=utf-8"
	case ".md":
		return "text/markdown; charset=utf-8"
	}
	return "application/octet-stream"
}

// objectMetadata tags cloud objects with the document kind and, for reports,
// the canonical project name.
func objectMetadata(key string) map[string]string {
	parts := strings.Split(key, "/")
	switch {
	case len(parts) == 3 && parts[0] == "reports":
		return map[string]string{"riskscope-kind": "report", "riskscope-project": parts[1]}
	case len(parts) == 2 && parts[0] == "packets":
		return map[string]string{"riskscope-kind": "packet"}
	}
	return nil
}

func safeSegment(s string) string {
	s = strings.Trim(strings.ReplaceAll(s, "/", "-"), ". ")
	if s == "" {
		return "unnamed"
	}
	return s
}

// LocalStorage implements Client using the local filesystem.
// Useful for development and the CLI.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a LocalStorage rooted at the given directory.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

func (s *LocalStorage) path(key string) string {
	return filepath.Join(s.BaseDir, filepath.FromSlash(key))
}

// Put writes a blob, creating parent directories as needed.
func (s *LocalStorage) Put(_ context.Context, key string, data []byte, _ string) error {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Get reads a blob.
func (s *LocalStorage) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}
