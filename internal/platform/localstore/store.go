package localstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yungbote/studyforge-backend/internal/platform/logger"
)

// Store writes objects under a root directory. Used for local development
// when no bucket is configured.
type Store struct {
	log     *logger.Logger
	root    string
	baseURL string
}

func New(log *logger.Logger, root, baseURL string) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		root = filepath.Join(os.TempDir(), "studyforge-objects")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create object root: %w", err)
	}
	return &Store{
		log:     log.With("service", "LocalStore"),
		root:    root,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}, nil
}

func (s *Store) path(key string) (string, string, error) {
	clean := filepath.Clean("/" + strings.TrimSpace(key))
	if clean == "/" {
		return "", "", fmt.Errorf("localstore: empty key")
	}
	return clean, filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, path, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("localstore mkdir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("localstore write: %w", err)
	}
	s.log.Debug("Object stored", "key", clean, "content_type", contentType, "bytes", len(data))
	if s.baseURL != "" {
		return s.baseURL + clean, nil
	}
	return "file://" + filepath.ToSlash(path), nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("localstore read: %w", err)
	}
	return data, nil
}
