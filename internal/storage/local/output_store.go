// Package local persists downloaded outputs under a directory on disk.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Store writes outputs into a root directory.
type Store struct {
	root   string
	logger *zap.Logger
}

// New returns a store rooted at dir, creating it if needed.
func New(root string, logger *zap.Logger) (*Store, error) {
	if root == "" {
		root = "."
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", root, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{root: root, logger: logger}, nil
}

// Save streams content into the root directory and returns the final path.
// The name is flattened to its base so a hostile output name cannot escape
// the root.
func (s *Store) Save(ctx context.Context, name string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context canceled: %w", err)
	}
	target := filepath.Join(s.root, filepath.Base(name))
	file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", target, err)
	}
	written, err := io.Copy(file, content)
	if err != nil {
		file.Close()
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", target, err)
	}
	s.logger.Debug("saved output", zap.String("path", target), zap.Int64("bytes", written))
	return target, nil
}
