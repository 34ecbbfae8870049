// Package storage provides object-store implementations for image
// uploads: a local directory store and an S3 store.
package storage

import (
	apperrors "arstate-chat/errors"

	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DiskStore writes uploads under a root directory and returns file://
// references. Only image payloads are accepted; anything else is an
// upload failure, not a silent pass-through.
type DiskStore struct {
	root string
	log  *slog.Logger
}

func NewDiskStore(root string, log *slog.Logger) *DiskStore {
	return &DiskStore{root: root, log: log}
}

func (d *DiskStore) Upload(ctx context.Context, path string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrUploadFailed, err)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: refusing non-image payload %q", apperrors.ErrUploadFailed, mt.String())
	}

	full := filepath.Join(d.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrUploadFailed, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrUploadFailed, err)
	}
	d.log.Debug("stored upload", "path", full, "content_type", mt.String(), "bytes", len(data))
	return "file://" + full, nil
}
