package storage

import (
	apperrors "arstate-chat/errors"

	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func Test_DiskStore_UploadImage(t *testing.T) {
	req := require.New(t)
	root := t.TempDir()
	store := NewDiskStore(root, slog.Default())

	ref, err := store.Upload(context.Background(), "images/alice--bob/cat.png", pngHeader)
	req.NoError(err)
	req.True(strings.HasPrefix(ref, "file://"))

	written, err := os.ReadFile(filepath.Join(root, "images", "alice--bob", "cat.png"))
	req.NoError(err)
	req.Equal(pngHeader, written)
}

func Test_DiskStore_RejectsNonImage(t *testing.T) {
	req := require.New(t)
	store := NewDiskStore(t.TempDir(), slog.Default())

	_, err := store.Upload(context.Background(), "images/alice--bob/evil.png", []byte("#!/bin/sh\nrm -rf"))
	req.ErrorIs(err, apperrors.ErrUploadFailed)
}

func Test_DiskStore_CancelledContext(t *testing.T) {
	req := require.New(t)
	store := NewDiskStore(t.TempDir(), slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.Upload(ctx, "images/alice--bob/cat.png", pngHeader)
	req.ErrorIs(err, apperrors.ErrUploadFailed)
}
