// Package local implements a local filesystem blob store.
package local

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/passrate-feed/internal/tracker"
)

// Config captures the parameters for the local filesystem blob store.
type Config struct {
	// BaseDir is the directory artifacts are written into.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// BlobStore writes artifacts to the local filesystem.
type BlobStore struct {
	baseDir string
}

// New creates a local filesystem-backed blob store, creating BaseDir when
// missing and failing fast when it is not writable.
func New(cfg Config) (*BlobStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat base directory: %w", err)
		}
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	probe, err := os.CreateTemp(cfg.BaseDir, ".writable_test")
	if err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := probe.Close(); err != nil {
		return nil, fmt.Errorf("failed to close test file: %w", err)
	}
	if err := os.Remove(probe.Name()); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	baseDir, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}
	return &BlobStore{baseDir: baseDir}, nil
}

// PutObject replaces the file at path (relative to BaseDir) with data and
// returns a file:// URI. The content is staged in a temp file and renamed into
// place so readers never observe a half-written artifact.
func (s *BlobStore) PutObject(ctx context.Context, path string, _ string, data io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context canceled: %w", err)
	}
	st, err := s.stage(path, data)
	if err != nil {
		return "", err
	}
	return st.commit()
}

// PutObjects stages every object before renaming any of them. A failure while
// staging leaves every published file untouched; only a failed rename can
// leave the set mixed. Errors are *tracker.IOError naming the offending path.
func (s *BlobStore) PutObjects(ctx context.Context, objects []tracker.Object) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context canceled: %w", err)
	}
	pending := make([]staged, 0, len(objects))
	discard := func(rest []staged) {
		for _, st := range rest {
			_ = os.Remove(st.tmpName)
		}
	}
	for _, obj := range objects {
		st, err := s.stage(obj.Path, bytes.NewReader(obj.Data))
		if err != nil {
			discard(pending)
			return nil, &tracker.IOError{Path: obj.Path, Err: err}
		}
		pending = append(pending, st)
	}

	uris := make([]string, 0, len(pending))
	for i, st := range pending {
		uri, err := st.commit()
		if err != nil {
			discard(pending[i+1:])
			return nil, &tracker.IOError{Path: objects[i].Path, Err: err}
		}
		uris = append(uris, uri)
	}
	return uris, nil
}

type staged struct {
	tmpName   string
	finalPath string
}

func (s *BlobStore) stage(path string, data io.Reader) (staged, error) {
	if strings.TrimSpace(path) == "" {
		return staged{}, fmt.Errorf("path is required")
	}

	fullPath := filepath.Join(s.baseDir, path)
	cleanBaseDir := filepath.Clean(s.baseDir)
	cleanFullPath := filepath.Clean(fullPath)
	if !strings.HasPrefix(cleanFullPath, cleanBaseDir+string(filepath.Separator)) {
		return staged{}, fmt.Errorf("path traversal detected")
	}

	dir := filepath.Dir(cleanFullPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return staged{}, fmt.Errorf("failed to create parent directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(cleanFullPath)+".*")
	if err != nil {
		return staged{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return staged{}, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return staged{}, fmt.Errorf("failed to close file: %w", err)
	}
	// #nosec G302 -- artifacts are published files meant to be world-readable.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return staged{}, fmt.Errorf("failed to set file mode: %w", err)
	}
	return staged{tmpName: tmpName, finalPath: cleanFullPath}, nil
}

func (st staged) commit() (string, error) {
	if err := os.Rename(st.tmpName, st.finalPath); err != nil {
		_ = os.Remove(st.tmpName)
		return "", fmt.Errorf("failed to replace %s: %w", st.finalPath, err)
	}
	return fmt.Sprintf("file://%s", st.finalPath), nil
}
