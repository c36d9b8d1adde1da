package fsxlocal

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Abraxas-365/escolar/pkg/fsx"
)

// LocalFileSystem implements fsx.FileSystem using local disk
type LocalFileSystem struct {
	basePath string // Root directory for all files
}

// NewLocalFileSystem creates the base directory when missing
// basePath: root directory (e.g., "./uploads")
func NewLocalFileSystem(basePath string) (*LocalFileSystem, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fsx.StorageError(err, "mkdir", basePath)
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fsx.StorageError(err, "abs", basePath)
	}

	return &LocalFileSystem{basePath: absPath}, nil
}

// ============================================================================
// FileReader Implementation
// ============================================================================

func (l *LocalFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	fullPath, err := l.fullPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fsx.NotFound(path)
		}
		return nil, fsx.StorageError(err, "read", path)
	}
	return data, nil
}

func (l *LocalFileSystem) Stat(ctx context.Context, path string) (fsx.FileInfo, error) {
	fullPath, err := l.fullPath(path)
	if err != nil {
		return fsx.FileInfo{}, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fsx.FileInfo{}, fsx.NotFound(path)
		}
		return fsx.FileInfo{}, fsx.StorageError(err, "stat", path)
	}

	return fsx.FileInfo{
		Name:        info.Name(),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentType: fsx.ContentTypeByExt(fullPath),
	}, nil
}

func (l *LocalFileSystem) Exists(ctx context.Context, path string) (bool, error) {
	fullPath, err := l.fullPath(path)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fsx.StorageError(err, "stat", path)
	}
	return true, nil
}

// ============================================================================
// FileWriter Implementation
// ============================================================================

// WriteFile writes through a temp file and a rename so readers never see a
// partial image. The content type is implied by the extension on disk.
func (l *LocalFileSystem) WriteFile(ctx context.Context, path string, data []byte, _ string) error {
	fullPath, err := l.fullPath(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fsx.StorageError(err, "mkdir", path)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fsx.StorageError(err, "write", path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fsx.StorageError(err, "write", path)
	}
	if err := tmp.Close(); err != nil {
		return fsx.StorageError(err, "write", path)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fsx.StorageError(err, "rename", path)
	}
	return nil
}

// ============================================================================
// FileDeleter Implementation
// ============================================================================

func (l *LocalFileSystem) DeleteFile(ctx context.Context, path string) error {
	fullPath, err := l.fullPath(path)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fsx.StorageError(err, "delete", path)
	}
	return nil
}

// fullPath converts a relative path to an absolute one under basePath
func (l *LocalFileSystem) fullPath(path string) (string, error) {
	cleaned, err := fsx.CleanPath(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.basePath, filepath.FromSlash(cleaned)), nil
}

// BasePath returns the absolute storage root
func (l *LocalFileSystem) BasePath() string {
	return l.basePath
}
