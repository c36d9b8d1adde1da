// Package fsx is the storage port for uploaded scan images. Backends live in
// sub-packages: fsxlocal for disk and fsxs3 for S3 buckets.
package fsx

import (
	"context"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/Abraxas-365/escolar/pkg/errx"
)

// FileInfo represents information about a stored file
type FileInfo struct {
	Name        string
	Size        int64
	ModTime     time.Time
	ContentType string
}

// FileReader provides read-only operations
type FileReader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	Stat(ctx context.Context, path string) (FileInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// FileWriter stores data under path, replacing any previous content
type FileWriter interface {
	WriteFile(ctx context.Context, path string, data []byte, contentType string) error
}

type FileDeleter interface {
	// DeleteFile succeeds when the file is already gone
	DeleteFile(ctx context.Context, path string) error
}

// FileSystem combines all file operations
type FileSystem interface {
	FileReader
	FileWriter
	FileDeleter
}

// PresignedURLGenerator is implemented by backends that can hand out
// temporary download links.
type PresignedURLGenerator interface {
	GetPresignedDownloadURL(ctx context.Context, path string, expiration time.Duration) (string, error)
}

// ============================================================================
// Errors
// ============================================================================

var (
	errorRegistry = errx.NewRegistry("FSX")

	ErrFileNotFound = errorRegistry.Register("FILE_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "File not found")
	ErrInvalidPath  = errorRegistry.Register("INVALID_PATH", errx.TypeValidation, http.StatusBadRequest, "Invalid file path")
	ErrStorage      = errorRegistry.Register("STORAGE_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Storage operation failed")
)

func NotFound(p string) *errx.Error {
	return errorRegistry.New(ErrFileNotFound).WithDetail("path", p)
}

func StorageError(err error, op, p string) *errx.Error {
	return errorRegistry.NewWithCause(ErrStorage, err).
		WithDetail("operation", op).
		WithDetail("path", p)
}

// CleanPath normalizes a slash separated relative path and rejects paths that
// would escape the storage root.
func CleanPath(p string) (string, error) {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", errorRegistry.New(ErrInvalidPath).WithDetail("path", p)
		}
	}

	cleaned := strings.TrimPrefix(path.Clean("/"+p), "/")
	if cleaned == "" {
		return "", errorRegistry.New(ErrInvalidPath).WithDetail("path", p)
	}
	return cleaned, nil
}

// ContentTypeByExt maps the extensions scan images are stored with.
func ContentTypeByExt(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	case ".pdf":
		return "application/pdf"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
