package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrExists is returned when a staging name is already taken
var ErrExists = errors.New("staged object already exists")

// Object describes a payload written to transient storage
type Object struct {
	Ref  string // Reference passed back to Open and Remove
	Path string // Filesystem path or object key, for diagnostics
	Size int64
}

// Stager holds image payloads between download and analysis
type Stager interface {
	// Put writes r under name. A partially written object is removed on error.
	Put(ctx context.Context, name string, r io.Reader, contentType string) (*Object, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	// Remove deletes ref; removing a missing object is not an error
	Remove(ctx context.Context, ref string) error
}

// Config contains local storage configuration
type Config struct {
	BasePath string // Directory for staged files
}

// DefaultConfig returns default storage configuration
func DefaultConfig() Config {
	return Config{
		BasePath: "./uploads",
	}
}

// LocalStager stages files in a local directory
type LocalStager struct {
	config Config
}

// NewLocal creates a LocalStager, creating the base directory if needed
func NewLocal(config Config) (*LocalStager, error) {
	if err := os.MkdirAll(config.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	return &LocalStager{
		config: config,
	}, nil
}

// Put streams r into a new file named name. The file is created exclusively,
// so a name collision fails instead of overwriting another request's file.
func (s *LocalStager) Put(ctx context.Context, name string, r io.Reader, contentType string) (*Object, error) {
	fullPath, err := s.path(name)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrExists, name)
		}
		return nil, fmt.Errorf("failed to create staged file: %w", err)
	}

	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("failed to write staged file: %w", err)
	}

	return &Object{Ref: name, Path: fullPath, Size: n}, nil
}

// Open opens a staged file for reading
func (s *LocalStager) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	fullPath, err := s.path(ref)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open staged file: %w", err)
	}
	return f, nil
}

// Remove deletes a staged file
func (s *LocalStager) Remove(ctx context.Context, ref string) error {
	fullPath, err := s.path(ref)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete staged file: %w", err)
	}

	return nil
}

// GetFullPath returns the full filesystem path for a staged name
func (s *LocalStager) GetFullPath(ref string) string {
	return filepath.Join(s.config.BasePath, ref)
}

// path resolves a staged name, rejecting anything that is not a plain file name
func (s *LocalStager) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid staged name %q", name)
	}
	return s.GetFullPath(name), nil
}

// ExtensionFromContentType returns the file extension for an image content type
func ExtensionFromContentType(contentType string) string {
	// Normalize content type (remove charset, etc.)
	contentType = strings.ToLower(strings.Split(contentType, ";")[0])
	contentType = strings.TrimSpace(contentType)

	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	case "image/bmp":
		return ".bmp"
	case "image/tiff":
		return ".tiff"
	case "image/heic":
		return ".heic"
	default:
		return ""
	}
}
