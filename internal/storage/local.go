// Package storage keeps uploaded attachment files on local disk and hands
// back the public URL they are served from.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/spec-kit/repair-service/internal/config"
	"github.com/spec-kit/repair-service/internal/domain"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

// UploadResult describes a stored file.
type UploadResult struct {
	Key         string
	URL         string
	FileName    string
	FileType    domain.FileType
	ContentType string
	Size        int64
}

// LocalStorage writes files under a directory served at PublicBaseURL.
type LocalStorage struct {
	dir      string
	baseURL  string
	maxBytes int64
}

// NewLocalStorage creates the upload directory if needed.
func NewLocalStorage(cfg config.StorageConfig) (*LocalStorage, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", cfg.Dir, err)
	}
	return &LocalStorage{
		dir:      cfg.Dir,
		baseURL:  strings.TrimRight(cfg.PublicBaseURL, "/"),
		maxBytes: cfg.MaxUploadBytes,
	}, nil
}

// Dir returns the directory files are written to.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Upload stores the content under a fresh key. The file type comes from the
// sniffed content, not from the client supplied name.
func (s *LocalStorage) Upload(ctx context.Context, fileName string, r io.Reader) (UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return UploadResult{}, err
	}
	name := filepath.Base(strings.TrimSpace(fileName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return UploadResult{}, apperrors.NewFieldError("file", "file name required")
	}

	reader := r
	if s.maxBytes > 0 {
		reader = io.LimitReader(r, s.maxBytes+1)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return UploadResult{}, fmt.Errorf("storage: read upload: %w", err)
	}
	if len(content) == 0 {
		return UploadResult{}, apperrors.NewFieldError("file", "file is empty")
	}
	if s.maxBytes > 0 && int64(len(content)) > s.maxBytes {
		return UploadResult{}, apperrors.NewFieldError("file", fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}

	mtype := mimetype.Detect(content)
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = mtype.Extension()
	}
	key := uuid.NewString() + ext

	if err := writeFile(filepath.Join(s.dir, key), content); err != nil {
		return UploadResult{}, err
	}

	return UploadResult{
		Key:         key,
		URL:         s.baseURL + "/" + key,
		FileName:    name,
		FileType:    domain.ClassifyContentType(mtype.String()),
		ContentType: mtype.String(),
		Size:        int64(len(content)),
	}, nil
}

// Delete removes a file previously returned by Upload. URLs outside the
// storage base are ignored.
func (s *LocalStorage) Delete(_ context.Context, fileURL string) error {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(fileURL, prefix) {
		return nil
	}
	key := path.Base(strings.TrimPrefix(fileURL, prefix))
	if key == "." || key == "/" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: remove %s: %w", key, err)
	}
	return nil
}

func writeFile(target string, content []byte) error {
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("storage: create file: %w", err)
	}
	if _, err := io.Copy(f, bytes.NewReader(content)); err != nil {
		f.Close()
		os.Remove(target)
		return fmt.Errorf("storage: write file: %w", err)
	}
	return f.Close()
}
