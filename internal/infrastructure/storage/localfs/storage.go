package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/kirillkom/docintake/internal/core/domain"
)

type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/blobs"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

// Put writes data under a fresh random name. The file only becomes visible
// under its final name once it is fully written.
func (s *Storage) Put(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := uuid.NewString() + ".pdf"

	tmp, err := os.CreateTemp(s.basePath, ".upload-*")
	if err != nil {
		return "", domain.WrapError(domain.ErrStorageUnavailable, "create blob", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", domain.WrapError(domain.ErrStorageUnavailable, "write blob", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", domain.WrapError(domain.ErrStorageUnavailable, "close blob", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.basePath, ref)); err != nil {
		_ = os.Remove(tmpName)
		return "", domain.WrapError(domain.ErrStorageUnavailable, "commit blob", err)
	}
	return ref, nil
}

func (s *Storage) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "open blob", fmt.Errorf("ref=%s", ref))
		}
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "open blob", err)
	}
	return f, nil
}

func (s *Storage) Delete(_ context.Context, ref string) error {
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.WrapError(domain.ErrStorageUnavailable, "delete blob", err)
	}
	return nil
}

// resolve rejects refs that would escape the base directory.
func (s *Storage) resolve(ref string) (string, error) {
	if ref == "" || ref == "." || ref != filepath.Base(ref) {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve blob", fmt.Errorf("invalid ref %q", ref))
	}
	return filepath.Join(s.basePath, ref), nil
}
