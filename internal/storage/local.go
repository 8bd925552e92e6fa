package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// URLPrefix is where the HTTP server mounts the upload directory.
const URLPrefix = "/uploads"

// LocalStorage writes files into a directory served at URLPrefix.
type LocalStorage struct {
	dir     string
	baseURL string
}

// NewLocalStorage ensures dir exists. baseURL may be empty, in which case
// paths are host-relative.
func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStorage{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStorage) Dir() string { return s.dir }

func (s *LocalStorage) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	name = filepath.Base(name)
	dest := filepath.Join(s.dir, name)

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(dest)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("close %s: %w", name, err)
	}

	return s.baseURL + path.Join(URLPrefix, name), nil
}

func (s *LocalStorage) Delete(ctx context.Context, p string) error {
	name := path.Base(p)
	if name == "." || name == "/" {
		return fmt.Errorf("invalid path %q", p)
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
