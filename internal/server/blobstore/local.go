package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/filex"
)

// DefaultPublicPrefix is the locator prefix of local blobs. The HTTP layer
// serves the upload root under the same prefix.
const DefaultPublicPrefix = "uploads"

// LocalStore keeps blobs as flat files under a root directory. Locators have
// the form "<prefix>/<file name>"; only the base name is used to find the
// file, so a locator can never point outside the root.
type LocalStore struct {
	root   string
	prefix string
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root, publicPrefix string) (*LocalStore, error) {
	abs, err := filex.EnsureDir(root)
	if err != nil {
		return nil, fmt.Errorf("local blob root: %w", err)
	}
	if publicPrefix == "" {
		publicPrefix = DefaultPublicPrefix
	}
	return &LocalStore{root: abs, prefix: publicPrefix}, nil
}

// Root returns the absolute upload directory.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) Kind() Kind { return KindLocal }

// Path maps a locator to the file it names.
func (s *LocalStore) Path(locator string) (string, error) {
	name := path.Base(filepath.ToSlash(locator))
	if name == "." || name == "/" || name == ".." {
		return "", fmt.Errorf("invalid locator %q", locator)
	}
	return filepath.Join(s.root, name), nil
}

func (s *LocalStore) Put(_ context.Context, data []byte, contentType string) (Blob, error) {
	_, ext, err := NormalizeContentType(contentType)
	if err != nil {
		return Blob{}, err
	}

	name, err := uniqueName(ext)
	if err != nil {
		return Blob{}, err
	}

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return Blob{}, fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return Blob{}, fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Blob{}, fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.root, name)); err != nil {
		return Blob{}, fmt.Errorf("rename file: %w", err)
	}

	return Blob{Locator: path.Join(s.prefix, name)}, nil
}

func (s *LocalStore) Open(_ context.Context, locator string) (io.ReadCloser, error) {
	p, err := s.Path(locator)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrBlobNotFound
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// Delete removes the file behind locator. deleteKey is not used: the locator
// is the delete key on this backend.
func (s *LocalStore) Delete(_ context.Context, locator, _ string) error {
	p, err := s.Path(locator)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return common.ErrBlobNotFound
		}
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func (s *LocalStore) Exists(_ context.Context, locator string) (bool, error) {
	p, err := s.Path(locator)
	if err != nil {
		return false, err
	}
	return filex.Exists(p)
}

// uniqueName builds "<unix nanos>-<random hex><ext>".
func uniqueName(ext string) (string, error) {
	suffix, err := common.MakeRandHexString(8)
	if err != nil {
		return "", fmt.Errorf("random suffix: %w", err)
	}
	return fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), suffix, ext), nil
}
