package content

import (
	"os"
	"path/filepath"

	"github.com/microsoft/update-client-server-sync/internal/catalog"
)

// FileStore is a reference Store backed by a flat directory of files
// named by their digest hex, for local bring-up and tests. The real
// content source is an external collaborator (§1) this package only
// consumes through the Store interface.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(file catalog.UpdateFile) (string, bool) {
	digest, ok := file.FirstDigest()
	if !ok {
		return "", false
	}
	return filepath.Join(s.dir, digest.Hex), true
}

// Contains implements Store.
func (s *FileStore) Contains(file catalog.UpdateFile) bool {
	path, ok := s.path(file)
	if !ok {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Get implements Store.
func (s *FileStore) Get(file catalog.UpdateFile) (Stream, error) {
	path, ok := s.path(file)
	if !ok {
		return nil, os.ErrNotExist
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fileStream{File: f, size: info.Size()}, nil
}

type fileStream struct {
	*os.File
	size int64
}

func (f *fileStream) Len() int64 { return f.size }
