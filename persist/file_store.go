package persist

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	FilePermissions os.FileMode = 0600
	DirPermissions  os.FileMode = 0700
)

// FileSaltStore keeps the salt as a raw byte file on the local filesystem.
// Writes go through a temp file and rename so a crash mid-write can never
// leave a truncated salt behind.
type FileSaltStore struct {
	path string
}

// NewFileSaltStore creates a store backed by the given file path, creating
// parent directories with restrictive permissions as needed.
func NewFileSaltStore(path string) (*FileSaltStore, error) {
	if path == "" {
		return nil, fmt.Errorf("salt file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), DirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create salt directory: %w", err)
	}
	return &FileSaltStore{path: path}, nil
}

func (fs *FileSaltStore) Exists() (bool, error) {
	_, err := os.Stat(fs.path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat salt file: %w", err)
}

func (fs *FileSaltStore) Load() ([]byte, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read salt file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("salt file %s is empty", fs.path)
	}
	return data, nil
}

func (fs *FileSaltStore) Save(salt []byte) error {
	if len(salt) == 0 {
		return fmt.Errorf("refusing to persist an empty salt")
	}
	return writeSecureFile(fs.path, salt, FilePermissions)
}

func (fs *FileSaltStore) Close() error { return nil }

func (fs *FileSaltStore) GetType() string { return string(StoreTypeFileSystem) }

func writeSecureFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err = tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err = tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err = tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err = os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace file: %w", err)
	}

	return nil
}
