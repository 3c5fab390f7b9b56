// Package persist owns the storage of the key derivation salt. The salt is
// the only piece of the pipeline that must survive across sessions: losing or
// regenerating it makes every previously written envelope permanently
// undecryptable, which is why stores never fall back to an ephemeral value
// and why callers treat any I/O failure here as fatal to key setup.
package persist

import (
	"fmt"
)

// SaltStore persists and loads the raw KDF salt. Save is all-or-nothing: a
// partially written salt must never become visible to a later Load.
type SaltStore interface {

	// Exists reports whether a salt has been persisted.
	Exists() (bool, error)

	// Load returns the persisted salt bytes.
	Load() ([]byte, error)

	// Save persists the salt with scoped, all-or-nothing completion.
	Save(salt []byte) error

	// Close releases any resources the store holds.
	Close() error

	// GetType returns the store backend type, e.g. "filesystem" or "s3".
	GetType() string
}

// StoreType identifies a salt store backend.
type StoreType string

const (
	StoreTypeFileSystem StoreType = "filesystem"
	StoreTypeS3         StoreType = "s3"
)

// StoreConfig selects and configures a storage backend. Config keys depend on
// the backend: the filesystem store requires "path", the S3 store requires
// endpoint/credential/bucket settings (see S3Config).
type StoreConfig struct {
	Type   StoreType              `json:"type"`
	Config map[string]interface{} `json:"config"`
}

// NewStore is the factory for salt store backends.
func NewStore(config StoreConfig) (SaltStore, error) {
	switch config.Type {
	case StoreTypeFileSystem:
		path, ok := config.Config["path"].(string)
		if !ok {
			return nil, fmt.Errorf("filesystem storage requires 'path' in config")
		}
		return NewFileSaltStore(path)

	case StoreTypeS3:
		return NewS3SaltStoreFromConfig(config)

	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// SaltIOError wraps a salt read or write failure. It is fatal at key setup
// time: proceeding without a stable salt would silently orphan previously
// encrypted data, so callers abort instead of falling back.
type SaltIOError struct {
	Op  string // "check", "read" or "write"
	Err error
}

func (e SaltIOError) Error() string {
	return fmt.Sprintf("salt %s failed: %v", e.Op, e.Err)
}

func (e SaltIOError) Unwrap() error { return e.Err }
