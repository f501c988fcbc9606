package audioprints

import (
	"fmt"
	"strings"

	"github.com/himanishpuri/audioprints/pkg/audioprints/storage"
)

// Backend selects the fingerprint store implementation.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendBadger Backend = "badger"
	// BackendMemory is an in-memory Badger store, lost on Close.
	BackendMemory Backend = "memory"
)

// ParseBackend accepts the names used in config files, env and flags.
func ParseBackend(name string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(name))); b {
	case BackendSQLite, BackendBadger, BackendMemory:
		return b, nil
	case "":
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("unknown storage backend %q (want sqlite, badger or memory)", name)
	}
}

// NewStorage opens the backend at path. For Badger, path is a directory.
func NewStorage(backend Backend, path string) (Storage, error) {
	switch backend {
	case BackendSQLite, "":
		db, err := storage.NewDBClient(path)
		if err != nil {
			return nil, err
		}
		return db, nil
	case BackendBadger, BackendMemory:
		if backend == BackendMemory {
			path = ""
		}
		kv, err := storage.NewBadgerStore(path)
		if err != nil {
			return nil, err
		}
		return kv, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
