package store

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

const (
	TypeJSON   = "json"
	TypeBuntDB = "buntdb"
)

var ErrLocked = errors.New("store is locked by another process")

//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks

// Store loads and fully replaces the document.
type Store interface {
	Load() (*Document, error)
	Save(*Document) error
	Close() error
}

// Open returns the backend named by typ rooted at path.
func Open(typ, path string) (Store, error) {
	switch typ {
	case "", TypeJSON:
		return OpenJSON(path)
	case TypeBuntDB:
		return OpenBunt(path)
	default:
		return nil, fmt.Errorf("unknown store type %q", typ)
	}
}

// acquire takes the advisory lock that keeps the bot and the admin CLI from
// writing the same store at once.
func acquire(path string) (*flock.Flock, error) {
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", lock.Path(), err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return lock, nil
}
