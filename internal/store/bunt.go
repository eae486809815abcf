package store

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/tempvoice/internal/domain"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/buntdb"
)

const guildKeyPrefix = "guild:"

// BuntStore keeps one JSON value per guild under "guild:<id>".
type BuntStore struct {
	db   *buntdb.DB
	lock *flock.Flock
}

// OpenBunt opens path, or an in-memory database when path is ":memory:".
func OpenBunt(path string) (*BuntStore, error) {
	var lock *flock.Flock
	if path != ":memory:" {
		var err error
		if lock, err = acquire(path); err != nil {
			return nil, err
		}
	}
	db, err := buntdb.Open(path)
	if err != nil {
		if lock != nil {
			_ = lock.Unlock()
		}
		return nil, fmt.Errorf("open buntdb %s: %w", path, err)
	}
	return &BuntStore{db: db, lock: lock}, nil
}

func (s *BuntStore) Load() (*Document, error) {
	doc := NewDocument()
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(guildKeyPrefix+"*", func(key, val string) bool {
			g := newGuildDocument()
			if err := json.Unmarshal([]byte(val), g); err != nil {
				log.Warn().Err(err).Str("module", "store.buntdb").Str("key", key).Msg("skipping corrupt guild entry")
				return true
			}
			doc.Guilds[domain.GuildID(key[len(guildKeyPrefix):])] = g
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load guilds: %w", err)
	}
	return doc.Normalize(), nil
}

// Save replaces every guild key in a single transaction.
func (s *BuntStore) Save(doc *Document) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		var stale []string
		err := tx.AscendKeys(guildKeyPrefix+"*", func(key, _ string) bool {
			stale = append(stale, key)
			return true
		})
		if err != nil {
			return err
		}
		for _, key := range stale {
			if _, err := tx.Delete(key); err != nil {
				return err
			}
		}
		for id, g := range doc.Guilds {
			val, err := json.Marshal(g)
			if err != nil {
				return fmt.Errorf("encode guild %s: %w", id, err)
			}
			if _, _, err := tx.Set(guildKeyPrefix+string(id), string(val), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BuntStore) Close() error {
	err := s.db.Close()
	if s.lock != nil {
		if uerr := s.lock.Unlock(); err == nil {
			err = uerr
		}
	}
	return err
}
