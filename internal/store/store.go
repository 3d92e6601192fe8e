// Package store persists competency embeddings and generated text in a
// badger key-value database.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"

	"github.com/spigell/skillmap/internal/embedding"
)

const (
	vectorPrefix   = "vec/"
	responsePrefix = "resp/"
)

type Store struct {
	db     *badger.DB
	logger *zap.Logger
}

// Entry is one stored competency vector. Hash is the fingerprint of the text
// the vector was computed from.
type Entry struct {
	ID     string    `json:"id"`
	Hash   string    `json:"hash"`
	Vector []float32 `json:"vector"`
}

type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l badgerLogger) Errorf(msg string, args ...any)   { l.logger.Errorf(strings.TrimSpace(msg), args...) }
func (l badgerLogger) Warningf(msg string, args ...any) { l.logger.Warnf(strings.TrimSpace(msg), args...) }
func (l badgerLogger) Infof(msg string, args ...any)    { l.logger.Debugf(strings.TrimSpace(msg), args...) }
func (l badgerLogger) Debugf(msg string, args ...any)   { l.logger.Debugf(strings.TrimSpace(msg), args...) }

// Open opens the database in the directory at path, creating it when needed.
// With inMemory set the path is ignored and nothing touches the disk.
func Open(path string, inMemory bool, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		path = strings.TrimSpace(path)
		if path == "" {
			return nil, errors.New("store path is required")
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory %q: %w", path, err)
		}
		opts = badger.DefaultOptions(path)
	}

	opts.Logger = badgerLogger{logger: logger.Named("badger").Sugar()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func modelPrefix(model string) string {
	return vectorPrefix + url.PathEscape(model) + "/"
}

func vectorKey(model, id string) []byte {
	return []byte(modelPrefix(model) + id)
}

// PutVectors stores entries for the given embedding model in one transaction.
func (s *Store) PutVectors(model string, entries []Entry) error {
	if strings.TrimSpace(model) == "" {
		return errors.New("model is required")
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal entry %q: %w", e.ID, err)
		}
		if err := wb.Set(vectorKey(model, e.ID), data); err != nil {
			return fmt.Errorf("write entry %q: %w", e.ID, err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush entries: %w", err)
	}

	s.logger.Debug("stored vectors", zap.String("model", model), zap.Int("count", len(entries)))
	return nil
}

// Entries returns every stored entry for model keyed by competency id.
func (s *Store) Entries(model string) (map[string]Entry, error) {
	entries := make(map[string]Entry)
	prefix := []byte(modelPrefix(model))

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var e Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			entries[e.ID] = e
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// LoadTable builds an embedding table holding the requested ids in order.
// Ids without a stored vector are skipped and returned as missing.
func (s *Store) LoadTable(model string, ids []string) (*embedding.Table, []string, error) {
	entries, err := s.Entries(model)
	if err != nil {
		return nil, nil, err
	}

	var (
		found   []string
		vectors [][]float32
		missing []string
	)
	for _, id := range ids {
		e, ok := entries[id]
		if !ok || len(e.Vector) == 0 {
			missing = append(missing, id)
			continue
		}
		found = append(found, id)
		vectors = append(vectors, e.Vector)
	}

	table, err := embedding.NewTable(model, found, vectors)
	if err != nil {
		return nil, nil, fmt.Errorf("build table for %s: %w", model, err)
	}

	return table, missing, nil
}

// Get returns a cached response. A miss is reported with ok=false and no error.
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(responsePrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read cache %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Set(key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(responsePrefix+key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("write cache %q: %w", key, err)
	}
	return nil
}
