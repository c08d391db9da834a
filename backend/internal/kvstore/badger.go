// Package kvstore keeps notes and categories in an embedded BadgerDB.
//
// Layout:
//
//	note:<id>          JSON note (legacy shapes are normalized on read)
//	meta:categories    JSON array of categories, in registry order
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"knowledge-weaver/backend/internal/notes"
	apperrors "knowledge-weaver/backend/pkg/errors"
	"knowledge-weaver/backend/pkg/logger"
)

const (
	notePrefix    = "note:"
	categoriesKey = "meta:categories"
)

// Config holds configuration for the store.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Used by tests and STORE_BACKEND=memory.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// NumVersionsToKeep per key. Notes are last-write-wins, so 1.
	NumVersionsToKeep int

	// GCInterval is how often value log GC runs. 0 disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum garbage ratio that triggers a rewrite.
	GCDiscardRatio float64
}

// DefaultConfig returns production settings for a database at path
func DefaultConfig(path string) Config {
	return Config{
		Path:              path,
		SyncWrites:        true,
		NumVersionsToKeep: 1,
		GCInterval:        5 * time.Minute,
		GCDiscardRatio:    0.5,
	}
}

// InMemoryConfig returns settings for a throwaway in-memory database
func InMemoryConfig() Config {
	return Config{
		InMemory:          true,
		NumVersionsToKeep: 1,
	}
}

// Store implements notes.Store on BadgerDB
type Store struct {
	db     *badger.DB
	logger *zap.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

// badgerLogger adapts zap to BadgerDB's Logger interface.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{})   { l.s.Errorf(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...interface{}) { l.s.Warnf(format, args...) }
func (l *badgerLogger) Infof(format string, args ...interface{})    { l.s.Debugf(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...interface{})   { l.s.Debugf(format, args...) }

// Open opens (creating if needed) the database described by cfg
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, apperrors.NewConfigMissingRequired("DATA_DIR")
	}

	log := logger.Named("kvstore")

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	if cfg.NumVersionsToKeep <= 0 {
		cfg.NumVersionsToKeep = 1
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(cfg.NumVersionsToKeep).
		WithLogger(&badgerLogger{s: log.Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, apperrors.NewStoreFailed("open", err)
	}

	s := &Store{
		db:     db,
		logger: log,
		stop:   make(chan struct{}),
	}
	if !cfg.InMemory && cfg.GCInterval > 0 {
		s.wg.Add(1)
		go s.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}

	log.Info("Note store opened",
		zap.String("path", cfg.Path),
		zap.Bool("in_memory", cfg.InMemory),
	)
	return s, nil
}

// Close stops background GC and closes the database
func (s *Store) Close() error {
	close(s.stop)
	s.wg.Wait()
	return s.db.Close()
}

func (s *Store) runGC(interval time.Duration, ratio float64) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			for {
				err := s.db.RunValueLogGC(ratio)
				if err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						s.logger.Warn("Value log GC failed", zap.Error(err))
					}
					break
				}
			}
		}
	}
}

func noteKey(id string) []byte {
	return []byte(notePrefix + id)
}

// List returns every readable note ordered by timestamp, then id.
// Records that cannot be normalized are logged and skipped.
func (s *Store) List(ctx context.Context) ([]notes.Note, error) {
	var out []notes.Note
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(notePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			err := item.Value(func(val []byte) error {
				n, ok := decode(val)
				if !ok {
					s.logger.Warn("Skipping unreadable note record", zap.ByteString("key", item.Key()))
					return nil
				}
				out = append(out, n)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, apperrors.NewContextCancelled("list notes", ctxErr)
		}
		return nil, apperrors.NewStoreFailed("list", err)
	}
	notes.SortChronological(out)
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (notes.Note, error) {
	var n notes.Note
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(noteKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var ok bool
			if n, ok = decode(val); !ok {
				return fmt.Errorf("unreadable record for %s", id)
			}
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return notes.Note{}, apperrors.NewNoteNotFound(id)
	}
	if err != nil {
		return notes.Note{}, apperrors.NewStoreFailed("get", err)
	}
	return n, nil
}

func (s *Store) Upsert(ctx context.Context, n notes.Note) error {
	if err := n.Validate(); err != nil {
		return err
	}
	val, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode note: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(noteKey(n.ID), val)
	}); err != nil {
		return apperrors.NewStoreFailed("upsert", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(noteKey(id)); err != nil {
			return err
		}
		return txn.Delete(noteKey(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return apperrors.NewNoteNotFound(id)
	}
	if err != nil {
		return apperrors.NewStoreFailed("remove", err)
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]notes.Category, error) {
	cats := []notes.Category{}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(categoriesKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cats)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return []notes.Category{}, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreFailed("list categories", err)
	}
	return cats, nil
}

func (s *Store) SaveCategories(ctx context.Context, categories []notes.Category) error {
	if categories == nil {
		categories = []notes.Category{}
	}
	val, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(categoriesKey), val)
	}); err != nil {
		return apperrors.NewStoreFailed("save categories", err)
	}
	return nil
}

// decode reads a stored record in any historical shape
func decode(val []byte) (notes.Note, bool) {
	var rec notes.Record
	if err := json.Unmarshal(val, &rec); err != nil {
		return notes.Note{}, false
	}
	return rec.Normalize()
}

var _ notes.Store = (*Store)(nil)
