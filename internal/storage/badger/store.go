// Package badger provides the BadgerHold-backed historical price cache.
package badger

import (
	"fmt"
	"os"

	"github.com/bobmcallan/iexgate/internal/common"
	"github.com/timshannon/badgerhold/v4"
)

// Store wraps a BadgerHold database connection.
type Store struct {
	db     *badgerhold.Store
	logger *common.Logger
}

// NewStore opens a BadgerHold store at config.Path, or in memory when config.InMemory is set.
func NewStore(logger *common.Logger, config common.BadgerConfig) (*Store, error) {
	options := badgerhold.DefaultOptions
	options.Logger = nil // Disable default badger logger

	if config.InMemory {
		options.InMemory = true
		options.Dir = ""
		options.ValueDir = ""
	} else {
		if err := os.MkdirAll(config.Path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create badger directory %s: %w", config.Path, err)
		}
		options.Dir = config.Path
		options.ValueDir = config.Path
	}

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().Str("path", config.Path).Bool("in_memory", config.InMemory).Msg("BadgerHold store opened")

	return &Store{
		db:     db,
		logger: logger,
	}, nil
}

// DB returns the underlying badgerhold store.
func (s *Store) DB() *badgerhold.Store {
	return s.db
}

// Close closes the BadgerHold database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
