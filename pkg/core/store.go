package core

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/go-gorp/gorp"
)

// SQLiteStore holds the records of one dataset in a single SQLite file.
//
// Records are mapped with gorp; the feature and label mappings are stored
// as self-describing compressed blobs and are always rewritten whole.
type SQLiteStore struct {
	db      *sql.DB
	dbmap   *gorp.DbMap
	config  Config
	mu      sync.RWMutex
	closed  bool
	variant Variant
	storeID string
	existed bool
	logger  Logger
}

// New creates a store handle for path without touching the file
func New(path string, variant Variant) (*SQLiteStore, error) {
	config := DefaultConfig(path)
	config.Variant = variant

	return NewWithConfig(config)
}

// NewWithConfig creates a store handle with custom configuration. Init must
// be called before use.
func NewWithConfig(config Config) (*SQLiteStore, error) {
	if config.Path == "" {
		return nil, wrapError("init", fmt.Errorf("%w: database path cannot be empty", ErrInvalidConfig))
	}

	if config.Variant < VariantAny || config.Variant > VariantLabeled {
		return nil, wrapError("init", fmt.Errorf("%w: unknown variant %d", ErrInvalidConfig, config.Variant))
	}

	if config.Logger == nil {
		config.Logger = NopLogger()
	}

	return &SQLiteStore{
		config:  config,
		variant: config.Variant,
		logger:  config.Logger.With("store", config.Path),
	}, nil
}

// Open is open_or_create: it opens the store at config.Path, creating an
// empty one when the file does not exist yet.
func Open(ctx context.Context, config Config) (*SQLiteStore, error) {
	s, err := NewWithConfig(config)
	if err != nil {
		return nil, err
	}
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// AlreadyPopulated reports whether the store file existed before Init.
func (s *SQLiteStore) AlreadyPopulated() bool {
	return s.existed
}

// Variant returns the record layout of the store
func (s *SQLiteStore) Variant() Variant {
	return s.variant
}

// StoreID returns the uuid written when the store was created
func (s *SQLiteStore) StoreID() string {
	return s.storeID
}

// Path returns the database file path
func (s *SQLiteStore) Path() string {
	return s.config.Path
}
