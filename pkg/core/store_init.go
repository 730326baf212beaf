package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-gorp/gorp"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	metaStoreID   = "store_id"
	metaVariant   = "variant"
	metaCreatedAt = "created_at"
)

// Init opens the database file, creating the schema if the file is new
func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return wrapError("init", ErrStoreClosed)
	}

	_, statErr := os.Stat(s.config.Path)
	switch {
	case statErr == nil:
		s.existed = true
	case errors.Is(statErr, os.ErrNotExist):
		if s.config.MustExist {
			return wrapError("init", fmt.Errorf("%w: %s", ErrStoreNotFound, s.config.Path))
		}
		if s.variant == VariantAny {
			return wrapError("init", fmt.Errorf("%w: a variant is required to create a store", ErrInvalidConfig))
		}
	default:
		return wrapError("init", statErr)
	}

	// _journal_mode=WAL: readers never block the single writer
	// _busy_timeout=5000: wait up to 5s for a lock instead of failing immediately
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", s.config.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return wrapError("init", fmt.Errorf("failed to open database: %w", err))
	}

	// Single writer: one connection keeps transactions and reads serialized
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(2 * time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return wrapError("init", fmt.Errorf("failed to connect to database: %w", err))
	}

	s.db = db
	s.dbmap = &gorp.DbMap{Db: db, Dialect: gorp.SqliteDialect{}}
	if s.config.TraceSQL {
		s.dbmap.TraceOn("[gorp]", gorpLogger{l: s.logger})
	}
	s.dbmap.AddTableWithName(metaRow{}, metaTable).SetKeys(false, "Key")

	if s.existed {
		err = s.loadMeta(ctx)
	} else {
		err = s.createStore(ctx)
	}
	if err != nil {
		_ = db.Close()
		s.db, s.dbmap = nil, nil
		if !s.existed {
			s.removeFiles()
		}
		return wrapError("init", err)
	}

	s.logger.Info("store opened", "variant", s.variant, "store_id", s.storeID, "existed", s.existed)

	return nil
}

// registerRecords maps recordRow onto the records table for the variant
func (s *SQLiteStore) registerRecords() {
	t := s.dbmap.AddTableWithName(recordRow{}, recordsTable).SetKeys(true, "ID")
	t.ColMap("ExternalID").SetMaxSize(maxExternalIDSize)
	t.ColMap("RelativePath").SetMaxSize(maxRelativePathSize)
	if s.variant != VariantLabeled {
		t.ColMap("Labels").SetTransient(true)
	}
}

// createStore creates the tables and writes the meta rows of a new store
func (s *SQLiteStore) createStore(ctx context.Context) error {
	s.registerRecords()

	if err := s.dbmap.CreateTablesIfNotExists(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	s.storeID = uuid.NewString()
	exec := s.dbmap.WithContext(ctx)
	meta := []interface{}{
		&metaRow{Key: metaStoreID, Value: s.storeID},
		&metaRow{Key: metaVariant, Value: s.variant.String()},
		&metaRow{Key: metaCreatedAt, Value: time.Now().UTC().Format(time.RFC3339)},
	}
	if err := exec.Insert(meta...); err != nil {
		return fmt.Errorf("failed to write store metadata: %w", err)
	}

	return nil
}

// loadMeta reads the variant and id of an existing store
func (s *SQLiteStore) loadMeta(ctx context.Context) error {
	exec := s.dbmap.WithContext(ctx)

	var rows []metaRow
	if _, err := exec.Select(&rows, "SELECT meta_key, meta_value FROM "+metaTable); err != nil {
		return fmt.Errorf("failed to read store metadata: %w", err)
	}

	meta := make(map[string]string, len(rows))
	for _, row := range rows {
		meta[row.Key] = row.Value
	}

	stored, err := ParseVariant(meta[metaVariant])
	if err != nil || stored == VariantAny {
		return fmt.Errorf("%w: store has no valid variant", ErrInvalidConfig)
	}
	if s.variant != VariantAny && s.variant != stored {
		return fmt.Errorf("%w: store is %s, opened as %s", ErrVariantMismatch, stored, s.variant)
	}

	s.variant = stored
	s.storeID = meta[metaStoreID]
	s.registerRecords()

	return nil
}

// removeFiles deletes a store that failed half way through creation
func (s *SQLiteStore) removeFiles() {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(s.config.Path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove partially created store", "file", s.config.Path+suffix, "error", err)
		}
	}
}
