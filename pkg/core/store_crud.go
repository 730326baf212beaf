package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-gorp/gorp"

	"github.com/liliang-cn/sqfeat/pkg/feature"
)

// Tx is a store transaction handed to the Batch callback. Everything done
// through it is committed together when the callback returns nil.
type Tx struct {
	s    *SQLiteStore
	exec gorp.SqlExecutor
}

// Insert appends rec and assigns its id
func (tx *Tx) Insert(rec *Record) error {
	return tx.s.insert(tx.exec, rec)
}

// Get looks up one record inside the transaction
func (tx *Tx) Get(id int64) (*Record, error) {
	return tx.s.get(tx.exec, id)
}

// UpdateFeatures replaces the whole feature mapping of record id
func (tx *Tx) UpdateFeatures(id int64, f *feature.Features) error {
	return tx.s.updateFeatures(tx.exec, id, f)
}

// UpdateLabels replaces the labels of record id
func (tx *Tx) UpdateLabels(id int64, l *feature.Labels) error {
	return tx.s.updateLabels(tx.exec, id, l)
}

// Batch runs fn in a single transaction. The store holds one connection,
// so fn must only go through tx and never call other store methods.
func (s *SQLiteStore) Batch(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return wrapError("batch", ErrStoreClosed)
	}

	gtx, err := s.dbmap.Begin()
	if err != nil {
		return wrapError("batch", fmt.Errorf("failed to begin transaction: %w", err))
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rollErr := gtx.Rollback(); rollErr != nil && !errors.Is(rollErr, sql.ErrTxDone) {
			s.logger.Warn("failed to rollback transaction", "error", rollErr)
		}
	}()

	if err := fn(&Tx{s: s, exec: gtx.WithContext(ctx)}); err != nil {
		return err
	}

	if err := gtx.Commit(); err != nil {
		return wrapError("batch", fmt.Errorf("failed to commit transaction: %w", err))
	}
	committed = true

	return nil
}

// Insert appends a single record, assigning the next id
func (s *SQLiteStore) Insert(ctx context.Context, rec *Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return wrapError("insert", ErrStoreClosed)
	}

	return wrapError("insert", s.insert(s.dbmap.WithContext(ctx), rec))
}

// InsertBatch appends records in one transaction, ids in slice order
func (s *SQLiteStore) InsertBatch(ctx context.Context, recs []*Record) error {
	if len(recs) == 0 {
		return nil
	}

	err := s.Batch(ctx, func(tx *Tx) error {
		for i, rec := range recs {
			if err := tx.Insert(rec); err != nil {
				return fmt.Errorf("failed to insert record at index %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return wrapError("insert_batch", err)
	}

	s.logger.Debug("batch insert completed", "count", len(recs))

	return nil
}

// Get is a point lookup by id; ErrNotFound if absent
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, wrapError("get", ErrStoreClosed)
	}

	rec, err := s.get(s.dbmap.WithContext(ctx), id)
	if err != nil {
		return nil, wrapError("get", err)
	}
	return rec, nil
}

// IterateOrdered returns every record by ascending id
func (s *SQLiteStore) IterateOrdered(ctx context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, wrapError("iterate", ErrStoreClosed)
	}

	var rows []recordRow
	query := "SELECT " + s.columns() + " FROM " + recordsTable + " ORDER BY id"
	if _, err := s.dbmap.WithContext(ctx).Select(&rows, query); err != nil {
		return nil, wrapError("iterate", fmt.Errorf("failed to query records: %w", err))
	}

	records := make([]*Record, 0, len(rows))
	for i := range rows {
		rec, err := s.fromRow(&rows[i])
		if err != nil {
			return nil, wrapError("iterate", err)
		}
		records = append(records, rec)
	}

	return records, nil
}

// UpdateFeatures rewrites the feature mapping of one record, committed on return
func (s *SQLiteStore) UpdateFeatures(ctx context.Context, id int64, f *feature.Features) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return wrapError("update_features", ErrStoreClosed)
	}

	return wrapError("update_features", s.updateFeatures(s.dbmap.WithContext(ctx), id, f))
}

// UpdateLabels rewrites the labels of one record, committed on return
func (s *SQLiteStore) UpdateLabels(ctx context.Context, id int64, l *feature.Labels) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return wrapError("update_labels", ErrStoreClosed)
	}

	return wrapError("update_labels", s.updateLabels(s.dbmap.WithContext(ctx), id, l))
}

// Count returns the number of stored records
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, wrapError("count", ErrStoreClosed)
	}

	n, err := s.dbmap.WithContext(ctx).SelectInt("SELECT COUNT(*) FROM " + recordsTable)
	if err != nil {
		return 0, wrapError("count", fmt.Errorf("failed to count records: %w", err))
	}
	return n, nil
}

func (s *SQLiteStore) columns() string {
	if s.variant == VariantLabeled {
		return "id, external_id, relative_path, features, labels"
	}
	return "id, external_id, relative_path, features"
}

func (s *SQLiteStore) insert(exec gorp.SqlExecutor, rec *Record) error {
	if rec.Labels != nil && s.variant != VariantLabeled {
		return fmt.Errorf("%w: labels on a %s store", ErrVariantMismatch, s.variant)
	}

	row, err := s.toRow(rec)
	if err != nil {
		return err
	}
	// ids are always assigned by the store
	row.ID = 0
	if err := exec.Insert(row); err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	rec.ID = row.ID

	return nil
}

func (s *SQLiteStore) get(exec gorp.SqlExecutor, id int64) (*Record, error) {
	obj, err := exec.Get(recordRow{}, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get record %d: %w", id, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return s.fromRow(obj.(*recordRow))
}

func (s *SQLiteStore) updateFeatures(exec gorp.SqlExecutor, id int64, f *feature.Features) error {
	blob, err := s.encodeFeatures(f)
	if err != nil {
		return err
	}
	res, err := exec.Exec("UPDATE "+recordsTable+" SET features = ? WHERE id = ?", blob, id)
	if err != nil {
		return fmt.Errorf("failed to update features of record %d: %w", id, err)
	}
	return checkAffected(res, id)
}

func (s *SQLiteStore) updateLabels(exec gorp.SqlExecutor, id int64, l *feature.Labels) error {
	if s.variant != VariantLabeled {
		return fmt.Errorf("%w: labels on a %s store", ErrVariantMismatch, s.variant)
	}
	blob, err := s.encodeLabels(l)
	if err != nil {
		return err
	}
	res, err := exec.Exec("UPDATE "+recordsTable+" SET labels = ? WHERE id = ?", blob, id)
	if err != nil {
		return fmt.Errorf("failed to update labels of record %d: %w", id, err)
	}
	return checkAffected(res, id)
}

func checkAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}
