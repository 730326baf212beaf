// Package dataset tracks the data point files of one directory in a record
// store and computes, caches and returns named features for them.
//
// A dataset starts EMPTY and becomes POPULATED after Prepopulate, or right
// away when its store file already exists. Features are computed by caller
// supplied extractors, once per name and record unless forced.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/liliang-cn/sqfeat/pkg/core"
	"github.com/liliang-cn/sqfeat/pkg/feature"
	"github.com/liliang-cn/sqfeat/pkg/monitoring"
)

// Extractor computes one feature value from a data point file. Extra
// parameters are bound by the caller with a closure.
type Extractor func(path string) (feature.Value, error)

// DependentExtractor computes a feature from the file and the features
// already stored for it. current is nil when nothing was extracted yet.
type DependentExtractor func(path string, current *feature.Features) (feature.Value, error)

// Converter turns a data point file straight into a numeric vector without
// touching the store.
type Converter func(path string) ([]float64, error)

// Dataset is an unlabeled dataset. LabeledDataset builds on it.
type Dataset struct {
	config    Config
	variant   core.Variant
	dbPath    string
	store     *core.SQLiteStore
	populated bool
	pointsAmt int64
	logger    core.Logger
	monitor   *monitoring.Monitor
}

// NewUnlabeled creates a dataset over cfg.SetPath. An existing store file is
// opened and the dataset is populated already.
func NewUnlabeled(ctx context.Context, cfg Config) (*Dataset, error) {
	return newDataset(ctx, cfg, core.VariantUnlabeled)
}

func newDataset(ctx context.Context, cfg Config, variant core.Variant) (*Dataset, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = core.NopLogger()
	}

	d := &Dataset{
		config:  cfg,
		variant: variant,
		dbPath:  cfg.dbPath(variant),
		monitor: cfg.Monitor,
	}
	d.logger = cfg.Logger.With("dataset", filepath.Base(d.dbPath))

	_, err := os.Stat(d.dbPath)
	switch {
	case err == nil:
		if err := d.open(ctx, true); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to check store %s: %w", d.dbPath, err)
	}

	return d, nil
}

// open opens or creates the store and reads the record count
func (d *Dataset) open(ctx context.Context, mustExist bool) error {
	cfg := core.DefaultConfig(d.dbPath)
	cfg.Variant = d.variant
	cfg.MustExist = mustExist
	cfg.Compression = d.config.Compression
	cfg.TraceSQL = d.config.TraceSQL
	cfg.Logger = d.logger

	store, err := core.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	d.store = store
	if store.AlreadyPopulated() {
		n, err := store.Count(ctx)
		if err != nil {
			_ = store.Close()
			d.store = nil
			return fmt.Errorf("failed to count records: %w", err)
		}
		d.populated = true
		d.pointsAmt = n
	}
	return nil
}

// Prepopulate creates the store with one record per file in SetPath. It is
// a no-op when the dataset is already populated.
func (d *Dataset) Prepopulate(ctx context.Context) error {
	if d.populated {
		d.logger.Info("store already populated, skipping", "records", d.pointsAmt)
		return nil
	}

	files, err := listFiles(d.config.SetPath)
	if err != nil {
		return err
	}

	records := make([]*core.Record, 0, len(files))
	for _, name := range files {
		records = append(records, &core.Record{
			ExternalID:   Normalize(d.config.FilePrefix, d.config.FileSuffix, name),
			RelativePath: name,
		})
	}

	if d.variant == core.VariantLabeled {
		if err := d.attachLabels(records); err != nil {
			return err
		}
	}

	if d.config.DBDir != "" {
		if err := os.MkdirAll(d.config.DBDir, 0o755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	if err := d.open(ctx, false); err != nil {
		return err
	}
	if d.populated {
		// created by someone else between construction and now
		return nil
	}

	if err := d.store.InsertBatch(ctx, records); err != nil {
		_ = d.store.Close()
		d.store = nil
		removeStore(d.dbPath)
		return fmt.Errorf("failed to populate %s: %w", d.dbPath, err)
	}

	d.populated = true
	d.pointsAmt = int64(len(records))
	d.monitor.Populated(filepath.Base(d.dbPath), len(records))
	d.logger.Info("store populated", "records", d.pointsAmt, "set", d.config.SetPath)

	return nil
}

// Populated reports whether the dataset has a store
func (d *Dataset) Populated() bool {
	return d.populated
}

// PointsAmt is the number of records in the store
func (d *Dataset) PointsAmt() int64 {
	return d.pointsAmt
}

// DBPath returns the store file location
func (d *Dataset) DBPath() string {
	return d.dbPath
}

// Store returns the underlying record store, nil before Prepopulate
func (d *Dataset) Store() *core.SQLiteStore {
	return d.store
}

// Close releases the store
func (d *Dataset) Close() error {
	if d.store == nil {
		return nil
	}
	return d.store.Close()
}

func (d *Dataset) requirePopulated(op string) error {
	if !d.populated {
		return &EmptyDatabaseError{Op: op, Path: d.dbPath}
	}
	return nil
}

func (d *Dataset) requireRecords(op string) error {
	if err := d.requirePopulated(op); err != nil {
		return err
	}
	if d.pointsAmt == 0 {
		return &EmptyDatabaseError{Op: op, Path: d.dbPath}
	}
	return nil
}

func (d *Dataset) filePath(rec *core.Record) string {
	return filepath.Join(d.config.SetPath, rec.RelativePath)
}

// listFiles returns the regular files directly under dir in lexical order
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, e.Name())
		}
	}
	return files, nil
}

func removeStore(path string) {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
}
