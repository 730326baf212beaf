package dataset

import (
	"context"
	"fmt"

	"github.com/liliang-cn/sqfeat/pkg/core"
	"github.com/liliang-cn/sqfeat/pkg/feature"
	"github.com/liliang-cn/sqfeat/pkg/tabular"
)

// CopyFeatures merges the features stored at sourcePath into this dataset.
// Records are matched by surrogate id, so both stores must have been
// populated from the same listing. A feature already present here is only
// overwritten when force is set.
func (d *Dataset) CopyFeatures(ctx context.Context, sourcePath string, force bool) error {
	records, err := d.records(ctx, "copy_features")
	if err != nil {
		return err
	}

	source, err := readSource(ctx, sourcePath, d.logger)
	if err != nil {
		return fmt.Errorf("copy_features: %w", err)
	}

	copied, unmatched := 0, 0
	err = d.store.Batch(ctx, func(tx *core.Tx) error {
		for _, rec := range records {
			src, ok := source[rec.ID]
			if !ok {
				unmatched++
				continue
			}
			if src.Len() == 0 {
				continue
			}

			merged := rec.Features.Clone()
			if merged == nil {
				merged = feature.NewFeatures()
			}
			changed := false
			for _, name := range src.Names() {
				if merged.Has(name) && !force {
					continue
				}
				v, _ := src.Get(name)
				merged.Set(name, v)
				changed = true
				copied++
			}
			if !changed {
				continue
			}
			if err := tx.UpdateFeatures(rec.ID, merged); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("copy_features: %w", err)
	}

	if unmatched > 0 {
		d.logger.Warn("source store has fewer records", "source", sourcePath, "unmatched", unmatched)
	}
	d.logger.Info("features copied", "source", sourcePath, "values", copied, "force", force)

	return nil
}

// readSource loads the feature mappings of another store keyed by id. The
// source is closed before the destination is written.
func readSource(ctx context.Context, path string, logger core.Logger) (map[int64]*feature.Features, error) {
	cfg := core.DefaultConfig(path)
	cfg.MustExist = true
	cfg.Logger = logger

	src, err := core.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	records, err := src.IterateOrdered(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[int64]*feature.Features, len(records))
	for _, rec := range records {
		out[rec.ID] = rec.Features
	}
	return out, nil
}

// DumpFeature stores precomputed values under name, values[i] going to the
// record with id i+1. Without force, records that hold name keep their value.
func (d *Dataset) DumpFeature(ctx context.Context, name string, values []feature.Value, force bool) error {
	if err := d.requirePopulated("dump_feature"); err != nil {
		return err
	}
	if int64(len(values)) != d.pointsAmt {
		return &WrongSizeError{Op: "dump_feature", Want: d.pointsAmt, Got: int64(len(values))}
	}
	return d.dump(ctx, "dump_feature", name, values, force)
}

// DumpFeatureMatrix is DumpFeature for one matrix row per record. A single
// column matrix stores scalars, wider matrices store vectors.
func (d *Dataset) DumpFeatureMatrix(ctx context.Context, name string, m *tabular.Matrix, force bool) error {
	if err := d.requirePopulated("dump_feature"); err != nil {
		return err
	}
	if m == nil || int64(m.Rows) != d.pointsAmt {
		got := int64(0)
		if m != nil {
			got = int64(m.Rows)
		}
		return &WrongSizeError{Op: "dump_feature", Want: d.pointsAmt, Got: got}
	}

	values := make([]feature.Value, m.Rows)
	for i := range values {
		if m.Cols == 1 {
			values[i] = feature.Number(m.At(i, 0))
		} else {
			values[i] = feature.Vector(m.Row(i))
		}
	}
	return d.dump(ctx, "dump_feature", name, values, force)
}

func (d *Dataset) dump(ctx context.Context, op, name string, values []feature.Value, force bool) error {
	if name == "" {
		return fmt.Errorf("%s: feature name cannot be empty", op)
	}

	records, err := d.records(ctx, op)
	if err != nil {
		return err
	}
	if len(records) != len(values) {
		return &WrongSizeError{Op: op, Want: int64(len(records)), Got: int64(len(values))}
	}

	written := 0
	err = d.store.Batch(ctx, func(tx *core.Tx) error {
		for i, rec := range records {
			if rec.Features.Has(name) && !force {
				continue
			}
			if !values[i].IsValid() {
				return fmt.Errorf("%w: feature %q, record %d", ErrInvalidValue, name, rec.ID)
			}
			if rec.Features == nil {
				rec.Features = feature.NewFeatures()
			}
			rec.Features.Set(name, values[i])
			if err := tx.UpdateFeatures(rec.ID, rec.Features); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	d.logger.Info("feature dumped", "feature", name, "written", written, "force", force)
	return nil
}
