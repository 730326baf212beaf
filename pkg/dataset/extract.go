package dataset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liliang-cn/sqfeat/pkg/core"
	"github.com/liliang-cn/sqfeat/pkg/feature"
)

// ErrInvalidValue is returned when an extractor yields a zero Value
var ErrInvalidValue = errors.New("extractor returned an invalid value")

// ExtractOption configures an extraction pass
type ExtractOption func(*extractOptions)

type extractOptions struct {
	force    bool
	progress int
}

// WithForce recomputes the feature for records that already have it
func WithForce() ExtractOption {
	return func(o *extractOptions) { o.force = true }
}

// WithProgress logs a progress line every n records
func WithProgress(n int) ExtractOption {
	return func(o *extractOptions) { o.progress = n }
}

// ExtractStats summarizes one extraction pass
type ExtractStats struct {
	Computed int
	Skipped  int
	Duration time.Duration
}

// ExtractFeature stores fn's value under name for every record that does
// not hold name yet, or for every record when forced. The pass is
// committed as a whole; an extractor error leaves the store untouched.
func (d *Dataset) ExtractFeature(ctx context.Context, name string, fn Extractor, opts ...ExtractOption) (ExtractStats, error) {
	if fn == nil {
		return ExtractStats{}, fmt.Errorf("extractor for %q is nil", name)
	}
	return d.extract(ctx, "extract_feature", name, func(path string, _ *feature.Features) (feature.Value, error) {
		return fn(path)
	}, opts)
}

// ExtractDependentFeature is ExtractFeature for extractors that read the
// features already stored for a record. Features it depends on must have
// been extracted for every record beforehand.
func (d *Dataset) ExtractDependentFeature(ctx context.Context, name string, fn DependentExtractor, opts ...ExtractOption) (ExtractStats, error) {
	if fn == nil {
		return ExtractStats{}, fmt.Errorf("extractor for %q is nil", name)
	}
	return d.extract(ctx, "extract_dependent_feature", name, func(path string, current *feature.Features) (feature.Value, error) {
		return fn(path, current.Clone())
	}, opts)
}

func (d *Dataset) extract(ctx context.Context, op, name string, compute DependentExtractor, opts []ExtractOption) (ExtractStats, error) {
	if err := d.requirePopulated(op); err != nil {
		return ExtractStats{}, err
	}
	if name == "" {
		return ExtractStats{}, fmt.Errorf("%s: feature name cannot be empty", op)
	}

	var o extractOptions
	for _, opt := range opts {
		opt(&o)
	}

	records, err := d.store.IterateOrdered(ctx)
	if err != nil {
		return ExtractStats{}, fmt.Errorf("%s: %w", op, err)
	}

	d.logger.Info("extracting feature", "feature", name, "records", len(records), "force", o.force)
	stop := d.monitor.StartPass(name)
	start := time.Now()

	var stats ExtractStats
	err = d.store.Batch(ctx, func(tx *core.Tx) error {
		for i, rec := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			if o.progress > 0 && i%o.progress == 0 {
				d.logger.Info("extraction progress", "feature", name, "record", i+1, "total", len(records))
			}

			if rec.Features.Has(name) && !o.force {
				stats.Skipped++
				continue
			}

			v, err := compute(d.filePath(rec), rec.Features)
			if err != nil {
				return fmt.Errorf("extractor %q failed on record %d (%s): %w", name, rec.ID, rec.RelativePath, err)
			}
			if !v.IsValid() {
				return fmt.Errorf("%w: feature %q, record %d", ErrInvalidValue, name, rec.ID)
			}

			if rec.Features == nil {
				rec.Features = feature.Singleton(name, v)
			} else {
				rec.Features.Set(name, v)
			}
			if err := tx.UpdateFeatures(rec.ID, rec.Features); err != nil {
				return err
			}
			stats.Computed++
		}
		return nil
	})
	stop()
	stats.Duration = time.Since(start)

	if err != nil {
		d.monitor.ExtractorFailed(name)
		return ExtractStats{}, fmt.Errorf("%s: %w", op, err)
	}

	d.monitor.Extracted(name, stats.Computed, stats.Skipped)
	d.logger.Info("feature extracted", "feature", name, "computed", stats.Computed, "skipped", stats.Skipped, "duration", stats.Duration)

	return stats, nil
}
