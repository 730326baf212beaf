package dataset

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/liliang-cn/sqfeat/pkg/core"
	"github.com/liliang-cn/sqfeat/pkg/feature"
	"github.com/liliang-cn/sqfeat/pkg/tabular"
)

func (d *Dataset) records(ctx context.Context, op string) ([]*core.Record, error) {
	if err := d.requirePopulated(op); err != nil {
		return nil, err
	}
	records, err := d.store.IterateOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}

// Features returns, per record by ascending id, the values of the named
// features in mapping order. No names selects all features.
func (d *Dataset) Features(ctx context.Context, names ...string) ([][]feature.Value, error) {
	records, err := d.records(ctx, "features")
	if err != nil {
		return nil, err
	}

	out := make([][]feature.Value, len(records))
	for i, rec := range records {
		out[i] = rec.Features.Select(names)
	}
	return out, nil
}

// FeatureMatrix materializes the named features into a dense matrix, one row
// per record. Every record must hold the same features.
func (d *Dataset) FeatureMatrix(ctx context.Context, names ...string) (*tabular.Matrix, error) {
	if err := d.requireRecords("feature_matrix"); err != nil {
		return nil, err
	}
	records, err := d.records(ctx, "feature_matrix")
	if err != nil {
		return nil, err
	}

	rows := make([]*feature.Features, len(records))
	for i, rec := range records {
		rows[i] = rec.Features
	}

	m, err := tabular.Materialize(rows, names)
	if err != nil {
		return nil, fmt.Errorf("feature_matrix: %w", err)
	}
	return m, nil
}

// FeatureNames lists the features of the first record in insertion order
func (d *Dataset) FeatureNames(ctx context.Context) ([]string, error) {
	first, err := d.first(ctx, "feature_names")
	if err != nil || first == nil {
		return nil, err
	}
	return first.Features.Names(), nil
}

// FeatureColumns lists the features of the first record with their matrix widths
func (d *Dataset) FeatureColumns(ctx context.Context) ([]tabular.Column, error) {
	first, err := d.first(ctx, "feature_columns")
	if err != nil || first == nil {
		return nil, err
	}
	return tabular.Columns(first.Features, nil), nil
}

func (d *Dataset) first(ctx context.Context, op string) (*core.Record, error) {
	if err := d.requirePopulated(op); err != nil {
		return nil, err
	}
	if d.pointsAmt == 0 {
		return nil, nil
	}
	rec, err := d.store.Get(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// ExternalIDs returns the external ids by ascending record id
func (d *Dataset) ExternalIDs(ctx context.Context) ([]string, error) {
	records, err := d.records(ctx, "external_ids")
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ExternalID
	}
	return ids, nil
}

// SingleFeatures returns the feature mapping of record id, nil if none yet
func (d *Dataset) SingleFeatures(ctx context.Context, id int64) (*feature.Features, error) {
	rec, err := d.single(ctx, "single_features", id)
	if err != nil {
		return nil, err
	}
	return rec.Features, nil
}

// SingleExternalID returns the external id of record id
func (d *Dataset) SingleExternalID(ctx context.Context, id int64) (string, error) {
	rec, err := d.single(ctx, "single_external_id", id)
	if err != nil {
		return "", err
	}
	return rec.ExternalID, nil
}

// SinglePath returns the path of record id relative to the set directory
func (d *Dataset) SinglePath(ctx context.Context, id int64) (string, error) {
	rec, err := d.single(ctx, "single_path", id)
	if err != nil {
		return "", err
	}
	return rec.RelativePath, nil
}

// SingleFilePath returns the path of the file behind record id, joined
// with the set directory
func (d *Dataset) SingleFilePath(ctx context.Context, id int64) (string, error) {
	rec, err := d.single(ctx, "single_file_path", id)
	if err != nil {
		return "", err
	}
	return d.filePath(rec), nil
}

func (d *Dataset) single(ctx context.Context, op string, id int64) (*core.Record, error) {
	if err := d.requirePopulated(op); err != nil {
		return nil, err
	}
	rec, err := d.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// Coverage returns the ids of the records that hold feature name
func (d *Dataset) Coverage(ctx context.Context, name string) (*roaring.Bitmap, error) {
	if err := d.requirePopulated("coverage"); err != nil {
		return nil, err
	}
	return d.store.Coverage(ctx, name)
}

// MissingFeature returns the ids of the records that lack feature name,
// for instance after an interrupted extraction pass
func (d *Dataset) MissingFeature(ctx context.Context, name string) (*roaring.Bitmap, error) {
	cov, err := d.Coverage(ctx, name)
	if err != nil {
		return nil, err
	}
	return core.Missing(cov, d.pointsAmt), nil
}
