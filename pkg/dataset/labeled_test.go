package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liliang-cn/sqfeat/pkg/core"
	"github.com/liliang-cn/sqfeat/pkg/feature"
)

func writeLabels(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labels.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newLabeled(t *testing.T, cfg Config) *LabeledDataset {
	t.Helper()
	d, err := NewLabeled(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestNewLabeledRequiresLabels(t *testing.T) {
	ctx := context.Background()
	set := writeSet(t, "a.jpg")

	tests := []struct {
		name   string
		labels string
	}{
		{"no path", ""},
		{"missing file", filepath.Join(t.TempDir(), "nope.csv")},
		{"directory", t.TempDir()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(set, t.TempDir())
			cfg.LabelsPath = tt.labels

			_, err := NewLabeled(ctx, cfg)
			assert.ErrorIs(t, err, ErrInsufficientData)
			var insufficient *InsufficientDataError
			require.True(t, errors.As(err, &insufficient))
			assert.Equal(t, tt.labels, insufficient.Path)
		})
	}
}

func TestPositionalLabelPairing(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig(writeSet(t, "b.jpg", "a.jpg"), t.TempDir())
	// the id column is deliberately wrong: positional pairing ignores it
	cfg.LabelsPath = writeLabels(t, "id,score,class\nzzz,0.5,cat\nyyy,1.5,dog\n")
	cfg.LabelDict = map[string]feature.Value{"cat": feature.Int(0), "dog": feature.Int(1)}

	d := newLabeled(t, cfg)
	require.NoError(t, d.Prepopulate(ctx))
	assert.Equal(t, filepath.Join(cfg.DBDir, DefaultLabeledDB), d.DBPath())

	original, err := d.Labels(ctx, true)
	require.NoError(t, err)
	require.Len(t, original, 2)
	assert.Equal(t, []feature.Value{feature.Number(0.5), feature.String("cat")}, original[0])
	assert.Equal(t, []feature.Value{feature.Number(1.5), feature.String("dog")}, original[1])

	transformed, err := d.LabelMatrix(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, transformed.Cols)
	assert.Equal(t, []float64{0.5, 0, 1.5, 1}, transformed.Data)

	_, err = d.LabelMatrix(ctx, true)
	assert.Error(t, err, "original labels hold strings")

	single, err := d.SingleLabels(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, feature.Int(1), single.Transformed[1])

	path, err := d.SinglePath(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "a.jpg", path)
}

func TestLabelsWithoutHeader(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig(writeSet(t, "a.jpg"), t.TempDir())
	cfg.LabelsPath = writeLabels(t, "a;3;4\n")
	cfg.LabelDelimiter = ";"
	cfg.NoLabelHeader = true

	d := newLabeled(t, cfg)
	require.NoError(t, d.Prepopulate(ctx))

	m, err := d.LabelMatrix(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, m.Data)
}

func TestZeroConfigSkipsLabelHeader(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		SetPath:    writeSet(t, "a.jpg", "b.jpg"),
		DBDir:      t.TempDir(),
		LabelsPath: writeLabels(t, "id,label\na,1\nb,2\n"),
	}

	d := newLabeled(t, cfg)
	require.NoError(t, d.Prepopulate(ctx))

	original, err := d.Labels(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, [][]feature.Value{{feature.Int(1)}, {feature.Int(2)}}, original)
}

func TestVectorLabelsWidenMatrix(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig(writeSet(t, "a.jpg", "b.jpg"), t.TempDir())
	cfg.LabelsPath = writeLabels(t, "id,class\na,cat\nb,dog\n")
	cfg.LabelDict = map[string]feature.Value{
		"cat": feature.Vector([]float64{1, 0}),
		"dog": feature.Vector([]float64{0, 1}),
	}

	d := newLabeled(t, cfg)
	require.NoError(t, d.Prepopulate(ctx))

	single, err := d.SingleLabels(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, single.Width())

	m, err := d.LabelMatrix(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Cols)
	assert.Equal(t, []float64{1, 0, 0, 1}, m.Data)
}

func TestInsufficientLabelRows(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig(writeSet(t, "a.jpg", "b.jpg", "c.jpg"), t.TempDir())
	cfg.LabelsPath = writeLabels(t, "id,y\na,1\nb,0\n")

	d := newLabeled(t, cfg)
	err := d.Prepopulate(ctx)
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.False(t, d.Populated())

	_, statErr := os.Stat(d.DBPath())
	assert.True(t, os.IsNotExist(statErr), "no store file after a failed populate")
}

func TestPairByExternalID(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig(writeSet(t, "IMG_1.jpg", "IMG_2.jpg"), t.TempDir())
	cfg.FilePrefix = "IMG_"
	cfg.FileSuffix = ".jpg"
	cfg.Pairing = PairByExternalID
	cfg.LabelsPath = writeLabels(t, "id,y\n2,20\n1,10\n3,30\n")

	d := newLabeled(t, cfg)
	require.NoError(t, d.Prepopulate(ctx))

	m, err := d.LabelMatrix(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20}, m.Data)

	t.Run("missing id", func(t *testing.T) {
		cfg := DefaultConfig(writeSet(t, "IMG_4.jpg"), t.TempDir())
		cfg.FilePrefix = "IMG_"
		cfg.FileSuffix = ".jpg"
		cfg.Pairing = PairByExternalID
		cfg.LabelsPath = writeLabels(t, "id,y\n1,10\n")

		d := newLabeled(t, cfg)
		assert.ErrorIs(t, d.Prepopulate(ctx), ErrInsufficientData)
	})
}

func TestLabeledReopen(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig(writeSet(t, "a.jpg"), t.TempDir())
	cfg.LabelsPath = writeLabels(t, "id,y\na,7\n")

	d := newLabeled(t, cfg)
	require.NoError(t, d.Prepopulate(ctx))
	_, err := d.ExtractFeature(ctx, "one", func(string) (feature.Value, error) {
		return feature.Number(1), nil
	})
	require.NoError(t, err)
	require.NoError(t, d.Close())

	reopened := newLabeled(t, cfg)
	assert.True(t, reopened.Populated())

	labels, err := reopened.Labels(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, [][]feature.Value{{feature.Int(7)}}, labels)

	features, err := reopened.Features(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]feature.Value{{feature.Number(1)}}, features)

	t.Run("unlabeled open of labeled store", func(t *testing.T) {
		unlabeled := cfg
		unlabeled.DBName = DefaultLabeledDB
		_, err := NewUnlabeled(ctx, unlabeled)
		assert.ErrorIs(t, err, core.ErrVariantMismatch)
	})
}

func TestInvalidDelimiter(t *testing.T) {
	cfg := DefaultConfig(writeSet(t, "a.jpg"), t.TempDir())
	cfg.LabelsPath = writeLabels(t, "id,y\n")
	cfg.LabelDelimiter = "::"

	_, err := NewLabeled(context.Background(), cfg)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}
