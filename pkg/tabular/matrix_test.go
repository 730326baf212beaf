package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liliang-cn/sqfeat/pkg/feature"
)

func TestMaterializeScalarColumn(t *testing.T) {
	rows := []*feature.Features{
		feature.Singleton("x", feature.Int(1)),
		feature.Singleton("x", feature.Int(2)),
		feature.Singleton("x", feature.Int(3)),
	}

	m, err := Materialize(rows, []string{"x"})
	require.NoError(t, err)

	assert.Equal(t, 3, m.Rows)
	assert.Equal(t, 1, m.Cols)
	assert.Equal(t, []float64{1, 2, 3}, m.Data)
}

func TestMaterializeFlattensVectors(t *testing.T) {
	f := feature.NewFeatures()
	f.Set("mean", feature.Number(0.5))
	f.Set("hist", feature.Vector([]float64{1, 2, 3, 4}))

	m, err := Materialize([]*feature.Features{f}, nil)
	require.NoError(t, err)

	require.Equal(t, 5, m.Cols)
	assert.Equal(t, []float64{0.5, 1, 2, 3, 4}, m.Row(0))

	cols := Columns(f, nil)
	assert.Equal(t, []Column{{Name: "mean", Width: 1}, {Name: "hist", Width: 4}}, cols)
	assert.Equal(t, 5, Width(cols))
}

func TestMaterializeSelectKeepsMappingOrder(t *testing.T) {
	f := feature.NewFeatures()
	f.Set("a", feature.Int(1))
	f.Set("b", feature.Int(2))
	f.Set("c", feature.Int(3))

	m, err := Materialize([]*feature.Features{f}, []string{"c", "a"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, m.Row(0))
}

func TestMaterializeErrors(t *testing.T) {
	tests := []struct {
		name    string
		rows    []*feature.Features
		wantErr error
	}{
		{
			name: "ragged vector",
			rows: []*feature.Features{
				feature.Singleton("v", feature.Vector([]float64{1, 2})),
				feature.Singleton("v", feature.Vector([]float64{1, 2, 3})),
			},
			wantErr: ErrRaggedRow,
		},
		{
			name: "missing feature",
			rows: []*feature.Features{
				feature.Singleton("x", feature.Int(1)),
				nil,
			},
			wantErr: ErrRaggedRow,
		},
		{
			name: "non numeric string",
			rows: []*feature.Features{
				feature.Singleton("s", feature.String("cat")),
			},
			wantErr: ErrNotNumeric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Materialize(tt.rows, nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMaterializeNumericStrings(t *testing.T) {
	m, err := Materialize([]*feature.Features{feature.Singleton("s", feature.String("2.5"))}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2.5, m.At(0, 0))
}

func TestMaterializeLabels(t *testing.T) {
	rows := [][]feature.Value{
		{feature.Int(0), feature.Int(1)},
		{feature.Int(1), feature.Int(0)},
	}

	m, err := MaterializeLabels(rows)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Rows)
	assert.Equal(t, 2, m.Cols)
	assert.Equal(t, 1.0, m.At(1, 0))

	_, err = MaterializeLabels([][]feature.Value{{feature.Int(0)}, {}})
	assert.ErrorIs(t, err, ErrRaggedRow)

	oneHot, err := MaterializeLabels([][]feature.Value{
		{feature.Vector([]float64{0, 1})},
		{feature.Vector([]float64{1, 0})},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, oneHot.Cols)
	assert.Equal(t, []float64{0, 1, 1, 0}, oneHot.Data)

	empty, err := MaterializeLabels(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Rows)
}

func TestMatrixAccessors(t *testing.T) {
	m := NewMatrix(2, 3)
	m.Set(1, 2, 7)
	assert.Equal(t, 7.0, m.At(1, 2))
	assert.Equal(t, []float64{0, 0, 7}, m.Row(1))

	col := FromColumn([]float64{4, 5})
	assert.Equal(t, 2, col.Rows)
	assert.Equal(t, 5.0, col.At(1, 0))
}
