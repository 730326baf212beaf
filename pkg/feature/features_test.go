package feature

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeaturesKeepInsertionOrder(t *testing.T) {
	f := NewFeatures()
	f.Set("b", Number(2))
	f.Set("a", Number(1))
	f.Set("c", Vector([]float64{1, 2}))
	f.Set("b", Number(20))

	assert.Equal(t, []string{"b", "a", "c"}, f.Names())
	v, ok := f.Get("b")
	require.True(t, ok)
	assert.Equal(t, 20.0, v.Num)
}

func TestFeaturesSelectUsesMappingOrder(t *testing.T) {
	f := NewFeatures()
	f.Set("x", Number(1))
	f.Set("y", Number(2))
	f.Set("z", Number(3))

	got := f.Select([]string{"z", "x"})
	require.Len(t, got, 2)
	assert.Equal(t, 1.0, got[0].Num)
	assert.Equal(t, 3.0, got[1].Num)
	assert.Equal(t, []string{"x", "z"}, f.SelectNames([]string{"z", "x"}))
	assert.Len(t, f.Select(nil), 3)
}

func TestNilFeatures(t *testing.T) {
	var f *Features
	assert.Equal(t, 0, f.Len())
	assert.False(t, f.Has("x"))
	assert.Nil(t, f.Names())
	assert.Nil(t, f.Select(nil))
	assert.Nil(t, f.Clone())
}

func TestCloneIsDeep(t *testing.T) {
	f := Singleton("v", Vector([]float64{1, 2, 3}))
	c := f.Clone()
	c.Set("w", Number(1))
	v, _ := c.Get("v")
	v.Vec[0] = 100

	assert.Equal(t, 1, f.Len())
	orig, _ := f.Get("v")
	assert.Equal(t, 1.0, orig.Vec[0])
}

func TestValueWidthAndFlatten(t *testing.T) {
	tests := []struct {
		name  string
		val   Value
		width int
		flat  []float64
		fails bool
	}{
		{"number", Number(3), 1, []float64{3}, false},
		{"numeric string", String("2.5"), 1, []float64{2.5}, false},
		{"vector", Vector([]float64{1, 2, 3, 4}), 4, []float64{1, 2, 3, 4}, false},
		{"text", String("cat"), 1, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.width, tt.val.Width())
			got, err := tt.val.Flatten(nil)
			if tt.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.flat, got)
		})
	}
}

func TestValueEqualTreatsNaNAsEqual(t *testing.T) {
	assert.True(t, Number(math.NaN()).Equal(Number(math.NaN())))
	assert.False(t, Number(1).Equal(String("1")))
}

func TestNewLabelsAppliesDict(t *testing.T) {
	l := NewLabels([]string{"cat", "0.5", "dog"}, map[string]Value{"cat": Int(1), "dog": Int(0)})

	require.Equal(t, 3, l.Width())
	assert.Equal(t, String("cat"), l.Original[0])
	assert.Equal(t, Number(0.5), l.Original[1])
	assert.Equal(t, Int(1), l.Transformed[0])
	assert.Equal(t, Number(0.5), l.Transformed[1])
	assert.Equal(t, Int(0), l.Transformed[2])
	assert.Equal(t, l.Original, l.Pick(true))
}
