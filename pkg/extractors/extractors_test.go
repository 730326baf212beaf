package extractors

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liliang-cn/sqfeat/pkg/feature"
)

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "f.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestExtractors(t *testing.T) {
	path := writeFile(t, []byte{0, 0, 255, 255})

	size, err := Size(path)
	require.NoError(t, err)
	assert.Equal(t, feature.Int(4), size)

	mean, err := Mean(path)
	require.NoError(t, err)
	assert.InDelta(t, 127.5, mean.Num, 1e-9)

	entropy, err := Entropy(path)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, entropy.Num, 1e-9)

	hist, err := Histogram(path)
	require.NoError(t, err)
	require.Equal(t, HistogramBins, hist.Width())
	assert.InDelta(t, 0.5, hist.Vec[0], 1e-9)
	assert.InDelta(t, 0.5, hist.Vec[HistogramBins-1], 1e-9)
}

func TestExtractorsOnEmptyFile(t *testing.T) {
	path := writeFile(t, nil)

	mean, err := Mean(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, mean.Num)

	entropy, err := Entropy(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, entropy.Num)

	vec, err := HistogramVector(path)
	require.NoError(t, err)
	assert.Len(t, vec, HistogramBins)
}

func TestMissingFile(t *testing.T) {
	_, err := Size(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestSizeKB(t *testing.T) {
	v, err := SizeKB("", feature.Singleton("size", feature.Int(2048)))
	require.NoError(t, err)
	assert.Equal(t, 2.0, v.Num)

	_, err = SizeKB("", nil)
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	fn, dep, err := Lookup("entropy")
	require.NoError(t, err)
	assert.NotNil(t, fn)
	assert.Nil(t, dep)

	fn, dep, err = Lookup("size_kb")
	require.NoError(t, err)
	assert.Nil(t, fn)
	assert.NotNil(t, dep)

	_, _, err = Lookup("sift")
	assert.ErrorIs(t, err, ErrUnknownExtractor)

	_, err = LookupConverter("histogram")
	assert.NoError(t, err)

	assert.Equal(t, []string{"entropy", "histogram", "mean", "size", "size_kb"}, Names())
}
