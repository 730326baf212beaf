// Package extractors holds the file extractors shipped with the sqfeat
// command. They work on raw bytes so they apply to any file type.
package extractors

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/liliang-cn/sqfeat/pkg/dataset"
	"github.com/liliang-cn/sqfeat/pkg/feature"
)

// HistogramBins is the vector length produced by Histogram
const HistogramBins = 16

// ErrUnknownExtractor is returned by Lookup for names not in the registry
var ErrUnknownExtractor = errors.New("unknown extractor")

// Size is the file size in bytes
func Size(path string) (feature.Value, error) {
	info, err := os.Stat(path)
	if err != nil {
		return feature.Value{}, err
	}
	return feature.Int(info.Size()), nil
}

// Mean is the mean byte value, 0 for an empty file
func Mean(path string) (feature.Value, error) {
	counts, total, err := byteCounts(path)
	if err != nil {
		return feature.Value{}, err
	}
	if total == 0 {
		return feature.Number(0), nil
	}
	sum := 0.0
	for b, c := range counts {
		sum += float64(b) * float64(c)
	}
	return feature.Number(sum / float64(total)), nil
}

// Entropy is the Shannon entropy of the byte distribution in bits
func Entropy(path string) (feature.Value, error) {
	counts, total, err := byteCounts(path)
	if err != nil {
		return feature.Value{}, err
	}
	h := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(total)
		h -= p * math.Log2(p)
	}
	return feature.Number(h), nil
}

// Histogram is the normalized byte histogram folded into HistogramBins bins
func Histogram(path string) (feature.Value, error) {
	vec, err := HistogramVector(path)
	if err != nil {
		return feature.Value{}, err
	}
	return feature.Vector(vec), nil
}

// HistogramVector is Histogram as a converter
func HistogramVector(path string) ([]float64, error) {
	counts, total, err := byteCounts(path)
	if err != nil {
		return nil, err
	}
	bins := make([]float64, HistogramBins)
	if total == 0 {
		return bins, nil
	}
	for b, c := range counts {
		bins[b*HistogramBins/256] += float64(c)
	}
	for i := range bins {
		bins[i] /= float64(total)
	}
	return bins, nil
}

// SizeKB derives the size in KiB from an already extracted "size" feature
func SizeKB(_ string, current *feature.Features) (feature.Value, error) {
	size, ok := current.Get("size")
	if !ok {
		return feature.Value{}, fmt.Errorf("size_kb needs the size feature to be extracted first")
	}
	f, err := size.Float()
	if err != nil {
		return feature.Value{}, err
	}
	return feature.Number(f / 1024), nil
}

var independent = map[string]dataset.Extractor{
	"size":      Size,
	"mean":      Mean,
	"entropy":   Entropy,
	"histogram": Histogram,
}

var dependent = map[string]dataset.DependentExtractor{
	"size_kb": SizeKB,
}

var converters = map[string]dataset.Converter{
	"histogram": HistogramVector,
}

// Lookup returns the extractor registered under name. Exactly one of the
// two results is non-nil on success.
func Lookup(name string) (dataset.Extractor, dataset.DependentExtractor, error) {
	if fn, ok := independent[name]; ok {
		return fn, nil, nil
	}
	if fn, ok := dependent[name]; ok {
		return nil, fn, nil
	}
	return nil, nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownExtractor, name, Names())
}

// LookupConverter returns the converter registered under name
func LookupConverter(name string) (dataset.Converter, error) {
	if fn, ok := converters[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("%w: converter %q", ErrUnknownExtractor, name)
}

// Names lists the registered extractors in sorted order
func Names() []string {
	names := make([]string, 0, len(independent)+len(dependent))
	for n := range independent {
		names = append(names, n)
	}
	for n := range dependent {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func byteCounts(path string) ([256]int, int, error) {
	var counts [256]int
	data, err := os.ReadFile(path)
	if err != nil {
		return counts, 0, err
	}
	for _, b := range data {
		counts[b]++
	}
	return counts, len(data), nil
}
