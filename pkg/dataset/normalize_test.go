package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		prefix, suffix, name string
		want                 string
	}{
		{"IMG_", ".jpg", "IMG_001.jpg", "001"},
		{"", "", "abc.jpg", "abc.jpg"},
		{"IMG_", ".jpg", "photo.jpg", "photo"},
		{"IMG_", ".jpg", "IMG_002.png", "002.png"},
		{"a", "", "aab", "ab"},
		{"", ".jpg", "x.jpg.jpg", "x.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.prefix, tt.suffix, tt.name))
		})
	}
}
