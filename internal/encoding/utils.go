package encoding

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/liliang-cn/sqfeat/pkg/feature"
)

// ErrInvalidBlob is returned when a stored blob cannot be decoded
var ErrInvalidBlob = errors.New("invalid blob")

// maxLen bounds every length prefix, which is written as int32
const maxLen = math.MaxInt32

// EncodeFeatures serializes a feature mapping, names in insertion order.
// A nil mapping encodes to nil so it is stored as NULL.
func EncodeFeatures(f *feature.Features) ([]byte, error) {
	if f == nil {
		return nil, nil
	}

	buf := new(bytes.Buffer)
	names := f.Names()
	if err := writeLen(buf, len(names)); err != nil {
		return nil, err
	}

	for _, name := range names {
		v, _ := f.Get(name)
		if err := writeString(buf, name); err != nil {
			return nil, fmt.Errorf("failed to encode feature name %q: %w", name, err)
		}
		if err := writeValue(buf, v); err != nil {
			return nil, fmt.Errorf("failed to encode feature %q: %w", name, err)
		}
	}

	return buf.Bytes(), nil
}

// DecodeFeatures is the inverse of EncodeFeatures
func DecodeFeatures(data []byte) (*feature.Features, error) {
	if data == nil {
		return nil, nil
	}

	buf := bytes.NewReader(data)
	count, err := readLen(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to decode feature count: %w", err)
	}

	f := feature.NewFeatures()
	for i := 0; i < count; i++ {
		name, err := readString(buf)
		if err != nil {
			return nil, fmt.Errorf("failed to decode feature name at index %d: %w", i, err)
		}
		v, err := readValue(buf)
		if err != nil {
			return nil, fmt.Errorf("failed to decode feature %q: %w", name, err)
		}
		f.Set(name, v)
	}

	if buf.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidBlob, buf.Len())
	}

	return f, nil
}

// EncodeLabels serializes the original and transformed label lists
func EncodeLabels(l *feature.Labels) ([]byte, error) {
	if l == nil {
		return nil, nil
	}

	buf := new(bytes.Buffer)
	for _, side := range [][]feature.Value{l.Original, l.Transformed} {
		if err := writeLen(buf, len(side)); err != nil {
			return nil, err
		}
		for i, v := range side {
			if err := writeValue(buf, v); err != nil {
				return nil, fmt.Errorf("failed to encode label at index %d: %w", i, err)
			}
		}
	}

	return buf.Bytes(), nil
}

// DecodeLabels is the inverse of EncodeLabels
func DecodeLabels(data []byte) (*feature.Labels, error) {
	if data == nil {
		return nil, nil
	}

	buf := bytes.NewReader(data)
	var sides [2][]feature.Value
	for s := range sides {
		n, err := readLen(buf)
		if err != nil {
			return nil, fmt.Errorf("failed to decode label count: %w", err)
		}
		sides[s] = make([]feature.Value, n)
		for i := 0; i < n; i++ {
			if sides[s][i], err = readValue(buf); err != nil {
				return nil, fmt.Errorf("failed to decode label at index %d: %w", i, err)
			}
		}
	}

	if len(sides[0]) != len(sides[1]) {
		return nil, fmt.Errorf("%w: label sides differ in length (%d vs %d)", ErrInvalidBlob, len(sides[0]), len(sides[1]))
	}

	return &feature.Labels{Original: sides[0], Transformed: sides[1]}, nil
}

func writeLen(buf *bytes.Buffer, n int) error {
	if n > maxLen {
		return fmt.Errorf("length %d exceeds maximum", n)
	}
	return binary.Write(buf, binary.LittleEndian, int32(n))
}

func readLen(buf *bytes.Reader) (int, error) {
	var n int32
	if err := binary.Read(buf, binary.LittleEndian, &n); err != nil {
		return 0, err
	}
	if n < 0 || int(n) > buf.Len() {
		// every element takes at least one byte
		return 0, ErrInvalidBlob
	}
	return int(n), nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if err := writeLen(buf, len(s)); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(buf *bytes.Reader) (string, error) {
	n, err := readLen(buf)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(buf, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func writeValue(buf *bytes.Buffer, v feature.Value) error {
	if !v.IsValid() {
		return fmt.Errorf("%w: kind %d", ErrInvalidBlob, v.Kind)
	}
	buf.WriteByte(byte(v.Kind))

	switch v.Kind {
	case feature.KindNumber:
		return binary.Write(buf, binary.LittleEndian, v.Num)
	case feature.KindString:
		return writeString(buf, v.Str)
	default:
		if err := writeLen(buf, len(v.Vec)); err != nil {
			return err
		}
		return binary.Write(buf, binary.LittleEndian, v.Vec)
	}
}

func readValue(buf *bytes.Reader) (feature.Value, error) {
	kind, err := buf.ReadByte()
	if err != nil {
		return feature.Value{}, err
	}

	switch feature.Kind(kind) {
	case feature.KindNumber:
		var f float64
		if err := binary.Read(buf, binary.LittleEndian, &f); err != nil {
			return feature.Value{}, err
		}
		return feature.Number(f), nil
	case feature.KindString:
		s, err := readString(buf)
		if err != nil {
			return feature.Value{}, err
		}
		return feature.String(s), nil
	case feature.KindVector:
		n, err := readLen(buf)
		if err != nil {
			return feature.Value{}, err
		}
		if n*8 > buf.Len() {
			return feature.Value{}, ErrInvalidBlob
		}
		vec := make([]float64, n)
		if err := binary.Read(buf, binary.LittleEndian, vec); err != nil {
			return feature.Value{}, err
		}
		return feature.Value{Kind: feature.KindVector, Vec: vec}, nil
	default:
		return feature.Value{}, fmt.Errorf("%w: unknown kind %d", ErrInvalidBlob, kind)
	}
}
