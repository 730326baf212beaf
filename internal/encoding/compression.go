package encoding

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType defines the compression algorithm used for stored blobs.
type CompressionType uint8

const (
	// CompressionNone stores blobs as is.
	CompressionNone CompressionType = 0
	// CompressionLZ4 uses LZ4 block compression.
	CompressionLZ4 CompressionType = 1
	// CompressionZSTD uses ZSTD block compression.
	CompressionZSTD CompressionType = 2
)

// String returns the name of the compression type
func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression maps a name to a CompressionType
func ParseCompression(name string) (CompressionType, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return CompressionNone, fmt.Errorf("unknown compression %q", name)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Block layout: [type uint8][uncompressed uint32][compressed uint32][data...]
// The type byte makes a blob readable regardless of the store's current
// compression setting.
const blockHeaderSize = 9

// An LZ4 block never expands its input more than 255 times. zstd can go
// further, so for zstd the header size only bounds the initial buffer.
const (
	maxLZ4Ratio     = 255
	maxZstdPrealloc = 1 << 20
	lz4RatioSlack   = 16
)

// Compress wraps data in a block using compressionType. When compression
// does not shrink the payload by at least 10% the block is stored raw.
func Compress(data []byte, compressionType CompressionType) ([]byte, error) {
	if data == nil {
		return nil, nil
	}

	var compressed []byte
	var err error

	switch compressionType {
	case CompressionNone:
	case CompressionLZ4:
		compressed, err = compressLZ4(data)
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("unsupported compression type %d", compressionType)
	}
	if err != nil {
		return nil, err
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		return block(CompressionNone, len(data), data), nil
	}
	return block(compressionType, len(data), compressed), nil
}

// Decompress reverses Compress
func Decompress(blob []byte) ([]byte, error) {
	if blob == nil {
		return nil, nil
	}
	if len(blob) < blockHeaderSize {
		return nil, fmt.Errorf("%w: block too small for header", ErrInvalidBlob)
	}

	compressionType := CompressionType(blob[0])
	uncompressedSize := binary.LittleEndian.Uint32(blob[1:])
	compressedSize := binary.LittleEndian.Uint32(blob[5:])
	if uint64(len(blob)) < blockHeaderSize+uint64(compressedSize) {
		return nil, fmt.Errorf("%w: block data too small", ErrInvalidBlob)
	}
	payload := blob[blockHeaderSize : blockHeaderSize+compressedSize]

	switch compressionType {
	case CompressionNone:
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	case CompressionLZ4:
		if uint64(uncompressedSize) > uint64(compressedSize)*maxLZ4Ratio+lz4RatioSlack {
			return nil, fmt.Errorf("%w: lz4 block claims %d bytes from %d", ErrInvalidBlob, uncompressedSize, compressedSize)
		}
		result := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(payload, result)
		if err != nil {
			return nil, err
		}
		if uint32(n) != uncompressedSize {
			return nil, errors.New("decompressed size mismatch")
		}
		return result, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)

		prealloc := uncompressedSize
		if prealloc > maxZstdPrealloc {
			prealloc = maxZstdPrealloc
		}
		decoded, err := dec.DecodeAll(payload, make([]byte, 0, prealloc))
		if err != nil {
			return nil, err
		}
		if uint32(len(decoded)) != uncompressedSize {
			return nil, errors.New("decompressed size mismatch")
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("%w: unknown compression type %d", ErrInvalidBlob, compressionType)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))

	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // incompressible
	}
	return compressed[:n], nil
}

func block(compressionType CompressionType, uncompressed int, payload []byte) []byte {
	out := make([]byte, blockHeaderSize+len(payload))
	out[0] = byte(compressionType)
	binary.LittleEndian.PutUint32(out[1:], uint32(uncompressed))
	binary.LittleEndian.PutUint32(out[5:], uint32(len(payload)))
	copy(out[blockHeaderSize:], payload)
	return out
}
