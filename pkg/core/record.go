package core

import (
	"fmt"

	"github.com/liliang-cn/sqfeat/internal/encoding"
	"github.com/liliang-cn/sqfeat/pkg/feature"
)

// Record is one stored data point
type Record struct {
	ID           int64             `json:"id"`
	ExternalID   string            `json:"externalId"`
	RelativePath string            `json:"relativePath"`
	Features     *feature.Features `json:"-"`
	Labels       *feature.Labels   `json:"-"` // labeled variant only
}

// Variant selects the record layout of a store
type Variant int

const (
	// VariantAny accepts whatever variant an existing store was created with
	VariantAny Variant = iota
	// VariantUnlabeled stores features only
	VariantUnlabeled
	// VariantLabeled stores features and labels
	VariantLabeled
)

// String returns the name stored in dataset_meta
func (v Variant) String() string {
	switch v {
	case VariantUnlabeled:
		return "unlabeled"
	case VariantLabeled:
		return "labeled"
	default:
		return "any"
	}
}

// ParseVariant is the inverse of Variant.String
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "unlabeled":
		return VariantUnlabeled, nil
	case "labeled":
		return VariantLabeled, nil
	case "any", "":
		return VariantAny, nil
	}
	return VariantAny, fmt.Errorf("unknown variant %q", s)
}

// Compression selects how feature and label blobs are compressed
type Compression = encoding.CompressionType

// ParseCompression accepts none, lz4 and zstd
func ParseCompression(name string) (Compression, error) {
	return encoding.ParseCompression(name)
}

// Compression settings, re-exported so callers need not import the internal package
const (
	CompressionNone = encoding.CompressionNone
	CompressionLZ4  = encoding.CompressionLZ4
	CompressionZSTD = encoding.CompressionZSTD
)

// Config represents configuration options for the record store
type Config struct {
	Path        string      `json:"path"`        // Database file path
	Variant     Variant     `json:"variant"`     // Record layout; VariantAny only when reopening
	MustExist   bool        `json:"mustExist"`   // Fail instead of creating a new store
	Compression Compression `json:"compression"` // Blob compression for features and labels
	TraceSQL    bool        `json:"traceSql"`    // Log every statement gorp runs at debug level
	Logger      Logger      `json:"-"`
}

// DefaultConfig returns a default configuration for the store at path
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		Variant:     VariantAny,
		Compression: encoding.CompressionZSTD,
		Logger:      NopLogger(),
	}
}

// recordRow is the gorp mapping of the records table
type recordRow struct {
	ID           int64  `db:"id"`
	ExternalID   string `db:"external_id"`
	RelativePath string `db:"relative_path"`
	Features     []byte `db:"features"`
	Labels       []byte `db:"labels"`
}

// metaRow is the gorp mapping of the dataset_meta table
type metaRow struct {
	Key   string `db:"meta_key"`
	Value string `db:"meta_value"`
}

const (
	recordsTable = "records"
	metaTable    = "dataset_meta"

	maxExternalIDSize   = 60
	maxRelativePathSize = 120
)

func (s *SQLiteStore) toRow(rec *Record) (*recordRow, error) {
	features, err := s.encodeFeatures(rec.Features)
	if err != nil {
		return nil, err
	}
	row := &recordRow{
		ID:           rec.ID,
		ExternalID:   rec.ExternalID,
		RelativePath: rec.RelativePath,
		Features:     features,
	}
	if s.variant == VariantLabeled {
		if row.Labels, err = s.encodeLabels(rec.Labels); err != nil {
			return nil, err
		}
	}
	return row, nil
}

func (s *SQLiteStore) fromRow(row *recordRow) (*Record, error) {
	features, err := decodeFeatures(row.Features)
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", row.ID, err)
	}
	labels, err := decodeLabels(row.Labels)
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", row.ID, err)
	}
	return &Record{
		ID:           row.ID,
		ExternalID:   row.ExternalID,
		RelativePath: row.RelativePath,
		Features:     features,
		Labels:       labels,
	}, nil
}

func (s *SQLiteStore) encodeFeatures(f *feature.Features) ([]byte, error) {
	raw, err := encoding.EncodeFeatures(f)
	if err != nil {
		return nil, err
	}
	return encoding.Compress(raw, s.config.Compression)
}

func (s *SQLiteStore) encodeLabels(l *feature.Labels) ([]byte, error) {
	raw, err := encoding.EncodeLabels(l)
	if err != nil {
		return nil, err
	}
	return encoding.Compress(raw, s.config.Compression)
}

func decodeFeatures(blob []byte) (*feature.Features, error) {
	raw, err := encoding.Decompress(blob)
	if err != nil {
		return nil, err
	}
	return encoding.DecodeFeatures(raw)
}

func decodeLabels(blob []byte) (*feature.Labels, error) {
	raw, err := encoding.Decompress(blob)
	if err != nil {
		return nil, err
	}
	return encoding.DecodeLabels(raw)
}
