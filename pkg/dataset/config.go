package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/liliang-cn/sqfeat/pkg/core"
	"github.com/liliang-cn/sqfeat/pkg/feature"
	"github.com/liliang-cn/sqfeat/pkg/monitoring"
)

// Default store file names
const (
	DefaultUnlabeledDB = "test.db"
	DefaultLabeledDB   = "train.db"
)

// Pairing decides how label rows are matched to data files
type Pairing int

const (
	// PairPositional matches the Nth file to the Nth label row and ignores
	// the id column of the labels file.
	PairPositional Pairing = iota
	// PairByExternalID matches the first label column to the external id.
	PairByExternalID
)

func (p Pairing) String() string {
	switch p {
	case PairByExternalID:
		return "external_id"
	default:
		return "positional"
	}
}

// ParsePairing accepts positional and external_id
func ParsePairing(s string) (Pairing, error) {
	switch strings.ToLower(s) {
	case "", "positional":
		return PairPositional, nil
	case "external_id", "id":
		return PairByExternalID, nil
	}
	return PairPositional, fmt.Errorf("unknown pairing %q", s)
}

// Config holds everything a dataset needs to find its files and its store
type Config struct {
	SetPath    string // Directory holding the data point files
	DBDir      string // Directory holding the store file
	DBName     string // Store file name; test.db or train.db when empty
	FilePrefix string // Stripped from file names to form external ids
	FileSuffix string

	// Labeled datasets only
	LabelsPath     string
	LabelDelimiter string
	NoLabelHeader  bool // The first row of the labels file is a label row, not a header
	LabelDict      map[string]feature.Value
	Pairing        Pairing

	Compression core.Compression
	TraceSQL    bool
	Logger      core.Logger
	Monitor     *monitoring.Monitor
}

// DefaultConfig returns the defaults for a dataset over setPath with its
// store in dbDir
func DefaultConfig(setPath, dbDir string) Config {
	return Config{
		SetPath:        setPath,
		DBDir:          dbDir,
		LabelDelimiter: ",",
		Pairing:        PairPositional,
		Compression:    core.CompressionZSTD,
		Logger:         core.NopLogger(),
	}
}

func (c Config) dbPath(variant core.Variant) string {
	name := c.DBName
	if name == "" {
		name = DefaultUnlabeledDB
		if variant == core.VariantLabeled {
			name = DefaultLabeledDB
		}
	}
	return filepath.Join(c.DBDir, name)
}

func (c Config) validate() error {
	if c.SetPath == "" {
		return fmt.Errorf("%w: set path cannot be empty", core.ErrInvalidConfig)
	}
	if c.Pairing != PairPositional && c.Pairing != PairByExternalID {
		return fmt.Errorf("%w: unknown pairing %d", core.ErrInvalidConfig, c.Pairing)
	}
	return nil
}
