package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/liliang-cn/sqfeat/pkg/core"
	"github.com/liliang-cn/sqfeat/pkg/feature"
	"github.com/liliang-cn/sqfeat/pkg/tabular"
)

// LabeledDataset is a dataset whose records also carry labels read from a
// delimiter separated labels file at populate time.
type LabeledDataset struct {
	*Dataset
}

// NewLabeled creates a labeled dataset. It fails with InsufficientDataError
// when cfg.LabelsPath is empty or is not an existing file.
func NewLabeled(ctx context.Context, cfg Config) (*LabeledDataset, error) {
	if cfg.LabelsPath == "" {
		return nil, &InsufficientDataError{What: "labels path not given"}
	}
	info, err := os.Stat(cfg.LabelsPath)
	if err != nil || !info.Mode().IsRegular() {
		return nil, &InsufficientDataError{What: "labels file does not exist", Path: cfg.LabelsPath}
	}
	if _, err := labelComma(cfg.LabelDelimiter); err != nil {
		return nil, err
	}

	d, err := newDataset(ctx, cfg, core.VariantLabeled)
	if err != nil {
		return nil, err
	}
	return &LabeledDataset{Dataset: d}, nil
}

// Labels returns the original or transformed labels by ascending record id
func (d *LabeledDataset) Labels(ctx context.Context, original bool) ([][]feature.Value, error) {
	records, err := d.records(ctx, "labels")
	if err != nil {
		return nil, err
	}

	out := make([][]feature.Value, len(records))
	for i, rec := range records {
		out[i] = rec.Labels.Pick(original)
	}
	return out, nil
}

// LabelMatrix materializes the labels into a dense matrix whose width is
// the label count of the first record
func (d *LabeledDataset) LabelMatrix(ctx context.Context, original bool) (*tabular.Matrix, error) {
	if err := d.requireRecords("label_matrix"); err != nil {
		return nil, err
	}
	rows, err := d.Labels(ctx, original)
	if err != nil {
		return nil, err
	}

	m, err := tabular.MaterializeLabels(rows)
	if err != nil {
		return nil, fmt.Errorf("label_matrix: %w", err)
	}
	return m, nil
}

// SingleLabels returns the labels of record id
func (d *LabeledDataset) SingleLabels(ctx context.Context, id int64) (*feature.Labels, error) {
	rec, err := d.single(ctx, "single_labels", id)
	if err != nil {
		return nil, err
	}
	return rec.Labels, nil
}

// attachLabels reads the labels file and sets the labels of every record
func (d *Dataset) attachLabels(records []*core.Record) error {
	rows, err := readLabelRows(d.config.LabelsPath, d.config.LabelDelimiter, !d.config.NoLabelHeader)
	if err != nil {
		return err
	}

	switch d.config.Pairing {
	case PairByExternalID:
		byID := make(map[string][]string, len(rows))
		for _, row := range rows {
			id := strings.TrimSpace(row[0])
			if _, dup := byID[id]; dup {
				d.logger.Warn("duplicate id in labels file, keeping first row", "id", id)
				continue
			}
			byID[id] = row[1:]
		}
		for _, rec := range records {
			fields, ok := byID[rec.ExternalID]
			if !ok {
				return &InsufficientDataError{What: fmt.Sprintf("no label row for %q", rec.ExternalID), Path: d.config.LabelsPath}
			}
			rec.Labels = feature.NewLabels(fields, d.config.LabelDict)
		}
	default:
		if len(rows) < len(records) {
			return &InsufficientDataError{
				What: fmt.Sprintf("%d label rows for %d files", len(rows), len(records)),
				Path: d.config.LabelsPath,
			}
		}
		if len(rows) > len(records) {
			d.logger.Warn("labels file has more rows than files", "rows", len(rows), "files", len(records))
		}
		for i, rec := range records {
			rec.Labels = feature.NewLabels(rows[i][1:], d.config.LabelDict)
		}
	}

	return nil
}

// readLabelRows returns the data rows of the labels file. Every row has at
// least the id column.
func readLabelRows(path, delimiter string, header bool) ([][]string, error) {
	comma, err := labelComma(delimiter)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &InsufficientDataError{What: "labels file cannot be opened", Path: path}
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read labels file %s: %w", path, err)
		}
		if header {
			header = false
			continue
		}
		if len(row) == 0 || (len(row) == 1 && row[0] == "") {
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func labelComma(delimiter string) (rune, error) {
	if delimiter == "" {
		return ',', nil
	}
	r, size := utf8.DecodeRuneInString(delimiter)
	if size != len(delimiter) || r == utf8.RuneError || r == '"' || r == '\n' || r == '\r' {
		return 0, fmt.Errorf("%w: label delimiter %q must be a single character", core.ErrInvalidConfig, delimiter)
	}
	return r, nil
}
