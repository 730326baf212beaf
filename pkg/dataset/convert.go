package dataset

import (
	"context"
	"fmt"

	"github.com/liliang-cn/sqfeat/pkg/tabular"
)

// ConvertSingle runs conv on the file of record id
func (d *Dataset) ConvertSingle(ctx context.Context, id int64, conv Converter) ([]float64, error) {
	if conv == nil {
		return nil, fmt.Errorf("converter is nil")
	}
	rec, err := d.single(ctx, "convert_single", id)
	if err != nil {
		return nil, err
	}

	out, err := conv(d.filePath(rec))
	if err != nil {
		return nil, fmt.Errorf("converter failed on record %d (%s): %w", id, rec.RelativePath, err)
	}
	return out, nil
}

// ConvertRange runs conv on the records start..end inclusive and stacks the
// results into a matrix. end == -1 means the last record. Every conversion
// must have the length of the first one.
func (d *Dataset) ConvertRange(ctx context.Context, start, end int64, conv Converter) (*tabular.Matrix, error) {
	if err := d.requireRecords("convert_range"); err != nil {
		return nil, err
	}
	if end == -1 {
		end = d.pointsAmt
	}
	if start < 1 || end > d.pointsAmt || start > end {
		return nil, fmt.Errorf("%w: [%d, %d] outside [1, %d]", ErrInvalidRange, start, end, d.pointsAmt)
	}

	var m *tabular.Matrix
	for id := start; id <= end; id++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := d.ConvertSingle(ctx, id, conv)
		if err != nil {
			return nil, err
		}
		if m == nil {
			m = tabular.NewMatrix(int(end-start+1), len(row))
		}
		if len(row) != m.Cols {
			return nil, fmt.Errorf("%w: record %d converted to %d values, want %d", tabular.ErrRaggedRow, id, len(row), m.Cols)
		}
		copy(m.Row(int(id-start)), row)
	}

	return m, nil
}
