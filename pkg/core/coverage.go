package core

import (
	"context"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

// Coverage returns the ids of the records whose feature mapping holds name.
//
// An extraction pass that was interrupted leaves some records without the
// feature; comparing the cardinality against Count shows how far it got.
func (s *SQLiteStore) Coverage(ctx context.Context, name string) (*roaring.Bitmap, error) {
	records, err := s.IterateOrdered(ctx)
	if err != nil {
		return nil, wrapError("coverage", err)
	}

	bm := roaring.New()
	for _, rec := range records {
		if rec.ID > math.MaxUint32 {
			return nil, wrapError("coverage", fmt.Errorf("record id %d does not fit a bitmap", rec.ID))
		}
		if rec.Features.Has(name) {
			bm.Add(uint32(rec.ID))
		}
	}

	return bm, nil
}

// Missing returns the ids in [1, count] that are not in coverage
func Missing(coverage *roaring.Bitmap, count int64) *roaring.Bitmap {
	all := roaring.New()
	if count > 0 {
		all.AddRange(1, uint64(count)+1)
	}
	all.AndNot(coverage)
	return all
}
