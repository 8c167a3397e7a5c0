package pipeline

import (
	"context"

	"orderetl/internal/config"
	"orderetl/internal/transformer"
	"orderetl/pkg/records"
)

// processChunks is the batch coordinator. It pulls batches from the source,
// cleans and derives each one, and concatenates the results in arrival
// order. With global dedup scope one SeenSet spans every batch, so the
// output equals whole-dataset mode on the projected columns.
func (d *Driver) processChunks(ctx context.Context, st *Stats) (records.Dataset, error) {
	log := d.opt.Log

	var seen *transformer.SeenSet
	if d.set.DedupScope == config.DedupBatch {
		log.Warnf("Deduplication is scoped per batch: duplicate order_ids in different batches are kept")
	} else {
		seen = transformer.NewSeenSet(d.set.BatchSize)
	}

	var out records.Dataset
	err := d.step(LoadingChunked, func() error {
		calc := d.calculator(&st.Calc)
		for b, err := range d.src.LoadBatches(ctx, d.set.BatchSize) {
			if err != nil {
				return err
			}
			if out.Columns == nil {
				out.Columns = records.WithColumn(b.Columns, records.DeliveryTimeDays)
			}
			st.Loaded += b.Len()
			st.Batches++

			kept := calc.Apply(d.cleaner(seen, &st.Clean).Apply(b.Records))
			out.Records = append(out.Records, kept...)
			log.Debugf("Processed chunk %d: %d rows in, %d rows kept", b.Index+1, b.Len(), len(kept))
		}
		return nil
	})
	if err != nil {
		return records.Dataset{}, err
	}
	log.Infof("Processed %d rows from %d chunks", out.Len(), st.Batches)
	return out, nil
}
