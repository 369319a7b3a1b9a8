// Package batcher gathers inbound jobs into fixed-size batches under a
// time bound: flush on count == max_batch or elapsed >= max_wait,
// whichever comes first. Partial flushes are padded with dummy jobs.
package batcher

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/afeldman/ai-runtime/internal/types"
)

type Batcher struct {
	maxBatch int
	maxWait  time.Duration
}

func New(maxBatch int, maxWait time.Duration) *Batcher {
	return &Batcher{maxBatch: maxBatch, maxWait: maxWait}
}

// Collect blocks until a batch is ready. The first receive has no
// deadline; the wait timer starts when the first job arrives. A closed,
// drained channel yields ok == false. If the channel closes while a
// partial batch is open, that batch is still flushed (padded) and the
// next call reports exhaustion.
func (b *Batcher) Collect(ch <-chan types.Job) (types.Batch, bool) {
	first, ok := <-ch
	if !ok {
		return types.Batch{}, false
	}
	jobs := make([]types.Job, 1, b.maxBatch)
	jobs[0] = first

	// max_wait of zero flushes every job immediately
	if b.maxWait > 0 && b.maxBatch > 1 {
		timer := time.NewTimer(b.maxWait)
		defer timer.Stop()

	gather:
		for len(jobs) < b.maxBatch {
			select {
			case job, open := <-ch:
				if !open {
					break gather
				}
				jobs = append(jobs, job)
			case <-timer.C:
				break gather
			}
		}
	}

	batch := types.AssembleBatch(jobs, b.maxBatch)
	log.Debug().
		Int("real", batch.Real).
		Int("batch", b.maxBatch).
		Msg("batch flushed")
	return batch, true
}
