// Package dispatcher is the single intake point: each submitted job is
// routed to exactly one worker by round-robin.
package dispatcher

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/afeldman/ai-runtime/internal/types"
)

type Dispatcher struct {
	channels  []chan types.Job
	counter   atomic.Uint64
	closeOnce sync.Once
}

// New creates one bounded channel per worker. depth bounds each worker's
// backlog; a full channel blocks Submit rather than spilling to another
// worker, which keeps round-robin fairness and ordering guarantees.
func New(workers, depth int) *Dispatcher {
	d := &Dispatcher{channels: make([]chan types.Job, workers)}
	for i := range d.channels {
		d.channels[i] = make(chan types.Job, depth)
	}
	return d
}

// Submit routes the job to worker counter mod N and blocks until that
// worker's channel accepts it or ctx is cancelled.
func (d *Dispatcher) Submit(ctx context.Context, job types.Job) error {
	idx := int(d.counter.Add(1)-1) % len(d.channels)
	select {
	case d.channels[idx] <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Channel returns worker i's inbound channel.
func (d *Dispatcher) Channel(i int) <-chan types.Job {
	return d.channels[i]
}

// Workers returns the number of routed workers.
func (d *Dispatcher) Workers() int {
	return len(d.channels)
}

// Close closes every worker channel. Safe to call more than once.
// Workers drain their channels, flush partial batches, and exit.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		for _, ch := range d.channels {
			close(ch)
		}
	})
}
