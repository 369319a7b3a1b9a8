// Package worker owns one device end to end: one engine instance, one
// batcher, one pipeline, one inbound channel. All inference on a device
// is serialized through its worker; workers on distinct devices proceed
// in parallel.
package worker

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/afeldman/ai-runtime/internal/batcher"
	"github.com/afeldman/ai-runtime/internal/codec"
	"github.com/afeldman/ai-runtime/internal/engine"
	"github.com/afeldman/ai-runtime/internal/pipeline"
	"github.com/afeldman/ai-runtime/internal/queue"
	"github.com/afeldman/ai-runtime/internal/system"
	"github.com/afeldman/ai-runtime/internal/types"
	"github.com/afeldman/ai-runtime/pkg/metric"
)

type Worker struct {
	ID        int
	engine    engine.Engine
	batcher   *batcher.Batcher
	pipeline  pipeline.Pipeline
	publisher queue.Publisher
	inbound   <-chan types.Job
}

func New(id int, eng engine.Engine, b *batcher.Batcher, p pipeline.Pipeline, pub queue.Publisher, inbound <-chan types.Job) *Worker {
	return &Worker{
		ID:        id,
		engine:    eng,
		batcher:   b,
		pipeline:  p,
		publisher: pub,
		inbound:   inbound,
	}
}

// Run drains the inbound channel until it closes: collect a batch, drive
// the pipeline, publish one record per real job. A failed batch publishes
// error records and the worker moves on; the engine is released on exit.
func (w *Worker) Run(ctx context.Context) error {
	defer w.engine.Close()
	defer w.pipeline.Close()
	if err := w.pipeline.Init(); err != nil {
		return err
	}

	log.Info().Int("worker", w.ID).Str("engine", w.engine.Name()).Msg("worker started")
	for {
		batch, ok := w.batcher.Collect(w.inbound)
		if !ok {
			log.Info().Int("worker", w.ID).Msg("worker exiting, inbound channel closed")
			return nil
		}
		w.process(ctx, &batch)
	}
}

func (w *Worker) process(ctx context.Context, batch *types.Batch) {
	tags := []string{metric.WorkerTag(w.ID)}
	metric.Incr(metric.BatchesFlushed, tags)
	metric.Gauge(metric.BatchFill, float64(batch.Real), tags)

	start := time.Now()
	output, err := w.runBatch(batch)
	metric.Timing(metric.InferenceLatency, time.Since(start), tags)

	completedAt := system.NowNanos()
	if err != nil {
		// the whole batch fails; every real job gets an error record
		log.Error().Err(err).Int("worker", w.ID).Int("real", batch.Real).Msg("batch failed")
		metric.Incr(metric.BackendFaults, tags)
		for idx := 0; idx < batch.Real; idx++ {
			w.publishError(ctx, &batch.Jobs[idx], err, completedAt)
		}
		return
	}

	for idx := 0; idx < batch.Real; idx++ {
		job := &batch.Jobs[idx]
		payload, encErr := codec.EncodeResult(job, output.Row(idx), completedAt, w.ID)
		if encErr != nil {
			log.Error().Err(encErr).Str("job", job.ID).Msg("encoding result failed")
			metric.Incr(metric.EgressDrops, tags)
			continue
		}
		w.publish(ctx, job, payload)
		metric.Timing(metric.JobLatency, time.Duration(completedAt-job.SubmittedAt), tags)
	}
}

// runBatch drives preprocess -> infer -> postprocess for one batch.
// The engine call may block for hundreds of milliseconds; it runs on
// this worker's own goroutine, which the Go scheduler preempts and
// multiplexes across OS threads, so the batcher timers of other workers
// keep running.
func (w *Worker) runBatch(batch *types.Batch) (types.Tensor, error) {
	x, err := w.pipeline.RunPre(batch.Input, w.engine.InputShapes()[0], batch.Input.DType)
	if err != nil {
		return types.Tensor{}, err
	}
	y, err := w.engine.Infer(x)
	if err != nil {
		return types.Tensor{}, err
	}
	return w.pipeline.RunPost(y, w.engine.BatchSize())
}

func (w *Worker) publish(ctx context.Context, job *types.Job, payload []byte) {
	if err := w.publisher.Publish(ctx, job.ReplyKey, payload); err != nil {
		// no retry: the store is the source of truth and offers no redelivery
		log.Error().Err(err).Str("job", job.ID).Str("key", job.ReplyKey).Msg("result publication failed, dropping")
		metric.Incr(metric.EgressDrops, []string{metric.WorkerTag(w.ID)})
		return
	}
	metric.Incr(metric.EgressWrites, []string{metric.WorkerTag(w.ID)})
	log.Debug().Str("job", job.ID).Int("worker", w.ID).Msg("result published")
}

func (w *Worker) publishError(ctx context.Context, job *types.Job, cause error, completedAt int64) {
	payload, err := codec.EncodeErrorResult(job, cause, completedAt, w.ID)
	if err != nil {
		log.Error().Err(err).Str("job", job.ID).Msg("encoding error record failed")
		return
	}
	w.publish(ctx, job, payload)
}

// String implements fmt.Stringer for supervisor logs.
func (w *Worker) String() string {
	return "worker-" + strconv.Itoa(w.ID)
}
