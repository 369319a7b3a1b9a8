// Package runtime wires the serving core together and owns shutdown:
// queue connection, one engine-owning worker per device, the round-robin
// dispatcher in front of them, and the ingress loop feeding it.
package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/afeldman/ai-runtime/internal/batcher"
	"github.com/afeldman/ai-runtime/internal/config"
	"github.com/afeldman/ai-runtime/internal/dispatcher"
	"github.com/afeldman/ai-runtime/internal/engine"
	apperrors "github.com/afeldman/ai-runtime/internal/errors"
	"github.com/afeldman/ai-runtime/internal/pipeline"
	"github.com/afeldman/ai-runtime/internal/queue"
	"github.com/afeldman/ai-runtime/internal/worker"
	"github.com/afeldman/ai-runtime/pkg/infra"
)

// channelDepth bounds each worker's inbound backlog. A full channel
// exerts backpressure on ingress through the dispatcher's blocking send.
const channelDepth = 512

type Runtime struct {
	cfg        *config.Config
	conn       *infra.RedisStandaloneConnection
	dispatcher *dispatcher.Dispatcher
	workers    []*worker.Worker
	ingress    *queue.Ingress
}

// New builds the full component graph in dependency order. Errors keep
// their kind so the CLI can map them to exit codes: ConfigError,
// QueueConnectError, EngineLoadError.
func New(cfg *config.Config) (*Runtime, error) {
	conn, err := infra.NewRedisStandaloneConnection(cfg.Redis.URL)
	if err != nil {
		return nil, &apperrors.QueueConnectError{
			ErrorMsg: fmt.Sprintf("connecting to %s: %v", cfg.Redis.URL, err),
			Cause:    err,
		}
	}
	if !conn.IsLive() {
		return nil, &apperrors.QueueConnectError{
			ErrorMsg: fmt.Sprintf("queue at %s did not answer ping", cfg.Redis.URL),
		}
	}

	pre, err := pipeline.ForName(cfg.Pipeline.Preprocessor, cfg.Pipeline.NormalizeScale, cfg.Pipeline.NormalizeOffset)
	if err != nil {
		return nil, &apperrors.ConfigError{ErrorMsg: fmt.Sprintf("pipeline.preprocessor: %v", err)}
	}
	post, err := pipeline.ForName(cfg.Pipeline.Postprocessor, cfg.Pipeline.NormalizeScale, cfg.Pipeline.NormalizeOffset)
	if err != nil {
		return nil, &apperrors.ConfigError{ErrorMsg: fmt.Sprintf("pipeline.postprocessor: %v", err)}
	}

	publisher, err := queue.NewRedisPublisher(conn)
	if err != nil {
		return nil, &apperrors.QueueConnectError{ErrorMsg: err.Error(), Cause: err}
	}

	n := cfg.Workers()
	disp := dispatcher.New(n, channelDepth)
	maxWait := time.Duration(cfg.Queue.MaxWaitMs) * time.Millisecond

	workers := make([]*worker.Worker, 0, n)
	for i := 0; i < n; i++ {
		spec := cfg.EngineSpec(i)
		eng, err := engine.New(spec)
		if err != nil {
			return nil, err
		}
		workers = append(workers, worker.New(
			i,
			eng,
			batcher.New(cfg.Queue.MaxBatch, maxWait),
			pipeline.New(pre, post),
			publisher,
			disp.Channel(i),
		))
		log.Info().Int("worker", i).Str("backend", string(spec.Backend)).
			Str("device", string(spec.Device)).Int("gpu", spec.GPUID).
			Msg("worker constructed")
	}

	ingress, err := queue.NewIngress(conn, cfg.Redis.InQueue, cfg.Redis.OutPrefix, cfg.InputSpec(), disp)
	if err != nil {
		return nil, &apperrors.QueueConnectError{ErrorMsg: err.Error(), Cause: err}
	}

	return &Runtime{
		cfg:        cfg,
		conn:       conn,
		dispatcher: disp,
		workers:    workers,
		ingress:    ingress,
	}, nil
}

// Run blocks until ctx is cancelled or ingress reports a systemic
// failure, then shuts down in order: stop intake, drain worker channels
// (in-flight batches complete, partials flush padded), release engines,
// close the store connection.
func (r *Runtime) Run(ctx context.Context) error {
	ingressCtx, cancelIngress := context.WithCancel(ctx)
	defer cancelIngress()

	var g errgroup.Group
	for _, w := range r.workers {
		w := w
		// workers get an independent context so the current batch always
		// completes and publishes during shutdown
		g.Go(func() error { return w.Run(context.Background()) })
	}

	ingressDone := make(chan error, 1)
	go func() { ingressDone <- r.ingress.Run(ingressCtx) }()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown requested")
		cancelIngress()
		<-ingressDone
	case err := <-ingressDone:
		if err != nil {
			runErr = &apperrors.QueueConnectError{ErrorMsg: err.Error(), Cause: err}
		}
	}

	r.dispatcher.Close()
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}
	if err := r.conn.Client.Close(); err != nil {
		log.Warn().Err(err).Msg("closing store connection")
	}
	log.Info().Msg("runtime stopped")
	return runErr
}
