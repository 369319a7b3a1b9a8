// Package queue exchanges jobs and results with the external key-value
// store: a blocking-pop ingress on one list key, keyed single-write
// egress per job.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/afeldman/ai-runtime/internal/codec"
	apperrors "github.com/afeldman/ai-runtime/internal/errors"
	"github.com/afeldman/ai-runtime/internal/system"
	"github.com/afeldman/ai-runtime/internal/types"
	"github.com/afeldman/ai-runtime/pkg/infra"
	"github.com/afeldman/ai-runtime/pkg/metric"
)

const (
	// popTimeout bounds each blocking pop so cancellation is observed.
	popTimeout = time.Second

	// unreachableGrace is how long the queue may stay unreachable before
	// the failure is treated as systemic and the supervisor shuts down.
	unreachableGrace = 30 * time.Second
)

// Submitter is the dispatcher surface ingress needs.
type Submitter interface {
	Submit(ctx context.Context, job types.Job) error
}

// lister is the store surface ingress needs.
type lister interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// Ingress pops serialized jobs from the inbound list key, decodes them,
// stamps submitted_at, and hands them to the dispatcher. Each popped
// entry is processed exactly once; malformed entries are dropped.
type Ingress struct {
	client    lister
	queueKey  string
	outPrefix string
	spec      types.InputSpec
	submitter Submitter
}

func NewIngress(conn infra.ConnectionFacade, queueKey, outPrefix string, spec types.InputSpec, submitter Submitter) (*Ingress, error) {
	c, err := conn.GetConn()
	if err != nil {
		return nil, err
	}
	return &Ingress{
		client:    c.(redis.UniversalClient),
		queueKey:  queueKey,
		outPrefix: outPrefix,
		spec:      spec,
		submitter: submitter,
	}, nil
}

// Run loops until ctx is cancelled. A queue outage longer than the grace
// period is returned as an error so the supervisor can abort.
func (i *Ingress) Run(ctx context.Context) error {
	log.Info().Str("queue", i.queueKey).Msg("ingress started")
	var downSince time.Time

	for {
		if ctx.Err() != nil {
			log.Info().Msg("ingress stopped")
			return nil
		}

		res, err := i.client.BLPop(ctx, popTimeout, i.queueKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				downSince = time.Time{}
				continue // timeout, queue empty
			}
			if ctx.Err() != nil {
				log.Info().Msg("ingress stopped")
				return nil
			}
			if downSince.IsZero() {
				downSince = time.Now()
			}
			if time.Since(downSince) > unreachableGrace {
				return fmt.Errorf("queue unreachable for %s: %w", unreachableGrace, err)
			}
			log.Error().Err(err).Msg("queue pop failed, retrying")
			time.Sleep(popTimeout)
			continue
		}
		downSince = time.Time{}

		// BLPop returns [key, value]
		job, err := codec.DecodeJob([]byte(res[1]), i.spec, i.outPrefix)
		if err != nil {
			var decodeErr *apperrors.IngressDecodeError
			if errors.As(err, &decodeErr) {
				log.Error().Err(err).Msg("dropping malformed job payload")
				metric.Incr(metric.IngressDecodeDrop, nil)
				continue
			}
			return err
		}
		job.SubmittedAt = system.NowNanos()

		if err := i.submitter.Submit(ctx, job); err != nil {
			// cancelled mid-submit; the job is lost with the shutdown,
			// redelivery is the client's responsibility
			log.Info().Msg("ingress stopped")
			return nil
		}
		metric.Incr(metric.JobsIngressed, nil)
	}
}
