package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/afeldman/ai-runtime/internal/errors"
	"github.com/afeldman/ai-runtime/pkg/infra"
)

// Publisher is the result sink handed to workers. One record per job,
// single write, overwrite semantics; clients retrieve by key.
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// setter is the store surface egress needs.
type setter interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisPublisher publishes result records to the external key-value store.
type RedisPublisher struct {
	client setter
}

func NewRedisPublisher(conn infra.ConnectionFacade) (*RedisPublisher, error) {
	c, err := conn.GetConn()
	if err != nil {
		return nil, err
	}
	return &RedisPublisher{client: c.(redis.UniversalClient)}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, key string, payload []byte) error {
	if err := p.client.Set(ctx, key, payload, 0).Err(); err != nil {
		return &apperrors.EgressWriteError{
			ErrorMsg: fmt.Sprintf("publishing %s: %v", key, err),
			Cause:    err,
		}
	}
	return nil
}
