package infra

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

type RedisStandaloneConnection struct {
	Client redis.UniversalClient
	Meta   map[string]interface{}
}

func (c *RedisStandaloneConnection) GetConn() (interface{}, error) {
	if c.Client == nil {
		return nil, errors.New("connection nil")
	}
	return c.Client, nil
}

func (c *RedisStandaloneConnection) GetMeta() (map[string]interface{}, error) {
	if c.Meta == nil {
		return nil, errors.New("meta nil")
	}
	return c.Meta, nil
}

func (c *RedisStandaloneConnection) IsLive() bool {
	if err := c.Client.Ping(context.Background()).Err(); err != nil {
		return false
	}
	return true
}

// NewRedisStandaloneConnection dials a standalone redis from a URL.
// The returned facade is live-checked by the caller before use.
func NewRedisStandaloneConnection(url string) (*RedisStandaloneConnection, error) {
	opts, err := BuildRedisOptionsFromURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisStandaloneConnection{
		Client: redis.NewClient(opts),
		Meta: map[string]interface{}{
			"addr": opts.Addr,
			"type": DBTypeRedisStandalone,
		},
	}, nil
}
