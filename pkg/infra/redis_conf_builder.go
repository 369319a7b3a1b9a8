package infra

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	redisDialTimeout  = 2 * time.Second
	redisWriteTimeout = 3 * time.Second
	redisPoolSize     = 8
)

// BuildRedisOptionsFromURL constructs standalone redis options from a
// redis:// URL, overlaying the runtime's connection defaults. The read
// timeout keeps the client default; blocking pops compute their own
// deadline from the command timeout.
func BuildRedisOptionsFromURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, errors.New("redis url not set")
	}

	log.Debug().Msgf("building redis standalone config from url - %s", url)

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = redisDialTimeout
	opts.WriteTimeout = redisWriteTimeout
	if opts.PoolSize == 0 {
		opts.PoolSize = redisPoolSize
	}
	return opts, nil
}
