package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/afeldman/ai-runtime/internal/config"
	apperrors "github.com/afeldman/ai-runtime/internal/errors"
)

func baseConfig() *config.Config {
	return &config.Config{
		Model: config.ModelConfig{
			Backend:      "onnx",
			Device:       "cpu",
			ModelPath:    "./model.onnx",
			InputNames:   []string{"input"},
			OutputNames:  []string{"output"},
			InputShapes:  [][]int{{4, 3, 8, 8}},
			OutputShapes: [][]int{{4, 10}},
		},
		Input: config.InputConfig{Batch: 4, Channels: 3, Height: 8, Width: 8, DType: "f32"},
		Queue: config.QueueConfig{MaxBatch: 4, MaxWaitMs: 50},
		Redis: config.RedisConfig{
			// port 1 is never a redis server; the dial fails fast
			URL:       "redis://127.0.0.1:1/0",
			OutPrefix: "results:",
			InQueue:   "inference_queue",
		},
	}
}

func TestNewUnreachableQueue(t *testing.T) {
	_, err := New(baseConfig())
	var queueErr *apperrors.QueueConnectError
	require.ErrorAs(t, err, &queueErr)
}

func TestNewMalformedURL(t *testing.T) {
	cfg := baseConfig()
	cfg.Redis.URL = "not-a-url"
	_, err := New(cfg)
	var queueErr *apperrors.QueueConnectError
	require.ErrorAs(t, err, &queueErr)
}
