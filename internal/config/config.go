package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	apperrors "github.com/afeldman/ai-runtime/internal/errors"
	"github.com/afeldman/ai-runtime/internal/types"
)

const (
	// EnvConfigPath overrides the config file location when argv is empty.
	EnvConfigPath = "OMNIENGINE_CONFIG"

	defaultConfigPath = "./runtime.toml"
	defaultOutPrefix  = "results:"
	defaultInQueue    = "inference_queue"
)

// ModelConfig is the [model] section.
type ModelConfig struct {
	Backend      string   `mapstructure:"backend"`
	Device       string   `mapstructure:"device"`
	ModelPath    string   `mapstructure:"model_path"`
	GPUIDs       []int    `mapstructure:"gpu_ids"`
	InputNames   []string `mapstructure:"input_names"`
	OutputNames  []string `mapstructure:"output_names"`
	InputShapes  [][]int  `mapstructure:"input_shapes"`
	OutputShapes [][]int  `mapstructure:"output_shapes"`
}

// InputConfig is the [input] section.
type InputConfig struct {
	Batch    int    `mapstructure:"batch"`
	Channels int    `mapstructure:"channels"`
	Height   int    `mapstructure:"height"`
	Width    int    `mapstructure:"width"`
	DType    string `mapstructure:"dtype"`
}

// QueueConfig is the [queue] section.
type QueueConfig struct {
	MaxBatch  int `mapstructure:"max_batch"`
	MaxWaitMs int `mapstructure:"max_wait_ms"`
}

// RedisConfig is the [redis] section.
type RedisConfig struct {
	URL       string `mapstructure:"url"`
	OutPrefix string `mapstructure:"out_prefix"`
	InQueue   string `mapstructure:"in_queue"`
}

// PipelineConfig is the optional [pipeline] section selecting the
// pre/postprocessor stages by name.
type PipelineConfig struct {
	Preprocessor    string  `mapstructure:"preprocessor"`
	Postprocessor   string  `mapstructure:"postprocessor"`
	NormalizeScale  float64 `mapstructure:"normalize_scale"`
	NormalizeOffset float64 `mapstructure:"normalize_offset"`
}

// Config is the complete runtime configuration, immutable after load.
type Config struct {
	Model    ModelConfig    `mapstructure:"model"`
	Input    InputConfig    `mapstructure:"input"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

// ResolvePath picks the config file path from argv, the environment,
// then the working-directory default.
func ResolvePath(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return defaultConfigPath
}

// Load reads and validates the TOML config at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetDefault("redis.out_prefix", defaultOutPrefix)
	v.SetDefault("redis.in_queue", defaultInQueue)
	v.SetDefault("pipeline.preprocessor", "identity")
	v.SetDefault("pipeline.postprocessor", "identity")
	v.SetDefault("pipeline.normalize_scale", 1.0)

	if err := v.ReadInConfig(); err != nil {
		return nil, &apperrors.ConfigError{ErrorMsg: fmt.Sprintf("reading %s: %v", path, err)}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &apperrors.ConfigError{ErrorMsg: fmt.Sprintf("unmarshaling %s: %v", path, err)}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	fail := func(format string, args ...interface{}) error {
		return &apperrors.ConfigError{ErrorMsg: fmt.Sprintf(format, args...)}
	}

	backend, err := types.ParseBackend(c.Model.Backend)
	if err != nil {
		return fail("model.backend: %v", err)
	}
	_ = backend

	switch types.Device(c.Model.Device) {
	case types.DeviceCPU:
	case types.DeviceGPU:
		if len(c.Model.GPUIDs) == 0 {
			return fail("model.gpu_ids is required when device=gpu")
		}
		for _, id := range c.Model.GPUIDs {
			if id < 0 {
				return fail("model.gpu_ids contains negative ordinal %d", id)
			}
		}
	default:
		return fail("model.device must be cpu or gpu, got %q", c.Model.Device)
	}

	if c.Model.ModelPath == "" {
		return fail("model.model_path is empty")
	}

	dtype, err := types.ParseDType(c.Input.DType)
	if err != nil {
		return fail("input.dtype: %v", err)
	}
	_ = dtype
	if c.Input.Batch <= 0 || c.Input.Channels <= 0 || c.Input.Height <= 0 || c.Input.Width <= 0 {
		return fail("input dimensions must be positive, got batch=%d channels=%d height=%d width=%d",
			c.Input.Batch, c.Input.Channels, c.Input.Height, c.Input.Width)
	}

	if c.Queue.MaxBatch <= 0 {
		return fail("queue.max_batch must be positive, got %d", c.Queue.MaxBatch)
	}
	if c.Queue.MaxWaitMs < 0 {
		return fail("queue.max_wait_ms must be non-negative, got %d", c.Queue.MaxWaitMs)
	}

	spec := c.EngineSpec(0)
	if err := spec.Validate(); err != nil {
		return fail("model shapes: %v", err)
	}
	if spec.BatchSize() != c.Queue.MaxBatch {
		return fail("queue.max_batch (%d) must equal input_shapes[0][0] (%d)",
			c.Queue.MaxBatch, spec.BatchSize())
	}
	if spec.BatchSize() != c.Input.Batch {
		return fail("input.batch (%d) must equal input_shapes[0][0] (%d)",
			c.Input.Batch, spec.BatchSize())
	}
	// ingress admits samples by the [input] geometry; the engine checks
	// batches against input_shapes. The two must agree or every batch
	// would fault at inference time.
	sample := spec.SampleInputShape()
	if len(sample) != 3 || sample[0] != c.Input.Channels ||
		sample[1] != c.Input.Height || sample[2] != c.Input.Width {
		return fail("input_shapes[0] %v must be [batch, %d, %d, %d] to match [input] channels/height/width",
			c.Model.InputShapes[0], c.Input.Channels, c.Input.Height, c.Input.Width)
	}

	if c.Redis.URL == "" {
		return fail("redis.url is empty")
	}
	return nil
}

// Workers returns the number of workers to spawn: one per GPU ordinal,
// or a single CPU worker.
func (c *Config) Workers() int {
	if types.Device(c.Model.Device) == types.DeviceGPU {
		return len(c.Model.GPUIDs)
	}
	return 1
}

// EngineSpec builds the immutable spec for the worker at index.
func (c *Config) EngineSpec(worker int) types.EngineSpec {
	gpu := -1
	if types.Device(c.Model.Device) == types.DeviceGPU && worker < len(c.Model.GPUIDs) {
		gpu = c.Model.GPUIDs[worker]
	}
	return types.EngineSpec{
		Backend:      types.Backend(c.Model.Backend),
		Device:       types.Device(c.Model.Device),
		GPUID:        gpu,
		ModelPath:    c.Model.ModelPath,
		InputNames:   c.Model.InputNames,
		OutputNames:  c.Model.OutputNames,
		InputShapes:  c.Model.InputShapes,
		OutputShapes: c.Model.OutputShapes,
		DType:        types.DType(c.Input.DType),
	}
}

// InputSpec builds the ingress validation spec.
func (c *Config) InputSpec() types.InputSpec {
	return types.InputSpec{
		Batch:    c.Input.Batch,
		Channels: c.Input.Channels,
		Height:   c.Input.Height,
		Width:    c.Input.Width,
		DType:    types.DType(c.Input.DType),
	}
}
