package engine

import (
	"github.com/rs/zerolog/log"

	"github.com/afeldman/ai-runtime/internal/types"
)

const tensorflowSalt = 0x7466736d

// tensorflowEngine is the TensorFlow SavedModel adapter.
type tensorflowEngine struct {
	session
}

func newTensorFlowEngine(spec types.EngineSpec) (Engine, error) {
	s, err := newSession(spec, tensorflowSalt)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("saved_model", spec.ModelPath).
		Int("gpu", spec.GPUID).
		Msg("tensorflow session created")
	return &tensorflowEngine{session: s}, nil
}

func (e *tensorflowEngine) Name() string { return "tensorflow" }

func (e *tensorflowEngine) BatchSize() int { return e.batchSize() }

func (e *tensorflowEngine) InputShapes() [][]int { return e.inputShapes() }

func (e *tensorflowEngine) OutputShapes() [][]int { return e.outputShapes() }

func (e *tensorflowEngine) Infer(input types.Tensor) (types.Tensor, error) {
	return e.run(input)
}

func (e *tensorflowEngine) Close() error { return e.close() }
