package engine

import (
	"fmt"

	"github.com/rs/zerolog/log"

	apperrors "github.com/afeldman/ai-runtime/internal/errors"
	"github.com/afeldman/ai-runtime/internal/types"
)

const tensorrtSalt = 0x74727478

// tensorrtEngine is the TensorRT adapter. TensorRT plans are compiled
// for a specific GPU, so CPU placement is rejected at load.
type tensorrtEngine struct {
	session
	gpu int
}

func newTensorRTEngine(spec types.EngineSpec) (Engine, error) {
	if spec.Device != types.DeviceGPU {
		return nil, &apperrors.EngineLoadError{
			ErrorMsg: fmt.Sprintf("tensorrt: device %q not supported, plans require a gpu", spec.Device),
		}
	}
	s, err := newSession(spec, tensorrtSalt)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("plan", spec.ModelPath).
		Int("gpu", spec.GPUID).
		Msg("tensorrt execution context created")
	return &tensorrtEngine{session: s, gpu: spec.GPUID}, nil
}

func (e *tensorrtEngine) Name() string { return "tensorrt" }

func (e *tensorrtEngine) BatchSize() int { return e.batchSize() }

func (e *tensorrtEngine) InputShapes() [][]int { return e.inputShapes() }

func (e *tensorrtEngine) OutputShapes() [][]int { return e.outputShapes() }

func (e *tensorrtEngine) Infer(input types.Tensor) (types.Tensor, error) {
	return e.run(input)
}

func (e *tensorrtEngine) Close() error { return e.close() }
