package engine

import (
	"github.com/rs/zerolog/log"

	"github.com/afeldman/ai-runtime/internal/types"
)

const onnxSalt = 0x6f6e6e78 // "onnx"

// onnxEngine is the ONNX Runtime adapter. It evaluates through the
// portable reference session; the ORT C API is not linked.
type onnxEngine struct {
	session
}

func newONNXEngine(spec types.EngineSpec) (Engine, error) {
	s, err := newSession(spec, onnxSalt)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("model", spec.ModelPath).
		Int("gpu", spec.GPUID).
		Int("batch", spec.BatchSize()).
		Msg("onnx session created")
	return &onnxEngine{session: s}, nil
}

func (e *onnxEngine) Name() string { return "onnx" }

func (e *onnxEngine) BatchSize() int { return e.batchSize() }

func (e *onnxEngine) InputShapes() [][]int { return e.inputShapes() }

func (e *onnxEngine) OutputShapes() [][]int { return e.outputShapes() }

func (e *onnxEngine) Infer(input types.Tensor) (types.Tensor, error) {
	return e.run(input)
}

func (e *onnxEngine) Close() error { return e.close() }
