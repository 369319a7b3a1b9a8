package engine

import (
	"github.com/rs/zerolog/log"

	"github.com/afeldman/ai-runtime/internal/types"
)

const torchSalt = 0x746f7263

// torchEngine is the TorchScript adapter.
type torchEngine struct {
	session
}

func newTorchEngine(spec types.EngineSpec) (Engine, error) {
	s, err := newSession(spec, torchSalt)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("module", spec.ModelPath).
		Int("gpu", spec.GPUID).
		Msg("torchscript module loaded")
	return &torchEngine{session: s}, nil
}

func (e *torchEngine) Name() string { return "torch" }

func (e *torchEngine) BatchSize() int { return e.batchSize() }

func (e *torchEngine) InputShapes() [][]int { return e.inputShapes() }

func (e *torchEngine) OutputShapes() [][]int { return e.outputShapes() }

func (e *torchEngine) Infer(input types.Tensor) (types.Tensor, error) {
	return e.run(input)
}

func (e *torchEngine) Close() error { return e.close() }
