package engine

import (
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"

	apperrors "github.com/afeldman/ai-runtime/internal/errors"
	"github.com/afeldman/ai-runtime/internal/types"
)

// session is the state every backend adapter shares: the immutable spec,
// the device ordinal it is pinned to, and the weight seed derived from
// the model artifact. No framework-specific linkage (ORT, TensorRT,
// libtorch, libtensorflow C bindings) is built in: run, the portable
// reference evaluator, is the only execution path of every adapter.
type session struct {
	spec   types.EngineSpec
	seed   uint64
	closed bool
}

func newSession(spec types.EngineSpec, backendSalt uint64) (session, error) {
	if err := spec.Validate(); err != nil {
		return session{}, &apperrors.EngineLoadError{
			ErrorMsg: fmt.Sprintf("%s: invalid spec: %v", spec.Backend, err),
			Cause:    err,
		}
	}
	artifact, err := os.ReadFile(spec.ModelPath)
	if err != nil {
		return session{}, &apperrors.EngineLoadError{
			ErrorMsg: fmt.Sprintf("%s: loading model %s: %v", spec.Backend, spec.ModelPath, err),
			Cause:    err,
		}
	}
	if len(artifact) == 0 {
		return session{}, &apperrors.EngineLoadError{
			ErrorMsg: fmt.Sprintf("%s: model artifact %s is empty", spec.Backend, spec.ModelPath),
		}
	}
	return session{spec: spec, seed: xxhash.Sum64(artifact) ^ backendSalt}, nil
}

func (s *session) batchSize() int        { return s.spec.BatchSize() }
func (s *session) inputShapes() [][]int  { return s.spec.InputShapes }
func (s *session) outputShapes() [][]int { return s.spec.OutputShapes }

func (s *session) close() error {
	s.closed = true
	return nil
}

// run evaluates one batch deterministically: each output row is a
// weighted reduction of its input row, with weights expanded from the
// artifact seed. Same session, same input bytes, same output bytes.
func (s *session) run(input types.Tensor) (types.Tensor, error) {
	if s.closed {
		return types.Tensor{}, &apperrors.BackendFault{
			ErrorMsg: fmt.Sprintf("%s: engine is closed", s.spec.Backend),
		}
	}
	if err := s.validateInput(&input); err != nil {
		return types.Tensor{}, err
	}

	b := s.batchSize()
	out := types.Zeros(s.spec.DType, s.spec.OutputShapes[0])
	inRow := input.NumElements() / b
	outRow := out.NumElements() / b

	for row := 0; row < b; row++ {
		in := input.Row(row)
		acc := 0.0
		for i := 0; i < inRow; i++ {
			acc += in.DType.Float64At(in.Data, i) * weight(s.seed, uint64(i))
		}
		o := out.Row(row)
		for j := 0; j < outRow; j++ {
			o.DType.PutFloat64(o.Data, j, acc*weight(s.seed, uint64(inRow+j)))
		}
	}

	if err := s.validateOutput(&out); err != nil {
		return types.Tensor{}, err
	}
	return out, nil
}

func (s *session) validateInput(t *types.Tensor) error {
	if !t.ShapeEquals(s.spec.InputShapes[0]) {
		return &apperrors.BackendFault{
			ErrorMsg: fmt.Sprintf("%s: input shape %v does not match declared %v",
				s.spec.Backend, t.Shape, s.spec.InputShapes[0]),
		}
	}
	if t.DType != s.spec.DType {
		return &apperrors.BackendFault{
			ErrorMsg: fmt.Sprintf("%s: input dtype %s does not match declared %s",
				s.spec.Backend, t.DType, s.spec.DType),
		}
	}
	if err := t.Validate(); err != nil {
		return &apperrors.BackendFault{
			ErrorMsg: fmt.Sprintf("%s: %v", s.spec.Backend, err),
			Cause:    err,
		}
	}
	return nil
}

func (s *session) validateOutput(t *types.Tensor) error {
	if !t.ShapeEquals(s.spec.OutputShapes[0]) {
		return &apperrors.BackendFault{
			ErrorMsg: fmt.Sprintf("%s: output shape %v does not match declared %v",
				s.spec.Backend, t.Shape, s.spec.OutputShapes[0]),
		}
	}
	return nil
}

// weight maps (seed, index) to a stable value in [-1, 1] via a
// splitmix64 round, so the expanded weights never materialize.
func weight(seed, i uint64) float64 {
	z := seed + (i+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	return float64(int64(z%2001)-1000) / 1000.0
}
