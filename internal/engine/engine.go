// Package engine holds the backend capability contract and its adapters.
// Each adapter owns one loaded model on one device and is driven by a
// single worker; instances are not safe for concurrent use.
package engine

import (
	"fmt"

	apperrors "github.com/afeldman/ai-runtime/internal/errors"
	"github.com/afeldman/ai-runtime/internal/types"
)

// Engine is the uniform batch contract the rest of the runtime needs:
// execute exactly one device-sized batch per call.
type Engine interface {
	// Name returns the backend kind for logging.
	Name() string

	// BatchSize returns B, the fixed leading dim of every invocation.
	BatchSize() int

	// InputShapes and OutputShapes return the declared batched shapes.
	InputShapes() [][]int
	OutputShapes() [][]int

	// Infer executes one batch. The input shape and dtype must match the
	// declared input spec; the output carries leading dim B. Identical
	// inputs yield bitwise-identical outputs within a session. Failures
	// surface as BackendFault: fatal to the batch, not to the worker.
	Infer(input types.Tensor) (types.Tensor, error)

	// Close releases the model and device context.
	Close() error
}

// New selects and loads the adapter for the spec's backend kind.
func New(spec types.EngineSpec) (Engine, error) {
	switch spec.Backend {
	case types.BackendONNX:
		return newONNXEngine(spec)
	case types.BackendTensorRT:
		return newTensorRTEngine(spec)
	case types.BackendTorch:
		return newTorchEngine(spec)
	case types.BackendTensorFlow:
		return newTensorFlowEngine(spec)
	}
	return nil, &apperrors.EngineLoadError{
		ErrorMsg: fmt.Sprintf("unsupported backend %q", spec.Backend),
	}
}
