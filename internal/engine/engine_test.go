package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/afeldman/ai-runtime/internal/errors"
	"github.com/afeldman/ai-runtime/internal/types"
)

func testSpec(t *testing.T, backend types.Backend) types.EngineSpec {
	t.Helper()
	model := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, os.WriteFile(model, []byte("weights-v1"), 0o644))
	return types.EngineSpec{
		Backend:      backend,
		Device:       types.DeviceCPU,
		GPUID:        -1,
		ModelPath:    model,
		InputNames:   []string{"input"},
		OutputNames:  []string{"output"},
		InputShapes:  [][]int{{2, 3, 2, 2}},
		OutputShapes: [][]int{{2, 5}},
		DType:        types.DTypeF32,
	}
}

func TestNewSelectsBackend(t *testing.T) {
	for _, backend := range []types.Backend{
		types.BackendONNX, types.BackendTorch, types.BackendTensorFlow,
	} {
		t.Run(string(backend), func(t *testing.T) {
			e, err := New(testSpec(t, backend))
			require.NoError(t, err)
			defer e.Close()

			assert.Equal(t, string(backend), e.Name())
			assert.Equal(t, 2, e.BatchSize())
			assert.Equal(t, [][]int{{2, 3, 2, 2}}, e.InputShapes())
		})
	}
}

func TestNewUnknownBackend(t *testing.T) {
	spec := testSpec(t, types.BackendONNX)
	spec.Backend = "mxnet"
	_, err := New(spec)
	var loadErr *apperrors.EngineLoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestNewMissingArtifact(t *testing.T) {
	spec := testSpec(t, types.BackendONNX)
	spec.ModelPath = filepath.Join(t.TempDir(), "absent.onnx")
	_, err := New(spec)
	var loadErr *apperrors.EngineLoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestTensorRTRequiresGPU(t *testing.T) {
	spec := testSpec(t, types.BackendTensorRT)
	_, err := New(spec)
	var loadErr *apperrors.EngineLoadError
	require.ErrorAs(t, err, &loadErr)

	spec.Device = types.DeviceGPU
	spec.GPUID = 0
	e, err := New(spec)
	require.NoError(t, err)
	assert.Equal(t, "tensorrt", e.Name())
	assert.NoError(t, e.Close())
}

func TestInferShapeContract(t *testing.T) {
	e, err := New(testSpec(t, types.BackendONNX))
	require.NoError(t, err)
	defer e.Close()

	out, err := e.Infer(types.Zeros(types.DTypeF32, []int{2, 3, 2, 2}))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5}, out.Shape)
	assert.NoError(t, out.Validate())
}

func TestInferRejectsMismatchedBatch(t *testing.T) {
	e, err := New(testSpec(t, types.BackendONNX))
	require.NoError(t, err)
	defer e.Close()

	tests := []struct {
		name  string
		input types.Tensor
	}{
		{"wrong leading dim", types.Zeros(types.DTypeF32, []int{3, 3, 2, 2})},
		{"wrong sample shape", types.Zeros(types.DTypeF32, []int{2, 3, 4, 4})},
		{"wrong dtype", types.Zeros(types.DTypeU8, []int{2, 3, 2, 2})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Infer(tt.input)
			var fault *apperrors.BackendFault
			require.ErrorAs(t, err, &fault)
		})
	}
}

func TestInferDeterministicWithinSession(t *testing.T) {
	e, err := New(testSpec(t, types.BackendONNX))
	require.NoError(t, err)
	defer e.Close()

	in := types.Zeros(types.DTypeF32, []int{2, 3, 2, 2})
	for i := 0; i < in.NumElements(); i++ {
		in.DType.PutFloat64(in.Data, i, float64(i)*0.25)
	}

	first, err := e.Infer(in)
	require.NoError(t, err)
	second, err := e.Infer(in)
	require.NoError(t, err)
	assert.Equal(t, first.Data, second.Data)
}

func TestInferAfterCloseFaults(t *testing.T) {
	e, err := New(testSpec(t, types.BackendTorch))
	require.NoError(t, err)
	require.NoError(t, e.Close())

	_, err = e.Infer(types.Zeros(types.DTypeF32, []int{2, 3, 2, 2}))
	var fault *apperrors.BackendFault
	require.ErrorAs(t, err, &fault)
}
