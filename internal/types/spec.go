package types

import "fmt"

// Backend identifies the inference library an engine adapter binds to.
type Backend string

const (
	BackendONNX       Backend = "onnx"
	BackendTensorRT   Backend = "tensorrt"
	BackendTorch      Backend = "torch"
	BackendTensorFlow Backend = "tensorflow"
)

// ParseBackend maps a config backend string to a Backend.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case BackendONNX, BackendTensorRT, BackendTorch, BackendTensorFlow:
		return Backend(s), nil
	}
	return "", fmt.Errorf("unsupported backend %q", s)
}

// Device is the placement of an engine instance.
type Device string

const (
	DeviceCPU Device = "cpu"
	DeviceGPU Device = "gpu"
)

// EngineSpec is the immutable description of one engine instance:
// backend kind, device placement, model artifact, and batched I/O shapes.
// The leading dimension of every input and output shape is the engine
// batch size B.
type EngineSpec struct {
	Backend      Backend
	Device       Device
	GPUID        int
	ModelPath    string
	InputNames   []string
	OutputNames  []string
	InputShapes  [][]int
	OutputShapes [][]int
	DType        DType
}

// BatchSize returns B, the leading dim of the first input shape.
func (s *EngineSpec) BatchSize() int {
	return s.InputShapes[0][0]
}

// SampleInputShape returns the first input shape without the batch dim.
func (s *EngineSpec) SampleInputShape() []int {
	return s.InputShapes[0][1:]
}

// SampleOutputShape returns the first output shape without the batch dim.
func (s *EngineSpec) SampleOutputShape() []int {
	return s.OutputShapes[0][1:]
}

// Validate checks internal consistency of the spec.
func (s *EngineSpec) Validate() error {
	if len(s.InputNames) == 0 || len(s.InputNames) != len(s.InputShapes) {
		return fmt.Errorf("input_names (%d) and input_shapes (%d) must be non-empty and equal length",
			len(s.InputNames), len(s.InputShapes))
	}
	if len(s.OutputNames) == 0 || len(s.OutputNames) != len(s.OutputShapes) {
		return fmt.Errorf("output_names (%d) and output_shapes (%d) must be non-empty and equal length",
			len(s.OutputNames), len(s.OutputShapes))
	}
	for _, shape := range append(append([][]int{}, s.InputShapes...), s.OutputShapes...) {
		if len(shape) == 0 {
			return fmt.Errorf("empty shape in engine spec")
		}
		for _, d := range shape {
			if d <= 0 {
				return fmt.Errorf("non-positive extent in shape %v", shape)
			}
		}
	}
	b := s.BatchSize()
	for _, shape := range append(append([][]int{}, s.InputShapes...), s.OutputShapes...) {
		if shape[0] != b {
			return fmt.Errorf("shape %v leading dim must equal batch size %d", shape, b)
		}
	}
	if s.DType.Size() == 0 {
		return fmt.Errorf("unsupported dtype %q", s.DType)
	}
	if s.ModelPath == "" {
		return fmt.Errorf("model_path is empty")
	}
	return nil
}
