package types

import "fmt"

// InputSpec is the expected NCHW geometry and dtype of inference inputs.
type InputSpec struct {
	Batch    int
	Channels int
	Height   int
	Width    int
	DType    DType
}

// ValidateSample checks a single per-job input (CHW, no batch dim).
func (s *InputSpec) ValidateSample(shape []int, dtype DType) error {
	if len(shape) != 3 {
		return fmt.Errorf("input must be 3D (CHW), got %v", shape)
	}
	if shape[0] != s.Channels {
		return fmt.Errorf("channels mismatch: want %d, got %d", s.Channels, shape[0])
	}
	if shape[1] != s.Height || shape[2] != s.Width {
		return fmt.Errorf("spatial dims mismatch: want %dx%d, got %dx%d",
			s.Height, s.Width, shape[1], shape[2])
	}
	if dtype != s.DType {
		return fmt.Errorf("dtype mismatch: want %s, got %s", s.DType, dtype)
	}
	return nil
}

// ValidateBatch checks an assembled batch tensor (NCHW).
func (s *InputSpec) ValidateBatch(t *Tensor) error {
	if len(t.Shape) != 4 {
		return fmt.Errorf("batch input must be 4D (NCHW), got %v", t.Shape)
	}
	if t.Shape[0] != s.Batch {
		return fmt.Errorf("batch dim mismatch: want %d, got %d", s.Batch, t.Shape[0])
	}
	return s.ValidateSample(t.Shape[1:], t.DType)
}
