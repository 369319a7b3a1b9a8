package pipeline

import (
	"fmt"

	"github.com/afeldman/ai-runtime/internal/types"
)

// Identity passes the batch through unchanged.
type Identity struct{}

func (Identity) Name() string { return "identity" }

func (Identity) Apply(t types.Tensor) (types.Tensor, error) {
	return t, nil
}

// Normalize is a stateless preprocessor applying value*scale+offset
// element-wise in the tensor's own dtype (f32 and f16 keep fractional
// precision; integer dtypes truncate toward zero and clamp to the
// dtype's range).
type Normalize struct {
	Scale  float64
	Offset float64
}

func (Normalize) Name() string { return "normalize" }

func (n Normalize) Apply(t types.Tensor) (types.Tensor, error) {
	if err := t.Validate(); err != nil {
		return types.Tensor{}, err
	}
	out := types.Zeros(t.DType, t.Shape)
	for i := 0; i < t.NumElements(); i++ {
		out.DType.PutFloat64(out.Data, i, t.DType.Float64At(t.Data, i)*n.Scale+n.Offset)
	}
	return out, nil
}

// Argmax is a postprocessor reducing [B, C] scores to [B, 1] i32 class
// indices. Ties resolve to the lowest index.
type Argmax struct{}

func (Argmax) Name() string { return "argmax" }

func (Argmax) Apply(t types.Tensor) (types.Tensor, error) {
	if len(t.Shape) != 2 {
		return types.Tensor{}, fmt.Errorf("argmax expects [B, C] scores, got %v", t.Shape)
	}
	b, c := t.Shape[0], t.Shape[1]
	out := types.Zeros(types.DTypeI32, []int{b, 1})
	for row := 0; row < b; row++ {
		best, bestVal := 0, t.DType.Float64At(t.Data, row*c)
		for j := 1; j < c; j++ {
			if v := t.DType.Float64At(t.Data, row*c+j); v > bestVal {
				best, bestVal = j, v
			}
		}
		out.DType.PutFloat64(out.Data, row, float64(best))
	}
	return out, nil
}

// ForName resolves a configured stage name. The scale/offset pair comes
// from config (defaults: scale 1, offset 0), not from the stage itself.
func ForName(name string, scale, offset float64) (Processor, error) {
	switch name {
	case "", "identity":
		return Identity{}, nil
	case "normalize":
		return Normalize{Scale: scale, Offset: offset}, nil
	case "argmax":
		return Argmax{}, nil
	}
	return nil, fmt.Errorf("unknown pipeline stage %q", name)
}
