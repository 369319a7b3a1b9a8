// Package pipeline composes the optional pre/postprocess stages around
// an engine invocation. Custom stages plug in behind the Processor
// contract; an embedded scripting host would sit behind the same
// interface with one host instance per worker.
package pipeline

import (
	"fmt"

	apperrors "github.com/afeldman/ai-runtime/internal/errors"
	"github.com/afeldman/ai-runtime/internal/types"
)

// Processor is one custom transformation stage. Implementations must be
// pure with respect to the batch they receive; state across batches is
// permitted because the owning pipeline never invokes a stage
// concurrently.
type Processor interface {
	// Name identifies the stage in config and logs.
	Name() string

	// Apply transforms one batch tensor (leading dim B in and out).
	Apply(t types.Tensor) (types.Tensor, error)
}

// Lifecycle is implemented by stages holding external resources, e.g. a
// scripting host. Init runs once per worker before the first batch;
// Close runs at worker shutdown.
type Lifecycle interface {
	Init() error
	Close() error
}

// Pipeline is the ordered composition preprocess -> engine -> postprocess.
// Absent stages are identity. The pipeline validates stage output against
// the engine's declared shapes; a violating stage is a PipelineFault.
type Pipeline struct {
	Pre  Processor
	Post Processor
}

// New builds a pipeline, substituting identity for absent stages.
func New(pre, post Processor) Pipeline {
	if pre == nil {
		pre = Identity{}
	}
	if post == nil {
		post = Identity{}
	}
	return Pipeline{Pre: pre, Post: post}
}

// RunPre applies the preprocessor and checks the result still matches the
// engine's declared batched input shape and dtype.
func (p *Pipeline) RunPre(t types.Tensor, inputShape []int, dtype types.DType) (types.Tensor, error) {
	out, err := p.Pre.Apply(t)
	if err != nil {
		return types.Tensor{}, &apperrors.PipelineFault{
			ErrorMsg: fmt.Sprintf("preprocessor %s: %v", p.Pre.Name(), err),
		}
	}
	if !out.ShapeEquals(inputShape) {
		return types.Tensor{}, &apperrors.PipelineFault{
			ErrorMsg: fmt.Sprintf("preprocessor %s returned shape %v, engine expects %v",
				p.Pre.Name(), out.Shape, inputShape),
		}
	}
	if out.DType != dtype {
		return types.Tensor{}, &apperrors.PipelineFault{
			ErrorMsg: fmt.Sprintf("preprocessor %s returned dtype %s, engine expects %s",
				p.Pre.Name(), out.DType, dtype),
		}
	}
	return out, nil
}

// RunPost applies the postprocessor and checks the leading dim is still B,
// since downstream splitting slices per job index.
func (p *Pipeline) RunPost(t types.Tensor, batch int) (types.Tensor, error) {
	out, err := p.Post.Apply(t)
	if err != nil {
		return types.Tensor{}, &apperrors.PipelineFault{
			ErrorMsg: fmt.Sprintf("postprocessor %s: %v", p.Post.Name(), err),
		}
	}
	if len(out.Shape) == 0 || out.Shape[0] != batch {
		return types.Tensor{}, &apperrors.PipelineFault{
			ErrorMsg: fmt.Sprintf("postprocessor %s returned shape %v, leading dim must be %d",
				p.Post.Name(), out.Shape, batch),
		}
	}
	return out, nil
}

// Init runs the lifecycle hook of every stage that has one.
func (p *Pipeline) Init() error {
	for _, stage := range []Processor{p.Pre, p.Post} {
		if lc, ok := stage.(Lifecycle); ok {
			if err := lc.Init(); err != nil {
				return fmt.Errorf("initializing stage %s: %w", stage.Name(), err)
			}
		}
	}
	return nil
}

// Close tears the stages down in reverse order.
func (p *Pipeline) Close() {
	for _, stage := range []Processor{p.Post, p.Pre} {
		if lc, ok := stage.(Lifecycle); ok {
			_ = lc.Close()
		}
	}
}
