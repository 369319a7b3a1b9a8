// Package codec frames jobs and results as self-describing CBOR maps.
// Ingress and egress share one codec so the two sides can never drift.
package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	apperrors "github.com/afeldman/ai-runtime/internal/errors"
	"github.com/afeldman/ai-runtime/internal/types"
)

type jobWire struct {
	ID    string `cbor:"id"`
	Input []byte `cbor:"input"`
	Shape []int  `cbor:"shape"`
	DType string `cbor:"dtype"`
}

type resultWire struct {
	ID          string `cbor:"id"`
	Output      []byte `cbor:"output,omitempty"`
	Shape       []int  `cbor:"shape,omitempty"`
	DType       string `cbor:"dtype,omitempty"`
	Error       string `cbor:"error,omitempty"`
	SubmittedAt int64  `cbor:"submitted_at"`
	CompletedAt int64  `cbor:"completed_at"`
	WorkerID    int    `cbor:"worker_id"`
}

// DecodeJob decodes one queue payload into a Job and validates it against
// the input spec. Every failure is an IngressDecodeError: the caller logs
// and drops the single message. A payload without an id is assigned one.
func DecodeJob(payload []byte, spec types.InputSpec, outPrefix string) (types.Job, error) {
	var w jobWire
	if err := cbor.Unmarshal(payload, &w); err != nil {
		return types.Job{}, &apperrors.IngressDecodeError{ErrorMsg: fmt.Sprintf("cbor decode: %v", err)}
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	dtype, err := types.ParseDType(w.DType)
	if err != nil {
		return types.Job{}, &apperrors.IngressDecodeError{ErrorMsg: fmt.Sprintf("job %s: %v", w.ID, err)}
	}
	for _, d := range w.Shape {
		if d <= 0 {
			return types.Job{}, &apperrors.IngressDecodeError{
				ErrorMsg: fmt.Sprintf("job %s: non-positive extent in shape %v", w.ID, w.Shape),
			}
		}
	}
	input := types.Tensor{DType: dtype, Shape: w.Shape, Data: w.Input}
	if err := input.Validate(); err != nil {
		return types.Job{}, &apperrors.IngressDecodeError{ErrorMsg: fmt.Sprintf("job %s: %v", w.ID, err)}
	}
	if err := spec.ValidateSample(w.Shape, dtype); err != nil {
		return types.Job{}, &apperrors.IngressDecodeError{ErrorMsg: fmt.Sprintf("job %s: %v", w.ID, err)}
	}
	return types.Job{
		ID:       w.ID,
		Input:    input,
		ReplyKey: outPrefix + w.ID,
	}, nil
}

// EncodeJob frames a job for the inbound queue. Used by clients and tests.
func EncodeJob(id string, input types.Tensor) ([]byte, error) {
	return cbor.Marshal(jobWire{
		ID:    id,
		Input: input.Data,
		Shape: input.Shape,
		DType: input.DType.String(),
	})
}

// EncodeResult frames one completed job's output record.
func EncodeResult(job *types.Job, output types.Tensor, completedAt int64, workerID int) ([]byte, error) {
	return cbor.Marshal(resultWire{
		ID:          job.ID,
		Output:      output.Data,
		Shape:       output.Shape,
		DType:       output.DType.String(),
		SubmittedAt: job.SubmittedAt,
		CompletedAt: completedAt,
		WorkerID:    workerID,
	})
}

// EncodeErrorResult frames a failed job's record: the error field takes
// the place of the output.
func EncodeErrorResult(job *types.Job, cause error, completedAt int64, workerID int) ([]byte, error) {
	return cbor.Marshal(resultWire{
		ID:          job.ID,
		Error:       cause.Error(),
		SubmittedAt: job.SubmittedAt,
		CompletedAt: completedAt,
		WorkerID:    workerID,
	})
}

// Result is the decoded outbound record, used by tests and client tooling.
type Result struct {
	ID          string
	Output      types.Tensor
	Error       string
	SubmittedAt int64
	CompletedAt int64
	WorkerID    int
}

// DecodeResult decodes an outbound record.
func DecodeResult(payload []byte) (Result, error) {
	var w resultWire
	if err := cbor.Unmarshal(payload, &w); err != nil {
		return Result{}, err
	}
	r := Result{
		ID:          w.ID,
		Error:       w.Error,
		SubmittedAt: w.SubmittedAt,
		CompletedAt: w.CompletedAt,
		WorkerID:    w.WorkerID,
	}
	if w.Error == "" {
		r.Output = types.Tensor{DType: types.DType(w.DType), Shape: w.Shape, Data: w.Output}
	}
	return r, nil
}
