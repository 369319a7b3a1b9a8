package types

import (
	"fmt"

	"github.com/google/uuid"
)

// Job is a single inference request flowing through the runtime.
// Dummy jobs are synthetic padding entries; they have no reply key
// and never yield a published result.
type Job struct {
	ID          string
	Input       Tensor
	SubmittedAt int64
	ReplyKey    string
	IsDummy     bool
}

// NewDummyJob returns a padding job whose input replicates shape.
func NewDummyJob(dtype DType, shape []int) Job {
	return Job{
		ID:      "dummy-" + uuid.NewString(),
		Input:   Zeros(dtype, shape),
		IsDummy: true,
	}
}

// Batch is the unit of engine invocation: exactly B jobs, real jobs
// leading in dispatch order, dummies trailing. Input is the stacked
// tensor with shape [B, per-sample shape...].
type Batch struct {
	Jobs  []Job
	Input Tensor
	Real  int
}

// AssembleBatch stacks jobs into a batch of size b, padding the tail with
// dummy jobs that replicate the first job's input shape. More than b real
// jobs is a programming error (the inbound channel bound must prevent it)
// and panics.
func AssembleBatch(jobs []Job, b int) Batch {
	if len(jobs) == 0 || len(jobs) > b {
		panic(fmt.Sprintf("batch assembly: %d jobs for batch size %d", len(jobs), b))
	}
	sample := jobs[0].Input
	real := len(jobs)
	all := make([]Job, 0, b)
	all = append(all, jobs...)
	for len(all) < b {
		all = append(all, NewDummyJob(sample.DType, sample.Shape))
	}

	stacked := Tensor{
		DType: sample.DType,
		Shape: append([]int{b}, sample.Shape...),
		Data:  make([]byte, 0, b*len(sample.Data)),
	}
	for _, j := range all {
		stacked.Data = append(stacked.Data, j.Input.Data...)
	}
	return Batch{Jobs: all, Input: stacked, Real: real}
}
