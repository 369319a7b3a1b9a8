package worker

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afeldman/ai-runtime/internal/batcher"
	"github.com/afeldman/ai-runtime/internal/codec"
	apperrors "github.com/afeldman/ai-runtime/internal/errors"
	"github.com/afeldman/ai-runtime/internal/pipeline"
	"github.com/afeldman/ai-runtime/internal/types"
)

// identityEngine echoes its input; failAt > 0 faults that invocation.
type identityEngine struct {
	batch  int
	shape  []int
	calls  int
	failAt int
}

func (e *identityEngine) Name() string          { return "identity" }
func (e *identityEngine) BatchSize() int        { return e.batch }
func (e *identityEngine) InputShapes() [][]int  { return [][]int{append([]int{e.batch}, e.shape...)} }
func (e *identityEngine) OutputShapes() [][]int { return e.InputShapes() }
func (e *identityEngine) Close() error          { return nil }

func (e *identityEngine) Infer(input types.Tensor) (types.Tensor, error) {
	e.calls++
	if e.failAt > 0 && e.calls == e.failAt {
		return types.Tensor{}, &apperrors.BackendFault{ErrorMsg: "device OOM"}
	}
	return input, nil
}

type memPublisher struct {
	mu      sync.Mutex
	order   []string
	records map[string][]byte
	err     error
}

func newMemPublisher() *memPublisher {
	return &memPublisher{records: map[string][]byte{}}
}

func (p *memPublisher) Publish(_ context.Context, key string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.order = append(p.order, key)
	p.records[key] = payload
	return nil
}

func (p *memPublisher) result(t *testing.T, key string) codec.Result {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	payload, ok := p.records[key]
	require.True(t, ok, "no record at %s", key)
	r, err := codec.DecodeResult(payload)
	require.NoError(t, err)
	return r
}

func job(id string, fill byte) types.Job {
	in := types.Zeros(types.DTypeF32, []int{3, 2, 2})
	for i := range in.Data {
		in.Data[i] = fill
	}
	return types.Job{ID: id, Input: in, SubmittedAt: 10, ReplyKey: "results:" + id}
}

func runWorker(t *testing.T, w *Worker) chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, w.Run(context.Background()))
	}()
	return done
}

func waitDone(t *testing.T, done chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not exit")
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	eng := &identityEngine{batch: 4, shape: []int{3, 2, 2}}
	pub := newMemPublisher()
	ch := make(chan types.Job, 8)
	w := New(3, eng, batcher.New(4, 50*time.Millisecond), pipeline.New(nil, nil), pub, ch)
	done := runWorker(t, w)

	j := job("job-0", 0x5A)
	ch <- j
	close(ch)
	waitDone(t, done)

	r := pub.result(t, "results:job-0")
	assert.Equal(t, "job-0", r.ID)
	assert.Empty(t, r.Error)
	assert.Equal(t, j.Input.Data, r.Output.Data, "identity stages must round-trip byte-for-byte")
	assert.Equal(t, []int{3, 2, 2}, r.Output.Shape)
	assert.Equal(t, 3, r.WorkerID)
	assert.Equal(t, int64(10), r.SubmittedAt)
	assert.GreaterOrEqual(t, r.CompletedAt, int64(0))
}

func TestDummiesNeverPublished(t *testing.T) {
	eng := &identityEngine{batch: 4, shape: []int{3, 2, 2}}
	pub := newMemPublisher()
	ch := make(chan types.Job, 8)
	w := New(0, eng, batcher.New(4, 10*time.Millisecond), pipeline.New(nil, nil), pub, ch)
	done := runWorker(t, w)

	ch <- job("solo", 1)
	close(ch)
	waitDone(t, done)

	assert.Len(t, pub.records, 1, "only the real job may be published")
	assert.Equal(t, 1, eng.calls, "one flush, one engine invocation")
}

func TestPublicationOrderMatchesReception(t *testing.T) {
	eng := &identityEngine{batch: 2, shape: []int{3, 2, 2}}
	pub := newMemPublisher()
	ch := make(chan types.Job, 16)
	w := New(0, eng, batcher.New(2, 100*time.Millisecond), pipeline.New(nil, nil), pub, ch)

	for i := 0; i < 6; i++ {
		ch <- job("job-"+strconv.Itoa(i), byte(i))
	}
	close(ch)
	waitDone(t, runWorker(t, w))

	require.Len(t, pub.order, 6)
	for i, key := range pub.order {
		assert.Equal(t, "results:job-"+strconv.Itoa(i), key)
	}
}

func TestBackendFaultIsolatedToBatch(t *testing.T) {
	eng := &identityEngine{batch: 2, shape: []int{3, 2, 2}, failAt: 1}
	pub := newMemPublisher()
	ch := make(chan types.Job, 8)
	w := New(0, eng, batcher.New(2, 10*time.Millisecond), pipeline.New(nil, nil), pub, ch)
	done := runWorker(t, w)

	// batch 1 faults
	ch <- job("a", 1)
	ch <- job("b", 2)
	// batch 2 succeeds
	ch <- job("c", 3)
	ch <- job("d", 4)
	close(ch)
	waitDone(t, done)

	for _, id := range []string{"a", "b"} {
		r := pub.result(t, "results:"+id)
		assert.Contains(t, r.Error, "device OOM")
		assert.Empty(t, r.Output.Data)
	}
	for _, id := range []string{"c", "d"} {
		r := pub.result(t, "results:"+id)
		assert.Empty(t, r.Error)
		assert.NotEmpty(t, r.Output.Data)
	}
}

func TestPipelineFaultPublishesErrorRecords(t *testing.T) {
	eng := &identityEngine{batch: 2, shape: []int{3, 2, 2}}
	pub := newMemPublisher()
	ch := make(chan types.Job, 4)
	// argmax demands [B, C]; the 4-D batch violates its contract
	p := pipeline.New(nil, pipeline.Argmax{})
	w := New(0, eng, batcher.New(2, 10*time.Millisecond), p, pub, ch)
	done := runWorker(t, w)

	ch <- job("x", 1)
	close(ch)
	waitDone(t, done)

	r := pub.result(t, "results:x")
	assert.NotEmpty(t, r.Error)
}

func TestShutdownFlushesPartialBatch(t *testing.T) {
	eng := &identityEngine{batch: 4, shape: []int{3, 2, 2}}
	pub := newMemPublisher()
	ch := make(chan types.Job, 8)
	w := New(0, eng, batcher.New(4, 200*time.Millisecond), pipeline.New(nil, nil), pub, ch)

	ch <- job("j0", 1)
	ch <- job("j1", 2)
	ch <- job("j2", 3)
	close(ch) // shutdown with 3 buffered

	waitDone(t, runWorker(t, w))

	assert.Len(t, pub.records, 3, "the partial batch is flushed with one dummy")
	assert.Equal(t, 1, eng.calls)
}

func TestPublishFailureDropsWithoutRetry(t *testing.T) {
	eng := &identityEngine{batch: 1, shape: []int{3, 2, 2}}
	pub := newMemPublisher()
	pub.err = errors.New("store down")
	ch := make(chan types.Job, 2)
	w := New(0, eng, batcher.New(1, 0), pipeline.New(nil, nil), pub, ch)

	ch <- job("lost", 1)
	ch <- job("also-lost", 2)
	close(ch)
	waitDone(t, runWorker(t, w))

	assert.Empty(t, pub.records)
	assert.Equal(t, 2, eng.calls, "worker keeps processing after egress drops")
}
