package batcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afeldman/ai-runtime/internal/types"
)

func job(id string) types.Job {
	return types.Job{ID: id, Input: types.Zeros(types.DTypeF32, []int{3, 2, 2}), ReplyKey: "results:" + id}
}

func TestSingleJobFlushByTimeout(t *testing.T) {
	ch := make(chan types.Job, 8)
	b := New(4, 50*time.Millisecond)

	ch <- job("job-0")
	start := time.Now()
	batch, ok := b.Collect(ch)
	elapsed := time.Since(start)

	require.True(t, ok)
	assert.Equal(t, 1, batch.Real)
	require.Len(t, batch.Jobs, 4)
	assert.False(t, batch.Jobs[0].IsDummy)
	for _, j := range batch.Jobs[1:] {
		assert.True(t, j.IsDummy)
	}
	assert.GreaterOrEqual(t, elapsed, 45*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestFullBatchFlushBySize(t *testing.T) {
	ch := make(chan types.Job, 8)
	b := New(4, time.Second)

	for i := 0; i < 4; i++ {
		ch <- job(string(rune('a' + i)))
	}
	start := time.Now()
	batch, ok := b.Collect(ch)
	elapsed := time.Since(start)

	require.True(t, ok)
	assert.Equal(t, 4, batch.Real)
	assert.Less(t, elapsed, 500*time.Millisecond, "full batch must not wait out the timer")
	for i, j := range batch.Jobs {
		assert.Equal(t, string(rune('a'+i)), j.ID, "order received must be preserved")
	}
}

func TestZeroWaitFlushesEveryJobAlone(t *testing.T) {
	ch := make(chan types.Job, 8)
	b := New(4, 0)

	ch <- job("j0")
	ch <- job("j1")

	batch, ok := b.Collect(ch)
	require.True(t, ok)
	assert.Equal(t, 1, batch.Real)
	assert.Equal(t, "j0", batch.Jobs[0].ID)

	batch, ok = b.Collect(ch)
	require.True(t, ok)
	assert.Equal(t, 1, batch.Real)
	assert.Equal(t, "j1", batch.Jobs[0].ID)
}

func TestClosedChannelFlushesPartialThenExhausts(t *testing.T) {
	ch := make(chan types.Job, 8)
	b := New(4, 200*time.Millisecond)

	ch <- job("j0")
	ch <- job("j1")
	ch <- job("j2")
	close(ch)

	batch, ok := b.Collect(ch)
	require.True(t, ok)
	assert.Equal(t, 3, batch.Real)
	require.Len(t, batch.Jobs, 4)
	assert.True(t, batch.Jobs[3].IsDummy)

	_, ok = b.Collect(ch)
	assert.False(t, ok)
}

func TestClosedEmptyChannelExitsImmediately(t *testing.T) {
	ch := make(chan types.Job)
	close(ch)
	b := New(4, time.Second)

	start := time.Now()
	_, ok := b.Collect(ch)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestBatchInputStacked(t *testing.T) {
	ch := make(chan types.Job, 2)
	b := New(2, 0)

	j := job("j0")
	for i := range j.Input.Data {
		j.Input.Data[i] = 0xAB
	}
	ch <- j

	batch, ok := b.Collect(ch)
	require.True(t, ok)
	assert.Equal(t, []int{2, 3, 2, 2}, batch.Input.Shape)
	assert.Equal(t, byte(0xAB), batch.Input.Data[0])
	// dummy row is zero-filled
	assert.Equal(t, byte(0), batch.Input.Data[batch.Input.RowSize()])
}
