package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNowNanos(t *testing.T) {
	// Save the original function and restore after the test
	originalNow := timeNow
	defer func() { timeNow = originalNow }()

	base := processStart
	timeNow = func() time.Time {
		return base.Add(1500 * time.Millisecond)
	}

	assert.Equal(t, int64(1_500_000_000), NowNanos())
}

func TestNowNanosMonotonic(t *testing.T) {
	a := NowNanos()
	b := NowNanos()
	assert.GreaterOrEqual(t, b, a)
	assert.GreaterOrEqual(t, a, int64(0))
}
