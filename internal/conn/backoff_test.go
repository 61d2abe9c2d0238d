package conn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelayGrowth(t *testing.T) {
	base := 2 * time.Second
	max := 30 * time.Second

	want := []time.Duration{
		4 * time.Second,  // attempt 1
		8 * time.Second,  // attempt 2
		16 * time.Second, // attempt 3
		30 * time.Second, // attempt 4, capped
		30 * time.Second, // attempt 5, capped
	}
	prev := time.Duration(0)
	for i, expected := range want {
		attempt := i + 1
		got := backoffDelay(base, max, attempt)
		assert.Equal(t, expected, got, "attempt %d", attempt)
		assert.GreaterOrEqual(t, got, prev, "delay must be non-decreasing")
		prev = got
	}
}

func TestBackoffDelayEdgeCases(t *testing.T) {
	assert.Equal(t, time.Second, backoffDelay(time.Second, time.Minute, 0))
	assert.Equal(t, time.Second, backoffDelay(time.Second, time.Minute, -3))
	// Huge attempt counts must not overflow past the cap.
	assert.Equal(t, time.Minute, backoffDelay(time.Second, time.Minute, 62))
	assert.Equal(t, time.Minute, backoffDelay(time.Second, time.Minute, 10_000))
}
