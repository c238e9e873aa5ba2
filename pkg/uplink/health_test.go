package uplink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives the health tracker through simulated time
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestTracker(maxFails int, failTimeout time.Duration) (*healthTracker, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	h := newHealthTracker("test", maxFails, failTimeout)
	h.now = func() time.Time { return clock.now }
	return h, clock
}

// TestHealthTrackerTrip tests that the breaker opens after max_fails
// consecutive failures within the fail window
func TestHealthTrackerTrip(t *testing.T) {
	h, _ := newTestTracker(2, time.Minute)

	assert.False(t, h.isOffline(), "fresh tracker should be online")

	h.markRequest()
	h.recordFailure()
	assert.False(t, h.isOffline(), "one failure below max_fails stays online")

	h.markRequest()
	h.recordFailure()
	assert.True(t, h.isOffline(), "reaching max_fails within the window trips the breaker")
}

// TestHealthTrackerHeals tests half-open behaviour after fail_timeout
func TestHealthTrackerHeals(t *testing.T) {
	h, clock := newTestTracker(2, time.Minute)

	h.markRequest()
	h.recordFailure()
	h.markRequest()
	h.recordFailure()
	require.True(t, h.isOffline())

	// Window elapses: the next preflight is allowed through
	clock.advance(61 * time.Second)
	assert.False(t, h.isOffline(), "breaker half-opens after fail_timeout")

	// A probe failure refreshes the window and keeps the breaker open
	h.markRequest()
	h.recordFailure()
	assert.True(t, h.isOffline(), "failure in half-open state re-trips")

	failed, _ := h.snapshot()
	assert.GreaterOrEqual(t, failed, 2)

	// A probe success resets the counter entirely
	clock.advance(61 * time.Second)
	h.markRequest()
	h.recordSuccess()
	assert.False(t, h.isOffline())

	failed, _ = h.snapshot()
	assert.Equal(t, 0, failed)
}

// TestHealthTrackerNoRequestsYet tests that the breaker never opens before
// any request was issued
func TestHealthTrackerNoRequestsYet(t *testing.T) {
	h, _ := newTestTracker(1, time.Minute)

	// Failure without a stamped request time stays online
	h.recordFailure()
	assert.False(t, h.isOffline())
}

// TestHealthTrackerConcurrentFailures tests that racing failures produce a
// consistent count
func TestHealthTrackerConcurrentFailures(t *testing.T) {
	h, _ := newTestTracker(5, time.Minute)

	const workers = 20
	done := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		go func() {
			h.markRequest()
			h.recordFailure()
			done <- struct{}{}
		}()
	}
	for i := 0; i < workers; i++ {
		<-done
	}

	failed, last := h.snapshot()
	assert.Equal(t, workers, failed)
	assert.False(t, last.IsZero())
	assert.True(t, h.isOffline())
}
