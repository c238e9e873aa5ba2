package uplink

import (
	"sync"
	"time"

	"github.com/lukaszraczylo/uplink/pkg/metrics"
	"github.com/rs/zerolog/log"
)

// healthTracker is the per-uplink circuit breaker. It is the only mutable
// state on an uplink client. A mutex serialises transitions so the offline /
// back-online logs are ordered with the state change.
type healthTracker struct {
	mu              sync.Mutex
	name            string
	maxFails        int
	failTimeout     time.Duration
	failedRequests  int
	lastRequestTime time.Time // zero means no request issued yet
	now             func() time.Time
}

func newHealthTracker(name string, maxFails int, failTimeout time.Duration) *healthTracker {
	return &healthTracker{
		name:        name,
		maxFails:    maxFails,
		failTimeout: failTimeout,
		now:         time.Now,
	}
}

// isOffline reports whether the breaker is open: the failure count reached
// max_fails and the last request was within fail_timeout. Once the window
// elapses a request is allowed through again (half-open behaviour).
func (h *healthTracker) isOffline() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.offlineLocked()
}

func (h *healthTracker) offlineLocked() bool {
	if h.failedRequests < h.maxFails {
		return false
	}
	if h.lastRequestTime.IsZero() {
		return false
	}
	return h.now().Sub(h.lastRequestTime) < h.failTimeout
}

// markRequest stamps lastRequestTime. Called whenever a request is issued.
func (h *healthTracker) markRequest() {
	h.mu.Lock()
	h.lastRequestTime = h.now()
	h.mu.Unlock()
}

// recordSuccess resets the failure counter. The back-online transition is
// logged only when the counter had reached max_fails.
func (h *healthTracker) recordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.failedRequests >= h.maxFails {
		log.Warn().
			Str("uplink", h.name).
			Int("failed_requests", h.failedRequests).
			Msg("Uplink is back online")
	}
	h.failedRequests = 0
	metrics.UpdateHealth(h.name, h.offlineLocked(), h.failedRequests)
}

// recordFailure increments the failure counter. The offline transition is
// logged exactly once, when the counter first reaches max_fails.
func (h *healthTracker) recordFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.failedRequests++
	if h.failedRequests == h.maxFails {
		log.Warn().
			Str("uplink", h.name).
			Int("max_fails", h.maxFails).
			Dur("fail_timeout", h.failTimeout).
			Msg("Uplink is offline")
	}
	metrics.UpdateHealth(h.name, h.offlineLocked(), h.failedRequests)
}

// snapshot returns the current counters for introspection
func (h *healthTracker) snapshot() (failedRequests int, lastRequestTime time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.failedRequests, h.lastRequestTime
}
