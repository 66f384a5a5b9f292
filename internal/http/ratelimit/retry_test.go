package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryableStatus(t *testing.T) {
	for _, status := range []int{429, 500, 502, 503, 599} {
		assert.True(t, IsRetryableStatus(status), status)
	}
	for _, status := range []int{200, 400, 401, 404, 600} {
		assert.False(t, IsRetryableStatus(status), status)
	}
}

func TestIsIdempotent(t *testing.T) {
	assert.True(t, IsIdempotent(http.MethodGet))
	assert.True(t, IsIdempotent(http.MethodPut))
	assert.False(t, IsIdempotent(http.MethodPost))
	assert.False(t, IsIdempotent(http.MethodPatch))
}

func TestCalculateBackoff(t *testing.T) {
	cfg := Config{InitialBackoffMs: 100, MaxBackoffMs: 1000}

	d := CalculateBackoff(0, cfg)
	assert.GreaterOrEqual(t, d, 100*time.Millisecond)
	assert.LessOrEqual(t, d, 125*time.Millisecond)

	d = CalculateBackoff(2, cfg)
	assert.GreaterOrEqual(t, d, 400*time.Millisecond)
	assert.LessOrEqual(t, d, 500*time.Millisecond)

	// Capped.
	d = CalculateBackoff(10, cfg)
	assert.LessOrEqual(t, d, 1250*time.Millisecond)
}

func TestCalculateRateLimitBackoff(t *testing.T) {
	cfg := Config{InitialBackoffMs: 100, MaxBackoffMs: 10000}

	d := CalculateRateLimitBackoff(0, cfg, "2")
	assert.GreaterOrEqual(t, d, 2*time.Second)
	assert.Less(t, d, 3*time.Second)

	d = CalculateRateLimitBackoff(1, cfg, "soon")
	assert.GreaterOrEqual(t, d, 300*time.Millisecond)
	assert.LessOrEqual(t, d, 375*time.Millisecond)
}

func TestFetchRetryError(t *testing.T) {
	cause := errors.New("connection reset")
	err := &FetchRetryError{Method: "GET", URL: "http://grocy/api/objects/products", Attempts: 4, LastStatus: 503, LastError: cause}
	assert.Equal(t, "failed to GET http://grocy/api/objects/products after 4 attempts (HTTP 503): connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}

func TestNewLimiter(t *testing.T) {
	assert.True(t, NewLimiter(Config{}).Allow())
	l := NewLimiter(Config{RequestsPerSecond: 1, Burst: 0})
	assert.Equal(t, 1, l.Burst())
}
