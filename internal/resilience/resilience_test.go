package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTransient(t *testing.T) {
	t.Parallel()

	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(NewTransientError(eris.New("boom"), 503)))
	assert.True(t, IsTransient(eris.New("read tcp: connection reset by peer")))
	assert.False(t, IsTransient(eris.New("record not found")))

	// Quota errors must never be treated as transient.
	qe := NewQuotaError("coresignal", eris.New("credits exhausted"), 429)
	assert.False(t, IsTransient(qe))
	assert.True(t, IsQuota(qe))

	// Wrapped quota errors are still detected.
	assert.True(t, IsQuota(eris.Wrap(qe, "enrich person")))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	t.Parallel()

	for _, code := range []int{408, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "%d", code)
	}
	// 429 signals quota exhaustion, handled by halting the pass.
	for _, code := range []int{200, 400, 404, 429} {
		assert.False(t, IsTransientHTTPStatus(code), "%d", code)
	}
}

func TestDoVal_RetriesTransient(t *testing.T) {
	t.Parallel()

	attempts := 0
	cfg := RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, JitterFraction: 0}

	val, err := DoVal(context.Background(), cfg, func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, NewTransientError(eris.New("flaky"), 503)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.Equal(t, 3, attempts)
}

func TestDo_DoesNotRetryPermanent(t *testing.T) {
	t.Parallel()

	attempts := 0
	cfg := RetryConfig{MaxAttempts: 5, InitialBackoff: time.Millisecond}

	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		return eris.New("constraint violation")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_DoesNotRetryQuota(t *testing.T) {
	t.Parallel()

	attempts := 0
	cfg := RetryConfig{MaxAttempts: 5, InitialBackoff: time.Millisecond}

	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		attempts++
		return NewQuotaError("dropcontact", eris.New("monthly quota reached"), 429)
	})
	require.Error(t, err)
	assert.True(t, IsQuota(err))
	assert.Equal(t, 1, attempts)
}

func TestDo_ContextCancelStopsRetries(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	cfg := RetryConfig{MaxAttempts: 10, InitialBackoff: 50 * time.Millisecond, JitterFraction: 0}

	err := Do(ctx, cfg, func(ctx context.Context) error {
		attempts++
		cancel()
		return NewTransientError(eris.New("flaky"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour})
	boom := func(ctx context.Context) error { return eris.New("boom") }

	require.Error(t, b.Execute(context.Background(), boom))
	assert.Equal(t, BreakerClosed, b.State())

	require.Error(t, b.Execute(context.Background(), boom))
	assert.Equal(t, BreakerOpen, b.State())

	err := b.Execute(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrBreakerOpen)
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})
	b.nowFunc = func() time.Time { return now }

	require.Error(t, b.Execute(context.Background(), func(ctx context.Context) error {
		return eris.New("boom")
	}))
	assert.Equal(t, BreakerOpen, b.State())

	// After the reset timeout a probe is allowed; success closes the breaker.
	now = now.Add(2 * time.Minute)
	assert.Equal(t, BreakerHalfOpen, b.State())
	require.NoError(t, b.Execute(context.Background(), func(ctx context.Context) error { return nil }))
	assert.Equal(t, BreakerClosed, b.State())
}

func TestProviderBreakers_PerProvider(t *testing.T) {
	t.Parallel()

	pb := NewProviderBreakers(DefaultBreakerConfig())
	a := pb.Get("coresignal")
	b := pb.Get("dropcontact")
	assert.NotSame(t, a, b)
	assert.Same(t, a, pb.Get("coresignal"))
}

func TestRetryEntry_Backoff(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	e := RetryEntry{RetryCount: 0, MaxRetries: 3}
	assert.True(t, e.CanRetry())
	assert.Equal(t, now.Add(time.Minute), e.NextBackoff(now, time.Minute, time.Hour))

	e.RetryCount = 2
	assert.Equal(t, now.Add(4*time.Minute), e.NextBackoff(now, time.Minute, time.Hour))

	e.RetryCount = 20 // overflow-safe, capped
	assert.Equal(t, now.Add(time.Hour), e.NextBackoff(now, time.Minute, time.Hour))

	e.RetryCount = 3
	assert.False(t, e.CanRetry())
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "transient", ClassifyError(NewTransientError(eris.New("x"), 500)))
	assert.Equal(t, "permanent", ClassifyError(eris.New("no match found")))
	assert.Equal(t, "permanent", ClassifyError(NewQuotaError("lusha", eris.New("quota"), 429)))
}
