package timer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type recorder struct {
	mu       sync.Mutex
	warnings []time.Duration
	expired  int32
}

func (r *recorder) options() []Option {
	return []Option{
		OnWarning(func(d time.Duration) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.warnings = append(r.warnings, d)
		}),
		OnExpire(func() { atomic.AddInt32(&r.expired, 1) }),
	}
}

func (r *recorder) snapshot() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.warnings...)
}

func TestCountdown_Remaining(t *testing.T) {
	c := NewCountdown(start, 15*time.Minute)

	assert.Equal(t, 15*time.Minute, c.Remaining(start))
	assert.Equal(t, 5*time.Minute, c.Remaining(start.Add(10*time.Minute)))
	assert.Equal(t, time.Duration(0), c.Remaining(start.Add(15*time.Minute)))
	assert.Equal(t, time.Duration(0), c.Remaining(start.Add(time.Hour)))
	assert.Equal(t, start.Add(15*time.Minute), c.Deadline())
}

func TestCountdown_WarningsFireOnce(t *testing.T) {
	r := &recorder{}
	c := NewCountdown(start, 15*time.Minute, r.options()...)

	for s := 0; s < 15*60; s += 1 {
		c.Tick(start.Add(time.Duration(s) * time.Second))
	}

	assert.Equal(t, []time.Duration{5 * time.Minute, time.Minute}, r.snapshot())
	assert.Equal(t, int32(0), atomic.LoadInt32(&r.expired))
	assert.False(t, c.Expired())
}

func TestCountdown_ExpiresExactlyOnce(t *testing.T) {
	r := &recorder{}
	c := NewCountdown(start, 15*time.Minute, r.options()...)

	deadline := start.Add(15 * time.Minute)
	for i := 0; i < 10; i++ {
		c.Tick(deadline.Add(time.Duration(i) * time.Second))
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&r.expired))
	assert.True(t, c.Expired())
	assert.Empty(t, r.snapshot(), "no warnings are announced once time is up")
}

func TestCountdown_ConcurrentTicksAfterZero(t *testing.T) {
	r := &recorder{}
	c := NewCountdown(start, time.Minute, r.options()...)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Tick(start.Add(2 * time.Minute))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&r.expired))
}

func TestCountdown_ResumeBelowThresholdsAnnouncesSmallest(t *testing.T) {
	r := &recorder{}
	c := NewCountdown(start, 30*time.Minute, r.options()...)

	c.Tick(start.Add(29*time.Minute + 30*time.Second))
	c.Tick(start.Add(29*time.Minute + 31*time.Second))

	assert.Equal(t, []time.Duration{time.Minute}, r.snapshot())
}

func TestCountdown_StopSuppressesExpiry(t *testing.T) {
	r := &recorder{}
	c := NewCountdown(start, time.Minute, r.options()...)

	c.Stop()
	c.Tick(start.Add(time.Hour))

	assert.Equal(t, int32(0), atomic.LoadInt32(&r.expired))
}

func TestCountdown_RunExpiresImmediatelyWhenStartedInThePast(t *testing.T) {
	r := &recorder{}
	now := start.Add(15 * time.Minute)
	c := NewCountdown(start, 15*time.Minute, append(r.options(), WithClock(func() time.Time { return now }))...)

	assert.Equal(t, time.Duration(0), c.Remaining(now))

	done := make(chan struct{})
	go func() {
		c.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after immediate expiry")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&r.expired))
}

func TestCountdown_RunTicksUntilExpiry(t *testing.T) {
	r := &recorder{}
	var clock int64
	now := func() time.Time {
		return start.Add(time.Duration(atomic.AddInt64(&clock, 1)) * time.Second)
	}
	c := NewCountdown(start, 5*time.Second, append(r.options(),
		WithClock(now),
		WithInterval(time.Millisecond),
		WithWarnings([]time.Duration{2 * time.Second}),
	)...)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c.Run(ctx)

	require.NoError(t, ctx.Err())
	assert.Equal(t, int32(1), atomic.LoadInt32(&r.expired))
	assert.Equal(t, []time.Duration{2 * time.Second}, r.snapshot())
}

func TestCountdown_RunStopsOnCancel(t *testing.T) {
	c := NewCountdown(time.Now(), time.Hour, WithInterval(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
	assert.False(t, c.Expired())
}
