package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestBreaker(cfg Config) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	cb := NewCircuitBreaker(cfg)
	cb.now = clock.Now
	return cb, clock
}

var errBoom = errors.New("boom")

func fail() error    { return errBoom }
func succeed() error { return nil }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(Config{FailureThreshold: 3, Timeout: time.Minute})

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Execute(fail), errBoom)
		assert.Equal(t, StateClosed, cb.GetState())
	}
	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.False(t, called)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(Config{FailureThreshold: 2})

	_ = cb.Execute(fail)
	_ = cb.Execute(succeed)
	_ = cb.Execute(fail)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	var mu sync.Mutex
	var transitions []string
	cb, clock := newTestBreaker(Config{
		Name:             "ai",
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          10 * time.Second,
		OnStateChange: func(name string, from, to State) {
			mu.Lock()
			defer mu.Unlock()
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})

	_ = cb.Execute(fail)
	require.Equal(t, StateOpen, cb.GetState())

	clock.Advance(10 * time.Second)
	assert.Equal(t, StateHalfOpen, cb.GetState())

	require.NoError(t, cb.Execute(succeed))
	assert.Equal(t, StateHalfOpen, cb.GetState())
	require.NoError(t, cb.Execute(succeed))
	assert.Equal(t, StateClosed, cb.GetState())

	assert.Equal(t, []string{
		"ai:closed->open",
		"ai:open->half_open",
		"ai:half_open->closed",
	}, transitions)
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(Config{FailureThreshold: 1, Timeout: time.Second})

	_ = cb.Execute(fail)
	clock.Advance(time.Second)
	_ = cb.Execute(fail)
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestBreakerIgnoresNonFailures(t *testing.T) {
	badRequest := errors.New("bad request")
	cb, _ := newTestBreaker(Config{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return !errors.Is(err, badRequest) },
	})

	assert.ErrorIs(t, cb.Execute(func() error { return badRequest }), badRequest)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestBreakerReset(t *testing.T) {
	cb, _ := newTestBreaker(Config{FailureThreshold: 1})
	_ = cb.Execute(fail)
	require.Equal(t, StateOpen, cb.GetState())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
	assert.NoError(t, cb.Execute(succeed))
}

func TestBreakerIgnoresResultsFromEarlierState(t *testing.T) {
	cb, clock := newTestBreaker(Config{
		FailureThreshold:    1,
		SuccessThreshold:    1,
		Timeout:             time.Second,
		HalfOpenMaxRequests: 1,
	})

	// slow request admitted while closed
	startedSlow, releaseSlow, slowDone := make(chan struct{}), make(chan struct{}), make(chan error, 1)
	go func() {
		slowDone <- cb.Execute(func() error { close(startedSlow); <-releaseSlow; return nil })
	}()
	<-startedSlow

	_ = cb.Execute(fail)
	require.Equal(t, StateOpen, cb.GetState())
	clock.Advance(time.Second)

	// the single half-open trial request
	startedTrial, releaseTrial, trialDone := make(chan struct{}), make(chan struct{}), make(chan error, 1)
	go func() {
		trialDone <- cb.Execute(func() error { close(startedTrial); <-releaseTrial; return nil })
	}()
	<-startedTrial

	close(releaseSlow)
	require.NoError(t, <-slowDone)
	assert.Equal(t, StateHalfOpen, cb.GetState(), "late success does not close the breaker")

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen, "half-open limit still holds")
	assert.False(t, called)

	close(releaseTrial)
	require.NoError(t, <-trialDone)
	assert.Equal(t, StateClosed, cb.GetState())
}
