package circuit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/ivcrush/internal/config"
)

var (
	errBackend = errors.New("connection refused")
	errMiss    = errors.New("miss")
)

func testCircuit() config.CircuitConfig {
	return config.CircuitConfig{FailureThreshold: 2, MaxRequests: 1, OpenTimeout: 50 * time.Millisecond}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	var states []string
	b := New("redis", testCircuit(), func(_ string, state string) {
		states = append(states, state)
	})

	assert.ErrorIs(t, b.Call(func() error { return errBackend }), errBackend)
	assert.Equal(t, "closed", b.State())
	assert.ErrorIs(t, b.Call(func() error { return errBackend }), errBackend)
	assert.Equal(t, "open", b.State())

	called := false
	err := b.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, []string{"open"}, states)
}

func TestBreaker_RecoversAfterTimeout(t *testing.T) {
	b := New("postgres", testCircuit(), nil)
	_ = b.Call(func() error { return errBackend })
	_ = b.Call(func() error { return errBackend })
	require.Equal(t, "open", b.State())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, "half-open", b.State())
	require.NoError(t, b.Call(func() error { return nil }))
	assert.Equal(t, "closed", b.State())
}

func TestBreaker_IgnoredErrors(t *testing.T) {
	b := New("redis", testCircuit(), nil, errMiss)
	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, b.Call(func() error { return errMiss }), errMiss)
	}
	assert.Equal(t, "closed", b.State())
	assert.Equal(t, "redis", b.Name())
}
