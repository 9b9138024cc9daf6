package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
)

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{
		Name:              "kafka",
		MaxRequests:       1,
		Timeout:           time.Minute,
		FailureThreshold:  2,
		MinRequestsToTrip: 100,
	}, nil)
	fail := func() (any, error) { return nil, errors.New("broker down") }

	_, _ = cb.Execute(context.Background(), fail)
	_, _ = cb.Execute(context.Background(), fail)

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	_, err := cb.Execute(context.Background(), func() (any, error) { return "ok", nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, "open", cb.Status().State)
}
