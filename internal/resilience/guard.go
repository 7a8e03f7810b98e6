// Package resilience wraps downstream calls with retry and a circuit
// breaker. Retries sit outside the breaker, so every attempt counts toward
// the failure ratio and no retry fires while the circuit is open.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragstore/internal/domain"
)

// Policy configures retry and breaker behavior for one dependency.
type Policy struct {
	MaxAttempts      int
	InitialInterval  time.Duration
	MaxInterval      time.Duration
	FailureRatio     float64
	MinRequests      uint32
	Window           time.Duration
	Cooldown         time.Duration
	HalfOpenMaxCalls uint32
}

// DefaultPolicy returns conservative defaults for remote embedding APIs.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:      3,
		InitialInterval:  200 * time.Millisecond,
		MaxInterval:      2 * time.Second,
		FailureRatio:     0.5,
		MinRequests:      5,
		Window:           time.Minute,
		Cooldown:         30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// Guard protects calls to one named downstream dependency.
type Guard struct {
	name    string
	policy  Policy
	breaker *gobreaker.CircuitBreaker[any]
	logger  *zap.Logger
}

// NewGuard creates a guard. stateGauge (labels: name) tracks breaker state
// transitions; nil disables the metric.
func NewGuard(name string, p Policy, stateGauge *prometheus.GaugeVec, logger *zap.Logger) *Guard {
	g := &Guard{name: name, policy: p, logger: logger}

	g.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: p.HalfOpenMaxCalls,
		Interval:    p.Window, // closed-state counts reset each window
		Timeout:     p.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < p.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= p.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			if stateGauge != nil {
				stateGauge.WithLabelValues(name).Set(stateValue(to))
			}
		},
	})

	return g
}

// State returns the current breaker state.
func (g *Guard) State() gobreaker.State {
	return g.breaker.State()
}

// Do runs fn under the guard. Transient errors are retried with
// exponential backoff up to MaxAttempts total attempts. Open-circuit
// rejections and non-retryable errors stop the retry loop immediately.
func Do[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T

	op := func() error {
		res, err := g.breaker.Execute(func() (any, error) {
			return fn(ctx)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(fmt.Errorf("%s: %w", g.name, domain.ErrCircuitOpen))
			}
			if isPermanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = res.(T)
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.policy.InitialInterval
	bo.MaxInterval = g.policy.MaxInterval
	bo.MaxElapsedTime = 0 // attempts bound the loop, not wall time

	retries := uint64(0)
	if g.policy.MaxAttempts > 1 {
		retries = uint64(g.policy.MaxAttempts - 1)
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, retries), ctx))
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// isPermanent reports errors that retrying cannot fix. Deadline and
// cancellation errors from an attempt stay retryable; the outer request
// context bounds the retry loop via backoff.WithContext.
func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrInvalidRequest) ||
		errors.Is(err, domain.ErrVectorDimMismatch)
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
