package engine

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// BreakerConfig controls the circuit breaker around the model resource.
// Failures == 0 disables tripping.
type BreakerConfig struct {
	Failures uint32
	OpenFor  time.Duration
}

func newBreaker(cfg BreakerConfig, log zerolog.Logger) *gobreaker.CircuitBreaker {
	openFor := cfg.OpenFor
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "model",
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return cfg.Failures > 0 && c.ConsecutiveFailures >= cfg.Failures
		},
		// A consumer walking away is not a resource failure.
		IsSuccessful: func(err error) bool {
			return err == nil || isCancellation(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})
}

func isBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
