// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resilience guards calls to external services with per-operation
// circuit breakers, so a dead parser or LLM endpoint degrades the rest of a
// batch immediately instead of costing a timeout per article.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/pdiddy/paper-reader/pkg/types"
)

// DefaultConfig returns breaker settings suited to a sequential batch:
// trip after half of at least five calls failed, probe again after a minute.
func DefaultConfig() types.BreakerConfig {
	return types.BreakerConfig{
		Enabled:      true,
		MinRequests:  5,
		FailureRatio: 0.5,
		OpenTimeout:  time.Minute,
	}
}

func normalize(cfg types.BreakerConfig) types.BreakerConfig {
	def := DefaultConfig()
	if cfg.MinRequests == 0 {
		cfg.MinRequests = def.MinRequests
	}
	if cfg.FailureRatio <= 0 || cfg.FailureRatio > 1 {
		cfg.FailureRatio = def.FailureRatio
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	return cfg
}

// Breakers holds one circuit breaker per named operation. A nil *Breakers
// runs every call unguarded.
type Breakers struct {
	cfg types.BreakerConfig
	log logrus.FieldLogger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

// New creates a breaker set. Zero-valued thresholds take the defaults.
func New(cfg types.BreakerConfig, log logrus.FieldLogger) *Breakers {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Breakers{
		cfg:      normalize(cfg),
		log:      log,
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

// Execute runs fn through the breaker for operation. When the breaker is
// open fn is not called and the returned error satisfies IsOpen.
func (b *Breakers) Execute(operation string, fn func() error) error {
	if b == nil || !b.cfg.Enabled {
		return fn()
	}
	_, err := b.breaker(operation).Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

// State reports the breaker state for operation ("closed" when unknown).
func (b *Breakers) State(operation string) string {
	if b == nil {
		return gobreaker.StateClosed.String()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := b.breakers[operation]; ok {
		return cb.State().String()
	}
	return gobreaker.StateClosed.String()
}

func (b *Breakers) breaker(operation string) *gobreaker.CircuitBreaker[any] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.breakers[operation]; ok {
		return cb
	}

	settings := gobreaker.Settings{
		Name:        operation,
		MaxRequests: 1,
		Timeout:     b.cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < b.cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= b.cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			// Cancellation says nothing about the remote service.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.log.WithFields(logrus.Fields{
				"operation": name,
				"from":      from.String(),
				"to":        to.String(),
			}).Warn("circuit breaker state change")
		},
	}

	cb := gobreaker.NewCircuitBreaker[any](settings)
	b.breakers[operation] = cb
	return cb
}

// IsOpen reports whether err came from a breaker refusing the call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
