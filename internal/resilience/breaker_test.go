// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-reader/internal/logging"
	"github.com/pdiddy/paper-reader/pkg/types"
)

func quietLogger() logrus.FieldLogger {
	return logging.Discard()
}

func TestExecuteOpensAfterFailures(t *testing.T) {
	b := New(types.BreakerConfig{
		Enabled:      true,
		MinRequests:  2,
		FailureRatio: 0.5,
		OpenTimeout:  time.Hour,
	}, quietLogger())

	errDown := errors.New("service down")
	calls := 0
	fail := func() error {
		calls++
		return errDown
	}

	assert.ErrorIs(t, b.Execute("parser", fail), errDown)
	assert.ErrorIs(t, b.Execute("parser", fail), errDown)

	err := b.Execute("parser", fail)
	require.Error(t, err)
	assert.True(t, IsOpen(err), "expected open-state error, got %v", err)
	assert.Equal(t, 2, calls, "open breaker must not call through")
	assert.Equal(t, "open", b.State("parser"))

	// Other operations keep their own breaker.
	assert.NoError(t, b.Execute("llm", func() error { return nil }))
	assert.Equal(t, "closed", b.State("llm"))
}

func TestExecuteDisabled(t *testing.T) {
	b := New(types.BreakerConfig{Enabled: false, MinRequests: 1}, quietLogger())
	errDown := errors.New("down")

	for i := 0; i < 10; i++ {
		err := b.Execute("parser", func() error { return errDown })
		assert.ErrorIs(t, err, errDown)
		assert.False(t, IsOpen(err))
	}
}

func TestNilBreakersRunUnguarded(t *testing.T) {
	var b *Breakers
	ran := false
	require.NoError(t, b.Execute("x", func() error { ran = true; return nil }))
	assert.True(t, ran)
	assert.Equal(t, "closed", b.State("x"))
}

func TestNormalizeDefaults(t *testing.T) {
	got := normalize(types.BreakerConfig{Enabled: true})
	def := DefaultConfig()
	assert.Equal(t, def.MinRequests, got.MinRequests)
	assert.Equal(t, def.FailureRatio, got.FailureRatio)
	assert.Equal(t, def.OpenTimeout, got.OpenTimeout)
}
