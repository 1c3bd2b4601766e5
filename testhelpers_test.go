package cml

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cml-go/cml/wheel"
)

// newTestWheel builds a private, inline-dispatch wheel for
// deterministic tests: callbacks run synchronously on whatever
// goroutine calls AdvanceTicks/Advance, and nothing fires until the
// test advances it explicitly.
func newTestWheel(t *testing.T) *wheel.Wheel {
	t.Helper()
	cfg := wheel.DefaultConfig()
	cfg.TickDuration = time.Millisecond
	cfg.DispatchMode = wheel.DispatchInline
	w, err := wheel.New(cfg, nil)
	require.NoError(t, err)
	return w
}
