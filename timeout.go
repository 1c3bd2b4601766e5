package cml

import (
	"sync"
	"time"

	"github.com/cml-go/cml/wheel"
)

// defaultWheel is the singleton timing wheel backing Timeout (spec §5:
// "no global mutable state beyond the singleton timing wheel provided
// by the runtime"). It starts lazily, in realtime (DispatchAsync)
// mode, the first time Timeout (or DefaultWheel) is called.
var (
	defaultWheelOnce sync.Once
	defaultWheelVal  *wheel.Wheel
	defaultLogger    Logger = noopLogger{}
)

// SetLogger installs the Logger DefaultWheel's background advance loop
// reports through — in practice, a recovered timer-callback panic
// (spec §7: timer callback exceptions are isolated, never propagated).
// cml.Logger satisfies wheel.Logger structurally, so no adapter is
// needed; cmllog.Zap is the production implementation. Call this
// before the first Timeout/DefaultWheel use — like the teacher's own
// constructor-injected Logger parameters, it only takes effect at
// construction time, not retroactively on an already-running wheel.
func SetLogger(l Logger) {
	if l == nil {
		l = noopLogger{}
	}
	defaultLogger = l
}

// DefaultWheel returns the process-wide timing wheel that backs
// Timeout. It is created, configured with wheel.DefaultConfig, and
// started (Run) on first use.
func DefaultWheel() *wheel.Wheel {
	defaultWheelOnce.Do(func() {
		w, err := wheel.New(wheel.DefaultConfig(), defaultLogger)
		if err != nil {
			// DefaultConfig is always valid; a failure here means the
			// package itself is broken.
			panic(err)
		}
		w.Run()
		defaultWheelVal = w
	})
	return defaultWheelVal
}

// wheelTimeoutEvent is the Event[struct{}] produced by Timeout/TimeoutOn.
type wheelTimeoutEvent struct {
	w *wheel.Wheel
	d time.Duration
}

// Timeout returns an event that becomes ready, producing the unit
// value, no earlier than d after registration (spec §8 property 5). It
// uses DefaultWheel; to use a private wheel (e.g. for deterministic
// tests driven by Advance), build the event directly with TimeoutOn.
func Timeout(d time.Duration) Event[struct{}] {
	return TimeoutOn(DefaultWheel(), d)
}

// TimeoutOn is Timeout parameterized over an explicit wheel, letting
// tests use a private, manually-advanced wheel instead of the process
// default.
func TimeoutOn(w *wheel.Wheel, d time.Duration) Event[struct{}] {
	return wheelTimeoutEvent{w: w, d: d}
}

func (e wheelTimeoutEvent) Register(pick *Pick[struct{}]) Canceller {
	id, err := e.w.Schedule(e.d, func() {
		pick.TryDecide(struct{}{})
	})
	if err != nil {
		panic(err)
	}
	return func() { e.w.Cancel(id) }
}
