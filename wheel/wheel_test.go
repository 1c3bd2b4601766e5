package wheel

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newInlineWheel(t *testing.T) *Wheel {
	t.Helper()
	cfg := DefaultConfig()
	cfg.TickDuration = time.Millisecond
	cfg.DispatchMode = DispatchInline
	w, err := New(cfg, nil)
	require.NoError(t, err)
	return w
}

func TestSchedule_RejectsNonPositiveDuration(t *testing.T) {
	w := newInlineWheel(t)
	_, err := w.Schedule(0, func() {})
	require.ErrorIs(t, err, ErrNonPositiveDuration)
	_, err = w.Schedule(-time.Millisecond, func() {})
	require.ErrorIs(t, err, ErrNonPositiveDuration)
}

func TestSchedule_RejectsNilCallback(t *testing.T) {
	w := newInlineWheel(t)
	_, err := w.Schedule(time.Millisecond, nil)
	require.ErrorIs(t, err, ErrNilCallback)
}

func TestAdvance_FiresAtExpectedTick(t *testing.T) {
	w := newInlineWheel(t)
	fired := false
	_, err := w.Schedule(10*time.Millisecond, func() { fired = true })
	require.NoError(t, err)

	w.AdvanceTicks(9)
	require.False(t, fired)
	w.AdvanceTicks(1)
	require.True(t, fired)
}

func TestCancel_PreventsFireAndIsIdempotent(t *testing.T) {
	w := newInlineWheel(t)
	fired := false
	id, err := w.Schedule(5*time.Millisecond, func() { fired = true })
	require.NoError(t, err)

	require.True(t, w.Cancel(id))
	require.False(t, w.Cancel(id)) // already cancelled: idempotent, not an error

	w.AdvanceTicks(10)
	require.False(t, fired)
}

func TestCancel_ReturnsFalseAfterFiring(t *testing.T) {
	w := newInlineWheel(t)
	id, err := w.Schedule(time.Millisecond, func() {})
	require.NoError(t, err)
	w.AdvanceTicks(1)
	require.False(t, w.Cancel(id))
}

func TestInterval_RefiresUntilCancelled(t *testing.T) {
	w := newInlineWheel(t)
	count := 0
	var id TimerId
	var err error
	id, err = w.ScheduleInterval(5*time.Millisecond, func() {
		count++
		if count == 3 {
			w.Cancel(id)
		}
	})
	require.NoError(t, err)

	w.AdvanceTicks(50)
	require.Equal(t, 3, count)
}

// S5 — schedule 1000 timers at durations 1..1000ms; cancel 500..600;
// advance 1200ms; expect 899 fired (1000 minus the 101 cancelled), 101 did not.
func TestWheel_ThousandTimersWithCancellationRange(t *testing.T) {
	w := newInlineWheel(t)
	var mu sync.Mutex
	fired := make(map[int]bool)

	ids := make([]TimerId, 1001)
	for i := 1; i <= 1000; i++ {
		i := i
		id, err := w.Schedule(time.Duration(i)*time.Millisecond, func() {
			mu.Lock()
			fired[i] = true
			mu.Unlock()
		})
		require.NoError(t, err)
		ids[i] = id
	}
	for i := 500; i <= 600; i++ {
		require.True(t, w.Cancel(ids[i]))
	}

	w.AdvanceTicks(1200)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, fired, 899)
	for i := 500; i <= 600; i++ {
		require.False(t, fired[i], "timer %d should have been cancelled", i)
	}
}

func TestWheel_FireOrderIsNonDecreasingExpiration(t *testing.T) {
	w := newInlineWheel(t)
	var mu sync.Mutex
	var order []int

	durations := []int{700, 3, 500, 1, 200, 2}
	for _, d := range durations {
		d := d
		_, err := w.Schedule(time.Duration(d)*time.Millisecond, func() {
			mu.Lock()
			order = append(order, d)
			mu.Unlock()
		})
		require.NoError(t, err)
	}

	w.AdvanceTicks(800)

	mu.Lock()
	defer mu.Unlock()
	require.True(t, sort.IntsAreSorted(order), "fired out of expiration order: %v", order)
	require.Len(t, order, len(durations))
}

// Overflow: an entry whose delay exceeds every level's range still
// fires at the right tick once cascading reaches it.
func TestWheel_OverflowEntryEventuallyFires(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickDuration = time.Millisecond
	cfg.DispatchMode = DispatchInline
	// Small geometry so a big duration is guaranteed to overflow:
	// total range = 2^(2+2) = 16 ticks.
	cfg.LevelSlots = []int{4, 4}
	cfg.LevelBits = []int{2, 2}
	w, err := New(cfg, nil)
	require.NoError(t, err)

	fired := false
	_, err = w.Schedule(50*time.Millisecond, func() { fired = true })
	require.NoError(t, err)
	require.Equal(t, 1, w.Stats().OverflowCount)

	w.AdvanceTicks(49)
	require.False(t, fired)
	w.AdvanceTicks(1)
	require.True(t, fired)
	require.Equal(t, 0, w.Stats().OverflowCount)
}

func TestWheel_PanicInCallbackIsIsolated(t *testing.T) {
	w := newInlineWheel(t)
	ranAfter := false
	_, err := w.Schedule(time.Millisecond, func() { panic("boom") })
	require.NoError(t, err)
	_, err = w.Schedule(time.Millisecond, func() { ranAfter = true })
	require.NoError(t, err)

	require.NotPanics(t, func() { w.AdvanceTicks(1) })
	require.True(t, ranAfter)
}

func TestStats_ReportsPendingCount(t *testing.T) {
	w := newInlineWheel(t)
	_, err := w.Schedule(10*time.Millisecond, func() {})
	require.NoError(t, err)
	_, err = w.Schedule(20*time.Millisecond, func() {})
	require.NoError(t, err)

	s := w.Stats()
	require.Equal(t, 2, s.PendingCount)
}

func TestRun_FiresAgainstRealtime(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickDuration = time.Millisecond
	cfg.DispatchMode = DispatchAsync
	cfg.SleepCap = 10 * time.Millisecond
	w, err := New(cfg, nil)
	require.NoError(t, err)
	w.Run()
	defer func() {
		w.Stop()
		w.Wait()
	}()

	done := make(chan struct{})
	_, err = w.Schedule(20*time.Millisecond, func() { close(done) })
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire against realtime wheel")
	}
}
