package wheel

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// CronSchedule re-arms a wheel entry from a standard five-field cron
// expression, computing each next fire time with robfig/cron (the
// same parser the ecosystem's scheduler module uses for its recurring
// jobs) rather than a fixed interval. It is the natural extension of
// spec.md's optional ScheduleInterval to calendar-shaped recurrence.
//
// Unlike a plain interval timer, each occurrence is a fresh wheel
// entry with its own TimerId (the delay to the next occurrence is
// rarely uniform, so a single reinserted entry as ScheduleInterval
// uses won't do) — CronSchedule itself, not any one TimerId, is the
// stable handle a caller cancels.
type CronSchedule struct {
	mu        sync.Mutex
	w         *Wheel
	schedule  cron.Schedule
	cb        func()
	id        TimerId
	cancelled bool
}

// ScheduleCron parses expr with the standard cron parser and schedules
// cb to run at every matching time from now, re-arming itself after
// each fire until Cancel is called on the returned *CronSchedule.
func ScheduleCron(w *Wheel, expr string, cb func()) (*CronSchedule, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, err
	}
	cs := &CronSchedule{w: w, schedule: sched, cb: cb}
	if err := cs.arm(time.Now()); err != nil {
		return nil, err
	}
	return cs, nil
}

func (cs *CronSchedule) arm(from time.Time) error {
	next := cs.schedule.Next(from)
	d := time.Until(next)
	if d <= 0 {
		d = cs.w.tick
	}
	id, err := cs.w.Schedule(d, cs.fire)
	if err != nil {
		return err
	}
	cs.mu.Lock()
	cs.id = id
	cancelled := cs.cancelled
	cs.mu.Unlock()
	if cancelled {
		// Cancel ran while this occurrence was being armed.
		cs.w.Cancel(id)
	}
	return nil
}

func (cs *CronSchedule) fire() {
	cs.mu.Lock()
	cancelled := cs.cancelled
	cs.mu.Unlock()
	if cancelled {
		return
	}
	cs.cb()
	// Re-arm for the next occurrence; a failure here (only possible if
	// the wheel has since been stopped) simply ends the recurrence. A
	// Cancel that races this fire is caught inside arm.
	_ = cs.arm(time.Now())
}

// Cancel stops the recurrence: the in-flight wheel entry for the next
// occurrence is cancelled and no further occurrence is armed, even if
// a fire is concurrently in flight. Safe to call more than once.
func (cs *CronSchedule) Cancel() {
	cs.mu.Lock()
	cs.cancelled = true
	id := cs.id
	cs.mu.Unlock()
	cs.w.Cancel(id)
}
