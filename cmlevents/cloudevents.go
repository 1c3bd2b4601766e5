// Package cmlevents emits CloudEvents for channel matches and timer
// wheel fires/cancels, grounded on the teacher ecosystem's
// modular.NewCloudEvent / scheduler.EventEmitter pattern. It is
// entirely optional: cml.Chan and wheel.Wheel function identically
// with no emitter attached.
package cmlevents

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/cml-go/cml/wheel"
)

// Matcher is the subset of cml.Chan's surface cmlevents needs to
// attach a hook: Name (diagnostic label) and OnMatch (the hook seam).
// cml.Chan[T] satisfies this for any T without cmlevents importing cml.
type Matcher interface {
	Name() string
	OnMatch(func())
}

// Emitter sends a CloudEvent somewhere (a log sink, a broker producer,
// an in-process bus); EmitEvent matches scheduler.EventEmitter's shape
// so the same sinks used elsewhere in the ecosystem can be reused
// verbatim.
type Emitter interface {
	EmitEvent(ctx context.Context, event cloudevents.Event) error
}

const (
	// EventChannelMatch fires whenever a Chan pairs a sender and a
	// receiver.
	EventChannelMatch = "cml.channel.match.v1"
	// EventTimerFired fires whenever a wheel entry's callback dispatches.
	EventTimerFired = "cml.timer.fired.v1"
	// EventTimerCancelled fires whenever Cancel succeeds.
	EventTimerCancelled = "cml.timer.cancelled.v1"
)

// InstrumentChannel attaches emitter to m: every successful match emits
// an EventChannelMatch CloudEvent carrying the channel's name.
func InstrumentChannel(m Matcher, source string, emitter Emitter) {
	m.OnMatch(func() {
		evt := newEvent(EventChannelMatch, source, map[string]any{
			"channel": m.Name(),
		})
		_ = emitter.EmitEvent(context.Background(), evt)
	})
}

// InstrumentWheel attaches emitter to w: every fire and cancel emits a
// CloudEvent carrying the firing TimerId.
func InstrumentWheel(w *wheel.Wheel, source string, emitter Emitter) {
	w.OnFire(func(id wheel.TimerId) {
		evt := newEvent(EventTimerFired, source, map[string]any{"timer_id": id})
		_ = emitter.EmitEvent(context.Background(), evt)
	})
	w.OnCancel(func(id wheel.TimerId) {
		evt := newEvent(EventTimerCancelled, source, map[string]any{"timer_id": id})
		_ = emitter.EmitEvent(context.Background(), evt)
	})
}

func newEvent(eventType, source string, data any) cloudevents.Event {
	evt := cloudevents.NewEvent()
	evt.SetID(uuid.New().String())
	evt.SetSource(source)
	evt.SetType(eventType)
	evt.SetTime(time.Now())
	evt.SetSpecVersion(cloudevents.VersionV1)
	_ = evt.SetData(cloudevents.ApplicationJSON, data)
	return evt
}
