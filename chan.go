package cml

import (
	"sync"

	"github.com/google/uuid"
)

// sendOffer is one entry in a channel's senders queue: a value waiting
// to be delivered, plus the pick that must commit for the delivery to
// count.
type sendOffer[T any] struct {
	id    string
	value T
	pick  *Pick[struct{}]
}

// recvOffer is one entry in a channel's receivers queue.
type recvOffer[T any] struct {
	id   string
	pick *Pick[T]
}

// Chan is a CML channel: a rendezvous point with no internal buffer.
// A value only ever moves from a Send to a Recv when both sides commit
// to the same match; there is no value-dependent filtering; any Send
// matches any Recv on the same channel.
//
// Two wait queues (senders, receivers) are protected by one mutex. The
// hold time is bounded: a queue scan plus at most two pick operations
// per candidate match (see matchSend/matchRecv), never a blocking call.
type Chan[T any] struct {
	mu   sync.Mutex
	send []*sendOffer[T]
	recv []*recvOffer[T]

	onMatch func()
	name    string
}

// NewChan creates an unbuffered CML channel.
func NewChan[T any]() *Chan[T] {
	return &Chan[T]{}
}

// Named attaches a diagnostic name to c, returned by Name and used by
// an attached emitter (see cmlevents.InstrumentChannel) to label CloudEvents.
func (c *Chan[T]) Named(name string) *Chan[T] {
	c.name = name
	return c
}

// Name returns the diagnostic name set by Named, or "" if none.
func (c *Chan[T]) Name() string { return c.name }

// OnMatch installs a hook invoked every time a send/receive pair is
// matched. The hook runs on the matching goroutine while the channel
// lock is still held. It exists so an optional
// observer (see cmlevents.InstrumentChannel) can emit a notification without
// the channel's hot path importing any observability package directly.
func (c *Chan[T]) OnMatch(f func()) { c.onMatch = f }

func (c *Chan[T]) fireMatch() {
	if c.onMatch != nil {
		c.onMatch()
	}
}

// matchSend attempts, under the channel lock, to pair pick (a sender
// offering v) with some queued receiver. It implements the reservation
// protocol of spec §4.3(a): the receiver is reserved first and the
// sender second; only once both reservations succeed are they
// confirmed together, so a receiver is never handed a value the
// sender fails to deliver, and a sender is never told it delivered a
// value no receiver actually took. Returns true iff a match was made.
//
// Receivers found already decided (stale, from a foreign win) are
// swept out of the queue as the scan passes over them. A receiver
// merely *reserving* (being matched concurrently against some other
// channel, via a pick shared across a Choose) is neither decided nor
// stale: it is left in place, untouched, and the scan moves on to the
// next candidate — removing it here would permanently disconnect a
// still-live offer from this channel the moment it happened to be
// mid-match elsewhere.
func (c *Chan[T]) matchSend(pick *Pick[struct{}], v T) bool {
	i := 0
	for i < len(c.recv) {
		ro := c.recv[i]
		if ro.pick.Decided() {
			c.recv = append(c.recv[:i], c.recv[i+1:]...)
			continue
		}
		if !ro.pick.TryReserve() {
			if ro.pick.Decided() {
				// Decided while we were racing to reserve it: stale, sweep.
				c.recv = append(c.recv[:i], c.recv[i+1:]...)
				continue
			}
			// Reserving elsewhere right now, not decided: it may yet
			// release and become matchable again. Skip past it without
			// removing it.
			i++
			continue
		}
		if !pick.TryReserve() {
			// Our own sender pick already decided elsewhere (another
			// branch of this sender's own Choose won). Undo the
			// receiver's reservation and stop: this pick cannot match
			// anyone else either.
			ro.pick.ReleaseReserve()
			return false
		}
		ro.pick.ConfirmReserve(v)
		pick.ConfirmReserve(struct{}{})
		c.recv = append(c.recv[:i], c.recv[i+1:]...)
		c.fireMatch()
		return true
	}
	return false
}

// matchRecv is matchSend's mirror: pick is the receiver, scanning the
// senders queue. The receiver is still reserved before the sender, to
// keep the reservation order identical regardless of which side
// initiates the match. See matchSend's comment on why a merely
// reserving (not decided) sender is skipped rather than swept.
func (c *Chan[T]) matchRecv(pick *Pick[T]) (T, bool) {
	var zero T
	i := 0
	for i < len(c.send) {
		so := c.send[i]
		if so.pick.Decided() {
			c.send = append(c.send[:i], c.send[i+1:]...)
			continue
		}
		if !pick.TryReserve() {
			// This receiver already decided elsewhere; nothing left to do.
			return zero, false
		}
		if !so.pick.TryReserve() {
			// Lost the race to reserve this sender; release our own
			// reservation for the next try.
			pick.ReleaseReserve()
			if so.pick.Decided() {
				// Decided while we were racing to reserve it: stale, sweep.
				c.send = append(c.send[:i], c.send[i+1:]...)
				continue
			}
			// Reserving elsewhere right now, not decided: skip past it
			// without removing it.
			i++
			continue
		}
		pick.ConfirmReserve(so.value)
		so.pick.ConfirmReserve(struct{}{})
		c.send = append(c.send[:i], c.send[i+1:]...)
		c.fireMatch()
		return so.value, true
	}
	return zero, false
}

// sendEvent is the Event[struct{}] produced by Chan.SendEvt.
type sendEvent[T any] struct {
	ch *Chan[T]
	v  T
}

// SendEvt returns an event that offers to deliver v on c. Synchronizing
// on it produces the unit value once some receiver commits to the
// match.
func (c *Chan[T]) SendEvt(v T) Event[struct{}] {
	return sendEvent[T]{ch: c, v: v}
}

func (e sendEvent[T]) Register(pick *Pick[struct{}]) Canceller {
	c := e.ch
	c.mu.Lock()
	if c.matchSend(pick, e.v) {
		c.mu.Unlock()
		return noopCanceller
	}
	offer := &sendOffer[T]{id: uuid.New().String(), value: e.v, pick: pick}
	c.send = append(c.send, offer)
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		for i, o := range c.send {
			if o == offer {
				c.send = append(c.send[:i], c.send[i+1:]...)
				break
			}
		}
		c.mu.Unlock()
	}
}

// recvEvent is the Event[T] produced by Chan.RecvEvt.
type recvEvent[T any] struct{ ch *Chan[T] }

// RecvEvt returns an event that offers to receive a value from c.
// Synchronizing on it produces the delivered value once some sender
// commits to the match.
func (c *Chan[T]) RecvEvt() Event[T] {
	return recvEvent[T]{ch: c}
}

func (e recvEvent[T]) Register(pick *Pick[T]) Canceller {
	c := e.ch
	c.mu.Lock()
	if _, ok := c.matchRecv(pick); ok {
		c.mu.Unlock()
		return noopCanceller
	}
	offer := &recvOffer[T]{id: uuid.New().String(), pick: pick}
	c.recv = append(c.recv, offer)
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		for i, o := range c.recv {
			if o == offer {
				c.recv = append(c.recv[:i], c.recv[i+1:]...)
				break
			}
		}
		c.mu.Unlock()
	}
}

// SendPoll attempts one non-blocking round of rendezvous: if a receiver
// is already waiting, the value is delivered immediately and SendPoll
// returns true; otherwise it returns false without enqueueing anything.
func (c *Chan[T]) SendPoll(v T) bool {
	pick := NewPick[struct{}]()
	c.mu.Lock()
	ok := c.matchSend(pick, v)
	c.mu.Unlock()
	return ok
}

// RecvPoll attempts one non-blocking round of rendezvous: if a sender
// is already waiting, its value is returned immediately with ok=true;
// otherwise ok is false and nothing is enqueued.
func (c *Chan[T]) RecvPoll() (value T, ok bool) {
	pick := NewPick[T]()
	c.mu.Lock()
	value, ok = c.matchRecv(pick)
	c.mu.Unlock()
	return value, ok
}

// Send is a blocking convenience wrapper: Sync(c.SendEvt(v)).
func (c *Chan[T]) Send(v T) { Sync(c.SendEvt(v)) }

// Recv is a blocking convenience wrapper: Sync(c.RecvEvt()).
func (c *Chan[T]) Recv() T { return Sync(c.RecvEvt()) }

// Stats reports the current queue depths, for tests and diagnostics
// (see spec §6's stats taxonomy).
func (c *Chan[T]) Stats() (sendQueue, recvQueue int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.send), len(c.recv)
}
