// Package cmlvar supplies the two illustrative consumer-layer
// primitives SPEC_FULL.md calls out as supplemented features: MVar (a
// single-slot mutable synchronizing variable) and Mailbox (an
// unbounded, ordered per-task inbox). Both sit strictly on top of the
// cml event API — neither touches a Pick or a Chan's internals — per
// spec.md §9's instruction that auxiliary primitives are consumers of
// the core, not peers of it.
package cmlvar

import "github.com/cml-go/cml"

// MVar is a single-slot synchronizing variable: Put blocks while full,
// Take blocks while empty, exactly the classic CML mvar contract. It
// is built the SML-style way (spec.md §9's "mvar: base vs optimized"
// open question picks the server-loop encoding as canonical here): one
// background goroutine owns the slot and, each iteration, offers
// exactly the one event its current state permits — Recv on an
// internal "put" channel while empty, Send of the held value on an
// internal "take" channel while full — so Put and Take can never both
// succeed against the same state.
type MVar[T any] struct {
	putCh  *cml.Chan[T]
	takeCh *cml.Chan[T]
}

// NewEmptyMVar returns an MVar holding no value; the first Put fills it.
func NewEmptyMVar[T any]() *MVar[T] {
	m := &MVar[T]{putCh: cml.NewChan[T](), takeCh: cml.NewChan[T]()}
	go m.loop()
	return m
}

// NewFullMVar returns an MVar already holding v.
func NewFullMVar[T any](v T) *MVar[T] {
	m := &MVar[T]{putCh: cml.NewChan[T](), takeCh: cml.NewChan[T]()}
	go m.loopFull(v)
	return m
}

func (m *MVar[T]) loop() {
	for {
		v := m.putCh.Recv()
		m.takeCh.Send(v)
	}
}

func (m *MVar[T]) loopFull(v T) {
	m.takeCh.Send(v)
	m.loop()
}

// PutEvt returns an event that succeeds once the MVar is empty,
// filling it with v.
func (m *MVar[T]) PutEvt(v T) cml.Event[struct{}] { return m.putCh.SendEvt(v) }

// TakeEvt returns an event that succeeds once the MVar is full,
// emptying it and producing the held value.
func (m *MVar[T]) TakeEvt() cml.Event[T] { return m.takeCh.RecvEvt() }

// Put is the blocking convenience wrapper: cml.Sync(m.PutEvt(v)).
func (m *MVar[T]) Put(v T) { cml.Sync(m.PutEvt(v)) }

// Take is the blocking convenience wrapper: cml.Sync(m.TakeEvt()).
func (m *MVar[T]) Take() T { return cml.Sync(m.TakeEvt()) }
