package cml

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// pickState is the lifecycle of a commit cell.
type pickState int32

const (
	pickUndecided pickState = iota
	pickReserving
	pickDecided
)

// reservable is the operation set the channel rendezvous protocol
// (chan.go's matchSend/matchRecv) needs from a pick to run its
// two-sided CAS: reserve, confirm, release, decide, and observe
// decidedness. *Pick[T] satisfies it directly. transformParent also
// satisfies it, adapting an outer *Pick[T2] of a different result
// type so a *Pick[T] standing in for it (see NewTransformPick) forwards
// its own reservation protocol through a value transform instead of
// deciding independently.
type reservable[T any] interface {
	TryReserve() bool
	ConfirmReserve(v T)
	ReleaseReserve()
	TryDecide(v T) bool
	Decided() bool
}

// transformParent lets a *Pick[T] (the inner pick) forward every
// reservation-protocol operation to an outer *Pick[T2] of a different
// result type, translating T to T2 with f at the instant of commit.
// See NewTransformPick.
type transformParent[T, T2 any] struct {
	outer *Pick[T2]
	f     func(T) T2
}

func (p transformParent[T, T2]) TryReserve() bool   { return p.outer.TryReserve() }
func (p transformParent[T, T2]) ConfirmReserve(v T) { p.outer.ConfirmReserve(p.f(v)) }
func (p transformParent[T, T2]) ReleaseReserve()    { p.outer.ReleaseReserve() }
func (p transformParent[T, T2]) TryDecide(v T) bool { return p.outer.TryDecide(p.f(v)) }
func (p transformParent[T, T2]) Decided() bool      { return p.outer.Decided() }

// Pick is the single-winner commit cell shared by every leaf of one
// event tree during one Sync call. At most one transition ever occurs:
// undecided -> decided (directly, via TryDecide) or undecided ->
// reserving -> decided|undecided (via the channel rendezvous
// reservation protocol, TryReserve/ConfirmReserve/ReleaseReserve).
//
// A Pick is created fresh for every synchronization and discarded when
// Sync returns; it must never be reused across syncs (see ErrForeignPick).
//
// A Pick may also be a branch or adapter view over a parent of some
// reservable type:
//
//   - NewBranchPick gives a Pick[T] whose parent is another Pick[T] of
//     the same type. WithNack uses this so a branch can tell, after the
//     outer decision, whether its own forwarded call is what won —
//     without it, two sibling WithNack branches sharing one pick would
//     have no way to know which of them should suppress its nack.
//   - NewTransformPick gives a Pick[T] whose parent is a *Pick[T2] of a
//     different result type, reached through a value transform. Wrap
//     uses this so the inner event it registers (a channel or timer
//     leaf, say) gates its own commit on the *outer* pick succeeding in
//     the same reservation-protocol call, rather than committing
//     unconditionally and forwarding the result after the fact — the
//     two-sided CAS of §4.3 only holds if every participant's confirm
//     is conditioned on its ultimate outer winner, all the way up.
//
// Either way, a non-root Pick never decides independently of its
// parent: it has no state transition of its own, only bookkeeping
// (ownWin, and a local mirror of the decided value for Wait/Value)
// about a decision the parent made.
type Pick[T any] struct {
	id     string
	state  atomic.Int32
	value  T
	done   chan struct{}
	parent reservable[T]
	ownWin atomic.Bool

	// cbMu/onDecide back the nack-waiting plumbing in WithNack/nackLeaf:
	// a task can be blocked in Sync(nack) before the nack pick decides,
	// and needs to learn the instant it does without polling. The mutex
	// is only ever taken by the one winning decider and by whoever
	// installs the callback, never on the CAS fast path, so it never
	// becomes a point of contention between racing leaves.
	cbMu      sync.Mutex
	onDecide  []func(T)
	decideRun bool
}

// NewPick creates a fresh, undecided, root commit cell — the one Sync
// creates per synchronization.
func NewPick[T any]() *Pick[T] {
	return &Pick[T]{
		id:   uuid.New().String(),
		done: make(chan struct{}),
	}
}

// NewBranchPick returns a Pick[T] that forwards every operation to
// parent while privately tracking whether this branch's own call is
// what won the parent. Branch picks never decide independently of
// their parent.
func NewBranchPick[T any](parent *Pick[T]) *Pick[T] {
	return &Pick[T]{
		id:     uuid.New().String(),
		done:   make(chan struct{}),
		parent: parent,
	}
}

// NewTransformPick returns a Pick[T] whose reservation-protocol
// operations forward to outer, an outer pick of a different result
// type T2, translating a T value to T2 with f at the instant of
// commit. Wrap registers the inner event it wraps against a pick built
// this way instead of a free-standing root Pick[T], so the inner
// leaf's own reservation is only ever confirmed if the outer pick's
// commit succeeds in that same call — closing the lost-value window a
// best-effort "decide inner, then forward to outer" scheme leaves open
// against a channel rendezvous (see chan.go's two-sided CAS).
func NewTransformPick[T, T2 any](outer *Pick[T2], f func(T) T2) *Pick[T] {
	return &Pick[T]{
		id:     uuid.New().String(),
		done:   make(chan struct{}),
		parent: transformParent[T, T2]{outer: outer, f: f},
	}
}

// Won reports whether this branch pick's own TryDecide/ConfirmReserve
// call is what caused its parent to decide. Only meaningful for a
// pick created via NewBranchPick.
func (p *Pick[T]) Won() bool { return p.ownWin.Load() }

// ID returns a diagnostic identifier for this pick, useful for logging
// and tracing a synchronization.
func (p *Pick[T]) ID() string { return p.id }

// TryDecide attempts the direct undecided -> decided transition. It is
// used by every leaf that does not need the reservation protocol
// (Always, Timeout, and WithNack's nack plumbing); both sides of a
// channel match use TryReserve/ConfirmReserve instead. Returns
// whether this call won.
func (p *Pick[T]) TryDecide(v T) bool {
	if p.parent != nil {
		if !p.parent.TryDecide(v) {
			return false
		}
		p.ownWin.Store(true)
		p.localFire(v)
		return true
	}
	if !p.state.CompareAndSwap(int32(pickUndecided), int32(pickDecided)) {
		return false
	}
	p.fire(v)
	return true
}

// TryReserve attempts the undecided -> reserving transition. Only the
// caller that wins owns the reservation, and must follow up with
// exactly one of ConfirmReserve or ReleaseReserve. Used by the channel
// rendezvous two-sided CAS (see Chan) to tentatively lock in a receiver
// before the paired sender's commit is known to succeed.
func (p *Pick[T]) TryReserve() bool {
	if p.parent != nil {
		return p.parent.TryReserve()
	}
	return p.state.CompareAndSwap(int32(pickUndecided), int32(pickReserving))
}

// ConfirmReserve completes a reservation this caller won via
// TryReserve, transitioning reserving -> decided and storing v. For a
// branch or transform pick, this forwards to the parent first: if the
// parent's own ConfirmReserve/TryDecide fails (only possible for a
// transform pick forwarding to an outer pick that already decided via
// a sibling), the forward panics just as a bare foreign-pick confirm
// would — a caller that already won TryReserve on this pick is only
// meant to call ConfirmReserve once that reservation is known-good.
// Calling it without owning the reservation is a programmer error and
// panics.
func (p *Pick[T]) ConfirmReserve(v T) {
	if p.parent != nil {
		p.parent.ConfirmReserve(v)
		p.ownWin.Store(true)
		p.localFire(v)
		return
	}
	if !p.state.CompareAndSwap(int32(pickReserving), int32(pickDecided)) {
		panic(ErrForeignPick)
	}
	p.fire(v)
}

// ReleaseReserve abandons a reservation this caller won via TryReserve,
// transitioning reserving -> undecided so another registration may
// match later. Calling it without owning the reservation is a
// programmer error and panics.
func (p *Pick[T]) ReleaseReserve() {
	if p.parent != nil {
		p.parent.ReleaseReserve()
		return
	}
	if !p.state.CompareAndSwap(int32(pickReserving), int32(pickUndecided)) {
		panic(ErrForeignPick)
	}
}

// fire stores the decided value, closes the wakeup channel, and invokes
// every registered OnDecide callback. Called exactly once, by the
// single winner of the state transition. The value write happens under
// cbMu so that a concurrent OnDecide call (the only other reader of
// value before done closes) is properly synchronized with it.
func (p *Pick[T]) fire(v T) {
	p.cbMu.Lock()
	p.value = v
	p.decideRun = true
	cbs := p.onDecide
	p.cbMu.Unlock()
	close(p.done)
	for _, cb := range cbs {
		cb(v)
	}
}

// localFire updates a branch or transform pick's own bookkeeping
// (value/done) to mirror its parent's decision, without attempting any
// state transition of its own (the parent already decided).
func (p *Pick[T]) localFire(v T) {
	p.cbMu.Lock()
	if p.decideRun {
		p.cbMu.Unlock()
		return
	}
	p.value = v
	p.decideRun = true
	cbs := p.onDecide
	p.cbMu.Unlock()
	close(p.done)
	for _, cb := range cbs {
		cb(v)
	}
}

// OnDecide registers f to run with the decided value as soon as this
// pick decides. If the pick has already decided, f runs immediately
// (synchronously, on the calling goroutine). Multiple callbacks may be
// registered (e.g. several nack waiters sharing one nack pick); each
// runs once, in registration order.
func (p *Pick[T]) OnDecide(f func(T)) {
	p.cbMu.Lock()
	if p.decideRun {
		v := p.value
		p.cbMu.Unlock()
		f(v)
		return
	}
	p.onDecide = append(p.onDecide, f)
	p.cbMu.Unlock()
}

// Decided reports, without blocking, whether the pick has reached the
// decided state. A false result is only ever a snapshot: the pick may
// decide concurrently the instant after this call returns.
func (p *Pick[T]) Decided() bool {
	if p.parent != nil {
		return p.parent.Decided()
	}
	return pickState(p.state.Load()) == pickDecided
}

// waitable is satisfied by a same-type parent (NewBranchPick's use):
// when the parent shares this pick's result type, Wait/Value can
// forward to it directly. transformParent never satisfies this (its
// Value is of the outer, differently-typed result), so a transform
// pick always falls back to its own local done/value, populated by
// localFire whenever its own forwarded call is the one that wins.
type waitable[T any] interface {
	Wait()
	Value() T
}

// Wait blocks the calling goroutine until the pick is decided.
func (p *Pick[T]) Wait() {
	if w, ok := p.parent.(waitable[T]); ok {
		w.Wait()
		return
	}
	<-p.done
}

// Value returns the decided value. Calling it before the pick is
// decided is a programmer error and panics; callers should only call
// Value after Wait returns or after Decided reports true.
func (p *Pick[T]) Value() T {
	if w, ok := p.parent.(waitable[T]); ok {
		return w.Value()
	}
	select {
	case <-p.done:
		return p.value
	default:
		panic(ErrPickValueBeforeDecision)
	}
}
