package cml

import "time"

// Sync blocks the calling goroutine until exactly one leaf of evt
// commits, then returns that leaf's value. It is the only operation in
// the package, besides Pick.Wait, that may suspend the caller (spec
// §5): registration, commit attempts, and cancellation never block.
//
// The canceller returned by Register is invoked exactly once, after
// the decision, regardless of which leaf won — cancelling the winner
// is always safe because every Canceller is idempotent and a winning
// leaf has nothing left to undo (its one registered offer is already
// consumed by the match, or never existed for Always/Timeout/Guard's
// non-channel leaves).
func Sync[T any](evt Event[T]) T {
	pick := NewPick[T]()
	cancel := evt.Register(pick)
	pick.Wait()
	cancel()
	return pick.Value()
}

// Poll attempts registration and an immediate decision without
// blocking. If the pick decided synchronously during Register (an
// Always leaf, an immediately-ready channel match, an already-fired
// Guard/Wrap chain), Poll returns the value and true. Otherwise it
// cancels the registration — undoing any queue entry or timer the
// attempt left behind — and returns the zero value and false.
func Poll[T any](evt Event[T]) (value T, ok bool) {
	pick := NewPick[T]()
	cancel := evt.Register(pick)
	if pick.Decided() {
		cancel()
		return pick.Value(), true
	}
	cancel()
	return value, false
}

// SyncTimeout is the universal CML convenience that races evt against
// a plain timeout of d, producing ok=false if the timeout wins. It is
// equivalent to:
//
//	Sync(Choose(Wrap(evt, func(v T) (T, bool) { return v, true }), ...))
//
// folded into one call, matching the `timeOutEvt`-style helper every
// CML-descended library offers alongside bare sync.
func SyncTimeout[T any](evt Event[T], d time.Duration) (value T, ok bool) {
	type result struct {
		v  T
		ok bool
	}
	r := Sync(Choose[result](
		Wrap(evt, func(v T) result { return result{v: v, ok: true} }),
		Wrap(Timeout(d), func(struct{}) result { return result{ok: false} }),
	))
	return r.v, r.ok
}
