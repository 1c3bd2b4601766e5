package cmlvar

import "github.com/cml-go/cml"

// Mailbox is an unbounded, ordered per-task inbox: values sent arrive
// in FIFO order to whichever receiver synchronizes next. This is the
// mailbox-server encoding — one of several mailbox variants spec.md's
// open questions mention as coexisting in the source (basic, bounded,
// lock-free); the server-loop form is picked as canonical here because
// it is built entirely out of existing cml primitives (Chan, Choose,
// Wrap) with no new synchronization state of its own. A background
// goroutine holds the pending queue and, whenever it is non-empty,
// races a "deliver the head" leaf against an "accept a new value"
// leaf, so a send never blocks behind a pending delivery.
type Mailbox[T any] struct {
	inCh  *cml.Chan[T]
	outCh *cml.Chan[T]
}

// NewMailbox returns an empty mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	mb := &Mailbox[T]{inCh: cml.NewChan[T](), outCh: cml.NewChan[T]()}
	go mb.loop()
	return mb
}

type mailboxEvent[T any] struct {
	delivered bool
	value     T
}

func (mb *Mailbox[T]) loop() {
	var queue []T
	for {
		if len(queue) == 0 {
			queue = append(queue, mb.inCh.Recv())
			continue
		}
		head := queue[0]
		result := cml.Sync(cml.Choose[mailboxEvent[T]](
			cml.Wrap(mb.outCh.SendEvt(head), func(struct{}) mailboxEvent[T] {
				return mailboxEvent[T]{delivered: true}
			}),
			cml.Wrap(mb.inCh.RecvEvt(), func(v T) mailboxEvent[T] {
				return mailboxEvent[T]{value: v}
			}),
		))
		if result.delivered {
			queue = queue[1:]
		} else {
			queue = append(queue, result.value)
		}
	}
}

// SendEvt returns an event that enqueues v for eventual delivery. A
// send always succeeds as soon as some receiver matches it or the
// mailbox's loop goroutine accepts it into the queue; it never blocks
// behind an already-queued value.
func (mb *Mailbox[T]) SendEvt(v T) cml.Event[struct{}] { return mb.inCh.SendEvt(v) }

// RecvEvt returns an event that succeeds with the oldest queued value
// once the loop goroutine next offers it.
func (mb *Mailbox[T]) RecvEvt() cml.Event[T] { return mb.outCh.RecvEvt() }

// Send is the blocking convenience wrapper: cml.Sync(mb.SendEvt(v)).
func (mb *Mailbox[T]) Send(v T) { cml.Sync(mb.SendEvt(v)) }

// Recv is the blocking convenience wrapper: cml.Sync(mb.RecvEvt()).
func (mb *Mailbox[T]) Recv() T { return cml.Sync(mb.RecvEvt()) }
