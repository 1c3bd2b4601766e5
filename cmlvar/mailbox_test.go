package cmlvar

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMailbox_FIFO(t *testing.T) {
	mb := NewMailbox[int]()
	mb.Send(1)
	mb.Send(2)
	mb.Send(3)

	require.Equal(t, 1, mb.Recv())
	require.Equal(t, 2, mb.Recv())
	require.Equal(t, 3, mb.Recv())
}

func TestMailbox_SendNeverBlocksBehindPendingDelivery(t *testing.T) {
	mb := NewMailbox[int]()
	done := make(chan struct{})
	go func() {
		mb.Send(1)
		mb.Send(2)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sends blocked even with no receiver waiting")
	}
	require.Equal(t, 1, mb.Recv())
	require.Equal(t, 2, mb.Recv())
}

func TestMailbox_RecvBlocksUntilSend(t *testing.T) {
	mb := NewMailbox[string]()
	done := make(chan string, 1)
	go func() { done <- mb.Recv() }()

	select {
	case <-done:
		t.Fatal("recv returned before any send")
	case <-time.After(20 * time.Millisecond):
	}

	mb.Send("hello")
	select {
	case v := <-done:
		require.Equal(t, "hello", v)
	case <-time.After(time.Second):
		t.Fatal("recv never unblocked after send")
	}
}

func TestMailbox_ManyProducersPreserveMultiset(t *testing.T) {
	mb := NewMailbox[int]()
	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			mb.Send(i)
		}()
	}
	wg.Wait()

	seen := make(map[int]bool)
	for i := 0; i < n; i++ {
		seen[mb.Recv()] = true
	}
	require.Len(t, seen, n)
}
