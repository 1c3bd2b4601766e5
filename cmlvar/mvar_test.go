package cmlvar

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMVar_PutThenTake(t *testing.T) {
	m := NewEmptyMVar[int]()
	m.Put(7)
	require.Equal(t, 7, m.Take())
}

func TestMVar_NewFull(t *testing.T) {
	m := NewFullMVar("seed")
	require.Equal(t, "seed", m.Take())
	m.Put("next")
	require.Equal(t, "next", m.Take())
}

func TestMVar_TakeBlocksUntilPut(t *testing.T) {
	m := NewEmptyMVar[int]()
	done := make(chan int, 1)
	go func() { done <- m.Take() }()

	select {
	case <-done:
		t.Fatal("take returned before any put")
	case <-time.After(20 * time.Millisecond):
	}

	m.Put(9)
	select {
	case v := <-done:
		require.Equal(t, 9, v)
	case <-time.After(time.Second):
		t.Fatal("take never unblocked after put")
	}
}

func TestMVar_PutBlocksWhileFull(t *testing.T) {
	m := NewFullMVar(1)
	done := make(chan struct{}, 1)
	go func() { m.Put(2); done <- struct{}{} }()

	select {
	case <-done:
		t.Fatal("put returned while mvar was still full")
	case <-time.After(20 * time.Millisecond):
	}

	require.Equal(t, 1, m.Take())
	<-done
	require.Equal(t, 2, m.Take())
}

func TestMVar_SerializesManyPutTake(t *testing.T) {
	m := NewEmptyMVar[int]()
	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			m.Put(i)
		}()
	}

	seen := make(map[int]bool)
	var mu sync.Mutex
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			v := m.Take()
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Len(t, seen, n)
}
