package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_TickRestocksAndReports(t *testing.T) {
	inv := New(5, WithStock(map[Ingredient]int{Base: 0}))
	_, err := inv.ReserveAndConsume(Requirements{Base: 9})
	require.NoError(t, err)
	require.Equal(t, -4, inv.Stock(Base))

	var hooked []Replenishment
	m := NewMonitor(inv, WithRestockHook(func(r Replenishment) { hooked = append(hooked, r) }))

	restocked := m.Tick()
	assert.Equal(t, []Replenishment{{Ingredient: Base, From: -4, To: 5}}, restocked)
	assert.Equal(t, restocked, hooked)
	assert.Equal(t, 5, inv.Stock(Base))

	assert.Empty(t, m.Tick(), "flag is cleared after a pass")
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	inv := New(5)
	m := NewMonitor(inv, WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestMonitor_CoexistsWithReservations(t *testing.T) {
	inv := New(5)
	m := NewMonitor(inv, WithInterval(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := inv.ReserveAndConsume(Requirements{Sauce: 2})
			assert.NoError(t, err)
		}()
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("reservations deadlocked against the monitor")
	}
}
