package reconcile_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"localcity/services/reconcile"
	"localcity/services/reconcile/reconciletest"
)

func TestDebouncerSingleCall(t *testing.T) {
	clock := reconciletest.NewClock()
	d := reconcile.NewDebouncer(50*time.Millisecond, clock)

	called := 0
	d.Debounce(func() { called++ })
	require.True(t, d.Pending())

	clock.Advance(49 * time.Millisecond)
	require.Zero(t, called)

	clock.Advance(time.Millisecond)
	require.Equal(t, 1, called)
	require.False(t, d.Pending())
}

func TestDebouncerRapidCalls(t *testing.T) {
	clock := reconciletest.NewClock()
	d := reconcile.NewDebouncer(50*time.Millisecond, clock)

	called, last := 0, 0
	for i := 1; i <= 10; i++ {
		value := i
		d.Debounce(func() {
			called++
			last = value
		})
		clock.Advance(10 * time.Millisecond)
	}
	clock.Advance(50 * time.Millisecond)

	require.Equal(t, 1, called)
	require.Equal(t, 10, last)
}

func TestDebouncerCancel(t *testing.T) {
	clock := reconciletest.NewClock()
	d := reconcile.NewDebouncer(50*time.Millisecond, clock)

	called := 0
	d.Debounce(func() { called++ })
	d.Cancel()
	clock.Advance(time.Second)

	require.Zero(t, called)
	require.Zero(t, clock.Pending())
}

func TestDebouncerWallClock(t *testing.T) {
	d := reconcile.NewDebouncer(10*time.Millisecond, nil)
	fired := make(chan struct{})
	d.Debounce(func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("debounced call never ran")
	}
}
