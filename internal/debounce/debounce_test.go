package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_CoalescesBurst(t *testing.T) {
	d := New(30 * time.Millisecond)
	var count atomic.Int32

	for i := 0; i < 10; i++ {
		d.Trigger(func() { count.Add(1) })
	}

	assert.Eventually(t, func() bool {
		return count.Load() == 1
	}, time.Second, 5*time.Millisecond, "burst must coalesce into a single execution")
}

func TestDebouncer_LatestFunctionWins(t *testing.T) {
	d := New(20 * time.Millisecond)
	var got atomic.Int32

	d.Trigger(func() { got.Store(1) })
	d.Trigger(func() { got.Store(2) })
	d.Flush()

	assert.Equal(t, int32(2), got.Load())
}

func TestDebouncer_FlushRunsPendingImmediately(t *testing.T) {
	d := New(time.Hour)
	var fired atomic.Bool

	d.Trigger(func() { fired.Store(true) })
	d.Flush()

	assert.True(t, fired.Load())
}

func TestDebouncer_FlushWithoutPendingIsNoop(t *testing.T) {
	d := New(time.Millisecond)
	d.Flush()
}

func TestDebouncer_FlushDoesNotRunTwice(t *testing.T) {
	d := New(10 * time.Millisecond)
	var count atomic.Int32

	d.Trigger(func() { count.Add(1) })
	d.Flush()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), count.Load(), "flushed callback must not fire again on timer")
}

func TestDebouncer_StopDiscardsPending(t *testing.T) {
	d := New(10 * time.Millisecond)
	var fired atomic.Bool

	d.Trigger(func() { fired.Store(true) })
	d.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestDebouncer_TriggerAfterStop(t *testing.T) {
	d := New(5 * time.Millisecond)
	var fired atomic.Bool

	d.Trigger(func() {})
	d.Stop()
	d.Trigger(func() { fired.Store(true) })

	assert.Eventually(t, func() bool {
		return fired.Load()
	}, time.Second, time.Millisecond)
}
