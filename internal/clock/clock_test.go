package clock

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

func TestFake_AdvanceFiresInOrder(t *testing.T) {
	c := NewFake(start)
	var order []string
	c.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	c.AfterFunc(time.Second, func() { order = append(order, "a") })
	c.AfterFunc(5*time.Second, func() { order = append(order, "late") })

	c.Advance(3 * time.Second)

	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, start.Add(3*time.Second), c.Now())
	assert.Equal(t, 1, c.Pending())
}

func TestFake_CallbackSeesDeadline(t *testing.T) {
	c := NewFake(start)
	var firedAt time.Time
	c.AfterFunc(time.Second, func() { firedAt = c.Now() })

	c.Advance(time.Minute)

	assert.Equal(t, start.Add(time.Second), firedAt)
}

func TestFake_Stop(t *testing.T) {
	c := NewFake(start)
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	c.Advance(time.Hour)
	assert.False(t, fired)
}

func TestFake_RearmInsideWindow(t *testing.T) {
	c := NewFake(start)
	var count int
	var tick func()
	tick = func() {
		count++
		c.AfterFunc(10*time.Second, tick)
	}
	c.AfterFunc(10*time.Second, tick)

	c.Advance(35 * time.Second)

	assert.Equal(t, 3, count)
}

func TestTimers_ScheduleReplacesKey(t *testing.T) {
	c := NewFake(start)
	timers := NewTimers(c)
	var hits []string

	timers.Schedule("sync", time.Second, func() { hits = append(hits, "first") })
	timers.Schedule("sync", 3*time.Second, func() { hits = append(hits, "second") })

	c.Advance(2 * time.Second)
	assert.Empty(t, hits)
	assert.True(t, timers.Has("sync"))

	c.Advance(2 * time.Second)
	assert.Equal(t, []string{"second"}, hits)
	assert.False(t, timers.Has("sync"))
	assert.Equal(t, 0, c.Pending())
}

func TestTimers_CancelAndPrefix(t *testing.T) {
	c := NewFake(start)
	timers := NewTimers(c)
	var fired atomic.Int32

	timers.Schedule("reminder:a", time.Second, func() { fired.Add(1) })
	timers.Schedule("reminder:b", time.Second, func() { fired.Add(1) })
	timers.Schedule("sync:periodic", time.Second, func() { fired.Add(1) })

	assert.Equal(t, []string{"reminder:a", "reminder:b"}, timers.Keys("reminder:"))
	assert.True(t, timers.Cancel("reminder:a"))
	assert.False(t, timers.Cancel("reminder:a"))
	assert.Equal(t, 1, timers.CancelPrefix("reminder:"))

	c.Advance(time.Second)
	assert.Equal(t, int32(1), fired.Load())
}

func TestTimers_StopAll(t *testing.T) {
	c := NewFake(start)
	timers := NewTimers(c)
	timers.Schedule("a", time.Second, func() { t.Fatal("should not fire") })
	timers.Schedule("b", time.Minute, func() { t.Fatal("should not fire") })

	timers.StopAll()

	assert.Empty(t, timers.Keys(""))
	assert.Equal(t, 0, c.Pending())
	c.Advance(time.Hour)
}

func TestTimers_RealClock(t *testing.T) {
	timers := NewTimers(Real{})
	done := make(chan struct{})

	timers.Schedule("now", 0, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timer did not fire")
	}
}
