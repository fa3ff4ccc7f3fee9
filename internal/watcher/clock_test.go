package watcher

import (
	"sort"
	"sync"
	"time"
)

// fakeClock fires timers only when advanced
type fakeClock struct {
	mu         sync.Mutex
	now        time.Duration
	timers     []*fakeTimer
	ignoreStop bool // Stop reports failure and the timer still fires
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	ch      chan time.Time
	done    bool
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done || t.clock.ignoreStop {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	return c.add(d, f, nil)
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.add(d, nil, ch)
	return ch
}

func (c *fakeClock) add(d time.Duration, f func(), ch chan time.Time) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f, ch: ch}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock and runs due timers in deadline order
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.done && !t.stopped && t.at <= c.now {
			t.done = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		if t.f != nil {
			t.f()
		}
		if t.ch != nil {
			t.ch <- time.Time{}
		}
	}
}

// instantClock fires every After immediately
type instantClock struct{}

func (instantClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(0, f)
}

func (instantClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}
