package watcher

import "time"

// Timer is a pending callback that can be cancelled
type Timer interface {
	Stop() bool
}

// Clock abstracts the time source so tests can drive timers by hand
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// RealClock is the wall clock
var RealClock Clock = realClock{}
