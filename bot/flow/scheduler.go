package flow

import "time"

// Scheduler runs a function after a delay and returns a cancel function.
type Scheduler interface {
	After(delay time.Duration, fn func()) (cancel func())
}

// TimerScheduler schedules on the runtime timers.
type TimerScheduler struct{}

func (TimerScheduler) After(delay time.Duration, fn func()) func() {
	t := time.AfterFunc(delay, fn)
	return func() { t.Stop() }
}
