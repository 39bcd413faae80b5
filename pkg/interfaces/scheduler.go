package interfaces

import "time"

// Scheduler drives the delayed transitions of the status machine (auto-hide
// of Saved/Error hints). Tests inject a manual implementation to step time.
type Scheduler interface {
	// AfterFunc runs fn once after d elapses and returns a cancel func.
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

// TimerScheduler is the default Scheduler backed by time.AfterFunc.
type TimerScheduler struct{}

func (TimerScheduler) AfterFunc(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}
