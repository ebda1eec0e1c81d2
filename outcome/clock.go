package outcome

import "time"

// Timer is the cancellable handle for a pending rejection timeout
type Timer interface {
	Stop() bool
}

// Clock abstracts time so the lifecycle rules can be tested without waiting
// out real timeouts
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// SystemClock returns the wall-clock implementation
func SystemClock() Clock {
	return systemClock{}
}
