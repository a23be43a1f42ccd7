package trade

import "time"

// Timer is the subset of *time.Timer the manager needs.
type Timer interface {
	Stop() bool
	Reset(d time.Duration) bool
}

// Clock abstracts time so tests can fire timers deterministically.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
