package model

import "time"

// Clock supplies the current UTC time. The core never reads the wall
// clock directly so deterministic clocks can drive tests and replays.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

// NewRealClock returns a clock backed by the system time in UTC.
func NewRealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now().UTC() }
