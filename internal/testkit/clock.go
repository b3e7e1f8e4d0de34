package testkit

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NewUUID returns a fresh random event id.
func NewUUID() uuid.UUID { return uuid.New() }

// UUIDs returns a deterministic id factory producing
// 00000000-0000-4000-8000-000000000001, ...-000000000002 and so on.
func UUIDs() func() uuid.UUID {
	var (
		mu sync.Mutex
		n  uint64
	)
	return func() uuid.UUID {
		mu.Lock()
		n++
		v := n
		mu.Unlock()
		return uuid.MustParse(fmt.Sprintf("00000000-0000-4000-8000-%012d", v))
	}
}

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock starts a clock frozen at the given instant.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start.UTC()}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to the given instant.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}

// Advance moves the clock forward and returns the new time.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
