// Package globaltime provides a process-wide clock that tests can freeze.
package globaltime

import (
	"sync"
	"time"
)

var (
	mu  sync.RWMutex
	now = time.Now
)

func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return now()
}

func UTC() time.Time {
	return Now().UTC()
}

// SetMockTime pins the clock for tests.
func SetMockTime(t time.Time) {
	mu.Lock()
	defer mu.Unlock()
	now = func() time.Time { return t }
}

// ResetTime restores the wall clock.
func ResetTime() {
	mu.Lock()
	defer mu.Unlock()
	now = time.Now
}
