// Package clock provides a real clock implementation for code that abstracts
// time behind an interface.
package clock

import (
	"context"
	"time"
)

// System tells real time and really sleeps.
type System struct{}

// New creates a new System clock.
func New() *System {
	return &System{}
}

// Now returns the current UTC time.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// Sleep pauses for d or until the context finishes, whichever comes first.
// It returns the context error when the wait was cut short.
func (System) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
