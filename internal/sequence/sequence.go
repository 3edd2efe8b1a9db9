// Package sequence issues human-readable booking IDs of the form
// PN-YYYYMMDD-NNNN, restarting at 1 every server-local calendar day.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	Prefix    = "PN"
	dayLayout = "20060102"
)

var ErrCounterUnavailable = errors.New("booking sequence unavailable")

// Counter atomically increments and returns the sequence for day.
// Implementations must never hand the same value to two callers.
type Counter interface {
	Increment(ctx context.Context, day string) (int64, error)
}

type Generator struct {
	counter Counter
	now     func() time.Time
}

func NewGenerator(counter Counter) *Generator {
	return &Generator{counter: counter, now: time.Now}
}

// WithClock replaces the time source. Used by tests and the simulator.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	if now != nil {
		g.now = now
	}
	return g
}

// Next returns the next booking ID. There is no fallback: if the counter
// cannot be incremented the booking must fail rather than risk a duplicate.
func (g *Generator) Next(ctx context.Context) (string, error) {
	day := g.now().Format(dayLayout)

	seq, err := g.counter.Increment(ctx, day)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCounterUnavailable, err)
	}
	if seq < 1 {
		return "", fmt.Errorf("%w: counter returned %d", ErrCounterUnavailable, seq)
	}

	return Format(day, seq), nil
}

func Format(day string, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", Prefix, day, seq)
}
