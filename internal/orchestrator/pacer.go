package orchestrator

import (
	"context"
	"fmt"
	"time"
)

// pacer spaces provider calls by a fixed gap measured from the end of the
// previous call, so a slow call never shortens the pause before the next one.
// It is local to one FetchAll and not safe for concurrent use.
type pacer struct {
	interval time.Duration
	last     time.Time
}

func newPacer(interval time.Duration) *pacer {
	return &pacer{interval: interval}
}

// wait blocks until interval has passed since the last done call. It fails
// fast when the context deadline falls before that point.
func (p *pacer) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.interval <= 0 || p.last.IsZero() {
		return nil
	}

	delay := p.interval - time.Since(p.last)
	if delay <= 0 {
		return nil
	}

	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < delay {
		return fmt.Errorf("pace provider calls: %w", context.DeadlineExceeded)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// done marks the end of a provider call
func (p *pacer) done() {
	p.last = time.Now()
}
