package timex

import (
	"context"
	"time"
)

// ResetTimer stops t, drains a pending fire and re-arms it for d.
// Negative durations are clamped to zero.
func ResetTimer(t *time.Timer, d time.Duration) {
	if d < 0 {
		d = 0
	}
	if !t.Stop() {
		DrainTimer(t)
	}
	t.Reset(d)
}

func DrainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}

// Sleep waits d on a reusable timer. It returns ctx.Err() if ctx is done
// first, leaving t stopped and drained.
func Sleep(ctx context.Context, t *time.Timer, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ResetTimer(t, d)
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		if !t.Stop() {
			DrainTimer(t)
		}
		return ctx.Err()
	}
}

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }
