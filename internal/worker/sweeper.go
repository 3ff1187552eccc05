package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SweepFunc removes expired state and reports how much it removed.
type SweepFunc func(now time.Time) int

// StartSweeper runs sweep every interval until ctx is done. The returned
// channel is closed once the loop has exited.
func StartSweeper(ctx context.Context, name string, interval time.Duration, sweep SweepFunc, logger *zap.Logger) <-chan struct{} {
	if logger == nil {
		logger = zap.NewNop()
	}
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := sweep(now); n > 0 {
					logger.Info("sweep removed entries", zap.String("sweeper", name), zap.Int("count", n))
				}
			}
		}
	}()
	return stopped
}
