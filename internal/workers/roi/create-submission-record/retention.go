// internal/workers/roi/create-submission-record/retention.go
package createsubmissionrecord

import (
	"context"
	"fmt"
	"time"

	"lead-capture/internal/common/metrics"
)

// SweepExpired deletes records older than days and returns how many went.
func (h *Handler) SweepExpired(ctx context.Context, days int) (int64, error) {
	if days < 1 {
		return 0, fmt.Errorf("retention days must be positive, got %d", days)
	}
	cutoff := h.now().AddDate(0, 0, -days)

	n, err := h.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	metrics.RetentionDeleted.Add(float64(n))
	return n, nil
}

// RunRetention sweeps once immediately and then every interval until ctx ends.
// Failures are logged and the loop keeps going. A non-positive interval runs
// the single initial sweep only.
func (h *Handler) RunRetention(ctx context.Context, interval time.Duration, days int) {
	sweep := func() {
		sweepCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
		if _, err := h.SweepExpired(sweepCtx, days); err != nil {
			h.logger.Error("retention sweep failed", map[string]interface{}{"error": err.Error()})
		}
	}

	sweep()
	if interval <= 0 {
		h.logger.Error("retention ticker not started", map[string]interface{}{"interval": interval.String()})
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
