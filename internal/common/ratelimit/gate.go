// internal/common/ratelimit/gate.go
package ratelimit

import (
	"context"
	"math"
	"time"

	"lead-capture/internal/common/logger"
	"lead-capture/internal/common/metrics"
)

// Operations guarded by the gate.
const (
	OpCalculate = "calculate"
	OpSubmit    = "submit"
	OpStatus    = "status"
	OpGDPR      = "gdpr"
)

// Gate applies per-operation quotas to callers. It rejects, never queues.
type Gate struct {
	limiter Limiter
	limits  map[string]int
	logger  logger.Logger
}

func NewGate(limiter Limiter, limits map[string]int, log logger.Logger) *Gate {
	return &Gate{
		limiter: limiter,
		limits:  limits,
		logger:  log.WithFields(map[string]interface{}{"component": "rate_limit"}),
	}
}

// Allow checks caller against the quota for operation. Operations without a
// positive limit are not gated. A backend failure admits the call.
func (g *Gate) Allow(ctx context.Context, operation, caller string) Decision {
	limit := g.limits[operation]
	if limit <= 0 {
		return Decision{Allowed: true}
	}

	d, err := g.limiter.Allow(ctx, Key(operation, caller), limit)
	if err != nil {
		g.logger.Warn("Rate limiter unavailable, admitting request", map[string]interface{}{
			"operation": operation,
			"error":     err.Error(),
		})
		return Decision{Allowed: true, Limit: limit, Remaining: limit}
	}

	if !d.Allowed {
		metrics.RateLimitRejections.WithLabelValues(operation).Inc()
		g.logger.Info("Rate limit exceeded", map[string]interface{}{
			"operation":  operation,
			"limit":      limit,
			"retryAfter": d.RetryAfter.String(),
		})
	}
	return d
}

// RetryAfterSeconds rounds the wait up to whole seconds, never below one.
func (d Decision) RetryAfterSeconds() int {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// Limits builds the quota table from per-operation counts.
func Limits(calculate, submit, status, gdpr int) map[string]int {
	return map[string]int{
		OpCalculate: calculate,
		OpSubmit:    submit,
		OpStatus:    status,
		OpGDPR:      gdpr,
	}
}

// DefaultWindow is the quota window when none is configured.
const DefaultWindow = time.Minute
