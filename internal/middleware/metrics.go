package middleware

import "github.com/technosupport/cctv-console/internal/metrics"

func RecordRateLimit(scope string, result string) {
	metrics.RateLimitDecisionsTotal.WithLabelValues(scope, result).Inc()
}

func RecordRedisError() {
	metrics.RateLimitRedisErrorsTotal.Inc()
}
