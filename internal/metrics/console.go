package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cctv_console_api_requests_total",
		Help: "Requests sent to the camera backend",
	}, []string{"operation", "result"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cctv_console_api_request_duration_seconds",
		Help:    "Latency of camera backend requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	StoreActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cctv_console_store_actions_total",
		Help: "Store actions by outcome",
	}, []string{"action", "result"})

	StoreLoading = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cctv_console_store_loading",
		Help: "1 while the store reports a pending action",
	})

	StoreCameras = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cctv_console_store_cameras",
		Help: "Cameras currently held by the store",
	})

	RateLimitDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cctv_console_ratelimit_decisions_total",
		Help: "Rate limiter decisions on console action endpoints",
	}, []string{"scope", "result"})

	RateLimitRedisErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cctv_console_ratelimit_redis_errors_total",
		Help: "Rate limiter checks that failed open because Redis was unavailable",
	})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cctv_console_events_published_total",
		Help: "Camera events published to NATS",
	}, []string{"type", "result"})
)

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func ObserveAPIRequest(operation string, err error, took time.Duration) {
	APIRequestsTotal.WithLabelValues(operation, Result(err)).Inc()
	APIRequestDuration.WithLabelValues(operation).Observe(took.Seconds())
}

func SetLoading(loading bool) {
	if loading {
		StoreLoading.Set(1)
		return
	}
	StoreLoading.Set(0)
}
