package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_http_requests_total",
			Help: "Total number of HTTP requests handled by the local facade.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatsync_http_request_duration_seconds",
			Help:    "Facade request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	connectionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chatsync_push_connection_state",
			Help: "Push-channel connectivity state (1 for the current state).",
		},
		[]string{"state"},
	)
	reconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatsync_push_reconnects_total",
			Help: "Total number of successful push-channel reconnects.",
		},
	)
	pushEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_push_events_total",
			Help: "Total number of push-channel events by type.",
		},
		[]string{"type"},
	)
	dedupDropsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatsync_dedup_drops_total",
			Help: "Messages discarded because their identifier was already applied.",
		},
	)
	sendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_sends_total",
			Help: "Optimistic sends by outcome (confirmed, rolled_back).",
		},
		[]string{"outcome"},
	)
	pollCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_poll_cycles_total",
			Help: "Fallback fetch cycles by outcome.",
		},
		[]string{"outcome"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatsync_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		connectionState,
		reconnectsTotal,
		pushEventsTotal,
		dedupDropsTotal,
		sendsTotal,
		pollCyclesTotal,
		amqpPublishErrorsTotal,
	)
}

// HTTPMetricsMiddleware records request counts and latencies for the facade.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// SetConnectionState marks the given state as current and clears the rest.
func SetConnectionState(state string) {
	for _, s := range []string{"disconnected", "connecting", "connected", "reconnecting", "failed"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		connectionState.WithLabelValues(s).Set(v)
	}
}

func IncReconnect() {
	reconnectsTotal.Inc()
}

func IncPushEvent(eventType string) {
	pushEventsTotal.WithLabelValues(eventType).Inc()
}

func IncDedupDrop() {
	dedupDropsTotal.Inc()
}

func IncSend(outcome string) {
	sendsTotal.WithLabelValues(outcome).Inc()
}

func IncPollCycle(outcome string) {
	pollCyclesTotal.WithLabelValues(outcome).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
