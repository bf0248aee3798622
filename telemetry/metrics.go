package telemetry

// HTTPBuckets covers API latencies from sub-millisecond reads to slow writes.
var HTTPBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

var (
	// HTTPRequestsTotal counts requests by method, route and status code
	HTTPRequestsTotal CounterVec = noopCounterVec{}

	// HTTPRequestDurationSeconds measures handler latency by method and route
	HTTPRequestDurationSeconds HistogramVec = noopHistogramVec{}

	// PostViewsTotal counts committed single-post reads
	PostViewsTotal Counter = NoopStat{}

	// CommentsCreatedTotal counts comments accepted into moderation
	CommentsCreatedTotal Counter = NoopStat{}

	// MailTotal counts outbound mail attempts by result (sent, failed)
	MailTotal CounterVec = noopCounterVec{}
)

func initMetrics() {
	HTTPRequestsTotal = NewCounterVec("http", "requests_total",
		"Total HTTP requests", []string{"method", "route", "status"})
	HTTPRequestDurationSeconds = NewHistogramVec("http", "request_duration_seconds",
		"HTTP request latency", []string{"method", "route"}, HTTPBuckets)
	PostViewsTotal = NewCounter("content", "post_views_total",
		"Post views recorded by single-post reads")
	CommentsCreatedTotal = NewCounter("content", "comments_created_total",
		"Comments created, pending moderation")
	MailTotal = NewCounterVec("mail", "messages_total",
		"Outbound mail attempts", []string{"result"})
}
