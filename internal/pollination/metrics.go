package pollination

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalRequests tracks API calls issued, labeled by HTTP method.
	TotalRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pollination_api_requests_total",
		Help: "The total number of Pollination API requests sent.",
	}, []string{"method"})
	// TotalRequestErrors tracks API calls that failed at the transport level.
	TotalRequestErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pollination_api_request_errors_total",
		Help: "The total number of Pollination API requests that failed.",
	})
	// TotalUploads tracks artifact uploads accepted by storage.
	TotalUploads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pollination_artifact_uploads_total",
		Help: "The total number of artifacts uploaded to project storage.",
	})
	// TotalDownloads tracks run outputs retrieved from signed URLs.
	TotalDownloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pollination_output_downloads_total",
		Help: "The total number of output downloads started.",
	})
	// RequestDuration observes API call latency.
	RequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pollination_api_request_duration_seconds",
		Help:    "Latency of Pollination API requests.",
		Buckets: prometheus.DefBuckets,
	})
)

// observeRequest records the outcome of one API call.
func observeRequest(method string, duration time.Duration, err error) {
	TotalRequests.WithLabelValues(method).Inc()
	RequestDuration.Observe(duration.Seconds())
	if err != nil {
		TotalRequestErrors.Inc()
	}
}
