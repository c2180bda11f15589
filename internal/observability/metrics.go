package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	TwilioRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "twilio_requests_total", Help: "Twilio API request outcomes"},
		[]string{"operation", "result", "http_status"},
	)
	TwilioLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "twilio_request_latency_seconds", Help: "Twilio API request latency"},
		[]string{"operation"},
	)
	TwilioBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "twilio_batch_size",
			Help:    "Messages per batch send",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
	MockRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "twilio_mock_requests_total", Help: "Mock provider requests"},
		[]string{"route", "status"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(TwilioRequests, TwilioLatency, TwilioBatchSize, MockRequests)
}
