package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests"},
		[]string{"route", "method", "status"},
	)
	ReqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request duration seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	OTPSent = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "otp_sent_total", Help: "One-time codes dispatched"},
	)
	OTPVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "otp_verifications_total", Help: "OTP verification outcomes"},
		[]string{"outcome"},
	)
	EngineCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "engine_calls_total", Help: "Outbound trading engine calls"},
		[]string{"op", "outcome"},
	)
)

func MustRegister() {
	prometheus.MustRegister(RequestsTotal, ReqDuration, OTPSent, OTPVerifications, EngineCalls)
}
