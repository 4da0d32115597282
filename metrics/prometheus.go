package metrics

import "github.com/prometheus/client_golang/prometheus"

var HttpRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests received",
	},
	[]string{"endpoint", "status", "method"},
)

var HttpRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"endpoint", "method"},
)

var HttpErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_errors_total",
		Help: "Total number of failed HTTP requests (4xx/5xx)",
	},
	[]string{"endpoint", "status", "method"},
)

var MessagesAttemptedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "messages_attempted_total",
		Help: "Total number of WhatsApp messages attempted",
	},
	[]string{"type", "status"},
)

var MessageSendDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "message_send_duration_seconds",
		Help:    "Time taken to send messages via the provider",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"type"},
)

var MessageRetriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "message_retries_total",
		Help: "Total number of message retries",
	},
	[]string{"reason"},
)

var AutomationCyclesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "automation_cycles_total",
		Help: "Total number of automation cycles run",
	},
	[]string{"trigger"},
)

var AutomationCycleDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "automation_cycle_duration_seconds",
		Help:    "Duration of one full automation cycle",
		Buckets: prometheus.DefBuckets,
	},
)

var AutomationPassErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "automation_pass_errors_total",
		Help: "Per-item errors recorded by automation passes",
	},
	[]string{"pass"},
)

var ProviderAPISuccessTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "provider_api_success_total",
		Help: "Total number of successful provider API calls",
	},
)

var ProviderAPIFailureTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "provider_api_failure_total",
		Help: "Total number of failed provider API calls",
	},
)

func InitAPIMetrics() {
	prometheus.MustRegister(HttpRequestsTotal)
	prometheus.MustRegister(HttpRequestDuration)
	prometheus.MustRegister(HttpErrorsTotal)
}

func InitAutomationMetrics() {
	prometheus.MustRegister(MessagesAttemptedTotal)
	prometheus.MustRegister(MessageSendDuration)
	prometheus.MustRegister(MessageRetriesTotal)
	prometheus.MustRegister(AutomationCyclesTotal)
	prometheus.MustRegister(AutomationCycleDuration)
	prometheus.MustRegister(AutomationPassErrorsTotal)
	prometheus.MustRegister(ProviderAPISuccessTotal)
	prometheus.MustRegister(ProviderAPIFailureTotal)
}
