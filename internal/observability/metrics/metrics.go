package metrics

import (
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	DocumentsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esign_documents_created_total",
			Help: "Total number of document create attempts.",
		},
		[]string{"result"},
	)

	DocumentsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esign_documents_sent_total",
			Help: "Total number of send-for-signature attempts.",
		},
		[]string{"result"},
	)

	SignaturesSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esign_signatures_submitted_total",
			Help: "Total number of signature submissions.",
		},
		[]string{"result"},
	)

	CompositionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esign_compositions_total",
			Help: "Total number of final artifact compositions.",
		},
		[]string{"result"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "esign_notifications_total",
			Help: "Total number of notification dispatches.",
		},
		[]string{"result"},
	)
)

// MustRegister is called once at process start; services increment the
// counters whether or not they are registered, which keeps tests free of
// registry state.
func MustRegister() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		DocumentsCreatedTotal,
		DocumentsSentTotal,
		SignaturesSubmittedTotal,
		CompositionsTotal,
		NotificationsTotal,
	)
}

// NormalizePath collapses token and ID path segments so label cardinality
// stays bounded and signing tokens never land in metric labels.
func NormalizePath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if _, err := uuid.Parse(part); err == nil {
			parts[i] = ":id"
			continue
		}
		if len(part) >= 16 && isAlnum(part) {
			parts[i] = ":token"
		}
	}
	return strings.Join(parts, "/")
}

func isAlnum(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
