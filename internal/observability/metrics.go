package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions     prometheus.Gauge
	SessionEvents      *prometheus.CounterVec
	UtterancesIngested *prometheus.CounterVec
	BlankTranscripts   prometheus.Counter
	SentimentFailures  prometheus.Counter
	EscalationsTotal   prometheus.Counter
	EscalationsDropped prometheus.Counter
	ExportEvents       *prometheus.CounterVec
	WSMessages         *prometheus.CounterVec
	SentimentLatency   prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active monitoring sessions.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		UtterancesIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_ingested_total",
			Help:      "Classified utterances by risk tier.",
		}, []string{"tier"}),
		BlankTranscripts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blank_transcripts_total",
			Help:      "Empty or whitespace-only transcriptions dropped before classification.",
		}),
		SentimentFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sentiment_failures_total",
			Help:      "Sentiment scoring failures recovered by keyword-only classification.",
		}),
		EscalationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "High-risk escalation signals raised.",
		}),
		EscalationsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_dropped_total",
			Help:      "Escalation signals dropped because the consumer was behind.",
		}),
		ExportEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_events_total",
			Help:      "Session export attempts by result.",
		}, []string{"result"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		SentimentLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sentiment_latency_ms",
			Help:      "Latency of external sentiment scoring in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
	}
}

func (m *Metrics) ObserveSentimentLatency(d time.Duration) {
	m.SentimentLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
