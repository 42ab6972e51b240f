package relay

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	liveConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relay_live_connections",
		Help: "The number of live hub connections",
	}, []string{"tenant"})

	eventsRouted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_routed",
		},
		[]string{"event"},
	)

	commandsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_commands_emitted",
		},
		[]string{"event"},
	)

	framesPainted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_frames_painted",
		Help: "The total number of screen frames painted",
	})

	restRequestDur = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "relay_rest_request_dur",
	}, []string{"path", "method"})

	restRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_rest_requests",
		},
		[]string{"code", "method", "path"},
	)
)

func init() {
	prometheus.MustRegister(eventsRouted)
	prometheus.MustRegister(commandsEmitted)
	prometheus.MustRegister(restRequestDur)
	prometheus.MustRegister(restRequests)
}

func IncLiveConnections(tenantID string) {
	liveConnections.WithLabelValues(tenantID).Inc()
}

func DecLiveConnections(tenantID string) {
	liveConnections.WithLabelValues(tenantID).Dec()
}

func RecordEventRouted(event string) {
	eventsRouted.WithLabelValues(event).Inc()
}

func RecordCommandEmitted(event string) {
	commandsEmitted.WithLabelValues(event).Inc()
}

func RecordFrame() {
	framesPainted.Inc()
}

func RecordRestRequest(path, method string, status int, duration float64) {
	restRequests.WithLabelValues(strconv.Itoa(status), method, path).Inc()
	restRequestDur.WithLabelValues(path, method).Observe(duration)
}

type responseWriterWrapper struct {
	w      http.ResponseWriter
	status int
}

func (writer *responseWriterWrapper) WriteHeader(statusCode int) {
	writer.status = statusCode
	writer.w.WriteHeader(statusCode)
}

func (writer *responseWriterWrapper) Write(b []byte) (int, error) {
	return writer.w.Write(b)
}

func (writer *responseWriterWrapper) Header() http.Header {
	return writer.w.Header()
}

// WithMetrics wraps a local HTTP handler with request counting and timing.
func WithMetrics(fn func(w http.ResponseWriter, r *http.Request)) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		// handlers that write the body straight away never call WriteHeader
		writer := &responseWriterWrapper{w: w, status: http.StatusOK}
		fn(writer, r)
		elapsed := float64(time.Since(start)) / float64(time.Second)
		RecordRestRequest(r.URL.Path, r.Method, writer.status, elapsed)
	}
}
