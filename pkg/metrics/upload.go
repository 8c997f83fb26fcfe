package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UploadMetrics records timings and outcomes of the media upload pipeline.
type UploadMetrics struct {
	phaseDuration *prometheus.HistogramVec
	outcomes      *prometheus.CounterVec
	statusPolls   prometheus.Counter
	uploadedBytes prometheus.Counter
}

// NewUploadMetrics registers the upload metrics on the provided registerer.
func NewUploadMetrics(reg prometheus.Registerer) *UploadMetrics {
	if reg == nil {
		return &UploadMetrics{}
	}
	phaseDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "media_upload_phase_duration_seconds",
		Help:    "Duration of each media upload phase in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "media_upload_total",
		Help: "Media uploads by final outcome.",
	}, []string{"outcome"})
	statusPolls := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "media_upload_status_polls_total",
		Help: "STATUS requests issued while waiting for media processing.",
	})
	uploadedBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "media_upload_bytes_total",
		Help: "Bytes transferred by APPEND requests.",
	})
	reg.MustRegister(phaseDuration, outcomes, statusPolls, uploadedBytes)
	return &UploadMetrics{
		phaseDuration: phaseDuration,
		outcomes:      outcomes,
		statusPolls:   statusPolls,
		uploadedBytes: uploadedBytes,
	}
}

// ObservePhase records how long the named phase took.
func (m *UploadMetrics) ObservePhase(phase string, duration time.Duration) {
	if m == nil || m.phaseDuration == nil {
		return
	}
	m.phaseDuration.WithLabelValues(normalizeLabel(phase)).Observe(duration.Seconds())
}

// IncOutcome counts a finished upload. outcome is an error code or "succeeded".
func (m *UploadMetrics) IncOutcome(outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncStatusPoll counts one STATUS request.
func (m *UploadMetrics) IncStatusPoll() {
	if m == nil || m.statusPolls == nil {
		return
	}
	m.statusPolls.Inc()
}

// AddUploadedBytes adds n transferred bytes.
func (m *UploadMetrics) AddUploadedBytes(n int64) {
	if m == nil || m.uploadedBytes == nil || n <= 0 {
		return
	}
	m.uploadedBytes.Add(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
