// Package metrics exposes Prometheus counters for the labeling pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	captures      prometheus.Counter
	integrations  prometheus.Counter
	discards      prometheus.Counter
	labelRejects  *prometheus.CounterVec
	quarantined   *prometheus.CounterVec
	splitEntries  *prometheus.GaugeVec
	detections    prometheus.Counter
	frameDuration prometheus.Histogram
	framesDropped prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		captures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labelstation_captures_total",
			Help: "Frames saved to the labeling queue.",
		}),
		integrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labelstation_integrations_total",
			Help: "Captures moved into the dataset with their labels.",
		}),
		discards: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labelstation_discards_total",
			Help: "Captures moved to the rejection directory.",
		}),
		labelRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labelstation_label_rejections_total",
			Help: "Label submissions refused by validation.",
		}, []string{"reason"}),
		quarantined: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labelstation_quarantined_total",
			Help: "Entries moved to quarantine by the scrubber.",
		}, []string{"partition"}),
		splitEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "labelstation_split_entries",
			Help: "Entries assigned to each partition by the last split.",
		}, []string{"partition"}),
		detections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labelstation_detections_total",
			Help: "Objects found by live detection.",
		}),
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "labelstation_frame_duration_seconds",
			Help:    "Time spent detecting and drawing one frame.",
			Buckets: prometheus.DefBuckets,
		}),
		framesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labelstation_frames_dropped_total",
			Help: "Frames refused because the detection queue was full.",
		}),
	}

	m.registry.MustRegister(
		m.captures, m.integrations, m.discards, m.labelRejects, m.quarantined,
		m.splitEntries, m.detections, m.frameDuration, m.framesDropped,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterQueueGauge publishes the number of pending captures, read on scrape.
func (m *Metrics) RegisterQueueGauge(pending func() float64) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "labelstation_pending_captures",
		Help: "Captures waiting for labels.",
	}, pending))
}

func (m *Metrics) CaptureAdded() {
	if m != nil {
		m.captures.Inc()
	}
}

func (m *Metrics) Integrated() {
	if m != nil {
		m.integrations.Inc()
	}
}

func (m *Metrics) Discarded() {
	if m != nil {
		m.discards.Inc()
	}
}

func (m *Metrics) LabelRejected(reason string) {
	if m != nil {
		m.labelRejects.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Quarantined(partition string, n int) {
	if m != nil {
		m.quarantined.WithLabelValues(partition).Add(float64(n))
	}
}

func (m *Metrics) SplitCompleted(train, val int) {
	if m != nil {
		m.splitEntries.WithLabelValues("train").Set(float64(train))
		m.splitEntries.WithLabelValues("val").Set(float64(val))
	}
}

func (m *Metrics) FrameProcessed(elapsed time.Duration, detections int) {
	if m != nil {
		m.frameDuration.Observe(elapsed.Seconds())
		m.detections.Add(float64(detections))
	}
}

func (m *Metrics) FrameDropped() {
	if m != nil {
		m.framesDropped.Inc()
	}
}
