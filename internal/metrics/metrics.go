package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hlfinish"

// Metrics holds the batch counters on a private registry so that each run
// exports only its own values. Recording methods are no-ops on a nil
// *Metrics.
type Metrics struct {
	reg *prometheus.Registry

	ClipsTotal         *prometheus.CounterVec
	ClipFailuresTotal  *prometheus.CounterVec
	TranscoderDuration *prometheus.HistogramVec
	FaceSamplesTotal   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		ClipsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clips_total",
			Help:      "Clips that produced a final output, by stage outcome.",
		}, []string{"cropped", "subtitled"}),
		ClipFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clip_failures_total",
			Help:      "Stage failures, including ones recovered by a fallback.",
		}, []string{"stage"}),
		TranscoderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcoder_duration_seconds",
			Help:      "Wall time of external transcoder invocations.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s → ~4min
		}, []string{"op"}),
		FaceSamplesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "face_samples_total",
			Help:      "Sampled frames by detection result.",
		}, []string{"result"}),
	}
	m.reg.MustRegister(m.ClipsTotal, m.ClipFailuresTotal, m.TranscoderDuration, m.FaceSamplesTotal)
	return m
}

func (m *Metrics) ClipFinished(cropped, subtitled bool) {
	if m == nil {
		return
	}
	m.ClipsTotal.WithLabelValues(strconv.FormatBool(cropped), strconv.FormatBool(subtitled)).Inc()
}

func (m *Metrics) StageFailed(stage string) {
	if m == nil {
		return
	}
	m.ClipFailuresTotal.WithLabelValues(stage).Inc()
}

// ObserveTranscoder matches the ffmpeg adapter's observer signature.
func (m *Metrics) ObserveTranscoder(op string, took time.Duration, _ error) {
	if m == nil {
		return
	}
	m.TranscoderDuration.WithLabelValues(op).Observe(took.Seconds())
}

func (m *Metrics) FaceSamples(detected, missed int) {
	if m == nil {
		return
	}
	m.FaceSamplesTotal.WithLabelValues("face").Add(float64(detected))
	m.FaceSamplesTotal.WithLabelValues("none").Add(float64(missed))
}

// WriteTextfile exports the registry in node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
