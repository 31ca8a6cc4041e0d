package resilience

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements Metrics on prometheus/client_golang.
// Vectors are created and registered lazily per metric name; the label set
// is fixed by the first observation of each name.
type PrometheusMetrics struct {
	namespace  string
	registerer prometheus.Registerer
	logger     *slog.Logger

	mu         sync.Mutex
	counters   map[string]*labeledVec[*prometheus.CounterVec]
	histograms map[string]*labeledVec[*prometheus.HistogramVec]
	gauges     map[string]*labeledVec[*prometheus.GaugeVec]
}

type labeledVec[V any] struct {
	vec    V
	labels []string
}

// NewPrometheusMetrics returns a Metrics that registers on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusMetrics(namespace string, reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PrometheusMetrics{
		namespace:  namespace,
		registerer: reg,
		logger:     slog.Default().With("component", "metrics"),
		counters:   make(map[string]*labeledVec[*prometheus.CounterVec]),
		histograms: make(map[string]*labeledVec[*prometheus.HistogramVec]),
		gauges:     make(map[string]*labeledVec[*prometheus.GaugeVec]),
	}
}

// IncrementCounter adds value to the named counter.
func (p *PrometheusMetrics) IncrementCounter(name string, tags map[string]string, value float64) {
	p.mu.Lock()
	lv, ok := p.counters[name]
	if !ok {
		labels := labelNames(tags)
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      metricName(name),
			Help:      "Counter " + name,
		}, labels)
		lv = &labeledVec[*prometheus.CounterVec]{vec: p.register(name, vec).(*prometheus.CounterVec), labels: labels}
		p.counters[name] = lv
	}
	p.mu.Unlock()

	lv.vec.WithLabelValues(labelValues(lv.labels, tags)...).Add(value)
}

// RecordHistogram observes value on the named histogram.
func (p *PrometheusMetrics) RecordHistogram(name string, tags map[string]string, value float64) {
	p.mu.Lock()
	lv, ok := p.histograms[name]
	if !ok {
		labels := labelNames(tags)
		vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      metricName(name),
			Help:      "Histogram " + name,
			Buckets:   prometheus.ExponentialBuckets(5, 2, 14), // 5ms to ~41s
		}, labels)
		lv = &labeledVec[*prometheus.HistogramVec]{vec: p.register(name, vec).(*prometheus.HistogramVec), labels: labels}
		p.histograms[name] = lv
	}
	p.mu.Unlock()

	lv.vec.WithLabelValues(labelValues(lv.labels, tags)...).Observe(value)
}

// SetGauge sets the named gauge.
func (p *PrometheusMetrics) SetGauge(name string, tags map[string]string, value float64) {
	p.mu.Lock()
	lv, ok := p.gauges[name]
	if !ok {
		labels := labelNames(tags)
		vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      metricName(name),
			Help:      "Gauge " + name,
		}, labels)
		lv = &labeledVec[*prometheus.GaugeVec]{vec: p.register(name, vec).(*prometheus.GaugeVec), labels: labels}
		p.gauges[name] = lv
	}
	p.mu.Unlock()

	lv.vec.WithLabelValues(labelValues(lv.labels, tags)...).Set(value)
}

// register returns c, or the collector already registered under the same
// descriptor when another PrometheusMetrics shares the registerer.
func (p *PrometheusMetrics) register(name string, c prometheus.Collector) prometheus.Collector {
	if err := p.registerer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		p.logger.Warn("metric registration failed", "metric", name, "error", err)
	}
	return c
}

func metricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for k := range tags {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func labelValues(labels []string, tags map[string]string) []string {
	values := make([]string, len(labels))
	for i, l := range labels {
		values[i] = tags[l]
	}
	return values
}
