package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-filecache/types"
	"github.com/saiset-co/sai-filecache/utils"
)

type PrometheusConfig struct {
	Namespace       string `yaml:"namespace" json:"namespace"`
	Subsystem       string `yaml:"subsystem" json:"subsystem"`
	EnableGoMetrics bool   `yaml:"enable_go_metrics" json:"enable_go_metrics"`
}

type PrometheusMetrics struct {
	logger     types.Logger
	config     *PrometheusConfig
	labels     map[string]string
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	mu         sync.Mutex
}

func NewPrometheusMetrics(logger types.Logger, config *types.MetricsConfig) (*PrometheusMetrics, error) {
	promConfig := &PrometheusConfig{
		Namespace: "filecache",
	}

	if config.Config != nil {
		if err := utils.UnmarshalConfig(config.Config, promConfig); err != nil {
			return nil, types.WrapError(err, "failed to unmarshal prometheus config")
		}
	}

	registry := prometheus.NewRegistry()
	if promConfig.EnableGoMetrics {
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	logger.Debug("Prometheus metrics initialized",
		zap.String("namespace", promConfig.Namespace),
		zap.String("subsystem", promConfig.Subsystem),
		zap.Bool("go_metrics", promConfig.EnableGoMetrics))

	return &PrometheusMetrics{
		logger:     logger,
		config:     promConfig,
		labels:     config.Labels,
		registry:   registry,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}, nil
}

// Gatherer exposes the private registry so the host can serve or scrape it.
func (p *PrometheusMetrics) Gatherer() prometheus.Gatherer {
	return p.registry
}

func (p *PrometheusMetrics) Counter(name string, labels map[string]string) types.Counter {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := buildKey(name, nil)
	counter, exists := p.counters[key]
	if !exists {
		counter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   p.config.Namespace,
				Subsystem:   p.config.Subsystem,
				Name:        name,
				Help:        fmt.Sprintf("Counter metric %s", name),
				ConstLabels: p.labels,
			},
			labelNames(labels),
		)
		p.registry.MustRegister(counter)
		p.counters[key] = counter
		p.logger.Debug("Prometheus counter created", zap.String("name", name))
	}

	return &PrometheusCounter{logger: p.logger, counter: counter.With(labels)}
}

func (p *PrometheusMetrics) Gauge(name string, labels map[string]string) types.Gauge {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := buildKey(name, nil)
	gauge, exists := p.gauges[key]
	if !exists {
		gauge = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   p.config.Namespace,
				Subsystem:   p.config.Subsystem,
				Name:        name,
				Help:        fmt.Sprintf("Gauge metric %s", name),
				ConstLabels: p.labels,
			},
			labelNames(labels),
		)
		p.registry.MustRegister(gauge)
		p.gauges[key] = gauge
		p.logger.Debug("Prometheus gauge created", zap.String("name", name))
	}

	return &PrometheusGauge{logger: p.logger, gauge: gauge.With(labels)}
}

func (p *PrometheusMetrics) Histogram(name string, buckets []float64, labels map[string]string) types.Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := buildKey(name, nil)
	histogram, exists := p.histograms[key]
	if !exists {
		histogram = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   p.config.Namespace,
				Subsystem:   p.config.Subsystem,
				Name:        name,
				Help:        fmt.Sprintf("Histogram metric %s", name),
				Buckets:     buckets,
				ConstLabels: p.labels,
			},
			labelNames(labels),
		)
		p.registry.MustRegister(histogram)
		p.histograms[key] = histogram
		p.logger.Debug("Prometheus histogram created", zap.String("name", name))
	}

	return &PrometheusHistogram{logger: p.logger, observer: histogram.With(labels)}
}

type PrometheusCounter struct {
	logger  types.Logger
	counter prometheus.Counter
}

func (c *PrometheusCounter) Inc() {
	c.counter.Inc()
}

func (c *PrometheusCounter) Add(value float64) {
	c.counter.Add(value)
}

func (c *PrometheusCounter) Get() float64 {
	metric := &dto.Metric{}
	if err := c.counter.Write(metric); err != nil {
		c.logger.Error("Failed to write counter", zap.Error(err))
	}
	return metric.GetCounter().GetValue()
}

type PrometheusGauge struct {
	logger types.Logger
	gauge  prometheus.Gauge
}

func (g *PrometheusGauge) Set(value float64) {
	g.gauge.Set(value)
}

func (g *PrometheusGauge) Inc() {
	g.gauge.Inc()
}

func (g *PrometheusGauge) Dec() {
	g.gauge.Dec()
}

func (g *PrometheusGauge) Get() float64 {
	metric := &dto.Metric{}
	if err := g.gauge.Write(metric); err != nil {
		g.logger.Error("Failed to write gauge", zap.Error(err))
	}
	return metric.GetGauge().GetValue()
}

type PrometheusHistogram struct {
	logger   types.Logger
	observer prometheus.Observer
}

func (h *PrometheusHistogram) Observe(value float64) {
	h.observer.Observe(value)
}

func (h *PrometheusHistogram) ObserveDuration(start time.Time) {
	h.observer.Observe(time.Since(start).Seconds())
}

func (h *PrometheusHistogram) GetCount() uint64 {
	return h.snapshot().GetSampleCount()
}

func (h *PrometheusHistogram) GetSum() float64 {
	return h.snapshot().GetSampleSum()
}

func (h *PrometheusHistogram) snapshot() *dto.Histogram {
	metric := &dto.Metric{}
	m, ok := h.observer.(prometheus.Metric)
	if !ok {
		return metric.GetHistogram()
	}
	if err := m.Write(metric); err != nil {
		h.logger.Error("Failed to write histogram", zap.Error(err))
	}
	return metric.GetHistogram()
}
