package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saiset-co/sai-filecache/types"
)

type MemoryMetrics struct {
	constLabels map[string]string
	counters    map[string]*MemoryCounter
	gauges      map[string]*MemoryGauge
	histograms  map[string]*MemoryHistogram
	mu          sync.Mutex
}

func NewMemoryMetrics(constLabels map[string]string) *MemoryMetrics {
	return &MemoryMetrics{
		constLabels: constLabels,
		counters:    make(map[string]*MemoryCounter),
		gauges:      make(map[string]*MemoryGauge),
		histograms:  make(map[string]*MemoryHistogram),
	}
}

func (m *MemoryMetrics) Counter(name string, labels map[string]string) types.Counter {
	key := buildKey(name, m.merge(labels))

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.counters[key]; ok {
		return c
	}
	c := &MemoryCounter{}
	m.counters[key] = c
	return c
}

func (m *MemoryMetrics) Gauge(name string, labels map[string]string) types.Gauge {
	key := buildKey(name, m.merge(labels))

	m.mu.Lock()
	defer m.mu.Unlock()

	if g, ok := m.gauges[key]; ok {
		return g
	}
	g := &MemoryGauge{}
	m.gauges[key] = g
	return g
}

func (m *MemoryMetrics) Histogram(name string, buckets []float64, labels map[string]string) types.Histogram {
	key := buildKey(name, m.merge(labels))

	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.histograms[key]; ok {
		return h
	}
	h := &MemoryHistogram{buckets: buckets, counts: make([]uint64, len(buckets)+1)}
	m.histograms[key] = h
	return h
}

// Snapshot returns counter and gauge values keyed by name{label=value,...}.
func (m *MemoryMetrics) Snapshot() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]float64, len(m.counters)+len(m.gauges))
	for k, c := range m.counters {
		out[k] = c.Get()
	}
	for k, g := range m.gauges {
		out[k] = g.Get()
	}
	return out
}

func (m *MemoryMetrics) merge(labels map[string]string) map[string]string {
	if len(m.constLabels) == 0 {
		return labels
	}
	merged := make(map[string]string, len(labels)+len(m.constLabels))
	for k, v := range m.constLabels {
		merged[k] = v
	}
	for k, v := range labels {
		merged[k] = v
	}
	return merged
}

type MemoryCounter struct {
	bits uint64
}

func (c *MemoryCounter) Inc() {
	c.Add(1)
}

func (c *MemoryCounter) Add(value float64) {
	if value < 0 {
		return
	}
	addFloat(&c.bits, value)
}

func (c *MemoryCounter) Get() float64 {
	return math.Float64frombits(atomic.LoadUint64(&c.bits))
}

type MemoryGauge struct {
	bits uint64
}

func (g *MemoryGauge) Set(value float64) {
	atomic.StoreUint64(&g.bits, math.Float64bits(value))
}

func (g *MemoryGauge) Inc() {
	addFloat(&g.bits, 1)
}

func (g *MemoryGauge) Dec() {
	addFloat(&g.bits, -1)
}

func (g *MemoryGauge) Get() float64 {
	return math.Float64frombits(atomic.LoadUint64(&g.bits))
}

type MemoryHistogram struct {
	buckets []float64
	counts  []uint64
	count   uint64
	sum     float64
	mu      sync.Mutex
}

func (h *MemoryHistogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.count++
	h.sum += value
	for i, upper := range h.buckets {
		if value <= upper {
			h.counts[i]++
			return
		}
	}
	h.counts[len(h.buckets)]++
}

func (h *MemoryHistogram) ObserveDuration(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

func (h *MemoryHistogram) GetCount() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *MemoryHistogram) GetSum() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sum
}

func addFloat(bits *uint64, delta float64) {
	for {
		old := atomic.LoadUint64(bits)
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if atomic.CompareAndSwapUint64(bits, old, next) {
			return
		}
	}
}
