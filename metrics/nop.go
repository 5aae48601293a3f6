package metrics

import (
	"time"

	"github.com/saiset-co/sai-filecache/types"
)

type nopMetrics struct{}

type nopInstrument struct{}

func NewNop() types.MetricsManager {
	return nopMetrics{}
}

func (nopMetrics) Counter(string, map[string]string) types.Counter { return nopInstrument{} }

func (nopMetrics) Gauge(string, map[string]string) types.Gauge { return nopInstrument{} }

func (nopMetrics) Histogram(string, []float64, map[string]string) types.Histogram {
	return nopInstrument{}
}

func (nopInstrument) Inc()                      {}
func (nopInstrument) Dec()                      {}
func (nopInstrument) Add(float64)               {}
func (nopInstrument) Set(float64)               {}
func (nopInstrument) Get() float64              { return 0 }
func (nopInstrument) Observe(float64)           {}
func (nopInstrument) ObserveDuration(time.Time) {}
func (nopInstrument) GetCount() uint64          { return 0 }
func (nopInstrument) GetSum() float64           { return 0 }
