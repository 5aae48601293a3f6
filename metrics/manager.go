package metrics

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-filecache/types"
)

var customMetricsCreators = sync.Map{}

func RegisterMetricsManager(metricsManagerName string, creator types.MetricsManagerCreator) {
	customMetricsCreators.Store(metricsManagerName, creator)
}

// NewManager builds the configured metrics backend. A nil or disabled config
// yields a manager that drops every observation.
func NewManager(config *types.MetricsConfig, logger types.Logger) (types.MetricsManager, error) {
	if config == nil || !config.Enabled {
		return NewNop(), nil
	}

	var manager types.MetricsManager
	var err error

	switch config.Type {
	case "memory":
		manager = NewMemoryMetrics(config.Labels)
	case "prometheus":
		manager, err = NewPrometheusMetrics(logger, config)
	default:
		if creator, exists := customMetricsCreators.Load(config.Type); exists {
			manager, err = creator.(types.MetricsManagerCreator)(config.Config)
		} else {
			return nil, types.Errorf(types.ErrMetricsTypeUnknown, "type: %s", config.Type)
		}
	}

	if err != nil {
		return nil, err
	}

	logger.Debug("Metrics manager initialized", zap.String("type", config.Type))
	return manager, nil
}

func buildKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	b.WriteByte('}')
	return b.String()
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
