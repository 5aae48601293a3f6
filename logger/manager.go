package logger

import (
	"sync"

	"github.com/saiset-co/sai-filecache/types"
)

var customLoggerCreators = sync.Map{}

func RegisterLogger(loggerName string, creator types.LoggerCreator) {
	customLoggerCreators.Store(loggerName, creator)
}

func New(loggerConfig *types.LoggerConfig) (types.Logger, error) {
	if loggerConfig == nil {
		return nil, types.Errorf(types.ErrConfigIsNil, "logger")
	}

	loggerName := "default"
	if loggerConfig.Type != "" {
		loggerName = loggerConfig.Type
	}

	switch loggerName {
	case "default", "zap":
		return NewDefaultLogger(loggerConfig)
	case "nop":
		return NewNop(), nil
	default:
		if creator, exists := customLoggerCreators.Load(loggerName); exists {
			return creator.(types.LoggerCreator)(loggerConfig.Config)
		}
		return nil, types.Errorf(types.ErrLoggerTypeUnknown, "logger type: %s", loggerName)
	}
}
