package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/saiset-co/sai-filecache/types"
)

const (
	DefaultAppName   = "filecache"
	DefaultStoreFile = "cache.db"
	DefaultChunkSize = 8192
)

type Loader struct {
	validator *validator.Validate
	dataDir   func(appName string) (string, error)
}

func NewLoader() *Loader {
	return &Loader{
		validator: validator.New(validator.WithRequiredStructEnabled()),
		dataDir:   ResolveDataDir,
	}
}

// Load reads configPath over Defaults. An empty path yields the defaults.
// A store path left empty is resolved under the per-user data directory.
func (l *Loader) Load(configPath string) (*types.ServiceConfig, error) {
	config := l.Defaults()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, types.Errorf(types.ErrConfigNotFound, "file: %s", configPath)
			}
			return nil, types.WrapError(err, "failed to read config file")
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, types.Errorf(types.ErrConfigParseFailed, "%v", err)
		}
	}

	if err := l.Validate(config); err != nil {
		return nil, err
	}

	if err := l.resolveStorePath(config); err != nil {
		return nil, err
	}

	return config, nil
}

func (l *Loader) Validate(config *types.ServiceConfig) error {
	if config == nil {
		return types.ErrConfigIsNil
	}
	if err := l.validator.Struct(config); err != nil {
		return types.Errorf(types.ErrConfigValidateFailed, "%v", err)
	}
	return nil
}

func (l *Loader) resolveStorePath(config *types.ServiceConfig) error {
	if config.Store.Path != "" || config.Store.Type == "memory" || config.Store.Type == "redis" {
		return nil
	}

	dir, err := l.dataDir(config.Name)
	if err != nil {
		return err
	}

	if config.Store.Type == "clover" {
		config.Store.Path = filepath.Join(dir, "clover")
	} else {
		config.Store.Path = filepath.Join(dir, DefaultStoreFile)
	}
	return nil
}

func (l *Loader) Defaults() *types.ServiceConfig {
	return &types.ServiceConfig{
		Name: DefaultAppName,
		Logger: &types.LoggerConfig{
			Level: "info",
		},
		Store: &types.StoreConfig{
			Type:        "sqlite",
			BusyTimeout: 5 * time.Second,
		},
		Hasher: &types.HasherConfig{
			Algorithm:   "sha256",
			ChunkSize:   DefaultChunkSize,
			Concurrency: 4,
		},
		Metrics: &types.MetricsConfig{
			Enabled: true,
			Type:    "memory",
		},
	}
}

func Load(configPath string) (*types.ServiceConfig, error) {
	return NewLoader().Load(configPath)
}

func Defaults() *types.ServiceConfig {
	return NewLoader().Defaults()
}
