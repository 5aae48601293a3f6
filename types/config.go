package types

import (
	"time"
)

type ServiceConfig struct {
	Name    string         `yaml:"name" json:"name" validate:"required"`
	Logger  *LoggerConfig  `yaml:"logger" json:"logger" validate:"required"`
	Store   *StoreConfig   `yaml:"store" json:"store" validate:"required"`
	Hasher  *HasherConfig  `yaml:"hasher" json:"hasher" validate:"required"`
	Metrics *MetricsConfig `yaml:"metrics" json:"metrics"`
}

type LoggerConfig struct {
	Type   string      `yaml:"type" json:"type"`
	Level  string      `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn warning error fatal"`
	Config interface{} `yaml:"config" json:"config"`
}

type StoreConfig struct {
	Type        string        `yaml:"type" json:"type" validate:"required"`
	Path        string        `yaml:"path" json:"path"`
	BusyTimeout time.Duration `yaml:"busy_timeout" json:"busy_timeout" validate:"min=0"`
	Config      interface{}   `yaml:"config" json:"config"`
}

type HasherConfig struct {
	Algorithm   string `yaml:"algorithm" json:"algorithm" validate:"required,oneof=sha256 blake2b"`
	ChunkSize   int    `yaml:"chunk_size" json:"chunk_size" validate:"min=1"`
	Concurrency int    `yaml:"concurrency" json:"concurrency" validate:"min=1"`
}

type MetricsConfig struct {
	Enabled bool              `yaml:"enabled" json:"enabled"`
	Type    string            `yaml:"type" json:"type" validate:"required_if=Enabled true"`
	Config  interface{}       `yaml:"config" json:"config"`
	Labels  map[string]string `yaml:"labels" json:"labels"`
}
