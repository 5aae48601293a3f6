package config

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/saiset-co/sai-filecache/types"
)

// Parser reads resolved configuration values by dotted path, e.g.
// "store.path" or "hasher.chunk_size".
type Parser struct {
	data map[string]interface{}
}

func NewParser(config *types.ServiceConfig) (*Parser, error) {
	configBytes, err := yaml.Marshal(config)
	if err != nil {
		return nil, types.WrapError(err, "failed to marshal config")
	}

	parser := &Parser{data: make(map[string]interface{})}
	if err := yaml.Unmarshal(configBytes, &parser.data); err != nil {
		return nil, types.WrapError(err, "failed to unmarshal config")
	}

	return parser, nil
}

func (p *Parser) Lookup(path string) (interface{}, bool) {
	value := p.navigateToPath(path)
	return value, value != nil
}

func (p *Parser) GetValue(path string, defaultValue interface{}) interface{} {
	if value, ok := p.Lookup(path); ok {
		return value
	}
	return defaultValue
}

func (p *Parser) GetAs(path string, target interface{}) error {
	value, ok := p.Lookup(path)
	if !ok {
		return types.Errorf(types.ErrConfigNotFound, "path: %s", path)
	}

	valueBytes, err := yaml.Marshal(value)
	if err != nil {
		return types.WrapError(err, "failed to marshal config value")
	}

	if err = yaml.Unmarshal(valueBytes, target); err != nil {
		return types.WrapError(err, "failed to unmarshal config value")
	}

	return nil
}

func (p *Parser) navigateToPath(path string) interface{} {
	if path == "" {
		return p.data
	}

	var current interface{} = p.data
	for _, part := range strings.Split(path, ".") {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = node[part]
		if current == nil {
			return nil
		}
	}

	return current
}
