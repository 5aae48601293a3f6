package utils

import (
	"bytes"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/saiset-co/sai-filecache/types"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 1024))
	},
}

func Marshal(data interface{}) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		if buf.Cap() < 64*1024 {
			bufferPool.Put(buf)
		}
	}()

	encoder := sonic.ConfigDefault.NewEncoder(buf)
	if err := encoder.Encode(data); err != nil {
		return nil, err
	}

	// Encode appends a newline; callers store the bytes as-is.
	out := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	result := make([]byte, len(out))
	copy(result, out)
	return result, nil
}

func MarshalIndent(data interface{}) ([]byte, error) {
	return sonic.ConfigStd.MarshalIndent(data, "", "  ")
}

func Unmarshal[T any](data []byte, target *T) error {
	return sonic.ConfigDefault.Unmarshal(data, target)
}

// UnmarshalConfig decodes a free-form backend config section (as produced by
// the YAML loader) into target.
func UnmarshalConfig[T any](config interface{}, target *T) error {
	if config == nil {
		return types.ErrConfigIsNil
	}

	if typed, ok := config.(*T); ok {
		*target = *typed
		return nil
	}

	configBytes, err := sonic.ConfigDefault.Marshal(normalize(config))
	if err != nil {
		return err
	}

	return sonic.ConfigDefault.Unmarshal(configBytes, target)
}

// normalize converts map[interface{}]interface{} nodes into
// map[string]interface{} so the JSON encoder accepts them.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			if ks, ok := k.(string); ok {
				out[ks] = normalize(item)
			}
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}
