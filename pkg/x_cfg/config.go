// Package x_cfg loads the JSON configuration file. Raw values stay available
// through Get/All; LoadConfig decodes them into the typed Config.
package x_cfg

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

var (
	mu     sync.RWMutex
	values = map[string]any{}
)

// Load loads configuration from a JSON file. ${VAR} references are expanded
// from the environment before parsing.
func Load(file string) error {
	mu.Lock()
	defer mu.Unlock()

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", file, err)
	}

	parsed := map[string]any{}
	if err := json.Unmarshal([]byte(os.ExpandEnv(string(data))), &parsed); err != nil {
		return fmt.Errorf("failed to unmarshal config data from %s: %w", file, err)
	}

	values = parsed
	return nil
}

// Get retrieves a value from the config by key.
func Get(key string) any {
	mu.RLock()
	defer mu.RUnlock()
	return values[key]
}

// All returns a copy of the full config map.
func All() map[string]any {
	mu.RLock()
	defer mu.RUnlock()

	clone := make(map[string]any, len(values))
	for k, v := range values {
		clone[k] = v
	}
	return clone
}

// reset drops loaded values; used when no file is present.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	values = map[string]any{}
}
