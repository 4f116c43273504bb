package rules

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadString parses a Config from a JSON document held in memory.
func LoadString(doc string) (Config, error) {
	var cfg Config
	if err := json.Unmarshal([]byte(doc), &cfg); err != nil {
		return Config{}, fmt.Errorf("rules: invalid config JSON: %w", err)
	}
	return cfg, nil
}

// LoadFile reads and parses a Config from path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("rules: failed to open config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("rules: invalid config JSON in %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultConfig returns a minimal starter config written by `config default`.
func DefaultConfig() Config {
	return Config{
		Rules: []Rule{},
	}
}
