package sdk

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Manifest is the optional `plugin.yaml` a plugin author ships alongside
// their compiled .wasm so a rule-set author can see what the plugin
// does without opening the binary. foro's daemon never reads this file
// itself — it is purely documentation the SDK can validate for the
// author — so the schema is whatever a plugin needs to describe itself.
type Manifest struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Description string   `yaml:"description,omitempty"`
	Extensions  []string `yaml:"extensions,omitempty"`
	Author      string   `yaml:"author,omitempty"`
}

// ParseManifest decodes a plugin.yaml document.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("sdk: parsing plugin manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate reports the minimum a manifest needs to be useful: a name
// and version a rule-set author can reference.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("sdk: plugin manifest is missing name")
	}
	if m.Version == "" {
		return fmt.Errorf("sdk: plugin manifest %s is missing version", m.Name)
	}
	return nil
}

// Marshal re-serializes the manifest, used by scaffolding tools that
// generate a starter plugin.yaml for a new plugin project.
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("sdk: encoding plugin manifest: %w", err)
	}
	return data, nil
}
