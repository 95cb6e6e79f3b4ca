package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// durationKeys are the YAML keys decoded into time.Duration. yaml.v3 reads a
// bare integer there as nanoseconds, so they must be written as "30s".
var durationKeys = map[string]bool{
	"timeout":               true,
	"health_check_interval": true,
}

// LoadFile overlays the YAML document at path onto cfg. Keys absent from the
// file keep their current value; unknown keys are rejected.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	if err := checkDurations(&doc); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return nil
}

func checkDurations(doc *yaml.Node) error {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if !durationKeys[key.Value] || value.Kind != yaml.ScalarNode {
			continue
		}
		if value.ShortTag() == "!!int" || value.ShortTag() == "!!float" {
			return fmt.Errorf("%s: %q has no unit, write a duration such as \"30s\"", key.Value, value.Value)
		}
	}
	return nil
}
