package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the YAML document that declares a run's stages.
type Manifest struct {
	Stages []*Stage `yaml:"stages"`
}

// LoadManifest reads and validates a stage manifest.
func LoadManifest(path string) ([]*Stage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stage manifest %s: %w", path, err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse stage manifest %s: %w", path, err)
	}

	if len(manifest.Stages) == 0 {
		return nil, fmt.Errorf("stage manifest %s declares no stages", path)
	}

	seen := make(map[string]bool, len(manifest.Stages))
	for _, stage := range manifest.Stages {
		if err := stage.Validate(); err != nil {
			return nil, err
		}
		if seen[stage.ID] {
			return nil, fmt.Errorf("duplicate stage id %q in manifest %s", stage.ID, path)
		}
		seen[stage.ID] = true
	}

	return manifest.Stages, nil
}
