package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Step is one command issued against the aggregate under test.
type Step struct {
	// Kind is the command kind, e.g. "Create", "AddNode".
	Kind string `yaml:"kind"`

	// Args become the command's payload fields.
	Args map[string]interface{} `yaml:"args"`
}

// Scenario defines a conformance test scenario: a named sequence of
// commands issued against one aggregate instance.
type Scenario struct {
	// Name uniquely identifies this scenario, also used as the golden
	// file's base name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// AggregateID is the aggregate instance every step targets.
	AggregateID string `yaml:"aggregate_id"`

	// Steps is the ordered command sequence.
	Steps []Step `yaml:"steps"`
}

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("harness: read scenario %s: %w", path, err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("harness: parse scenario %s: %w", path, err)
	}
	if s.AggregateID == "" {
		return nil, fmt.Errorf("harness: scenario %s: aggregate_id is required", path)
	}
	return &s, nil
}
