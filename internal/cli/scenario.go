package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario declares a tree of composite nodes and the update steps to run
// on it.
//
// Nodes are mounted in declaration order, as children of a single root
// composite, which owns their named refs.
type Scenario struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Nodes       []NodeSpec `yaml:"nodes"`
	Steps       []Step     `yaml:"steps"`
}

type NodeSpec struct {
	Name string `yaml:"name"`

	// Ref names the node in the root's ref table.
	Ref string `yaml:"ref,omitempty"`

	// Cascade lists the nodes this node updates during its first re-render.
	Cascade []string `yaml:"cascade,omitempty"`
}

// Step is run as a single batch.
type Step struct {
	Name string `yaml:"name,omitempty"`

	// Rerender renders the root again, with fresh elements.
	Rerender bool `yaml:"rerender,omitempty"`

	// Update increments the state of the listed nodes.
	Update []string `yaml:"update,omitempty"`

	// Force force-updates the listed nodes.
	Force []string `yaml:"force,omitempty"`

	// Callbacks traces a callback for every update and force of the step.
	Callbacks bool `yaml:"callbacks,omitempty"`

	// Asap traces a callback once the step's batch is drained.
	Asap bool `yaml:"asap,omitempty"`
}

// LoadScenario reads, parses and validates a scenario file. Unknown fields
// are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if errs := scenario.Validate(); len(errs) > 0 {
		return &scenario, &ValidationErrors{Errors: errs}
	}

	return &scenario, nil
}

// ValidationErrors lists everything wrong with a scenario.
type ValidationErrors struct {
	Errors []string
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 1 {
		return "invalid scenario: " + e.Errors[0]
	}
	return fmt.Sprintf("invalid scenario: %s (and %d more)", e.Errors[0], len(e.Errors)-1)
}

// Validate checks names are unique and every reference resolves.
func (s *Scenario) Validate() []string {
	var errs []string
	addf := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if s.Name == "" {
		addf("name is required")
	}
	if len(s.Nodes) == 0 {
		addf("at least one node is required")
	}

	nodes := make(map[string]bool, len(s.Nodes))
	refs := make(map[string]bool)

	for i, n := range s.Nodes {
		switch {
		case n.Name == "":
			addf("nodes[%d]: name is required", i)
		case nodes[n.Name]:
			addf("nodes[%d]: duplicate node %q", i, n.Name)
		}
		nodes[n.Name] = true

		if n.Ref != "" {
			if refs[n.Ref] {
				addf("nodes[%d]: duplicate ref %q", i, n.Ref)
			}
			refs[n.Ref] = true
		}
	}

	for i, n := range s.Nodes {
		for _, target := range n.Cascade {
			switch {
			case target == n.Name:
				addf("nodes[%d]: %q cannot cascade to itself", i, n.Name)
			case !nodes[target]:
				addf("nodes[%d]: unknown cascade target %q", i, target)
			}
		}
	}

	for i, step := range s.Steps {
		for _, name := range slices.Concat(step.Update, step.Force) {
			if !nodes[name] {
				addf("steps[%d]: unknown node %q", i, name)
			}
		}
		if !step.Rerender && !step.Asap && len(step.Update) == 0 && len(step.Force) == 0 {
			addf("steps[%d]: nothing to do", i)
		}
	}

	return errs
}

// IsValidationError reports whether err comes from Scenario.Validate.
func IsValidationError(err error) bool {
	var v *ValidationErrors
	return errors.As(err, &v)
}
