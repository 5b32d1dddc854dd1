// Copyright 2025 Stateflow Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"

	gojson "github.com/goccy/go-json"
	"github.com/tiendc/go-deepcopy"
	"gopkg.in/yaml.v3"
)

// MachineDefinition is the declarative, file-loadable description of a
// state machine. It carries no callbacks; those are attached by the caller
// after Build and before Start.
type MachineDefinition struct {
	// Name identifies the machine in logs and metrics
	Name string `yaml:"name" json:"name"`

	// InitialState is the state the machine starts in. It must reference
	// a declared state.
	InitialState string `yaml:"initialState" json:"initialState"`

	States []StateDefinition `yaml:"states" json:"states"`

	Transitions []TransitionDefinition `yaml:"transitions" json:"transitions"`
}

// StateDefinition declares a single named state.
type StateDefinition struct {
	Name string `yaml:"name" json:"name"`
}

// TransitionDefinition declares a directed edge between two declared states.
type TransitionDefinition struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// ParseYAML parses a machine definition from YAML and validates it.
func ParseYAML(data []byte) (MachineDefinition, error) {
	var def MachineDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return MachineDefinition{}, fmt.Errorf("failed to parse machine definition: %w", err)
	}

	if err := def.Validate(); err != nil {
		return MachineDefinition{}, err
	}

	return def, nil
}

// ParseJSON parses a machine definition from JSON and validates it.
func ParseJSON(data []byte) (MachineDefinition, error) {
	var def MachineDefinition
	if err := gojson.Unmarshal(data, &def); err != nil {
		return MachineDefinition{}, fmt.Errorf("failed to parse machine definition: %w", err)
	}

	if err := def.Validate(); err != nil {
		return MachineDefinition{}, err
	}

	return def, nil
}

// Validate checks the definition for the invariants the machine enforces
// at declaration time: unique state names, unique from/to pairs, declared
// endpoint references and exactly one declared initial state.
func (d MachineDefinition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("machine definition has no name")
	}
	if len(d.States) == 0 {
		return fmt.Errorf("machine definition %q declares no states", d.Name)
	}

	states := make(map[string]struct{}, len(d.States))
	for _, s := range d.States {
		if s.Name == "" {
			return fmt.Errorf("machine definition %q declares a state without a name", d.Name)
		}
		if _, exists := states[s.Name]; exists {
			return fmt.Errorf("machine definition %q declares state %q twice", d.Name, s.Name)
		}
		states[s.Name] = struct{}{}
	}

	transitions := make(map[string]struct{}, len(d.Transitions))
	for _, t := range d.Transitions {
		if _, exists := states[t.From]; !exists {
			return fmt.Errorf("machine definition %q: transition references undeclared state %q", d.Name, t.From)
		}
		if _, exists := states[t.To]; !exists {
			return fmt.Errorf("machine definition %q: transition references undeclared state %q", d.Name, t.To)
		}

		key := t.From + "2" + t.To
		if _, exists := transitions[key]; exists {
			return fmt.Errorf("machine definition %q declares transition %q twice", d.Name, key)
		}
		transitions[key] = struct{}{}
	}

	if d.InitialState == "" {
		return fmt.Errorf("machine definition %q has no initial state", d.Name)
	}
	if _, exists := states[d.InitialState]; !exists {
		return fmt.Errorf("machine definition %q: initial state %q is not declared", d.Name, d.InitialState)
	}

	return nil
}

// Clone returns a deep copy of the definition so that builders never alias
// caller-owned slices.
func (d MachineDefinition) Clone() MachineDefinition {
	var clone MachineDefinition
	if err := deepcopy.Copy(&clone, &d); err != nil {
		// Copying between identical types cannot fail
		return d
	}

	return clone
}
