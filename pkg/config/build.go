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

	"go.uber.org/zap"

	"github.com/stateflow-io/stateflow/pkg/fsm"
)

// Build declares the definition's states and transitions on a fresh
// machine. The machine is returned unstarted so the caller can attach
// callbacks and handlers before Start.
func Build(def MachineDefinition, log *zap.SugaredLogger) (*fsm.Machine, error) {
	def = def.Clone()

	if err := def.Validate(); err != nil {
		return nil, err
	}

	machine := fsm.NewMachine(def.Name, log)

	for _, s := range def.States {
		if err := machine.AddState(s.Name, nil, nil); err != nil {
			return nil, fmt.Errorf("failed to declare state %q: %w", s.Name, err)
		}
	}

	for _, t := range def.Transitions {
		if err := machine.AddTransition(t.From, t.To, nil, nil); err != nil {
			return nil, fmt.Errorf("failed to declare transition %q -> %q: %w", t.From, t.To, err)
		}
	}

	if err := machine.SetInitialState(def.InitialState); err != nil {
		return nil, fmt.Errorf("failed to set initial state %q: %w", def.InitialState, err)
	}

	return machine, nil
}
