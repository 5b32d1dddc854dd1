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

package fsm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/stateflow-io/stateflow/pkg/logger"
	"github.com/stateflow-io/stateflow/pkg/metrics"
)

// Callback is invoked synchronously while the engine executes a transition.
// The event carries the transition name, source and destination state.
type Callback = fsm.Callback

// ErrorHandler receives errors the engine reports during a delegated
// transition. It is invoked instead of surfacing the error to the caller.
type ErrorHandler func(err error)

// Machine is a declarative wrapper around the looplab/fsm engine.
// States, transitions and callbacks are collected during the configuration
// phase; Start translates them into the engine's construction shape and
// freezes the configuration. Afterwards only transition requests and
// handler (de)registration are accepted.
//
// A Machine is meant for single-threaded, synchronous use.
type Machine struct {
	name string
	id   string

	logger *zap.SugaredLogger

	// Configuration phase, keyed by state name and transition name
	states      map[string]stateSpec
	transitions map[string]transitionSpec
	initial     string

	// Invoked for errors the engine reports during a delegated transition
	errorHandler ErrorHandler

	// Registered enter/exit handlers, invoked in registration order after
	// the per-state callbacks
	enterHandlers handlerList
	exitHandlers  handlerList

	// fsm is the engine instance. It is nil until Start and never replaced
	// afterwards.
	fsm *fsm.FSM
}

type stateSpec struct {
	name    string
	onEnter Callback
	onLeave Callback
}

type transitionSpec struct {
	name     string
	from     string
	to       string
	onBefore Callback
	onAfter  Callback
}

// transitionName builds the engine event name for a from/to pair.
// The pair is the unique key of a transition.
func transitionName(from, to string) string {
	return from + "2" + to
}

// NewMachine creates an unstarted machine. If log is nil, a component
// logger is derived from the global logger.
func NewMachine(name string, log *zap.SugaredLogger) *Machine {
	if log == nil {
		log = logger.For(logger.ComponentMachine)
	}

	m := &Machine{
		name:        name,
		id:          uuid.NewString(),
		logger:      log,
		states:      make(map[string]stateSpec),
		transitions: make(map[string]transitionSpec),
	}

	m.errorHandler = func(err error) {
		metrics.IncErrorCount(metrics.ComponentMachine, m.name)
		m.logger.Errorf("Machine %s (%s): engine rejected transition: %v", m.name, m.id, err)
	}

	metrics.InitErrorCounter(metrics.ComponentMachine, name)

	return m
}

// Name returns the machine name given at construction.
func (m *Machine) Name() string {
	return m.name
}

// ID returns the unique instance ID, used to tell apart machines with the
// same name in log output.
func (m *Machine) ID() string {
	return m.id
}

func (m *Machine) started() bool {
	return m.fsm != nil
}

// AddState declares a state. onEnter and onLeave are optional and may be
// nil; when set they run whenever the engine enters or leaves the state.
func (m *Machine) AddState(name string, onEnter, onLeave Callback) error {
	if m.started() {
		return fmt.Errorf("%w: cannot add state %q to machine %s", ErrAlreadyStarted, name, m.name)
	}
	if _, exists := m.states[name]; exists {
		return fmt.Errorf("%w: %q", ErrStateExists, name)
	}

	m.states[name] = stateSpec{name: name, onEnter: onEnter, onLeave: onLeave}

	return nil
}

// SetInitialState declares the state the engine starts in. Exactly one
// initial state must be set before Start.
func (m *Machine) SetInitialState(name string) error {
	if m.started() {
		return fmt.Errorf("%w: cannot set initial state of machine %s", ErrAlreadyStarted, m.name)
	}
	if _, exists := m.states[name]; !exists {
		return fmt.Errorf("%w: %q", ErrStateUnknown, name)
	}
	if m.initial != "" {
		return fmt.Errorf("%w: %q", ErrInitialStateSet, m.initial)
	}

	m.initial = name

	return nil
}

// AddTransition declares a directed edge between two previously declared
// states. onBefore and onAfter are optional and may be nil; when set they
// run before and after the engine executes the transition.
func (m *Machine) AddTransition(from, to string, onBefore, onAfter Callback) error {
	if m.started() {
		return fmt.Errorf("%w: cannot add transition %q to machine %s", ErrAlreadyStarted, transitionName(from, to), m.name)
	}
	if _, exists := m.states[from]; !exists {
		return fmt.Errorf("%w: %q", ErrStateUnknown, from)
	}
	if _, exists := m.states[to]; !exists {
		return fmt.Errorf("%w: %q", ErrStateUnknown, to)
	}

	name := transitionName(from, to)
	if _, exists := m.transitions[name]; exists {
		return fmt.Errorf("%w: %q", ErrTransitionExists, name)
	}

	m.transitions[name] = transitionSpec{name: name, from: from, to: to, onBefore: onBefore, onAfter: onAfter}

	return nil
}

// SetErrorHandler replaces the default handler for errors the engine
// reports during a delegated transition. The default handler logs the
// error and increments the machine's error counter.
func (m *Machine) SetErrorHandler(fn ErrorHandler) error {
	if m.started() {
		return fmt.Errorf("%w: cannot set error handler of machine %s", ErrAlreadyStarted, m.name)
	}
	if fn == nil {
		return fmt.Errorf("%w: error handler", ErrNilHandler)
	}

	m.errorHandler = fn

	return nil
}

// Start translates the collected configuration into the engine's
// construction shape and instantiates it. The generic enter/leave and
// before/after hooks dispatch to the per-state and per-transition
// callbacks and fan out over the registered handler lists.
//
// Start fails if the machine is already running or no initial state was
// set. Afterwards the configuration is frozen.
func (m *Machine) Start() error {
	if m.started() {
		return fmt.Errorf("%w: machine %s", ErrAlreadyStarted, m.name)
	}
	if m.initial == "" {
		return fmt.Errorf("%w: machine %s", ErrNoInitialState, m.name)
	}

	events := make([]fsm.EventDesc, 0, len(m.transitions))
	for _, t := range m.transitions {
		events = append(events, fsm.EventDesc{Name: t.name, Src: []string{t.from}, Dst: t.to})
	}

	m.fsm = fsm.NewFSM(
		m.initial,
		fsm.Events(events),
		fsm.Callbacks{
			"before_event": func(ctx context.Context, e *fsm.Event) {
				if t, ok := m.transitions[e.Event]; ok && t.onBefore != nil {
					t.onBefore(ctx, e)
				}
			},
			"leave_state": func(ctx context.Context, e *fsm.Event) {
				if s, ok := m.states[e.Src]; ok && s.onLeave != nil {
					s.onLeave(ctx, e)
				}
				m.exitHandlers.invoke(ctx, e)
			},
			"enter_state": func(ctx context.Context, e *fsm.Event) {
				if s, ok := m.states[e.Dst]; ok && s.onEnter != nil {
					s.onEnter(ctx, e)
				}
				m.enterHandlers.invoke(ctx, e)
			},
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if t, ok := m.transitions[e.Event]; ok && t.onAfter != nil {
					t.onAfter(ctx, e)
				}
			},
		},
	)

	m.logger.Infof("Machine %s (%s) started in state %s", m.name, m.id, m.initial)

	return nil
}

// Go requests a transition into the given state. It is a no-op when the
// machine is already in that state. The request is rejected before
// delegation when the target state was never declared or the engine
// reports the transition forbidden from the current state.
//
// Errors the engine reports during the delegated execution itself are
// routed to the error handler instead of being returned.
func (m *Machine) Go(ctx context.Context, to string) error {
	if !m.started() {
		return fmt.Errorf("%w: cannot transition machine %s", ErrNotStarted, m.name)
	}
	if _, exists := m.states[to]; !exists {
		return fmt.Errorf("%w: %q", ErrStateUnknown, to)
	}
	if m.fsm.Is(to) {
		m.logger.Debugf("Machine %s already in state %s", m.name, to)
		return nil
	}

	event := transitionName(m.fsm.Current(), to)
	if m.fsm.Cannot(event) {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionForbidden, m.fsm.Current(), to)
	}

	if err := m.fsm.Event(ctx, event); err != nil {
		m.errorHandler(err)
		return nil
	}

	metrics.ObserveTransition(m.name, event)

	return nil
}

// Current returns the engine's current state name.
func (m *Machine) Current() (string, error) {
	if !m.started() {
		return "", fmt.Errorf("%w: machine %s has no current state", ErrNotStarted, m.name)
	}

	return m.fsm.Current(), nil
}

// OnEnterState registers a handler invoked after every state entry,
// following the state's own onEnter callback. Fails when the same
// function is already registered.
func (m *Machine) OnEnterState(h Callback) error {
	if !m.started() {
		return fmt.Errorf("%w: cannot register enter handler on machine %s", ErrNotStarted, m.name)
	}

	return m.enterHandlers.add(h)
}

// OffEnterState removes a previously registered enter handler. Removing a
// handler that is not registered is a no-op.
func (m *Machine) OffEnterState(h Callback) {
	if !m.started() {
		return
	}

	m.enterHandlers.remove(h)
}

// OnExitState registers a handler invoked on every state exit, following
// the state's own onLeave callback. Fails when the same function is
// already registered.
func (m *Machine) OnExitState(h Callback) error {
	if !m.started() {
		return fmt.Errorf("%w: cannot register exit handler on machine %s", ErrNotStarted, m.name)
	}

	return m.exitHandlers.add(h)
}

// OffExitState removes a previously registered exit handler. Removing a
// handler that is not registered is a no-op.
func (m *Machine) OffExitState(h Callback) {
	if !m.started() {
		return
	}

	m.exitHandlers.remove(h)
}
