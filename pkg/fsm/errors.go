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

import "errors"

var (
	// ErrAlreadyStarted is returned when a configuration mutator is called
	// after the machine has been started
	ErrAlreadyStarted = errors.New("machine already started")

	// ErrNotStarted is returned when a runtime operation is called before
	// the machine has been started
	ErrNotStarted = errors.New("machine not started")

	// ErrStateExists is returned when a state name is declared twice
	ErrStateExists = errors.New("state already declared")

	// ErrStateUnknown is returned when an operation references a state
	// that was never declared
	ErrStateUnknown = errors.New("state not declared")

	// ErrTransitionExists is returned when the same from/to pair is
	// declared twice
	ErrTransitionExists = errors.New("transition already declared")

	// ErrTransitionForbidden is returned by Go when the engine reports
	// that no declared transition leads from the current state to the
	// requested one
	ErrTransitionForbidden = errors.New("transition forbidden from current state")

	// ErrInitialStateSet is returned when the initial state is set twice
	ErrInitialStateSet = errors.New("initial state already set")

	// ErrNoInitialState is returned by Start when no initial state was set
	ErrNoInitialState = errors.New("no initial state set")

	// ErrHandlerRegistered is returned when the same handler function is
	// registered twice on the same list
	ErrHandlerRegistered = errors.New("handler already registered")

	// ErrNilHandler is returned when a nil function is passed where a
	// callback is required
	ErrNilHandler = errors.New("handler must not be nil")
)
