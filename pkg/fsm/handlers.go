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
	"reflect"

	"github.com/looplab/fsm"
)

// handlerList is an ordered collection of callbacks deduplicated by the
// identity of the underlying function. Go function values are not
// comparable, so identity is the code pointer of the function value.
type handlerList struct {
	handlers []Callback
}

func handlerKey(h Callback) uintptr {
	return reflect.ValueOf(h).Pointer()
}

func (l *handlerList) contains(h Callback) bool {
	key := handlerKey(h)
	for _, registered := range l.handlers {
		if handlerKey(registered) == key {
			return true
		}
	}

	return false
}

func (l *handlerList) add(h Callback) error {
	if h == nil {
		return fmt.Errorf("%w: state handler", ErrNilHandler)
	}
	if l.contains(h) {
		return ErrHandlerRegistered
	}

	l.handlers = append(l.handlers, h)

	return nil
}

func (l *handlerList) remove(h Callback) {
	if h == nil {
		return
	}

	key := handlerKey(h)
	for i, registered := range l.handlers {
		if handlerKey(registered) == key {
			l.handlers = append(l.handlers[:i], l.handlers[i+1:]...)
			return
		}
	}
}

// invoke runs all handlers synchronously in registration order.
func (l *handlerList) invoke(ctx context.Context, e *fsm.Event) {
	for _, h := range l.handlers {
		h(ctx, e)
	}
}
