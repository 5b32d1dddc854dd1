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

	"github.com/looplab/fsm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap/zaptest"
)

var _ = Describe("state handler registration", func() {
	var (
		m   *Machine
		ctx context.Context
	)

	BeforeEach(func() {
		m = NewMachine("handler-machine", zaptest.NewLogger(GinkgoT()).Sugar())
		ctx = context.Background()

		Expect(m.AddState("n1", nil, nil)).To(Succeed())
		Expect(m.AddState("n2", nil, nil)).To(Succeed())
		Expect(m.AddTransition("n1", "n2", nil, nil)).To(Succeed())
		Expect(m.SetInitialState("n1")).To(Succeed())
		Expect(m.Start()).To(Succeed())
	})

	It("should reject registering the same handler twice", func() {
		handler := func(ctx context.Context, e *fsm.Event) {}

		Expect(m.OnEnterState(handler)).To(Succeed())
		Expect(m.OnEnterState(handler)).To(MatchError(ErrHandlerRegistered))

		Expect(m.OnExitState(handler)).To(Succeed())
		Expect(m.OnExitState(handler)).To(MatchError(ErrHandlerRegistered))
	})

	It("should allow re-registration after removal", func() {
		handler := func(ctx context.Context, e *fsm.Event) {}

		Expect(m.OnEnterState(handler)).To(Succeed())
		m.OffEnterState(handler)
		Expect(m.OnEnterState(handler)).To(Succeed())
	})

	It("should ignore removal of a handler that was never registered", func() {
		m.OffEnterState(func(ctx context.Context, e *fsm.Event) {})
		m.OffExitState(func(ctx context.Context, e *fsm.Event) {})
	})

	It("should reject a nil handler", func() {
		Expect(m.OnEnterState(nil)).To(MatchError(ErrNilHandler))
		Expect(m.OnExitState(nil)).To(MatchError(ErrNilHandler))
	})

	It("should fan out in registration order", func() {
		var calls []string

		first := func(ctx context.Context, e *fsm.Event) {
			calls = append(calls, "first:"+e.Dst)
		}
		second := func(ctx context.Context, e *fsm.Event) {
			calls = append(calls, "second:"+e.Dst)
		}

		Expect(m.OnEnterState(first)).To(Succeed())
		Expect(m.OnEnterState(second)).To(Succeed())

		Expect(m.Go(ctx, "n2")).To(Succeed())

		Expect(calls).To(Equal([]string{"first:n2", "second:n2"}))
	})

	It("should stop invoking a handler once removed", func() {
		var calls int

		handler := func(ctx context.Context, e *fsm.Event) {
			calls++
		}

		Expect(m.OnExitState(handler)).To(Succeed())
		m.OffExitState(handler)

		Expect(m.Go(ctx, "n2")).To(Succeed())

		Expect(calls).To(BeZero())
	})
})
