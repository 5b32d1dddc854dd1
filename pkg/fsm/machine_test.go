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
	"errors"
	"testing"

	"github.com/looplab/fsm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap/zaptest"
)

func TestMachine(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Machine Suite")
}

var _ = Describe("Machine", func() {
	var (
		m   *Machine
		ctx context.Context
	)

	BeforeEach(func() {
		m = NewMachine("test-machine", zaptest.NewLogger(GinkgoT()).Sugar())
		ctx = context.Background()
	})

	Context("during the configuration phase", func() {
		It("should reject a duplicate state name", func() {
			Expect(m.AddState("n1", nil, nil)).To(Succeed())
			Expect(m.AddState("n1", nil, nil)).To(MatchError(ErrStateExists))
		})

		It("should reject an initial state that was never declared", func() {
			Expect(m.SetInitialState("ghost")).To(MatchError(ErrStateUnknown))
		})

		It("should reject setting the initial state twice", func() {
			Expect(m.AddState("n1", nil, nil)).To(Succeed())
			Expect(m.AddState("n2", nil, nil)).To(Succeed())
			Expect(m.SetInitialState("n1")).To(Succeed())
			Expect(m.SetInitialState("n2")).To(MatchError(ErrInitialStateSet))
		})

		It("should reject transitions between undeclared states", func() {
			Expect(m.AddState("n1", nil, nil)).To(Succeed())
			Expect(m.AddTransition("n1", "ghost", nil, nil)).To(MatchError(ErrStateUnknown))
			Expect(m.AddTransition("ghost", "n1", nil, nil)).To(MatchError(ErrStateUnknown))
		})

		It("should reject a duplicate transition", func() {
			Expect(m.AddState("n1", nil, nil)).To(Succeed())
			Expect(m.AddState("n2", nil, nil)).To(Succeed())
			Expect(m.AddTransition("n1", "n2", nil, nil)).To(Succeed())
			Expect(m.AddTransition("n1", "n2", nil, nil)).To(MatchError(ErrTransitionExists))
		})

		It("should refuse to start without an initial state", func() {
			Expect(m.AddState("n1", nil, nil)).To(Succeed())
			Expect(m.Start()).To(MatchError(ErrNoInitialState))
		})

		It("should reject runtime operations before start", func() {
			Expect(m.AddState("n1", nil, nil)).To(Succeed())

			Expect(m.Go(ctx, "n1")).To(MatchError(ErrNotStarted))

			_, err := m.Current()
			Expect(err).To(MatchError(ErrNotStarted))

			handler := func(ctx context.Context, e *fsm.Event) {}
			Expect(m.OnEnterState(handler)).To(MatchError(ErrNotStarted))
			Expect(m.OnExitState(handler)).To(MatchError(ErrNotStarted))

			// Deregistration before start is a no-op
			m.OffEnterState(handler)
			m.OffExitState(handler)
		})

		It("should reject a nil error handler", func() {
			Expect(m.SetErrorHandler(nil)).To(MatchError(ErrNilHandler))
		})
	})

	Context("once started", func() {
		var afterCalls int

		BeforeEach(func() {
			afterCalls = 0

			Expect(m.AddState("n1", nil, nil)).To(Succeed())
			Expect(m.AddState("n2", nil, nil)).To(Succeed())
			Expect(m.AddState("n3", nil, nil)).To(Succeed())
			Expect(m.AddTransition("n1", "n2", nil, func(ctx context.Context, e *fsm.Event) {
				afterCalls++
			})).To(Succeed())
			Expect(m.AddTransition("n2", "n3", nil, nil)).To(Succeed())
			Expect(m.SetInitialState("n1")).To(Succeed())
			Expect(m.Start()).To(Succeed())
		})

		It("should reject any further configuration", func() {
			Expect(m.Start()).To(MatchError(ErrAlreadyStarted))
			Expect(m.AddState("n4", nil, nil)).To(MatchError(ErrAlreadyStarted))
			Expect(m.SetInitialState("n1")).To(MatchError(ErrAlreadyStarted))
			Expect(m.AddTransition("n2", "n1", nil, nil)).To(MatchError(ErrAlreadyStarted))
			Expect(m.SetErrorHandler(func(err error) {})).To(MatchError(ErrAlreadyStarted))
		})

		It("should execute a declared transition and fire its after callback once", func() {
			Expect(m.Go(ctx, "n2")).To(Succeed())

			Expect(afterCalls).To(Equal(1))

			current, err := m.Current()
			Expect(err).ToNot(HaveOccurred())
			Expect(current).To(Equal("n2"))
		})

		It("should treat a transition into the current state as a no-op", func() {
			Expect(m.Go(ctx, "n1")).To(Succeed())

			Expect(afterCalls).To(BeZero())

			current, err := m.Current()
			Expect(err).ToNot(HaveOccurred())
			Expect(current).To(Equal("n1"))
		})

		It("should reject a transition into an undeclared state", func() {
			Expect(m.Go(ctx, "ghost")).To(MatchError(ErrStateUnknown))
		})

		It("should reject a transition the engine forbids from the current state", func() {
			// n2 -> n3 is declared, but the machine is still in n1
			Expect(m.Go(ctx, "n3")).To(MatchError(ErrTransitionForbidden))

			current, err := m.Current()
			Expect(err).ToNot(HaveOccurred())
			Expect(current).To(Equal("n1"))
		})
	})

	Context("when the engine reports an error during delegation", func() {
		It("should route it to the error handler instead of the caller", func() {
			var handled []error

			cancelErr := errors.New("payment backend unavailable")

			Expect(m.AddState("n1", nil, nil)).To(Succeed())
			Expect(m.AddState("n2", nil, nil)).To(Succeed())
			Expect(m.AddTransition("n1", "n2", func(ctx context.Context, e *fsm.Event) {
				e.Cancel(cancelErr)
			}, nil)).To(Succeed())
			Expect(m.SetInitialState("n1")).To(Succeed())
			Expect(m.SetErrorHandler(func(err error) {
				handled = append(handled, err)
			})).To(Succeed())
			Expect(m.Start()).To(Succeed())

			// The before callback cancels, so the engine rejects the
			// transition after delegation has begun.
			Expect(m.Go(ctx, "n2")).To(Succeed())

			Expect(handled).To(HaveLen(1))
			Expect(handled[0]).To(MatchError(ContainSubstring(cancelErr.Error())))

			current, err := m.Current()
			Expect(err).ToNot(HaveOccurred())
			Expect(current).To(Equal("n1"))
		})
	})

	Context("callback ordering", func() {
		It("should run before, leave, enter, after in that order", func() {
			var sequence []string

			record := func(step string) Callback {
				return func(ctx context.Context, e *fsm.Event) {
					sequence = append(sequence, step)
				}
			}

			Expect(m.AddState("n1", nil, record("leave-n1"))).To(Succeed())
			Expect(m.AddState("n2", record("enter-n2"), nil)).To(Succeed())
			Expect(m.AddTransition("n1", "n2", record("before"), record("after"))).To(Succeed())
			Expect(m.SetInitialState("n1")).To(Succeed())
			Expect(m.Start()).To(Succeed())

			Expect(m.OnExitState(record("exit-handler"))).To(Succeed())
			Expect(m.OnEnterState(record("enter-handler"))).To(Succeed())

			Expect(m.Go(ctx, "n2")).To(Succeed())

			Expect(sequence).To(Equal([]string{
				"before",
				"leave-n1",
				"exit-handler",
				"enter-n2",
				"enter-handler",
				"after",
			}))
		})
	})
})
