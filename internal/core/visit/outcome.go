// Copyright 2025 The Weft Authors
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

package visit

import (
	"context"
	"sync"

	"weft.dev/go/internal/core/value"
)

// An Outcome is the result of dispatching one value: either a settled
// value or a computation that is still pending. Handlers return an
// Outcome, and Visit returns one, so "this value happens to be a Future"
// and "this visit has not finished" can never be confused: the former is
// Settled, the latter Pending.
type Outcome struct {
	v value.Value
	f *Future
}

// Settled returns an Outcome holding an immediately available value.
func Settled(v value.Value) Outcome { return Outcome{v: v} }

// Pending returns an Outcome that completes when f settles.
func Pending(f *Future) Outcome {
	if f == nil {
		panic("visit: Pending with nil future")
	}
	return Outcome{f: f}
}

// IsSettled reports whether the outcome carries an immediate value.
func (o Outcome) IsSettled() bool { return o.f == nil }

// Value returns the settled value. It panics on a pending outcome.
func (o Outcome) Value() value.Value {
	if o.f != nil {
		panic("visit: Value on a pending outcome")
	}
	return o.v
}

// Future returns the pending computation. It panics on a settled outcome.
func (o Outcome) Future() *Future {
	if o.f == nil {
		panic("visit: Future on a settled outcome")
	}
	return o.f
}

// A Future is a single-assignment completion cell: it is resolved or
// rejected exactly once, and late settle attempts are ignored so that
// state never moves backward. Handlers that cannot produce a value
// immediately return Pending around a Future they settle later.
//
// Settling may happen from any goroutine; subscriber callbacks run on
// the settling goroutine (or inline, if the future is already settled
// when the subscriber is added).
type Future struct {
	mu   sync.Mutex
	done bool
	val  value.Value
	err  error
	subs []func(value.Value, error)
	ch   chan struct{}
}

// NewFuture returns an unsettled Future.
func NewFuture() *Future { return &Future{} }

func resolvedFuture(v value.Value) *Future {
	return &Future{done: true, val: v}
}

func rejectedFuture(err error) *Future {
	return &Future{done: true, err: err}
}

// Resolve settles the future with a value. It is a no-op if the future
// has already settled.
func (f *Future) Resolve(v value.Value) { f.settle(v, nil) }

// Reject settles the future with an error. It is a no-op if the future
// has already settled.
func (f *Future) Reject(err error) {
	if err == nil {
		panic("visit: Reject with nil error")
	}
	f.settle(nil, err)
}

func (f *Future) settle(v value.Value, err error) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return
	}
	f.done = true
	f.val = v
	f.err = err
	subs := f.subs
	f.subs = nil
	ch := f.ch
	f.mu.Unlock()

	if ch != nil {
		close(ch)
	}
	for _, fn := range subs {
		fn(v, err)
	}
}

// Done reports whether the future has settled.
func (f *Future) Done() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// Result returns the settled value or error. It panics if the future is
// still pending; use Done, OnSettle or Wait first.
func (f *Future) Result() (value.Value, error) {
	v, err, done := f.peek()
	if !done {
		panic("visit: Result on a pending future")
	}
	return v, err
}

func (f *Future) peek() (value.Value, error, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.val, f.err, f.done
}

// OnSettle registers fn to run once the future settles. If it already
// has, fn runs inline before OnSettle returns.
func (f *Future) OnSettle(fn func(value.Value, error)) {
	f.mu.Lock()
	if f.done {
		v, err := f.val, f.err
		f.mu.Unlock()
		fn(v, err)
		return
	}
	f.subs = append(f.subs, fn)
	f.mu.Unlock()
}

// Wait blocks until the future settles or ctx is done, whichever comes
// first.
func (f *Future) Wait(ctx context.Context) (value.Value, error) {
	f.mu.Lock()
	if f.done {
		v, err := f.val, f.err
		f.mu.Unlock()
		return v, err
	}
	if f.ch == nil {
		f.ch = make(chan struct{})
	}
	ch := f.ch
	f.mu.Unlock()

	select {
	case <-ch:
		v, err, _ := f.peek()
		return v, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
