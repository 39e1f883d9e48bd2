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

// Package visit implements a memoizing depth-first traversal engine over
// value graphs.
//
// A Visitor is bound to one root value and one Delegate. It dispatches
// every reachable value to the Delegate's handler for that value's kind,
// evaluates each distinct value (by identity) at most once, detects
// cycles, and, when the Delegate's dedup policy asks for it, replaces
// repeat occurrences with Def/Ref placeholder pairs. Handlers may finish
// immediately or return a pending Future; the three completion methods
// (Result, Outcome, Done) expose the same run under strict-synchronous,
// best-effort, and always-asynchronous contracts.
//
// A Visitor is built for a single run over a single root: construct a
// fresh one per value graph. The traversal itself is cooperative and
// runs on the calling goroutine; only Future settlement may arrive from
// elsewhere.
package visit

import (
	"sync"

	"weft.dev/go/internal/core/value"
)

// Config adjusts engine behavior. The zero value is ready to use.
type Config struct {
	// ProxyAware routes Proxy values to the VisitProxy handler instead
	// of transparently unwrapping them before classification.
	ProxyAware bool
}

// A Visitor traverses the graph reachable from one root value.
type Visitor struct {
	cfg  Config
	root value.Value
	d    Delegate

	// mu guards the tables and entry transitions below. It is held
	// only across those mutations, never across delegate calls, so
	// handlers are free to re-enter Visit.
	mu       sync.Mutex
	entries  map[any]*entry
	defs     []*Def
	byResult map[any]*Ref

	once    sync.Once
	started bool
	rootOut Outcome
	rootErr error

	doneOnce sync.Once
	doneF    *Future
}

// New returns a Visitor over root that dispatches to d. A nil d behaves
// like Base: every handler passes its input through unchanged.
//
// Values are tracked by identity, so every value reachable from root
// must be usable as a map key; all types in the value package are.
func New(root value.Value, d Delegate, cfg Config) *Visitor {
	if d == nil {
		d = Base{}
	}
	return &Visitor{
		cfg:      cfg,
		root:     root,
		d:        d,
		entries:  make(map[any]*entry),
		byResult: make(map[any]*Ref),
	}
}

type entryState uint8

const (
	entryActive entryState = iota
	entryDone
	entryFailed
)

// An entry is the per-distinct-value bookkeeping record for one run. It
// is created on first encounter and only ever looked up afterwards; its
// state moves active→done or active→failed, never backward.
type entry struct {
	value  value.Value
	state  entryState
	result value.Value
	err    error

	// future is the entry's own completion, created when the handler
	// suspends. Visit hands out this future, never the handler's, so a
	// later failure of the entry is observed by every waiter.
	future *Future

	def *Def
	ref *Ref

	// refAsked memoizes the dedup policy's answer in refWanted.
	refAsked  bool
	refWanted bool
}

// identity keys for values that share by content rather than allocation.
type (
	nanKey struct{}
	intKey struct{ text string }
)

// identityOf returns the map key under which v's entry lives. Scalars
// key by value (every NaN folds to one key, as do positive and negative
// zero), Ints by their canonical decimal text, and everything else by
// pointer.
func identityOf(v value.Value) any {
	switch x := v.(type) {
	case value.Number:
		if x != x {
			return nanKey{}
		}
	case *value.Int:
		return intKey{text: x.String()}
	}
	return v
}

// Visit dispatches one value through the Delegate, reusing the stored
// result if this value was seen before in the run. This is the sub-visit
// helper handlers call to descend; the completion methods use it for the
// root.
//
// The returned Outcome is settled if the value's evaluation finished
// synchronously, and pending otherwise. An error return means the
// value's entry is failed: the same error is re-raised for every later
// use of that entry.
func (vis *Visitor) Visit(node value.Value) (Outcome, error) {
	if node == nil {
		node = value.Absent{}
	}
	key := identityOf(node)

	vis.mu.Lock()
	e, ok := vis.entries[key]
	if !ok {
		e = &entry{value: node}
		vis.entries[key] = e
		vis.mu.Unlock()
		return vis.evaluate(e)
	}
	state, result, err := e.state, e.result, e.err
	vis.mu.Unlock()

	switch state {
	case entryFailed:
		return Outcome{}, err
	case entryDone:
		return vis.revisitDone(e, result)
	default:
		return vis.revisitActive(e)
	}
}

// evaluate runs the handler for a freshly created entry and wires its
// outcome into the entry's lifecycle.
func (vis *Visitor) evaluate(e *entry) (Outcome, error) {
	out, err := vis.dispatch(e.value)
	if err != nil {
		vis.failEntry(e, err)
		return Outcome{}, err
	}
	if out.IsSettled() {
		vis.finishEntry(e, out.Value())
		// The entry may have failed mid-handler (a deadlock on this
		// same value) even though the handler returned normally.
		return vis.entryOutcome(e)
	}

	// The handler suspended. The entry finishes when the handler's
	// future settles, unless something finished it first.
	vis.mu.Lock()
	if e.state != entryActive {
		vis.mu.Unlock()
		return vis.entryOutcome(e)
	}
	f := e.future
	if f == nil {
		f = NewFuture()
		e.future = f
	}
	vis.mu.Unlock()

	out.Future().OnSettle(func(res value.Value, err error) {
		if err != nil {
			vis.failEntry(e, err)
			return
		}
		vis.finishEntry(e, res)
	})

	// The handler's future may have settled inline above.
	vis.mu.Lock()
	state := e.state
	vis.mu.Unlock()
	if state != entryActive {
		return vis.entryOutcome(e)
	}
	return Pending(f), nil
}

// entryOutcome reads an entry's settled state into a Visit return.
func (vis *Visitor) entryOutcome(e *entry) (Outcome, error) {
	vis.mu.Lock()
	state, result, err, f := e.state, e.result, e.err, e.future
	vis.mu.Unlock()
	switch state {
	case entryFailed:
		return Outcome{}, err
	case entryDone:
		return Settled(result), nil
	}
	return Pending(f), nil
}

// dispatch classifies node and invokes the matching handler. Handler
// panics surface as handler errors rather than tearing down the run.
func (vis *Visitor) dispatch(node value.Value) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = Outcome{}, errHandlerPanic(node, r)
		}
	}()

	target := node
	if !vis.cfg.ProxyAware {
		for {
			p, ok := target.(*value.Proxy)
			if !ok {
				break
			}
			target = p.Unwrap()
		}
	}

	switch value.KindOf(target) {
	case value.AbsentKind:
		return vis.d.VisitAbsent(vis, value.Absent{})
	case value.NullKind:
		return vis.d.VisitNull(vis, value.Null{})
	case value.BoolKind:
		return vis.d.VisitBool(vis, target.(value.Bool))
	case value.NumberKind:
		return vis.d.VisitNumber(vis, target.(value.Number))
	case value.IntKind:
		return vis.d.VisitInt(vis, target.(*value.Int))
	case value.StringKind:
		return vis.d.VisitString(vis, target.(value.String))
	case value.SymbolKind:
		return vis.d.VisitSymbol(vis, target.(*value.Symbol))
	case value.ClassKind:
		return vis.d.VisitClass(vis, target.(*value.Class))
	case value.FuncKind:
		return vis.d.VisitFunc(vis, target.(*value.Func))
	case value.ArrayKind:
		return vis.d.VisitArray(vis, target.(*value.Array))
	case value.ObjectKind:
		return vis.d.VisitObject(vis, target.(*value.Object))
	case value.ErrorKind:
		return vis.d.VisitError(vis, target.(*value.Error))
	case value.ProxyKind:
		return vis.d.VisitProxy(vis, target.(*value.Proxy))
	default:
		return vis.d.VisitInstance(vis, target)
	}
}

// revisitDone handles a repeat encounter of a finished value: dedup into
// a Ref if the policy wants one, otherwise reuse the stored result.
func (vis *Visitor) revisitDone(e *entry, result value.Value) (Outcome, error) {
	if !vis.wantRef(e) {
		vis.d.Revisited(e.value, result, nil, false)
		return Settled(result), nil
	}
	ref, minted := vis.ensureRef(e)
	if minted {
		vis.d.NewRef(e.def, ref)
	}
	vis.d.Revisited(e.value, result, ref, false)
	return vis.Visit(ref)
}

// revisitActive handles re-encountering a value whose own visit has not
// finished: a cycle, or sharing with a still-pending sibling. With the
// policy's consent the cycle is broken by a valueless Def and its Ref;
// otherwise the entry deadlocks.
func (vis *Visitor) revisitActive(e *entry) (Outcome, error) {
	if vis.wantRef(e) {
		ref, minted := vis.ensureRef(e)
		if minted {
			vis.d.NewRef(e.def, ref)
		}
		vis.d.Revisited(e.value, nil, ref, true)
		return vis.Visit(ref)
	}
	err := errDeadlock(e.value)
	vis.failEntry(e, err)
	return Outcome{}, err
}

// wantRef memoizes the dedup policy's answer for e. Kinds that cannot
// share by identity, and placeholders the engine minted itself, are
// never offered to the policy.
func (vis *Visitor) wantRef(e *entry) bool {
	switch value.KindOf(e.value) {
	case value.AbsentKind, value.NullKind, value.BoolKind,
		value.NumberKind, value.IntKind:
		return false
	}
	if _, ok := e.value.(Placeholder); ok {
		return false
	}

	vis.mu.Lock()
	asked, want := e.refAsked, e.refWanted
	vis.mu.Unlock()
	if asked {
		return want
	}
	want = vis.d.ShouldRef(e.value)
	vis.mu.Lock()
	e.refAsked = true
	e.refWanted = want
	vis.mu.Unlock()
	return want
}

// ensureRef returns e's Ref, minting the Def/Ref pair with the next
// creation-order index if this is the first request. A pair minted for a
// finished entry carries the result immediately; one minted mid-cycle
// stays valueless until the entry finishes.
func (vis *Visitor) ensureRef(e *entry) (*Ref, bool) {
	vis.mu.Lock()
	defer vis.mu.Unlock()

	if e.ref != nil {
		return e.ref, false
	}
	d := &Def{index: len(vis.defs)}
	r := &Ref{def: d}
	if e.state == entryDone {
		d.val, d.ok = e.result, true
		vis.byResult[identityOf(e.result)] = r
	}
	e.def, e.ref = d, r
	vis.defs = append(vis.defs, d)
	return r, true
}

// finishEntry moves e to finished-ok, resolves its Def and future, and
// returns the normalized result. Late calls on a non-active entry are
// ignored: state never moves backward.
func (vis *Visitor) finishEntry(e *entry, res value.Value) value.Value {
	if res == nil {
		res = value.Absent{}
	}
	vis.mu.Lock()
	if e.state != entryActive {
		res := e.result
		vis.mu.Unlock()
		return res
	}
	e.state = entryDone
	e.result = res
	if e.def != nil && !e.def.ok {
		e.def.val, e.def.ok = res, true
	}
	if e.ref != nil {
		vis.byResult[identityOf(res)] = e.ref
	}
	f := e.future
	vis.mu.Unlock()

	if f != nil {
		f.Resolve(res)
	}
	return res
}

// failEntry moves e to finished-error and rejects its future. Late calls
// on a non-active entry are ignored.
func (vis *Visitor) failEntry(e *entry, err error) {
	vis.mu.Lock()
	if e.state != entryActive {
		vis.mu.Unlock()
		return
	}
	e.state = entryFailed
	e.err = err
	f := e.future
	vis.mu.Unlock()

	if f != nil {
		f.Reject(err)
	}
}

// run starts the traversal on first use and memoizes its outcome; every
// completion method funnels through here, so repeated calls share one
// computation.
func (vis *Visitor) run() (Outcome, error) {
	vis.once.Do(func() {
		vis.rootOut, vis.rootErr = vis.Visit(vis.root)
		vis.started = true
	})
	return vis.rootOut, vis.rootErr
}

// Result returns the root's result strictly synchronously. If any
// handler in the run is still pending at the moment of the call, Result
// fails with an IncompleteError; handler and deadlock errors re-raise
// as-is.
func (vis *Visitor) Result() (value.Value, error) {
	out, err := vis.run()
	if err != nil {
		return nil, err
	}
	if out.IsSettled() {
		return out.Value(), nil
	}
	if res, ferr, done := out.Future().peek(); done {
		if ferr != nil {
			return nil, ferr
		}
		return res, nil
	}
	return nil, errIncomplete()
}

// Outcome returns the run's completion, settled whenever the result is
// already available and pending otherwise. Callers that cannot know
// statically whether a run finishes synchronously use this form.
func (vis *Visitor) Outcome() (Outcome, error) {
	out, err := vis.run()
	if err != nil {
		return Outcome{}, err
	}
	if out.IsSettled() {
		return out, nil
	}
	if res, ferr, done := out.Future().peek(); done {
		if ferr != nil {
			return Outcome{}, ferr
		}
		return Settled(res), nil
	}
	return out, nil
}

// Done returns the run's completion as a Future in every case, already
// settled when the result was available immediately. Repeated calls
// return the same Future.
func (vis *Visitor) Done() *Future {
	out, err := vis.run()
	vis.doneOnce.Do(func() {
		switch {
		case err != nil:
			vis.doneF = rejectedFuture(err)
		case out.IsSettled():
			vis.doneF = resolvedFuture(out.Value())
		default:
			vis.doneF = out.Future()
		}
	})
	return vis.doneF
}

// finished reports whether the run has fully settled, successfully or
// not.
func (vis *Visitor) finished() bool {
	if !vis.started {
		return false
	}
	if vis.rootErr != nil || vis.rootOut.IsSettled() {
		return true
	}
	return vis.rootOut.Future().Done()
}

// ResultOf reports what node resolved to during the finished run.
// Querying before the run finished, or for a value the run never
// reached, is a usage error; a node that failed re-raises its stored
// error.
func (vis *Visitor) ResultOf(node value.Value) (value.Value, error) {
	if !vis.finished() {
		return nil, errUsage("ResultOf called before the run finished")
	}
	if node == nil {
		node = value.Absent{}
	}
	vis.mu.Lock()
	e := vis.entries[identityOf(node)]
	var (
		state  entryState
		result value.Value
		err    error
	)
	if e != nil {
		state, result, err = e.state, e.result, e.err
	}
	vis.mu.Unlock()

	switch {
	case e == nil:
		return nil, errUsage("value was never visited")
	case state == entryFailed:
		return nil, err
	case state == entryActive:
		// Possible for a detached sibling of the failure that ended
		// the run.
		return nil, errIncomplete()
	}
	return result, nil
}

// HasRefs reports whether the run minted any Def/Ref pairs. It panics if
// the run has not finished.
func (vis *Visitor) HasRefs() bool {
	vis.mustFinish("HasRefs")
	vis.mu.Lock()
	defer vis.mu.Unlock()
	return len(vis.defs) > 0
}

// RefFor returns the Ref whose Def resolved to result, or nil if that
// result value was never deduplicated. It panics if the run has not
// finished.
func (vis *Visitor) RefFor(result value.Value) *Ref {
	vis.mustFinish("RefFor")
	vis.mu.Lock()
	defer vis.mu.Unlock()
	return vis.byResult[identityOf(result)]
}

func (vis *Visitor) mustFinish(op string) {
	if !vis.finished() {
		panic("visit: " + op + " called before the run finished")
	}
}
