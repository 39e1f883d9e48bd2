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

import "weft.dev/go/internal/core/value"

// A Delegate supplies the per-kind handlers and policy hooks for one
// traversal. Each handler receives the Visitor, for sub-visits through
// Visit and Properties, and the classified node. Handlers return either
// a settled Outcome, a pending Outcome, or an error; errors are captured
// on the node's entry and re-raised wherever that entry's result is
// used.
//
// Embed Base and override only the methods of interest: every Base
// handler returns its input unchanged, settled.
type Delegate interface {
	VisitAbsent(v *Visitor, a value.Absent) (Outcome, error)
	VisitNull(v *Visitor, n value.Null) (Outcome, error)
	VisitBool(v *Visitor, b value.Bool) (Outcome, error)
	VisitNumber(v *Visitor, n value.Number) (Outcome, error)
	VisitInt(v *Visitor, n *value.Int) (Outcome, error)
	VisitString(v *Visitor, s value.String) (Outcome, error)
	VisitSymbol(v *Visitor, s *value.Symbol) (Outcome, error)
	VisitClass(v *Visitor, c *value.Class) (Outcome, error)
	VisitFunc(v *Visitor, f *value.Func) (Outcome, error)
	VisitArray(v *Visitor, a *value.Array) (Outcome, error)
	VisitObject(v *Visitor, o *value.Object) (Outcome, error)

	// VisitInstance receives structured values with no more specific
	// classification, Refs minted by the engine, and any Value
	// implementation defined outside the value package.
	VisitInstance(v *Visitor, node value.Value) (Outcome, error)

	VisitError(v *Visitor, e *value.Error) (Outcome, error)

	// VisitProxy is consulted only when the Visitor was configured
	// proxy-aware; otherwise proxies are unwrapped before
	// classification and this handler never runs.
	VisitProxy(v *Visitor, p *value.Proxy) (Outcome, error)

	// ShouldRef decides whether a repeat occurrence of node should be
	// replaced by a Ref. It is consulted at most once per distinct
	// value and memoized. Values that cannot share by identity
	// (absent, null, booleans, numbers, ints) and placeholders minted
	// by the engine are never offered.
	ShouldRef(node value.Value) bool

	// NewRef is called once per minted Def/Ref pair, before the Ref is
	// first visited.
	NewRef(def *Def, ref *Ref)

	// Revisited is called on every second-or-later encounter of node.
	// result is the stored result, or nil when the node is a cycle
	// head whose visit has not finished; ref is nil when the dedup
	// policy declined.
	Revisited(node value.Value, result value.Value, ref *Ref, cycleHead bool)
}

// Base is a Delegate whose handlers all return their input unchanged and
// whose dedup policy always declines. Concrete delegates embed it.
type Base struct{}

var _ Delegate = Base{}

func (Base) VisitAbsent(_ *Visitor, a value.Absent) (Outcome, error)  { return Settled(a), nil }
func (Base) VisitNull(_ *Visitor, n value.Null) (Outcome, error)      { return Settled(n), nil }
func (Base) VisitBool(_ *Visitor, b value.Bool) (Outcome, error)      { return Settled(b), nil }
func (Base) VisitNumber(_ *Visitor, n value.Number) (Outcome, error)  { return Settled(n), nil }
func (Base) VisitInt(_ *Visitor, n *value.Int) (Outcome, error)       { return Settled(n), nil }
func (Base) VisitString(_ *Visitor, s value.String) (Outcome, error)  { return Settled(s), nil }
func (Base) VisitSymbol(_ *Visitor, s *value.Symbol) (Outcome, error) { return Settled(s), nil }
func (Base) VisitClass(_ *Visitor, c *value.Class) (Outcome, error)   { return Settled(c), nil }
func (Base) VisitFunc(_ *Visitor, f *value.Func) (Outcome, error)     { return Settled(f), nil }
func (Base) VisitArray(_ *Visitor, a *value.Array) (Outcome, error)   { return Settled(a), nil }
func (Base) VisitObject(_ *Visitor, o *value.Object) (Outcome, error) { return Settled(o), nil }
func (Base) VisitInstance(_ *Visitor, n value.Value) (Outcome, error) { return Settled(n), nil }
func (Base) VisitError(_ *Visitor, e *value.Error) (Outcome, error)   { return Settled(e), nil }
func (Base) VisitProxy(_ *Visitor, p *value.Proxy) (Outcome, error)   { return Settled(p), nil }

func (Base) ShouldRef(value.Value) bool                     { return false }
func (Base) NewRef(*Def, *Ref)                              {}
func (Base) Revisited(value.Value, value.Value, *Ref, bool) {}
