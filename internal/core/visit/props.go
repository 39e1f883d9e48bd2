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
	"strconv"
	"sync"

	"weft.dev/go/internal/core/value"
)

// Shape selects the output form of Properties.
type Shape uint8

const (
	// Mirror rebuilds a container of the input's shape: an array with
	// the original holes intact, or a bare keyed aggregate.
	Mirror Shape = iota

	// Pairs produces an array of two-element [key, value] arrays.
	// Array indices become decimal-string keys; symbol keys stay
	// symbols.
	Pairs
)

// Properties visits every own entry of a container, string-keyed
// entries first in enumeration order followed by symbol-keyed entries,
// and reassembles the results in the requested shape. Sparse array holes
// are not own entries: Mirror keeps them as holes, Pairs omits them.
//
// The outcome settles synchronously when every sub-visit settled
// synchronously; otherwise it is pending until exactly the pending
// sub-visits finish. The first sub-visit error is returned after all
// entries have been launched; sibling sub-visits are not aborted.
func (vis *Visitor) Properties(container value.Value, shape Shape) (Outcome, error) {
	switch c := container.(type) {
	case *value.Array:
		return vis.arrayProps(c, shape)
	case *value.Object:
		return vis.objectProps(c, shape)
	}
	return Outcome{}, errUsage("cannot enumerate properties of %s value", value.KindOf(container))
}

func (vis *Visitor) arrayProps(a *value.Array, shape Shape) (Outcome, error) {
	b := &propBuilder{vis: vis}

	if shape == Pairs {
		pairs := &value.Array{}
		for i, el := range a.Elems {
			if el == nil {
				continue
			}
			pair := value.ArrayOf(value.String(strconv.Itoa(i)), nil)
			pairs.Elems = append(pairs.Elems, pair)
			b.visit(el, func(res value.Value) { pair.Elems[1] = res })
		}
		return b.finish(pairs)
	}

	out := value.NewArray(a.Len())
	for i, el := range a.Elems {
		if el == nil {
			continue
		}
		b.visit(el, func(res value.Value) { out.Elems[i] = res })
	}
	return b.finish(out)
}

func (vis *Visitor) objectProps(o *value.Object, shape Shape) (Outcome, error) {
	b := &propBuilder{vis: vis}

	if shape == Pairs {
		pairs := &value.Array{}
		for _, fld := range o.Fields() {
			pair := value.ArrayOf(value.String(fld.Name), nil)
			pairs.Elems = append(pairs.Elems, pair)
			b.visit(fld.Value, func(res value.Value) { pair.Elems[1] = res })
		}
		for _, sf := range o.SymFields() {
			pair := value.ArrayOf(sf.Sym, nil)
			pairs.Elems = append(pairs.Elems, pair)
			b.visit(sf.Value, func(res value.Value) { pair.Elems[1] = res })
		}
		return b.finish(pairs)
	}

	out := value.NewObject()
	for _, fld := range o.Fields() {
		name := fld.Name
		out.Set(name, nil) // reserve the slot so enumeration order holds
		b.visit(fld.Value, func(res value.Value) { out.Set(name, res) })
	}
	for _, sf := range o.SymFields() {
		sym := sf.Sym
		out.SetSym(sym, nil)
		b.visit(sf.Value, func(res value.Value) { out.SetSym(sym, res) })
	}
	return b.finish(out)
}

// A propBuilder accumulates the sub-visits of one Properties call:
// settled results are stored immediately, pending ones are parked as
// slots for the assembly barrier.
type propBuilder struct {
	vis      *Visitor
	slots    []propSlot
	firstErr error
}

type propSlot struct {
	f     *Future
	store func(value.Value)
}

func (b *propBuilder) visit(el value.Value, store func(value.Value)) {
	out, err := b.vis.Visit(el)
	if err != nil {
		if b.firstErr == nil {
			b.firstErr = err
		}
		return
	}
	if out.IsSettled() {
		store(out.Value())
		return
	}
	b.slots = append(b.slots, propSlot{f: out.Future(), store: store})
}

// finish returns the assembled result: an error if any sub-visit failed
// synchronously, a settled outcome if nothing is pending, and otherwise
// a future that fills the parked slots as they settle and resolves with
// the completed shape once the last one lands.
func (b *propBuilder) finish(result value.Value) (Outcome, error) {
	if b.firstErr != nil {
		return Outcome{}, b.firstErr
	}
	if len(b.slots) == 0 {
		return Settled(result), nil
	}

	f := NewFuture()
	var (
		mu        sync.Mutex
		remaining = len(b.slots)
		failed    bool
	)
	for _, s := range b.slots {
		s.f.OnSettle(func(res value.Value, err error) {
			mu.Lock()
			if failed {
				mu.Unlock()
				return
			}
			if err != nil {
				failed = true
				mu.Unlock()
				f.Reject(err)
				return
			}
			s.store(res)
			remaining--
			last := remaining == 0
			mu.Unlock()
			if last {
				f.Resolve(result)
			}
		})
	}
	return Pending(f), nil
}
