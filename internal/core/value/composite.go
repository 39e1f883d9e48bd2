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

package value

// An Array is an ordered sequence. A nil element is a hole: the slot
// exists but holds nothing, which is distinct from holding Absent. Holes
// survive traversal and reassembly.
type Array struct {
	Elems []Value
}

func (*Array) Kind() Kind { return ArrayKind }

// NewArray returns an array of n holes.
func NewArray(n int) *Array { return &Array{Elems: make([]Value, n)} }

// ArrayOf returns an array holding the given elements.
func ArrayOf(elems ...Value) *Array { return &Array{Elems: elems} }

// Len returns the number of slots, counting holes.
func (a *Array) Len() int { return len(a.Elems) }

// A Field is one string-keyed property of an Object.
type Field struct {
	Name  string
	Value Value
}

// A SymField is one symbol-keyed property of an Object. Symbol keys
// compare by pointer identity.
type SymField struct {
	Sym   *Symbol
	Value Value
}

// An Object is a bare keyed aggregate. String-keyed fields come first,
// in insertion order; symbol-keyed fields follow, also in insertion
// order. Setting an existing key replaces the value but keeps the
// original position.
type Object struct {
	fields    []Field
	symFields []SymField
}

func (*Object) Kind() Kind { return ObjectKind }

// NewObject returns an empty Object.
func NewObject() *Object { return &Object{} }

// Set stores v under name, keeping the key's original position if it
// already exists. It returns the Object for chaining.
func (o *Object) Set(name string, v Value) *Object {
	for i := range o.fields {
		if o.fields[i].Name == name {
			o.fields[i].Value = v
			return o
		}
	}
	o.fields = append(o.fields, Field{Name: name, Value: v})
	return o
}

// SetSym stores v under the symbol key sym.
func (o *Object) SetSym(sym *Symbol, v Value) *Object {
	for i := range o.symFields {
		if o.symFields[i].Sym == sym {
			o.symFields[i].Value = v
			return o
		}
	}
	o.symFields = append(o.symFields, SymField{Sym: sym, Value: v})
	return o
}

// Get reports the value stored under name.
func (o *Object) Get(name string) (Value, bool) {
	for i := range o.fields {
		if o.fields[i].Name == name {
			return o.fields[i].Value, true
		}
	}
	return nil, false
}

// GetSym reports the value stored under the symbol key sym.
func (o *Object) GetSym(sym *Symbol) (Value, bool) {
	for i := range o.symFields {
		if o.symFields[i].Sym == sym {
			return o.symFields[i].Value, true
		}
	}
	return nil, false
}

// Fields returns the string-keyed properties in insertion order. The
// slice is shared; callers must not mutate it.
func (o *Object) Fields() []Field { return o.fields }

// SymFields returns the symbol-keyed properties in insertion order. The
// slice is shared; callers must not mutate it.
func (o *Object) SymFields() []SymField { return o.symFields }

// Len returns the total number of properties, both key flavors.
func (o *Object) Len() int { return len(o.fields) + len(o.symFields) }

// An Instance is a structured value that is neither an array nor a bare
// aggregate: it belongs to a Class and carries its own properties.
type Instance struct {
	Class *Class
	Props *Object
}

func (*Instance) Kind() Kind { return InstanceKind }

// NewInstance returns an instance of class holding props. A nil props
// becomes an empty Object.
func NewInstance(class *Class, props *Object) *Instance {
	if props == nil {
		props = NewObject()
	}
	return &Instance{Class: class, Props: props}
}

// A Proxy defers production of its target until it is first unwrapped.
// Producers construct proxies intentionally, for values that are
// expensive to realize and may never be looked at. Whether a traversal
// sees the Proxy itself or its target is the visitor's choice.
type Proxy struct {
	fetch  func() Value
	target Value
	done   bool
}

func (*Proxy) Kind() Kind { return ProxyKind }

// Defer returns a Proxy that obtains its target from fetch on first
// unwrap. fetch runs at most once.
func Defer(fetch func() Value) *Proxy { return &Proxy{fetch: fetch} }

// Wrap returns a Proxy around an already-realized target.
func Wrap(target Value) *Proxy { return &Proxy{target: target, done: true} }

// Unwrap realizes and returns the target. A nil target normalizes to
// Absent. Unwrap is not safe for concurrent use; proxies belong to the
// same single-owner model as the graphs that hold them.
func (p *Proxy) Unwrap() Value {
	if !p.done {
		p.target = p.fetch()
		p.done = true
		p.fetch = nil
	}
	if p.target == nil {
		return Absent{}
	}
	return p.target
}
