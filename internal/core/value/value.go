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

// Package value defines the closed data model traversed by the visitor
// engine: a small set of node types covering scalars, containers,
// callables, errors, and deferred wrappers.
//
// Values are compared by identity, never by structural equality. Scalar
// types (Null, Absent, Bool, Number, String) are plain comparable Go
// values and share identity whenever they are equal; composite types are
// pointers and share identity only with themselves. A graph of values may
// be cyclic and may share substructure.
package value

import (
	"math/big"

	"github.com/cockroachdb/apd/v3"
)

// A Value is a node in a value graph.
//
// The set of implementations is closed: every Value maps to exactly one
// Kind, and implementations outside this package are classified as
// InstanceKind.
type Value interface {
	Kind() Kind
}

// Null is the explicit "no value" marker, distinct from Absent.
type Null struct{}

func (Null) Kind() Kind { return NullKind }

// Absent marks an omitted value: a sparse array slot that was read, a
// missing property, or a Go nil that reached the graph.
type Absent struct{}

func (Absent) Kind() Kind { return AbsentKind }

// Bool is a boolean scalar.
type Bool bool

func (Bool) Kind() Kind { return BoolKind }

// Number is a double-precision numeric scalar. Two NaN Numbers share
// identity; positive and negative zero share identity.
type Number float64

func (Number) Kind() Kind { return NumberKind }

// String is a text scalar.
type String string

func (String) Kind() Kind { return StringKind }

// An Int is an arbitrary-precision integer. Two Ints share identity when
// they represent the same number, regardless of how they were built.
type Int struct {
	X apd.BigInt
}

func (*Int) Kind() Kind { return IntKind }

// NewInt returns an Int holding n.
func NewInt(n int64) *Int {
	i := &Int{}
	i.X.SetInt64(n)
	return i
}

// IntFromBig returns an Int holding a copy of n.
func IntFromBig(n *big.Int) *Int {
	return &Int{X: *new(apd.BigInt).SetMathBigInt(n)}
}

// String returns the decimal representation of the integer.
func (i *Int) String() string { return i.X.String() }

// A Symbol is an atomic marker value. Symbols are interned by pointer:
// two Symbols are the same property key or graph node only if they are
// the same allocation, regardless of description.
type Symbol struct {
	Description string
}

func (*Symbol) Kind() Kind { return SymbolKind }

// NewSymbol returns a fresh Symbol with the given description.
func NewSymbol(desc string) *Symbol { return &Symbol{Description: desc} }

// A Class names a family of instances. It is a value in its own right so
// that type-valued graph nodes (reflected Go types, registered handler
// kinds) traverse like any other node.
type Class struct {
	Name string
}

func (*Class) Kind() Kind { return ClassKind }

// A Func is a callable graph node. Only its name participates in
// traversal; the engine never invokes it.
type Func struct {
	Name string
}

func (*Func) Kind() Kind { return FuncKind }

// An Error is an error or exception captured as a graph node. It also
// implements the standard error interface so converted Go errors keep
// their behavior.
type Error struct {
	Name    string // classification, e.g. "*fs.PathError"
	Message string
	Cause   Value // optional underlying node
}

func (*Error) Kind() Kind { return ErrorKind }

func (e *Error) Error() string {
	if e.Name == "" {
		return e.Message
	}
	return e.Name + ": " + e.Message
}
