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

// Kind classifies a Value for handler dispatch. The classification is
// closed: every node maps to exactly one Kind, computed once per visit.
type Kind uint8

const (
	// AbsentKind marks an omitted value.
	AbsentKind Kind = iota

	// NullKind marks an explicit "no value".
	NullKind

	// BoolKind is a boolean scalar.
	BoolKind

	// NumberKind is a floating-point scalar.
	NumberKind

	// IntKind is an arbitrary-precision integer.
	IntKind

	// StringKind is a text scalar.
	StringKind

	// SymbolKind is an interned atomic marker.
	SymbolKind

	// ClassKind is a named instance family.
	ClassKind

	// FuncKind is a callable node.
	FuncKind

	// ArrayKind is an ordered, possibly sparse sequence.
	ArrayKind

	// ObjectKind is a bare keyed aggregate.
	ObjectKind

	// InstanceKind is any other structured value, including Value
	// implementations defined outside this package.
	InstanceKind

	// ErrorKind is a captured error or exception.
	ErrorKind

	// ProxyKind is a deferred transparent wrapper.
	ProxyKind
)

var kindStrings = [...]string{
	AbsentKind:   "absent",
	NullKind:     "null",
	BoolKind:     "bool",
	NumberKind:   "number",
	IntKind:      "int",
	StringKind:   "string",
	SymbolKind:   "symbol",
	ClassKind:    "class",
	FuncKind:     "func",
	ArrayKind:    "array",
	ObjectKind:   "object",
	InstanceKind: "instance",
	ErrorKind:    "error",
	ProxyKind:    "proxy",
}

func (k Kind) String() string {
	if int(k) < len(kindStrings) {
		return kindStrings[k]
	}
	return "instance"
}

// KindOf classifies v. A nil Value classifies as AbsentKind; a Value
// implementation unknown to this package classifies as InstanceKind, the
// unchanged-by-default arm of the dispatch table.
func KindOf(v Value) Kind {
	if v == nil {
		return AbsentKind
	}
	switch v.(type) {
	case Null:
		return NullKind
	case Absent:
		return AbsentKind
	case Bool:
		return BoolKind
	case Number:
		return NumberKind
	case *Int:
		return IntKind
	case String:
		return StringKind
	case *Symbol:
		return SymbolKind
	case *Class:
		return ClassKind
	case *Func:
		return FuncKind
	case *Array:
		return ArrayKind
	case *Object:
		return ObjectKind
	case *Instance:
		return InstanceKind
	case *Error:
		return ErrorKind
	case *Proxy:
		return ProxyKind
	default:
		// Implementations outside this package dispatch as instances
		// no matter what their Kind method reports.
		return InstanceKind
	}
}
