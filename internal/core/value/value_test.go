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

import (
	"math"
	"math/big"
	"testing"

	"github.com/go-quicktest/qt"
)

type otherValue struct{}

func (otherValue) Kind() Kind { return ArrayKind } // deliberately lying

func TestKindOf(t *testing.T) {
	testCases := []struct {
		v    Value
		want Kind
	}{{
		v:    nil,
		want: AbsentKind,
	}, {
		v:    Absent{},
		want: AbsentKind,
	}, {
		v:    Null{},
		want: NullKind,
	}, {
		v:    Bool(true),
		want: BoolKind,
	}, {
		v:    Number(1.5),
		want: NumberKind,
	}, {
		v:    NewInt(42),
		want: IntKind,
	}, {
		v:    String("hello"),
		want: StringKind,
	}, {
		v:    NewSymbol("tag"),
		want: SymbolKind,
	}, {
		v:    &Class{Name: "Request"},
		want: ClassKind,
	}, {
		v:    &Func{Name: "handler"},
		want: FuncKind,
	}, {
		v:    ArrayOf(Bool(false)),
		want: ArrayKind,
	}, {
		v:    NewObject(),
		want: ObjectKind,
	}, {
		v:    NewInstance(&Class{Name: "T"}, nil),
		want: InstanceKind,
	}, {
		v:    &Error{Name: "timeout", Message: "deadline exceeded"},
		want: ErrorKind,
	}, {
		v:    Wrap(Null{}),
		want: ProxyKind,
	}, {
		// Unknown implementations always classify as instances, even
		// when their Kind method claims otherwise.
		v:    otherValue{},
		want: InstanceKind,
	}}
	for _, tc := range testCases {
		qt.Check(t, qt.Equals(KindOf(tc.v), tc.want), qt.Commentf("value %#v", tc.v))
	}
}

func TestObjectOrdering(t *testing.T) {
	o := NewObject()
	o.Set("b", Number(1))
	o.Set("a", Number(2))
	o.Set("b", Number(3)) // replace keeps position

	fields := o.Fields()
	qt.Assert(t, qt.Equals(len(fields), 2))
	qt.Check(t, qt.Equals(fields[0].Name, "b"))
	qt.Check(t, qt.Equals(fields[0].Value.(Number), Number(3)))
	qt.Check(t, qt.Equals(fields[1].Name, "a"))

	got, ok := o.Get("b")
	qt.Assert(t, qt.IsTrue(ok))
	qt.Check(t, qt.Equals(got.(Number), Number(3)))

	_, ok = o.Get("missing")
	qt.Check(t, qt.IsFalse(ok))
}

func TestObjectSymbolKeys(t *testing.T) {
	s1 := NewSymbol("id")
	s2 := NewSymbol("id") // same description, different identity

	o := NewObject()
	o.SetSym(s1, String("one"))
	o.SetSym(s2, String("two"))

	qt.Assert(t, qt.Equals(len(o.SymFields()), 2))

	got, ok := o.GetSym(s1)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Check(t, qt.Equals(got.(String), String("one")))

	got, ok = o.GetSym(s2)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Check(t, qt.Equals(got.(String), String("two")))
}

func TestArrayHoles(t *testing.T) {
	a := NewArray(3)
	a.Elems[0] = Number(1)
	a.Elems[2] = Number(3)

	qt.Check(t, qt.Equals(a.Len(), 3))
	qt.Check(t, qt.IsNil(a.Elems[1]))
}

func TestProxyUnwrapOnce(t *testing.T) {
	calls := 0
	p := Defer(func() Value {
		calls++
		return String("expensive")
	})

	qt.Check(t, qt.Equals(p.Unwrap().(String), String("expensive")))
	qt.Check(t, qt.Equals(p.Unwrap().(String), String("expensive")))
	qt.Check(t, qt.Equals(calls, 1))
}

func TestProxyNilTarget(t *testing.T) {
	p := Defer(func() Value { return nil })
	qt.Check(t, qt.Equals(KindOf(p.Unwrap()), AbsentKind))
}

func TestIntString(t *testing.T) {
	b, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	qt.Check(t, qt.Equals(IntFromBig(b).String(), "123456789012345678901234567890"))
	qt.Check(t, qt.Equals(NewInt(-7).String(), "-7"))
}

func TestNumberNaN(t *testing.T) {
	n := Number(math.NaN())
	qt.Check(t, qt.IsTrue(math.IsNaN(float64(n))))
	qt.Check(t, qt.Equals(n.Kind(), NumberKind))
}
