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

package convert_test

import (
	"encoding"
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/go-quicktest/qt"

	"weft.dev/go/internal/core/convert"
	"weft.dev/go/internal/core/inspect"
	"weft.dev/go/internal/core/value"
)

func mkDecimal(s string) *apd.Decimal {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type textMarshaller struct {
	b string
}

func (t *textMarshaller) MarshalText() (b []byte, err error) {
	return []byte(t.b), nil
}

var _ encoding.TextMarshaler = &textMarshaller{}

func TestFromGo(t *testing.T) {
	type tagged struct {
		A int    `json:"a"`
		B string `json:"b,omitempty"`
		C int    `json:"-"`
		D int
		e int
	}
	type Inner struct {
		X int
	}
	type outer struct {
		Inner
		Y int
	}
	type stringType string

	testCases := []struct {
		goVal interface{}
		want  string
	}{{
		nil, "null",
	}, {
		true, "true",
	}, {
		false, "false",
	}, {
		"foo", `"foo"`,
	}, {
		"\x80", `"` + "�" + `"`,
	}, {
		3, "3",
	}, {
		uint64(3), "3",
	}, {
		int64(1) << 62, "4611686018427387904",
	}, {
		3.5, "3.5",
	}, {
		float32(3.5), "3.5",
	}, {
		math.NaN(), `"NaN"`,
	}, {
		math.Inf(1), `"Infinity"`,
	}, {
		big.NewInt(34), "34",
	}, {
		big.NewRat(1, 2), "0.5",
	}, {
		big.NewRat(4, 2), "2",
	}, {
		big.NewFloat(37.5), "37.5",
	}, {
		mkDecimal("35"), "35",
	}, {
		mkDecimal("3.5"), "3.5",
	}, {
		errors.New("oh noes"), `{"$error":{"name":"GoError","message":"oh noes"}}`,
	}, {
		time.Date(2025, 8, 25, 10, 0, 0, 0, time.UTC), `"2025-08-25T10:00:00Z"`,
	}, {
		90 * time.Second, `"1m30s"`,
	}, {
		&textMarshaller{b: "qed"}, `"qed"`,
	}, {
		json.RawMessage(`{"z":1}`), `{"z":1}`,
	}, {
		stringType("hello"), `"hello"`,
	}, {
		[]byte("bytes"), `"bytes"`,
	}, {
		[]int{1, 2, 3}, "[1,2,3]",
	}, {
		[2]bool{true, false}, "[true,false]",
	}, {
		map[string]int{"b": 2, "a": 1}, `{"a":1,"b":2}`,
	}, {
		map[int]string{3: "c", 1: "a"}, `{"1":"a","3":"c"}`,
	}, {
		tagged{A: 1, D: 4, e: 5}, `{"a":1,"D":4}`,
	}, {
		tagged{A: 1, B: "set"}, `{"a":1,"b":"set","D":0}`,
	}, {
		outer{Inner: Inner{X: 1}, Y: 2}, `{"X":1,"Y":2}`,
	}, {
		struct{ P *int }{}, `{"P":null}`,
	}, {
		[]interface{}{nil, "x"}, `[null,"x"]`,
	}}
	for _, tc := range testCases {
		t.Run("", func(t *testing.T) {
			v, err := convert.FromGo(tc.goVal)
			qt.Assert(t, qt.IsNil(err), qt.Commentf("input %#v", tc.goVal))
			got, err := inspect.JSON(v)
			qt.Assert(t, qt.IsNil(err))
			qt.Check(t, qt.Equals(got, tc.want), qt.Commentf("input %#v", tc.goVal))
		})
	}
}

func TestFromGoErrors(t *testing.T) {
	testCases := []struct {
		goVal interface{}
		want  string
	}{{
		func() {}, `unsupported Go type \(func\(\)\)`,
	}, {
		make(chan int), `unsupported Go type \(chan int\)`,
	}, {
		map[[2]int]int{{1, 2}: 3}, `unsupported Go type for map key \(\[2\]int\)`,
	}}
	for _, tc := range testCases {
		t.Run("", func(t *testing.T) {
			_, err := convert.FromGo(tc.goVal)
			qt.Assert(t, qt.IsNotNil(err))
			qt.Check(t, qt.ErrorMatches(err, tc.want))
		})
	}
}

// A pointer reached twice converts once; the value graph shares the
// node, which the engine can then deduplicate.
func TestFromGoSharedPointer(t *testing.T) {
	type point struct {
		X int
	}
	p := &point{X: 1}
	v, err := convert.FromGo([]interface{}{p, p})
	qt.Assert(t, qt.IsNil(err))

	arr := v.(*value.Array)
	qt.Assert(t, qt.Equals(arr.Len(), 2))
	qt.Check(t, qt.Equals(arr.Elems[0], arr.Elems[1]))

	got, err := inspect.JSON(v)
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(got, `[{"$def":0,"value":{"X":1}},{"$ref":0}]`))
}

func TestFromGoCycle(t *testing.T) {
	type node struct {
		Next *node
	}
	n := &node{}
	n.Next = n

	v, err := convert.FromGo(n)
	qt.Assert(t, qt.IsNil(err))

	obj := v.(*value.Object)
	next, ok := obj.Get("Next")
	qt.Assert(t, qt.IsTrue(ok))
	qt.Check(t, qt.Equals(next, value.Value(obj)))

	got, err := inspect.JSON(v)
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(got, `{"$def":0,"value":{"Next":{"$ref":0}}}`))
}

func TestFromGoValuePassThrough(t *testing.T) {
	sym := value.NewSymbol("keep")
	v, err := convert.FromGo(sym)
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(v, value.Value(sym)))
}
