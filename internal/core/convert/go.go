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

// Package convert builds value graphs from native Go values.
package convert

import (
	"encoding"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/text/encoding/unicode"

	"weft.dev/go/internal/core/value"
)

// FromGo converts x to a value graph. Pointer identity is preserved: a
// pointer, map or slice reached twice converts once and reuses the same
// node, so shared and self-referential Go structures become shared and
// cyclic value graphs that the visit engine can deduplicate.
//
// nil converts to Null. Unsupported types (functions, channels, complex
// numbers) fail the whole conversion.
func FromGo(x interface{}) (value.Value, error) {
	c := &goConverter{}
	v := c.convertRec(x)
	if c.err != nil {
		return nil, c.err
	}
	if v == nil {
		return nil, fmt.Errorf("unsupported Go type (%T)", x)
	}
	return v, nil
}

var apdContext = apd.BaseContext.WithPrecision(34)

type goConverter struct {
	seen map[seenKey]value.Value
	err  error
}

// seenKey identifies one Go allocation. Slices carry their length so
// that two slices sharing a backing array but differing in extent stay
// distinct.
type seenKey struct {
	ptr uintptr
	len int
	typ reflect.Type
}

func (c *goConverter) addErrf(format string, args ...interface{}) value.Value {
	if c.err == nil {
		c.err = fmt.Errorf(format, args...)
	}
	return nil
}

func (c *goConverter) remember(k seenKey, v value.Value) {
	if c.seen == nil {
		c.seen = make(map[seenKey]value.Value)
	}
	c.seen[k] = v
}

// Integers up to this magnitude are exact in a float64 and convert to
// Number; beyond it they become Int so no precision is lost.
const maxSafe = 1 << 53

func toInt(i int64) value.Value {
	if i >= -maxSafe && i <= maxSafe {
		return value.Number(float64(i))
	}
	return value.NewInt(i)
}

func toUint(u uint64) value.Value {
	if u <= maxSafe {
		return value.Number(float64(u))
	}
	var x apd.BigInt
	x.SetUint64(u)
	return &value.Int{X: x}
}

func sanitize(s string) value.String {
	s, _ = unicode.UTF8.NewEncoder().String(s)
	return value.String(s)
}

func (c *goConverter) convertRec(x interface{}) value.Value {
	switch v := x.(type) {
	case nil:
		return value.Null{}

	case value.Value:
		return v

	case *big.Int:
		return value.IntFromBig(v)

	case *big.Rat:
		if v.IsInt() {
			return value.IntFromBig(v.Num())
		}
		f, _ := v.Float64()
		return value.Number(f)

	case *big.Float:
		f, _ := v.Float64()
		return value.Number(f)

	case *apd.Decimal:
		// An integral decimal keeps full precision as an Int; anything
		// else flattens to a float.
		var d apd.Decimal
		res, _ := apdContext.RoundToIntegralExact(&d, v)
		if !res.Inexact() {
			var i apd.BigInt
			if _, ok := i.SetString(d.Text('f'), 10); ok {
				return &value.Int{X: i}
			}
		}
		f, err := v.Float64()
		if err != nil {
			return c.addErrf("cannot convert decimal %s: %v", v, err)
		}
		return value.Number(f)

	case time.Time:
		return sanitize(v.Format(time.RFC3339Nano))

	case time.Duration:
		return sanitize(v.String())

	case error:
		return &value.Error{Name: "GoError", Message: v.Error()}

	case json.Marshaler:
		b, err := v.MarshalJSON()
		if err != nil {
			return c.addErrf("json.Marshaler: %v", err)
		}
		var decoded interface{}
		if err := json.Unmarshal(b, &decoded); err != nil {
			return c.addErrf("json.Marshaler produced invalid JSON: %v", err)
		}
		return c.convertRec(decoded)

	case encoding.TextMarshaler:
		b, err := v.MarshalText()
		if err != nil {
			return c.addErrf("encoding.TextMarshaler: %v", err)
		}
		return sanitize(string(b))

	case fmt.Stringer:
		return sanitize(v.String())

	case bool:
		return value.Bool(v)
	case string:
		return sanitize(v)
	case []byte:
		return sanitize(string(v))
	case int:
		return toInt(int64(v))
	case int8:
		return toInt(int64(v))
	case int16:
		return toInt(int64(v))
	case int32:
		return toInt(int64(v))
	case int64:
		return toInt(v)
	case uint:
		return toUint(uint64(v))
	case uint8:
		return toUint(uint64(v))
	case uint16:
		return toUint(uint64(v))
	case uint32:
		return toUint(uint64(v))
	case uint64:
		return toUint(v)
	case uintptr:
		return toUint(uint64(v))
	case float64:
		return value.Number(v)
	case float32:
		return value.Number(float64(v))

	case reflect.Value:
		if v.CanInterface() {
			return c.convertRec(v.Interface())
		}

	default:
		return c.convertVal(reflect.ValueOf(v))
	}
	return nil
}

func (c *goConverter) convertVal(v reflect.Value) value.Value {
	switch v.Kind() {
	case reflect.Bool:
		return value.Bool(v.Bool())

	case reflect.String:
		return sanitize(v.String())

	case reflect.Int, reflect.Int8, reflect.Int16,
		reflect.Int32, reflect.Int64:
		return toInt(v.Int())

	case reflect.Uint, reflect.Uint8, reflect.Uint16,
		reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return toUint(v.Uint())

	case reflect.Float32, reflect.Float64:
		return value.Number(v.Float())

	case reflect.Interface:
		if v.IsNil() {
			return value.Null{}
		}
		return c.convertRec(v.Elem().Interface())

	case reflect.Ptr:
		if v.IsNil() {
			return value.Null{}
		}
		if v.Elem().Kind() == reflect.Struct {
			key := seenKey{ptr: v.Pointer(), typ: v.Type()}
			if prev, ok := c.seen[key]; ok {
				return prev
			}
			obj := value.NewObject()
			c.remember(key, obj)
			return c.convertStruct(obj, v.Elem())
		}
		return c.convertRec(v.Elem().Interface())

	case reflect.Struct:
		return c.convertStruct(value.NewObject(), v)

	case reflect.Map:
		if v.IsNil() {
			return value.Null{}
		}
		key := seenKey{ptr: v.Pointer(), typ: v.Type()}
		if prev, ok := c.seen[key]; ok {
			return prev
		}
		obj := value.NewObject()
		c.remember(key, obj)
		return c.convertMap(obj, v)

	case reflect.Slice:
		if v.IsNil() {
			return value.Null{}
		}
		key := seenKey{ptr: v.Pointer(), len: v.Len(), typ: v.Type()}
		if prev, ok := c.seen[key]; ok {
			return prev
		}
		arr := value.NewArray(v.Len())
		c.remember(key, arr)
		return c.convertList(arr, v)

	case reflect.Array:
		return c.convertList(value.NewArray(v.Len()), v)
	}
	return nil
}

func (c *goConverter) convertStruct(obj *value.Object, v reflect.Value) value.Value {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		val := v.Field(i)
		if tag, _ := sf.Tag.Lookup("json"); tag == "-" {
			continue
		}
		if isOmitEmpty(&sf) && val.IsZero() {
			continue
		}
		sub := c.convertRec(val.Interface())
		if sub == nil {
			// mimic behavior of encoding/json: skip fields of
			// unsupported types
			continue
		}

		name := getName(&sf)
		if name == "-" {
			continue
		}
		if sf.Anonymous && name == "" {
			if emb, ok := sub.(*value.Object); ok {
				for _, f := range emb.Fields() {
					obj.Set(f.Name, f.Value)
				}
			}
			continue
		}
		obj.Set(string(sanitize(name)), sub)
	}
	return obj
}

var textMarshaler = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

func (c *goConverter) convertMap(obj *value.Object, v reflect.Value) value.Value {
	t := v.Type()
	switch key := t.Key(); key.Kind() {
	default:
		if !key.Implements(textMarshaler) {
			return c.addErrf("unsupported Go type for map key (%v)", key)
		}
		fallthrough
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16,
		reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16,
		reflect.Uint32, reflect.Uint64, reflect.Uintptr:

		type mapField struct {
			name string
			val  value.Value
		}
		fields := make([]mapField, 0, v.Len())

		iter := v.MapRange()
		for iter.Next() {
			sub := c.convertRec(iter.Value().Interface())
			if sub == nil {
				return c.addErrf("unsupported Go type (%T)",
					iter.Value().Interface())
			}
			name := string(sanitize(fmt.Sprint(iter.Key())))
			fields = append(fields, mapField{name, sub})
		}
		// Map iteration order is random; sort for determinism.
		slices.SortFunc(fields, func(a, b mapField) int {
			return strings.Compare(a.name, b.name)
		})
		for _, f := range fields {
			obj.Set(f.name, f.val)
		}
	}
	return obj
}

func (c *goConverter) convertList(arr *value.Array, v reflect.Value) value.Value {
	for i := 0; i < v.Len(); i++ {
		x := c.convertRec(v.Index(i).Interface())
		if x == nil {
			return c.addErrf("unsupported Go type (%T)",
				v.Index(i).Interface())
		}
		arr.Elems[i] = x
	}
	return arr
}

var tagsWithNames = []string{"json", "yaml"}

func getName(f *reflect.StructField) string {
	name := f.Name
	if f.Anonymous {
		name = ""
	}
	for _, s := range tagsWithNames {
		if tag, ok := f.Tag.Lookup(s); ok {
			if p := strings.IndexByte(tag, ','); p >= 0 {
				tag = tag[:p]
			}
			if tag != "" {
				name = tag
				break
			}
		}
	}
	return name
}

// isOmitEmpty reports whether the field's json tag asks for zero values
// to be dropped.
func isOmitEmpty(f *reflect.StructField) bool {
	tag, ok := f.Tag.Lookup("json")
	if !ok {
		return false
	}
	for _, o := range strings.Split(tag, ",")[1:] {
		if o == "omitempty" {
			return true
		}
	}
	return false
}
