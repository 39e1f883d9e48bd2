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

package inspect

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"weft.dev/go/internal/core/value"
	"weft.dev/go/internal/core/visit"
)

// The JSON form reserves "$"-prefixed keys for structure that plain
// JSON cannot carry: $def/$ref for sharing, $absent, $symbol, $class,
// $func, $error, $instance, and $truncated/$more for elided content.
type jsonPrinter struct {
	cfg *Profile
	vis *visit.Visitor
}

func (pr *jsonPrinter) value(v value.Value, depth int) string {
	if ref, ok := v.(*visit.Ref); ok {
		return pr.seq("{", "}", []string{pr.kv("$ref", strconv.Itoa(ref.Index()))})
	}
	body := pr.bare(v, depth)
	if r := pr.vis.RefFor(v); r != nil {
		return pr.seq("{", "}", []string{
			pr.kv("$def", strconv.Itoa(r.Index())),
			pr.kv("value", body),
		})
	}
	return body
}

func (pr *jsonPrinter) bare(v value.Value, depth int) string {
	switch x := v.(type) {
	case value.Null:
		return "null"
	case value.Absent:
		return pr.seq("{", "}", []string{pr.kv("$absent", "true")})
	case value.Bool:
		if x {
			return "true"
		}
		return "false"
	case value.Number:
		return jsonNumber(float64(x))
	case *value.Int:
		return x.String()
	case value.String:
		return marshalString(string(x))
	case *value.Symbol:
		return pr.seq("{", "}", []string{pr.kv("$symbol", marshalString(x.Description))})
	case *value.Class:
		return pr.seq("{", "}", []string{pr.kv("$class", marshalString(x.Name))})
	case *value.Func:
		return pr.seq("{", "}", []string{pr.kv("$func", marshalString(x.Name))})
	case *value.Error:
		return pr.seq("{", "}", []string{pr.kv("$error", pr.seq("{", "}", []string{
			pr.kv("name", marshalString(x.Name)),
			pr.kv("message", marshalString(x.Message)),
		}))})
	case *value.Array:
		return pr.array(x, depth)
	case *value.Object:
		return pr.object(x, depth)
	case *value.Instance:
		return pr.instance(x, depth)
	default:
		return marshalString(fmt.Sprintf("%v", x))
	}
}

func (pr *jsonPrinter) array(a *value.Array, depth int) string {
	if pr.exceeded(depth) {
		return pr.truncated()
	}
	var items []string
	m := pr.cfg.MaxItems
	for i, el := range a.Elems {
		if m > 0 && len(items) >= m {
			items = append(items, pr.seq("{", "}",
				[]string{pr.kv("$more", strconv.Itoa(len(a.Elems)-i))}))
			break
		}
		if el == nil {
			items = append(items, "null")
			continue
		}
		items = append(items, pr.value(el, depth+1))
	}
	return pr.seq("[", "]", items)
}

func (pr *jsonPrinter) object(o *value.Object, depth int) string {
	if pr.exceeded(depth) {
		return pr.truncated()
	}
	var items []string
	m := pr.cfg.MaxItems
	hidden := 0
	for _, f := range o.Fields() {
		if m > 0 && len(items) >= m {
			hidden++
			continue
		}
		items = append(items, pr.kv(f.Name, pr.value(f.Value, depth+1)))
	}
	for _, sf := range o.SymFields() {
		if m > 0 && len(items) >= m {
			hidden++
			continue
		}
		items = append(items, pr.kv("Symbol("+sf.Sym.Description+")", pr.value(sf.Value, depth+1)))
	}
	if hidden > 0 {
		items = append(items, pr.kv("$more", strconv.Itoa(hidden)))
	}
	return pr.seq("{", "}", items)
}

func (pr *jsonPrinter) instance(x *value.Instance, depth int) string {
	if pr.exceeded(depth) {
		return pr.truncated()
	}
	name := ""
	if x.Class != nil {
		name = x.Class.Name
	}
	props := "{}"
	if x.Props != nil {
		props = pr.object(x.Props, depth)
	}
	return pr.seq("{", "}", []string{
		pr.kv("$instance", marshalString(name)),
		pr.kv("value", props),
	})
}

func (pr *jsonPrinter) truncated() string {
	return pr.seq("{", "}", []string{pr.kv("$truncated", "true")})
}

func (pr *jsonPrinter) kv(key, rendered string) string {
	if pr.cfg.Indent == "" {
		return marshalString(key) + ":" + rendered
	}
	return marshalString(key) + ": " + rendered
}

func (pr *jsonPrinter) seq(open, close string, items []string) string {
	if len(items) == 0 {
		return open + close
	}
	if pr.cfg.Indent == "" {
		return open + strings.Join(items, ",") + close
	}
	var b strings.Builder
	b.WriteString(open)
	for i, it := range items {
		b.WriteString("\n")
		b.WriteString(indentLines(it, pr.cfg.Indent))
		if i < len(items)-1 {
			b.WriteString(",")
		}
	}
	b.WriteString("\n")
	b.WriteString(close)
	return b.String()
}

func (pr *jsonPrinter) exceeded(depth int) bool {
	return pr.cfg.MaxDepth > 0 && depth > pr.cfg.MaxDepth
}

func jsonNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return `"NaN"`
	case math.IsInf(f, 1):
		return `"Infinity"`
	case math.IsInf(f, -1):
		return `"-Infinity"`
	}
	return formatNumber(f)
}

func marshalString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
