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
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"weft.dev/go/internal/core/value"
	"weft.dev/go/internal/core/visit"
)

type textPrinter struct {
	cfg *Profile
	vis *visit.Visitor

	// stack holds the containers currently being printed, so a Ref
	// whose def site is an ancestor renders as Circular.
	stack map[value.Value]bool
}

func (pr *textPrinter) value(v value.Value, depth int) string {
	if ref, ok := v.(*visit.Ref); ok {
		return pr.ref(ref)
	}
	if r := pr.vis.RefFor(v); r != nil {
		return fmt.Sprintf("<ref *%d> ", r.Index()) + pr.bare(v, depth)
	}
	return pr.bare(v, depth)
}

func (pr *textPrinter) ref(r *visit.Ref) string {
	if dv, ok := r.Def().Value(); ok && pr.stack[dv] {
		return fmt.Sprintf("[Circular *%d]", r.Index())
	}
	return fmt.Sprintf("[Ref *%d]", r.Index())
}

func (pr *textPrinter) bare(v value.Value, depth int) string {
	switch x := v.(type) {
	case value.Null:
		return "null"
	case value.Absent:
		return "absent"
	case value.Bool:
		if x {
			return "true"
		}
		return "false"
	case value.Number:
		return textNumber(float64(x))
	case *value.Int:
		return x.String() + "n"
	case value.String:
		return strconv.Quote(string(x))
	case *value.Symbol:
		return "Symbol(" + x.Description + ")"
	case *value.Class:
		if x.Name == "" {
			return "[class (anonymous)]"
		}
		return "[class " + x.Name + "]"
	case *value.Func:
		if x.Name == "" {
			return "[func]"
		}
		return "[func " + x.Name + "]"
	case *value.Error:
		return "[" + x.Name + ": " + x.Message + "]"
	case *value.Array:
		return pr.array(x, depth)
	case *value.Object:
		return pr.object(x, depth)
	case *value.Instance:
		return pr.instance(x, depth)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func (pr *textPrinter) array(a *value.Array, depth int) string {
	if pr.exceeded(depth) {
		return "[Array]"
	}
	if len(a.Elems) == 0 {
		return "[]"
	}
	pr.stack[a] = true
	defer delete(pr.stack, a)

	var items []string
	m := pr.cfg.MaxItems
	i := 0
	for i < len(a.Elems) {
		if m > 0 && len(items) >= m {
			break
		}
		if a.Elems[i] == nil {
			run := 0
			for i < len(a.Elems) && a.Elems[i] == nil {
				run++
				i++
			}
			items = append(items, fmt.Sprintf("<%d empty item%s>", run, plural(run)))
			continue
		}
		items = append(items, pr.value(a.Elems[i], depth+1))
		i++
	}
	if i < len(a.Elems) {
		items = append(items, fmt.Sprintf("... %d more items", len(a.Elems)-i))
	}
	return pr.seq("[", "]", items)
}

func (pr *textPrinter) object(o *value.Object, depth int) string {
	if pr.exceeded(depth) {
		return "[Object]"
	}
	if o.Len() == 0 {
		return "{}"
	}
	pr.stack[o] = true
	defer delete(pr.stack, o)

	var items []string
	m := pr.cfg.MaxItems
	hidden := 0
	for _, f := range o.Fields() {
		if m > 0 && len(items) >= m {
			hidden++
			continue
		}
		items = append(items, fieldKey(f.Name)+": "+pr.value(f.Value, depth+1))
	}
	for _, sf := range o.SymFields() {
		if m > 0 && len(items) >= m {
			hidden++
			continue
		}
		items = append(items, "[Symbol("+sf.Sym.Description+")]: "+pr.value(sf.Value, depth+1))
	}
	if hidden > 0 {
		items = append(items, fmt.Sprintf("... %d more properties", hidden))
	}
	return pr.seq("{", "}", items)
}

func (pr *textPrinter) instance(x *value.Instance, depth int) string {
	name := "Object"
	if x.Class != nil && x.Class.Name != "" {
		name = x.Class.Name
	}
	if pr.exceeded(depth) {
		return "[" + name + "]"
	}
	if x.Props == nil || x.Props.Len() == 0 {
		return name + " {}"
	}
	return name + " " + pr.object(x.Props, depth)
}

func (pr *textPrinter) seq(open, close string, items []string) string {
	if pr.cfg.Indent == "" {
		return open + " " + strings.Join(items, ", ") + " " + close
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

func (pr *textPrinter) exceeded(depth int) bool {
	return pr.cfg.MaxDepth > 0 && depth > pr.cfg.MaxDepth
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func textNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return formatNumber(f)
}

// formatNumber renders a finite Number. Integral values in the exact
// float64 range print as plain integers; shortest 'g' form would move
// them into exponent notation from seven digits up.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) <= 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// fieldKey prints identifier-like keys bare and quotes the rest.
func fieldKey(s string) string {
	if isIdent(s) {
		return s
	}
	return strconv.Quote(s)
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

// indentLines indents every line of s by pad.
func indentLines(s, pad string) string {
	return pad + strings.ReplaceAll(s, "\n", "\n"+pad)
}
