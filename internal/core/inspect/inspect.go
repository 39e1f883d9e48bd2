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

// Package inspect renders value graphs as text or JSON.
//
// Rendering is two-phase. A rebuild pass runs the visit engine over the
// input with a dedup policy covering containers and instances, yielding
// an acyclic graph in which repeat occurrences and cycles are Refs. A
// print pass then walks that graph, placing a def marker wherever the
// run's RefFor query says a value is the target of a Ref. Deferred
// proxies are realized during the rebuild, so a proxied subgraph is
// fetched no earlier than render time.
package inspect

import (
	"weft.dev/go/internal/core/value"
	"weft.dev/go/internal/core/visit"
)

// A Profile configures rendering.
type Profile struct {
	// MaxDepth bounds container nesting: containers nested deeper than
	// MaxDepth levels below the root render as type placeholders. Zero
	// or negative means no bound.
	MaxDepth int

	// MaxItems bounds the elements or fields shown per container. Zero
	// or negative means no bound.
	MaxItems int

	// Indent selects multi-line output using the given unit. Empty
	// renders on a single line.
	Indent string
}

// Default renders human-oriented multi-line text.
var Default = &Profile{
	Indent: "  ",
}

// Compact renders on a single line; it is the profile behind JSON.
var Compact = &Profile{}

// Text renders v with the Default profile.
func Text(v value.Value) (string, error) {
	return Default.Text(v)
}

// Text renders v in node-inspect flavored text form.
func (p *Profile) Text(v value.Value) (string, error) {
	out, vis, err := rebuild(v)
	if err != nil {
		return "", err
	}
	pr := &textPrinter{cfg: p, vis: vis, stack: map[value.Value]bool{}}
	return pr.value(out, 0), nil
}

// JSON renders v with the Compact profile.
func JSON(v value.Value) (string, error) {
	return Compact.JSON(v)
}

// JSON renders v in machine-readable form: def sites become
// {"$def": N, "value": ...} wrappers and reuse sites {"$ref": N}.
func (p *Profile) JSON(v value.Value) (string, error) {
	out, vis, err := rebuild(v)
	if err != nil {
		return "", err
	}
	pr := &jsonPrinter{cfg: p, vis: vis}
	return pr.value(out, 0), nil
}

// rebuild runs the dedup pass. The rebuilder never suspends, so the
// strict extraction always succeeds when no error occurred.
func rebuild(v value.Value) (value.Value, *visit.Visitor, error) {
	vis := visit.New(v, rebuilder{}, visit.Config{})
	out, err := vis.Result()
	if err != nil {
		return nil, nil, err
	}
	return out, vis, nil
}

type rebuilder struct {
	visit.Base
}

func (rebuilder) VisitArray(v *visit.Visitor, a *value.Array) (visit.Outcome, error) {
	return v.Properties(a, visit.Mirror)
}

func (rebuilder) VisitObject(v *visit.Visitor, o *value.Object) (visit.Outcome, error) {
	return v.Properties(o, visit.Mirror)
}

func (rebuilder) VisitInstance(v *visit.Visitor, n value.Value) (visit.Outcome, error) {
	inst, ok := n.(*value.Instance)
	if !ok {
		// Refs and foreign Value implementations pass through.
		return visit.Settled(n), nil
	}
	if inst.Props == nil {
		return visit.Settled(value.NewInstance(inst.Class, value.NewObject())), nil
	}
	out, err := v.Properties(inst.Props, visit.Mirror)
	if err != nil {
		return visit.Outcome{}, err
	}
	return visit.Settled(value.NewInstance(inst.Class, out.Value().(*value.Object))), nil
}

func (rebuilder) ShouldRef(n value.Value) bool {
	switch value.KindOf(n) {
	case value.ArrayKind, value.ObjectKind, value.InstanceKind:
		return true
	}
	return false
}
