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

	"weft.dev/go/internal/core/value"
)

// A Placeholder is a node minted by the engine to stand for a shared
// value: either the canonical Def or one of the Refs pointing at it. The
// two variants are sealed; nothing outside this package can add a third.
type Placeholder interface {
	value.Value

	// Index is the creation-order number of the Def this placeholder
	// belongs to, unique within one run.
	Index() int

	placeholder()
}

// A Def is the canonical, index-assigned handle for a value that the
// dedup policy marked as shared. It is created at most once per distinct
// value. A Def minted while its value's visit is still in flight (the
// open-cycle case) exists without a value until that visit finishes.
type Def struct {
	index int
	val   value.Value
	ok    bool
}

var _ Placeholder = (*Def)(nil)

func (d *Def) Kind() value.Kind { return value.InstanceKind }
func (d *Def) placeholder()     {}

// Index returns the Def's creation-order number.
func (d *Def) Index() int { return d.index }

// Value returns the finished result of the shared value, and whether it
// is available yet.
func (d *Def) Value() (value.Value, bool) { return d.val, d.ok }

func (d *Def) String() string { return "def *" + strconv.Itoa(d.index) }

// A Ref is the stand-in inserted into output wherever a deduplicated
// value occurs again. It shares its Def's index. Ref is itself a Value
// (dispatched as an instance), so it flows through handlers and into
// assembled results like any other node.
type Ref struct {
	def *Def
}

var _ Placeholder = (*Ref)(nil)

func (r *Ref) Kind() value.Kind { return value.InstanceKind }
func (r *Ref) placeholder()     {}

// Index returns the index of the Def this Ref points at.
func (r *Ref) Index() int { return r.def.index }

// Def returns the canonical handle this Ref points at.
func (r *Ref) Def() *Def { return r.def }

func (r *Ref) String() string { return "ref *" + strconv.Itoa(r.def.index) }
