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

package visit_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/go-quicktest/qt"

	"weft.dev/go/internal/core/value"
	"weft.dev/go/internal/core/visit"
)

// rebuilder reconstructs containers through the aggregate-property
// helper, turns numbers into their decimal strings, and records every
// handler call and notification.
type rebuilder struct {
	visit.Base

	refPolicy func(value.Value) bool

	counts   map[value.Value]int
	numCalls int
	newRefs  []*visit.Ref
	revisits []revisitRecord
}

type revisitRecord struct {
	node      value.Value
	result    value.Value
	ref       *visit.Ref
	cycleHead bool
}

func (r *rebuilder) bump(n value.Value) {
	if r.counts == nil {
		r.counts = make(map[value.Value]int)
	}
	r.counts[n]++
}

func (r *rebuilder) VisitNumber(v *visit.Visitor, n value.Number) (visit.Outcome, error) {
	r.bump(n)
	r.numCalls++
	s := strconv.FormatFloat(float64(n), 'g', -1, 64)
	return visit.Settled(value.String(s)), nil
}

func (r *rebuilder) VisitArray(v *visit.Visitor, a *value.Array) (visit.Outcome, error) {
	r.bump(a)
	return v.Properties(a, visit.Mirror)
}

func (r *rebuilder) VisitObject(v *visit.Visitor, o *value.Object) (visit.Outcome, error) {
	r.bump(o)
	return v.Properties(o, visit.Mirror)
}

func (r *rebuilder) ShouldRef(n value.Value) bool {
	if r.refPolicy == nil {
		return false
	}
	return r.refPolicy(n)
}

func (r *rebuilder) NewRef(def *visit.Def, ref *visit.Ref) {
	r.newRefs = append(r.newRefs, ref)
}

func (r *rebuilder) Revisited(node, result value.Value, ref *visit.Ref, cycleHead bool) {
	r.revisits = append(r.revisits, revisitRecord{node, result, ref, cycleHead})
}

func arraysOnly(v value.Value) bool { return value.KindOf(v) == value.ArrayKind }

// formatVal renders a result graph compactly for structural comparison.
// Refs print by index, so deduplicated results stay finite.
func formatVal(v value.Value) string {
	switch x := v.(type) {
	case nil:
		return "_"
	case *visit.Ref:
		return fmt.Sprintf("ref(%d)", x.Index())
	case value.String:
		return strconv.Quote(string(x))
	case value.Number:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case *value.Symbol:
		return "@" + x.Description
	case *value.Array:
		parts := make([]string, len(x.Elems))
		for i, el := range x.Elems {
			parts[i] = formatVal(el)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case *value.Object:
		var parts []string
		for _, f := range x.Fields() {
			parts = append(parts, f.Name+":"+formatVal(f.Value))
		}
		for _, sf := range x.SymFields() {
			parts = append(parts, "@"+sf.Sym.Description+":"+formatVal(sf.Value))
		}
		return "{" + strings.Join(parts, " ") + "}"
	default:
		return fmt.Sprintf("%v", x)
	}
}

func TestPassThroughScalars(t *testing.T) {
	testCases := []value.Value{
		value.Null{},
		value.Absent{},
		value.Bool(true),
		value.Number(3.25),
		value.NewInt(99),
		value.String("plain"),
		value.NewSymbol("tag"),
		&value.Class{Name: "Widget"},
		&value.Func{Name: "run"},
		&value.Error{Name: "io", Message: "closed"},
	}
	for _, root := range testCases {
		v := visit.New(root, nil, visit.Config{})
		got, err := v.Result()
		qt.Assert(t, qt.IsNil(err), qt.Commentf("root %v", root))
		qt.Check(t, qt.Equals(got, root), qt.Commentf("root %v", root))
	}
}

// TestSharedSubtree is the canonical shared-substructure scenario: the
// root [x, [x]] with x = [1] and a dedup policy covering only arrays
// keeps the first transformed occurrence of x in place and puts a Ref
// where x recurs.
func TestSharedSubtree(t *testing.T) {
	x := value.ArrayOf(value.Number(1))
	inner := value.ArrayOf(x)
	root := value.ArrayOf(x, inner)

	r := &rebuilder{refPolicy: arraysOnly}
	v := visit.New(root, r, visit.Config{})

	got, err := v.Result()
	qt.Assert(t, qt.IsNil(err))

	out := got.(*value.Array)
	qt.Assert(t, qt.Equals(out.Len(), 2))

	first := out.Elems[0].(*value.Array)
	qt.Assert(t, qt.Equals(formatVal(first), `["1"]`))

	nested := out.Elems[1].(*value.Array)
	qt.Assert(t, qt.Equals(nested.Len(), 1))
	ref, ok := nested.Elems[0].(*visit.Ref)
	qt.Assert(t, qt.IsTrue(ok), qt.Commentf("nested element is %T", nested.Elems[0]))
	qt.Check(t, qt.Equals(ref.Index(), 0))

	// The Def resolved to the transformed x, which sits at position 0.
	dv, ok := ref.Def().Value()
	qt.Assert(t, qt.IsTrue(ok))
	qt.Check(t, qt.Equals(dv.(*value.Array), first))

	// Query surface.
	qt.Check(t, qt.IsTrue(v.HasRefs()))
	qt.Check(t, qt.Equals(v.RefFor(first), ref))
	qt.Check(t, qt.IsNil(v.RefFor(nested)))

	// Each distinct value was evaluated exactly once.
	qt.Check(t, qt.Equals(r.counts[x], 1))
	qt.Check(t, qt.Equals(r.counts[inner], 1))
	qt.Check(t, qt.Equals(r.counts[root], 1))
	qt.Check(t, qt.Equals(r.numCalls, 1))

	// One pair minted, one revisit with the known result.
	qt.Assert(t, qt.Equals(len(r.newRefs), 1))
	qt.Assert(t, qt.Equals(len(r.revisits), 1))
	rec := r.revisits[0]
	qt.Check(t, qt.Equals(rec.node, value.Value(x)))
	qt.Check(t, qt.Equals(rec.result, value.Value(first)))
	qt.Check(t, qt.Equals(rec.ref, ref))
	qt.Check(t, qt.IsFalse(rec.cycleHead))
}

func TestCycleWithRefs(t *testing.T) {
	a := &value.Array{}
	a.Elems = append(a.Elems, a)

	r := &rebuilder{refPolicy: arraysOnly}
	v := visit.New(a, r, visit.Config{})

	got, err := v.Result()
	qt.Assert(t, qt.IsNil(err))

	out := got.(*value.Array)
	qt.Assert(t, qt.Equals(out.Len(), 1))
	ref, ok := out.Elems[0].(*visit.Ref)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Check(t, qt.Equals(ref.Index(), 0))

	// The Def's value is the outer result itself.
	dv, ok := ref.Def().Value()
	qt.Assert(t, qt.IsTrue(ok))
	qt.Check(t, qt.Equals(dv.(*value.Array), out))

	qt.Assert(t, qt.Equals(len(r.revisits), 1))
	rec := r.revisits[0]
	qt.Check(t, qt.IsTrue(rec.cycleHead))
	qt.Check(t, qt.IsNil(rec.result)) // unknown while the cycle is open
	qt.Check(t, qt.Equals(rec.ref, ref))

	qt.Check(t, qt.Equals(v.RefFor(out), ref))
}

func TestCycleWithoutRefsDeadlocks(t *testing.T) {
	a := &value.Array{}
	a.Elems = append(a.Elems, a)

	r := &rebuilder{} // policy always declines
	v := visit.New(a, r, visit.Config{})

	_, err := v.Result()
	qt.Assert(t, qt.IsNotNil(err))
	qt.Check(t, qt.IsTrue(visit.IsDeadlock(err)))
	qt.Check(t, qt.ErrorMatches(err, `deadlock: array value depends on its own unfinished result`))

	// The error is stable across completion forms.
	_, err2 := v.Outcome()
	qt.Check(t, qt.Equals(err2, err))
	_, err3 := v.Done().Result()
	qt.Check(t, qt.Equals(err3, err))
}

func TestRefIndicesCreationOrdered(t *testing.T) {
	a := value.ArrayOf(value.Number(1))
	b := value.ArrayOf(value.Number(2))
	root := value.ArrayOf(a, b, a, b)

	r := &rebuilder{refPolicy: arraysOnly}
	v := visit.New(root, r, visit.Config{})

	got, err := v.Result()
	qt.Assert(t, qt.IsNil(err))

	out := got.(*value.Array)
	qt.Assert(t, qt.Equals(out.Len(), 4))
	qt.Check(t, qt.Equals(out.Elems[2].(*visit.Ref).Index(), 0))
	qt.Check(t, qt.Equals(out.Elems[3].(*visit.Ref).Index(), 1))

	qt.Assert(t, qt.Equals(len(r.newRefs), 2))
	qt.Check(t, qt.Equals(r.newRefs[0].Index(), 0))
	qt.Check(t, qt.Equals(r.newRefs[1].Index(), 1))
}

func TestDeterminism(t *testing.T) {
	build := func() value.Value {
		x := value.ArrayOf(value.Number(7))
		o := value.NewObject()
		o.Set("left", x)
		o.Set("right", value.ArrayOf(x, value.String("s")))
		return value.ArrayOf(o, x)
	}

	render := func(root value.Value) string {
		v := visit.New(root, &rebuilder{refPolicy: arraysOnly}, visit.Config{})
		got, err := v.Result()
		qt.Assert(t, qt.IsNil(err))
		return formatVal(got)
	}

	first := render(build())
	second := render(build())
	qt.Check(t, qt.Equals(first, second))
}

// suspender parks every string visit on a future the test settles later.
type suspender struct {
	visit.Base
	refPolicy func(value.Value) bool
	futures   []*visit.Future
}

func (s *suspender) VisitString(v *visit.Visitor, str value.String) (visit.Outcome, error) {
	f := visit.NewFuture()
	s.futures = append(s.futures, f)
	return visit.Pending(f), nil
}

func (s *suspender) VisitArray(v *visit.Visitor, a *value.Array) (visit.Outcome, error) {
	return v.Properties(a, visit.Mirror)
}

func (s *suspender) ShouldRef(n value.Value) bool {
	if s.refPolicy == nil {
		return false
	}
	return s.refPolicy(n)
}

func TestSyncAsyncBoundary(t *testing.T) {
	// All-synchronous run: strict extraction succeeds.
	sync := visit.New(value.ArrayOf(value.Number(1)), &rebuilder{}, visit.Config{})
	_, err := sync.Result()
	qt.Assert(t, qt.IsNil(err))

	// One suspending handler: strict extraction fails, the wrapped and
	// async forms still deliver.
	s := &suspender{}
	root := value.ArrayOf(value.String("slow"))
	v := visit.New(root, s, visit.Config{})

	_, err = v.Result()
	qt.Assert(t, qt.IsNotNil(err))
	qt.Check(t, qt.IsTrue(visit.IsIncomplete(err)))
	qt.Check(t, qt.ErrorMatches(err, `visit did not finish synchronously`))

	out, err := v.Outcome()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsFalse(out.IsSettled()))

	done := v.Done()
	qt.Check(t, qt.IsFalse(done.Done()))

	qt.Assert(t, qt.Equals(len(s.futures), 1))
	s.futures[0].Resolve(value.String("fast"))

	// Everything observes the same completion.
	res, err := out.Future().Result()
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(formatVal(res), `["fast"]`))

	res2, err := done.Result()
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(res2, res))

	// Strict extraction now succeeds: nothing is pending anymore.
	res3, err := v.Result()
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(res3, res))

	// Best-effort is settled on a fresh call.
	out2, err := v.Outcome()
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.IsTrue(out2.IsSettled()))
}

func TestSparseArrayRoundTrip(t *testing.T) {
	a := value.NewArray(3)
	a.Elems[0] = value.Number(1)
	a.Elems[2] = value.Number(3)

	v := visit.New(a, &rebuilder{}, visit.Config{})
	got, err := v.Result()
	qt.Assert(t, qt.IsNil(err))

	out := got.(*value.Array)
	qt.Assert(t, qt.Equals(out.Len(), 3))
	qt.Check(t, qt.IsNil(out.Elems[1])) // still a hole, not absent-filled
	qt.Check(t, qt.Equals(formatVal(out), `["1" _ "3"]`))
}

func TestRevisitWithoutPolicyReusesResult(t *testing.T) {
	x := value.ArrayOf(value.Number(5))
	root := value.ArrayOf(x, x)

	r := &rebuilder{} // no dedup
	v := visit.New(root, r, visit.Config{})

	got, err := v.Result()
	qt.Assert(t, qt.IsNil(err))

	out := got.(*value.Array)
	// Both positions hold the same rebuilt array, no Ref involved.
	qt.Check(t, qt.Equals(out.Elems[0], out.Elems[1]))
	qt.Check(t, qt.Equals(r.counts[x], 1))

	qt.Assert(t, qt.Equals(len(r.revisits), 1))
	qt.Check(t, qt.IsNil(r.revisits[0].ref))
	qt.Check(t, qt.IsFalse(r.revisits[0].cycleHead))

	qt.Check(t, qt.IsFalse(v.HasRefs()))
}

// failer fails the handler for one specific number.
type failer struct {
	visit.Base
	bad   value.Number
	calls int
	err   error
}

func (f *failer) VisitNumber(v *visit.Visitor, n value.Number) (visit.Outcome, error) {
	f.calls++
	if n == f.bad {
		return visit.Outcome{}, f.err
	}
	return visit.Settled(n), nil
}

func (f *failer) VisitArray(v *visit.Visitor, a *value.Array) (visit.Outcome, error) {
	return v.Properties(a, visit.Mirror)
}

func (f *failer) VisitString(v *visit.Visitor, s value.String) (visit.Outcome, error) {
	return visit.Settled(value.String(strings.ToUpper(string(s)))), nil
}

func TestHandlerErrorPropagates(t *testing.T) {
	sentinel := errors.New("thirteen is right out")
	f := &failer{bad: 13, err: sentinel}

	ok := value.String("ok")
	root := value.ArrayOf(value.Number(13), ok)
	v := visit.New(root, f, visit.Config{})

	_, err := v.Result()
	qt.Assert(t, qt.ErrorIs(err, sentinel))

	// The failing entry did not stop its sibling from being visited.
	got, err := v.ResultOf(ok)
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(got.(value.String), value.String("OK")))

	// The failed entry re-raises on query.
	_, err = v.ResultOf(value.Number(13))
	qt.Check(t, qt.ErrorIs(err, sentinel))
}

func TestHandlerErrorCachedOnEntry(t *testing.T) {
	sentinel := errors.New("boom")
	f := &failer{bad: 13, err: sentinel}

	root := value.ArrayOf(value.Number(13), value.Number(13))
	v := visit.New(root, f, visit.Config{})

	_, err := v.Result()
	qt.Assert(t, qt.ErrorIs(err, sentinel))
	// One handler call: the second occurrence re-raised the stored
	// error instead of re-dispatching.
	qt.Check(t, qt.Equals(f.calls, 1))
}

type panicker struct {
	visit.Base
}

func (panicker) VisitNumber(v *visit.Visitor, n value.Number) (visit.Outcome, error) {
	panic("no numbers today")
}

func TestHandlerPanicBecomesError(t *testing.T) {
	v := visit.New(value.Number(1), panicker{}, visit.Config{})
	_, err := v.Result()
	qt.Assert(t, qt.IsNotNil(err))
	code, ok := visit.CodeOf(err)
	qt.Assert(t, qt.IsTrue(ok))
	qt.Check(t, qt.Equals(code, visit.HandlerError))
	qt.Check(t, qt.ErrorMatches(err, `handler for number value panicked: no numbers today`))
}

func TestPendingShareDeclinedDeadlocks(t *testing.T) {
	s := &suspender{} // policy declines
	shared := value.String("shared")
	root := value.ArrayOf(shared, shared)
	v := visit.New(root, s, visit.Config{})

	_, err := v.Result()
	qt.Assert(t, qt.IsNotNil(err))
	qt.Check(t, qt.IsTrue(visit.IsDeadlock(err)))
}

func TestPendingShareWithRefs(t *testing.T) {
	s := &suspender{refPolicy: func(v value.Value) bool {
		return value.KindOf(v) == value.StringKind
	}}
	shared := value.String("shared")
	root := value.ArrayOf(shared, shared)
	v := visit.New(root, s, visit.Config{})

	out, err := v.Outcome()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsFalse(out.IsSettled()))

	qt.Assert(t, qt.Equals(len(s.futures), 1))
	s.futures[0].Resolve(value.String("done"))

	got, err := out.Future().Result()
	qt.Assert(t, qt.IsNil(err))
	res := got.(*value.Array)

	qt.Check(t, qt.Equals(res.Elems[0].(value.String), value.String("done")))
	ref, ok := res.Elems[1].(*visit.Ref)
	qt.Assert(t, qt.IsTrue(ok))

	// The Def resolved once the shared entry finished.
	dv, ok := ref.Def().Value()
	qt.Assert(t, qt.IsTrue(ok))
	qt.Check(t, qt.Equals(dv.(value.String), value.String("done")))
}

func TestPropertiesPairs(t *testing.T) {
	sym := value.NewSymbol("meta")
	o := value.NewObject()
	o.Set("a", value.Number(1))
	o.Set("b", value.Number(2))
	o.SetSym(sym, value.Number(3))

	r := &rebuilder{}
	v := visit.New(o, &pairsDelegate{rebuilder: r}, visit.Config{})
	got, err := v.Result()
	qt.Assert(t, qt.IsNil(err))

	qt.Check(t, qt.Equals(formatVal(got), `[["a" "1"] ["b" "2"] [@meta "3"]]`))
}

// pairsDelegate rebuilds objects into [key, value] pair lists and
// arrays into pair lists as well, while numbers stringify.
type pairsDelegate struct {
	*rebuilder
}

func (p *pairsDelegate) VisitObject(v *visit.Visitor, o *value.Object) (visit.Outcome, error) {
	return v.Properties(o, visit.Pairs)
}

func (p *pairsDelegate) VisitArray(v *visit.Visitor, a *value.Array) (visit.Outcome, error) {
	return v.Properties(a, visit.Pairs)
}

func TestPropertiesPairsSkipHoles(t *testing.T) {
	a := value.NewArray(3)
	a.Elems[0] = value.Number(1)
	a.Elems[2] = value.Number(3)

	v := visit.New(a, &pairsDelegate{rebuilder: &rebuilder{}}, visit.Config{})
	got, err := v.Result()
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(formatVal(got), `[["0" "1"] ["2" "3"]]`))
}

func TestPropertiesNonContainer(t *testing.T) {
	v := visit.New(value.Number(1), nil, visit.Config{})
	_, err := v.Properties(value.Number(1), visit.Mirror)
	qt.Assert(t, qt.IsNotNil(err))
	qt.Check(t, qt.IsTrue(visit.IsUsage(err)))
}

// proxyTagger marks proxies it is handed; used to observe dispatch.
type proxyTagger struct {
	rebuilder
	sawProxy bool
}

func (p *proxyTagger) VisitProxy(v *visit.Visitor, _ *value.Proxy) (visit.Outcome, error) {
	p.sawProxy = true
	return visit.Settled(value.String("wrapped")), nil
}

func TestProxyTransparentByDefault(t *testing.T) {
	fetches := 0
	p := value.Defer(func() value.Value {
		fetches++
		return value.Number(42)
	})

	d := &proxyTagger{}
	v := visit.New(value.ArrayOf(p), d, visit.Config{})
	got, err := v.Result()
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(formatVal(got), `["42"]`))
	qt.Check(t, qt.Equals(fetches, 1))
	qt.Check(t, qt.IsFalse(d.sawProxy))
}

func TestProxyAwareDispatch(t *testing.T) {
	fetches := 0
	p := value.Defer(func() value.Value {
		fetches++
		return value.Number(42)
	})

	d := &proxyTagger{}
	v := visit.New(value.ArrayOf(p), d, visit.Config{ProxyAware: true})
	got, err := v.Result()
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(formatVal(got), `["wrapped"]`))
	qt.Check(t, qt.IsTrue(d.sawProxy))
	qt.Check(t, qt.Equals(fetches, 0)) // target never realized
}

func TestQueriesBeforeRunFinished(t *testing.T) {
	v := visit.New(value.Number(1), nil, visit.Config{})

	_, err := v.ResultOf(value.Number(1))
	qt.Assert(t, qt.IsNotNil(err))
	qt.Check(t, qt.IsTrue(visit.IsUsage(err)))

	qt.Check(t, qt.PanicMatches(func() { v.HasRefs() },
		`visit: HasRefs called before the run finished`))
	qt.Check(t, qt.PanicMatches(func() { v.RefFor(value.Number(1)) },
		`visit: RefFor called before the run finished`))
}

func TestResultOfUnvisitedValue(t *testing.T) {
	v := visit.New(value.Number(1), nil, visit.Config{})
	_, err := v.Result()
	qt.Assert(t, qt.IsNil(err))

	_, err = v.ResultOf(value.String("never seen"))
	qt.Assert(t, qt.IsNotNil(err))
	qt.Check(t, qt.ErrorMatches(err, `value was never visited`))
}

func TestNaNSharesOneEntry(t *testing.T) {
	r := &rebuilder{}
	root := value.ArrayOf(value.Number(math.NaN()), value.Number(math.NaN()))
	v := visit.New(root, r, visit.Config{})

	got, err := v.Result()
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(r.numCalls, 1))

	out := got.(*value.Array)
	qt.Check(t, qt.Equals(out.Elems[0], out.Elems[1]))
}

func TestIntIdentityByValue(t *testing.T) {
	r := &rebuilder{}
	// Two separate allocations of the same number share one entry.
	root := value.ArrayOf(value.NewInt(42), value.NewInt(42), value.NewInt(43))
	v := visit.New(root, r, visit.Config{})

	_, err := v.Result()
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(len(r.revisits), 1))
}

func TestOutcomeMisuse(t *testing.T) {
	out := visit.Settled(value.Number(1))
	qt.Check(t, qt.PanicMatches(func() { out.Future() },
		`visit: Future on a settled outcome`))

	pend := visit.Pending(visit.NewFuture())
	qt.Check(t, qt.PanicMatches(func() { pend.Value() },
		`visit: Value on a pending outcome`))

	qt.Check(t, qt.PanicMatches(func() { visit.Pending(nil) },
		`visit: Pending with nil future`))
}

func TestFutureSettleOnce(t *testing.T) {
	f := visit.NewFuture()

	var got []value.Value
	f.OnSettle(func(v value.Value, err error) { got = append(got, v) })

	f.Resolve(value.Number(1))
	// Subsequent settlements are ignored.
	f.Resolve(value.Number(2))
	f.Reject(errors.New("too late"))

	qt.Assert(t, qt.Equals(len(got), 1))
	qt.Check(t, qt.Equals(got[0].(value.Number), value.Number(1)))

	v, err := f.Result()
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(v.(value.Number), value.Number(1)))

	// Late subscribers run inline.
	ran := false
	f.OnSettle(func(value.Value, error) { ran = true })
	qt.Check(t, qt.IsTrue(ran))

	qt.Check(t, qt.PanicMatches(func() { visit.NewFuture().Result() },
		`visit: Result on a pending future`))
}

func TestFutureWait(t *testing.T) {
	f := visit.NewFuture()
	go f.Resolve(value.String("later"))

	v, err := f.Wait(context.Background())
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(v.(value.String), value.String("later")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = visit.NewFuture().Wait(ctx)
	qt.Check(t, qt.ErrorIs(err, context.Canceled))
}

func TestDoneIsStable(t *testing.T) {
	v := visit.New(value.Number(1), nil, visit.Config{})
	d1 := v.Done()
	d2 := v.Done()
	qt.Check(t, qt.Equals(d1, d2))

	res, err := d1.Result()
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(res.(value.Number), value.Number(1)))
}

func TestRunStartsLazilyAndOnce(t *testing.T) {
	r := &rebuilder{}
	root := value.ArrayOf(value.Number(1))
	v := visit.New(root, r, visit.Config{})

	qt.Check(t, qt.Equals(r.counts[root], 0)) // nothing ran yet

	_, err := v.Result()
	qt.Assert(t, qt.IsNil(err))
	_, err = v.Result()
	qt.Assert(t, qt.IsNil(err))
	v.Done()

	qt.Check(t, qt.Equals(r.counts[root], 1))
}
