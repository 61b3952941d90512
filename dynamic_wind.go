// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

// DynamicWindFrame associates Before/After thunks with an extent. It is
// pushed around the evaluation of Thunk and runs After whenever the
// extent is exited — normal return, error unwind, or continuation
// jump — matching R7RS dynamic-wind semantics. Before is kept (not just
// run once on entry) because a captured continuation can jump back into
// the extent from outside it, which must re-run Before exactly as a
// fresh call to dynamic-wind would (see reconcileWinders).
type DynamicWindFrame struct {
	Before Value
	After  Value
	Next   Frame
}

func (*DynamicWindFrame) frame() {}

// dispatchDynamicWind evaluates Before to completion synchronously (it
// must return zero-shot, not suspend), pushes a DynamicWindFrame around
// Thunk so that After runs on every exit path, including a continuation
// jump unwinding past this point.
func (ev *Evaluator) dispatchDynamicWind(n *DynamicWindNode, env *Environment, k Frame) (step, error) {
	before, err := ev.Eval(n.Before, env)
	if err != nil {
		return step{}, err
	}
	if _, err := procedureOf(before); err != nil {
		return step{}, err
	}
	if _, err := ev.Call(before, nil); err != nil {
		return step{}, err
	}
	after, err := ev.Eval(n.After, env)
	if err != nil {
		return step{}, err
	}
	if _, err := procedureOf(after); err != nil {
		return step{}, err
	}
	return stepEval(ApplicationNode{Operator: n.Thunk}, env, &DynamicWindFrame{Before: before, After: after, Next: k}), nil
}

// collectWinders walks k outward, collecting every *DynamicWindFrame it
// passes through, innermost first. Non-winder frames are skipped via
// frameNext rather than stopping the walk, since a dynamic-wind extent
// can be nested arbitrarily deep inside ordinary evaluation frames.
func collectWinders(k Frame) []*DynamicWindFrame {
	var out []*DynamicWindFrame
	for f := k; f != nil; f = frameNext(f) {
		if dw, ok := f.(*DynamicWindFrame); ok {
			out = append(out, dw)
		}
	}
	return out
}

// unwindWinders runs the After thunk of every dynamic-wind extent still
// active on k before an error propagates past it, matching spec.md
// §4.F/§7's "DynamicWind after thunks run during unwind": an error
// raised inside a Thunk (or anywhere nested under one) must not skip the
// extents it is unwinding through. An error raised by an After thunk
// itself supersedes cause as the propagating error: an *Error is copied
// with cause attached as its Cause, while any other error type replaces
// cause outright. Remaining winders still run.
func (ev *Evaluator) unwindWinders(k Frame, cause error) error {
	for _, dw := range collectWinders(k) {
		if _, aerr := ev.Call(dw.After, nil); aerr != nil {
			if ae, ok := aerr.(*Error); ok {
				wrapped := *ae
				wrapped.Cause = cause
				cause = &wrapped
			} else {
				cause = aerr
			}
		}
	}
	return cause
}

// reconcileWinders runs the After thunks of every dynamic-wind extent
// being exited and the Before thunks of every extent being (re-)entered
// when a captured continuation replaces the chain cur with target. This
// is the call/cc + dynamic-wind interaction the glossary promises
// ("thunks run on every entry/exit including via continuations"): the
// classic connect/talk1/disconnect/connect/talk2/disconnect example
// depends on After firing when the jump leaves an extent and Before
// firing again when a later jump re-enters it.
//
// Extents exited run innermost-first (cur's natural order); extents
// entered run outermost-first (reverse of target's natural order), so
// a nested wind's Before never runs before its enclosing wind's.
func (ev *Evaluator) reconcileWinders(cur, target Frame) error {
	curWinders := collectWinders(cur)
	targetWinders := collectWinders(target)

	targetSet := make(map[*DynamicWindFrame]bool, len(targetWinders))
	for _, dw := range targetWinders {
		targetSet[dw] = true
	}
	for _, dw := range curWinders {
		if targetSet[dw] {
			continue
		}
		if _, err := ev.Call(dw.After, nil); err != nil {
			return err
		}
	}

	curSet := make(map[*DynamicWindFrame]bool, len(curWinders))
	for _, dw := range curWinders {
		curSet[dw] = true
	}
	var toEnter []*DynamicWindFrame
	for _, dw := range targetWinders {
		if !curSet[dw] {
			toEnter = append(toEnter, dw)
		}
	}
	for i := len(toEnter) - 1; i >= 0; i-- {
		if _, err := ev.Call(toEnter[i].Before, nil); err != nil {
			return err
		}
	}
	return nil
}

func procedureOf(v Value) (*Procedure, error) {
	p, ok := v.AsCallable()
	if !ok {
		return nil, errType("procedure", v)
	}
	proc, ok := p.(*Procedure)
	if !ok {
		return nil, errType("procedure", v)
	}
	return proc, nil
}
