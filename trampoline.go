// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

// Evaluator is the public entry point: it owns a global environment, a
// macro table, the stack monitor and adaptive memory manager, and drives
// the CPS trampoline below against the node classification dispatch.go
// provides.
//
// Eval/Call never grow the Go call stack in proportion to Scheme-level
// tail calls: runLoop mutates (expr, env, k) or (val, k) in place rather
// than recursing, mirroring the teacher's evalFrames/frameProcessor
// iterative dispatch — this is the same defunctionalized-frame-chain
// trick, specialized to one concrete Frame type instead of a generic P.
type Evaluator struct {
	global  *Environment
	macros  *MacroExpander
	stack   *StackMonitor
	memory  *AdaptiveMemoryManager
	bridge  *Bridge
	cancel  *CancelToken
	config  *Config
	log     Logger
	modules *ModuleRegistry
}

// Eval runs expr to completion against env under a fresh identity
// continuation and returns its value, or the first error encountered.
func (ev *Evaluator) Eval(expr Node, env *Environment) (Value, error) {
	return ev.runLoop(true, expr, env, globalContinuationPool.GetIdentity(), Value{})
}

// Call applies callable to args as if by `(apply callable args)`. Used
// both by the public API and by builtins that must invoke a Scheme
// procedure argument synchronously (`for-each`, `map`, dynamic-wind's
// before/after thunks): each such call runs its own nested trampoline,
// trading host-stack depth proportional to host-call nesting for a much
// simpler implementation. Scheme-level self-recursion is unaffected — it
// stays O(1) Go stack via tail calls within a single runLoop.
func (ev *Evaluator) Call(callable Value, args []Value) (Value, error) {
	k := globalContinuationPool.GetIdentity()
	expr, env, val, nextK, isExpr, err := ev.stepApply(callable, args, k)
	if err != nil {
		return Value{}, err
	}
	return ev.runLoop(isExpr, expr, env, nextK, val)
}

// runGuarded evaluates body (as Begin) and reports any error rather than
// propagating it, for `guard`'s exception boundary.
func (ev *Evaluator) runGuarded(body []Node, env *Environment) (Value, error) {
	return ev.Eval(BeginNode{Exprs: body}, env)
}

// runLoop is the trampoline. haveExpr selects the starting mode: true
// means (expr, env, k) is a pending sub-expression to dispatch; false
// means (val, k) is a value ready to deliver to the current
// continuation frame. Every iteration performs exactly one dispatch or
// one single-frame unwind, then loops — no Go-level recursion accrues
// across Scheme tail calls.
func (ev *Evaluator) runLoop(haveExpr bool, expr Node, env *Environment, k Frame, val Value) (Value, error) {
	for {
		if err := ev.cancel.checkCancelled(); err != nil {
			return Value{}, ev.unwindWinders(k, err)
		}

		if haveExpr {
			st, err := ev.dispatch(expr, env, k)
			if err != nil {
				return Value{}, ev.unwindWinders(k, err)
			}
			if st.Expr != nil {
				// A genuinely new frame (st.Next distinct from the continuation
				// this dispatch received) is the only thing that makes an
				// evaluation step non-tail: tail calls and desugaring rewrites
				// always hand the same k back. Counting every dispatched node
				// instead of just these would make depth grow with total work
				// done rather than with nesting, tripping StackOverflow on a
				// perfectly tail-recursive loop.
				if st.Next != k {
					if ev.stack.push(expr) {
						// st.Next (not k) is already active: a dynamic-wind's
						// Before runs synchronously during dispatch, before the
						// DynamicWindFrame it belongs to is even constructed, so
						// a StackOverflow here must still unwind through it.
						return Value{}, ev.unwindWinders(st.Next, NewError(StackOverflow, "maximum recursion depth exceeded"))
					}
				}
				expr, env, k = st.Expr, st.Env, st.Next
				continue
			}
			val, k, haveExpr = st.Value, st.Next, false
			continue
		}

		switch f := k.(type) {
		case IdentityFrame:
			return val, nil

		case *IfBranchFrame:
			ev.stack.pop()
			if val.IsTruthy() {
				expr, env, k, haveExpr = f.Then, f.Env, f.Next, true
			} else if f.Else == nil {
				val, k = Unspecified, f.Next
			} else {
				expr, env, k, haveExpr = f.Else, f.Env, f.Next, true
			}

		case *ApplyCallFrame:
			if len(f.Args) == 0 {
				ev.stack.pop()
				e, en, v, nk, isExpr, err := ev.stepApply(val, nil, f.Next)
				if err != nil {
					return Value{}, ev.unwindWinders(f.Next, err)
				}
				expr, env, val, k, haveExpr = e, en, v, nk, isExpr
				continue
			}
			af := acquireApplyArgsFrame()
			af.Operator = val
			af.Remaining = f.Args[1:]
			af.Env = f.Env
			af.Next = f.Next
			expr, env, k, haveExpr = f.Args[0], f.Env, af, true

		case *ApplyArgsFrame:
			f.Collected = append(f.Collected, val)
			if len(f.Remaining) > 0 {
				next := f.Remaining[0]
				f.Remaining = f.Remaining[1:]
				expr, env, k, haveExpr = next, f.Env, f, true
				continue
			}
			op, args, next := f.Operator, f.Collected, f.Next
			releaseApplyArgsFrame(f)
			ev.stack.pop()
			e, en, v, nk, isExpr, err := ev.stepApply(op, args, next)
			if err != nil {
				return Value{}, ev.unwindWinders(next, err)
			}
			expr, env, val, k, haveExpr = e, en, v, nk, isExpr

		case *BeginFrame:
			next := f.Remaining[0]
			rest := f.Remaining[1:]
			nextEnv, nextNext := f.Env, f.Next
			if len(rest) == 0 {
				releaseBeginFrame(f)
				ev.stack.pop()
				expr, env, k, haveExpr = next, nextEnv, nextNext, true
			} else {
				f.Remaining = rest
				expr, env, k, haveExpr = next, nextEnv, f, true
			}

		case *DefineFrame:
			f.Env.Define(f.Name, val)
			ev.stack.pop()
			val, k = Unspecified, f.Next

		case *SetFrame:
			if !f.Env.Set(f.Name, val) {
				if base := hygienicBase(f.Name); base != f.Name && f.Env.Set(base, val) {
					ev.stack.pop()
					val, k = Unspecified, f.Next
					continue
				}
				return Value{}, ev.unwindWinders(k, errUnboundVariable(f.Name.Name))
			}
			ev.stack.pop()
			val, k = Unspecified, f.Next

		case *LetFrame:
			if f.Target == nil {
				f.Target = f.EvalEnv.Extend()
			}
			f.Collected = append(f.Collected, val)
			f.Target.Define(f.Names[len(f.Collected)-1], val)
			if len(f.Remaining) == 0 {
				ev.stack.pop()
				expr, env, k, haveExpr = BeginNode{Exprs: f.Body}, f.Target, f.Next, true
				continue
			}
			next := f.Remaining[0]
			f.Remaining = f.Remaining[1:]
			expr, env, k, haveExpr = next, f.EvalEnv, f, true

		case *LetValuesFrame:
			bindMultipleValues(f.Target, f.Names, val)
			if len(f.Remaining) == 0 {
				ev.stack.pop()
				expr, env, k, haveExpr = BeginNode{Exprs: f.Body}, f.Target, f.Next, true
				continue
			}
			next := f.Remaining[0]
			nf := &LetValuesFrame{Names: next.Names, Remaining: f.Remaining[1:], EvalEnv: f.EvalEnv, Target: f.Target, Body: f.Body, Next: f.Next}
			expr, env, k, haveExpr = next.Init, f.EvalEnv, nf, true

		case *DefineValuesFrame:
			bindMultipleValues(f.Env, f.Names, val)
			ev.stack.pop()
			val, k = Unspecified, f.Next

		case *notResultFrame:
			ev.stack.pop()
			val, k = Bool(!val.IsTruthy()), f.Next

		case *orTestFrame:
			ev.stack.pop()
			if val.IsTruthy() {
				k = f.Next
			} else {
				expr, env, k, haveExpr = f.Else, f.Env, f.Next, true
			}

		case *memvFrame:
			found := false
			for _, d := range f.Datums {
				if Eqv(val, d) {
					found = true
					break
				}
			}
			ev.stack.pop()
			val, k = Bool(found), f.Next

		case *DynamicWindFrame:
			if _, aerr := ev.Call(f.After, nil); aerr != nil {
				// This extent's own After already ran (and failed); any
				// outer extents still active on f.Next must still unwind.
				return Value{}, ev.unwindWinders(f.Next, aerr)
			}
			ev.stack.pop()
			k = f.Next

		default:
			return Value{}, ev.unwindWinders(k, NewError(RuntimeError, "unrecognized continuation frame"))
		}
	}
}

func bindMultipleValues(env *Environment, names []*Symbol, v Value) {
	vals := valuesOf(v)
	for i, name := range names {
		if i < len(vals) {
			env.Define(name, vals[i])
		} else {
			env.Define(name, Unspecified)
		}
	}
}

func valuesOf(v Value) []Value {
	if mv, ok := v.AsMultipleValues(); ok {
		return mv
	}
	return []Value{v}
}

// stepApply resolves one procedure application. For a Lambda it returns
// isExpr=true with the body spliced into the *same* continuation k,
// which is exactly what preserves tail calls: the caller's runLoop
// continues in dispatch mode without ever recursing. For Builtin/Host it
// computes the result synchronously and returns isExpr=false. For a
// captured continuation Value it discards k's caller-visible identity
// entirely and hands the argument straight to the captured chain,
// implementing call/cc's non-local jump — the chain is multi-shot
// because it is only ever read, never mutated, by this path. Before
// doing so it reconciles k against chain through reconcileWinders: any
// dynamic-wind extent that k is inside and chain is not exits via After,
// and any extent that chain is inside and k is not (re-)enters via
// Before.
func (ev *Evaluator) stepApply(operator Value, args []Value, k Frame) (expr Node, env *Environment, val Value, nextK Frame, isExpr bool, err error) {
	if chain, ok := operator.AsContinuation(); ok {
		var v Value
		switch len(args) {
		case 0:
			v = Unspecified
		case 1:
			v = args[0]
		default:
			v = NewMultipleValues(args)
		}
		if rerr := ev.reconcileWinders(k, chain); rerr != nil {
			return nil, nil, Value{}, nil, false, rerr
		}
		return nil, nil, v, chain, false, nil
	}

	callable, ok := operator.AsCallable()
	if !ok {
		return nil, nil, Value{}, nil, false, errType("procedure", operator)
	}
	proc, ok := callable.(*Procedure)
	if !ok {
		return nil, nil, Value{}, nil, false, errType("procedure", operator)
	}

	switch proc.kind {
	case procBuiltin:
		v, berr := proc.builtin(args)
		if berr != nil {
			return nil, nil, Value{}, nil, false, berr
		}
		return nil, nil, v, k, false, nil

	case procHost:
		v, herr := proc.host(args, ev.bridge.effectContext(ev))
		if herr != nil {
			return nil, nil, Value{}, nil, false, herr
		}
		return nil, nil, v, k, false, nil

	case procLambda:
		callEnv, aerr := bindLambdaArgs(proc, args)
		if aerr != nil {
			return nil, nil, Value{}, nil, false, aerr
		}
		return BeginNode{Exprs: proc.body}, callEnv, Value{}, k, true, nil

	default:
		return nil, nil, Value{}, nil, false, NewError(RuntimeError, "unrecognized procedure kind")
	}
}

func bindLambdaArgs(proc *Procedure, args []Value) (*Environment, error) {
	min := len(proc.params.Fixed)
	max := min + len(proc.params.Optional)
	if len(args) < min || (proc.params.Rest == nil && len(args) > max) {
		return nil, errArity(proc.name, min, len(args))
	}
	callEnv := proc.env.Extend()
	i := 0
	for _, name := range proc.params.Fixed {
		callEnv.Define(name, args[i])
		i++
	}
	for _, name := range proc.params.Optional {
		if i < len(args) {
			callEnv.Define(name, args[i])
			i++
		} else {
			callEnv.Define(name, Unspecified)
		}
	}
	if proc.params.Rest != nil {
		callEnv.Define(proc.params.Rest, SliceToList(args[i:]))
	}
	return callEnv, nil
}
