// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

// step is the result of dispatching one AST node or unwinding one
// continuation frame: either a value paired with the frame to deliver it
// to (Next non-nil, Expr nil), or a new sub-expression to evaluate under
// a given environment and frame (Expr non-nil).
//
// Exactly one of {Expr non-nil, Next non-nil with Value meaningful}
// holds; runLoop (trampoline.go) interprets the pair.
type step struct {
	Expr  Node
	Env   *Environment
	Next  Frame
	Value Value
}

func stepEval(expr Node, env *Environment, next Frame) step {
	return step{Expr: expr, Env: env, Next: next}
}

func stepValue(v Value, next Frame) step {
	return step{Value: v, Next: next}
}

// dispatch classifies expr per the CPS evaluator's node dispatch table
// and produces the next trampoline step, or an error. This is steps 2-3
// of the single evaluation step state machine: classify, then either
// produce a value for k or push a reified continuation and descend into
// a sub-expression.
func (ev *Evaluator) dispatch(expr Node, env *Environment, k Frame) (step, error) {
	switch n := expr.(type) {
	case Literal:
		return stepValue(n.Value, k), nil

	case Variable:
		v, ok := env.Lookup(n.Name)
		if !ok {
			if base := hygienicBase(n.Name); base != n.Name {
				v, ok = env.Lookup(base)
			}
		}
		if !ok {
			return step{}, errUnboundVariable(n.Name.Name).WithSpan(n.Span)
		}
		return stepValue(v, k), nil

	case QuoteNode:
		return stepValue(n.Datum, k), nil

	case IfNode:
		return stepEval(n.Test, env, &IfBranchFrame{Then: n.Then, Else: n.Else, Env: env, Next: k}), nil

	case LambdaNode:
		return stepValue(NewLambda(n.Name, n.Params, n.Body, env), k), nil

	case SetNode:
		return stepEval(n.Expr, env, &SetFrame{Name: n.Name, Env: env, Next: k}), nil

	case DefineNode:
		if n.Params != nil {
			env.Define(n.Name, NewLambda(n.Name.Name, *n.Params, n.Body, env))
			return stepValue(Unspecified, k), nil
		}
		return stepEval(n.Expr, env, &DefineFrame{Name: n.Name, Env: env, Next: k}), nil

	case BeginNode:
		return ev.dispatchBegin(n.Exprs, env, k)

	case ApplicationNode:
		return stepEval(n.Operator, env, &ApplyCallFrame{Args: n.Args, Env: env, Next: k}), nil

	case LetNode:
		return ev.dispatchLet(&n, env, k)

	case CondNode:
		return stepEval(desugarCond(n.Clauses), env, k), nil

	case CaseNode:
		return stepEval(desugarCase(n.Key, n.Clauses), env, k), nil

	case AndNode:
		return stepEval(desugarAnd(n.Exprs), env, k), nil

	case OrNode:
		return stepEval(desugarOr(n.Exprs), env, k), nil

	case WhenNode:
		return stepEval(IfNode{Test: n.Test, Then: BeginNode{Exprs: n.Exprs}, Else: nil}, env, k), nil

	case UnlessNode:
		return stepEval(IfNode{Test: NotNode{Inner: n.Test}, Then: BeginNode{Exprs: n.Exprs}, Else: nil}, env, k), nil

	case DoNode:
		return stepEval(desugarDo(&n), env, k), nil

	case DelayNode:
		return stepValue(newPromise(n.Expr, env), k), nil

	case CallCCNode:
		return stepEval(n.Proc, env, &ApplyCallFrame{Args: []Node{callCCArg{k}}, Env: env, Next: k}), nil

	case DynamicWindNode:
		return ev.dispatchDynamicWind(&n, env, k)

	case DefineSyntaxNode:
		ev.macros.Define(n.Name, n.Rules)
		return stepValue(Unspecified, k), nil

	case LetValuesNode:
		return ev.dispatchLetValues(&n, env, k)

	case DefineValuesNode:
		return ev.dispatchDefineValues(&n, env, k)

	case GuardNode:
		return ev.dispatchGuard(&n, env, k)

	case MacroUseNode:
		expanded, err := ev.macros.Expand(n.Name, n.Form)
		if err != nil {
			return step{}, err
		}
		rewritten, err := ev.parseDatum(expanded)
		if err != nil {
			return step{}, err
		}
		return stepEval(rewritten, env, k), nil

	case notNodeWrapper:
		return ev.dispatchNot(n, env, k)

	case orTestNode:
		return stepEval(n.Test, env, &orTestFrame{Else: n.Else, Env: env, Next: k}), nil

	case memvNode:
		return stepEval(n.Key, env, &memvFrame{Datums: n.Datums, Next: k}), nil

	case reraiseNode:
		return step{}, n.Cause

	case callCCArg:
		// The captured chain can be re-entered after runLoop has consumed
		// its frames, so none of them may be released back to a pool.
		for f := n.k; f != nil; f = frameNext(f) {
			switch pf := f.(type) {
			case *BeginFrame:
				pf.pooled = false
			case *ApplyArgsFrame:
				pf.pooled = false
			}
		}
		return stepValue(ContinuationValue(n.k), k), nil

	default:
		return step{}, NewError(SyntaxError, "unrecognized AST node")
	}
}

func (ev *Evaluator) dispatchBegin(exprs []Node, env *Environment, k Frame) (step, error) {
	switch len(exprs) {
	case 0:
		return stepValue(Unspecified, k), nil
	case 1:
		return stepEval(exprs[0], env, k), nil
	default:
		f := acquireBeginFrame()
		f.Remaining = exprs[1:]
		f.Env = env
		f.Next = k
		return stepEval(exprs[0], env, f), nil
	}
}

// NotNode is the trivial negation used to desugar `unless` into `if`.
// It is not part of the external AST contract; dispatch recognizes it
// via notNodeWrapper below.
type NotNode = notNodeWrapper

type notNodeWrapper struct {
	base
	Inner Node
}

func (notNodeWrapper) node() {}

func (ev *Evaluator) dispatchNot(n notNodeWrapper, env *Environment, k Frame) (step, error) {
	return stepEval(n.Inner, env, &notResultFrame{Next: k}), nil
}

type notResultFrame struct{ Next Frame }

func (*notResultFrame) frame() {}

// orTestFrame receives a short-circuiting test's value: truthy wins
// immediately, otherwise Else is evaluated in tail position.
type orTestFrame struct {
	Else Node
	Env  *Environment
	Next Frame
}

func (*orTestFrame) frame() {}

// memvFrame receives a case key's value and tests it against a fixed
// datum list with eqv?.
type memvFrame struct {
	Datums []Value
	Next   Frame
}

func (*memvFrame) frame() {}

// callCCArg is a pseudo-AST node standing in for an already-evaluated
// continuation Value as a call/cc argument: the evaluator needs the
// continuation to be the exact Frame k active at the call/cc site, not
// a freshly re-evaluated expression.
type callCCArg struct{ k Frame }

func (callCCArg) node()             {}
func (callCCArg) SourceSpan() *Span { return nil }
