// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

// dispatchLet enters a let/let*/letrec/named-let form. Plain let desugars
// to let* of a single flat frame (all inits share EvalEnv = env, Target
// created here before any init runs); let* desugars to nested plain lets at
// this boundary; letrec and named let pre-extend the environment so
// initializers (including the loop lambda itself) can see every name.
func (ev *Evaluator) dispatchLet(n *LetNode, env *Environment, k Frame) (step, error) {
	switch n.Kind {
	case LetStar:
		return ev.dispatchLetStar(n.Bindings, n.Body, env, k), nil

	case LetNamed:
		return ev.dispatchNamedLet(n, env, k), nil

	case LetRec:
		target := env.Extend()
		names := make([]*Symbol, len(n.Bindings))
		for i, b := range n.Bindings {
			names[i] = b.Name
			target.Define(b.Name, Unspecified)
		}
		return ev.enterLetInits(names, n.Bindings, target, target, n.Body, k), nil

	default: // LetPlain
		target := env.Extend()
		names := make([]*Symbol, len(n.Bindings))
		for i, b := range n.Bindings {
			names[i] = b.Name
		}
		return ev.enterLetInits(names, n.Bindings, env, target, n.Body, k), nil
	}
}

// enterLetInits begins evaluating the binding initializers in order
// against evalEnv, installing each result into target by Define as it
// completes (for letrec this overwrites the Unspecified placeholder
// target already holds for every name).
func (ev *Evaluator) enterLetInits(names []*Symbol, bindings []LetBinding, evalEnv, target *Environment, body []Node, k Frame) step {
	if len(bindings) == 0 {
		return stepEval(BeginNode{Exprs: body}, target, k)
	}
	f := &LetFrame{
		Names:     names,
		Remaining: initsOf(bindings[1:]),
		EvalEnv:   evalEnv,
		Target:    target,
		Body:      body,
		Next:      k,
	}
	return stepEval(bindings[0].Init, evalEnv, f)
}

func initsOf(bindings []LetBinding) []Node {
	out := make([]Node, len(bindings))
	for i, b := range bindings {
		out[i] = b.Init
	}
	return out
}

func (ev *Evaluator) dispatchLetStar(bindings []LetBinding, body []Node, env *Environment, k Frame) step {
	if len(bindings) == 0 {
		return stepEval(BeginNode{Exprs: body}, env, k)
	}
	inner := LetNode{Kind: LetStar, Bindings: bindings[1:], Body: body}
	return stepEval(LetNode{
		Kind:     LetPlain,
		Bindings: []LetBinding{bindings[0]},
		Body:     []Node{inner},
	}, env, k)
}

// dispatchNamedLet desugars `(let loop ((x init)...) body...)` into
// `(letrec ((loop (lambda (x...) body...))) (loop init...))`.
func (ev *Evaluator) dispatchNamedLet(n *LetNode, env *Environment, k Frame) step {
	params := make([]*Symbol, len(n.Bindings))
	inits := make([]Node, len(n.Bindings))
	for i, b := range n.Bindings {
		params[i] = b.Name
		inits[i] = b.Init
	}
	target := env.Extend()
	target.Define(n.LoopName, Unspecified)
	lambda := NewLambda(n.LoopName.Name, ParamSpec{Fixed: params}, n.Body, target)
	target.Define(n.LoopName, lambda)
	return stepEval(ApplicationNode{Operator: Variable{Name: n.LoopName}, Args: inits}, target, k)
}

// dispatchLetValues evaluates each binding's Init (expected to produce a
// MultipleValues result, or a single Value treated as one result) and
// destructures it into the corresponding Names.
func (ev *Evaluator) dispatchLetValues(n *LetValuesNode, env *Environment, k Frame) (step, error) {
	target := env.Extend()
	evalEnv := env
	if n.Star {
		evalEnv = target
	}
	return ev.enterLetValues(n.Bindings, evalEnv, target, n.Body, k), nil
}

func (ev *Evaluator) enterLetValues(bindings []MultiBinding, evalEnv, target *Environment, body []Node, k Frame) step {
	if len(bindings) == 0 {
		return stepEval(BeginNode{Exprs: body}, target, k)
	}
	f := &LetValuesFrame{
		Names:     bindings[0].Names,
		Remaining: bindings[1:],
		EvalEnv:   evalEnv,
		Target:    target,
		Body:      body,
		Next:      k,
	}
	return stepEval(bindings[0].Init, evalEnv, f)
}

type LetValuesFrame struct {
	Names     []*Symbol
	Remaining []MultiBinding
	EvalEnv   *Environment
	Target    *Environment
	Body      []Node
	Next      Frame
}

func (*LetValuesFrame) frame() {}

func (ev *Evaluator) dispatchDefineValues(n *DefineValuesNode, env *Environment, k Frame) (step, error) {
	f := &DefineValuesFrame{Names: n.Names, Env: env, Next: k}
	return stepEval(n.Init, env, f), nil
}

type DefineValuesFrame struct {
	Names []*Symbol
	Env   *Environment
	Next  Frame
}

func (*DefineValuesFrame) frame() {}

// dispatchGuard implements R7RS `guard`: Body is evaluated with a
// delimited exception boundary; a raised condition is bound to Var and
// matched against Clauses (as cond), re-raising if none matches.
func (ev *Evaluator) dispatchGuard(n *GuardNode, env *Environment, k Frame) (step, error) {
	result, err := ev.runGuarded(n.Body, env)
	if err == nil {
		return stepValue(result, k), nil
	}
	handlerEnv := env.Extend()
	handlerEnv.Define(n.Var, errorToCondition(err))
	// Without an `else` clause, if no test matches, reraiseNode re-raises err
	// directly rather than producing a value for k — desugarCond's
	// fallthrough would otherwise be Unspecified, indistinguishable from a
	// matched clause whose body legitimately evaluates to Unspecified.
	fallthroughNode := reraiseNode{Cause: err}
	return stepEval(desugarCondFallthrough(n.Clauses, fallthroughNode), handlerEnv, k), nil
}

// reraiseNode re-raises Cause when dispatched. It is never produced by a
// collaborating parser; dispatchGuard installs it as the tail of a
// desugared cond chain to signal "no clause matched" without overloading
// any ordinary Scheme value.
type reraiseNode struct {
	base
	Cause error
}

func (reraiseNode) node() {}

func errorToCondition(err error) Value {
	if sr, ok := err.(*schemeRaise); ok {
		return sr.Value
	}
	if le, ok := err.(*Error); ok {
		irritants := SliceToList(le.Irritants)
		return Cons(SymbolValue(Intern(le.Kind.String())), Cons(String(le.Message), irritants))
	}
	return String(err.Error())
}

