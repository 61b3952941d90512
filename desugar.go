// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

// desugarCond rewrites a cond form into nested If/Begin nodes, preserving
// tail position of the matched clause's last expression. A clause with no
// Exprs (the `(test)` shorthand) evaluates to the test value itself. A
// `cond` with no matching clause and no `else` evaluates to Unspecified.
func desugarCond(clauses []CondClause) Node {
	return desugarCondFallthrough(clauses, Literal{Value: Unspecified})
}

// desugarCondFallthrough is desugarCond generalized over what to evaluate
// once every clause's test has failed and there was no `else`. guard
// (let.go's dispatchGuard) uses this to re-raise the original condition
// instead of silently producing Unspecified — which a genuinely matched
// clause may also (legitimately) evaluate to.
func desugarCondFallthrough(clauses []CondClause, fallthroughNode Node) Node {
	if len(clauses) == 0 {
		return fallthroughNode
	}
	c := clauses[0]
	rest := desugarCondFallthrough(clauses[1:], fallthroughNode)
	if c.Test == nil { // else
		return BeginNode{Exprs: c.Exprs}
	}
	if len(c.Exprs) == 0 {
		return orTestNode{Test: c.Test, Else: rest}
	}
	return IfNode{Test: c.Test, Then: BeginNode{Exprs: c.Exprs}, Else: rest}
}

// orTestNode handles `(test)` cond clauses: evaluate test once, and if
// truthy yield it, otherwise fall through to Else.
type orTestNode struct {
	base
	Test, Else Node
}

func (orTestNode) node() {}

// desugarCase rewrites case into a let binding the key once, followed by
// nested If/eqv? tests against each clause's datum list.
func desugarCase(key Node, clauses []CaseClause) Node {
	keyVar := Intern("%case-key%")
	body := desugarCaseClauses(Variable{Name: keyVar}, clauses)
	return LetNode{
		Kind:     LetPlain,
		Bindings: []LetBinding{{Name: keyVar, Init: key}},
		Body:     []Node{body},
	}
}

func desugarCaseClauses(keyVar Node, clauses []CaseClause) Node {
	if len(clauses) == 0 {
		return Literal{Value: Unspecified}
	}
	c := clauses[0]
	rest := desugarCaseClauses(keyVar, clauses[1:])
	if c.Datums == nil { // else
		return BeginNode{Exprs: c.Exprs}
	}
	return IfNode{Test: memvNode{Key: keyVar, Datums: c.Datums}, Then: BeginNode{Exprs: c.Exprs}, Else: rest}
}

// memvNode tests whether a key is eqv? to any of a fixed datum list.
type memvNode struct {
	base
	Key    Node
	Datums []Value
}

func (memvNode) node() {}

// desugarAnd rewrites variadic and into nested If nodes; desugarOr
// chains orTestNode so each test is evaluated once.
func desugarAnd(exprs []Node) Node {
	switch len(exprs) {
	case 0:
		return Literal{Value: Bool(true)}
	case 1:
		return exprs[0]
	default:
		return IfNode{Test: exprs[0], Then: desugarAnd(exprs[1:]), Else: Literal{Value: Bool(false)}}
	}
}

func desugarOr(exprs []Node) Node {
	switch len(exprs) {
	case 0:
		return Literal{Value: Bool(false)}
	case 1:
		return exprs[0]
	default:
		return orTestNode{Test: exprs[0], Else: desugarOr(exprs[1:])}
	}
}

// desugarDo rewrites `do` into an equivalent named-let loop:
//
//	(letrec ((loop (lambda (vars...)
//	                 (if test (begin result...)
//	                     (begin commands... (loop steps...))))))
//	  (loop inits...))
func desugarDo(n *DoNode) Node {
	loopName := Intern("%do-loop%")
	inits := make([]LetBinding, len(n.Bindings))
	steps := make([]Node, len(n.Bindings))
	for i, b := range n.Bindings {
		inits[i] = LetBinding{Name: b.Name, Init: b.Init}
		if b.Step != nil {
			steps[i] = b.Step
		} else {
			steps[i] = Variable{Name: b.Name}
		}
	}
	loopCall := ApplicationNode{Operator: Variable{Name: loopName}, Args: steps}
	body := IfNode{
		Test: n.Test,
		Then: BeginNode{Exprs: n.Result},
		Else: BeginNode{Exprs: append(append([]Node{}, n.Commands...), loopCall)},
	}
	return LetNode{
		Kind:     LetNamed,
		LoopName: loopName,
		Bindings: inits,
		Body:     []Node{body},
	}
}
