// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

import "sync"

// Frame is the defunctionalized continuation interface (Reynolds 1972):
// each variant carries the data needed to resume computation rather than
// closing over it, so the trampoline in trampoline.go can iterate the
// chain without growing the Go call stack. Dispatch is by type switch,
// not a tag field — Frame is a pure marker interface.
//
// A continuation is the chain reachable by following Next pointers from
// any Frame to [IdentityFrame]. Chains are cheaply duplicable (copying a
// Frame value, or just the interface handle for pointer variants) and
// multi-shot: capturing one is a handle copy, and re-entering it later
// replaces the evaluator's current chain with the captured one (see
// call/cc's handling in dispatch.go and stepApply in trampoline.go).
type Frame interface {
	frame()
}

// frameNext returns the Next pointer of any concrete Frame variant, or
// nil for the terminal IdentityFrame. Frame itself carries no generic
// accessor (Next's type differs across variants only in name, never in
// shape) so winder reconciliation and error unwinding (dynamic_wind.go's
// collectWinders) can walk an arbitrary chain without a type switch at
// every call site.
func frameNext(f Frame) Frame {
	switch v := f.(type) {
	case IdentityFrame:
		return nil
	case *IfBranchFrame:
		return v.Next
	case *ApplyArgsFrame:
		return v.Next
	case *ApplyCallFrame:
		return v.Next
	case *BeginFrame:
		return v.Next
	case *DefineFrame:
		return v.Next
	case *SetFrame:
		return v.Next
	case *LetFrame:
		return v.Next
	case *LetValuesFrame:
		return v.Next
	case *DefineValuesFrame:
		return v.Next
	case *notResultFrame:
		return v.Next
	case *orTestFrame:
		return v.Next
	case *memvFrame:
		return v.Next
	case *DynamicWindFrame:
		return v.Next
	default:
		return nil
	}
}

// IdentityFrame returns its argument; it is the terminal continuation.
// Applying it yields the final result of an evaluation.
type IdentityFrame struct{}

func (IdentityFrame) frame() {}

// IfBranchFrame receives the evaluated test value and selects Then or
// Else, to be evaluated under Next.
type IfBranchFrame struct {
	Then, Else Node
	Env        *Environment
	Next       Frame
}

func (*IfBranchFrame) frame() {}

// ApplyArgsFrame is the argument-evaluation loop: Collected holds
// already-evaluated arguments, Remaining the not-yet-evaluated
// expressions. Each argument's result is appended to Collected; when
// Remaining is empty the operator is applied.
type ApplyArgsFrame struct {
	Operator  Value
	Collected []Value
	Remaining []Node
	Env       *Environment
	Next      Frame

	pooled bool
}

func (*ApplyArgsFrame) frame() {}

// ApplyCallFrame receives the evaluated operator and enters the argument
// loop over Args.
type ApplyCallFrame struct {
	Args []Node
	Env  *Environment
	Next Frame
}

func (*ApplyCallFrame) frame() {}

// BeginFrame sequences the remaining expressions of a body, evaluating
// each for effect except the last, whose value (under Next) is the
// Begin form's result.
type BeginFrame struct {
	Remaining []Node
	Env       *Environment
	Next      Frame

	pooled bool
}

func (*BeginFrame) frame() {}

// DefineFrame receives the evaluated initializer and installs it in Env
// under Name, then passes Unspecified to Next.
type DefineFrame struct {
	Name *Symbol
	Env  *Environment
	Next Frame
}

func (*DefineFrame) frame() {}

// SetFrame receives the evaluated new value and rebinds Name in the
// first enclosing frame that defines it (an UnboundVariable error if
// none does), then passes Unspecified to Next.
type SetFrame struct {
	Name *Symbol
	Env  *Environment
	Next Frame
}

func (*SetFrame) frame() {}

// LetFrame accumulates the evaluated initializer expressions of a let
// binding list before installing them and evaluating Body.
//
// EvalEnv is the environment each not-yet-evaluated initializer is
// evaluated against: the enclosing environment for plain let (bindings
// cannot see each other), or the pre-extended Target for letrec/named
// let (bindings and the loop body can see each other and themselves).
// dispatchLet creates Target before the first initializer runs, for
// plain let and letrec alike; runLoop still creates one from EvalEnv if
// a LetFrame arrives with Target nil.
type LetFrame struct {
	Names     []*Symbol
	Collected []Value
	Remaining []Node
	EvalEnv   *Environment
	Target    *Environment
	Body      []Node
	Next      Frame
}

func (*LetFrame) frame() {}

// --- pooling for the two highest-churn frame kinds ---
//
// ApplyArgsFrame and BeginFrame are allocated on every procedure
// application and every body sequence; a tail-recursive loop of a
// million iterations would otherwise churn a million of each. Acquire
// hands out a pooled, single-use instance; Release zeroes and returns it
// after the trampoline has consumed it. Frames obtained through
// acquireApplyArgsFrame/acquireBeginFrame are poolable; frames built
// directly by a caller embedding a Frame inside its own data structure
// (e.g. a captured continuation Value) must not be released, which is
// why Release is a package-private no-op unless pooled is set, and why
// call/cc clears pooled on every frame of the chain it captures.

var applyArgsPool = sync.Pool{New: func() any { return new(ApplyArgsFrame) }}
var beginPool = sync.Pool{New: func() any { return new(BeginFrame) }}

func acquireApplyArgsFrame() *ApplyArgsFrame {
	f := applyArgsPool.Get().(*ApplyArgsFrame)
	f.pooled = true
	return f
}

func releaseApplyArgsFrame(f *ApplyArgsFrame) {
	if !f.pooled {
		return
	}
	*f = ApplyArgsFrame{}
	applyArgsPool.Put(f)
}

func acquireBeginFrame() *BeginFrame {
	f := beginPool.Get().(*BeginFrame)
	f.pooled = true
	return f
}

func releaseBeginFrame(f *BeginFrame) {
	if !f.pooled {
		return
	}
	*f = BeginFrame{}
	beginPool.Put(f)
}

// Procedure is the common representation for the three callable kinds
// Apply understands. Builtin and HostProcedure wrap a native Go
// function; Lambda captures a parameter spec and body against an
// Environment. All three implement [Callable].
type Procedure struct {
	kind      procKind
	name      string
	builtin   func(args []Value) (Value, error)
	host      func(args []Value, ctx *EffectContext) (Value, error)
	params    ParamSpec
	body      []Node
	env       *Environment
	signature *Signature
}

type procKind int

const (
	procBuiltin procKind = iota
	procLambda
	procHost
)

// Callable is the interface every applicable Value (other than a
// reified continuation) satisfies.
type Callable interface {
	Name() string
	Arity() (min int, variadic bool)
}

func (p *Procedure) Name() string { return p.name }

func (p *Procedure) Arity() (int, bool) {
	switch p.kind {
	case procLambda:
		return len(p.params.Fixed), p.params.Rest != nil || len(p.params.Optional) > 0
	default:
		if p.signature != nil {
			return len(p.signature.Params), p.signature.Variadic
		}
		return 0, true
	}
}

// NewBuiltin wraps a native Go function as a builtin Scheme procedure.
// Builtins are invoked synchronously on the argument vector; they never
// need access to an [EffectContext].
func NewBuiltin(name string, fn func(args []Value) (Value, error)) Value {
	return Value{tag: tagBuiltin, ptr: &Procedure{kind: procBuiltin, name: name, builtin: fn}}
}

// ParamSpec describes a lambda's parameter list: fixed positional names,
// `#!optional`-style optional names (R7RS permits these via a
// collaborating reader's desugaring), and an optional rest parameter
// collecting any remaining arguments as a list.
type ParamSpec struct {
	Fixed    []*Symbol
	Optional []*Symbol
	Rest     *Symbol
}

// NewLambda builds a closure capturing env, usable directly as a Value.
func NewLambda(name string, params ParamSpec, body []Node, env *Environment) Value {
	return Value{tag: tagLambda, ptr: &Procedure{kind: procLambda, name: name, params: params, body: body, env: env}}
}
