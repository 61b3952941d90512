// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

import "testing"

func TestRegisterProcedureInstallsIntoGlobalEnv(t *testing.T) {
	ev := newTestEvaluator(t)
	ev.RegisterProcedure("host-double", nil, func(args []Value, ctx *EffectContext) (Value, error) {
		n, _ := args[0].AsNumber()
		return IntegerValue(n.Int * 2), nil
	})

	v, ok := ev.GlobalEnv().Lookup(Intern("host-double"))
	if !ok {
		t.Fatal("expected host-double to be defined in the global environment")
	}
	app := ApplicationNode{Operator: Literal{Value: v}, Args: []Node{intLit(21)}}
	result := mustEval(t, ev, ev.GlobalEnv(), app)
	n, _ := result.AsNumber()
	if n.Int != 42 {
		t.Fatalf("got %d, want 42", n.Int)
	}
}

func TestRegisterProcedureValidatesArgsAgainstSignature(t *testing.T) {
	ev := newTestEvaluator(t)
	sig := &Signature{Params: []ValueType{TypeNumber}}
	ev.RegisterProcedure("needs-number", sig, func(args []Value, ctx *EffectContext) (Value, error) {
		return Unspecified, nil
	})
	app := ApplicationNode{Operator: vr("needs-number"), Args: []Node{Literal{Value: String("not a number")}}}
	_, err := ev.Eval(app, ev.GlobalEnv())
	if err == nil {
		t.Fatal("expected a signature validation error")
	}
}

func TestRegisterProcedureValidatesReturnType(t *testing.T) {
	ev := newTestEvaluator(t)
	sig := &Signature{Return: TypeNumber}
	ev.RegisterProcedure("bad-return", sig, func(args []Value, ctx *EffectContext) (Value, error) {
		return String("oops"), nil
	})
	app := ApplicationNode{Operator: vr("bad-return"), Args: nil}
	_, err := ev.Eval(app, ev.GlobalEnv())
	if err == nil {
		t.Fatal("expected a return-type validation error")
	}
}

func TestRegisterExternalObjectRoundTripsThroughLookup(t *testing.T) {
	ev := newTestEvaluator(t)
	released := false
	v := ev.RegisterExternalObject(42, "int-handle", func() { released = true })
	ext, ok := v.AsExternal()
	if !ok {
		t.Fatal("expected an External value")
	}
	got, ok := ev.Bridge().Lookup(ext)
	if !ok || got.(int) != 42 {
		t.Fatalf("got (%v,%v), want (42,true)", got, ok)
	}
	ev.Bridge().Release(ext)
	if !released {
		t.Fatal("expected the release callback to fire")
	}
	if _, ok := ev.Bridge().Lookup(ext); ok {
		t.Fatal("expected the registration to be forgotten after Release")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	ev := newTestEvaluator(t)
	calls := 0
	v := ev.RegisterExternalObject("x", "string-handle", func() { calls++ })
	ext, _ := v.AsExternal()
	ev.Bridge().Release(ext)
	ev.Bridge().Release(ext)
	if calls != 1 {
		t.Fatalf("got %d release calls, want exactly 1", calls)
	}
}

func TestReleaseOnUnknownExternalIsANoOp(t *testing.T) {
	ev := newTestEvaluator(t)
	ev.Bridge().Release(&External{Id: 999999, TypeName: "ghost"})
}

func TestRegisterExternalObjectAssignsDistinctIDs(t *testing.T) {
	ev := newTestEvaluator(t)
	a := ev.RegisterExternalObject(1, "t", nil)
	b := ev.RegisterExternalObject(2, "t", nil)
	ea, _ := a.AsExternal()
	eb, _ := b.AsExternal()
	if ea.Id == eb.Id {
		t.Fatal("two registrations must receive distinct ids")
	}
}
