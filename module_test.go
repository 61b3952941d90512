// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

import (
	"strings"
	"testing"
)

func defineModule(ev *Evaluator, name string, imports []string, exports []string, body []Node) {
	syms := make([]*Symbol, len(exports))
	for i, e := range exports {
		syms[i] = Intern(e)
	}
	ev.Modules().Register(&Module{Name: name, Imports: imports, Exports: syms, Body: body})
}

func TestLoadEvaluatesBodyInChildOfGlobal(t *testing.T) {
	ev := newTestEvaluator(t)
	defineModule(ev, "math", nil, []string{"answer"},
		[]Node{DefineNode{Name: Intern("answer"), Expr: intLit(42)}})

	env, err := ev.Load("math")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	v, ok := env.Lookup(Intern("answer"))
	if !ok {
		t.Fatal("expected answer to be bound in the module's environment")
	}
	n, _ := v.AsNumber()
	if n.Int != 42 {
		t.Fatalf("got %d, want 42", n.Int)
	}
	if _, ok := ev.GlobalEnv().Lookup(Intern("answer")); ok {
		t.Fatal("a module body must not leak bindings into the global environment directly")
	}
}

func TestLoadMissingModuleIsAnError(t *testing.T) {
	ev := newTestEvaluator(t)
	_, err := ev.Load("does-not-exist")
	if err == nil {
		t.Fatal("expected an error loading an unregistered module")
	}
}

func TestLoadDetectsImportCycle(t *testing.T) {
	ev := newTestEvaluator(t)
	defineModule(ev, "a", []string{"b"}, nil, nil)
	defineModule(ev, "b", []string{"a"}, nil, nil)

	_, err := ev.Load("a")
	if err == nil {
		t.Fatal("expected a cycle error loading mutually-importing modules")
	}
}

func TestLoadReportsEveryBrokenImportAtOnce(t *testing.T) {
	ev := newTestEvaluator(t)
	defineModule(ev, "needs-two", []string{"missing-one", "missing-two"}, nil, nil)

	_, err := ev.Load("needs-two")
	if err == nil {
		t.Fatal("expected an error loading a module with two broken imports")
	}
	msg := err.Error()
	if !strings.Contains(msg, "missing-one") || !strings.Contains(msg, "missing-two") {
		t.Fatalf("got %q, want both broken imports named in the aggregated error", msg)
	}
}

func TestLoadResolvesTransitiveImports(t *testing.T) {
	ev := newTestEvaluator(t)
	defineModule(ev, "base", nil, []string{"one"},
		[]Node{DefineNode{Name: Intern("one"), Expr: intLit(1)}})
	defineModule(ev, "mid", []string{"base"}, []string{"two"},
		[]Node{DefineNode{Name: Intern("two"), Expr: ApplicationNode{Operator: vr("+"), Args: []Node{vr("one"), intLit(1)}}}})

	env, err := ev.Load("mid")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	v, _ := env.Lookup(Intern("two"))
	n, _ := v.AsNumber()
	if n.Int != 2 {
		t.Fatalf("got %d, want 2", n.Int)
	}
}

func TestImportCopiesExportsIntoDestination(t *testing.T) {
	ev := newTestEvaluator(t)
	defineModule(ev, "colors", nil, []string{"red", "blue"},
		[]Node{
			DefineNode{Name: Intern("red"), Expr: intLit(1)},
			DefineNode{Name: Intern("blue"), Expr: intLit(2)},
		})

	dest := ev.GlobalEnv().Extend()
	if err := ev.Import("colors", dest, nil); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if _, ok := dest.Lookup(Intern("red")); !ok {
		t.Fatal("expected red to be imported")
	}
	if _, ok := dest.Lookup(Intern("blue")); !ok {
		t.Fatal("expected blue to be imported")
	}
}

func TestImportOnlyNarrowsExports(t *testing.T) {
	ev := newTestEvaluator(t)
	defineModule(ev, "colors2", nil, []string{"red", "blue"},
		[]Node{
			DefineNode{Name: Intern("red"), Expr: intLit(1)},
			DefineNode{Name: Intern("blue"), Expr: intLit(2)},
		})

	dest := ev.GlobalEnv().Extend()
	spec := &ImportSpec{Only: []*Symbol{Intern("red")}}
	if err := ev.Import("colors2", dest, spec); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if _, ok := dest.Lookup(Intern("red")); !ok {
		t.Fatal("expected red (named in Only) to be imported")
	}
	if _, ok := dest.Lookup(Intern("blue")); ok {
		t.Fatal("expected blue (not named in Only) to be excluded")
	}
}

func TestImportRenameRemapsLocalName(t *testing.T) {
	ev := newTestEvaluator(t)
	defineModule(ev, "colors3", nil, []string{"red"},
		[]Node{DefineNode{Name: Intern("red"), Expr: intLit(1)}})

	dest := ev.GlobalEnv().Extend()
	spec := &ImportSpec{Rename: map[*Symbol]*Symbol{Intern("red"): Intern("crimson")}}
	if err := ev.Import("colors3", dest, spec); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if _, ok := dest.Lookup(Intern("red")); ok {
		t.Fatal("the original export name must not appear under Rename")
	}
	if _, ok := dest.Lookup(Intern("crimson")); !ok {
		t.Fatal("expected the renamed local name to be bound")
	}
}

func TestReloadingAModuleReplacesItsExports(t *testing.T) {
	ev := newTestEvaluator(t)
	defineModule(ev, "version", nil, []string{"v"},
		[]Node{DefineNode{Name: Intern("v"), Expr: intLit(1)}})
	if _, err := ev.Load("version"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	defineModule(ev, "version", nil, []string{"v"},
		[]Node{DefineNode{Name: Intern("v"), Expr: intLit(2)}})
	env, err := ev.Load("version")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	v, _ := env.Lookup(Intern("v"))
	n, _ := v.AsNumber()
	if n.Int != 2 {
		t.Fatalf("got %d, want 2 after reload", n.Int)
	}
}
