// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

import "testing"

func TestEnvironmentDefineAndLookup(t *testing.T) {
	e := NewEnvironment()
	e.Define(Intern("x"), IntegerValue(1))
	v, ok := e.Lookup(Intern("x"))
	if !ok {
		t.Fatal("expected x to be bound")
	}
	n, _ := v.AsNumber()
	if n.Int != 1 {
		t.Fatalf("got %d, want 1", n.Int)
	}
}

func TestEnvironmentLookupWalksParentChain(t *testing.T) {
	root := NewEnvironment()
	root.Define(Intern("shared"), IntegerValue(42))
	child := root.Extend()
	grandchild := child.Extend()
	v, ok := grandchild.Lookup(Intern("shared"))
	if !ok {
		t.Fatal("expected shared to be visible through ancestors")
	}
	n, _ := v.AsNumber()
	if n.Int != 42 {
		t.Fatalf("got %d, want 42", n.Int)
	}
}

func TestEnvironmentShadowing(t *testing.T) {
	root := NewEnvironment()
	root.Define(Intern("x"), IntegerValue(1))
	child := root.Extend()
	child.Define(Intern("x"), IntegerValue(2))

	v, _ := child.Lookup(Intern("x"))
	n, _ := v.AsNumber()
	if n.Int != 2 {
		t.Fatalf("child shadowing: got %d, want 2", n.Int)
	}
	rv, _ := root.Lookup(Intern("x"))
	rn, _ := rv.AsNumber()
	if rn.Int != 1 {
		t.Fatalf("parent must be unaffected by child shadowing: got %d, want 1", rn.Int)
	}
}

func TestEnvironmentSetMutatesNearestEnclosingBinding(t *testing.T) {
	root := NewEnvironment()
	root.Define(Intern("x"), IntegerValue(1))
	child := root.Extend()
	if !child.Set(Intern("x"), IntegerValue(99)) {
		t.Fatal("set! should find x in an ancestor frame")
	}
	v, _ := root.Lookup(Intern("x"))
	n, _ := v.AsNumber()
	if n.Int != 99 {
		t.Fatalf("got %d, want 99", n.Int)
	}
}

func TestEnvironmentSetUnboundReturnsFalse(t *testing.T) {
	e := NewEnvironment()
	if e.Set(Intern("never-defined"), IntegerValue(1)) {
		t.Fatal("set! on an unbound variable must report failure")
	}
}

func TestEnvironmentLookupMissingReturnsFalse(t *testing.T) {
	e := NewEnvironment()
	if _, ok := e.Lookup(Intern("missing")); ok {
		t.Fatal("lookup of an unbound variable must report false")
	}
}

func TestEnvironmentParent(t *testing.T) {
	root := NewEnvironment()
	child := root.Extend()
	if child.Parent() != root {
		t.Fatal("Extend's child must report root as its Parent")
	}
	if root.Parent() != nil {
		t.Fatal("the root environment has no parent")
	}
}
