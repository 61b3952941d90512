// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

import (
	"math/rand/v2"
	"testing"
)

func datumList(vs ...Value) Value { return SliceToList(vs) }

func symv(name string) Value { return SymbolValue(Intern(name)) }

// swapRules builds a `(swap! a b)` macro using a hygienic temporary
// named `tmp`, the canonical syntax-rules example for why template
// identifiers must be renamed rather than copied verbatim.
func swapRules() *SyntaxRules {
	pattern := datumList(symv("_"), symv("a"), symv("b"))
	template := datumList(
		symv("let"),
		datumList(datumList(symv("tmp"), symv("a"))),
		datumList(symv("set!"), symv("a"), symv("b")),
		datumList(symv("set!"), symv("b"), symv("tmp")),
	)
	return &SyntaxRules{Rules: []SyntaxRule{{Pattern: pattern, Template: template}}}
}

func TestMacroExpandSimpleSubstitution(t *testing.T) {
	m := newMacroExpander(0)
	name := Intern("my-if")
	pattern := datumList(symv("_"), symv("test"), symv("then"), symv("else"))
	template := datumList(symv("if"), symv("test"), symv("then"), symv("else"))
	m.Define(name, &SyntaxRules{Rules: []SyntaxRule{{Pattern: pattern, Template: template}}})

	use := datumList(Bool(true), IntegerValue(1), IntegerValue(2))
	expanded, err := m.Expand(name, use)
	if err != nil {
		t.Fatalf("expand error: %v", err)
	}
	items, ok := ListToSlice(expanded)
	if !ok || len(items) != 4 {
		t.Fatalf("got %v, want a 4-element if-form", expanded)
	}
}

func TestMacroHygienicRenameAvoidsTemplateCapture(t *testing.T) {
	m := newMacroExpander(0)
	name := Intern("swap!")
	m.Define(name, swapRules())

	use := datumList(symv("x"), symv("y"))
	expanded, err := m.Expand(name, use)
	if err != nil {
		t.Fatalf("expand error: %v", err)
	}
	// expanded = (let ((tmp~N x)) (set! x y) (set! y tmp~N)) — the
	// template's own `tmp` must have been renamed to something other
	// than the literal text "tmp", since nothing in the use form bound
	// that name.
	items, _ := ListToSlice(expanded)
	bindings, _ := ListToSlice(items[1])
	tmpBinding, _ := ListToSlice(bindings[0])
	renamedSym, ok := tmpBinding[0].AsSymbol()
	if !ok || renamedSym.Name == "tmp" {
		t.Fatalf("got %v, want a renamed identifier distinct from the literal 'tmp'", tmpBinding[0])
	}
}

func TestMacroHygienicRenameIsStablePerExpansion(t *testing.T) {
	m := newMacroExpander(0)
	name := Intern("swap!")
	m.Define(name, swapRules())

	use := datumList(symv("x"), symv("y"))
	expanded, err := m.Expand(name, use)
	if err != nil {
		t.Fatalf("expand error: %v", err)
	}
	items, _ := ListToSlice(expanded)
	bindings, _ := ListToSlice(items[1])
	tmpBinding, _ := ListToSlice(bindings[0])
	renamed, _ := tmpBinding[0].AsSymbol()

	// The third form is (set! y tmp~N) — its second operand must be the
	// *same* renamed symbol as the let binding introduced.
	setForm, _ := ListToSlice(items[3])
	usedSym, _ := setForm[2].AsSymbol()
	if usedSym != renamed {
		t.Fatalf("got %v, want the same renamed symbol %v used consistently", usedSym, renamed)
	}
}

func TestMacroTwoExpansionsGetDistinctRenames(t *testing.T) {
	m := newMacroExpander(0)
	name := Intern("swap!")
	m.Define(name, swapRules())
	use := datumList(symv("x"), symv("y"))

	first, err := m.Expand(name, use)
	if err != nil {
		t.Fatalf("expand error: %v", err)
	}
	second, err := m.Expand(name, use)
	if err != nil {
		t.Fatalf("expand error: %v", err)
	}
	firstSym := firstBoundSymbol(t, first)
	secondSym := firstBoundSymbol(t, second)
	if firstSym == secondSym {
		t.Fatal("two independent expansions of the same macro use must not alias the same renamed symbol")
	}
}

func firstBoundSymbol(t *testing.T, expanded Value) *Symbol {
	t.Helper()
	items, _ := ListToSlice(expanded)
	bindings, _ := ListToSlice(items[1])
	tmpBinding, _ := ListToSlice(bindings[0])
	sym, _ := tmpBinding[0].AsSymbol()
	return sym
}

func TestMacroEllipsisMatchesVariableArity(t *testing.T) {
	m := newMacroExpander(0)
	name := Intern("my-list")
	pattern := datumList(symv("_"), symv("a"), symv("..."))
	template := datumList(symv("list"), symv("a"), symv("..."))
	m.Define(name, &SyntaxRules{Rules: []SyntaxRule{{Pattern: pattern, Template: template}}})

	rng := rand.New(rand.NewPCG(7, 11))
	for range 100 {
		n := rng.IntN(6)
		args := make([]Value, n)
		for i := range args {
			args[i] = IntegerValue(int64(i))
		}
		use := SliceToList(args)
		expanded, err := m.Expand(name, use)
		if err != nil {
			t.Fatalf("n=%d: expand error: %v", n, err)
		}
		items, ok := ListToSlice(expanded)
		if !ok || len(items) != n+1 { // "list" plus n args
			t.Fatalf("n=%d: got %v, want a %d-element list form", n, expanded, n+1)
		}
	}
}

func TestMacroFirstMatchingRuleWins(t *testing.T) {
	m := newMacroExpander(0)
	name := Intern("my-cond")
	zeroRule := SyntaxRule{
		Pattern:  datumList(symv("_"), IntegerValue(0)),
		Template: symv("zero-branch"),
	}
	catchAll := SyntaxRule{
		Pattern:  datumList(symv("_"), symv("x")),
		Template: symv("other-branch"),
	}
	m.Define(name, &SyntaxRules{Rules: []SyntaxRule{zeroRule, catchAll}})

	expanded, err := m.Expand(name, datumList(IntegerValue(0)))
	if err != nil {
		t.Fatalf("expand error: %v", err)
	}
	// The template is a bare symbol with no pattern-variable binding, so
	// instantiate hygienically renames it (e.g. "zero-branch~1"); only
	// the original name survives as a prefix.
	got, ok := expanded.AsSymbol()
	if !ok || len(got.Name) < len("zero-branch") || got.Name[:len("zero-branch")] != "zero-branch" {
		t.Fatalf("got %v, want the first matching rule to win", got)
	}
}

func TestMacroExpansionDepthLimitIsEnforced(t *testing.T) {
	m := newMacroExpander(2)
	name := Intern("loopy")
	// A macro that expands into another use of itself recurses forever;
	// expandDepth must bail out once maxDepth is exceeded rather than
	// looping the host process.
	pattern := datumList(symv("_"))
	template := datumList(symv("loopy"))
	m.Define(name, &SyntaxRules{Rules: []SyntaxRule{{Pattern: pattern, Template: template}}})

	_, err := m.expandDepth(&SyntaxRules{Rules: []SyntaxRule{{Pattern: pattern, Template: template}}}, datumList(), 0)
	// A single expandDepth call does not itself recurse (the dispatcher
	// re-enters via MacroUseNode), so this only exercises one level;
	// call expandDepth directly at a depth already past the limit to
	// exercise the guard.
	_, err2 := m.expandDepth(&SyntaxRules{Rules: []SyntaxRule{{Pattern: pattern, Template: template}}}, datumList(), 3)
	if err2 == nil {
		t.Fatal("expected a MacroExpansionError once maxDepth is exceeded")
	}
	le, ok := err2.(*Error)
	if !ok || le.Kind != MacroExpansionError {
		t.Fatalf("got %v, want MacroExpansionError", err2)
	}
	_ = err
}

func TestMacroUndefinedNameIsAnError(t *testing.T) {
	m := newMacroExpander(0)
	_, err := m.Expand(Intern("never-defined"), datumList())
	if err == nil {
		t.Fatal("expected an error expanding an undefined macro")
	}
}
