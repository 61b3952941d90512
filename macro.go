// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

import (
	"fmt"
	"sync"
)

const defaultMaxExpansionDepth = 512

// SyntaxRule is one `(pattern template)` clause of a syntax-rules
// transformer.
type SyntaxRule struct {
	Pattern  Value
	Template Value
}

// SyntaxRules is a syntax-rules macro transformer: a literal identifier
// set and an ordered list of pattern/template rules. Matching tries
// rules in order and commits to the first match, per R7RS's first-match
// semantics.
type SyntaxRules struct {
	Literals map[string]bool
	Rules    []SyntaxRule
	Ellipsis string // defaults to "..."
}

func (s *SyntaxRules) ellipsis() string {
	if s.Ellipsis == "" {
		return "..."
	}
	return s.Ellipsis
}

// MacroExpander owns the define-syntax table and the hygienic renaming
// counter. The counter is threaded through nested expansions exactly
// the way a State effect threads a counter through a computation (the
// teacher's state.go pattern) — here specialized to one concrete piece
// of state instead of a generic Get/Put effect, since macro expansion
// has exactly one thing that needs threading.
type MacroExpander struct {
	mu      sync.Mutex
	table   map[*Symbol]*SyntaxRules
	counter uint64
	maxDepth int
}

func newMacroExpander(maxDepth int) *MacroExpander {
	if maxDepth <= 0 {
		maxDepth = defaultMaxExpansionDepth
	}
	return &MacroExpander{table: make(map[*Symbol]*SyntaxRules), maxDepth: maxDepth}
}

func (m *MacroExpander) Define(name *Symbol, rules *SyntaxRules) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.table[name] = rules
}

func (m *MacroExpander) Lookup(name *Symbol) (*SyntaxRules, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.table[name]
	return r, ok
}

func (m *MacroExpander) nextRenameSuffix() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return m.counter
}

// Expand rewrites the use form `(name . form)` (form being the argument
// list the macro was applied to, i.e. the cdr of the original use) by
// matching it against name's rules in order and instantiating the first
// matching rule's template with fresh, hygienically renamed identifiers
// for any pattern variable the template introduces that was not bound
// in the pattern (a free identifier the template itself names, such as
// a temporary in a `swap!`-style macro).
func (m *MacroExpander) Expand(name *Symbol, form Value) (Value, error) {
	rules, ok := m.Lookup(name)
	if !ok {
		return Value{}, NewError(MacroExpansionError, "no syntax-rules transformer for "+name.Name)
	}
	return m.expandDepth(rules, form, 0)
}

func (m *MacroExpander) expandDepth(rules *SyntaxRules, form Value, depth int) (Value, error) {
	if depth > m.maxDepth {
		return Value{}, NewError(MacroExpansionError, "syntax-rules expansion exceeded maximum recursion depth")
	}
	for _, rule := range rules.Rules {
		bindings := map[string][]Value{}
		depthOf := map[string]int{}
		// Pattern's car is the macro keyword position; it is not matched
		// against form (form already excludes it — Expand receives the
		// use form's cdr), so match against the pattern's cdr.
		_, patternCdr, _ := rule.Pattern.AsPair()
		if matchPattern(patternCdr, form, rules, bindings, depthOf, 0) {
			renames := map[string]*Symbol{}
			suffix := m.nextRenameSuffix()
			return instantiate(rule.Template, bindings, depthOf, rules, renames, suffix), nil
		}
	}
	return Value{}, NewError(MacroExpansionError, "no matching syntax-rules clause")
}

// matchPattern attempts to match pattern against form, recording every
// pattern variable's bound subform(s) into bindings (keyed by name;
// ellipsis variables accumulate a slice) and its ellipsis nesting depth
// into depthOf.
func matchPattern(pattern, form Value, rules *SyntaxRules, bindings map[string][]Value, depthOf map[string]int, depth int) bool {
	switch {
	case pattern.IsSymbol():
		sym, _ := pattern.AsSymbol()
		if sym.Name == "_" {
			return true
		}
		if rules.Literals[sym.Name] {
			fsym, ok := form.AsSymbol()
			return ok && fsym.Name == sym.Name
		}
		bindings[sym.Name] = append(bindings[sym.Name], form)
		if _, has := depthOf[sym.Name]; !has {
			depthOf[sym.Name] = depth
		}
		return true

	case pattern.IsPair():
		car, cdr, _ := pattern.AsPair()
		if cdrCar, cdrCdr, isP := cdr.AsPair(); isP {
			if sym, ok := cdrCar.AsSymbol(); ok && sym.Name == rules.ellipsis() {
				return matchEllipsis(car, cdrCdr, form, rules, bindings, depthOf, depth)
			}
		}
		fCar, fCdr, ok := form.AsPair()
		if !ok {
			return false
		}
		return matchPattern(car, fCar, rules, bindings, depthOf, depth) &&
			matchPattern(cdr, fCdr, rules, bindings, depthOf, depth)

	case pattern.IsNil():
		return form.IsNil()

	default:
		return Equal(pattern, form)
	}
}

// matchEllipsis matches `(sub ... . tailPattern)` against form: it
// greedily consumes leading elements of form against sub (recording each
// pattern variable inside sub at depth+1, i.e. accumulating one more
// slice level), leaving enough elements for tailPattern to match.
func matchEllipsis(sub, tailPattern, form Value, rules *SyntaxRules, bindings map[string][]Value, depthOf map[string]int, depth int) bool {
	items, ok := ListToSlice(form)
	if !ok {
		return false
	}
	tailLen := properLength(tailPattern)
	if len(items) < tailLen {
		return false
	}
	repeatCount := len(items) - tailLen
	registerEllipsisVars(sub, rules, depthOf, depth+1)
	for i := 0; i < repeatCount; i++ {
		if !matchPattern(sub, items[i], rules, bindings, depthOf, depth+1) {
			return false
		}
	}
	return matchPattern(tailPattern, SliceToList(items[repeatCount:]), rules, bindings, depthOf, depth)
}

func properLength(v Value) int {
	n := 0
	for v.IsPair() {
		n++
		v = v.Cdr()
	}
	return n
}

// registerEllipsisVars ensures every pattern variable under an ellipsis
// subpattern has an (empty, if it never matches) entry in bindings/
// depthOf even when repeatCount is zero, so instantiate can tell "bound
// to zero repetitions" apart from "never a pattern variable at all".
func registerEllipsisVars(pattern Value, rules *SyntaxRules, depthOf map[string]int, depth int) {
	switch {
	case pattern.IsSymbol():
		sym, _ := pattern.AsSymbol()
		if sym.Name != "_" && !rules.Literals[sym.Name] {
			if _, has := depthOf[sym.Name]; !has {
				depthOf[sym.Name] = depth
			}
		}
	case pattern.IsPair():
		registerEllipsisVars(pattern.Car(), rules, depthOf, depth)
		registerEllipsisVars(pattern.Cdr(), rules, depthOf, depth)
	}
}

// instantiate builds the expansion from template, substituting bound
// pattern variables and hygienically renaming every other identifier the
// template introduces (so a `let`-bound temporary the macro writer named
// cannot capture an identifier of the same name at the use site). The
// same suffix is used for every fresh rename within one expansion so
// that repeated occurrences of the same template identifier still refer
// to the same renamed binding.
func instantiate(template Value, bindings map[string][]Value, depthOf map[string]int, rules *SyntaxRules, renames map[string]*Symbol, suffix uint64) Value {
	return instantiateAt(template, bindings, depthOf, rules, renames, suffix, nil)
}

// index tracks, per ellipsis-depth level, which repetition instantiateAt
// is currently producing, so nested ellipsis variables pick the matching
// slice element rather than always the first.
func instantiateAt(template Value, bindings map[string][]Value, depthOf map[string]int, rules *SyntaxRules, renames map[string]*Symbol, suffix uint64, index []int) Value {
	switch {
	case template.IsSymbol():
		sym, _ := template.AsSymbol()
		if vals, ok := bindings[sym.Name]; ok {
			i := selectIndex(index, depthOf[sym.Name])
			if i < len(vals) {
				return vals[i]
			}
			return Unspecified
		}
		if sym.Name == rules.ellipsis() {
			return template
		}
		return SymbolValue(hygienicRename(sym, renames, suffix))

	case template.IsPair():
		car, cdr, _ := template.AsPair()
		if cdrCar, cdrCdr, isP := cdr.AsPair(); isP {
			if esym, ok := cdrCar.AsSymbol(); ok && esym.Name == rules.ellipsis() {
				return instantiateEllipsis(car, cdrCdr, bindings, depthOf, rules, renames, suffix, index)
			}
		}
		return Cons(
			instantiateAt(car, bindings, depthOf, rules, renames, suffix, index),
			instantiateAt(cdr, bindings, depthOf, rules, renames, suffix, index),
		)

	default:
		return template
	}
}

func selectIndex(index []int, depth int) int {
	if depth == 0 || depth > len(index) {
		if len(index) == 0 {
			return 0
		}
		return index[len(index)-1]
	}
	return index[depth-1]
}

func instantiateEllipsis(sub, tail Value, bindings map[string][]Value, depthOf map[string]int, rules *SyntaxRules, renames map[string]*Symbol, suffix uint64, index []int) Value {
	n := repetitionCount(sub, bindings, depthOf, len(index)+1)
	items := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, instantiateAt(sub, bindings, depthOf, rules, renames, suffix, append(append([]int{}, index...), i)))
	}
	rest := instantiateAt(tail, bindings, depthOf, rules, renames, suffix, index)
	out := rest
	for i := len(items) - 1; i >= 0; i-- {
		out = Cons(items[i], out)
	}
	return out
}

func repetitionCount(pattern Value, bindings map[string][]Value, depthOf map[string]int, depth int) int {
	switch {
	case pattern.IsSymbol():
		sym, _ := pattern.AsSymbol()
		if d, ok := depthOf[sym.Name]; ok && d == depth {
			return len(bindings[sym.Name])
		}
		return 0
	case pattern.IsPair():
		if n := repetitionCount(pattern.Car(), bindings, depthOf, depth); n > 0 {
			return n
		}
		return repetitionCount(pattern.Cdr(), bindings, depthOf, depth)
	default:
		return 0
	}
}

// hygieneOrigin records, for every symbol minted by hygienicRename, the
// symbol it was renamed from. It is process-global for the same reason
// globalInterner is (see DESIGN.md): renamed symbols are interned values
// like any other and outlive the MacroExpander that minted them once they
// appear in an expansion's AST.
var hygieneOrigin sync.Map // map[*Symbol]*Symbol

func hygienicRename(sym *Symbol, renames map[string]*Symbol, suffix uint64) *Symbol {
	if r, ok := renames[sym.Name]; ok {
		return r
	}
	r := Intern(fmt.Sprintf("%s~%d", sym.Name, suffix))
	renames[sym.Name] = r
	hygieneOrigin.Store(r, sym)
	return r
}

// hygienicBase walks a possibly-renamed symbol back to the identifier it
// was renamed from, the identifier a template actually wrote. Expansion
// renames every free template identifier to prevent it from capturing (or
// being captured by) a use-site binding of the same name, but that
// renaming must not be the last word on what the identifier names: once a
// renamed identifier turns out not to be a local binding after all — a
// special form keyword, or a global the template referred to by name —
// resolution falls back to this base name instead of reporting it unbound.
// A symbol never produced by hygienicRename has no entry and resolves to
// itself.
func hygienicBase(sym *Symbol) *Symbol {
	for i := 0; i < 64; i++ {
		orig, ok := hygieneOrigin.Load(sym)
		if !ok {
			return sym
		}
		sym = orig.(*Symbol)
	}
	return sym
}
