// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

// specialFormNames is every keyword parseDatum's head-symbol switch
// recognizes directly, used to decide whether a hygienically renamed
// identifier in head position needs its pre-rename name resolved before
// dispatch (see hygienicBase in macro.go).
var specialFormNames = map[string]bool{
	"quote": true, "if": true, "lambda": true, "set!": true, "define": true,
	"begin": true, "let": true, "let*": true, "letrec": true, "letrec*": true,
	"cond": true, "and": true, "or": true, "when": true, "unless": true,
}

// parseDatum turns a Scheme datum produced by macro expansion back into
// an AST Node. Reading source text into data is out of scope for this
// module (SPEC_FULL.md's Non-goals), but a syntax-rules template's
// instantiation produces data, not AST — analyzing that handful of core
// special forms back into Node is the one place the evaluator itself
// must act as its own tiny analyzer, the same seam a `lambda` form's
// body or a `let`'s bindings cross when a collaborating parser hands
// them to Eval in the first place.
func (ev *Evaluator) parseDatum(v Value) (Node, error) {
	if sym, ok := v.AsSymbol(); ok {
		return Variable{Name: sym}, nil
	}
	if !v.IsPair() {
		if v.IsNil() {
			return QuoteNode{Datum: v}, nil
		}
		return Literal{Value: v}, nil
	}

	items, proper := ListToSlice(v)
	if !proper || len(items) == 0 {
		return QuoteNode{Datum: v}, nil
	}
	if head, ok := items[0].AsSymbol(); ok {
		rules, isMacro := ev.macros.Lookup(head)
		if !isMacro {
			if base := hygienicBase(head); base != head {
				rules, isMacro = ev.macros.Lookup(base)
			}
		}
		if isMacro {
			expanded, err := ev.macros.expandDepth(rules, v.Cdr(), 0)
			if err != nil {
				return nil, err
			}
			return ev.parseDatum(expanded)
		}
		// A hygienically renamed identifier (macro.go's hygienicRename) that
		// names a special form must still dispatch as one: a template's bare
		// `let`/`set!`/... is renamed along with every other free identifier
		// it introduces, so recognize it here by falling back to the name it
		// was renamed from whenever the renamed spelling itself isn't a known
		// form.
		formName := head.Name
		if _, known := specialFormNames[formName]; !known {
			formName = hygienicBase(head).Name
		}
		switch formName {
		case "quote":
			return QuoteNode{Datum: items[1]}, nil
		case "if":
			test, err := ev.parseDatum(items[1])
			if err != nil {
				return nil, err
			}
			then, err := ev.parseDatum(items[2])
			if err != nil {
				return nil, err
			}
			var els Node
			if len(items) > 3 {
				els, err = ev.parseDatum(items[3])
				if err != nil {
					return nil, err
				}
			}
			return IfNode{Test: test, Then: then, Else: els}, nil
		case "lambda":
			params, err := parseParamSpec(items[1])
			if err != nil {
				return nil, err
			}
			body, err := ev.parseDatumSlice(items[2:])
			if err != nil {
				return nil, err
			}
			return LambdaNode{Params: params, Body: body}, nil
		case "set!":
			sym, ok := items[1].AsSymbol()
			if !ok {
				return nil, NewError(SyntaxError, "set!: not an identifier")
			}
			expr, err := ev.parseDatum(items[2])
			if err != nil {
				return nil, err
			}
			return SetNode{Name: sym, Expr: expr}, nil
		case "define":
			return ev.parseDefine(items[1:])
		case "begin":
			body, err := ev.parseDatumSlice(items[1:])
			if err != nil {
				return nil, err
			}
			return BeginNode{Exprs: body}, nil
		case "let", "let*", "letrec", "letrec*":
			return ev.parseLet(formName, items[1:])
		case "cond":
			return ev.parseCond(items[1:])
		case "and":
			body, err := ev.parseDatumSlice(items[1:])
			if err != nil {
				return nil, err
			}
			return AndNode{Exprs: body}, nil
		case "or":
			body, err := ev.parseDatumSlice(items[1:])
			if err != nil {
				return nil, err
			}
			return OrNode{Exprs: body}, nil
		case "when":
			test, err := ev.parseDatum(items[1])
			if err != nil {
				return nil, err
			}
			body, err := ev.parseDatumSlice(items[2:])
			if err != nil {
				return nil, err
			}
			return WhenNode{Test: test, Exprs: body}, nil
		case "unless":
			test, err := ev.parseDatum(items[1])
			if err != nil {
				return nil, err
			}
			body, err := ev.parseDatumSlice(items[2:])
			if err != nil {
				return nil, err
			}
			return UnlessNode{Test: test, Exprs: body}, nil
		}
	}

	// Otherwise it's an application.
	op, err := ev.parseDatum(items[0])
	if err != nil {
		return nil, err
	}
	args, err := ev.parseDatumSlice(items[1:])
	if err != nil {
		return nil, err
	}
	return ApplicationNode{Operator: op, Args: args}, nil
}

func (ev *Evaluator) parseDatumSlice(items []Value) ([]Node, error) {
	out := make([]Node, len(items))
	for i, item := range items {
		n, err := ev.parseDatum(item)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (ev *Evaluator) parseDefine(items []Value) (Node, error) {
	if items[0].IsPair() {
		header, _ := ListToSlice(items[0])
		name, ok := header[0].AsSymbol()
		if !ok {
			return nil, NewError(SyntaxError, "define: not an identifier")
		}
		params, err := parseParamSpec(SliceToList(header[1:]))
		if err != nil {
			return nil, err
		}
		body, err := ev.parseDatumSlice(items[1:])
		if err != nil {
			return nil, err
		}
		return DefineNode{Name: name, Params: &params, Body: body}, nil
	}
	name, ok := items[0].AsSymbol()
	if !ok {
		return nil, NewError(SyntaxError, "define: not an identifier")
	}
	if len(items) == 1 {
		return DefineNode{Name: name, Expr: Literal{Value: Unspecified}}, nil
	}
	expr, err := ev.parseDatum(items[1])
	if err != nil {
		return nil, err
	}
	return DefineNode{Name: name, Expr: expr}, nil
}

func (ev *Evaluator) parseLet(kindName string, items []Value) (Node, error) {
	kind := LetPlain
	switch kindName {
	case "let*":
		kind = LetStar
	case "letrec", "letrec*":
		kind = LetRec
	}
	var loopName *Symbol
	if kind == LetPlain {
		if sym, ok := items[0].AsSymbol(); ok {
			loopName = sym
			kind = LetNamed
			items = items[1:]
		}
	}
	bindingList, _ := ListToSlice(items[0])
	bindings := make([]LetBinding, len(bindingList))
	for i, b := range bindingList {
		parts, _ := ListToSlice(b)
		sym, ok := parts[0].AsSymbol()
		if !ok {
			return nil, NewError(SyntaxError, "let: not an identifier")
		}
		init, err := ev.parseDatum(parts[1])
		if err != nil {
			return nil, err
		}
		bindings[i] = LetBinding{Name: sym, Init: init}
	}
	body, err := ev.parseDatumSlice(items[1:])
	if err != nil {
		return nil, err
	}
	return LetNode{Kind: kind, LoopName: loopName, Bindings: bindings, Body: body}, nil
}

func (ev *Evaluator) parseCond(clauseData []Value) (Node, error) {
	clauses := make([]CondClause, len(clauseData))
	for i, c := range clauseData {
		parts, _ := ListToSlice(c)
		var test Node
		if sym, ok := parts[0].AsSymbol(); !ok || (sym.Name != "else" && hygienicBase(sym).Name != "else") {
			t, err := ev.parseDatum(parts[0])
			if err != nil {
				return nil, err
			}
			test = t
		}
		exprs, err := ev.parseDatumSlice(parts[1:])
		if err != nil {
			return nil, err
		}
		clauses[i] = CondClause{Test: test, Exprs: exprs}
	}
	return CondNode{Clauses: clauses}, nil
}

// parseParamSpec parses a lambda formals datum: a proper list (fixed
// params), a symbol (a single rest param), or an improper list (fixed
// params plus a rest param). Optional parameters (#!optional-style)
// are not expressible in datum form and are left to the collaborating
// parser's own analysis of source text.
func parseParamSpec(formals Value) (ParamSpec, error) {
	if sym, ok := formals.AsSymbol(); ok {
		return ParamSpec{Rest: sym}, nil
	}
	var fixed []*Symbol
	cur := formals
	for cur.IsPair() {
		sym, ok := cur.Car().AsSymbol()
		if !ok {
			return ParamSpec{}, NewError(SyntaxError, "lambda: not an identifier in formals")
		}
		fixed = append(fixed, sym)
		cur = cur.Cdr()
	}
	if cur.IsNil() {
		return ParamSpec{Fixed: fixed}, nil
	}
	rest, ok := cur.AsSymbol()
	if !ok {
		return ParamSpec{}, NewError(SyntaxError, "lambda: improper formals tail is not an identifier")
	}
	return ParamSpec{Fixed: fixed, Rest: rest}, nil
}
