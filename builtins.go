// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

import "fmt"

// schemeRaise carries a Scheme-level `(raise obj)` payload through the
// Go error channel so guard/with-exception-handler can recover obj
// itself rather than a synthesized *Error wrapping it.
type schemeRaise struct{ Value Value }

func (r *schemeRaise) Error() string { return "unhandled condition: " + WriteString(r.Value) }

// registerCoreBuiltins installs the minimal procedure set every special
// form in SPEC_FULL.md §4.L needs a program to exercise it with:
// equality, pair/list access, the numeric tower's arithmetic, apply/
// values, and the raise/guard exception vocabulary. The full standard
// procedure library (string/char libraries, I/O, ports) stays an
// external collaborator per spec.md §1's Non-goals; what's here is the
// load-bearing core a collaborating parser's output cannot run without.
func (ev *Evaluator) registerCoreBuiltins() {
	def := func(name string, fn func(args []Value) (Value, error)) {
		ev.global.Define(Intern(name), NewBuiltin(name, fn))
	}

	// --- equality & predicates ---
	def("eq?", fixed2(func(a, b Value) (Value, error) { return Bool(Eq(a, b)), nil }))
	def("eqv?", fixed2(func(a, b Value) (Value, error) { return Bool(Eqv(a, b)), nil }))
	def("equal?", fixed2(func(a, b Value) (Value, error) { return Bool(Equal(a, b)), nil }))
	def("not", fixed1(func(a Value) (Value, error) { return Bool(!a.IsTruthy()), nil }))

	def("pair?", typePredicate(func(v Value) bool { return v.IsPair() }))
	def("null?", typePredicate(func(v Value) bool { return v.IsNil() }))
	def("symbol?", typePredicate(func(v Value) bool { return v.IsSymbol() }))
	def("string?", typePredicate(func(v Value) bool { return v.TypeOf() == TypeString }))
	def("number?", typePredicate(func(v Value) bool { return v.TypeOf() == TypeNumber }))
	def("boolean?", typePredicate(func(v Value) bool { return v.TypeOf() == TypeBoolean }))
	def("procedure?", typePredicate(func(v Value) bool { _, ok := v.AsCallable(); return ok || v.TypeOf() == TypeContinuation }))
	def("vector?", typePredicate(func(v Value) bool { return v.TypeOf() == TypeVector }))
	def("char?", typePredicate(func(v Value) bool { return v.TypeOf() == TypeCharacter }))
	def("promise?", typePredicate(func(v Value) bool { return v.TypeOf() == TypePromise }))
	def("list?", typePredicate(func(v Value) bool { _, ok := ListToSlice(v); return ok }))

	// --- pairs & lists ---
	def("cons", fixed2(func(a, b Value) (Value, error) { return Cons(a, b), nil }))
	def("car", fixed1(func(v Value) (Value, error) {
		car, _, ok := v.AsPair()
		if !ok {
			return Value{}, errType("pair", v)
		}
		return car, nil
	}))
	def("cdr", fixed1(func(v Value) (Value, error) {
		_, cdr, ok := v.AsPair()
		if !ok {
			return Value{}, errType("pair", v)
		}
		return cdr, nil
	}))
	def("set-car!", fixed2(func(p, v Value) (Value, error) {
		mp, ok := p.ptrAsMutablePair()
		if !ok {
			return Value{}, NewError(ImmutableMutation, "set-car!: not a mutable pair")
		}
		mp.SetCar(v)
		return Unspecified, nil
	}))
	def("set-cdr!", fixed2(func(p, v Value) (Value, error) {
		mp, ok := p.ptrAsMutablePair()
		if !ok {
			return Value{}, NewError(ImmutableMutation, "set-cdr!: not a mutable pair")
		}
		mp.SetCdr(v)
		return Unspecified, nil
	}))
	def("list", func(args []Value) (Value, error) { return SliceToList(args), nil })
	def("length", fixed1(func(v Value) (Value, error) {
		items, ok := ListToSlice(v)
		if !ok {
			return Value{}, errType("list", v)
		}
		return IntegerValue(int64(len(items))), nil
	}))
	def("append", func(args []Value) (Value, error) {
		var all []Value
		for i, a := range args {
			items, ok := ListToSlice(a)
			if !ok && i != len(args)-1 {
				return Value{}, errType("list", a)
			}
			all = append(all, items...)
		}
		return SliceToList(all), nil
	})
	def("reverse", fixed1(func(v Value) (Value, error) {
		items, ok := ListToSlice(v)
		if !ok {
			return Value{}, errType("list", v)
		}
		out := make([]Value, len(items))
		for i, item := range items {
			out[len(items)-1-i] = item
		}
		return SliceToList(out), nil
	}))

	// --- higher-order procedures (need the evaluator to Call back in) ---
	def("apply", func(args []Value) (Value, error) {
		if len(args) < 2 {
			return Value{}, errArity("apply", 2, len(args))
		}
		tail, ok := ListToSlice(args[len(args)-1])
		if !ok {
			return Value{}, errType("list", args[len(args)-1])
		}
		callArgs := append(append([]Value{}, args[1:len(args)-1]...), tail...)
		return ev.Call(args[0], callArgs)
	})
	def("map", func(args []Value) (Value, error) {
		if len(args) < 2 {
			return Value{}, errArity("map", 2, len(args))
		}
		lists := make([][]Value, len(args)-1)
		n := -1
		for i, l := range args[1:] {
			items, ok := ListToSlice(l)
			if !ok {
				return Value{}, errType("list", l)
			}
			lists[i] = items
			if n == -1 || len(items) < n {
				n = len(items)
			}
		}
		out := make([]Value, n)
		for i := 0; i < n; i++ {
			row := make([]Value, len(lists))
			for j := range lists {
				row[j] = lists[j][i]
			}
			v, err := ev.Call(args[0], row)
			if err != nil {
				return Value{}, err
			}
			out[i] = v
		}
		return SliceToList(out), nil
	})
	def("for-each", func(args []Value) (Value, error) {
		if len(args) < 2 {
			return Value{}, errArity("for-each", 2, len(args))
		}
		lists := make([][]Value, len(args)-1)
		n := -1
		for i, l := range args[1:] {
			items, ok := ListToSlice(l)
			if !ok {
				return Value{}, errType("list", l)
			}
			lists[i] = items
			if n == -1 || len(items) < n {
				n = len(items)
			}
		}
		for i := 0; i < n; i++ {
			row := make([]Value, len(lists))
			for j := range lists {
				row[j] = lists[j][i]
			}
			if _, err := ev.Call(args[0], row); err != nil {
				return Value{}, err
			}
		}
		return Unspecified, nil
	})
	def("force", fixed1(func(v Value) (Value, error) { return ev.force(v) }))

	// --- multiple values ---
	def("values", func(args []Value) (Value, error) {
		if len(args) == 1 {
			return args[0], nil
		}
		return NewMultipleValues(args), nil
	})
	def("call-with-values", fixed2(func(producer, consumer Value) (Value, error) {
		v, err := ev.Call(producer, nil)
		if err != nil {
			return Value{}, err
		}
		return ev.Call(consumer, valuesOf(v))
	}))

	// --- exceptions ---
	def("error", func(args []Value) (Value, error) {
		if len(args) == 0 {
			return Value{}, NewError(RuntimeError, "error")
		}
		msg, _ := args[0].AsString()
		return Value{}, &Error{Kind: RuntimeError, Message: msg, Irritants: args[1:]}
	})
	def("raise", fixed1(func(v Value) (Value, error) { return Value{}, &schemeRaise{Value: v} }))
	def("raise-continuable", fixed1(func(v Value) (Value, error) { return Value{}, &schemeRaise{Value: v} }))
	def("with-exception-handler", fixed2(func(handler, thunk Value) (Value, error) {
		result, err := ev.Call(thunk, nil)
		if err == nil {
			return result, nil
		}
		return ev.Call(handler, []Value{errorToCondition(err)})
	}))

	ev.registerNumericBuiltins(def)
	ev.registerVectorBuiltins(def)
	ev.registerStringBuiltins(def)
}

func fixed1(fn func(a Value) (Value, error)) func([]Value) (Value, error) {
	return func(args []Value) (Value, error) {
		if len(args) != 1 {
			return Value{}, errArity("<builtin>", 1, len(args))
		}
		return fn(args[0])
	}
}

func fixed2(fn func(a, b Value) (Value, error)) func([]Value) (Value, error) {
	return func(args []Value) (Value, error) {
		if len(args) != 2 {
			return Value{}, errArity("<builtin>", 2, len(args))
		}
		return fn(args[0], args[1])
	}
}

func typePredicate(pred func(Value) bool) func([]Value) (Value, error) {
	return fixed1(func(v Value) (Value, error) { return Bool(pred(v)), nil })
}

func (v Value) ptrAsMutablePair() (*MutablePair, bool) {
	if v.tag != tagMutablePair {
		return nil, false
	}
	return v.ptr.(*MutablePair), true
}

func (ev *Evaluator) registerNumericBuiltins(def func(string, func([]Value) (Value, error))) {
	reduce := func(name string, identity Number, op func(Number, Number) Number) func([]Value) (Value, error) {
		return func(args []Value) (Value, error) {
			if len(args) == 0 {
				return numberValue(identity), nil
			}
			acc, ok := args[0].AsNumber()
			if !ok {
				return Value{}, errType("number", args[0])
			}
			for _, a := range args[1:] {
				n, ok := a.AsNumber()
				if !ok {
					return Value{}, errType("number", a)
				}
				acc = op(acc, n)
			}
			return numberValue(acc), nil
		}
	}
	def("+", reduce("+", Number{Kind: NumberInteger, Int: 0}, numAdd))
	def("*", reduce("*", Number{Kind: NumberInteger, Int: 1}, numMul))
	def("-", func(args []Value) (Value, error) {
		if len(args) == 0 {
			return Value{}, errArity("-", 1, 0)
		}
		first, ok := args[0].AsNumber()
		if !ok {
			return Value{}, errType("number", args[0])
		}
		if len(args) == 1 {
			return numberValue(numNegate(first)), nil
		}
		acc := first
		for _, a := range args[1:] {
			n, ok := a.AsNumber()
			if !ok {
				return Value{}, errType("number", a)
			}
			acc = numSub(acc, n)
		}
		return numberValue(acc), nil
	})
	def("/", func(args []Value) (Value, error) {
		if len(args) == 0 {
			return Value{}, errArity("/", 1, 0)
		}
		first, ok := args[0].AsNumber()
		if !ok {
			return Value{}, errType("number", args[0])
		}
		if len(args) == 1 {
			return divNumberValue(Number{Kind: NumberInteger, Int: 1}, first)
		}
		acc := first
		for _, a := range args[1:] {
			n, ok := a.AsNumber()
			if !ok {
				return Value{}, errType("number", a)
			}
			v, err := numDiv(acc, n)
			if err != nil {
				return Value{}, err
			}
			acc = v
		}
		return numberValue(acc), nil
	})

	cmp := func(ok func(int) bool) func([]Value) (Value, error) {
		return func(args []Value) (Value, error) {
			for i := 0; i+1 < len(args); i++ {
				a, aok := args[i].AsNumber()
				b, bok := args[i+1].AsNumber()
				if !aok {
					return Value{}, errType("number", args[i])
				}
				if !bok {
					return Value{}, errType("number", args[i+1])
				}
				if !ok(numCompare(a, b)) {
					return Bool(false), nil
				}
			}
			return Bool(true), nil
		}
	}
	def("=", cmp(func(c int) bool { return c == 0 }))
	def("<", cmp(func(c int) bool { return c < 0 }))
	def(">", cmp(func(c int) bool { return c > 0 }))
	def("<=", cmp(func(c int) bool { return c <= 0 }))
	def(">=", cmp(func(c int) bool { return c >= 0 }))

	def("zero?", fixed1(func(v Value) (Value, error) {
		n, ok := v.AsNumber()
		if !ok {
			return Value{}, errType("number", v)
		}
		return Bool(numCompare(n, Number{Kind: NumberInteger, Int: 0}) == 0), nil
	}))
	def("abs", fixed1(func(v Value) (Value, error) {
		n, ok := v.AsNumber()
		if !ok {
			return Value{}, errType("number", v)
		}
		if numCompare(n, Number{Kind: NumberInteger, Int: 0}) < 0 {
			return numberValue(numNegate(n)), nil
		}
		return v, nil
	}))
	def("quotient", fixed2(func(a, b Value) (Value, error) {
		na, aok := a.AsNumber()
		nb, bok := b.AsNumber()
		if !aok || !bok {
			return Value{}, errType("number", a)
		}
		q, _, err := numQuotientRemainder(na, nb)
		return IntegerValue(q), err
	}))
	def("remainder", fixed2(func(a, b Value) (Value, error) {
		na, aok := a.AsNumber()
		nb, bok := b.AsNumber()
		if !aok || !bok {
			return Value{}, errType("number", a)
		}
		_, r, err := numQuotientRemainder(na, nb)
		return IntegerValue(r), err
	}))
	def("modulo", fixed2(func(a, b Value) (Value, error) {
		na, aok := a.AsNumber()
		nb, bok := b.AsNumber()
		if !aok || !bok {
			return Value{}, errType("number", a)
		}
		_, r, err := numQuotientRemainder(na, nb)
		if err != nil {
			return Value{}, err
		}
		divisor, _ := asExactInt(nb)
		if r != 0 && (r < 0) != (divisor < 0) {
			r += divisor
		}
		return IntegerValue(r), nil
	}))
}

func numberValue(n Number) Value { return Value{tag: tagNumber, num: n} }

func divNumberValue(a, b Number) (Value, error) {
	v, err := numDiv(a, b)
	if err != nil {
		return Value{}, err
	}
	return numberValue(v), nil
}

func (ev *Evaluator) registerVectorBuiltins(def func(string, func([]Value) (Value, error))) {
	def("vector", func(args []Value) (Value, error) { return NewVector(append([]Value{}, args...)), nil })
	def("make-vector", func(args []Value) (Value, error) {
		if len(args) == 0 || len(args) > 2 {
			return Value{}, errArity("make-vector", 1, len(args))
		}
		n, ok := asExactInt(mustNumber(args[0]))
		if !ok {
			return Value{}, errType("number", args[0])
		}
		fill := Unspecified
		if len(args) == 2 {
			fill = args[1]
		}
		data := make([]Value, n)
		for i := range data {
			data[i] = fill
		}
		return NewVector(data), nil
	})
	def("vector-ref", fixed2(func(v, idx Value) (Value, error) {
		vec, ok := v.AsVector()
		if !ok {
			return Value{}, errType("vector", v)
		}
		i, ok := asExactInt(mustNumber(idx))
		if !ok || i < 0 || int(i) >= len(vec.Data) {
			return Value{}, NewError(NumericDomain, "vector-ref: index out of range")
		}
		return vec.Data[i], nil
	}))
	def("vector-set!", func(args []Value) (Value, error) {
		if len(args) != 3 {
			return Value{}, errArity("vector-set!", 3, len(args))
		}
		vec, ok := args[0].AsVector()
		if !ok {
			return Value{}, errType("vector", args[0])
		}
		i, ok := asExactInt(mustNumber(args[1]))
		if !ok || i < 0 || int(i) >= len(vec.Data) {
			return Value{}, NewError(NumericDomain, "vector-set!: index out of range")
		}
		vec.Data[i] = args[2]
		return Unspecified, nil
	})
	def("vector-length", fixed1(func(v Value) (Value, error) {
		vec, ok := v.AsVector()
		if !ok {
			return Value{}, errType("vector", v)
		}
		return IntegerValue(int64(len(vec.Data))), nil
	}))
}

func mustNumber(v Value) Number {
	n, _ := v.AsNumber()
	return n
}

func (ev *Evaluator) registerStringBuiltins(def func(string, func([]Value) (Value, error))) {
	def("string-length", fixed1(func(v Value) (Value, error) {
		s, ok := v.AsString()
		if !ok {
			return Value{}, errType("string", v)
		}
		return IntegerValue(int64(len([]rune(s)))), nil
	}))
	def("string-append", func(args []Value) (Value, error) {
		out := ""
		for _, a := range args {
			s, ok := a.AsString()
			if !ok {
				return Value{}, errType("string", a)
			}
			out += s
		}
		return String(out), nil
	})
	def("substring", func(args []Value) (Value, error) {
		if len(args) != 3 {
			return Value{}, errArity("substring", 3, len(args))
		}
		s, ok := args[0].AsString()
		if !ok {
			return Value{}, errType("string", args[0])
		}
		runes := []rune(s)
		start, _ := asExactInt(mustNumber(args[1]))
		end, _ := asExactInt(mustNumber(args[2]))
		if start < 0 || end > int64(len(runes)) || start > end {
			return Value{}, NewError(NumericDomain, "substring: index out of range")
		}
		return String(string(runes[start:end])), nil
	})
	def("string->symbol", fixed1(func(v Value) (Value, error) {
		s, ok := v.AsString()
		if !ok {
			return Value{}, errType("string", v)
		}
		return SymbolValue(Intern(s)), nil
	}))
	def("symbol->string", fixed1(func(v Value) (Value, error) {
		sym, ok := v.AsSymbol()
		if !ok {
			return Value{}, errType("symbol", v)
		}
		return String(sym.Name), nil
	}))
	def("string=?", fixed2(func(a, b Value) (Value, error) {
		sa, aok := a.AsString()
		sb, bok := b.AsString()
		if !aok || !bok {
			return Value{}, errType("string", a)
		}
		return Bool(sa == sb), nil
	}))
	def("number->string", fixed1(func(v Value) (Value, error) {
		n, ok := v.AsNumber()
		if !ok {
			return Value{}, errType("number", v)
		}
		return String(writeNumber(n)), nil
	}))
	def("string->number", fixed1(func(v Value) (Value, error) {
		s, ok := v.AsString()
		if !ok {
			return Value{}, errType("string", v)
		}
		var i int64
		if _, err := fmt.Sscanf(s, "%d", &i); err == nil {
			return IntegerValue(i), nil
		}
		var f float64
		if _, err := fmt.Sscanf(s, "%g", &f); err == nil {
			return RealValue(f), nil
		}
		return Bool(false), nil
	}))
}
