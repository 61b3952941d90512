// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

import (
	"math/big"
	"strconv"
	"strings"
	"sync"
)

// ValueType classifies a [Value] for marshal signature checks and
// diagnostics. It deliberately collapses the full variant set into the
// coarse families a host or a type-mismatch error needs to name.
type ValueType int

const (
	TypeUnspecified ValueType = iota
	TypeBoolean
	TypeCharacter
	TypeNumber
	TypeString
	TypeSymbol
	TypeBytevector
	TypeVector
	TypePair
	TypeMutablePair
	TypeHashtable
	TypeProcedure
	TypeContinuation
	TypeExternal
	TypeEOF
	TypePromise
)

func (t ValueType) String() string {
	switch t {
	case TypeUnspecified:
		return "unspecified"
	case TypeBoolean:
		return "boolean"
	case TypeCharacter:
		return "character"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeSymbol:
		return "symbol"
	case TypeBytevector:
		return "bytevector"
	case TypeVector:
		return "vector"
	case TypePair:
		return "pair"
	case TypeMutablePair:
		return "mutable-pair"
	case TypeHashtable:
		return "hashtable"
	case TypeProcedure:
		return "procedure"
	case TypeContinuation:
		return "continuation"
	case TypeExternal:
		return "external-object"
	case TypeEOF:
		return "eof"
	case TypePromise:
		return "promise"
	default:
		return "unknown"
	}
}

// Symbol is an interned identifier handle. Equal symbol text always
// produces the same *Symbol pointer (see [SymbolInterner]), so eq?
// comparison on symbols is pointer comparison.
type Symbol struct {
	Name string
}

// NumberKind distinguishes the numeric tower members the evaluator
// natively supports. Rationals delegate to math/big; integers are int64
// and there is no arbitrary-precision integer kind.
type NumberKind int

const (
	NumberInteger NumberKind = iota
	NumberRational
	NumberReal
)

// Number is a tagged numeric value. Integers live in Int directly and are
// not promoted past the int64 range; rationals use Big. Exactly one of the
// three payload fields is meaningful, selected by Kind.
type Number struct {
	Kind NumberKind
	Int  int64
	Big  *big.Rat
	Real float64
}

func IntegerValue(n int64) Value   { return globalValuePool.integer(n) }
func RealValue(f float64) Value    { return Value{tag: tagNumber, num: Number{Kind: NumberReal, Real: f}} }
func RationalValue(r *big.Rat) Value {
	return Value{tag: tagNumber, num: Number{Kind: NumberRational, Big: r}}
}

// valueTag discriminates the Value union. Kept unexported: callers use
// accessor methods and constructors, never the tag directly.
type valueTag uint8

const (
	tagUnspecified valueTag = iota
	tagBoolean
	tagCharacter
	tagNumber
	tagString
	tagSymbol
	tagBytevector
	tagVector
	tagPair
	tagMutablePair
	tagHashtable
	tagBuiltin
	tagLambda
	tagHostProcedure
	tagContinuation
	tagExternal
	tagEOF
	tagNil
	tagMultipleValues
	tagPromise
)

// Value is the universal Scheme datum. Immediates (boolean, character,
// small integer, unspecified, nil) are stored inline; heap variants hold
// a pointer to their payload so copying a Value is always O(1) — the
// "cheap clone via shared ownership" invariant the data model requires.
type Value struct {
	tag valueTag
	b   bool
	ch  rune
	num Number
	ptr any // *string, *Symbol, *Bytevector, *Vector, *Pair, *MutablePair, *Hashtable, Callable, *External
}

// Bytevector is a mutable fixed sequence of bytes.
type Bytevector struct {
	mu   sync.Mutex
	Data []byte
}

// Vector is an indexable, mutable sequence of Values.
type Vector struct {
	mu   sync.Mutex
	Data []Value
}

// Pair is a structurally immutable cons cell. set-car!/set-cdr! are
// rejected on Pair; only [MutablePair] supports in-place mutation, per
// the data model's immutable-by-default invariant.
type Pair struct {
	Car, Cdr Value
}

// MutablePair is the distinct variant set-car!/set-cdr! operate on. Each
// cell is guarded by its own mutex so concurrent evaluators touching
// distinct mutable pairs never contend.
type MutablePair struct {
	mu       sync.Mutex
	Car, Cdr Value
}

func (p *MutablePair) Get() (Value, Value) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Car, p.Cdr
}

func (p *MutablePair) SetCar(v Value) {
	p.mu.Lock()
	p.Car = v
	p.mu.Unlock()
}

func (p *MutablePair) SetCdr(v Value) {
	p.mu.Lock()
	p.Cdr = v
	p.mu.Unlock()
}

// Hashtable maps Value to Value using equal? for key comparison. Entries
// are kept in a slice rather than a native Go map because Value is not
// itself comparable (pointers to mutable heap payloads); lookups fall
// back to [Equal] scans, which is acceptable for the core's scope since
// hash-table-heavy workloads belong to the standard library layer.
type Hashtable struct {
	mu      sync.Mutex
	entries []htEntry
}

type htEntry struct{ key, val Value }

func NewHashtable() Value {
	return Value{tag: tagHashtable, ptr: &Hashtable{}}
}

func (h *Hashtable) Get(key Value) (Value, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.entries {
		if Equal(e.key, key) {
			return e.val, true
		}
	}
	return Value{}, false
}

func (h *Hashtable) Set(key, val Value) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, e := range h.entries {
		if Equal(e.key, key) {
			h.entries[i].val = val
			return
		}
	}
	h.entries = append(h.entries, htEntry{key, val})
}

func (h *Hashtable) Delete(key Value) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, e := range h.entries {
		if Equal(e.key, key) {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			return
		}
	}
}

func (h *Hashtable) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// External is an opaque foreign-owned handle. The host bridge assigns
// the Id; the Scheme side holds only a reference, never the payload.
type External struct {
	Id       uint64
	TypeName string
}

// --- constructors ---

// Unspecified is the result of operations R7RS leaves undefined, such as
// set! or define.
var Unspecified = Value{tag: tagUnspecified}

// Nil is the canonical empty list, a process-wide singleton.
var Nil = Value{tag: tagNil}

var trueValue = Value{tag: tagBoolean, b: true}
var falseValue = Value{tag: tagBoolean, b: false}

func Bool(b bool) Value {
	if b {
		return trueValue
	}
	return falseValue
}

func Char(r rune) Value { return Value{tag: tagCharacter, ch: r} }

func String(s string) Value {
	v := s
	return Value{tag: tagString, ptr: &v}
}

func Cons(car, cdr Value) Value {
	return Value{tag: tagPair, ptr: &Pair{Car: car, Cdr: cdr}}
}

func MutableCons(car, cdr Value) Value {
	return Value{tag: tagMutablePair, ptr: &MutablePair{Car: car, Cdr: cdr}}
}

func NewVector(items []Value) Value {
	return Value{tag: tagVector, ptr: &Vector{Data: items}}
}

func NewBytevector(data []byte) Value {
	return Value{tag: tagBytevector, ptr: &Bytevector{Data: data}}
}

func eofValue() Value { return Value{tag: tagEOF} }

// SymbolValue wraps an interned *Symbol as a Value. Use
// [SymbolInterner.Intern] to obtain the handle.
func SymbolValue(s *Symbol) Value { return Value{tag: tagSymbol, ptr: s} }

func ExternalValue(e *External) Value { return Value{tag: tagExternal, ptr: e} }

func ContinuationValue(f Frame) Value { return Value{tag: tagContinuation, ptr: f} }

// MultipleValues is the payload `(values ...)` produces when called with
// other than one argument; `call-with-values`, `let-values`, and
// `define-values` are the consumers that unpack it (see valuesOf in
// trampoline.go). A single-valued Value is never wrapped this way.
type MultipleValues struct{ Values []Value }

func NewMultipleValues(vs []Value) Value {
	return Value{tag: tagMultipleValues, ptr: &MultipleValues{Values: vs}}
}

func (v Value) AsMultipleValues() ([]Value, bool) {
	if v.tag != tagMultipleValues {
		return nil, false
	}
	return v.ptr.(*MultipleValues).Values, true
}

// IsUnspecified reports whether v is the canonical unspecified result.
func IsUnspecified(v Value) bool { return v.tag == tagUnspecified }

// Promise is a delay/force cell: an unevaluated expression closed over
// its defining environment until the first force, after which Forced and
// Result hold forever (R7RS memoization) and Expr/Env are dropped.
type Promise struct {
	mu     sync.Mutex
	Forced bool
	Result Value
	Expr   Node
	Env    *Environment
}

func newPromise(expr Node, env *Environment) Value {
	return Value{tag: tagPromise, ptr: &Promise{Expr: expr, Env: env}}
}

func (v Value) AsPromise() (*Promise, bool) {
	if v.tag != tagPromise {
		return nil, false
	}
	return v.ptr.(*Promise), true
}

// NewHostProcedure wraps a native Go function bridged from outside the
// evaluator as a callable Scheme procedure. sig is recorded for Arity;
// the wrapper RegisterProcedure installs (see bridge.go) checks arguments
// and result against it on every call.
func NewHostProcedure(name string, sig *Signature, fn func(args []Value, ctx *EffectContext) (Value, error)) Value {
	return Value{tag: tagHostProcedure, ptr: &Procedure{kind: procHost, name: name, host: fn, signature: sig}}
}

// --- accessors ---

func (v Value) TypeOf() ValueType {
	switch v.tag {
	case tagUnspecified:
		return TypeUnspecified
	case tagBoolean:
		return TypeBoolean
	case tagCharacter:
		return TypeCharacter
	case tagNumber:
		return TypeNumber
	case tagString:
		return TypeString
	case tagSymbol:
		return TypeSymbol
	case tagBytevector:
		return TypeBytevector
	case tagVector:
		return TypeVector
	case tagPair, tagNil:
		return TypePair
	case tagMutablePair:
		return TypeMutablePair
	case tagHashtable:
		return TypeHashtable
	case tagBuiltin, tagLambda, tagHostProcedure:
		return TypeProcedure
	case tagContinuation:
		return TypeContinuation
	case tagExternal:
		return TypeExternal
	case tagEOF:
		return TypeEOF
	case tagPromise:
		return TypePromise
	default:
		return TypeUnspecified
	}
}

// IsTruthy implements R7RS truthiness: only the boolean #f is falsey;
// everything else, including '() and 0, is truthy.
func (v Value) IsTruthy() bool {
	return v.tag != tagBoolean || v.b
}

func (v Value) IsNil() bool    { return v.tag == tagNil }
func (v Value) IsPair() bool   { return v.tag == tagPair }
func (v Value) IsSymbol() bool { return v.tag == tagSymbol }

func (v Value) AsSymbol() (*Symbol, bool) {
	if v.tag != tagSymbol {
		return nil, false
	}
	return v.ptr.(*Symbol), true
}

func (v Value) AsString() (string, bool) {
	if v.tag != tagString {
		return "", false
	}
	return *v.ptr.(*string), true
}

func (v Value) AsNumber() (Number, bool) {
	if v.tag != tagNumber {
		return Number{}, false
	}
	return v.num, true
}

func (v Value) AsPair() (Value, Value, bool) {
	switch v.tag {
	case tagPair:
		p := v.ptr.(*Pair)
		return p.Car, p.Cdr, true
	case tagMutablePair:
		p := v.ptr.(*MutablePair)
		car, cdr := p.Get()
		return car, cdr, true
	default:
		return Value{}, Value{}, false
	}
}

func (v Value) AsVector() (*Vector, bool) {
	if v.tag != tagVector {
		return nil, false
	}
	return v.ptr.(*Vector), true
}

func (v Value) AsHashtable() (*Hashtable, bool) {
	if v.tag != tagHashtable {
		return nil, false
	}
	return v.ptr.(*Hashtable), true
}

func (v Value) AsExternal() (*External, bool) {
	if v.tag != tagExternal {
		return nil, false
	}
	return v.ptr.(*External), true
}

func (v Value) AsCallable() (Callable, bool) {
	switch v.tag {
	case tagBuiltin, tagLambda, tagHostProcedure:
		return v.ptr.(Callable), true
	default:
		return nil, false
	}
}

func (v Value) AsContinuation() (Frame, bool) {
	if v.tag != tagContinuation {
		return nil, false
	}
	return v.ptr.(Frame), true
}

// Car and Cdr return the zero Value (Unspecified) for a non-pair rather
// than panicking; callers that must tell a non-pair apart should use
// [Value.AsPair] instead. They exist for terse builtin implementations
// that have already arity/type-checked their arguments.
func (v Value) Car() Value { car, _, _ := v.AsPair(); return car }
func (v Value) Cdr() Value { _, cdr, _ := v.AsPair(); return cdr }

// ListToSlice flattens a proper list into a Go slice. ok is false if the
// list is improper (does not terminate in Nil).
func ListToSlice(v Value) (items []Value, ok bool) {
	for {
		if v.IsNil() {
			return items, true
		}
		car, cdr, isPair := v.AsPair()
		if !isPair {
			return items, false
		}
		items = append(items, car)
		v = cdr
	}
}

// SliceToList builds a proper list from items, using the immutable Pair
// variant.
func SliceToList(items []Value) Value {
	result := Nil
	for i := len(items) - 1; i >= 0; i-- {
		result = Cons(items[i], result)
	}
	return result
}

// --- equality ---

// Eq implements R7RS eq?: identity comparison. Immediates compare by
// value (booleans/characters/unspecified/nil are process-wide
// singletons or trivially comparable); heap variants compare by pointer
// identity, which the symbol interner and small-integer cache make
// meaningful for interned symbols and cached integers.
func Eq(a, b Value) bool {
	if a.tag != b.tag {
		return false
	}
	switch a.tag {
	case tagUnspecified, tagNil, tagEOF:
		return true
	case tagBoolean:
		return a.b == b.b
	case tagCharacter:
		return a.ch == b.ch
	case tagNumber:
		return a.num.Kind == NumberInteger && b.num.Kind == NumberInteger && a.num.Int == b.num.Int
	default:
		return a.ptr == b.ptr
	}
}

// Eqv implements R7RS eqv?: like eq? but also true for equal characters
// and for numbers of the same exactness with equal values, even when not
// the same cached object.
func Eqv(a, b Value) bool {
	if a.tag != b.tag {
		return false
	}
	switch a.tag {
	case tagNumber:
		return numberEqual(a.num, b.num)
	case tagCharacter:
		return a.ch == b.ch
	default:
		return Eq(a, b)
	}
}

func numberEqual(a, b Number) bool {
	if a.Kind != b.Kind {
		if a.Kind == NumberReal || b.Kind == NumberReal {
			return false // exact and inexact numbers are never eqv?
		}
		return promoteToRat(a).Cmp(promoteToRat(b)) == 0
	}
	switch a.Kind {
	case NumberInteger:
		return a.Int == b.Int
	case NumberReal:
		return a.Real == b.Real
	case NumberRational:
		return a.Big.Cmp(b.Big) == 0
	default:
		return false
	}
}

func numberToFloat(n Number) float64 {
	switch n.Kind {
	case NumberInteger:
		return float64(n.Int)
	case NumberReal:
		return n.Real
	case NumberRational:
		f, _ := n.Big.Float64()
		return f
	default:
		return 0
	}
}

// Equal implements R7RS equal?: structural recursive comparison,
// terminating on cycles via a visited-pair set.
func Equal(a, b Value) bool {
	return equalRec(a, b, make(map[visitKey]bool))
}

type visitKey struct{ a, b any }

func equalRec(a, b Value, visited map[visitKey]bool) bool {
	if a.tag != b.tag {
		return false
	}
	switch a.tag {
	case tagString:
		sa, _ := a.AsString()
		sb, _ := b.AsString()
		return sa == sb
	case tagBytevector:
		ba := a.ptr.(*Bytevector)
		bb := b.ptr.(*Bytevector)
		if len(ba.Data) != len(bb.Data) {
			return false
		}
		for i := range ba.Data {
			if ba.Data[i] != bb.Data[i] {
				return false
			}
		}
		return true
	case tagVector:
		va := a.ptr.(*Vector)
		vb := b.ptr.(*Vector)
		if len(va.Data) != len(vb.Data) {
			return false
		}
		key := visitKey{va, vb}
		if visited[key] {
			return true
		}
		visited[key] = true
		for i := range va.Data {
			if !equalRec(va.Data[i], vb.Data[i], visited) {
				return false
			}
		}
		return true
	case tagPair, tagMutablePair:
		key := visitKey{a.ptr, b.ptr}
		if visited[key] {
			return true
		}
		visited[key] = true
		ca, da, _ := a.AsPair()
		cb, db, _ := b.AsPair()
		return equalRec(ca, cb, visited) && equalRec(da, db, visited)
	case tagHashtable:
		return a.ptr == b.ptr
	default:
		return Eqv(a, b)
	}
}

// WriteString renders v in R7RS `write` form, sufficient for error
// messages and diagnostics; it is not a conforming printer (that is a
// collaborator's responsibility per the external interfaces contract).
func WriteString(v Value) string {
	var sb strings.Builder
	writeValue(&sb, v)
	return sb.String()
}

func writeValue(sb *strings.Builder, v Value) {
	switch v.tag {
	case tagUnspecified:
		sb.WriteString("#<unspecified>")
	case tagNil:
		sb.WriteString("()")
	case tagBoolean:
		if v.b {
			sb.WriteString("#t")
		} else {
			sb.WriteString("#f")
		}
	case tagCharacter:
		sb.WriteRune(v.ch)
	case tagNumber:
		sb.WriteString(writeNumber(v.num))
	case tagString:
		s, _ := v.AsString()
		sb.WriteByte('"')
		sb.WriteString(s)
		sb.WriteByte('"')
	case tagSymbol:
		sym, _ := v.AsSymbol()
		sb.WriteString(sym.Name)
	case tagPair, tagMutablePair:
		sb.WriteByte('(')
		writeValue(sb, v.Car())
		rest := v.Cdr()
		for {
			if rest.IsNil() {
				break
			}
			if rest.IsPair() {
				sb.WriteByte(' ')
				writeValue(sb, rest.Car())
				rest = rest.Cdr()
				continue
			}
			sb.WriteString(" . ")
			writeValue(sb, rest)
			break
		}
		sb.WriteByte(')')
	case tagVector:
		vec := v.ptr.(*Vector)
		sb.WriteString("#(")
		for i, item := range vec.Data {
			if i > 0 {
				sb.WriteByte(' ')
			}
			writeValue(sb, item)
		}
		sb.WriteByte(')')
	case tagBuiltin, tagLambda, tagHostProcedure:
		c, _ := v.AsCallable()
		sb.WriteString("#<procedure " + c.Name() + ">")
	case tagContinuation:
		sb.WriteString("#<continuation>")
	case tagExternal:
		ext, _ := v.AsExternal()
		sb.WriteString("#<external " + ext.TypeName + ">")
	case tagEOF:
		sb.WriteString("#<eof>")
	case tagHashtable:
		sb.WriteString("#<hashtable>")
	case tagBytevector:
		sb.WriteString("#u8(...)")
	case tagPromise:
		sb.WriteString("#<promise>")
	}
}

func writeNumber(n Number) string {
	switch n.Kind {
	case NumberInteger:
		return bigIntString(n.Int)
	case NumberReal:
		return floatString(n.Real)
	case NumberRational:
		return n.Big.RatString()
	default:
		return "?"
	}
}

func bigIntString(n int64) string { return strconv.FormatInt(n, 10) }

func floatString(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
