// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

import (
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
)

// Signature describes a host procedure's expected argument types and
// return type for call-time validation
// (SPEC_FULL.md §4.H/§4.I). Variadic signatures only constrain the
// fixed prefix of Params; trailing arguments are unchecked.
type Signature struct {
	Params   []ValueType
	Return   ValueType
	Variadic bool
}

// Validate checks args against sig's parameter types, returning an
// ArityMismatch or TypeMismatch *Error on the first violation.
func (sig *Signature) Validate(procName string, args []Value) error {
	if len(args) < len(sig.Params) || (!sig.Variadic && len(args) > len(sig.Params)) {
		return errArity(procName, len(sig.Params), len(args))
	}
	for i, want := range sig.Params {
		if got := args[i].TypeOf(); got != want {
			return NewError(TypeMismatch, fmt.Sprintf("%s: argument %d: expected %s, got %s", procName, i+1, want, got))
		}
	}
	return nil
}

// ValidateReturn checks a host procedure's result against sig.Return.
func (sig *Signature) ValidateReturn(procName string, v Value) error {
	if sig.Return == TypeUnspecified {
		return nil
	}
	if got := v.TypeOf(); got != sig.Return {
		return NewError(TypeMismatch, fmt.Sprintf("%s: return: expected %s, got %s", procName, sig.Return, got))
	}
	return nil
}

// Marshaller converts between Scheme Values and Go values at the host
// boundary, the Go counterpart of the calibration source's
// Marshallable/TypeSafeMarshaller pair. Struct conversions delegate to
// mapstructure so a host can register a native Go struct type without
// writing per-field glue; scalar and slice conversions are direct.
type Marshaller struct{}

// ToScheme converts a Go value to its Scheme representation. Supported:
// the Scheme-native scalars (int64, float64, bool, string), []T for any
// T ToScheme handles, and already-a-Value (returned unchanged).
func (Marshaller) ToScheme(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		return x, nil
	case int64:
		return IntegerValue(x), nil
	case int:
		return IntegerValue(int64(x)), nil
	case float64:
		return RealValue(x), nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case nil:
		return Unspecified, nil
	default:
		return marshalSlice(v)
	}
}

func marshalSlice(v any) (Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return Value{}, NewError(TypeMismatch, fmt.Sprintf("marshal: unsupported Go type %T", v))
	}
	items := make([]Value, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		item, err := (Marshaller{}).ToScheme(rv.Index(i).Interface())
		if err != nil {
			return Value{}, err
		}
		items[i] = item
	}
	return SliceToList(items), nil
}

// FromScheme converts a Scheme Value into the Go type out points to.
// Scalars assign directly; TypePair values decode into a slice (out
// must point to a slice of a type FromScheme itself can produce); any
// other destination delegates to mapstructure's reflection-based
// decoder via DecodeStruct.
func (m Marshaller) FromScheme(v Value, out any) error {
	switch o := out.(type) {
	case *int64:
		n, ok := v.AsNumber()
		if !ok {
			return errType("number", v)
		}
		*o = int64(numberToFloat(n))
		if n.Kind == NumberInteger {
			*o = n.Int
		}
		return nil
	case *float64:
		n, ok := v.AsNumber()
		if !ok {
			return errType("number", v)
		}
		*o = numberToFloat(n)
		return nil
	case *bool:
		*o = v.IsTruthy()
		return nil
	case *string:
		s, ok := v.AsString()
		if !ok {
			return errType("string", v)
		}
		*o = s
		return nil
	default:
		rv := reflect.ValueOf(out)
		if rv.Kind() == reflect.Pointer && rv.Elem().Kind() == reflect.Slice {
			items, ok := ListToSlice(v)
			if !ok {
				return errType("list", v)
			}
			slice := reflect.MakeSlice(rv.Elem().Type(), len(items), len(items))
			for i, item := range items {
				if err := m.FromScheme(item, slice.Index(i).Addr().Interface()); err != nil {
					return err
				}
			}
			rv.Elem().Set(slice)
			return nil
		}
		return m.DecodeStruct(v, out)
	}
}

// DecodeStruct decodes a Scheme association list (a proper list of
// (symbol . value) pairs) into a native Go struct via mapstructure, for
// host procedures that want a typed options record rather than raw
// Values. Vectors and hashtables are not accepted.
func (Marshaller) DecodeStruct(v Value, out any) error {
	raw, err := toGoMap(v)
	if err != nil {
		return err
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: out, TagName: "scheme"})
	if err != nil {
		return NewError(RuntimeError, "building decoder").WithCause(err)
	}
	if err := dec.Decode(raw); err != nil {
		return NewError(TypeMismatch, "decoding struct").WithCause(err)
	}
	return nil
}

// EncodeStruct is DecodeStruct's inverse: it flattens a Go struct's
// exported fields (respecting `scheme:"name"` tags) into a Scheme
// association list.
func (Marshaller) EncodeStruct(in any) (Value, error) {
	var generic map[string]any
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &generic, TagName: "scheme"})
	if err != nil {
		return Value{}, NewError(RuntimeError, "building encoder").WithCause(err)
	}
	if err := dec.Decode(in); err != nil {
		return Value{}, NewError(TypeMismatch, "encoding struct").WithCause(err)
	}
	pairs := make([]Value, 0, len(generic))
	for k, v := range generic {
		sv, err := (Marshaller{}).ToScheme(v)
		if err != nil {
			return Value{}, err
		}
		pairs = append(pairs, Cons(SymbolValue(Intern(k)), sv))
	}
	return SliceToList(pairs), nil
}

func toGoMap(v Value) (map[string]any, error) {
	items, ok := ListToSlice(v)
	if !ok {
		return nil, errType("association list", v)
	}
	out := make(map[string]any, len(items))
	for _, item := range items {
		car, cdr, isPair := item.AsPair()
		if !isPair {
			return nil, errType("pair", item)
		}
		sym, ok := car.AsSymbol()
		if !ok {
			return nil, errType("symbol key", car)
		}
		out[sym.Name] = goValueOf(cdr)
	}
	return out, nil
}

func goValueOf(v Value) any {
	switch v.TypeOf() {
	case TypeNumber:
		n, _ := v.AsNumber()
		if n.Kind == NumberInteger {
			return n.Int
		}
		return numberToFloat(n)
	case TypeString:
		s, _ := v.AsString()
		return s
	case TypeBoolean:
		return v.IsTruthy()
	case TypeSymbol:
		sym, _ := v.AsSymbol()
		return sym.Name
	default:
		return WriteString(v)
	}
}
