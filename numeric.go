// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lambdust

import "math/big"

// numAdd/numSub/numMul/numDiv implement the numeric tower's arithmetic by
// promoting both operands to the least specific representation that can
// hold the result: integer+integer stays integer, anything touching a
// rational promotes to rational, anything touching a real promotes to
// real. This mirrors the usual Scheme numeric-tower contagion rule
// without requiring a full generic-arithmetic dispatch table.

func promoteToRat(n Number) *big.Rat {
	switch n.Kind {
	case NumberInteger:
		return new(big.Rat).SetInt64(n.Int)
	case NumberRational:
		return n.Big
	default:
		r := new(big.Rat)
		r.SetFloat64(n.Real)
		return r
	}
}

func numKindMax(a, b Number) NumberKind {
	if a.Kind == NumberReal || b.Kind == NumberReal {
		return NumberReal
	}
	if a.Kind == NumberRational || b.Kind == NumberRational {
		return NumberRational
	}
	return NumberInteger
}

func numAdd(a, b Number) Number { return numBinOp(a, b, func(x, y int64) int64 { return x + y }, (*big.Rat).Add, func(x, y float64) float64 { return x + y }) }
func numSub(a, b Number) Number { return numBinOp(a, b, func(x, y int64) int64 { return x - y }, (*big.Rat).Sub, func(x, y float64) float64 { return x - y }) }
func numMul(a, b Number) Number { return numBinOp(a, b, func(x, y int64) int64 { return x * y }, (*big.Rat).Mul, func(x, y float64) float64 { return x * y }) }

func numDiv(a, b Number) (Number, error) {
	if numberToFloat(b) == 0 && b.Kind != NumberReal {
		return Number{}, NewError(DivisionByZero, "division by zero")
	}
	switch numKindMax(a, b) {
	case NumberReal:
		return Number{Kind: NumberReal, Real: numberToFloat(a) / numberToFloat(b)}, nil
	default:
		ra, rb := promoteToRat(a), promoteToRat(b)
		if rb.Sign() == 0 {
			return Number{}, NewError(DivisionByZero, "division by zero")
		}
		result := new(big.Rat).Quo(ra, rb)
		if result.IsInt() {
			return Number{Kind: NumberInteger, Int: result.Num().Int64()}, nil
		}
		return Number{Kind: NumberRational, Big: result}, nil
	}
}

func numBinOp(a, b Number, intOp func(x, y int64) int64, ratOp func(z, x, y *big.Rat) *big.Rat, realOp func(x, y float64) float64) Number {
	switch numKindMax(a, b) {
	case NumberReal:
		return Number{Kind: NumberReal, Real: realOp(numberToFloat(a), numberToFloat(b))}
	case NumberRational:
		result := ratOp(new(big.Rat), promoteToRat(a), promoteToRat(b))
		if result.IsInt() {
			return Number{Kind: NumberInteger, Int: result.Num().Int64()}
		}
		return Number{Kind: NumberRational, Big: result}
	default:
		return Number{Kind: NumberInteger, Int: intOp(a.Int, b.Int)}
	}
}

func numCompare(a, b Number) int {
	if numKindMax(a, b) == NumberReal {
		af, bf := numberToFloat(a), numberToFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return promoteToRat(a).Cmp(promoteToRat(b))
}

func numNegate(a Number) Number {
	switch a.Kind {
	case NumberInteger:
		return Number{Kind: NumberInteger, Int: -a.Int}
	case NumberRational:
		return Number{Kind: NumberRational, Big: new(big.Rat).Neg(a.Big)}
	default:
		return Number{Kind: NumberReal, Real: -a.Real}
	}
}

func numQuotientRemainder(a, b Number) (quotient, remainder int64, err error) {
	ai, aok := asExactInt(a)
	bi, bok := asExactInt(b)
	if !aok || !bok {
		return 0, 0, NewError(TypeMismatch, "quotient/remainder: require integers")
	}
	if bi == 0 {
		return 0, 0, NewError(DivisionByZero, "division by zero")
	}
	return ai / bi, ai % bi, nil
}

func asExactInt(n Number) (int64, bool) {
	switch n.Kind {
	case NumberInteger:
		return n.Int, true
	case NumberReal:
		if n.Real == float64(int64(n.Real)) {
			return int64(n.Real), true
		}
		return 0, false
	default:
		if n.Big.IsInt() {
			return n.Big.Num().Int64(), true
		}
		return 0, false
	}
}
