package function

import (
	"math"
	"math/big"

	"github.com/CameronXie/xacml-engine/xacml/status"
	"github.com/CameronXie/xacml-engine/xacml/value"
)

func init() {
	intT := single(value.TypeInteger)
	dblT := single(value.TypeDouble)

	register(
		newVariadic(xacml10+"integer-add", intT, integerFold(func(acc, n *big.Int) { acc.Add(acc, n) }), intT, 2),
		newVariadic(xacml10+"integer-multiply", intT, integerFold(func(acc, n *big.Int) { acc.Mul(acc, n) }), intT, 2),
		newFixed(xacml10+"integer-subtract", intT, integerSubtract, intT, intT),
		newFixed(xacml10+"integer-divide", intT, integerDivide, intT, intT),
		newFixed(xacml10+"integer-mod", intT, integerMod, intT, intT),
		newFixed(xacml10+"integer-abs", intT, integerAbs, intT),

		newVariadic(xacml10+"double-add", dblT, doubleFold(func(acc, d float64) float64 { return acc + d }), dblT, 2),
		newVariadic(xacml10+"double-multiply", dblT, doubleFold(func(acc, d float64) float64 { return acc * d }), dblT, 2),
		newFixed(xacml10+"double-subtract", dblT, doubleBinary(func(a, b float64) float64 { return a - b }), dblT, dblT),
		newFixed(xacml10+"double-divide", dblT, doubleDivide, dblT, dblT),
		newFixed(xacml10+"double-abs", dblT, doubleUnary(math.Abs), dblT),
		newFixed(xacml10+"round", dblT, doubleUnary(math.Round), dblT),
		newFixed(xacml10+"floor", dblT, doubleUnary(math.Floor), dblT),

		newFixed(xacml10+"integer-to-double", dblT, integerToDouble, intT),
		newFixed(xacml10+"double-to-integer", intT, doubleToInteger, dblT),
	)
}

func integerFold(op func(acc, n *big.Int)) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		first, err := toInteger(args[0])
		if err != nil {
			return nil, err
		}

		acc := first.Big()
		for _, arg := range args[1:] {
			n, err := toInteger(arg)
			if err != nil {
				return nil, err
			}
			op(acc, n.Big())
		}
		return value.IntegerFromBig(acc), nil
	}
}

func integerSubtract(args []value.Value) (value.Value, error) {
	a, err := toInteger(args[0])
	if err != nil {
		return nil, err
	}
	b, err := toInteger(args[1])
	if err != nil {
		return nil, err
	}
	return value.IntegerFromBig(new(big.Int).Sub(a.Big(), b.Big())), nil
}

func integerDivide(args []value.Value) (value.Value, error) {
	a, err := toInteger(args[0])
	if err != nil {
		return nil, err
	}
	b, err := toInteger(args[1])
	if err != nil {
		return nil, err
	}

	divisor := b.Big()
	if divisor.Sign() == 0 {
		return nil, status.NewProcessingError("integer division by zero")
	}
	return value.IntegerFromBig(new(big.Int).Quo(a.Big(), divisor)), nil
}

func integerMod(args []value.Value) (value.Value, error) {
	a, err := toInteger(args[0])
	if err != nil {
		return nil, err
	}
	b, err := toInteger(args[1])
	if err != nil {
		return nil, err
	}

	divisor := b.Big()
	if divisor.Sign() == 0 {
		return nil, status.NewProcessingError("integer modulo by zero")
	}
	return value.IntegerFromBig(new(big.Int).Rem(a.Big(), divisor)), nil
}

func integerAbs(args []value.Value) (value.Value, error) {
	n, err := toInteger(args[0])
	if err != nil {
		return nil, err
	}
	return value.IntegerFromBig(new(big.Int).Abs(n.Big())), nil
}

func doubleFold(op func(acc, d float64) float64) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		first, err := toDouble(args[0])
		if err != nil {
			return nil, err
		}

		acc := float64(first)
		for _, arg := range args[1:] {
			d, err := toDouble(arg)
			if err != nil {
				return nil, err
			}
			acc = op(acc, float64(d))
		}
		return value.Double(acc), nil
	}
}

func doubleBinary(op func(a, b float64) float64) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		a, err := toDouble(args[0])
		if err != nil {
			return nil, err
		}
		b, err := toDouble(args[1])
		if err != nil {
			return nil, err
		}
		return value.Double(op(float64(a), float64(b))), nil
	}
}

func doubleUnary(op func(float64) float64) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		d, err := toDouble(args[0])
		if err != nil {
			return nil, err
		}
		return value.Double(op(float64(d))), nil
	}
}

func doubleDivide(args []value.Value) (value.Value, error) {
	a, err := toDouble(args[0])
	if err != nil {
		return nil, err
	}
	b, err := toDouble(args[1])
	if err != nil {
		return nil, err
	}

	if float64(b) == 0 {
		return nil, status.NewProcessingError("double division by zero")
	}
	return value.Double(float64(a) / float64(b)), nil
}

func integerToDouble(args []value.Value) (value.Value, error) {
	n, err := toInteger(args[0])
	if err != nil {
		return nil, err
	}

	f, _ := new(big.Float).SetInt(n.Big()).Float64()
	return value.Double(f), nil
}

func doubleToInteger(args []value.Value) (value.Value, error) {
	d, err := toDouble(args[0])
	if err != nil {
		return nil, err
	}

	f := float64(d)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, status.NewProcessingError("cannot truncate %v to integer", f)
	}

	i, _ := big.NewFloat(math.Trunc(f)).Int(nil)
	return value.IntegerFromBig(i), nil
}
