package function

import (
	"fmt"

	"github.com/CameronXie/xacml-engine/xacml/evalctx"
	"github.com/CameronXie/xacml-engine/xacml/expression"
	"github.com/CameronXie/xacml-engine/xacml/status"
	"github.com/CameronXie/xacml-engine/xacml/value"
)

func init() {
	register(
		&anyAllFunction{id: xacml30 + "any-of", wantAll: false},
		&anyAllFunction{id: xacml30 + "all-of", wantAll: true},
		&crossProductFunction{id: xacml30 + "any-of-any"},
		&twoBagFunction{id: xacml30 + "all-of-any", allOuter: true},
		&twoBagFunction{id: xacml30 + "any-of-all", allOuter: false},
		&allOfAllFunction{},
		&mapFunction{},
	)
}

// innerFunction extracts and checks the function argument of a higher-order
// function.
func innerFunction(id string, args []expression.Expression, wantBoolean bool) (expression.Function, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("%s requires a function and at least one argument", id)
	}

	ref, ok := args[0].(expression.FunctionRef)
	if !ok {
		return nil, fmt.Errorf("%s first argument must be a function", id)
	}

	fn := ref.Function()
	if ret := fn.ReturnType(); wantBoolean && ret != single(value.TypeBoolean) {
		return nil, fmt.Errorf("%s requires a boolean function, %s returns %s", id, fn.ID(), ret)
	} else if ret.IsBag {
		return nil, fmt.Errorf("%s requires a function returning a single value", id)
	}
	return fn, nil
}

// evaluateAll evaluates the non-function arguments left to right.
func evaluateAll(ctx *evalctx.Context, args []expression.Expression) ([]value.Value, error) {
	values := make([]value.Value, len(args))
	for i, arg := range args {
		v, err := arg.Evaluate(ctx)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func callInner(ctx *evalctx.Context, fn expression.Function, args []value.AttributeValue) (bool, error) {
	exprs := make([]expression.Expression, len(args))
	for i, arg := range args {
		exprs[i] = expression.NewLiteral(arg)
	}

	v, err := fn.Call(ctx, exprs)
	if err != nil {
		return false, err
	}

	b, err := toBoolean(v)
	if err != nil {
		return false, err
	}
	return bool(b), nil
}

// anyAllFunction implements any-of and all-of: one of the arguments is a
// bag, and the inner function is applied once per bag element with the other
// arguments fixed.
type anyAllFunction struct {
	id      string
	wantAll bool
}

func (f *anyAllFunction) ID() string             { return f.id }
func (f *anyAllFunction) ReturnType() value.Type { return single(value.TypeBoolean) }

func (f *anyAllFunction) Validate(args []expression.Expression) error {
	if _, err := innerFunction(f.id, args, true); err != nil {
		return err
	}

	bags := 0
	for _, arg := range args[1:] {
		if arg.ResultType().IsBag {
			bags++
		}
	}
	if bags != 1 {
		return fmt.Errorf("%s requires exactly one bag argument, got %d", f.id, bags)
	}
	return nil
}

func (f *anyAllFunction) Call(ctx *evalctx.Context, args []expression.Expression) (value.Value, error) {
	fn, err := innerFunction(f.id, args, true)
	if err != nil {
		return nil, status.From(err)
	}

	values, err := evaluateAll(ctx, args[1:])
	if err != nil {
		return nil, err
	}

	bagIndex := -1
	fixed := make([]value.AttributeValue, len(values))
	var elements []value.AttributeValue
	for i, v := range values {
		switch tv := v.(type) {
		case *value.Bag:
			if bagIndex >= 0 {
				return nil, status.NewProcessingError("%s requires exactly one bag argument", f.id)
			}
			bagIndex = i
			elements = tv.Values()
		case value.AttributeValue:
			fixed[i] = tv
		}
	}
	if bagIndex < 0 {
		return nil, status.NewProcessingError("%s requires a bag argument", f.id)
	}

	for _, element := range elements {
		fixed[bagIndex] = element
		matched, err := callInner(ctx, fn, fixed)
		if err != nil {
			return nil, err
		}
		if matched != f.wantAll {
			return value.Boolean(!f.wantAll), nil
		}
	}
	return value.Boolean(f.wantAll), nil
}

// crossProductFunction implements any-of-any: the inner function is applied
// to every tuple of the cross product of the arguments, where single values
// act as singleton bags.
type crossProductFunction struct {
	id string
}

func (f *crossProductFunction) ID() string             { return f.id }
func (f *crossProductFunction) ReturnType() value.Type { return single(value.TypeBoolean) }

func (f *crossProductFunction) Validate(args []expression.Expression) error {
	_, err := innerFunction(f.id, args, true)
	return err
}

func (f *crossProductFunction) Call(ctx *evalctx.Context, args []expression.Expression) (value.Value, error) {
	fn, err := innerFunction(f.id, args, true)
	if err != nil {
		return nil, status.From(err)
	}

	values, err := evaluateAll(ctx, args[1:])
	if err != nil {
		return nil, err
	}

	columns := make([][]value.AttributeValue, len(values))
	for i, v := range values {
		switch tv := v.(type) {
		case *value.Bag:
			columns[i] = tv.Values()
		case value.AttributeValue:
			columns[i] = []value.AttributeValue{tv}
		}
	}

	matched, err := anyTuple(ctx, fn, columns, make([]value.AttributeValue, len(columns)), 0)
	if err != nil {
		return nil, err
	}
	return value.Boolean(matched), nil
}

func anyTuple(ctx *evalctx.Context, fn expression.Function, columns [][]value.AttributeValue, tuple []value.AttributeValue, depth int) (bool, error) {
	if depth == len(columns) {
		return callInner(ctx, fn, tuple)
	}

	for _, element := range columns[depth] {
		tuple[depth] = element
		matched, err := anyTuple(ctx, fn, columns, tuple, depth+1)
		if err != nil {
			return false, err
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

// twoBagFunction implements all-of-any and any-of-all over two bags.
// With allOuter set, every element of the first bag must match some element
// of the second; otherwise some element of the first bag must match every
// element of the second.
type twoBagFunction struct {
	id       string
	allOuter bool
}

func (f *twoBagFunction) ID() string             { return f.id }
func (f *twoBagFunction) ReturnType() value.Type { return single(value.TypeBoolean) }

func (f *twoBagFunction) Validate(args []expression.Expression) error {
	if _, err := innerFunction(f.id, args, true); err != nil {
		return err
	}
	if len(args) != 3 || !args[1].ResultType().IsBag || !args[2].ResultType().IsBag {
		return fmt.Errorf("%s requires a function and two bags", f.id)
	}
	return nil
}

func (f *twoBagFunction) Call(ctx *evalctx.Context, args []expression.Expression) (value.Value, error) {
	fn, first, second, err := f.operands(ctx, args)
	if err != nil {
		return nil, err
	}

	for _, outer := range first.Values() {
		innerMatched, err := f.scanInner(ctx, fn, outer, second)
		if err != nil {
			return nil, err
		}
		if f.allOuter && !innerMatched {
			return value.Boolean(false), nil
		}
		if !f.allOuter && innerMatched {
			return value.Boolean(true), nil
		}
	}
	return value.Boolean(f.allOuter), nil
}

func (f *twoBagFunction) operands(ctx *evalctx.Context, args []expression.Expression) (expression.Function, *value.Bag, *value.Bag, error) {
	fn, err := innerFunction(f.id, args, true)
	if err != nil {
		return nil, nil, nil, status.From(err)
	}

	values, err := evaluateAll(ctx, args[1:])
	if err != nil {
		return nil, nil, nil, err
	}

	first, err := toBag(values[0])
	if err != nil {
		return nil, nil, nil, err
	}
	second, err := toBag(values[1])
	if err != nil {
		return nil, nil, nil, err
	}
	return fn, first, second, nil
}

// scanInner reports whether f's inner predicate holds for outer against the
// elements of the second bag: some of them for all-of-any, every one of them
// for any-of-all.
func (f *twoBagFunction) scanInner(ctx *evalctx.Context, fn expression.Function, outer value.AttributeValue, second *value.Bag) (bool, error) {
	for _, inner := range second.Values() {
		matched, err := callInner(ctx, fn, []value.AttributeValue{outer, inner})
		if err != nil {
			return false, err
		}

		if f.allOuter && matched {
			// all-of-any: one inner match satisfies this outer element.
			return true, nil
		}
		if !f.allOuter && !matched {
			// any-of-all: one inner miss disqualifies this outer element.
			return false, nil
		}
	}
	return !f.allOuter, nil
}

// allOfAllFunction implements all-of-all: the predicate must hold for every
// pair of the two bags' cross product.
type allOfAllFunction struct{}

func (f *allOfAllFunction) ID() string             { return xacml30 + "all-of-all" }
func (f *allOfAllFunction) ReturnType() value.Type { return single(value.TypeBoolean) }

func (f *allOfAllFunction) Validate(args []expression.Expression) error {
	if _, err := innerFunction(f.ID(), args, true); err != nil {
		return err
	}
	if len(args) != 3 || !args[1].ResultType().IsBag || !args[2].ResultType().IsBag {
		return fmt.Errorf("%s requires a function and two bags", f.ID())
	}
	return nil
}

func (f *allOfAllFunction) Call(ctx *evalctx.Context, args []expression.Expression) (value.Value, error) {
	fn, err := innerFunction(f.ID(), args, true)
	if err != nil {
		return nil, status.From(err)
	}

	values, err := evaluateAll(ctx, args[1:])
	if err != nil {
		return nil, err
	}

	first, err := toBag(values[0])
	if err != nil {
		return nil, err
	}
	second, err := toBag(values[1])
	if err != nil {
		return nil, err
	}

	for _, outer := range first.Values() {
		for _, inner := range second.Values() {
			matched, err := callInner(ctx, fn, []value.AttributeValue{outer, inner})
			if err != nil {
				return nil, err
			}
			if !matched {
				return value.Boolean(false), nil
			}
		}
	}
	return value.Boolean(true), nil
}

// mapFunction applies a function over one bag argument and collects the
// results into a bag typed after the inner function's return datatype.
type mapFunction struct{}

func (f *mapFunction) ID() string { return xacml30 + "map" }

// ReturnType leaves the datatype open: it depends on the mapped function and
// is checked dynamically.
func (f *mapFunction) ReturnType() value.Type { return value.Type{IsBag: true} }

func (f *mapFunction) Validate(args []expression.Expression) error {
	if _, err := innerFunction(f.ID(), args, false); err != nil {
		return err
	}

	bags := 0
	for _, arg := range args[1:] {
		if arg.ResultType().IsBag {
			bags++
		}
	}
	if bags != 1 {
		return fmt.Errorf("%s requires exactly one bag argument, got %d", f.ID(), bags)
	}
	return nil
}

func (f *mapFunction) Call(ctx *evalctx.Context, args []expression.Expression) (value.Value, error) {
	fn, err := innerFunction(f.ID(), args, false)
	if err != nil {
		return nil, status.From(err)
	}

	values, err := evaluateAll(ctx, args[1:])
	if err != nil {
		return nil, err
	}

	bagIndex := -1
	fixed := make([]value.AttributeValue, len(values))
	var elements []value.AttributeValue
	for i, v := range values {
		switch tv := v.(type) {
		case *value.Bag:
			if bagIndex >= 0 {
				return nil, status.NewProcessingError("%s requires exactly one bag argument", f.ID())
			}
			bagIndex = i
			elements = tv.Values()
		case value.AttributeValue:
			fixed[i] = tv
		}
	}
	if bagIndex < 0 {
		return nil, status.NewProcessingError("%s requires a bag argument", f.ID())
	}

	mapped := make([]value.AttributeValue, 0, len(elements))
	for _, element := range elements {
		fixed[bagIndex] = element

		exprs := make([]expression.Expression, len(fixed))
		for i, arg := range fixed {
			exprs[i] = expression.NewLiteral(arg)
		}
		out, err := fn.Call(ctx, exprs)
		if err != nil {
			return nil, err
		}

		av, err := toAttributeValue(out)
		if err != nil {
			return nil, err
		}
		mapped = append(mapped, av)
	}

	result, err := value.NewBag(fn.ReturnType().Datatype, mapped...)
	if err != nil {
		return nil, status.From(err)
	}
	return result, nil
}
