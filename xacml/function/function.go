// Package function implements the standard XACML 3.0 function library. Each
// function is a plain value described by its identifier, argument signature,
// and return type; a registry maps standard identifiers to implementations.
//
// Arity and argument datatypes are verified statically when an Apply node is
// built; bag-vs-singleton shape and datatypes are re-verified dynamically at
// call time.
package function

import (
	"fmt"
	"sort"

	"github.com/CameronXie/xacml-engine/xacml/evalctx"
	"github.com/CameronXie/xacml-engine/xacml/expression"
	"github.com/CameronXie/xacml-engine/xacml/status"
	"github.com/CameronXie/xacml-engine/xacml/value"
)

// Standard function identifier prefixes.
const (
	xacml10 = "urn:oasis:names:tc:xacml:1.0:function:"
	xacml20 = "urn:oasis:names:tc:xacml:2.0:function:"
	xacml30 = "urn:oasis:names:tc:xacml:3.0:function:"
)

var registry = make(map[string]expression.Function)

func register(fns ...expression.Function) {
	for _, fn := range fns {
		registry[fn.ID()] = fn
	}
}

// Lookup resolves a standard function identifier.
func Lookup(id string) (expression.Function, error) {
	fn, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("unknown function %q", id)
	}
	return fn, nil
}

// IDs returns all registered function identifiers, sorted.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func single(datatype string) value.Type { return value.Type{Datatype: datatype} }
func bag(datatype string) value.Type    { return value.Type{Datatype: datatype, IsBag: true} }

// firstOrder is the base for functions that evaluate all their arguments
// before running: a fixed parameter list, an optional variadic tail, and an
// implementation over the evaluated values.
type firstOrder struct {
	id       string
	params   []value.Type
	variadic *value.Type
	minArgs  int
	ret      value.Type
	impl     func(args []value.Value) (value.Value, error)
}

func newFixed(id string, ret value.Type, impl func([]value.Value) (value.Value, error), params ...value.Type) *firstOrder {
	return &firstOrder{id: id, params: params, minArgs: len(params), ret: ret, impl: impl}
}

func newVariadic(id string, ret value.Type, impl func([]value.Value) (value.Value, error), variadic value.Type, minArgs int, params ...value.Type) *firstOrder {
	v := variadic
	return &firstOrder{id: id, params: params, variadic: &v, minArgs: minArgs, ret: ret, impl: impl}
}

func (f *firstOrder) ID() string             { return f.id }
func (f *firstOrder) ReturnType() value.Type { return f.ret }

func (f *firstOrder) paramAt(i int) (value.Type, bool) {
	if i < len(f.params) {
		return f.params[i], true
	}
	if f.variadic != nil {
		return *f.variadic, true
	}
	return value.Type{}, false
}

// Validate statically checks arity and per-argument datatype and bag-ness.
func (f *firstOrder) Validate(args []expression.Expression) error {
	if len(args) < f.minArgs {
		return fmt.Errorf("%s expects at least %d arguments, got %d", f.id, f.minArgs, len(args))
	}
	if f.variadic == nil && len(args) != len(f.params) {
		return fmt.Errorf("%s expects %d arguments, got %d", f.id, len(f.params), len(args))
	}

	for i, arg := range args {
		expected, ok := f.paramAt(i)
		if !ok {
			return fmt.Errorf("%s expects at most %d arguments", f.id, len(f.params))
		}

		// An empty static datatype (a map over a dynamically typed
		// function) defers the datatype check to call time.
		got := arg.ResultType()
		if got.Datatype == "" && got.IsBag == expected.IsBag {
			continue
		}
		if got != expected {
			return fmt.Errorf("%s argument %d must be %s, got %s", f.id, i+1, expected, got)
		}
	}
	return nil
}

// Call evaluates arguments left to right, re-checks their dynamic shape, and
// runs the implementation. The first Indeterminate argument propagates to
// the output.
func (f *firstOrder) Call(ctx *evalctx.Context, args []expression.Expression) (value.Value, error) {
	values := make([]value.Value, len(args))
	for i, arg := range args {
		v, err := arg.Evaluate(ctx)
		if err != nil {
			return nil, err
		}

		expected, ok := f.paramAt(i)
		if !ok {
			return nil, status.NewProcessingError("%s received %d arguments", f.id, len(args))
		}
		if got := v.Type(); got != expected {
			return nil, status.NewProcessingError(
				"%s argument %d must be %s, got %s", f.id, i+1, expected, got)
		}
		values[i] = v
	}

	out, err := f.impl(values)
	if err != nil {
		return nil, status.From(err)
	}
	return out, nil
}

func toBoolean(v value.Value) (value.Boolean, error) {
	b, ok := v.(value.Boolean)
	if !ok {
		return false, status.NewProcessingError("expected boolean, got %s", v.Type())
	}
	return b, nil
}

func toInteger(v value.Value) (value.Integer, error) {
	n, ok := v.(value.Integer)
	if !ok {
		return value.Integer{}, status.NewProcessingError("expected integer, got %s", v.Type())
	}
	return n, nil
}

func toDouble(v value.Value) (value.Double, error) {
	d, ok := v.(value.Double)
	if !ok {
		return 0, status.NewProcessingError("expected double, got %s", v.Type())
	}
	return d, nil
}

func toString(v value.Value) (value.String, error) {
	s, ok := v.(value.String)
	if !ok {
		return "", status.NewProcessingError("expected string, got %s", v.Type())
	}
	return s, nil
}

func toAttributeValue(v value.Value) (value.AttributeValue, error) {
	av, ok := v.(value.AttributeValue)
	if !ok {
		return nil, status.NewProcessingError("expected a single value, got %s", v.Type())
	}
	return av, nil
}

func toBag(v value.Value) (*value.Bag, error) {
	b, ok := v.(*value.Bag)
	if !ok {
		return nil, status.NewProcessingError("expected a bag, got %s", v.Type())
	}
	return b, nil
}
