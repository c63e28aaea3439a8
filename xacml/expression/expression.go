// Package expression implements the XACML expression AST and its evaluation
// over an attribute context. Every node yields a single attribute value, a
// bag, or an Indeterminate error carrying a status.
package expression

import (
	"github.com/CameronXie/xacml-engine/xacml/evalctx"
	"github.com/CameronXie/xacml-engine/xacml/status"
	"github.com/CameronXie/xacml-engine/xacml/value"
)

// Expression is one node of the expression AST.
type Expression interface {
	// Evaluate computes the node's value over the given context. A
	// returned error is an Indeterminate outcome.
	Evaluate(ctx *evalctx.Context) (value.Value, error)

	// ResultType returns the node's static result type, used for
	// compile-time signature checks.
	ResultType() value.Type
}

// Function is an evaluable XACML function. Implementations live in the
// function package; the interface sits here so Apply nodes, higher-order
// functions, and match operations can hold functions without a dependency
// cycle.
type Function interface {
	// ID returns the standard function identifier.
	ID() string

	// ReturnType returns the function's declared result type.
	ReturnType() value.Type

	// Validate statically checks an argument list against the function's
	// signature: arity and the datatype and bag-ness of each argument.
	Validate(args []Expression) error

	// Call evaluates the function over the given arguments. Argument
	// evaluation order is left to right; short-circuiting functions may
	// leave trailing arguments unevaluated.
	Call(ctx *evalctx.Context, args []Expression) (value.Value, error)
}

// Literal wraps a constant attribute value.
type Literal struct {
	v value.AttributeValue
}

// NewLiteral builds a constant expression.
func NewLiteral(v value.AttributeValue) Literal { return Literal{v: v} }

func (l Literal) Evaluate(*evalctx.Context) (value.Value, error) { return l.v, nil }
func (l Literal) ResultType() value.Type                         { return l.v.Type() }

// Value returns the wrapped constant.
func (l Literal) Value() value.AttributeValue { return l.v }

// Designator requests all attribute values matching its coordinates and
// yields a bag. With MustBePresent set, an empty result is lifted to a
// missing-attribute Indeterminate.
type Designator struct {
	Category      string
	AttributeID   string
	Datatype      string
	Issuer        string
	MustBePresent bool
}

func (d Designator) Evaluate(ctx *evalctx.Context) (value.Value, error) {
	bag, err := ctx.Attributes(d.Category, d.AttributeID, d.Datatype, d.Issuer)
	if err != nil {
		return nil, err
	}

	if d.MustBePresent && bag.Size() == 0 {
		return nil, status.NewMissingAttribute(
			"no value for required attribute %s of category %s", d.AttributeID, d.Category)
	}
	return bag, nil
}

func (d Designator) ResultType() value.Type {
	return value.Type{Datatype: d.Datatype, IsBag: true}
}

// Selector projects a path over a category's structured content and yields a
// bag.
type Selector struct {
	Category      string
	Path          string
	Datatype      string
	MustBePresent bool
}

func (s Selector) Evaluate(ctx *evalctx.Context) (value.Value, error) {
	bag, err := ctx.Select(s.Category, s.Path, s.Datatype)
	if err != nil {
		return nil, err
	}

	if s.MustBePresent && bag.Size() == 0 {
		return nil, status.NewMissingAttribute(
			"selector %s over category %s matched nothing", s.Path, s.Category)
	}
	return bag, nil
}

func (s Selector) ResultType() value.Type {
	return value.Type{Datatype: s.Datatype, IsBag: true}
}

// VariableReference refers to a variable definition of the enclosing policy.
// Its result is evaluated at most once per request context and memoised,
// including Indeterminate outcomes.
type VariableReference struct {
	id         string
	definition Expression
}

// NewVariableReference wires a reference to its definition's expression.
func NewVariableReference(id string, definition Expression) VariableReference {
	return VariableReference{id: id, definition: definition}
}

// ID returns the referenced variable identifier.
func (r VariableReference) ID() string { return r.id }

func (r VariableReference) Evaluate(ctx *evalctx.Context) (value.Value, error) {
	if res, ok := ctx.Variable(r.id); ok {
		return res.Value, res.Err
	}

	v, err := r.definition.Evaluate(ctx)
	ctx.SetVariable(r.id, evalctx.VariableResult{Value: v, Err: err})
	return v, err
}

func (r VariableReference) ResultType() value.Type { return r.definition.ResultType() }

// Apply evaluates a function over argument expressions.
type Apply struct {
	fn   Function
	args []Expression
}

// NewApply builds an Apply node, statically checking the argument signature
// against the function's declaration.
func NewApply(fn Function, args ...Expression) (Apply, error) {
	if err := fn.Validate(args); err != nil {
		return Apply{}, status.Wrap(err, status.CodeProcessingError,
			"function %s rejected its arguments", fn.ID())
	}
	return Apply{fn: fn, args: args}, nil
}

func (a Apply) Evaluate(ctx *evalctx.Context) (value.Value, error) {
	return a.fn.Call(ctx, a.args)
}

func (a Apply) ResultType() value.Type { return a.fn.ReturnType() }

// Function returns the applied function.
func (a Apply) Function() Function { return a.fn }

// Args returns the argument expressions.
func (a Apply) Args() []Expression { return a.args }

// FunctionRef passes a function as an argument to a higher-order function.
// It is not evaluable on its own.
type FunctionRef struct {
	fn Function
}

// NewFunctionRef wraps a function for use as a higher-order argument.
func NewFunctionRef(fn Function) FunctionRef { return FunctionRef{fn: fn} }

// Function returns the wrapped function.
func (f FunctionRef) Function() Function { return f.fn }

func (f FunctionRef) Evaluate(*evalctx.Context) (value.Value, error) {
	return nil, status.NewProcessingError(
		"function %s used as a value outside a higher-order function", f.fn.ID())
}

func (f FunctionRef) ResultType() value.Type { return f.fn.ReturnType() }
