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
		&logicalFunction{id: xacml10 + "and", decisive: false},
		&logicalFunction{id: xacml10 + "or", decisive: true},
		newFixed(xacml10+"not", single(value.TypeBoolean), notImpl, single(value.TypeBoolean)),
		&nOfFunction{},
	)
}

// logicalFunction implements "and" and "or". Arguments are evaluated left to
// right and evaluation stops at the first decisive value (False for and,
// True for or). An Indeterminate argument is remembered and returned only if
// no later argument decides the result.
type logicalFunction struct {
	id       string
	decisive bool
}

func (f *logicalFunction) ID() string { return f.id }

func (f *logicalFunction) ReturnType() value.Type { return single(value.TypeBoolean) }

func (f *logicalFunction) Validate(args []expression.Expression) error {
	boolT := single(value.TypeBoolean)
	for i, arg := range args {
		if got := arg.ResultType(); got != boolT {
			return fmt.Errorf("%s argument %d must be %s, got %s", f.id, i+1, boolT, got)
		}
	}
	return nil
}

func (f *logicalFunction) Call(ctx *evalctx.Context, args []expression.Expression) (value.Value, error) {
	var firstIndeterminate error
	for i, arg := range args {
		v, err := arg.Evaluate(ctx)
		if err != nil {
			if firstIndeterminate == nil {
				firstIndeterminate = status.From(fmt.Errorf("%s: indeterminate argument %d: %w", f.id, i+1, err))
			}
			continue
		}

		b, err := toBoolean(v)
		if err != nil {
			return nil, err
		}
		if bool(b) == f.decisive {
			return value.Boolean(f.decisive), nil
		}
	}

	if firstIndeterminate != nil {
		return nil, firstIndeterminate
	}
	return value.Boolean(!f.decisive), nil
}

func notImpl(args []value.Value) (value.Value, error) {
	b, err := toBoolean(args[0])
	if err != nil {
		return nil, err
	}
	return value.Boolean(!b), nil
}

// nOfFunction implements "n-of": the first argument gives the number of
// boolean arguments that must be true. Evaluation is left to right and stops
// as soon as the quota is met or can no longer be met.
type nOfFunction struct{}

func (f *nOfFunction) ID() string { return xacml10 + "n-of" }

func (f *nOfFunction) ReturnType() value.Type { return single(value.TypeBoolean) }

func (f *nOfFunction) Validate(args []expression.Expression) error {
	if len(args) == 0 {
		return fmt.Errorf("n-of requires at least the quota argument")
	}
	if got := args[0].ResultType(); got != single(value.TypeInteger) {
		return fmt.Errorf("n-of quota must be an integer, got %s", got)
	}

	boolT := single(value.TypeBoolean)
	for i, arg := range args[1:] {
		if got := arg.ResultType(); got != boolT {
			return fmt.Errorf("n-of argument %d must be %s, got %s", i+2, boolT, got)
		}
	}
	return nil
}

func (f *nOfFunction) Call(ctx *evalctx.Context, args []expression.Expression) (value.Value, error) {
	quotaValue, err := args[0].Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	quotaInt, err := toInteger(quotaValue)
	if err != nil {
		return nil, err
	}
	quota, err := quotaInt.Int64()
	if err != nil {
		return nil, status.From(err)
	}

	if quota < 0 {
		return nil, status.NewProcessingError("n-of quota cannot be negative")
	}
	if quota == 0 {
		return value.Boolean(true), nil
	}
	remaining := int64(len(args) - 1)
	if quota > remaining {
		return nil, status.NewProcessingError(
			"n-of cannot find %d true values among %d arguments", quota, remaining)
	}

	var trues, unresolved int64
	var firstIndeterminate error
	for i, arg := range args[1:] {
		v, err := arg.Evaluate(ctx)
		remaining--
		if err != nil {
			unresolved++
			if firstIndeterminate == nil {
				firstIndeterminate = status.From(fmt.Errorf("n-of: indeterminate argument %d: %w", i+2, err))
			}
			continue
		}

		b, err := toBoolean(v)
		if err != nil {
			return nil, err
		}
		if b {
			trues++
			if trues >= quota {
				return value.Boolean(true), nil
			}
		}

		// The quota is unreachable once the trues so far, the arguments
		// still to evaluate and the Indeterminate ones together fall short.
		if trues+remaining+unresolved < quota {
			return value.Boolean(false), nil
		}
	}

	if firstIndeterminate != nil {
		return nil, firstIndeterminate
	}
	return value.Boolean(false), nil
}
