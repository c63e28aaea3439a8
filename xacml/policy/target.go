// Package policy implements the XACML policy tree: targets, rules, policies,
// policy sets, references, and their evaluation semantics.
package policy

import (
	"fmt"

	"github.com/CameronXie/xacml-engine/xacml/evalctx"
	"github.com/CameronXie/xacml-engine/xacml/expression"
	"github.com/CameronXie/xacml-engine/xacml/value"
)

// Match applies a boolean function to a literal value and each element of
// the bag produced by a designator or selector. It is true iff at least one
// element yields true.
type Match struct {
	fn      expression.Function
	literal expression.Literal
	operand expression.Expression
}

// NewMatch builds a match. The function must return a single boolean and the
// operand must be a designator or selector yielding a bag.
func NewMatch(fn expression.Function, literal value.AttributeValue, operand expression.Expression) (*Match, error) {
	if ret := fn.ReturnType(); ret != (value.Type{Datatype: value.TypeBoolean}) {
		return nil, fmt.Errorf("match function %s must return a boolean, returns %s", fn.ID(), ret)
	}
	if t := operand.ResultType(); !t.IsBag {
		return nil, fmt.Errorf("match operand must yield a bag, yields %s", t)
	}
	return &Match{fn: fn, literal: expression.NewLiteral(literal), operand: operand}, nil
}

// Evaluate returns whether the match holds. An error is an Indeterminate
// outcome; it is reported only if no element yields true.
func (m *Match) Evaluate(ctx *evalctx.Context) (bool, error) {
	v, err := m.operand.Evaluate(ctx)
	if err != nil {
		return false, err
	}

	bag, ok := v.(*value.Bag)
	if !ok {
		return false, fmt.Errorf("match operand yielded a single value, expected a bag")
	}

	var firstErr error
	for _, element := range bag.Values() {
		out, err := m.fn.Call(ctx, []expression.Expression{m.literal, expression.NewLiteral(element)})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		if b, ok := out.(value.Boolean); ok && bool(b) {
			return true, nil
		}
	}

	if firstErr != nil {
		return false, firstErr
	}
	return false, nil
}

// AllOf is a conjunction of matches.
type AllOf struct {
	matches []*Match
}

// NewAllOf builds a conjunction of matches.
func NewAllOf(matches ...*Match) *AllOf { return &AllOf{matches: matches} }

// Evaluate is left-to-right: the first non-matching match decides, the first
// Indeterminate is remembered and reported only if everything else matched.
func (a *AllOf) Evaluate(ctx *evalctx.Context) (bool, error) {
	var firstErr error
	for _, m := range a.matches {
		matched, err := m.Evaluate(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !matched {
			return false, nil
		}
	}

	if firstErr != nil {
		return false, firstErr
	}
	return true, nil
}

// AnyOf is a disjunction of AllOf conjunctions.
type AnyOf struct {
	allOfs []*AllOf
}

// NewAnyOf builds a disjunction of AllOf conjunctions.
func NewAnyOf(allOfs ...*AllOf) *AnyOf { return &AnyOf{allOfs: allOfs} }

// Evaluate is left-to-right: the first matching AllOf decides, the first
// Indeterminate is remembered and reported only if nothing matched.
func (a *AnyOf) Evaluate(ctx *evalctx.Context) (bool, error) {
	var firstErr error
	for _, allOf := range a.allOfs {
		matched, err := allOf.Evaluate(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if matched {
			return true, nil
		}
	}

	if firstErr != nil {
		return false, firstErr
	}
	return false, nil
}

// Target selects the requests a rule, policy, or policy set applies to: a
// conjunction of AnyOf disjunctions. An empty target matches anything.
type Target struct {
	anyOfs []*AnyOf
}

// NewTarget builds a target from its AnyOf sections.
func NewTarget(anyOfs ...*AnyOf) *Target { return &Target{anyOfs: anyOfs} }

// Match evaluates the target against the context.
func (t *Target) Match(ctx *evalctx.Context) (bool, error) {
	if t == nil {
		return true, nil
	}

	var firstErr error
	for _, anyOf := range t.anyOfs {
		matched, err := anyOf.Evaluate(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !matched {
			return false, nil
		}
	}

	if firstErr != nil {
		return false, firstErr
	}
	return true, nil
}
