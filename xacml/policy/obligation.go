package policy

import (
	"fmt"

	"github.com/CameronXie/xacml-engine/xacml/decision"
	"github.com/CameronXie/xacml-engine/xacml/evalctx"
	"github.com/CameronXie/xacml-engine/xacml/expression"
	"github.com/CameronXie/xacml-engine/xacml/value"
)

// AssignmentExpression produces one or more attribute assignments of an
// obligation or advice. An expression yielding a bag produces one assignment
// per element.
type AssignmentExpression struct {
	AttributeID string
	Category    string
	Issuer      string
	Expression  expression.Expression
}

// ObligationExpression declares an obligation emitted when the enclosing
// element decides FulfillOn.
type ObligationExpression struct {
	ID          string
	FulfillOn   Effect
	Assignments []AssignmentExpression
}

// AdviceExpression declares advice emitted when the enclosing element
// decides AppliesTo.
type AdviceExpression struct {
	ID          string
	AppliesTo   Effect
	Assignments []AssignmentExpression
}

func evaluateAssignments(ctx *evalctx.Context, assignments []AssignmentExpression) ([]decision.AttributeAssignment, error) {
	var out []decision.AttributeAssignment
	for _, assignment := range assignments {
		v, err := assignment.Expression.Evaluate(ctx)
		if err != nil {
			return nil, fmt.Errorf("attribute assignment %s: %w", assignment.AttributeID, err)
		}

		var values []value.AttributeValue
		switch tv := v.(type) {
		case *value.Bag:
			values = tv.Values()
		case value.AttributeValue:
			values = []value.AttributeValue{tv}
		}

		for _, av := range values {
			out = append(out, decision.AttributeAssignment{
				AttributeID: assignment.AttributeID,
				Category:    assignment.Category,
				Issuer:      assignment.Issuer,
				Value:       av,
			})
		}
	}
	return out, nil
}

// evaluateObligations evaluates the obligation expressions whose fulfil-on
// effect matches, in declaration order.
func evaluateObligations(ctx *evalctx.Context, exps []ObligationExpression, effect Effect) ([]decision.Obligation, error) {
	var out []decision.Obligation
	for _, exp := range exps {
		if exp.FulfillOn != effect {
			continue
		}

		assignments, err := evaluateAssignments(ctx, exp.Assignments)
		if err != nil {
			return nil, fmt.Errorf("obligation %s: %w", exp.ID, err)
		}
		out = append(out, decision.Obligation{ID: exp.ID, Assignments: assignments})
	}
	return out, nil
}

// evaluateAdvice evaluates the advice expressions whose applies-to effect
// matches, in declaration order.
func evaluateAdvice(ctx *evalctx.Context, exps []AdviceExpression, effect Effect) ([]decision.Advice, error) {
	var out []decision.Advice
	for _, exp := range exps {
		if exp.AppliesTo != effect {
			continue
		}

		assignments, err := evaluateAssignments(ctx, exp.Assignments)
		if err != nil {
			return nil, fmt.Errorf("advice %s: %w", exp.ID, err)
		}
		out = append(out, decision.Advice{ID: exp.ID, Assignments: assignments})
	}
	return out, nil
}
