package policy

import (
	"encoding/json"
	"fmt"

	"github.com/CameronXie/xacml-engine/xacml/decision"
	"github.com/CameronXie/xacml-engine/xacml/evalctx"
	"github.com/CameronXie/xacml-engine/xacml/expression"
	"github.com/CameronXie/xacml-engine/xacml/value"
)

// Effect is the decision a rule emits when it fully matches.
type Effect string

const (
	EffectPermit Effect = "Permit"
	EffectDeny   Effect = "Deny"
)

// UnmarshalJSON parses the JSON-encoded data and validates it as one of the
// defined Effect values.
func (e *Effect) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch Effect(s) {
	case EffectPermit, EffectDeny:
		*e = Effect(s)
		return nil
	default:
		return fmt.Errorf("invalid effect value: %q, must be Permit or Deny", s)
	}
}

// decision returns the decision value the effect stands for.
func (e Effect) decision() decision.Decision {
	if e == EffectDeny {
		return decision.Deny
	}
	return decision.Permit
}

// indeterminate returns the Indeterminate flavour carrying the effect.
func (e Effect) indeterminate() decision.Decision {
	if e == EffectDeny {
		return decision.IndeterminateD
	}
	return decision.IndeterminateP
}

// Rule is the leaf of the policy tree: a target, an optional boolean
// condition, an effect, and obligation and advice declarations.
type Rule struct {
	id             string
	effect         Effect
	description    string
	target         *Target
	condition      expression.Expression
	obligationExps []ObligationExpression
	adviceExps     []AdviceExpression
}

// RuleOption configures a Rule.
type RuleOption func(*Rule)

// WithRuleTarget sets the rule's target. Without one the rule applies
// whenever its parent does.
func WithRuleTarget(target *Target) RuleOption {
	return func(r *Rule) {
		r.target = target
	}
}

// WithRuleCondition sets the rule's condition expression.
func WithRuleCondition(condition expression.Expression) RuleOption {
	return func(r *Rule) {
		r.condition = condition
	}
}

// WithRuleObligations appends obligation declarations.
func WithRuleObligations(exps ...ObligationExpression) RuleOption {
	return func(r *Rule) {
		r.obligationExps = append(r.obligationExps, exps...)
	}
}

// WithRuleAdvice appends advice declarations.
func WithRuleAdvice(exps ...AdviceExpression) RuleOption {
	return func(r *Rule) {
		r.adviceExps = append(r.adviceExps, exps...)
	}
}

// WithRuleDescription sets a human-readable description.
func WithRuleDescription(description string) RuleOption {
	return func(r *Rule) {
		r.description = description
	}
}

// NewRule builds a rule, verifying that the condition, when present, is a
// single boolean expression.
func NewRule(id string, effect Effect, options ...RuleOption) (*Rule, error) {
	if effect != EffectPermit && effect != EffectDeny {
		return nil, fmt.Errorf("rule %s: invalid effect %q", id, effect)
	}

	r := &Rule{id: id, effect: effect}
	for _, option := range options {
		option(r)
	}

	if r.condition != nil {
		boolT := value.Type{Datatype: value.TypeBoolean}
		if got := r.condition.ResultType(); got != boolT && got.Datatype != "" {
			return nil, fmt.Errorf("rule %s: condition must be %s, got %s", id, boolT, got)
		}
	}
	return r, nil
}

// ID returns the rule identifier.
func (r *Rule) ID() string { return r.id }

// Effect returns the rule's effect.
func (r *Rule) Effect() Effect { return r.effect }

// IsApplicable evaluates only the rule's target.
func (r *Rule) IsApplicable(ctx *evalctx.Context) (bool, error) {
	return r.target.Match(ctx)
}

// Evaluate runs the rule: target, then condition, then the obligation and
// advice declarations matching the effect. Failures lift the result to the
// Indeterminate flavour of the rule's effect.
func (r *Rule) Evaluate(ctx *evalctx.Context) decision.Result {
	matched, err := r.target.Match(ctx)
	if err != nil {
		return decision.NewIndeterminate(r.effect.indeterminate(), err)
	}
	if !matched {
		return decision.NewResult(decision.NotApplicable)
	}

	if r.condition != nil {
		v, err := r.condition.Evaluate(ctx)
		if err != nil {
			return decision.NewIndeterminate(r.effect.indeterminate(), err)
		}

		b, ok := v.(value.Boolean)
		if !ok {
			return decision.NewIndeterminate(r.effect.indeterminate(),
				fmt.Errorf("rule %s: condition yielded %s, expected a single boolean", r.id, v.Type()))
		}
		if !b {
			return decision.NewResult(decision.NotApplicable)
		}
	}

	obligations, err := evaluateObligations(ctx, r.obligationExps, r.effect)
	if err != nil {
		return decision.NewIndeterminate(r.effect.indeterminate(), err)
	}
	advice, err := evaluateAdvice(ctx, r.adviceExps, r.effect)
	if err != nil {
		return decision.NewIndeterminate(r.effect.indeterminate(), err)
	}

	return decision.Result{
		Decision:    r.effect.decision(),
		Status:      decision.StatusOK,
		Obligations: obligations,
		Advice:      advice,
	}
}
