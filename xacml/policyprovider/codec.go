// Package policyprovider ships the policy retrieval side of the engine: a
// compact JSON document codec and in-memory, filesystem, and SQL backed
// stores implementing root lookup and reference resolution.
package policyprovider

import (
	"encoding/json"
	"fmt"

	"github.com/CameronXie/xacml-engine/xacml/combining"
	"github.com/CameronXie/xacml-engine/xacml/expression"
	"github.com/CameronXie/xacml-engine/xacml/function"
	"github.com/CameronXie/xacml-engine/xacml/policy"
	"github.com/CameronXie/xacml-engine/xacml/value"
)

type documentJSON struct {
	Policy    *policyJSON    `json:"policy,omitempty"`
	PolicySet *policySetJSON `json:"policySet,omitempty"`
}

type policyJSON struct {
	ID                 string           `json:"id"`
	Version            string           `json:"version"`
	Description        string           `json:"description,omitempty"`
	RuleCombiningAlgID string           `json:"ruleCombiningAlgId"`
	Target             *targetJSON      `json:"target,omitempty"`
	Variables          []variableJSON   `json:"variables,omitempty"`
	Rules              []ruleJSON       `json:"rules"`
	Obligations        []obligationJSON `json:"obligations,omitempty"`
	Advice             []adviceJSON     `json:"advice,omitempty"`
	MaxDelegationDepth int              `json:"maxDelegationDepth,omitempty"`
}

type policySetJSON struct {
	ID                   string           `json:"id"`
	Version              string           `json:"version"`
	Description          string           `json:"description,omitempty"`
	PolicyCombiningAlgID string           `json:"policyCombiningAlgId"`
	Target               *targetJSON      `json:"target,omitempty"`
	Children             []childJSON      `json:"children"`
	Obligations          []obligationJSON `json:"obligations,omitempty"`
	Advice               []adviceJSON     `json:"advice,omitempty"`
}

type childJSON struct {
	Policy               *policyJSON    `json:"policy,omitempty"`
	PolicySet            *policySetJSON `json:"policySet,omitempty"`
	PolicyIDReference    *referenceJSON `json:"policyIdReference,omitempty"`
	PolicySetIDReference *referenceJSON `json:"policySetIdReference,omitempty"`
}

type referenceJSON struct {
	ID              string `json:"id"`
	Version         string `json:"version,omitempty"`
	EarliestVersion string `json:"earliestVersion,omitempty"`
	LatestVersion   string `json:"latestVersion,omitempty"`
}

type targetJSON struct {
	AnyOf []anyOfJSON `json:"anyOf"`
}

type anyOfJSON struct {
	AllOf []allOfJSON `json:"allOf"`
}

type allOfJSON struct {
	Matches []matchJSON `json:"matches"`
}

type matchJSON struct {
	MatchID    string             `json:"matchId"`
	Value      attributeValueJSON `json:"value"`
	Designator *designatorJSON    `json:"designator,omitempty"`
	Selector   *selectorJSON      `json:"selector,omitempty"`
}

type attributeValueJSON struct {
	Datatype string `json:"dataType"`
	Value    string `json:"value"`
}

type designatorJSON struct {
	Category      string `json:"category"`
	AttributeID   string `json:"attributeId"`
	Datatype      string `json:"dataType"`
	Issuer        string `json:"issuer,omitempty"`
	MustBePresent bool   `json:"mustBePresent,omitempty"`
}

type selectorJSON struct {
	Category      string `json:"category"`
	Path          string `json:"path"`
	Datatype      string `json:"dataType"`
	MustBePresent bool   `json:"mustBePresent,omitempty"`
}

type variableJSON struct {
	ID         string         `json:"id"`
	Expression expressionJSON `json:"expression"`
}

type ruleJSON struct {
	ID          string           `json:"id"`
	Effect      policy.Effect    `json:"effect"`
	Description string           `json:"description,omitempty"`
	Target      *targetJSON      `json:"target,omitempty"`
	Condition   *expressionJSON  `json:"condition,omitempty"`
	Obligations []obligationJSON `json:"obligations,omitempty"`
	Advice      []adviceJSON     `json:"advice,omitempty"`
}

type obligationJSON struct {
	ID          string           `json:"id"`
	FulfillOn   policy.Effect    `json:"fulfillOn"`
	Assignments []assignmentJSON `json:"assignments,omitempty"`
}

type adviceJSON struct {
	ID          string           `json:"id"`
	AppliesTo   policy.Effect    `json:"appliesTo"`
	Assignments []assignmentJSON `json:"assignments,omitempty"`
}

type assignmentJSON struct {
	AttributeID string         `json:"attributeId"`
	Category    string         `json:"category,omitempty"`
	Issuer      string         `json:"issuer,omitempty"`
	Expression  expressionJSON `json:"expression"`
}

type expressionJSON struct {
	Value             *attributeValueJSON `json:"value,omitempty"`
	Designator        *designatorJSON     `json:"designator,omitempty"`
	Selector          *selectorJSON       `json:"selector,omitempty"`
	VariableReference string              `json:"variableReference,omitempty"`
	Apply             *applyJSON          `json:"apply,omitempty"`
	Function          string              `json:"function,omitempty"`
}

type applyJSON struct {
	FunctionID string           `json:"functionId"`
	Args       []expressionJSON `json:"args"`
}

// DecodeDocument parses a JSON policy document into a policy or policy set.
// References inside the document resolve through the given resolver.
func DecodeDocument(data []byte, resolver policy.ReferenceResolver) (combining.Element, error) {
	var doc documentJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid policy document: %w", err)
	}

	switch {
	case doc.Policy != nil && doc.PolicySet != nil:
		return nil, fmt.Errorf("policy document must hold either a policy or a policy set, not both")
	case doc.Policy != nil:
		return decodePolicy(doc.Policy, resolver)
	case doc.PolicySet != nil:
		return decodePolicySet(doc.PolicySet, resolver)
	default:
		return nil, fmt.Errorf("policy document holds neither a policy nor a policy set")
	}
}

// decoder tracks the variable definitions of the policy being decoded so
// later expressions can reference them.
type decoder struct {
	resolver policy.ReferenceResolver
	vars     map[string]policy.VariableDefinition
}

func decodePolicy(pj *policyJSON, resolver policy.ReferenceResolver) (*policy.Policy, error) {
	d := &decoder{resolver: resolver, vars: make(map[string]policy.VariableDefinition)}

	defs := make([]policy.VariableDefinition, 0, len(pj.Variables))
	for _, vj := range pj.Variables {
		expr, err := d.decodeExpression(vj.Expression)
		if err != nil {
			return nil, fmt.Errorf("policy %s: variable %s: %w", pj.ID, vj.ID, err)
		}

		def := policy.VariableDefinition{ID: vj.ID, Expression: expr}
		d.vars[vj.ID] = def
		defs = append(defs, def)
	}

	rules := make([]*policy.Rule, 0, len(pj.Rules))
	for _, rj := range pj.Rules {
		rule, err := d.decodeRule(rj)
		if err != nil {
			return nil, fmt.Errorf("policy %s: %w", pj.ID, err)
		}
		rules = append(rules, rule)
	}

	options := []policy.PolicyOption{policy.WithPolicyDescription(pj.Description)}
	if len(defs) > 0 {
		options = append(options, policy.WithVariables(defs...))
	}
	if pj.Target != nil {
		target, err := d.decodeTarget(pj.Target)
		if err != nil {
			return nil, fmt.Errorf("policy %s: %w", pj.ID, err)
		}
		options = append(options, policy.WithPolicyTarget(target))
	}
	if pj.MaxDelegationDepth > 0 {
		options = append(options, policy.WithMaxDelegationDepth(pj.MaxDelegationDepth))
	}

	obligations, advice, err := d.decodeDuties(pj.Obligations, pj.Advice)
	if err != nil {
		return nil, fmt.Errorf("policy %s: %w", pj.ID, err)
	}
	if len(obligations) > 0 {
		options = append(options, policy.WithPolicyObligations(obligations...))
	}
	if len(advice) > 0 {
		options = append(options, policy.WithPolicyAdvice(advice...))
	}

	return policy.NewPolicy(pj.ID, pj.Version, pj.RuleCombiningAlgID, rules, options...)
}

func decodePolicySet(sj *policySetJSON, resolver policy.ReferenceResolver) (*policy.PolicySet, error) {
	d := &decoder{resolver: resolver, vars: make(map[string]policy.VariableDefinition)}

	children := make([]combining.Element, 0, len(sj.Children))
	for i, cj := range sj.Children {
		child, err := decodeChild(cj, resolver)
		if err != nil {
			return nil, fmt.Errorf("policy set %s: child %d: %w", sj.ID, i, err)
		}
		children = append(children, child)
	}

	var options []policy.PolicySetOption
	if sj.Description != "" {
		options = append(options, policy.WithPolicySetDescription(sj.Description))
	}
	if sj.Target != nil {
		target, err := d.decodeTarget(sj.Target)
		if err != nil {
			return nil, fmt.Errorf("policy set %s: %w", sj.ID, err)
		}
		options = append(options, policy.WithPolicySetTarget(target))
	}

	obligations, advice, err := d.decodeDuties(sj.Obligations, sj.Advice)
	if err != nil {
		return nil, fmt.Errorf("policy set %s: %w", sj.ID, err)
	}
	if len(obligations) > 0 {
		options = append(options, policy.WithPolicySetObligations(obligations...))
	}
	if len(advice) > 0 {
		options = append(options, policy.WithPolicySetAdvice(advice...))
	}

	return policy.NewPolicySet(sj.ID, sj.Version, sj.PolicyCombiningAlgID, children, options...)
}

func decodeChild(cj childJSON, resolver policy.ReferenceResolver) (combining.Element, error) {
	switch {
	case cj.Policy != nil:
		return decodePolicy(cj.Policy, resolver)
	case cj.PolicySet != nil:
		return decodePolicySet(cj.PolicySet, resolver)
	case cj.PolicyIDReference != nil:
		return policy.NewPolicyReference(cj.PolicyIDReference.ID, constraintsOf(cj.PolicyIDReference), resolver), nil
	case cj.PolicySetIDReference != nil:
		return policy.NewPolicySetReference(cj.PolicySetIDReference.ID, constraintsOf(cj.PolicySetIDReference), resolver), nil
	default:
		return nil, fmt.Errorf("empty policy set child")
	}
}

func constraintsOf(rj *referenceJSON) policy.VersionConstraints {
	return policy.VersionConstraints{
		Version:         rj.Version,
		EarliestVersion: rj.EarliestVersion,
		LatestVersion:   rj.LatestVersion,
	}
}

func (d *decoder) decodeRule(rj ruleJSON) (*policy.Rule, error) {
	options := []policy.RuleOption{policy.WithRuleDescription(rj.Description)}
	if rj.Target != nil {
		target, err := d.decodeTarget(rj.Target)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rj.ID, err)
		}
		options = append(options, policy.WithRuleTarget(target))
	}
	if rj.Condition != nil {
		condition, err := d.decodeExpression(*rj.Condition)
		if err != nil {
			return nil, fmt.Errorf("rule %s: condition: %w", rj.ID, err)
		}
		options = append(options, policy.WithRuleCondition(condition))
	}

	obligations, advice, err := d.decodeDuties(rj.Obligations, rj.Advice)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", rj.ID, err)
	}
	if len(obligations) > 0 {
		options = append(options, policy.WithRuleObligations(obligations...))
	}
	if len(advice) > 0 {
		options = append(options, policy.WithRuleAdvice(advice...))
	}

	return policy.NewRule(rj.ID, rj.Effect, options...)
}

func (d *decoder) decodeDuties(ojs []obligationJSON, ajs []adviceJSON) ([]policy.ObligationExpression, []policy.AdviceExpression, error) {
	obligations := make([]policy.ObligationExpression, 0, len(ojs))
	for _, oj := range ojs {
		assignments, err := d.decodeAssignments(oj.Assignments)
		if err != nil {
			return nil, nil, fmt.Errorf("obligation %s: %w", oj.ID, err)
		}
		obligations = append(obligations, policy.ObligationExpression{
			ID:          oj.ID,
			FulfillOn:   oj.FulfillOn,
			Assignments: assignments,
		})
	}

	advice := make([]policy.AdviceExpression, 0, len(ajs))
	for _, aj := range ajs {
		assignments, err := d.decodeAssignments(aj.Assignments)
		if err != nil {
			return nil, nil, fmt.Errorf("advice %s: %w", aj.ID, err)
		}
		advice = append(advice, policy.AdviceExpression{
			ID:          aj.ID,
			AppliesTo:   aj.AppliesTo,
			Assignments: assignments,
		})
	}
	return obligations, advice, nil
}

func (d *decoder) decodeAssignments(ajs []assignmentJSON) ([]policy.AssignmentExpression, error) {
	assignments := make([]policy.AssignmentExpression, 0, len(ajs))
	for _, aj := range ajs {
		expr, err := d.decodeExpression(aj.Expression)
		if err != nil {
			return nil, fmt.Errorf("assignment %s: %w", aj.AttributeID, err)
		}
		assignments = append(assignments, policy.AssignmentExpression{
			AttributeID: aj.AttributeID,
			Category:    aj.Category,
			Issuer:      aj.Issuer,
			Expression:  expr,
		})
	}
	return assignments, nil
}

func (d *decoder) decodeTarget(tj *targetJSON) (*policy.Target, error) {
	anyOfs := make([]*policy.AnyOf, 0, len(tj.AnyOf))
	for _, aj := range tj.AnyOf {
		allOfs := make([]*policy.AllOf, 0, len(aj.AllOf))
		for _, lj := range aj.AllOf {
			matches := make([]*policy.Match, 0, len(lj.Matches))
			for _, mj := range lj.Matches {
				match, err := d.decodeMatch(mj)
				if err != nil {
					return nil, err
				}
				matches = append(matches, match)
			}
			allOfs = append(allOfs, policy.NewAllOf(matches...))
		}
		anyOfs = append(anyOfs, policy.NewAnyOf(allOfs...))
	}
	return policy.NewTarget(anyOfs...), nil
}

func (d *decoder) decodeMatch(mj matchJSON) (*policy.Match, error) {
	fn, err := function.Lookup(mj.MatchID)
	if err != nil {
		return nil, err
	}

	literal, err := value.Parse(mj.Value.Datatype, mj.Value.Value)
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", mj.MatchID, err)
	}

	var operand expression.Expression
	switch {
	case mj.Designator != nil && mj.Selector != nil:
		return nil, fmt.Errorf("match %s: designator and selector are mutually exclusive", mj.MatchID)
	case mj.Designator != nil:
		operand = designatorOf(mj.Designator)
	case mj.Selector != nil:
		operand = selectorOf(mj.Selector)
	default:
		return nil, fmt.Errorf("match %s: designator or selector required", mj.MatchID)
	}

	return policy.NewMatch(fn, literal, operand)
}

func (d *decoder) decodeExpression(ej expressionJSON) (expression.Expression, error) {
	switch {
	case ej.Value != nil:
		av, err := value.Parse(ej.Value.Datatype, ej.Value.Value)
		if err != nil {
			return nil, err
		}
		return expression.NewLiteral(av), nil

	case ej.Designator != nil:
		return designatorOf(ej.Designator), nil

	case ej.Selector != nil:
		return selectorOf(ej.Selector), nil

	case ej.VariableReference != "":
		def, ok := d.vars[ej.VariableReference]
		if !ok {
			return nil, fmt.Errorf("reference to undefined variable %q", ej.VariableReference)
		}
		return def.Reference(), nil

	case ej.Apply != nil:
		fn, err := function.Lookup(ej.Apply.FunctionID)
		if err != nil {
			return nil, err
		}

		args := make([]expression.Expression, 0, len(ej.Apply.Args))
		for i, arg := range ej.Apply.Args {
			decoded, err := d.decodeExpression(arg)
			if err != nil {
				return nil, fmt.Errorf("apply %s: argument %d: %w", ej.Apply.FunctionID, i+1, err)
			}
			args = append(args, decoded)
		}

		apply, err := expression.NewApply(fn, args...)
		if err != nil {
			return nil, err
		}
		return apply, nil

	case ej.Function != "":
		fn, err := function.Lookup(ej.Function)
		if err != nil {
			return nil, err
		}
		return expression.NewFunctionRef(fn), nil

	default:
		return nil, fmt.Errorf("empty expression")
	}
}

func designatorOf(dj *designatorJSON) expression.Designator {
	return expression.Designator{
		Category:      dj.Category,
		AttributeID:   dj.AttributeID,
		Datatype:      dj.Datatype,
		Issuer:        dj.Issuer,
		MustBePresent: dj.MustBePresent,
	}
}

func selectorOf(sj *selectorJSON) expression.Selector {
	return expression.Selector{
		Category:      sj.Category,
		Path:          sj.Path,
		Datatype:      sj.Datatype,
		MustBePresent: sj.MustBePresent,
	}
}
