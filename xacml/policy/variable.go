package policy

import (
	"fmt"

	"github.com/CameronXie/xacml-engine/xacml/expression"
)

// VariableDefinition binds an expression to an identifier within one policy.
// All references to the identifier share a single evaluation result per
// request context.
type VariableDefinition struct {
	ID         string
	Expression expression.Expression
}

// Reference builds the expression node referring to this definition.
func (v VariableDefinition) Reference() expression.VariableReference {
	return expression.NewVariableReference(v.ID, v.Expression)
}

// resolveVariables indexes definitions by id, rejecting duplicates.
func resolveVariables(defs []VariableDefinition) (map[string]VariableDefinition, error) {
	byID := make(map[string]VariableDefinition, len(defs))
	for _, def := range defs {
		if _, exists := byID[def.ID]; exists {
			return nil, fmt.Errorf("duplicate variable definition %q", def.ID)
		}
		byID[def.ID] = def
	}
	return byID, nil
}
