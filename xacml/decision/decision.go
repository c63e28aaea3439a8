// Package decision defines the authorization decision model: the decision
// values including the Indeterminate flavours, evaluated obligations and
// advice, and the result type produced by rules, policies, and combining
// algorithms.
package decision

import (
	"encoding/json"
	"fmt"

	"github.com/CameronXie/xacml-engine/xacml/status"
	"github.com/CameronXie/xacml-engine/xacml/value"
)

// Decision is the outcome of evaluating a rule, policy, or policy set. The
// three Indeterminate flavours carry the decision that would have resulted
// had evaluation succeeded; they are collapsed to plain Indeterminate at the
// response boundary.
type Decision int

const (
	NotApplicable Decision = iota
	Permit
	Deny
	IndeterminateD
	IndeterminateP
	IndeterminateDP
)

var decisionStrings = [...]string{
	"NotApplicable",
	"Permit",
	"Deny",
	"Indeterminate{D}",
	"Indeterminate{P}",
	"Indeterminate{DP}",
}

func (d Decision) String() string {
	if d >= 0 && int(d) < len(decisionStrings) {
		return decisionStrings[d]
	}
	return fmt.Sprintf("unknown(%d)", int(d))
}

// Indeterminate reports whether d is one of the Indeterminate flavours.
func (d Decision) Indeterminate() bool {
	return d == IndeterminateD || d == IndeterminateP || d == IndeterminateDP
}

// Collapsed returns the public decision value: the Indeterminate flavours
// all collapse to "Indeterminate".
func (d Decision) Collapsed() string {
	if d.Indeterminate() {
		return "Indeterminate"
	}
	return decisionStrings[d]
}

// MarshalJSON serialises the collapsed public value.
func (d Decision) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Collapsed())
}

// Status describes the outcome of the decision process.
type Status struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// StatusOK is the status attached to definite decisions.
var StatusOK = Status{Code: status.CodeOK}

// AttributeAssignment is one evaluated attribute of an obligation or advice.
type AttributeAssignment struct {
	AttributeID string               `json:"attributeId"`
	Category    string               `json:"category,omitempty"`
	Issuer      string               `json:"issuer,omitempty"`
	Value       value.AttributeValue `json:"-"`
}

// MarshalJSON inlines the datatype and lexical form of the assigned value.
func (a AttributeAssignment) MarshalJSON() ([]byte, error) {
	type assignment struct {
		AttributeID string `json:"attributeId"`
		Category    string `json:"category,omitempty"`
		Issuer      string `json:"issuer,omitempty"`
		Datatype    string `json:"dataType"`
		Value       string `json:"value"`
	}
	return json.Marshal(assignment{
		AttributeID: a.AttributeID,
		Category:    a.Category,
		Issuer:      a.Issuer,
		Datatype:    a.Value.Datatype(),
		Value:       a.Value.Lexical(),
	})
}

// Obligation is a mandatory duty the enforcement point must honour.
type Obligation struct {
	ID          string                `json:"id"`
	Assignments []AttributeAssignment `json:"attributeAssignments,omitempty"`
}

// Advice is a recommended but ignorable duty.
type Advice struct {
	ID          string                `json:"id"`
	Assignments []AttributeAssignment `json:"attributeAssignments,omitempty"`
}

// PolicyRef identifies a policy or policy set that was applicable to a
// request.
type PolicyRef struct {
	ID        string `json:"id"`
	Version   string `json:"version"`
	PolicySet bool   `json:"policySet,omitempty"`
}

// Result is the outcome of evaluating a rule, policy, policy set, or
// combining algorithm. Results are immutable once returned.
type Result struct {
	Decision           Decision
	Status             Status
	Obligations        []Obligation
	Advice             []Advice
	ApplicablePolicies []PolicyRef
}

// NewResult builds a definite result with an OK status.
func NewResult(d Decision) Result {
	return Result{Decision: d, Status: StatusOK}
}

// NewIndeterminate builds an Indeterminate result of the given flavour from
// an evaluation error, preserving the first status observed in the error
// chain.
func NewIndeterminate(flavour Decision, err error) Result {
	se := status.From(err)
	return Result{
		Decision: flavour,
		Status:   Status{Code: se.Code, Message: se.Message},
	}
}
