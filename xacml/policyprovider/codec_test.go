package policyprovider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CameronXie/xacml-engine/xacml/decision"
	"github.com/CameronXie/xacml-engine/xacml/evalctx"
	"github.com/CameronXie/xacml-engine/xacml/policy"
	"github.com/CameronXie/xacml-engine/xacml/value"
)

const subjectCategory = "urn:oasis:names:tc:xacml:1.0:subject-category:access-subject"

// adminPolicyDocument permits admins and attaches an audit obligation on
// permit; it exercises targets, variables, conditions, and obligations.
const adminPolicyDocument = `{
  "policy": {
    "id": "urn:example:policy:admin",
    "version": "1.0",
    "description": "admins may act",
    "ruleCombiningAlgId": "urn:oasis:names:tc:xacml:3.0:rule-combining-algorithm:permit-overrides",
    "target": {
      "anyOf": [
        {
          "allOf": [
            {
              "matches": [
                {
                  "matchId": "urn:oasis:names:tc:xacml:1.0:function:string-equal",
                  "value": {"dataType": "http://www.w3.org/2001/XMLSchema#string", "value": "admin"},
                  "designator": {
                    "category": "urn:oasis:names:tc:xacml:1.0:subject-category:access-subject",
                    "attributeId": "urn:example:role",
                    "dataType": "http://www.w3.org/2001/XMLSchema#string"
                  }
                }
              ]
            }
          ]
        }
      ]
    },
    "variables": [
      {
        "id": "isReader",
        "expression": {
          "apply": {
            "functionId": "urn:oasis:names:tc:xacml:1.0:function:string-is-in",
            "args": [
              {"value": {"dataType": "http://www.w3.org/2001/XMLSchema#string", "value": "read"}},
              {
                "designator": {
                  "category": "urn:oasis:names:tc:xacml:3.0:attribute-category:action",
                  "attributeId": "urn:oasis:names:tc:xacml:1.0:action:action-id",
                  "dataType": "http://www.w3.org/2001/XMLSchema#string"
                }
              }
            ]
          }
        }
      }
    ],
    "rules": [
      {
        "id": "urn:example:rule:permit-read",
        "effect": "Permit",
        "condition": {"variableReference": "isReader"},
        "obligations": [
          {
            "id": "urn:example:obligation:audit",
            "fulfillOn": "Permit",
            "assignments": [
              {
                "attributeId": "urn:example:message",
                "expression": {"value": {"dataType": "http://www.w3.org/2001/XMLSchema#string", "value": "audit read"}}
              }
            ]
          }
        ]
      },
      {"id": "urn:example:rule:default-deny", "effect": "Deny"}
    ]
  }
}`

func adminContext(t *testing.T, role, action string) *evalctx.Context {
	t.Helper()
	ctx := evalctx.New()
	ctx.AddAttribute(subjectCategory, "urn:example:role", "", value.BagOf(value.String(role)))
	ctx.AddAttribute("urn:oasis:names:tc:xacml:3.0:attribute-category:action",
		"urn:oasis:names:tc:xacml:1.0:action:action-id", "", value.BagOf(value.String(action)))
	return ctx
}

func TestDecodeDocument_Policy(t *testing.T) {
	store := NewMemStore()
	element, err := store.LoadDocument([]byte(adminPolicyDocument))
	require.NoError(t, err)

	p, ok := element.(*policy.Policy)
	require.True(t, ok)
	assert.Equal(t, "urn:example:policy:admin", p.ID())
	assert.Equal(t, "1.0", p.Version())

	t.Run("admin reading is permitted with the audit obligation", func(t *testing.T) {
		result := p.Evaluate(adminContext(t, "admin", "read"))
		assert.Equal(t, decision.Permit, result.Decision)
		require.Len(t, result.Obligations, 1)
		assert.Equal(t, "urn:example:obligation:audit", result.Obligations[0].ID)
	})

	t.Run("admin writing is denied", func(t *testing.T) {
		result := p.Evaluate(adminContext(t, "admin", "write"))
		assert.Equal(t, decision.Deny, result.Decision)
		assert.Empty(t, result.Obligations)
	})

	t.Run("non-admin is out of target", func(t *testing.T) {
		result := p.Evaluate(adminContext(t, "guest", "read"))
		assert.Equal(t, decision.NotApplicable, result.Decision)
	})
}

func TestDecodeDocument_PolicySetWithReference(t *testing.T) {
	store := NewMemStore()
	_, err := store.LoadDocument([]byte(adminPolicyDocument))
	require.NoError(t, err)

	const policySetDocument = `{
	  "policySet": {
	    "id": "urn:example:policyset:root",
	    "version": "2.0",
	    "policyCombiningAlgId": "urn:oasis:names:tc:xacml:1.0:policy-combining-algorithm:first-applicable",
	    "children": [
	      {"policyIdReference": {"id": "urn:example:policy:admin", "earliestVersion": "1.0"}}
	    ]
	  }
	}`

	element, err := store.LoadDocument([]byte(policySetDocument))
	require.NoError(t, err)

	ps, ok := element.(*policy.PolicySet)
	require.True(t, ok)

	result := ps.Evaluate(adminContext(t, "admin", "read"))
	assert.Equal(t, decision.Permit, result.Decision)
}

func TestDecodeDocument_Errors(t *testing.T) {
	tests := map[string]string{
		"not json":            `{`,
		"empty document":      `{}`,
		"unknown algorithm":   `{"policy": {"id": "p", "version": "1", "ruleCombiningAlgId": "urn:example:none", "rules": []}}`,
		"unknown function":    `{"policy": {"id": "p", "version": "1", "ruleCombiningAlgId": "urn:oasis:names:tc:xacml:3.0:rule-combining-algorithm:deny-overrides", "rules": [{"id": "r", "effect": "Permit", "condition": {"apply": {"functionId": "urn:example:none", "args": []}}}]}}`,
		"invalid effect":      `{"policy": {"id": "p", "version": "1", "ruleCombiningAlgId": "urn:oasis:names:tc:xacml:3.0:rule-combining-algorithm:deny-overrides", "rules": [{"id": "r", "effect": "Allow"}]}}`,
		"undefined variable":  `{"policy": {"id": "p", "version": "1", "ruleCombiningAlgId": "urn:oasis:names:tc:xacml:3.0:rule-combining-algorithm:deny-overrides", "rules": [{"id": "r", "effect": "Permit", "condition": {"variableReference": "missing"}}]}}`,
		"match without operand": `{"policy": {"id": "p", "version": "1", "ruleCombiningAlgId": "urn:oasis:names:tc:xacml:3.0:rule-combining-algorithm:deny-overrides", "target": {"anyOf": [{"allOf": [{"matches": [{"matchId": "urn:oasis:names:tc:xacml:1.0:function:string-equal", "value": {"dataType": "http://www.w3.org/2001/XMLSchema#string", "value": "x"}}]}]}]}, "rules": [{"id": "r", "effect": "Permit"}]}}`,
	}

	for name, document := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeDocument([]byte(document), NewMemStore())
			assert.Error(t, err)
		})
	}
}
