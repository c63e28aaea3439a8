package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CameronXie/xacml-engine/xacml/evalctx"
	"github.com/CameronXie/xacml-engine/xacml/status"
	"github.com/CameronXie/xacml-engine/xacml/value"
)

func TestDesignator(t *testing.T) {
	const category = "urn:example:category"
	const attrID = "urn:example:attr"

	ctx := evalctx.New()
	ctx.AddAttribute(category, attrID, "", value.BagOf(value.String("present")))

	t.Run("returns the resolved bag", func(t *testing.T) {
		d := Designator{Category: category, AttributeID: attrID, Datatype: value.TypeString}
		v, err := d.Evaluate(ctx)
		require.NoError(t, err)

		bag, ok := v.(*value.Bag)
		require.True(t, ok)
		assert.Equal(t, 1, bag.Size())
		assert.True(t, d.ResultType().IsBag)
	})

	t.Run("absent attribute yields empty bag", func(t *testing.T) {
		d := Designator{Category: category, AttributeID: "urn:example:absent", Datatype: value.TypeString}
		v, err := d.Evaluate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, v.(*value.Bag).Size())
	})

	t.Run("mustBePresent lifts empty bags to missing-attribute", func(t *testing.T) {
		d := Designator{
			Category:      category,
			AttributeID:   "urn:example:absent",
			Datatype:      value.TypeString,
			MustBePresent: true,
		}
		_, err := d.Evaluate(ctx)
		require.Error(t, err)

		var se *status.Error
		require.ErrorAs(t, err, &se)
		assert.Equal(t, status.CodeMissingAttribute, se.Code)
	})
}

// countingExpr counts how many times it is evaluated.
type countingExpr struct {
	calls *int
}

func (e countingExpr) Evaluate(*evalctx.Context) (value.Value, error) {
	*e.calls++
	return value.Boolean(true), nil
}

func (e countingExpr) ResultType() value.Type {
	return value.Type{Datatype: value.TypeBoolean}
}

func TestVariableReference_Memoisation(t *testing.T) {
	calls := 0
	ref := NewVariableReference("v1", countingExpr{calls: &calls})

	ctx := evalctx.New()
	for range 3 {
		v, err := ref.Evaluate(ctx)
		require.NoError(t, err)
		assert.Equal(t, value.Boolean(true), v)
	}
	assert.Equal(t, 1, calls, "definition must be evaluated at most once per context")
}

func TestFunctionRef_IsNotAValue(t *testing.T) {
	fn := stubFunction{}
	_, err := NewFunctionRef(fn).Evaluate(evalctx.New())
	assert.Error(t, err)
}

type stubFunction struct{}

func (stubFunction) ID() string             { return "urn:example:function" }
func (stubFunction) ReturnType() value.Type { return value.Type{Datatype: value.TypeBoolean} }
func (stubFunction) Validate([]Expression) error {
	return nil
}
func (stubFunction) Call(*evalctx.Context, []Expression) (value.Value, error) {
	return value.Boolean(true), nil
}
