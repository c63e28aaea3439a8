package function

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CameronXie/xacml-engine/xacml/evalctx"
	"github.com/CameronXie/xacml-engine/xacml/expression"
	"github.com/CameronXie/xacml-engine/xacml/status"
	"github.com/CameronXie/xacml-engine/xacml/value"
)

// indeterminateExpr always fails with a processing error, standing in for
// an unresolvable argument.
type indeterminateExpr struct {
	resultType value.Type
}

func (e indeterminateExpr) Evaluate(*evalctx.Context) (value.Value, error) {
	return nil, status.NewProcessingError("unresolvable argument")
}

func (e indeterminateExpr) ResultType() value.Type { return e.resultType }

func lit(t *testing.T, datatype, lexical string) expression.Expression {
	t.Helper()
	v, err := value.Parse(datatype, lexical)
	require.NoError(t, err)
	return expression.NewLiteral(v)
}

func boolLit(b bool) expression.Expression {
	return expression.NewLiteral(value.Boolean(b))
}

func bagLit(t *testing.T, datatype string, lexicals ...string) expression.Expression {
	t.Helper()
	values := make([]value.AttributeValue, 0, len(lexicals))
	for _, lexical := range lexicals {
		v, err := value.Parse(datatype, lexical)
		require.NoError(t, err)
		values = append(values, v)
	}

	bag, err := value.NewBag(datatype, values...)
	require.NoError(t, err)
	return bagExpr{bag: bag}
}

// bagExpr wraps a constant bag, mirroring what a designator produces.
type bagExpr struct {
	bag *value.Bag
}

func (e bagExpr) Evaluate(*evalctx.Context) (value.Value, error) { return e.bag, nil }
func (e bagExpr) ResultType() value.Type                         { return e.bag.Type() }

func call(t *testing.T, id string, args ...expression.Expression) (value.Value, error) {
	t.Helper()
	fn, err := Lookup(id)
	require.NoError(t, err)
	return fn.Call(evalctx.New(), args)
}

func mustBool(t *testing.T, v value.Value, err error) bool {
	t.Helper()
	require.NoError(t, err)
	b, ok := v.(value.Boolean)
	require.True(t, ok, "expected boolean result, got %T", v)
	return bool(b)
}

func TestLogicalFunctions_ShortCircuit(t *testing.T) {
	indeterminate := indeterminateExpr{resultType: value.Type{Datatype: value.TypeBoolean}}

	tests := map[string]struct {
		id            string
		args          []expression.Expression
		expected      bool
		indeterminate bool
	}{
		"or stops at true before indeterminate":  {xacml10 + "or", []expression.Expression{boolLit(true), indeterminate}, true, false},
		"or with false and indeterminate":        {xacml10 + "or", []expression.Expression{boolLit(false), indeterminate}, false, true},
		"or of nothing is false":                 {xacml10 + "or", nil, false, false},
		"and stops at false before indeterminate": {xacml10 + "and", []expression.Expression{boolLit(false), indeterminate}, false, false},
		"and with true and indeterminate":        {xacml10 + "and", []expression.Expression{boolLit(true), indeterminate}, false, true},
		"and of nothing is true":                 {xacml10 + "and", nil, true, false},
		"and false after indeterminate still false": {xacml10 + "and", []expression.Expression{indeterminate, boolLit(false)}, false, false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			v, err := call(t, tc.id, tc.args...)
			if tc.indeterminate {
				require.Error(t, err)
				return
			}
			assert.Equal(t, tc.expected, mustBool(t, v, err))
		})
	}
}

func TestNOf(t *testing.T) {
	indeterminate := indeterminateExpr{resultType: value.Type{Datatype: value.TypeBoolean}}
	quota := func(n string) expression.Expression { return lit(t, value.TypeInteger, n) }

	t.Run("quota met before indeterminate argument", func(t *testing.T) {
		v, err := call(t, xacml10+"n-of", quota("2"), boolLit(true), boolLit(false), boolLit(true), indeterminate)
		assert.True(t, mustBool(t, v, err))
	})

	t.Run("quota zero is trivially true", func(t *testing.T) {
		v, err := call(t, xacml10+"n-of", quota("0"), indeterminate)
		assert.True(t, mustBool(t, v, err))
	})

	t.Run("too few arguments is a processing error", func(t *testing.T) {
		_, err := call(t, xacml10+"n-of", quota("3"), boolLit(true))
		require.Error(t, err)

		var se *status.Error
		require.ErrorAs(t, err, &se)
		assert.Equal(t, status.CodeProcessingError, se.Code)
	})

	t.Run("unreachable quota short-circuits to false", func(t *testing.T) {
		v, err := call(t, xacml10+"n-of", quota("2"), boolLit(false), boolLit(false), indeterminate)
		assert.False(t, mustBool(t, v, err))
	})

	t.Run("undecided with indeterminate argument", func(t *testing.T) {
		_, err := call(t, xacml10+"n-of", quota("2"), boolLit(true), indeterminate, boolLit(false))
		assert.Error(t, err)
	})

	t.Run("negative quota is a processing error", func(t *testing.T) {
		_, err := call(t, xacml10+"n-of", quota("-1"), boolLit(true))
		assert.Error(t, err)
	})
}

func TestBagFunctions(t *testing.T) {
	t.Run("bag then bag-size", func(t *testing.T) {
		v, err := call(t, xacml10+"string-bag-size",
			mustApply(t, xacml10+"string-bag", lit(t, value.TypeString, "a"), lit(t, value.TypeString, "b"), lit(t, value.TypeString, "a")))
		require.NoError(t, err)
		assert.Equal(t, "3", v.(value.AttributeValue).Lexical())
	})

	t.Run("is-in finds members", func(t *testing.T) {
		v, err := call(t, xacml10+"integer-is-in", lit(t, value.TypeInteger, "2"), bagLit(t, value.TypeInteger, "1", "2", "3"))
		assert.True(t, mustBool(t, v, err))

		v, err = call(t, xacml10+"integer-is-in", lit(t, value.TypeInteger, "9"), bagLit(t, value.TypeInteger, "1", "2", "3"))
		assert.False(t, mustBool(t, v, err))
	})

	t.Run("one-and-only unwraps singletons", func(t *testing.T) {
		v, err := call(t, xacml10+"string-one-and-only", bagLit(t, value.TypeString, "only"))
		require.NoError(t, err)
		assert.Equal(t, "only", v.(value.AttributeValue).Lexical())
	})

	t.Run("one-and-only rejects non-singletons", func(t *testing.T) {
		for _, args := range [][]string{{}, {"a", "b"}} {
			_, err := call(t, xacml10+"string-one-and-only", bagLit(t, value.TypeString, args...))
			require.Error(t, err)

			var se *status.Error
			require.ErrorAs(t, err, &se)
			assert.Equal(t, status.CodeProcessingError, se.Code)
		}
	})
}

// mustApply builds an Apply node for use as a nested argument.
func mustApply(t *testing.T, id string, args ...expression.Expression) expression.Expression {
	t.Helper()
	fn, err := Lookup(id)
	require.NoError(t, err)

	apply, err := expression.NewApply(fn, args...)
	require.NoError(t, err)
	return apply
}

func TestSetFunctions(t *testing.T) {
	abc := bagLit(t, value.TypeString, "a", "b", "c")
	bcd := bagLit(t, value.TypeString, "b", "c", "d")
	ab := bagLit(t, value.TypeString, "a", "b")

	t.Run("intersection", func(t *testing.T) {
		v, err := call(t, xacml10+"string-intersection", abc, bcd)
		require.NoError(t, err)
		bag := v.(*value.Bag)
		assert.Equal(t, 2, bag.Size())
	})

	t.Run("union deduplicates", func(t *testing.T) {
		v, err := call(t, xacml10+"string-union", abc, bcd)
		require.NoError(t, err)
		assert.Equal(t, 4, v.(*value.Bag).Size())
	})

	t.Run("subset", func(t *testing.T) {
		v, err := call(t, xacml10+"string-subset", ab, abc)
		assert.True(t, mustBool(t, v, err))

		v, err = call(t, xacml10+"string-subset", abc, ab)
		assert.False(t, mustBool(t, v, err))
	})

	t.Run("set-equals ignores duplicates and order", func(t *testing.T) {
		v, err := call(t, xacml10+"string-set-equals",
			bagLit(t, value.TypeString, "a", "b", "a"), bagLit(t, value.TypeString, "b", "a"))
		assert.True(t, mustBool(t, v, err))
	})

	t.Run("at-least-one-member-of", func(t *testing.T) {
		v, err := call(t, xacml10+"string-at-least-one-member-of", ab, bcd)
		assert.True(t, mustBool(t, v, err))
	})
}

func TestArithmetic(t *testing.T) {
	t.Run("integer add is variadic and exact", func(t *testing.T) {
		v, err := call(t, xacml10+"integer-add",
			lit(t, value.TypeInteger, "9223372036854775807"), lit(t, value.TypeInteger, "1"), lit(t, value.TypeInteger, "2"))
		require.NoError(t, err)
		assert.Equal(t, "9223372036854775810", v.(value.AttributeValue).Lexical())
	})

	t.Run("division by zero is indeterminate", func(t *testing.T) {
		for _, id := range []string{xacml10 + "integer-divide", xacml10 + "integer-mod"} {
			_, err := call(t, id, lit(t, value.TypeInteger, "1"), lit(t, value.TypeInteger, "0"))
			require.Error(t, err)

			var se *status.Error
			require.ErrorAs(t, err, &se)
			assert.Equal(t, status.CodeProcessingError, se.Code)
		}

		_, err := call(t, xacml10+"double-divide", lit(t, value.TypeDouble, "1.0"), lit(t, value.TypeDouble, "0.0"))
		assert.Error(t, err)
	})

	t.Run("double arithmetic", func(t *testing.T) {
		v, err := call(t, xacml10+"double-divide", lit(t, value.TypeDouble, "7.0"), lit(t, value.TypeDouble, "2.0"))
		require.NoError(t, err)
		assert.Equal(t, "3.5", v.(value.AttributeValue).Lexical())
	})

	t.Run("floor and round", func(t *testing.T) {
		v, err := call(t, xacml10+"floor", lit(t, value.TypeDouble, "2.9"))
		require.NoError(t, err)
		assert.Equal(t, "2", v.(value.AttributeValue).Lexical())

		v, err = call(t, xacml10+"round", lit(t, value.TypeDouble, "2.5"))
		require.NoError(t, err)
		assert.Equal(t, "3", v.(value.AttributeValue).Lexical())
	})

	t.Run("conversions", func(t *testing.T) {
		v, err := call(t, xacml10+"double-to-integer", lit(t, value.TypeDouble, "3.9"))
		require.NoError(t, err)
		assert.Equal(t, "3", v.(value.AttributeValue).Lexical())

		v, err = call(t, xacml10+"integer-to-double", lit(t, value.TypeInteger, "4"))
		require.NoError(t, err)
		assert.Equal(t, "4", v.(value.AttributeValue).Lexical())
	})
}

func TestStringFunctions(t *testing.T) {
	t.Run("needle-first predicates", func(t *testing.T) {
		v, err := call(t, xacml30+"string-starts-with", lit(t, value.TypeString, "he"), lit(t, value.TypeString, "hello"))
		assert.True(t, mustBool(t, v, err))

		v, err = call(t, xacml30+"string-contains", lit(t, value.TypeString, "ell"), lit(t, value.TypeString, "hello"))
		assert.True(t, mustBool(t, v, err))

		v, err = call(t, xacml30+"string-ends-with", lit(t, value.TypeString, "hello"), lit(t, value.TypeString, "lo"))
		assert.False(t, mustBool(t, v, err))
	})

	t.Run("substring with open end", func(t *testing.T) {
		v, err := call(t, xacml30+"string-substring",
			lit(t, value.TypeString, "hello"), lit(t, value.TypeInteger, "1"), lit(t, value.TypeInteger, "-1"))
		require.NoError(t, err)
		assert.Equal(t, "ello", v.(value.AttributeValue).Lexical())
	})

	t.Run("substring out of range is indeterminate", func(t *testing.T) {
		_, err := call(t, xacml30+"string-substring",
			lit(t, value.TypeString, "hi"), lit(t, value.TypeInteger, "0"), lit(t, value.TypeInteger, "5"))
		assert.Error(t, err)
	})

	t.Run("normalisation", func(t *testing.T) {
		v, err := call(t, xacml10+"string-normalize-space", lit(t, value.TypeString, "  padded  "))
		require.NoError(t, err)
		assert.Equal(t, "padded", v.(value.AttributeValue).Lexical())

		v, err = call(t, xacml10+"string-normalize-to-lower-case", lit(t, value.TypeString, "MiXeD"))
		require.NoError(t, err)
		assert.Equal(t, "mixed", v.(value.AttributeValue).Lexical())
	})

	t.Run("concatenate", func(t *testing.T) {
		v, err := call(t, xacml20+"string-concatenate",
			lit(t, value.TypeString, "a"), lit(t, value.TypeString, "b"), lit(t, value.TypeString, "c"))
		require.NoError(t, err)
		assert.Equal(t, "abc", v.(value.AttributeValue).Lexical())
	})

	t.Run("regexp match", func(t *testing.T) {
		v, err := call(t, xacml10+"string-regexp-match", lit(t, value.TypeString, "^h.*o$"), lit(t, value.TypeString, "hello"))
		assert.True(t, mustBool(t, v, err))

		_, err = call(t, xacml10+"string-regexp-match", lit(t, value.TypeString, "("), lit(t, value.TypeString, "x"))
		assert.Error(t, err)
	})

	t.Run("string conversions", func(t *testing.T) {
		v, err := call(t, xacml30+"boolean-from-string", lit(t, value.TypeString, "true"))
		assert.True(t, mustBool(t, v, err))

		_, err = call(t, xacml30+"integer-from-string", lit(t, value.TypeString, "not a number"))
		require.Error(t, err)

		var se *status.Error
		require.ErrorAs(t, err, &se)
		assert.Equal(t, status.CodeSyntaxError, se.Code)
	})
}

func TestEqualityAndComparison(t *testing.T) {
	t.Run("string-equal", func(t *testing.T) {
		v, err := call(t, xacml10+"string-equal", lit(t, value.TypeString, "a"), lit(t, value.TypeString, "a"))
		assert.True(t, mustBool(t, v, err))
	})

	t.Run("string-equal-ignore-case", func(t *testing.T) {
		v, err := call(t, xacml30+"string-equal-ignore-case", lit(t, value.TypeString, "AbC"), lit(t, value.TypeString, "abc"))
		assert.True(t, mustBool(t, v, err))
	})

	t.Run("integer comparisons", func(t *testing.T) {
		v, err := call(t, xacml10+"integer-greater-than", lit(t, value.TypeInteger, "5"), lit(t, value.TypeInteger, "3"))
		assert.True(t, mustBool(t, v, err))

		v, err = call(t, xacml10+"integer-less-than-or-equal", lit(t, value.TypeInteger, "5"), lit(t, value.TypeInteger, "5"))
		assert.True(t, mustBool(t, v, err))
	})

	t.Run("dateTime comparison across zones", func(t *testing.T) {
		v, err := call(t, xacml10+"dateTime-less-than",
			lit(t, value.TypeDateTime, "2024-05-01T12:00:00+02:00"), lit(t, value.TypeDateTime, "2024-05-01T11:00:00Z"))
		assert.True(t, mustBool(t, v, err))
	})

	t.Run("static datatype mismatch is rejected at construction", func(t *testing.T) {
		fn, err := Lookup(xacml10 + "string-equal")
		require.NoError(t, err)

		_, err = expression.NewApply(fn, lit(t, value.TypeInteger, "1"), lit(t, value.TypeString, "a"))
		assert.Error(t, err)
	})

	t.Run("arity mismatch is rejected at construction", func(t *testing.T) {
		fn, err := Lookup(xacml10 + "string-equal")
		require.NoError(t, err)

		_, err = expression.NewApply(fn, lit(t, value.TypeString, "a"))
		assert.Error(t, err)
	})
}

func TestSpecialMatchFunctions(t *testing.T) {
	t.Run("rfc822Name-match", func(t *testing.T) {
		tests := map[string]struct {
			pattern  string
			name     string
			expected bool
		}{
			"full name":           {"alice@example.com", "alice@Example.COM", true},
			"domain only":         {"example.com", "bob@example.com", true},
			"subdomain pattern":   {".example.com", "bob@mail.example.com", true},
			"domain no subdomain": {"example.com", "bob@mail.example.com", false},
			"wrong local part":    {"alice@example.com", "bob@example.com", false},
		}

		for name, tc := range tests {
			t.Run(name, func(t *testing.T) {
				v, err := call(t, xacml10+"rfc822Name-match",
					lit(t, value.TypeString, tc.pattern), lit(t, value.TypeRFC822Name, tc.name))
				assert.Equal(t, tc.expected, mustBool(t, v, err))
			})
		}
	})

	t.Run("x500Name-match on RDN suffix", func(t *testing.T) {
		v, err := call(t, xacml10+"x500Name-match",
			lit(t, value.TypeX500Name, "o=Example, c=AU"), lit(t, value.TypeX500Name, "cn=Alice, o=Example, c=AU"))
		assert.True(t, mustBool(t, v, err))

		v, err = call(t, xacml10+"x500Name-match",
			lit(t, value.TypeX500Name, "o=Other"), lit(t, value.TypeX500Name, "cn=Alice, o=Example"))
		assert.False(t, mustBool(t, v, err))
	})
}

func TestTemporalArithmetic(t *testing.T) {
	t.Run("dateTime plus dayTimeDuration", func(t *testing.T) {
		v, err := call(t, xacml30+"dateTime-add-dayTimeDuration",
			lit(t, value.TypeDateTime, "2024-05-01T10:00:00Z"), lit(t, value.TypeDayTimeDuration, "P1DT2H"))
		require.NoError(t, err)
		assert.Equal(t, "2024-05-02T12:00:00Z", v.(value.AttributeValue).Lexical())
	})

	t.Run("date minus yearMonthDuration", func(t *testing.T) {
		v, err := call(t, xacml30+"date-subtract-yearMonthDuration",
			lit(t, value.TypeDate, "2024-05-01Z"), lit(t, value.TypeYearMonthDuration, "P1Y2M"))
		require.NoError(t, err)
		assert.Equal(t, "2023-03-01Z", v.(value.AttributeValue).Lexical())
	})
}

func TestHigherOrderFunctions(t *testing.T) {
	equal := func() expression.Expression {
		fn, err := Lookup(xacml10 + "string-equal")
		require.NoError(t, err)
		return expression.NewFunctionRef(fn)
	}
	greaterThan := func() expression.Expression {
		fn, err := Lookup(xacml10 + "integer-greater-than")
		require.NoError(t, err)
		return expression.NewFunctionRef(fn)
	}

	t.Run("any-of", func(t *testing.T) {
		v, err := call(t, xacml30+"any-of", equal(), lit(t, value.TypeString, "b"), bagLit(t, value.TypeString, "a", "b"))
		assert.True(t, mustBool(t, v, err))

		v, err = call(t, xacml30+"any-of", equal(), lit(t, value.TypeString, "z"), bagLit(t, value.TypeString, "a", "b"))
		assert.False(t, mustBool(t, v, err))
	})

	t.Run("all-of", func(t *testing.T) {
		// 10 > each of {1, 2, 9}.
		v, err := call(t, xacml30+"all-of", greaterThan(), lit(t, value.TypeInteger, "10"), bagLit(t, value.TypeInteger, "1", "2", "9"))
		assert.True(t, mustBool(t, v, err))

		v, err = call(t, xacml30+"all-of", greaterThan(), lit(t, value.TypeInteger, "5"), bagLit(t, value.TypeInteger, "1", "9"))
		assert.False(t, mustBool(t, v, err))
	})

	t.Run("any-of-any", func(t *testing.T) {
		v, err := call(t, xacml30+"any-of-any", equal(),
			bagLit(t, value.TypeString, "x", "y"), bagLit(t, value.TypeString, "y", "z"))
		assert.True(t, mustBool(t, v, err))
	})

	t.Run("all-of-any and any-of-all", func(t *testing.T) {
		// Every element of {3, 4} is greater than some element of {1, 9}.
		v, err := call(t, xacml30+"all-of-any", greaterThan(),
			bagLit(t, value.TypeInteger, "3", "4"), bagLit(t, value.TypeInteger, "1", "9"))
		assert.True(t, mustBool(t, v, err))

		// Some element of {3, 10} is greater than every element of {1, 9}.
		v, err = call(t, xacml30+"any-of-all", greaterThan(),
			bagLit(t, value.TypeInteger, "3", "10"), bagLit(t, value.TypeInteger, "1", "9"))
		assert.True(t, mustBool(t, v, err))
	})

	t.Run("all-of-all", func(t *testing.T) {
		v, err := call(t, xacml30+"all-of-all", greaterThan(),
			bagLit(t, value.TypeInteger, "5", "6"), bagLit(t, value.TypeInteger, "1", "2"))
		assert.True(t, mustBool(t, v, err))

		v, err = call(t, xacml30+"all-of-all", greaterThan(),
			bagLit(t, value.TypeInteger, "5", "6"), bagLit(t, value.TypeInteger, "1", "5"))
		assert.False(t, mustBool(t, v, err))
	})

	t.Run("map", func(t *testing.T) {
		fn, err := Lookup(xacml10 + "string-normalize-to-lower-case")
		require.NoError(t, err)

		v, err := call(t, xacml30+"map", expression.NewFunctionRef(fn), bagLit(t, value.TypeString, "Hello", "World"))
		require.NoError(t, err)

		bag, ok := v.(*value.Bag)
		require.True(t, ok)
		assert.Equal(t, value.TypeString, bag.Datatype())
		assert.True(t, bag.Contains(value.String("hello")))
		assert.True(t, bag.Contains(value.String("world")))
	})
}
