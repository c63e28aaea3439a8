package function

import (
	"strings"

	"github.com/CameronXie/xacml-engine/xacml/value"
)

// equalityFunctions lists the per-datatype equality functions with their
// standard identifiers.
var equalityFunctions = map[string]string{
	xacml10 + "string-equal":            value.TypeString,
	xacml10 + "boolean-equal":           value.TypeBoolean,
	xacml10 + "integer-equal":           value.TypeInteger,
	xacml10 + "double-equal":            value.TypeDouble,
	xacml10 + "date-equal":              value.TypeDate,
	xacml10 + "time-equal":              value.TypeTime,
	xacml10 + "dateTime-equal":          value.TypeDateTime,
	xacml10 + "anyURI-equal":            value.TypeAnyURI,
	xacml10 + "x500Name-equal":          value.TypeX500Name,
	xacml10 + "rfc822Name-equal":        value.TypeRFC822Name,
	xacml10 + "hexBinary-equal":         value.TypeHexBinary,
	xacml10 + "base64Binary-equal":      value.TypeBase64Binary,
	xacml30 + "dayTimeDuration-equal":   value.TypeDayTimeDuration,
	xacml30 + "yearMonthDuration-equal": value.TypeYearMonthDuration,
}

func init() {
	for id, datatype := range equalityFunctions {
		register(newFixed(id, single(value.TypeBoolean), equalImpl, single(datatype), single(datatype)))
	}

	register(newFixed(xacml30+"string-equal-ignore-case", single(value.TypeBoolean),
		func(args []value.Value) (value.Value, error) {
			a, err := toString(args[0])
			if err != nil {
				return nil, err
			}
			b, err := toString(args[1])
			if err != nil {
				return nil, err
			}
			return value.Boolean(strings.EqualFold(string(a), string(b))), nil
		},
		single(value.TypeString), single(value.TypeString)))
}

func equalImpl(args []value.Value) (value.Value, error) {
	a, err := toAttributeValue(args[0])
	if err != nil {
		return nil, err
	}
	b, err := toAttributeValue(args[1])
	if err != nil {
		return nil, err
	}
	return value.Boolean(a.Equal(b)), nil
}
