package function

import "github.com/CameronXie/xacml-engine/xacml/value"

// orderedDatatypes lists the datatypes with comparison functions and the
// short name used in their identifiers.
var orderedDatatypes = map[string]string{
	"integer":  value.TypeInteger,
	"double":   value.TypeDouble,
	"string":   value.TypeString,
	"time":     value.TypeTime,
	"date":     value.TypeDate,
	"dateTime": value.TypeDateTime,
}

func init() {
	for short, datatype := range orderedDatatypes {
		dt := single(datatype)
		boolT := single(value.TypeBoolean)

		register(
			newFixed(xacml10+short+"-greater-than", boolT,
				compareImpl(func(c int) bool { return c > 0 }), dt, dt),
			newFixed(xacml10+short+"-greater-than-or-equal", boolT,
				compareImpl(func(c int) bool { return c >= 0 }), dt, dt),
			newFixed(xacml10+short+"-less-than", boolT,
				compareImpl(func(c int) bool { return c < 0 }), dt, dt),
			newFixed(xacml10+short+"-less-than-or-equal", boolT,
				compareImpl(func(c int) bool { return c <= 0 }), dt, dt),
		)
	}
}

func compareImpl(accept func(int) bool) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		a, err := toAttributeValue(args[0])
		if err != nil {
			return nil, err
		}
		b, err := toAttributeValue(args[1])
		if err != nil {
			return nil, err
		}

		c, err := value.Compare(a, b)
		if err != nil {
			return nil, err
		}
		return value.Boolean(accept(c)), nil
	}
}
