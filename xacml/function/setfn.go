package function

import (
	"github.com/CameronXie/xacml-engine/xacml/status"
	"github.com/CameronXie/xacml-engine/xacml/value"
)

// setDatatypes lists the datatypes with standard set functions.
var setDatatypes = map[string]struct {
	datatype string
	prefix   string
}{
	"string":            {value.TypeString, xacml10},
	"boolean":           {value.TypeBoolean, xacml10},
	"integer":           {value.TypeInteger, xacml10},
	"double":            {value.TypeDouble, xacml10},
	"time":              {value.TypeTime, xacml10},
	"date":              {value.TypeDate, xacml10},
	"dateTime":          {value.TypeDateTime, xacml10},
	"anyURI":            {value.TypeAnyURI, xacml10},
	"hexBinary":         {value.TypeHexBinary, xacml10},
	"base64Binary":      {value.TypeBase64Binary, xacml10},
	"x500Name":          {value.TypeX500Name, xacml10},
	"rfc822Name":        {value.TypeRFC822Name, xacml10},
	"dayTimeDuration":   {value.TypeDayTimeDuration, xacml30},
	"yearMonthDuration": {value.TypeYearMonthDuration, xacml30},
}

func init() {
	boolT := single(value.TypeBoolean)
	for short, d := range setDatatypes {
		bagT := bag(d.datatype)
		register(
			newFixed(d.prefix+short+"-intersection", bagT, intersection(d.datatype), bagT, bagT),
			newFixed(d.prefix+short+"-union", bagT, union(d.datatype), bagT, bagT),
			newFixed(d.prefix+short+"-subset", boolT, subset, bagT, bagT),
			newFixed(d.prefix+short+"-set-equals", boolT, setEquals, bagT, bagT),
			newFixed(d.prefix+short+"-at-least-one-member-of", boolT, atLeastOneMemberOf, bagT, bagT),
		)
	}
}

func twoBags(args []value.Value) (*value.Bag, *value.Bag, error) {
	a, err := toBag(args[0])
	if err != nil {
		return nil, nil, err
	}
	b, err := toBag(args[1])
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// intersection returns the values present in both bags, without duplicates.
func intersection(datatype string) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		a, b, err := twoBags(args)
		if err != nil {
			return nil, err
		}

		var members []value.AttributeValue
		for _, v := range a.Values() {
			if b.Contains(v) && !containsValue(members, v) {
				members = append(members, v)
			}
		}

		out, err := value.NewBag(datatype, members...)
		if err != nil {
			return nil, status.From(err)
		}
		return out, nil
	}
}

// union returns the values present in either bag, without duplicates.
func union(datatype string) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		a, b, err := twoBags(args)
		if err != nil {
			return nil, err
		}

		var members []value.AttributeValue
		for _, v := range a.Values() {
			if !containsValue(members, v) {
				members = append(members, v)
			}
		}
		for _, v := range b.Values() {
			if !containsValue(members, v) {
				members = append(members, v)
			}
		}

		out, err := value.NewBag(datatype, members...)
		if err != nil {
			return nil, status.From(err)
		}
		return out, nil
	}
}

func subset(args []value.Value) (value.Value, error) {
	a, b, err := twoBags(args)
	if err != nil {
		return nil, err
	}

	for _, v := range a.Values() {
		if !b.Contains(v) {
			return value.Boolean(false), nil
		}
	}
	return value.Boolean(true), nil
}

func setEquals(args []value.Value) (value.Value, error) {
	a, b, err := twoBags(args)
	if err != nil {
		return nil, err
	}

	for _, v := range a.Values() {
		if !b.Contains(v) {
			return value.Boolean(false), nil
		}
	}
	for _, v := range b.Values() {
		if !a.Contains(v) {
			return value.Boolean(false), nil
		}
	}
	return value.Boolean(true), nil
}

func atLeastOneMemberOf(args []value.Value) (value.Value, error) {
	a, b, err := twoBags(args)
	if err != nil {
		return nil, err
	}

	for _, v := range a.Values() {
		if b.Contains(v) {
			return value.Boolean(true), nil
		}
	}
	return value.Boolean(false), nil
}

func containsValue(members []value.AttributeValue, v value.AttributeValue) bool {
	for _, member := range members {
		if member.Equal(v) {
			return true
		}
	}
	return false
}
