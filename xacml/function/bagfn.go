package function

import (
	"math/big"

	"github.com/CameronXie/xacml-engine/xacml/status"
	"github.com/CameronXie/xacml-engine/xacml/value"
)

// bagDatatypes lists every datatype with bag functions and the identifier
// prefix its bag functions were standardised under.
var bagDatatypes = map[string]struct {
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
	"dayTimeDuration":   {value.TypeDayTimeDuration, xacml10},
	"yearMonthDuration": {value.TypeYearMonthDuration, xacml10},
	"ipAddress":         {value.TypeIPAddress, xacml20},
	"dnsName":           {value.TypeDNSName, xacml20},
}

func init() {
	for short, d := range bagDatatypes {
		dt := d.datatype
		register(
			newFixed(d.prefix+short+"-one-and-only", single(dt), oneAndOnly, bag(dt)),
			newFixed(d.prefix+short+"-bag-size", single(value.TypeInteger), bagSize, bag(dt)),
			newFixed(d.prefix+short+"-is-in", single(value.TypeBoolean), isIn, single(dt), bag(dt)),
			newVariadic(d.prefix+short+"-bag", bag(dt), makeBag(dt), single(dt), 0),
		)
	}
}

// oneAndOnly unwraps a singleton bag; any other size is a processing error.
func oneAndOnly(args []value.Value) (value.Value, error) {
	b, err := toBag(args[0])
	if err != nil {
		return nil, err
	}

	v, err := b.Single()
	if err != nil {
		return nil, status.From(err)
	}
	return v, nil
}

func bagSize(args []value.Value) (value.Value, error) {
	b, err := toBag(args[0])
	if err != nil {
		return nil, err
	}
	return value.IntegerFromBig(big.NewInt(int64(b.Size()))), nil
}

func isIn(args []value.Value) (value.Value, error) {
	v, err := toAttributeValue(args[0])
	if err != nil {
		return nil, err
	}
	b, err := toBag(args[1])
	if err != nil {
		return nil, err
	}
	return value.Boolean(b.Contains(v)), nil
}

func makeBag(datatype string) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		values := make([]value.AttributeValue, 0, len(args))
		for _, arg := range args {
			v, err := toAttributeValue(arg)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}

		b, err := value.NewBag(datatype, values...)
		if err != nil {
			return nil, status.From(err)
		}
		return b, nil
	}
}
