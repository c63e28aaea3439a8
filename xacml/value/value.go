// Package value implements the XACML 3.0 datatype system: typed attribute
// values, bags (unordered multisets over a single datatype), and the registry
// used to parse lexical representations into canonical values.
package value

import "fmt"

// Standard XACML 3.0 datatype identifiers.
const (
	TypeString            = "http://www.w3.org/2001/XMLSchema#string"
	TypeBoolean           = "http://www.w3.org/2001/XMLSchema#boolean"
	TypeInteger           = "http://www.w3.org/2001/XMLSchema#integer"
	TypeDouble            = "http://www.w3.org/2001/XMLSchema#double"
	TypeTime              = "http://www.w3.org/2001/XMLSchema#time"
	TypeDate              = "http://www.w3.org/2001/XMLSchema#date"
	TypeDateTime          = "http://www.w3.org/2001/XMLSchema#dateTime"
	TypeDayTimeDuration   = "http://www.w3.org/2001/XMLSchema#dayTimeDuration"
	TypeYearMonthDuration = "http://www.w3.org/2001/XMLSchema#yearMonthDuration"
	TypeAnyURI            = "http://www.w3.org/2001/XMLSchema#anyURI"
	TypeHexBinary         = "http://www.w3.org/2001/XMLSchema#hexBinary"
	TypeBase64Binary      = "http://www.w3.org/2001/XMLSchema#base64Binary"
	TypeRFC822Name        = "urn:oasis:names:tc:xacml:1.0:data-type:rfc822Name"
	TypeX500Name          = "urn:oasis:names:tc:xacml:1.0:data-type:x500Name"
	TypeIPAddress         = "urn:oasis:names:tc:xacml:2.0:data-type:ipAddress"
	TypeDNSName           = "urn:oasis:names:tc:xacml:2.0:data-type:dnsName"
)

// Type describes the static type of an expression result: a datatype plus
// whether the result is a bag of that datatype or a single value.
type Type struct {
	Datatype string
	IsBag    bool
}

func (t Type) String() string {
	if t.IsBag {
		return "bag<" + t.Datatype + ">"
	}
	return t.Datatype
}

// Value is the result of evaluating an expression: either a single
// AttributeValue or a *Bag.
type Value interface {
	Type() Type
}

// AttributeValue is an immutable value of a known datatype. Two values
// compare equal only if both datatype and canonical content are equal.
type AttributeValue interface {
	Value

	// Datatype returns the XACML datatype identifier of the value.
	Datatype() string

	// Lexical returns the canonical lexical representation of the value.
	Lexical() string

	// Equal reports whether other has the same datatype and canonical
	// content as the receiver.
	Equal(other AttributeValue) bool
}

// Comparable is implemented by values of totally ordered datatypes.
type Comparable interface {
	// Compare returns a negative, zero, or positive number depending on
	// whether the receiver sorts before, equal to, or after other.
	Compare(other AttributeValue) (int, error)
}

var parsers = map[string]func(string) (AttributeValue, error){
	TypeString:            parseString,
	TypeBoolean:           parseBoolean,
	TypeInteger:           parseInteger,
	TypeDouble:            parseDouble,
	TypeTime:              parseTime,
	TypeDate:              parseDate,
	TypeDateTime:          parseDateTime,
	TypeDayTimeDuration:   parseDayTimeDuration,
	TypeYearMonthDuration: parseYearMonthDuration,
	TypeAnyURI:            parseAnyURI,
	TypeHexBinary:         parseHexBinary,
	TypeBase64Binary:      parseBase64Binary,
	TypeRFC822Name:        parseRFC822Name,
	TypeX500Name:          parseX500Name,
	TypeIPAddress:         parseIPAddress,
	TypeDNSName:           parseDNSName,
}

// Supported reports whether datatype is one of the standard XACML datatypes.
func Supported(datatype string) bool {
	_, ok := parsers[datatype]
	return ok
}

// Datatypes returns the identifiers of all supported datatypes.
func Datatypes() []string {
	ids := make([]string, 0, len(parsers))
	for id := range parsers {
		ids = append(ids, id)
	}
	return ids
}

// Parse converts a lexical representation into an AttributeValue of the given
// datatype. A lexical form that violates the datatype's schema results in an
// error; callers surface this as a syntax-error status.
func Parse(datatype, lexical string) (AttributeValue, error) {
	parse, ok := parsers[datatype]
	if !ok {
		return nil, fmt.Errorf("unsupported datatype %q", datatype)
	}

	v, err := parse(lexical)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", datatype, lexical, err)
	}
	return v, nil
}

// Compare orders two values of the same datatype. It fails when the values
// have different datatypes or the datatype has no total order.
func Compare(a, b AttributeValue) (int, error) {
	if a.Datatype() != b.Datatype() {
		return 0, fmt.Errorf("cannot compare %s with %s", a.Datatype(), b.Datatype())
	}

	c, ok := a.(Comparable)
	if !ok {
		return 0, fmt.Errorf("datatype %s is not ordered", a.Datatype())
	}
	return c.Compare(b)
}
