package value

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// String is an xs:string value. Equality is codepoint equality.
type String string

func parseString(lexical string) (AttributeValue, error) { return String(lexical), nil }

func (s String) Datatype() string { return TypeString }
func (s String) Lexical() string  { return string(s) }
func (s String) Type() Type       { return Type{Datatype: TypeString} }

func (s String) Equal(other AttributeValue) bool {
	o, ok := other.(String)
	return ok && o == s
}

func (s String) Compare(other AttributeValue) (int, error) {
	o, ok := other.(String)
	if !ok {
		return 0, fmt.Errorf("cannot compare %s with string", other.Datatype())
	}
	return strings.Compare(string(s), string(o)), nil
}

// Boolean is an xs:boolean value.
type Boolean bool

func parseBoolean(lexical string) (AttributeValue, error) {
	switch lexical {
	case "true", "1":
		return Boolean(true), nil
	case "false", "0":
		return Boolean(false), nil
	default:
		return nil, fmt.Errorf("not a boolean")
	}
}

func (b Boolean) Datatype() string { return TypeBoolean }
func (b Boolean) Type() Type       { return Type{Datatype: TypeBoolean} }

func (b Boolean) Lexical() string {
	if b {
		return "true"
	}
	return "false"
}

func (b Boolean) Equal(other AttributeValue) bool {
	o, ok := other.(Boolean)
	return ok && o == b
}

// Integer is an xs:integer value with arbitrary precision.
type Integer struct {
	i *big.Int
}

// NewInteger builds an Integer from an int64.
func NewInteger(i int64) Integer { return Integer{i: big.NewInt(i)} }

// IntegerFromBig builds an Integer from a big.Int, copying the argument.
func IntegerFromBig(i *big.Int) Integer { return Integer{i: new(big.Int).Set(i)} }

func parseInteger(lexical string) (AttributeValue, error) {
	i, ok := new(big.Int).SetString(strings.TrimSpace(lexical), 10)
	if !ok {
		return nil, fmt.Errorf("not an integer")
	}
	return Integer{i: i}, nil
}

func (n Integer) Datatype() string { return TypeInteger }
func (n Integer) Type() Type       { return Type{Datatype: TypeInteger} }
func (n Integer) Lexical() string  { return n.i.String() }

// Big returns a copy of the underlying arbitrary-precision integer.
func (n Integer) Big() *big.Int { return new(big.Int).Set(n.i) }

// Int64 returns the value as an int64, failing when it does not fit.
func (n Integer) Int64() (int64, error) {
	if !n.i.IsInt64() {
		return 0, fmt.Errorf("integer %s overflows int64", n.i)
	}
	return n.i.Int64(), nil
}

func (n Integer) Equal(other AttributeValue) bool {
	o, ok := other.(Integer)
	return ok && n.i.Cmp(o.i) == 0
}

func (n Integer) Compare(other AttributeValue) (int, error) {
	o, ok := other.(Integer)
	if !ok {
		return 0, fmt.Errorf("cannot compare %s with integer", other.Datatype())
	}
	return n.i.Cmp(o.i), nil
}

// Double is an xs:double value with IEEE-754 semantics.
type Double float64

func parseDouble(lexical string) (AttributeValue, error) {
	switch lexical {
	case "INF":
		return Double(math.Inf(1)), nil
	case "-INF":
		return Double(math.Inf(-1)), nil
	case "NaN":
		return Double(math.NaN()), nil
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(lexical), 64)
	if err != nil {
		return nil, fmt.Errorf("not a double")
	}
	return Double(f), nil
}

func (d Double) Datatype() string { return TypeDouble }
func (d Double) Type() Type       { return Type{Datatype: TypeDouble} }

func (d Double) Lexical() string {
	f := float64(d)
	switch {
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	case math.IsNaN(f):
		return "NaN"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func (d Double) Equal(other AttributeValue) bool {
	o, ok := other.(Double)
	return ok && float64(o) == float64(d)
}

func (d Double) Compare(other AttributeValue) (int, error) {
	o, ok := other.(Double)
	if !ok {
		return 0, fmt.Errorf("cannot compare %s with double", other.Datatype())
	}

	switch {
	case float64(d) < float64(o):
		return -1, nil
	case float64(d) > float64(o):
		return 1, nil
	default:
		return 0, nil
	}
}

// AnyURI is an xs:anyURI value. Equality is lexical.
type AnyURI string

func parseAnyURI(lexical string) (AttributeValue, error) {
	trimmed := strings.TrimSpace(lexical)
	if strings.ContainsAny(trimmed, " \t\n") {
		return nil, fmt.Errorf("URI contains whitespace")
	}
	return AnyURI(trimmed), nil
}

func (u AnyURI) Datatype() string { return TypeAnyURI }
func (u AnyURI) Type() Type       { return Type{Datatype: TypeAnyURI} }
func (u AnyURI) Lexical() string  { return string(u) }

func (u AnyURI) Equal(other AttributeValue) bool {
	o, ok := other.(AnyURI)
	return ok && o == u
}
