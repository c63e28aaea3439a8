package function

import (
	"regexp"
	"strings"

	"github.com/CameronXie/xacml-engine/xacml/status"
	"github.com/CameronXie/xacml-engine/xacml/value"
)

func init() {
	strT := single(value.TypeString)
	boolT := single(value.TypeBoolean)
	intT := single(value.TypeInteger)
	dblT := single(value.TypeDouble)

	register(
		newFixed(xacml10+"string-normalize-space", strT,
			stringUnary(strings.TrimSpace), strT),
		newFixed(xacml10+"string-normalize-to-lower-case", strT,
			stringUnary(strings.ToLower), strT),
		newVariadic(xacml20+"string-concatenate", strT, stringConcatenate, strT, 2),

		// The needle comes first in the XACML string predicates: the
		// function tests whether the second string starts with, ends
		// with, or contains the first.
		newFixed(xacml30+"string-starts-with", boolT,
			stringBinaryPredicate(func(needle, s string) bool { return strings.HasPrefix(s, needle) }),
			strT, strT),
		newFixed(xacml30+"string-ends-with", boolT,
			stringBinaryPredicate(func(needle, s string) bool { return strings.HasSuffix(s, needle) }),
			strT, strT),
		newFixed(xacml30+"string-contains", boolT,
			stringBinaryPredicate(func(needle, s string) bool { return strings.Contains(s, needle) }),
			strT, strT),
		newFixed(xacml30+"string-substring", strT, stringSubstring, strT, intT, intT),

		newFixed(xacml30+"boolean-from-string", boolT, fromString(value.TypeBoolean), strT),
		newFixed(xacml30+"string-from-boolean", strT, lexicalOf, single(value.TypeBoolean)),
		newFixed(xacml30+"integer-from-string", intT, fromString(value.TypeInteger), strT),
		newFixed(xacml30+"string-from-integer", strT, lexicalOf, intT),
		newFixed(xacml30+"double-from-string", dblT, fromString(value.TypeDouble), strT),
		newFixed(xacml30+"string-from-double", strT, lexicalOf, dblT),
	)

	// regexp-match functions take the pattern first and match it anywhere
	// in the lexical form of the second argument.
	register(newFixed(xacml10+"string-regexp-match", boolT, regexpMatch, strT, strT))
	for short, datatype := range map[string]string{
		"anyURI":     value.TypeAnyURI,
		"ipAddress":  value.TypeIPAddress,
		"dnsName":    value.TypeDNSName,
		"rfc822Name": value.TypeRFC822Name,
		"x500Name":   value.TypeX500Name,
	} {
		register(newFixed(xacml20+short+"-regexp-match", boolT, regexpMatch, strT, single(datatype)))
	}
}

func stringUnary(op func(string) string) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		s, err := toString(args[0])
		if err != nil {
			return nil, err
		}
		return value.String(op(string(s))), nil
	}
}

func stringBinaryPredicate(op func(needle, s string) bool) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		needle, err := toString(args[0])
		if err != nil {
			return nil, err
		}
		s, err := toString(args[1])
		if err != nil {
			return nil, err
		}
		return value.Boolean(op(string(needle), string(s))), nil
	}
}

func stringConcatenate(args []value.Value) (value.Value, error) {
	var sb strings.Builder
	for _, arg := range args {
		s, err := toString(arg)
		if err != nil {
			return nil, err
		}
		sb.WriteString(string(s))
	}
	return value.String(sb.String()), nil
}

// stringSubstring returns the substring of its first argument between the
// begin index (inclusive) and end index (exclusive); an end index of -1
// means the end of the string. Out-of-range indexes are a processing error.
func stringSubstring(args []value.Value) (value.Value, error) {
	s, err := toString(args[0])
	if err != nil {
		return nil, err
	}
	begin, err := integerArgAt(args, 1)
	if err != nil {
		return nil, err
	}
	end, err := integerArgAt(args, 2)
	if err != nil {
		return nil, err
	}

	runes := []rune(string(s))
	if end == -1 {
		end = int64(len(runes))
	}
	if begin < 0 || end < begin || end > int64(len(runes)) {
		return nil, status.NewProcessingError(
			"substring range [%d, %d) out of bounds for string of length %d", begin, end, len(runes))
	}
	return value.String(string(runes[begin:end])), nil
}

func integerArgAt(args []value.Value, i int) (int64, error) {
	n, err := toInteger(args[i])
	if err != nil {
		return 0, err
	}
	return n.Int64()
}

func fromString(datatype string) func([]value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		s, err := toString(args[0])
		if err != nil {
			return nil, err
		}

		v, err := value.Parse(datatype, string(s))
		if err != nil {
			return nil, status.Wrap(err, status.CodeSyntaxError, "conversion from string failed")
		}
		return v, nil
	}
}

func lexicalOf(args []value.Value) (value.Value, error) {
	av, err := toAttributeValue(args[0])
	if err != nil {
		return nil, err
	}
	return value.String(av.Lexical()), nil
}

func regexpMatch(args []value.Value) (value.Value, error) {
	pattern, err := toString(args[0])
	if err != nil {
		return nil, err
	}
	av, err := toAttributeValue(args[1])
	if err != nil {
		return nil, err
	}

	re, err := regexp.Compile(string(pattern))
	if err != nil {
		return nil, status.Wrap(err, status.CodeProcessingError, "invalid regular expression %q", pattern)
	}
	return value.Boolean(re.MatchString(av.Lexical())), nil
}
