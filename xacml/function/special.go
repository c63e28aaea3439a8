package function

import (
	"github.com/CameronXie/xacml-engine/xacml/status"
	"github.com/CameronXie/xacml-engine/xacml/value"
)

func init() {
	boolT := single(value.TypeBoolean)

	register(
		newFixed(xacml10+"rfc822Name-match", boolT, rfc822NameMatch,
			single(value.TypeString), single(value.TypeRFC822Name)),
		newFixed(xacml10+"x500Name-match", boolT, x500NameMatch,
			single(value.TypeX500Name), single(value.TypeX500Name)),
	)
}

func rfc822NameMatch(args []value.Value) (value.Value, error) {
	pattern, err := toString(args[0])
	if err != nil {
		return nil, err
	}

	name, ok := args[1].(value.RFC822Name)
	if !ok {
		return nil, status.NewProcessingError("expected rfc822Name, got %s", args[1].Type())
	}
	return value.Boolean(name.MatchesPattern(string(pattern))), nil
}

func x500NameMatch(args []value.Value) (value.Value, error) {
	prefix, ok := args[0].(value.X500Name)
	if !ok {
		return nil, status.NewProcessingError("expected x500Name, got %s", args[0].Type())
	}
	name, ok := args[1].(value.X500Name)
	if !ok {
		return nil, status.NewProcessingError("expected x500Name, got %s", args[1].Type())
	}
	return value.Boolean(name.MatchesSuffix(prefix)), nil
}
