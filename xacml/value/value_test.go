package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParse_RoundTrip checks that every datatype's canonical lexical form
// re-parses to an equal value.
func TestParse_RoundTrip(t *testing.T) {
	tests := map[string]struct {
		datatype string
		lexical  string
	}{
		"string":                      {TypeString, "hello world"},
		"boolean true":                {TypeBoolean, "true"},
		"boolean false":               {TypeBoolean, "false"},
		"integer":                     {TypeInteger, "42"},
		"integer negative":            {TypeInteger, "-7"},
		"integer beyond int64":        {TypeInteger, "123456789012345678901234567890"},
		"double":                      {TypeDouble, "2.5"},
		"double infinity":             {TypeDouble, "INF"},
		"time with offset":            {TypeTime, "10:30:00Z"},
		"time local":                  {TypeTime, "23:59:59"},
		"date":                        {TypeDate, "2024-05-01Z"},
		"dateTime":                    {TypeDateTime, "2024-05-01T10:30:00Z"},
		"dateTime with zone":          {TypeDateTime, "2024-05-01T10:30:00+02:00"},
		"dayTimeDuration":             {TypeDayTimeDuration, "P1DT2H30M"},
		"dayTimeDuration negative":    {TypeDayTimeDuration, "-PT90S"},
		"yearMonthDuration":           {TypeYearMonthDuration, "P1Y6M"},
		"anyURI":                      {TypeAnyURI, "https://example.com/resource"},
		"hexBinary":                   {TypeHexBinary, "0FB7"},
		"base64Binary":                {TypeBase64Binary, "aGVsbG8="},
		"rfc822Name":                  {TypeRFC822Name, "Alice.Smith@Example.COM"},
		"x500Name":                    {TypeX500Name, "cn=Alice, o=Example, c=AU"},
		"ipAddress":                   {TypeIPAddress, "10.0.0.1"},
		"ipAddress with mask and port": {TypeIPAddress, "10.0.0.1/255.255.255.0:80-90"},
		"dnsName":                     {TypeDNSName, "*.example.com:443"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			original, err := Parse(tc.datatype, tc.lexical)
			require.NoError(t, err)
			assert.Equal(t, tc.datatype, original.Datatype())

			reparsed, err := Parse(tc.datatype, original.Lexical())
			require.NoError(t, err)
			assert.True(t, original.Equal(reparsed), "round trip of %q via %q", tc.lexical, original.Lexical())
		})
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := map[string]struct {
		datatype string
		lexical  string
	}{
		"boolean":           {TypeBoolean, "yes"},
		"integer":           {TypeInteger, "12.5"},
		"double":            {TypeDouble, "abc"},
		"time":              {TypeTime, "25:00:00"},
		"date":              {TypeDate, "2024-13-01"},
		"dateTime":          {TypeDateTime, "yesterday"},
		"dayTimeDuration":   {TypeDayTimeDuration, "P"},
		"yearMonthDuration": {TypeYearMonthDuration, "P1D"},
		"hexBinary":         {TypeHexBinary, "0G"},
		"base64Binary":      {TypeBase64Binary, "!!!"},
		"rfc822Name":        {TypeRFC822Name, "no-at-sign"},
		"x500Name":          {TypeX500Name, "not-an-rdn"},
		"ipAddress":         {TypeIPAddress, "300.1.1.1"},
		"dnsName":           {TypeDNSName, "bad..name"},
		"unsupported type":  {"urn:example:custom", "x"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(tc.datatype, tc.lexical)
			assert.Error(t, err)
		})
	}
}

func TestEquality_DatatypeSpecificRules(t *testing.T) {
	mustParse := func(datatype, lexical string) AttributeValue {
		v, err := Parse(datatype, lexical)
		require.NoError(t, err)
		return v
	}

	t.Run("rfc822Name domain part is case-insensitive", func(t *testing.T) {
		assert.True(t, mustParse(TypeRFC822Name, "alice@Example.COM").
			Equal(mustParse(TypeRFC822Name, "alice@example.com")))
		assert.False(t, mustParse(TypeRFC822Name, "Alice@example.com").
			Equal(mustParse(TypeRFC822Name, "alice@example.com")))
	})

	t.Run("x500Name compares canonical RDNs", func(t *testing.T) {
		assert.True(t, mustParse(TypeX500Name, "CN=Alice,O=Example").
			Equal(mustParse(TypeX500Name, "cn=alice, o=example")))
		assert.False(t, mustParse(TypeX500Name, "cn=alice,o=example").
			Equal(mustParse(TypeX500Name, "cn=bob,o=example")))
	})

	t.Run("dateTime equality is instant based", func(t *testing.T) {
		assert.True(t, mustParse(TypeDateTime, "2024-05-01T12:00:00+02:00").
			Equal(mustParse(TypeDateTime, "2024-05-01T10:00:00Z")))
	})

	t.Run("values of different datatypes never compare equal", func(t *testing.T) {
		assert.False(t, mustParse(TypeString, "true").Equal(mustParse(TypeBoolean, "true")))
	})
}

func TestCompare(t *testing.T) {
	tests := map[string]struct {
		datatype string
		a, b     string
		expected int
	}{
		"integer less":    {TypeInteger, "3", "5", -1},
		"integer equal":   {TypeInteger, "5", "5", 0},
		"double greater":  {TypeDouble, "2.5", "1.5", 1},
		"string order":    {TypeString, "apple", "banana", -1},
		"time order":      {TypeTime, "09:00:00Z", "17:00:00Z", -1},
		"date order":      {TypeDate, "2024-06-01Z", "2024-05-01Z", 1},
		"dateTime across zones": {TypeDateTime, "2024-05-01T12:00:00+02:00", "2024-05-01T11:00:00Z", -1},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			a, err := Parse(tc.datatype, tc.a)
			require.NoError(t, err)
			b, err := Parse(tc.datatype, tc.b)
			require.NoError(t, err)

			got, err := Compare(a, b)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}

	t.Run("mismatched datatypes fail", func(t *testing.T) {
		a, _ := Parse(TypeInteger, "1")
		b, _ := Parse(TypeDouble, "1.0")
		_, err := Compare(a, b)
		assert.Error(t, err)
	})

	t.Run("unordered datatype fails", func(t *testing.T) {
		a, _ := Parse(TypeAnyURI, "https://a")
		b, _ := Parse(TypeAnyURI, "https://b")
		_, err := Compare(a, b)
		assert.Error(t, err)
	})
}

func TestBag(t *testing.T) {
	one, _ := Parse(TypeInteger, "1")
	two, _ := Parse(TypeInteger, "2")

	t.Run("preserves duplicates and datatype", func(t *testing.T) {
		bag, err := NewBag(TypeInteger, one, two, one)
		require.NoError(t, err)
		assert.Equal(t, 3, bag.Size())
		assert.Equal(t, TypeInteger, bag.Datatype())
		assert.True(t, bag.Contains(one))
	})

	t.Run("empty bag keeps its datatype", func(t *testing.T) {
		bag := EmptyBag(TypeString)
		assert.Equal(t, TypeString, bag.Datatype())
		assert.Equal(t, 0, bag.Size())
		assert.True(t, bag.Type().IsBag)
	})

	t.Run("rejects foreign datatypes", func(t *testing.T) {
		str, _ := Parse(TypeString, "x")
		_, err := NewBag(TypeInteger, str)
		assert.Error(t, err)
	})

	t.Run("single fails on non-singletons", func(t *testing.T) {
		bag, err := NewBag(TypeInteger, one, two)
		require.NoError(t, err)
		_, err = bag.Single()
		assert.Error(t, err)

		_, err = EmptyBag(TypeInteger).Single()
		assert.Error(t, err)
	})

	t.Run("merge rejects mismatched datatypes", func(t *testing.T) {
		a := EmptyBag(TypeInteger)
		b := EmptyBag(TypeString)
		_, err := a.Merge(b)
		assert.Error(t, err)
	})
}
