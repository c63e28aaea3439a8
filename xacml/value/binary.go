package value

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// HexBinary is an xs:hexBinary value. Equality is byte-wise; the canonical
// lexical form uses upper-case digits.
type HexBinary []byte

func parseHexBinary(lexical string) (AttributeValue, error) {
	b, err := hex.DecodeString(strings.TrimSpace(lexical))
	if err != nil {
		return nil, fmt.Errorf("not hexBinary")
	}
	return HexBinary(b), nil
}

func (h HexBinary) Datatype() string { return TypeHexBinary }
func (h HexBinary) Type() Type       { return Type{Datatype: TypeHexBinary} }
func (h HexBinary) Lexical() string  { return strings.ToUpper(hex.EncodeToString(h)) }

// Bytes returns the decoded octets.
func (h HexBinary) Bytes() []byte { return h }

func (h HexBinary) Equal(other AttributeValue) bool {
	o, ok := other.(HexBinary)
	return ok && bytes.Equal(o, h)
}

// Base64Binary is an xs:base64Binary value. Equality is byte-wise.
type Base64Binary []byte

func parseBase64Binary(lexical string) (AttributeValue, error) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(lexical))
	if err != nil {
		return nil, fmt.Errorf("not base64Binary")
	}
	return Base64Binary(b), nil
}

func (b Base64Binary) Datatype() string { return TypeBase64Binary }
func (b Base64Binary) Type() Type       { return Type{Datatype: TypeBase64Binary} }
func (b Base64Binary) Lexical() string  { return base64.StdEncoding.EncodeToString(b) }

// Bytes returns the decoded octets.
func (b Base64Binary) Bytes() []byte { return b }

func (b Base64Binary) Equal(other AttributeValue) bool {
	o, ok := other.(Base64Binary)
	return ok && bytes.Equal(o, b)
}
