package value

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// RFC822Name is an e-mail style name. The local part is case-sensitive, the
// domain part is not.
type RFC822Name struct {
	local  string
	domain string
}

func parseRFC822Name(lexical string) (AttributeValue, error) {
	at := strings.LastIndex(lexical, "@")
	if at <= 0 || at == len(lexical)-1 {
		return nil, fmt.Errorf("not an rfc822Name")
	}
	return RFC822Name{local: lexical[:at], domain: lexical[at+1:]}, nil
}

func (n RFC822Name) Datatype() string { return TypeRFC822Name }
func (n RFC822Name) Type() Type       { return Type{Datatype: TypeRFC822Name} }
func (n RFC822Name) Lexical() string  { return n.local + "@" + n.domain }

// Local returns the case-sensitive local part.
func (n RFC822Name) Local() string { return n.local }

// Domain returns the domain part as written.
func (n RFC822Name) Domain() string { return n.domain }

func (n RFC822Name) Equal(other AttributeValue) bool {
	o, ok := other.(RFC822Name)
	return ok && o.local == n.local && strings.EqualFold(o.domain, n.domain)
}

// MatchesPattern implements the rfc822Name-match semantics: the pattern is
// either a full name, a domain ("example.com" matching any name in exactly
// that domain), or a subdomain pattern (".example.com" matching any name in
// that domain or one of its subdomains).
func (n RFC822Name) MatchesPattern(pattern string) bool {
	if at := strings.LastIndex(pattern, "@"); at > 0 {
		local, domain := pattern[:at], pattern[at+1:]
		return local == n.local && strings.EqualFold(domain, n.domain)
	}

	if strings.HasPrefix(pattern, ".") {
		lower := strings.ToLower(n.domain)
		suffix := strings.ToLower(pattern)
		return strings.HasSuffix("."+lower, suffix)
	}
	return strings.EqualFold(pattern, n.domain)
}

// X500Name is a distinguished name. Equality compares the canonicalised RDN
// sequence (lower-cased attribute types, trimmed components, case-insensitive
// values).
type X500Name struct {
	original string
	rdns     []string
}

func parseX500Name(lexical string) (AttributeValue, error) {
	trimmed := strings.TrimSpace(lexical)
	if trimmed == "" {
		return nil, fmt.Errorf("empty x500Name")
	}

	parts := strings.Split(trimmed, ",")
	rdns := make([]string, 0, len(parts))
	for _, part := range parts {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("not an x500Name RDN: %q", part)
		}

		typ := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.ToLower(strings.TrimSpace(kv[1]))
		if typ == "" || val == "" {
			return nil, fmt.Errorf("not an x500Name RDN: %q", part)
		}
		rdns = append(rdns, typ+"="+val)
	}
	return X500Name{original: trimmed, rdns: rdns}, nil
}

func (n X500Name) Datatype() string { return TypeX500Name }
func (n X500Name) Type() Type       { return Type{Datatype: TypeX500Name} }
func (n X500Name) Lexical() string  { return n.original }

func (n X500Name) Equal(other AttributeValue) bool {
	o, ok := other.(X500Name)
	if !ok || len(o.rdns) != len(n.rdns) {
		return false
	}
	for i := range n.rdns {
		if o.rdns[i] != n.rdns[i] {
			return false
		}
	}
	return true
}

// MatchesSuffix implements the x500Name-match semantics: it reports whether
// the receiver's RDN sequence ends with the candidate's sequence.
func (n X500Name) MatchesSuffix(candidate X500Name) bool {
	if len(candidate.rdns) > len(n.rdns) {
		return false
	}
	offset := len(n.rdns) - len(candidate.rdns)
	for i, rdn := range candidate.rdns {
		if n.rdns[offset+i] != rdn {
			return false
		}
	}
	return true
}

// PortRange is the optional port qualifier of ipAddress and dnsName values.
// Either bound may be open.
type PortRange struct {
	low, high       int
	hasLow, hasHigh bool
}

func parsePortRange(lexical string) (PortRange, error) {
	if lexical == "" {
		return PortRange{}, nil
	}

	dash := strings.Index(lexical, "-")
	if dash < 0 {
		port, err := strconv.Atoi(lexical)
		if err != nil {
			return PortRange{}, fmt.Errorf("invalid port %q", lexical)
		}
		return PortRange{low: port, high: port, hasLow: true, hasHigh: true}, nil
	}

	var pr PortRange
	if left := lexical[:dash]; left != "" {
		port, err := strconv.Atoi(left)
		if err != nil {
			return PortRange{}, fmt.Errorf("invalid port %q", left)
		}
		pr.low, pr.hasLow = port, true
	}
	if right := lexical[dash+1:]; right != "" {
		port, err := strconv.Atoi(right)
		if err != nil {
			return PortRange{}, fmt.Errorf("invalid port %q", right)
		}
		pr.high, pr.hasHigh = port, true
	}
	if !pr.hasLow && !pr.hasHigh {
		return PortRange{}, fmt.Errorf("empty port range")
	}
	return pr, nil
}

func (p PortRange) lexical() string {
	switch {
	case !p.hasLow && !p.hasHigh:
		return ""
	case p.hasLow && p.hasHigh && p.low == p.high:
		return strconv.Itoa(p.low)
	}

	var sb strings.Builder
	if p.hasLow {
		sb.WriteString(strconv.Itoa(p.low))
	}
	sb.WriteByte('-')
	if p.hasHigh {
		sb.WriteString(strconv.Itoa(p.high))
	}
	return sb.String()
}

// IsUnbound reports whether the range places no constraint on ports.
func (p PortRange) IsUnbound() bool { return !p.hasLow && !p.hasHigh }

// IPAddress is an ipAddress value: an address, an optional mask, and an
// optional port range.
type IPAddress struct {
	addr      netip.Addr
	mask      netip.Addr
	hasMask   bool
	portRange PortRange
}

func parseIPAddress(lexical string) (AttributeValue, error) {
	rest := lexical

	// IPv6 addresses are bracketed so the port separator is unambiguous.
	var addrPart string
	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return nil, fmt.Errorf("unterminated IPv6 address")
		}
		addrPart, rest = rest[1:end], rest[end+1:]
	} else {
		cut := strings.IndexAny(rest, "/:")
		if cut < 0 {
			addrPart, rest = rest, ""
		} else {
			addrPart, rest = rest[:cut], rest[cut:]
		}
	}

	addr, err := netip.ParseAddr(addrPart)
	if err != nil {
		return nil, fmt.Errorf("not an ipAddress")
	}

	v := IPAddress{addr: addr}
	if strings.HasPrefix(rest, "/") {
		maskPart := rest[1:]
		if cut := strings.Index(maskPart, ":"); cut >= 0 {
			maskPart, rest = maskPart[:cut], maskPart[cut:]
		} else {
			rest = ""
		}

		mask, err := netip.ParseAddr(maskPart)
		if err != nil {
			return nil, fmt.Errorf("invalid address mask %q", maskPart)
		}
		v.mask, v.hasMask = mask, true
	}

	if strings.HasPrefix(rest, ":") {
		pr, err := parsePortRange(rest[1:])
		if err != nil {
			return nil, err
		}
		v.portRange = pr
	}
	return v, nil
}

func (a IPAddress) Datatype() string { return TypeIPAddress }
func (a IPAddress) Type() Type       { return Type{Datatype: TypeIPAddress} }

func (a IPAddress) Lexical() string {
	var sb strings.Builder
	if a.addr.Is6() {
		sb.WriteString("[" + a.addr.String() + "]")
	} else {
		sb.WriteString(a.addr.String())
	}
	if a.hasMask {
		sb.WriteString("/" + a.mask.String())
	}
	if pr := a.portRange.lexical(); pr != "" {
		sb.WriteString(":" + pr)
	}
	return sb.String()
}

func (a IPAddress) Equal(other AttributeValue) bool {
	o, ok := other.(IPAddress)
	return ok && o.addr == a.addr && o.hasMask == a.hasMask && o.mask == a.mask &&
		o.portRange == a.portRange
}

// DNSName is a dnsName value: a hostname, optionally with a leading
// "*." wildcard, and an optional port range.
type DNSName struct {
	host      string
	portRange PortRange
}

func parseDNSName(lexical string) (AttributeValue, error) {
	host := lexical
	var pr PortRange
	if cut := strings.Index(lexical, ":"); cut >= 0 {
		var err error
		if pr, err = parsePortRange(lexical[cut+1:]); err != nil {
			return nil, err
		}
		host = lexical[:cut]
	}

	if host == "" {
		return nil, fmt.Errorf("empty dnsName")
	}
	for _, label := range strings.Split(strings.TrimPrefix(host, "*."), ".") {
		if label == "" {
			return nil, fmt.Errorf("not a dnsName")
		}
	}
	return DNSName{host: host, portRange: pr}, nil
}

func (n DNSName) Datatype() string { return TypeDNSName }
func (n DNSName) Type() Type       { return Type{Datatype: TypeDNSName} }

func (n DNSName) Lexical() string {
	if pr := n.portRange.lexical(); pr != "" {
		return n.host + ":" + pr
	}
	return n.host
}

func (n DNSName) Equal(other AttributeValue) bool {
	o, ok := other.(DNSName)
	return ok && strings.EqualFold(o.host, n.host) && o.portRange == n.portRange
}
