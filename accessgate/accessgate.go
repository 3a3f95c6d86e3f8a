// Package accessgate evaluates a client IP against an ordered rule list,
// grounded on spec.md §4.4 and the original zimg implementation's
// zimg_access_inet (original_source/src/zhttpd.c). No CIDR/IP-range
// library exists anywhere in the retrieved example pack, so this is built
// directly on the standard library net package (see DESIGN.md).
package accessgate

import (
	"fmt"
	"net"
	"strings"
)

// Verdict is the result of evaluating a rule list against a client IP.
type Verdict int

const (
	// ALLOW permits the request.
	ALLOW Verdict = iota
	// FORBIDDEN denies the request; the dispatcher answers 403.
	FORBIDDEN
	// ERROR signals a malformed rule or evaluation failure; the
	// dispatcher treats this as a 500-class failure, never a denial.
	ERROR
)

func (v Verdict) String() string {
	switch v {
	case ALLOW:
		return "ALLOW"
	case FORBIDDEN:
		return "FORBIDDEN"
	default:
		return "ERROR"
	}
}

// Rule is one line of an access rule list: either a single IPv4 address or
// a CIDR block, paired with the verdict it produces on match.
type Rule struct {
	Net    *net.IPNet
	Allow  bool
	Source string // the original rule text, for error reporting
}

// Gate holds an ordered rule list. Rules are evaluated in order; the first
// match decides (spec.md §4.4). No match at all is treated as ALLOW,
// mirroring the original's default-permit posture when a rule file is
// empty or absent.
type Gate struct {
	rules []Rule
}

// New builds a Gate from an ordered list of rule lines, each of the form
// "allow <cidr-or-ip>" or "deny <cidr-or-ip>".
func New(lines []string) (*Gate, error) {
	g := &Gate{}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("accessgate: malformed rule %q", line)
		}
		var allow bool
		switch strings.ToLower(fields[0]) {
		case "allow":
			allow = true
		case "deny":
			allow = false
		default:
			return nil, fmt.Errorf("accessgate: unknown verb in rule %q", line)
		}
		ipnet, err := parseRuleTarget(fields[1])
		if err != nil {
			return nil, fmt.Errorf("accessgate: rule %q: %w", line, err)
		}
		g.rules = append(g.rules, Rule{Net: ipnet, Allow: allow, Source: line})
	}
	return g, nil
}

func parseRuleTarget(s string) (*net.IPNet, error) {
	if strings.Contains(s, "/") {
		_, ipnet, err := net.ParseCIDR(s)
		return ipnet, err
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("invalid IP address %q", s)
	}
	bits := 32
	if ip.To4() == nil {
		bits = 128
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
}

// Evaluate decides the verdict for clientIP. An unparsable clientIP yields
// ERROR, never FORBIDDEN, per spec.md §4.4.
func (g *Gate) Evaluate(clientIP string) Verdict {
	if g == nil {
		return ALLOW
	}
	host := clientIP
	if h, _, err := net.SplitHostPort(clientIP); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return ERROR
	}
	for _, r := range g.rules {
		if r.Net.Contains(ip) {
			if r.Allow {
				return ALLOW
			}
			return FORBIDDEN
		}
	}
	return ALLOW
}
