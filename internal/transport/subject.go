package transport

import (
	"fmt"
	"regexp"
	"strings"
)

// segmentPattern validates one subject segment: lowercase letters,
// digits, and underscores only (spec §6's subject grammar).
var segmentPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// EventSubject builds the canonical subject for a domain event:
// events.domain.<domain>.<aggregate>.<kind>.
func EventSubject(domain, aggregate, kind string) (string, error) {
	for _, seg := range []string{domain, aggregate, kind} {
		if !segmentPattern.MatchString(seg) {
			return "", fmt.Errorf("transport: invalid subject segment %q: must match [a-z0-9_]+", seg)
		}
	}
	return fmt.Sprintf("events.domain.%s.%s.%s", domain, aggregate, kind), nil
}

// MatchSubject reports whether subject satisfies pattern, where pattern
// may use "*" to match exactly one dotted segment and ">" to match the
// remaining tail of one or more segments (NATS wildcard semantics, reused
// verbatim by spec §4.3).
func MatchSubject(pattern, subject string) bool {
	pSegs := strings.Split(pattern, ".")
	sSegs := strings.Split(subject, ".")

	for i, p := range pSegs {
		if p == ">" {
			return i < len(sSegs)
		}
		if i >= len(sSegs) {
			return false
		}
		if p != "*" && p != sSegs[i] {
			return false
		}
	}
	return len(pSegs) == len(sSegs)
}
