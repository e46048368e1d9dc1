// Package recipients manages per-group recipient address lists:
// parsing operator input, validating addresses, and persisting the
// lists in Redis so they survive report re-uploads.
package recipients

import (
	"fmt"
	"regexp"
	"strings"
)

// emailPattern is deliberately loose: one @, no whitespace, and a dot in
// the domain. Full RFC 5322 validation rejects real addresses; delivery
// is the only true validator.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidAddress reports whether a single address passes the pattern.
func IsValidAddress(addr string) bool {
	return emailPattern.MatchString(strings.TrimSpace(addr))
}

// ValidationError lists the addresses that failed validation during a
// strict save. The whole edit is rejected; nothing is persisted.
type ValidationError struct {
	Invalid []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid recipient addresses: %s", strings.Join(e.Invalid, ", "))
}

// Parse splits a comma-separated recipient string and keeps only the
// valid addresses. Used when reading stored lists for dispatch, where
// a stray bad entry must not block the rest.
func Parse(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		addr := strings.TrimSpace(part)
		if addr == "" {
			continue
		}
		if emailPattern.MatchString(addr) {
			out = append(out, addr)
		}
	}
	return out
}

// Validate splits a comma-separated recipient string and rejects the
// whole input if any non-empty entry is invalid. Used on operator
// edits, where silently dropping an address would hide a typo.
func Validate(raw string) ([]string, error) {
	var valid, invalid []string
	for _, part := range strings.Split(raw, ",") {
		addr := strings.TrimSpace(part)
		if addr == "" {
			continue
		}
		if emailPattern.MatchString(addr) {
			valid = append(valid, addr)
		} else {
			invalid = append(invalid, addr)
		}
	}
	if len(invalid) > 0 {
		return nil, &ValidationError{Invalid: invalid}
	}
	return valid, nil
}

// Normalize renders an address list back to its canonical stored form.
func Normalize(addrs []string) string {
	return strings.Join(addrs, ", ")
}
