package phone

import (
	"regexp"
	"strings"
)

var (
	digitsOnly = regexp.MustCompile(`\D`)
	e164       = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)
	tenDigits  = regexp.MustCompile(`^\d{10}$`)
)

// Normalize converts a phone number to E.164. Bare 10-digit numbers are
// assumed to be Mexican and get +52 prepended.
// Example: "+52 55 1234 5678" -> "+525512345678".
func Normalize(raw string) string {
	normalized := strings.TrimSpace(raw)

	if !strings.HasPrefix(normalized, "+") {
		normalized = strings.TrimLeft(normalized, "0")
		if tenDigits.MatchString(digitsOnly.ReplaceAllString(normalized, "")) {
			normalized = "+52" + normalized
		} else {
			normalized = "+" + normalized
		}
	}

	return "+" + digitsOnly.ReplaceAllString(normalized, "")
}

// IsValid reports whether the number normalizes to E.164 shape.
func IsValid(raw string) bool {
	return e164.MatchString(Normalize(raw))
}
