package services

import "strings"

// NormalizePhone reduces a user supplied number to its 10 digit national form.
// A leading country code or trunk zero is dropped.
func NormalizePhone(raw, countryCode string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case countryCode != "" && len(digits) == 10+len(countryCode) && strings.HasPrefix(digits, countryCode):
		digits = digits[len(countryCode):]
	case len(digits) == 11 && digits[0] == '0':
		digits = digits[1:]
	}

	if len(digits) != 10 {
		return "", false
	}
	return digits, true
}
