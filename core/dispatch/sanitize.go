package dispatch

import (
	"strings"
	"unicode"
)

// Caps applied to every text field before it is embedded in an alert.
const (
	NameCap        = 100
	TypeCap        = 50
	LocationCap    = 200
	DescriptionCap = 5000
)

// SanitizeText strips control characters, trims whitespace and cuts the
// result to max runes. Alert text crosses into URL schemes and messaging
// apps, so nothing unprintable may survive.
func SanitizeText(s string, max int) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) > max {
		return string(runes[:max])
	}
	return s
}

// DigitsOnly keeps the digit characters of a phone number.
func DigitsOnly(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidPhone accepts numbers carrying 6 to 15 digits once separators and
// country-code prefixes are stripped.
func ValidPhone(phone string) bool {
	n := len(DigitsOnly(phone))
	return n >= 6 && n <= 15
}

// MaskPhone hides all but the last four digits. Raw numbers never reach
// the audit log.
func MaskPhone(phone string) string {
	digits := DigitsOnly(phone)
	if len(digits) <= 4 {
		return strings.Repeat("*", len(digits))
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}
