package identity

import (
	"errors"
	"strings"
	"unicode"
)

// ErrShortPhone is returned for input with fewer than ten digits.
var ErrShortPhone = errors.New("phone number must contain at least 10 digits")

// NormalizePhone canonicalizes a phone number the way the storefront does:
// keep the digits, require at least ten, and use the last ten.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 10 {
		return "", ErrShortPhone
	}
	return digits[len(digits)-10:], nil
}

// ValidatePhone is a form validator around NormalizePhone.
func ValidatePhone(raw string) error {
	_, err := NormalizePhone(raw)
	return err
}
