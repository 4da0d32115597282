package dripsender

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone converts an Indonesian phone number to the digit-only,
// country-coded form the provider expects (628xxxxxxxxx). It is
// idempotent: already-normalized input passes through unchanged.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case digits == "":
		return ""
	case strings.HasPrefix(digits, "62"):
		return digits
	case strings.HasPrefix(digits, "0"):
		return "62" + digits[1:]
	default:
		return "62" + digits
	}
}

// StoragePhone is the +62 form participants are stored under.
func StoragePhone(raw string) string {
	n := NormalizePhone(raw)
	if n == "" {
		return ""
	}
	return "+" + n
}

// ReferralCode derives the shareable referral token from a phone number.
func ReferralCode(phone string) string {
	return NormalizePhone(phone)
}

// ValidatePhone rejects numbers that are not valid Indonesian mobiles.
func ValidatePhone(raw string) error {
	n := NormalizePhone(raw)
	if n == "" {
		return fmt.Errorf("missing phone number")
	}
	parsed, err := phonenumbers.Parse("+"+n, "ID")
	if err != nil {
		return fmt.Errorf("invalid phone number: %w", err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return fmt.Errorf("invalid Indonesian phone number")
	}
	return nil
}
