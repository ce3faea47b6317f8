// Package cnpj validates and formats Brazilian tax identifiers (CNPJ)
// and postal codes (CEP). All functions are pure.
package cnpj

import (
	"strings"
)

// Normalize strips every non-digit character from raw.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValid reports whether digits is a valid 14-digit CNPJ: correct
// length, not a repeated-digit string, and both mod-11 check digits
// match.
func IsValid(digits string) bool {
	if len(digits) != 14 || !allDigits(digits) {
		return false
	}
	if repeated(digits) {
		return false
	}
	if checkDigit(digits[:12]) != int(digits[12]-'0') {
		return false
	}
	return checkDigit(digits[:13]) == int(digits[13]-'0')
}

// checkDigit computes the mod-11 check digit over a 12 or 13 digit
// prefix. Weights descend from len(prefix)-7 and wrap back to 9 when
// they fall below 2.
func checkDigit(prefix string) int {
	weight := len(prefix) - 7
	sum := 0
	for i := 0; i < len(prefix); i++ {
		sum += int(prefix[i]-'0') * weight
		weight--
		if weight < 2 {
			weight = 9
		}
	}
	rem := sum % 11
	if rem < 2 {
		return 0
	}
	return 11 - rem
}

// IsValidCEP reports whether digits is an 8-digit postal code.
func IsValidCEP(digits string) bool {
	return len(digits) == 8 && allDigits(digits)
}

// Format renders a 14-digit CNPJ as XX.XXX.XXX/XXXX-XX. Input of any
// other length is returned unchanged.
func Format(digits string) string {
	if len(digits) != 14 {
		return digits
	}
	return digits[0:2] + "." + digits[2:5] + "." + digits[5:8] + "/" + digits[8:12] + "-" + digits[12:14]
}

// FormatCEP renders an 8-digit CEP as XXXXX-XXX. Input of any other
// length is returned unchanged.
func FormatCEP(digits string) string {
	if len(digits) != 8 {
		return digits
	}
	return digits[0:5] + "-" + digits[5:8]
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func repeated(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}
