package passgen

import (
	passwordvalidator "github.com/wagslane/go-password-validator"
)

// Strength labels.
const (
	StrengthWeak       = "weak"
	StrengthFair       = "fair"
	StrengthStrong     = "strong"
	StrengthVeryStrong = "very strong"
)

// Strength estimates the entropy of pw in bits and returns a label for it. Repeated
// characters and keyboard or alphabet runs count for less than random characters.
func Strength(pw string) (float64, string) {
	if pw == "" {
		return 0, StrengthWeak
	}

	bits := passwordvalidator.GetEntropy(pw)

	switch {
	case bits < 40:
		return bits, StrengthWeak
	case bits < 60:
		return bits, StrengthFair
	case bits < 90:
		return bits, StrengthStrong
	default:
		return bits, StrengthVeryStrong
	}
}
