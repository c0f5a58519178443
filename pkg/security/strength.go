// Package security rates password strength and reports weak or reused
// entry secrets.
package security

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// PasswordStrength represents the strength level of a password.
type PasswordStrength int

const (
	// PasswordWeak indicates an insecure password (fewer than 8 characters).
	PasswordWeak PasswordStrength = iota
	// PasswordFair indicates a minimally acceptable password.
	PasswordFair
	// PasswordGood indicates a good password.
	PasswordGood
	// PasswordStrong indicates a strong password.
	PasswordStrong
)

// Master password bounds.
const (
	MinMasterPasswordLength = 8
	MaxMasterPasswordLength = 128
)

// String returns a human-readable representation of the password strength.
func (s PasswordStrength) String() string {
	switch s {
	case PasswordWeak:
		return "Weak"
	case PasswordFair:
		return "Fair"
	case PasswordGood:
		return "Good"
	case PasswordStrong:
		return "Strong"
	default:
		return "Unknown"
	}
}

// Points returns the score points for this strength level.
// Used in the strength component: Weak=0, Fair=20, Good=35, Strong=50.
func (s PasswordStrength) Points() int {
	switch s {
	case PasswordFair:
		return 20
	case PasswordGood:
		return 35
	case PasswordStrong:
		return 50
	default:
		return 0
	}
}

// Strength rates a secret by length in characters. Composition rules are
// not applied (NIST SP 800-63B).
func Strength(secret []byte) PasswordStrength {
	length := utf8.RuneCount(secret)

	switch {
	case length >= 20:
		return PasswordStrong
	case length >= 14:
		return PasswordGood
	case length >= 8:
		return PasswordFair
	default:
		return PasswordWeak
	}
}

// MasterPasswordResult is the outcome of CheckMasterPassword.
type MasterPasswordResult struct {
	Valid    bool             // meets the hard length bounds
	Strength PasswordStrength // estimated strength
	Warnings []string         // suggestions, not errors
}

// CheckMasterPassword validates a new master password. Length bounds are
// hard requirements; character variety only produces warnings.
func CheckMasterPassword(password []byte) *MasterPasswordResult {
	result := &MasterPasswordResult{Valid: true}
	length := utf8.RuneCount(password)

	if length < MinMasterPasswordLength {
		result.Strength = PasswordWeak
		result.Valid = false
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Password must be at least %d characters", MinMasterPasswordLength))
		return result
	}
	if length > MaxMasterPasswordLength {
		result.Strength = PasswordWeak
		result.Valid = false
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Password must be at most %d characters", MaxMasterPasswordLength))
		return result
	}

	classes := characterClasses(password)
	if classes < 2 {
		result.Warnings = append(result.Warnings,
			"Consider using a mix of uppercase, lowercase, numbers, and symbols")
	}
	if length < 12 {
		result.Warnings = append(result.Warnings,
			"Longer passwords (12+ characters) are more secure")
	}

	switch {
	case classes >= 3 && length >= 16:
		result.Strength = PasswordStrong
	case classes >= 2 && length >= 12:
		result.Strength = PasswordGood
	default:
		result.Strength = PasswordFair
	}
	return result
}

func characterClasses(password []byte) int {
	var upper, lower, digit, other bool
	for len(password) > 0 {
		r, size := utf8.DecodeRune(password)
		password = password[size:]
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsSpace(r):
			other = true
		}
	}

	n := 0
	for _, ok := range []bool{upper, lower, digit, other} {
		if ok {
			n++
		}
	}
	return n
}
