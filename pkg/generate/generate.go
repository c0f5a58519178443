// Package generate produces cryptographically random passwords.
package generate

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Character sets.
const (
	CharsetLowercase = "abcdefghijklmnopqrstuvwxyz"
	CharsetUppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	CharsetDigits    = "0123456789"
	CharsetSymbols   = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

// Bounds.
const (
	MinLength        = 8
	MaxLength        = 256
	DefaultLength    = 24
	MaxCount         = 100
	maxExcludeLength = 256
)

// ErrEmptyCharset means the options leave no characters to draw from.
var ErrEmptyCharset = errors.New("generate: character set is empty: adjust options to include at least one character type")

// Options selects character classes and length.
type Options struct {
	Length    int
	Lowercase bool
	Uppercase bool
	Digits    bool
	Symbols   bool
	Exclude   string // characters never emitted
}

// DefaultOptions returns every class at DefaultLength.
func DefaultOptions() Options {
	return Options{
		Length:    DefaultLength,
		Lowercase: true,
		Uppercase: true,
		Digits:    true,
		Symbols:   true,
	}
}

// Validate checks the length and exclusion bounds.
func (o Options) Validate() error {
	if o.Length < MinLength {
		return fmt.Errorf("generate: password length must be at least %d characters", MinLength)
	}
	if o.Length > MaxLength {
		return fmt.Errorf("generate: password length must be at most %d characters", MaxLength)
	}
	if len(o.Exclude) > maxExcludeLength {
		return fmt.Errorf("generate: exclude string must be at most %d characters", maxExcludeLength)
	}
	return nil
}

// Charset returns the characters the options allow.
func (o Options) Charset() (string, error) {
	var charset strings.Builder
	if o.Lowercase {
		charset.WriteString(CharsetLowercase)
	}
	if o.Uppercase {
		charset.WriteString(CharsetUppercase)
	}
	if o.Digits {
		charset.WriteString(CharsetDigits)
	}
	if o.Symbols {
		charset.WriteString(CharsetSymbols)
	}

	result := charset.String()
	if o.Exclude != "" {
		result = removeChars(result, o.Exclude)
	}
	if result == "" {
		return "", ErrEmptyCharset
	}
	return result, nil
}

// Password returns a new random password. The caller owns the slice and
// should wipe it once stored.
func Password(opts Options) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	charset, err := opts.Charset()
	if err != nil {
		return nil, err
	}

	n := big.NewInt(int64(len(charset)))
	password := make([]byte, opts.Length)
	for i := range password {
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			return nil, fmt.Errorf("generate: failed to generate random number: %w", err)
		}
		password[i] = charset[idx.Int64()]
	}
	return password, nil
}

func removeChars(s, chars string) string {
	exclude := make(map[rune]bool, len(chars))
	for _, c := range chars {
		exclude[c] = true
	}

	var result strings.Builder
	for _, c := range s {
		if !exclude[c] {
			result.WriteRune(c)
		}
	}
	return result.String()
}
