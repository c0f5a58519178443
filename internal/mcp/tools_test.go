package mcp

import (
	"testing"
)

func TestMaskValue(t *testing.T) {
	tests := []struct {
		name     string
		value    []byte
		expected string
	}{
		{"empty value", []byte{}, ""},
		{"1 character", []byte("a"), "*"},
		{"4 characters", []byte("abcd"), "****"},
		{"5 characters", []byte("abcde"), "***de"},
		{"8 characters", []byte("abcdefgh"), "******gh"},
		{"9 characters", []byte("abcdefghi"), "*****fghi"},
		{"long value", []byte("sk-1234567890WXYZ"), "*************WXYZ"},
		{"multibyte counted as characters", []byte("パスワード"), "***ード"},
		{"multibyte short", []byte("日本"), "**"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskValue(tt.value); got != tt.expected {
				t.Errorf("maskValue(%q) = %q, want %q", tt.value, got, tt.expected)
			}
		})
	}
}
