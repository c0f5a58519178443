package security

import "testing"

func TestLimits(t *testing.T) {
	tests := []struct {
		name    string
		limits  Limits
		limited bool
	}{
		{"default", DefaultLimits(), true},
		{"unlimited", Unlimited(), false},
		{"weak_only", Limits{WeakLimit: 1}, true},
		{"duplicate_only", Limits{DuplicateLimit: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.limits.IsLimited(); got != tt.limited {
				t.Errorf("IsLimited() = %v, want %v", got, tt.limited)
			}
		})
	}
}
