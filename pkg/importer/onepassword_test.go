package importer

import (
	"testing"

	"github.com/forest6511/pwvault/pkg/vault"
)

const onePasswordHeader = "Title,Website,Username,Password,OTPAuth,Favorite,Archived,Tags,Notes\n"

func TestOnePasswordParser_Parse(t *testing.T) {
	tests := []struct {
		name         string
		csvData      string
		wantEntries  int
		wantWarnings int
		wantSkipped  int
		wantError    bool
		checkFirst   func(t *testing.T, e *vault.Entry)
	}{
		{
			name:        "basic login",
			csvData:     onePasswordHeader + `GitHub,https://github.com,octocat,gh-pass,,false,false,"Development,Work",My code` + "\n",
			wantEntries: 1,
			checkFirst: func(t *testing.T, e *vault.Entry) {
				if e.Title() != "GitHub" {
					t.Errorf("Title() = %q", e.Title())
				}
				if e.Category() != "Development" {
					t.Errorf("Category() = %q, want first tag", e.Category())
				}
				if e.Notes() != "My code" {
					t.Errorf("Notes() = %q", e.Notes())
				}
				if !e.SecretEquals([]byte("gh-pass")) {
					t.Error("secret mismatch")
				}
			},
		},
		{
			name:         "OTP dropped with warning",
			csvData:      onePasswordHeader + "A,https://a.com,u,p,otpauth://totp/x,false,false,,\n",
			wantEntries:  1,
			wantWarnings: 1,
		},
		{
			name:         "archived imported with warning",
			csvData:      onePasswordHeader + "A,https://a.com,u,p,,false,true,,\n",
			wantEntries:  1,
			wantWarnings: 1,
		},
		{
			name:        "no tags uses default category",
			csvData:     onePasswordHeader + "A,https://a.com,u,p,,false,false,,\n",
			wantEntries: 1,
			checkFirst: func(t *testing.T, e *vault.Entry) {
				if e.Category() != vault.DefaultCategory {
					t.Errorf("Category() = %q", e.Category())
				}
			},
		},
		{
			name:        "empty row skipped",
			csvData:     onePasswordHeader + "A,https://a.com,,,,false,false,,\n",
			wantSkipped: 1,
		},
		{
			name:      "missing Title column",
			csvData:   "Website,Username\nhttps://a.com,u\n",
			wantError: true,
		},
	}

	p := &OnePasswordParser{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := p.Parse([]byte(tt.csvData))
			if tt.wantError {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(result.Entries) != tt.wantEntries {
				t.Errorf("got %d entries, want %d", len(result.Entries), tt.wantEntries)
			}
			if len(result.Warnings) != tt.wantWarnings {
				t.Errorf("got %d warnings, want %d: %v", len(result.Warnings), tt.wantWarnings, result.Warnings)
			}
			if len(result.Skipped) != tt.wantSkipped {
				t.Errorf("got %d skipped, want %d", len(result.Skipped), tt.wantSkipped)
			}
			if tt.checkFirst != nil && len(result.Entries) > 0 {
				tt.checkFirst(t, result.Entries[0])
			}
		})
	}
}
