package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/forest6511/pwvault/pkg/audit"
	"github.com/forest6511/pwvault/pkg/vault"
)

const testPassword = "testpassword123"

// testVaultFile saves a vault with a few entries and returns its path.
func testVaultFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), vault.FileName)

	v, err := vault.New()
	if err != nil {
		t.Fatalf("vault.New() error = %v", err)
	}
	entries := []*vault.Entry{
		vault.NewEntryFull("Gmail", "john@gmail.com", []byte("gmail-password-WXYZ"), "https://mail.google.com", "", "Email"),
		vault.NewEntryFull("GitHub", "octocat", []byte("ghp"), "https://github.com", "2FA enabled", "Development"),
		vault.NewEntryFull("Work mail", "john@corp.example", []byte("corp-pass"), "", "", "Email"),
	}
	for _, e := range entries {
		if err := v.AddEntry(e); err != nil {
			t.Fatalf("AddEntry() error = %v", err)
		}
	}
	if err := vault.NewStore(path).Save(v, []byte(testPassword)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return path
}

// testServer returns a server over a fresh in-memory vault file.
func testServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(&ServerOptions{
		VaultPath: testVaultFile(t),
		Password:  []byte(testPassword),
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func findID(t *testing.T, s *Server, title string) string {
	t.Helper()
	_, out, err := s.handleEntrySearch(context.Background(), nil, EntrySearchInput{Query: title})
	if err != nil {
		t.Fatalf("entry_search error = %v", err)
	}
	for _, e := range out.Entries {
		if e.Title == title {
			return e.ID
		}
	}
	t.Fatalf("entry %q not found", title)
	return ""
}

func TestNewServer_NoPassword(t *testing.T) {
	path := testVaultFile(t)
	t.Setenv(PasswordEnv, "")

	_, err := NewServer(&ServerOptions{VaultPath: path})
	if !errors.Is(err, ErrNoPassword) {
		t.Errorf("NewServer() error = %v, want ErrNoPassword", err)
	}
}

func TestNewServer_PasswordFromEnv(t *testing.T) {
	path := testVaultFile(t)
	t.Setenv(PasswordEnv, testPassword)

	s, err := NewServer(&ServerOptions{VaultPath: path})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	defer s.Close()

	if _, set := os.LookupEnv(PasswordEnv); set {
		t.Errorf("%s still set after NewServer", PasswordEnv)
	}
}

func TestNewServer_WrongPassword(t *testing.T) {
	_, err := NewServer(&ServerOptions{
		VaultPath: testVaultFile(t),
		Password:  []byte("wrongpassword"),
	})
	if !errors.Is(err, vault.ErrLoadFailed) {
		t.Errorf("NewServer() error = %v, want ErrLoadFailed", err)
	}
}

func TestNewServer_NoVault(t *testing.T) {
	_, err := NewServer(&ServerOptions{
		VaultPath: filepath.Join(t.TempDir(), vault.FileName),
		Password:  []byte(testPassword),
	})
	if err == nil {
		t.Error("expected error for missing vault")
	}
}

func TestNewServer_ZeroesPassword(t *testing.T) {
	password := []byte(testPassword)
	s, err := NewServer(&ServerOptions{VaultPath: testVaultFile(t), Password: password})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	defer s.Close()

	for i, b := range password {
		if b != 0 {
			t.Fatalf("password byte %d not zeroed", i)
		}
	}
}

func TestNewServer_Audit(t *testing.T) {
	auditLog := audit.NewLogger(t.TempDir())
	s, err := NewServer(&ServerOptions{
		VaultPath: testVaultFile(t),
		Password:  []byte(testPassword),
		Audit:     auditLog,
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	defer s.Close()

	events, err := auditLog.ListEvents(0, time.Time{})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 1 || events[0].Operation != audit.OpVaultLoad || events[0].Source != audit.SourceMCP {
		t.Errorf("events = %+v", events)
	}
}

func TestHandleEntrySearch(t *testing.T) {
	s := testServer(t)

	tests := []struct {
		name      string
		input     EntrySearchInput
		wantCount int
	}{
		{"all", EntrySearchInput{}, 3},
		{"by text", EntrySearchInput{Query: "gmail"}, 1},
		{"by category", EntrySearchInput{Category: "Email"}, 2},
		{"text and category", EntrySearchInput{Query: "john", Category: "Email"}, 2},
		{"category is exact", EntrySearchInput{Category: "email"}, 0},
		{"notes match", EntrySearchInput{Query: "2fa"}, 1},
		{"no match", EntrySearchInput{Query: "nothing"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := s.handleEntrySearch(context.Background(), nil, tt.input)
			if err != nil {
				t.Fatalf("entry_search error = %v", err)
			}
			if len(out.Entries) != tt.wantCount {
				t.Errorf("got %d entries, want %d", len(out.Entries), tt.wantCount)
			}
		})
	}
}

func TestHandleEntryCategories(t *testing.T) {
	s := testServer(t)

	_, out, err := s.handleEntryCategories(context.Background(), nil, EntryCategoriesInput{})
	if err != nil {
		t.Fatalf("entry_categories error = %v", err)
	}
	want := []string{"Development", "Email"}
	if len(out.Categories) != len(want) {
		t.Fatalf("Categories = %v, want %v", out.Categories, want)
	}
	for i := range want {
		if out.Categories[i] != want[i] {
			t.Errorf("Categories[%d] = %q, want %q", i, out.Categories[i], want[i])
		}
	}
}

func TestHandleEntryGetMasked(t *testing.T) {
	s := testServer(t)
	id := findID(t, s, "Gmail")

	_, out, err := s.handleEntryGetMasked(context.Background(), nil, EntryGetMaskedInput{ID: id})
	if err != nil {
		t.Fatalf("entry_get_masked error = %v", err)
	}
	if out.MaskedValue != "***************WXYZ" {
		t.Errorf("MaskedValue = %q", out.MaskedValue)
	}
	if out.ValueLength != 19 {
		t.Errorf("ValueLength = %d, want 19", out.ValueLength)
	}

	if _, _, err := s.handleEntryGetMasked(context.Background(), nil, EntryGetMaskedInput{}); err == nil {
		t.Error("expected error for empty id")
	}
	if _, _, err := s.handleEntryGetMasked(context.Background(), nil, EntryGetMaskedInput{ID: "missing"}); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestClose(t *testing.T) {
	s := testServer(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if _, _, err := s.handleEntrySearch(context.Background(), nil, EntrySearchInput{}); !errors.Is(err, errVaultClosed) {
		t.Errorf("entry_search after Close error = %v", err)
	}
	if _, _, err := s.handleEntryCategories(context.Background(), nil, EntryCategoriesInput{}); !errors.Is(err, errVaultClosed) {
		t.Errorf("entry_categories after Close error = %v", err)
	}
}
