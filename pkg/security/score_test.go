package security

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/forest6511/pwvault/pkg/vault"
)

func newTestVault(t *testing.T, secrets map[string]string) *vault.Vault {
	t.Helper()
	v, err := vault.New()
	if err != nil {
		t.Fatalf("vault.New() error = %v", err)
	}
	for title, secret := range secrets {
		if err := v.AddEntry(vault.NewEntryWith(title, "user", []byte(secret))); err != nil {
			t.Fatalf("AddEntry() error = %v", err)
		}
	}
	return v
}

func TestReport_EmptyVault(t *testing.T) {
	r, err := NewCalculator(newTestVault(t, nil), Unlimited()).Report()
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if r.Overall != 100 {
		t.Errorf("Overall = %d, want 100", r.Overall)
	}
	if len(r.Issues) != 0 || len(r.Suggestions) != 0 {
		t.Errorf("unexpected issues %v / suggestions %v", r.Issues, r.Suggestions)
	}
}

func TestReport_AllStrongUnique(t *testing.T) {
	v := newTestVault(t, map[string]string{
		"A": "aaaaaaaaaaaaaaaaaaaaaaaa",
		"B": "bbbbbbbbbbbbbbbbbbbbbbbb",
	})
	r, err := NewCalculator(v, Unlimited()).Report()
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if r.Overall != 100 {
		t.Errorf("Overall = %d, want 100", r.Overall)
	}
}

func TestReport_WeakAndReused(t *testing.T) {
	v := newTestVault(t, map[string]string{
		"Gmail":   "hunter2",
		"GitHub":  "hunter2",
		"Bank":    "hunter2",
		"Wiki":    "a-very-long-unique-password",
		"NoValue": "",
	})

	r, err := NewCalculator(v, Unlimited()).Report()
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}

	var weak, dup int
	for _, issue := range r.Issues {
		switch issue.Type {
		case IssueWeakPassword:
			weak++
		case IssueDuplicatePassword:
			dup++
			if len(issue.EntryIDs) != 3 {
				t.Errorf("duplicate group has %d entries, want 3", len(issue.EntryIDs))
			}
			if issue.Severity != SeverityCritical {
				t.Errorf("Severity = %v, want critical", issue.Severity)
			}
		}
	}
	if weak != 3 || dup != 1 {
		t.Errorf("weak = %d, dup = %d, want 3 and 1", weak, dup)
	}

	// 4 secrets, 2 distinct
	if r.Components.UniquenessScore != 25 {
		t.Errorf("UniquenessScore = %d, want 25", r.Components.UniquenessScore)
	}
	// (0+0+0+50)/4
	if r.Components.StrengthScore != 12 {
		t.Errorf("StrengthScore = %d, want 12", r.Components.StrengthScore)
	}
	if len(r.Suggestions) != 2 {
		t.Errorf("Suggestions = %v", r.Suggestions)
	}
}

func TestReport_NeverContainsSecrets(t *testing.T) {
	v := newTestVault(t, map[string]string{
		"A": "s3cr3t-value",
		"B": "s3cr3t-value",
	})
	r, err := NewCalculator(v, Unlimited()).Report()
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if strings.Contains(string(out), "s3cr3t") {
		t.Errorf("report leaks a secret: %s", out)
	}
}

func TestReport_Limits(t *testing.T) {
	v := newTestVault(t, map[string]string{
		"A": "short1",
		"B": "short2",
		"C": "short3",
	})
	r, err := NewCalculator(v, Limits{WeakLimit: 2}).Report()
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if !r.Limited {
		t.Error("Limited = false, want true")
	}
	if len(r.Issues) != 2 {
		t.Errorf("got %d issues, want 2", len(r.Issues))
	}
}

func TestFindDuplicates(t *testing.T) {
	entries := []*vault.Entry{
		vault.NewEntryWith("one", "", []byte("same")),
		vault.NewEntryWith("two", "", []byte("same")),
		vault.NewEntryWith("three", "", []byte("other")),
		vault.NewEntryWith("four", "", []byte("other")),
		vault.NewEntryWith("five", "", []byte("other")),
		vault.NewEntryWith("six", "", []byte("unique")),
		vault.NewEntryWith("empty1", "", nil),
		vault.NewEntryWith("empty2", "", nil),
	}

	groups, err := (&Calculator{}).FindDuplicates(entries)
	if err != nil {
		t.Fatalf("FindDuplicates() error = %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].Count != 3 || groups[1].Count != 2 {
		t.Errorf("counts = %d, %d, want 3, 2", groups[0].Count, groups[1].Count)
	}
	if groups[1].Titles[0] != "one" || groups[1].Titles[1] != "two" {
		t.Errorf("titles = %v", groups[1].Titles)
	}
}

func TestFindDuplicates_SessionKeyStable(t *testing.T) {
	c := &Calculator{}
	if _, err := c.FindDuplicates(nil); err != nil {
		t.Fatalf("FindDuplicates() error = %v", err)
	}
	first := append([]byte(nil), c.hmacKey...)
	if _, err := c.FindDuplicates(nil); err != nil {
		t.Fatalf("FindDuplicates() error = %v", err)
	}
	if string(first) != string(c.hmacKey) {
		t.Error("session key changed between calls")
	}
}
