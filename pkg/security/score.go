package security

import (
	"fmt"

	"github.com/forest6511/pwvault/pkg/vault"
)

// Report is the security assessment of a vault's entry secrets.
type Report struct {
	// Overall is the total score (0-100).
	Overall int `json:"overall"`
	// Components breaks down the score.
	Components ScoreComponents `json:"components"`
	// Issues lists weak secrets and reuse groups.
	Issues []Issue `json:"issues"`
	// Suggestions provides actionable recommendations.
	Suggestions []string `json:"suggestions"`
	// Limited is set when Limits dropped some issues.
	Limited bool `json:"limited"`
}

// ScoreComponents contributes up to 50 points each.
type ScoreComponents struct {
	StrengthScore   int `json:"strength"`
	UniquenessScore int `json:"uniqueness"`
}

// IssueType identifies the type of security issue.
type IssueType string

const (
	IssueWeakPassword      IssueType = "weak"
	IssueDuplicatePassword IssueType = "duplicate"
)

// Severity indicates the urgency of a security issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// Issue is one finding. It names entries, never their secrets.
type Issue struct {
	Type        IssueType `json:"type"`
	Severity    Severity  `json:"severity"`
	EntryIDs    []string  `json:"entry_ids"`
	Titles      []string  `json:"titles"`
	Description string    `json:"description"`
}

// Calculator computes reports for a vault.
type Calculator struct {
	vault   *vault.Vault
	limits  Limits
	hmacKey []byte // session-local key for duplicate detection
}

// NewCalculator creates a calculator for v.
func NewCalculator(v *vault.Vault, limits Limits) *Calculator {
	return &Calculator{vault: v, limits: limits}
}

// Report scores every entry with a non-empty secret.
func (c *Calculator) Report() (*Report, error) {
	entries := c.vault.Entries()

	strengthScore, weak := c.strengthScore(entries)
	dups, err := c.FindDuplicates(entries)
	if err != nil {
		return nil, fmt.Errorf("security: failed to check reuse: %w", err)
	}
	uniquenessScore := uniquenessScore(entries, dups)

	issues := make([]Issue, 0, len(weak)+len(dups))
	issues = append(issues, weak...)
	for _, d := range dups {
		sev := SeverityWarning
		if d.Count > 2 {
			sev = SeverityCritical
		}
		issues = append(issues, Issue{
			Type:        IssueDuplicatePassword,
			Severity:    sev,
			EntryIDs:    d.EntryIDs,
			Titles:      d.Titles,
			Description: fmt.Sprintf("%d entries share the same password", d.Count),
		})
	}

	limited := false
	if c.limits.IsLimited() {
		issues, limited = c.applyLimits(issues)
	}

	return &Report{
		Overall: strengthScore + uniquenessScore,
		Components: ScoreComponents{
			StrengthScore:   strengthScore,
			UniquenessScore: uniquenessScore,
		},
		Issues:      issues,
		Suggestions: suggestions(issues),
		Limited:     limited,
	}, nil
}

// strengthScore averages strength points over entries with a secret.
func (c *Calculator) strengthScore(entries []*vault.Entry) (int, []Issue) {
	var issues []Issue
	total, counted := 0, 0

	for _, e := range entries {
		if e.SecretLen() == 0 {
			continue
		}
		secret := e.Secret()
		strength := Strength(secret)
		wipe(secret)

		counted++
		total += strength.Points()
		if strength == PasswordWeak {
			issues = append(issues, Issue{
				Type:        IssueWeakPassword,
				Severity:    SeverityWarning,
				EntryIDs:    []string{e.ID()},
				Titles:      []string{e.DisplayName()},
				Description: "Password is shorter than 8 characters",
			})
		}
	}

	// No secrets: full score
	if counted == 0 {
		return 50, issues
	}
	return total / counted, issues
}

// uniquenessScore scales the share of distinct secrets to 0-50.
func uniquenessScore(entries []*vault.Entry, dups []DuplicateGroup) int {
	total := 0
	for _, e := range entries {
		if e.SecretLen() > 0 {
			total++
		}
	}
	if total == 0 {
		return 50
	}

	unique := total
	for _, d := range dups {
		unique -= d.Count - 1
	}
	return unique * 50 / total
}

func (c *Calculator) applyLimits(issues []Issue) ([]Issue, bool) {
	limited := false
	weakCount, dupCount := 0, 0
	result := make([]Issue, 0, len(issues))

	for _, issue := range issues {
		switch issue.Type {
		case IssueWeakPassword:
			if c.limits.WeakLimit > 0 && weakCount >= c.limits.WeakLimit {
				limited = true
				continue
			}
			weakCount++
		case IssueDuplicatePassword:
			if c.limits.DuplicateLimit > 0 && dupCount >= c.limits.DuplicateLimit {
				limited = true
				continue
			}
			dupCount++
		}
		result = append(result, issue)
	}
	return result, limited
}

func suggestions(issues []Issue) []string {
	var hasWeak, hasDuplicate bool
	for _, issue := range issues {
		switch issue.Type {
		case IssueWeakPassword:
			hasWeak = true
		case IssueDuplicatePassword:
			hasDuplicate = true
		}
	}

	out := make([]string, 0, 2)
	if hasWeak {
		out = append(out, "Update weak passwords with stronger alternatives (14+ characters)")
	}
	if hasDuplicate {
		out = append(out, "Replace duplicate passwords with unique values")
	}
	return out
}
