package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forest6511/pwvault/pkg/security"
	"github.com/forest6511/pwvault/pkg/vault"
)

// Check command flags
var (
	checkAll  bool
	checkJSON bool
)

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVarP(&checkAll, "all", "a", false, "List every issue instead of the first few")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output in JSON format")
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report weak and reused passwords",
	Long: `Analyze entry passwords and report weak or reused ones. Passwords are
never printed.

The score is calculated from:
  - Strength (0-50): average length-based strength of entry passwords
  - Uniqueness (0-50): share of distinct passwords`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limits := security.DefaultLimits()
		if checkAll {
			limits = security.Unlimited()
		}

		return readVault(cmd, func(v *vault.Vault) error {
			report, err := security.NewCalculator(v, limits).Report()
			if err != nil {
				return err
			}
			if checkJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		})
	},
}

func printReport(w io.Writer, r *security.Report) {
	fmt.Fprintf(w, "Security score: %d/100\n", r.Overall)
	fmt.Fprintf(w, "  Strength:   %s %d/50\n", progressBar(r.Components.StrengthScore, 50), r.Components.StrengthScore)
	fmt.Fprintf(w, "  Uniqueness: %s %d/50\n", progressBar(r.Components.UniquenessScore, 50), r.Components.UniquenessScore)

	if len(r.Issues) == 0 {
		fmt.Fprintln(w, "\nNo issues found")
		return
	}

	fmt.Fprintln(w, "\nIssues:")
	for _, issue := range r.Issues {
		fmt.Fprintf(w, "  [%s] %s: %s\n", issue.Severity, issue.Description, strings.Join(issue.Titles, ", "))
	}
	if r.Limited {
		fmt.Fprintln(w, "  ... more issues hidden (use --all)")
	}

	fmt.Fprintln(w, "\nSuggestions:")
	for _, s := range r.Suggestions {
		fmt.Fprintf(w, "  - %s\n", s)
	}
}

// progressBar renders value/maxVal as a 10-cell bar.
func progressBar(value, maxVal int) string {
	filled := 0
	if maxVal > 0 {
		filled = min(max(value*10/maxVal, 0), 10)
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", 10-filled) + "]"
}
