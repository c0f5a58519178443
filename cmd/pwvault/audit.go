package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/forest6511/pwvault/pkg/vault"
)

var errAuditDisabled = errors.New("audit log is disabled (set audit.enabled in config)")

// Audit flags
var (
	auditLimit int
	auditSince string
	auditJSON  bool
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditVerifyCmd)

	auditListCmd.Flags().IntVar(&auditLimit, "limit", 100, "Maximum number of events to show")
	auditListCmd.Flags().StringVar(&auditSince, "since", "", "Show events since duration (e.g., 24h, 7d)")
	auditVerifyCmd.Flags().BoolVar(&auditJSON, "json", false, "Output the result as JSON")
}

// auditCmd is the parent command for audit operations
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log operations",
}

// auditListCmd lists audit log entries. The log is readable without the
// master password.
var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit log entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if auditLog == nil {
			return errAuditDisabled
		}

		var since time.Time
		if auditSince != "" {
			d, err := parseDuration(auditSince)
			if err != nil {
				return fmt.Errorf("invalid since format: %w", err)
			}
			since = time.Now().Add(-d)
		}

		events, err := auditLog.ListEvents(auditLimit, since)
		if err != nil {
			return fmt.Errorf("failed to list audit events: %w", err)
		}
		if len(events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No audit events found")
			return nil
		}

		for _, event := range events {
			// Format: TIMESTAMP OPERATION SOURCE RESULT [ENTRY]
			line := fmt.Sprintf("%s %s %s %s", event.Timestamp, event.Operation, event.Source, event.Result)
			if event.EntryHMAC != "" {
				entry := event.EntryHMAC
				if len(entry) > 16 {
					entry = entry[:16] + "..."
				}
				line += " entry:" + entry
			}
			if event.Error != nil {
				line += " error:" + event.Error.Code
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\nTotal: %d events\n", len(events))
		return nil
	},
}

// auditVerifyCmd verifies the HMAC chain. The chain key comes from the
// vault key, so the vault is opened first.
var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify audit log HMAC chain integrity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if auditLog == nil {
			return errAuditDisabled
		}

		return readVault(cmd, func(_ *vault.Vault) error {
			result, err := auditLog.Verify()
			if err != nil {
				return fmt.Errorf("failed to verify audit log: %w", err)
			}

			out := cmd.OutOrStdout()
			if auditJSON {
				return json.NewEncoder(out).Encode(result)
			}
			if result.Valid {
				fmt.Fprintf(out, "Audit log verified: %d records, chain intact\n", result.RecordsTotal)
				return nil
			}

			fmt.Fprintln(out, "Audit log verification FAILED")
			fmt.Fprintf(out, "  Records total: %d\n", result.RecordsTotal)
			fmt.Fprintf(out, "  Records verified: %d\n", result.RecordsVerified)
			fmt.Fprintln(out, "  Errors:")
			for _, e := range result.Errors {
				fmt.Fprintf(out, "    - %s\n", e)
			}
			return errors.New("audit log integrity check failed")
		})
	},
}
