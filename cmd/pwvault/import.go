package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forest6511/pwvault/pkg/audit"
	"github.com/forest6511/pwvault/pkg/importer"
	"github.com/forest6511/pwvault/pkg/vault"
)

// maxImportFileSize bounds export files read into memory.
const maxImportFileSize = 10 * 1024 * 1024

// Import command flags
var (
	importFormat string
	importDryRun bool
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importFormat, "format", "f", string(importer.SourceCSV),
		"Export format: "+strings.Join(importer.ValidSources(), ", "))
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Show what would be imported without changing the vault")
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import entries from another password manager",
	Long: `Import entries from a password manager export. Every row becomes a new
entry; existing entries are never modified.

Supported formats:
  lastpass   LastPass CSV (url,username,password,totp,extra,name,grouping,fav)
  1password  1Password CSV (Title,Website,Username,Password,...)
  bitwarden  Bitwarden unencrypted JSON
  csv        title,username,password,url,notes,category (header required)

Examples:
  pwvault import lastpass_export.csv --format lastpass
  pwvault import passwords.csv --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parser, err := importer.GetParser(importer.Source(importFormat))
		if err != nil {
			return err
		}

		data, err := readImportFile(args[0])
		if err != nil {
			return err
		}

		result, err := parser.Parse(data)
		if err != nil {
			return err
		}

		errOut := cmd.ErrOrStderr()
		for _, w := range result.Warnings {
			fmt.Fprintf(errOut, "Warning: %s\n", w)
		}
		for _, s := range result.Skipped {
			fmt.Fprintf(errOut, "Skipped row %d (%s): %s\n", s.Row, s.Title, s.Reason)
		}

		if importDryRun {
			for _, e := range result.Entries {
				fmt.Fprintf(cmd.OutOrStdout(), "Would import: %s\n", e)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d entries would be imported (%d skipped)\n", len(result.Entries), len(result.Skipped))
			return nil
		}
		if len(result.Entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to import")
			return nil
		}

		err = updateVault(cmd, func(v *vault.Vault) ([]entryEvent, error) {
			events := make([]entryEvent, 0, len(result.Entries))
			for _, e := range result.Entries {
				if err := v.AddEntry(e); err != nil {
					return nil, err
				}
				events = append(events, entryEvent{op: audit.OpEntryImport, id: e.ID()})
			}
			return events, nil
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries (%d skipped)\n", len(result.Entries), len(result.Skipped))
		return nil
	},
}

// readImportFile reads path, rejecting files over maxImportFileSize.
func readImportFile(path string) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImportFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	if len(data) > maxImportFileSize {
		return nil, fmt.Errorf("import file exceeds %d MB limit", maxImportFileSize/(1024*1024))
	}
	return data, nil
}
