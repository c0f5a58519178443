package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Flags for restore and destroy
var (
	restoreForce bool
	destroyForce bool
)

func init() {
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(destroyCmd)

	restoreCmd.Flags().BoolVarP(&restoreForce, "force", "f", false, "Overwrite the current vault without confirmation")
	destroyCmd.Flags().BoolVarP(&destroyForce, "force", "f", false, "Skip confirmation prompt")
}

// backupCmd copies the encrypted vault file
var backupCmd = &cobra.Command{
	Use:   "backup <dst>",
	Short: "Copy the encrypted vault file",
	Long: `Copy the encrypted vault file to dst. The copy stays encrypted under the
current master password, so no password is asked for.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !store.Exists() {
			return errNoVault
		}
		if err := store.Backup(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", args[0])
		return nil
	},
}

// restoreCmd replaces the vault file with a backup
var restoreCmd = &cobra.Command{
	Use:   "restore <src>",
	Short: "Replace the vault file with a backup",
	Long: `Replace the vault file with an encrypted backup. After a restore the
vault opens with the master password the backup was made under.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if store.Exists() && !restoreForce {
			ok, err := confirm(cmd, fmt.Sprintf("Overwrite the vault at %s?", store.Path()))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Restore cancelled")
				return nil
			}
		}
		if err := store.Restore(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Vault restored from %s\n", args[0])
		return nil
	},
}

// destroyCmd deletes the vault file
var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Delete the vault file",
	Long: `Delete the vault file. Every entry is lost unless a backup exists. The
audit log is kept.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !store.Exists() {
			fmt.Fprintf(cmd.OutOrStdout(), "No vault at %s\n", store.Path())
			return nil
		}
		if !destroyForce {
			ok, err := confirm(cmd, fmt.Sprintf("Permanently delete the vault at %s?", store.Path()))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Destroy cancelled")
				return nil
			}
		}
		if err := store.Delete(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Vault deleted: %s\n", store.Path())
		return nil
	},
}
