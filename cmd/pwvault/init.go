package main

import (
	"crypto/subtle"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forest6511/pwvault/pkg/crypto"
	"github.com/forest6511/pwvault/pkg/security"
	"github.com/forest6511/pwvault/pkg/vault"
)

var initName string

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initName, "name", vault.DefaultName, "Vault name")
}

// initCmd creates a new empty vault
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new empty vault",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if store.Exists() {
			return fmt.Errorf("vault already exists at %s (use 'pwvault destroy' first)", store.Path())
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Initializing new vault...")

		// 1. Prompt for master password
		password1, err := readPassword(cmd, "Enter master password: ")
		if err != nil {
			return err
		}
		defer crypto.ClearPassword(password1)

		// 2. Confirm password
		password2, err := readPassword(cmd, "Confirm master password: ")
		if err != nil {
			return err
		}
		defer crypto.ClearPassword(password2)

		// 3. Check passwords match
		if subtle.ConstantTimeCompare(password1, password2) != 1 {
			return fmt.Errorf("passwords do not match")
		}

		// 4. Validate password strength (warnings are advisory)
		result := security.CheckMasterPassword(password1)
		if !result.Valid {
			return fmt.Errorf("password validation failed: %s", result.Warnings[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Password strength: %s\n", result.Strength)
		for _, warning := range result.Warnings {
			fmt.Fprintf(cmd.OutOrStdout(), "Warning: %s\n", warning)
		}

		// 5. Create and save
		v, err := vault.New()
		if err != nil {
			return err
		}
		defer v.Clear()
		v.SetName(initName)

		if err := store.Save(v, password1); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Vault initialized successfully at %s\n", store.Path())
		return nil
	},
}
