package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forest6511/pwvault/pkg/crypto"
	"github.com/forest6511/pwvault/pkg/generate"
)

const defaultPasswordCount = 1

// Generate command flags
var (
	generateLength      int
	generateCount       int
	generateNoSymbols   bool
	generateNoNumbers   bool
	generateNoUppercase bool
	generateNoLowercase bool
	generateExclude     string
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().IntVarP(&generateLength, "length", "l", 0, "Password length (8-256, default from config)")
	generateCmd.Flags().IntVarP(&generateCount, "count", "n", defaultPasswordCount, "Number of passwords to generate (1-100)")
	generateCmd.Flags().BoolVar(&generateNoSymbols, "no-symbols", false, "Exclude symbols")
	generateCmd.Flags().BoolVar(&generateNoNumbers, "no-numbers", false, "Exclude numbers")
	generateCmd.Flags().BoolVar(&generateNoUppercase, "no-uppercase", false, "Exclude uppercase letters")
	generateCmd.Flags().BoolVar(&generateNoLowercase, "no-lowercase", false, "Exclude lowercase letters")
	generateCmd.Flags().StringVar(&generateExclude, "exclude", "", "Characters to exclude")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate secure random passwords",
	Long: `Generate cryptographically secure random passwords. The vault is not
opened.

Examples:
  # Generate a password with the configured defaults
  pwvault generate

  # Generate a 32-character password without symbols
  pwvault generate -l 32 --no-symbols

  # Generate 5 passwords excluding ambiguous characters
  pwvault generate -n 5 --exclude "0O1lI"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if generateCount < 1 || generateCount > generate.MaxCount {
			return fmt.Errorf("count must be between 1 and %d", generate.MaxCount)
		}

		opts := generateOptions()
		for range generateCount {
			password, err := generate.Password(opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", password)
			crypto.SecureWipe(password)
		}
		return nil
	},
}

// generateOptions layers the command flags over the config defaults.
func generateOptions() generate.Options {
	opts := cfg.GenerateOptions()
	if generateLength != 0 {
		opts.Length = generateLength
	}
	if generateNoSymbols {
		opts.Symbols = false
	}
	if generateNoNumbers {
		opts.Digits = false
	}
	if generateNoUppercase {
		opts.Uppercase = false
	}
	if generateNoLowercase {
		opts.Lowercase = false
	}
	opts.Exclude = generateExclude
	return opts
}
