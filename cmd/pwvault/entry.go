package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/forest6511/pwvault/internal/cli"
	"github.com/forest6511/pwvault/pkg/audit"
	"github.com/forest6511/pwvault/pkg/crypto"
	"github.com/forest6511/pwvault/pkg/generate"
	"github.com/forest6511/pwvault/pkg/vault"
)

// shortIDLength is how much of an entry id list prints. Any unique prefix
// is accepted wherever an id is expected.
const shortIDLength = 8

// Entry flags shared by add and edit
var (
	entryTitle    string
	entryUsername string
	entryURL      string
	entryNotes    string
	entryCategory string
	entryGenerate bool
	entryLength   int
)

// Edit-only flags
var editPassword bool

// List and get flags
var (
	listSearch   string
	listCategory string
	getShow      bool
)

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(renameCmd)

	for _, c := range []*cobra.Command{addCmd, editCmd} {
		c.Flags().StringVarP(&entryTitle, "title", "t", "", "Entry title")
		c.Flags().StringVarP(&entryUsername, "username", "u", "", "Username or email")
		c.Flags().StringVar(&entryURL, "url", "", "Website URL")
		c.Flags().StringVar(&entryNotes, "notes", "", "Free-form notes")
		c.Flags().StringVarP(&entryCategory, "category", "c", "", "Category (default \""+vault.DefaultCategory+"\")")
		c.Flags().BoolVarP(&entryGenerate, "generate", "g", false, "Generate a random password")
		c.Flags().IntVarP(&entryLength, "length", "l", 0, "Generated password length (default from config)")
	}
	editCmd.Flags().BoolVarP(&editPassword, "password", "p", false, "Prompt for a new password")

	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "Case-insensitive text search")
	listCmd.Flags().StringVarP(&listCategory, "category", "c", "", "Exact category filter")

	getCmd.Flags().BoolVar(&getShow, "show", false, "Print the password in clear text")
}

// addCmd adds an entry
var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an entry",
	Long: `Add an entry. The password is prompted for unless --generate is set.

Examples:
  pwvault add -t Gmail -u john@gmail.com --url https://mail.google.com -c Email
  pwvault add -t GitHub -u octocat -g -l 32`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := entrySecret(cmd, "Enter entry password: ")
		if err != nil {
			return err
		}
		defer crypto.SecureWipe(secret)

		category := entryCategory
		if category == "" {
			category = vault.DefaultCategory
		}

		var id, name string
		err = updateVault(cmd, func(v *vault.Vault) ([]entryEvent, error) {
			e := vault.NewEntryFull(entryTitle, entryUsername, secret, entryURL, entryNotes, category)
			if err := v.AddEntry(e); err != nil {
				return nil, err
			}
			id, name = e.ID(), e.DisplayName()
			return []entryEvent{{op: audit.OpEntryAdd, id: id}}, nil
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Added '%s' (%s)\n", name, shortID(id))
		if entryGenerate {
			fmt.Fprintln(cmd.OutOrStdout(), "A random password was generated; use 'pwvault get --show' to view it")
		}
		return nil
	},
}

// listCmd lists entries
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries (never shows passwords)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return readVault(cmd, func(v *vault.Vault) error {
			entries := v.Search(listSearch)
			if listCategory != "" {
				filtered := entries[:0]
				for _, e := range entries {
					if e.Category() == listCategory {
						filtered = append(filtered, e)
					}
				}
				entries = filtered
			}

			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No entries found")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tUSERNAME\tCATEGORY\tUPDATED")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					shortID(e.ID()), e.DisplayName(), e.Username(), e.Category(), e.UpdatedAtFormatted())
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d entries\n", len(entries), v.EntryCount())
			return nil
		})
	},
}

// getCmd shows one entry
var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return readVault(cmd, func(v *vault.Vault) error {
			e, err := findEntry(v, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:       %s\n", e.ID())
			fmt.Fprintf(out, "Title:    %s\n", e.DisplayName())
			fmt.Fprintf(out, "Username: %s\n", e.Username())
			if getShow {
				secret := e.Secret()
				fmt.Fprintf(out, "Password: %s\n", secret)
				crypto.SecureWipe(secret)
			} else {
				fmt.Fprintf(out, "Password: %s\n", strings.Repeat("*", min(e.SecretLen(), 12)))
			}
			fmt.Fprintf(out, "URL:      %s\n", e.URL())
			fmt.Fprintf(out, "Category: %s\n", e.Category())
			fmt.Fprintf(out, "Created:  %s\n", e.CreatedAtFormatted())
			fmt.Fprintf(out, "Updated:  %s\n", e.UpdatedAtFormatted())
			if e.Notes() != "" {
				fmt.Fprintf(out, "Notes:\n%s\n", e.Notes())
			}
			return nil
		})
	},
}

// editCmd changes an entry's fields
var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit an entry",
	Long: `Edit an entry. Only the fields given as flags change.

Examples:
  pwvault edit 1a2b3c4d --username new@example.com
  pwvault edit 1a2b3c4d --password
  pwvault edit 1a2b3c4d --generate -l 32`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()

		var secret []byte
		if editPassword || entryGenerate {
			s, err := entrySecret(cmd, "Enter new entry password: ")
			if err != nil {
				return err
			}
			secret = s
			defer crypto.SecureWipe(secret)
		}

		var name string
		err := updateVault(cmd, func(v *vault.Vault) ([]entryEvent, error) {
			e, err := findEntry(v, args[0])
			if err != nil {
				return nil, err
			}

			changed := v.UpdateEntry(e.ID(), func(e *vault.Entry) {
				if flags.Changed("title") {
					e.SetTitle(entryTitle)
				}
				if flags.Changed("username") {
					e.SetUsername(entryUsername)
				}
				if flags.Changed("url") {
					e.SetURL(entryURL)
				}
				if flags.Changed("notes") {
					e.SetNotes(entryNotes)
				}
				if flags.Changed("category") {
					e.SetCategory(entryCategory)
				}
				if secret != nil {
					e.SetSecret(secret)
				}
				name = e.DisplayName()
			})
			if !changed {
				return nil, fmt.Errorf("entry %s not found", args[0])
			}
			return []entryEvent{{op: audit.OpEntryUpdate, id: e.ID()}}, nil
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Updated '%s'\n", name)
		return nil
	},
}

// removeCmd deletes an entry
var removeCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove an entry",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var name string
		err := updateVault(cmd, func(v *vault.Vault) ([]entryEvent, error) {
			e, err := findEntry(v, args[0])
			if err != nil {
				return nil, err
			}
			name = e.DisplayName()
			v.RemoveEntry(e.ID())
			return []entryEvent{{op: audit.OpEntryRemove, id: e.ID()}}, nil
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Removed '%s'\n", name)
		return nil
	},
}

// categoriesCmd lists the distinct categories
var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List categories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return readVault(cmd, func(v *vault.Vault) error {
			for _, c := range v.Categories() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d)\n", c, len(v.EntriesByCategory(c)))
			}
			return nil
		})
	},
}

// renameCmd sets the vault name
var renameCmd = &cobra.Command{
	Use:   "rename <name>",
	Short: "Rename the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := updateVault(cmd, func(v *vault.Vault) ([]entryEvent, error) {
			v.SetName(args[0])
			return nil, nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Vault renamed to '%s'\n", args[0])
		return nil
	},
}

// entrySecret generates a password when --generate is set, otherwise
// prompts for one.
func entrySecret(cmd *cobra.Command, prompt string) ([]byte, error) {
	if !entryGenerate {
		return readPassword(cmd, prompt)
	}

	opts := cfg.GenerateOptions()
	if entryLength != 0 {
		opts.Length = entryLength
	}
	return generate.Password(opts)
}

// findEntry resolves a full id or a unique id prefix.
func findEntry(v *vault.Vault, ref string) (*vault.Entry, error) {
	entries := v.Entries()
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID()
	}

	id, err := cli.ResolveID(ref, ids)
	if err != nil {
		return nil, err
	}
	e, _ := v.Entry(id)
	return e, nil
}

func shortID(id string) string {
	if len(id) > shortIDLength {
		return id[:shortIDLength]
	}
	return id
}
