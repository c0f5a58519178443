package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/forest6511/pwvault/internal/config"
	"github.com/forest6511/pwvault/pkg/audit"
	"github.com/forest6511/pwvault/pkg/crypto"
	"github.com/forest6511/pwvault/pkg/vault"
)

// Global flags
var (
	configPath    string
	vaultPathFlag string
	logLevelFlag  string
)

// State built by PersistentPreRunE
var (
	cfg      *config.Config
	logger   *slog.Logger
	store    *vault.Store
	auditLog *audit.Logger
	stdin    *bufio.Reader
)

// errNoVault is returned when a command needs a vault that does not exist.
var errNoVault = errors.New("no vault found: run 'pwvault init' first")

var rootCmd = &cobra.Command{
	Use:           "pwvault",
	Short:         "pwvault is an encrypted local password vault",
	Long:          `Store website credentials in a single encrypted file protected by a master password.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	// PersistentPreRunE runs before every subcommand and opens the store.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <user config dir>/pwvault/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&vaultPathFlag, "vault", "", "Vault file (default: ~/"+vault.FileName+")")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
}

// setup resolves configuration with precedence defaults < file < env <
// flags, then builds the logger, audit log and store.
func setup(cmd *cobra.Command) error {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	c, err := config.Load(path)
	if err != nil {
		return err
	}
	c.ApplyEnv(os.LookupEnv)
	if vaultPathFlag != "" {
		c.VaultPath = vaultPathFlag
	}
	if logLevelFlag != "" {
		c.LogLevel = logLevelFlag
	}
	level, err := config.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	cfg = c

	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	stdin = bufio.NewReader(cmd.InOrStdin())

	vaultPath := cfg.VaultPath
	if vaultPath == "" {
		p, err := vault.DefaultPath()
		if err != nil {
			return err
		}
		vaultPath = p
	}

	opts := []vault.StoreOption{vault.WithLogger(logger)}
	auditLog = nil
	if cfg.Audit.Enabled {
		dir := cfg.Audit.Path
		if dir == "" {
			base, err := config.Dir()
			if err != nil {
				return err
			}
			dir = filepath.Join(base, "audit")
		}
		auditLog = audit.NewLogger(dir)
		opts = append(opts, vault.WithAudit(auditLog, audit.SourceCLI))
	}

	store = vault.NewStore(vaultPath, opts...)
	logger.Debug("configuration loaded", "config", path, "vault", vaultPath, "audit", cfg.Audit.Enabled)
	return nil
}

// readPassword prompts on stderr and reads without echo from a terminal,
// or one line from piped input.
var readPassword = func(cmd *cobra.Command, prompt string) ([]byte, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)

	fd := int(os.Stdin.Fd())
	if cmd.InOrStdin() == os.Stdin && term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		return password, nil
	}

	line, err := readLine()
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return []byte(line), nil
}

// readLine reads a single line from stdin, trimming the line ending.
func readLine() (string, error) {
	line, err := stdin.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

// confirm asks a yes/no question on stderr.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N]: ", prompt)
	answer, err := readLine()
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

// entryEvent is an entry-level audit record written after a successful save.
type entryEvent struct {
	op string
	id string
}

// readVault prompts for the master password, loads the vault and calls fn.
// The vault is wiped afterwards.
func readVault(cmd *cobra.Command, fn func(v *vault.Vault) error) error {
	password, err := readPassword(cmd, "Enter master password: ")
	if err != nil {
		return err
	}

	v, ok, err := store.Load(password)
	if err != nil {
		return err
	}
	if !ok {
		return errNoVault
	}
	defer v.Clear()

	return fn(v)
}

// updateVault is load, mutate, save. Load consumes a copy of the password
// and Save consumes the original. Audit events from fn are logged once the
// save succeeds.
func updateVault(cmd *cobra.Command, fn func(v *vault.Vault) ([]entryEvent, error)) error {
	password, err := readPassword(cmd, "Enter master password: ")
	if err != nil {
		return err
	}
	defer crypto.ClearPassword(password)

	v, ok, err := store.Load(bytes.Clone(password))
	if err != nil {
		return err
	}
	if !ok {
		return errNoVault
	}
	defer v.Clear()

	events, err := fn(v)
	if err != nil {
		return err
	}
	if err := store.Save(v, password); err != nil {
		return err
	}
	for _, e := range events {
		store.LogEntryEvent(e.op, e.id)
	}
	return nil
}

// errorMessage maps library errors to user-facing text. Load failures never
// say which stage failed.
func errorMessage(err error) string {
	var ioErr *vault.IOError
	switch {
	case errors.Is(err, vault.ErrLoadFailed):
		return "failed to open vault: wrong password or corrupted file"
	case errors.As(err, &ioErr):
		return fmt.Sprintf("storage error: failed to %s %s: %v", ioErr.Op, ioErr.Path, ioErr.Err)
	case errors.Is(err, vault.ErrIO):
		return "storage error: " + err.Error()
	default:
		return err.Error()
	}
}

// parseDuration parses a duration with an optional "d" (days) suffix.
func parseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}
