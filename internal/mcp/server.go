// Package mcp implements a read-only MCP (Model Context Protocol) server
// over an unlocked password vault. Agents can search entries and see masked
// secrets; plaintext secrets are never returned.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forest6511/pwvault/pkg/audit"
	"github.com/forest6511/pwvault/pkg/vault"
)

// PasswordEnv holds the master password for the server. It is cleared from
// the environment as soon as it is read.
const PasswordEnv = "PWVAULT_PASSWORD"

// ErrNoPassword is returned when neither ServerOptions.Password nor
// PasswordEnv supplies a password.
var ErrNoPassword = errors.New("no password provided: set " + PasswordEnv + " environment variable")

// Server is the MCP server for one vault.
type Server struct {
	server *mcp.Server
	logger *slog.Logger

	mu    sync.RWMutex
	vault *vault.Vault
}

// ServerOptions contains configuration options for the MCP server.
type ServerOptions struct {
	// VaultPath is the vault file. Empty means vault.DefaultPath().
	VaultPath string

	// Password is the master password. If empty, PasswordEnv is read.
	// The slice is zeroed by NewServer.
	Password []byte

	// Logger receives operational messages. Defaults to discard.
	Logger *slog.Logger

	// Audit, if set, records the vault load with source "mcp".
	Audit *audit.Logger

	// Version is reported to clients.
	Version string
}

// NewServer loads the vault and registers the tools.
func NewServer(opts *ServerOptions) (*Server, error) {
	if opts == nil {
		opts = &ServerOptions{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	vaultPath := opts.VaultPath
	if vaultPath == "" {
		p, err := vault.DefaultPath()
		if err != nil {
			return nil, err
		}
		vaultPath = p
	}

	password := opts.Password
	if len(password) == 0 {
		password = []byte(os.Getenv(PasswordEnv))
		// Clear the environment variable after reading
		os.Unsetenv(PasswordEnv)
	}
	if len(password) == 0 {
		return nil, ErrNoPassword
	}

	storeOpts := []vault.StoreOption{vault.WithLogger(logger)}
	if opts.Audit != nil {
		storeOpts = append(storeOpts, vault.WithAudit(opts.Audit, audit.SourceMCP))
	}
	store := vault.NewStore(vaultPath, storeOpts...)

	v, ok, err := store.Load(password)
	if err != nil {
		return nil, fmt.Errorf("failed to unlock vault: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("no vault found at %s", vaultPath)
	}

	version := opts.Version
	if version == "" {
		version = "dev"
	}

	s := newServer(v, logger, version)
	logger.Info("mcp server ready", "path", vaultPath, "entries", v.EntryCount())
	return s, nil
}

func newServer(v *vault.Vault, logger *slog.Logger, version string) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{Name: "pwvault", Version: version}, nil),
		logger: logger,
		vault:  v,
	}
	s.registerTools()
	return s
}

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "entry_search",
		Description: "Search vault entries by text (title, username, URL, notes; case-insensitive) and optionally by exact category. Returns entry metadata only, never secrets.",
	}, s.handleEntrySearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "entry_categories",
		Description: "List the distinct entry categories in the vault, sorted.",
	}, s.handleEntryCategories)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "entry_get_masked",
		Description: "Get a masked version of an entry's password (e.g. '****WXYZ'). Useful for checking which password is stored without exposing it.",
	}, s.handleEntryGetMasked)
}

// Run serves over stdio until ctx is done or the client disconnects. The
// in-memory vault is wiped on return.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Close wipes the in-memory vault. Tools fail after Close.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vault != nil {
		s.vault.Clear()
		s.vault = nil
	}
	return nil
}
