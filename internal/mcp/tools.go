package mcp

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forest6511/pwvault/pkg/crypto"
	"github.com/forest6511/pwvault/pkg/vault"
)

var errVaultClosed = errors.New("vault is closed")

// EntrySearchInput represents input for entry_search.
type EntrySearchInput struct {
	Query    string `json:"query,omitempty"`
	Category string `json:"category,omitempty"`
}

// EntrySearchOutput represents output for entry_search.
type EntrySearchOutput struct {
	Entries []EntryInfo `json:"entries"`
}

// EntryInfo is entry metadata without the secret.
type EntryInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Username  string `json:"username,omitempty"`
	URL       string `json:"url,omitempty"`
	Category  string `json:"category"`
	HasNotes  bool   `json:"has_notes"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// EntryCategoriesInput is empty.
type EntryCategoriesInput struct{}

// EntryCategoriesOutput represents output for entry_categories.
type EntryCategoriesOutput struct {
	Categories []string `json:"categories"`
}

// EntryGetMaskedInput represents input for entry_get_masked.
type EntryGetMaskedInput struct {
	ID string `json:"id"`
}

// EntryGetMaskedOutput represents output for entry_get_masked.
type EntryGetMaskedOutput struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	MaskedValue string `json:"masked_value"`
	ValueLength int    `json:"value_length"`
}

func (s *Server) handleEntrySearch(_ context.Context, _ *mcp.CallToolRequest, input EntrySearchInput) (*mcp.CallToolResult, EntrySearchOutput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.vault == nil {
		return nil, EntrySearchOutput{}, errVaultClosed
	}

	entries := s.vault.Search(input.Query)
	output := EntrySearchOutput{Entries: make([]EntryInfo, 0, len(entries))}
	for _, e := range entries {
		if input.Category != "" && e.Category() != input.Category {
			continue
		}
		output.Entries = append(output.Entries, entryInfo(e))
	}
	return nil, output, nil
}

func (s *Server) handleEntryCategories(_ context.Context, _ *mcp.CallToolRequest, _ EntryCategoriesInput) (*mcp.CallToolResult, EntryCategoriesOutput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.vault == nil {
		return nil, EntryCategoriesOutput{}, errVaultClosed
	}

	return nil, EntryCategoriesOutput{Categories: s.vault.Categories()}, nil
}

func (s *Server) handleEntryGetMasked(_ context.Context, _ *mcp.CallToolRequest, input EntryGetMaskedInput) (*mcp.CallToolResult, EntryGetMaskedOutput, error) {
	if input.ID == "" {
		return nil, EntryGetMaskedOutput{}, errors.New("id is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.vault == nil {
		return nil, EntryGetMaskedOutput{}, errVaultClosed
	}

	e, ok := s.vault.Entry(input.ID)
	if !ok {
		return nil, EntryGetMaskedOutput{}, errors.New("entry not found")
	}

	secret := e.Secret()
	defer crypto.SecureWipe(secret)

	return nil, EntryGetMaskedOutput{
		ID:          e.ID(),
		Title:       e.DisplayName(),
		MaskedValue: maskValue(secret),
		ValueLength: utf8.RuneCount(secret),
	}, nil
}

func entryInfo(e *vault.Entry) EntryInfo {
	return EntryInfo{
		ID:        e.ID(),
		Title:     e.DisplayName(),
		Username:  e.Username(),
		URL:       e.URL(),
		Category:  e.Category(),
		HasNotes:  strings.TrimSpace(e.Notes()) != "",
		CreatedAt: e.CreatedAt().Format(time.RFC3339),
		UpdatedAt: e.UpdatedAt().Format(time.RFC3339),
	}
}

// maskValue masks a secret, counting characters rather than bytes:
//
//	| Length | Format      | Example  |
//	|--------|-------------|----------|
//	| 1-4    | All *       | ****     |
//	| 5-8    | Show last 2 | ******XY |
//	| 9+     | Show last 4 | ****WXYZ |
func maskValue(value []byte) string {
	runes := []rune(string(value))
	length := len(runes)

	var shown int
	switch {
	case length == 0:
		return ""
	case length <= 4:
		shown = 0
	case length <= 8:
		shown = 2
	default:
		shown = 4
	}
	return strings.Repeat("*", length-shown) + string(runes[length-shown:])
}
