// Package importer converts password-manager exports into vault entries.
//
// Supported formats are LastPass CSV, 1Password CSV, Bitwarden JSON and a
// generic CSV with the columns title,username,password,url,notes,category.
// Text fields are trimmed and NFC-normalized. Rows with nothing worth
// storing are skipped with a reason.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html"
	"io"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/forest6511/pwvault/pkg/vault"
)

// Source represents the export format.
type Source string

const (
	SourceLastPass  Source = "lastpass"
	Source1Password Source = "1password"
	SourceBitwarden Source = "bitwarden"
	SourceCSV       Source = "csv"
)

// utf8BOM is stripped from the start of CSV exports.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ImportResult contains the results of an import operation.
type ImportResult struct {
	// Entries are the successfully parsed entries, in file order.
	Entries []*vault.Entry

	// Warnings are non-fatal issues encountered during parsing.
	Warnings []string

	// Skipped are items that were skipped with reasons.
	Skipped []SkippedItem
}

// SkippedItem represents an item that was skipped during import.
type SkippedItem struct {
	Row    int
	Title  string
	Reason string
}

// Parser is the interface for export format parsers.
type Parser interface {
	// Parse parses the export and returns vault entries.
	Parse(data []byte) (*ImportResult, error)

	// Source returns the format handled by this parser.
	Source() Source
}

// GetParser returns a parser for the given source.
func GetParser(source Source) (Parser, error) {
	switch source {
	case SourceLastPass:
		return &LastPassParser{}, nil
	case Source1Password:
		return &OnePasswordParser{}, nil
	case SourceBitwarden:
		return &BitwardenParser{}, nil
	case SourceCSV:
		return &CSVParser{}, nil
	default:
		return nil, fmt.Errorf("importer: unsupported import source: %s", source)
	}
}

// ValidSources returns a list of valid source names.
func ValidSources() []string {
	return []string{
		string(SourceLastPass),
		string(Source1Password),
		string(SourceBitwarden),
		string(SourceCSV),
	}
}

// NormalizeText trims surrounding whitespace and normalizes to NFC, so
// that visually identical titles from different exporters compare equal.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// DecodeHTMLEntities decodes HTML entities. LastPass encodes &, <, > and
// quotes in some export versions.
func DecodeHTMLEntities(s string) string {
	return html.UnescapeString(s)
}

// IsEmptyOrWhitespace checks if a string is empty or contains only whitespace.
func IsEmptyOrWhitespace(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// FallbackTitle names an entry whose export had no title: the URL host
// without "www.", or "Imported item N".
func FallbackTitle(rawURL string, counter int) string {
	if host := hostname(rawURL); host != "" {
		return host
	}
	return fmt.Sprintf("Imported item %d", counter)
}

func hostname(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// record is the format-neutral shape every parser fills in.
type record struct {
	title, username, password, url, notes, category string
}

// builder accumulates entries and bookkeeping shared by all parsers.
type builder struct {
	result   *ImportResult
	fallback int
}

func newBuilder() *builder {
	return &builder{
		result: &ImportResult{
			Entries:  make([]*vault.Entry, 0),
			Warnings: make([]string, 0),
			Skipped:  make([]SkippedItem, 0),
		},
		fallback: 1,
	}
}

// add normalizes r and appends it as an entry, or records a skip when it
// carries no credential data.
func (b *builder) add(row int, r record) {
	r.title = NormalizeText(r.title)
	r.username = NormalizeText(r.username)
	r.url = NormalizeText(r.url)
	r.notes = norm.NFC.String(strings.TrimRight(r.notes, " \t\r\n"))
	r.category = NormalizeText(r.category)

	if r.username == "" && r.password == "" && IsEmptyOrWhitespace(r.notes) {
		b.result.Skipped = append(b.result.Skipped, SkippedItem{
			Row:    row,
			Title:  r.title,
			Reason: "no useful data",
		})
		return
	}

	if r.title == "" {
		r.title = FallbackTitle(r.url, b.fallback)
		b.fallback++
	}
	if r.category == "" {
		r.category = vault.DefaultCategory
	}

	b.result.Entries = append(b.result.Entries,
		vault.NewEntryFull(r.title, r.username, []byte(r.password), r.url, r.notes, r.category))
}

func (b *builder) warn(format string, args ...any) {
	b.result.Warnings = append(b.result.Warnings, fmt.Sprintf(format, args...))
}

// csvColumns maps lookup names to column indexes.
type csvColumns map[string]int

// readCSV strips a BOM, reads the header and calls fn for each data row
// with a getter over the header. Header names are lowercased when fold is
// set. Malformed rows become warnings.
func readCSV(data []byte, fold bool, required []string, b *builder, fn func(rowNum int, get func(col string) string)) error {
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true // Handle malformed exports
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("importer: failed to read CSV header: %w", err)
	}

	cols := make(csvColumns, len(header))
	for i, col := range header {
		col = strings.TrimSpace(col)
		if fold {
			col = strings.ToLower(col)
		}
		cols[col] = i
	}
	for _, col := range required {
		if _, ok := cols[col]; !ok {
			return fmt.Errorf("importer: missing required column: %s", col)
		}
	}

	rowNum := 1 // header is row 1
	for {
		rowNum++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			b.warn("row %d: failed to parse: %v", rowNum, err)
			continue
		}
		if len(row) != len(header) {
			b.warn("row %d: column count mismatch (expected %d, got %d)", rowNum, len(header), len(row))
			continue
		}

		fn(rowNum, func(col string) string {
			if idx, ok := cols[col]; ok {
				return row[idx]
			}
			return ""
		})
	}
	return nil
}
