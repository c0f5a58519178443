package importer

import (
	"encoding/json"
	"fmt"
)

// BitwardenParser parses unencrypted Bitwarden JSON export files.
type BitwardenParser struct{}

// Bitwarden item types.
const (
	bitwardenTypeLogin      = 1
	bitwardenTypeSecureNote = 2
	bitwardenTypeCard       = 3
	bitwardenTypeIdentity   = 4
)

type bitwardenExport struct {
	Encrypted bool              `json:"encrypted"`
	Items     []bitwardenItem   `json:"items"`
	Folders   []bitwardenFolder `json:"folders"`
}

type bitwardenFolder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type bitwardenItem struct {
	Type     int             `json:"type"`
	Name     string          `json:"name"`
	Notes    string          `json:"notes"`
	FolderID *string         `json:"folderId"`
	Login    *bitwardenLogin `json:"login"`
}

type bitwardenLogin struct {
	URIs     []bitwardenURI `json:"uris"`
	Username string         `json:"username"`
	Password string         `json:"password"`
	TOTP     string         `json:"totp"`
}

type bitwardenURI struct {
	URI string `json:"uri"`
}

// Source returns the source type for this parser.
func (p *BitwardenParser) Source() Source {
	return SourceBitwarden
}

// Parse parses Bitwarden JSON data. Logins and secure notes become
// entries and the folder name becomes the category. Cards and identities
// have no matching entry shape and are skipped.
func (p *BitwardenParser) Parse(data []byte) (*ImportResult, error) {
	var export bitwardenExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("importer: failed to parse Bitwarden JSON: %w", err)
	}
	if export.Encrypted {
		return nil, fmt.Errorf("importer: encrypted Bitwarden exports are not supported")
	}

	folders := make(map[string]string, len(export.Folders))
	for _, f := range export.Folders {
		folders[f.ID] = f.Name
	}

	b := newBuilder()
	for i := range export.Items {
		item := &export.Items[i]
		row := i + 1

		r := record{title: item.Name, notes: item.Notes}
		if item.FolderID != nil {
			r.category = folders[*item.FolderID]
		}

		switch item.Type {
		case bitwardenTypeLogin:
			if login := item.Login; login != nil {
				r.username = login.Username
				r.password = login.Password
				if len(login.URIs) > 0 {
					r.url = login.URIs[0].URI
				}
				if len(login.URIs) > 1 {
					b.warn("item %d (%s): only the first of %d URIs imported", row, item.Name, len(login.URIs))
				}
				if login.TOTP != "" {
					b.warn("item %d (%s): TOTP seed not imported", row, item.Name)
				}
			}
		case bitwardenTypeSecureNote:
		case bitwardenTypeCard, bitwardenTypeIdentity:
			b.result.Skipped = append(b.result.Skipped, SkippedItem{
				Row:    row,
				Title:  item.Name,
				Reason: "cards and identities are not supported",
			})
			continue
		default:
			b.warn("item %d (%s): unsupported item type: %d", row, item.Name, item.Type)
			continue
		}

		b.add(row, r)
	}
	return b.result, nil
}
