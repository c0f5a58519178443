package vault

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/forest6511/pwvault/pkg/crypto"
)

// vaultRecord is the JSON document sealed inside the container. The salt
// is deliberately absent; the container carries it in clear.
type vaultRecord struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Entries []entryRecord `json:"entries"`
}

type entryRecord struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Username  string    `json:"username"`
	Secret    []byte    `json:"secret"`
	URL       string    `json:"url"`
	Notes     string    `json:"notes"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// marshalPayload serializes v. The caller must wipe the result.
func marshalPayload(v *Vault) ([]byte, error) {
	rec := vaultRecord{
		ID:      v.id,
		Name:    v.name,
		Entries: make([]entryRecord, 0, len(v.entries)),
	}
	defer func() {
		for i := range rec.Entries {
			crypto.SecureWipe(rec.Entries[i].Secret)
		}
	}()

	for _, e := range v.entries {
		rec.Entries = append(rec.Entries, entryRecord{
			ID:        e.id,
			Title:     e.title,
			Username:  e.username,
			Secret:    e.secret.Bytes(),
			URL:       e.url,
			Notes:     e.notes,
			Category:  e.category,
			CreatedAt: e.createdAt,
			UpdatedAt: e.updatedAt,
		})
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to marshal payload: %w", err)
	}
	return data, nil
}

// unmarshalPayload rebuilds a vault from plaintext and assigns it salt.
// Decoded secrets are moved into secret buffers without copying.
func unmarshalPayload(plaintext, salt []byte) (*Vault, error) {
	var rec vaultRecord
	if err := json.Unmarshal(plaintext, &rec); err != nil {
		return nil, fmt.Errorf("vault: failed to parse payload: %w", err)
	}

	// Entry ids are not checked here. AddEntry allows duplicates, and
	// anything Save wrote must load.
	entries := make([]*Entry, 0, len(rec.Entries))
	for i := range rec.Entries {
		r := &rec.Entries[i]
		entries = append(entries, &Entry{
			id:        r.ID,
			title:     r.Title,
			username:  r.Username,
			secret:    crypto.NewSecretBuffer(r.Secret),
			url:       r.URL,
			notes:     r.Notes,
			category:  r.Category,
			createdAt: r.CreatedAt,
			updatedAt: r.UpdatedAt,
		})
	}

	v, err := Restore(rec.ID, rec.Name, entries, salt)
	if err != nil {
		for _, e := range entries {
			e.wipe()
		}
		return nil, err
	}
	return v, nil
}
