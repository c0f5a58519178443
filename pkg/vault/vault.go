// Package vault provides the in-memory password vault model and its
// encrypted single-file persistence.
//
// A Vault holds an ordered list of entries and the 16-byte salt used to
// derive its encryption key. Store seals a Vault with a key derived from
// the master password and writes it atomically as one container file.
//
// Accessors never hand out internal state: entries and the salt are
// returned as deep copies, and an existing entry is changed only through
// UpdateEntry.
package vault

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/forest6511/pwvault/pkg/crypto"
)

// DefaultName is the name given to vaults created by New.
const DefaultName = "My Password Vault"

// SaltLength is the vault salt size in bytes.
const SaltLength = crypto.SaltLength

// Vault is the in-memory credential collection.
//
// A Vault is not safe for concurrent use.
type Vault struct {
	id      string
	name    string
	salt    []byte
	entries []*Entry
}

// New creates an empty vault with a fresh random salt.
func New() (*Vault, error) {
	salt, err := crypto.GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	return &Vault{
		id:   uuid.NewString(),
		name: DefaultName,
		salt: salt,
	}, nil
}

// Restore rebuilds a vault from persisted state. The vault takes ownership
// of entries; salt is copied.
func Restore(id, name string, entries []*Entry, salt []byte) (*Vault, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: vault id must not be empty", ErrInvalidArgument)
	}
	v := &Vault{id: id, name: name}
	if err := v.SetSalt(salt); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e == nil {
			return nil, fmt.Errorf("%w: nil entry", ErrInvalidArgument)
		}
		v.entries = append(v.entries, e)
	}
	return v, nil
}

func (v *Vault) ID() string   { return v.id }
func (v *Vault) Name() string { return v.name }

func (v *Vault) SetName(name string) {
	v.name = name
}

// Salt returns a copy of the vault salt.
func (v *Vault) Salt() []byte {
	c := make([]byte, len(v.salt))
	copy(c, v.salt)
	return c
}

// SetSalt replaces the salt with a copy of salt. Replacing the salt changes
// the key the vault is sealed under on the next save.
func (v *Vault) SetSalt(salt []byte) error {
	if len(salt) != SaltLength {
		return fmt.Errorf("%w: salt must be %d bytes, got %d", ErrInvalidArgument, SaltLength, len(salt))
	}
	c := make([]byte, SaltLength)
	copy(c, salt)
	v.salt = c
	return nil
}

// AddEntry appends a copy of e. IDs are assumed unique; no duplicate check
// is made.
func (v *Vault) AddEntry(e *Entry) error {
	if e == nil {
		return fmt.Errorf("%w: nil entry", ErrInvalidArgument)
	}
	v.entries = append(v.entries, e.clone())
	return nil
}

// RemoveEntry removes the first entry with the given id and wipes its
// secret. It reports whether an entry was removed.
func (v *Vault) RemoveEntry(id string) bool {
	for i, e := range v.entries {
		if e.id == id {
			v.entries = slices.Delete(v.entries, i, i+1)
			e.wipe()
			return true
		}
	}
	return false
}

// Entry returns a copy of the entry with the given id.
func (v *Vault) Entry(id string) (*Entry, bool) {
	if e := v.find(id); e != nil {
		return e.clone(), true
	}
	return nil, false
}

// UpdateEntry applies fn to the stored entry with the given id and reports
// whether it was found. fn must not retain the entry.
func (v *Vault) UpdateEntry(id string, fn func(*Entry)) bool {
	e := v.find(id)
	if e == nil {
		return false
	}
	fn(e)
	return true
}

// Entries returns copies of all entries in insertion order.
func (v *Vault) Entries() []*Entry {
	return v.filter(func(*Entry) bool { return true })
}

func (v *Vault) EntryCount() int {
	return len(v.entries)
}

// Search returns copies of the entries whose title, username, URL or notes
// contain text, compared with Unicode case folding. Blank text matches
// every entry.
func (v *Vault) Search(text string) []*Entry {
	if strings.TrimSpace(text) == "" {
		return v.Entries()
	}

	fold := cases.Fold()
	needle := fold.String(text)
	return v.filter(func(e *Entry) bool {
		for _, field := range []string{e.title, e.username, e.url, e.notes} {
			if field != "" && strings.Contains(fold.String(field), needle) {
				return true
			}
		}
		return false
	})
}

// EntriesByCategory returns copies of the entries whose category equals
// category exactly.
func (v *Vault) EntriesByCategory(category string) []*Entry {
	return v.filter(func(e *Entry) bool { return e.category == category })
}

// Categories returns the distinct categories in use, sorted.
func (v *Vault) Categories() []string {
	seen := make(map[string]struct{}, len(v.entries))
	categories := make([]string, 0, len(v.entries))
	for _, e := range v.entries {
		if _, ok := seen[e.category]; ok {
			continue
		}
		seen[e.category] = struct{}{}
		categories = append(categories, e.category)
	}
	sort.Strings(categories)
	return categories
}

// Clear removes every entry and wipes its secret. The id, name and salt
// are kept.
func (v *Vault) Clear() {
	for _, e := range v.entries {
		e.wipe()
	}
	v.entries = nil
}

func (v *Vault) find(id string) *Entry {
	for _, e := range v.entries {
		if e.id == id {
			return e
		}
	}
	return nil
}

func (v *Vault) filter(match func(*Entry) bool) []*Entry {
	out := make([]*Entry, 0, len(v.entries))
	for _, e := range v.entries {
		if match(e) {
			out = append(out, e.clone())
		}
	}
	return out
}
