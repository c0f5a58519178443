package vault

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forest6511/pwvault/pkg/crypto"
)

// Entry defaults
const (
	DefaultCategory = "General"
	UntitledEntry   = "Untitled Entry"
	noUsername      = "no username"
	TimestampLayout = "02-01-2006 15:04:05"
)

// Entry is a single stored credential.
//
// The secret lives in a crypto.SecretBuffer. Secret returns a copy and
// SetSecret copies its argument, so callers keep ownership of their own
// buffers and are responsible for wiping them.
type Entry struct {
	id        string
	title     string
	username  string
	secret    *crypto.SecretBuffer
	url       string
	notes     string
	category  string
	createdAt time.Time
	updatedAt time.Time
}

// NewEntry returns an empty entry in the default category.
func NewEntry() *Entry {
	now := time.Now()
	return &Entry{
		id:        uuid.NewString(),
		secret:    crypto.NewSecretBuffer(nil),
		category:  DefaultCategory,
		createdAt: now,
		updatedAt: now,
	}
}

// NewEntryWith returns an entry with the basic credential fields set.
func NewEntryWith(title, username string, secret []byte) *Entry {
	e := NewEntry()
	e.title = title
	e.username = username
	e.secret = crypto.CopySecretBuffer(secret)
	return e
}

// NewEntryFull returns an entry with every user-editable field set.
func NewEntryFull(title, username string, secret []byte, url, notes, category string) *Entry {
	e := NewEntryWith(title, username, secret)
	e.url = url
	e.notes = notes
	e.category = category
	return e
}

func (e *Entry) ID() string { return e.id }
func (e *Entry) Title() string { return e.title }
func (e *Entry) Username() string { return e.username }
func (e *Entry) URL() string { return e.url }
func (e *Entry) Notes() string { return e.notes }
func (e *Entry) Category() string { return e.category }
func (e *Entry) CreatedAt() time.Time { return e.createdAt }
func (e *Entry) UpdatedAt() time.Time { return e.updatedAt }

// Secret returns a copy of the secret. The caller should wipe it after use.
func (e *Entry) Secret() []byte {
	return e.secret.Bytes()
}

// SecretLen returns the secret length without copying it.
func (e *Entry) SecretLen() int {
	return e.secret.Len()
}

// SecretEquals compares the secret with b in constant time.
func (e *Entry) SecretEquals(b []byte) bool {
	return e.secret.Equal(b)
}

func (e *Entry) SetTitle(title string) {
	e.title = title
	e.touch()
}

func (e *Entry) SetUsername(username string) {
	e.username = username
	e.touch()
}

// SetSecret replaces the secret with a copy of secret and wipes the old one.
func (e *Entry) SetSecret(secret []byte) {
	old := e.secret
	e.secret = crypto.CopySecretBuffer(secret)
	old.Wipe()
	e.touch()
}

func (e *Entry) SetURL(url string) {
	e.url = url
	e.touch()
}

func (e *Entry) SetNotes(notes string) {
	e.notes = notes
	e.touch()
}

// SetCategory sets the category. An empty category is stored as-is and is
// listed by Vault.Categories like any other value.
func (e *Entry) SetCategory(category string) {
	e.category = category
	e.touch()
}

// DisplayName returns the title, or UntitledEntry when the title is blank.
func (e *Entry) DisplayName() string {
	if strings.TrimSpace(e.title) == "" {
		return UntitledEntry
	}
	return e.title
}

// String renders "<display name> (<username>)". It never includes the secret.
func (e *Entry) String() string {
	username := e.username
	if strings.TrimSpace(username) == "" {
		username = noUsername
	}
	return e.DisplayName() + " (" + username + ")"
}

func (e *Entry) CreatedAtFormatted() string {
	return e.createdAt.Format(TimestampLayout)
}

func (e *Entry) UpdatedAtFormatted() string {
	return e.updatedAt.Format(TimestampLayout)
}

// clone returns a deep copy sharing no mutable state with e.
func (e *Entry) clone() *Entry {
	c := *e
	c.secret = e.secret.Clone()
	return &c
}

// wipe zeroes the secret. The entry must not be used afterwards.
func (e *Entry) wipe() {
	e.secret.Wipe()
}

func (e *Entry) touch() {
	now := time.Now()
	// Keep UpdatedAt strictly after the previous value on coarse clocks
	if !now.After(e.updatedAt) {
		now = e.updatedAt.Add(time.Nanosecond)
	}
	e.updatedAt = now
}
