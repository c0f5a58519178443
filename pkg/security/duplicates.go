package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"sort"

	"github.com/forest6511/pwvault/pkg/vault"
)

// DuplicateGroup is a set of entries sharing the same secret.
type DuplicateGroup struct {
	EntryIDs []string `json:"entry_ids"`
	Titles   []string `json:"titles"`
	Count    int      `json:"count"`
}

// sessionKey returns the per-calculator HMAC key, creating it on first use.
// The key is never persisted, so digests cannot be compared across runs.
func (c *Calculator) sessionKey() ([]byte, error) {
	if c.hmacKey == nil {
		c.hmacKey = make([]byte, 32)
		if _, err := rand.Read(c.hmacKey); err != nil {
			c.hmacKey = nil
			return nil, err
		}
	}
	return c.hmacKey, nil
}

// FindDuplicates groups entries with identical non-empty secrets, most
// reused first. Secrets are compared as HMAC digests with hmac.Equal.
func (c *Calculator) FindDuplicates(entries []*vault.Entry) ([]DuplicateGroup, error) {
	key, err := c.sessionKey()
	if err != nil {
		return nil, err
	}

	type bucket struct {
		digest []byte
		group  DuplicateGroup
	}
	var buckets []*bucket

	for _, e := range entries {
		if e.SecretLen() == 0 {
			continue
		}
		digest := secretDigest(e, key)

		var found *bucket
		for _, b := range buckets {
			if hmac.Equal(b.digest, digest) {
				found = b
				break
			}
		}
		if found == nil {
			found = &bucket{digest: digest}
			buckets = append(buckets, found)
		}
		found.group.EntryIDs = append(found.group.EntryIDs, e.ID())
		found.group.Titles = append(found.group.Titles, e.DisplayName())
		found.group.Count++
	}

	groups := make([]DuplicateGroup, 0)
	for _, b := range buckets {
		if b.group.Count > 1 {
			groups = append(groups, b.group)
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})
	return groups, nil
}

func secretDigest(e *vault.Entry, key []byte) []byte {
	secret := e.Secret()
	defer wipe(secret)

	h := hmac.New(sha256.New, key)
	h.Write(secret)
	return h.Sum(nil)
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
