package security

// Limits caps how many issues of each kind a report lists. Zero means
// unlimited. Scores are always computed over every entry.
type Limits struct {
	// WeakLimit is the max weak secrets to list.
	WeakLimit int
	// DuplicateLimit is the max reuse groups to list.
	DuplicateLimit int
}

// DefaultLimits keeps `pwvault check` output short.
func DefaultLimits() Limits {
	return Limits{WeakLimit: 5, DuplicateLimit: 5}
}

// Unlimited lists every issue.
func Unlimited() Limits {
	return Limits{}
}

// IsLimited returns true if any cap is set.
func (l Limits) IsLimited() bool {
	return l.DuplicateLimit > 0 || l.WeakLimit > 0
}
