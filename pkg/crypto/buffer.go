package crypto

import (
	"crypto/subtle"
	"runtime"
)

// SecretBuffer owns a mutable byte slice holding secret material.
//
// The buffer is zeroed by Wipe. If the owner drops a SecretBuffer without
// wiping it, a runtime cleanup zeroes the bytes once the buffer becomes
// unreachable. Bytes never leaves the buffer uncopied.
type SecretBuffer struct {
	b          []byte
	cleanup    runtime.Cleanup
	hasCleanup bool
}

// NewSecretBuffer takes ownership of b. The caller must not use b afterwards.
func NewSecretBuffer(b []byte) *SecretBuffer {
	s := &SecretBuffer{b: b}
	if len(b) > 0 {
		s.cleanup = runtime.AddCleanup(s, SecureWipe, b)
		s.hasCleanup = true
	}
	return s
}

// CopySecretBuffer returns a buffer holding a private copy of b.
func CopySecretBuffer(b []byte) *SecretBuffer {
	if len(b) == 0 {
		return NewSecretBuffer(nil)
	}
	c := make([]byte, len(b))
	copy(c, b)
	return NewSecretBuffer(c)
}

// Bytes returns an independent copy of the secret. The caller owns the copy
// and should wipe it when done.
func (s *SecretBuffer) Bytes() []byte {
	if s == nil || len(s.b) == 0 {
		return nil
	}
	c := make([]byte, len(s.b))
	copy(c, s.b)
	return c
}

// Len returns the secret length in bytes.
func (s *SecretBuffer) Len() int {
	if s == nil {
		return 0
	}
	return len(s.b)
}

// Equal reports whether the secret equals b, in constant time for equal
// lengths.
func (s *SecretBuffer) Equal(b []byte) bool {
	if s == nil {
		return len(b) == 0
	}
	return subtle.ConstantTimeCompare(s.b, b) == 1
}

// Clone returns a buffer with its own copy of the secret.
func (s *SecretBuffer) Clone() *SecretBuffer {
	if s == nil {
		return NewSecretBuffer(nil)
	}
	return CopySecretBuffer(s.b)
}

// Wipe zeroes the secret and releases the slice.
func (s *SecretBuffer) Wipe() {
	if s == nil {
		return
	}
	SecureWipe(s.b)
	if s.hasCleanup {
		s.cleanup.Stop()
		s.hasCleanup = false
	}
	s.b = nil
}

// String never renders the secret, so a buffer passed to fmt or slog
// cannot leak.
func (s *SecretBuffer) String() string {
	return "[REDACTED]"
}
