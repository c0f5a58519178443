// Package crypto provides cryptographic primitives for pwvault.
//
// This package implements PBKDF2-HMAC-SHA256 key derivation and AES-256-GCM
// authenticated encryption over a single contiguous sealed blob.
//
// # Security Features
//
//   - PBKDF2-HMAC-SHA256 key derivation (100,000 iterations, 256-bit key)
//   - AES-256-GCM authenticated encryption with a 128-bit tag
//   - Fresh cryptographically secure 96-bit nonce for every Seal
//   - One opaque error for every authentication failure
//   - Secure memory wiping for passwords, keys and plaintext
//
// # Sealed Layout
//
//	[12 bytes nonce][N bytes ciphertext][16 bytes tag]
//
// # Example Usage
//
//	salt, _ := crypto.GenerateSalt()
//	key, err := crypto.DeriveKey(password, salt)
//	defer crypto.SecureWipe(key)
//
//	sealed, err := crypto.Seal(plaintext, key)
//	plaintext, err := crypto.Open(sealed, key)
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation and cipher parameters. The on-disk format carries none of
// these, so changing any of them makes existing vaults unreadable.
const (
	// PBKDF2Iterations is the PBKDF2-HMAC-SHA256 iteration count.
	PBKDF2Iterations = 100_000

	// KeyLength is the length of derived keys in bytes (256 bits).
	KeyLength = 32

	// SaltLength is the length of vault salts in bytes (128 bits).
	SaltLength = 16

	// NonceLength is the length of GCM nonces in bytes (96 bits).
	NonceLength = 12

	// TagLength is the length of the GCM authentication tag in bytes (128 bits).
	TagLength = 16
)

// Sentinel errors returned by crypto functions.
var (
	// ErrInvalidInput indicates a missing, empty or wrongly sized argument.
	// It is returned before any cryptographic work is attempted.
	ErrInvalidInput = errors.New("crypto: invalid input")

	// ErrCryptoFailure indicates decryption failed. Tag mismatch, wrong key,
	// wrong nonce and corrupted ciphertext are deliberately indistinguishable.
	ErrCryptoFailure = errors.New("crypto: decryption failed")

	// ErrKeyDerivation indicates the key derivation primitive is unusable.
	// This is an environment fault and is not retried.
	ErrKeyDerivation = errors.New("crypto: key derivation unavailable")
)

// DeriveKey derives a 256-bit key from a password and salt using
// PBKDF2-HMAC-SHA256 with PBKDF2Iterations rounds.
//
// The same (password, salt) pair always yields the same key. The salt must be
// exactly SaltLength bytes. The password is not modified; wiping it is the
// caller's job.
func DeriveKey(password, salt []byte) (key []byte, err error) {
	if len(password) == 0 {
		return nil, fmt.Errorf("%w: password must not be empty", ErrInvalidInput)
	}
	if len(salt) != SaltLength {
		return nil, fmt.Errorf("%w: salt must be %d bytes, got %d", ErrInvalidInput, SaltLength, len(salt))
	}

	defer func() {
		if r := recover(); r != nil {
			key = nil
			err = fmt.Errorf("%w: %v", ErrKeyDerivation, r)
		}
	}()

	key = pbkdf2.Key(password, salt, PBKDF2Iterations, KeyLength, sha256.New)
	if len(key) != KeyLength {
		return nil, ErrKeyDerivation
	}
	return key, nil
}

// GenerateSalt returns SaltLength bytes from crypto/rand.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: failed to generate salt: %w", err)
	}
	return salt, nil
}

// Seal encrypts plaintext with AES-256-GCM under key.
//
// A fresh random nonce is drawn for every call and the result is
// nonce || ciphertext || tag as one slice. An empty plaintext is valid and
// produces NonceLength+TagLength bytes.
func Seal(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, NonceLength, NonceLength+len(plaintext)+gcm.Overhead())
	if _, err := rand.Read(sealed); err != nil {
		return nil, fmt.Errorf("crypto: failed to generate nonce: %w", err)
	}

	// Seal appends ciphertext||tag after the nonce prefix
	return gcm.Seal(sealed, sealed[:NonceLength], plaintext, nil), nil
}

// Open reverses Seal.
//
// Inputs shorter than NonceLength and keys that are not KeyLength bytes fail
// with ErrInvalidInput before the cipher is touched. Any other failure is
// ErrCryptoFailure with no further detail.
func Open(sealed, key []byte) ([]byte, error) {
	if len(sealed) < NonceLength {
		return nil, fmt.Errorf("%w: sealed data shorter than nonce", ErrInvalidInput)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(sealed) < NonceLength+gcm.Overhead() {
		return nil, ErrCryptoFailure
	}

	plaintext, err := gcm.Open(nil, sealed[:NonceLength], sealed[NonceLength:], nil)
	if err != nil {
		return nil, ErrCryptoFailure
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLength {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", ErrInvalidInput, KeyLength, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}
	return gcm, nil
}

// SecureWipe overwrites a byte slice with zeros in a way that prevents
// compiler optimization from removing the operation.
func SecureWipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	// runtime.KeepAlive ensures the write operations are not optimized away
	// by the compiler since b is still "in use" after the loop.
	runtime.KeepAlive(b)
}

// ClearPassword zeroes a caller-owned password buffer in place.
// A nil buffer is a no-op.
func ClearPassword(password []byte) {
	SecureWipe(password)
}
