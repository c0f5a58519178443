package vault

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrInvalidArgument = errors.New("vault: invalid argument")
	ErrIO              = errors.New("vault: storage I/O failure")
	ErrLoadFailed      = errors.New("vault: failed to open vault")
)

// IOError reports a failed read or write of the vault file. The
// underlying error is preserved.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("vault: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both ErrIO and the cause to errors.Is and errors.As.
func (e *IOError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

// LoadError reports that a present vault file could not be opened.
//
// Decoding, key derivation, decryption and parsing failures all produce
// the same message so callers cannot tell a near-miss password from a
// corrupted file. errors.Is(err, ErrLoadFailed) holds; the underlying
// chain is reachable only through Cause and must not be shown to users.
type LoadError struct {
	cause error
}

func (e *LoadError) Error() string {
	return ErrLoadFailed.Error() + ": wrong password or corrupted file"
}

func (e *LoadError) Unwrap() error {
	return ErrLoadFailed
}

// Cause returns the stage-specific error for diagnostics.
func (e *LoadError) Cause() error {
	return e.cause
}
