package vault

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/forest6511/pwvault/internal/fsutil"
	"github.com/forest6511/pwvault/pkg/audit"
	"github.com/forest6511/pwvault/pkg/container"
	"github.com/forest6511/pwvault/pkg/crypto"
)

// FileName is the default vault file name in the user's home directory.
const FileName = "password-vault.dat"

// DefaultPath returns ~/password-vault.dat.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("vault: failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, FileName), nil
}

// Store reads and writes one encrypted vault file.
//
// Save and Load take ownership of the password slice and zero it before
// returning, on success and on failure. Callers must not reuse it.
//
// Store serializes its own calls but does not lock the file against other
// processes; the last writer wins.
type Store struct {
	path   string
	logger *slog.Logger
	audit  *audit.Logger
	source string
	mu     sync.Mutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger for operational messages. Secrets are never
// logged.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAudit records vault operations to l, tagged with source
// (audit.SourceCLI, audit.SourceMCP).
func WithAudit(l *audit.Logger, source string) StoreOption {
	return func(s *Store) {
		s.audit = l
		s.source = source
	}
}

// NewStore returns a Store for the vault file at path.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path:   path,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		source: audit.SourceCLI,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the vault file path.
func (s *Store) Path() string {
	return s.path
}

// AuditLogger returns the audit logger, or nil if auditing is off. Its
// HMAC key is set by the first successful Save or Load.
func (s *Store) AuditLogger() *audit.Logger {
	return s.audit
}

// Exists reports whether the vault file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Save seals v under a key derived from password and v's salt and
// atomically replaces the vault file.
func (s *Store) Save(v *Vault, password []byte) error {
	defer crypto.ClearPassword(password)

	if v == nil {
		return fmt.Errorf("%w: nil vault", ErrInvalidArgument)
	}
	if len(password) == 0 {
		return fmt.Errorf("%w: password must not be empty", ErrInvalidArgument)
	}
	if len(v.salt) != SaltLength {
		return fmt.Errorf("%w: vault salt must be %d bytes", ErrInvalidArgument, SaltLength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	plaintext, err := marshalPayload(v)
	if err != nil {
		return err
	}
	defer crypto.SecureWipe(plaintext)

	salt := v.Salt()
	key, err := crypto.DeriveKey(password, salt)
	if err != nil {
		return fmt.Errorf("vault: failed to derive key: %w", err)
	}
	defer crypto.SecureWipe(key)

	sealed, err := crypto.Seal(plaintext, key)
	if err != nil {
		return fmt.Errorf("vault: failed to encrypt vault: %w", err)
	}

	data, err := container.Encode(salt, sealed)
	if err != nil {
		return err
	}

	low, err := fsutil.CheckSpaceForWrite(s.path, len(data))
	if err != nil {
		return &IOError{Op: "write", Path: s.path, Err: err}
	}
	if low {
		s.logger.Warn("disk is nearly full", "path", s.path, "threshold_pct", fsutil.DiskWarningPercent)
	}

	existed := s.Exists()
	if err := fsutil.WriteFileAtomic(s.path, data, fsutil.FileMode); err != nil {
		return &IOError{Op: "write", Path: s.path, Err: err}
	}

	s.setAuditKey(key)
	op := audit.OpVaultSave
	if !existed {
		op = audit.OpVaultCreate
	}
	s.auditSuccess(op, "")
	s.logger.Info("vault saved", "path", s.path, "entries", len(v.entries))
	return nil
}

// Load reads and decrypts the vault file.
//
// It returns ok == false with a nil error when no vault file exists. A
// failed read is an *IOError. Every failure after the read, whatever the
// stage, is a *LoadError with the same message.
func (s *Store) Load(password []byte) (v *Vault, ok bool, err error) {
	defer crypto.ClearPassword(password)

	if len(password) == 0 {
		return nil, false, fmt.Errorf("%w: password must not be empty", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("no vault file", "path", s.path)
			return nil, false, nil
		}
		return nil, false, &IOError{Op: "read", Path: s.path, Err: err}
	}
	s.warnPermissions()

	v, key, err := openVault(data, password)
	if err != nil {
		s.logger.Warn("vault could not be opened", "path", s.path)
		s.auditError(audit.OpVaultLoadFailed, "", "LOAD_FAILED", "wrong password or corrupted file")
		return nil, false, &LoadError{cause: err}
	}
	defer crypto.SecureWipe(key)

	s.setAuditKey(key)
	s.auditSuccess(audit.OpVaultLoad, "")
	s.logger.Info("vault loaded", "path", s.path, "entries", len(v.entries))
	return v, true, nil
}

// openVault runs decode, derive, open and parse. On success it also returns
// the derived key, which the caller must wipe.
func openVault(data, password []byte) (*Vault, []byte, error) {
	salt, sealed, err := container.Decode(data)
	if err != nil {
		return nil, nil, err
	}

	key, err := crypto.DeriveKey(password, salt)
	if err != nil {
		return nil, nil, err
	}

	plaintext, err := crypto.Open(sealed, key)
	if err != nil {
		crypto.SecureWipe(key)
		return nil, nil, err
	}
	defer crypto.SecureWipe(plaintext)

	// The container salt is authoritative
	v, err := unmarshalPayload(plaintext, salt)
	if err != nil {
		crypto.SecureWipe(key)
		return nil, nil, err
	}
	return v, key, nil
}

// Delete removes the vault file. A missing file is not an error.
func (s *Store) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &IOError{Op: "delete", Path: s.path, Err: err}
	}
	s.auditSuccess(audit.OpVaultDelete, "")
	s.logger.Info("vault deleted", "path", s.path)
	return nil
}

// Backup copies the encrypted vault file to dst after checking it is a
// well-formed container. The password is not needed.
func (s *Store) Backup(dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOtherPath(dst); err != nil {
		return err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return &IOError{Op: "read", Path: s.path, Err: err}
	}
	if err := validateContainer(data); err != nil {
		return fmt.Errorf("vault: refusing to back up %s: %w", s.path, err)
	}
	if err := fsutil.WriteFileAtomic(dst, data, fsutil.FileMode); err != nil {
		return &IOError{Op: "write", Path: dst, Err: err}
	}

	s.auditSuccess(audit.OpVaultBackup, "")
	s.logger.Info("vault backed up", "path", s.path, "dst", dst)
	return nil
}

// Restore replaces the vault file with the container at src. The current
// vault, if any, is overwritten.
func (s *Store) Restore(src string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOtherPath(src); err != nil {
		return err
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return &IOError{Op: "read", Path: src, Err: err}
	}
	if err := validateContainer(data); err != nil {
		return fmt.Errorf("vault: refusing to restore %s: %w", src, err)
	}
	if err := fsutil.WriteFileAtomic(s.path, data, fsutil.FileMode); err != nil {
		return &IOError{Op: "write", Path: s.path, Err: err}
	}

	s.auditSuccess(audit.OpVaultRestore, "")
	s.logger.Info("vault restored", "path", s.path, "src", src)
	return nil
}

// LogEntryEvent records an entry-level operation against entryID. It is a
// no-op when auditing is off or no vault has been opened yet.
func (s *Store) LogEntryEvent(op, entryID string) {
	s.auditSuccess(op, entryID)
}

func (s *Store) checkOtherPath(p string) error {
	if p == "" {
		return fmt.Errorf("%w: path must not be empty", ErrInvalidArgument)
	}
	a, errA := filepath.Abs(p)
	b, errB := filepath.Abs(s.path)
	if errA == nil && errB == nil && a == b {
		return fmt.Errorf("%w: path is the vault file itself", ErrInvalidArgument)
	}
	return nil
}

// validateContainer checks the envelope shape without decrypting.
func validateContainer(data []byte) error {
	salt, sealed, err := container.Decode(data)
	if err != nil {
		return err
	}
	if len(salt) != crypto.SaltLength {
		return fmt.Errorf("%w: salt must be %d bytes", container.ErrMalformedContainer, crypto.SaltLength)
	}
	if len(sealed) < crypto.NonceLength+crypto.TagLength {
		return fmt.Errorf("%w: encrypted data too short", container.ErrMalformedContainer)
	}
	return nil
}

// warnPermissions logs a warning if the vault file is readable by group or
// others. It does not block the operation.
func (s *Store) warnPermissions() {
	info, err := os.Stat(s.path)
	if err != nil {
		return
	}
	if fsutil.InsecurePerm(info.Mode()) {
		s.logger.Warn("vault file has insecure permissions",
			"path", s.path,
			"mode", fmt.Sprintf("%04o", info.Mode().Perm()),
			"expected", fmt.Sprintf("%04o", fsutil.FileMode))
	}
}

func (s *Store) setAuditKey(key []byte) {
	if s.audit == nil {
		return
	}
	if err := s.audit.SetHMACKey(key); err != nil {
		s.logger.Warn("failed to initialize audit logger", "error", err)
	}
}

func (s *Store) auditSuccess(op, entryID string) {
	if s.audit == nil || !s.audit.Ready() {
		return
	}
	if err := s.audit.LogSuccess(op, s.source, entryID); err != nil {
		s.logger.Warn("failed to write audit event", "op", op, "error", err)
	}
}

func (s *Store) auditError(op, entryID, code, msg string) {
	if s.audit == nil || !s.audit.Ready() {
		return
	}
	if err := s.audit.LogError(op, s.source, entryID, code, msg); err != nil {
		s.logger.Warn("failed to write audit event", "op", op, "error", err)
	}
}
