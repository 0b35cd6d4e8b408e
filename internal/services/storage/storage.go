// Package storage gives the loader transparent access to a ledger directory
// whose files may be age-encrypted with a passphrase.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"filippo.io/age"
	"github.com/sirupsen/logrus"
)

const (
	ageHeader = "age-encryption.org"

	// markerFile is present while the directory is encrypted
	markerFile = ".encrypted"

	// verifyFile holds verifyMagic encrypted with the passphrase
	verifyFile  = ".encryption-verify"
	verifyMagic = `{"magic":"budgetinsights-ledger","version":1}`

	// MinPassphraseLength is the shortest accepted passphrase
	MinPassphraseLength = 8
)

var (
	ErrLocked           = errors.New("ledger is encrypted and locked")
	ErrWrongPassphrase  = errors.New("incorrect passphrase")
	ErrWeakPassphrase   = fmt.Errorf("passphrase must be at least %d characters", MinPassphraseLength)
	ErrAlreadyEncrypted = errors.New("encryption is already enabled")
	ErrNotEncrypted     = errors.New("encryption is not enabled")
)

// Storage reads and writes ledger files under one directory
type Storage struct {
	baseDir   string
	encrypted bool
	identity  *age.ScryptIdentity
	recipient *age.ScryptRecipient
	// workFactor overrides the scrypt cost when non-zero
	workFactor int
	log        *logrus.Entry
	mu         sync.RWMutex
}

// New opens the ledger directory. Whether it is encrypted is decided by the
// marker file.
func New(baseDir string, log *logrus.Entry) (*Storage, error) {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = logrus.NewEntry(discard)
	}

	s := &Storage{baseDir: baseDir, log: log.WithField("dir", baseDir)}

	if _, err := os.Stat(filepath.Join(baseDir, markerFile)); err == nil {
		s.encrypted = true
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat marker: %w", err)
	}

	return s, nil
}

// SetWorkFactor sets the scrypt cost (log2) for keys derived afterwards.
// Zero restores the age default.
func (s *Storage) SetWorkFactor(logN int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workFactor = logN
}

// BaseDir returns the ledger directory
func (s *Storage) BaseDir() string {
	return s.baseDir
}

// IsEncrypted reports whether the ledger is encrypted at rest
func (s *Storage) IsEncrypted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.encrypted
}

// IsUnlocked reports whether files can be read
func (s *Storage) IsUnlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.encrypted || s.identity != nil
}

// Unlock checks the passphrase against the verify file and keeps the key in memory
func (s *Storage) Unlock(passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return nil
	}

	identity, recipient, err := s.keys(passphrase)
	if err != nil {
		return err
	}
	if err := s.verify(identity); err != nil {
		return err
	}

	s.identity = identity
	s.recipient = recipient
	s.log.Info("Ledger unlocked")
	return nil
}

// Lock forgets the key
func (s *Storage) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = nil
	s.recipient = nil
}

// ReadFile returns the plaintext of name, which is resolved against the base
// directory when relative.
func (s *Storage) ReadFile(name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.resolve(name))
	if err != nil {
		return nil, err
	}

	if isAgeEncrypted(data) {
		if s.identity == nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(name), ErrLocked)
		}
		return decryptData(data, s.identity)
	}

	return data, nil
}

// OpenFile returns a reader over the plaintext of name
func (s *Storage) OpenFile(name string) (io.ReadCloser, error) {
	data, err := s.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// WriteFile writes name atomically, encrypting ledger files while encryption
// is enabled. Writing to a locked encrypted ledger fails.
func (s *Storage) WriteFile(name string, data []byte, perm os.FileMode) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.resolve(name)
	if s.encrypted && isLedgerFile(path) {
		if s.recipient == nil {
			return fmt.Errorf("%s: %w", filepath.Base(name), ErrLocked)
		}
		encrypted, err := encryptData(data, s.recipient)
		if err != nil {
			return fmt.Errorf("encrypt %s: %w", filepath.Base(name), err)
		}
		data = encrypted
	}

	return atomicWrite(path, data, perm)
}

// Glob lists files matching pattern relative to the base directory, sorted
func (s *Storage) Glob(pattern string) ([]string, error) {
	return filepath.Glob(s.resolve(pattern))
}

// Exists reports whether name is present
func (s *Storage) Exists(name string) bool {
	_, err := os.Stat(s.resolve(name))
	return err == nil
}

func (s *Storage) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.baseDir, name)
}

// keys derives the scrypt identity and recipient for a passphrase
func (s *Storage) keys(passphrase string) (*age.ScryptIdentity, *age.ScryptRecipient, error) {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, nil, fmt.Errorf("derive identity: %w", err)
	}
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, nil, fmt.Errorf("derive recipient: %w", err)
	}
	if s.workFactor > 0 {
		recipient.SetWorkFactor(s.workFactor)
	}
	return identity, recipient, nil
}

func (s *Storage) verify(identity *age.ScryptIdentity) error {
	encrypted, err := os.ReadFile(filepath.Join(s.baseDir, verifyFile))
	if err != nil {
		return fmt.Errorf("read verify file: %w", err)
	}
	decrypted, err := decryptData(encrypted, identity)
	if err != nil || string(decrypted) != verifyMagic {
		return ErrWrongPassphrase
	}
	return nil
}

func atomicWrite(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// isLedgerFile reports whether path holds ledger data (CSV or JSON)
func isLedgerFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".json":
		return true
	}
	return false
}

func isAgeEncrypted(data []byte) bool {
	return len(data) > len(ageHeader) && string(data[:len(ageHeader)]) == ageHeader
}
