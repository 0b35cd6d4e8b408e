package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"filippo.io/age"
)

// EnableEncryption encrypts every CSV and JSON file in the ledger directory
// with the passphrase. On failure files already encrypted are restored.
func (s *Storage) EnableEncryption(passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encrypted {
		return ErrAlreadyEncrypted
	}
	if len(passphrase) < MinPassphraseLength {
		return ErrWeakPassphrase
	}

	identity, recipient, err := s.keys(passphrase)
	if err != nil {
		return err
	}

	verifyPath := filepath.Join(s.baseDir, verifyFile)
	sealed, err := encryptData([]byte(verifyMagic), recipient)
	if err != nil {
		return fmt.Errorf("encrypt verify file: %w", err)
	}
	if err := atomicWrite(verifyPath, sealed, 0600); err != nil {
		return fmt.Errorf("write verify file: %w", err)
	}

	files, err := s.ledgerFiles()
	if err != nil {
		os.Remove(verifyPath)
		return err
	}

	var done []string
	for _, path := range files {
		if err := transform(path, func(data []byte) ([]byte, bool, error) {
			if isAgeEncrypted(data) {
				return nil, false, nil
			}
			out, err := encryptData(data, recipient)
			return out, true, err
		}); err != nil {
			s.restore(done, identity)
			os.Remove(verifyPath)
			return fmt.Errorf("encrypt %s: %w", filepath.Base(path), err)
		}
		done = append(done, path)
	}

	if err := os.WriteFile(filepath.Join(s.baseDir, markerFile), []byte("encrypted"), 0644); err != nil {
		return fmt.Errorf("write marker: %w", err)
	}

	s.encrypted = true
	s.identity = identity
	s.recipient = recipient
	s.log.WithField("files", len(files)).Info("Ledger encrypted")
	return nil
}

// DisableEncryption decrypts the ledger back to plaintext
func (s *Storage) DisableEncryption(passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return ErrNotEncrypted
	}

	identity, _, err := s.keys(passphrase)
	if err != nil {
		return err
	}
	if err := s.verify(identity); err != nil {
		return err
	}

	files, err := s.ledgerFiles()
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := transform(path, func(data []byte) ([]byte, bool, error) {
			if !isAgeEncrypted(data) {
				return nil, false, nil
			}
			out, err := decryptData(data, identity)
			return out, true, err
		}); err != nil {
			return fmt.Errorf("decrypt %s: %w", filepath.Base(path), err)
		}
	}

	os.Remove(filepath.Join(s.baseDir, markerFile))
	os.Remove(filepath.Join(s.baseDir, verifyFile))

	s.encrypted = false
	s.identity = nil
	s.recipient = nil
	s.log.WithField("files", len(files)).Info("Ledger decrypted")
	return nil
}

// ledgerFiles walks the directory for CSV and JSON files
func (s *Storage) ledgerFiles() ([]string, error) {
	var files []string
	err := filepath.Walk(s.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && isLedgerFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan ledger: %w", err)
	}
	return files, nil
}

// transform rewrites path in place when fn reports a change
func transform(path string, fn func([]byte) ([]byte, bool, error)) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, changed, err := fn(data)
	if err != nil || !changed {
		return err
	}
	return atomicWrite(path, out, info.Mode().Perm())
}

// restore decrypts files encrypted by an interrupted EnableEncryption
func (s *Storage) restore(files []string, identity *age.ScryptIdentity) {
	for _, path := range files {
		err := transform(path, func(data []byte) ([]byte, bool, error) {
			if !isAgeEncrypted(data) {
				return nil, false, nil
			}
			out, err := decryptData(data, identity)
			return out, true, err
		})
		if err != nil {
			s.log.WithError(err).WithField("file", filepath.Base(path)).Error("Could not restore file")
		}
	}
}
