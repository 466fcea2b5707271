// Package securestore persists the session token and cached guard profile
// in a single encrypted file. The file is the durable backing copy of the
// session; the in-memory session manager writes through on every mutation.
//
// Layout: 16-byte scrypt salt, then an AES-GCM sealed JSON record with the
// nonce prepended to the ciphertext. A fresh nonce is generated per write
// and the file is replaced atomically.
package securestore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/scrypt"

	guard "github.com/gatepass/guard-go"
)

const saltSize = 16

// scrypt parameters, interactive-login strength.
const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// record is the plaintext content of the store file. Exactly two values
// are persisted; no other on-device state exists.
type record struct {
	Token   string              `json:"token,omitempty"`
	Profile *guard.GuardProfile `json:"profile,omitempty"`
}

// FileStore is an encrypted file-backed guard.SessionStore.
type FileStore struct {
	mu         sync.Mutex
	path       string
	passphrase []byte
}

var _ guard.SessionStore = (*FileStore)(nil)

// NewFileStore creates a store at path, encrypting with a key derived from
// passphrase. The file is created lazily on first write.
func NewFileStore(path string, passphrase []byte) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("guard/securestore: path is required")
	}
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("guard/securestore: passphrase is required")
	}
	return &FileStore{path: path, passphrase: append([]byte(nil), passphrase...)}, nil
}

// Token returns the stored token, or "" if none is stored.
func (s *FileStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load()
	if err != nil {
		return "", err
	}
	return rec.Token, nil
}

// SetToken stores the token, replacing any previous value.
func (s *FileStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load()
	if err != nil {
		return err
	}
	rec.Token = token
	return s.save(rec)
}

// Profile returns the cached profile, or nil if none is stored.
func (s *FileStore) Profile() (*guard.GuardProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load()
	if err != nil {
		return nil, err
	}
	return rec.Profile, nil
}

// SetProfile stores the cached profile.
func (s *FileStore) SetProfile(profile *guard.GuardProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load()
	if err != nil {
		return err
	}
	rec.Profile = profile
	return s.save(rec)
}

// Clear removes the token and cached profile by deleting the file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("guard/securestore: clear: %w", err)
	}
	return nil
}

// load reads and decrypts the file. A missing file is an empty record.
func (s *FileStore) load() (*record, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &record{}, nil
		}
		return nil, fmt.Errorf("guard/securestore: read: %w", err)
	}
	if len(raw) < saltSize {
		return nil, fmt.Errorf("guard/securestore: file truncated")
	}

	salt := raw[:saltSize]
	aead, err := s.aead(salt)
	if err != nil {
		return nil, err
	}

	sealed := raw[saltSize:]
	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("guard/securestore: file truncated")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]

	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("guard/securestore: decrypt: %w", err)
	}

	var rec record
	if err := json.Unmarshal(plain, &rec); err != nil {
		return nil, fmt.Errorf("guard/securestore: decode: %w", err)
	}
	return &rec, nil
}

// save encrypts and atomically replaces the file.
func (s *FileStore) save(rec *record) error {
	plain, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("guard/securestore: encode: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("guard/securestore: salt: %w", err)
	}
	aead, err := s.aead(salt)
	if err != nil {
		return err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("guard/securestore: nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plain, nil)

	out := make([]byte, 0, saltSize+len(sealed))
	out = append(out, salt...)
	out = append(out, sealed...)

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".guardsession-*")
	if err != nil {
		return fmt.Errorf("guard/securestore: write: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("guard/securestore: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("guard/securestore: write: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("guard/securestore: replace: %w", err)
	}
	return nil
}

// aead derives the AES-GCM cipher for the given salt.
func (s *FileStore) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(s.passphrase, salt, scryptN, scryptR, scryptP, 32)
	if err != nil {
		return nil, fmt.Errorf("guard/securestore: derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("guard/securestore: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("guard/securestore: create AEAD: %w", err)
	}
	return aead, nil
}
