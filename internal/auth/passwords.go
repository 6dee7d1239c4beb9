// Package auth stores FTP passwords outside the config file and decides which
// password a run uses.
package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/dl-alexandre/ftpfetch/internal/utils"
)

// Source names where a resolved password came from.
type Source string

const (
	SourceFlag   Source = "flag"
	SourceConfig Source = "config"
	SourceStore  Source = "store"
	SourceNone   Source = "none"
)

// PasswordStore keeps one password per account ("user@host:port").
type PasswordStore struct {
	storage        StorageBackend
	storageWarning string
}

// StoreOptions configures the password store
type StoreOptions struct {
	// ForceEncryptedFile skips the system keyring.
	ForceEncryptedFile bool
}

// NewPasswordStore picks the system keyring when it works and falls back to
// encrypted files under configDir.
func NewPasswordStore(configDir string, opts StoreOptions) (*PasswordStore, error) {
	if !opts.ForceEncryptedFile && checkKeyringAvailable() {
		return &PasswordStore{storage: NewKeyringStorage(utils.KeyringService)}, nil
	}

	storage, err := NewEncryptedFileStorage(configDir)
	if err != nil {
		return nil, err
	}
	store := &PasswordStore{storage: storage}
	if !opts.ForceEncryptedFile {
		store.storageWarning = "INFO: System keyring not available. Using encrypted file storage."
	}
	return store, nil
}

// NewPasswordStoreWithBackend wraps an explicit backend.
func NewPasswordStoreWithBackend(storage StorageBackend) *PasswordStore {
	return &PasswordStore{storage: storage}
}

// checkKeyringAvailable tests if system keyring is available
func checkKeyringAvailable() bool {
	testKey := "ftpfetch-test"
	if err := keyring.Set(utils.KeyringService, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(utils.KeyringService, testKey)
	return true
}

func (s *PasswordStore) Backend() string {
	return s.storage.Name()
}

// Warning is non-empty when the store fell back from the keyring.
func (s *PasswordStore) Warning() string {
	return s.storageWarning
}

func (s *PasswordStore) Set(account, password string) error {
	if account == "" {
		return errors.New("account must not be empty")
	}
	if err := s.storage.Save(account, password); err != nil {
		return fmt.Errorf("failed to store password in %s: %w", s.storage.Name(), err)
	}
	return nil
}

// Get returns ErrPasswordNotFound when nothing is stored for account.
func (s *PasswordStore) Get(account string) (string, error) {
	return s.storage.Load(account)
}

func (s *PasswordStore) Delete(account string) error {
	return s.storage.Delete(account)
}

// Resolve applies the precedence flag > config (file or environment) > store.
// A missing stored password is not an error; the server may accept an empty one.
func (s *PasswordStore) Resolve(flagValue, configValue, account string) (string, Source, error) {
	if flagValue != "" {
		return flagValue, SourceFlag, nil
	}
	if configValue != "" {
		return configValue, SourceConfig, nil
	}
	if s == nil {
		return "", SourceNone, nil
	}
	password, err := s.Get(account)
	switch {
	case err == nil:
		return password, SourceStore, nil
	case errors.Is(err, ErrPasswordNotFound):
		return "", SourceNone, nil
	default:
		return "", SourceNone, err
	}
}
