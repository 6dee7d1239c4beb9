package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

// ErrPasswordNotFound is returned when no password is stored for an account.
var ErrPasswordNotFound = errors.New("no stored password")

// StorageBackend defines the interface for password storage
type StorageBackend interface {
	Save(account, secret string) error
	Load(account string) (string, error)
	Delete(account string) error
	Name() string
}

// KeyringStorage uses system keyring for password storage
type KeyringStorage struct {
	serviceName string
}

// NewKeyringStorage creates a keyring storage backend
func NewKeyringStorage(serviceName string) *KeyringStorage {
	return &KeyringStorage{
		serviceName: serviceName,
	}
}

func (s *KeyringStorage) Save(account, secret string) error {
	return keyring.Set(s.serviceName, account, secret)
}

func (s *KeyringStorage) Load(account string) (string, error) {
	secret, err := keyring.Get(s.serviceName, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrPasswordNotFound
	}
	return secret, err
}

func (s *KeyringStorage) Delete(account string) error {
	err := keyring.Delete(s.serviceName, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrPasswordNotFound
	}
	return err
}

func (s *KeyringStorage) Name() string {
	return "system-keyring"
}

// EncryptedFileStorage stores passwords in AES-GCM encrypted files, for hosts
// without a keyring daemon.
type EncryptedFileStorage struct {
	baseDir string
	key     []byte
}

// NewEncryptedFileStorage creates an encrypted file storage backend
func NewEncryptedFileStorage(baseDir string) (*EncryptedFileStorage, error) {
	key, err := getOrCreateEncryptionKey(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get encryption key: %w", err)
	}

	return &EncryptedFileStorage{
		baseDir: baseDir,
		key:     key,
	}, nil
}

func (s *EncryptedFileStorage) Save(account, secret string) error {
	encrypted, err := s.encrypt([]byte(secret))
	if err != nil {
		return fmt.Errorf("failed to encrypt password: %w", err)
	}

	path := s.secretFilePath(account)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	return os.WriteFile(path, encrypted, 0600)
}

func (s *EncryptedFileStorage) Load(account string) (string, error) {
	encrypted, err := os.ReadFile(s.secretFilePath(account))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrPasswordNotFound
		}
		return "", err
	}

	plain, err := s.decrypt(encrypted)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (s *EncryptedFileStorage) Delete(account string) error {
	err := os.Remove(s.secretFilePath(account))
	if os.IsNotExist(err) {
		return ErrPasswordNotFound
	}
	return err
}

func (s *EncryptedFileStorage) Name() string {
	return "encrypted-file"
}

// secretFilePath encodes the account so that '@' and ':' never reach the filesystem.
func (s *EncryptedFileStorage) secretFilePath(account string) string {
	name := base64.RawURLEncoding.EncodeToString([]byte(account))
	return filepath.Join(s.baseDir, "passwords", name+".enc")
}

// encrypt encrypts data using AES-GCM
func (s *EncryptedFileStorage) encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decrypt decrypts data using AES-GCM
func (s *EncryptedFileStorage) decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("invalid ciphertext")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertext = ciphertext[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt password: %w", err)
	}

	return plaintext, nil
}

// getOrCreateEncryptionKey generates or loads the encryption key
func getOrCreateEncryptionKey(baseDir string) ([]byte, error) {
	keyFile := filepath.Join(baseDir, ".keyfile")

	if data, err := os.ReadFile(keyFile); err == nil {
		key, err := base64.StdEncoding.DecodeString(string(data))
		if err == nil && len(key) == 32 {
			return key, nil
		}
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, err
	}

	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(keyFile, []byte(encoded), 0600); err != nil {
		return nil, err
	}

	return key, nil
}
