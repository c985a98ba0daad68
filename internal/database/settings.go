// file: internal/database/settings.go
// version: 2.0.0
// guid: 8a7b6c5d-4e3f-2a1b-0c9d-8e7f6a5b4c3d

package database

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble/v2"
)

// Setting represents a stored configuration setting
type Setting struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Type     string `json:"type"`      // "string", "int", "bool", "json"
	IsSecret bool   `json:"is_secret"` // If true, value is encrypted
}

// Encryption key derivation and storage
var encryptionKey []byte

// InitEncryption initializes or loads the encryption key
func InitEncryption(dataDir string) error {
	keyPath := filepath.Join(dataDir, ".encryption_key")

	// Try to load existing key
	if data, err := os.ReadFile(keyPath); err == nil {
		encryptionKey = data
		if len(encryptionKey) != 32 {
			return fmt.Errorf("invalid encryption key length: %d", len(encryptionKey))
		}
		return nil
	}

	// Generate new key
	encryptionKey = make([]byte, 32) // AES-256
	if _, err := io.ReadFull(rand.Reader, encryptionKey); err != nil {
		return fmt.Errorf("failed to generate encryption key: %w", err)
	}

	// Save key with restrictive permissions
	if err := os.WriteFile(keyPath, encryptionKey, 0600); err != nil {
		return fmt.Errorf("failed to save encryption key: %w", err)
	}

	return nil
}

// DeriveKeyFromPassword can be used as alternative to random key
func DeriveKeyFromPassword(password string) []byte {
	hash := sha256.Sum256([]byte(password))
	return hash[:]
}

// EncryptValue encrypts a plaintext value
func EncryptValue(plaintext string) (string, error) {
	if encryptionKey == nil {
		return "", fmt.Errorf("encryption key not initialized")
	}

	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptValue decrypts an encrypted value
func DecryptValue(encrypted string) (string, error) {
	if encryptionKey == nil {
		return "", fmt.Errorf("encryption key not initialized")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

// MaskSecret returns a masked version of a secret (for display)
func MaskSecret(secret string) string {
	if len(secret) < 8 {
		return "****"
	}
	return secret[:3] + "****" + secret[len(secret)-4:]
}

// PebbleDB implementation
func (s *PebbleStore) GetSetting(key string) (*Setting, error) {
	data, err := s.getRaw("setting:" + key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("setting not found: %s: %w", key, ErrNotFound)
		}
		return nil, err
	}
	var setting Setting
	if err := json.Unmarshal(data, &setting); err != nil {
		return nil, err
	}
	return &setting, nil
}

func (s *PebbleStore) SetSetting(key, value, typ string, isSecret bool) error {
	setting, err := newSetting(key, value, typ, isSecret)
	if err != nil {
		return err
	}
	data, err := json.Marshal(setting)
	if err != nil {
		return err
	}
	return s.setRaw("setting:"+key, data)
}

func (s *PebbleStore) GetAllSettings() ([]Setting, error) {
	var settings []Setting

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("setting:"),
		UpperBound: []byte("setting:\xff"),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var setting Setting
		if err := json.Unmarshal(iter.Value(), &setting); err != nil {
			continue
		}
		settings = append(settings, masked(setting))
	}

	return settings, nil
}

func (s *PebbleStore) DeleteSetting(key string) error {
	return s.db.Delete([]byte("setting:"+key), pebble.Sync)
}

// newSetting builds a Setting, encrypting secret values.
func newSetting(key, value, typ string, isSecret bool) (Setting, error) {
	storedValue := value
	if isSecret && value != "" {
		encrypted, err := EncryptValue(value)
		if err != nil {
			return Setting{}, fmt.Errorf("encryption failed: %w", err)
		}
		storedValue = encrypted
	}
	return Setting{Key: key, Value: storedValue, Type: typ, IsSecret: isSecret}, nil
}

// masked hides secrets in list views.
func masked(setting Setting) Setting {
	if setting.IsSecret && setting.Value != "" {
		setting.Value = MaskSecret(setting.Value)
	}
	return setting
}

// GetDecryptedSetting returns the plain value of a setting. Missing
// settings return "" and no error.
func GetDecryptedSetting(store Store, key string) (string, error) {
	setting, err := store.GetSetting(key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !setting.IsSecret || setting.Value == "" {
		return setting.Value, nil
	}
	return DecryptValue(setting.Value)
}
