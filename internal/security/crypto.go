package security

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

	"golang.org/x/crypto/hkdf"
)

const secretsKeyInfo = "support-widget plugin secrets v1"

// Encryptor seals plugin secrets with AES-GCM. Callers pass associated data
// (organization and service) so a ciphertext only opens for the row it was
// written to.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor creates an encryptor from a raw AES key of 16, 24 or 32 bytes
func NewEncryptor(key []byte) (*Encryptor, error) {
	keyLen := len(key)
	if keyLen != 16 && keyLen != 24 && keyLen != 32 {
		return nil, fmt.Errorf("invalid key length: %d (must be 16, 24, or 32)", keyLen)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Encryptor{aead: aead}, nil
}

// NewEncryptorFromSecret accepts either a base64 AES key or an arbitrary
// passphrase, which is stretched to a 256-bit key with HKDF-SHA256.
func NewEncryptorFromSecret(secret string) (*Encryptor, error) {
	if secret == "" {
		return nil, errors.New("secrets key is empty")
	}

	if key, err := base64.StdEncoding.DecodeString(secret); err == nil {
		switch len(key) {
		case 16, 24, 32:
			return NewEncryptor(key)
		}
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(secretsKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return NewEncryptor(key)
}

// Encrypt seals plaintext; the nonce is prepended to the ciphertext
func (e *Encryptor) Encrypt(plaintext, associatedData []byte) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return e.aead.Seal(nonce, nonce, plaintext, associatedData), nil
}

// Decrypt opens a ciphertext produced by Encrypt with the same associated data
func (e *Encryptor) Decrypt(ciphertext, associatedData []byte) ([]byte, error) {
	nonceSize := e.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, sealed, associatedData)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}

// EncryptJSON encrypts a struct as JSON
func (e *Encryptor) EncryptJSON(v any, associatedData []byte) ([]byte, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return e.Encrypt(plaintext, associatedData)
}

// DecryptJSON decrypts and unmarshals JSON into a struct
func (e *Encryptor) DecryptJSON(ciphertext, associatedData []byte, v any) error {
	plaintext, err := e.Decrypt(ciphertext, associatedData)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}
