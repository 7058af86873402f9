// Package secret wraps and unwraps the configuration file's sensitive fields
// with AES-256-GCM, keyed from the platform secure credential store.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"iacgenius/internal/domain/entity"
	"iacgenius/internal/domain/repository"
)

// Codec performs symmetric encryption of a single blob. Ciphertext layout is
// base64(nonce || encrypted data || auth tag).
type Codec struct {
	keys repository.KeyStore
}

func NewCodec(keys repository.KeyStore) *Codec {
	return &Codec{keys: keys}
}

// Wrap encrypts plaintext with a random nonce.
func (c *Codec) Wrap(plaintext string) (string, error) {
	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Unwrap decrypts ciphertext produced by Wrap. Corrupted or foreign input
// yields entity.ErrDecrypt so the settings store can degrade instead of fail.
func (c *Codec) Unwrap(encoded string) (string, error) {
	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: not valid base64", entity.ErrDecrypt)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", entity.ErrDecrypt)
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", entity.ErrDecrypt, err)
	}
	return string(plaintext), nil
}

func (c *Codec) gcm() (cipher.AEAD, error) {
	key, err := c.keys.GetOrCreateKey()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
