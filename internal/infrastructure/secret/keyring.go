package secret

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/zalando/go-keyring"

	"iacgenius/internal/domain/repository"
)

const (
	serviceName = "iacgenius"
	keyEntry    = "config_key"
)

// AESKeySize is the AES-256 key length in bytes.
const AESKeySize = 32

// KeyringStore keeps the symmetric encryption key in the platform secure
// credential store, separate from the settings file it protects.
type KeyringStore struct {
	service string
	entry   string
}

var _ repository.KeyStore = (*KeyringStore)(nil)

func NewKeyringStore() *KeyringStore {
	return &KeyringStore{service: serviceName, entry: keyEntry}
}

// GetOrCreateKey reads the named keyring entry, generating and persisting a
// fresh key when none exists. An unreachable keyring is fatal: without the
// key the settings file can neither be read nor written.
func (k *KeyringStore) GetOrCreateKey() ([]byte, error) {
	encoded, err := keyring.Get(k.service, k.entry)
	if err == nil {
		key, decErr := base64.StdEncoding.DecodeString(encoded)
		if decErr != nil || len(key) != AESKeySize {
			return nil, fmt.Errorf("keyring entry %s/%s holds an invalid key", k.service, k.entry)
		}
		return key, nil
	}
	if err != keyring.ErrNotFound {
		return nil, fmt.Errorf("secure store unreachable: %w", err)
	}

	key := make([]byte, AESKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	if err := keyring.Set(k.service, k.entry, base64.StdEncoding.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("failed to store key in secure store: %w", err)
	}
	return key, nil
}
