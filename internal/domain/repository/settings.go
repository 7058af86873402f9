package repository

import "iacgenius/internal/domain/entity"

// SettingsStore persists the user's default provider/model/secret triple and
// named presets. Read never fails for a missing or unreadable file; it only
// fails when the encryption key itself cannot be obtained.
type SettingsStore interface {
	Read() (entity.Settings, error)
	Write(entity.Settings) error
	Update(partial entity.Settings) (entity.Settings, error)

	Preset(name string) (entity.Settings, bool, error)
	SavePreset(name string, s entity.Settings) error
	DeletePreset(name string) error
}

// KeyStore hands out the single symmetric key backing the secret codec,
// creating it on first use.
type KeyStore interface {
	GetOrCreateKey() ([]byte, error)
}
