// Package file persists the user's default settings as a single encrypted
// TOML blob with owner-only permissions.
package file

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"iacgenius/internal/domain/entity"
	"iacgenius/internal/domain/repository"
	"iacgenius/internal/infrastructure/metrics"
	"iacgenius/internal/infrastructure/secret"
)

const defaultFileName = ".iacgeniusrc"

// fileConfig is the plaintext structure of the settings file before
// encryption. The api_key inside Defaults is itself codec ciphertext.
type fileConfig struct {
	Defaults entity.Settings            `toml:"defaults"`
	Presets  map[string]entity.Settings `toml:"presets"`
}

type SettingsStore struct {
	path   string
	codec  *secret.Codec
	logger *slog.Logger
}

var _ repository.SettingsStore = (*SettingsStore)(nil)

// NewSettingsStore opens a store at path; an empty path selects
// ~/.iacgeniusrc.
func NewSettingsStore(path string, codec *secret.Codec, logger *slog.Logger) (*SettingsStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home directory: %w", err)
		}
		path = filepath.Join(home, defaultFileName)
	}
	return &SettingsStore{path: path, codec: codec, logger: logger}, nil
}

// Read loads the stored defaults, decrypts the secret field and applies the
// generic environment overrides. A missing file means built-in defaults; a
// corrupted file degrades to built-in defaults with a warning. Only an
// unobtainable encryption key is an error.
func (s *SettingsStore) Read() (entity.Settings, error) {
	metrics.IncSettingsOp("read")

	cfg, err := s.load()
	if err != nil {
		return entity.Settings{}, err
	}

	defaults := entity.DefaultSettings().Merge(cfg.Defaults)

	env := entity.Settings{
		Provider: os.Getenv("IACGENIUS_PROVIDER"),
		Model:    os.Getenv("IACGENIUS_MODEL"),
		APIKey:   os.Getenv("IACGENIUS_API_KEY"),
	}
	return defaults.Merge(env), nil
}

// Write replaces the stored defaults, wrapping the secret field, and persists
// the whole blob encrypted with 0600 permissions. Presets are preserved.
func (s *SettingsStore) Write(settings entity.Settings) error {
	metrics.IncSettingsOp("write")

	cfg, err := s.load()
	if err != nil {
		return err
	}
	wrapped, err := s.wrapSecret(settings)
	if err != nil {
		return err
	}
	cfg.Defaults = wrapped
	return s.persist(cfg)
}

// Update merges partial into the stored defaults without touching unrelated
// fields, then persists. Provider/model validation happens one layer up,
// where the registry is known.
func (s *SettingsStore) Update(partial entity.Settings) (entity.Settings, error) {
	metrics.IncSettingsOp("update")

	cfg, err := s.load()
	if err != nil {
		return entity.Settings{}, err
	}
	merged := cfg.Defaults.Merge(partial)

	wrapped, err := s.wrapSecret(merged)
	if err != nil {
		return entity.Settings{}, err
	}
	cfg.Defaults = wrapped
	if err := s.persist(cfg); err != nil {
		return entity.Settings{}, err
	}
	return merged, nil
}

// Preset returns the named preset, with its secret decrypted.
func (s *SettingsStore) Preset(name string) (entity.Settings, bool, error) {
	cfg, err := s.load()
	if err != nil {
		return entity.Settings{}, false, err
	}
	p, ok := cfg.Presets[name]
	if !ok {
		return entity.Settings{}, false, nil
	}
	return s.unwrapSecret(p), true, nil
}

// SavePreset stores settings under name, wrapping the secret field.
func (s *SettingsStore) SavePreset(name string, settings entity.Settings) error {
	if name == "" {
		return &entity.ConfigError{Reason: "preset name is required"}
	}
	cfg, err := s.load()
	if err != nil {
		return err
	}
	wrapped, err := s.wrapSecret(settings)
	if err != nil {
		return err
	}
	if cfg.Presets == nil {
		cfg.Presets = map[string]entity.Settings{}
	}
	cfg.Presets[name] = wrapped
	return s.persist(cfg)
}

// DeletePreset removes the named preset; deleting a missing preset is a no-op.
func (s *SettingsStore) DeletePreset(name string) error {
	cfg, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := cfg.Presets[name]; !ok {
		return nil
	}
	delete(cfg.Presets, name)
	return s.persist(cfg)
}

// load reads and decrypts the raw file without applying environment
// overrides. Defaults.APIKey comes back as plaintext.
func (s *SettingsStore) load() (fileConfig, error) {
	cfg := fileConfig{Presets: map[string]entity.Settings{}}

	blob, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		s.logger.Warn("settings file unreadable, using defaults", "path", s.path, "err", err)
		return cfg, nil
	}

	plaintext, err := s.codec.Unwrap(string(blob))
	if err != nil {
		if errors.Is(err, entity.ErrDecrypt) {
			s.logger.Warn("settings file could not be decrypted, using defaults", "path", s.path, "err", err)
			metrics.IncError("settings_store", "decrypt_degraded")
			return cfg, nil
		}
		// Key unobtainable: the one case Read is allowed to fail.
		return fileConfig{}, &entity.ConfigError{Reason: "cannot obtain settings encryption key", Err: err}
	}

	if err := toml.Unmarshal([]byte(plaintext), &cfg); err != nil {
		s.logger.Warn("settings file is not valid TOML, using defaults", "path", s.path, "err", err)
		metrics.IncError("settings_store", "parse_degraded")
		return fileConfig{Presets: map[string]entity.Settings{}}, nil
	}

	cfg.Defaults = s.unwrapSecret(cfg.Defaults)
	return cfg, nil
}

func (s *SettingsStore) persist(cfg fileConfig) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return &entity.ConfigError{Reason: "failed to encode settings", Err: err}
	}
	blob, err := s.codec.Wrap(buf.String())
	if err != nil {
		return &entity.ConfigError{Reason: "failed to encrypt settings", Err: err}
	}
	if err := os.WriteFile(s.path, []byte(blob), 0o600); err != nil {
		metrics.IncError("settings_store", "write_error")
		return &entity.ConfigError{Reason: "failed to write settings file", Err: err}
	}
	// Guard against a pre-existing file with looser permissions.
	if err := os.Chmod(s.path, 0o600); err != nil {
		return &entity.ConfigError{Reason: "failed to set settings file permissions", Err: err}
	}
	return nil
}

func (s *SettingsStore) wrapSecret(settings entity.Settings) (entity.Settings, error) {
	if settings.APIKey == "" {
		return settings, nil
	}
	wrapped, err := s.codec.Wrap(settings.APIKey)
	if err != nil {
		return entity.Settings{}, &entity.ConfigError{Reason: "failed to encrypt secret", Err: err}
	}
	settings.APIKey = wrapped
	return settings, nil
}

func (s *SettingsStore) unwrapSecret(settings entity.Settings) entity.Settings {
	if settings.APIKey == "" {
		return settings
	}
	plain, err := s.codec.Unwrap(settings.APIKey)
	if err != nil {
		s.logger.Warn("stored secret could not be decrypted, treating as absent", "err", err)
		metrics.IncError("settings_store", "secret_decrypt_degraded")
		settings.APIKey = ""
		return settings
	}
	settings.APIKey = plain
	return settings
}
