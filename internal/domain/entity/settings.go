package entity

// Settings is the {provider, model, secret} triple. Inside the settings file
// APIKey is ciphertext; in memory after a Read it is always plaintext.
type Settings struct {
	Provider string `toml:"provider" json:"provider"`
	Model    string `toml:"model" json:"model,omitempty"`
	APIKey   string `toml:"api_key" json:"-"`
}

const (
	DefaultProvider = "deepseek"
	DefaultModel    = "deepseek-chat"
)

// DefaultSettings are the built-in defaults used when no file exists.
func DefaultSettings() Settings {
	return Settings{
		Provider: DefaultProvider,
		Model:    DefaultModel,
	}
}

// Merge overlays non-empty fields of other onto s and returns the result.
// Used both for partial updates and for precedence resolution, applied
// lowest-priority first.
func (s Settings) Merge(other Settings) Settings {
	if other.Provider != "" {
		s.Provider = other.Provider
	}
	if other.Model != "" {
		s.Model = other.Model
	}
	if other.APIKey != "" {
		s.APIKey = other.APIKey
	}
	return s
}

// IsZero reports whether no field is set.
func (s Settings) IsZero() bool {
	return s.Provider == "" && s.Model == "" && s.APIKey == ""
}
