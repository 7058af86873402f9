package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iacgenius/internal/domain/entity"
)

func TestNewUnknownProviderEnumeratesIdentifiers(t *testing.T) {
	_, err := New(context.Background(), "unknown-vendor", "", Options{})
	require.Error(t, err)

	var cfgErr *entity.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "unknown-vendor", cfgErr.Value)
	assert.Equal(t, Providers(), cfgErr.Allowed)
	assert.Contains(t, err.Error(), "deepseek")
	assert.Contains(t, err.Error(), "bedrock")
}

func TestNewMissingSecretIsConfigError(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("IACGENIUS_API_KEY", "")

	_, err := New(context.Background(), ProviderDeepseek, "", Options{})
	require.Error(t, err)

	var cfgErr *entity.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, ProviderDeepseek, cfgErr.Provider)
	assert.Contains(t, err.Error(), "DEEPSEEK_API_KEY")
}

func TestProvidersStableOrder(t *testing.T) {
	first := Providers()
	second := Providers()
	assert.Equal(t, first, second)
	assert.Len(t, first, len(constructors))

	// Returned slice is a copy; callers cannot corrupt the registry.
	first[0] = "mutated"
	assert.NotEqual(t, first[0], Providers()[0])
}

func TestRequiresSecret(t *testing.T) {
	assert.True(t, RequiresSecret(ProviderDeepseek))
	assert.True(t, RequiresSecret(ProviderOpenAI))
	assert.True(t, RequiresSecret(ProviderAnthropic))
	assert.True(t, RequiresSecret(ProviderOpenRouter))
	assert.False(t, RequiresSecret(ProviderBedrock))
	assert.False(t, RequiresSecret(ProviderOllama))
}

func TestResolveSecretPrecedence(t *testing.T) {
	t.Setenv("IACGENIUS_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	t.Run("stored default is the floor", func(t *testing.T) {
		assert.Equal(t, "stored", resolveSecret("", ProviderOpenAI, "stored"))
	})

	t.Run("provider env beats stored", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "provider-env")
		assert.Equal(t, "provider-env", resolveSecret("", ProviderOpenAI, "stored"))
	})

	t.Run("generic env beats provider env", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "provider-env")
		t.Setenv("IACGENIUS_API_KEY", "generic-env")
		assert.Equal(t, "generic-env", resolveSecret("", ProviderOpenAI, "stored"))
	})

	t.Run("explicit argument beats everything", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "provider-env")
		t.Setenv("IACGENIUS_API_KEY", "generic-env")
		assert.Equal(t, "explicit", resolveSecret("explicit", ProviderOpenAI, "stored"))
	})
}
