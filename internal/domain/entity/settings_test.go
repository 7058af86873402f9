package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSettingsMergeOverlaysNonEmptyFields(t *testing.T) {
	base := Settings{Provider: "deepseek", Model: "deepseek-chat", APIKey: "old"}

	merged := base.Merge(Settings{Model: "deepseek-coder"})

	assert.Equal(t, "deepseek", merged.Provider)
	assert.Equal(t, "deepseek-coder", merged.Model)
	assert.Equal(t, "old", merged.APIKey, "unrelated fields survive a partial merge")
}

func TestSettingsMergeEmptyOtherIsNoop(t *testing.T) {
	base := Settings{Provider: "openai", Model: "gpt-4o-mini", APIKey: "k"}
	assert.Equal(t, base, base.Merge(Settings{}))
}

func TestDefaultSettings(t *testing.T) {
	d := DefaultSettings()
	assert.Equal(t, DefaultProvider, d.Provider)
	assert.Equal(t, DefaultModel, d.Model)
	assert.Empty(t, d.APIKey)
}

func TestGenerateRequestNormalized(t *testing.T) {
	req := GenerateRequest{Description: "x", Kind: KindTerraform}

	n := req.Normalized()

	assert.Equal(t, DefaultTemperature, n.Temperature)
	assert.Equal(t, DefaultMaxTokens, n.MaxTokens)
	assert.Equal(t, "AWS", n.CloudProvider)

	// Explicit values pass through untouched.
	req = GenerateRequest{Description: "x", Kind: KindTerraform, Temperature: 0.9, MaxTokens: 100, CloudProvider: "GCP"}
	n = req.Normalized()
	assert.Equal(t, 0.9, n.Temperature)
	assert.Equal(t, 100, n.MaxTokens)
	assert.Equal(t, "GCP", n.CloudProvider)
}

func TestModelListConstrains(t *testing.T) {
	assert.True(t, OkModels([]string{"a"}).Constrains())
	assert.False(t, OkModels(nil).Constrains(), "empty listing constrains nothing")
	assert.False(t, DegradedModels("boom").Constrains(), "degraded listing constrains nothing")

	list := OkModels([]string{"a", "b"})
	assert.True(t, list.Contains("b"))
	assert.False(t, list.Contains("c"))
}

func TestIaCKindFileExtension(t *testing.T) {
	assert.Equal(t, ".tf", KindTerraform.FileExtension())
	assert.Equal(t, "Dockerfile", KindDocker.FileExtension())
	assert.Equal(t, ".rego", KindOPA.FileExtension())
	assert.Equal(t, ".txt", IaCKind("something else").FileExtension())
}
