package main

import (
	"fmt"
	"log/slog"
	"os"

	"iacgenius/app/config"
	"iacgenius/internal/domain/repository"
	"iacgenius/internal/infrastructure/llm"
	"iacgenius/internal/infrastructure/secret"
	"iacgenius/internal/infrastructure/store/file"
)

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("IACGENIUS_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// buildCore wires the pieces every command needs: keyring-backed codec,
// settings store and provider options.
func buildCore(cfg *config.Config, logger *slog.Logger) (repository.SettingsStore, llm.Options, error) {
	codec := secret.NewCodec(secret.NewKeyringStore())
	store, err := file.NewSettingsStore(cfg.Store.SettingsPath, codec, logger)
	if err != nil {
		return nil, llm.Options{}, fmt.Errorf("failed to open settings store: %w", err)
	}
	opts := llm.Options{
		OllamaBaseURL: cfg.LLM.OllamaBaseURL,
		BedrockRegion: cfg.LLM.BedrockRegion,
		Logger:        logger,
	}
	return store, opts, nil
}
