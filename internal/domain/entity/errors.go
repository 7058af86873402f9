package entity

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDecrypt marks ciphertext that could not be unwrapped. The settings store
// degrades it to "secret absent"; it never reaches a caller.
var ErrDecrypt = errors.New("decryption failed")

// ConfigError covers invalid provider/model names, unreadable settings and
// missing credentials. Value and Allowed make the offending input and the
// valid set part of the message.
type ConfigError struct {
	Provider string
	Value    string
	Allowed  []string
	Reason   string
	Err      error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Provider != "" {
		fmt.Fprintf(&b, " [provider %s]", e.Provider)
	}
	if e.Reason != "" {
		b.WriteString(": " + e.Reason)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, ": invalid value %q", e.Value)
	}
	if len(e.Allowed) > 0 {
		fmt.Fprintf(&b, " (allowed: %s)", strings.Join(e.Allowed, ", "))
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError builds a ConfigError for a bad value with its allowed set.
func NewConfigError(value string, allowed []string, reason string) *ConfigError {
	return &ConfigError{Value: value, Allowed: allowed, Reason: reason}
}

// GenerationError covers network failures, non-2xx responses and malformed
// response bodies during a generate call. Stage identifies where it failed.
type GenerationError struct {
	Provider string
	Stage    string // request, response, decode
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed [provider %s, stage %s]: %v", e.Provider, e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ValidationError reports a credential or connection the backend rejected.
// Distinct from GenerationError so front ends can frame it as a setup problem.
type ValidationError struct {
	Provider string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("credential validation failed [provider %s]: %v", e.Provider, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
