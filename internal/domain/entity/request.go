package entity

import (
	"time"
)

// GenerateRequest describes one infrastructure generation call.
// Immutable once constructed; consumed exactly once by the prompt builder.
type GenerateRequest struct {
	Description    string   `json:"description" bson:"description"`
	Kind           IaCKind  `json:"kind" bson:"kind"`
	CloudProvider  string   `json:"cloud_provider" bson:"cloud_provider"`
	Region         string   `json:"region,omitempty" bson:"region,omitempty"`
	Tags           []string `json:"tags,omitempty" bson:"tags,omitempty"` // "key=value" lines, order preserved
	TargetVersions string   `json:"target_versions,omitempty" bson:"target_versions,omitempty"`
	Temperature    float64  `json:"temperature,omitempty" bson:"temperature,omitempty"`
	MaxTokens      int      `json:"max_tokens,omitempty" bson:"max_tokens,omitempty"`
}

const (
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 2048
)

// Normalized returns a copy with zero-value generation parameters replaced
// by the defaults every backend is called with.
func (r GenerateRequest) Normalized() GenerateRequest {
	if r.Temperature == 0 {
		r.Temperature = DefaultTemperature
	}
	if r.MaxTokens == 0 {
		r.MaxTokens = DefaultMaxTokens
	}
	if r.CloudProvider == "" {
		r.CloudProvider = "AWS"
	}
	return r
}

// GenerateResult is the outcome of one successful provider call. Code is the
// trimmed raw text returned by the backend; nothing in this system validates it.
type GenerateResult struct {
	Kind          IaCKind   `json:"kind" bson:"kind"`
	CloudProvider string    `json:"cloud_provider" bson:"cloud_provider"`
	Provider      string    `json:"provider" bson:"provider"`
	Model         string    `json:"model" bson:"model"`
	Code          string    `json:"code" bson:"code"`
	RequestID     string    `json:"request_id" bson:"request_id"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}
