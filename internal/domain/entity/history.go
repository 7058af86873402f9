package entity

import (
	"time"

	"github.com/google/uuid"
)

// GenerationRecord is one completed generation persisted by the history
// store in server mode.
type GenerationRecord struct {
	ID        string          `json:"id" bson:"id"`
	SessionID string          `json:"session_id" bson:"session_id"`
	Request   GenerateRequest `json:"request" bson:"request"`
	Result    GenerateResult  `json:"result" bson:"result"`
	CreatedAt time.Time       `json:"created_at" bson:"created_at"`
}

// NewGenerationRecord stamps a record for the given session.
func NewGenerationRecord(sessionID string, req GenerateRequest, res GenerateResult) *GenerationRecord {
	return &GenerationRecord{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Request:   req,
		Result:    res,
		CreatedAt: time.Now().UTC(),
	}
}
