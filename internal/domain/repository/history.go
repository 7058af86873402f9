package repository

import (
	"context"

	"iacgenius/internal/domain/entity"
)

// HistoryRepository stores completed generations in server mode.
type HistoryRepository interface {
	Save(ctx context.Context, rec *entity.GenerationRecord) error
	GetByID(ctx context.Context, id string) (*entity.GenerationRecord, error)
	ListBySession(ctx context.Context, sessionID string) ([]*entity.GenerationRecord, error)
	List(ctx context.Context, limit int) ([]*entity.GenerationRecord, error)
	Delete(ctx context.Context, id string) error
}
