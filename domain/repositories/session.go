package repositories

import (
	"context"

	"github.com/InfinityZero3000/LexiLingo-sub001/domain/entities"
)

// SessionRepository persists conversation history. Writes are best-effort and
// asynchronous; the orchestrator never blocks its control loop on them.
type SessionRepository interface {
	Create(ctx context.Context, session *entities.SessionRecord) error
	AppendTurn(ctx context.Context, sessionID string, turn entities.Turn) error
	GetByID(ctx context.Context, sessionID string) (*entities.SessionRecord, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]entities.SessionRecord, error)
}
