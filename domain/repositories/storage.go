package repositories

import (
	"context"

	"github.com/InfinityZero3000/LexiLingo-sub001/domain/entities"
)

// UserRepository defines data access methods for learner accounts. Only the
// thin auth surface uses it; the full account CRUD lives in another service.
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id string) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	// ValidateCredentials checks an api key pair for token issuance.
	ValidateCredentials(email, apiKey string) (*entities.User, error)
}
