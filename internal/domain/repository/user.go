package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sungminna/options-sandbox/internal/domain/model"
)

// UserRepository defines methods for user data access
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
}
