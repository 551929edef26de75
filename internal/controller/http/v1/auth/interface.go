package auth

import (
	"context"

	"laberion/backend/internal/entity"
)

type User interface {
	GetByLogin(ctx context.Context, login string) (entity.User, error)
}

type Tokens interface {
	GenerateTokens(userID int, role string) (string, string, error)
	Refresh(refreshToken string) (string, string, error)
}
