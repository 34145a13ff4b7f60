package auth

import (
	"context"
	"time"

	"pcbooking/internal/domain"
	"pcbooking/internal/pkg/jwt"
)

// UserRepositoryInterface lists only the methods the auth service uses
type UserRepositoryInterface interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// RevokedTokenRepositoryInterface stores signed-out token ids
type RevokedTokenRepositoryInterface interface {
	Revoke(ctx context.Context, jti string, userID int64, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type jwtService interface {
	GenerateToken(userID int64) (*jwt.Issued, error)
	ValidateToken(token string) (*jwt.Claims, error)
}
