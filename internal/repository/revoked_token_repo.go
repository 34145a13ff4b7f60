package repository

import (
	"context"
	"errors"
	"time"

	"pcbooking/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RevokedTokenRepository records signed-out access tokens.
type RevokedTokenRepository struct {
	db *gorm.DB
}

func NewRevokedTokenRepository(db *gorm.DB) *RevokedTokenRepository {
	return &RevokedTokenRepository{db: db}
}

// Revoke is idempotent: revoking the same jti twice keeps the first row.
func (r *RevokedTokenRepository) Revoke(ctx context.Context, jti string, userID int64, expiresAt time.Time) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.RevokedToken{JTI: jti, UserID: userID, ExpiresAt: expiresAt}).Error
}

func (r *RevokedTokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var t domain.RevokedToken
	err := r.db.WithContext(ctx).Where("jti = ?", jti).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteExpired purges revocations whose tokens have expired on their own.
func (r *RevokedTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&domain.RevokedToken{})
	return tx.RowsAffected, tx.Error
}
