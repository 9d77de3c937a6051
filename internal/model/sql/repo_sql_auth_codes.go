package sql

import (
	"context"
	"errors"
	"fmt"
	"headshots/internal/entity/db"
	"time"

	"gorm.io/gorm"
)

// CreateAuthCode stores the hash of a freshly minted one-time code.
func (r *GormRepository) CreateAuthCode(ctx context.Context, code *db.AuthCode) error {
	if err := r.ready(); err != nil {
		return err
	}
	if code == nil || code.CodeHash == "" || code.UserID == "" {
		return fmt.Errorf("invalid auth code")
	}
	return r.db.WithContext(ctx).Create(code).Error
}

// ConsumeAuthCode marks a code as used. Unknown, expired and already used
// codes all yield ErrInvalidCode.
func (r *GormRepository) ConsumeAuthCode(ctx context.Context, codeHash string, now time.Time) (*db.AuthCode, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	if codeHash == "" {
		return nil, ErrInvalidCode
	}

	var code db.AuthCode
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("code_hash = ?", codeHash).First(&code).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidCode
			}
			return err
		}
		if code.UsedAt != nil || !now.Before(code.ExpiresAt) {
			return ErrInvalidCode
		}

		result := tx.Model(&db.AuthCode{}).
			Where("id = ? AND used_at IS NULL", code.ID).
			Update("used_at", now)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInvalidCode
		}
		code.UsedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &code, nil
}
