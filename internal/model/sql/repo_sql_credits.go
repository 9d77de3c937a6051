package sql

import (
	"context"
	"fmt"
	"headshots/internal/entity/db"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetCredits loads the credit row of a user.
func (r *GormRepository) GetCredits(ctx context.Context, userID string) (*db.Credit, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("invalid user id")
	}
	var credit db.Credit
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&credit).Error; err != nil {
		return nil, err
	}
	return &credit, nil
}

// EnsureCredits returns the credit row of a user, inserting a zero balance
// when none exists. created reports whether this call inserted it.
func (r *GormRepository) EnsureCredits(ctx context.Context, userID string) (*db.Credit, bool, error) {
	if err := r.ready(); err != nil {
		return nil, false, err
	}
	if strings.TrimSpace(userID) == "" {
		return nil, false, fmt.Errorf("invalid user id")
	}

	credit := db.Credit{UserID: userID, Credits: 0}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&credit)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected > 0 {
		return &credit, true, nil
	}

	existing, err := r.GetCredits(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// AddCredits adjusts a balance by delta. A negative delta never drives the
// balance below zero.
func (r *GormRepository) AddCredits(ctx context.Context, userID string, delta int) error {
	if err := r.ready(); err != nil {
		return err
	}
	if delta == 0 {
		return nil
	}
	if _, _, err := r.EnsureCredits(ctx, userID); err != nil {
		return err
	}
	return adjustCredits(r.db.WithContext(ctx), userID, delta)
}

func adjustCredits(tx *gorm.DB, userID string, delta int) error {
	query := tx.Model(&db.Credit{}).Where("user_id = ?", userID)
	if delta < 0 {
		query = query.Where("credits >= ?", -delta)
	}
	result := query.Update("credits", gorm.Expr("credits + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if delta < 0 {
			return ErrInsufficientCredits
		}
		return gorm.ErrRecordNotFound
	}
	return nil
}
