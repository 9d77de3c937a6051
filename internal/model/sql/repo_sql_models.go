package sql

import (
	"context"
	"errors"
	"fmt"
	"headshots/internal/entity"
	"headshots/internal/entity/db"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ReserveModel inserts a pending model and, when charge > 0, takes the
// credits in the same transaction. A balance below charge leaves nothing
// persisted and returns ErrInsufficientCredits.
func (r *GormRepository) ReserveModel(ctx context.Context, m *db.Model, charge int) error {
	if err := r.ready(); err != nil {
		return err
	}
	if m == nil || strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("invalid model")
	}
	if charge < 0 {
		return fmt.Errorf("invalid charge %d", charge)
	}

	m.Status = db.ModelStatusPending
	m.ChargedCredits = charge
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if charge > 0 {
			if err := adjustCredits(tx, m.UserID, -charge); err != nil {
				if errors.Is(err, ErrInsufficientCredits) {
					return err
				}
				return fmt.Errorf("reserve credits: %w", err)
			}
		}
		if err := tx.Create(m).Error; err != nil {
			return fmt.Errorf("create model: %w", err)
		}
		return nil
	})
}

// CompleteModelSubmission records the samples of an accepted job and moves
// the model from pending to training. A model already marked finished keeps
// its status and only gains the samples.
func (r *GormRepository) CompleteModelSubmission(ctx context.Context, modelID uint, tuneID string, sampleURIs []string) ([]db.Sample, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	if modelID == 0 {
		return nil, fmt.Errorf("invalid model id")
	}

	samples := make([]db.Sample, 0, len(sampleURIs))
	for _, uri := range sampleURIs {
		samples = append(samples, db.Sample{ModelID: modelID, URI: uri})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(samples) > 0 {
			if err := tx.Create(&samples).Error; err != nil {
				return fmt.Errorf("insert samples: %w", err)
			}
		}
		result := tx.Model(&db.Model{}).
			Where("id = ? AND status = ?", modelID, db.ModelStatusPending).
			Updates(map[string]interface{}{
				"tune_id": tuneID,
				"status":  db.ModelStatusTraining,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}
		// 训练回调可能先于提交落库，此时模型已是 finished，只补充样本
		var finished int64
		if err := tx.Model(&db.Model{}).
			Where("id = ? AND status = ?", modelID, db.ModelStatusFinished).
			Count(&finished).Error; err != nil {
			return err
		}
		if finished == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&db.Model{}).
			Where("id = ? AND (tune_id = '' OR tune_id IS NULL)", modelID).
			Update("tune_id", tuneID).Error
	})
	if err != nil {
		return nil, err
	}
	return samples, nil
}

// ReleasePendingModel deletes a model that is still pending, together with
// its samples and images, and refunds the credits charged for it. A model
// that has already left pending is reported as gorm.ErrRecordNotFound.
func (r *GormRepository) ReleasePendingModel(ctx context.Context, modelID uint) (*db.Model, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	if modelID == 0 {
		return nil, fmt.Errorf("invalid model id")
	}

	var released db.Model
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND status = ?", modelID, db.ModelStatusPending).First(&released).Error; err != nil {
			return err
		}
		if err := tx.Where("model_id = ?", modelID).Delete(&db.Sample{}).Error; err != nil {
			return err
		}
		if err := tx.Where("model_id = ?", modelID).Delete(&db.Image{}).Error; err != nil {
			return err
		}
		result := tx.Where("status = ?", db.ModelStatusPending).Delete(&db.Model{}, modelID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if released.ChargedCredits > 0 {
			if err := adjustCredits(tx, released.UserID, released.ChargedCredits); err != nil {
				return fmt.Errorf("refund credits: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &released, nil
}

// GetModel loads a model with samples and images.
func (r *GormRepository) GetModel(ctx context.Context, modelID uint) (*db.Model, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	var m db.Model
	if err := r.withChildren(ctx).First(&m, modelID).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// GetUserModel loads a model owned by userID.
func (r *GormRepository) GetUserModel(ctx context.Context, userID string, modelID uint) (*db.Model, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	var m db.Model
	if err := r.withChildren(ctx).Where("id = ? AND user_id = ?", modelID, userID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListUserModels returns every model of a user, newest first.
func (r *GormRepository) ListUserModels(ctx context.Context, userID string) ([]db.Model, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	var models []db.Model
	if err := r.withChildren(ctx).Where("user_id = ?", userID).Order("id DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	return models, nil
}

// UpdateModel updates a model with the provided fields.
func (r *GormRepository) UpdateModel(ctx context.Context, modelID uint, updates entity.ModelUpdates) error {
	if err := r.ready(); err != nil {
		return err
	}
	if modelID == 0 {
		return fmt.Errorf("invalid model id")
	}
	if updates.IsEmpty() {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&db.Model{}).Where("id = ?", modelID).Updates(updates.ToMap())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListStaleModels returns models still in status that were created before the cutoff.
func (r *GormRepository) ListStaleModels(ctx context.Context, status string, before time.Time) ([]db.Model, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	var models []db.Model
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", status, before).
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return models, nil
}

// ListSamples returns the samples of a model.
func (r *GormRepository) ListSamples(ctx context.Context, modelID uint) ([]db.Sample, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	var samples []db.Sample
	if err := r.db.WithContext(ctx).Where("model_id = ?", modelID).Order("id ASC").Find(&samples).Error; err != nil {
		return nil, err
	}
	return samples, nil
}

// CreateImages inserts generated images and returns them with ids assigned.
func (r *GormRepository) CreateImages(ctx context.Context, images []db.Image) ([]db.Image, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return images, nil
	}
	if err := r.db.WithContext(ctx).Create(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

// ListImages returns the generated images of a model.
func (r *GormRepository) ListImages(ctx context.Context, modelID uint) ([]db.Image, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	var images []db.Image
	if err := r.db.WithContext(ctx).Where("model_id = ?", modelID).Order("id ASC").Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

func (r *GormRepository) withChildren(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Samples", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Preload("Images", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") })
}
