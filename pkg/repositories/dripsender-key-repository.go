package repositories

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kacamatagratis/kacamatagratis/pkg/models"
)

type DripSenderKeyRepository struct {
	db *gorm.DB
}

func NewDripSenderKeyRepository(db *gorm.DB) *DripSenderKeyRepository {
	return &DripSenderKeyRepository{db: db}
}

func (r *DripSenderKeyRepository) Create(k *models.DripSenderKey) error {
	return r.db.Create(k).Error
}

func (r *DripSenderKeyRepository) GetByID(id uuid.UUID) (*models.DripSenderKey, error) {
	var k models.DripSenderKey
	if err := r.db.First(&k, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *DripSenderKeyRepository) List() ([]models.DripSenderKey, error) {
	var ks []models.DripSenderKey
	if err := r.db.Order("created_at ASC").Find(&ks).Error; err != nil {
		return nil, err
	}
	return ks, nil
}

func (r *DripSenderKeyRepository) ListActive() ([]models.DripSenderKey, error) {
	var ks []models.DripSenderKey
	if err := r.db.Where("is_active = ?", true).Find(&ks).Error; err != nil {
		return nil, err
	}
	return ks, nil
}

func (r *DripSenderKeyRepository) Update(k *models.DripSenderKey) error {
	if k.ID == uuid.Nil {
		return errors.New("invalid key ID")
	}
	return r.db.Save(k).Error
}

func (r *DripSenderKeyRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.DripSenderKey{}, "id = ?", id).Error
}

// RecordUsage bumps the usage counter and last-used timestamp after a
// successful provider call.
func (r *DripSenderKeyRepository) RecordUsage(id uuid.UUID) error {
	now := time.Now()
	return r.db.Model(&models.DripSenderKey{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"usage_count": gorm.Expr("usage_count + 1"),
			"last_used":   now,
		}).Error
}

func (r *DripSenderKeyRepository) UpdateHealth(id uuid.UUID, status, healthErr string) error {
	now := time.Now()
	return r.db.Model(&models.DripSenderKey{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"health_status":     status,
			"health_checked_at": now,
			"health_error":      healthErr,
		}).Error
}

func (r *DripSenderKeyRepository) CountActive() (int64, error) {
	var n int64
	err := r.db.Model(&models.DripSenderKey{}).
		Where("is_active = ?", true).Count(&n).Error
	return n, err
}
