package repositories

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kacamatagratis/kacamatagratis/pkg/models"
)

type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Create(t *models.MessageTemplate) error {
	return r.db.Create(t).Error
}

func (r *TemplateRepository) GetByID(id uuid.UUID) (*models.MessageTemplate, error) {
	var t models.MessageTemplate
	if err := r.db.First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// LatestByType resolves the template for a semantic type. Duplicate
// types are tolerated in storage; the most recently created row wins.
func (r *TemplateRepository) LatestByType(msgType string) (*models.MessageTemplate, error) {
	var t models.MessageTemplate
	if err := r.db.Where("type = ?", msgType).
		Order("created_at DESC").First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TemplateRepository) List() ([]models.MessageTemplate, error) {
	var ts []models.MessageTemplate
	if err := r.db.Order("created_at DESC").Find(&ts).Error; err != nil {
		return nil, err
	}
	return ts, nil
}

func (r *TemplateRepository) Update(t *models.MessageTemplate) error {
	if t.ID == uuid.Nil {
		return errors.New("invalid template ID")
	}
	return r.db.Save(t).Error
}

func (r *TemplateRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.MessageTemplate{}, "id = ?", id).Error
}
