package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kacamatagratis/kacamatagratis/pkg/models"
	"github.com/kacamatagratis/kacamatagratis/pkg/repositories"
)

var templateTypes = map[string]bool{
	models.TypeWelcome:       true,
	models.TypeReferrerAlert: true,
	models.TypeEventReminder: true,
	models.TypeBroadcast:     true,
}

type TemplateService struct {
	repo *repositories.TemplateRepository
}

func NewTemplateService(db *gorm.DB) *TemplateService {
	return &TemplateService{repo: repositories.NewTemplateRepository(db)}
}

func (s *TemplateService) Create(t *models.MessageTemplate) error {
	if t.Name == "" {
		return errors.New("template name is required")
	}
	if !templateTypes[t.Type] {
		return fmt.Errorf("unknown template type %q", t.Type)
	}
	if t.Content == "" {
		return errors.New("template content is required")
	}
	return s.repo.Create(t)
}

func (s *TemplateService) Get(id uuid.UUID) (*models.MessageTemplate, error) {
	return s.repo.GetByID(id)
}

func (s *TemplateService) List() ([]models.MessageTemplate, error) {
	return s.repo.List()
}

func (s *TemplateService) Update(t *models.MessageTemplate) error {
	if t.ID == uuid.Nil {
		return errors.New("invalid template ID")
	}
	if !templateTypes[t.Type] {
		return fmt.Errorf("unknown template type %q", t.Type)
	}
	return s.repo.Update(t)
}

func (s *TemplateService) Delete(id uuid.UUID) error {
	return s.repo.Delete(id)
}
