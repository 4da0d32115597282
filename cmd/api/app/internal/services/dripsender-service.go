package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kacamatagratis/kacamatagratis/pkg/gateway"
	"github.com/kacamatagratis/kacamatagratis/pkg/models"
	"github.com/kacamatagratis/kacamatagratis/pkg/repositories"
)

type DripSenderService struct {
	keys   *repositories.DripSenderKeyRepository
	client gateway.Sender
}

func NewDripSenderService(db *gorm.DB, client gateway.Sender) *DripSenderService {
	return &DripSenderService{
		keys:   repositories.NewDripSenderKeyRepository(db),
		client: client,
	}
}

func (s *DripSenderService) Create(k *models.DripSenderKey) error {
	if k.APIKey == "" {
		return errors.New("api key is required")
	}
	return s.keys.Create(k)
}

func (s *DripSenderService) List() ([]models.DripSenderKey, error) {
	return s.keys.List()
}

func (s *DripSenderService) Update(k *models.DripSenderKey) error {
	if k.ID == uuid.Nil {
		return errors.New("invalid key ID")
	}
	return s.keys.Update(k)
}

func (s *DripSenderService) Delete(id uuid.UUID) error {
	return s.keys.Delete(id)
}

// HealthTest fires a real provider call with the key and records the
// outcome on the key's health fields.
func (s *DripSenderService) HealthTest(ctx context.Context, id uuid.UUID, testPhone string) (*models.DripSenderKey, error) {
	k, err := s.keys.GetByID(id)
	if err != nil {
		return nil, err
	}
	if testPhone == "" {
		return nil, errors.New("test phone number is required")
	}

	if err := s.keys.UpdateHealth(id, models.HealthTesting, ""); err != nil {
		return nil, err
	}

	status := models.HealthWorking
	healthErr := ""
	if err := s.client.Send(ctx, k.APIKey, testPhone, "Tes koneksi DripSender"); err != nil {
		status = models.HealthFailed
		healthErr = err.Error()
	}
	if err := s.keys.UpdateHealth(id, status, healthErr); err != nil {
		return nil, err
	}
	return s.keys.GetByID(id)
}
