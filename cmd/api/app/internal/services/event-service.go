package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kacamatagratis/kacamatagratis/pkg/models"
	"github.com/kacamatagratis/kacamatagratis/pkg/repositories"
)

type EventService struct {
	events *repositories.EventRepository
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{events: repositories.NewEventRepository(db)}
}

func (s *EventService) Create(e *models.Event) error {
	if e.Title == "" {
		return errors.New("event title is required")
	}
	if e.StartTime.IsZero() {
		return errors.New("event start time is required")
	}
	return s.events.Create(e)
}

func (s *EventService) Get(id uuid.UUID) (*models.Event, error) {
	return s.events.GetByID(id)
}

func (s *EventService) List() ([]models.Event, error) {
	return s.events.List()
}

// LatestUpcoming backs the public "latest event" block on the landing
// page.
func (s *EventService) LatestUpcoming() (*models.Event, error) {
	return s.events.LatestUpcoming(time.Now())
}

func (s *EventService) Update(e *models.Event) error {
	if e.ID == uuid.Nil {
		return errors.New("invalid event ID")
	}
	if e.Title == "" {
		return errors.New("event title is required")
	}
	return s.events.Update(e)
}

func (s *EventService) Delete(id uuid.UUID) error {
	return s.events.Delete(id)
}
