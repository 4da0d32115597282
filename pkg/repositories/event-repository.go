package repositories

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kacamatagratis/kacamatagratis/pkg/models"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(e *models.Event) error {
	return r.db.Create(e).Error
}

func (r *EventRepository) GetByID(id uuid.UUID) (*models.Event, error) {
	var e models.Event
	if err := r.db.First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EventRepository) List() ([]models.Event, error) {
	var es []models.Event
	if err := r.db.Order("start_time DESC").Find(&es).Error; err != nil {
		return nil, err
	}
	return es, nil
}

// ListUpcoming returns events whose start time is still in the future,
// soonest first.
func (r *EventRepository) ListUpcoming(now time.Time) ([]models.Event, error) {
	var es []models.Event
	if err := r.db.Where("start_time > ?", now).
		Order("start_time ASC").Find(&es).Error; err != nil {
		return nil, err
	}
	return es, nil
}

// LatestUpcoming is the public "latest event" lookup: the first future
// event when ordered by start time descending.
func (r *EventRepository) LatestUpcoming(now time.Time) (*models.Event, error) {
	var e models.Event
	if err := r.db.Where("start_time > ?", now).
		Order("start_time DESC").First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EventRepository) Update(e *models.Event) error {
	if e.ID == uuid.Nil {
		return errors.New("invalid event ID")
	}
	return r.db.Save(e).Error
}

func (r *EventRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.Event{}, "id = ?", id).Error
}
