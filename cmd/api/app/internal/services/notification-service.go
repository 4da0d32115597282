package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/kacamatagratis/kacamatagratis/pkg/models"
	"github.com/kacamatagratis/kacamatagratis/pkg/repositories"
)

type NotificationService struct {
	logs     *repositories.NotificationRepository
	keys     *repositories.DripSenderKeyRepository
	settings *repositories.SettingsRepository
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{
		logs:     repositories.NewNotificationRepository(db),
		keys:     repositories.NewDripSenderKeyRepository(db),
		settings: repositories.NewSettingsRepository(db),
	}
}

func (s *NotificationService) List(status, msgType string, limit int) ([]models.NotificationLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.logs.List(status, msgType, limit)
}

// StatusReport feeds the admin dashboard.
type StatusReport struct {
	PendingCount int64                      `json:"pending_count"`
	FailedCount  int64                      `json:"failed_count"`
	SuccessCount int64                      `json:"success_count"`
	ActiveKeys   int64                      `json:"active_keys"`
	LastLogEntry *models.NotificationLog    `json:"last_log_entry,omitempty"`
	Settings     *models.AutomationSettings `json:"settings"`
}

func (s *NotificationService) Status() (*StatusReport, error) {
	report := &StatusReport{}
	var err error

	if report.PendingCount, err = s.logs.CountByStatus(models.StatusPending); err != nil {
		return nil, err
	}
	if report.FailedCount, err = s.logs.CountByStatus(models.StatusFailed); err != nil {
		return nil, err
	}
	if report.SuccessCount, err = s.logs.CountByStatus(models.StatusSuccess); err != nil {
		return nil, err
	}
	if report.ActiveKeys, err = s.keys.CountActive(); err != nil {
		return nil, err
	}

	last, err := s.logs.Latest()
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	report.LastLogEntry = last
	if errors.Is(err, gorm.ErrRecordNotFound) {
		report.LastLogEntry = nil
	}

	if report.Settings, err = s.settings.GetAutomation(); err != nil {
		return nil, err
	}
	return report, nil
}
