package repositories

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kacamatagratis/kacamatagratis/pkg/models"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Append(entry *models.NotificationLog) error {
	return r.db.Create(entry).Error
}

// EnsurePending inserts a pending claim row for entry.DedupKey; when a
// row with that key already exists the insert is a silent no-op. The
// row, not a prior query, is what makes automated sends at-most-once.
func (r *NotificationRepository) EnsurePending(entry *models.NotificationLog) error {
	if entry.DedupKey == nil || *entry.DedupKey == "" {
		return errors.New("ensure pending requires a dedup key")
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoNothing: true,
	}).Create(entry).Error
}

// ClaimPending flips pending -> processing for the given dedup key.
// Exactly one concurrent caller observes claimed=true; everyone else
// must leave the row alone.
func (r *NotificationRepository) ClaimPending(dedupKey string) (*models.NotificationLog, bool, error) {
	res := r.db.Model(&models.NotificationLog{}).
		Where("dedup_key = ? AND status = ?", dedupKey, models.StatusPending).
		Update("status", models.StatusProcessing)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, false, nil
	}
	var entry models.NotificationLog
	if err := r.db.First(&entry, "dedup_key = ?", dedupKey).Error; err != nil {
		return nil, false, err
	}
	return &entry, true, nil
}

// ClaimFailed flips failed -> processing for a retry. Same winner-takes-
// the-send contract as ClaimPending.
func (r *NotificationRepository) ClaimFailed(id uuid.UUID) (bool, error) {
	res := r.db.Model(&models.NotificationLog{}).
		Where("id = ? AND status = ?", id, models.StatusFailed).
		Update("status", models.StatusProcessing)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *NotificationRepository) GetByID(id uuid.UUID) (*models.NotificationLog, error) {
	var entry models.NotificationLog
	if err := r.db.First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *NotificationRepository) WasSent(msgType string, participantID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.Model(&models.NotificationLog{}).
		Where("type = ? AND participant_id = ?", msgType, participantID).
		Count(&n).Error
	return n > 0, err
}

func (r *NotificationRepository) WasSentForEvent(msgType string, eventID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.Model(&models.NotificationLog{}).
		Where("type = ? AND event_id = ?", msgType, eventID).
		Count(&n).Error
	return n > 0, err
}

func (r *NotificationRepository) ListFailed() ([]models.NotificationLog, error) {
	var entries []models.NotificationLog
	if err := r.db.Where("status = ?", models.StatusFailed).
		Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// List filters by status and/or type; empty filters mean everything.
func (r *NotificationRepository) List(status, msgType string, limit int) ([]models.NotificationLog, error) {
	q := r.db.Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if msgType != "" {
		q = q.Where("type = ?", msgType)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var entries []models.NotificationLog
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkResult records the outcome of a send attempt on an existing row.
// Retries update in place rather than appending a second row.
func (r *NotificationRepository) MarkResult(id uuid.UUID, status, apiKeyUsed, content, errMsg string) error {
	return r.db.Model(&models.NotificationLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          status,
			"api_key_used":    apiKeyUsed,
			"message_content": content,
			"error":           errMsg,
			"updated_at":      time.Now(),
		}).Error
}

// MarkResultWithMetadata additionally refreshes the variable snapshot,
// for claimed rows that were created before the variables were known.
func (r *NotificationRepository) MarkResultWithMetadata(id uuid.UUID, status, apiKeyUsed, content, errMsg, metadata string) error {
	return r.db.Model(&models.NotificationLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          status,
			"api_key_used":    apiKeyUsed,
			"message_content": content,
			"error":           errMsg,
			"metadata":        metadata,
			"updated_at":      time.Now(),
		}).Error
}

// Release puts a claimed row back so a later pass can pick it up, used
// when the claim holder cannot attempt the send at all (e.g. the
// template is missing).
func (r *NotificationRepository) Release(id uuid.UUID, status, errMsg string) error {
	return r.db.Model(&models.NotificationLog{}).
		Where("id = ? AND status = ?", id, models.StatusProcessing).
		Updates(map[string]interface{}{
			"status":     status,
			"error":      errMsg,
			"updated_at": time.Now(),
		}).Error
}

// CancelPending parks every pending claim row of a participant who
// unsubscribed, so stale claims stop counting as open work.
func (r *NotificationRepository) CancelPending(participantID uuid.UUID) error {
	return r.db.Model(&models.NotificationLog{}).
		Where("participant_id = ? AND status = ?", participantID, models.StatusPending).
		Update("status", models.StatusSkipped).Error
}

// ReinstatePending puts parked claim rows back in play when the
// participant subscribes again.
func (r *NotificationRepository) ReinstatePending(participantID uuid.UUID) error {
	return r.db.Model(&models.NotificationLog{}).
		Where("participant_id = ? AND status = ?", participantID, models.StatusSkipped).
		Update("status", models.StatusPending).Error
}

func (r *NotificationRepository) CountByStatus(status string) (int64, error) {
	var n int64
	err := r.db.Model(&models.NotificationLog{}).
		Where("status = ?", status).Count(&n).Error
	return n, err
}

func (r *NotificationRepository) Latest() (*models.NotificationLog, error) {
	var entry models.NotificationLog
	if err := r.db.Order("created_at DESC").First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}
