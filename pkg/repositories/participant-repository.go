package repositories

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kacamatagratis/kacamatagratis/pkg/models"
)

type ParticipantRepository struct {
	db *gorm.DB
}

func NewParticipantRepository(db *gorm.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

func (r *ParticipantRepository) Create(p *models.Participant) error {
	return r.db.Create(p).Error
}

func (r *ParticipantRepository) GetByID(id uuid.UUID) (*models.Participant, error) {
	var p models.Participant
	if err := r.db.First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ParticipantRepository) GetByPhone(phone string) (*models.Participant, error) {
	var p models.Participant
	if err := r.db.First(&p, "phone = ?", phone).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByReferralCode resolves a referrer. The stored referrer_code of a
// referred participant matches against referral_code here, never against
// the raw phone column.
func (r *ParticipantRepository) GetByReferralCode(code string) (*models.Participant, error) {
	var p models.Participant
	if err := r.db.First(&p, "referral_code = ?", code).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ParticipantRepository) List() ([]models.Participant, error) {
	var ps []models.Participant
	if err := r.db.Order("registered_at DESC").Find(&ps).Error; err != nil {
		return nil, err
	}
	return ps, nil
}

// ListSubscribed returns every participant who has not opted out,
// oldest registration first.
func (r *ParticipantRepository) ListSubscribed() ([]models.Participant, error) {
	var ps []models.Participant
	if err := r.db.Where("unsubscribed = ?", false).
		Order("registered_at ASC").Find(&ps).Error; err != nil {
		return nil, err
	}
	return ps, nil
}

// ListReferred returns subscribed participants that carry a referrer code.
func (r *ParticipantRepository) ListReferred() ([]models.Participant, error) {
	var ps []models.Participant
	if err := r.db.Where("referrer_code <> '' AND unsubscribed = ?", false).
		Order("registered_at ASC").Find(&ps).Error; err != nil {
		return nil, err
	}
	return ps, nil
}

func (r *ParticipantRepository) Update(p *models.Participant) error {
	if p.ID == uuid.Nil {
		return errors.New("invalid participant ID")
	}
	return r.db.Save(p).Error
}

func (r *ParticipantRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.Participant{}, "id = ?", id).Error
}

// CountByReferrerCode is the live referral count shown in referrer
// alerts. It is recomputed at send time, never cached.
func (r *ParticipantRepository) CountByReferrerCode(code string) (int64, error) {
	var n int64
	err := r.db.Model(&models.Participant{}).
		Where("referrer_code = ?", code).Count(&n).Error
	return n, err
}

func (r *ParticipantRepository) ExistsByPhone(phone string) (bool, error) {
	var n int64
	err := r.db.Model(&models.Participant{}).
		Where("phone = ?", phone).Count(&n).Error
	return n > 0, err
}
