package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kacamatagratis/kacamatagratis/pkg/dripsender"
	"github.com/kacamatagratis/kacamatagratis/pkg/models"
	"github.com/kacamatagratis/kacamatagratis/pkg/repositories"
)

var ErrPhoneTaken = errors.New("phone number is already registered")

type ParticipantService struct {
	participants *repositories.ParticipantRepository
	logs         *repositories.NotificationRepository
}

func NewParticipantService(db *gorm.DB) *ParticipantService {
	return &ParticipantService{
		participants: repositories.NewParticipantRepository(db),
		logs:         repositories.NewNotificationRepository(db),
	}
}

type RegisterInput struct {
	Sapaan     string `json:"sapaan"`
	Name       string `json:"name" binding:"required"`
	City       string `json:"city"`
	Profession string `json:"profession"`
	Phone      string `json:"phone" binding:"required"`
	// The public form historically posts the referrer's code under
	// referrerPhone; both names are accepted.
	ReferrerPhone string `json:"referrerPhone"`
	ReferrerCode  string `json:"referrerCode"`
}

// Register validates and creates a participant, plus the pending
// welcome claim row the automation engine will pick up after the
// configured delay.
func (s *ParticipantService) Register(in RegisterInput) (*models.Participant, error) {
	if err := dripsender.ValidatePhone(in.Phone); err != nil {
		return nil, err
	}

	phone := dripsender.StoragePhone(in.Phone)
	taken, err := s.participants.ExistsByPhone(phone)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrPhoneTaken
	}

	referrerCode := in.ReferrerCode
	if referrerCode == "" {
		referrerCode = in.ReferrerPhone
	}
	if referrerCode != "" {
		referrerCode = dripsender.NormalizePhone(referrerCode)
	}

	sequence := 0
	if referrerCode != "" {
		prior, err := s.participants.CountByReferrerCode(referrerCode)
		if err != nil {
			return nil, err
		}
		sequence = int(prior) + 1
	}

	p := &models.Participant{
		Sapaan:           in.Sapaan,
		Name:             in.Name,
		City:             in.City,
		Profession:       in.Profession,
		Phone:            phone,
		ReferralCode:     dripsender.ReferralCode(in.Phone),
		ReferrerCode:     referrerCode,
		ReferrerSequence: sequence,
		Status:           models.StatusBelumJoin,
	}
	if err := s.participants.Create(p); err != nil {
		return nil, err
	}

	key := models.WelcomeDedupKey(p.ID)
	pid := p.ID
	if err := s.logs.EnsurePending(&models.NotificationLog{
		ParticipantID: &pid,
		TargetPhone:   p.Phone,
		Type:          models.TypeWelcome,
		DedupKey:      &key,
		Status:        models.StatusPending,
	}); err != nil {
		return nil, fmt.Errorf("queue welcome message: %w", err)
	}
	return p, nil
}

func (s *ParticipantService) List() ([]models.Participant, error) {
	return s.participants.List()
}

func (s *ParticipantService) Get(id uuid.UUID) (*models.Participant, error) {
	return s.participants.GetByID(id)
}

func (s *ParticipantService) Update(p *models.Participant) error {
	if p.ID == uuid.Nil {
		return errors.New("invalid participant ID")
	}
	if p.Status != models.StatusBelumJoin && p.Status != models.StatusSudahJoin {
		return fmt.Errorf("invalid status %q", p.Status)
	}
	return s.participants.Update(p)
}

// Delete removes the participant only. Log rows and referrer codes that
// point at them are left behind as the audit trail.
func (s *ParticipantService) Delete(id uuid.UUID) error {
	return s.participants.Delete(id)
}

func (s *ParticipantService) ToggleStatus(id uuid.UUID) (*models.Participant, error) {
	p, err := s.participants.GetByID(id)
	if err != nil {
		return nil, err
	}
	if p.Status == models.StatusSudahJoin {
		p.Status = models.StatusBelumJoin
	} else {
		p.Status = models.StatusSudahJoin
	}
	if err := s.participants.Update(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ParticipantService) SetUnsubscribed(id uuid.UUID, unsubscribed bool) (*models.Participant, error) {
	p, err := s.participants.GetByID(id)
	if err != nil {
		return nil, err
	}
	p.Unsubscribed = unsubscribed
	if err := s.participants.Update(p); err != nil {
		return nil, err
	}
	// Claim rows still waiting on this participant follow the toggle:
	// parked on opt-out, back in play on re-subscribe.
	if unsubscribed {
		err = s.logs.CancelPending(p.ID)
	} else {
		err = s.logs.ReinstatePending(p.ID)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ExportCSV streams the participant table for the admin download.
func (s *ParticipantService) ExportCSV(w io.Writer) error {
	parts, err := s.participants.List()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{"sapaan", "name", "city", "profession", "phone", "referral_code", "referrer_code", "referrer_sequence", "status", "unsubscribed", "registered_at"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, p := range parts {
		row := []string{
			p.Sapaan, p.Name, p.City, p.Profession, p.Phone,
			p.ReferralCode, p.ReferrerCode,
			strconv.Itoa(p.ReferrerSequence),
			p.Status,
			strconv.FormatBool(p.Unsubscribed),
			p.RegisteredAt.Format("2006-01-02 15:04:05"),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
