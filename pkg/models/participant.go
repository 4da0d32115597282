package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusBelumJoin = "belum_join"
	StatusSudahJoin = "sudah_join"
)

type Participant struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Sapaan     string    `gorm:"size:20" json:"sapaan"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	City       string    `gorm:"size:100" json:"city"`
	Profession string    `gorm:"size:100" json:"profession"`
	// Stored in +62 form; ReferralCode is the digits-only 62 form.
	Phone        string `gorm:"size:20;not null;uniqueIndex" json:"phone"`
	ReferralCode string `gorm:"size:20;not null;index" json:"referral_code"`
	// ReferrerCode holds the referral code of the participant who referred
	// this one, not their raw phone number.
	ReferrerCode     string    `gorm:"size:20;index" json:"referrer_code"`
	ReferrerSequence int       `gorm:"default:0" json:"referrer_sequence"`
	Status           string    `gorm:"size:20;not null;default:belum_join" json:"status"`
	Unsubscribed     bool      `gorm:"default:false" json:"unsubscribed"`
	RegisteredAt     time.Time `gorm:"not null;index" json:"registered_at"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Participant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.RegisteredAt.IsZero() {
		p.RegisteredAt = time.Now()
	}
	return nil
}
