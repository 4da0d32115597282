package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	HealthUnknown = "unknown"
	HealthWorking = "working"
	HealthFailed  = "failed"
	HealthTesting = "testing"
)

// DripSenderKey is one provider credential in the rotation pool.
type DripSenderKey struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	APIKey          string     `gorm:"size:200;not null;uniqueIndex" json:"api_key"`
	Label           string     `gorm:"size:100" json:"label"`
	IsActive        bool       `gorm:"default:true;index" json:"is_active"`
	UsageCount      int64      `gorm:"default:0" json:"usage_count"`
	LastUsed        *time.Time `json:"last_used,omitempty"`
	HealthStatus    string     `gorm:"size:20;default:unknown" json:"health_status"`
	HealthCheckedAt *time.Time `json:"health_checked_at,omitempty"`
	HealthError     string     `gorm:"type:text" json:"health_error,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (k *DripSenderKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	if k.HealthStatus == "" {
		k.HealthStatus = HealthUnknown
	}
	return nil
}
