package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TypeWelcome       = "welcome"
	TypeReferrerAlert = "referrer_alert"
	TypeEventReminder = "event_reminder"
	TypeBroadcast     = "broadcast"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	// Skipped rows are parked pending claims whose participant opted out.
	// They keep the dedup key but no pass picks them up.
	StatusSkipped = "skipped"
)

// NotificationLog records every send attempt. Rows for automated sends
// carry a unique DedupKey which doubles as the idempotency claim: a pass
// must own the pending -> processing transition before sending.
type NotificationLog struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ParticipantID *uuid.UUID `gorm:"type:uuid;index" json:"participant_id,omitempty"`
	TargetPhone   string     `gorm:"size:20;not null" json:"target_phone"`
	Type          string     `gorm:"size:30;not null;index" json:"type"`
	// Empty for broadcast rows. NULL in storage so duplicates are allowed there.
	DedupKey       *string    `gorm:"size:120;uniqueIndex" json:"dedup_key,omitempty"`
	APIKeyUsed     string     `gorm:"size:100" json:"api_key_used"`
	Status         string     `gorm:"size:20;not null;index" json:"status"`
	MessageContent string     `gorm:"type:text" json:"message_content"`
	Error          string     `gorm:"type:text" json:"error,omitempty"`
	EventID        *uuid.UUID `gorm:"type:uuid;index" json:"event_id,omitempty"`
	// Snapshot of the variables the message was rendered from, so a retry
	// can reconstruct the text without the originating records.
	Metadata  string    `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (n *NotificationLog) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Status == "" {
		n.Status = StatusPending
	}
	return nil
}

// Variables decodes the metadata snapshot. A row without metadata yields
// an empty map, not an error.
func (n *NotificationLog) Variables() (map[string]string, error) {
	vars := map[string]string{}
	if n.Metadata == "" {
		return vars, nil
	}
	if err := json.Unmarshal([]byte(n.Metadata), &vars); err != nil {
		return nil, fmt.Errorf("decode notification metadata: %w", err)
	}
	return vars, nil
}

func WelcomeDedupKey(participantID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", TypeWelcome, participantID)
}

func ReferrerAlertDedupKey(referredID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", TypeReferrerAlert, referredID)
}

func EventReminderDedupKey(eventID, participantID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", TypeEventReminder, eventID, participantID)
}
