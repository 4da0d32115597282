package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageTemplate holds a named message body with {placeholder} tokens.
// Type is the lookup key but is not unique in storage; when duplicates
// exist the most recently created template wins.
type MessageTemplate struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name    string    `gorm:"size:100;not null" json:"name"`
	Type    string    `gorm:"size:30;not null;index" json:"type"`
	Content string    `gorm:"type:text;not null" json:"content"`
	// Documentation list of the placeholders the content expects.
	Variables string    `gorm:"type:text" json:"variables"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *MessageTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
