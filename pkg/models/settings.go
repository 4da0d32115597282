package models

import "time"

// AutomationSettings is a singleton row (ID 1). Every automation cycle
// reads one snapshot of it up front.
type AutomationSettings struct {
	ID                        uint      `gorm:"primaryKey" json:"-"`
	WelcomeDelayMinutes       int       `gorm:"default:5" json:"welcome_delay_minutes"`
	ReferrerAlertDelayMinutes int       `gorm:"default:0" json:"referrer_alert_delay_minutes"`
	EventReminderHoursBefore  int       `gorm:"default:1" json:"event_reminder_hours_before"`
	AutomationEnabled         bool      `gorm:"default:true" json:"automation_enabled"`
	EngineIntervalSeconds     int       `gorm:"default:60" json:"automation_engine_interval_seconds"`
	UpdatedAt                 time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// LandingPageSetting is one keyed content block of the public page.
type LandingPageSetting struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Key       string    `gorm:"size:100;not null;uniqueIndex" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
