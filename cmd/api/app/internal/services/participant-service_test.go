package services

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kacamatagratis/kacamatagratis/pkg/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Participant{},
		&models.Event{},
		&models.NotificationLog{},
		&models.MessageTemplate{},
		&models.DripSenderKey{},
		&models.AutomationSettings{},
		&models.LandingPageSetting{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestRegisterNormalizesPhoneAndQueuesWelcome(t *testing.T) {
	db := newTestDB(t)
	svc := NewParticipantService(db)

	p, err := svc.Register(RegisterInput{
		Name:  "Budi",
		City:  "Bandung",
		Phone: "081234567890",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if p.Phone != "+6281234567890" {
		t.Errorf("phone = %q, want +6281234567890", p.Phone)
	}
	if p.ReferralCode != "6281234567890" {
		t.Errorf("referral code = %q, want 6281234567890", p.ReferralCode)
	}
	if p.Status != models.StatusBelumJoin {
		t.Errorf("status = %q, want %q", p.Status, models.StatusBelumJoin)
	}

	var entry models.NotificationLog
	if err := db.First(&entry, "participant_id = ?", p.ID).Error; err != nil {
		t.Fatalf("expected a pending welcome row: %v", err)
	}
	if entry.Type != models.TypeWelcome || entry.Status != models.StatusPending {
		t.Errorf("welcome row = %s/%s, want welcome/pending", entry.Type, entry.Status)
	}
}

func TestRegisterRejectsDuplicatePhone(t *testing.T) {
	db := newTestDB(t)
	svc := NewParticipantService(db)

	in := RegisterInput{Name: "Budi", Phone: "081234567890"}
	if _, err := svc.Register(in); err != nil {
		t.Fatalf("first register: %v", err)
	}
	// Same number in a different notation still collides.
	in.Name = "Budi Lagi"
	in.Phone = "+62 812-3456-7890"
	if _, err := svc.Register(in); err != ErrPhoneTaken {
		t.Fatalf("err = %v, want ErrPhoneTaken", err)
	}
}

func TestRegisterAssignsReferrerSequence(t *testing.T) {
	db := newTestDB(t)
	svc := NewParticipantService(db)

	referrer, err := svc.Register(RegisterInput{Name: "Sari", Phone: "081111111111"})
	if err != nil {
		t.Fatalf("register referrer: %v", err)
	}

	for i, phone := range []string{"082222222221", "082222222222", "082222222223"} {
		p, err := svc.Register(RegisterInput{
			Name:          fmt.Sprintf("Peserta %d", i+1),
			Phone:         phone,
			ReferrerPhone: referrer.ReferralCode,
		})
		if err != nil {
			t.Fatalf("register referred %d: %v", i+1, err)
		}
		if p.ReferrerCode != referrer.ReferralCode {
			t.Errorf("referrer code = %q, want %q", p.ReferrerCode, referrer.ReferralCode)
		}
		if p.ReferrerSequence != i+1 {
			t.Errorf("sequence = %d, want %d", p.ReferrerSequence, i+1)
		}
	}
}

func TestRegisterRejectsInvalidPhone(t *testing.T) {
	db := newTestDB(t)
	svc := NewParticipantService(db)

	if _, err := svc.Register(RegisterInput{Name: "X", Phone: "12"}); err == nil {
		t.Fatal("expected validation error for a bogus phone number")
	}
}

func TestUnsubscribeParksPendingWelcome(t *testing.T) {
	db := newTestDB(t)
	svc := NewParticipantService(db)

	p, err := svc.Register(RegisterInput{Name: "Budi", Phone: "081234567890"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.SetUnsubscribed(p.ID, true); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	var entry models.NotificationLog
	if err := db.First(&entry, "participant_id = ?", p.ID).Error; err != nil {
		t.Fatalf("welcome row: %v", err)
	}
	if entry.Status != models.StatusSkipped {
		t.Errorf("status after unsubscribe = %q, want %q", entry.Status, models.StatusSkipped)
	}
	var pending int64
	db.Model(&models.NotificationLog{}).Where("status = ?", models.StatusPending).Count(&pending)
	if pending != 0 {
		t.Errorf("pending count = %d after unsubscribe, want 0", pending)
	}

	// Re-subscribing puts the claim back so the welcome can still go out.
	if _, err := svc.SetUnsubscribed(p.ID, false); err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	if err := db.First(&entry, "participant_id = ?", p.ID).Error; err != nil {
		t.Fatalf("welcome row: %v", err)
	}
	if entry.Status != models.StatusPending {
		t.Errorf("status after resubscribe = %q, want %q", entry.Status, models.StatusPending)
	}
}

func TestToggleStatusFlipsBothWays(t *testing.T) {
	db := newTestDB(t)
	svc := NewParticipantService(db)

	p, err := svc.Register(RegisterInput{Name: "Budi", Phone: "081234567890"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	p, err = svc.ToggleStatus(p.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if p.Status != models.StatusSudahJoin {
		t.Errorf("status = %q, want %q", p.Status, models.StatusSudahJoin)
	}
	p, err = svc.ToggleStatus(p.ID)
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if p.Status != models.StatusBelumJoin {
		t.Errorf("status = %q, want %q", p.Status, models.StatusBelumJoin)
	}
}
