package repositories

import (
	"testing"

	"github.com/google/uuid"

	"github.com/kacamatagratis/kacamatagratis/pkg/models"
)

func pendingEntry(participantID uuid.UUID) *models.NotificationLog {
	key := models.WelcomeDedupKey(participantID)
	return &models.NotificationLog{
		ParticipantID: &participantID,
		TargetPhone:   "+6281234567890",
		Type:          models.TypeWelcome,
		DedupKey:      &key,
		Status:        models.StatusPending,
	}
}

func TestEnsurePendingIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	pid := uuid.New()

	if err := repo.EnsurePending(pendingEntry(pid)); err != nil {
		t.Fatalf("first EnsurePending: %v", err)
	}
	if err := repo.EnsurePending(pendingEntry(pid)); err != nil {
		t.Fatalf("second EnsurePending: %v", err)
	}

	var n int64
	db.Model(&models.NotificationLog{}).Count(&n)
	if n != 1 {
		t.Errorf("expected 1 row after double insert, got %d", n)
	}
}

func TestEnsurePendingRequiresDedupKey(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	if err := repo.EnsurePending(&models.NotificationLog{Type: models.TypeBroadcast}); err == nil {
		t.Error("expected error without a dedup key")
	}
}

func TestClaimPendingSingleWinner(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	pid := uuid.New()
	key := models.WelcomeDedupKey(pid)

	if err := repo.EnsurePending(pendingEntry(pid)); err != nil {
		t.Fatalf("EnsurePending: %v", err)
	}

	entry, claimed, err := repo.ClaimPending(key)
	if err != nil || !claimed {
		t.Fatalf("first claim: claimed=%v err=%v", claimed, err)
	}
	if entry.Status != models.StatusProcessing {
		t.Errorf("claimed entry status = %q, want processing", entry.Status)
	}

	_, claimed, err = repo.ClaimPending(key)
	if err != nil {
		t.Fatalf("second claim errored: %v", err)
	}
	if claimed {
		t.Error("second claim won; the flip must be exclusive")
	}
}

func TestClaimFailedForRetry(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	pid := uuid.New()

	entry := pendingEntry(pid)
	entry.Status = models.StatusFailed
	entry.Error = "provider returned 500"
	if err := repo.Append(entry); err != nil {
		t.Fatalf("Append: %v", err)
	}

	ok, err := repo.ClaimFailed(entry.ID)
	if err != nil || !ok {
		t.Fatalf("ClaimFailed: ok=%v err=%v", ok, err)
	}
	ok, err = repo.ClaimFailed(entry.ID)
	if err != nil {
		t.Fatalf("second ClaimFailed errored: %v", err)
	}
	if ok {
		t.Error("second ClaimFailed won; must be exclusive")
	}
}

func TestMarkResultAndListFailed(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	pid := uuid.New()

	entry := pendingEntry(pid)
	if err := repo.Append(entry); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := repo.MarkResult(entry.ID, models.StatusFailed, "key-1", "halo", "timeout"); err != nil {
		t.Fatalf("MarkResult: %v", err)
	}

	failed, err := repo.ListFailed()
	if err != nil {
		t.Fatalf("ListFailed: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("expected 1 failed entry, got %d", len(failed))
	}
	if failed[0].Error != "timeout" || failed[0].APIKeyUsed != "key-1" {
		t.Errorf("failed entry not updated in place: %+v", failed[0])
	}

	if err := repo.MarkResult(entry.ID, models.StatusSuccess, "key-2", "halo", ""); err != nil {
		t.Fatalf("MarkResult success: %v", err)
	}
	failed, _ = repo.ListFailed()
	if len(failed) != 0 {
		t.Errorf("entry marked success still listed as failed")
	}
}

func TestWasSentGuards(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	pid := uuid.New()
	eid := uuid.New()

	sent, err := repo.WasSent(models.TypeWelcome, pid)
	if err != nil || sent {
		t.Fatalf("empty log: sent=%v err=%v", sent, err)
	}

	key := models.EventReminderDedupKey(eid, pid)
	entry := &models.NotificationLog{
		ParticipantID: &pid,
		EventID:       &eid,
		TargetPhone:   "+6281234567890",
		Type:          models.TypeEventReminder,
		DedupKey:      &key,
		Status:        models.StatusSuccess,
	}
	if err := repo.Append(entry); err != nil {
		t.Fatalf("Append: %v", err)
	}

	sent, err = repo.WasSentForEvent(models.TypeEventReminder, eid)
	if err != nil || !sent {
		t.Errorf("WasSentForEvent = %v, %v; want true", sent, err)
	}
	sent, err = repo.WasSent(models.TypeEventReminder, pid)
	if err != nil || !sent {
		t.Errorf("WasSent = %v, %v; want true", sent, err)
	}
}

func TestBroadcastRowsAllowDuplicates(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	pid := uuid.New()

	for i := 0; i < 2; i++ {
		entry := &models.NotificationLog{
			ParticipantID: &pid,
			TargetPhone:   "+6281234567890",
			Type:          models.TypeBroadcast,
			Status:        models.StatusSuccess,
		}
		if err := repo.Append(entry); err != nil {
			t.Fatalf("broadcast append %d: %v", i, err)
		}
	}
	var n int64
	db.Model(&models.NotificationLog{}).Where("type = ?", models.TypeBroadcast).Count(&n)
	if n != 2 {
		t.Errorf("expected 2 broadcast rows, got %d", n)
	}
}
