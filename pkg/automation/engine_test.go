package automation

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kacamatagratis/kacamatagratis/pkg/dripsender"
	"github.com/kacamatagratis/kacamatagratis/pkg/gateway"
	"github.com/kacamatagratis/kacamatagratis/pkg/models"
	"github.com/kacamatagratis/kacamatagratis/pkg/repositories"
)

type fixture struct {
	db           *gorm.DB
	engine       *Engine
	participants *repositories.ParticipantRepository
	events       *repositories.EventRepository
	logs         *repositories.NotificationRepository
	templates    *repositories.TemplateRepository
	settings     *repositories.SettingsRepository
	sendCalls    *int64
	now          time.Time
}

// newFixture wires a full engine against an in-memory database and a
// stub provider that accepts everything (unless failAll).
func newFixture(t *testing.T, failAll bool) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
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
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		if failAll {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"message":"provider down"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	participants := repositories.NewParticipantRepository(db)
	events := repositories.NewEventRepository(db)
	logs := repositories.NewNotificationRepository(db)
	templates := repositories.NewTemplateRepository(db)
	settings := repositories.NewSettingsRepository(db)
	keys := repositories.NewDripSenderKeyRepository(db)

	if err := keys.Create(&models.DripSenderKey{APIKey: "test-key", Label: "test", IsActive: true}); err != nil {
		t.Fatalf("create key: %v", err)
	}
	for _, tm := range []models.MessageTemplate{
		{Name: "Welcome", Type: models.TypeWelcome, Content: "Halo {sapaan} {name}, link: {referral_link}"},
		{Name: "Referrer alert", Type: models.TypeReferrerAlert, Content: "{name}, {referred_name} joined! Total: {referral_count}"},
		{Name: "Reminder", Type: models.TypeEventReminder, Content: "{name}, {event_title} at {event_time}: {zoom_link}"},
	} {
		tm := tm
		if err := templates.Create(&tm); err != nil {
			t.Fatalf("create template: %v", err)
		}
	}

	client := dripsender.NewClient(srv.URL, 5*time.Second)
	gw := gateway.New(gateway.NewRandomPool(keys), keys, logs, client, zap.NewNop())
	engine := NewEngine(participants, events, logs, templates, settings, gw, "https://kacamatagratis.org", zap.NewNop())

	now := time.Now()
	engine.now = func() time.Time { return now }

	return &fixture{
		db:           db,
		engine:       engine,
		participants: participants,
		events:       events,
		logs:         logs,
		templates:    templates,
		settings:     settings,
		sendCalls:    &calls,
		now:          now,
	}
}

func (f *fixture) addParticipant(t *testing.T, name, phone, referrerCode string, registeredAgo time.Duration) *models.Participant {
	t.Helper()
	p := &models.Participant{
		Sapaan:       "Bapak",
		Name:         name,
		City:         "Bandung",
		Phone:        dripsender.StoragePhone(phone),
		ReferralCode: dripsender.ReferralCode(phone),
		ReferrerCode: referrerCode,
		Status:       models.StatusBelumJoin,
		RegisteredAt: f.now.Add(-registeredAgo),
	}
	if err := f.participants.Create(p); err != nil {
		t.Fatalf("create participant: %v", err)
	}
	return p
}

func (f *fixture) calls() int64 { return atomic.LoadInt64(f.sendCalls) }

func TestWelcomePassSendsExactlyOnce(t *testing.T) {
	f := newFixture(t, false)
	p := f.addParticipant(t, "Budi", "081234567890", "", 10*time.Minute)

	res, err := f.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.WelcomeMessagesSent != 1 {
		t.Fatalf("welcome sent = %d, want 1", res.WelcomeMessagesSent)
	}

	entries, _ := f.logs.List("", models.TypeWelcome, 0)
	if len(entries) != 1 {
		t.Fatalf("expected 1 welcome row, got %d", len(entries))
	}
	e := entries[0]
	if e.Status != models.StatusSuccess || e.ParticipantID == nil || *e.ParticipantID != p.ID {
		t.Errorf("welcome row %+v", e)
	}
	if !strings.Contains(e.MessageContent, "Halo Bapak Budi") ||
		!strings.Contains(e.MessageContent, "https://kacamatagratis.org/?ref="+p.ReferralCode) {
		t.Errorf("rendered content %q", e.MessageContent)
	}

	// N more cycles change nothing for this participant.
	before := f.calls()
	for i := 0; i < 3; i++ {
		res, err = f.engine.RunCycle(context.Background())
		if err != nil {
			t.Fatalf("RunCycle %d: %v", i, err)
		}
		if res.WelcomeMessagesSent != 0 {
			t.Fatalf("cycle %d re-sent welcome", i)
		}
	}
	if f.calls() != before {
		t.Errorf("provider called again after the welcome was delivered")
	}
}

func TestWelcomePassRespectsDelay(t *testing.T) {
	f := newFixture(t, false)
	f.addParticipant(t, "Budi", "081234567890", "", 1*time.Minute) // delay default is 5

	res, err := f.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.WelcomeMessagesSent != 0 || f.calls() != 0 {
		t.Errorf("welcome fired before the delay elapsed: %+v", res)
	}
}

func TestWelcomePassPicksUpRegistrationPendingRow(t *testing.T) {
	f := newFixture(t, false)
	p := f.addParticipant(t, "Budi", "081234567890", "", 10*time.Minute)

	// Registration pre-creates the pending claim row.
	key := models.WelcomeDedupKey(p.ID)
	pid := p.ID
	if err := f.logs.EnsurePending(&models.NotificationLog{
		ParticipantID: &pid,
		TargetPhone:   p.Phone,
		Type:          models.TypeWelcome,
		DedupKey:      &key,
		Status:        models.StatusPending,
	}); err != nil {
		t.Fatal(err)
	}

	res, err := f.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.WelcomeMessagesSent != 1 {
		t.Fatalf("welcome sent = %d, want 1", res.WelcomeMessagesSent)
	}
	var n int64
	f.db.Model(&models.NotificationLog{}).Where("type = ?", models.TypeWelcome).Count(&n)
	if n != 1 {
		t.Errorf("expected the pre-created row to be reused, got %d rows", n)
	}
}

func TestReferrerAlertUsesLiveCount(t *testing.T) {
	f := newFixture(t, false)
	referrer := f.addParticipant(t, "Ani", "081111111111", "", time.Minute)
	referred1 := f.addParticipant(t, "Budi", "082222222222", referrer.ReferralCode, time.Minute)

	res, err := f.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.ReferrerAlertsSent != 1 {
		t.Fatalf("alerts sent = %d, want 1", res.ReferrerAlertsSent)
	}
	entries, _ := f.logs.List("", models.TypeReferrerAlert, 0)
	if len(entries) != 1 {
		t.Fatalf("expected 1 alert row, got %d", len(entries))
	}
	if entries[0].ParticipantID == nil || *entries[0].ParticipantID != referred1.ID {
		t.Errorf("alert keyed by %v, want referred participant %v", entries[0].ParticipantID, referred1.ID)
	}
	if entries[0].TargetPhone != referrer.Phone {
		t.Errorf("alert sent to %q, want referrer %q", entries[0].TargetPhone, referrer.Phone)
	}
	if !strings.Contains(entries[0].MessageContent, "Total: 1") {
		t.Errorf("first alert content %q, want live count 1", entries[0].MessageContent)
	}

	// Second referral: new alert for the new referral event, count now 2.
	f.addParticipant(t, "Citra", "083333333333", referrer.ReferralCode, time.Minute)
	res, err = f.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.ReferrerAlertsSent != 1 {
		t.Fatalf("second cycle alerts = %d, want 1", res.ReferrerAlertsSent)
	}
	entries, _ = f.logs.List("", models.TypeReferrerAlert, 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 alert rows, got %d", len(entries))
	}
	// List is newest-first.
	if !strings.Contains(entries[0].MessageContent, "Total: 2") {
		t.Errorf("second alert content %q, want live count 2", entries[0].MessageContent)
	}
}

func TestReferrerAlertRespectsDelay(t *testing.T) {
	f := newFixture(t, false)
	cfg, err := f.settings.GetAutomation()
	if err != nil {
		t.Fatal(err)
	}
	cfg.ReferrerAlertDelayMinutes = 30
	if err := f.settings.UpdateAutomation(cfg); err != nil {
		t.Fatal(err)
	}

	referrer := f.addParticipant(t, "Ani", "081111111111", "", 2*time.Hour)
	fresh := f.addParticipant(t, "Budi", "082222222222", referrer.ReferralCode, time.Minute)

	res, err := f.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.ReferrerAlertsSent != 0 {
		t.Fatalf("alert fired %d times before the delay elapsed", res.ReferrerAlertsSent)
	}
	entries, _ := f.logs.List("", models.TypeReferrerAlert, 0)
	if len(entries) != 0 {
		t.Fatalf("expected no alert rows inside the delay window, got %d", len(entries))
	}

	// A referral older than the delay fires; the fresh one still waits.
	aged := f.addParticipant(t, "Citra", "083333333333", referrer.ReferralCode, time.Hour)
	res, err = f.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.ReferrerAlertsSent != 1 {
		t.Fatalf("alerts sent = %d, want 1", res.ReferrerAlertsSent)
	}
	entries, _ = f.logs.List("", models.TypeReferrerAlert, 0)
	if len(entries) != 1 {
		t.Fatalf("expected 1 alert row, got %d", len(entries))
	}
	if entries[0].ParticipantID == nil || *entries[0].ParticipantID != aged.ID {
		t.Errorf("alert keyed by %v, want the aged referral %v", entries[0].ParticipantID, aged.ID)
	}
	if sent, _ := f.logs.WasSent(models.TypeReferrerAlert, fresh.ID); sent {
		t.Error("fresh referral alerted before its delay elapsed")
	}
}

func TestReferrerAlertSkipsUnknownReferrer(t *testing.T) {
	f := newFixture(t, false)
	f.addParticipant(t, "Budi", "082222222222", "628999999999", time.Minute)

	res, err := f.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.ReferrerAlertsSent != 0 || len(res.Errors) != 0 {
		t.Errorf("unknown referrer should skip silently: %+v", res)
	}
	entries, _ := f.logs.List("", models.TypeReferrerAlert, 0)
	if len(entries) != 0 {
		t.Errorf("no attempt was made, yet %d log rows exist", len(entries))
	}
}

func TestEventReminderWindow(t *testing.T) {
	f := newFixture(t, false)
	f.addParticipant(t, "Budi", "081234567890", "", time.Minute)
	f.addParticipant(t, "Ani", "082222222222", "", time.Minute)

	// Too far out: 3h with hoursBefore=1.
	far := &models.Event{Title: "Webinar", StartTime: f.now.Add(3 * time.Hour), ZoomLink: "https://zoom.example/1"}
	if err := f.events.Create(far); err != nil {
		t.Fatal(err)
	}
	res, err := f.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.EventRemindersSent != 0 {
		t.Fatalf("reminder fired outside the window")
	}

	// In window: 50 minutes out.
	soon := &models.Event{Title: "Kickoff", StartTime: f.now.Add(50 * time.Minute), ZoomLink: "https://zoom.example/2"}
	if err := f.events.Create(soon); err != nil {
		t.Fatal(err)
	}
	res, err = f.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.EventRemindersSent != 2 {
		t.Fatalf("reminders sent = %d, want one per participant", res.EventRemindersSent)
	}
	entries, _ := f.logs.List("", models.TypeEventReminder, 0)
	for _, e := range entries {
		if e.EventID == nil || *e.EventID != soon.ID {
			t.Errorf("reminder row not keyed by the event: %+v", e)
		}
	}

	// Re-running produces zero additional reminders for that event.
	res, err = f.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.EventRemindersSent != 0 {
		t.Errorf("event reprocessed: %d new reminders", res.EventRemindersSent)
	}
}

func TestRetryPassResendsFailedEntries(t *testing.T) {
	f := newFixture(t, false)
	pid := uuid.New()
	key := models.WelcomeDedupKey(pid)
	entry := &models.NotificationLog{
		ParticipantID:  &pid,
		TargetPhone:    "+6281234567890",
		Type:           models.TypeWelcome,
		DedupKey:       &key,
		Status:         models.StatusFailed,
		Error:          "provider down",
		MessageContent: "old content",
		Metadata:       `{"sapaan":"Bapak","name":"Budi","referral_link":"https://kacamatagratis.org/?ref=628"}`,
	}
	if err := f.logs.Append(entry); err != nil {
		t.Fatal(err)
	}

	res, err := f.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.FailedRetries != 1 {
		t.Fatalf("failed retries = %d, want 1", res.FailedRetries)
	}

	updated, err := f.logs.GetByID(entry.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != models.StatusSuccess {
		t.Errorf("retried row status = %q, want success", updated.Status)
	}
	if !strings.Contains(updated.MessageContent, "Halo Bapak Budi") {
		t.Errorf("retry did not re-render from metadata: %q", updated.MessageContent)
	}

	// A successful retry is not retried again.
	before := f.calls()
	res, err = f.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.FailedRetries != 0 || f.calls() != before {
		t.Errorf("entry retried again after success")
	}
}

func TestSendFailureDoesNotAbortPass(t *testing.T) {
	f := newFixture(t, true)
	f.addParticipant(t, "Budi", "081234567890", "", 10*time.Minute)
	f.addParticipant(t, "Ani", "082222222222", "", 10*time.Minute)

	res, err := f.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("per-item failures must not abort the cycle: %v", err)
	}
	if res.WelcomeMessagesSent != 0 {
		t.Errorf("sends counted despite provider failure")
	}
	if len(res.Errors) == 0 {
		t.Error("expected per-item errors to be collected")
	}

	failed, _ := f.logs.ListFailed()
	if len(failed) != 2 {
		t.Errorf("expected 2 failed rows (one per participant), got %d", len(failed))
	}
}

func TestAutomationDisabled(t *testing.T) {
	f := newFixture(t, false)
	cfg, err := f.settings.GetAutomation()
	if err != nil {
		t.Fatal(err)
	}
	cfg.AutomationEnabled = false
	if err := f.settings.UpdateAutomation(cfg); err != nil {
		t.Fatal(err)
	}

	if _, err := f.engine.RunCycle(context.Background()); err != ErrAutomationDisabled {
		t.Errorf("RunCycle err = %v, want ErrAutomationDisabled", err)
	}
}

func TestMissingTemplateReleasesClaim(t *testing.T) {
	f := newFixture(t, false)
	f.db.Where("type = ?", models.TypeWelcome).Delete(&models.MessageTemplate{})
	p := f.addParticipant(t, "Budi", "081234567890", "", 10*time.Minute)

	res, err := f.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.WelcomeMessagesSent != 0 || len(res.Errors) == 0 {
		t.Fatalf("missing template should skip with an error: %+v", res)
	}

	// The claim went back to pending; once a template exists it sends.
	if err := f.templates.Create(&models.MessageTemplate{
		Name: "Welcome", Type: models.TypeWelcome, Content: "Halo {name}",
	}); err != nil {
		t.Fatal(err)
	}
	res, err = f.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.WelcomeMessagesSent != 1 {
		t.Fatalf("welcome not sent after template appeared: %+v", res)
	}
	sent, _ := f.logs.WasSent(models.TypeWelcome, p.ID)
	if !sent {
		t.Error("welcome row missing")
	}
}
