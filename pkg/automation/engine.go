package automation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kacamatagratis/kacamatagratis/metrics"
	"github.com/kacamatagratis/kacamatagratis/pkg/gateway"
	"github.com/kacamatagratis/kacamatagratis/pkg/models"
	"github.com/kacamatagratis/kacamatagratis/pkg/repositories"
	"github.com/kacamatagratis/kacamatagratis/pkg/template"
)

// ErrAutomationDisabled is returned when the settings document has the
// engine switched off. Nothing is scanned or sent in that case.
var ErrAutomationDisabled = errors.New("automation is disabled")

// Results aggregates one full cycle, matching the cron endpoint's
// response shape.
type Results struct {
	WelcomeMessagesSent int      `json:"welcome_messages_sent"`
	ReferrerAlertsSent  int      `json:"referrer_alerts_sent"`
	EventRemindersSent  int      `json:"event_reminders_sent"`
	FailedRetries       int      `json:"failed_retries"`
	Errors              []string `json:"errors"`
}

// Engine runs the four automation passes: retry-failed, welcome,
// referrer-alert and event-reminder. Each pass is Scan -> Filter ->
// Claim -> Render -> Send -> Record; the claim (a conditional status
// flip on the log row) is what keeps concurrent cycles from sending
// the same logical message twice.
type Engine struct {
	participants *repositories.ParticipantRepository
	events       *repositories.EventRepository
	logs         *repositories.NotificationRepository
	templates    *repositories.TemplateRepository
	settings     *repositories.SettingsRepository
	gateway      *gateway.Gateway

	publicBaseURL string
	log           *zap.Logger
	now           func() time.Time
}

func NewEngine(
	participants *repositories.ParticipantRepository,
	events *repositories.EventRepository,
	logs *repositories.NotificationRepository,
	templates *repositories.TemplateRepository,
	settings *repositories.SettingsRepository,
	gw *gateway.Gateway,
	publicBaseURL string,
	log *zap.Logger,
) *Engine {
	return &Engine{
		participants:  participants,
		events:        events,
		logs:          logs,
		templates:     templates,
		settings:      settings,
		gateway:       gw,
		publicBaseURL: publicBaseURL,
		log:           log,
		now:           time.Now,
	}
}

// RunCycle performs one full four-pass sweep. Per-item failures land in
// Results.Errors; only settings/collection reads abort the cycle.
func (e *Engine) RunCycle(ctx context.Context) (*Results, error) {
	cfg, err := e.settings.GetAutomation()
	if err != nil {
		return nil, fmt.Errorf("read automation settings: %w", err)
	}
	if !cfg.AutomationEnabled {
		return nil, ErrAutomationDisabled
	}

	timer := prometheus.NewTimer(metrics.AutomationCycleDuration)
	defer timer.ObserveDuration()

	res := &Results{Errors: []string{}}
	if err := e.retryFailedPass(ctx, res); err != nil {
		return nil, err
	}
	if err := e.welcomePass(ctx, cfg, res); err != nil {
		return nil, err
	}
	if err := e.referrerAlertPass(ctx, cfg, res); err != nil {
		return nil, err
	}
	if err := e.eventReminderPass(ctx, cfg, res); err != nil {
		return nil, err
	}

	e.log.Info("automation cycle complete",
		zap.Int("welcome", res.WelcomeMessagesSent),
		zap.Int("referrer_alerts", res.ReferrerAlertsSent),
		zap.Int("event_reminders", res.EventRemindersSent),
		zap.Int("retries", res.FailedRetries),
		zap.Int("errors", len(res.Errors)),
	)
	return res, nil
}

func (e *Engine) recordError(res *Results, pass string, err error) {
	metrics.AutomationPassErrorsTotal.WithLabelValues(pass).Inc()
	res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", pass, err))
	e.log.Warn("automation pass item failed", zap.String("pass", pass), zap.Error(err))
}

// retryFailedPass re-sends failed log entries, newest first, using the
// variable snapshot stored on each row. Outcomes update the row in
// place; a retried failure is never duplicated.
func (e *Engine) retryFailedPass(ctx context.Context, res *Results) error {
	failed, err := e.logs.ListFailed()
	if err != nil {
		return fmt.Errorf("list failed notifications: %w", err)
	}

	for _, entry := range failed {
		ok, err := e.logs.ClaimFailed(entry.ID)
		if err != nil {
			e.recordError(res, "retry", err)
			continue
		}
		if !ok {
			continue
		}

		text, vars, err := e.rebuildMessage(&entry)
		if err != nil {
			e.recordError(res, "retry", err)
			if relErr := e.logs.Release(entry.ID, models.StatusFailed, err.Error()); relErr != nil {
				e.recordError(res, "retry", relErr)
			}
			continue
		}

		out := e.gateway.Send(ctx, gateway.Request{
			Phone:    entry.TargetPhone,
			Text:     text,
			Type:     entry.Type,
			Metadata: vars,
			LogID:    entry.ID,
		})
		if out.Success {
			res.FailedRetries++
		} else {
			e.recordError(res, "retry", out.Err)
		}
	}
	return nil
}

// RetryOne re-sends a single failed entry on demand (the admin's manual
// retry). It shares the claim with the retry pass, so a concurrent
// cycle cannot send the same entry twice.
func (e *Engine) RetryOne(ctx context.Context, id uuid.UUID) error {
	entry, err := e.logs.GetByID(id)
	if err != nil {
		return err
	}
	ok, err := e.logs.ClaimFailed(entry.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("notification %s is not in failed state", id)
	}

	text, vars, err := e.rebuildMessage(entry)
	if err != nil {
		if relErr := e.logs.Release(entry.ID, models.StatusFailed, err.Error()); relErr != nil {
			return relErr
		}
		return err
	}

	out := e.gateway.Send(ctx, gateway.Request{
		Phone:    entry.TargetPhone,
		Text:     text,
		Type:     entry.Type,
		Metadata: vars,
		LogID:    entry.ID,
	})
	if !out.Success {
		return out.Err
	}
	return nil
}

// rebuildMessage reconstructs the outgoing text for a retry. Templated
// types re-render from the stored variables; broadcast rows reuse the
// stored content. Either way the anti-spam suffix is fresh.
func (e *Engine) rebuildMessage(entry *models.NotificationLog) (string, map[string]string, error) {
	vars, err := entry.Variables()
	if err != nil {
		return "", nil, err
	}

	if entry.Type == models.TypeBroadcast {
		body := template.StripSuffix(entry.MessageContent)
		return body + template.AntiSpamSuffix(), vars, nil
	}

	tmpl, err := e.templates.LatestByType(entry.Type)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, fmt.Errorf("no template for type %q", entry.Type)
		}
		return "", nil, err
	}
	return template.Render(tmpl.Content, vars) + template.AntiSpamSuffix(), vars, nil
}

// welcomePass greets participants whose registration delay has elapsed.
func (e *Engine) welcomePass(ctx context.Context, cfg *models.AutomationSettings, res *Results) error {
	parts, err := e.participants.ListSubscribed()
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}

	cutoff := e.now().Add(-time.Duration(cfg.WelcomeDelayMinutes) * time.Minute)
	for _, p := range parts {
		if p.RegisteredAt.After(cutoff) {
			continue
		}

		vars := map[string]string{
			"sapaan":        p.Sapaan,
			"name":          p.Name,
			"city":          p.City,
			"referral_code": p.ReferralCode,
			"referral_link": e.referralLink(p.ReferralCode),
		}
		pid := p.ID
		key := models.WelcomeDedupKey(pid)
		sent, err := e.sendClaimed(ctx, claimedSend{
			dedupKey:      key,
			msgType:       models.TypeWelcome,
			participantID: &pid,
			phone:         p.Phone,
			vars:          vars,
		})
		if err != nil {
			e.recordError(res, "welcome", err)
			continue
		}
		if sent {
			res.WelcomeMessagesSent++
		}
	}
	return nil
}

// referrerAlertPass tells a referrer that someone registered with their
// code. Dedup is keyed by the referred participant, so each referral
// event alerts exactly once. The delay setting is honored here the same
// way the welcome pass honors its own.
func (e *Engine) referrerAlertPass(ctx context.Context, cfg *models.AutomationSettings, res *Results) error {
	referred, err := e.participants.ListReferred()
	if err != nil {
		return fmt.Errorf("list referred participants: %w", err)
	}

	cutoff := e.now().Add(-time.Duration(cfg.ReferrerAlertDelayMinutes) * time.Minute)
	for _, p := range referred {
		if p.RegisteredAt.After(cutoff) {
			continue
		}

		// The stored referrer code matches against referral_code, never
		// against the raw phone column.
		referrer, err := e.participants.GetByReferralCode(p.ReferrerCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// No attempt was made, so no log row either.
				continue
			}
			e.recordError(res, "referrer_alert", err)
			continue
		}

		count, err := e.participants.CountByReferrerCode(referrer.ReferralCode)
		if err != nil {
			e.recordError(res, "referrer_alert", err)
			continue
		}

		vars := map[string]string{
			"sapaan":         referrer.Sapaan,
			"name":           referrer.Name,
			"referred_name":  p.Name,
			"referred_city":  p.City,
			"referral_count": strconv.FormatInt(count, 10),
		}
		pid := p.ID
		key := models.ReferrerAlertDedupKey(pid)
		sent, err := e.sendClaimed(ctx, claimedSend{
			dedupKey:      key,
			msgType:       models.TypeReferrerAlert,
			participantID: &pid,
			phone:         referrer.Phone,
			vars:          vars,
		})
		if err != nil {
			e.recordError(res, "referrer_alert", err)
			continue
		}
		if sent {
			res.ReferrerAlertsSent++
		}
	}
	return nil
}

// eventReminderPass fans a reminder out to every subscribed participant
// once an event enters the one-hour window ending hoursBefore its
// start. Claims are per (event, participant), so an interrupted fan-out
// resumes on the next cycle instead of silently skipping the rest.
func (e *Engine) eventReminderPass(ctx context.Context, cfg *models.AutomationSettings, res *Results) error {
	now := e.now()
	upcoming, err := e.events.ListUpcoming(now)
	if err != nil {
		return fmt.Errorf("list upcoming events: %w", err)
	}

	hoursBefore := time.Duration(cfg.EventReminderHoursBefore) * time.Hour
	for _, ev := range upcoming {
		diff := ev.StartTime.Sub(now)
		if diff > hoursBefore || diff < hoursBefore-time.Hour {
			continue
		}

		parts, err := e.participants.ListSubscribed()
		if err != nil {
			return fmt.Errorf("list participants: %w", err)
		}

		for _, p := range parts {
			vars := map[string]string{
				"sapaan":      p.Sapaan,
				"name":        p.Name,
				"event_title": ev.Title,
				"event_time":  ev.StartTime.Format("02 Jan 2006 15:04"),
				"zoom_link":   ev.ZoomLink,
			}
			pid := p.ID
			eid := ev.ID
			key := models.EventReminderDedupKey(eid, pid)
			sent, err := e.sendClaimed(ctx, claimedSend{
				dedupKey:      key,
				msgType:       models.TypeEventReminder,
				participantID: &pid,
				eventID:       &eid,
				phone:         p.Phone,
				vars:          vars,
			})
			if err != nil {
				e.recordError(res, "event_reminder", err)
				continue
			}
			if sent {
				res.EventRemindersSent++
			}
		}
	}
	return nil
}

type claimedSend struct {
	dedupKey      string
	msgType       string
	participantID *uuid.UUID
	eventID       *uuid.UUID
	phone         string
	vars          map[string]string
}

// sendClaimed runs the claim-render-send-record tail shared by the
// three eligibility passes. It returns (false, nil) when another cycle
// already owns or finished this dedup key.
func (e *Engine) sendClaimed(ctx context.Context, s claimedSend) (bool, error) {
	key := s.dedupKey
	if err := e.logs.EnsurePending(&models.NotificationLog{
		ParticipantID: s.participantID,
		EventID:       s.eventID,
		TargetPhone:   s.phone,
		Type:          s.msgType,
		DedupKey:      &key,
		Status:        models.StatusPending,
	}); err != nil {
		return false, err
	}

	entry, claimed, err := e.logs.ClaimPending(key)
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	tmpl, err := e.templates.LatestByType(s.msgType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Put the claim back so the row is retried once a template exists.
			if relErr := e.logs.Release(entry.ID, models.StatusPending, ""); relErr != nil {
				return false, relErr
			}
			return false, fmt.Errorf("no template for type %q", s.msgType)
		}
		return false, err
	}

	text := template.Render(tmpl.Content, s.vars) + template.AntiSpamSuffix()
	out := e.gateway.Send(ctx, gateway.Request{
		Phone:    s.phone,
		Text:     text,
		Type:     s.msgType,
		Metadata: s.vars,
		LogID:    entry.ID,
	})
	if !out.Success {
		return false, out.Err
	}
	return true, nil
}

func (e *Engine) referralLink(code string) string {
	return fmt.Sprintf("%s/?ref=%s", e.publicBaseURL, code)
}
