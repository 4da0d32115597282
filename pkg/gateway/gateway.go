package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kacamatagratis/kacamatagratis/metrics"
	"github.com/kacamatagratis/kacamatagratis/pkg/dripsender"
	"github.com/kacamatagratis/kacamatagratis/pkg/models"
	"github.com/kacamatagratis/kacamatagratis/pkg/repositories"
)

// Sender is the provider call. *dripsender.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, apiKey, phone, text string) error
}

// Gateway sends one message through the credential pool: pick a key,
// call the provider, retry exactly once with a different key on
// failure, record key usage, and leave one notification log row behind.
type Gateway struct {
	pool   Pool
	keys   *repositories.DripSenderKeyRepository
	logs   *repositories.NotificationRepository
	client Sender
	log    *zap.Logger
}

func New(pool Pool, keys *repositories.DripSenderKeyRepository, logs *repositories.NotificationRepository, client Sender, log *zap.Logger) *Gateway {
	return &Gateway{pool: pool, keys: keys, logs: logs, client: client, log: log}
}

type Request struct {
	Phone string
	Text  string
	Type  string
	// Optional context recorded on the log row.
	ParticipantID *uuid.UUID
	EventID       *uuid.UUID
	// Snapshot of the variables the text was rendered from.
	Metadata map[string]string
	// When set, the outcome updates this already-claimed row instead of
	// appending a new one.
	LogID uuid.UUID
}

type Result struct {
	Success    bool
	APIKeyUsed string
	Err        error
}

func (g *Gateway) Send(ctx context.Context, req Request) Result {
	timer := prometheus.NewTimer(metrics.MessageSendDuration.WithLabelValues(req.Type))
	defer timer.ObserveDuration()

	res := g.attempt(ctx, req)

	status := models.StatusSuccess
	errMsg := ""
	if !res.Success {
		status = models.StatusFailed
		errMsg = res.Err.Error()
		metrics.ProviderAPIFailureTotal.Inc()
	} else {
		metrics.ProviderAPISuccessTotal.Inc()
	}
	metrics.MessagesAttemptedTotal.WithLabelValues(req.Type, status).Inc()

	if err := g.record(req, status, res.APIKeyUsed, errMsg); err != nil {
		g.log.Error("failed to write notification log",
			zap.String("type", req.Type),
			zap.String("phone", req.Phone),
			zap.Error(err),
		)
	}
	return res
}

// attempt runs the provider call with the single different-key retry.
func (g *Gateway) attempt(ctx context.Context, req Request) Result {
	phone := dripsender.NormalizePhone(req.Phone)
	if phone == "" {
		return Result{Err: fmt.Errorf("empty target phone")}
	}

	first, err := g.pool.Pick(nil)
	if err != nil {
		return Result{Err: err}
	}

	if err := g.client.Send(ctx, first.APIKey, phone, req.Text); err == nil {
		g.recordUsage(first)
		return Result{Success: true, APIKeyUsed: keyName(first)}
	} else {
		g.log.Warn("provider send failed, retrying with a different key",
			zap.String("key", keyName(first)),
			zap.String("phone", phone),
			zap.Error(err),
		)
		metrics.MessageRetriesTotal.WithLabelValues("provider_error").Inc()

		second, pickErr := g.pool.Pick([]uuid.UUID{first.ID})
		if pickErr != nil {
			if errors.Is(pickErr, ErrNoActiveKeys) {
				// Nothing distinct from the first key to fall back to.
				return Result{APIKeyUsed: keyName(first), Err: err}
			}
			return Result{APIKeyUsed: keyName(first), Err: pickErr}
		}
		if retryErr := g.client.Send(ctx, second.APIKey, phone, req.Text); retryErr != nil {
			return Result{APIKeyUsed: keyName(second), Err: retryErr}
		}
		g.recordUsage(second)
		return Result{Success: true, APIKeyUsed: keyName(second)}
	}
}

func (g *Gateway) recordUsage(k *models.DripSenderKey) {
	if err := g.keys.RecordUsage(k.ID); err != nil {
		g.log.Error("failed to record key usage", zap.String("key", keyName(k)), zap.Error(err))
	}
}

// record writes the outcome: either onto the claimed row (automation
// passes) or as a fresh row when a participant is known. Sends with no
// log row and no participant leave no trace.
func (g *Gateway) record(req Request, status, apiKeyUsed, errMsg string) error {
	meta := ""
	if len(req.Metadata) > 0 {
		raw, err := json.Marshal(req.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		meta = string(raw)
	}

	if req.LogID != uuid.Nil {
		if meta != "" {
			return g.logs.MarkResultWithMetadata(req.LogID, status, apiKeyUsed, req.Text, errMsg, meta)
		}
		return g.logs.MarkResult(req.LogID, status, apiKeyUsed, req.Text, errMsg)
	}
	if req.ParticipantID == nil {
		return nil
	}
	return g.logs.Append(&models.NotificationLog{
		ParticipantID:  req.ParticipantID,
		EventID:        req.EventID,
		TargetPhone:    dripsender.StoragePhone(req.Phone),
		Type:           req.Type,
		APIKeyUsed:     apiKeyUsed,
		Status:         status,
		MessageContent: req.Text,
		Error:          errMsg,
		Metadata:       meta,
	})
}

func keyName(k *models.DripSenderKey) string {
	if k.Label != "" {
		return k.Label
	}
	return k.APIKey
}
