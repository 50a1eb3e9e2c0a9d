package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"

	"github.com/skyplanner/skyplanner/internal/events"
	"github.com/skyplanner/skyplanner/internal/repo"
	"github.com/skyplanner/skyplanner/pkg/logging"
)

// Audit actions recorded for the 2FA lifecycle.
const (
	AuditSetupInitiated     = "setup_initiated"
	AuditSetupCompleted     = "setup_completed"
	AuditVerificationFailed = "verification_failed"
	AuditDisabled           = "disabled"
	AuditBackupCodeUsed     = "backup_code_used"
	AuditBackupCodesReset   = "backup_codes_reset"
)

// EventPublisher is the slice of the kafka producer the Recorder needs.
// Satisfied by *events.Producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event map[string]any) error
}

// Recorder appends audit rows and mirrors them to the event stream and the
// search index. The database write is authoritative; kafka and elasticsearch
// are best-effort and only logged on failure.
type Recorder struct {
	Repo     *repo.GormRepo
	Producer EventPublisher
	ES       *elasticsearch.Client
	ESIndex  string
}

func (rec *Recorder) Record(ctx context.Context, klientID uuid.UUID, userType, action string, metadata map[string]any) error {
	if err := rec.Repo.AppendAudit(ctx, klientID, userType, action, metadata); err != nil {
		return err
	}

	l := logging.FromContext(ctx)

	if rec.Producer != nil {
		event := map[string]any{
			"type":      "twofa_" + action,
			"klient_id": klientID.String(),
			"user_type": userType,
			"metadata":  metadata,
		}
		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rec.Producer.PublishEvent(pubCtx, events.SecurityTopic, klientID.String(), event); err != nil {
			l.Error("kafka publish error", "action", action, "error", err)
		}
	}

	if rec.ES != nil {
		doc := map[string]any{
			"klient_id":  klientID.String(),
			"user_type":  userType,
			"action":     action,
			"metadata":   metadata,
			"created_at": time.Now().UTC().Format(time.RFC3339),
		}
		if err := rec.index(ctx, doc); err != nil {
			l.Error("audit index error", "action", action, "error", err)
		}
	}

	return nil
}

func (rec *Recorder) index(ctx context.Context, doc map[string]any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return err
	}
	res, err := rec.ES.Index(rec.ESIndex, &buf, rec.ES.Index.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch index: %s", res.Status())
	}
	return nil
}

// Publish sends a non-audit security event (logins, session terminations).
func (rec *Recorder) Publish(ctx context.Context, eventType string, klientID uuid.UUID, extra map[string]any) {
	if rec.Producer == nil {
		return
	}
	event := map[string]any{
		"type":      eventType,
		"klient_id": klientID.String(),
	}
	for k, v := range extra {
		event[k] = v
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rec.Producer.PublishEvent(pubCtx, events.SecurityTopic, klientID.String(), event); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "type", eventType, "error", err)
	}
}
