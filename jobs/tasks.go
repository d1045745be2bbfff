package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/alesteb/alesteb-api/internal/jobs"
	"github.com/alesteb/alesteb-api/internal/platform/mailer"
	"github.com/alesteb/alesteb-api/internal/platform/storage"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail delivers a plain-text email.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeImageCleanup deletes stored image objects left behind by a
	// failed compensation or post-commit delete.
	TaskTypeImageCleanup = "image:cleanup"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	ReplyTo string `json:"reply_to,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ImageCleanupPayload lists the storage keys to delete.
type ImageCleanupPayload struct {
	Keys []string `json:"keys"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewImageCleanupTask constructs an Asynq task.
func NewImageCleanupTask(keys []string) (*asynq.Task, error) {
	data, err := json.Marshal(ImageCleanupPayload{Keys: keys})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeImageCleanup, data), nil
}

// MailJob processes TaskTypeSendEmail tasks.
type MailJob struct {
	Sender  mailer.Sender
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle sends the email. Malformed payloads are not retried.
func (j *MailJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Sender == nil {
		return errors.New("mail job: sender not configured")
	}
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if strings.TrimSpace(payload.To) == "" {
		return fmt.Errorf("recipient missing: %w", asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskTypeSendEmail)
	defer func() { err = tracker.End(err) }()

	err = j.Sender.Send(ctx, mailer.Message{
		To:      []string{payload.To},
		ReplyTo: payload.ReplyTo,
		Subject: payload.Subject,
		Body:    payload.Body,
	})
	if err != nil {
		logger(j.Logger).Warn("send email failed", slog.String("to", payload.To), slog.Any("error", err))
		return err
	}
	logger(j.Logger).Info("email sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	return nil
}

// CleanupJob processes TaskTypeImageCleanup tasks.
type CleanupJob struct {
	Store   storage.Store
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle deletes every key. Deleting a missing object succeeds, so a retry
// after partial failure only repeats work.
func (j *CleanupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("image cleanup: store not configured")
	}
	var payload ImageCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskTypeImageCleanup)
	defer func() { err = tracker.End(err) }()

	var failed []string
	for _, key := range payload.Keys {
		if key == "" {
			continue
		}
		if err := j.Store.Delete(ctx, key); err != nil {
			failed = append(failed, key)
			logger(j.Logger).Warn("image cleanup delete failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	j.Metrics.AddStoredObjects("deleted", len(payload.Keys)-len(failed))
	j.Metrics.AddStoredObjects("failed", len(failed))
	if len(failed) > 0 {
		return fmt.Errorf("image cleanup: %d of %d keys not deleted", len(failed), len(payload.Keys))
	}
	return nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
