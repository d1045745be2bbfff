package contact

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alesteb/alesteb-api/internal/shared"
	"github.com/alesteb/alesteb-api/jobs"
)

// ErrNotFound is returned for unknown message ids.
var ErrNotFound = fmt.Errorf("%w: contact message not found", shared.ErrNotFound)

// MailQueue hands notification mail to the background worker.
type MailQueue interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) error
}

// Service stores inquiries and notifies the shop inbox.
type Service struct {
	repo   Repository
	queue  MailQueue
	inbox  string
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a Service. With an empty inbox no notification is queued.
func NewService(repo Repository, queue MailQueue, inbox string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, queue: queue, inbox: strings.TrimSpace(inbox), logger: logger, now: time.Now}
}

// Submit stores the message and queues a notification. A queue failure is
// logged but does not reject the submission.
func (s *Service) Submit(ctx context.Context, in Input) (Message, error) {
	m := Message{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:   strings.TrimSpace(in.Phone),
		Subject: strings.TrimSpace(in.Subject),
		Body:    strings.TrimSpace(in.Message),
	}
	if m.Name == "" || m.Email == "" || m.Body == "" {
		return Message{}, fmt.Errorf("%w: name, email and message are required", shared.ErrValidation)
	}
	stored, err := s.repo.Create(ctx, m)
	if err != nil {
		return Message{}, err
	}
	if s.queue == nil || s.inbox == "" {
		return stored, nil
	}
	if err := s.queue.EnqueueSendEmail(ctx, notification(s.inbox, stored)); err != nil {
		s.logger.Warn("contact notification not queued", slog.Int64("message_id", stored.ID), slog.Any("error", err))
	}
	return stored, nil
}

func (s *Service) List(ctx context.Context, f ListFilters) ([]Message, int, error) {
	out, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	if out == nil {
		out = []Message{}
	}
	return out, total, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Message, error) {
	return s.repo.Get(ctx, id)
}

// MarkHandled records that staff answered the message.
func (s *Service) MarkHandled(ctx context.Context, id int64) (Message, error) {
	return s.repo.MarkHandled(ctx, id, shared.ActorID(ctx), s.now())
}

func notification(inbox string, m Message) jobs.SendEmailPayload {
	subject := m.Subject
	if subject == "" {
		subject = "New contact message"
	}
	var body strings.Builder
	fmt.Fprintf(&body, "From: %s <%s>\n", m.Name, m.Email)
	if m.Phone != "" {
		fmt.Fprintf(&body, "Phone: %s\n", m.Phone)
	}
	fmt.Fprintf(&body, "Received: %s\n\n", m.CreatedAt.UTC().Format(time.RFC3339))
	body.WriteString(m.Body)
	return jobs.SendEmailPayload{
		To:      inbox,
		ReplyTo: m.Email,
		Subject: "[Contact] " + subject,
		Body:    body.String(),
	}
}
