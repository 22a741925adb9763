package service

import (
	"context"
	"fmt"

	"github.com/imcpnet/intranet-workflow/internal/application/port"
	"github.com/imcpnet/intranet-workflow/internal/domain/entity"
	"github.com/imcpnet/intranet-workflow/internal/domain/workflow"
	"github.com/imcpnet/intranet-workflow/pkg/utils"
)

// NotificationService queues and delivers transition notifications.
// Queueing runs inside the transition transaction; delivery happens later
// and its failure only marks the row, never the transition.
type NotificationService interface {
	Queue(ctx context.Context, rec *entity.WorkflowRecord, ef workflow.Effect) error
	DeliverPending(ctx context.Context, limit int) error
}

type notificationServiceImpl struct {
	notificationRepo port.NotificationRepository
	directory        port.Directory
	notifier         port.Notifier
	logger           Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	notificationRepo port.NotificationRepository,
	directory port.Directory,
	notifier port.Notifier,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		notificationRepo: notificationRepo,
		directory:        directory,
		notifier:         notifier,
		logger:           logger,
	}
}

// Queue resolves a notify effect's audience against the directory and
// creates one pending notification row per recipient
func (s *notificationServiceImpl) Queue(ctx context.Context, rec *entity.WorkflowRecord, ef workflow.Effect) error {
	recipients, err := s.resolveAudience(ctx, rec, ef.ParamString("audience"))
	if err != nil {
		return fmt.Errorf("resolve audience: %w", err)
	}

	subject, body := renderTemplate(ef.ParamString("template"), rec, ef.ParamString("transition"))

	for _, userID := range recipients {
		n := &entity.Notification{
			RecordID:    rec.ID,
			Kind:        rec.Kind,
			RecipientID: userID,
			Subject:     subject,
			Body:        body,
			Status:      entity.NotificationStatusPending,
		}
		if err := s.notificationRepo.Create(ctx, n); err != nil {
			return fmt.Errorf("create notification: %w", err)
		}
	}

	s.logger.Info("Notifications queued",
		"record_id", rec.ID,
		"template", ef.ParamString("template"),
		"recipients", len(recipients),
	)
	return nil
}

// DeliverPending sends queued notifications. Each failure is recorded on
// its row and delivery continues with the next one.
func (s *notificationServiceImpl) DeliverPending(ctx context.Context, limit int) error {
	pending, err := s.notificationRepo.GetPending(ctx, limit)
	if err != nil {
		return fmt.Errorf("load pending notifications: %w", err)
	}

	for _, n := range pending {
		if err := s.notifier.Send(ctx, n); err != nil {
			s.logger.Error("Failed to deliver notification", "error", err, "notification_id", n.ID)
			if uerr := s.notificationRepo.UpdateStatus(ctx, n.ID, entity.NotificationStatusFailed, err.Error()); uerr != nil {
				s.logger.Error("Failed to mark notification failed", "error", uerr, "notification_id", n.ID)
			}
			continue
		}
		if err := s.notificationRepo.MarkSent(ctx, n.ID); err != nil {
			s.logger.Error("Failed to mark notification sent", "error", err, "notification_id", n.ID)
		}
	}

	return nil
}

// resolveAudience maps an audience name to recipient user IDs
func (s *notificationServiceImpl) resolveAudience(ctx context.Context, rec *entity.WorkflowRecord, audience string) ([]string, error) {
	switch audience {
	case "owner":
		if rec.OwnerID == "" {
			return nil, nil
		}
		return []string{rec.OwnerID}, nil
	case "participants":
		return rec.PayloadStrings(entity.FieldParticipants), nil
	case "all":
		users, err := s.directory.LookupUsersByGroup(ctx, entity.RoleEmployee)
		if err != nil {
			return nil, err
		}
		return userIDs(users), nil
	default:
		role := entity.Role(audience)
		if !role.IsValid() {
			return nil, fmt.Errorf("unknown audience %q", audience)
		}
		users, err := s.directory.LookupUsersByGroup(ctx, role)
		if err != nil {
			return nil, err
		}
		return userIDs(users), nil
	}
}

func userIDs(users []*entity.User) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		if u.Email != "" && utils.ValidateEmail(u.Email) != nil {
			continue
		}
		ids = append(ids, u.ID)
	}
	return ids
}

// renderTemplate produces the subject and body for a notification template
func renderTemplate(template string, rec *entity.WorkflowRecord, transition string) (string, string) {
	title := rec.PayloadString("title")
	if title == "" {
		title = fmt.Sprintf("%s #%d", rec.Kind, rec.ID)
	}
	title = utils.SanitizeString(title)

	subject := fmt.Sprintf("[%s] %s", rec.Kind, title)
	body := fmt.Sprintf("%s is now %s.", title, rec.Status)
	if transition != "" {
		body = fmt.Sprintf("%s (%s) is now %s.", title, transition, rec.Status)
	}
	if template != "" {
		subject = fmt.Sprintf("[%s] %s", template, title)
	}
	return subject, body
}
