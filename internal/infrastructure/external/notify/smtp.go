package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/imcpnet/intranet-workflow/internal/application/port"
	"github.com/imcpnet/intranet-workflow/internal/domain/entity"
)

// SMTPNotifier implements port.Notifier over the corporate mail relay.
// Recipient addresses come from the directory.
type SMTPNotifier struct {
	addr      string
	from      string
	directory port.Directory
	logger    *zap.Logger

	// send is swappable for tests
	send func(addr string, from string, to []string, msg []byte) error
}

// NewSMTPNotifier creates a new SMTP notifier
func NewSMTPNotifier(addr, from string, directory port.Directory, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		addr:      addr,
		from:      from,
		directory: directory,
		logger:    logger,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// Send delivers one notification to its recipient's mailbox
func (n *SMTPNotifier) Send(ctx context.Context, notification *entity.Notification) error {
	user, err := n.directory.GetUser(ctx, notification.RecipientID)
	if err != nil {
		return fmt.Errorf("resolve recipient %s: %w", notification.RecipientID, err)
	}
	if user.Email == "" {
		return fmt.Errorf("recipient %s has no email address", notification.RecipientID)
	}

	msg := buildMessage(n.from, user.Email, notification.Subject, notification.Body)
	if err := n.send(n.addr, n.from, []string{user.Email}, msg); err != nil {
		n.logger.Error("Failed to send mail",
			zap.Int64("notification_id", notification.ID),
			zap.String("recipient", user.Email),
			zap.Error(err))
		return fmt.Errorf("send mail: %w", err)
	}

	n.logger.Info("Notification delivered",
		zap.Int64("notification_id", notification.ID),
		zap.String("recipient_id", notification.RecipientID))
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// Verify interface compliance
var _ port.Notifier = (*SMTPNotifier)(nil)
