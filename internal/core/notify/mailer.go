// Package notify is the outbound notification contract. Sending is
// fire-and-forget from the caller's perspective: failures are logged and
// never fail the enclosing token or authorization flow.
package notify

import (
	"context"
	"log/slog"

	"github.com/antistereov/singularity-core/pkg/slogx"
)

// Template names understood by mailer implementations.
const (
	TemplateEmailVerification = "email_verification"
	TemplateInvitation        = "invitation"
)

// Message is a templated mail to one recipient.
type Message struct {
	To       string
	Template string
	Locale   string
	Data     map[string]string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of delivering them. The
// default in development; token values in Data are not logged.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	slogx.FromContext(ctx).Info("mail suppressed, log mailer in use",
		slog.String("to", msg.To),
		slog.String("template", msg.Template),
	)
	return nil
}
