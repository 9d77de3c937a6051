package mail

import (
	"context"
	"headshots/internal/config"
	"strings"

	"github.com/sirupsen/logrus"
)

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer sends transactional email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
	// Configured reports whether messages actually leave the process.
	Configured() bool
}

// NewMailer returns a Resend mailer when RESEND_API_KEY is set, otherwise
// a mailer that only logs.
func NewMailer(cfg config.Config) Mailer {
	key := strings.TrimSpace(cfg.ResendAPIKey)
	if key == "" {
		logrus.Info("mailer: RESEND_API_KEY not set, emails are logged only")
		return &LogMailer{}
	}
	return NewResendMailer(key, cfg.ResendFrom)
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct{}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	logrus.WithContext(ctx).WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("mail_not_sent")
	logrus.WithContext(ctx).Debug(msg.HTML)
	return nil
}

func (m *LogMailer) Configured() bool {
	return false
}
