// Package mailer renders and delivers transactional mail. Delivery is best
// effort: failures are logged and never reach the caller.
package mailer

import (
	"context"

	"go.uber.org/zap"

	"github.com/cppla/aiblog/telemetry"
)

// Action is the call-to-action button of a mail.
type Action struct {
	Instructions string
	ButtonText   string
	ButtonColor  string
	Link         string
}

// Content is the structured body of a mail.
type Content struct {
	Name   string
	Intro  string
	Action *Action
	Outro  string
}

// Message is one mail to one recipient.
type Message struct {
	To      string
	Subject string
	Content Content
}

// Dispatcher accepts mail for delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message)
}

// Sender performs the actual delivery of a rendered mail.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Product brands every rendered mail.
type Product struct {
	Name string
	Link string
}

// MailDispatcher renders messages and hands them to a Sender.
type MailDispatcher struct {
	sender  Sender
	product Product
	logger  *zap.Logger
}

func NewDispatcher(sender Sender, product Product, logger *zap.Logger) *MailDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MailDispatcher{sender: sender, product: product, logger: logger}
}

var _ Dispatcher = (*MailDispatcher)(nil)

func (d *MailDispatcher) Dispatch(ctx context.Context, msg Message) {
	text, html, err := Render(d.product, msg.Content)
	if err != nil {
		d.fail(msg, err)
		return
	}
	if err := d.sender.Send(ctx, msg.To, msg.Subject, text, html); err != nil {
		d.fail(msg, err)
		return
	}
	telemetry.MailTotal.With("sent").Inc()
}

func (d *MailDispatcher) fail(msg Message, err error) {
	telemetry.MailTotal.With("failed").Inc()
	d.logger.Error("mail delivery failed",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Error(err),
	)
}

// LogSender writes mail to the log instead of delivering it. It is used when
// SMTP is not configured.
type LogSender struct {
	Logger *zap.Logger
}

func (s LogSender) Send(ctx context.Context, to, subject, text, html string) error {
	s.Logger.Info("mail not sent, smtp not configured",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("text", text),
	)
	return nil
}
