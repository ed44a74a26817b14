package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/craigfactory/teaguard/internal/config"
	"github.com/craigfactory/teaguard/internal/teaguard/types"
)

// SMTPSender is the slice of *gomail.Dialer the channels need; tests swap
// in a stub.
type SMTPSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// NewSMTPSender builds the production dialer from config.
func NewSMTPSender(cfg config.SMTPConfig) SMTPSender {
	return gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
}

// MailChannel sends one alert mail to the configured staff recipients.
type MailChannel struct {
	sender     SMTPSender
	from       string
	recipients []string
	facility   string
	logger     *zap.Logger
}

func NewMailChannel(sender SMTPSender, smtp config.SMTPConfig, cfg config.MailConfig, facility string, logger *zap.Logger) *MailChannel {
	return &MailChannel{
		sender:     sender,
		from:       smtp.From,
		recipients: cfg.Recipients,
		facility:   facility,
		logger:     logger,
	}
}

func (c *MailChannel) Name() string        { return "mail" }
func (c *MailChannel) MethodLabel() string { return "Transactional mail" }

func (c *MailChannel) Send(ctx context.Context, category types.AlertCategory, message string) error {
	if len(c.recipients) == 0 {
		return fmt.Errorf("mail: no recipients configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", c.from)
	m.SetHeader("To", c.recipients...)
	m.SetHeader("Subject", fmt.Sprintf("TEA FACTORY ALERT: %s", category))
	m.SetBody("text/plain", alertBody(category, message, c.facility, time.Now()))

	if err := sendWithContext(ctx, c.sender, m); err != nil {
		return fmt.Errorf("mail: %w", err)
	}

	c.logger.Info("mail alert sent",
		zap.String("category", string(category)),
		zap.Int("recipients", len(c.recipients)))
	return nil
}

// sendWithContext runs a blocking DialAndSend under the caller's context.
// gomail has no context support, so the send keeps running after expiry;
// its eventual result is discarded.
func sendWithContext(ctx context.Context, sender SMTPSender, msgs ...*gomail.Message) error {
	done := make(chan error, 1)
	go func() { done <- sender.DialAndSend(msgs...) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
