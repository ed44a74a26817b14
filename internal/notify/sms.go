package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/craigfactory/teaguard/internal/config"
	"github.com/craigfactory/teaguard/internal/teaguard/types"
)

// smsMaxLen is the single-segment SMS limit the gateway enforces.
const smsMaxLen = 160

// SMSChannel delivers alerts as SMS through carrier email-to-SMS gateways:
// each recipient's number maps to <number>@<carrier domain> and the alert
// goes out as a subjectless mail. All recipient sends run concurrently and
// the channel is one failure domain: the first send error fails the whole
// channel.
type SMSChannel struct {
	sender   SMTPSender
	from     string
	cfg      config.SMSConfig
	facility string
	logger   *zap.Logger
}

func NewSMSChannel(sender SMTPSender, smtp config.SMTPConfig, cfg config.SMSConfig, facility string, logger *zap.Logger) *SMSChannel {
	return &SMSChannel{
		sender:   sender,
		from:     smtp.From,
		cfg:      cfg,
		facility: facility,
		logger:   logger,
	}
}

func (c *SMSChannel) Name() string        { return "sms" }
func (c *SMSChannel) MethodLabel() string { return "Email-to-SMS gateway" }

func (c *SMSChannel) Send(ctx context.Context, category types.AlertCategory, message string) error {
	if len(c.cfg.Recipients) == 0 {
		return fmt.Errorf("sms: no recipients configured")
	}

	body := truncate(alertBody(category, message, c.facility, time.Now()), smsMaxLen)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, r := range c.cfg.Recipients {
		wg.Add(1)
		go func(r config.SMSRecipient) {
			defer wg.Done()

			m := gomail.NewMessage()
			m.SetHeader("From", c.from)
			m.SetHeader("To", c.GatewayAddress(r))
			// Empty subject: gateways turn the subject into message text.
			m.SetHeader("Subject", "")
			m.SetBody("text/plain", body)

			if err := sendWithContext(ctx, c.sender, m); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("sms to %s: %w", r.Name, err)
				}
				mu.Unlock()
			}
		}(r)
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	c.logger.Info("sms alerts sent",
		zap.String("category", string(category)),
		zap.Int("recipients", len(c.cfg.Recipients)))
	return nil
}

// GatewayAddress builds the email-to-SMS address for one recipient,
// stripping the country prefix and whitespace from the number and falling
// back to the default carrier when the recipient's carrier is unknown.
func (c *SMSChannel) GatewayAddress(r config.SMSRecipient) string {
	number := strings.TrimPrefix(r.Number, c.cfg.CountryPrefix)
	number = strings.ReplaceAll(number, " ", "")

	domain, ok := c.cfg.Carriers[r.Carrier]
	if !ok {
		domain = c.cfg.Carriers[c.cfg.DefaultCarrier]
	}
	return number + "@" + domain
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
