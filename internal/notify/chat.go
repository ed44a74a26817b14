package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/craigfactory/teaguard/internal/config"
	"github.com/craigfactory/teaguard/internal/teaguard/types"
)

// ChatChannel delivers alerts through a CallMeBot-style chat webhook: one
// GET per recipient with the message and the recipient's API key as query
// parameters. Like the SMS channel it is all-or-nothing per dispatch.
type ChatChannel struct {
	client   *resty.Client
	cfg      config.ChatConfig
	facility string
	logger   *zap.Logger
}

func NewChatChannel(cfg config.ChatConfig, facility string, logger *zap.Logger) *ChatChannel {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(10 * time.Second)

	return &ChatChannel{client: client, cfg: cfg, facility: facility, logger: logger}
}

func (c *ChatChannel) Name() string        { return "chat" }
func (c *ChatChannel) MethodLabel() string { return "Chat webhook" }

func (c *ChatChannel) Send(ctx context.Context, category types.AlertCategory, message string) error {
	if len(c.cfg.Recipients) == 0 {
		return fmt.Errorf("chat: no recipients configured")
	}

	text := c.messageText(category, message)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, r := range c.cfg.Recipients {
		wg.Add(1)
		go func(r config.ChatRecipient) {
			defer wg.Done()

			// resty URL-encodes query parameters.
			resp, err := c.client.R().
				SetContext(ctx).
				SetQueryParams(map[string]string{
					"phone":  r.Phone,
					"text":   text,
					"apikey": r.APIKey,
				}).
				Get("/whatsapp.php")
			if err == nil && resp.IsError() {
				err = fmt.Errorf("webhook returned %s", resp.Status())
			}
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("chat to %s: %w", r.Name, err)
				}
				mu.Unlock()
			}
		}(r)
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	c.logger.Info("chat alerts sent",
		zap.String("category", string(category)),
		zap.Int("recipients", len(c.cfg.Recipients)))
	return nil
}

func (c *ChatChannel) messageText(category types.AlertCategory, message string) string {
	return fmt.Sprintf("*TEA FACTORY ALERT*\n\n*Type:* %s\n*Message:* %s\n*Time:* %s\n*Location:* %s\n\n*IMMEDIATE ACTION REQUIRED*",
		category, message, time.Now().Format(time.RFC1123), c.facility)
}
