package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env       string          `yaml:"env"` // "dev" | "prod"
	LogLevel  string          `yaml:"log_level"`
	LogFormat string          `yaml:"log_format"` // "json" | "console"
	HTTP      HTTPConfig      `yaml:"http"`
	DB        DBConfig        `yaml:"db"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type BroadcastConfig struct {
	// SubscriberBuffer is the per-subscriber event buffer; a subscriber
	// that falls this far behind starts dropping events.
	SubscriberBuffer int `yaml:"subscriber_buffer"`
}

type AlertsConfig struct {
	// ChannelTimeout bounds each notification channel per dispatch; expiry
	// counts as that channel failing, the other channels are unaffected.
	ChannelTimeout time.Duration `yaml:"channel_timeout"`
	// Facility is the site name stamped into outgoing alert bodies.
	Facility       string        `yaml:"facility"`
	SMTP           SMTPConfig    `yaml:"smtp"`
	Mail           MailConfig    `yaml:"mail"`
	SMS            SMSConfig     `yaml:"sms"`
	Chat           ChatConfig    `yaml:"chat"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type MailConfig struct {
	Recipients []string `yaml:"recipients"`
}

type SMSRecipient struct {
	Number  string `yaml:"number"`
	Carrier string `yaml:"carrier"`
	Name    string `yaml:"name"`
}

type SMSConfig struct {
	// CountryPrefix is stripped from numbers before building the gateway
	// address, e.g. "+94".
	CountryPrefix string `yaml:"country_prefix"`
	// Carriers maps a carrier key to its email-to-SMS gateway domain,
	// e.g. dialog -> sms.dialog.lk.
	Carriers       map[string]string `yaml:"carriers"`
	DefaultCarrier string            `yaml:"default_carrier"`
	Recipients     []SMSRecipient    `yaml:"recipients"`
}

type ChatRecipient struct {
	Phone  string `yaml:"phone"`
	APIKey string `yaml:"api_key"`
	Name   string `yaml:"name"`
}

type ChatConfig struct {
	// BaseURL of the webhook service, e.g. https://api.callmebot.com.
	BaseURL    string          `yaml:"base_url"`
	Recipients []ChatRecipient `yaml:"recipients"`
}

func Default() Config {
	return Config{
		Env:       "dev",
		LogLevel:  "info",
		LogFormat: "json",
		HTTP:      HTTPConfig{Addr: ":8080"},
		DB:        DBConfig{Path: "./data/teaguard.db"},
		Broadcast: BroadcastConfig{SubscriberBuffer: 8},
		Alerts: AlertsConfig{
			ChannelTimeout: 15 * time.Second,
			Facility:       "Craig Tea Factory",
			SMTP:           SMTPConfig{Host: "smtp.gmail.com", Port: 587},
			SMS: SMSConfig{
				CountryPrefix: "+94",
				Carriers: map[string]string{
					"dialog":  "sms.dialog.lk",
					"mobitel": "sms.mobitel.lk",
					"hutch":   "sms.hutch.lk",
					"airtel":  "sms.airtel.lk",
				},
				DefaultCarrier: "dialog",
			},
			Chat: ChatConfig{BaseURL: "https://api.callmebot.com"},
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty or the file
// does not exist), applies TEAGUARD_* environment overrides, and validates.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err != nil && os.IsNotExist(err):
			// fall through to defaults + env
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := getenv("TEAGUARD_ENV"); v != "" {
		c.Env = strings.ToLower(v)
	}
	if v := getenv("TEAGUARD_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := getenv("TEAGUARD_DB_PATH"); v != "" {
		c.DB.Path = v
	}
	if v := getenv("TEAGUARD_LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := getenv("TEAGUARD_SMTP_PASSWORD"); v != "" {
		c.Alerts.SMTP.Password = v
	}
}

func (c *Config) validate() error {
	if c.Env != "dev" && c.Env != "prod" {
		// fail-soft: treat unknown as dev
		c.Env = "dev"
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("config: http.addr is required")
	}
	if c.Alerts.ChannelTimeout <= 0 {
		return fmt.Errorf("config: alerts.channel_timeout must be positive")
	}
	if c.Broadcast.SubscriberBuffer <= 0 {
		c.Broadcast.SubscriberBuffer = 8
	}
	if c.Alerts.SMS.DefaultCarrier != "" {
		if _, ok := c.Alerts.SMS.Carriers[c.Alerts.SMS.DefaultCarrier]; !ok {
			return fmt.Errorf("config: alerts.sms.default_carrier %q has no carrier entry", c.Alerts.SMS.DefaultCarrier)
		}
	}
	for i, r := range c.Alerts.SMS.Recipients {
		if strings.TrimSpace(r.Number) == "" {
			return fmt.Errorf("config: alerts.sms.recipients[%d]: number is required", i)
		}
	}
	for i, r := range c.Alerts.Chat.Recipients {
		if strings.TrimSpace(r.Phone) == "" {
			return fmt.Errorf("config: alerts.chat.recipients[%d]: phone is required", i)
		}
	}
	return nil
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
