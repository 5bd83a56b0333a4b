package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tailscale/hujson"
	"golang.org/x/crypto/bcrypt"
)

// Telegram delivery modes.
const (
	ModeWebhook = "webhook"
	ModePolling = "polling"
)

// Config is the top-level helpdesk configuration.
type Config struct {
	Desk     DeskConfig                 `json:"desk"`
	Admin    AdminConfig                `json:"admin"`
	Telegram *TelegramConfig            `json:"telegram,omitempty"`
	Slack    *SlackConfig               `json:"slack,omitempty"`
	Webhooks map[string]WebhookEndpoint `json:"webhooks,omitempty"`
	Bot      BotConfig                  `json:"bot"`
	Notify   NotifyConfig               `json:"notify"`
	API      APIConfig                  `json:"api"`
}

// DeskConfig holds storage locations and list settings. Empty directories
// are derived from DataDir.
type DeskConfig struct {
	DataDir    string `json:"data_dir"`
	TicketsDir string `json:"tickets_dir,omitempty"`
	StatesDir  string `json:"states_dir,omitempty"`
	LogsDir    string `json:"logs_dir,omitempty"`
	ListLimit  int    `json:"list_limit,omitempty"` // default 20
}

// AdminConfig holds the admin panel credential. PasswordHash (bcrypt) takes
// precedence over Password.
type AdminConfig struct {
	Password     string `json:"password,omitempty"`
	PasswordHash string `json:"password_hash,omitempty"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token         string  `json:"token"`
	AdminChatID   string  `json:"admin_chat_id,omitempty"`
	WebhookSecret string  `json:"webhook_secret,omitempty"`
	Mode          string  `json:"mode,omitempty"` // "webhook" (default) or "polling"
	APIEndpoint   string  `json:"api_endpoint,omitempty"`
	AllowFrom     []int64 `json:"allow_from,omitempty"`
}

// SlackConfig holds the Slack admin mirror settings.
type SlackConfig struct {
	BotToken string `json:"bot_token"`
	Channel  string `json:"channel"`
	APIURL   string `json:"api_url,omitempty"`
}

// WebhookEndpoint holds one generic webhook endpoint's credentials.
type WebhookEndpoint struct {
	Secret      string `json:"secret,omitempty"`
	BearerToken string `json:"bearer_token,omitempty"`
}

// BotConfig holds conversation settings.
type BotConfig struct {
	StateTTL             Duration `json:"state_ttl,omitempty"`      // 0 keeps states until /cancel
	SweepSchedule        string   `json:"sweep_schedule,omitempty"` // cron schedule for removing expired states
	SyntheticEmailDomain string   `json:"synthetic_email_domain,omitempty"`
}

// NotifyConfig holds outbound notification settings.
type NotifyConfig struct {
	Timeout Duration `json:"timeout,omitempty"` // default 5s
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Duration is a time.Duration written as a Go duration string ("90s",
// "12h") or a number of seconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		d.Duration = time.Duration(val * float64(time.Second))
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid duration %q", val)
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %s", data)
	}
	return nil
}

// Load reads configuration from a JSON file. Comments and trailing commas
// are allowed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds a config from environment variables with HELPDESK_ prefix.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Desk: DeskConfig{
			DataDir:    getenv("HELPDESK_DATA_DIR", "/data"),
			TicketsDir: os.Getenv("HELPDESK_TICKETS_DIR"),
			StatesDir:  os.Getenv("HELPDESK_STATES_DIR"),
			LogsDir:    os.Getenv("HELPDESK_LOGS_DIR"),
			ListLimit:  getenvInt("HELPDESK_LIST_LIMIT", 0),
		},
		Admin: AdminConfig{
			Password:     os.Getenv("HELPDESK_ADMIN_PASSWORD"),
			PasswordHash: os.Getenv("HELPDESK_ADMIN_PASSWORD_HASH"),
		},
		Bot: BotConfig{
			SweepSchedule:        os.Getenv("HELPDESK_STATE_SWEEP"),
			SyntheticEmailDomain: os.Getenv("HELPDESK_SYNTHETIC_EMAIL_DOMAIN"),
		},
		API: APIConfig{
			Host: getenv("HELPDESK_API_HOST", "0.0.0.0"),
			Port: getenvInt("HELPDESK_API_PORT", 8080),
		},
	}

	var err error
	if cfg.Bot.StateTTL, err = getenvDuration("HELPDESK_STATE_TTL"); err != nil {
		return nil, err
	}
	if cfg.Notify.Timeout, err = getenvDuration("HELPDESK_NOTIFY_TIMEOUT"); err != nil {
		return nil, err
	}

	if token := os.Getenv("HELPDESK_TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram = &TelegramConfig{
			Token:         token,
			AdminChatID:   os.Getenv("HELPDESK_TELEGRAM_ADMIN_CHAT_ID"),
			WebhookSecret: os.Getenv("HELPDESK_TELEGRAM_WEBHOOK_SECRET"),
			Mode:          os.Getenv("HELPDESK_TELEGRAM_MODE"),
			APIEndpoint:   os.Getenv("HELPDESK_TELEGRAM_API_ENDPOINT"),
		}
		if ids := os.Getenv("HELPDESK_TELEGRAM_ALLOW_FROM"); ids != "" {
			parsed, err := parseInt64List(ids)
			if err != nil {
				return nil, fmt.Errorf("config: HELPDESK_TELEGRAM_ALLOW_FROM: %w", err)
			}
			cfg.Telegram.AllowFrom = parsed
		}
	}

	if token := os.Getenv("HELPDESK_SLACK_BOT_TOKEN"); token != "" {
		cfg.Slack = &SlackConfig{
			BotToken: token,
			Channel:  os.Getenv("HELPDESK_SLACK_CHANNEL"),
			APIURL:   os.Getenv("HELPDESK_SLACK_API_URL"),
		}
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills unset optional fields.
func (c *Config) ApplyDefaults() {
	if c.Desk.DataDir == "" {
		c.Desk.DataDir = "data"
	}
	if c.Desk.TicketsDir == "" {
		c.Desk.TicketsDir = filepath.Join(c.Desk.DataDir, "tickets")
	}
	if c.Desk.StatesDir == "" {
		c.Desk.StatesDir = filepath.Join(c.Desk.DataDir, "states")
	}
	if c.Desk.LogsDir == "" {
		c.Desk.LogsDir = filepath.Join(c.Desk.DataDir, "logs")
	}
	if c.Desk.ListLimit == 0 {
		c.Desk.ListLimit = 20
	}
	if c.Telegram != nil && c.Telegram.Mode == "" {
		c.Telegram.Mode = ModeWebhook
	}
	if c.Bot.SweepSchedule == "" {
		c.Bot.SweepSchedule = "@every 1h"
	}
	if c.Bot.SyntheticEmailDomain == "" {
		c.Bot.SyntheticEmailDomain = "telegram.ru"
	}
	if c.Notify.Timeout.Duration == 0 {
		c.Notify.Timeout.Duration = 5 * time.Second
	}
	if c.API.Host == "" {
		c.API.Host = "0.0.0.0"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
}

// AdminDestinations lists the notification addresses of the admin channel.
func (c *Config) AdminDestinations() []string {
	var out []string
	if c.Telegram != nil && c.Telegram.AdminChatID != "" {
		out = append(out, c.Telegram.AdminChatID)
	}
	if c.Slack != nil && c.Slack.Channel != "" {
		out = append(out, "slack:"+c.Slack.Channel)
	}
	return out
}

// Validate checks for required fields.
func (c *Config) Validate() error {
	var errs []string

	if c.Desk.DataDir == "" {
		errs = append(errs, "desk.data_dir is required")
	}
	if c.Desk.ListLimit < 0 {
		errs = append(errs, "desk.list_limit must not be negative")
	}

	switch {
	case c.Admin.PasswordHash != "":
		if _, err := bcrypt.Cost([]byte(c.Admin.PasswordHash)); err != nil {
			errs = append(errs, "admin.password_hash is not a bcrypt hash")
		}
	case c.Admin.Password == "":
		errs = append(errs, "admin.password or admin.password_hash is required")
	}

	if t := c.Telegram; t != nil {
		if t.Token == "" {
			errs = append(errs, "telegram.token is required")
		}
		if t.Mode != ModeWebhook && t.Mode != ModePolling {
			errs = append(errs, fmt.Sprintf("telegram.mode must be %q or %q, got %q", ModeWebhook, ModePolling, t.Mode))
		}
		if t.AdminChatID != "" && strings.Contains(t.AdminChatID, ":") {
			errs = append(errs, "telegram.admin_chat_id must not contain ':'")
		}
	}

	if s := c.Slack; s != nil {
		if s.BotToken == "" {
			errs = append(errs, "slack.bot_token is required")
		}
		if s.Channel == "" {
			errs = append(errs, "slack.channel is required")
		}
	}

	for name := range c.Webhooks {
		if name == "" || strings.Contains(name, "/") {
			errs = append(errs, fmt.Sprintf("webhooks: invalid endpoint name %q", name))
		}
	}

	if c.Bot.StateTTL.Duration < 0 {
		errs = append(errs, "bot.state_ttl must not be negative")
	}
	if c.Bot.SweepSchedule != "" {
		if _, err := cron.ParseStandard(c.Bot.SweepSchedule); err != nil {
			errs = append(errs, fmt.Sprintf("bot.sweep_schedule: %v", err))
		}
	}
	if c.Notify.Timeout.Duration < 0 {
		errs = append(errs, "notify.timeout must not be negative")
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Sprintf("api.port %d out of range", c.API.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvDuration(key string) (Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return Duration{}, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return Duration{}, fmt.Errorf("config: %s: invalid duration %q", key, v)
	}
	return Duration{d}, nil
}

func parseInt64List(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	result := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", p)
		}
		result = append(result, n)
	}
	return result, nil
}
