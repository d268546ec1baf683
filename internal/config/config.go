package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/brandon/unified-inbox/pkg/types"
)

// Config holds the application configuration
type Config struct {
	// Cache settings
	CachePath         string
	SearchResultLimit int
	LogLevel          string

	// Polling
	RefreshInterval       time.Duration
	HiddenRefreshInterval time.Duration

	// Reply dispatch
	DefaultWebhook string
	Webhooks       map[types.Channel]string
	SendTimeout    time.Duration

	// Metrics endpoint, disabled when empty
	MetricsAddr string

	// Optional mailboxes ingested as the gmail channel
	Mailboxes []MailboxConfig
}

// MailboxConfig holds configuration for a single IMAP mailbox
type MailboxConfig struct {
	Name string

	IMAPHost     string
	IMAPPort     int
	IMAPUsername string
	IMAPPassword string
	Folder       string

	// Address the mailbox receives at, stored as message_to
	Address string
}

// channelEnv maps each channel to the variable holding its webhook
var channelEnv = map[types.Channel]string{
	types.ChannelWhatsApp:   "WEBHOOK_WHATSAPP",
	types.ChannelGmail:      "WEBHOOK_GMAIL",
	types.ChannelAmazon:     "WEBHOOK_AMAZON",
	types.ChannelEbay:       "WEBHOOK_EBAY",
	types.ChannelTikTokShop: "WEBHOOK_TIKTOK_SHOP",
}

// LoadConfig loads configuration from environment variables.
// A .env file in the working directory is read first when present.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(".env")
}

// LoadConfigFrom loads the given env file (if it exists) and then the environment
func LoadConfigFrom(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		CachePath:             getEnv("CACHE_PATH", "/data/inbox.db"),
		SearchResultLimit:     getEnvInt("SEARCH_RESULT_LIMIT", 100),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		RefreshInterval:       time.Duration(getEnvInt("REFRESH_INTERVAL_SECONDS", 10)) * time.Second,
		HiddenRefreshInterval: time.Duration(getEnvInt("HIDDEN_REFRESH_INTERVAL_SECONDS", 5)) * time.Second,
		DefaultWebhook:        getEnv("WEBHOOK_DEFAULT", ""),
		Webhooks:              make(map[types.Channel]string),
		SendTimeout:           time.Duration(getEnvInt("SEND_TIMEOUT_SECONDS", 30)) * time.Second,
		MetricsAddr:           getEnv("METRICS_ADDR", ""),
	}

	for ch, key := range channelEnv {
		if v := getEnv(key, ""); v != "" {
			cfg.Webhooks[ch] = v
		}
	}

	mailboxes, err := loadMailboxes()
	if err != nil {
		return nil, fmt.Errorf("failed to load mailboxes: %w", err)
	}
	cfg.Mailboxes = mailboxes

	return cfg, nil
}

// loadMailboxes loads IMAP mailboxes from environment variables.
// Mailbox ingest is optional, so no mailboxes is not an error.
func loadMailboxes() ([]MailboxConfig, error) {
	if getEnv("IMAP_HOST", "") != "" {
		mb, err := loadMailbox("", 0)
		if err != nil {
			return nil, err
		}
		return []MailboxConfig{*mb}, nil
	}

	var mailboxes []MailboxConfig
	for num := 1; ; num++ {
		prefix := fmt.Sprintf("MAILBOX_%d_", num)
		if getEnv(prefix+"IMAP_HOST", "") == "" {
			break
		}
		mb, err := loadMailbox(prefix, num)
		if err != nil {
			return nil, err
		}
		mailboxes = append(mailboxes, *mb)
	}
	return mailboxes, nil
}

// loadMailbox reads one mailbox; prefix is empty for the single-mailbox form
func loadMailbox(prefix string, num int) (*MailboxConfig, error) {
	label := "mailbox"
	if num > 0 {
		label = fmt.Sprintf("mailbox %d", num)
	}

	mb := &MailboxConfig{
		Name:         getEnv(prefix+"NAME", "default"),
		IMAPHost:     getEnv(prefix+"IMAP_HOST", ""),
		IMAPPort:     getEnvInt(prefix+"IMAP_PORT", 993),
		IMAPUsername: getEnv(prefix+"IMAP_USERNAME", ""),
		IMAPPassword: getEnv(prefix+"IMAP_PASSWORD", ""),
		Folder:       getEnv(prefix+"IMAP_FOLDER", "INBOX"),
	}
	mb.Address = getEnv(prefix+"ADDRESS", mb.IMAPUsername)

	if mb.IMAPUsername == "" || mb.IMAPPassword == "" {
		return nil, fmt.Errorf("%s: IMAP_USERNAME and IMAP_PASSWORD are required", label)
	}
	return mb, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// WebhookFor returns the webhook for a channel, falling back to the default
func (c *Config) WebhookFor(ch types.Channel) string {
	if u, ok := c.Webhooks[ch.Normalize()]; ok && u != "" {
		return u
	}
	return c.DefaultWebhook
}

// GetMailboxByName finds a mailbox by name
func (c *Config) GetMailboxByName(name string) (*MailboxConfig, error) {
	for i := range c.Mailboxes {
		if c.Mailboxes[i].Name == name {
			return &c.Mailboxes[i], nil
		}
	}
	return nil, fmt.Errorf("mailbox not found: %s", name)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.CachePath == "" {
		return fmt.Errorf("CACHE_PATH is required")
	}

	if c.SearchResultLimit < 1 || c.SearchResultLimit > 1000 {
		return fmt.Errorf("SEARCH_RESULT_LIMIT must be between 1 and 1000")
	}

	if c.RefreshInterval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL_SECONDS must be positive")
	}
	if c.HiddenRefreshInterval <= 0 {
		return fmt.Errorf("HIDDEN_REFRESH_INTERVAL_SECONDS must be positive")
	}
	if c.SendTimeout <= 0 {
		return fmt.Errorf("SEND_TIMEOUT_SECONDS must be positive")
	}

	if c.DefaultWebhook == "" {
		return fmt.Errorf("WEBHOOK_DEFAULT is required")
	}
	if err := validateURL("WEBHOOK_DEFAULT", c.DefaultWebhook); err != nil {
		return err
	}
	for ch, u := range c.Webhooks {
		if err := validateURL(channelEnv[ch], u); err != nil {
			return err
		}
	}

	for i := range c.Mailboxes {
		mb := &c.Mailboxes[i]
		if mb.IMAPPort < 1 || mb.IMAPPort > 65535 {
			return fmt.Errorf("mailbox %s: invalid IMAP_PORT", mb.Name)
		}
	}

	return nil
}

// MailboxNames returns a list of all mailbox names
func (c *Config) MailboxNames() []string {
	names := make([]string, len(c.Mailboxes))
	for i := range c.Mailboxes {
		names[i] = c.Mailboxes[i].Name
	}
	return names
}

func validateURL(key, raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%s: invalid url: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: url must use http or https", key)
	}
	return nil
}
