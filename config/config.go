package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	commoncfg "github.com/prometheus/common/config"
)

const (
	ProviderDingTalk = "dingtalk"
	ProviderTelegram = "telegram"
	ProviderDiscord  = "discord"

	DefaultDingTalkURL = "https://oapi.dingtalk.com/robot/send"
	DefaultSendTimeout = 10 * time.Second
)

// ErrConfigurationMissing is returned by Load when a value the selected
// provider cannot work without is absent from the environment.
var ErrConfigurationMissing = errors.New("required configuration missing")

type Config struct {
	Provider string

	AccessToken     commoncfg.Secret
	DingTalkURL     string
	AlertmanagerURL string

	BotToken   commoncfg.Secret
	ChatID     string
	DiscordURL string

	ProxyURL  string
	ProxyType string
	ProxyUser string
	ProxyPass commoncfg.Secret

	SendTimeout time.Duration
}

// LoadDotEnv copies the variables of the .env file in the working directory
// into the environment without overriding values already set. A missing
// file is not an error.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error loading .env file: %w", err)
	}
	return nil
}

// Load builds a Config from the environment, after LoadDotEnv. It is called
// once at startup; a nil error means every value the chosen provider needs
// is present.
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Config{
		Provider:        getEnv("provider", ProviderDingTalk),
		AccessToken:     commoncfg.Secret(os.Getenv("access_token")),
		DingTalkURL:     getEnv("dingtalk_url", DefaultDingTalkURL),
		AlertmanagerURL: os.Getenv("alertmanager_url"),
		BotToken:        commoncfg.Secret(os.Getenv("BOT_TOKEN")),
		ChatID:          os.Getenv("CHAT_ID"),
		DiscordURL:      os.Getenv("DISCORD_URL"),
		ProxyURL:        os.Getenv("PROXY_URL"),
		ProxyType:       getEnv("PROXY_TYPE", "http"),
		ProxyUser:       os.Getenv("PROXY_USER"),
		ProxyPass:       commoncfg.Secret(os.Getenv("PROXY_PASS")),
		SendTimeout:     DefaultSendTimeout,
	}

	if v := os.Getenv("send_timeout"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid send_timeout %q: %w", v, err)
		}
		cfg.SendTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the provider is known and that its required
// settings are present.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderDingTalk:
		if c.AccessToken == "" {
			return fmt.Errorf("%w: access_token environment variable is required", ErrConfigurationMissing)
		}
		if c.DingTalkURL == "" {
			return fmt.Errorf("%w: dingtalk_url must not be empty", ErrConfigurationMissing)
		}
	case ProviderTelegram:
		if c.BotToken == "" {
			return fmt.Errorf("%w: BOT_TOKEN environment variable is required", ErrConfigurationMissing)
		}
		if c.ChatID == "" {
			return fmt.Errorf("%w: CHAT_ID environment variable is required", ErrConfigurationMissing)
		}
	case ProviderDiscord:
		if c.DiscordURL == "" {
			return fmt.Errorf("%w: DISCORD_URL environment variable is required", ErrConfigurationMissing)
		}
	default:
		return fmt.Errorf("unknown provider %q: want dingtalk|telegram|discord", c.Provider)
	}

	if c.ProxyURL != "" {
		if _, err := url.Parse(c.ProxyURL); err != nil {
			return fmt.Errorf("invalid PROXY_URL %q: %w", c.ProxyURL, err)
		}
		switch c.ProxyType {
		case "http", "socks5":
		default:
			return fmt.Errorf("unknown PROXY_TYPE %q: want http|socks5", c.ProxyType)
		}
	}

	if c.SendTimeout <= 0 {
		return fmt.Errorf("send_timeout must be positive, got %s", c.SendTimeout)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
