package service

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"alert-webhook-relay/config"
	"alert-webhook-relay/routes"
	"alert-webhook-relay/service/contact"
)

// NewSender builds the provider client selected by cfg.Provider.
func NewSender(cfg *config.Config) (contact.Sender, error) {
	client, err := contact.NewHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case config.ProviderDingTalk:
		return contact.NewDingTalkSender(cfg.DingTalkURL, cfg.AccessToken, client)
	case config.ProviderTelegram:
		return contact.NewTelegramSender("", cfg.BotToken, cfg.ChatID, client), nil
	case config.ProviderDiscord:
		return contact.NewDiscordSender(cfg.DiscordURL, client)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// InitService wires the dispatch controller from a validated configuration.
// Any error here means the relay must not start serving.
func InitService(cfg *config.Config, renderer routes.Renderer, reg *prometheus.Registry) (*routes.RestController, error) {
	sender, err := NewSender(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating %s sender: %w", cfg.Provider, err)
	}

	return &routes.RestController{
		Sender:      sender,
		Renderer:    renderer,
		ExternalURL: cfg.AlertmanagerURL,
		SendTimeout: cfg.SendTimeout,
		Metrics:     routes.NewMetrics(reg),
	}, nil
}
