package service

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alert-webhook-relay/config"
	"alert-webhook-relay/service/render"
)

func TestNewSenderSelectsProvider(t *testing.T) {
	tests := []struct {
		cfg  config.Config
		name string
	}{
		{config.Config{Provider: config.ProviderDingTalk, AccessToken: "t", DingTalkURL: config.DefaultDingTalkURL, SendTimeout: time.Second}, "dingtalk"},
		{config.Config{Provider: config.ProviderTelegram, BotToken: "b", ChatID: "1", SendTimeout: time.Second}, "telegram"},
		{config.Config{Provider: config.ProviderDiscord, DiscordURL: "https://discord.com/api/webhooks/1/x", SendTimeout: time.Second}, "discord"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSender(&tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.name, s.Name())
		})
	}
}

func TestInitServiceFailsClosedOnBadURL(t *testing.T) {
	cfg := &config.Config{
		Provider:    config.ProviderDingTalk,
		AccessToken: "t",
		DingTalkURL: "oapi.dingtalk.com/robot/send",
		SendTimeout: time.Second,
	}

	rc, err := InitService(cfg, render.New(t.TempDir()), prometheus.NewRegistry())
	assert.Error(t, err)
	assert.Nil(t, rc)
}

func TestInitService(t *testing.T) {
	cfg := &config.Config{
		Provider:        config.ProviderDingTalk,
		AccessToken:     "t",
		DingTalkURL:     config.DefaultDingTalkURL,
		AlertmanagerURL: "https://am.example.com",
		SendTimeout:     3 * time.Second,
	}

	rc, err := InitService(cfg, render.New(t.TempDir()), prometheus.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, "dingtalk", rc.Sender.Name())
	assert.Equal(t, "https://am.example.com", rc.ExternalURL)
	assert.Equal(t, 3*time.Second, rc.SendTimeout)
	assert.NotNil(t, rc.Metrics)
	assert.NotNil(t, rc.SetUpRoutes())
}
