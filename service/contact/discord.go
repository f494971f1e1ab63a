package contact

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type discordMessage struct {
	Content   string `json:"content"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// DiscordSender posts to a Discord channel webhook.
type DiscordSender struct {
	client   *http.Client
	endpoint string
	redacted string
}

func NewDiscordSender(webhookURL string, client *http.Client) (*DiscordSender, error) {
	u, err := url.Parse(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("parse discord url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parse discord url: scheme and host are required")
	}
	if client == nil {
		client = http.DefaultClient
	}

	// The last path segment of a webhook URL is its token.
	redacted := *u
	if i := strings.LastIndex(redacted.Path, "/"); i >= 0 {
		redacted.Path = redacted.Path[:i+1] + "REDACTED"
	}
	redacted.RawPath = ""

	return &DiscordSender{client: client, endpoint: u.String(), redacted: redacted.String()}, nil
}

func (d *DiscordSender) Name() string { return "discord" }

func (d *DiscordSender) Send(ctx context.Context, message string) (*Response, error) {
	return post(ctx, d.client, d.Name(), d.endpoint, d.redacted, discordMessage{Content: message})
}

// Interpret accepts any 2xx; Discord answers 204 with an empty body.
func (d *DiscordSender) Interpret(resp *Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &DeliveryRejectedError{
		Provider: d.Name(),
		Code:     resp.StatusCode,
		Message:  strings.TrimSpace(string(resp.Body)),
	}
}
