package contact

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	commoncfg "github.com/prometheus/common/config"
)

const defaultTelegramAPI = "https://api.telegram.org"

// Telegram's legacy Markdown only understands a backslash before _ * ` and [.
// Other escapes produced by the renderer are turned back into the plain
// character so they do not show up as literal backslashes.
var telegramUnescaper = strings.NewReplacer(
	`\\`, `\`,
	`\{`, `{`,
	`\}`, `}`,
	`\]`, `]`,
	`\(`, `(`,
	`\)`, `)`,
	`\#`, `#`,
	`\+`, `+`,
	`\-`, `-`,
	`\=`, `=`,
	`\.`, `.`,
	`\!`, `!`,
	`\|`, `|`,
	`\<`, `<`,
	`\>`, `>`,
	`\~`, `~`,
)

// TelegramMarkdown adapts rendered markdown to Telegram's legacy Markdown
// parse mode.
func TelegramMarkdown(s string) string { return telegramUnescaper.Replace(s) }

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResult struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// TelegramSender posts messages through the Bot API sendMessage method.
type TelegramSender struct {
	client   *http.Client
	endpoint string
	redacted string
	chatID   string
}

// NewTelegramSender targets api (the public Bot API when empty).
func NewTelegramSender(api string, token commoncfg.Secret, chatID string, client *http.Client) *TelegramSender {
	if api == "" {
		api = defaultTelegramAPI
	}
	api = strings.TrimRight(api, "/")
	if client == nil {
		client = http.DefaultClient
	}
	return &TelegramSender{
		client:   client,
		endpoint: fmt.Sprintf("%s/bot%s/sendMessage", api, string(token)),
		redacted: fmt.Sprintf("%s/botREDACTED/sendMessage", api),
		chatID:   chatID,
	}
}

func (t *TelegramSender) Name() string { return "telegram" }

func (t *TelegramSender) Send(ctx context.Context, message string) (*Response, error) {
	return post(ctx, t.client, t.Name(), t.endpoint, t.redacted, telegramMessage{
		ChatID:    t.chatID,
		Text:      TelegramMarkdown(message),
		ParseMode: "Markdown",
	})
}

func (t *TelegramSender) Interpret(resp *Response) error {
	var res telegramResult
	if err := json.Unmarshal(resp.Body, &res); err != nil {
		return &DeliveryRejectedError{Provider: t.Name(), Code: resp.StatusCode, Err: err}
	}
	if !res.OK {
		code := res.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		return &DeliveryRejectedError{Provider: t.Name(), Code: code, Message: res.Description}
	}
	return nil
}
