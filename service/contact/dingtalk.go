package contact

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	commoncfg "github.com/prometheus/common/config"
)

type dingTalkMarkdown struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type dingTalkMessage struct {
	MsgType  string           `json:"msgtype"`
	Markdown dingTalkMarkdown `json:"markdown"`
}

type dingTalkResult struct {
	ErrCode *int   `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// DingTalkSender posts markdown messages to a DingTalk custom robot.
type DingTalkSender struct {
	client   *http.Client
	endpoint string
	redacted string
}

// NewDingTalkSender builds the robot endpoint from baseURL and token. A base
// URL that does not parse to an absolute URL is a configuration error and
// should stop the process before it serves traffic.
func NewDingTalkSender(baseURL string, token commoncfg.Secret, client *http.Client) (*DingTalkSender, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse dingtalk url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("parse dingtalk url %q: scheme and host are required", baseURL)
	}

	q := u.Query()
	q.Set("access_token", "REDACTED")
	u.RawQuery = q.Encode()
	redacted := u.String()

	q.Set("access_token", string(token))
	u.RawQuery = q.Encode()

	if client == nil {
		client = http.DefaultClient
	}
	return &DingTalkSender{client: client, endpoint: u.String(), redacted: redacted}, nil
}

func (d *DingTalkSender) Name() string { return "dingtalk" }

func (d *DingTalkSender) Send(ctx context.Context, message string) (*Response, error) {
	return post(ctx, d.client, d.Name(), d.endpoint, d.redacted, dingTalkMessage{
		MsgType: "markdown",
		Markdown: dingTalkMarkdown{
			Title: "alert",
			Text:  message,
		},
	})
}

// Interpret accepts the response only when errcode is present and zero.
func (d *DingTalkSender) Interpret(resp *Response) error {
	var res dingTalkResult
	if err := json.Unmarshal(resp.Body, &res); err != nil {
		return &DeliveryRejectedError{Provider: d.Name(), Code: resp.StatusCode, Err: err}
	}
	if res.ErrCode == nil {
		return &DeliveryRejectedError{Provider: d.Name(), Code: resp.StatusCode, Err: fmt.Errorf("errcode missing in %q", resp.Body)}
	}
	if *res.ErrCode != 0 {
		return &DeliveryRejectedError{Provider: d.Name(), Code: *res.ErrCode, Message: res.ErrMsg}
	}
	return nil
}
