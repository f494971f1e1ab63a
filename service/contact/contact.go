package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/op/go-logging"
)

// Provider responses are small JSON documents; anything past this is dropped.
const maxResponseBytes = 1 << 20

var log = logging.MustGetLogger("alert-relay")

// Response is the raw provider answer to one delivery attempt.
type Response struct {
	StatusCode int
	Body       []byte
}

// Sender delivers a rendered message to one chat provider. Send performs a
// single attempt and returns the raw response; Interpret decides whether
// that response means the provider accepted the message.
type Sender interface {
	Name() string
	Send(ctx context.Context, message string) (*Response, error)
	Interpret(resp *Response) error
}

// TransportError means the provider could not be reached or its response
// could not be read.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("send to %s: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DeliveryRejectedError means the provider answered but did not accept the
// message, or answered with something that could not be decoded.
type DeliveryRejectedError struct {
	Provider string
	Code     int
	Message  string
	Err      error
}

func (e *DeliveryRejectedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("undecodable %s response: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("errcode: %d, errmsg: %s", e.Code, e.Message)
}

func (e *DeliveryRejectedError) Unwrap() error { return e.Err }

// post sends payload as JSON to endpoint. redacted is the form of the
// endpoint that may appear in errors and logs.
func post(ctx context.Context, client *http.Client, provider, endpoint, redacted string, payload interface{}) (*Response, error) {
	body := new(bytes.Buffer)
	if err := json.NewEncoder(body).Encode(payload); err != nil {
		return nil, &TransportError{Provider: provider, Err: fmt.Errorf("failed to encode message: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, &TransportError{Provider: provider, Err: fmt.Errorf("failed to create HTTP request: %w", redactURLError(err, redacted))}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: provider, Err: fmt.Errorf("failed to send HTTP request: %w", redactURLError(err, redacted))}
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Provider: provider, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	log.Debugf("%s responded %s: %s", provider, resp.Status, text)

	return &Response{StatusCode: resp.StatusCode, Body: text}, nil
}

func redactURLError(err error, redacted string) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = redacted
	}
	return err
}
