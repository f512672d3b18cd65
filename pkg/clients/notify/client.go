package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/vallesolidario/huellero/internal/config"
)

// ErrDisabled is returned when no webhook URL is configured.
var ErrDisabled = errors.New("notifications disabled")

// Client posts short text messages to a chat webhook.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Message is the webhook payload.
type Message struct {
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text"`
	RunID   string `json:"run_id,omitempty"`
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
	url        string
	channel    string
}

// NewClient builds a webhook client using the provided configuration values.
func NewClient(cfg config.NotifyConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)
	if cfg.Token != "" {
		restyClient.SetAuthToken(cfg.Token)
	}

	return &APIClient{
		httpClient: restyClient,
		url:        cfg.WebhookURL,
		channel:    cfg.Channel,
	}
}

// apiError is the error body returned by most chat webhooks.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Send posts msg, filling the configured channel when msg has none.
func (c *APIClient) Send(ctx context.Context, msg Message) error {
	if c.url == "" {
		return ErrDisabled
	}
	if msg.Channel == "" {
		msg.Channel = c.channel
	}

	apiErr := new(apiError)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(msg).
		SetError(apiErr).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Message
		if message == "" {
			message = apiErr.Error
		}
		return fmt.Errorf("notify webhook error: code=%d, message=%s", resp.StatusCode(), message)
	}

	return nil
}
