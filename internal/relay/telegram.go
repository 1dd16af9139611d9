// Package relay wraps the Telegram Bot API used to deliver contact-widget
// messages to the site owner and to peek at his recent activity.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIBase is the production Telegram Bot API origin.
const DefaultAPIBase = "https://api.telegram.org"

// ErrMisconfigured indicates the bot token or chat id is absent. The caller
// maps this to its own "server misconfigured" surface instead of attempting
// the remote call.
var ErrMisconfigured = errors.New("relay: bot token or chat id not configured")

// RemoteError wraps a non-success status from the Telegram API.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("relay: telegram api returned %d: %s", e.StatusCode, e.Body)
}

// Client talks to the Telegram Bot API.
type Client struct {
	httpClient *http.Client
	apiBase    string
	botToken   string
	chatID     string
}

// NewClient creates a relay client. Empty apiBase falls back to the
// production origin. token/chatID may be empty; calls then fail with
// ErrMisconfigured (or report offline) rather than erroring at startup.
func NewClient(apiBase, token, chatID string) *Client {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiBase:    strings.TrimRight(apiBase, "/"),
		botToken:   token,
		chatID:     chatID,
	}
}

// Configured reports whether both server-held secrets are present.
func (c *Client) Configured() bool {
	return c.botToken != "" && c.chatID != ""
}

// ChatID returns the configured destination chat id.
func (c *Client) ChatID() string {
	return c.chatID
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Send relays one contact-widget message to the owner's chat. The message
// text and the visitor's contact string are combined into a single block.
func (c *Client) Send(ctx context.Context, contact, message string) error {
	if !c.Configured() {
		return ErrMisconfigured
	}

	lines := []string{"New DM from your website"}
	if contact != "" {
		lines = append(lines, "Contact: "+contact)
	}
	lines = append(lines, "", message)

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    c.chatID,
		Text:      strings.Join(lines, "\n"),
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("encode sendMessage request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.method("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post sendMessage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &RemoteError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return nil
}

func (c *Client) method(name string) string {
	return c.apiBase + "/bot" + c.botToken + "/" + name
}

func (c *Client) getJSON(ctx context.Context, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
