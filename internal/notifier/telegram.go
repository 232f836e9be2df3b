package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier delivers operator messages.
type Notifier interface {
	Send(text string) error
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// NoopNotifier drops every message. Used when no bot token is configured.
type NoopNotifier struct{}

func (NoopNotifier) Send(string) error                                { return nil }
func (NoopNotifier) SendWithRetry(context.Context, string, int) error { return nil }

// TelegramNotifier talks to one chat through the Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	Client   *http.Client
	// APIBase overrides the Bot API host.
	APIBase string
	// Backoff is the first retry delay; it doubles on every attempt.
	Backoff time.Duration
	// PollSeconds is the long-poll wait passed to getUpdates.
	PollSeconds int
}

// NewTelegramNotifier creates a notifier; proxyURL may be empty.
func NewTelegramNotifier(botToken, chatID, proxyURL string) *TelegramNotifier {
	transport := &http.Transport{}
	if u, err := url.Parse(proxyURL); proxyURL != "" && err == nil {
		transport.Proxy = http.ProxyURL(u)
	}
	return &TelegramNotifier{
		BotToken:    botToken,
		ChatID:      chatID,
		Client:      &http.Client{Timeout: 30 * time.Second, Transport: transport},
		APIBase:     defaultAPIBase,
		Backoff:     time.Second,
		PollSeconds: 30,
	}
}

// New returns a Telegram notifier, or a NoopNotifier when botToken is empty.
func New(botToken, chatID, proxyURL string) Notifier {
	if botToken == "" {
		return NoopNotifier{}
	}
	return NewTelegramNotifier(botToken, chatID, proxyURL)
}

// apiResponse is the envelope of every Bot API reply.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// call invokes a Bot API method. A nil payload issues a GET with query;
// otherwise payload is posted as JSON. The result field is decoded into out.
func (t *TelegramNotifier) call(ctx context.Context, client *http.Client, method string, query url.Values, payload, out any) error {
	base := t.APIBase
	if base == "" {
		base = defaultAPIBase
	}
	endpoint := fmt.Sprintf("%s/bot%s/%s", base, t.BotToken, method)

	var req *http.Request
	var err error
	if payload == nil {
		if len(query) > 0 {
			endpoint += "?" + query.Encode()
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	} else {
		body, merr := json.Marshal(payload)
		if merr != nil {
			return fmt.Errorf("%s: marshal payload: %w", method, merr)
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	}
	if err != nil {
		return fmt.Errorf("%s: build request: %w", method, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram %s: status %d, body: %s", method, resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	var env apiResponse
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%s: decode: %w", method, err)
	}
	if !env.OK {
		return fmt.Errorf("telegram %s: %s", method, env.Description)
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

func (t *TelegramNotifier) sendTo(ctx context.Context, chatID, text string) error {
	return t.call(ctx, t.Client, "sendMessage", nil, map[string]string{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}, nil)
}

// Send posts text to the configured chat.
func (t *TelegramNotifier) Send(text string) error {
	return t.sendTo(context.Background(), t.ChatID, text)
}

// SendWithRetry retries Send with doubling delays, giving up after
// maxRetries extra attempts or when ctx ends.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	delay := t.Backoff
	if delay <= 0 {
		delay = time.Second
	}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("[WARN] Telegram send failed (attempt %d/%d): %v, retrying in %v", attempt, maxRetries+1, lastErr, delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		if lastErr = t.sendTo(ctx, t.ChatID, text); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}
