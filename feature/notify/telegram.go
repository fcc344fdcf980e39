package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"inventory-sync/core/reconcile"

	"go.uber.org/zap"
)

var (
	// ErrNotConfigured is returned when a channel lacks its credentials.
	ErrNotConfigured = errors.New("channel not configured")

	errUnexpectedStatusCode = errors.New("unexpected status code")
)

type telegramResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// Telegram delivers events as HTML messages through the Bot API.
type Telegram struct {
	cfg          TelegramConfig
	http         *http.Client
	missingLimit int
	logger       *zap.Logger
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(cfg TelegramConfig, missingLimit int, client *http.Client, logger *zap.Logger) *Telegram {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Telegram{cfg: cfg, http: client, missingLimit: missingLimit, logger: logger}
}

// Notify implements reconcile.Notifier.
func (t *Telegram) Notify(ctx context.Context, ev reconcile.Event) error {
	return t.Send(ctx, FormatHTML(ev, t.missingLimit))
}

// Send posts an HTML message to the configured chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.cfg.Configured() {
		return fmt.Errorf("telegram: %w", ErrNotConfigured)
	}
	body := map[string]string{
		"chat_id":    t.cfg.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if _, err := t.call(ctx, "sendMessage", body); err != nil {
		return err
	}
	t.logger.Debug("Telegram message sent")
	return nil
}

// Check calls getMe and returns the bot username.
func (t *Telegram) Check(ctx context.Context) (string, error) {
	if t.cfg.Token == "" {
		return "", fmt.Errorf("telegram: %w", ErrNotConfigured)
	}
	result, err := t.call(ctx, "getMe", nil)
	if err != nil {
		return "", err
	}
	var me struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(result, &me); err != nil {
		return "", fmt.Errorf("telegram: failed to decode getMe: %w", err)
	}
	return me.Username, nil
}

func (t *Telegram) call(ctx context.Context, method string, body any) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(t.cfg.APIURL, "/"), t.cfg.Token, method)

	httpMethod := http.MethodGet
	var payload []byte
	if body != nil {
		httpMethod = http.MethodPost
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.http.Do(req)
	if err != nil {
		// The URL carries the bot token; keep it out of the error.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return nil, fmt.Errorf("telegram %s: %w", method, uerr.Err)
		}
		return nil, fmt.Errorf("telegram %s: request failed", method)
	}
	defer resp.Body.Close()

	var tr telegramResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&tr)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram %s: %w: %d %s", method, errUnexpectedStatusCode, resp.StatusCode, tr.Description)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("telegram %s: failed to decode response: %w", method, decodeErr)
	}
	if !tr.OK {
		return nil, fmt.Errorf("telegram %s: api error: %s", method, tr.Description)
	}
	return tr.Result, nil
}
