package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 15 * time.Second
	retryWait      = 1 * time.Second
	retryMaxWait   = 5 * time.Second
)

// TelegramClient sends operator alerts through the Telegram Bot API.
type TelegramClient struct {
	http   *resty.Client
	token  string
	logger *zap.Logger
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func NewTelegramClient(token string, logger *zap.Logger) *TelegramClient {
	client := resty.New().
		SetBaseURL("https://api.telegram.org").
		SetTimeout(defaultTimeout).
		SetRetryCount(2).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryMaxWait)
	return &TelegramClient{http: client, token: token, logger: logger}
}

// SendMessage delivers one text message to one chat.
func (t *TelegramClient) SendMessage(ctx context.Context, chatID, text string) error {
	var out telegramResponse
	resp, err := t.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id": chatID,
			"text":    text,
		}).
		SetResult(&out).
		Post(fmt.Sprintf("/bot%s/sendMessage", t.token))
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if resp.IsError() || !out.OK {
		return fmt.Errorf("telegram send failed: status %d %s", resp.StatusCode(), out.Description)
	}
	return nil
}

// Ping verifies the bot token against the getMe endpoint.
func (t *TelegramClient) Ping(ctx context.Context) error {
	var out telegramResponse
	resp, err := t.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/bot%s/getMe", t.token))
	if err != nil {
		return fmt.Errorf("telegram ping: %w", err)
	}
	if resp.IsError() || !out.OK {
		return fmt.Errorf("telegram ping failed: status %d %s", resp.StatusCode(), out.Description)
	}
	return nil
}
