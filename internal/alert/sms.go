package alert

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// SMSClient is a thin client for the BlackSMS gateway, used for alerts
// that must reach operators without a data connection.
type SMSClient struct {
	http   *resty.Client
	apiKey string
	sender string
	logger *zap.Logger
}

type smsResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func NewSMSClient(apiURL, apiKey, sender string, logger *zap.Logger) *SMSClient {
	client := resty.New().
		SetBaseURL(apiURL).
		SetTimeout(defaultTimeout).
		SetRetryCount(2).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryMaxWait)
	return &SMSClient{http: client, apiKey: apiKey, sender: sender, logger: logger}
}

// SendMessage satisfies the Sender interface so the SMS gateway can act
// as a fallback alert channel.
func (s *SMSClient) SendMessage(ctx context.Context, to, text string) error {
	return s.Send(ctx, to, text)
}

// Send delivers one SMS to one recipient number.
func (s *SMSClient) Send(ctx context.Context, to, text string) error {
	var out smsResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+s.apiKey).
		SetBody(map[string]string{
			"sender":  s.sender,
			"to":      to,
			"message": text,
		}).
		SetResult(&out).
		Post("/api/v1/send")
	if err != nil {
		return fmt.Errorf("sms send: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sms send failed: status %d %s", resp.StatusCode(), out.Message)
	}
	return nil
}
