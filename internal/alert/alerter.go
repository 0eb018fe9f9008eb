package alert

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"fastpay-backend/internal/store"

	"go.uber.org/zap"
)

// Sender delivers one message to one chat or recipient.
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// Alerter fans alerts out to the configured chats and throttles repeats.
// The throttle state lives in the shared KV store so every replica of the
// service suppresses the same duplicates.
type Alerter struct {
	sender   Sender
	kv       store.KV
	chatIDs  []string
	throttle time.Duration
	logger   *zap.Logger

	fallback   Sender
	fallbackTo []string
}

func NewAlerter(sender Sender, kv store.KV, chatIDs []string, throttle time.Duration, logger *zap.Logger) *Alerter {
	return &Alerter{
		sender:   sender,
		kv:       kv,
		chatIDs:  chatIDs,
		throttle: throttle,
		logger:   logger,
	}
}

func throttleKey(key string) string {
	return fmt.Sprintf("alert:throttle:%x", sha256.Sum256([]byte(key)))
}

// Send delivers text to every configured chat unless an identical alert
// went out inside the throttle window. The empty key throttles on the
// text itself.
func (a *Alerter) Send(ctx context.Context, key, text string) error {
	if key == "" {
		key = text
	}
	if a.throttle > 0 {
		set, err := a.kv.SetNX(ctx, throttleKey(key), "1", a.throttle)
		if err != nil {
			// a broken throttle store must not silence alerts
			a.logger.Warn("alert throttle check failed", zap.Error(err))
		} else if !set {
			a.logger.Debug("alert throttled", zap.String("key", key))
			return nil
		}
	}

	var lastErr error
	for _, chatID := range a.chatIDs {
		if err := a.sender.SendMessage(ctx, chatID, text); err != nil {
			a.logger.Error("alert delivery failed",
				zap.String("chat_id", chatID), zap.Error(err))
			lastErr = err
		}
	}
	if lastErr != nil && a.fallback != nil {
		var fbErr error
		for _, to := range a.fallbackTo {
			if err := a.fallback.SendMessage(ctx, to, text); err != nil {
				a.logger.Error("fallback alert delivery failed",
					zap.String("recipient", to), zap.Error(err))
				fbErr = err
			}
		}
		if fbErr == nil && len(a.fallbackTo) > 0 {
			return nil
		}
	}
	return lastErr
}

// WithFallback adds a second channel used when primary delivery fails.
func (a *Alerter) WithFallback(sender Sender, recipients []string) *Alerter {
	a.fallback = sender
	a.fallbackTo = recipients
	return a
}
