package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Notifier delivers out-of-band operator notifications. Implementations must
// be safe for concurrent use. Callers treat notification as fire-and-forget:
// failures are logged, never surfaced.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string) error { return nil }

// TelegramNotifier posts messages to a Telegram chat via the Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string

	client *http.Client
}

func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (t *TelegramNotifier) Notify(ctx context.Context, message string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id":    t.ChatID,
		"text":       message,
		"parse_mode": "HTML",
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// notifyAsync fires a notification without blocking the caller. A short
// deadline bounds the outbound call; errors only reach the log.
func notifyAsync(n Notifier, l *slog.Logger, message string) {
	if n == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := n.Notify(ctx, message); err != nil {
			l.Warn("notification delivery failed", slog.String("error", err.Error()))
		}
	}()
}
