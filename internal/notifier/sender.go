package notifier

import (
	"context"
	"log/slog"
	"strings"

	"github.com/teemow/focusbot/internal/logging"
	"github.com/teemow/focusbot/internal/signal"
)

// Sender delivers a text message to a chat.
type Sender interface {
	Send(ctx context.Context, chatID, text string) error
}

// SignalSender delivers through signal-cli. Chat ids starting with "+" are
// phone numbers; anything else is a group name.
type SignalSender struct {
	client *signal.Client
}

// NewSignalSender wraps client.
func NewSignalSender(client *signal.Client) *SignalSender {
	return &SignalSender{client: client}
}

// Send implements Sender.
func (s *SignalSender) Send(ctx context.Context, chatID, text string) error {
	if strings.HasPrefix(chatID, "+") {
		return s.client.SendMessage(ctx, chatID, text)
	}
	return s.client.SendGroupMessage(ctx, chatID, text)
}

// LogSender only logs messages. Used when no transport is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logging.WithComponent(logger, "notifier")}
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, chatID, text string) error {
	s.logger.Info("notification", logging.ChatHash(chatID), slog.String("text", text))
	return nil
}
