package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/utils/text"
)

const (
	// previewRunes is how much of the draft text a notification carries.
	previewRunes = 300
	// DefaultRateLimitRetries is how often one message is retried after a
	// rate limit answer before the send gives up.
	DefaultRateLimitRetries = 3
)

// TelegramConfig configures the bot used to notify admins.
type TelegramConfig struct {
	Token    string
	AdminIDs []int64

	// APIEndpoint overrides tgbotapi.APIEndpoint, e.g. for a local Bot API server.
	APIEndpoint string
	Timeout     time.Duration
	MinInterval time.Duration
	MaxBackoff  time.Duration
	// MaxRateLimitRetries defaults to DefaultRateLimitRetries; negative disables retries.
	MaxRateLimitRetries int
}

// TelegramNotifier sends each staged draft to every admin chat.
type TelegramNotifier struct {
	bot      *tgbotapi.BotAPI
	admins   []int64
	throttle *Throttle
	retries  int
}

// NewTelegramNotifier authenticates the bot with getMe.
func NewTelegramNotifier(cfg TelegramConfig) (*TelegramNotifier, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram: empty bot token")
	}
	if len(cfg.AdminIDs) == 0 {
		return nil, errors.New("telegram: no admin recipients")
	}
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	retries := cfg.MaxRateLimitRetries
	switch {
	case retries == 0:
		retries = DefaultRateLimitRetries
	case retries < 0:
		retries = 0
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("telegram: authenticate bot: %w", err)
	}
	slog.Info("telegram bot authenticated",
		slog.String("bot", bot.Self.UserName),
		slog.Int("admins", len(cfg.AdminIDs)))

	return &TelegramNotifier{
		bot:      bot,
		admins:   append([]int64(nil), cfg.AdminIDs...),
		throttle: NewThrottle(cfg.MinInterval, cfg.MaxBackoff),
		retries:  retries,
	}, nil
}

// NotifyDraft delivers the draft to every admin. Failures for one admin do
// not stop delivery to the others; all failures are joined in the result.
func (n *TelegramNotifier) NotifyDraft(ctx context.Context, draft *entity.Draft) error {
	return n.Send(ctx, FormatDraftMessage(draft))
}

// Send delivers an arbitrary text to every admin, paced like draft
// notifications.
func (n *TelegramNotifier) Send(ctx context.Context, body string) error {
	requestID := uuid.New().String()
	var errs []error
	for _, chatID := range n.admins {
		if err := n.send(ctx, requestID, chatID, body); err != nil {
			errs = append(errs, fmt.Errorf("admin %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// send waits for the recipient's turn and delivers body. A rate limit answer
// backs the recipient off and the message is retried after the pause, up to
// n.retries times.
func (n *TelegramNotifier) send(ctx context.Context, requestID string, chatID int64, body string) error {
	msg := tgbotapi.NewMessage(chatID, body)
	msg.DisableWebPagePreview = true

	for attempt := 0; ; attempt++ {
		if err := n.throttle.Wait(ctx, chatID); err != nil {
			return err
		}

		_, err := n.bot.Send(msg)
		if err == nil {
			n.throttle.Reset(chatID)
			slog.Debug("telegram notification sent",
				slog.String("request_id", requestID),
				slog.Int64("chat_id", chatID),
				slog.Int("attempt", attempt+1))
			return nil
		}

		var apiErr *tgbotapi.Error
		if !errors.As(err, &apiErr) || (apiErr.Code != http.StatusTooManyRequests && apiErr.RetryAfter <= 0) {
			return fmt.Errorf("telegram send: %w", err)
		}
		pause := n.throttle.Backoff(chatID, time.Duration(apiErr.RetryAfter)*time.Second)
		slog.Warn("telegram rate limit hit, backing off",
			slog.String("request_id", requestID),
			slog.Int64("chat_id", chatID),
			slog.Int("retry_after_seconds", apiErr.RetryAfter),
			slog.Duration("pause", pause),
			slog.Int("attempt", attempt+1))
		if attempt >= n.retries {
			return fmt.Errorf("%w: gave up after %d attempts, retry in %v", ErrRateLimited, attempt+1, pause)
		}
	}
}

// FormatDraftMessage renders the plain text notification for a draft.
func FormatDraftMessage(d *entity.Draft) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New post #%d\n", d.ID)
	fmt.Fprintf(&b, "Source: %s\n", d.SourceName)
	if len(d.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(d.Keywords, ", "))
	}
	if d.PublishedAt != nil {
		fmt.Fprintf(&b, "Published: %s\n", d.PublishedAt.UTC().Format("2006-01-02 15:04 UTC"))
	}
	b.WriteString("\n")
	b.WriteString(text.Truncate(d.Text, previewRunes))
	b.WriteString("\n\n")
	b.WriteString(d.SourceURL)
	return b.String()
}
