package notifier_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/infra/notifier"
)

const (
	testToken       = "123:abc"
	tooManyRequests = `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 1","parameters":{"retry_after":1}}`
)

type sentMessage struct {
	chatID int64
	text   string
}

// fakeBotAPI emulates the two Bot API methods the notifier uses.
type fakeBotAPI struct {
	mu       sync.Mutex
	sent     []sentMessage
	attempts map[int64]int
	// replies overrides the sendMessage answer per chat
	replies map[int64]string
	// rateLimited answers this many leading sends per chat with a 429
	rateLimited map[int64]int
}

func newFakeBotAPI(t *testing.T) (*fakeBotAPI, *httptest.Server) {
	t.Helper()
	api := &fakeBotAPI{attempts: make(map[int64]int), replies: make(map[int64]string), rateLimited: make(map[int64]int)}
	mux := http.NewServeMux()
	mux.HandleFunc("/bot"+testToken+"/getMe", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":42,"is_bot":true,"first_name":"watch","username":"feedwatch_bot"}}`))
	})
	mux.HandleFunc("/bot"+testToken+"/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		chatID, _ := strconv.ParseInt(r.PostForm.Get("chat_id"), 10, 64)

		api.mu.Lock()
		api.attempts[chatID]++
		reply, override := api.replies[chatID]
		if api.rateLimited[chatID] > 0 {
			api.rateLimited[chatID]--
			reply, override = tooManyRequests, true
		}
		if !override {
			api.sent = append(api.sent, sentMessage{chatID: chatID, text: r.PostForm.Get("text")})
		}
		api.mu.Unlock()

		if override {
			_, _ = w.Write([]byte(reply))
			return
		}
		fmt.Fprintf(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":%d,"type":"private"}}}`, chatID)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return api, server
}

func (a *fakeBotAPI) messages() []sentMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]sentMessage(nil), a.sent...)
}

func (a *fakeBotAPI) attemptsFor(chatID int64) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attempts[chatID]
}

// newTelegram builds a notifier whose backoff is capped at 30ms so rate
// limit retries finish quickly.
func newTelegram(t *testing.T, server *httptest.Server, admins ...int64) *notifier.TelegramNotifier {
	t.Helper()
	return newTelegramWith(t, server, notifier.TelegramConfig{MaxBackoff: 30 * time.Millisecond}, admins...)
}

func newTelegramWith(t *testing.T, server *httptest.Server, cfg notifier.TelegramConfig, admins ...int64) *notifier.TelegramNotifier {
	t.Helper()
	cfg.Token = testToken
	cfg.AdminIDs = admins
	cfg.APIEndpoint = server.URL + "/bot%s/%s"
	cfg.Timeout = 5 * time.Second
	cfg.MinInterval = 10 * time.Millisecond
	n, err := notifier.NewTelegramNotifier(cfg)
	require.NoError(t, err)
	return n
}

func sampleDraft() *entity.Draft {
	published := time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC)
	return &entity.Draft{
		ID:          7,
		SourceKind:  entity.SourceKindChannel,
		SourceName:  "@durov",
		Text:        "TON price rises",
		SourceURL:   "https://t.me/durov/2",
		PublishedAt: &published,
		Keywords:    []string{"TON", "price"},
		Status:      entity.DraftStatusNew,
	}
}

/* ───────── 1. delivery ───────── */

func TestTelegramNotifier_SendsToEveryAdmin(t *testing.T) {
	api, server := newFakeBotAPI(t)
	n := newTelegram(t, server, 100, 200)

	require.NoError(t, n.NotifyDraft(context.Background(), sampleDraft()))

	msgs := api.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(100), msgs[0].chatID)
	assert.Equal(t, int64(200), msgs[1].chatID)
	assert.Equal(t, notifier.FormatDraftMessage(sampleDraft()), msgs[0].text)
}

func TestTelegramNotifier_OneAdminFailing(t *testing.T) {
	api, server := newFakeBotAPI(t)
	api.replies[100] = `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`
	n := newTelegram(t, server, 100, 200)

	err := n.NotifyDraft(context.Background(), sampleDraft())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin 100")
	assert.False(t, errors.Is(err, notifier.ErrRateLimited))

	msgs := api.messages()
	require.Len(t, msgs, 1, "the second admin is still notified")
	assert.Equal(t, int64(200), msgs[0].chatID)
}

/* ───────── 2. rate limits ───────── */

func TestTelegramNotifier_RetriesAfterRateLimit(t *testing.T) {
	api, server := newFakeBotAPI(t)
	api.rateLimited[100] = 2
	n := newTelegram(t, server, 100)

	require.NoError(t, n.NotifyDraft(context.Background(), sampleDraft()))
	assert.Equal(t, 3, api.attemptsFor(100))
	require.Len(t, api.messages(), 1)
}

func TestTelegramNotifier_BurstAfterRateLimitDeliversAll(t *testing.T) {
	api, server := newFakeBotAPI(t)
	api.rateLimited[100] = 1
	n := newTelegram(t, server, 100)

	for i := 0; i < 5; i++ {
		require.NoError(t, n.Send(context.Background(), fmt.Sprintf("message %d", i)))
	}
	msgs := api.messages()
	require.Len(t, msgs, 5)
	for i, m := range msgs {
		assert.Equal(t, fmt.Sprintf("message %d", i), m.text)
	}
}

func TestTelegramNotifier_RateLimitGivesUpAfterRetries(t *testing.T) {
	api, server := newFakeBotAPI(t)
	api.replies[100] = tooManyRequests
	n := newTelegram(t, server, 100)

	err := n.NotifyDraft(context.Background(), sampleDraft())
	require.ErrorIs(t, err, notifier.ErrRateLimited)
	assert.Equal(t, 1+notifier.DefaultRateLimitRetries, api.attemptsFor(100))
}

func TestTelegramNotifier_RateLimitFailsFastPastDeadline(t *testing.T) {
	api, server := newFakeBotAPI(t)
	api.replies[100] = `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 5","parameters":{"retry_after":5}}`
	n := newTelegramWith(t, server, notifier.TelegramConfig{}, 100)

	// the 5s pause outlasts the deadline: the retry fails fast without calling the API
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := n.NotifyDraft(ctx, sampleDraft())
	require.ErrorIs(t, err, notifier.ErrRateLimited)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, 1, api.attemptsFor(100))
}

func TestTelegramNotifier_RetriesDisabled(t *testing.T) {
	api, server := newFakeBotAPI(t)
	api.rateLimited[100] = 1
	n := newTelegramWith(t, server, notifier.TelegramConfig{MaxBackoff: 30 * time.Millisecond, MaxRateLimitRetries: -1}, 100)

	require.ErrorIs(t, n.NotifyDraft(context.Background(), sampleDraft()), notifier.ErrRateLimited)
	assert.Equal(t, 1, api.attemptsFor(100))
}

/* ───────── 3. construction ───────── */

func TestNewTelegramNotifier_Validation(t *testing.T) {
	_, err := notifier.NewTelegramNotifier(notifier.TelegramConfig{AdminIDs: []int64{1}})
	assert.Error(t, err, "empty token")

	_, err = notifier.NewTelegramNotifier(notifier.TelegramConfig{Token: testToken})
	assert.Error(t, err, "no admins")
}

func TestNewTelegramNotifier_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer server.Close()

	_, err := notifier.NewTelegramNotifier(notifier.TelegramConfig{
		Token:       testToken,
		AdminIDs:    []int64{1},
		APIEndpoint: server.URL + "/bot%s/%s",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")
}

/* ───────── 4. message format ───────── */

func TestFormatDraftMessage(t *testing.T) {
	got := notifier.FormatDraftMessage(sampleDraft())
	want := "New post #7\n" +
		"Source: @durov\n" +
		"Keywords: TON, price\n" +
		"Published: 2026-03-10 11:00 UTC\n" +
		"\n" +
		"TON price rises\n" +
		"\n" +
		"https://t.me/durov/2"
	assert.Equal(t, want, got)
}

func TestFormatDraftMessage_TruncatesText(t *testing.T) {
	d := sampleDraft()
	d.Text = strings.Repeat("я", 400)
	d.PublishedAt = nil
	d.Keywords = nil

	got := notifier.FormatDraftMessage(d)
	assert.Contains(t, got, strings.Repeat("я", 300)+"...")
	assert.NotContains(t, got, strings.Repeat("я", 301))
	assert.NotContains(t, got, "Published:")
	assert.NotContains(t, got, "Keywords:")
}
