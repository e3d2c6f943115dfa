package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	ythttp "ytcollect/http"
)

// TelegramNotifier sends the summary as a bot message to one chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// TelegramOption configures NewTelegramNotifier.
type TelegramOption func(*telegramOptions)

// DefaultTelegramTimeout bounds each bot API request made without
// WithTelegramClient. The bot library takes no context, so this is the only
// limit on a stalled send.
const DefaultTelegramTimeout = 30 * time.Second

type telegramOptions struct {
	endpoint string
	client   tgbotapi.HTTPClient
	timeout  time.Duration
}

// WithTelegramEndpoint overrides the bot API endpoint format
// (default tgbotapi.APIEndpoint).
func WithTelegramEndpoint(endpoint string) TelegramOption {
	return func(o *telegramOptions) { o.endpoint = endpoint }
}

// WithTelegramTimeout overrides DefaultTelegramTimeout. It has no effect
// together with WithTelegramClient.
func WithTelegramTimeout(d time.Duration) TelegramOption {
	return func(o *telegramOptions) { o.timeout = d }
}

// WithTelegramClient routes bot API calls through c, paced by its limiter.
func WithTelegramClient(c *ythttp.Client) TelegramOption {
	return func(o *telegramOptions) {
		o.client = &pacedDoer{base: c.StandardClient(), limiter: c.RateLimiter()}
	}
}

// NewTelegramNotifier authenticates the bot with token. It calls getMe, so
// an invalid token fails here rather than at the end of a run.
func NewTelegramNotifier(token string, chatID int64, opts ...TelegramOption) (*TelegramNotifier, error) {
	o := telegramOptions{endpoint: tgbotapi.APIEndpoint, timeout: DefaultTelegramTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: o.timeout}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, o.endpoint, o.client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, s Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, telegramText(s))
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// telegramText renders the summary as plain text so channel titles need no
// escaping.
func telegramText(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "YouTube channel collection finished %s\n", s.Timestamp.UTC().Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "New channels: %d\nTotal channels: %d\n", s.NewChannelCount, s.TotalChannelCount)
	for _, ch := range s.Sample {
		title := ch.Title
		if title == "" {
			title = ch.ChannelID
		}
		fmt.Fprintf(&b, "- %s (%d subscribers) https://www.youtube.com/channel/%s\n", title, ch.SubscriberCount, ch.ChannelID)
	}
	return b.String()
}

// pacedDoer waits on the shared limiter before each bot API request.
type pacedDoer struct {
	base    *http.Client
	limiter *ythttp.RateLimiter
}

func (d *pacedDoer) Do(req *http.Request) (*http.Response, error) {
	if err := d.limiter.Wait(req.Context(), req.URL.String()); err != nil {
		return nil, err
	}
	return d.base.Do(req)
}
