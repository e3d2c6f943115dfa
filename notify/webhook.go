package notify

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/nao1215/markdown"

	ythttp "ytcollect/http"
	"ytcollect/storage"
)

// WebhookNotifier posts the summary to a Slack-compatible incoming webhook
// as {"text": <markdown>}.
type WebhookNotifier struct {
	url    string
	client *ythttp.Client
}

// NewWebhookNotifier creates a notifier posting to url through client.
func NewWebhookNotifier(url string, client *ythttp.Client) *WebhookNotifier {
	return &WebhookNotifier{url: url, client: client}
}

type webhookPayload struct {
	Text string `json:"text"`
}

func (n *WebhookNotifier) Notify(ctx context.Context, s Summary) error {
	text, err := RenderMarkdown(s)
	if err != nil {
		return err
	}
	if _, err := n.client.PostJSON(ctx, n.url, webhookPayload{Text: text}); err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	return nil
}

// RenderMarkdown formats a summary as a short markdown report.
func RenderMarkdown(s Summary) (string, error) {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)

	md.H2("YouTube channel collection")
	md.PlainText("")
	md.BulletList(
		"New channels: "+strconv.Itoa(s.NewChannelCount),
		"Total channels: "+strconv.Itoa(s.TotalChannelCount),
		"Finished: "+s.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"),
	)
	md.PlainText("")

	if len(s.Sample) > 0 {
		rows := make([][]string, 0, len(s.Sample))
		for _, ch := range s.Sample {
			rows = append(rows, sampleRow(ch))
		}
		md.Table(markdown.TableSet{
			Header: []string{"Channel", "Subscribers", "Videos", "Email"},
			Rows:   rows,
		})
	}

	if err := md.Build(); err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return buf.String(), nil
}

func sampleRow(ch storage.ChannelRecord) []string {
	title := ch.Title
	if title == "" {
		title = ch.ChannelID
	}
	return []string{
		markdown.Link(title, "https://www.youtube.com/channel/"+ch.ChannelID),
		strconv.FormatUint(ch.SubscriberCount, 10),
		strconv.FormatUint(ch.VideoCount, 10),
		ch.Email,
	}
}
