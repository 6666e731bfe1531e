package notifications

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"beam/internal/models"

	"github.com/slack-go/slack"
)

// SummaryLength is the longest post excerpt included in a Slack message, in runes.
const SummaryLength = 280

// SlackPoster posts new-post announcements to an incoming webhook.
type SlackPoster struct {
	webhookURL string
	baseURL    string
	client     *http.Client
}

// NewSlackPoster returns a poster for webhookURL. Links point at baseURL/post/<id>.
// A nil client gets a 10 second timeout.
func NewSlackPoster(webhookURL, baseURL string, client *http.Client) *SlackPoster {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SlackPoster{
		webhookURL: webhookURL,
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     client,
	}
}

// Enabled reports whether a webhook is configured.
func (s *SlackPoster) Enabled() bool {
	return s != nil && s.webhookURL != ""
}

// PostCreated announces post, written by authorName.
func (s *SlackPoster) PostCreated(ctx context.Context, post *models.Post, authorName string) error {
	if !s.Enabled() {
		return nil
	}
	msg := BuildPostMessage(s.baseURL, post, authorName)
	if err := slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.client, msg); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	return nil
}

// BuildPostMessage formats the announcement for post: a linked title, a summary of the
// markdown body and the author as context.
func BuildPostMessage(baseURL string, post *models.Post, authorName string) *slack.WebhookMessage {
	link := fmt.Sprintf("%s/post/%d", strings.TrimRight(baseURL, "/"), post.ID)
	title := escapeMrkdwn(post.Title)

	body := fmt.Sprintf("*<%s|%s>*", link, title)
	if summary := Summarize(post.Content, SummaryLength); summary != "" {
		body += "\n" + escapeMrkdwn(summary)
	}
	if authorName == "" {
		authorName = "someone"
	}

	return &slack.WebhookMessage{
		Text: fmt.Sprintf("New post: %s", post.Title),
		Blocks: &slack.Blocks{BlockSet: []slack.Block{
			slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, body, false, false), nil, nil),
			slack.NewContextBlock("", slack.NewTextBlockObject(slack.MarkdownType, "Posted by "+escapeMrkdwn(authorName), false, false)),
		}},
	}
}

// Summarize collapses whitespace in content and cuts it to at most max runes, preferring a
// word boundary. Cut text ends in an ellipsis, which counts toward max.
func Summarize(content string, max int) string {
	text := strings.Join(strings.Fields(content), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	if max < 1 {
		return ""
	}

	cut := runes[:max-1]
	for i := len(cut) - 1; i > 0; i-- {
		if unicode.IsSpace(cut[i]) {
			cut = cut[:i]
			break
		}
	}
	return strings.TrimRightFunc(string(cut), unicode.IsPunct) + "…"
}

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeMrkdwn(s string) string {
	return mrkdwnEscaper.Replace(s)
}
