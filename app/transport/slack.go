package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tlees/content-curator/app/stages"
)

// slackMaxChars is the practical size limit for a single webhook message.
const slackMaxChars = 3000

// SlackTransport posts digests to a Slack incoming webhook. Long digests are
// truncated; the full document stays available in the blob store.
type SlackTransport struct {
	client     *resty.Client
	webhookURL string
}

func NewSlackTransport(webhookURL string) *SlackTransport {
	client := resty.New().
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second)

	return &SlackTransport{client: client, webhookURL: webhookURL}
}

func (t *SlackTransport) Name() string { return "slack" }

func (t *SlackTransport) Send(ctx context.Context, msg stages.Message) error {
	text := fmt.Sprintf("*%s*\n\n%s", msg.Subject, msg.Markdown)
	if len(text) > slackMaxChars {
		text = text[:slackMaxChars] + "\n...(truncated)"
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"text": text}).
		Post(t.webhookURL)
	if err != nil {
		return fmt.Errorf("failed to post to slack: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode())
	}

	return nil
}
