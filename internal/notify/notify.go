// Package notify delivers best-effort alert messages. Send never returns
// an error; delivery problems are logged and dropped.
package notify

import (
	"context"
	"net/http"
	"time"

	"github.com/slack-go/slack"

	"github.com/seligo/sentiment-pulse/pkg/log"
)

const defaultTimeout = 5 * time.Second

// Notifier posts a message to an external sink.
type Notifier interface {
	Send(ctx context.Context, message string)
}

// SlackNotifier posts messages to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *log.Logger
}

func NewSlackNotifier(webhookURL string, timeout time.Duration, logger *log.Logger) *SlackNotifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = log.GetLogger()
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Send posts the message. An unset webhook or a delivery failure is logged
// and otherwise ignored.
func (n *SlackNotifier) Send(ctx context.Context, message string) {
	if n.webhookURL == "" {
		n.logger.Debug("Slack webhook not configured, dropping notification: %s", message)
		return
	}

	payload := &slack.WebhookMessage{Text: message}
	if err := slack.PostWebhookCustomHTTPContext(ctx, n.webhookURL, n.httpClient, payload); err != nil {
		n.logger.Warn("Slack notification failed: %v", err)
		return
	}
	n.logger.Debug("Slack notification sent: %s", message)
}

// NopNotifier drops every message. Used when notifications are disabled.
type NopNotifier struct{}

func (NopNotifier) Send(context.Context, string) {}

var (
	_ Notifier = (*SlackNotifier)(nil)
	_ Notifier = NopNotifier{}
)
