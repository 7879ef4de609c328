package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/infratech-maker/apclo-partner-crm/pkg/logger"
)

// Severity は通知の重要度。Slack添付の色にマッピングされる。
type Severity string

const (
	SeverityGood    Severity = "good"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

var colorMap = map[Severity]string{
	SeverityGood:    "#36a64f",
	SeverityWarning: "#ff9900",
	SeverityDanger:  "#ff0000",
	SeverityInfo:    "#439fe0",
}

// Client は Slack Incoming Webhook への送信クライアント。
// 配信はベストエフォート: 失敗はログに残して握りつぶす。
type Client struct {
	webhookURL string
	footer     string
	httpClient *http.Client
}

type attachment struct {
	Color  string `json:"color"`
	Text   string `json:"text"`
	Footer string `json:"footer,omitempty"`
	TS     int64  `json:"ts,omitempty"`
}

type payload struct {
	Attachments []attachment `json:"attachments"`
}

// NewClient creates a webhook client. An empty webhookURL yields a disabled
// client whose Notify is a no-op.
func NewClient(webhookURL, footer string) *Client {
	return &Client{
		webhookURL: webhookURL,
		footer:     footer,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether a webhook URL is configured
func (c *Client) Enabled() bool {
	return c.webhookURL != ""
}

// Notify sends a message with the given severity color.
// Delivery failures are logged and swallowed, never returned to the caller.
func (c *Client) Notify(ctx context.Context, message string, severity Severity) {
	if !c.Enabled() {
		return
	}

	color, ok := colorMap[severity]
	if !ok {
		color = colorMap[SeverityInfo]
	}

	body, err := json.Marshal(payload{
		Attachments: []attachment{{
			Color:  color,
			Text:   message,
			Footer: c.footer,
			TS:     time.Now().Unix(),
		}},
	})
	if err != nil {
		logger.Warn("Failed to marshal slack payload", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		logger.Warn("Failed to build slack request", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("Slack notification failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("Slack notification rejected", map[string]interface{}{
			"status": fmt.Sprintf("%d", resp.StatusCode),
		})
	}
}
