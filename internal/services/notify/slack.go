package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/quimbydigital/client-report-automations/internal/common"
	"github.com/quimbydigital/client-report-automations/internal/interfaces"
)

// SlackNotifier posts terminal-state notifications to a Slack incoming
// webhook. When no webhook URL is configured it logs and drops the
// notification instead of failing the job.
type SlackNotifier struct {
	webhookURL string
	channel    string
	httpClient *http.Client
	logger     arbor.ILogger
}

var _ interfaces.Notifier = (*SlackNotifier)(nil)

func NewSlackNotifier(config *common.SlackConfig, logger arbor.ILogger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: config.WebhookURL,
		channel:    config.Channel,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

type slackMessage struct {
	Channel string       `json:"channel,omitempty"`
	Text    string       `json:"text"`
	Blocks  []slackBlock `json:"blocks,omitempty"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func header(text string) slackBlock {
	return slackBlock{Type: "header", Text: &slackText{Type: "plain_text", Text: text}}
}

func section(markdown string) slackBlock {
	return slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: markdown}}
}

func contextBlock(markdown string) slackBlock {
	return slackBlock{Type: "context", Elements: []slackText{{Type: "mrkdwn", Text: markdown}}}
}

// NotifyReportReady announces a completed report with its hosted URL.
// Degraded completions carry the warnings so the account manager knows
// what to double-check before sharing.
func (n *SlackNotifier) NotifyReportReady(ctx context.Context, client, month, url string, degraded bool, warnings []string) error {
	title := fmt.Sprintf("%s Report Ready for %s", client, month)
	blocks := []slackBlock{
		header(title),
		section(fmt.Sprintf("The monthly performance report for *%s* is now ready for review.", client)),
		section(fmt.Sprintf("*<%s|View Report>*", url)),
	}
	if degraded && len(warnings) > 0 {
		blocks = append(blocks, section(fmt.Sprintf("Completed with warnings:\n%s", bulletList(warnings))))
	}
	blocks = append(blocks, contextBlock("Please review before sharing with the client."))

	return n.post(ctx, slackMessage{Channel: n.channel, Text: title, Blocks: blocks})
}

// NotifyMissingData lists the input items a client month is missing.
func (n *SlackNotifier) NotifyMissingData(ctx context.Context, client, month string, missing []string) error {
	title := fmt.Sprintf("Missing Data for %s (%s)", client, month)
	blocks := []slackBlock{
		header(title),
		section(fmt.Sprintf("The following items are missing for *%s* for *%s*:", client, month)),
		section(bulletList(missing)),
	}
	return n.post(ctx, slackMessage{Channel: n.channel, Text: title, Blocks: blocks})
}

// NotifyError reports a failed job with its failure summary.
func (n *SlackNotifier) NotifyError(ctx context.Context, client, month, summary string) error {
	title := fmt.Sprintf("Error Processing %s (%s)", client, month)
	blocks := []slackBlock{
		header(title),
		section(fmt.Sprintf("An error occurred while processing *%s* for *%s*:", client, month)),
		section(fmt.Sprintf("```%s```", summary)),
	}
	return n.post(ctx, slackMessage{Channel: n.channel, Text: title, Blocks: blocks})
}

func (n *SlackNotifier) post(ctx context.Context, msg slackMessage) error {
	if n.webhookURL == "" {
		n.logger.Warn().
			Str("text", msg.Text).
			Msg("Slack webhook not configured, dropping notification")
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode Slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build Slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post Slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("slack webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	n.logger.Info().
		Str("text", msg.Text).
		Str("channel", n.channel).
		Msg("Sent Slack notification")
	return nil
}

func bulletList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("• ")
		b.WriteString(item)
	}
	return b.String()
}
