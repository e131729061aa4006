package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/quimbydigital/client-report-automations/internal/common"
	"github.com/quimbydigital/client-report-automations/internal/interfaces"
)

// ClaudeProvider implements VisionProvider using Anthropic Claude
// multimodal models.
type ClaudeProvider struct {
	config  *common.ClaudeConfig
	logger  arbor.ILogger
	client  *anthropic.Client
	timeout time.Duration
}

// Compile-time assertion
var _ interfaces.VisionProvider = (*ClaudeProvider)(nil)

// NewClaudeProvider creates a new Claude vision provider.
func NewClaudeProvider(config *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required for vision OCR (set ANTHROPIC_API_KEY or claude.api_key in config)")
	}
	if config.Model == "" {
		config.Model = "claude-3-5-haiku-20241022"
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Timeout, err)
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
		config.MaxTokens = maxTokens
	}

	client := anthropic.NewClient(
		option.WithAPIKey(config.APIKey),
	)

	logger.Debug().
		Str("model", config.Model).
		Dur("timeout", timeout).
		Int("max_tokens", maxTokens).
		Msg("Claude vision provider initialized")

	return &ClaudeProvider{
		config:  config,
		logger:  logger,
		client:  &client,
		timeout: timeout,
	}, nil
}

// ReadImage performs OCR over the image bytes via Claude multimodal input.
func (p *ClaudeProvider) ReadImage(ctx context.Context, data []byte, mimeType string) (*interfaces.VisionResult, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	encoded := base64.StdEncoding.EncodeToString(data)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		MaxTokens: int64(p.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mimeType, encoded),
				anthropic.NewTextBlock(ocrPrompt),
			),
		},
	}

	resp, err := p.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return nil, fmt.Errorf("claude OCR failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no OCR response from claude model")
	}

	return parseLines(text.String()), nil
}

// Name returns the provider identifier.
func (p *ClaudeProvider) Name() string {
	return "claude"
}

// Close releases provider resources.
func (p *ClaudeProvider) Close() error {
	return nil
}
