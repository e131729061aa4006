package vision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/quimbydigital/client-report-automations/internal/common"
	"github.com/quimbydigital/client-report-automations/internal/interfaces"
)

// GeminiProvider implements VisionProvider using Gemini multimodal models.
type GeminiProvider struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
	retry   *RetryConfig
}

// Compile-time assertion
var _ interfaces.VisionProvider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini vision provider.
func NewGeminiProvider(config *common.GeminiConfig, logger arbor.ILogger) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required for vision OCR (set GEMINI_API_KEY or gemini.api_key in config)")
	}
	if config.Model == "" {
		config.Model = "gemini-2.0-flash"
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Timeout, err)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	logger.Debug().
		Str("model", config.Model).
		Dur("timeout", timeout).
		Msg("Gemini vision provider initialized")

	return &GeminiProvider{
		config:  config,
		logger:  logger,
		client:  client,
		timeout: timeout,
		retry:   NewDefaultRetryConfig(),
	}, nil
}

// ReadImage performs OCR over the image bytes via Gemini multimodal input.
// Rate-limit errors are retried with backoff up to the configured bound.
func (p *GeminiProvider) ReadImage(ctx context.Context, data []byte, mimeType string) (*interfaces.VisionResult, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	contents := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				genai.NewPartFromBytes(data, mimeType),
				genai.NewPartFromText(ocrPrompt),
			},
		},
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(p.config.Temperature),
	}

	var lastErr error
	for attempt := 0; attempt <= p.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := p.retry.CalculateBackoff(attempt, ExtractRetryDelay(lastErr))
			p.logger.Warn().
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Gemini OCR rate limited, backing off")
			select {
			case <-time.After(backoff):
			case <-timeoutCtx.Done():
				return nil, timeoutCtx.Err()
			}
		}

		resp, err := p.client.Models.GenerateContent(timeoutCtx, p.config.Model, contents, config)
		if err != nil {
			lastErr = err
			if IsRateLimitError(err) {
				continue
			}
			return nil, fmt.Errorf("gemini OCR failed: %w", err)
		}

		var text strings.Builder
		if resp != nil && len(resp.Candidates) > 0 {
			for _, part := range resp.Candidates[0].Content.Parts {
				if part.Text != "" {
					text.WriteString(part.Text)
				}
			}
		}
		if text.Len() == 0 {
			return nil, fmt.Errorf("no OCR response from gemini model")
		}
		return parseLines(text.String()), nil
	}

	return nil, fmt.Errorf("gemini OCR exhausted retries: %w", lastErr)
}

// Name returns the provider identifier.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Close releases provider resources.
func (p *GeminiProvider) Close() error {
	return nil
}
