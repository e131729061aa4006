// -----------------------------------------------------------------------
// Vision OCR providers - multimodal text extraction from screenshots
// -----------------------------------------------------------------------

package vision

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/quimbydigital/client-report-automations/internal/common"
	"github.com/quimbydigital/client-report-automations/internal/interfaces"
)

// ocrPrompt asks the model for a line-by-line transcription with
// per-line confidence, as a JSON array we can parse deterministically.
const ocrPrompt = `Transcribe every piece of text visible in this social media analytics screenshot.
Return ONLY a JSON array, one object per visual line, in top-to-bottom order:
[{"text": "<line text>", "confidence": <0.0-1.0>}]
Confidence reflects how certain you are of the exact characters (lower it for
blurry, cropped or overlapping text). Keep metric labels and their numbers on
the same line when they appear together. No commentary, no markdown fences.`

// NewProvider creates the configured vision provider.
func NewProvider(config *common.Config, logger arbor.ILogger) (interfaces.VisionProvider, error) {
	switch config.Vision.Provider {
	case "claude":
		return NewClaudeProvider(&config.Claude, logger)
	case "gemini", "":
		return NewGeminiProvider(&config.Gemini, logger)
	default:
		return nil, fmt.Errorf("unknown vision provider %q", config.Vision.Provider)
	}
}

// parseLines decodes the model's JSON transcription. Models occasionally
// wrap output in markdown fences despite instructions, so those are
// stripped before decoding. A response that is not valid JSON is treated
// as a plain-text transcription with low confidence rather than an error.
func parseLines(raw string) *interfaces.VisionResult {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var lines []interfaces.VisionLine
	if err := json.Unmarshal([]byte(cleaned), &lines); err == nil {
		result := &interfaces.VisionResult{Lines: make([]interfaces.VisionLine, 0, len(lines))}
		for _, l := range lines {
			if strings.TrimSpace(l.Text) == "" {
				continue
			}
			if l.Confidence <= 0 || l.Confidence > 1 {
				l.Confidence = 0.5
			}
			result.Lines = append(result.Lines, l)
		}
		return result
	}

	// Fallback: treat the response as raw transcribed text.
	result := &interfaces.VisionResult{}
	for _, line := range strings.Split(cleaned, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		result.Lines = append(result.Lines, interfaces.VisionLine{Text: line, Confidence: 0.5})
	}
	return result
}
