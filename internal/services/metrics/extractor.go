// -----------------------------------------------------------------------
// Image Metric Extractor - OCR metric extraction from platform screenshots
// -----------------------------------------------------------------------

package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/quimbydigital/client-report-automations/internal/common"
	"github.com/quimbydigital/client-report-automations/internal/interfaces"
	"github.com/quimbydigital/client-report-automations/internal/models"
)

// Extractor implements the MetricExtractor interface. Classification by
// filename hint happens first (cheap, deterministic); OCR-text signature
// matching is the fallback. Vision calls are rate limited.
type Extractor struct {
	vision     interfaces.VisionProvider
	registry   *Registry
	limiter    *rate.Limiter
	logger     arbor.ILogger
	threshold  float64
	ocrTimeout time.Duration
}

// Compile-time interface assertion
var _ interfaces.MetricExtractor = (*Extractor)(nil)

// NewExtractor creates a new image metric extractor.
func NewExtractor(vision interfaces.VisionProvider, config *common.Config, logger arbor.ILogger) (*Extractor, error) {
	interval, err := time.ParseDuration(config.Vision.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid vision rate limit '%s': %w", config.Vision.RateLimit, err)
	}
	ocrTimeout, err := time.ParseDuration(config.Extraction.OCRTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid OCR timeout '%s': %w", config.Extraction.OCRTimeout, err)
	}

	return &Extractor{
		vision:     vision,
		registry:   NewRegistry(),
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
		logger:     logger,
		threshold:  config.Extraction.ConfidenceThreshold,
		ocrTimeout: ocrTimeout,
	}, nil
}

// Extract processes each screenshot independently and returns all
// recognized metrics plus per-image warnings. One corrupt image never
// aborts the batch.
func (e *Extractor) Extract(ctx context.Context, shots []models.PlatformScreenshot) ([]models.ExtractedMetric, []string) {
	var all []models.ExtractedMetric
	var warnings []string

	for i := range shots {
		shot := &shots[i]
		extracted, err := e.extractOne(ctx, shot)
		if err != nil {
			e.logger.Warn().
				Err(err).
				Str("screenshot", shot.Filename).
				Msg("Screenshot extraction failed, continuing batch")
			warnings = append(warnings, fmt.Sprintf("screenshot %s: %v", shot.Filename, err))
			continue
		}
		all = append(all, extracted...)
	}

	e.logger.Info().
		Int("screenshots", len(shots)).
		Int("metrics", len(all)).
		Int("warnings", len(warnings)).
		Msg("Image metric extraction complete")
	return all, warnings
}

func (e *Extractor) extractOne(ctx context.Context, shot *models.PlatformScreenshot) ([]models.ExtractedMetric, error) {
	data, err := os.ReadFile(shot.Path)
	if err != nil {
		return nil, fmt.Errorf("unreadable image: %w", err)
	}

	// Filename hint first.
	if shot.Platform == "" || shot.Platform == models.PlatformOther {
		shot.Platform = e.registry.ClassifyFilename(shot.Filename)
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ocrCtx, cancel := context.WithTimeout(ctx, e.ocrTimeout)
	defer cancel()

	result, err := e.vision.ReadImage(ocrCtx, data, mimeTypeFor(shot.Filename))
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	// Unhinted filename: fall back to OCR-text signature matching.
	if shot.Platform == models.PlatformOther {
		var sb strings.Builder
		for _, l := range result.Lines {
			sb.WriteString(l.Text)
			sb.WriteString("\n")
		}
		shot.Platform = e.registry.ClassifyText(sb.String())
	}

	return e.metricsFromLines(shot, result.Lines), nil
}

// metricsFromLines associates recognized numeric tokens with metric names
// using the platform's label dictionary. Screenshots tagged "other" keep
// the literal label text as the metric name rather than being dropped.
func (e *Extractor) metricsFromLines(shot *models.PlatformScreenshot, lines []interfaces.VisionLine) []models.ExtractedMetric {
	profile := e.registry.ProfileFor(shot.Platform)
	seen := make(map[string]bool)
	var out []models.ExtractedMetric

	for _, line := range lines {
		label, value, unit, ok := common.FindNumber(line.Text)
		if !ok {
			continue
		}

		name := ""
		if profile != nil {
			name = profile.matchLabel(label)
		}
		if name == "" {
			// Literal label for unknown platforms or unknown labels on
			// known platforms; skip numbers with no label at all.
			if label == "" {
				continue
			}
			if profile != nil {
				continue // known platform, label not in its dictionary
			}
			name = strings.Join(strings.Fields(label), " ")
		}

		if seen[name] {
			continue
		}
		seen[name] = true

		out = append(out, models.ExtractedMetric{
			Platform:   shot.Platform,
			Name:       name,
			Value:      value,
			Unit:       unit,
			Confidence: line.Confidence,
			Verified:   line.Confidence >= e.threshold,
			Source:     shot.Filename,
		})
	}
	return out
}

// matchLabel resolves an OCR'd label against the profile's alias
// dictionary, longest alias first so "engagement rate" wins over
// "engagement".
func (p *PlatformProfile) matchLabel(label string) string {
	lower := strings.ToLower(label)
	best := ""
	bestLen := 0
	for name, aliases := range p.Labels {
		for _, alias := range aliases {
			if strings.Contains(lower, alias) && len(alias) > bestLen {
				best = name
				bestLen = len(alias)
			}
		}
	}
	return best
}

func mimeTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "image/png"
	}
}
