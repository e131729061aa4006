// -----------------------------------------------------------------------
// Metric Extractor Interface - OCR metric extraction from screenshots
// -----------------------------------------------------------------------

package interfaces

import (
	"context"

	"github.com/quimbydigital/client-report-automations/internal/models"
)

// MetricExtractor runs OCR over platform screenshots and extracts named
// metric values.
//
// Each screenshot is processed independently: a corrupt image yields zero
// metrics from that image plus a warning, never aborts the batch.
type MetricExtractor interface {
	// Extract returns the metrics recognized across all screenshots plus
	// per-image warnings for isolated failures.
	Extract(ctx context.Context, shots []models.PlatformScreenshot) ([]models.ExtractedMetric, []string)
}
