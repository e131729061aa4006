// -----------------------------------------------------------------------
// Document Extractor Interface - KPI extraction from strategy decks
// -----------------------------------------------------------------------

package interfaces

import (
	"context"

	"github.com/quimbydigital/client-report-automations/internal/models"
)

// DocumentExtractor parses a strategy PDF into KPI definitions and
// content-pillar text.
//
// A document without a machine-readable text layer falls back to page-image
// OCR; pages unreadable by both paths become warnings on the KpiSet rather
// than failures. A document with zero parsed pages is a hard failure.
type DocumentExtractor interface {
	// Extract parses the PDF at path and returns the ordered KPI set.
	// Output preserves document page order.
	Extract(ctx context.Context, path string) (*models.KpiSet, error)
}
