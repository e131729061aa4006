package interfaces

import (
	"github.com/quimbydigital/client-report-automations/internal/models"
)

// InsightEngine merges KPIs, extracted metrics, prior-month data and the
// account manager's highlights into a ranked insight bundle with exactly
// one key takeaway.
type InsightEngine interface {
	Generate(kpis *models.KpiSet, metrics, priorMetrics []models.ExtractedMetric, highlights string) (*models.InsightBundle, error)
}
