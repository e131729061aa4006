package interfaces

import (
	"github.com/quimbydigital/client-report-automations/internal/models"
)

// RenderInput carries everything the renderer needs for one job.
type RenderInput struct {
	Client     string
	Month      string
	Bundle     *models.InsightBundle
	Metrics    []models.ExtractedMetric
	Shots      []models.PlatformScreenshot
	Highlights string
	Archive    *models.ArchiveIndex
}

// ReportRenderer turns an insight bundle into a self-contained report
// artifact. Rendering is deterministic: identical inputs produce identical
// canonical content and therefore identical content hashes (the generation
// timestamp is excluded from the hash).
type ReportRenderer interface {
	Render(in *RenderInput) (*models.ReportArtifact, error)
}
