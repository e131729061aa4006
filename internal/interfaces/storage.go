package interfaces

import (
	"context"

	"github.com/quimbydigital/client-report-automations/internal/models"
)

// JobStorage persists report jobs keyed by (client, month).
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.ReportJob) error
	GetJob(ctx context.Context, client, month string) (*models.ReportJob, error)
	ListJobs(ctx context.Context) ([]*models.ReportJob, error)
}

// ArchiveStorage persists per-client archive indexes and deployment
// records. The index is append-only and chronological; same-month entries
// are superseded in place.
type ArchiveStorage interface {
	GetIndex(ctx context.Context, client string) (*models.ArchiveIndex, error)
	UpsertEntry(ctx context.Context, client string, entry models.ArchiveEntry) error
	GetDeployment(ctx context.Context, contentHash string) (*models.DeploymentRecord, error)
	SaveDeployment(ctx context.Context, record *models.DeploymentRecord) error
}
