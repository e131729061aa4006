package interfaces

import (
	"context"

	"github.com/quimbydigital/client-report-automations/internal/models"
)

// Publisher pushes a rendered artifact to the hosting target.
//
// Publishing is idempotent on the artifact content hash: if a deployment
// record already exists for the hash, the existing record is returned
// without re-uploading.
type Publisher interface {
	Publish(ctx context.Context, artifact *models.ReportArtifact) (*models.DeploymentRecord, error)
}
