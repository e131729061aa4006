package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/quimbydigital/client-report-automations/internal/interfaces"
	"github.com/quimbydigital/client-report-automations/internal/models"
)

// ErrJobNotFound is returned when no job exists for a (client, month) key.
var ErrJobNotFound = errors.New("job not found")

// JobStorage implements the JobStorage interface for Badger.
// Jobs are keyed by "client|month" so a re-run for the same month updates
// the same record.
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.JobStorage = (*JobStorage)(nil)

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) *JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) SaveJob(ctx context.Context, job *models.ReportJob) error {
	if job.Client == "" || job.Month == "" {
		return fmt.Errorf("job client and month are required")
	}
	if err := s.db.Store().Upsert(job.Key(), job); err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.Key(), err)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, client, month string) (*models.ReportJob, error) {
	var job models.ReportJob
	key := models.JobKey(client, month)
	if err := s.db.Store().Get(key, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, key)
		}
		return nil, fmt.Errorf("failed to get job %s: %w", key, err)
	}
	return &job, nil
}

func (s *JobStorage) ListJobs(ctx context.Context) ([]*models.ReportJob, error) {
	var jobs []models.ReportJob
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	result := make([]*models.ReportJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}
