package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/quimbydigital/client-report-automations/internal/interfaces"
	"github.com/quimbydigital/client-report-automations/internal/models"
)

// ArchiveStorage implements the ArchiveStorage interface for Badger.
// One ArchiveIndex record per client, keyed by client name; deployment
// records keyed by artifact content hash.
type ArchiveStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.ArchiveStorage = (*ArchiveStorage)(nil)

// NewArchiveStorage creates a new ArchiveStorage instance
func NewArchiveStorage(db *BadgerDB, logger arbor.ILogger) *ArchiveStorage {
	return &ArchiveStorage{
		db:     db,
		logger: logger,
	}
}

// GetIndex returns the client's archive index, empty when none exists yet.
func (s *ArchiveStorage) GetIndex(ctx context.Context, client string) (*models.ArchiveIndex, error) {
	var index models.ArchiveIndex
	if err := s.db.Store().Get("archive_"+client, &index); err != nil {
		if err == badgerhold.ErrNotFound {
			return &models.ArchiveIndex{Client: client}, nil
		}
		return nil, fmt.Errorf("failed to get archive index for %s: %w", client, err)
	}
	return &index, nil
}

// UpsertEntry adds or supersedes the archive entry for the entry's month.
func (s *ArchiveStorage) UpsertEntry(ctx context.Context, client string, entry models.ArchiveEntry) error {
	index, err := s.GetIndex(ctx, client)
	if err != nil {
		return err
	}
	superseded := index.Upsert(entry)
	if err := s.db.Store().Upsert("archive_"+client, index); err != nil {
		return fmt.Errorf("failed to save archive index for %s: %w", client, err)
	}
	s.logger.Debug().
		Str("client", client).
		Str("month", entry.Month).
		Bool("superseded", superseded).
		Msg("Archive index updated")
	return nil
}

func (s *ArchiveStorage) GetDeployment(ctx context.Context, contentHash string) (*models.DeploymentRecord, error) {
	var record models.DeploymentRecord
	if err := s.db.Store().Get(contentHash, &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get deployment record %s: %w", contentHash, err)
	}
	return &record, nil
}

func (s *ArchiveStorage) SaveDeployment(ctx context.Context, record *models.DeploymentRecord) error {
	if record.ContentHash == "" {
		return fmt.Errorf("deployment record requires a content hash")
	}
	if err := s.db.Store().Upsert(record.ContentHash, record); err != nil {
		return fmt.Errorf("failed to save deployment record: %w", err)
	}
	return nil
}
