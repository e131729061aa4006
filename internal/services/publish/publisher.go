package publish

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/quimbydigital/client-report-automations/internal/common"
	"github.com/quimbydigital/client-report-automations/internal/interfaces"
	"github.com/quimbydigital/client-report-automations/internal/models"
)

// Publisher deploys rendered artifacts to the configured hosting target
// and maintains the per-client archive index.
type Publisher struct {
	target  target
	archive interfaces.ArchiveStorage
	logger  arbor.ILogger
}

var _ interfaces.Publisher = (*Publisher)(nil)

// NewPublisher selects the hosting target from configuration.
func NewPublisher(ctx context.Context, config *common.PublishConfig, archive interfaces.ArchiveStorage, logger arbor.ILogger) (*Publisher, error) {
	var tgt target
	switch config.Target {
	case "s3":
		s3t, err := newS3Target(ctx, config)
		if err != nil {
			return nil, err
		}
		tgt = s3t
	case "local", "":
		tgt = newLocalTarget(config)
	default:
		return nil, fmt.Errorf("unknown publish target: %s", config.Target)
	}

	logger.Info().
		Str("target", tgt.Name()).
		Str("base_url", config.BaseURL).
		Msg("Publisher initialized")

	return &Publisher{
		target:  tgt,
		archive: archive,
		logger:  logger,
	}, nil
}

// Publish uploads the artifact's files and records the deployment.
//
// Idempotent on the artifact content hash: if a deployment record already
// exists for the hash, nothing is uploaded and the existing record is
// returned. The archive index entry for the month is still upserted so a
// re-run after an index wipe heals the index.
func (p *Publisher) Publish(ctx context.Context, artifact *models.ReportArtifact) (*models.DeploymentRecord, error) {
	existing, err := p.archive.GetDeployment(ctx, artifact.ContentHash)
	if err != nil {
		return nil, fmt.Errorf("failed to check deployment record: %w", err)
	}
	if existing != nil {
		p.logger.Info().
			Str("client", artifact.Client).
			Str("month", artifact.Month).
			Str("content_hash", shortHash(artifact.ContentHash)).
			Str("url", existing.URL).
			Msg("Artifact already deployed, skipping upload")
		if err := p.upsertArchive(ctx, artifact, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	prefix := reportKeyPrefix(artifact.Client, artifact.Month)
	if err := p.upload(ctx, prefix, artifact); err != nil {
		return nil, err
	}

	record := &models.DeploymentRecord{
		ContentHash: artifact.ContentHash,
		URL:         p.target.URLFor(prefix + "/report.html"),
		DeployedAt:  time.Now().UTC(),
		Target:      p.target.Name(),
	}
	if err := p.archive.SaveDeployment(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save deployment record: %w", err)
	}
	if err := p.upsertArchive(ctx, artifact, record); err != nil {
		return nil, err
	}

	p.logger.Info().
		Str("client", artifact.Client).
		Str("month", artifact.Month).
		Str("target", p.target.Name()).
		Str("url", record.URL).
		Msg("Report deployed")

	return record, nil
}

func (p *Publisher) upload(ctx context.Context, prefix string, artifact *models.ReportArtifact) error {
	files := map[string][]byte{
		"report.html": artifact.HTML,
		"report.pdf":  artifact.PDF,
	}
	for name, data := range artifact.Assets {
		files[name] = data
	}

	// Stable upload order keeps logs and partial-failure behavior
	// reproducible across runs.
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		key := prefix + "/" + name
		if err := p.target.Put(ctx, key, files[name], contentTypeFor(name)); err != nil {
			return err
		}
		p.logger.Debug().
			Str("key", key).
			Int("bytes", len(files[name])).
			Msg("Uploaded report file")
	}
	return nil
}

func (p *Publisher) upsertArchive(ctx context.Context, artifact *models.ReportArtifact, record *models.DeploymentRecord) error {
	entry := models.ArchiveEntry{
		Month:       artifact.Month,
		ContentHash: artifact.ContentHash,
		URL:         record.URL,
		DeployedAt:  record.DeployedAt,
	}
	if err := p.archive.UpsertEntry(ctx, artifact.Client, entry); err != nil {
		return fmt.Errorf("failed to update archive index: %w", err)
	}
	return nil
}

// reportKeyPrefix builds the hosting path for a client month, e.g.
// "acme-corp/2025_05_May".
func reportKeyPrefix(client, month string) string {
	return slugify(client) + "/" + month
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '_' || r == '-':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
